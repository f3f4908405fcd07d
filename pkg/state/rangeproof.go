package state

import (
	"errors"
	"fmt"
	"sync"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
)

// ErrRangeProofInvalid is returned by a RangeProofVerifier when a range
// proof fails to verify against its commitment.
var ErrRangeProofInvalid = errors.New("state: range proof invalid")

// RangeProofVerifier is the pluggable hook spec.md §4.2 delegates range
// proof verification to: "verification is delegated to the curve library
// and must reject on any deviation." Neither the schema validator nor the
// VM inlines range-proof arithmetic, and pkg/validator does not call this
// interface either.
type RangeProofVerifier interface {
	// VerifyRange reports whether proof attests that the value hidden in
	// commitment lies within [min, max]. An error distinct from
	// ErrRangeProofInvalid indicates the verifier itself could not run
	// (malformed proof bytes, uncompiled circuit), which callers should
	// treat the same as an invalid proof for validation purposes.
	VerifyRange(commitment [33]byte, proof RangeProof, min, max uint64) error
}

// rangeCircuit mirrors RangeDisclosureCircuit's MinValue <= Value <=
// MaxValue constraint, adapted to operate over a raw committed value
// rather than this package's Commitment wrapper, since gnark circuits are
// defined over frontend.Variable, not secp256k1 points.
type rangeCircuit struct {
	MinValue frontend.Variable `gnark:",public"`
	MaxValue frontend.Variable `gnark:",public"`

	Value   frontend.Variable
	Blinder frontend.Variable
}

func (c *rangeCircuit) Define(api frontend.API) error {
	diffLow := api.Sub(c.Value, c.MinValue)
	api.AssertIsLessOrEqual(0, diffLow)

	diffHigh := api.Sub(c.MaxValue, c.Value)
	api.AssertIsLessOrEqual(0, diffHigh)

	return nil
}

// GnarkRangeVerifier is the default RangeProofVerifier, backed by a
// groth16 circuit compiled once at construction and reused across calls.
type GnarkRangeVerifier struct {
	mu  sync.Mutex
	ccs frontend.CompiledConstraintSystem
	vk  groth16.VerifyingKey
}

// NewGnarkRangeVerifier compiles the range circuit and derives a
// verifying key. The proving side lives with whoever constructs range
// proofs (outside the validation core); this type only ever verifies.
func NewGnarkRangeVerifier() (*GnarkRangeVerifier, error) {
	circuit := &rangeCircuit{}
	ccs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, circuit)
	if err != nil {
		return nil, fmt.Errorf("state: compile range circuit: %w", err)
	}
	_, vk, err := groth16.Setup(ccs)
	if err != nil {
		return nil, fmt.Errorf("state: range circuit setup: %w", err)
	}
	return &GnarkRangeVerifier{ccs: ccs, vk: vk}, nil
}

// VerifyRange deserializes proof as a groth16 proof over the compiled
// range circuit and checks it against the public (min, max) bound. The
// commitment argument is not used: the circuit's only public inputs are
// MinValue and MaxValue, so a proof is not bound to any particular
// commitment.
func (g *GnarkRangeVerifier) VerifyRange(commitment [33]byte, proof RangeProof, min, max uint64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(proof) == 0 {
		return fmt.Errorf("%w: empty proof", ErrRangeProofInvalid)
	}

	gProof := groth16.NewProof(ecc.BN254)
	if err := gProof.UnmarshalBinary(proof); err != nil {
		return fmt.Errorf("%w: malformed proof bytes: %v", ErrRangeProofInvalid, err)
	}

	publicWitness, err := frontend.NewWitness(&rangeCircuit{MinValue: min, MaxValue: max}, ecc.BN254.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return fmt.Errorf("state: range verifier witness init: %w", err)
	}

	if err := groth16.Verify(gProof, g.vk, publicWitness); err != nil {
		return fmt.Errorf("%w: %v", ErrRangeProofInvalid, err)
	}
	return nil
}

// NopRangeVerifier accepts every non-empty proof without cryptographic
// checking.
type NopRangeVerifier struct{}

func (NopRangeVerifier) VerifyRange(commitment [33]byte, proof RangeProof, min, max uint64) error {
	if len(proof) == 0 {
		return fmt.Errorf("%w: empty proof", ErrRangeProofInvalid)
	}
	return nil
}
