// Package resolver defines the contract a host application implements to
// supply witness transaction data during validation. The core never talks
// to a blockchain itself (spec.md §6): it asks a ResolveWitness for facts
// about specific txids and trusts nothing it cannot re-derive.
package resolver

import (
	"context"
	"errors"
	"fmt"

	"github.com/ledgerseal/rgbcore/pkg/anchor"
	"github.com/ledgerseal/rgbcore/pkg/chainnet"
	"github.com/ledgerseal/rgbcore/pkg/ids"
	"github.com/ledgerseal/rgbcore/pkg/seal"
)

// PubWitness is the subset of a published Bitcoin (or Liquid) transaction
// the validator needs: enough to check seal closure and an MPC anchor's
// committed root.
type PubWitness struct {
	Txid ids.Txid
	// CommittedRoot is the MPC tree root embedded in the witness
	// transaction's TAPRET or OPRET output, as decoded by the resolver
	// per the anchor's DbcMethod. The core never parses the transaction
	// itself to find it (spec.md §4.8).
	CommittedRoot [32]byte
	// Spends lists every outpoint this transaction's inputs consume, for
	// the seal-closure check (spec.md §4.9.3d).
	Spends []seal.OutPoint
}

// SpendsOutPoint reports whether w's transaction consumes outpoint op.
func (w PubWitness) SpendsOutPoint(op seal.OutPoint) bool {
	for _, s := range w.Spends {
		if s == op {
			return true
		}
	}
	return false
}

// ErrorKind classifies why a witness lookup failed.
type ErrorKind uint8

const (
	KindUnknown ErrorKind = iota
	KindIdMismatch
	KindWrongChainNet
	KindOther
)

// Error reports a witness-resolution failure, distinguishing the cases the
// validator needs to react to differently (spec.md §6, §7).
type Error struct {
	Kind     ErrorKind
	Txid     ids.Txid
	Expected ids.Txid
	Message  string
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindIdMismatch:
		return fmt.Sprintf("resolver: txid mismatch, expected %s got %s", e.Expected, e.Txid)
	case KindWrongChainNet:
		return fmt.Sprintf("resolver: witness %s belongs to a different chain-net", e.Txid)
	case KindUnknown:
		return fmt.Sprintf("resolver: unknown txid %s", e.Txid)
	default:
		return fmt.Sprintf("resolver: %s (txid %s)", e.Message, e.Txid)
	}
}

// ErrUnresolved is the sentinel a caller can match with errors.Is when it
// only cares that resolution failed, not why.
var ErrUnresolved = errors.New("resolver: witness unresolved")

func (e *Error) Unwrap() error { return ErrUnresolved }

// ResolveWitness is the interface a host application implements to let the
// validator look up witness transactions. Implementations must be
// side-effect free from the validator's point of view: repeated calls with
// the same txid return the same answer until the underlying chain state
// changes.
type ResolveWitness interface {
	// ResolvePubWitness returns the witness data for txid, verifying the
	// anchor's MPC proof against it is the validator's job, not the
	// resolver's — this only supplies facts.
	ResolvePubWitness(ctx context.Context, txid ids.Txid) (PubWitness, error)
	// ResolvePubWitnessOrd reports txid's confirmation status. A
	// Tentative status is not a failure: the validator records it only as
	// a NonFinalWitness warning, and only when a safe height is configured
	// (spec.md §4.9). An Archived status fails validation.
	ResolvePubWitnessOrd(ctx context.Context, txid ids.Txid) (chainnet.WitnessStatus, error)
	// CheckChainNet reports whether this resolver serves the given
	// chain-net at all, so a mismatched resolver fails fast instead of
	// returning confusing per-witness errors.
	CheckChainNet(net chainnet.ChainNet) bool
}

// CheckedResolver wraps a ResolveWitness and enforces that every witness it
// returns actually has the txid it was asked for — a resolver
// implementation bug (or a malicious one) that substitutes the wrong
// transaction must not silently pass (spec.md §6: "resolvers are
// untrusted; responses are checked before use").
type CheckedResolver struct {
	Inner ResolveWitness
}

// NewCheckedResolver wraps inner.
func NewCheckedResolver(inner ResolveWitness) *CheckedResolver {
	return &CheckedResolver{Inner: inner}
}

func (c *CheckedResolver) ResolvePubWitness(ctx context.Context, txid ids.Txid) (PubWitness, error) {
	w, err := c.Inner.ResolvePubWitness(ctx, txid)
	if err != nil {
		return PubWitness{}, err
	}
	if w.Txid != txid {
		return PubWitness{}, &Error{Kind: KindIdMismatch, Txid: w.Txid, Expected: txid}
	}
	return w, nil
}

func (c *CheckedResolver) ResolvePubWitnessOrd(ctx context.Context, txid ids.Txid) (chainnet.WitnessStatus, error) {
	return c.Inner.ResolvePubWitnessOrd(ctx, txid)
}

func (c *CheckedResolver) CheckChainNet(net chainnet.ChainNet) bool {
	return c.Inner.CheckChainNet(net)
}

// VerifyAnchor resolves a's witness transaction and checks its MPC proof
// convolves to the root embedded there, the full commitment-pass check for
// a single transition's anchor (spec.md §4.8-§4.9).
func VerifyAnchor(ctx context.Context, r ResolveWitness, a anchor.Anchor, contractId ids.ContractId, opid ids.OpId) error {
	w, err := r.ResolvePubWitness(ctx, a.WitnessTxid)
	if err != nil {
		return err
	}
	return a.Verify(contractId, opid, w.CommittedRoot)
}
