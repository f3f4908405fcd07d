package pedersen

import (
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// ErrZeroBlinding is returned when a blinding scalar reduces to zero, which
// would make a commitment openly reversible.
var ErrZeroBlinding = errors.New("pedersen: blinding scalar is zero")

// ErrInvalidCommitment is returned when a byte string does not decode to a
// valid commitment point.
var ErrInvalidCommitment = errors.New("pedersen: invalid commitment encoding")

// ErrSubsetIdentity is returned by ZeroBalanced when some non-empty,
// non-total subset of the supplied commitments already sums to the curve's
// identity point, which would let a prover equivocate about which inputs
// fund which outputs.
var ErrSubsetIdentity = errors.New("pedersen: subset of commitments sums to identity")

// Blinding is a 32-byte secp256k1 scalar.
type Blinding [32]byte

// Commitment is a Pedersen commitment C = v*G_tag + r*H, serialized as a
// compressed secp256k1 point (spec.md §4.2: "serialization = 33 bytes").
type Commitment struct {
	point secp256k1.JacobianPoint
}

// Commit computes C = value*gen + blinding*H.
func Commit(gen *Generator, value uint64, blinding Blinding) (Commitment, error) {
	rScalar := new(secp256k1.ModNScalar)
	overflow := rScalar.SetByteSlice(blinding[:])
	if overflow || rScalar.IsZero() {
		return Commitment{}, ErrZeroBlinding
	}

	vScalar := new(secp256k1.ModNScalar)
	setUint64(vScalar, value)

	var vG, rH, c secp256k1.JacobianPoint
	secp256k1.ScalarMultNonConst(vScalar, &gen.point, &vG)
	secp256k1.ScalarMultNonConst(rScalar, &H.point, &rH)
	secp256k1.AddNonConst(&vG, &rH, &c)
	c.ToAffine()

	return Commitment{point: c}, nil
}

// setUint64 loads a uint64 into a ModNScalar, since ModNScalar.SetInt only
// accepts a uint32.
func setUint64(s *secp256k1.ModNScalar, v uint64) {
	var buf [32]byte
	buf[24] = byte(v >> 56)
	buf[25] = byte(v >> 48)
	buf[26] = byte(v >> 40)
	buf[27] = byte(v >> 32)
	buf[28] = byte(v >> 24)
	buf[29] = byte(v >> 16)
	buf[30] = byte(v >> 8)
	buf[31] = byte(v)
	s.SetByteSlice(buf[:])
}

// Verify recomputes value*gen + blinding*H and reports whether it equals c.
func Verify(gen *Generator, c Commitment, value uint64, blinding Blinding) bool {
	expected, err := Commit(gen, value, blinding)
	if err != nil {
		return false
	}
	return c.Equal(expected)
}

// Equal reports whether two commitments encode the same point.
func (c Commitment) Equal(other Commitment) bool {
	return c.Bytes() == other.Bytes()
}

// Bytes serializes the commitment as a 33-byte compressed point.
func (c Commitment) Bytes() [33]byte {
	p := c.point
	p.ToAffine()
	pubKey := secp256k1.NewPublicKey(&p.X, &p.Y)
	var out [33]byte
	copy(out[:], pubKey.SerializeCompressed())
	return out
}

// FromBytes parses a 33-byte compressed point as a Commitment.
func FromBytes(data [33]byte) (Commitment, error) {
	pubKey, err := secp256k1.ParsePubKey(data[:])
	if err != nil {
		return Commitment{}, fmt.Errorf("%w: %v", ErrInvalidCommitment, err)
	}
	var jac secp256k1.JacobianPoint
	pubKey.AsJacobian(&jac)
	return Commitment{point: jac}, nil
}

// Add computes the homomorphic sum c + other.
func (c Commitment) Add(other Commitment) Commitment {
	var sum secp256k1.JacobianPoint
	secp256k1.AddNonConst(&c.point, &other.point, &sum)
	sum.ToAffine()
	return Commitment{point: sum}
}

// Sub computes the homomorphic difference c - other.
func (c Commitment) Sub(other Commitment) Commitment {
	neg := other.point
	neg.Y.Negate(1)
	neg.Y.Normalize()

	var diff secp256k1.JacobianPoint
	secp256k1.AddNonConst(&c.point, &neg, &diff)
	diff.ToAffine()
	return Commitment{point: diff}
}

// IsIdentity reports whether c is the curve's point at infinity.
func (c Commitment) IsIdentity() bool {
	return c.point.Z.IsZero()
}

// GenerateBlinding returns a cryptographically random, non-zero blinding
// scalar.
func GenerateBlinding() (Blinding, error) {
	var b Blinding
	for i := 0; i < 8; i++ {
		if _, err := rand.Read(b[:]); err != nil {
			return Blinding{}, fmt.Errorf("pedersen: failed to generate blinding: %w", err)
		}
		s := new(secp256k1.ModNScalar)
		overflow := s.SetByteSlice(b[:])
		if !overflow && !s.IsZero() {
			return b, nil
		}
	}
	return Blinding{}, ErrZeroBlinding
}

// AddBlindings computes a + b mod n.
func AddBlindings(a, b Blinding) Blinding {
	sa := new(secp256k1.ModNScalar)
	sa.SetByteSlice(a[:])
	sb := new(secp256k1.ModNScalar)
	sb.SetByteSlice(b[:])

	sum := sa.Add(sb)
	var out Blinding
	copy(out[:], sum.Bytes()[:])
	return out
}

// SubBlindings computes a - b mod n.
func SubBlindings(a, b Blinding) Blinding {
	sa := new(secp256k1.ModNScalar)
	sa.SetByteSlice(a[:])
	sb := new(secp256k1.ModNScalar)
	sb.SetByteSlice(b[:])
	sb.Negate()

	diff := sa.Add(sb)
	var out Blinding
	copy(out[:], diff.Bytes()[:])
	return out
}

// ZeroBalanced returns a blinding `new` such that
//
//	sum(negatives) + new = sum(positives)
//
// the scalar an issuer or transition author needs for the one assignment
// they don't otherwise control the blinding of, so that the transition's
// total input and output values balance under Verify without revealing any
// individual value. It fails if the resulting scalar is zero, since a zero
// blinding collapses that assignment's commitment to a bare v*G value
// commitment.
func ZeroBalanced(negatives, positives []Blinding) (Blinding, error) {
	sum := func(bs []Blinding) *secp256k1.ModNScalar {
		acc := new(secp256k1.ModNScalar)
		for _, b := range bs {
			s := new(secp256k1.ModNScalar)
			s.SetByteSlice(b[:])
			acc = acc.Add(s)
		}
		return acc
	}

	signed := make([]*secp256k1.ModNScalar, 0, len(negatives)+len(positives))
	for _, b := range negatives {
		s := new(secp256k1.ModNScalar)
		s.SetByteSlice(b[:])
		s.Negate()
		signed = append(signed, s)
	}
	for _, b := range positives {
		s := new(secp256k1.ModNScalar)
		s.SetByteSlice(b[:])
		signed = append(signed, s)
	}
	if subsetSumsToIdentity(signed) {
		return Blinding{}, ErrSubsetIdentity
	}

	negSum := sum(negatives)
	posSum := sum(positives)

	negSum.Negate()
	result := posSum.Add(negSum)
	if result.IsZero() {
		return Blinding{}, ErrZeroBlinding
	}

	var out Blinding
	copy(out[:], result.Bytes()[:])
	return out, nil
}

// subsetSumsToIdentity reports whether some non-empty, non-total subset of
// signed sums to zero. A caller passing negatives/positives whose blinding
// values already balance on their own (without the freshly generated
// blinding this package hands back) could let a prover point to that
// subset as an independently valid transfer, equivocating about which
// inputs fund which outputs.
func subsetSumsToIdentity(signed []*secp256k1.ModNScalar) bool {
	n := len(signed)
	if n < 2 {
		return false
	}
	for mask := 1; mask < (1<<uint(n))-1; mask++ {
		sum := new(secp256k1.ModNScalar)
		for i := 0; i < n; i++ {
			if mask&(1<<uint(i)) != 0 {
				sum = sum.Add(signed[i])
			}
		}
		if sum.IsZero() {
			return true
		}
	}
	return false
}
