package vm

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash"

	"golang.org/x/crypto/blake2b"
)

// Per-opcode gas costs (spec.md §4.7: "counting ≈ 2-10k units; state load
// ≈ 6-100k units").
const (
	CostCount   = 4_000
	CostLoad    = 40_000
	CostControl = 100
)

// ErrBudgetExceeded is returned when a script's cumulative cost would
// exceed its configured budget.
var ErrBudgetExceeded = errors.New("vm: gas budget exceeded")

// Budget tracks cumulative execution cost and, for audit purposes, a
// running blake2b checksum of every charged step — two scripts that spend
// identical costs in identical order produce identical receipts, a cheap
// determinism check independent of the codec's SHA-256 commitments.
type Budget struct {
	Limit  uint64
	spent  uint64
	hasher hash.Hash
}

// NewBudget returns a Budget capped at limit units.
func NewBudget(limit uint64) *Budget {
	h, err := blake2b.New256(nil)
	if err != nil {
		// blake2b.New256 only errors on an oversized key, and we pass nil.
		panic(fmt.Sprintf("vm: blake2b.New256: %v", err))
	}
	return &Budget{Limit: limit, hasher: h}
}

// Charge deducts cost from the remaining budget and folds it into the
// running receipt checksum. It fails closed: an over-budget charge returns
// ErrBudgetExceeded, which Execute hands back to its caller, rather than
// letting the script run unmetered.
func (b *Budget) Charge(op Opcode, cost uint64) error {
	if b.spent+cost > b.Limit {
		return fmt.Errorf("%w: spent %d + cost %d > limit %d", ErrBudgetExceeded, b.spent, cost, b.Limit)
	}
	b.spent += cost

	var buf [9]byte
	buf[0] = byte(op)
	binary.LittleEndian.PutUint64(buf[1:], cost)
	_, _ = b.hasher.Write(buf[:])
	return nil
}

// Spent returns the cumulative cost charged so far.
func (b *Budget) Spent() uint64 { return b.spent }

// Receipt returns the running blake2b checksum of every charge recorded so
// far, for comparing two executions of the same script for determinism.
func (b *Budget) Receipt() [32]byte {
	var out [32]byte
	copy(out[:], b.hasher.Sum(nil))
	return out
}
