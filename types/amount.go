// Package types provides common types used across Escrow.
package types

import (
	"fmt"
	"math/bits"
)

// BasisPointDivisor is the denominator for protocol fee percentages.
// A fee of 250 basis points is 2.5% of the plan price.
const BasisPointDivisor = 10_000

// Amount is a monetary value in the smallest native currency unit.
// All arithmetic is unsigned-integer-only — no floating point. Balances
// never go negative; debits are rejected instead of underflowing.
type Amount uint64

// Add returns the sum of two amounts.
func (a Amount) Add(other Amount) Amount { return a + other }

// Sub subtracts another amount. Panics on underflow; callers must check
// Covers first (a debit below zero is a bug, not a result).
func (a Amount) Sub(other Amount) Amount {
	if other > a {
		panic(fmt.Sprintf("types: amount underflow: %d - %d", a, other))
	}
	return a - other
}

// Covers reports whether the amount is sufficient to pay the given price.
func (a Amount) Covers(price Amount) bool { return a >= price }

// IsZero reports whether the amount is zero.
func (a Amount) IsZero() bool { return a == 0 }

// SplitFee splits the amount into a protocol fee and a net remainder.
// The fee is floor(a * feeBps / 10000); fee + net always equals a.
// The intermediate product is computed in 128 bits so the split is exact
// for the full uint64 range.
func (a Amount) SplitFee(feeBps uint64) (fee, net Amount) {
	if feeBps > BasisPointDivisor {
		panic(fmt.Sprintf("types: fee above 100%%: %d bps", feeBps))
	}
	hi, lo := bits.Mul64(uint64(a), feeBps)
	q, _ := bits.Div64(hi, lo, BasisPointDivisor)
	fee = Amount(q)
	return fee, a - fee
}

// String formats the amount as a plain integer of atomic units.
func (a Amount) String() string { return fmt.Sprintf("%d", uint64(a)) }
