package payment

import (
	"fmt"

	"github.com/holiman/uint256"
)

// Payment is a quantity of a fungible or semi-fungible token.
type Payment struct {
	// TokenID identifies the token.
	TokenID string
	// Nonce selects the sub-unit of a semi-fungible token; zero for fungible tokens.
	Nonce uint64
	// Amount is the quantity transferred. Nil is treated as zero.
	Amount *uint256.Int
}

// New builds a Payment, copying amount.
func New(tokenID string, nonce uint64, amount *uint256.Int) Payment {
	return Payment{TokenID: tokenID, Nonce: nonce, Amount: copyAmount(amount)}
}

// Clone returns a deep copy of p.
func (p Payment) Clone() Payment {
	return Payment{TokenID: p.TokenID, Nonce: p.Nonce, Amount: copyAmount(p.Amount)}
}

// Value returns the amount, substituting zero for nil.
func (p Payment) Value() *uint256.Int {
	if p.Amount == nil {
		return new(uint256.Int)
	}
	return p.Amount
}

// Equal reports whether p and o carry the same token, nonce and amount.
func (p Payment) Equal(o Payment) bool {
	return p.TokenID == o.TokenID && p.Nonce == o.Nonce && p.Value().Eq(o.Value())
}

func (p Payment) String() string {
	return fmt.Sprintf("%s-%d:%s", p.TokenID, p.Nonce, p.Value().Dec())
}

// CloneAll deep-copies ps, preserving order. A nil or empty input yields an
// empty, non-nil slice.
func CloneAll(ps []Payment) []Payment {
	out := make([]Payment, len(ps))
	for i, p := range ps {
		out[i] = p.Clone()
	}
	return out
}

func copyAmount(a *uint256.Int) *uint256.Int {
	if a == nil {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(a)
}
