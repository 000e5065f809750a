package services

import "math/big"

// Scale is the fixed-point factor for the yield-per-share accumulator.
// Per-user rounding loss per claim is bounded by shares/Scale tokens.
const Scale int64 = 1_000_000

// mulDiv returns floor(a*b/div) computed with an arbitrary-precision
// intermediate product, so a*b may exceed int64. All inputs must be
// non-negative and div must be nonzero.
func mulDiv(a, b, div int64) int64 {
	p := new(big.Int).Mul(big.NewInt(a), big.NewInt(b))
	p.Quo(p, big.NewInt(div))
	return p.Int64()
}
