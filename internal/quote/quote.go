// Package quote computes constant-product swap estimates from pool
// reserves. It is pure: chain reads happen in the gateway and results
// flow through here unchanged.
package quote

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// State tells "no estimate" apart from an estimate that happens to be zero.
type State int

const (
	StateOK State = iota
	StateNoInput
	StateNoLiquidity
)

func (s State) String() string {
	switch s {
	case StateNoInput:
		return "no_input"
	case StateNoLiquidity:
		return "no_liquidity"
	default:
		return "ok"
	}
}

// FeeMode selects how the local estimate models the pool fee.
type FeeMode int

const (
	// FeeModeLinear is the plain x*y ratio with no fee term.
	FeeModeLinear FeeMode = iota
	// FeeModeAdjusted applies the Numerator/Denominator fee fraction the
	// way constant-product routers do.
	FeeModeAdjusted
)

type Policy struct {
	Mode        FeeMode
	Numerator   int64
	Denominator int64
	SlippageBps int64
}

type Result struct {
	State    State
	AmountIn *big.Int
	Estimate *big.Int
	MinOut   *big.Int
}

// Compute derives the estimated output and the slippage floor for a swap
// of amountIn against the given reserves. A nil or zero amountIn yields
// StateNoInput; an empty pool yields StateNoLiquidity. Neither is an error.
func Compute(amountIn, reserveIn, reserveOut *big.Int, p Policy) Result {
	if amountIn == nil || amountIn.Sign() <= 0 {
		return Result{State: StateNoInput}
	}
	if reserveIn == nil || reserveOut == nil || reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return Result{State: StateNoLiquidity, AmountIn: new(big.Int).Set(amountIn)}
	}

	estimate := AmountOut(amountIn, reserveIn, reserveOut, p)
	return Result{
		State:    StateOK,
		AmountIn: new(big.Int).Set(amountIn),
		Estimate: estimate,
		MinOut:   ApplySlippage(estimate, p.SlippageBps),
	}
}

// AmountOut evaluates the pricing formula without the state checks.
// Callers must guarantee positive reserves.
func AmountOut(amountIn, reserveIn, reserveOut *big.Int, p Policy) *big.Int {
	if p.Mode == FeeModeAdjusted && p.Denominator > 0 {
		// out = in*fee*rOut / (rIn*den + in*fee)
		inWithFee := new(big.Int).Mul(amountIn, big.NewInt(p.Numerator))
		num := new(big.Int).Mul(inWithFee, reserveOut)
		den := new(big.Int).Mul(reserveIn, big.NewInt(p.Denominator))
		den.Add(den, inWithFee)
		return num.Div(num, den)
	}
	out := new(big.Int).Mul(amountIn, reserveOut)
	return out.Div(out, reserveIn)
}

// ApplySlippage floors the estimate by the given tolerance in basis points.
// Rounding is downward so the floor never exceeds the estimate.
func ApplySlippage(estimate *big.Int, bps int64) *big.Int {
	if estimate == nil {
		return nil
	}
	if bps < 0 {
		bps = 0
	}
	if bps > 10000 {
		bps = 10000
	}
	out := new(big.Int).Mul(estimate, big.NewInt(10000-bps))
	return out.Div(out, big.NewInt(10000))
}

// Price returns reserveOut/reserveIn as a display ratio, adjusted for the
// tokens' decimals. The second return is false when the pool is empty.
func Price(reserveIn, reserveOut *big.Int, decimalsIn, decimalsOut int) (decimal.Decimal, bool) {
	if reserveIn == nil || reserveOut == nil || reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return decimal.Zero, false
	}
	num := decimal.NewFromBigInt(reserveOut, int32(-decimalsOut))
	den := decimal.NewFromBigInt(reserveIn, int32(-decimalsIn))
	return num.DivRound(den, 18), true
}
