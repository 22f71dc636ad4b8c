package gateway

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	clierr "github.com/GuillermoSiaira/simpleswap-cli/internal/errors"
	"github.com/GuillermoSiaira/simpleswap-cli/internal/wallet"
)

// reserveBasedAMM targets the router-style pool: reserves and quotes come
// from view functions and the swap entrypoint is path-based.
type reserveBasedAMM struct {
	g *Gateway
}

func (a *reserveBasedAMM) Name() string { return "reserve_based" }

func (a *reserveBasedAMM) LiquidityUsesApprovals() bool { return true }

func (a *reserveBasedAMM) Reserves(ctx context.Context) (*big.Int, *big.Int, error) {
	values, err := a.g.call(ctx, a.g.cfg.Swap, reserveABI, "getReserves", a.g.cfg.TokenA, a.g.cfg.TokenB)
	if err != nil {
		return nil, nil, err
	}
	if len(values) != 2 {
		return nil, nil, clierr.New(clierr.CodeInterfaceMismatch, fmt.Sprintf("getReserves returned %d values", len(values)))
	}
	reserveA, okA := values[0].(*big.Int)
	reserveB, okB := values[1].(*big.Int)
	if !okA || !okB {
		return nil, nil, clierr.New(clierr.CodeInterfaceMismatch, "getReserves returned non-uint values")
	}
	return reserveA, reserveB, nil
}

func (a *reserveBasedAMM) ContractAmountOut(ctx context.Context, amountIn, reserveIn, reserveOut *big.Int) (*big.Int, bool, error) {
	out, err := a.g.callUint(ctx, a.g.cfg.Swap, reserveABI, "getAmountOut", amountIn, reserveIn, reserveOut)
	if err != nil {
		return nil, true, err
	}
	return out, true, nil
}

func (a *reserveBasedAMM) ContractPrice(ctx context.Context) (*big.Int, bool, error) {
	price, err := a.g.callUint(ctx, a.g.cfg.Swap, reserveABI, "getPrice", a.g.cfg.TokenA, a.g.cfg.TokenB)
	if err != nil {
		return nil, true, err
	}
	return price, true, nil
}

func (a *reserveBasedAMM) SwapTx(recipient common.Address, dir Direction, amountIn, minOut, deadline *big.Int) (wallet.TxRequest, error) {
	path := []common.Address{a.g.TokenIn(dir), a.g.TokenOut(dir)}
	data, err := reserveABI.Pack("swapExactTokensForTokens", amountIn, minOut, path, recipient, deadline)
	if err != nil {
		return wallet.TxRequest{}, clierr.Wrap(clierr.CodeInternal, "pack swap call", err)
	}
	return wallet.TxRequest{To: a.g.cfg.Swap, Value: new(big.Int), Data: data}, nil
}

func (a *reserveBasedAMM) LiquidityTxs(recipient common.Address, amountA, amountB, minA, minB, deadline *big.Int) ([]wallet.TxRequest, error) {
	data, err := reserveABI.Pack("addLiquidity",
		a.g.cfg.TokenA, a.g.cfg.TokenB,
		amountA, amountB,
		minA, minB,
		recipient, deadline,
	)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeInternal, "pack addLiquidity call", err)
	}
	return []wallet.TxRequest{{To: a.g.cfg.Swap, Value: new(big.Int), Data: data}}, nil
}

// directionalAMM targets the minimal pool: one entrypoint per direction,
// no reserve or quote views. Reserves are the pool's own token balances
// and liquidity is seeded by transferring tokens to it.
type directionalAMM struct {
	g *Gateway
}

func (a *directionalAMM) Name() string { return "directional" }

func (a *directionalAMM) LiquidityUsesApprovals() bool { return false }

func (a *directionalAMM) Reserves(ctx context.Context) (*big.Int, *big.Int, error) {
	reserveA, err := a.g.BalanceOf(ctx, a.g.cfg.TokenA, a.g.cfg.Swap)
	if err != nil {
		return nil, nil, err
	}
	reserveB, err := a.g.BalanceOf(ctx, a.g.cfg.TokenB, a.g.cfg.Swap)
	if err != nil {
		return nil, nil, err
	}
	return reserveA, reserveB, nil
}

func (a *directionalAMM) ContractAmountOut(ctx context.Context, amountIn, reserveIn, reserveOut *big.Int) (*big.Int, bool, error) {
	return nil, false, nil
}

func (a *directionalAMM) ContractPrice(ctx context.Context) (*big.Int, bool, error) {
	return nil, false, nil
}

// SwapTx packs only the input amount. The contract enforces no minimum
// output, so minOut stays a client-side advisory for this variant.
func (a *directionalAMM) SwapTx(recipient common.Address, dir Direction, amountIn, minOut, deadline *big.Int) (wallet.TxRequest, error) {
	method := "swapAtoB"
	if dir == DirectionBToA {
		method = "swapBtoA"
	}
	data, err := directABI.Pack(method, amountIn)
	if err != nil {
		return wallet.TxRequest{}, clierr.Wrap(clierr.CodeInternal, "pack swap call", err)
	}
	return wallet.TxRequest{To: a.g.cfg.Swap, Value: new(big.Int), Data: data}, nil
}

func (a *directionalAMM) LiquidityTxs(recipient common.Address, amountA, amountB, minA, minB, deadline *big.Int) ([]wallet.TxRequest, error) {
	txA, err := a.transferTx(a.g.cfg.TokenA, amountA)
	if err != nil {
		return nil, err
	}
	txB, err := a.transferTx(a.g.cfg.TokenB, amountB)
	if err != nil {
		return nil, err
	}
	return []wallet.TxRequest{txA, txB}, nil
}

func (a *directionalAMM) transferTx(token common.Address, amount *big.Int) (wallet.TxRequest, error) {
	data, err := erc20ABI.Pack("transfer", a.g.cfg.Swap, amount)
	if err != nil {
		return wallet.TxRequest{}, clierr.Wrap(clierr.CodeInternal, "pack transfer call", err)
	}
	return wallet.TxRequest{To: token, Value: new(big.Int), Data: data}, nil
}
