// Package gateway wraps every contract interaction behind typed reads
// and prepared transactions. Callers never touch calldata directly.
package gateway

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	clierr "github.com/GuillermoSiaira/simpleswap-cli/internal/errors"
	"github.com/GuillermoSiaira/simpleswap-cli/internal/model"
	"github.com/GuillermoSiaira/simpleswap-cli/internal/registry"
	"github.com/GuillermoSiaira/simpleswap-cli/internal/wallet"
)

var (
	erc20ABI    = mustABI(registry.ERC20ABI)
	erc20B32ABI = mustABI(registry.ERC20Bytes32ABI)
	reserveABI  = mustABI(registry.ReserveBasedSwapABI)
	directABI   = mustABI(registry.DirectionalSwapABI)
)

func mustABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("invalid ABI: %v", err))
	}
	return parsed
}

type Direction string

const (
	DirectionAToB Direction = "a_to_b"
	DirectionBToA Direction = "b_to_a"
)

func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "a_to_b", "a-to-b", "atob", "a-b", "ab":
		return DirectionAToB, nil
	case "b_to_a", "b-to-a", "btoa", "b-a", "ba":
		return DirectionBToA, nil
	default:
		return "", clierr.New(clierr.CodeUsage, "direction must be a-to-b or b-to-a")
	}
}

type Config struct {
	TokenA  common.Address
	TokenB  common.Address
	Swap    common.Address
	Variant string
}

func ConfigFromStrings(tokenA, tokenB, swap, variant string) (Config, error) {
	for name, v := range map[string]string{"token A": tokenA, "token B": tokenB, "swap contract": swap} {
		if !common.IsHexAddress(v) {
			return Config{}, clierr.New(clierr.CodeUsage, fmt.Sprintf("invalid %s address %q", name, v))
		}
	}
	return Config{
		TokenA:  common.HexToAddress(tokenA),
		TokenB:  common.HexToAddress(tokenB),
		Swap:    common.HexToAddress(swap),
		Variant: variant,
	}, nil
}

// Gateway performs contract reads and prepares transactions against one
// SimpleSwap deployment through a wallet bridge.
type Gateway struct {
	bridge wallet.Bridge
	cfg    Config
	log    *zap.Logger
	amm    AMM

	mu       sync.Mutex
	deployed map[common.Address]bool
}

// AMM is the pool interface variant. Reserves are always reported in
// (tokenA, tokenB) order regardless of how they were obtained.
type AMM interface {
	Name() string
	Reserves(ctx context.Context) (reserveA, reserveB *big.Int, err error)
	// ContractAmountOut asks the pool itself for a quote. ok is false
	// when the variant has no on-chain quoting entrypoint.
	ContractAmountOut(ctx context.Context, amountIn, reserveIn, reserveOut *big.Int) (out *big.Int, ok bool, err error)
	// ContractPrice reads the pool's own A-in-B price, scaled by 1e18.
	// ok is false when the variant has no price view.
	ContractPrice(ctx context.Context) (price *big.Int, ok bool, err error)
	// SwapTx prepares the swap transaction. deadline is a unix timestamp;
	// variants without a deadline parameter ignore it.
	SwapTx(recipient common.Address, dir Direction, amountIn, minOut, deadline *big.Int) (wallet.TxRequest, error)
	// LiquidityTxs prepares the transactions that add both tokens to the
	// pool after approvals are in place.
	LiquidityTxs(recipient common.Address, amountA, amountB, minA, minB, deadline *big.Int) ([]wallet.TxRequest, error)
	// LiquidityUsesApprovals reports whether LiquidityTxs spends through
	// allowances. Variants that seed the pool by direct transfer return
	// false and need no approval phase.
	LiquidityUsesApprovals() bool
}

func New(bridge wallet.Bridge, cfg Config, log *zap.Logger) (*Gateway, error) {
	if log == nil {
		log = zap.NewNop()
	}
	g := &Gateway{
		bridge:   bridge,
		cfg:      cfg,
		log:      log,
		deployed: make(map[common.Address]bool),
	}
	switch cfg.Variant {
	case "reserve_based", "":
		g.amm = &reserveBasedAMM{g: g}
	case "directional":
		g.amm = &directionalAMM{g: g}
	default:
		return nil, clierr.New(clierr.CodeUsage, fmt.Sprintf("unknown amm variant %q", cfg.Variant))
	}
	return g, nil
}

func (g *Gateway) Config() Config { return g.cfg }
func (g *Gateway) AMM() AMM       { return g.amm }

func (g *Gateway) TokenIn(dir Direction) common.Address {
	if dir == DirectionBToA {
		return g.cfg.TokenB
	}
	return g.cfg.TokenA
}

func (g *Gateway) TokenOut(dir Direction) common.Address {
	if dir == DirectionBToA {
		return g.cfg.TokenA
	}
	return g.cfg.TokenB
}

// EnsureDeployed verifies that each address carries bytecode. Results are
// memoized per address so repeated workflows pay the read once.
func (g *Gateway) EnsureDeployed(ctx context.Context, addrs ...common.Address) error {
	for _, addr := range addrs {
		g.mu.Lock()
		ok := g.deployed[addr]
		g.mu.Unlock()
		if ok {
			continue
		}
		code, err := g.bridge.CodeAt(ctx, addr)
		if err != nil {
			return clierr.Wrap(clierr.CodeUnavailable, "read contract code", err)
		}
		if len(code) == 0 {
			return clierr.New(clierr.CodeContractNotDeployed, fmt.Sprintf("no contract deployed at %s", addr.Hex()))
		}
		g.mu.Lock()
		g.deployed[addr] = true
		g.mu.Unlock()
	}
	return nil
}

func (g *Gateway) call(ctx context.Context, contract common.Address, parsed abi.ABI, method string, args ...any) ([]any, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeInternal, fmt.Sprintf("pack %s call", method), err)
	}
	raw, err := g.bridge.Call(ctx, ethereum.CallMsg{To: &contract, Data: data})
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeUnavailable, fmt.Sprintf("call %s", method), err)
	}
	values, err := parsed.Unpack(method, raw)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeInterfaceMismatch, fmt.Sprintf("decode %s result", method), err)
	}
	return values, nil
}

func (g *Gateway) callUint(ctx context.Context, contract common.Address, parsed abi.ABI, method string, args ...any) (*big.Int, error) {
	values, err := g.call(ctx, contract, parsed, method, args...)
	if err != nil {
		return nil, err
	}
	if len(values) != 1 {
		return nil, clierr.New(clierr.CodeInterfaceMismatch, fmt.Sprintf("%s returned %d values", method, len(values)))
	}
	out, ok := values[0].(*big.Int)
	if !ok {
		return nil, clierr.New(clierr.CodeInterfaceMismatch, fmt.Sprintf("%s returned a non-uint value", method))
	}
	return out, nil
}

func (g *Gateway) BalanceOf(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	return g.callUint(ctx, token, erc20ABI, "balanceOf", owner)
}

func (g *Gateway) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	return g.callUint(ctx, token, erc20ABI, "allowance", owner, spender)
}

// ApproveTx prepares an exact-amount approval of the swap contract.
func (g *Gateway) ApproveTx(token common.Address, amount *big.Int) (wallet.TxRequest, error) {
	data, err := erc20ABI.Pack("approve", g.cfg.Swap, amount)
	if err != nil {
		return wallet.TxRequest{}, clierr.Wrap(clierr.CodeInternal, "pack approve call", err)
	}
	return wallet.TxRequest{To: token, Value: new(big.Int), Data: data}, nil
}

// TokenMetadata reads name, symbol and decimals, trying the bytes32
// variants before giving up on a field. Failures degrade to the static
// fallback instead of aborting; the result is flagged accordingly.
func (g *Gateway) TokenMetadata(ctx context.Context, token common.Address, fallback registry.TokenFallback) model.TokenInfo {
	info := model.TokenInfo{
		Address:  token.Hex(),
		Name:     fallback.Name,
		Symbol:   fallback.Symbol,
		Decimals: fallback.Decimals,
	}
	degraded := false

	if name, err := g.stringRead(ctx, token, "name"); err == nil && name != "" {
		info.Name = name
	} else {
		degraded = true
	}
	if symbol, err := g.stringRead(ctx, token, "symbol"); err == nil && symbol != "" {
		info.Symbol = symbol
	} else {
		degraded = true
	}
	if values, err := g.call(ctx, token, erc20ABI, "decimals"); err == nil && len(values) == 1 {
		if d, ok := values[0].(uint8); ok {
			info.Decimals = int(d)
		} else {
			degraded = true
		}
	} else {
		degraded = true
	}

	if degraded {
		info.Fallback = true
		g.log.Warn("token metadata degraded to fallback",
			zap.String("token", token.Hex()),
			zap.String("symbol", info.Symbol),
		)
	}
	return info
}

func (g *Gateway) stringRead(ctx context.Context, token common.Address, method string) (string, error) {
	values, err := g.call(ctx, token, erc20ABI, method)
	if err == nil && len(values) == 1 {
		if s, ok := values[0].(string); ok {
			return s, nil
		}
	}
	// bytes32 fallback for pre-standard tokens
	values, err = g.call(ctx, token, erc20B32ABI, method)
	if err != nil {
		return "", err
	}
	if len(values) != 1 {
		return "", clierr.New(clierr.CodeInterfaceMismatch, fmt.Sprintf("%s returned %d values", method, len(values)))
	}
	raw, ok := values[0].([32]byte)
	if !ok {
		return "", clierr.New(clierr.CodeInterfaceMismatch, fmt.Sprintf("%s returned an unexpected type", method))
	}
	return strings.TrimRight(string(raw[:]), "\x00"), nil
}
