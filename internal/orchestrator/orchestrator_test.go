package orchestrator

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	clierr "github.com/GuillermoSiaira/simpleswap-cli/internal/errors"
	"github.com/GuillermoSiaira/simpleswap-cli/internal/gateway"
	"github.com/GuillermoSiaira/simpleswap-cli/internal/model"
	"github.com/GuillermoSiaira/simpleswap-cli/internal/quote"
	"github.com/GuillermoSiaira/simpleswap-cli/internal/registry"
	"github.com/GuillermoSiaira/simpleswap-cli/internal/wallet"
	"github.com/GuillermoSiaira/simpleswap-cli/internal/wallet/wallettest"
)

var (
	testTokenA = common.HexToAddress("0x0000000000000000000000000000000000000a01")
	testTokenB = common.HexToAddress("0x0000000000000000000000000000000000000b01")
	testSwap   = common.HexToAddress("0x0000000000000000000000000000000000000c01")
	testOwner  = common.HexToAddress("0x1111111111111111111111111111111111111111")

	testERC20 = mustParse(registry.ERC20ABI)
	testPool  = mustParse(registry.ReserveBasedSwapABI)
)

func mustParse(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return parsed
}

// poolState serves the contract reads the workflows perform. Metadata
// selectors are left unhandled so token info degrades to the fallback.
type poolState struct {
	reserveA   *big.Int
	reserveB   *big.Int
	quoteOut   *big.Int
	balances   map[common.Address]*big.Int
	allowances map[common.Address]*big.Int
}

func (p *poolState) call(msg ethereum.CallMsg) ([]byte, error) {
	if msg.To == nil || len(msg.Data) < 4 {
		return nil, fmt.Errorf("malformed call")
	}
	sel := msg.Data[:4]
	if *msg.To == testSwap {
		switch {
		case bytes.Equal(sel, testPool.Methods["getReserves"].ID):
			return testPool.Methods["getReserves"].Outputs.Pack(p.reserveA, p.reserveB)
		case bytes.Equal(sel, testPool.Methods["getAmountOut"].ID) && p.quoteOut != nil:
			return testPool.Methods["getAmountOut"].Outputs.Pack(p.quoteOut)
		}
		return nil, fmt.Errorf("unsupported pool call %x", sel)
	}
	switch {
	case bytes.Equal(sel, testERC20.Methods["balanceOf"].ID):
		return testERC20.Methods["balanceOf"].Outputs.Pack(p.balance(*msg.To))
	case bytes.Equal(sel, testERC20.Methods["allowance"].ID):
		return testERC20.Methods["allowance"].Outputs.Pack(p.allowance(*msg.To))
	}
	return nil, fmt.Errorf("unsupported token call %x", sel)
}

func (p *poolState) balance(token common.Address) *big.Int {
	if v, ok := p.balances[token]; ok {
		return v
	}
	return new(big.Int)
}

func (p *poolState) allowance(token common.Address) *big.Int {
	if v, ok := p.allowances[token]; ok {
		return v
	}
	return new(big.Int)
}

type harness struct {
	bridge *wallettest.Bridge
	state  *poolState
	orc    *Orchestrator
}

func newHarness(t *testing.T, variant string) *harness {
	t.Helper()

	bridge := wallettest.New(registry.SepoliaChainID, testOwner)
	bridge.Code[testTokenA] = []byte{0x60}
	bridge.Code[testTokenB] = []byte{0x60}
	bridge.Code[testSwap] = []byte{0x60}

	state := &poolState{
		reserveA:   big.NewInt(1_000_000),
		reserveB:   big.NewInt(2_000_000),
		balances:   map[common.Address]*big.Int{testTokenA: big.NewInt(10_000), testTokenB: big.NewInt(10_000)},
		allowances: map[common.Address]*big.Int{},
	}
	bridge.CallFn = state.call

	session := wallet.NewSession(bridge, registry.Sepolia, zap.NewNop())
	if _, err := session.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}

	gw, err := gateway.New(bridge, gateway.Config{
		TokenA:  testTokenA,
		TokenB:  testTokenB,
		Swap:    testSwap,
		Variant: variant,
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("gateway: %v", err)
	}

	orc := New(session, bridge, gw, nil, zap.NewNop(), Options{
		ChainID:          registry.SepoliaChainID,
		SwapPolicy:       quote.Policy{Mode: quote.FeeModeLinear, SlippageBps: 500},
		LiquidityBps:     1000,
		UseContractQuote: variant != "directional",
		DeadlineWindow:   time.Hour,
	})
	return &harness{bridge: bridge, state: state, orc: orc}
}

func (h *harness) sentSelectors(t *testing.T) [][]byte {
	t.Helper()
	sels := make([][]byte, 0, len(h.bridge.Sent))
	for _, tx := range h.bridge.Sent {
		if len(tx.Data) < 4 {
			t.Fatalf("sent transaction with short calldata")
		}
		sels = append(sels, tx.Data[:4])
	}
	return sels
}

func TestSwapSkipsApprovalWhenAllowanceCovers(t *testing.T) {
	h := newHarness(t, "reserve_based")
	h.state.allowances[testTokenA] = big.NewInt(1_000)
	h.state.quoteOut = big.NewInt(900)

	result, err := h.orc.Swap(context.Background(), SwapRequest{
		Direction: gateway.DirectionAToB,
		AmountIn:  big.NewInt(500),
	})
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	if result.ApprovalNeeded {
		t.Fatalf("approval should not be needed with a covering allowance")
	}
	if result.Status != "completed" {
		t.Fatalf("status = %q", result.Status)
	}
	if len(h.bridge.Sent) != 1 {
		t.Fatalf("sent %d transactions, want 1", len(h.bridge.Sent))
	}
	if !bytes.Equal(h.sentSelectors(t)[0], testPool.Methods["swapExactTokensForTokens"].ID) {
		t.Fatalf("transaction is not the swap entrypoint")
	}
	if result.Quote == nil || result.Quote.Source != "contract" {
		t.Fatalf("quote source = %+v, want contract", result.Quote)
	}
	// 900 with a 5% floor.
	if got := result.Quote.MinOut.AmountBaseUnits; got != "855" {
		t.Fatalf("min out = %s, want 855", got)
	}
	if result.Transactions[0].Status != "confirmed" {
		t.Fatalf("record status = %q", result.Transactions[0].Status)
	}
}

func TestSwapInsertsApprovalWhenAllowanceLow(t *testing.T) {
	h := newHarness(t, "reserve_based")
	h.state.quoteOut = big.NewInt(900)

	result, err := h.orc.Swap(context.Background(), SwapRequest{
		Direction: gateway.DirectionAToB,
		AmountIn:  big.NewInt(500),
	})
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	if !result.ApprovalNeeded {
		t.Fatalf("approval phase expected with zero allowance")
	}
	if len(h.bridge.Sent) != 2 {
		t.Fatalf("sent %d transactions, want approve then swap", len(h.bridge.Sent))
	}
	if h.bridge.Sent[0].To != testTokenA {
		t.Fatalf("approve targeted %s, want token A", h.bridge.Sent[0].To)
	}
	if !bytes.Equal(h.sentSelectors(t)[0], testERC20.Methods["approve"].ID) {
		t.Fatalf("first transaction is not an approval")
	}
	var decoded struct {
		Spender common.Address
		Value   *big.Int
	}
	values, err := testERC20.Methods["approve"].Inputs.Unpack(h.bridge.Sent[0].Data[4:])
	if err != nil {
		t.Fatalf("unpack approve: %v", err)
	}
	decoded.Spender = values[0].(common.Address)
	decoded.Value = values[1].(*big.Int)
	if decoded.Spender != testSwap {
		t.Fatalf("approve spender = %s, want swap contract", decoded.Spender)
	}
	if decoded.Value.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("approve value = %s, want the exact swap amount", decoded.Value)
	}
	phases := strings.Join(result.Phases, ",")
	if !strings.Contains(phases, model.PhaseApproving) {
		t.Fatalf("phases %q missing approval", phases)
	}
}

func TestSwapRejectsConcurrentWorkflow(t *testing.T) {
	h := newHarness(t, "reserve_based")
	h.state.allowances[testTokenA] = big.NewInt(1_000)
	h.state.quoteOut = big.NewInt(900)

	started := make(chan struct{})
	unblock := make(chan struct{})
	h.bridge.SendFn = func(req wallet.TxRequest) (common.Hash, error) {
		close(started)
		<-unblock
		return common.HexToHash("0x01"), nil
	}

	done := make(chan error, 1)
	go func() {
		_, err := h.orc.Swap(context.Background(), SwapRequest{
			Direction: gateway.DirectionAToB,
			AmountIn:  big.NewInt(500),
		})
		done <- err
	}()

	<-started
	_, err := h.orc.Swap(context.Background(), SwapRequest{
		Direction: gateway.DirectionAToB,
		AmountIn:  big.NewInt(500),
	})
	if !clierr.Is(err, clierr.CodeBusy) {
		t.Fatalf("concurrent swap error = %v, want busy", err)
	}
	close(unblock)
	if err := <-done; err != nil {
		t.Fatalf("first swap: %v", err)
	}
}

func TestSwapSurfacesRevertedReceipt(t *testing.T) {
	h := newHarness(t, "reserve_based")
	h.state.allowances[testTokenA] = big.NewInt(1_000)
	h.state.quoteOut = big.NewInt(900)

	hash := common.HexToHash("0xdead")
	h.bridge.SendFn = func(req wallet.TxRequest) (common.Hash, error) { return hash, nil }
	h.bridge.Receipts[hash] = &wallet.Receipt{TxHash: hash, Status: 0, BlockNumber: 7, GasUsed: 40_000}

	result, err := h.orc.Swap(context.Background(), SwapRequest{
		Direction: gateway.DirectionAToB,
		AmountIn:  big.NewInt(500),
	})
	if !clierr.Is(err, clierr.CodeTransactionReverted) {
		t.Fatalf("error = %v, want transaction reverted", err)
	}
	if result.Status != "failed" {
		t.Fatalf("status = %q, want failed", result.Status)
	}
	if len(result.Transactions) != 1 || result.Transactions[0].Status != "reverted" {
		t.Fatalf("record = %+v, want reverted", result.Transactions)
	}
}

func TestSwapBlockedOnWrongNetwork(t *testing.T) {
	bridge := wallettest.New(1, testOwner)
	bridge.AddErr = fmt.Errorf("declined")
	session := wallet.NewSession(bridge, registry.Sepolia, zap.NewNop())
	if _, err := session.Connect(context.Background()); !clierr.Is(err, clierr.CodeChainSwitchFailed) {
		t.Fatalf("connect error = %v, want chain switch failure", err)
	}

	gw, err := gateway.New(bridge, gateway.Config{TokenA: testTokenA, TokenB: testTokenB, Swap: testSwap}, zap.NewNop())
	if err != nil {
		t.Fatalf("gateway: %v", err)
	}
	orc := New(session, bridge, gw, nil, zap.NewNop(), Options{ChainID: registry.SepoliaChainID})

	_, err = orc.Swap(context.Background(), SwapRequest{Direction: gateway.DirectionAToB, AmountIn: big.NewInt(1)})
	if !clierr.Is(err, clierr.CodeWrongNetwork) {
		t.Fatalf("error = %v, want wrong network", err)
	}
}

func TestSwapInsufficientBalance(t *testing.T) {
	h := newHarness(t, "reserve_based")
	h.state.balances[testTokenA] = big.NewInt(10)
	h.state.quoteOut = big.NewInt(900)

	_, err := h.orc.Swap(context.Background(), SwapRequest{
		Direction: gateway.DirectionAToB,
		AmountIn:  big.NewInt(500),
	})
	if !clierr.Is(err, clierr.CodeInsufficientBalance) {
		t.Fatalf("error = %v, want insufficient balance", err)
	}
	if len(h.bridge.Sent) != 0 {
		t.Fatalf("no transaction should be submitted on a failed balance check")
	}
}

func TestSwapEmptyPoolReportsNoLiquidity(t *testing.T) {
	h := newHarness(t, "reserve_based")
	h.state.reserveA = new(big.Int)
	h.state.reserveB = new(big.Int)

	result, err := h.orc.Swap(context.Background(), SwapRequest{
		Direction: gateway.DirectionAToB,
		AmountIn:  big.NewInt(500),
	})
	if !clierr.Is(err, clierr.CodeInsufficientLiquidity) {
		t.Fatalf("error = %v, want insufficient liquidity", err)
	}
	if result.Quote == nil || result.Quote.State != model.QuoteStateNoLiquidity {
		t.Fatalf("quote = %+v, want no_liquidity state", result.Quote)
	}
}

func TestAddLiquidityApprovesBothTokens(t *testing.T) {
	h := newHarness(t, "reserve_based")

	result, err := h.orc.AddLiquidity(context.Background(), LiquidityRequest{
		AmountA: big.NewInt(300),
		AmountB: big.NewInt(600),
	})
	if err != nil {
		t.Fatalf("add liquidity: %v", err)
	}
	if !result.ApprovalNeeded {
		t.Fatalf("approvals expected with zero allowances")
	}
	sels := h.sentSelectors(t)
	if len(sels) != 3 {
		t.Fatalf("sent %d transactions, want approve, approve, addLiquidity", len(sels))
	}
	if !bytes.Equal(sels[0], testERC20.Methods["approve"].ID) || !bytes.Equal(sels[1], testERC20.Methods["approve"].ID) {
		t.Fatalf("first two transactions must be approvals")
	}
	if !bytes.Equal(sels[2], testPool.Methods["addLiquidity"].ID) {
		t.Fatalf("final transaction is not addLiquidity")
	}
	values, err := testPool.Methods["addLiquidity"].Inputs.Unpack(h.bridge.Sent[2].Data[4:])
	if err != nil {
		t.Fatalf("unpack addLiquidity: %v", err)
	}
	// 10% floor on both desired amounts.
	if min := values[4].(*big.Int); min.Cmp(big.NewInt(270)) != 0 {
		t.Fatalf("amountAMin = %s, want 270", min)
	}
	if min := values[5].(*big.Int); min.Cmp(big.NewInt(540)) != 0 {
		t.Fatalf("amountBMin = %s, want 540", min)
	}
}

func TestAddLiquidityDirectionalSeedsByTransfer(t *testing.T) {
	h := newHarness(t, "directional")

	result, err := h.orc.AddLiquidity(context.Background(), LiquidityRequest{
		AmountA: big.NewInt(300),
		AmountB: big.NewInt(600),
	})
	if err != nil {
		t.Fatalf("add liquidity: %v", err)
	}
	if result.ApprovalNeeded {
		t.Fatalf("direct transfers need no approvals")
	}
	if len(h.bridge.Sent) != 2 {
		t.Fatalf("sent %d transactions, want one transfer per token", len(h.bridge.Sent))
	}
	for i, tx := range h.bridge.Sent {
		if !bytes.Equal(tx.Data[:4], testERC20.Methods["transfer"].ID) {
			t.Fatalf("transaction %d is not a transfer", i)
		}
	}
	if h.bridge.Sent[0].To != testTokenA || h.bridge.Sent[1].To != testTokenB {
		t.Fatalf("transfers must target token A then token B")
	}
}
