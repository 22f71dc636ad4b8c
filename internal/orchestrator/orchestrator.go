// Package orchestrator drives the multi-step trading workflows:
// quote, conditional approval, swap or liquidity submission, and
// confirmation. One mutating workflow runs at a time.
package orchestrator

import (
	"context"
	"errors"
	"math/big"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/GuillermoSiaira/simpleswap-cli/internal/amount"
	clierr "github.com/GuillermoSiaira/simpleswap-cli/internal/errors"
	"github.com/GuillermoSiaira/simpleswap-cli/internal/gateway"
	"github.com/GuillermoSiaira/simpleswap-cli/internal/model"
	"github.com/GuillermoSiaira/simpleswap-cli/internal/quote"
	"github.com/GuillermoSiaira/simpleswap-cli/internal/registry"
	"github.com/GuillermoSiaira/simpleswap-cli/internal/txstore"
	"github.com/GuillermoSiaira/simpleswap-cli/internal/wallet"
)

type Options struct {
	ChainID int64

	SwapPolicy       quote.Policy
	LiquidityBps     int64
	UseContractQuote bool
	DeadlineWindow   time.Duration
}

type Orchestrator struct {
	session *wallet.Session
	bridge  wallet.Bridge
	gw      *gateway.Gateway
	store   *txstore.Store
	log     *zap.Logger
	opts    Options
	now     func() time.Time

	busy atomic.Bool
}

func New(session *wallet.Session, bridge wallet.Bridge, gw *gateway.Gateway, store *txstore.Store, log *zap.Logger, opts Options) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.DeadlineWindow <= 0 {
		opts.DeadlineWindow = time.Hour
	}
	return &Orchestrator{
		session: session,
		bridge:  bridge,
		gw:      gw,
		store:   store,
		log:     log,
		opts:    opts,
		now:     time.Now,
	}
}

// SetStore attaches the transaction record store after construction.
// A nil store disables persistence.
func (o *Orchestrator) SetStore(store *txstore.Store) {
	o.store = store
}

// SetClock overrides the time source. Deadlines derive from it at
// submission time, never earlier.
func (o *Orchestrator) SetClock(now func() time.Time) {
	if now != nil {
		o.now = now
	}
}

// Quote estimates a swap without submitting anything. The contract quote
// wins when the pool offers one; local math is the fallback.
func (o *Orchestrator) Quote(ctx context.Context, dir gateway.Direction, amountIn *big.Int) (model.QuoteInfo, error) {
	cfg := o.gw.Config()
	if err := o.gw.EnsureDeployed(ctx, cfg.Swap, cfg.TokenA, cfg.TokenB); err != nil {
		return model.QuoteInfo{}, err
	}

	reserveA, reserveB, err := o.gw.AMM().Reserves(ctx)
	if err != nil {
		return model.QuoteInfo{}, err
	}
	reserveIn, reserveOut := orient(dir, reserveA, reserveB)

	decIn, decOut := o.decimals(ctx, dir)

	result := quote.Compute(amountIn, reserveIn, reserveOut, o.opts.SwapPolicy)
	info := model.QuoteInfo{
		State:       result.State.String(),
		Direction:   string(dir),
		AmountIn:    amount.Info(amountIn, decIn),
		SlippageBps: o.opts.SwapPolicy.SlippageBps,
		Source:      "local",
	}
	if result.State != quote.StateOK {
		return info, nil
	}

	estimate := result.Estimate
	if o.opts.UseContractQuote {
		out, ok, cerr := o.gw.AMM().ContractAmountOut(ctx, amountIn, reserveIn, reserveOut)
		switch {
		case ok && cerr == nil:
			estimate = out
			info.Source = "contract"
		case ok && cerr != nil:
			o.log.Warn("contract quote failed, using local estimate", zap.Error(cerr))
		}
	}

	info.EstimatedOut = amount.Info(estimate, decOut)
	info.MinOut = amount.Info(quote.ApplySlippage(estimate, o.opts.SwapPolicy.SlippageBps), decOut)
	if price, ok := quote.Price(reserveIn, reserveOut, decIn, decOut); ok {
		info.Price = price.String()
	}
	return info, nil
}

type SwapRequest struct {
	Direction gateway.Direction
	AmountIn  *big.Int
}

// Swap runs the full workflow: quote, balance check, conditional exact
// approval, swap submission with a fresh deadline, confirmation.
func (o *Orchestrator) Swap(ctx context.Context, req SwapRequest) (model.WorkflowResult, error) {
	release, err := o.acquire()
	if err != nil {
		return model.WorkflowResult{}, err
	}
	defer release()

	result := model.WorkflowResult{Kind: "swap", Status: "running"}

	o.phase(&result, model.PhaseValidating)
	account, err := o.session.RequireActive()
	if err != nil {
		return o.fail(result), err
	}
	if req.AmountIn == nil || req.AmountIn.Sign() <= 0 {
		return o.fail(result), clierr.New(clierr.CodeUsage, "swap amount must be positive")
	}

	o.phase(&result, model.PhaseQuoting)
	quoteInfo, err := o.Quote(ctx, req.Direction, req.AmountIn)
	if err != nil {
		return o.fail(result), err
	}
	result.Quote = &quoteInfo
	if quoteInfo.State == model.QuoteStateNoLiquidity {
		return o.fail(result), clierr.New(clierr.CodeInsufficientLiquidity, "pool has no liquidity")
	}

	tokenIn := o.gw.TokenIn(req.Direction)
	if err := o.requireBalance(ctx, tokenIn, account, req.AmountIn); err != nil {
		return o.fail(result), err
	}

	if err := o.approveIfNeeded(ctx, &result, account, tokenIn, req.AmountIn); err != nil {
		return o.fail(result), err
	}

	o.phase(&result, model.PhaseSwapping)
	minOut, ok := new(big.Int).SetString(quoteInfo.MinOut.AmountBaseUnits, 10)
	if !ok {
		return o.fail(result), clierr.New(clierr.CodeInternal, "invalid min out amount")
	}
	deadline := big.NewInt(o.now().Add(o.opts.DeadlineWindow).Unix())
	tx, err := o.gw.AMM().SwapTx(account, req.Direction, req.AmountIn, minOut, deadline)
	if err != nil {
		return o.fail(result), err
	}
	if _, err := o.submitAndConfirm(ctx, &result, account, "swap", tx); err != nil {
		return o.fail(result), err
	}

	o.phase(&result, model.PhaseDone)
	result.Status = "completed"
	return result, nil
}

type LiquidityRequest struct {
	AmountA *big.Int
	AmountB *big.Int
}

// AddLiquidity approves both tokens as needed and submits the deposit.
func (o *Orchestrator) AddLiquidity(ctx context.Context, req LiquidityRequest) (model.WorkflowResult, error) {
	release, err := o.acquire()
	if err != nil {
		return model.WorkflowResult{}, err
	}
	defer release()

	result := model.WorkflowResult{Kind: "add_liquidity", Status: "running"}

	o.phase(&result, model.PhaseValidating)
	account, err := o.session.RequireActive()
	if err != nil {
		return o.fail(result), err
	}
	if req.AmountA == nil || req.AmountA.Sign() <= 0 || req.AmountB == nil || req.AmountB.Sign() <= 0 {
		return o.fail(result), clierr.New(clierr.CodeUsage, "both token amounts must be positive")
	}

	cfg := o.gw.Config()
	if err := o.gw.EnsureDeployed(ctx, cfg.Swap, cfg.TokenA, cfg.TokenB); err != nil {
		return o.fail(result), err
	}
	if err := o.requireBalance(ctx, cfg.TokenA, account, req.AmountA); err != nil {
		return o.fail(result), err
	}
	if err := o.requireBalance(ctx, cfg.TokenB, account, req.AmountB); err != nil {
		return o.fail(result), err
	}

	if o.gw.AMM().LiquidityUsesApprovals() {
		if err := o.approveIfNeeded(ctx, &result, account, cfg.TokenA, req.AmountA); err != nil {
			return o.fail(result), err
		}
		if err := o.approveIfNeeded(ctx, &result, account, cfg.TokenB, req.AmountB); err != nil {
			return o.fail(result), err
		}
	}

	o.phase(&result, model.PhaseAdding)
	minA := quote.ApplySlippage(req.AmountA, o.opts.LiquidityBps)
	minB := quote.ApplySlippage(req.AmountB, o.opts.LiquidityBps)
	deadline := big.NewInt(o.now().Add(o.opts.DeadlineWindow).Unix())
	txs, err := o.gw.AMM().LiquidityTxs(account, req.AmountA, req.AmountB, minA, minB, deadline)
	if err != nil {
		return o.fail(result), err
	}
	for _, tx := range txs {
		if _, err := o.submitAndConfirm(ctx, &result, account, "add_liquidity", tx); err != nil {
			return o.fail(result), err
		}
	}

	o.phase(&result, model.PhaseDone)
	result.Status = "completed"
	return result, nil
}

func (o *Orchestrator) acquire() (func(), error) {
	if !o.busy.CompareAndSwap(false, true) {
		return nil, clierr.New(clierr.CodeBusy, "another workflow is already running")
	}
	return func() { o.busy.Store(false) }, nil
}

func (o *Orchestrator) phase(result *model.WorkflowResult, name string) {
	result.Phases = append(result.Phases, name)
	o.log.Info("workflow phase", zap.String("kind", result.Kind), zap.String("phase", name))
}

func (o *Orchestrator) fail(result model.WorkflowResult) model.WorkflowResult {
	result.Phases = append(result.Phases, model.PhaseFailed)
	result.Status = "failed"
	return result
}

func (o *Orchestrator) requireBalance(ctx context.Context, token, account common.Address, amountIn *big.Int) error {
	balance, err := o.gw.BalanceOf(ctx, token, account)
	if err != nil {
		return err
	}
	if balance.Cmp(amountIn) < 0 {
		return clierr.New(clierr.CodeInsufficientBalance, "token balance is below the requested amount")
	}
	return nil
}

// approveIfNeeded grants an exact-amount allowance when the current one
// does not cover the spend. A sufficient allowance skips the phase.
func (o *Orchestrator) approveIfNeeded(ctx context.Context, result *model.WorkflowResult, account, token common.Address, amountIn *big.Int) error {
	o.phase(result, model.PhaseCheckingAllowance)
	allowance, err := o.gw.Allowance(ctx, token, account, o.gw.Config().Swap)
	if err != nil {
		return err
	}
	if allowance.Cmp(amountIn) >= 0 {
		return nil
	}

	o.phase(result, model.PhaseApproving)
	result.ApprovalNeeded = true
	tx, err := o.gw.ApproveTx(token, amountIn)
	if err != nil {
		return err
	}
	_, err = o.submitAndConfirm(ctx, result, account, "approve", tx)
	return err
}

func (o *Orchestrator) submitAndConfirm(ctx context.Context, result *model.WorkflowResult, account common.Address, kind string, tx wallet.TxRequest) (model.TransactionRecord, error) {
	hash, err := o.bridge.SendTransaction(ctx, tx)
	if err != nil {
		if errors.Is(err, wallet.ErrUserRejected) {
			return model.TransactionRecord{}, clierr.Wrap(clierr.CodeUserRejected, "transaction rejected in wallet", err)
		}
		return model.TransactionRecord{}, err
	}

	record := model.TransactionRecord{
		Hash:        hash.Hex(),
		Kind:        kind,
		Status:      "submitted",
		Account:     account.Hex(),
		ChainID:     o.opts.ChainID,
		SubmittedAt: o.now().UTC().Format(time.RFC3339),
	}
	o.saveRecord(&record)
	result.Transactions = append(result.Transactions, record)

	o.phase(result, model.PhaseConfirming)
	receipt, err := o.bridge.WaitForConfirmation(ctx, hash)
	if err != nil {
		record.Status = "unknown"
		record.Error = err.Error()
		o.saveRecord(&record)
		o.replaceRecord(result, record)
		return record, err
	}

	record.BlockNumber = receipt.BlockNumber
	record.GasUsed = receipt.GasUsed
	record.ConfirmedAt = o.now().UTC().Format(time.RFC3339)
	if receipt.Reverted() {
		record.Status = "reverted"
		o.saveRecord(&record)
		o.replaceRecord(result, record)
		return record, clierr.New(clierr.CodeTransactionReverted, "transaction reverted on-chain")
	}

	record.Status = "confirmed"
	o.saveRecord(&record)
	o.replaceRecord(result, record)
	o.log.Info("transaction confirmed",
		zap.String("kind", kind),
		zap.String("hash", record.Hash),
		zap.Uint64("block", record.BlockNumber),
	)
	return record, nil
}

func (o *Orchestrator) saveRecord(record *model.TransactionRecord) {
	if o.store == nil {
		return
	}
	if err := o.store.Save(*record); err != nil {
		o.log.Warn("persist transaction record", zap.String("hash", record.Hash), zap.Error(err))
	}
}

func (o *Orchestrator) replaceRecord(result *model.WorkflowResult, record model.TransactionRecord) {
	for i := range result.Transactions {
		if result.Transactions[i].Hash == record.Hash {
			result.Transactions[i] = record
			return
		}
	}
}

func (o *Orchestrator) decimals(ctx context.Context, dir gateway.Direction) (int, int) {
	cfg := o.gw.Config()
	infoA := o.gw.TokenMetadata(ctx, cfg.TokenA, registry.TokenAFallback)
	infoB := o.gw.TokenMetadata(ctx, cfg.TokenB, registry.TokenBFallback)
	if dir == gateway.DirectionBToA {
		return infoB.Decimals, infoA.Decimals
	}
	return infoA.Decimals, infoB.Decimals
}

func orient(dir gateway.Direction, reserveA, reserveB *big.Int) (*big.Int, *big.Int) {
	if dir == gateway.DirectionBToA {
		return reserveB, reserveA
	}
	return reserveA, reserveB
}
