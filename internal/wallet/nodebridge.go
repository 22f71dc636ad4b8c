package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	clierr "github.com/GuillermoSiaira/simpleswap-cli/internal/errors"
	"github.com/GuillermoSiaira/simpleswap-cli/internal/registry"
	"github.com/GuillermoSiaira/simpleswap-cli/internal/wallet/signer"
)

type NodeBridgeOptions struct {
	RPCOverride        string
	GasLimitMultiplier float64
	PollInterval       time.Duration
	ConfirmTimeout     time.Duration
	Logger             *zap.Logger
}

// NodeBridge implements Bridge over a JSON-RPC node and a local signer.
// Chain switching redials against the endpoint registered for the target
// chain; unknown chains surface as ErrChainUnavailable until AddChain
// registers an endpoint for them.
type NodeBridge struct {
	mu        sync.Mutex
	client    *ethclient.Client
	signer    signer.Signer
	chainID   *big.Int
	endpoints map[int64]string
	opts      NodeBridgeOptions
	log       *zap.Logger

	accountCh chan []common.Address
	chainCh   chan *big.Int
	closed    bool
}

func DialNode(ctx context.Context, chainID int64, s signer.Signer, opts NodeBridgeOptions) (*NodeBridge, error) {
	if opts.GasLimitMultiplier < 1 {
		opts.GasLimitMultiplier = 1.2
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	if opts.ConfirmTimeout <= 0 {
		opts.ConfirmTimeout = 2 * time.Minute
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	endpoints := make(map[int64]string)
	if url, ok := registry.DefaultRPCURL(chainID); ok {
		endpoints[chainID] = url
	}
	url, err := registry.ResolveRPCURL(opts.RPCOverride, chainID)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeNoWallet, "resolve rpc endpoint", err)
	}
	endpoints[chainID] = url

	client, actual, err := dialAndVerify(ctx, url, chainID)
	if err != nil {
		return nil, err
	}

	return &NodeBridge{
		client:    client,
		signer:    s,
		chainID:   actual,
		endpoints: endpoints,
		opts:      opts,
		log:       log,
		accountCh: make(chan []common.Address, 1),
		chainCh:   make(chan *big.Int, 1),
	}, nil
}

func dialAndVerify(ctx context.Context, url string, want int64) (*ethclient.Client, *big.Int, error) {
	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, nil, clierr.Wrap(clierr.CodeNoWallet, "connect rpc", err)
	}
	actual, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, nil, clierr.Wrap(clierr.CodeNoWallet, "read chain id", err)
	}
	if want > 0 && actual.Int64() != want {
		client.Close()
		return nil, nil, clierr.New(clierr.CodeChainSwitchFailed, fmt.Sprintf("endpoint serves chain %d, expected %d", actual.Int64(), want))
	}
	return client, actual, nil
}

func (b *NodeBridge) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	return b.Accounts(ctx)
}

func (b *NodeBridge) Accounts(ctx context.Context) ([]common.Address, error) {
	if b.signer == nil {
		return nil, nil
	}
	return []common.Address{b.signer.Address()}, nil
}

func (b *NodeBridge) ChainID(ctx context.Context) (*big.Int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return new(big.Int).Set(b.chainID), nil
}

func (b *NodeBridge) SwitchChain(ctx context.Context, chainID int64) error {
	b.mu.Lock()
	if b.chainID.Int64() == chainID {
		b.mu.Unlock()
		return nil
	}
	url, ok := b.endpoints[chainID]
	b.mu.Unlock()
	if !ok {
		if fallback, found := registry.DefaultRPCURL(chainID); found {
			url = fallback
		} else {
			return ErrChainUnavailable
		}
	}

	client, actual, err := dialAndVerify(ctx, url, chainID)
	if err != nil {
		return clierr.Wrap(clierr.CodeChainSwitchFailed, "switch chain", err)
	}

	b.mu.Lock()
	old := b.client
	b.client = client
	b.chainID = actual
	b.endpoints[chainID] = url
	b.mu.Unlock()
	old.Close()

	b.log.Info("switched chain", zap.Int64("chain_id", chainID))
	b.emitChain(actual)
	return nil
}

func (b *NodeBridge) AddChain(ctx context.Context, desc registry.ChainDescriptor) error {
	if len(desc.RPCURLs) == 0 {
		return clierr.New(clierr.CodeChainSwitchFailed, "chain descriptor has no rpc endpoints")
	}
	b.mu.Lock()
	b.endpoints[desc.ChainID] = desc.RPCURLs[0]
	b.mu.Unlock()
	return b.SwitchChain(ctx, desc.ChainID)
}

func (b *NodeBridge) Call(ctx context.Context, msg ethereum.CallMsg) ([]byte, error) {
	return b.currentClient().CallContract(ctx, msg, nil)
}

func (b *NodeBridge) CodeAt(ctx context.Context, addr common.Address) ([]byte, error) {
	return b.currentClient().CodeAt(ctx, addr, nil)
}

// SendTransaction simulates, prices, signs and broadcasts req. Simulation
// failures stop the flow before any state change can happen.
func (b *NodeBridge) SendTransaction(ctx context.Context, req TxRequest) (common.Hash, error) {
	if b.signer == nil {
		return common.Hash{}, clierr.New(clierr.CodeNoAccounts, "no signing key configured")
	}
	client := b.currentClient()
	chainID, err := b.ChainID(ctx)
	if err != nil {
		return common.Hash{}, err
	}

	value := req.Value
	if value == nil {
		value = new(big.Int)
	}
	msg := ethereum.CallMsg{From: b.signer.Address(), To: &req.To, Value: value, Data: req.Data}

	if _, err := client.CallContract(ctx, msg, nil); err != nil {
		return common.Hash{}, clierr.Wrap(clierr.CodeTransactionReverted, "transaction would revert", err)
	}

	gasLimit, err := client.EstimateGas(ctx, msg)
	if err != nil {
		return common.Hash{}, clierr.Wrap(clierr.CodeTransactionReverted, "estimate gas", err)
	}
	gasLimit = uint64(float64(gasLimit) * b.opts.GasLimitMultiplier)

	tipCap, err := client.SuggestGasTipCap(ctx)
	if err != nil {
		tipCap = big.NewInt(2_000_000_000) // 2 gwei fallback
	}
	header, err := client.HeaderByNumber(ctx, nil)
	if err != nil {
		return common.Hash{}, clierr.Wrap(clierr.CodeUnavailable, "fetch latest header", err)
	}
	baseFee := header.BaseFee
	if baseFee == nil {
		baseFee = big.NewInt(1_000_000_000)
	}
	feeCap := new(big.Int).Mul(baseFee, big.NewInt(2))
	feeCap.Add(feeCap, tipCap)

	nonce, err := client.PendingNonceAt(ctx, b.signer.Address())
	if err != nil {
		return common.Hash{}, clierr.Wrap(clierr.CodeUnavailable, "fetch nonce", err)
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     nonce,
		GasTipCap: tipCap,
		GasFeeCap: feeCap,
		Gas:       gasLimit,
		To:        &req.To,
		Value:     value,
		Data:      req.Data,
	})
	signed, err := b.signer.SignTx(chainID, tx)
	if err != nil {
		return common.Hash{}, clierr.Wrap(clierr.CodeInternal, "sign transaction", err)
	}
	if err := client.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, clierr.Wrap(clierr.CodeUnavailable, "broadcast transaction", err)
	}

	b.log.Info("transaction submitted",
		zap.String("hash", signed.Hash().Hex()),
		zap.String("to", req.To.Hex()),
		zap.Uint64("gas_limit", gasLimit),
	)
	return signed.Hash(), nil
}

func (b *NodeBridge) WaitForConfirmation(ctx context.Context, hash common.Hash) (*Receipt, error) {
	client := b.currentClient()

	waitCtx, cancel := context.WithTimeout(ctx, b.opts.ConfirmTimeout)
	defer cancel()
	ticker := time.NewTicker(b.opts.PollInterval)
	defer ticker.Stop()
	for {
		receipt, err := client.TransactionReceipt(waitCtx, hash)
		if err == nil && receipt != nil {
			out := &Receipt{
				TxHash:      hash,
				Status:      receipt.Status,
				GasUsed:     receipt.GasUsed,
				BlockNumber: receipt.BlockNumber.Uint64(),
			}
			return out, nil
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			// Transient polling failures are retried until timeout.
			b.log.Debug("receipt poll failed", zap.Error(err))
		}
		select {
		case <-waitCtx.Done():
			return nil, clierr.Wrap(clierr.CodeUnavailable, "timed out waiting for receipt", waitCtx.Err())
		case <-ticker.C:
		}
	}
}

func (b *NodeBridge) AccountEvents() <-chan []common.Address { return b.accountCh }
func (b *NodeBridge) ChainEvents() <-chan *big.Int           { return b.chainCh }

func (b *NodeBridge) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	close(b.accountCh)
	close(b.chainCh)
	b.client.Close()
}

func (b *NodeBridge) currentClient() *ethclient.Client {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.client
}

func (b *NodeBridge) emitChain(chainID *big.Int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	select {
	case b.chainCh <- new(big.Int).Set(chainID):
	default:
	}
}
