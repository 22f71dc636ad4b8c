// Package wallettest provides a scriptable in-memory Bridge for tests.
package wallettest

import (
	"context"
	"crypto/sha256"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/GuillermoSiaira/simpleswap-cli/internal/registry"
	"github.com/GuillermoSiaira/simpleswap-cli/internal/wallet"
)

type Bridge struct {
	mu sync.Mutex

	AccountList []common.Address
	RequestErr  error

	Chain       int64
	KnownChains map[int64]bool
	SwitchErr   error
	AddErr      error

	Code   map[common.Address][]byte
	CallFn func(msg ethereum.CallMsg) ([]byte, error)

	SendFn   func(req wallet.TxRequest) (common.Hash, error)
	Receipts map[common.Hash]*wallet.Receipt
	WaitErr  error

	Sent []wallet.TxRequest

	accountCh chan []common.Address
	chainCh   chan *big.Int
	closeOnce sync.Once
}

func New(chainID int64, accounts ...common.Address) *Bridge {
	return &Bridge{
		AccountList: accounts,
		Chain:       chainID,
		KnownChains: map[int64]bool{chainID: true},
		Code:        make(map[common.Address][]byte),
		Receipts:    make(map[common.Hash]*wallet.Receipt),
		accountCh:   make(chan []common.Address, 4),
		chainCh:     make(chan *big.Int, 4),
	}
}

func (b *Bridge) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.RequestErr != nil {
		return nil, b.RequestErr
	}
	return append([]common.Address{}, b.AccountList...), nil
}

func (b *Bridge) Accounts(ctx context.Context) ([]common.Address, error) {
	return b.RequestAccounts(ctx)
}

func (b *Bridge) ChainID(ctx context.Context) (*big.Int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return big.NewInt(b.Chain), nil
}

func (b *Bridge) SwitchChain(ctx context.Context, chainID int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.SwitchErr != nil {
		return b.SwitchErr
	}
	if !b.KnownChains[chainID] {
		return wallet.ErrChainUnavailable
	}
	b.Chain = chainID
	return nil
}

func (b *Bridge) AddChain(ctx context.Context, desc registry.ChainDescriptor) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.AddErr != nil {
		return b.AddErr
	}
	b.KnownChains[desc.ChainID] = true
	b.Chain = desc.ChainID
	return nil
}

func (b *Bridge) Call(ctx context.Context, msg ethereum.CallMsg) ([]byte, error) {
	b.mu.Lock()
	fn := b.CallFn
	b.mu.Unlock()
	if fn == nil {
		return nil, ethereum.NotFound
	}
	return fn(msg)
}

func (b *Bridge) CodeAt(ctx context.Context, addr common.Address) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.Code[addr], nil
}

func (b *Bridge) SendTransaction(ctx context.Context, req wallet.TxRequest) (common.Hash, error) {
	b.mu.Lock()
	b.Sent = append(b.Sent, req)
	fn := b.SendFn
	n := len(b.Sent)
	b.mu.Unlock()
	if fn != nil {
		return fn(req)
	}
	return deterministicHash(req.To, n), nil
}

func (b *Bridge) WaitForConfirmation(ctx context.Context, hash common.Hash) (*wallet.Receipt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.WaitErr != nil {
		return nil, b.WaitErr
	}
	if r, ok := b.Receipts[hash]; ok {
		return r, nil
	}
	return &wallet.Receipt{TxHash: hash, Status: 1, BlockNumber: 1, GasUsed: 21_000}, nil
}

func (b *Bridge) AccountEvents() <-chan []common.Address { return b.accountCh }
func (b *Bridge) ChainEvents() <-chan *big.Int           { return b.chainCh }

func (b *Bridge) EmitAccounts(accounts []common.Address) {
	b.accountCh <- accounts
}

func (b *Bridge) EmitChain(chainID int64) {
	b.chainCh <- big.NewInt(chainID)
}

func (b *Bridge) Close() {
	b.closeOnce.Do(func() {
		close(b.accountCh)
		close(b.chainCh)
	})
}

func deterministicHash(to common.Address, n int) common.Hash {
	sum := sha256.Sum256(append(to.Bytes(), byte(n)))
	return common.BytesToHash(sum[:])
}
