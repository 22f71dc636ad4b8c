// Package wallet models the provider surface a browser wallet exposes:
// account discovery, chain switching, contract calls and transaction
// submission. The CLI backs it with an RPC node and a local signing key.
package wallet

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/GuillermoSiaira/simpleswap-cli/internal/registry"
)

var (
	// ErrChainUnavailable means the target chain is not registered with
	// the bridge yet; callers recover by adding it and retrying.
	ErrChainUnavailable = errors.New("chain not available in wallet")

	// ErrUserRejected means the key holder declined the request.
	ErrUserRejected = errors.New("request rejected by user")
)

// TxRequest is a transaction before gas, nonce and signature are applied.
type TxRequest struct {
	To    common.Address
	Value *big.Int
	Data  []byte
}

// Receipt is the confirmation outcome of a submitted transaction.
type Receipt struct {
	TxHash      common.Hash
	Status      uint64
	BlockNumber uint64
	GasUsed     uint64
}

func (r *Receipt) Reverted() bool {
	return r != nil && r.Status == 0
}

type Bridge interface {
	// RequestAccounts asks for account access; it may prompt.
	RequestAccounts(ctx context.Context) ([]common.Address, error)
	// Accounts returns already-authorized accounts without prompting.
	Accounts(ctx context.Context) ([]common.Address, error)

	ChainID(ctx context.Context) (*big.Int, error)
	// SwitchChain moves the bridge to the given chain. It returns
	// ErrChainUnavailable when the chain is unknown to the bridge.
	SwitchChain(ctx context.Context, chainID int64) error
	// AddChain registers a chain descriptor and switches to it.
	AddChain(ctx context.Context, desc registry.ChainDescriptor) error

	Call(ctx context.Context, msg ethereum.CallMsg) ([]byte, error)
	CodeAt(ctx context.Context, addr common.Address) ([]byte, error)

	SendTransaction(ctx context.Context, req TxRequest) (common.Hash, error)
	WaitForConfirmation(ctx context.Context, hash common.Hash) (*Receipt, error)

	// AccountEvents and ChainEvents deliver external session changes.
	// Both channels close when the bridge shuts down.
	AccountEvents() <-chan []common.Address
	ChainEvents() <-chan *big.Int

	Close()
}
