package wallet

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	clierr "github.com/GuillermoSiaira/simpleswap-cli/internal/errors"
	"github.com/GuillermoSiaira/simpleswap-cli/internal/model"
	"github.com/GuillermoSiaira/simpleswap-cli/internal/registry"
)

type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
)

// Session tracks the connection to a wallet bridge and pins it to one
// required chain. Wrong-network is a substate of connected: reads stay
// available, mutating workflows are refused until the chain matches.
type Session struct {
	mu       sync.Mutex
	bridge   Bridge
	required registry.ChainDescriptor
	log      *zap.Logger

	status       Status
	account      common.Address
	chainID      *big.Int
	wrongNetwork bool

	watchOnce sync.Once
	onReset   []func()
}

func NewSession(bridge Bridge, required registry.ChainDescriptor, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{
		bridge:   bridge,
		required: required,
		log:      log,
		status:   StatusDisconnected,
	}
}

// OnReset registers a callback invoked whenever the active account or
// chain changes. Derived state such as cached balances must not survive
// those transitions.
func (s *Session) OnReset(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onReset = append(s.onReset, fn)
}

// Connect runs the full connection flow: account access, chain check,
// and a switch (or add-then-switch) when the bridge sits on the wrong
// chain. A declined or failed switch leaves the session connected with
// the wrong-network flag raised.
func (s *Session) Connect(ctx context.Context) (model.SessionInfo, error) {
	if s.bridge == nil {
		return s.Snapshot(), clierr.New(clierr.CodeNoWallet, "no wallet bridge available")
	}

	s.setStatus(StatusConnecting)

	accounts, err := s.bridge.RequestAccounts(ctx)
	if err != nil {
		s.setStatus(StatusDisconnected)
		if errors.Is(err, ErrUserRejected) {
			return s.Snapshot(), clierr.Wrap(clierr.CodeUserRejected, "wallet connection rejected", err)
		}
		return s.Snapshot(), clierr.Wrap(clierr.CodeNoWallet, "request accounts", err)
	}
	if len(accounts) == 0 {
		s.setStatus(StatusDisconnected)
		return s.Snapshot(), clierr.New(clierr.CodeNoAccounts, "wallet has no accounts")
	}

	chainID, err := s.bridge.ChainID(ctx)
	if err != nil {
		s.setStatus(StatusDisconnected)
		return s.Snapshot(), clierr.Wrap(clierr.CodeNoWallet, "read wallet chain", err)
	}

	s.mu.Lock()
	s.account = accounts[0]
	s.chainID = chainID
	s.status = StatusConnected
	s.wrongNetwork = chainID.Int64() != s.required.ChainID
	s.mu.Unlock()

	if chainID.Int64() != s.required.ChainID {
		if err := s.ensureChain(ctx); err != nil {
			s.log.Warn("chain switch failed, staying on wrong network",
				zap.Int64("wallet_chain", chainID.Int64()),
				zap.Int64("required_chain", s.required.ChainID),
				zap.Error(err),
			)
			s.startWatch()
			return s.Snapshot(), err
		}
		s.mu.Lock()
		s.chainID = big.NewInt(s.required.ChainID)
		s.wrongNetwork = false
		s.mu.Unlock()
	}

	s.log.Info("wallet connected",
		zap.String("account", accounts[0].Hex()),
		zap.Int64("chain_id", s.required.ChainID),
	)
	s.startWatch()
	return s.Snapshot(), nil
}

// ensureChain switches to the required chain, registering it with the
// bridge first when it is unknown there.
func (s *Session) ensureChain(ctx context.Context) error {
	err := s.bridge.SwitchChain(ctx, s.required.ChainID)
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrChainUnavailable) {
		if addErr := s.bridge.AddChain(ctx, s.required); addErr != nil {
			if errors.Is(addErr, ErrUserRejected) {
				return clierr.Wrap(clierr.CodeChainSwitchFailed, "chain add rejected", addErr)
			}
			return clierr.Wrap(clierr.CodeChainSwitchFailed, "add required chain", addErr)
		}
		return nil
	}
	if errors.Is(err, ErrUserRejected) {
		return clierr.Wrap(clierr.CodeChainSwitchFailed, "chain switch rejected", err)
	}
	return clierr.Wrap(clierr.CodeChainSwitchFailed, "switch chain", err)
}

func (s *Session) Disconnect() {
	s.mu.Lock()
	s.status = StatusDisconnected
	s.account = common.Address{}
	s.chainID = nil
	s.wrongNetwork = false
	callbacks := append([]func(){}, s.onReset...)
	s.mu.Unlock()
	for _, fn := range callbacks {
		fn()
	}
	s.log.Info("wallet disconnected")
}

func (s *Session) Snapshot() model.SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	info := model.SessionInfo{
		State:        string(s.status),
		WrongNetwork: s.wrongNetwork,
	}
	if s.status == StatusConnected {
		info.Account = s.account.Hex()
		if s.chainID != nil {
			info.ChainID = s.chainID.Int64()
		}
		if !s.wrongNetwork {
			info.Network = s.required.Name
		}
	}
	return info
}

// Account returns the active account for read operations. Wrong-network
// sessions are allowed here.
func (s *Session) Account() (common.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusConnected {
		return common.Address{}, clierr.New(clierr.CodeNoAccounts, "wallet is not connected")
	}
	return s.account, nil
}

// RequireActive is the guard for mutating workflows: the session must be
// connected and on the required chain.
func (s *Session) RequireActive() (common.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusConnected {
		return common.Address{}, clierr.New(clierr.CodeNoAccounts, "wallet is not connected")
	}
	if s.wrongNetwork {
		return common.Address{}, clierr.New(clierr.CodeWrongNetwork, "wallet is on the wrong network")
	}
	return s.account, nil
}

func (s *Session) setStatus(status Status) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
}

func (s *Session) startWatch() {
	s.watchOnce.Do(func() {
		go s.watch()
	})
}

// watch consumes external account and chain changes pushed by the bridge.
func (s *Session) watch() {
	accountCh := s.bridge.AccountEvents()
	chainCh := s.bridge.ChainEvents()
	for accountCh != nil || chainCh != nil {
		select {
		case accounts, ok := <-accountCh:
			if !ok {
				accountCh = nil
				continue
			}
			s.handleAccountsChanged(accounts)
		case chainID, ok := <-chainCh:
			if !ok {
				chainCh = nil
				continue
			}
			s.handleChainChanged(chainID)
		}
	}
}

func (s *Session) handleAccountsChanged(accounts []common.Address) {
	if len(accounts) == 0 {
		s.log.Info("wallet revoked account access")
		s.Disconnect()
		return
	}
	s.mu.Lock()
	changed := accounts[0] != s.account
	s.account = accounts[0]
	callbacks := append([]func(){}, s.onReset...)
	s.mu.Unlock()
	if changed {
		s.log.Info("active account changed", zap.String("account", accounts[0].Hex()))
		for _, fn := range callbacks {
			fn()
		}
	}
}

func (s *Session) handleChainChanged(chainID *big.Int) {
	if chainID == nil {
		return
	}
	s.mu.Lock()
	s.chainID = new(big.Int).Set(chainID)
	s.wrongNetwork = chainID.Int64() != s.required.ChainID
	wrong := s.wrongNetwork
	callbacks := append([]func(){}, s.onReset...)
	s.mu.Unlock()
	s.log.Info("wallet chain changed",
		zap.Int64("chain_id", chainID.Int64()),
		zap.Bool("wrong_network", wrong),
	)
	for _, fn := range callbacks {
		fn()
	}
}
