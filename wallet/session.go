package wallet

import (
	"context"
	"sync"
	"time"

	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
)

const DefaultPollInterval = 5 * time.Second

// AccountEvent is sent when the connected account changes. A zero Address
// with Connected false means the wallet disconnected.
type AccountEvent struct {
	Address   common.Address
	Connected bool
}

type ChainEvent struct {
	ChainID uint64
}

// Session tracks the connected account and chain of one wallet and
// publishes changes to subscribers.
type Session struct {
	mtx sync.RWMutex

	provider Provider
	target   ChainParams
	logger   cmtlog.Logger

	address   common.Address
	connected bool
	chainID   uint64

	accountFeed event.Feed
	chainFeed   event.Feed
}

func NewSession(provider Provider, target ChainParams, logger cmtlog.Logger) *Session {
	return &Session{
		provider: provider,
		target:   target,
		logger:   logger.With("module", "wallet"),
	}
}

// SubscribeAccounts delivers AccountEvents to ch until the subscription is
// released with Unsubscribe.
func (s *Session) SubscribeAccounts(ch chan<- AccountEvent) event.Subscription {
	return s.accountFeed.Subscribe(ch)
}

func (s *Session) SubscribeChain(ch chan<- ChainEvent) event.Subscription {
	return s.chainFeed.Subscribe(ch)
}

func (s *Session) Address() (common.Address, bool) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.address, s.connected
}

func (s *Session) ChainID() uint64 {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.chainID
}

func (s *Session) OnTargetChain() bool {
	return s.ChainID() == s.target.ChainID
}

// Connect switches the wallet to the target chain, adding it when the
// wallet does not know it, then requests account access.
func (s *Session) Connect(ctx context.Context) (common.Address, error) {
	if err := s.provider.SwitchOrAddChain(ctx, s.target); err != nil {
		s.logger.Error("switch chain fail", "chain", s.target.ChainID, "err", err)
		return common.Address{}, err
	}
	chainID, err := s.provider.ChainID(ctx)
	if err != nil {
		s.logger.Error("get chain id fail", "err", err)
		return common.Address{}, err
	}
	accounts, err := s.provider.RequestAccounts(ctx)
	if err != nil {
		s.logger.Error("request accounts fail", "err", err)
		return common.Address{}, err
	}
	if len(accounts) == 0 {
		return common.Address{}, ErrNoAccounts
	}
	s.setChain(chainID)
	s.setAccounts(accounts)
	s.logger.Info("wallet connected", "address", accounts[0].Hex(), "chain", chainID)
	return accounts[0], nil
}

// Disconnect forgets the account locally. The wallet keeps its
// authorization.
func (s *Session) Disconnect() {
	s.setAccounts(nil)
}

// Refresh polls the provider for account and chain changes.
func (s *Session) Refresh(ctx context.Context) error {
	accounts, err := s.provider.Accounts(ctx)
	if err != nil {
		return err
	}
	chainID, err := s.provider.ChainID(ctx)
	if err != nil {
		return err
	}
	s.setChain(chainID)
	s.setAccounts(accounts)
	return nil
}

// Run refreshes the session every interval until ctx is done.
func (s *Session) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Refresh(ctx); err != nil {
				s.logger.Error("refresh wallet fail", "err", err)
			}
		}
	}
}

func (s *Session) setAccounts(accounts []common.Address) {
	s.mtx.Lock()
	ev := AccountEvent{}
	if len(accounts) > 0 {
		ev = AccountEvent{Address: accounts[0], Connected: true}
	}
	if ev.Address == s.address && ev.Connected == s.connected {
		s.mtx.Unlock()
		return
	}
	s.address, s.connected = ev.Address, ev.Connected
	s.mtx.Unlock()
	if !ev.Connected {
		s.logger.Info("wallet disconnected")
	}
	s.accountFeed.Send(ev)
}

func (s *Session) setChain(chainID uint64) {
	s.mtx.Lock()
	if chainID == s.chainID {
		s.mtx.Unlock()
		return
	}
	s.chainID = chainID
	s.mtx.Unlock()
	if chainID != s.target.ChainID {
		s.logger.Info("wallet on unexpected chain", "chain", chainID, "want", s.target.ChainID)
	}
	s.chainFeed.Send(ChainEvent{ChainID: chainID})
}
