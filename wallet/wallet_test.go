package wallet

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = common.HexToAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	bob   = common.HexToAddress("0x00000000000000000000000000000000000000b0")
)

type codedError struct {
	code int
	msg  string
}

func (e codedError) Error() string  { return e.msg }
func (e codedError) ErrorCode() int { return e.code }

type ethAPI struct {
	mtx      sync.Mutex
	accounts []common.Address
	chainID  uint64
}

func (a *ethAPI) Accounts() []common.Address {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	return a.accounts
}

func (a *ethAPI) ChainId() hexutil.Uint64 {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	return hexutil.Uint64(a.chainID)
}

type walletAPI struct {
	eth   *ethAPI
	known map[string]uint64
	added []addChainParams
}

func (w *walletAPI) SwitchEthereumChain(arg map[string]string) error {
	id, ok := w.known[arg["chainId"]]
	if !ok {
		return codedError{code: codeUnrecognized, msg: "unrecognized chain"}
	}
	w.eth.mtx.Lock()
	w.eth.chainID = id
	w.eth.mtx.Unlock()
	return nil
}

func (w *walletAPI) AddEthereumChain(arg addChainParams) error {
	id, err := hexutil.DecodeUint64(arg.ChainID)
	if err != nil {
		return err
	}
	w.added = append(w.added, arg)
	w.known[arg.ChainID] = id
	w.eth.mtx.Lock()
	w.eth.chainID = id
	w.eth.mtx.Unlock()
	return nil
}

func newTestProvider(t *testing.T, eth *ethAPI, wallet *walletAPI) *RPCProvider {
	srv := rpc.NewServer()
	require.NoError(t, srv.RegisterName("eth", eth))
	if wallet != nil {
		require.NoError(t, srv.RegisterName("wallet", wallet))
	}
	p := NewRPCProvider(rpc.DialInProc(srv))
	t.Cleanup(func() {
		p.Close()
		srv.Stop()
	})
	return p
}

func TestRPCProviderAddsUnknownChain(t *testing.T) {
	eth := &ethAPI{accounts: []common.Address{alice}, chainID: 1}
	w := &walletAPI{eth: eth, known: map[string]uint64{"0x1": 1}}
	p := newTestProvider(t, eth, w)
	ctx := context.Background()

	require.NoError(t, p.SwitchOrAddChain(ctx, BaseChain))
	require.Len(t, w.added, 1)
	assert.Equal(t, "0x2105", w.added[0].ChainID)
	assert.Equal(t, "Base", w.added[0].ChainName)
	assert.Equal(t, []string{"https://mainnet.base.org"}, w.added[0].RPCUrls)
	assert.Equal(t, []string{"https://basescan.org"}, w.added[0].BlockExplorerUrls)
	assert.Equal(t, uint8(18), w.added[0].NativeCurrency.Decimals)

	id, err := p.ChainID(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(8453), id)

	// known now, switch only
	require.NoError(t, p.SwitchOrAddChain(ctx, BaseChain))
	assert.Len(t, w.added, 1)

	accounts, err := p.RequestAccounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []common.Address{alice}, accounts)
}

func TestRPCProviderPlainNode(t *testing.T) {
	eth := &ethAPI{chainID: 8453}
	p := newTestProvider(t, eth, nil)
	ctx := context.Background()

	require.NoError(t, p.SwitchOrAddChain(ctx, BaseChain))

	eth.mtx.Lock()
	eth.chainID = 1
	eth.mtx.Unlock()
	err := p.SwitchOrAddChain(ctx, BaseChain)
	require.ErrorIs(t, err, ErrUnrecognizedChain)

	accounts, err := p.RequestAccounts(ctx)
	require.NoError(t, err)
	assert.Empty(t, accounts)
}

type fakeProvider struct {
	mtx       sync.Mutex
	accounts  []common.Address
	chainID   uint64
	switchErr error
	requested int
}

func (f *fakeProvider) Accounts(ctx context.Context) ([]common.Address, error) {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	if f.requested == 0 {
		return nil, nil
	}
	return f.accounts, nil
}

func (f *fakeProvider) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	f.requested++
	return f.accounts, nil
}

func (f *fakeProvider) ChainID(ctx context.Context) (uint64, error) {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	return f.chainID, nil
}

func (f *fakeProvider) SwitchOrAddChain(ctx context.Context, params ChainParams) error {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	if f.switchErr != nil {
		return f.switchErr
	}
	f.chainID = params.ChainID
	return nil
}

func (f *fakeProvider) set(accounts []common.Address, chainID uint64) {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	f.accounts = accounts
	f.chainID = chainID
}

func TestSessionConnectAndEvents(t *testing.T) {
	fp := &fakeProvider{accounts: []common.Address{alice}, chainID: 1}
	s := NewSession(fp, BaseChain, cmtlog.NewNopLogger())
	ctx := context.Background()

	accCh := make(chan AccountEvent, 8)
	chainCh := make(chan ChainEvent, 8)
	accSub := s.SubscribeAccounts(accCh)
	chainSub := s.SubscribeChain(chainCh)
	defer chainSub.Unsubscribe()

	addr, err := s.Connect(ctx)
	require.NoError(t, err)
	assert.Equal(t, alice, addr)
	assert.True(t, s.OnTargetChain())
	assert.Equal(t, AccountEvent{Address: alice, Connected: true}, <-accCh)
	assert.Equal(t, ChainEvent{ChainID: 8453}, <-chainCh)

	// nothing changed
	require.NoError(t, s.Refresh(ctx))
	assert.Empty(t, accCh)
	assert.Empty(t, chainCh)

	fp.set([]common.Address{bob, alice}, 1)
	require.NoError(t, s.Refresh(ctx))
	assert.Equal(t, AccountEvent{Address: bob, Connected: true}, <-accCh)
	assert.Equal(t, ChainEvent{ChainID: 1}, <-chainCh)
	assert.False(t, s.OnTargetChain())

	fp.set(nil, 1)
	require.NoError(t, s.Refresh(ctx))
	assert.Equal(t, AccountEvent{}, <-accCh)
	_, connected := s.Address()
	assert.False(t, connected)

	// released subscribers no longer receive
	accSub.Unsubscribe()
	fp.set([]common.Address{alice}, 1)
	require.NoError(t, s.Refresh(ctx))
	assert.Empty(t, accCh)
	got, connected := s.Address()
	assert.True(t, connected)
	assert.Equal(t, alice, got)
}

func TestSessionConnectFailures(t *testing.T) {
	boom := errors.New("user rejected")
	s := NewSession(&fakeProvider{switchErr: boom}, BaseChain, cmtlog.NewNopLogger())
	_, err := s.Connect(context.Background())
	require.ErrorIs(t, err, boom)

	s = NewSession(&fakeProvider{}, BaseChain, cmtlog.NewNopLogger())
	_, err = s.Connect(context.Background())
	require.ErrorIs(t, err, ErrNoAccounts)
	_, connected := s.Address()
	assert.False(t, connected)
}

func TestSessionDisconnect(t *testing.T) {
	fp := &fakeProvider{accounts: []common.Address{alice}}
	s := NewSession(fp, BaseChain, cmtlog.NewNopLogger())
	_, err := s.Connect(context.Background())
	require.NoError(t, err)

	ch := make(chan AccountEvent, 1)
	sub := s.SubscribeAccounts(ch)
	defer sub.Unsubscribe()
	s.Disconnect()
	assert.Equal(t, AccountEvent{}, <-ch)
}

func TestSessionRun(t *testing.T) {
	fp := &fakeProvider{accounts: []common.Address{alice}, chainID: 8453}
	s := NewSession(fp, BaseChain, cmtlog.NewNopLogger())
	_, err := s.Connect(context.Background())
	require.NoError(t, err)

	ch := make(chan AccountEvent, 1)
	sub := s.SubscribeAccounts(ch)
	defer sub.Unsubscribe()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx, 10*time.Millisecond)
		close(done)
	}()

	fp.set([]common.Address{bob}, 8453)
	select {
	case ev := <-ch:
		assert.Equal(t, bob, ev.Address)
	case <-time.After(2 * time.Second):
		t.Fatal("no account event")
	}
	cancel()
	<-done
}
