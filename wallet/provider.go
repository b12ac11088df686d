package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

var (
	ErrNoAccounts        = errors.New("wallet returned no accounts")
	ErrUnrecognizedChain = errors.New("wallet does not recognize the chain")
	ErrUserRejected      = errors.New("user rejected the request")
)

// error codes returned by injected wallets
const (
	codeUserRejected     = 4001
	codeUnrecognized     = 4902
	codeMethodNotFound   = -32601
	nativeCurrencyDigits = 18
)

type Currency struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}

// ChainParams describes the network a session should be on.
type ChainParams struct {
	ChainID     uint64
	Name        string
	RPCURL      string
	ExplorerURL string
	Currency    Currency
}

// Base mainnet.
var BaseChain = ChainParams{
	ChainID:     8453,
	Name:        "Base",
	RPCURL:      "https://mainnet.base.org",
	ExplorerURL: "https://basescan.org",
	Currency:    Currency{Name: "ETH", Symbol: "ETH", Decimals: nativeCurrencyDigits},
}

func (p ChainParams) HexID() string {
	return hexutil.EncodeUint64(p.ChainID)
}

type addChainParams struct {
	ChainID           string   `json:"chainId"`
	ChainName         string   `json:"chainName"`
	NativeCurrency    Currency `json:"nativeCurrency"`
	RPCUrls           []string `json:"rpcUrls"`
	BlockExplorerUrls []string `json:"blockExplorerUrls,omitempty"`
}

func (p ChainParams) addParams() addChainParams {
	res := addChainParams{
		ChainID:        p.HexID(),
		ChainName:      p.Name,
		NativeCurrency: p.Currency,
		RPCUrls:        []string{p.RPCURL},
	}
	if p.ExplorerURL != "" {
		res.BlockExplorerUrls = []string{p.ExplorerURL}
	}
	return res
}

// Provider is the capability a wallet exposes to the session.
type Provider interface {
	// Accounts lists already authorized accounts without prompting.
	Accounts(ctx context.Context) ([]common.Address, error)
	RequestAccounts(ctx context.Context) ([]common.Address, error)
	ChainID(ctx context.Context) (uint64, error)
	SwitchOrAddChain(ctx context.Context, params ChainParams) error
}

var _ Provider = &RPCProvider{}

// RPCProvider talks to a wallet or node over JSON-RPC. Nodes that do not
// implement the wallet_ methods are accepted as long as they already serve
// the requested chain.
type RPCProvider struct {
	client *rpc.Client
}

func DialProvider(ctx context.Context, url string) (*RPCProvider, error) {
	client, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, err
	}
	return NewRPCProvider(client), nil
}

func NewRPCProvider(client *rpc.Client) *RPCProvider {
	return &RPCProvider{client: client}
}

func (p *RPCProvider) Close() {
	p.client.Close()
}

func errorCode(err error) int {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return rpcErr.ErrorCode()
	}
	return 0
}

func (p *RPCProvider) Accounts(ctx context.Context) ([]common.Address, error) {
	var accounts []common.Address
	if err := p.client.CallContext(ctx, &accounts, "eth_accounts"); err != nil {
		return nil, err
	}
	return accounts, nil
}

func (p *RPCProvider) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	var accounts []common.Address
	err := p.client.CallContext(ctx, &accounts, "eth_requestAccounts")
	switch errorCode(err) {
	case codeMethodNotFound:
		return p.Accounts(ctx)
	case codeUserRejected:
		return nil, fmt.Errorf("%w: %v", ErrUserRejected, err)
	}
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

func (p *RPCProvider) ChainID(ctx context.Context) (uint64, error) {
	var id hexutil.Big
	if err := p.client.CallContext(ctx, &id, "eth_chainId"); err != nil {
		return 0, err
	}
	b := (*big.Int)(&id)
	if !b.IsUint64() {
		return 0, fmt.Errorf("chain id out of range: %s", b)
	}
	return b.Uint64(), nil
}

func (p *RPCProvider) SwitchOrAddChain(ctx context.Context, params ChainParams) error {
	switchArg := map[string]string{"chainId": params.HexID()}
	err := p.client.CallContext(ctx, nil, "wallet_switchEthereumChain", switchArg)
	switch errorCode(err) {
	case 0:
		return err
	case codeUnrecognized:
		return p.client.CallContext(ctx, nil, "wallet_addEthereumChain", params.addParams())
	case codeMethodNotFound:
		id, err := p.ChainID(ctx)
		if err != nil {
			return err
		}
		if id != params.ChainID {
			return fmt.Errorf("%w: serving %d, want %d", ErrUnrecognizedChain, id, params.ChainID)
		}
		return nil
	default:
		return err
	}
}
