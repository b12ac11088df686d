package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

const erc20ABIJSON = `[
{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"stateMutability":"view","type":"function"}
]`

var erc20ABI abi.ABI

func init() {
	var err error
	erc20ABI, err = abi.JSON(strings.NewReader(erc20ABIJSON))
	if err != nil {
		panic(err)
	}
}

var (
	ErrInvalidAddress = errors.New("invalid address")
	ErrWrongChain     = errors.New("connected to an unexpected chain")
	ErrEmptyResult    = errors.New("empty contract call result")
)

// TokenBalance is an ERC-20 holding in base units.
type TokenBalance struct {
	Balance  *big.Int `json:"balance"`
	Decimals uint8    `json:"decimals"`
	Symbol   string   `json:"symbol"`
}

// Formatted renders the balance in whole tokens.
func (b *TokenBalance) Formatted() string {
	return FormatUnits(b.Balance, b.Decimals)
}

// MeetsThreshold reports whether the balance is at least required whole tokens.
func (b *TokenBalance) MeetsThreshold(required uint64) bool {
	if b == nil || b.Balance == nil {
		return false
	}
	return b.Balance.Cmp(ToBaseUnits(required, b.Decimals)) >= 0
}

type TokenReader interface {
	BalanceOf(ctx context.Context, token, owner common.Address) (*TokenBalance, error)
}

var _ TokenReader = &ERC20Reader{}

// ERC20Reader reads balances through eth_call.
type ERC20Reader struct {
	caller ethereum.ContractCaller
	logger cmtlog.Logger
}

func NewERC20Reader(caller ethereum.ContractCaller, logger cmtlog.Logger) *ERC20Reader {
	return &ERC20Reader{
		caller: caller,
		logger: logger.With("module", "chain"),
	}
}

func (r *ERC20Reader) call(ctx context.Context, token common.Address, method string, args ...interface{}) ([]interface{}, error) {
	data, err := erc20ABI.Pack(method, args...)
	if err != nil {
		return nil, err
	}
	out, err := r.caller.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		r.logger.Error("call contract fail", "method", method, "token", token.Hex(), "err", err)
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: %w", method, ErrEmptyResult)
	}
	res, err := erc20ABI.Unpack(method, out)
	if err != nil {
		r.logger.Error("unpack result fail", "method", method, "err", err)
		return nil, err
	}
	return res, nil
}

func (r *ERC20Reader) BalanceOf(ctx context.Context, token, owner common.Address) (*TokenBalance, error) {
	res, err := r.call(ctx, token, "decimals")
	if err != nil {
		return nil, err
	}
	decimals := *abi.ConvertType(res[0], new(uint8)).(*uint8)

	res, err = r.call(ctx, token, "symbol")
	if err != nil {
		return nil, err
	}
	symbol := *abi.ConvertType(res[0], new(string)).(*string)

	res, err = r.call(ctx, token, "balanceOf", owner)
	if err != nil {
		return nil, err
	}
	balance := abi.ConvertType(res[0], new(big.Int)).(*big.Int)

	return &TokenBalance{
		Balance:  balance,
		Decimals: decimals,
		Symbol:   symbol,
	}, nil
}

// ParseAddress accepts a 0x-prefixed hex address.
func ParseAddress(s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	return common.HexToAddress(s), nil
}

type ChainIDReader interface {
	ChainID(ctx context.Context) (*big.Int, error)
}

// CheckChain fails with ErrWrongChain unless the node serves chain want.
func CheckChain(ctx context.Context, r ChainIDReader, want uint64) error {
	id, err := r.ChainID(ctx)
	if err != nil {
		return err
	}
	if !id.IsUint64() || id.Uint64() != want {
		return fmt.Errorf("%w: got %s, want %d", ErrWrongChain, id, want)
	}
	return nil
}

// Dial connects to rpcURL and, when chainID is non-zero, verifies the chain.
func Dial(ctx context.Context, rpcURL string, chainID uint64) (*ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}
	if chainID == 0 {
		return client, nil
	}
	if err = CheckChain(ctx, client, chainID); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}
