package chain

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
)

var ErrNoTokenReader = errors.New("no token reader configured")

// Gate decides whether an address holds enough of the configured token.
// Unless enforced, every address is allowed; balances can still be read.
type Gate struct {
	reader   TokenReader
	token    common.Address
	Required uint64
	Enforce  bool
}

func NewGate(reader TokenReader, token common.Address, required uint64, enforce bool) *Gate {
	return &Gate{
		reader:   reader,
		token:    token,
		Required: required,
		Enforce:  enforce,
	}
}

func (g *Gate) CanRead() bool {
	return g != nil && g.reader != nil
}

func (g *Gate) Enforced() bool {
	return g.CanRead() && g.Enforce
}

func (g *Gate) Token() common.Address {
	return g.token
}

// Balance reads the holding of owner, a hex address.
func (g *Gate) Balance(ctx context.Context, owner string) (*TokenBalance, error) {
	if !g.CanRead() {
		return nil, ErrNoTokenReader
	}
	addr, err := ParseAddress(owner)
	if err != nil {
		return nil, err
	}
	return g.reader.BalanceOf(ctx, g.token, addr)
}

// Allow reports whether owner may submit and vote. The balance is returned
// alongside when it was read.
func (g *Gate) Allow(ctx context.Context, owner string) (bool, *TokenBalance, error) {
	if !g.Enforced() {
		return true, nil, nil
	}
	bal, err := g.Balance(ctx, owner)
	if err != nil {
		return false, nil, err
	}
	return bal.MeetsThreshold(g.Required), bal, nil
}
