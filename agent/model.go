package agent

import (
	"github.com/calehh/proposal-box/types"
)

// request and response bodies

type GetProposalsReq struct {
	Category string `json:"category"`
	Page     int    `json:"page"`
	PageSize int    `json:"pageSize"`
}

type GetProposalsResponse struct {
	Proposals []types.Proposal `json:"proposals"`
	Total     uint64           `json:"total"`
}

type ProposalIdReq struct {
	Id string `json:"id" binding:"required"`
}

type ProposalResponse struct {
	Proposal *types.Proposal `json:"proposal"`
}

type VoteReq struct {
	Id            string `json:"id" binding:"required"`
	WalletAddress string `json:"walletAddress" binding:"required"`
	Vote          string `json:"vote"`
}

type GetUserVoteReq struct {
	Id            string `json:"id" binding:"required"`
	WalletAddress string `json:"walletAddress" binding:"required"`
}

type GetUserVoteResponse struct {
	Vote types.VoteValue `json:"vote"`
}

type UpdateProposalReq struct {
	Id string `json:"id" binding:"required"`
	types.ProposalPatch
}

type DeleteProposalResponse struct {
	Deleted bool `json:"deleted"`
}

type GetTokenBalanceReq struct {
	Address string `json:"address" binding:"required"`
}

type TokenBalanceResponse struct {
	Address   string `json:"address"`
	Token     string `json:"token"`
	Balance   string `json:"balance"`
	Formatted string `json:"formattedBalance"`
	Symbol    string `json:"symbol"`
	Decimals  uint8  `json:"decimals"`
	Required  uint64 `json:"required"`
	HasEnough bool   `json:"hasEnoughTokens"`
}

type ImportResponse struct {
	Imported bool `json:"imported"`
	Total    int  `json:"total"`
}
