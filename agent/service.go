package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/calehh/proposal-box/chain"
	"github.com/calehh/proposal-box/store"
	"github.com/calehh/proposal-box/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/gin-gonic/gin"
)

const maxImportSize = 16 << 20

type Service struct {
	engine     *gin.Engine
	server     *http.Server
	store      *store.ProposalStore
	gate       *chain.Gate
	logger     cmtlog.Logger
	listenAddr string
}

func NewService(listenAddr string, ps *store.ProposalStore, gate *chain.Gate, logger cmtlog.Logger) *Service {
	r := gin.Default()
	s := &Service{
		engine:     r,
		store:      ps,
		gate:       gate,
		logger:     logger.With("module", "service"),
		listenAddr: listenAddr,
	}
	s.server = &http.Server{
		Addr:    listenAddr,
		Handler: r,
	}
	s.engine.POST("/getProposals", s.handleGetProposals)
	s.engine.POST("/getProposal", s.handleGetProposal)
	s.engine.POST("/submitProposal", s.handleSubmitProposal)
	s.engine.POST("/vote", s.handleVote)
	s.engine.POST("/getUserVote", s.handleGetUserVote)
	s.engine.POST("/updateProposal", s.handleUpdateProposal)
	s.engine.POST("/deleteProposal", s.handleDeleteProposal)
	s.engine.POST("/getTokenBalance", s.handleGetTokenBalance)
	s.engine.POST("/import", s.handleImport)
	s.engine.GET("/export", s.handleExport)
	return s
}

func (s *Service) Handler() http.Handler {
	return s.engine
}

// Start serves until Shutdown is called.
func (s *Service) Start() error {
	s.logger.Info("service listening", "addr", s.listenAddr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Service) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func paginate(proposals []types.Proposal, page, pageSize int) []types.Proposal {
	if pageSize <= 0 {
		return proposals
	}
	if page < 0 {
		page = 0
	}
	start := page * pageSize
	if start >= len(proposals) {
		return []types.Proposal{}
	}
	end := start + pageSize
	if end > len(proposals) {
		end = len(proposals)
	}
	return proposals[start:end]
}

func (s *Service) handleGetProposals(c *gin.Context) {
	var requestData GetProposalsReq
	if err := c.ShouldBindJSON(&requestData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	proposals := s.store.ListByCategory(requestData.Category)
	c.JSON(http.StatusOK, GetProposalsResponse{
		Proposals: paginate(proposals, requestData.Page, requestData.PageSize),
		Total:     uint64(len(proposals)),
	})
}

func (s *Service) handleGetProposal(c *gin.Context) {
	var requestData ProposalIdReq
	if err := c.ShouldBindJSON(&requestData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, ok := s.store.Get(requestData.Id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "proposal not found"})
		return
	}
	c.JSON(http.StatusOK, ProposalResponse{Proposal: p})
}

// checkGate writes the refusal and returns false when address may not act.
func (s *Service) checkGate(c *gin.Context, address string) bool {
	if !s.gate.Enforced() {
		return true
	}
	ok, bal, err := s.gate.Allow(c.Request.Context(), address)
	if errors.Is(err, chain.ErrInvalidAddress) {
		c.JSON(http.StatusForbidden, gin.H{"error": "a connected wallet is required"})
		return false
	}
	if err != nil {
		s.logger.Error("check token balance fail", "address", address, "err", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return false
	}
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{
			"error": fmt.Sprintf("you need at least %d %s tokens", s.gate.Required, bal.Symbol),
		})
		return false
	}
	return true
}

// voterKey canonicalizes the voter id. With the gate enforced only hex
// addresses are accepted.
func (s *Service) voterKey(c *gin.Context, address string) (string, bool) {
	voter := types.VoterKey(address)
	if voter == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "walletAddress is required"})
		return "", false
	}
	if s.gate.Enforced() {
		if _, err := chain.ParseAddress(voter); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return "", false
		}
	}
	return voter, true
}

func (s *Service) handleSubmitProposal(c *gin.Context) {
	var in types.ProposalInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !s.checkGate(c, in.SubmitterAddress) {
		return
	}
	p, err := s.store.Create(in)
	if err != nil {
		var inputErr *types.InputError
		if errors.As(err, &inputErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": inputErr.Error(), "field": inputErr.Field})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, ProposalResponse{Proposal: p})
}

func (s *Service) handleVote(c *gin.Context) {
	var requestData VoteReq
	if err := c.ShouldBindJSON(&requestData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	value, err := types.ParseVoteValue(requestData.Vote)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	voter, ok := s.voterKey(c, requestData.WalletAddress)
	if !ok {
		return
	}
	if _, ok := s.store.Get(requestData.Id); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "proposal not found"})
		return
	}
	if !s.checkGate(c, voter) {
		return
	}
	if !s.store.Vote(requestData.Id, voter, value) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "vote not recorded"})
		return
	}
	p, _ := s.store.Get(requestData.Id)
	c.JSON(http.StatusOK, ProposalResponse{Proposal: p})
}

func (s *Service) handleGetUserVote(c *gin.Context) {
	var requestData GetUserVoteReq
	if err := c.ShouldBindJSON(&requestData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	voter, ok := s.voterKey(c, requestData.WalletAddress)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, GetUserVoteResponse{
		Vote: s.store.GetUserVote(requestData.Id, voter),
	})
}

func (s *Service) handleUpdateProposal(c *gin.Context) {
	var requestData UpdateProposalReq
	if err := c.ShouldBindJSON(&requestData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	patch := requestData.ProposalPatch
	if patch.Empty() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to update"})
		return
	}
	if err := patch.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if _, ok := s.store.Get(requestData.Id); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "proposal not found"})
		return
	}
	if !s.store.Update(requestData.Id, patch) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	p, _ := s.store.Get(requestData.Id)
	c.JSON(http.StatusOK, ProposalResponse{Proposal: p})
}

func (s *Service) handleDeleteProposal(c *gin.Context) {
	var requestData ProposalIdReq
	if err := c.ShouldBindJSON(&requestData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !s.store.Delete(requestData.Id) {
		c.JSON(http.StatusNotFound, DeleteProposalResponse{Deleted: false})
		return
	}
	c.JSON(http.StatusOK, DeleteProposalResponse{Deleted: true})
}

func (s *Service) handleGetTokenBalance(c *gin.Context) {
	var requestData GetTokenBalanceReq
	if err := c.ShouldBindJSON(&requestData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	bal, err := s.gate.Balance(c.Request.Context(), requestData.Address)
	switch {
	case errors.Is(err, chain.ErrNoTokenReader):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	case errors.Is(err, chain.ErrInvalidAddress):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		s.logger.Error("get token balance fail", "address", requestData.Address, "err", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, TokenBalanceResponse{
		Address:   requestData.Address,
		Token:     s.gate.Token().Hex(),
		Balance:   bal.Balance.String(),
		Formatted: bal.Formatted(),
		Symbol:    bal.Symbol,
		Decimals:  bal.Decimals,
		Required:  s.gate.Required,
		HasEnough: bal.MeetsThreshold(s.gate.Required),
	})
}

func (s *Service) handleImport(c *gin.Context) {
	merge := false
	if q := c.Query("merge"); q != "" {
		var err error
		if merge, err = strconv.ParseBool(q); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "merge must be a boolean"})
			return
		}
	}
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxImportSize))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if _, err = store.ParseImport(data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !s.store.Import(data, merge) {
		c.JSON(http.StatusInternalServerError, ImportResponse{Imported: false})
		return
	}
	c.JSON(http.StatusOK, ImportResponse{Imported: true, Total: len(s.store.List())})
}

func (s *Service) handleExport(c *gin.Context) {
	dat, err := s.store.Export()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", store.ExportFileName(time.Now())))
	c.Data(http.StatusOK, "application/json", dat)
}
