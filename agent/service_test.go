package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/calehh/proposal-box/chain"
	"github.com/calehh/proposal-box/store"
	"github.com/calehh/proposal-box/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	holder = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	pauper = "0x00000000000000000000000000000000000000b0"
)

var token = common.HexToAddress("0xa884C16a93792D1E0156fF4C8A3B2C59b8d04C9A")

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeReader map[common.Address]*big.Int

func (f fakeReader) BalanceOf(ctx context.Context, tok, owner common.Address) (*chain.TokenBalance, error) {
	bal, ok := f[owner]
	if !ok {
		bal = new(big.Int)
	}
	return &chain.TokenBalance{Balance: bal, Decimals: 18, Symbol: "AIKIRA"}, nil
}

func newTestService(t *testing.T, gate *chain.Gate) (*Service, *store.ProposalStore) {
	kv, err := store.NewMemLevelDB()
	require.NoError(t, err)
	ps := store.NewProposalStore(kv, cmtlog.NewNopLogger())
	t.Cleanup(func() { ps.Close() })
	require.True(t, ps.Initialize())
	return NewService("127.0.0.1:0", ps, gate, cmtlog.NewNopLogger()), ps
}

func gated() *chain.Gate {
	reader := fakeReader{common.HexToAddress(holder): chain.ToBaseUnits(20000, 18)}
	return chain.NewGate(reader, token, 10000, true)
}

func post(t *testing.T, s *Service, path string, body interface{}) *httptest.ResponseRecorder {
	dat, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(dat))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func submit(t *testing.T, s *Service, text, tag, addr string) *types.Proposal {
	w := post(t, s, "/submitProposal", types.ProposalInput{Text: text, Category: tag, SubmitterAddress: addr})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res ProposalResponse
	decode(t, w, &res)
	return res.Proposal
}

func TestSubmitAndList(t *testing.T) {
	s, _ := newTestService(t, nil)
	a := submit(t, s, "Fund a hackathon", "grants", "")
	assert.Equal(t, types.CategoryGrants, a.Category)
	assert.Equal(t, types.Anonymous, a.SubmitterAddress)
	submit(t, s, "Post on socials", "Marketing", holder)
	submit(t, s, "Bigger prizes", "Grants", holder)

	w := post(t, s, "/getProposals", GetProposalsReq{})
	require.Equal(t, http.StatusOK, w.Code)
	var all GetProposalsResponse
	decode(t, w, &all)
	assert.Equal(t, uint64(3), all.Total)
	require.Len(t, all.Proposals, 3)
	assert.Equal(t, "Bigger prizes", all.Proposals[0].Text)

	w = post(t, s, "/getProposals", GetProposalsReq{Category: "grants", Page: 1, PageSize: 1})
	var page GetProposalsResponse
	decode(t, w, &page)
	assert.Equal(t, uint64(2), page.Total)
	require.Len(t, page.Proposals, 1)
	assert.Equal(t, a.ID, page.Proposals[0].ID)

	w = post(t, s, "/getProposals", GetProposalsReq{PageSize: 10, Page: 5})
	var empty GetProposalsResponse
	decode(t, w, &empty)
	assert.Empty(t, empty.Proposals)

	w = post(t, s, "/getProposal", ProposalIdReq{Id: a.ID})
	require.Equal(t, http.StatusOK, w.Code)
	w = post(t, s, "/getProposal", ProposalIdReq{Id: "missing"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSubmitInvalid(t *testing.T) {
	s, ps := newTestService(t, nil)
	w := post(t, s, "/submitProposal", types.ProposalInput{Text: "  ", Category: "Grants"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var res map[string]string
	decode(t, w, &res)
	assert.Equal(t, "proposal", res["field"])

	w = post(t, s, "/submitProposal", types.ProposalInput{Text: strings.Repeat("x", 501), Category: "Grants"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = post(t, s, "/submitProposal", types.ProposalInput{Text: "ok", Category: "Memes"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, ps.List())
}

func TestVoteFlow(t *testing.T) {
	s, _ := newTestService(t, nil)
	p := submit(t, s, "Fund a hackathon", "Grants", "")

	w := post(t, s, "/vote", VoteReq{Id: p.ID, WalletAddress: holder, Vote: "up"})
	require.Equal(t, http.StatusOK, w.Code)
	var res ProposalResponse
	decode(t, w, &res)
	assert.Equal(t, uint64(1), res.Proposal.Upvotes)

	w = post(t, s, "/getUserVote", GetUserVoteReq{Id: p.ID, WalletAddress: holder})
	var uv GetUserVoteResponse
	decode(t, w, &uv)
	assert.Equal(t, types.VoteUp, uv.Vote)

	w = post(t, s, "/vote", VoteReq{Id: p.ID, WalletAddress: holder, Vote: "down"})
	res = ProposalResponse{}
	decode(t, w, &res)
	assert.Equal(t, uint64(0), res.Proposal.Upvotes)
	assert.Equal(t, uint64(1), res.Proposal.Downvotes)

	w = post(t, s, "/vote", VoteReq{Id: p.ID, WalletAddress: holder, Vote: ""})
	require.Equal(t, http.StatusOK, w.Code)
	res = ProposalResponse{}
	decode(t, w, &res)
	assert.Equal(t, uint64(0), res.Proposal.Downvotes)
	assert.Empty(t, res.Proposal.Votes)

	w = post(t, s, "/vote", VoteReq{Id: p.ID, WalletAddress: holder, Vote: "sideways"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = post(t, s, "/vote", VoteReq{Id: "missing", WalletAddress: holder, Vote: "up"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = post(t, s, "/vote", map[string]string{"id": p.ID, "vote": "up"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTokenGate(t *testing.T) {
	s, ps := newTestService(t, gated())

	w := post(t, s, "/submitProposal", types.ProposalInput{Text: "anon", Category: "Other"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = post(t, s, "/submitProposal", types.ProposalInput{Text: "poor", Category: "Other", SubmitterAddress: pauper})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "10000 AIKIRA")
	assert.Empty(t, ps.List())

	p := submit(t, s, "rich", "Other", holder)
	w = post(t, s, "/vote", VoteReq{Id: p.ID, WalletAddress: pauper, Vote: "up"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = post(t, s, "/vote", VoteReq{Id: p.ID, WalletAddress: holder, Vote: "up"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestVoteAddressSpellingsShareOneVote(t *testing.T) {
	s, ps := newTestService(t, gated())
	p := submit(t, s, "rich", "Other", holder)

	for _, addr := range []string{holder, strings.ToLower(holder), holder[2:]} {
		w := post(t, s, "/vote", VoteReq{Id: p.ID, WalletAddress: addr, Vote: "up"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
	got, ok := ps.Get(p.ID)
	require.True(t, ok)
	assert.Equal(t, uint64(1), got.Upvotes)
	assert.Equal(t, map[string]types.VoteValue{holder: types.VoteUp}, got.Votes)

	w := post(t, s, "/getUserVote", GetUserVoteReq{Id: p.ID, WalletAddress: strings.ToLower(holder)})
	require.Equal(t, http.StatusOK, w.Code)
	var res GetUserVoteResponse
	decode(t, w, &res)
	assert.Equal(t, types.VoteUp, res.Vote)

	w = post(t, s, "/vote", VoteReq{Id: p.ID, WalletAddress: "alice", Vote: "up"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = post(t, s, "/getUserVote", GetUserVoteReq{Id: p.ID, WalletAddress: "alice"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetTokenBalance(t *testing.T) {
	s, _ := newTestService(t, gated())
	w := post(t, s, "/getTokenBalance", GetTokenBalanceReq{Address: holder})
	require.Equal(t, http.StatusOK, w.Code)
	var res TokenBalanceResponse
	decode(t, w, &res)
	assert.Equal(t, "20000.0", res.Formatted)
	assert.Equal(t, "AIKIRA", res.Symbol)
	assert.True(t, res.HasEnough)
	assert.Equal(t, uint64(10000), res.Required)
	assert.Equal(t, token.Hex(), res.Token)

	w = post(t, s, "/getTokenBalance", GetTokenBalanceReq{Address: "nobody"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	open, _ := newTestService(t, nil)
	w = post(t, open, "/getTokenBalance", GetTokenBalanceReq{Address: holder})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestUpdateAndDelete(t *testing.T) {
	s, _ := newTestService(t, nil)
	p := submit(t, s, "draft", "Other", "")

	w := post(t, s, "/updateProposal", map[string]string{"id": p.ID, "status": "approved", "tag": "trading"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res ProposalResponse
	decode(t, w, &res)
	assert.Equal(t, types.StatusApproved, res.Proposal.Status)
	assert.Equal(t, types.CategoryTrading, res.Proposal.Category)
	require.NotNil(t, res.Proposal.UpdatedAt)

	w = post(t, s, "/updateProposal", map[string]string{"id": p.ID})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = post(t, s, "/updateProposal", map[string]string{"id": p.ID, "status": "archived"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = post(t, s, "/updateProposal", map[string]string{"id": "missing", "status": "approved"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = post(t, s, "/deleteProposal", ProposalIdReq{Id: p.ID})
	require.Equal(t, http.StatusOK, w.Code)
	w = post(t, s, "/deleteProposal", ProposalIdReq{Id: p.ID})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExportImport(t *testing.T) {
	src, _ := newTestService(t, nil)
	submit(t, src, "A", "Grants", "")
	submit(t, src, "B", "Rewards", "")

	req := httptest.NewRequest(http.MethodGet, "/export", nil)
	w := httptest.NewRecorder()
	src.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment; filename=\"aikira_proposals_")
	exported := w.Body.Bytes()

	dst, ps := newTestService(t, nil)
	submit(t, dst, "mine", "Other", "")

	req = httptest.NewRequest(http.MethodPost, "/import?merge=true", bytes.NewReader(exported))
	w = httptest.NewRecorder()
	dst.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	var res ImportResponse
	decode(t, w, &res)
	assert.True(t, res.Imported)
	assert.Equal(t, 3, res.Total)

	req = httptest.NewRequest(http.MethodPost, "/import", bytes.NewReader(exported))
	w = httptest.NewRecorder()
	dst.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, ps.List(), 2)

	req = httptest.NewRequest(http.MethodPost, "/import", strings.NewReader(`{"proposals": {}}`))
	w = httptest.NewRecorder()
	dst.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Len(t, ps.List(), 2)

	req = httptest.NewRequest(http.MethodPost, "/import?merge=maybe", bytes.NewReader(exported))
	w = httptest.NewRecorder()
	dst.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
