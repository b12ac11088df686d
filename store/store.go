package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/calehh/proposal-box/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/google/uuid"
)

// DefaultKey is the key the proposal document is stored under.
const DefaultKey = "aikira_proposals_db"

type Option func(*ProposalStore)

func WithKey(key string) Option {
	return func(s *ProposalStore) {
		if key != "" {
			s.key = []byte(key)
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *ProposalStore) {
		s.now = now
	}
}

func WithIDGenerator(newID func() string) Option {
	return func(s *ProposalStore) {
		s.newID = newID
	}
}

// ProposalStore keeps every proposal in one JSON document. Each read decodes
// the whole document and each write replaces it, guarded by a revision number
// so that two stores sharing a backend cannot silently overwrite each other.
type ProposalStore struct {
	mtx sync.RWMutex

	logger cmtlog.Logger
	kv     KV
	key    []byte
	now    func() time.Time
	newID  func() string
}

func NewProposalStore(kv KV, logger cmtlog.Logger, opts ...Option) *ProposalStore {
	s := &ProposalStore{
		logger: logger.With("module", "store"),
		kv:     kv,
		key:    []byte(DefaultKey),
		now: func() time.Time {
			return time.Now().Round(0).UTC()
		},
		newID: func() string {
			return uuid.New().String()
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ProposalStore) Close() error {
	return s.kv.Close()
}

// Initialize writes an empty document if none exists yet.
func (s *ProposalStore) Initialize() bool {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	_, err := s.kv.Get(s.key)
	if err == nil {
		return true
	}
	if !errors.Is(err, ErrNotFound) {
		s.logger.Error("initialize store fail", "err", err)
		return false
	}
	err = s.save(&types.Document{Proposals: []types.Proposal{}}, 0)
	if err != nil && !errors.Is(err, ErrStaleRevision) {
		s.logger.Error("initialize store fail", "err", err)
		return false
	}
	return true
}

func (s *ProposalStore) load() (doc *types.Document, err error) {
	val, err := s.kv.Get(s.key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return &types.Document{Proposals: []types.Proposal{}}, nil
		}
		return nil, err
	}
	doc = new(types.Document)
	if err = json.Unmarshal(val, doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if doc.Proposals == nil {
		doc.Proposals = []types.Proposal{}
	}
	for i := range doc.Proposals {
		if doc.Proposals[i].Votes == nil {
			doc.Proposals[i].Votes = make(map[string]types.VoteValue)
		}
	}
	return doc, nil
}

func revisionOf(val []byte) (uint64, error) {
	if val == nil {
		return 0, nil
	}
	var head struct {
		Revision uint64 `json:"revision"`
	}
	if err := json.Unmarshal(val, &head); err != nil {
		return 0, fmt.Errorf("decode document: %w", err)
	}
	return head.Revision, nil
}

// save writes doc if the stored revision still equals expected.
func (s *ProposalStore) save(doc *types.Document, expected uint64) error {
	doc.Revision = expected + 1
	doc.LastUpdated = s.now()
	val, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return s.kv.Update(s.key, func(old []byte) ([]byte, error) {
		rev, err := revisionOf(old)
		if err != nil {
			return nil, err
		}
		if rev != expected {
			return nil, ErrStaleRevision
		}
		return val, nil
	})
}

// mutate runs fn on a freshly loaded document and persists it when fn
// reports a change.
func (s *ProposalStore) mutate(op string, fn func(doc *types.Document) (changed bool, err error)) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	doc, err := s.load()
	if err != nil {
		s.logger.Error(op+" load fail", "err", err)
		return err
	}
	changed, err := fn(doc)
	if err != nil || !changed {
		return err
	}
	if err = s.save(doc, doc.Revision); err != nil {
		s.logger.Error(op+" save fail", "err", err)
	}
	return err
}

func findProposal(doc *types.Document, id string) int {
	for i := range doc.Proposals {
		if doc.Proposals[i].ID == id {
			return i
		}
	}
	return -1
}

// Create stores a new pending proposal at the head of the list.
func (s *ProposalStore) Create(in types.ProposalInput) (*types.Proposal, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	p := types.Proposal{
		Text:             in.Text,
		Category:         types.Category(in.Category),
		SubmitterAddress: in.SubmitterAddress,
		CreatedAt:        s.now(),
		Status:           types.StatusPending,
		Votes:            make(map[string]types.VoteValue),
	}
	err := s.mutate("create proposal", func(doc *types.Document) (bool, error) {
		p.ID = s.newID()
		for findProposal(doc, p.ID) >= 0 {
			p.ID = s.newID()
		}
		doc.Proposals = append([]types.Proposal{p}, doc.Proposals...)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("proposal created", "id", p.ID, "tag", p.Category)
	return p.Clone(), nil
}

// List returns every proposal, newest first.
func (s *ProposalStore) List() []types.Proposal {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	doc, err := s.load()
	if err != nil {
		s.logger.Error("list proposals fail", "err", err)
		return []types.Proposal{}
	}
	return doc.Proposals
}

// ListByCategory filters List case-insensitively. An empty category or
// "All" returns everything.
func (s *ProposalStore) ListByCategory(category string) []types.Proposal {
	proposals := s.List()
	category = strings.TrimSpace(category)
	if category == "" || strings.EqualFold(category, types.CategoryAll) {
		return proposals
	}
	res := make([]types.Proposal, 0, len(proposals))
	for _, p := range proposals {
		if strings.EqualFold(string(p.Category), category) {
			res = append(res, p)
		}
	}
	return res
}

func (s *ProposalStore) Get(id string) (*types.Proposal, bool) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	doc, err := s.load()
	if err != nil {
		s.logger.Error("get proposal fail", "err", err)
		return nil, false
	}
	idx := findProposal(doc, id)
	if idx < 0 {
		return nil, false
	}
	return &doc.Proposals[idx], true
}

func decrement(n uint64) uint64 {
	if n == 0 {
		return 0
	}
	return n - 1
}

// applyVote sets, changes or (for VoteNone) clears userID's vote and keeps
// the counters in step with the vote map.
func applyVote(p *types.Proposal, userID string, value types.VoteValue) (changed bool) {
	if p.Votes == nil {
		p.Votes = make(map[string]types.VoteValue)
	}
	prev, ok := p.Votes[userID]
	if !ok && value == types.VoteNone {
		return false
	}
	if ok && prev == value {
		return false
	}
	if ok {
		if prev == types.VoteUp {
			p.Upvotes = decrement(p.Upvotes)
		} else {
			p.Downvotes = decrement(p.Downvotes)
		}
	}
	switch value {
	case types.VoteNone:
		delete(p.Votes, userID)
		return true
	case types.VoteUp:
		p.Upvotes++
	case types.VoteDown:
		p.Downvotes++
	}
	p.Votes[userID] = value
	return true
}

// Vote records userID's vote. VoteNone clears an existing vote; any other
// value sets or replaces it. Repeating the current vote is accepted without
// a write.
func (s *ProposalStore) Vote(id, userID string, value types.VoteValue) bool {
	userID = types.VoterKey(userID)
	if userID == "" {
		return false
	}
	if value != types.VoteNone && value != types.VoteUp && value != types.VoteDown {
		s.logger.Info("vote rejected", "err", types.ErrInvalidVoteValue, "vote", value)
		return false
	}
	err := s.mutate("vote", func(doc *types.Document) (bool, error) {
		idx := findProposal(doc, id)
		if idx < 0 {
			return false, ErrNotFound
		}
		return applyVote(&doc.Proposals[idx], userID, value), nil
	})
	return err == nil
}

func (s *ProposalStore) GetUserVote(id, userID string) types.VoteValue {
	p, ok := s.Get(id)
	if !ok {
		return types.VoteNone
	}
	return p.Votes[types.VoterKey(userID)]
}

// Update merges patch into the proposal and stamps its update time.
func (s *ProposalStore) Update(id string, patch types.ProposalPatch) bool {
	if err := patch.Validate(); err != nil {
		s.logger.Info("update rejected", "id", id, "err", err)
		return false
	}
	err := s.mutate("update proposal", func(doc *types.Document) (bool, error) {
		idx := findProposal(doc, id)
		if idx < 0 {
			return false, ErrNotFound
		}
		p := &doc.Proposals[idx]
		patch.Apply(p)
		now := s.now()
		p.UpdatedAt = &now
		return true, nil
	})
	return err == nil
}

// Delete removes a proposal and reports whether anything was removed.
func (s *ProposalStore) Delete(id string) bool {
	err := s.mutate("delete proposal", func(doc *types.Document) (bool, error) {
		idx := findProposal(doc, id)
		if idx < 0 {
			return false, ErrNotFound
		}
		doc.Proposals = append(doc.Proposals[:idx], doc.Proposals[idx+1:]...)
		return true, nil
	})
	if err == nil {
		s.logger.Info("proposal deleted", "id", id)
	}
	return err == nil
}
