package types

import (
	"errors"
	"strings"
	"time"
)

const (
	// Anonymous is recorded as the submitter when no wallet is connected.
	Anonymous = "Anonymous"

	// CategoryAll is the filter sentinel that matches every category.
	CategoryAll = "All"
)

var (
	ErrInvalidCategory  = errors.New("invalid category")
	ErrInvalidStatus    = errors.New("invalid status")
	ErrInvalidVoteValue = errors.New("invalid vote value")
)

type Category string

const (
	CategoryGrants    Category = "Grants"
	CategoryRewards   Category = "Rewards"
	CategoryTrading   Category = "Trading"
	CategoryMarketing Category = "Marketing"
	CategoryOther     Category = "Other"
)

var Categories = []Category{
	CategoryGrants,
	CategoryRewards,
	CategoryTrading,
	CategoryMarketing,
	CategoryOther,
}

// ParseCategory resolves a tag case-insensitively to its canonical spelling.
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories {
		if strings.EqualFold(string(c), strings.TrimSpace(s)) {
			return c, nil
		}
	}
	return "", ErrInvalidCategory
}

func (c Category) Valid() bool {
	_, err := ParseCategory(string(c))
	return err == nil
}

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

func ParseStatus(s string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusPending:
		return StatusPending, nil
	case StatusApproved:
		return StatusApproved, nil
	case StatusRejected:
		return StatusRejected, nil
	}
	return "", ErrInvalidStatus
}

func (s Status) Valid() bool {
	_, err := ParseStatus(string(s))
	return err == nil
}

// VoteValue is a user's vote on a proposal. The zero value means no vote.
type VoteValue string

const (
	VoteNone VoteValue = ""
	VoteUp   VoteValue = "up"
	VoteDown VoteValue = "down"
)

// ParseVoteValue accepts "up", "down" and, for clearing, "", "none" or "null".
func ParseVoteValue(s string) (VoteValue, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up":
		return VoteUp, nil
	case "down":
		return VoteDown, nil
	case "", "none", "null":
		return VoteNone, nil
	}
	return VoteNone, ErrInvalidVoteValue
}

type Proposal struct {
	ID               string               `json:"id"`
	Text             string               `json:"proposal"`
	Category         Category             `json:"tag"`
	SubmitterAddress string               `json:"walletAddress"`
	CreatedAt        time.Time            `json:"timestamp"`
	Status           Status               `json:"status"`
	Upvotes          uint64               `json:"upvotes"`
	Downvotes        uint64               `json:"downvotes"`
	Votes            map[string]VoteValue `json:"votes"`
	UpdatedAt        *time.Time           `json:"lastUpdated,omitempty"`
}

func (p *Proposal) Clone() *Proposal {
	n := *p
	n.Votes = make(map[string]VoteValue, len(p.Votes))
	for k, v := range p.Votes {
		n.Votes[k] = v
	}
	if p.UpdatedAt != nil {
		t := *p.UpdatedAt
		n.UpdatedAt = &t
	}
	return &n
}

// Tally counts the up and down entries of the vote map.
func (p *Proposal) Tally() (up, down uint64) {
	for _, v := range p.Votes {
		switch v {
		case VoteUp:
			up++
		case VoteDown:
			down++
		}
	}
	return
}

// Consistent reports whether the counters agree with the vote map.
func (p *Proposal) Consistent() bool {
	up, down := p.Tally()
	return up == p.Upvotes && down == p.Downvotes
}

// Document is the single blob persisted under the store key.
type Document struct {
	Proposals   []Proposal `json:"proposals"`
	LastUpdated time.Time  `json:"lastUpdated"`
	Revision    uint64     `json:"revision"`
}

var ErrInconsistentTally = errors.New("vote counters do not match votes")

// Validate checks a stored record, e.g. one read from an import file.
func (p *Proposal) Validate() error {
	if p.ID == "" {
		return errors.New("missing id")
	}
	if !p.Category.Valid() {
		return ErrInvalidCategory
	}
	if !p.Status.Valid() {
		return ErrInvalidStatus
	}
	for _, v := range p.Votes {
		if v != VoteUp && v != VoteDown {
			return ErrInvalidVoteValue
		}
	}
	if !p.Consistent() {
		return ErrInconsistentTally
	}
	return nil
}
