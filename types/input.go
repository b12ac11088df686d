package types

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/common"
)

const MaxProposalTextLen = 500

// InputError describes the first field of a submission that failed validation.
type InputError struct {
	Field  string
	Reason string
	Err    error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// ProposalInput is what a submitter provides. Everything else on a
// Proposal is assigned by the store.
type ProposalInput struct {
	Text             string `json:"proposal"`
	Category         string `json:"tag"`
	SubmitterAddress string `json:"walletAddress"`
}

// Validate normalizes the input in place: trims the text, canonicalizes the
// category and substitutes Anonymous for an empty submitter.
func (in *ProposalInput) Validate() error {
	in.Text = strings.TrimSpace(in.Text)
	if in.Text == "" {
		return &InputError{Field: "proposal", Reason: "empty text"}
	}
	if utf8.RuneCountInString(in.Text) > MaxProposalTextLen {
		return &InputError{Field: "proposal", Reason: fmt.Sprintf("longer than %d characters", MaxProposalTextLen)}
	}
	c, err := ParseCategory(in.Category)
	if err != nil {
		return &InputError{Field: "tag", Reason: fmt.Sprintf("unknown category %q", in.Category), Err: err}
	}
	in.Category = string(c)
	addr, err := NormalizeSubmitter(in.SubmitterAddress)
	if err != nil {
		return &InputError{Field: "walletAddress", Reason: err.Error(), Err: err}
	}
	in.SubmitterAddress = addr
	return nil
}

// NormalizeSubmitter returns the checksummed form of a hex address, or
// Anonymous for an empty value.
func NormalizeSubmitter(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, Anonymous) {
		return Anonymous, nil
	}
	if !common.IsHexAddress(s) {
		return "", fmt.Errorf("not a hex address: %q", s)
	}
	return common.HexToAddress(s).Hex(), nil
}

// VoterKey is the key a vote is stored under. Every spelling of a hex
// address (any case, with or without 0x) maps to its checksummed form; other
// user ids are only trimmed.
func VoterKey(s string) string {
	s = strings.TrimSpace(s)
	if common.IsHexAddress(s) {
		return common.HexToAddress(s).Hex()
	}
	return s
}

// ProposalPatch lists the fields an administrator may overwrite. Counters
// and the vote map are deliberately absent.
type ProposalPatch struct {
	Text             *string   `json:"proposal,omitempty"`
	Category         *Category `json:"tag,omitempty"`
	SubmitterAddress *string   `json:"walletAddress,omitempty"`
	Status           *Status   `json:"status,omitempty"`
}

func (pt *ProposalPatch) Empty() bool {
	return pt.Text == nil && pt.Category == nil && pt.SubmitterAddress == nil && pt.Status == nil
}

func (pt *ProposalPatch) Validate() error {
	if pt.Category != nil {
		c, err := ParseCategory(string(*pt.Category))
		if err != nil {
			return &InputError{Field: "tag", Reason: fmt.Sprintf("unknown category %q", *pt.Category), Err: err}
		}
		*pt.Category = c
	}
	if pt.Status != nil {
		s, err := ParseStatus(string(*pt.Status))
		if err != nil {
			return &InputError{Field: "status", Reason: fmt.Sprintf("unknown status %q", *pt.Status), Err: err}
		}
		*pt.Status = s
	}
	if pt.Text != nil && strings.TrimSpace(*pt.Text) == "" {
		return &InputError{Field: "proposal", Reason: "empty text"}
	}
	if pt.SubmitterAddress != nil {
		addr, err := NormalizeSubmitter(*pt.SubmitterAddress)
		if err != nil {
			return &InputError{Field: "walletAddress", Reason: err.Error(), Err: err}
		}
		*pt.SubmitterAddress = addr
	}
	return nil
}

// Apply merges the non-nil fields into p.
func (pt *ProposalPatch) Apply(p *Proposal) {
	if pt.Text != nil {
		p.Text = strings.TrimSpace(*pt.Text)
	}
	if pt.Category != nil {
		p.Category = *pt.Category
	}
	if pt.SubmitterAddress != nil {
		p.SubmitterAddress = *pt.SubmitterAddress
	}
	if pt.Status != nil {
		p.Status = *pt.Status
	}
}
