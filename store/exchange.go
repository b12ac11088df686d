package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/calehh/proposal-box/types"
)

const ExportPrefix = "aikira_proposals"

// ExportFileName names an export file after the day it was taken.
func ExportFileName(t time.Time) string {
	return fmt.Sprintf("%s_%s.json", ExportPrefix, t.UTC().Format("2006-01-02"))
}

// Export serializes the full document.
func (s *ProposalStore) Export() ([]byte, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	doc, err := s.load()
	if err != nil {
		s.logger.Error("export fail", "err", err)
		return nil, err
	}
	return json.MarshalIndent(doc, "", "  ")
}

// ExportToFile writes the export into dir and returns the file path.
func (s *ProposalStore) ExportToFile(dir string) (string, error) {
	dat, err := s.Export()
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, ExportFileName(s.now()))
	if err = os.WriteFile(path, dat, 0o644); err != nil {
		s.logger.Error("write export fail", "path", path, "err", err)
		return "", err
	}
	return path, nil
}

// ParseImport validates an import payload and returns its proposals.
func ParseImport(data []byte) ([]types.Proposal, error) {
	var raw struct {
		Proposals json.RawMessage `json:"proposals"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedImport, err)
	}
	if !bytes.HasPrefix(bytes.TrimSpace(raw.Proposals), []byte("[")) {
		return nil, fmt.Errorf("%w: proposals is not an array", ErrMalformedImport)
	}
	var proposals []types.Proposal
	if err := json.Unmarshal(raw.Proposals, &proposals); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedImport, err)
	}
	seen := make(map[string]bool, len(proposals))
	for i := range proposals {
		p := &proposals[i]
		if p.Votes == nil {
			p.Votes = make(map[string]types.VoteValue)
		}
		if c, err := types.ParseCategory(string(p.Category)); err == nil {
			p.Category = c
		}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("%w: proposal %d: %v", ErrMalformedImport, i, err)
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("%w: duplicate id %s", ErrMalformedImport, p.ID)
		}
		seen[p.ID] = true
	}
	return proposals, nil
}

// Import replaces the stored proposals with those in data. With merge set,
// only proposals whose ids are not stored yet are appended. A malformed
// payload leaves the store untouched.
func (s *ProposalStore) Import(data []byte, merge bool) bool {
	proposals, err := ParseImport(data)
	if err != nil {
		s.logger.Error("import fail", "err", err)
		return false
	}
	added := 0
	err = s.mutate("import", func(doc *types.Document) (bool, error) {
		if !merge {
			doc.Proposals = proposals
			added = len(proposals)
			return true, nil
		}
		for _, p := range proposals {
			if findProposal(doc, p.ID) < 0 {
				doc.Proposals = append(doc.Proposals, p)
				added++
			}
		}
		return added > 0, nil
	})
	if err != nil {
		return false
	}
	s.logger.Info("import done", "merge", merge, "added", added)
	return true
}
