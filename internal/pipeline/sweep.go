package pipeline

import (
	"fmt"

	"replyrouter/internal/labels"
	"replyrouter/internal/profile"
)

// SweepAPI is the slice of the Gmail connector the sweep needs.
type SweepAPI interface {
	Search(query string, max int) ([]string, error)
	ModifyLabels(providerID string, add, remove []string) error
}

// SweepService applies each profile's main label to mailbox messages that
// match its keywords or senders, so the listener can fetch by that label
// alone afterwards.
type SweepService struct {
	api     SweepAPI
	labeler *labels.Manager
	max     int
}

func NewSweepService(api SweepAPI, labeler *labels.Manager, max int) *SweepService {
	if max <= 0 {
		max = 50
	}
	return &SweepService{api: api, labeler: labeler, max: max}
}

func (s *SweepService) SweepAll(profiles []profile.Profile) (int, error) {
	total := 0
	for _, p := range profiles {
		labeled, err := s.SweepProfile(p)
		if err != nil {
			return total, err
		}
		total += labeled
	}
	return total, nil
}

func (s *SweepService) SweepProfile(p profile.Profile) (int, error) {
	labelID, err := s.labeler.GetOrCreate(p.MainLabel, "")
	if err != nil {
		return 0, err
	}

	queries := make([]string, 0, len(p.Keywords)+len(p.Senders))
	for _, kw := range p.Keywords {
		if kw != "" {
			queries = append(queries, fmt.Sprintf("%q -label:%q", kw, p.MainLabel))
		}
	}
	for _, sender := range p.Senders {
		if sender != "" {
			queries = append(queries, fmt.Sprintf("from:%s -label:%q", sender, p.MainLabel))
		}
	}

	seen := map[string]struct{}{}
	labeled := 0
	for _, query := range queries {
		ids, err := s.api.Search(query, s.max)
		if err != nil {
			return labeled, fmt.Errorf("search %q: %w", query, err)
		}
		for _, id := range ids {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			if err := s.api.ModifyLabels(id, []string{labelID}, nil); err != nil {
				return labeled, err
			}
			labeled++
		}
	}

	return labeled, nil
}
