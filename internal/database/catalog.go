// file: internal/database/catalog.go
// version: 1.0.0
// guid: 5d2a9f14-6c3e-4b87-a1f0-8e7d6c5b4a32

package database

import (
	"fmt"

	"github.com/jdfalk/manga-organizer/internal/matcher"
)

// Catalog joins every series with its policy into matcher candidates. A
// series without a policy is matched on its own title, unlocked.
func Catalog(store Store) ([]matcher.Candidate, error) {
	if store == nil {
		return nil, fmt.Errorf("store is nil")
	}
	series, err := store.ListSeries()
	if err != nil {
		return nil, fmt.Errorf("failed to list series: %w", err)
	}
	policies, err := store.ListPolicies()
	if err != nil {
		return nil, fmt.Errorf("failed to list policies: %w", err)
	}

	byID := make(map[string]*SeriesPolicy, len(policies))
	for i := range policies {
		byID[policies[i].SeriesID] = &policies[i]
	}

	catalog := make([]matcher.Candidate, 0, len(series))
	for _, s := range series {
		catalog = append(catalog, CandidateFor(s, byID[s.ID]))
	}
	return catalog, nil
}

// CandidateFor builds the matcher view of one series. Romanizations are
// matched like aliases.
func CandidateFor(s Series, policy *SeriesPolicy) matcher.Candidate {
	c := matcher.Candidate{
		ID:             s.ID,
		Code:           s.SeriesCode,
		TitleCanonical: s.Title,
	}
	if policy == nil {
		return c
	}
	if policy.TitleCanonical != "" {
		c.TitleCanonical = policy.TitleCanonical
	}
	c.Aliases = append(append([]string(nil), policy.Aliases...), policy.Romanizations...)
	c.TreatAsArc = policy.TreatAsArc
	c.TreatAsSpinoff = policy.TreatAsSpinoff
	c.TitleLocked = policy.TitleLocked
	c.DoNotTranslate = policy.DoNotTranslate
	return c
}
