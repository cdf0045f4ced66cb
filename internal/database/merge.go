// file: internal/database/merge.go
// version: 1.0.0
// guid: 6bfb282e-e6aa-476e-88d1-ef9a48a5308a

package database

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/rs/zerolog/log"

	"github.com/jdfalk/manga-organizer/internal/matcher"
	"github.com/jdfalk/manga-organizer/internal/normalize"
)

// trailingMarker matches a trailing number or sequel marker on a comparable
// title: "2", "ii", "season 2", "part iii".
var trailingMarker = regexp.MustCompile(`(?:\s+(?:season|part))?\s+(?:\d+|ii|iii|iv|v|vi|vii|viii|ix|x)$`)

// MergeGroup is a set of series that look like one. Target is the oldest
// and survives a merge.
type MergeGroup struct {
	Target Series   `json:"target"`
	Others []Series `json:"others"`
	Score  float64  `json:"score"` // lowest pairwise score against the target
}

// baseTitle is the comparable title without a trailing number or sequel
// marker.
func baseTitle(title string) string {
	comparable := normalize.Normalize(title).Comparable
	if base := strings.TrimSpace(trailingMarker.ReplaceAllString(comparable, "")); base != "" {
		return base
	}
	return comparable
}

// closeEnough is a cheap pre-filter so only plausible pairs are scored.
func closeEnough(a, b string) bool {
	longest := max(len(a), len(b))
	return fuzzy.LevenshteinDistance(a, b) <= longest/2
}

// FindMergeGroups groups series whose base titles score at or above the
// policy's auto-match threshold. Series are compared oldest first, so the
// oldest of each group is its target.
func FindMergeGroups(store Store, policy matcher.Policy) ([]MergeGroup, error) {
	all, err := store.ListSeries()
	if err != nil {
		return nil, fmt.Errorf("failed to list series: %w", err)
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})

	bases := make([]string, len(all))
	for i, s := range all {
		bases[i] = baseTitle(s.Title)
	}

	assigned := make([]bool, len(all))
	var groups []MergeGroup
	for i := range all {
		if assigned[i] {
			continue
		}
		group := MergeGroup{Target: all[i], Score: 1}
		for j := i + 1; j < len(all); j++ {
			if assigned[j] || !closeEnough(bases[i], bases[j]) {
				continue
			}
			score := policy.Score(bases[i], bases[j])
			if score < policy.AutoMatchThreshold {
				continue
			}
			assigned[j] = true
			group.Others = append(group.Others, all[j])
			group.Score = min(group.Score, score)
		}
		if len(group.Others) > 0 {
			groups = append(groups, group)
		}
	}
	return groups, nil
}

// ApplyMerge moves the volumes of every other series to the target, folds
// their titles and aliases into the target's aliases and deletes them.
func ApplyMerge(store Store, group MergeGroup) (int, error) {
	target := group.Target
	policy, err := store.GetPolicy(target.ID)
	if errors.Is(err, ErrNotFound) {
		policy = &SeriesPolicy{SeriesID: target.ID, TitleCanonical: target.Title}
	} else if err != nil {
		return 0, err
	}

	seen := make(map[string]bool)
	addAlias := func(alias string) {
		alias = strings.TrimSpace(alias)
		key := normalize.Normalize(alias).Comparable
		if key == "" || seen[key] {
			return
		}
		seen[key] = true
		policy.Aliases = append(policy.Aliases, alias)
	}
	seen[normalize.Normalize(policy.TitleCanonical).Comparable] = true
	for _, a := range policy.Aliases {
		seen[normalize.Normalize(a).Comparable] = true
	}

	moved := 0
	for _, other := range group.Others {
		n, err := store.ReassignVolumes(other.ID, target.ID)
		if err != nil {
			return moved, fmt.Errorf("failed to move volumes of %s: %w", other.SeriesCode, err)
		}
		moved += n

		addAlias(other.Title)
		if otherPolicy, err := store.GetPolicy(other.ID); err == nil {
			addAlias(otherPolicy.TitleCanonical)
			for _, a := range otherPolicy.Aliases {
				addAlias(a)
			}
		}
		if err := store.DeleteSeries(other.ID); err != nil {
			return moved, fmt.Errorf("failed to delete %s: %w", other.SeriesCode, err)
		}
		log.Info().Str("from", other.SeriesCode).Str("into", target.SeriesCode).Int("volumes", n).Msg("series merged")
	}

	if err := store.UpsertPolicy(policy); err != nil {
		return moved, fmt.Errorf("failed to update policy of %s: %w", target.SeriesCode, err)
	}
	return moved, nil
}
