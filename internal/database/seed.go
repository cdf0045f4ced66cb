// file: internal/database/seed.go
// version: 1.0.0
// guid: 87568f67-5775-40cb-9290-952c67d25f68

package database

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/jdfalk/manga-organizer/internal/normalize"
)

// PolicySeed is one series entry of a policy file. The series is found by
// Code, or by the code generated from Title when Code is empty.
type PolicySeed struct {
	Title        string `yaml:"title"`
	Code         string `yaml:"code,omitempty"`
	SeriesPolicy `yaml:",inline"`
}

// PolicyFile is the YAML document read by ImportPolicies.
type PolicyFile struct {
	Series []PolicySeed `yaml:"series"`
}

// SeedResult counts what ImportPolicies changed.
type SeedResult struct {
	CreatedSeries   int
	UpdatedPolicies int
}

// ImportPolicies reads a policy file and upserts every entry, creating
// missing series under their generated code.
func ImportPolicies(store Store, r io.Reader) (SeedResult, error) {
	var file PolicyFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return SeedResult{}, fmt.Errorf("failed to parse policy file: %w", err)
	}

	var result SeedResult
	for i, seed := range file.Series {
		title := strings.TrimSpace(seed.Title)
		if title == "" {
			return result, fmt.Errorf("policy entry %d: title is required", i+1)
		}
		code := strings.ToUpper(strings.TrimSpace(seed.Code))
		if code == "" {
			code = normalize.GenerateCode(title)
		}

		series, err := store.GetSeriesByCode(code)
		if errors.Is(err, ErrNotFound) {
			series, err = store.CreateSeries(&Series{Title: title, SeriesCode: code})
			if err == nil {
				result.CreatedSeries++
			}
		}
		if err != nil {
			return result, fmt.Errorf("policy entry %q: %w", title, err)
		}

		policy := seed.SeriesPolicy
		policy.SeriesID = series.ID
		if strings.TrimSpace(policy.TitleCanonical) == "" {
			policy.TitleCanonical = series.Title
		}
		if err := store.UpsertPolicy(&policy); err != nil {
			return result, fmt.Errorf("policy entry %q: %w", title, err)
		}
		result.UpdatedPolicies++
	}

	log.Info().Int("created_series", result.CreatedSeries).Int("policies", result.UpdatedPolicies).Msg("policy file imported")
	return result, nil
}

// ExportPolicies writes every stored policy as a policy file, ordered by
// series code.
func ExportPolicies(store Store, w io.Writer) error {
	policies, err := store.ListPolicies()
	if err != nil {
		return fmt.Errorf("failed to list policies: %w", err)
	}

	var file PolicyFile
	for _, p := range policies {
		series, err := store.GetSeriesByID(p.SeriesID)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		file.Series = append(file.Series, PolicySeed{Title: series.Title, Code: series.SeriesCode, SeriesPolicy: p})
	}
	sort.Slice(file.Series, func(i, j int) bool { return file.Series[i].Code < file.Series[j].Code })

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(file); err != nil {
		return fmt.Errorf("failed to write policy file: %w", err)
	}
	return enc.Close()
}
