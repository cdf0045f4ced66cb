// file: internal/database/seed_test.go
// version: 1.0.0
// guid: 26b35275-11eb-4252-b333-4ed0663a2852

package database

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const seedYAML = `
series:
  - title: Kimi ni Todoke
    title_locked: true
    aliases: [From Me to You]
  - title: Given
    code: 1d71
    treat_as_arc: [Winter]
`

func TestImportPolicies(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		res, err := ImportPolicies(store, strings.NewReader(seedYAML))
		require.NoError(t, err)
		assert.Equal(t, SeedResult{CreatedSeries: 2, UpdatedPolicies: 2}, res)

		given, err := store.GetSeriesByCode("1D71")
		require.NoError(t, err)
		policy, err := store.GetPolicy(given.ID)
		require.NoError(t, err)
		assert.Equal(t, "Given", policy.TitleCanonical)
		assert.Equal(t, []string{"Winter"}, policy.TreatAsArc)

		// Seeding again only updates policies.
		res, err = ImportPolicies(store, strings.NewReader(seedYAML))
		require.NoError(t, err)
		assert.Equal(t, 0, res.CreatedSeries)

		catalog, err := Catalog(store)
		require.NoError(t, err)
		require.Len(t, catalog, 2)
		for _, c := range catalog {
			if c.TitleCanonical == "Kimi ni Todoke" {
				assert.True(t, c.TitleLocked)
				assert.Equal(t, []string{"From Me to You"}, c.Aliases)
			}
		}
	})
}

func TestImportPolicies_Errors(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		_, err := ImportPolicies(store, strings.NewReader("series:\n  - aliases: [x]\n"))
		assert.ErrorContains(t, err, "title is required")

		_, err = ImportPolicies(store, strings.NewReader("series: [unclosed"))
		assert.Error(t, err)

		res, err := ImportPolicies(store, strings.NewReader(""))
		require.NoError(t, err)
		assert.Zero(t, res.UpdatedPolicies)
	})
}

func TestExportPolicies(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		_, err := ImportPolicies(store, strings.NewReader(seedYAML))
		require.NoError(t, err)

		var buf bytes.Buffer
		require.NoError(t, ExportPolicies(store, &buf))

		var file PolicyFile
		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &file))
		require.Len(t, file.Series, 2)
		assert.Less(t, file.Series[0].Code, file.Series[1].Code)
		assert.NotContains(t, buf.String(), "series_id")

		byTitle := map[string]PolicySeed{}
		for _, s := range file.Series {
			byTitle[s.Title] = s
		}
		assert.Equal(t, "1D71", byTitle["Given"].Code)
		assert.True(t, byTitle["Kimi ni Todoke"].TitleLocked)
		assert.Equal(t, []string{"From Me to You"}, byTitle["Kimi ni Todoke"].Aliases)
	})
}
