package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePolicy(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadFullPolicy(t *testing.T) {
	path := writePolicy(t, `
budget_ceiling: 1.5
k: 4
max_depth: 2
quasi_identifiers:
  - age
  - zip
  - city
clip:
  age:
    lower: 0
    upper: 120
taxonomies:
  city:
    root: world
    parents:
      lyon: france
      nice: france
      france: world
`)

	policy, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 1.5, policy.BudgetCeiling)
	assert.Equal(t, 4, policy.K)
	assert.Equal(t, 2, policy.MaxDepth)
	assert.Equal(t, []string{"age", "zip", "city"}, policy.QuasiIdentifiers)
	assert.Equal(t, ClipBounds{Lower: 0, Upper: 120}, policy.Clip["age"])
	assert.Equal(t, "world", policy.Taxonomies["city"].Root)
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writePolicy(t, `
quasi_identifiers:
  - age
`)

	policy, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.0, policy.BudgetCeiling)
	assert.Equal(t, 2, policy.K)
	assert.Equal(t, 3, policy.MaxDepth)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		policy ReleasePolicy
	}{
		{"k below one", ReleasePolicy{K: 0, MaxDepth: 1}},
		{"negative max depth", ReleasePolicy{K: 2, MaxDepth: -1}},
		{"negative ceiling", ReleasePolicy{K: 2, MaxDepth: 1, BudgetCeiling: -0.5}},
		{"inverted clip bounds", ReleasePolicy{
			K: 2, MaxDepth: 1,
			Clip: map[string]ClipBounds{"age": {Lower: 10, Upper: 5}},
		}},
		{"rootless taxonomy", ReleasePolicy{
			K: 2, MaxDepth: 1,
			Taxonomies: map[string]TaxonomyConfig{"city": {Parents: map[string]string{"lyon": "france"}}},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Error(t, tc.policy.Validate())
		})
	}
}

func TestBuildTaxonomies(t *testing.T) {
	policy := &ReleasePolicy{
		K: 2, MaxDepth: 1,
		Taxonomies: map[string]TaxonomyConfig{
			"city": {
				Root:    "world",
				Parents: map[string]string{"lyon": "france", "france": "world"},
			},
		},
	}

	taxonomies, err := policy.BuildTaxonomies()
	require.NoError(t, err)
	require.Contains(t, taxonomies, "city")
	assert.Equal(t, 2, taxonomies["city"].Height())
	assert.Equal(t, "world", taxonomies["city"].Root())

	// A dangling parent reference surfaces as a configuration error.
	policy.Taxonomies["city"] = TaxonomyConfig{
		Root:    "world",
		Parents: map[string]string{"lyon": "france"},
	}
	_, err = policy.BuildTaxonomies()
	assert.Error(t, err)
}
