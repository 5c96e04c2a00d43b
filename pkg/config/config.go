// Package config loads release-policy configuration. The core operations
// never read files themselves; a caller loads a policy once and threads the
// resulting values through the library's constructors.
package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/inferloop/privkit/pkg/anonymity"
	pkgerrors "github.com/inferloop/privkit/pkg/errors"
)

// ReleasePolicy is the externally supplied policy for one data release
type ReleasePolicy struct {
	// BudgetCeiling is the total epsilon allowed per accountant scope.
	// Zero means unlimited, which is unsafe for production releases.
	BudgetCeiling float64 `mapstructure:"budget_ceiling"`
	// K is the target minimum equivalence-class size
	K int `mapstructure:"k"`
	// MaxDepth bounds the generalization search lattice
	MaxDepth int `mapstructure:"max_depth"`
	// QuasiIdentifiers names the projection columns
	QuasiIdentifiers []string `mapstructure:"quasi_identifiers"`
	// Clip holds optional per-column outlier bounds applied before the search
	Clip map[string]ClipBounds `mapstructure:"clip"`
	// Taxonomies holds categorical hierarchies keyed by column name
	Taxonomies map[string]TaxonomyConfig `mapstructure:"taxonomies"`
}

// ClipBounds are the outlier bounds for one numeric column
type ClipBounds struct {
	Lower float64 `mapstructure:"lower"`
	Upper float64 `mapstructure:"upper"`
}

// TaxonomyConfig describes a categorical hierarchy as a root label plus a
// child-to-parent mapping, the same shape anonymity.NewTaxonomy consumes.
type TaxonomyConfig struct {
	Root    string            `mapstructure:"root"`
	Parents map[string]string `mapstructure:"parents"`
}

// Load reads a release policy from the given file, with PRIVKIT_* environment
// variables taking precedence over file values.
func Load(path string) (*ReleasePolicy, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("PRIVKIT")
	v.AutomaticEnv()

	v.SetDefault("budget_ceiling", 0.0)
	v.SetDefault("k", 2)
	v.SetDefault("max_depth", 3)

	if err := v.ReadInConfig(); err != nil {
		return nil, pkgerrors.WrapError(err, pkgerrors.ErrorTypeConfiguration,
			pkgerrors.CodeInvalidConfiguration, fmt.Sprintf("reading %s", path))
	}

	policy := &ReleasePolicy{}
	if err := v.Unmarshal(policy); err != nil {
		return nil, pkgerrors.WrapError(err, pkgerrors.ErrorTypeConfiguration,
			pkgerrors.CodeInvalidConfiguration, "unmarshaling release policy")
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return policy, nil
}

// Validate checks the policy's internal consistency
func (p *ReleasePolicy) Validate() error {
	if p.K < 1 {
		return pkgerrors.NewConfigurationError(fmt.Sprintf("k is %d, must be at least 1", p.K))
	}
	if p.MaxDepth < 0 {
		return pkgerrors.NewConfigurationError(fmt.Sprintf("max_depth is %d, must be non-negative", p.MaxDepth))
	}
	if p.BudgetCeiling < 0 {
		return pkgerrors.NewConfigurationError(fmt.Sprintf("budget_ceiling is %g, must be non-negative", p.BudgetCeiling))
	}
	for column, bounds := range p.Clip {
		if bounds.Lower > bounds.Upper {
			return pkgerrors.NewConfigurationError(fmt.Sprintf(
				"clip bounds for %q are [%g, %g], lower exceeds upper", column, bounds.Lower, bounds.Upper))
		}
	}
	for column, tc := range p.Taxonomies {
		if tc.Root == "" {
			return pkgerrors.NewConfigurationError(fmt.Sprintf("taxonomy for %q has no root", column))
		}
	}
	return nil
}

// BuildTaxonomies constructs the configured taxonomy trees
func (p *ReleasePolicy) BuildTaxonomies() (map[string]*anonymity.Taxonomy, error) {
	out := make(map[string]*anonymity.Taxonomy, len(p.Taxonomies))
	for column, tc := range p.Taxonomies {
		taxonomy, err := anonymity.NewTaxonomy(tc.Root, tc.Parents)
		if err != nil {
			return nil, pkgerrors.WrapError(err, pkgerrors.ErrorTypeConfiguration,
				pkgerrors.CodeInvalidConfiguration, fmt.Sprintf("taxonomy for column %q", column))
		}
		out[column] = taxonomy
	}
	return out, nil
}
