package anonymity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inferloop/privkit/pkg/errors"
	"github.com/inferloop/privkit/pkg/tabular"
	"github.com/inferloop/privkit/tests/helpers"
)

func cityTaxonomy(t *testing.T) *Taxonomy {
	t.Helper()
	taxonomy, err := NewTaxonomy("world", map[string]string{
		"lyon":   "france",
		"nice":   "france",
		"turin":  "italy",
		"france": "world",
		"italy":  "world",
	})
	require.NoError(t, err)
	return taxonomy
}

func TestGeneralizeDepthZeroIsIdentity(t *testing.T) {
	ds := helpers.FiveRowDataset(t)
	engine := NewEngine(helpers.NewTestLogger())

	out, err := engine.Generalize(ds, GeneralizationSpec{"a": 0, "b": 0, "c": 0})
	require.NoError(t, err)
	for i := 0; i < ds.Len(); i++ {
		assert.Equal(t, ds.Row(i), out.Row(i))
	}
}

func TestGeneralizeNumericRounding(t *testing.T) {
	ds := helpers.NumericDataset(t, []string{"v"}, [][]float64{{42}, {7}, {199}, {-3}})
	engine := NewEngine(helpers.NewTestLogger())

	out, err := engine.Generalize(ds, GeneralizationSpec{"v": 1})
	require.NoError(t, err)
	assert.Equal(t, tabular.IntervalValue(40, 50), out.Row(0)[0])
	assert.Equal(t, tabular.IntervalValue(0, 10), out.Row(1)[0])
	assert.Equal(t, tabular.IntervalValue(190, 200), out.Row(2)[0])
	assert.Equal(t, tabular.IntervalValue(-10, 0), out.Row(3)[0], "floor rounds toward negative infinity")

	out, err = engine.Generalize(ds, GeneralizationSpec{"v": 2})
	require.NoError(t, err)
	assert.Equal(t, tabular.IntervalValue(0, 100), out.Row(0)[0])
	assert.Equal(t, tabular.IntervalValue(100, 200), out.Row(2)[0])
}

func TestGeneralizeDoesNotMutateInput(t *testing.T) {
	ds := helpers.NumericDataset(t, []string{"v"}, [][]float64{{42}})
	engine := NewEngine(helpers.NewTestLogger())

	_, err := engine.Generalize(ds, GeneralizationSpec{"v": 3})
	require.NoError(t, err)
	assert.Equal(t, tabular.NumericValue(42), ds.Row(0)[0])
}

func TestGeneralizeIdempotentPerDepth(t *testing.T) {
	ds := helpers.NumericDataset(t, []string{"v"}, [][]float64{{42}, {7}, {-3}})
	engine := NewEngine(helpers.NewTestLogger())

	once, err := engine.Generalize(ds, GeneralizationSpec{"v": 1})
	require.NoError(t, err)
	twice, err := engine.Generalize(once, GeneralizationSpec{"v": 1})
	require.NoError(t, err)

	for i := 0; i < once.Len(); i++ {
		assert.Equal(t, once.Row(i), twice.Row(i))
	}
}

func TestGeneralizeMonotoneCoarsening(t *testing.T) {
	ds := helpers.NumericDataset(t, []string{"v"}, [][]float64{{42}, {136}, {7}})
	engine := NewEngine(helpers.NewTestLogger())

	depthOne, err := engine.Generalize(ds, GeneralizationSpec{"v": 1})
	require.NoError(t, err)
	direct, err := engine.Generalize(ds, GeneralizationSpec{"v": 2})
	require.NoError(t, err)
	viaDepthOne, err := engine.Generalize(depthOne, GeneralizationSpec{"v": 2})
	require.NoError(t, err)

	// Depth 2 output is reachable by further generalizing the depth 1 output.
	for i := 0; i < ds.Len(); i++ {
		assert.Equal(t, direct.Row(i), viaDepthOne.Row(i))
	}
}

func TestGeneralizeRejectsNegativeDepth(t *testing.T) {
	ds := helpers.FiveRowDataset(t)
	engine := NewEngine(helpers.NewTestLogger())

	_, err := engine.Generalize(ds, GeneralizationSpec{"a": -1})
	require.Error(t, err)
	assert.True(t, errors.IsInvalidParameter(err))
}

func TestGeneralizeRejectsUnknownColumn(t *testing.T) {
	ds := helpers.FiveRowDataset(t)
	engine := NewEngine(helpers.NewTestLogger())

	_, err := engine.Generalize(ds, GeneralizationSpec{"missing": 1})
	require.Error(t, err)
	assert.True(t, errors.IsInvalidParameter(err))
}

func TestGeneralizeUnspecifiedColumnsPassThrough(t *testing.T) {
	ds := helpers.NumericDataset(t, []string{"a", "b"}, [][]float64{{42, 7}})
	engine := NewEngine(helpers.NewTestLogger())

	out, err := engine.Generalize(ds, GeneralizationSpec{"a": 1})
	require.NoError(t, err)
	assert.Equal(t, tabular.NumericValue(7), out.Row(0)[1])
}

func TestGeneralizeCategorical(t *testing.T) {
	schema, err := tabular.NewSchema(tabular.Column{Name: "city", Kind: tabular.KindCategorical})
	require.NoError(t, err)
	ds, err := tabular.NewDataset(schema, []tabular.Row{
		{tabular.CategoricalValue("lyon")},
		{tabular.CategoricalValue("turin")},
	})
	require.NoError(t, err)

	engine := NewEngine(helpers.NewTestLogger())

	// No taxonomy registered: depth beyond 0 is rejected.
	_, err = engine.Generalize(ds, GeneralizationSpec{"city": 1})
	require.Error(t, err)
	assert.True(t, errors.IsInvalidParameter(err))

	require.NoError(t, engine.RegisterTaxonomy("city", cityTaxonomy(t)))

	out, err := engine.Generalize(ds, GeneralizationSpec{"city": 1})
	require.NoError(t, err)
	assert.Equal(t, tabular.CategoricalValue("france"), out.Row(0)[0])
	assert.Equal(t, tabular.CategoricalValue("italy"), out.Row(1)[0])

	// Root level collapses every value to one category.
	out, err = engine.Generalize(ds, GeneralizationSpec{"city": 2})
	require.NoError(t, err)
	assert.Equal(t, tabular.CategoricalValue("world"), out.Row(0)[0])
	assert.Equal(t, tabular.CategoricalValue("world"), out.Row(1)[0])

	// Deeper than the tree is rejected.
	_, err = engine.Generalize(ds, GeneralizationSpec{"city": 3})
	require.Error(t, err)
	assert.True(t, errors.IsInvalidParameter(err))
}

func TestTaxonomy(t *testing.T) {
	taxonomy := cityTaxonomy(t)
	assert.Equal(t, 2, taxonomy.Height())
	assert.Equal(t, "world", taxonomy.Root())
	assert.True(t, taxonomy.Contains("lyon"))
	assert.False(t, taxonomy.Contains("paris"))

	label, err := taxonomy.Ancestor("lyon", 0)
	require.NoError(t, err)
	assert.Equal(t, "lyon", label)

	label, err = taxonomy.Ancestor("lyon", 1)
	require.NoError(t, err)
	assert.Equal(t, "france", label)

	// Re-applying a level is idempotent: france already sits at the target depth.
	label, err = taxonomy.Ancestor("france", 1)
	require.NoError(t, err)
	assert.Equal(t, "france", label)

	label, err = taxonomy.Ancestor("lyon", 2)
	require.NoError(t, err)
	assert.Equal(t, "world", label)

	_, err = taxonomy.Ancestor("lyon", 3)
	require.Error(t, err)
	_, err = taxonomy.Ancestor("lyon", -1)
	require.Error(t, err)
	_, err = taxonomy.Ancestor("paris", 1)
	require.Error(t, err)
}

func TestNewTaxonomyValidation(t *testing.T) {
	_, err := NewTaxonomy("", nil)
	require.Error(t, err)

	// Dangling parent
	_, err = NewTaxonomy("root", map[string]string{"a": "missing"})
	require.Error(t, err)

	// Cycle
	_, err = NewTaxonomy("root", map[string]string{"a": "b", "b": "a"})
	require.Error(t, err)

	// Root with a parent
	_, err = NewTaxonomy("root", map[string]string{"root": "a", "a": "root"})
	require.Error(t, err)
}

func TestClip(t *testing.T) {
	ds := helpers.NumericDataset(t, []string{"v"}, [][]float64{{-5}, {50}, {500}})
	engine := NewEngine(helpers.NewTestLogger())

	out, err := engine.Clip(ds, "v", 0, 100)
	require.NoError(t, err)
	assert.Equal(t, tabular.NumericValue(0), out.Row(0)[0])
	assert.Equal(t, tabular.NumericValue(50), out.Row(1)[0])
	assert.Equal(t, tabular.NumericValue(100), out.Row(2)[0])

	// Original untouched
	assert.Equal(t, tabular.NumericValue(-5), ds.Row(0)[0])

	_, err = engine.Clip(ds, "v", 10, 5)
	require.Error(t, err)
	assert.True(t, errors.IsInvalidParameter(err))

	_, err = engine.Clip(ds, "missing", 0, 1)
	require.Error(t, err)
}

func TestClipRejectsGeneralizedValues(t *testing.T) {
	ds := helpers.NumericDataset(t, []string{"v"}, [][]float64{{42}, {7}})
	engine := NewEngine(helpers.NewTestLogger())

	generalized, err := engine.Generalize(ds, GeneralizationSpec{"v": 1})
	require.NoError(t, err)

	// Intervals have no raw magnitude to compare against the bounds; a clip
	// after generalization must refuse rather than quietly rewrite them.
	_, err = engine.Clip(generalized, "v", 0, 100)
	require.Error(t, err)
	assert.True(t, errors.IsInvalidParameter(err))
	assert.Equal(t, tabular.IntervalValue(40, 50), generalized.Row(0)[0])
}
