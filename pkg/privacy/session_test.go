package privacy

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inferloop/privkit/pkg/errors"
	"github.com/inferloop/privkit/pkg/tabular"
	"github.com/inferloop/privkit/tests/helpers"
)

func newTestSession(t *testing.T, ceiling float64) *Session {
	t.Helper()
	logger := helpers.NewTestLogger()
	return NewSession(
		NewSensitivityAnalyzer(logger),
		NewLaplaceMechanism(NewSeededSource(3), logger),
		NewAccountant(ceiling, logger),
		logger,
	)
}

func TestCountQuery(t *testing.T) {
	s := newTestSession(t, 10)
	ds := helpers.FiveRowDataset(t)

	noisy, err := s.Count("total_rows", ds, nil, 2)
	require.NoError(t, err)
	// Scale is 0.5 at sensitivity 1 and epsilon 2, so the answer lands near
	// the true count of 5 with overwhelming probability.
	assert.InDelta(t, 5, noisy, 15)

	helpers.AssertFloatEquals(t, 2, s.Accountant().Spent(), 1e-12)
}

func TestCountWithPredicate(t *testing.T) {
	s := newTestSession(t, 10)
	ds := helpers.FiveRowDataset(t)
	aIdx, ok := ds.Schema().ColumnIndex("a")
	require.True(t, ok)

	over40 := func(row tabular.Row) bool { return row[aIdx].Num > 40 }
	noisy, err := s.Count("rows_over_40", ds, over40, 2)
	require.NoError(t, err)
	// True count is 3 (values 42, 52, 73).
	assert.InDelta(t, 3, noisy, 15)
}

func TestAggregateRequiresDeclaredSensitivity(t *testing.T) {
	s := newTestSession(t, 10)

	_, err := s.Aggregate("mean_age", QueryKind("mean"), 41.2, 1)
	require.Error(t, err)
	assert.True(t, errors.IsUndeclaredSensitivity(err))
	assert.Equal(t, 0.0, s.Accountant().Spent(), "a refused query costs nothing")

	require.NoError(t, s.Analyzer().Declare(QueryKind("mean"), 0.5))
	noisy, err := s.Aggregate("mean_age", QueryKind("mean"), 41.2, 1)
	require.NoError(t, err)
	assert.False(t, math.IsNaN(noisy))
	helpers.AssertFloatEquals(t, 1, s.Accountant().Spent(), 1e-12)
}

func TestDeniedChargeReleasesNothing(t *testing.T) {
	s := newTestSession(t, 1)
	ds := helpers.FiveRowDataset(t)

	_, err := s.Count("q1", ds, nil, 0.75)
	require.NoError(t, err)

	noisy, err := s.Count("q2", ds, nil, 0.75)
	require.Error(t, err)
	assert.True(t, errors.IsBudgetExceeded(err))
	assert.Equal(t, 0.0, noisy)

	helpers.AssertFloatEquals(t, 0.75, s.Accountant().Spent(), 1e-12)
	assert.Len(t, s.Accountant().Ledger(), 1)
}

func TestReleaseRecordsLedgerEntry(t *testing.T) {
	s := newTestSession(t, 10)
	ds := helpers.FiveRowDataset(t)

	noisy, err := s.Count("total_rows", ds, nil, 1)
	require.NoError(t, err)

	ledger := s.Accountant().Ledger()
	require.Len(t, ledger, 1)
	assert.Equal(t, "total_rows", ledger[0].Query)
	assert.Equal(t, QueryCount, ledger[0].QueryKind)
	assert.Equal(t, 1.0, ledger[0].Sensitivity)
	assert.Equal(t, 1.0, ledger[0].Epsilon)
	assert.Equal(t, noisy, ledger[0].Output)
}

func TestReleaseRejectsInvalidEpsilon(t *testing.T) {
	s := newTestSession(t, 10)
	ds := helpers.FiveRowDataset(t)

	for _, eps := range []float64{0, -1, math.NaN()} {
		_, err := s.Count("q", ds, nil, eps)
		require.Error(t, err)
		assert.True(t, errors.IsInvalidParameter(err))
	}
	assert.Equal(t, 0.0, s.Accountant().Spent())
}

func TestSessionDefaults(t *testing.T) {
	s := NewSession(nil, nil, nil, nil)
	ds := helpers.FiveRowDataset(t)

	// Unlimited accountant, crypto noise source, count sensitivity built in.
	for i := 0; i < 5; i++ {
		_, err := s.Count("q", ds, nil, 1)
		require.NoError(t, err)
	}
	helpers.AssertFloatEquals(t, 5, s.Accountant().Spent(), 1e-12)
}

func TestNoiseVariesAcrossReleases(t *testing.T) {
	s := newTestSession(t, 0)
	ds := helpers.FiveRowDataset(t)

	a, err := s.Count("q", ds, nil, 0.1)
	require.NoError(t, err)
	b, err := s.Count("q", ds, nil, 0.1)
	require.NoError(t, err)
	assert.NotEqual(t, a, b, "independent draws answer the same query differently")
}

func TestCountSensitivityOverNeighboringDatasets(t *testing.T) {
	// Removing any single row from a dataset changes the true count of any
	// predicate by at most one, which is what justifies the fixed counting
	// sensitivity of 1 under the one-row neighboring relation.
	ds := helpers.FiveRowDataset(t)
	aIdx, ok := ds.Schema().ColumnIndex("a")
	require.True(t, ok)

	predicates := map[string]func(tabular.Row) bool{
		"all rows":     nil,
		"a over 40":    func(row tabular.Row) bool { return row[aIdx].Num > 40 },
		"a over 1000":  func(row tabular.Row) bool { return row[aIdx].Num > 1000 },
		"a exactly 42": func(row tabular.Row) bool { return row[aIdx].Num == 42 },
	}

	for drop := 0; drop < ds.Len(); drop++ {
		neighborRows := make([]tabular.Row, 0, ds.Len()-1)
		for i := 0; i < ds.Len(); i++ {
			if i != drop {
				neighborRows = append(neighborRows, ds.Row(i))
			}
		}
		neighbor, err := tabular.NewDataset(ds.Schema(), neighborRows)
		require.NoError(t, err)

		for name, predicate := range predicates {
			diff := countRows(ds, predicate) - countRows(neighbor, predicate)
			assert.LessOrEqual(t, math.Abs(float64(diff)), 1.0,
				"predicate %q, row %d removed", name, drop)
		}
	}
}
