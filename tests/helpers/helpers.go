// Package helpers provides shared test scaffolding: quiet loggers, float
// assertions, and fixture datasets reused across package tests.
package helpers

import (
	"math"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inferloop/privkit/pkg/tabular"
)

// NewTestLogger returns a logger that stays quiet unless a test fails loudly
// enough to need it.
func NewTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	logger.SetFormatter(&logrus.TextFormatter{DisableColors: true, FullTimestamp: true})
	return logger
}

// AssertFloatEquals asserts that two floats are equal within tolerance
func AssertFloatEquals(t *testing.T, expected, actual, tolerance float64, msgAndArgs ...interface{}) {
	t.Helper()
	if math.IsNaN(expected) && math.IsNaN(actual) {
		return
	}
	assert.InDelta(t, expected, actual, tolerance, msgAndArgs...)
}

// NumericSchema builds a schema of numeric columns with the given names
func NumericSchema(t *testing.T, names ...string) *tabular.Schema {
	t.Helper()
	columns := make([]tabular.Column, len(names))
	for i, name := range names {
		columns[i] = tabular.Column{Name: name, Kind: tabular.KindNumeric}
	}
	schema, err := tabular.NewSchema(columns...)
	require.NoError(t, err)
	return schema
}

// NumericDataset builds a dataset of numeric rows over the given column names
func NumericDataset(t *testing.T, names []string, rows [][]float64) *tabular.Dataset {
	t.Helper()
	schema := NumericSchema(t, names...)
	tabRows := make([]tabular.Row, len(rows))
	for i, row := range rows {
		require.Len(t, row, len(names))
		fields := make(tabular.Row, len(row))
		for j, v := range row {
			fields[j] = tabular.NumericValue(v)
		}
		tabRows[i] = fields
	}
	ds, err := tabular.NewDataset(schema, tabRows)
	require.NoError(t, err)
	return ds
}

// FiveRowDataset is the worked three-column example: five pairwise-distinct
// rows that stay pairwise distinct even after rounding each column to the
// nearest ten.
func FiveRowDataset(t *testing.T) *tabular.Dataset {
	t.Helper()
	return NumericDataset(t,
		[]string{"a", "b", "c"},
		[][]float64{
			{42, 4, 25},
			{52, 24, 94},
			{36, 31, 57},
			{24, 2, 62},
			{73, 3, 70},
		})
}

// QIS builds a quasi-identifier set over the dataset's schema
func QIS(t *testing.T, ds *tabular.Dataset, names ...string) *tabular.QuasiIdentifierSet {
	t.Helper()
	qis, err := tabular.NewQuasiIdentifierSet(ds.Schema(), names...)
	require.NoError(t, err)
	return qis
}
