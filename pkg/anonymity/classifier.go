package anonymity

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/inferloop/privkit/pkg/errors"
	"github.com/inferloop/privkit/pkg/tabular"
)

// Classifier partitions dataset rows into equivalence classes sharing
// identical projections on a quasi-identifier set. It holds no mutable state
// and is safe for concurrent use.
type Classifier struct {
	logger *logrus.Logger
}

// NewClassifier creates a new equivalence classifier
func NewClassifier(logger *logrus.Logger) *Classifier {
	if logger == nil {
		logger = logrus.New()
	}
	return &Classifier{logger: logger}
}

// Classify groups row indices by their quasi-identifier projection. The
// grouping is built in a single pass over the dataset keyed on the projected
// tuple, never by re-querying per row.
func (c *Classifier) Classify(ds *tabular.Dataset, qis *tabular.QuasiIdentifierSet) map[string][]int {
	classes := make(map[string][]int)
	for i := 0; i < ds.Len(); i++ {
		key := ds.ProjectionKey(i, qis)
		classes[key] = append(classes[key], i)
	}
	return classes
}

// MinGroupSize returns the cardinality of the smallest equivalence class,
// or 0 when there are no classes.
func MinGroupSize(classes map[string][]int) int {
	min := 0
	for _, indices := range classes {
		if min == 0 || len(indices) < min {
			min = len(indices)
		}
	}
	return min
}

// IsKAnonymous reports whether every equivalence class induced by the
// quasi-identifier set has at least k members. An empty dataset is vacuously
// k-anonymous: there is no class below the bound.
func (c *Classifier) IsKAnonymous(ds *tabular.Dataset, qis *tabular.QuasiIdentifierSet, k int) (bool, error) {
	if k < 1 {
		return false, errors.WrapError(errors.ErrInvalidK, errors.ErrorTypeValidation,
			errors.CodeInvalidParameter, fmt.Sprintf("k is %d", k))
	}
	if ds.Len() == 0 {
		return true, nil
	}
	classes := c.Classify(ds, qis)
	minSize := MinGroupSize(classes)

	c.logger.WithFields(logrus.Fields{
		"rows":           ds.Len(),
		"classes":        len(classes),
		"min_group_size": minSize,
		"k":              k,
	}).Debug("k-anonymity check")

	return minSize >= k, nil
}
