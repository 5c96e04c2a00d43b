package anonymity

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"github.com/inferloop/privkit/pkg/errors"
	"github.com/inferloop/privkit/pkg/tabular"
)

// lossFloor keeps the greedy score finite when a depth increment collapses
// no values at all.
const lossFloor = 1e-9

// SearchMinimalGeneralization searches the generalization-depth lattice for a
// spec under which the dataset is k-anonymous on the quasi-identifier set.
//
// Achieving k by deepening every column uniformly over-generalizes
// well-represented rows to fix a few outliers, and optimal generalization is
// NP-hard, so the search is greedy: starting from depth 0 everywhere it
// repeatedly deepens the column whose next increment buys the largest gain in
// minimum group size per unit of value range collapsed. Optimality is not
// guaranteed. The search stops as soon as the target k holds and reports
// NotFound once every column is exhausted at maxDepth; callers handling
// NotFound are expected to clip outliers, relax k, or accept the loss.
func (e *Engine) SearchMinimalGeneralization(ds *tabular.Dataset, qis *tabular.QuasiIdentifierSet, k, maxDepth int) (GeneralizationSpec, error) {
	if k < 1 {
		return nil, errors.WrapError(errors.ErrInvalidK, errors.ErrorTypeValidation,
			errors.CodeInvalidParameter, fmt.Sprintf("k is %d", k))
	}
	if maxDepth < 0 {
		return nil, errors.WrapError(errors.ErrInvalidDepth, errors.ErrorTypeValidation,
			errors.CodeInvalidParameter, fmt.Sprintf("maxDepth is %d", maxDepth))
	}

	columns := qis.Names()
	spec := make(GeneralizationSpec, len(columns))
	for _, col := range columns {
		spec[col] = 0
	}

	current := ds.Clone()
	curMin := MinGroupSize(e.classifier.Classify(current, qis))
	if ds.Len() == 0 || curMin >= k {
		e.observeSearch("found", 0)
		return spec, nil
	}

	// Each step increments exactly one depth, so the walk visits at most
	// len(columns)*maxDepth states before exhaustion.
	for step := 0; step < len(columns)*maxDepth; step++ {
		bestCol := ""
		bestScore := math.Inf(-1)
		var bestSpec GeneralizationSpec
		var bestDS *tabular.Dataset
		bestMin := 0

		for _, col := range columns {
			depth := spec[col]
			if depth >= e.maxColumnDepth(ds, col, maxDepth) {
				continue
			}
			candidate := spec.Clone()
			candidate[col] = depth + 1

			candDS, err := e.Generalize(ds, candidate)
			if err != nil {
				return nil, err
			}
			candMin := MinGroupSize(e.classifier.Classify(candDS, qis))

			lossDelta := e.columnLoss(ds, candDS, col) - e.columnLoss(ds, current, col)
			score := float64(candMin-curMin) / math.Max(lossDelta, lossFloor)
			if score > bestScore {
				bestCol = col
				bestScore = score
				bestSpec = candidate
				bestDS = candDS
				bestMin = candMin
			}
		}

		if bestCol == "" {
			break
		}

		spec = bestSpec
		current = bestDS
		curMin = bestMin

		e.logger.WithFields(logrus.Fields{
			"column":         bestCol,
			"depth":          spec[bestCol],
			"min_group_size": curMin,
			"k":              k,
		}).Debug("Generalization search step")

		if curMin >= k {
			loss := e.InformationLoss(ds, current, qis)
			e.logger.WithFields(logrus.Fields{
				"spec":             map[string]int(spec),
				"information_loss": loss,
			}).Info("Generalization search succeeded")
			e.observeSearch("found", loss)
			return spec, nil
		}
	}

	e.observeSearch("not_found", e.InformationLoss(ds, current, qis))
	return nil, errors.NewNotFound(fmt.Sprintf(
		"search exhausted at maxDepth %d without reaching k=%d (best min group size %d)",
		maxDepth, k, curMin))
}

func (e *Engine) observeSearch(outcome string, loss float64) {
	if e.observer != nil {
		e.observer.SearchCompleted(outcome, loss)
	}
}

// maxColumnDepth bounds the depth lattice per column: numeric columns stop at
// the caller-supplied maximum, categorical columns additionally at their
// taxonomy height. A categorical column with no registered taxonomy cannot be
// generalized at all.
func (e *Engine) maxColumnDepth(ds *tabular.Dataset, column string, maxDepth int) int {
	col, ok := ds.Schema().Column(column)
	if !ok {
		return 0
	}
	if col.Kind == tabular.KindCategorical {
		taxonomy, ok := e.taxonomies[column]
		if !ok {
			return 0
		}
		if taxonomy.Height() < maxDepth {
			return taxonomy.Height()
		}
	}
	return maxDepth
}

// columnLoss measures the information lost in one column as the fraction of
// its distinct values collapsed relative to the original dataset.
func (e *Engine) columnLoss(original, generalized *tabular.Dataset, column string) float64 {
	origDistinct := distinctCount(original, column)
	if origDistinct <= 1 {
		return 0
	}
	genDistinct := distinctCount(generalized, column)
	return 1 - float64(genDistinct)/float64(origDistinct)
}

// InformationLoss reports the mean per-column loss across the
// quasi-identifier set, in [0, 1].
func (e *Engine) InformationLoss(original, generalized *tabular.Dataset, qis *tabular.QuasiIdentifierSet) float64 {
	columns := qis.Names()
	losses := make([]float64, len(columns))
	for i, col := range columns {
		losses[i] = e.columnLoss(original, generalized, col)
	}
	return stat.Mean(losses, nil)
}

func distinctCount(ds *tabular.Dataset, column string) int {
	idx, ok := ds.Schema().ColumnIndex(column)
	if !ok {
		return 0
	}
	seen := make(map[string]struct{})
	for i := 0; i < ds.Len(); i++ {
		seen[ds.Row(i)[idx].String()] = struct{}{}
	}
	return len(seen)
}
