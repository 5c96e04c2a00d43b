package anonymity

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/inferloop/privkit/pkg/errors"
	"github.com/inferloop/privkit/pkg/tabular"
)

// GeneralizationSpec maps column names to generalization depths. Depth 0 is
// the identity; each additional depth is a weak coarsening of the previous
// one, so generalization is order-preserving and idempotent per level.
type GeneralizationSpec map[string]int

// Clone returns an independent copy of the spec
func (s GeneralizationSpec) Clone() GeneralizationSpec {
	dup := make(GeneralizationSpec, len(s))
	for col, depth := range s {
		dup[col] = depth
	}
	return dup
}

// SearchObserver receives the outcome of each generalization search;
// satisfied by the observability layer.
type SearchObserver interface {
	SearchCompleted(outcome string, informationLoss float64)
}

// Engine applies per-column generalization functions and searches the
// generalization-depth lattice for a spec meeting a target k. Engines are
// read-only after construction apart from taxonomy and observer registration,
// which is expected to happen before any concurrent use.
type Engine struct {
	logger     *logrus.Logger
	classifier *Classifier
	taxonomies map[string]*Taxonomy
	observer   SearchObserver
}

// NewEngine creates a generalization engine
func NewEngine(logger *logrus.Logger) *Engine {
	if logger == nil {
		logger = logrus.New()
	}
	return &Engine{
		logger:     logger,
		classifier: NewClassifier(logger),
		taxonomies: make(map[string]*Taxonomy),
	}
}

// RegisterTaxonomy attaches a categorical hierarchy to a column. A column
// without a taxonomy cannot be generalized beyond depth 0.
func (e *Engine) RegisterTaxonomy(column string, taxonomy *Taxonomy) error {
	if taxonomy == nil {
		return errors.NewInvalidParameter("taxonomy must not be nil")
	}
	e.taxonomies[column] = taxonomy
	return nil
}

// SetObserver attaches a search outcome observer to the engine
func (e *Engine) SetObserver(observer SearchObserver) {
	e.observer = observer
}

// Generalize produces a new, independently-owned dataset with each specified
// column generalized to its configured depth. Columns not named in the spec
// pass through unchanged; the input dataset is never mutated.
func (e *Engine) Generalize(ds *tabular.Dataset, spec GeneralizationSpec) (*tabular.Dataset, error) {
	schema := ds.Schema()
	for column, depth := range spec {
		if depth < 0 {
			return nil, errors.WrapError(errors.ErrInvalidDepth, errors.ErrorTypeValidation,
				errors.CodeInvalidParameter,
				fmt.Sprintf("column %q has depth %d", column, depth))
		}
		if _, ok := schema.Column(column); !ok {
			return nil, errors.WrapError(errors.ErrUnknownColumn, errors.ErrorTypeValidation,
				errors.CodeInvalidParameter, fmt.Sprintf("column %q", column))
		}
	}

	rows := make([]tabular.Row, ds.Len())
	for i := 0; i < ds.Len(); i++ {
		row := ds.Row(i)
		for column, depth := range spec {
			idx, _ := schema.ColumnIndex(column)
			generalized, err := e.generalizeValue(row[idx], column, depth)
			if err != nil {
				return nil, err
			}
			row[idx] = generalized
		}
		rows[i] = row
	}
	return tabular.NewDataset(schema, rows)
}

// generalizeValue applies the per-type generalization function at the given
// depth. Numeric values round down to the nearest multiple of 10^depth and
// are reported as the containing interval; categorical values roll up the
// registered taxonomy.
func (e *Engine) generalizeValue(v tabular.Value, column string, depth int) (tabular.Value, error) {
	if depth == 0 {
		return v, nil
	}
	switch v.Kind {
	case tabular.KindNumeric, tabular.KindInterval:
		base := v.Num
		if v.Kind == tabular.KindInterval {
			// Re-generalizing prior output coarsens from its lower bound.
			base = v.Lo
		}
		width := math.Pow(10, float64(depth))
		lo := math.Floor(base/width) * width
		return tabular.IntervalValue(lo, lo+width), nil
	case tabular.KindCategorical:
		taxonomy, ok := e.taxonomies[column]
		if !ok {
			return tabular.Value{}, errors.NewInvalidParameter(
				fmt.Sprintf("no taxonomy registered for categorical column %q", column))
		}
		label, err := taxonomy.Ancestor(v.Str, depth)
		if err != nil {
			return tabular.Value{}, err
		}
		return tabular.CategoricalValue(label), nil
	default:
		return tabular.Value{}, errors.NewInvalidParameter(
			fmt.Sprintf("column %q has unsupported value kind %s", column, v.Kind))
	}
}

// Clip replaces numeric values outside [lower, upper] with the nearest bound.
// It is an optional pre-pass targeting outliers that would otherwise force
// excessive generalization depth; the search never applies it automatically,
// since bound choice is a policy decision with utility tradeoffs.
func (e *Engine) Clip(ds *tabular.Dataset, column string, lower, upper float64) (*tabular.Dataset, error) {
	if math.IsNaN(lower) || math.IsNaN(upper) || lower > upper {
		return nil, errors.WrapError(errors.ErrInvalidBounds, errors.ErrorTypeValidation,
			errors.CodeInvalidParameter,
			fmt.Sprintf("bounds [%g, %g]", lower, upper))
	}
	schema := ds.Schema()
	col, ok := schema.Column(column)
	if !ok {
		return nil, errors.WrapError(errors.ErrUnknownColumn, errors.ErrorTypeValidation,
			errors.CodeInvalidParameter, fmt.Sprintf("column %q", column))
	}
	if col.Kind != tabular.KindNumeric {
		return nil, errors.NewInvalidParameter(
			fmt.Sprintf("column %q is %s, clipping requires numeric", column, col.Kind))
	}
	idx, _ := schema.ColumnIndex(column)

	clipped := 0
	rows := make([]tabular.Row, ds.Len())
	for i := 0; i < ds.Len(); i++ {
		row := ds.Row(i)
		v := row[idx]
		if v.Kind == tabular.KindInterval {
			// Generalized output is past the point where outlier bounds
			// make sense; clipping applies to raw values only.
			return nil, errors.NewInvalidParameter(fmt.Sprintf(
				"column %q row %d holds interval %s, clipping applies to raw numeric values", column, i, v))
		}
		if v.Num < lower {
			row[idx] = tabular.NumericValue(lower)
			clipped++
		} else if v.Num > upper {
			row[idx] = tabular.NumericValue(upper)
			clipped++
		}
		rows[i] = row
	}

	if clipped > 0 {
		e.logger.WithFields(logrus.Fields{
			"column":  column,
			"clipped": clipped,
			"lower":   lower,
			"upper":   upper,
		}).Info("Clipped outliers")
	}
	return tabular.NewDataset(schema, rows)
}
