package privacy

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/inferloop/privkit/pkg/errors"
)

// QueryKind identifies a class of queries for sensitivity lookup
type QueryKind string

// QueryCount is the counting-query kind: count the rows matching a predicate.
// Under the one-row neighboring-dataset model its sensitivity is exactly 1.
const QueryCount QueryKind = "count"

// SensitivityAnalyzer resolves the sensitivity bound for a query kind.
// Counting queries are built in; every other kind must be declared explicitly
// by the caller. The analyzer never assumes a bound for an unknown kind,
// since an incorrect sensitivity silently breaks the privacy guarantee.
type SensitivityAnalyzer struct {
	mu       sync.RWMutex
	declared map[QueryKind]float64
	logger   *logrus.Logger
}

// NewSensitivityAnalyzer creates an analyzer with the counting-query bound
// pre-declared.
func NewSensitivityAnalyzer(logger *logrus.Logger) *SensitivityAnalyzer {
	if logger == nil {
		logger = logrus.New()
	}
	return &SensitivityAnalyzer{
		declared: map[QueryKind]float64{QueryCount: 1},
		logger:   logger,
	}
}

// Declare registers an explicit sensitivity bound for a query kind. The bound
// is supplied, not inferred; it must be strictly positive and finite.
func (a *SensitivityAnalyzer) Declare(kind QueryKind, bound float64) error {
	if kind == "" {
		return errors.NewInvalidParameter("query kind must not be empty")
	}
	if err := checkSensitivity(bound); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.declared[kind] = bound

	a.logger.WithFields(logrus.Fields{
		"query_kind":  string(kind),
		"sensitivity": bound,
	}).Debug("Declared sensitivity bound")
	return nil
}

// Sensitivity returns the bound for a query kind, or UndeclaredSensitivity
// for a kind it does not recognize.
func (a *SensitivityAnalyzer) Sensitivity(kind QueryKind) (float64, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	bound, ok := a.declared[kind]
	if !ok {
		return 0, errors.NewUndeclaredSensitivity(string(kind))
	}
	return bound, nil
}

// MustSensitivity is Sensitivity for kinds known to be declared; it panics
// otherwise and exists for static kinds like QueryCount.
func (a *SensitivityAnalyzer) MustSensitivity(kind QueryKind) float64 {
	bound, err := a.Sensitivity(kind)
	if err != nil {
		panic(fmt.Sprintf("sensitivity for %q not declared", kind))
	}
	return bound
}
