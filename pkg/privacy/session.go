package privacy

import (
	"github.com/sirupsen/logrus"

	"github.com/inferloop/privkit/pkg/tabular"
)

// Session wires analyzer, mechanism and accountant together for one release
// scope: sensitivity resolution feeds the mechanism, and every released
// answer is charged to the accountant before it leaves the session. A denied
// charge means no answer is released at all; partial operation would violate
// the cumulative guarantee.
type Session struct {
	analyzer   *SensitivityAnalyzer
	mechanism  *Mechanism
	accountant *Accountant
	logger     *logrus.Logger
}

// NewSession creates a query-answering session. Nil collaborators default to
// a fresh analyzer, a crypto-sourced Laplace mechanism, and an unlimited
// accountant.
func NewSession(analyzer *SensitivityAnalyzer, mechanism *Mechanism, accountant *Accountant, logger *logrus.Logger) *Session {
	if logger == nil {
		logger = logrus.New()
	}
	if analyzer == nil {
		analyzer = NewSensitivityAnalyzer(logger)
	}
	if mechanism == nil {
		mechanism = NewLaplaceMechanism(nil, logger)
	}
	if accountant == nil {
		accountant = NewAccountant(0, logger)
	}
	return &Session{
		analyzer:   analyzer,
		mechanism:  mechanism,
		accountant: accountant,
		logger:     logger,
	}
}

// Accountant returns the session's accountant
func (s *Session) Accountant() *Accountant {
	return s.accountant
}

// Analyzer returns the session's sensitivity analyzer
func (s *Session) Analyzer() *SensitivityAnalyzer {
	return s.analyzer
}

// Count answers a counting query over the dataset with Laplace noise at the
// given epsilon. A nil predicate counts every row. Adding or removing one row
// changes the true count by at most one, so the counting sensitivity of 1
// always holds for the unbounded neighboring relation.
func (s *Session) Count(query string, ds *tabular.Dataset, predicate func(tabular.Row) bool, epsilon float64) (float64, error) {
	return s.release(query, QueryCount, float64(countRows(ds, predicate)), epsilon)
}

// countRows evaluates the true answer of a counting query. A nil predicate
// matches every row.
func countRows(ds *tabular.Dataset, predicate func(tabular.Row) bool) int {
	count := 0
	for i := 0; i < ds.Len(); i++ {
		if predicate == nil || predicate(ds.Row(i)) {
			count++
		}
	}
	return count
}

// Aggregate answers an arbitrary numeric aggregate whose sensitivity has been
// declared on the session's analyzer. Unknown kinds are refused with
// UndeclaredSensitivity; the session never guesses a bound.
func (s *Session) Aggregate(query string, kind QueryKind, trueAnswer, epsilon float64) (float64, error) {
	return s.release(query, kind, trueAnswer, epsilon)
}

// release resolves sensitivity, draws the noisy answer, and charges the
// accountant. The noisy answer is computed before the charge but returned
// only if the charge succeeds.
func (s *Session) release(query string, kind QueryKind, trueAnswer, epsilon float64) (float64, error) {
	sensitivity, err := s.analyzer.Sensitivity(kind)
	if err != nil {
		return 0, err
	}
	noisy, err := s.mechanism.AddNoise(trueAnswer, sensitivity, epsilon)
	if err != nil {
		return 0, err
	}
	record := InvocationRecord{
		Query:       query,
		QueryKind:   kind,
		Sensitivity: sensitivity,
		Output:      noisy,
	}
	if err := s.accountant.Charge(epsilon, record); err != nil {
		return 0, err
	}

	s.logger.WithFields(logrus.Fields{
		"query":      query,
		"query_kind": string(kind),
		"epsilon":    epsilon,
		"mechanism":  s.mechanism.Name(),
	}).Info("Released noisy answer")
	return noisy, nil
}
