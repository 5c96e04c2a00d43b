package privacy

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/inferloop/privkit/pkg/errors"
)

// InvocationRecord is the immutable ledger entry for one mechanism call
type InvocationRecord struct {
	ID          string    `json:"id"`
	ScopeID     string    `json:"scope_id"`
	Query       string    `json:"query"`
	QueryKind   QueryKind `json:"query_kind"`
	Sensitivity float64   `json:"sensitivity"`
	Epsilon     float64   `json:"epsilon"`
	Output      float64   `json:"output"`
	Sequence    int       `json:"sequence"`
	Timestamp   time.Time `json:"timestamp"`
}

// Collector receives accountant events; satisfied by the observability layer
type Collector interface {
	BudgetCharged(spent, ceiling float64)
	ChargeDenied()
}

// Accountant is the scoped ledger of privacy budget spent across mechanism
// invocations. Total privacy loss composes sequentially: the epsilon spent in
// a scope is the sum of the epsilons of every charge recorded in it. Recorded
// spend never decreases; the only way back to zero is an explicit new scope,
// which is distinguishable in the ledger rather than overwriting history.
type Accountant struct {
	mu        sync.Mutex
	ceiling   float64 // <= 0 means unlimited
	spent     float64
	scopeID   string
	sequence  int
	ledger    []InvocationRecord
	logger    *logrus.Logger
	collector Collector
}

// NewAccountant creates an accountant enforcing the given epsilon ceiling.
// A ceiling of zero or less means unlimited, which is useful for exploratory
// use but unsafe as a production privacy guarantee.
func NewAccountant(ceiling float64, logger *logrus.Logger) *Accountant {
	if logger == nil {
		logger = logrus.New()
	}
	a := &Accountant{
		ceiling: ceiling,
		scopeID: uuid.NewString(),
		logger:  logger,
	}
	if !a.limited() {
		logger.Warn("Accountant created without a budget ceiling; unsafe for production privacy guarantees")
	}
	return a
}

// SetCollector attaches a metrics collector to the accountant
func (a *Accountant) SetCollector(c Collector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.collector = c
}

func (a *Accountant) limited() bool {
	return a.ceiling > 0 && !math.IsInf(a.ceiling, 1)
}

// Charge records one mechanism invocation against the current scope. The
// ceiling check and the recording happen inside a single critical section, so
// two concurrent charges cannot both succeed when their combined total would
// exceed the ceiling. A rejected charge leaves the recorded total and the
// ledger unchanged.
func (a *Accountant) Charge(epsilon float64, record InvocationRecord) error {
	if err := checkEpsilon(epsilon); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.limited() && a.spent+epsilon > a.ceiling {
		if a.collector != nil {
			a.collector.ChargeDenied()
		}
		return errors.NewBudgetExceeded(fmt.Sprintf(
			"charge of %g would exceed ceiling %g (spent %g)", epsilon, a.ceiling, a.spent))
	}

	a.spent += epsilon
	record.ID = uuid.NewString()
	record.ScopeID = a.scopeID
	record.Epsilon = epsilon
	record.Sequence = a.sequence
	record.Timestamp = time.Now().UTC()
	a.sequence++
	a.ledger = append(a.ledger, record)

	if a.collector != nil {
		a.collector.BudgetCharged(a.spent, a.ceiling)
	}

	a.logger.WithFields(logrus.Fields{
		"scope":   a.scopeID,
		"query":   record.Query,
		"epsilon": epsilon,
		"spent":   a.spent,
	}).Debug("Privacy budget charged")
	return nil
}

// Spent returns the epsilon consumed in the current scope
func (a *Accountant) Spent() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.spent
}

// Remaining returns the epsilon left under the ceiling. The second return is
// false for an unlimited accountant.
func (a *Accountant) Remaining() (float64, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.limited() {
		return 0, false
	}
	return math.Max(0, a.ceiling-a.spent), true
}

// ScopeID returns the current scope identifier
func (a *Accountant) ScopeID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.scopeID
}

// Ledger returns a copy of every invocation record, across all scopes, in
// charge order.
func (a *Accountant) Ledger() []InvocationRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]InvocationRecord, len(a.ledger))
	copy(out, a.ledger)
	return out
}

// NewScope starts a fresh budget scope and returns its identifier. The
// running total resets to zero while prior ledger entries are retained under
// their old scope IDs.
func (a *Accountant) NewScope() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	previous := a.scopeID
	a.scopeID = uuid.NewString()
	a.spent = 0

	a.logger.WithFields(logrus.Fields{
		"previous_scope": previous,
		"scope":          a.scopeID,
	}).Info("Started new accountant scope")
	return a.scopeID
}
