package privacy

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/inferloop/privkit/pkg/errors"
)

// Mechanism answers numeric queries with Laplace noise calibrated to the
// query's sensitivity and the epsilon charged for the answer. The randomness
// is load-bearing: it is what provides the exp(epsilon) indistinguishability
// bound between neighboring datasets, so repeated calls with identical inputs
// intentionally return different outputs.
//
// The mechanism holds no state across calls beyond its injected Source.
type Mechanism struct {
	source Source
	logger *logrus.Logger
}

// NewLaplaceMechanism creates a Laplace mechanism drawing noise from the
// given source. A nil source defaults to a crypto-backed one.
func NewLaplaceMechanism(source Source, logger *logrus.Logger) *Mechanism {
	if source == nil {
		source = NewCryptoSource()
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Mechanism{source: source, logger: logger}
}

// Name returns the mechanism name
func (m *Mechanism) Name() string {
	return "laplace"
}

// NoiseScale returns the Laplace scale parameter b = sensitivity / epsilon
func (m *Mechanism) NoiseScale(sensitivity, epsilon float64) float64 {
	return sensitivity / epsilon
}

// AddNoise returns trueAnswer plus a sample from Laplace(0, sensitivity/epsilon).
// The exp(epsilon) ratio bound holds for any query whose answers on
// neighboring datasets differ by at most the supplied sensitivity; the caller
// is responsible for that bound actually holding.
func (m *Mechanism) AddNoise(trueAnswer, sensitivity, epsilon float64) (float64, error) {
	if err := checkSensitivity(sensitivity); err != nil {
		return 0, err
	}
	if err := checkEpsilon(epsilon); err != nil {
		return 0, err
	}
	scale := m.NoiseScale(sensitivity, epsilon)
	return trueAnswer + m.sampleLaplace(scale), nil
}

// sampleLaplace draws from Laplace(0, scale) by inverse transform:
// u < 0.5 maps to the negative branch, u >= 0.5 to the positive one.
func (m *Mechanism) sampleLaplace(scale float64) float64 {
	u := m.source.Uniform()
	if u < 0.5 {
		return scale * math.Log(2*u)
	}
	return -scale * math.Log(2*(1-u))
}

// checkEpsilon rejects a non-positive or non-finite privacy parameter.
// Values are never clamped; a clamped epsilon would misrepresent the
// guarantee actually delivered.
func checkEpsilon(epsilon float64) error {
	if epsilon <= 0 || math.IsInf(epsilon, 0) || math.IsNaN(epsilon) {
		return errors.WrapError(errors.ErrInvalidEpsilon, errors.ErrorTypeValidation,
			errors.CodeInvalidParameter, fmt.Sprintf("epsilon is %g", epsilon))
	}
	return nil
}

// checkSensitivity rejects a non-positive or non-finite sensitivity bound
func checkSensitivity(sensitivity float64) error {
	if sensitivity <= 0 || math.IsInf(sensitivity, 0) || math.IsNaN(sensitivity) {
		return errors.WrapError(errors.ErrInvalidSensitivity, errors.ErrorTypeValidation,
			errors.CodeInvalidParameter, fmt.Sprintf("sensitivity is %g", sensitivity))
	}
	return nil
}
