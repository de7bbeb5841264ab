package propensity

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

var (
	// ErrNotFitted is returned when predicting with a model that has not been fitted.
	ErrNotFitted = errors.New("model is not fitted")

	// ErrShape is returned when the design matrix and labels disagree in size.
	ErrShape = errors.New("design matrix shape mismatch")

	// ErrSingular is returned when the Newton system cannot be solved.
	ErrSingular = errors.New("penalised hessian is not positive definite")
)

// Classifier is a binary probabilistic classifier.
type Classifier interface {
	// Fit trains on rows X with labels y in {0, 1}.
	Fit(X [][]float64, y []float64) error
	// PredictProba returns p(y=1) for each row of X.
	PredictProba(X [][]float64) []float64
}

var _ Classifier = (*LogisticRegression)(nil)

// LogisticRegression is an L2-penalised binary logistic regression.
//
// The fitted parameters minimise
//
//	0.5·‖w‖² + C·Σᵢ [log(1+exp(zᵢ)) − yᵢ·zᵢ],  zᵢ = b + w·xᵢ
//
// Fitting starts from all-zero parameters and uses no randomness, so equal
// inputs always produce equal parameters.
type LogisticRegression struct {
	cfg Config

	coef      []float64
	intercept float64
	nIter     int
	converged bool
	fitted    bool
}

// NewLogisticRegression creates an unfitted model.
func NewLogisticRegression(cfg Config) *LogisticRegression {
	return &LogisticRegression{cfg: cfg}
}

// Coef returns a copy of the fitted feature weights.
func (m *LogisticRegression) Coef() []float64 { return slices.Clone(m.coef) }

// Intercept returns the fitted bias.
func (m *LogisticRegression) Intercept() float64 { return m.intercept }

// NIter returns the number of solver iterations of the last fit.
func (m *LogisticRegression) NIter() int { return m.nIter }

// Converged reports whether the last fit reached the tolerance within MaxIter.
func (m *LogisticRegression) Converged() bool { return m.converged }

// Fit trains the model.
func (m *LogisticRegression) Fit(X [][]float64, y []float64) error {
	if err := m.cfg.Validate(); err != nil {
		return err
	}
	if len(X) == 0 {
		return fmt.Errorf("%w: no rows", ErrShape)
	}
	if len(X) != len(y) {
		return fmt.Errorf("%w: %d rows, %d labels", ErrShape, len(X), len(y))
	}
	d := len(X[0])
	if d == 0 && !m.cfg.FitIntercept {
		return fmt.Errorf("%w: no features and no intercept", ErrShape)
	}
	for i, row := range X {
		if len(row) != d {
			return fmt.Errorf("%w: row %d has %d features, want %d", ErrShape, i, len(row), d)
		}
	}

	p := newProblem(X, y, m.cfg)
	var (
		theta []float64
		res   solveResult
		err   error
	)
	switch m.cfg.Solver {
	case SolverGradientDescent:
		theta, res = p.gradientDescent()
	default:
		theta, res, err = p.newton()
		if err != nil {
			return err
		}
	}

	m.intercept, m.coef = p.split(theta)
	m.nIter = res.iterations
	m.converged = res.converged
	m.fitted = true
	return nil
}

// PredictProba returns p(y=1) for each row of X. It returns nil if the model
// is not fitted.
func (m *LogisticRegression) PredictProba(X [][]float64) []float64 {
	if !m.fitted {
		return nil
	}
	out := make([]float64, len(X))
	for i, row := range X {
		z := m.intercept
		for j, v := range row {
			z += m.coef[j] * v
		}
		out[i] = sigmoid(z)
	}
	return out
}

// Predict returns hard 0/1 labels at the 0.5 threshold.
func (m *LogisticRegression) Predict(X [][]float64) ([]float64, error) {
	if !m.fitted {
		return nil, ErrNotFitted
	}
	proba := m.PredictProba(X)
	out := make([]float64, len(proba))
	for i, p := range proba {
		if p >= 0.5 {
			out[i] = 1
		}
	}
	return out, nil
}

// sigmoid is the logistic function, evaluated without overflow for large |z|.
func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// softplus computes log(1+exp(z)) without overflow.
func softplus(z float64) float64 {
	if z > 0 {
		return z + math.Log1p(math.Exp(-z))
	}
	return math.Log1p(math.Exp(z))
}
