package propensity

import (
	"errors"
	"fmt"
)

// Solver selects the optimisation routine used to fit the logistic model.
type Solver int

const (
	// SolverNewton fits by Newton-Raphson (iteratively reweighted least
	// squares) with a Cholesky solve of the penalised Hessian.
	SolverNewton Solver = iota
	// SolverGradientDescent fits by full-batch gradient descent.
	SolverGradientDescent
)

func (s Solver) String() string {
	switch s {
	case SolverNewton:
		return "newton"
	case SolverGradientDescent:
		return "gradient-descent"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// ParseSolver maps a solver name to its Solver.
func ParseSolver(name string) (Solver, error) {
	switch name {
	case "newton", "newton-cholesky", "":
		return SolverNewton, nil
	case "gradient-descent", "gd":
		return SolverGradientDescent, nil
	default:
		return 0, fmt.Errorf("%w: unknown solver %q", ErrInvalidConfig, name)
	}
}

// ErrInvalidConfig is returned for out-of-range estimator settings.
var ErrInvalidConfig = errors.New("invalid estimator config")

// Config holds the classifier hyperparameters.
//
// It is passed explicitly to NewEstimator; there are no package-level
// defaults that a fit could silently depend on.
type Config struct {
	// Solver is the optimisation routine.
	Solver Solver

	// MaxIter bounds the number of solver iterations.
	MaxIter int

	// Tol stops the solver once the largest absolute gradient component of
	// the penalised objective falls below it.
	Tol float64

	// C is the inverse L2 regularisation strength. Smaller values mean
	// stronger regularisation. The intercept is never penalised.
	C float64

	// FitIntercept adds an unpenalised bias term.
	FitIntercept bool

	// LearningRate is the step size of SolverGradientDescent. It is ignored
	// by SolverNewton.
	LearningRate float64
}

// DefaultConfig returns the defaults: L2-penalised logistic regression with
// C=1, an intercept and a budget of 1000 iterations.
func DefaultConfig() Config {
	return Config{
		Solver:       SolverNewton,
		MaxIter:      1000,
		Tol:          1e-4,
		C:            1.0,
		FitIntercept: true,
		LearningRate: 0.1,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Solver != SolverNewton && c.Solver != SolverGradientDescent {
		return fmt.Errorf("%w: solver %s", ErrInvalidConfig, c.Solver)
	}
	if c.MaxIter <= 0 {
		return fmt.Errorf("%w: max_iter must be positive, got %d", ErrInvalidConfig, c.MaxIter)
	}
	if !(c.Tol >= 0) {
		return fmt.Errorf("%w: tol must be non-negative, got %v", ErrInvalidConfig, c.Tol)
	}
	if !(c.C > 0) {
		return fmt.Errorf("%w: C must be positive, got %v", ErrInvalidConfig, c.C)
	}
	if c.Solver == SolverGradientDescent && !(c.LearningRate > 0) {
		return fmt.Errorf("%w: learning rate must be positive, got %v", ErrInvalidConfig, c.LearningRate)
	}
	return nil
}
