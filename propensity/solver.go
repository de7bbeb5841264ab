package propensity

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

const (
	// maxHalvings bounds the backtracking line search of a Newton step.
	maxHalvings = 40
	// maxJitterAttempts bounds diagonal regularisation retries when the
	// Hessian is numerically not positive definite.
	maxJitterAttempts = 6
)

type solveResult struct {
	iterations int
	converged  bool
}

// problem is the penalised logistic objective over a fixed design matrix.
// When an intercept is fitted it occupies column 0 of x and is not penalised.
type problem struct {
	x       *mat.Dense
	y       []float64
	n, p    int
	offset  int
	penalty []float64
	cfg     Config
}

func newProblem(X [][]float64, y []float64, cfg Config) *problem {
	n, d := len(X), len(X[0])
	offset := 0
	if cfg.FitIntercept {
		offset = 1
	}
	p := d + offset

	data := make([]float64, n*p)
	for i, row := range X {
		r := data[i*p : (i+1)*p]
		if offset == 1 {
			r[0] = 1
		}
		copy(r[offset:], row)
	}

	penalty := make([]float64, p)
	for j := offset; j < p; j++ {
		penalty[j] = 1
	}

	return &problem{
		x:       mat.NewDense(n, p, data),
		y:       y,
		n:       n,
		p:       p,
		offset:  offset,
		penalty: penalty,
		cfg:     cfg,
	}
}

// split separates the intercept from the feature weights.
func (pr *problem) split(theta []float64) (float64, []float64) {
	coef := make([]float64, pr.p-pr.offset)
	copy(coef, theta[pr.offset:])
	if pr.offset == 1 {
		return theta[0], coef
	}
	return 0, coef
}

func (pr *problem) linear(theta []float64) []float64 {
	z := mat.NewVecDense(pr.n, nil)
	z.MulVec(pr.x, mat.NewVecDense(pr.p, theta))
	return z.RawVector().Data
}

func (pr *problem) objective(theta []float64) float64 {
	z := pr.linear(theta)
	loss := 0.0
	for i, zi := range z {
		loss += softplus(zi) - pr.y[i]*zi
	}
	reg := 0.0
	for j, t := range theta {
		reg += pr.penalty[j] * t * t
	}
	return 0.5*reg + pr.cfg.C*loss
}

// gradient returns the gradient of the objective and the fitted
// probabilities at theta.
func (pr *problem) gradient(theta []float64) ([]float64, []float64) {
	z := pr.linear(theta)
	prob := make([]float64, pr.n)
	resid := make([]float64, pr.n)
	for i, zi := range z {
		prob[i] = sigmoid(zi)
		resid[i] = prob[i] - pr.y[i]
	}

	g := mat.NewVecDense(pr.p, nil)
	g.MulVec(pr.x.T(), mat.NewVecDense(pr.n, resid))
	grad := g.RawVector().Data
	for j := range grad {
		grad[j] = pr.cfg.C*grad[j] + pr.penalty[j]*theta[j]
	}
	return grad, prob
}

// hessian returns diag(penalty) + C·Xᵀ·diag(p(1-p))·X.
func (pr *problem) hessian(prob []float64) *mat.SymDense {
	xs := mat.DenseCopyOf(pr.x)
	for i := range pr.n {
		s := math.Sqrt(prob[i] * (1 - prob[i]))
		row := xs.RawRowView(i)
		for j := range row {
			row[j] *= s
		}
	}

	h := mat.NewSymDense(pr.p, nil)
	h.SymOuterK(pr.cfg.C, xs.T())
	for j := range pr.p {
		h.SetSym(j, j, h.At(j, j)+pr.penalty[j])
	}
	return h
}

// newtonStep solves H·step = g, adding diagonal jitter if the factorisation
// fails numerically.
func (pr *problem) newtonStep(h *mat.SymDense, grad []float64) ([]float64, error) {
	var chol mat.Cholesky
	if !chol.Factorize(h) {
		jitter := 1e-10 * (1 + mat.Trace(h)/float64(pr.p))
		ok := false
		for range maxJitterAttempts {
			hj := mat.NewSymDense(pr.p, nil)
			hj.CopySym(h)
			for j := range pr.p {
				hj.SetSym(j, j, hj.At(j, j)+jitter)
			}
			if chol.Factorize(hj) {
				ok = true
				break
			}
			jitter *= 100
		}
		if !ok {
			return nil, ErrSingular
		}
	}

	var step mat.VecDense
	if err := chol.SolveVecTo(&step, mat.NewVecDense(pr.p, grad)); err != nil {
		return nil, ErrSingular
	}
	return step.RawVector().Data, nil
}

func (pr *problem) newton() ([]float64, solveResult, error) {
	theta := make([]float64, pr.p)
	cand := make([]float64, pr.p)

	for it := range pr.cfg.MaxIter {
		grad, prob := pr.gradient(theta)
		if maxAbs(grad) <= pr.cfg.Tol {
			return theta, solveResult{iterations: it, converged: true}, nil
		}

		step, err := pr.newtonStep(pr.hessian(prob), grad)
		if err != nil {
			return nil, solveResult{}, err
		}

		f0 := pr.objective(theta)
		t := 1.0
		accepted := false
		for range maxHalvings {
			for j := range theta {
				cand[j] = theta[j] - t*step[j]
			}
			if pr.objective(cand) <= f0 {
				accepted = true
				break
			}
			t /= 2
		}
		if !accepted {
			// No descent left at floating point resolution.
			return theta, solveResult{iterations: it, converged: false}, nil
		}
		copy(theta, cand)
	}

	grad, _ := pr.gradient(theta)
	return theta, solveResult{iterations: pr.cfg.MaxIter, converged: maxAbs(grad) <= pr.cfg.Tol}, nil
}

// gradientDescent minimises the row-averaged objective with a fixed step.
func (pr *problem) gradientDescent() ([]float64, solveResult) {
	theta := make([]float64, pr.p)
	scale := pr.cfg.LearningRate / float64(pr.n)

	for it := range pr.cfg.MaxIter {
		grad, _ := pr.gradient(theta)
		if maxAbs(grad)/float64(pr.n) <= pr.cfg.Tol {
			return theta, solveResult{iterations: it, converged: true}
		}
		for j := range theta {
			theta[j] -= scale * grad[j]
		}
	}

	grad, _ := pr.gradient(theta)
	return theta, solveResult{
		iterations: pr.cfg.MaxIter,
		converged:  maxAbs(grad)/float64(pr.n) <= pr.cfg.Tol,
	}
}

func maxAbs(v []float64) float64 {
	m := 0.0
	for _, x := range v {
		if a := math.Abs(x); a > m {
			m = a
		}
	}
	return m
}
