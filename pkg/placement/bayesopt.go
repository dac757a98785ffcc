package placement

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat/distuv"
)

// Optimizer is the ask/observe contract both CMA-ES and Bayesian
// optimization satisfy, letting the caller swap strategies without
// touching the evaluation loop.
type Optimizer interface {
	// Ask returns the next batch of candidate vectors to evaluate.
	Ask() []Vector
	// Observe reports the objective value for each vector returned by the
	// most recent Ask call, in the same order.
	Observe(costs []float64)
	// Best returns the best vector and cost seen so far.
	Best() (Vector, float64)
}

// BayesOpt drives the search with a Latin-hypercube initial design followed
// by Gaussian-process batches proposed via a Kriging-Believer qEI
// approximation: EI is maximized sequentially, and each chosen point's
// hallucinated (predicted-mean) observation is folded into the model
// before picking the next, so a whole batch can be proposed without
// waiting on real evaluations. Falls back to a fresh Latin-hypercube
// batch if the Gaussian process fails to factorize (an ill-conditioned
// or degenerate observation set).
type BayesOpt struct {
	bounds    Bounds
	batchSize int
	initSize  int
	rng       *rand.Rand

	observedX [][]float64 // normalized to [0,1]^dim
	observedY []float64
	pending   []Vector

	bestVec  Vector
	bestCost float64

	lengthScale float64
	noise       float64
}

// BayesOptConfig tunes BayesOpt.
type BayesOptConfig struct {
	BatchSize int
	Seed      uint64
}

// DefaultBayesOptConfig proposes 8 points per post-initial batch, matching
// the driver's documented default.
func DefaultBayesOptConfig() BayesOptConfig {
	return BayesOptConfig{BatchSize: 8}
}

// NewBayesOpt seeds the optimizer with a Latin-hypercube initial design of
// 5*dim points, the full design evaluated directly as the first batch.
func NewBayesOpt(init Vector, bounds Bounds, cfg BayesOptConfig) *BayesOpt {
	dim := len(init.Data)

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBayesOptConfig().BatchSize
	}

	b := &BayesOpt{
		bounds:      bounds,
		batchSize:   batchSize,
		initSize:    5 * dim,
		rng:         rand.New(rand.NewSource(int64(cfg.Seed))),
		bestVec:     cloneVec(init),
		bestCost:    math.Inf(1),
		lengthScale: 0.3,
		noise:       1e-6,
	}

	b.pending = latinHypercubeBatch(b.initSize, bounds, b.rng)

	return b
}

// Ask returns the pending batch of candidates.
func (b *BayesOpt) Ask() []Vector {
	return b.pending
}

// Observe records the batch's costs, updates the incumbent, and proposes
// the next batch. The initial design's observations are attached directly;
// every later batch comes from the Gaussian-process/qEI acquisition, with
// an LHS fallback if the model cannot be fit.
func (b *BayesOpt) Observe(costs []float64) {
	for i, v := range b.pending {
		b.observedX = append(b.observedX, b.normalize(v))
		b.observedY = append(b.observedY, costs[i])

		if costs[i] < b.bestCost {
			b.bestCost = costs[i]
			b.bestVec = cloneVec(v)
		}
	}

	b.pending = b.nextBatch()
}

// Best returns the best vector and cost observed across all batches.
func (b *BayesOpt) Best() (Vector, float64) {
	return b.bestVec, b.bestCost
}

func (b *BayesOpt) nextBatch() []Vector {
	gp, ok := fitGaussianProcess(b.observedX, b.observedY, b.lengthScale, b.noise)
	if !ok {
		return latinHypercubeBatch(b.batchSize, b.bounds, b.rng)
	}

	dim := len(b.bounds.Lower)
	believedX := append([][]float64(nil), b.observedX...)
	believedY := append([]float64(nil), b.observedY...)

	batch := make([]Vector, 0, b.batchSize)

	for k := 0; k < b.batchSize; k++ {
		x, ei := maximizeExpectedImprovement(gp, b.bestCost, dim, b.rng)
		if ei <= 0 {
			// No point in the candidate pool improves on the incumbent;
			// fill this slot with a fresh space-filling point rather than
			// clustering on a stale optimum, then try EI again for the
			// next slot.
			fallback := latinHypercubeBatch(1, b.bounds, b.rng)
			v := fallback[0]
			batch = append(batch, v)
			believedX = append(believedX, b.normalize(v))

			mean, _ := gp.predict(believedX[len(believedX)-1])
			believedY = append(believedY, mean)

			gp, ok = fitGaussianProcess(believedX, believedY, b.lengthScale, b.noise)
			if !ok {
				return append(batch, latinHypercubeBatch(b.batchSize-len(batch), b.bounds, b.rng)...)
			}

			continue
		}

		v := b.denormalize(x)
		b.bounds.Clamp(v)
		batch = append(batch, v)

		believedX = append(believedX, b.normalize(v))
		mean, _ := gp.predict(believedX[len(believedX)-1])
		believedY = append(believedY, mean)

		gp, ok = fitGaussianProcess(believedX, believedY, b.lengthScale, b.noise)
		if !ok {
			return append(batch, latinHypercubeBatch(b.batchSize-len(batch), b.bounds, b.rng)...)
		}
	}

	return batch
}

func (b *BayesOpt) normalize(v Vector) []float64 {
	x := make([]float64, len(v.Data))
	for i, val := range v.Data {
		span := b.bounds.Upper[i] - b.bounds.Lower[i]
		if span <= 0 {
			span = 1
		}

		x[i] = (val - b.bounds.Lower[i]) / span
	}

	return x
}

func (b *BayesOpt) denormalize(x []float64) Vector {
	data := make([]float64, len(x))
	for i, u := range x {
		span := b.bounds.Upper[i] - b.bounds.Lower[i]
		data[i] = b.bounds.Lower[i] + u*span
	}

	return Vector{Data: data}
}

// latinHypercubeBatch draws n points from a Latin-hypercube design over
// bounds: each dimension is partitioned into n equal strata, one point per
// stratum, strata independently permuted per dimension. Discrete
// dimensions are rounded by Bounds.Clamp.
func latinHypercubeBatch(n int, bounds Bounds, rng *rand.Rand) []Vector {
	if n <= 0 {
		return nil
	}

	dim := len(bounds.Lower)
	out := make([]Vector, n)

	for i := range out {
		out[i] = Vector{Data: make([]float64, dim)}
	}

	for d := 0; d < dim; d++ {
		perm := rng.Perm(n)
		span := bounds.Upper[d] - bounds.Lower[d]

		for i, stratum := range perm {
			u := (float64(stratum) + rng.Float64()) / float64(n)
			out[i].Data[d] = bounds.Lower[d] + u*span
		}
	}

	for i := range out {
		bounds.Clamp(out[i])
	}

	return out
}

// gaussianProcess is a zero-mean GP regressor over normalized inputs with
// an isotropic squared-exponential kernel, fit by Cholesky factorization
// of the observation covariance.
type gaussianProcess struct {
	x           [][]float64
	lengthScale float64
	noise       float64
	chol        mat.Cholesky
	alpha       *mat.VecDense
}

func fitGaussianProcess(x [][]float64, y []float64, lengthScale, noise float64) (*gaussianProcess, bool) {
	n := len(x)
	if n == 0 {
		return nil, false
	}

	k := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := rbfKernel(x[i], x[j], lengthScale)
			if i == j {
				v += noise
			}

			k.SetSym(i, j, v)
		}
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(k); !ok {
		return nil, false
	}

	yv := mat.NewVecDense(n, append([]float64(nil), y...))
	alpha := mat.NewVecDense(n, nil)

	if err := chol.SolveVecTo(alpha, yv); err != nil {
		return nil, false
	}

	return &gaussianProcess{x: x, lengthScale: lengthScale, noise: noise, chol: chol, alpha: alpha}, true
}

// predict returns the posterior mean and variance of the objective at a
// normalized point.
func (gp *gaussianProcess) predict(x []float64) (mean, variance float64) {
	n := len(gp.x)
	k := mat.NewVecDense(n, nil)

	for i, xi := range gp.x {
		k.SetVec(i, rbfKernel(x, xi, gp.lengthScale))
	}

	mean = mat.Dot(k, gp.alpha)

	v := mat.NewVecDense(n, nil)
	if err := gp.chol.SolveVecTo(v, k); err != nil {
		return mean, gp.noise
	}

	variance = rbfKernel(x, x, gp.lengthScale) + gp.noise - mat.Dot(k, v)
	if variance < 1e-12 {
		variance = 1e-12
	}

	return mean, variance
}

func rbfKernel(a, b []float64, lengthScale float64) float64 {
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}

	return math.Exp(-sum / (2 * lengthScale * lengthScale))
}

// expectedImprovement is the closed-form EI for minimization: the
// incumbent best minus the predictive mean, weighted by how much
// probability mass of the predictive Gaussian lies below it.
func expectedImprovement(gp *gaussianProcess, best float64, x []float64) float64 {
	mean, variance := gp.predict(x)
	sigma := math.Sqrt(variance)

	if sigma < 1e-9 {
		return 0
	}

	z := (best - mean) / sigma
	norm := distuv.Normal{Mu: 0, Sigma: 1}

	return (best-mean)*norm.CDF(z) + sigma*norm.Prob(z)
}

// maximizeExpectedImprovement searches a random candidate pool in the
// normalized unit cube for the point with the highest EI. A pool search
// stands in for a gradient-based inner optimizer since qEI's acquisition
// surface is cheap to sample but not smooth across the discrete-snapped
// dimensions.
func maximizeExpectedImprovement(gp *gaussianProcess, best float64, dim int, rng *rand.Rand) ([]float64, float64) {
	const poolSize = 256

	var bestX []float64
	bestEI := math.Inf(-1)

	for i := 0; i < poolSize; i++ {
		x := make([]float64, dim)
		for d := range x {
			x[d] = rng.Float64()
		}

		if ei := expectedImprovement(gp, best, x); ei > bestEI {
			bestEI = ei
			bestX = x
		}
	}

	return bestX, bestEI
}

// gradientPolish runs a short local search from the optimizer's incumbent
// using gonum/optimize's Nelder-Mead, as a cheap final polish step once
// CMA-ES or BayesOpt has located the basin: the global search finds the
// basin, a local polish tightens the optimum within it.
func gradientPolish(init Vector, bounds Bounds, objective func(Vector) float64) Vector {
	p := optimize.Problem{
		Func: func(x []float64) float64 {
			v := Vector{Data: append([]float64(nil), x...)}
			bounds.Clamp(v)

			return objective(v)
		},
	}

	result, err := optimize.Minimize(p, append([]float64(nil), init.Data...), &optimize.Settings{
		MajorIterations: 50,
	}, &optimize.NelderMead{})
	if err != nil || result == nil {
		return init
	}

	v := Vector{Data: append([]float64(nil), result.X...)}
	bounds.Clamp(v)

	return v
}
