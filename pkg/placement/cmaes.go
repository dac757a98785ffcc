package placement

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// convergenceWindow and convergenceThreshold implement the sliding-window
// early stop: once the best score's relative improvement over the trailing
// window falls below the threshold, further generations are assumed to be
// noise around a local optimum rather than real progress.
const (
	convergenceWindow    = 50
	convergenceThreshold = 1e-8
)

// CMAESConfig tunes the evolution strategy, using the standard CMA-ES
// default parameterization.
type CMAESConfig struct {
	PopulationSize int
	Generations    int
	InitialSigma   float64
	Seed           uint64
	// MarginFraction keeps the sampling distribution from collapsing onto
	// a single value along discrete dimensions, the "CMA-ES with margin"
	// variant for mixed continuous/discrete search spaces.
	MarginFraction float64
}

// DefaultCMAESConfig mirrors the original's population/sigma defaults,
// scaled to the problem dimension by NewCMAES.
func DefaultCMAESConfig() CMAESConfig {
	return CMAESConfig{Generations: 200, InitialSigma: 0.3, MarginFraction: 0.1}
}

// CMAES is a (mu/mu_w, lambda) evolution strategy with diagonal-margin
// support for discrete dimensions, minimizing a caller-supplied objective
// over a bounded vector space.
type CMAES struct {
	dim       int
	lambda    int
	mu        int
	weights   []float64
	muEff     float64
	cc, cs    float64
	c1, cmu   float64
	damps     float64
	chiN      float64
	margin    []float64

	mean  *mat.VecDense
	sigma float64
	cov   *mat.SymDense
	pc    *mat.VecDense
	ps    *mat.VecDense

	bounds Bounds
	rng    *rand.Rand
}

// NewCMAES builds a CMA-ES instance over a dim-dimensional bounded space,
// seeded at mean with the given config (population size 0 selects the
// standard 4+floor(3*ln(dim)) default).
func NewCMAES(mean Vector, bounds Bounds, cfg CMAESConfig) *CMAES {
	dim := len(mean.Data)

	lambda := cfg.PopulationSize
	if lambda == 0 {
		lambda = 4 + int(3*math.Log(float64(dim)))
	}

	mu := lambda / 2

	weights := make([]float64, mu)
	sumW, sumW2 := 0.0, 0.0

	for i := 0; i < mu; i++ {
		w := math.Log(float64(mu)+0.5) - math.Log(float64(i+1))
		weights[i] = w
		sumW += w
		sumW2 += w * w
	}

	for i := range weights {
		weights[i] /= sumW
	}

	muEff := sumW * sumW / sumW2

	fdim := float64(dim)
	cc := (4 + muEff/fdim) / (fdim + 4 + 2*muEff/fdim)
	cs := (muEff + 2) / (fdim + muEff + 5)
	c1 := 2 / ((fdim+1.3)*(fdim+1.3) + muEff)
	cmu := math.Min(1-c1, 2*(muEff-2+1/muEff)/((fdim+2)*(fdim+2)+muEff))
	damps := 1 + 2*math.Max(0, math.Sqrt((muEff-1)/(fdim+1))-1) + cs

	cov := mat.NewSymDense(dim, nil)
	for i := 0; i < dim; i++ {
		cov.SetSym(i, i, 1)
	}

	margin := make([]float64, dim)
	for i, discrete := range bounds.DiscreteMask {
		if discrete {
			margin[i] = cfg.MarginFraction * (bounds.Upper[i] - bounds.Lower[i])
		}
	}

	rng := rand.New(rand.NewSource(int64(cfg.Seed)))

	return &CMAES{
		dim: dim, lambda: lambda, mu: mu, weights: weights, muEff: muEff,
		cc: cc, cs: cs, c1: c1, cmu: cmu, damps: damps,
		chiN: math.Sqrt(fdim) * (1 - 1.0/(4*fdim) + 1.0/(21*fdim*fdim)),
		margin: margin,
		mean:   mat.NewVecDense(dim, append([]float64(nil), mean.Data...)),
		sigma:  cfg.InitialSigma * boundSpan(bounds),
		cov:    cov,
		pc:     mat.NewVecDense(dim, nil),
		ps:     mat.NewVecDense(dim, nil),
		bounds: bounds,
		rng:    rng,
	}
}

func boundSpan(b Bounds) float64 {
	total := 0.0
	for i := range b.Lower {
		total += b.Upper[i] - b.Lower[i]
	}

	return total / float64(len(b.Lower))
}

// candidate is one sampled offspring with its objective value.
type candidate struct {
	z, y Vector
	cost float64
}

// Run executes up to generations iterations, calling objective once per
// offspring per generation, and returns the best vector and score found
// along with whether the sliding-window convergence check ended the run
// early. Scores across generations are non-increasing because the
// incumbent is always retained in the returned series.
func (c *CMAES) Run(objective func(Vector) float64, generations int) (best Vector, bestCost float64, history []float64, converged bool) {
	bestCost = math.Inf(1)
	best = cloneVec(c.vecToVector(c.mean))

	eigVals := make([]float64, c.dim)
	eigVecs := mat.NewDense(c.dim, c.dim, nil)

	for gen := 0; gen < generations; gen++ {
		c.eigenDecompose(eigVals, eigVecs)

		cands := make([]candidate, c.lambda)
		for k := 0; k < c.lambda; k++ {
			cands[k] = c.sample(eigVals, eigVecs)
			v := c.vecToVector(cands[k].y)
			c.bounds.Clamp(v)
			cands[k].y = v
			cands[k].cost = objective(v)
		}

		sort.Slice(cands, func(i, j int) bool { return cands[i].cost < cands[j].cost })

		if cands[0].cost < bestCost {
			bestCost = cands[0].cost
			best = cloneVec(cands[0].y)
		}

		history = append(history, bestCost)

		if hasConverged(history) {
			converged = true
			break
		}

		c.update(cands, eigVals, eigVecs, gen)
	}

	return best, bestCost, history, converged
}

// PopulationSize returns the offspring count (lambda) this instance was
// configured with, whether explicit or auto-derived from the dimension.
func (c *CMAES) PopulationSize() int {
	return c.lambda
}

// hasConverged reports whether the best-score series has stopped
// improving: the relative change between the start and end of the
// trailing convergenceWindow generations has fallen below
// convergenceThreshold.
func hasConverged(history []float64) bool {
	if len(history) <= convergenceWindow {
		return false
	}

	prev := history[len(history)-1-convergenceWindow]
	cur := history[len(history)-1]

	denom := math.Abs(prev)
	if denom < 1e-300 {
		denom = 1e-300
	}

	return math.Abs(prev-cur)/denom < convergenceThreshold
}

func (c *CMAES) sample(eigVals []float64, eigVecs *mat.Dense) candidate {
	z := mat.NewVecDense(c.dim, nil)
	for i := 0; i < c.dim; i++ {
		z.SetVec(i, c.rng.NormFloat64())
	}

	scaled := mat.NewVecDense(c.dim, nil)
	for i := 0; i < c.dim; i++ {
		scaled.SetVec(i, z.AtVec(i)*math.Sqrt(math.Max(eigVals[i], 0)))
	}

	by := mat.NewVecDense(c.dim, nil)
	by.MulVec(eigVecs, scaled)

	y := mat.NewVecDense(c.dim, nil)
	for i := 0; i < c.dim; i++ {
		val := c.mean.AtVec(i) + c.sigma*by.AtVec(i)

		// Margin: if a discrete dimension's displacement collapses below
		// its margin, add it back so the distribution keeps exploring
		// both integer neighbors instead of freezing on one.
		if m := c.margin[i]; m > 0 && math.Abs(by.AtVec(i)*c.sigma) < m {
			if by.AtVec(i) >= 0 {
				val += m
			} else {
				val -= m
			}
		}

		y.SetVec(i, val)
	}

	return candidate{z: vecFromMat(z), y: vecFromMat(y)}
}

func (c *CMAES) update(cands []candidate, eigVals []float64, eigVecs *mat.Dense, gen int) {
	newMean := mat.NewVecDense(c.dim, nil)

	for k := 0; k < c.mu; k++ {
		yv := mat.NewVecDense(c.dim, cands[k].y.Data)
		newMean.AddScaledVec(newMean, c.weights[k], yv)
	}

	meanDiff := mat.NewVecDense(c.dim, nil)
	meanDiff.SubVec(newMean, c.mean)

	invSigma := 1 / c.sigma
	csn := math.Sqrt(c.cs * (2 - c.cs) * c.muEff)

	invSqrtC := c.invSqrtCov(eigVals, eigVecs)
	psUpdate := mat.NewVecDense(c.dim, nil)
	psUpdate.MulVec(invSqrtC, meanDiff)

	c.ps.ScaleVec(1-c.cs, c.ps)
	c.ps.AddScaledVec(c.ps, csn*invSigma, psUpdate)

	psNorm := mat.Norm(c.ps, 2)
	hsig := 0.0
	if psNorm/math.Sqrt(1-math.Pow(1-c.cs, float64(2*(gen+1)))) < (1.4+2/(float64(c.dim)+1))*c.chiN {
		hsig = 1
	}

	ccn := math.Sqrt(c.cc * (2 - c.cc) * c.muEff)
	c.pc.ScaleVec(1-c.cc, c.pc)
	c.pc.AddScaledVec(c.pc, hsig*ccn*invSigma, meanDiff)

	rank1 := mat.NewSymDense(c.dim, nil)
	outerProd(rank1, c.pc)

	rankMu := mat.NewSymDense(c.dim, nil)
	for k := 0; k < c.mu; k++ {
		diff := mat.NewVecDense(c.dim, nil)
		diff.SubVec(mat.NewVecDense(c.dim, cands[k].y.Data), c.mean)
		diff.ScaleVec(invSigma, diff)

		term := mat.NewSymDense(c.dim, nil)
		outerProd(term, diff)

		for i := 0; i < c.dim; i++ {
			for j := i; j < c.dim; j++ {
				rankMu.SetSym(i, j, rankMu.At(i, j)+c.weights[k]*term.At(i, j))
			}
		}
	}

	for i := 0; i < c.dim; i++ {
		for j := i; j < c.dim; j++ {
			v := (1-c.c1-c.cmu)*c.cov.At(i, j) + c.c1*rank1.At(i, j) + c.cmu*rankMu.At(i, j)
			c.cov.SetSym(i, j, v)
		}
	}

	c.sigma *= math.Exp((c.cs / c.damps) * (psNorm/c.chiN - 1))
	c.mean = newMean
}

func outerProd(dst *mat.SymDense, v *mat.VecDense) {
	n, _ := v.Dims()
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			dst.SetSym(i, j, v.AtVec(i)*v.AtVec(j))
		}
	}
}

func (c *CMAES) eigenDecompose(eigVals []float64, eigVecs *mat.Dense) {
	var eig mat.EigenSym
	eig.Factorize(c.cov, true)
	eig.Values(eigVals)
	eigVecs.EigenvectorsSym(&eig)
}

func (c *CMAES) invSqrtCov(eigVals []float64, eigVecs *mat.Dense) *mat.Dense {
	diag := mat.NewDiagDense(c.dim, nil)
	for i := 0; i < c.dim; i++ {
		v := eigVals[i]
		if v < 1e-20 {
			v = 1e-20
		}

		diag.SetDiag(i, 1/math.Sqrt(v))
	}

	tmp := mat.NewDense(c.dim, c.dim, nil)
	tmp.Mul(eigVecs, diag)

	out := mat.NewDense(c.dim, c.dim, nil)
	out.Mul(tmp, eigVecs.T())

	return out
}

func (c *CMAES) vecToVector(v *mat.VecDense) Vector {
	data := make([]float64, c.dim)
	for i := 0; i < c.dim; i++ {
		data[i] = v.AtVec(i)
	}

	return Vector{Data: data}
}

func vecFromMat(v *mat.VecDense) Vector {
	n, _ := v.Dims()
	data := make([]float64, n)

	for i := 0; i < n; i++ {
		data[i] = v.AtVec(i)
	}

	return Vector{Data: data}
}

func cloneVec(v Vector) Vector {
	return Vector{Data: append([]float64(nil), v.Data...)}
}
