package placement

import "github.com/rjwalters/kicad-tools-sub002/pkg/geometry"

// SearchConfig bundles the seeding, evaluator, and optimizer
// configuration for one end-to-end placement search.
type SearchConfig struct {
	CMAES      CMAESConfig
	Weights    Weights
	// EvalFidelity caps the fidelity used during the search loop itself;
	// FidelityFullRoute is reserved for the final reported score since a
	// negotiated-congestion pass per candidate per generation is too slow
	// to run thousands of times.
	EvalFidelity Fidelity
	// UseBayesOpt swaps the CMA-ES driver for the Gaussian-process-based
	// Bayesian optimizer, better suited when EvalFidelity is expensive
	// enough that only a few dozen evaluations are affordable.
	UseBayesOpt bool
	BayesOpt    BayesOptConfig
	BayesOptRounds int
}

// DefaultSearchConfig uses analytic fidelity during search (cheapest) and
// the default CMA-ES schedule.
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		CMAES: DefaultCMAESConfig(), Weights: DefaultWeights(), EvalFidelity: FidelityAnalytic,
		BayesOpt: DefaultBayesOptConfig(), BayesOptRounds: 30,
	}
}

// Result is a completed placement search's output.
type Result struct {
	Best      Vector
	Score     Score
	FinalFull Score
	History   []float64
	// Converged reports whether the driver's own stopping criterion ended
	// the search early, as opposed to exhausting its generation/round
	// budget. BayesOpt has no such criterion and always reports false.
	Converged bool
	// PopulationSize is the driver's offspring/batch size, worth
	// recording in a checkpoint alongside the strategy tag.
	PopulationSize int
}

// Search seeds a placement with the force-directed layout, refines it
// with CMA-ES against the configured fidelity, then re-scores the
// incumbent once at full fidelity for reporting.
func Search(evaluator *Evaluator, edges []Edge, boardCenterX, boardCenterY float64, cfg SearchConfig) (Result, error) {
	bounds := ComputeBounds(evaluator.Outline, evaluator.Defs)

	seed := ForceDirectedSeed(evaluator.Defs, edges, bounds, geometry.Point{X: boardCenterX, Y: boardCenterY})

	objective := func(v Vector) float64 {
		score, err := evaluator.Evaluate(v, cfg.EvalFidelity)
		if err != nil {
			return 1e18
		}

		return score.Total
	}

	var (
		best           Vector
		history        []float64
		converged      bool
		populationSize int
	)

	if cfg.UseBayesOpt {
		best, history = runBayesOpt(seed, bounds, objective, cfg)
		populationSize = cfg.BayesOpt.BatchSize
	} else {
		cma := NewCMAES(seed, bounds, cfg.CMAES)
		best, _, history, converged = cma.Run(objective, cfg.CMAES.Generations)
		populationSize = cma.PopulationSize()
	}

	best = gradientPolish(best, bounds, objective)
	bounds.Clamp(best)

	score, err := evaluator.Evaluate(best, cfg.EvalFidelity)
	if err != nil {
		return Result{}, err
	}

	full, err := evaluator.Evaluate(best, FidelityFullRoute)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Best: best, Score: score, FinalFull: full, History: history,
		Converged: converged, PopulationSize: populationSize,
	}, nil
}

// runBayesOpt drives an Optimizer through BayesOptRounds ask/observe
// cycles and returns its incumbent plus a best-so-far history comparable
// to CMA-ES's generation history.
func runBayesOpt(seed Vector, bounds Bounds, objective func(Vector) float64, cfg SearchConfig) (Vector, []float64) {
	var opt Optimizer = NewBayesOpt(seed, bounds, cfg.BayesOpt)

	var history []float64

	for round := 0; round < cfg.BayesOptRounds; round++ {
		batch := opt.Ask()
		costs := make([]float64, len(batch))

		for i, v := range batch {
			costs[i] = objective(v)
		}

		opt.Observe(costs)

		_, best := opt.Best()
		history = append(history, best)
	}

	best, _ := opt.Best()

	return best, history
}
