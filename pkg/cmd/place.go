package cmd

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rjwalters/kicad-tools-sub002/pkg/model"
	"github.com/rjwalters/kicad-tools-sub002/pkg/placement"
	"github.com/rjwalters/kicad-tools-sub002/pkg/sexp"
)

var placeCmd = &cobra.Command{
	Use:   "place <board.kicad_pcb>",
	Short: "optimize component placement on a KiCad PCB.",
	Long:  "Seeds a placement with a force-directed layout, refines it with CMA-ES (or Bayesian optimization with --bayesopt) against wirelength/overlap/boundary, and writes the result back.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		applyVerbosity(cmd)

		doc, err := sexp.Load(args[0], "kicad_pcb")
		if err != nil {
			fatalf("place: %v", err)
		}

		board, err := model.LoadBoard(doc)
		if err != nil {
			fatalf("place: %v", err)
		}

		evaluator, edges := buildEvaluator(board)

		cfg := placement.DefaultSearchConfig()
		cfg.CMAES.Seed = GetUint64(cmd, "seed")
		cfg.CMAES.Generations = GetInt(cmd, "generations")
		cfg.UseBayesOpt = GetFlag(cmd, "bayesopt")

		center := board.Outline.Bounds.Center()

		result, err := placement.Search(evaluator, edges, center.X, center.Y, cfg)
		if err != nil {
			fatalf("place: %v", err)
		}

		log.Infof("final score: wirelength=%.2f overlap=%.4f boundary=%.4f drc=%.4f routability=%.4f",
			result.Score.Wirelength, result.Score.Overlap, result.Score.Boundary, result.Score.DRC, result.Score.Routability)

		placed, err := placement.Decode(result.Best, evaluator.Defs)
		if err != nil {
			fatalf("place: %v", err)
		}

		for _, pc := range placed {
			if !model.SetComponentPlacement(doc, pc.Reference, pc.X, pc.Y, pc.Rotation, pc.Side) {
				log.Warnf("no footprint found for reference %s, skipping", pc.Reference)
			}
		}

		output := GetString(cmd, "output")
		if output == "" {
			output = args[0]
		}

		if err := doc.SaveAs(output); err != nil {
			fatalf("place: %v", err)
		}

		if checkpointPath := GetString(cmd, "checkpoint"); checkpointPath != "" {
			strategy := "cmaes"
			if cfg.UseBayesOpt {
				strategy = "bayesopt"
			}

			bounds := placement.ComputeBounds(evaluator.Outline, evaluator.Defs)
			ckCfg := placement.CheckpointConfig{
				Seed: cfg.CMAES.Seed, InitialSigma: cfg.CMAES.InitialSigma,
				MarginFraction: cfg.CMAES.MarginFraction, BatchSize: cfg.BayesOpt.BatchSize,
			}

			ck := placement.NewCheckpoint(
				GetString(cmd, "timestamp"), strategy, cfg.CMAES.Generations, result.PopulationSize,
				result.Best, result.Score.Total, result.History, result.Converged, ckCfg, bounds,
			)
			if err := ck.Save(checkpointPath); err != nil {
				log.Warnf("failed to write checkpoint: %v", err)
			}
		}

		fmt.Printf("placed %d components, wrote %s\n", len(placed), output)
	},
}

// buildEvaluator converts a loaded board into the static problem
// definition placement.Evaluator needs, plus the weighted net-adjacency
// graph used to seed the force-directed layout.
func buildEvaluator(board *model.Board) (*placement.Evaluator, []placement.Edge) {
	defs := make([]placement.ComponentDef, len(board.Components))

	for i, c := range board.Components {
		width, height := componentExtent(c)

		pads := make([]placement.PadDef, len(c.Pads))
		for j, p := range c.Pads {
			pads[j] = placement.PadDef{Name: p.Name, LocalX: p.LocalX, LocalY: p.LocalY, SizeX: p.SizeX, SizeY: p.SizeY}
		}

		defs[i] = placement.ComponentDef{Reference: c.Reference, Pads: pads, Width: width, Height: height}
	}

	nets := make([]placement.NetMembership, 0, len(board.Nets))
	memberLists := make([][]string, 0, len(board.Nets))

	for _, net := range board.Nets {
		if len(net.PadRefs) < 2 {
			continue
		}

		membership := placement.NetMembership{Name: net.Name, Members: append([]model.PadRef(nil), net.PadRefs...)}
		nets = append(nets, membership)
		memberLists = append(memberLists, membership.ComponentRefs())
	}

	evaluator := &placement.Evaluator{
		Defs: defs, Nets: nets, Outline: board.Outline, Rules: board.Rules, Weights: placement.DefaultWeights(),
	}

	return evaluator, placement.NetEdges(defs, memberLists)
}

// componentExtent estimates a component's unrotated bounding box from its
// pad layout, since the footprint's courtyard/silkscreen extent is not
// modeled.
func componentExtent(c *model.Component) (width, height float64) {
	if len(c.Pads) == 0 {
		return 1, 1
	}

	minX, minY := c.Pads[0].LocalX-c.Pads[0].SizeX/2, c.Pads[0].LocalY-c.Pads[0].SizeY/2
	maxX, maxY := c.Pads[0].LocalX+c.Pads[0].SizeX/2, c.Pads[0].LocalY+c.Pads[0].SizeY/2

	for _, p := range c.Pads[1:] {
		minX = minFloat(minX, p.LocalX-p.SizeX/2)
		minY = minFloat(minY, p.LocalY-p.SizeY/2)
		maxX = maxFloat(maxX, p.LocalX+p.SizeX/2)
		maxY = maxFloat(maxY, p.LocalY+p.SizeY/2)
	}

	return maxX - minX, maxY - minY
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}

	return b
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}

	return b
}

func init() {
	rootCmd.AddCommand(placeCmd)
	placeCmd.Flags().Uint64("seed", 42, "CMA-ES random seed")
	placeCmd.Flags().Int("generations", 200, "CMA-ES generation count")
	placeCmd.Flags().Bool("bayesopt", false, "use the Bayesian optimizer instead of CMA-ES")
	placeCmd.Flags().StringP("output", "o", "", "output path; defaults to overwriting the input file")
	placeCmd.Flags().String("checkpoint", "", "write a JSON search checkpoint to this path")
	placeCmd.Flags().String("timestamp", "", "RFC3339 timestamp recorded in the checkpoint")
}
