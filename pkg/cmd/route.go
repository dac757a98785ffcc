package cmd

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rjwalters/kicad-tools-sub002/pkg/model"
	"github.com/rjwalters/kicad-tools-sub002/pkg/router"
	"github.com/rjwalters/kicad-tools-sub002/pkg/sexp"
)

var routeCmd = &cobra.Command{
	Use:   "route <board.kicad_pcb>",
	Short: "autoroute the nets of a KiCad PCB.",
	Long:  "Loads a board, routes every net with at least two connected pads on a uniform grid, and writes the new segments and vias back into the document.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		applyVerbosity(cmd)

		doc, err := sexp.Load(args[0], "kicad_pcb")
		if err != nil {
			fatalf("route: %v", err)
		}

		board, err := model.LoadBoard(doc)
		if err != nil {
			fatalf("route: %v", err)
		}

		layers := GetStringArray(cmd, "layer")

		cfg := router.DefaultRouterConfig()
		cfg.NegotiatedCongestion = GetFlag(cmd, "negotiate")
		cfg.MaxPasses = GetInt(cmd, "max-passes")

		result := router.RouteBoard(board, layers, cfg)

		routed, total := 0, 0

		for _, nr := range result.Nets {
			routed += nr.EdgesRouted
			total += nr.EdgesTotal

			if nr.EdgesRouted < nr.EdgesTotal {
				log.Warnf("net %d: routed %d/%d edges", nr.NetID, nr.EdgesRouted, nr.EdgesTotal)
			}
		}

		router.Commit(doc, result, board)

		output := GetString(cmd, "output")
		if output == "" {
			output = args[0]
		}

		if err := doc.SaveAs(output); err != nil {
			fatalf("route: %v", err)
		}

		fmt.Printf("routed %d/%d net edges, wrote %s\n", routed, total, output)
	},
}

func init() {
	rootCmd.AddCommand(routeCmd)
	routeCmd.Flags().StringArray("layer", []string{"F.Cu", "B.Cu"}, "copper layers available to the router, outer first")
	routeCmd.Flags().Bool("negotiate", false, "enable the negotiated-congestion outer loop")
	routeCmd.Flags().Int("max-passes", 10, "maximum negotiated-congestion passes")
	routeCmd.Flags().StringP("output", "o", "", "output path; defaults to overwriting the input file")
}
