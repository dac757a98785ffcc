package cmd

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rjwalters/kicad-tools-sub002/pkg/sexp"
)

var parseCmd = &cobra.Command{
	Use:   "parse <file>",
	Short: "load a KiCad document and re-serialize it, for inspecting round-trip fidelity.",
	Long:  "Parses a .kicad_pcb/.kicad_sch/.kicad_sym file and writes it back out, either to stdout or to the path given by -o.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		applyVerbosity(cmd)

		expectRoot := GetString(cmd, "root")
		output := GetString(cmd, "output")

		doc, err := sexp.Load(args[0], expectRoot)
		if err != nil {
			fatalf("parse: %v", err)
		}

		log.Debugf("loaded %s, root %q", args[0], doc.Root().Name)

		if output == "" {
			fmt.Print(doc.Serialize())

			return
		}

		if err := doc.SaveAs(output); err != nil {
			fatalf("parse: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(parseCmd)
	parseCmd.Flags().String("root", "", "expected root list name; empty accepts any")
	parseCmd.Flags().StringP("output", "o", "", "write the re-serialized document here instead of stdout")
}
