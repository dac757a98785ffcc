// Package cmd implements the kicad-tools command-line interface: parsing
// and re-serializing KiCad documents, routing a board, and optimizing a
// placement, all built on the DocEngine/Geometry/DesignModel/Router/
// PlacementOpt core packages.
package cmd

import (
	"fmt"
	"os"
	"runtime/debug"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Version is filled in when building via an install script that passes
// -ldflags, but is left empty for a plain "go install".
var Version string

var rootCmd = &cobra.Command{
	Use:   "kicad-tools",
	Short: "Round-trip, route, and place KiCad PCB documents.",
	Long:  "A toolbox for KiCad PCB documents: S-expression round-trip editing, a grid-based autorouter, and a placement optimizer.",
	Run: func(cmd *cobra.Command, args []string) {
		if GetFlag(cmd, "version") {
			fmt.Print("kicad-tools ")

			switch {
			case Version != "":
				fmt.Printf("%s", Version)
			default:
				if info, ok := debug.ReadBuildInfo(); ok {
					fmt.Printf("%s", info.Main.Version)
				} else {
					fmt.Printf("(unknown version)")
				}
			}

			fmt.Println()

			return
		}

		cmd.Help() //nolint:errcheck
	},
}

// Execute adds all child commands to the root command and runs it. Called
// once by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().Bool("version", false, "report the version of this executable")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug-level logging")

	cobra.OnInitialize(func() {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	})
}

func applyVerbosity(cmd *cobra.Command) {
	if GetFlag(cmd, "verbose") {
		log.SetLevel(log.DebugLevel)
	}
}
