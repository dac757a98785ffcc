package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/rjwalters/kicad-tools-sub002/pkg/drc"
)

var drcCmd = &cobra.Command{
	Use:   "drc <report>",
	Short: "summarize an external DRC report (.rpt text or .json).",
	Long:  "Parses a design-rule-check report emitted by an external checker and prints a per-rule violation summary.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		data, err := os.ReadFile(args[0])
		if err != nil {
			fatalf("drc: %v", err)
		}

		var report drc.Report

		if strings.EqualFold(filepath.Ext(args[0]), ".json") {
			report, err = drc.ParseJSON(data)
		} else {
			report, err = drc.ParseText(string(data))
		}

		if err != nil {
			fatalf("drc: %v", err)
		}

		if len(report.Violations) == 0 {
			fmt.Println("no violations")

			return
		}

		for rule, violations := range report.ByRule() {
			printRuleLine(rule, len(violations))
		}

		counts := report.CountBySeverity()
		fmt.Printf("total: %d errors, %d warnings\n", counts[drc.SeverityError], counts[drc.SeverityWarning])
	},
}

// printRuleLine prints one rule/count pair, padding the rule name to a
// column a quarter of the terminal width wide when stdout is a TTY so
// columns line up; falls back to a
// plain "rule: count" line when stdout is redirected.
func printRuleLine(rule string, count int) {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		fmt.Printf("%s: %d violation(s)\n", rule, count)

		return
	}

	pad := width/4 - len(rule)
	if pad < 1 {
		pad = 1
	}

	fmt.Printf("%s%s%d violation(s)\n", rule, strings.Repeat(" ", pad), count)
}

func init() {
	rootCmd.AddCommand(drcCmd)
}
