package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze [root]",
	Short: "Analyze the repository and write the dependency report",
	Long: `Scans every module file, builds the reference graph, and computes the
files reachable from the entry points, reference cycles and dependency depth.
The report is written to the repository root.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, _, analyzer, err := setup(cmd, rootArg(args))
		if err != nil {
			return err
		}

		res, err := analyzer.Analyze(rootArg(args))
		if err != nil {
			return fmt.Errorf("analysis failed: %w", err)
		}

		jsonOutput, _ := cmd.Flags().GetBool("json")
		if jsonOutput {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res.Report)
		}

		renderAnalysis(cmd.OutOrStdout(), res.Report, analyzer.ReportPath(res.Root))
		return nil
	},
}

func init() {
	analyzeCmd.Flags().BoolP("json", "j", false, "Print the report as JSON")
	RootCmd.AddCommand(analyzeCmd)
}
