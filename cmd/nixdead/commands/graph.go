package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph [root]",
	Short: "Export the reference graph as JSON or msgpack",
	Long: `Exports every node with its category, degrees, entry-point flag,
reachability and depth, and every edge, sorted for stable diffs.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		output, _ := cmd.Flags().GetString("output")
		if format != "json" && format != "msgpack" {
			return fmt.Errorf("unknown format %q (use 'json' or 'msgpack')", format)
		}

		_, _, analyzer, err := setup(cmd, rootArg(args))
		if err != nil {
			return err
		}
		res, err := analyzer.Run(rootArg(args))
		if err != nil {
			return fmt.Errorf("analysis failed: %w", err)
		}

		var w io.Writer = cmd.OutOrStdout()
		if output != "" {
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("creating %s: %w", output, err)
			}
			defer f.Close()
			w = f
		} else if f, ok := w.(*os.File); ok && format == "msgpack" && isatty.IsTerminal(f.Fd()) {
			return fmt.Errorf("refusing to write msgpack to a terminal; use --output")
		}

		snap := res.Snapshot()
		if format == "msgpack" {
			return snap.WriteMsgpack(w)
		}
		return snap.WriteJSON(w)
	},
}

func init() {
	graphCmd.Flags().StringP("format", "f", "json", "Output format (json or msgpack)")
	graphCmd.Flags().StringP("output", "o", "", "Write to file instead of stdout")
	RootCmd.AddCommand(graphCmd)
}
