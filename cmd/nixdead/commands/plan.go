package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/l3aro/nixdead/pkg/report"
)

// planCmd represents the plan command
var planCmd = &cobra.Command{
	Use:   "plan [root]",
	Short: "Build the removal plan and removal script from the report",
	Long: `Reads the report written by "nixdead analyze", classifies the unused files
into risk tiers and writes a phased removal plan plus a removal script that
deletes only the phase 1 files and then runs the verification command.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := rootArg(args)
		cfg, _, analyzer, err := setup(cmd, root)
		if err != nil {
			return err
		}

		yes, _ := cmd.Flags().GetBool("yes")
		scriptPath := filepath.Join(root, cfg.ScriptFile)
		if _, err := os.Stat(scriptPath); err == nil && !yes && interactive() {
			ok, err := confirmOverwrite(scriptPath)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
				return nil
			}
		}

		out, err := analyzer.Plan(root)
		if err != nil {
			if errors.Is(err, report.ErrReportNotFound) {
				return err
			}
			return fmt.Errorf("planning failed: %w", err)
		}

		renderPlan(cmd.OutOrStdout(), out.Plan, out.PlanPath, out.ScriptPath)
		if out.Stale {
			fmt.Fprintln(cmd.OutOrStdout(), warnStyle.Render(fmt.Sprintf(
				"\n%d files changed since the last analysis. Re-run `nixdead analyze` for an accurate plan.", len(out.Changed))))
		}
		return nil
	},
}

func interactive() bool {
	return isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
}

func confirmOverwrite(path string) (bool, error) {
	var overwrite bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Removal script exists").
				Description(fmt.Sprintf("Overwrite existing script at %s?", path)).
				Affirmative("Overwrite").
				Negative("Cancel").
				Value(&overwrite),
		),
	)
	if err := form.Run(); err != nil {
		return false, fmt.Errorf("interactive prompt failed: %w", err)
	}
	return overwrite, nil
}

func init() {
	planCmd.Flags().BoolP("yes", "y", false, "Overwrite an existing removal script without asking")
	RootCmd.AddCommand(planCmd)
}
