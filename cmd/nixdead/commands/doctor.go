package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/l3aro/nixdead/internal/healthcheck"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor [root]",
	Short: "Check configuration and repository health",
	Long: `Checks the configuration in use, the repository root, the module files
found, the verification command and the freshness of the analysis report.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := rootArg(args)
		cfg, _, _, err := setup(cmd, root)
		if err != nil {
			return err
		}

		result, err := healthcheck.Check(cfg, root)
		if err != nil {
			return fmt.Errorf("health check failed: %w", err)
		}

		displayDoctorResult(cmd.OutOrStdout(), result)

		if result.Failed() {
			return fmt.Errorf("health check failed: one or more checks reported an error")
		}
		return nil
	},
}

func displayDoctorResult(w io.Writer, result *healthcheck.HealthCheckResult) {
	if result.ConfigPath != "" {
		fmt.Fprintf(w, "Using config: %s (%s)\n\n", result.ConfigPath, result.ConfigScope)
	} else {
		fmt.Fprint(w, "Using config: defaults\n\n")
	}

	for _, c := range result.Checks {
		icon := formatStatusIcon(c.Status)
		fmt.Fprintf(w, "%s %s %s\n", statusStyle(c.Status).Render(icon), labelStyle.Render(c.Name), c.Detail)
	}
}

func formatStatusIcon(status string) string {
	switch status {
	case healthcheck.StatusOK:
		return "✓"
	case healthcheck.StatusWarn:
		return "◐"
	case healthcheck.StatusError:
		return "✗"
	default:
		return "?"
	}
}

func init() {
	RootCmd.AddCommand(doctorCmd)
}
