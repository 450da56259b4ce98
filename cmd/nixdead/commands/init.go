package commands

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/l3aro/nixdead/internal/config"
	"github.com/l3aro/nixdead/internal/healthcheck"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a nixdead configuration interactively",
	Long: `Guides you through setting up nixdead step by step and writes a config
file to ~/.nixdead/config.yaml or ./.nixdead/config.yaml.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInit(cmd)
	},
}

func validateCount(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return fmt.Errorf("enter a whole number, 0 for no limit")
	}
	return nil
}

func runInit(cmd *cobra.Command) error {
	cfg := config.DefaultConfig()

	// === SECTION 1: Verification ===
	verifyCommand := cfg.VerifyCommand
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Build verification command").
				Description("Runs after the phase 1 removals in the generated script").
				Placeholder(cfg.VerifyCommand).
				Value(&verifyCommand),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}

	// === SECTION 2: Phase limits ===
	safeLimit := strconv.Itoa(cfg.Phases.Safe)
	reviewLimit := strconv.Itoa(cfg.Phases.Review)
	form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Phase 1 limit (safe removals)").
				Placeholder(safeLimit).
				Validate(validateCount).
				Value(&safeLimit),
			huh.NewInput().
				Title("Phase 2 limit (review required)").
				Placeholder(reviewLimit).
				Validate(validateCount).
				Value(&reviewLimit),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}

	// === SECTION 3: Excludes ===
	excludes := strings.Join(cfg.Excludes, ", ")
	form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Directories to skip").
				Description("Comma separated directory names").
				Placeholder(excludes).
				Value(&excludes),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}

	// === SECTION 4: Config Location ===
	var saveLocationChoice string
	form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Save Configuration").
				Description("Where to save the configuration file?").
				Options(
					huh.NewOption("Project (./.nixdead/config.yaml)", "project"),
					huh.NewOption("Global (~/.nixdead/config.yaml)", "global"),
				).
				Value(&saveLocationChoice),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}

	configPath := config.ProjectPath(".")
	if saveLocationChoice == "global" {
		configPath = config.GlobalPath()
	}

	if _, err := os.Stat(configPath); err == nil {
		var overwrite bool
		form = huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title("Config file exists").
					Description(fmt.Sprintf("Overwrite existing config at %s?", configPath)).
					Affirmative("Overwrite").
					Negative("Cancel").
					Value(&overwrite),
			),
		)
		if err := form.Run(); err != nil {
			return fmt.Errorf("interactive prompt failed: %w", err)
		}
		if !overwrite {
			fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
			return nil
		}
	}

	// === Build config struct ===
	if v := strings.TrimSpace(verifyCommand); v != "" {
		cfg.VerifyCommand = v
	}
	cfg.Phases.Safe, _ = strconv.Atoi(strings.TrimSpace(safeLimit))
	cfg.Phases.Review, _ = strconv.Atoi(strings.TrimSpace(reviewLimit))
	var dirs []string
	for _, d := range strings.Split(excludes, ",") {
		if d = strings.TrimSpace(d); d != "" {
			dirs = append(dirs, d)
		}
	}
	cfg.Excludes = dirs

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintln(w, "\n=== Configuration Preview ===")
	fmt.Fprintf(w, "Config path: %s\n", configPath)
	fmt.Fprintf(w, "Verify command: %s\n", cfg.VerifyCommand)
	fmt.Fprintf(w, "Phase limits: safe=%d review=%d\n", cfg.Phases.Safe, cfg.Phases.Review)
	fmt.Fprintf(w, "Excludes: %s\n", strings.Join(cfg.Excludes, ", "))
	fmt.Fprintln(w, "================================")

	if err := cfg.Save(configPath); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	fmt.Fprintf(w, "Configuration saved to: %s\n", configPath)

	// === SECTION 5: Health Check ===
	fmt.Fprintln(w, "\n=== Running Health Check ===")
	loaded, err := config.Load(".")
	if err != nil {
		return fmt.Errorf("loading saved config: %w", err)
	}
	result, err := healthcheck.Check(loaded, ".")
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	displayDoctorResult(w, result)

	fmt.Fprintln(w, "\n=== Initialization Complete ===")
	return nil
}

func init() {
	RootCmd.AddCommand(initCmd)
}
