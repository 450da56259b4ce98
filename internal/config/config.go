package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DirName is the per-user and per-repository configuration directory.
const DirName = ".nixdead"

// FileName is the configuration file inside DirName.
const FileName = "config.yaml"

// PhaseLimits caps how many candidates each removal phase lists. Zero means no cap.
type PhaseLimits struct {
	Safe          int `yaml:"safe" validate:"gte=0"`
	Review        int `yaml:"review" validate:"gte=0"`
	FalsePositive int `yaml:"false_positive" validate:"gte=0"`
}

// SafetyConfig tunes the per-file safety records of the removal plan.
type SafetyConfig struct {
	// Sample is how many unused files get a safety record. Zero means all.
	Sample               int `yaml:"sample" validate:"gte=0"`
	ComplexLineThreshold int `yaml:"complex_line_threshold" validate:"gt=0"`
	RecentDays           int `yaml:"recent_days" validate:"gte=0"`
}

// Thresholds drive the recommendations section of the analysis report.
type Thresholds struct {
	MaxDepth        int     `yaml:"max_depth" validate:"gte=0"`
	LibFiles        int     `yaml:"lib_files" validate:"gte=0"`
	DependencyRatio float64 `yaml:"dependency_ratio" validate:"gte=0"`
}

// Config holds all configuration for nixdead
type Config struct {
	// Extension of configuration-module files.
	Extension string `yaml:"extension" validate:"required,startswith=."`

	// IgnoreFile is the gitignore-style file honoured by the scanner.
	IgnoreFile string `yaml:"ignore_file" validate:"required"`

	// Excludes lists directory names never descended into.
	Excludes []string `yaml:"excludes"`

	// Artifact names, relative to the repository root.
	ReportFile string `yaml:"report_file" validate:"required"`
	PlanFile   string `yaml:"plan_file" validate:"required"`
	ScriptFile string `yaml:"script_file" validate:"required"`
	BackupDir  string `yaml:"backup_dir" validate:"required"`

	// VerifyCommand runs after the phase-1 removals in the generated script.
	VerifyCommand string `yaml:"verify_command" validate:"required"`

	Phases     PhaseLimits  `yaml:"phases"`
	Safety     SafetyConfig `yaml:"safety"`
	Thresholds Thresholds   `yaml:"thresholds"`

	// Logging
	LogLevel string `yaml:"log_level" validate:"oneof=debug info warn error"`
	JSONLogs bool   `yaml:"json_logs"`

	// Source is the last configuration file merged into this value, if any.
	Source string `yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Extension:  ".nix",
		IgnoreFile: ".nixdeadignore",
		Excludes: []string{
			".git",
			".direnv",
			"node_modules",
			"result",
			DirName,
		},
		ReportFile:    "improved-dependency-analysis.json",
		PlanFile:      "dead-code-removal-plan.json",
		ScriptFile:    "remove-dead-code.sh",
		BackupDir:     ".dead-code-backup",
		VerifyCommand: "nix flake check",
		Phases: PhaseLimits{
			Safe:          10,
			Review:        5,
			FalsePositive: 0,
		},
		Safety: SafetyConfig{
			Sample:               20,
			ComplexLineThreshold: 50,
			RecentDays:           30,
		},
		Thresholds: Thresholds{
			MaxDepth:        5,
			LibFiles:        30,
			DependencyRatio: 1.5,
		},
		LogLevel: "info",
	}
}

// GlobalPath returns the user-level config file path (~/.nixdead/config.yaml).
func GlobalPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(DirName, FileName)
	}
	return filepath.Join(home, DirName, FileName)
}

// ProjectPath returns the repository-level config file path.
func ProjectPath(root string) string {
	return filepath.Join(root, DirName, FileName)
}

// Load reads configuration for the repository at root with the following
// priority (highest to lowest):
// 1. Environment variables (NIXDEAD_*)
// 2. <root>/.env
// 3. Project-level config (<root>/.nixdead/config.yaml)
// 4. Global config (~/.nixdead/config.yaml)
// 5. Defaults
func Load(root string) (*Config, error) {
	cfg := DefaultConfig()

	for _, path := range []string{GlobalPath(), ProjectPath(root)} {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	dotenv, err := readDotenv(filepath.Join(root, ".env"))
	if err != nil {
		return nil, err
	}
	applyEnvOverrides(cfg, lookupWith(dotenv))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromFile reads configuration from a specific YAML file path
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := cfg.mergeFile(path); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg, lookupWith(nil))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// mergeFile overlays the YAML file at path onto c. A missing file is not an error.
func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	c.Source = path
	return nil
}

// Save writes the configuration to the specified YAML file path.
// It creates parent directories if they don't exist.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}

	return nil
}

var validate = validator.New()

// Validate checks that the configuration has valid required fields
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config: %s fails %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// readDotenv parses a .env file without touching the process environment.
func readDotenv(path string) (map[string]string, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, nil
	}
	values, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return values, nil
}

// lookupWith returns an env lookup where the process environment wins over fallback.
func lookupWith(fallback map[string]string) func(string) string {
	return func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return v
		}
		return fallback[key]
	}
}

// applyEnvOverrides applies environment variable overrides to the config
func applyEnvOverrides(cfg *Config, getenv func(string) string) {
	strs := map[string]*string{
		"NIXDEAD_EXTENSION":      &cfg.Extension,
		"NIXDEAD_IGNORE_FILE":    &cfg.IgnoreFile,
		"NIXDEAD_REPORT_FILE":    &cfg.ReportFile,
		"NIXDEAD_PLAN_FILE":      &cfg.PlanFile,
		"NIXDEAD_SCRIPT_FILE":    &cfg.ScriptFile,
		"NIXDEAD_BACKUP_DIR":     &cfg.BackupDir,
		"NIXDEAD_VERIFY_COMMAND": &cfg.VerifyCommand,
		"NIXDEAD_LOG_LEVEL":      &cfg.LogLevel,
	}
	for key, field := range strs {
		if v := getenv(key); v != "" {
			*field = v
		}
	}

	ints := map[string]*int{
		"NIXDEAD_SAFE_LIMIT":           &cfg.Phases.Safe,
		"NIXDEAD_REVIEW_LIMIT":         &cfg.Phases.Review,
		"NIXDEAD_FALSE_POSITIVE_LIMIT": &cfg.Phases.FalsePositive,
		"NIXDEAD_SAFETY_SAMPLE":        &cfg.Safety.Sample,
	}
	for key, field := range ints {
		if v := getenv(key); v != "" {
			if i, err := strconv.Atoi(v); err == nil && i >= 0 {
				*field = i
			}
		}
	}

	if v := getenv("NIXDEAD_EXCLUDES"); v != "" {
		cfg.Excludes = splitList(v)
	}
	if v := getenv("NIXDEAD_JSON_LOGS"); v != "" {
		cfg.JSONLogs = v == "true" || v == "1" || v == "yes"
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
