package healthcheck

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/l3aro/nixdead/internal/config"
	"github.com/l3aro/nixdead/internal/log"
	"github.com/l3aro/nixdead/pkg/pipeline"
	"github.com/l3aro/nixdead/pkg/report"
)

// Status values of a single check.
const (
	StatusOK    = "ok"
	StatusWarn  = "warn"
	StatusError = "error"
)

// CheckStatus is the outcome of one check.
type CheckStatus struct {
	Name   string
	Status string
	Detail string
}

// HealthCheckResult contains the full health check output for display.
type HealthCheckResult struct {
	ConfigPath  string
	ConfigScope string // "global", "project" or "" for defaults
	Root        string
	ModuleFiles int
	Checks      []CheckStatus
}

// Failed reports whether any check ended in StatusError.
func (r *HealthCheckResult) Failed() bool {
	for _, c := range r.Checks {
		if c.Status == StatusError {
			return true
		}
	}
	return false
}

// lookPath is replaced in tests.
var lookPath = exec.LookPath

// Check inspects the repository at root under cfg.
func Check(cfg *config.Config, root string) (*HealthCheckResult, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving root: %w", err)
	}

	result := &HealthCheckResult{
		ConfigPath:  cfg.Source,
		ConfigScope: scopeFromPath(cfg.Source),
		Root:        absRoot,
	}

	a := pipeline.New(cfg, log.Discard())

	rootCheck := checkRoot(absRoot)
	result.Checks = append(result.Checks, rootCheck)
	if rootCheck.Status == StatusError {
		return result, nil
	}

	_, files, err := a.Scan(absRoot)
	if err != nil {
		result.Checks = append(result.Checks, CheckStatus{Name: "scan", Status: StatusError, Detail: err.Error()})
		return result, nil
	}
	result.ModuleFiles = len(files)
	result.Checks = append(result.Checks, checkModules(len(files), cfg.Extension))

	result.Checks = append(result.Checks, checkVerifyCommand(cfg.VerifyCommand))
	result.Checks = append(result.Checks, checkReport(a, absRoot))

	return result, nil
}

// scopeFromPath determines "global" or "project" scope from a config file path.
// Returns empty string if path is empty.
func scopeFromPath(path string) string {
	if path == "" {
		return ""
	}
	if path == config.GlobalPath() {
		return "global"
	}
	return "project"
}

func checkRoot(root string) CheckStatus {
	c := CheckStatus{Name: "repository"}

	info, err := os.Stat(root)
	switch {
	case err != nil:
		c.Status, c.Detail = StatusError, err.Error()
	case !info.IsDir():
		c.Status, c.Detail = StatusError, "not a directory"
	default:
		c.Status, c.Detail = StatusOK, root
		if _, err := os.Stat(filepath.Join(root, "flake.nix")); err != nil {
			if _, err := os.Stat(filepath.Join(root, "default.nix")); err != nil {
				c.Status, c.Detail = StatusWarn, "no flake.nix or default.nix at the root"
			}
		}
	}
	return c
}

func checkModules(n int, ext string) CheckStatus {
	if n == 0 {
		return CheckStatus{Name: "modules", Status: StatusWarn, Detail: fmt.Sprintf("no %s files found", ext)}
	}
	return CheckStatus{Name: "modules", Status: StatusOK, Detail: fmt.Sprintf("%d %s files", n, ext)}
}

func checkVerifyCommand(command string) CheckStatus {
	c := CheckStatus{Name: "verify command"}

	fields := strings.Fields(command)
	if len(fields) == 0 {
		c.Status, c.Detail = StatusError, "verify command is empty"
		return c
	}
	path, err := lookPath(fields[0])
	if err != nil {
		c.Status, c.Detail = StatusWarn, fmt.Sprintf("%s not found on PATH", fields[0])
		return c
	}
	c.Status, c.Detail = StatusOK, path
	return c
}

func checkReport(a *pipeline.Analyzer, root string) CheckStatus {
	c := CheckStatus{Name: "report"}

	rep, err := report.Load(a.ReportPath(root))
	if errors.Is(err, report.ErrReportNotFound) {
		c.Status, c.Detail = StatusWarn, "not found; run `nixdead analyze`"
		return c
	}
	if err != nil {
		c.Status, c.Detail = StatusError, err.Error()
		return c
	}

	changed, err := a.Changes(root, rep)
	switch {
	case err != nil:
		c.Status, c.Detail = StatusError, err.Error()
	case len(changed) > 0:
		c.Status, c.Detail = StatusWarn, fmt.Sprintf("outdated; %d files changed since the last analysis", len(changed))
	default:
		c.Status, c.Detail = StatusOK, fmt.Sprintf("fresh, generated %s", rep.GeneratedAt.Format("2006-01-02 15:04:05"))
	}
	return c
}
