// Package plan turns the dead files of an analysis report into a phased,
// risk-ordered removal plan with per-file safety records and a removal script.
package plan

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/l3aro/nixdead/internal/log"
	"github.com/l3aro/nixdead/pkg/classify"
	"github.com/l3aro/nixdead/pkg/report"
)

// Risk levels of removal phases.
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// Phase is one step of the removal plan.
type Phase struct {
	Phase           int      `json:"phase"`
	Description     string   `json:"description"`
	Files           []string `json:"files"`
	RiskLevel       string   `json:"risk_level"`
	TotalCandidates int      `json:"total_candidates"`
}

// SafetyRecord describes one candidate file on disk.
type SafetyRecord struct {
	File                string     `json:"file"`
	Exists              bool       `json:"exists"`
	SizeBytes           int64      `json:"size_bytes"`
	LineCount           int        `json:"line_count"`
	HasExports          bool       `json:"has_exports"`
	HasComplexLogic     bool       `json:"has_complex_logic"`
	ModifiedAt          *time.Time `json:"modified_at,omitempty"`
	RecentModifications bool       `json:"recent_modifications"`
}

// Plan is the removal plan artifact.
type Plan struct {
	Timestamp      time.Time                  `json:"timestamp"`
	Repository     string                     `json:"repository"`
	TotalUnused    int                        `json:"total_unused"`
	Categories     map[classify.Tier][]string `json:"categories"`
	RemovalPhases  []Phase                    `json:"removal_phases"`
	SafetyAnalysis map[string]SafetyRecord    `json:"safety_analysis"`
	VerifyCommand  string                     `json:"verify_command"`
	BackupDir      string                     `json:"backup_dir"`
}

// Phase returns the phase numbered n.
func (p *Plan) Phase(n int) (Phase, bool) {
	for _, ph := range p.RemovalPhases {
		if ph.Phase == n {
			return ph, true
		}
	}
	return Phase{}, false
}

// Limits caps the files scheduled per phase. Zero means no cap.
type Limits struct {
	Safe          int
	Review        int
	FalsePositive int
}

// Options configures a Planner.
type Options struct {
	Limits               Limits
	SafetySample         int
	ComplexLineThreshold int
	RecentDays           int
	VerifyCommand        string
	BackupDir            string
	Logger               log.Logger
	Now                  func() time.Time
}

// DefaultOptions returns the stock planning limits.
func DefaultOptions() Options {
	return Options{
		Limits:               Limits{Safe: 10, Review: 5},
		SafetySample:         20,
		ComplexLineThreshold: 50,
		RecentDays:           30,
		VerifyCommand:        "nix flake check",
		BackupDir:            ".dead-code-backup",
	}
}

// Planner builds removal plans.
type Planner struct {
	opts Options
}

// New returns a Planner. Missing logger and clock fall back to defaults.
func New(opts Options) *Planner {
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Planner{opts: opts}
}

var phaseSpecs = []struct {
	tier        classify.Tier
	description string
	risk        string
}{
	{classify.SafeToRemove, "Safe removals - Test files and obvious dead code", RiskLow},
	{classify.ReviewRequired, "Review required - Potentially unused modules", RiskMedium},
	{classify.PotentialFalsePositive, "Manual verification - Possible false positives", RiskHigh},
}

func (p *Planner) limit(t classify.Tier) int {
	switch t {
	case classify.SafeToRemove:
		return p.opts.Limits.Safe
	case classify.ReviewRequired:
		return p.opts.Limits.Review
	case classify.PotentialFalsePositive:
		return p.opts.Limits.FalsePositive
	}
	return 0
}

// Build plans the removal of rep's unused files. root is the repository the
// report was computed for.
func (p *Planner) Build(root string, rep *report.Report) *Plan {
	unused := rep.UnusedAnalysis.Unused
	categories := classify.Partition(unused)

	plan := &Plan{
		Timestamp:      p.opts.Now(),
		Repository:     root,
		TotalUnused:    len(unused),
		Categories:     categories,
		RemovalPhases:  make([]Phase, 0, len(phaseSpecs)),
		SafetyAnalysis: make(map[string]SafetyRecord),
		VerifyCommand:  p.opts.VerifyCommand,
		BackupDir:      p.opts.BackupDir,
	}

	for i, ps := range phaseSpecs {
		candidates := categories[ps.tier]
		files := candidates
		if n := p.limit(ps.tier); n > 0 && len(files) > n {
			files = files[:n]
		}
		plan.RemovalPhases = append(plan.RemovalPhases, Phase{
			Phase:           i + 1,
			Description:     ps.description,
			Files:           append([]string{}, files...),
			RiskLevel:       ps.risk,
			TotalCandidates: len(candidates),
		})
	}

	sample := unused
	if n := p.opts.SafetySample; n > 0 && len(sample) > n {
		sample = sample[:n]
	}
	for _, file := range sample {
		plan.SafetyAnalysis[file] = p.Safety(root, file)
	}

	p.opts.Logger.Debug("removal plan built", "unused", len(unused), "phase1", len(plan.RemovalPhases[0].Files))
	return plan
}

var exportKeyword = regexp.MustCompile(`\b(rec|let|with)\b`)

// Safety inspects one repository-relative file. A missing or unreadable file
// yields a record with Exists false or zeroed content fields.
func (p *Planner) Safety(root, file string) SafetyRecord {
	rec := SafetyRecord{File: file}

	full := filepath.Join(root, filepath.FromSlash(file))
	info, err := os.Stat(full)
	if err != nil {
		return rec
	}
	rec.Exists = true
	rec.SizeBytes = info.Size()
	mod := info.ModTime().UTC()
	rec.ModifiedAt = &mod
	if p.opts.RecentDays > 0 {
		rec.RecentModifications = p.opts.Now().Sub(info.ModTime()) < time.Duration(p.opts.RecentDays)*24*time.Hour
	}

	data, err := os.ReadFile(full)
	if err != nil {
		p.opts.Logger.Warn("could not analyze file", "file", file, "error", err)
		return rec
	}
	content := string(data)

	rec.LineCount = len(strings.Split(content, "\n"))
	rec.HasExports = strings.Contains(content, "=") && exportKeyword.MatchString(content)
	rec.HasComplexLogic = rec.LineCount > p.opts.ComplexLineThreshold ||
		strings.Contains(content, "import") ||
		strings.Contains(content, "callPackage")

	return rec
}

// Write stores the plan as indented JSON.
func (p *Plan) Write(path string) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode plan: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write plan: %w", err)
	}
	return nil
}

// Load reads a plan written by Write.
func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan: %w", err)
	}
	var p Plan
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to decode plan %s: %w", path, err)
	}
	return &p, nil
}
