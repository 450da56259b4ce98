// Package pipeline wires the analysis stages together: scan, extract, build
// the graph, resolve entry points, then reachability, cycles and depth.
package pipeline

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/l3aro/nixdead/internal/config"
	"github.com/l3aro/nixdead/internal/log"
	"github.com/l3aro/nixdead/internal/scanner"
	"github.com/l3aro/nixdead/pkg/analysis"
	"github.com/l3aro/nixdead/pkg/extract"
	"github.com/l3aro/nixdead/pkg/fingerprint"
	"github.com/l3aro/nixdead/pkg/graph"
	"github.com/l3aro/nixdead/pkg/plan"
	"github.com/l3aro/nixdead/pkg/report"
)

// Result holds every intermediate value of one analysis run.
type Result struct {
	Root        string
	Files       []scanner.FileInfo
	Graph       *graph.Graph
	EntryPoints graph.Set
	Reachable   graph.Set
	Dead        graph.Set
	Cycles      []analysis.Cycle
	Depths      analysis.DepthMap
	Fingerprint string
	Tree        *fingerprint.Tree
	Report      *report.Report
}

// Analyzer runs the pipeline with one configuration.
type Analyzer struct {
	cfg    *config.Config
	logger log.Logger
	now    func() time.Time
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) {
		a.now = now
	}
}

// New returns an Analyzer. A nil logger discards output.
func New(cfg *config.Config, logger log.Logger, opts ...Option) *Analyzer {
	if logger == nil {
		logger = log.Discard()
	}
	a := &Analyzer{cfg: cfg, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ScannerOptions derives scanner options from cfg. The backup directory is
// always excluded so copied modules never become nodes.
func ScannerOptions(cfg *config.Config, logger log.Logger) scanner.Options {
	opts := scanner.DefaultOptions()
	opts.Extension = cfg.Extension
	opts.IgnoreFileName = cfg.IgnoreFile
	opts.Excludes = append(append([]string{}, cfg.Excludes...), filepath.Base(cfg.BackupDir))
	opts.Logger = logger
	return opts
}

// PlannerOptions derives planner options from cfg.
func PlannerOptions(cfg *config.Config, logger log.Logger) plan.Options {
	return plan.Options{
		Limits: plan.Limits{
			Safe:          cfg.Phases.Safe,
			Review:        cfg.Phases.Review,
			FalsePositive: cfg.Phases.FalsePositive,
		},
		SafetySample:         cfg.Safety.Sample,
		ComplexLineThreshold: cfg.Safety.ComplexLineThreshold,
		RecentDays:           cfg.Safety.RecentDays,
		VerifyCommand:        cfg.VerifyCommand,
		BackupDir:            cfg.BackupDir,
		Logger:               logger,
	}
}

// Thresholds derives the report thresholds from cfg.
func Thresholds(cfg *config.Config) report.Thresholds {
	return report.Thresholds{
		MaxDepth:        cfg.Thresholds.MaxDepth,
		LibFiles:        cfg.Thresholds.LibFiles,
		DependencyRatio: cfg.Thresholds.DependencyRatio,
	}
}

// Scan loads the module files under root.
func (a *Analyzer) Scan(root string) (string, []scanner.FileInfo, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", nil, fmt.Errorf("resolving root: %w", err)
	}
	files, err := scanner.New(ScannerOptions(a.cfg, a.logger)).Scan(absRoot)
	if err != nil {
		return "", nil, fmt.Errorf("scanning %s: %w", absRoot, err)
	}
	return absRoot, files, nil
}

// Run analyses the repository at root.
func (a *Analyzer) Run(root string) (*Result, error) {
	absRoot, files, err := a.Scan(root)
	if err != nil {
		return nil, err
	}
	a.logger.Info("scanned repository", "root", absRoot, "files", len(files))

	contents := scanner.Contents(files)
	ids := make([]string, 0, len(files))
	for _, f := range files {
		ids = append(ids, f.Path)
	}

	g := graph.Build(contents, extract.New(absRoot, ids))
	a.logger.Debug("graph built", "nodes", g.Len(), "edges", g.EdgeCount())

	tree := fingerprint.New(contents)
	entries := analysis.EntryPoints(g)
	reachable := analysis.Reachable(g, entries)
	res := &Result{
		Root:        absRoot,
		Files:       files,
		Graph:       g,
		EntryPoints: entries,
		Reachable:   reachable,
		Dead:        analysis.Dead(g, reachable),
		Cycles:      analysis.Cycles(g),
		Depths:      analysis.Depths(g, entries),
		Fingerprint: tree.Sum(),
		Tree:        tree,
	}
	if len(entries) == 0 {
		a.logger.Warn("no entry points found; every file is unreachable", "root", absRoot)
	}

	res.Report = report.Build(report.Input{
		Repository:  absRoot,
		Fingerprint: res.Fingerprint,
		FileHashes:  tree.Hashes(),
		Graph:       g,
		EntryPoints: entries,
		Reachable:   reachable,
		Cycles:      res.Cycles,
		Depths:      res.Depths,
		Thresholds:  Thresholds(a.cfg),
		Now:         a.now(),
	})

	a.logger.Info("analysis complete",
		"entry_points", len(entries),
		"reachable", len(reachable),
		"unused", len(res.Dead),
		"cycles", len(res.Cycles),
	)
	return res, nil
}

// Snapshot exports the graph with reachability annotations.
func (r *Result) Snapshot() *graph.Snapshot {
	return graph.Export(r.Graph, graph.Annotations{
		EntryPoints: r.EntryPoints,
		Reachable:   r.Reachable,
		Depths:      r.Depths,
	})
}

// ReportPath returns where the analysis report lives for root.
func (a *Analyzer) ReportPath(root string) string {
	return filepath.Join(root, a.cfg.ReportFile)
}

// Analyze runs the pipeline and writes the report artifact.
func (a *Analyzer) Analyze(root string) (*Result, error) {
	res, err := a.Run(root)
	if err != nil {
		return nil, err
	}
	path := a.ReportPath(res.Root)
	if err := res.Report.Write(path); err != nil {
		return nil, err
	}
	a.logger.Info("report written", "path", path)
	return res, nil
}

// Changes lists the files under root that were added, removed or modified
// since rep was written. An empty result means the report is current.
func (a *Analyzer) Changes(root string, rep *report.Report) ([]string, error) {
	_, files, err := a.Scan(root)
	if err != nil {
		return nil, err
	}
	current := fingerprint.New(scanner.Contents(files))
	if current.Sum() == rep.Fingerprint {
		return []string{}, nil
	}
	return fingerprint.FromHashes(rep.FileHashes).Changed(current), nil
}

// PlanResult is the outcome of Plan.
type PlanResult struct {
	Plan       *plan.Plan
	PlanPath   string
	ScriptPath string
	Stale      bool
	Changed    []string
}

// Plan loads the report for root and writes the removal plan and script.
// The report must exist; otherwise the error wraps report.ErrReportNotFound.
func (a *Analyzer) Plan(root string) (*PlanResult, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving root: %w", err)
	}

	rep, err := report.Load(a.ReportPath(absRoot))
	if err != nil {
		return nil, err
	}

	changed, err := a.Changes(absRoot, rep)
	if err != nil {
		return nil, err
	}
	if len(changed) > 0 {
		a.logger.Warn("repository changed since the last analysis; plan may be outdated",
			"report", a.cfg.ReportFile, "changed", len(changed))
		for _, f := range changed {
			a.logger.Debug("changed since analysis", "file", f)
		}
	}

	popts := PlannerOptions(a.cfg, a.logger)
	popts.Now = a.now
	p := plan.New(popts).Build(absRoot, rep)

	out := &PlanResult{
		Plan:       p,
		PlanPath:   filepath.Join(absRoot, a.cfg.PlanFile),
		ScriptPath: filepath.Join(absRoot, a.cfg.ScriptFile),
		Stale:      len(changed) > 0,
		Changed:    changed,
	}
	if err := p.Write(out.PlanPath); err != nil {
		return nil, err
	}
	if err := p.WriteScript(out.ScriptPath); err != nil {
		return nil, err
	}
	a.logger.Info("removal plan written", "plan", out.PlanPath, "script", out.ScriptPath)
	return out, nil
}
