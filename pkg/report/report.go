// Package report assembles the analysis artifact written after a run and
// reads it back for the planning stage.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/l3aro/nixdead/pkg/analysis"
	"github.com/l3aro/nixdead/pkg/graph"
)

// ErrReportNotFound is returned by Load when no analysis has been written.
var ErrReportNotFound = errors.New("dependency analysis not found")

// Statistics summarises the graph and the reachability result.
type Statistics struct {
	TotalFiles         int                    `json:"total_files"`
	LibFiles           int                    `json:"lib_files"`
	ModuleFiles        int                    `json:"module_files"`
	TestFiles          int                    `json:"test_files"`
	ScriptFiles        int                    `json:"script_files"`
	HostFiles          int                    `json:"host_files"`
	TotalDependencies  int                    `json:"total_dependencies"`
	UnusedFilesCount   int                    `json:"unused_files_count"`
	UsedFilesCount     int                    `json:"used_files_count"`
	EntryPointsCount   int                    `json:"entry_points_count"`
	MaxDependencyDepth int                    `json:"max_dependency_depth"`
	CycleCount         int                    `json:"cycle_count"`
	FilesByCategory    map[graph.Category]int `json:"files_by_category"`
}

// UnusedAnalysis lists the dead, reachable and entry files, each sorted.
type UnusedAnalysis struct {
	Unused      []string `json:"unused"`
	Used        []string `json:"used"`
	EntryPoints []string `json:"entry_points"`
}

// DepthAnalysis is the depth histogram of reachable files.
type DepthAnalysis struct {
	MaxDepth          int         `json:"max_depth"`
	DepthDistribution map[int]int `json:"depth_distribution"`
}

// Report is the primary analysis artifact.
type Report struct {
	GeneratedAt      time.Time           `json:"generated_at"`
	Repository       string              `json:"repository"`
	Fingerprint      string              `json:"fingerprint"`
	FileHashes       map[string]string   `json:"file_hashes"`
	Statistics       Statistics          `json:"statistics"`
	UnusedAnalysis   UnusedAnalysis      `json:"unused_analysis"`
	UnusedByCategory map[string][]string `json:"unused_by_category"`
	DependencyCycles [][]string          `json:"dependency_cycles"`
	DepthAnalysis    DepthAnalysis       `json:"depth_analysis"`
	Recommendations  []string            `json:"recommendations"`
}

// Thresholds trigger recommendations when exceeded.
type Thresholds struct {
	MaxDepth        int
	LibFiles        int
	DependencyRatio float64
}

// DefaultThresholds returns the stock recommendation limits.
func DefaultThresholds() Thresholds {
	return Thresholds{MaxDepth: 5, LibFiles: 30, DependencyRatio: 1.5}
}

// Input is everything Build needs from one analysis run.
type Input struct {
	Repository  string
	Fingerprint string
	FileHashes  map[string]string
	Graph       *graph.Graph
	EntryPoints graph.Set
	Reachable   graph.Set
	Cycles      []analysis.Cycle
	Depths      analysis.DepthMap
	Thresholds  Thresholds
	Now         time.Time
}

// Buckets are the directory groups used for unused_by_category, in order.
// A file falls in the first bucket whose prefix it carries, else "other".
var Buckets = []struct {
	Name   string
	Prefix string
}{
	{"lib", "lib/"},
	{"modules", "modules/"},
	{"tests", "tests/"},
	{"hosts", "hosts/"},
	{"overlays", "overlays/"},
	{"scripts", "scripts/"},
}

// OtherBucket collects files matching no bucket prefix.
const OtherBucket = "other"

// Build assembles a Report.
func Build(in Input) *Report {
	g := in.Graph
	nodes := g.Nodes()
	dead := analysis.Dead(g, in.Reachable)

	stats := Statistics{
		TotalFiles:         len(nodes),
		LibFiles:           countPrefix(nodes, "lib/"),
		ModuleFiles:        countPrefix(nodes, "modules/"),
		TestFiles:          countPrefix(nodes, "tests/"),
		ScriptFiles:        countPrefix(nodes, "scripts/"),
		HostFiles:          countPrefix(nodes, "hosts/"),
		TotalDependencies:  g.EdgeCount(),
		UnusedFilesCount:   len(dead),
		UsedFilesCount:     len(in.Reachable),
		EntryPointsCount:   len(in.EntryPoints),
		MaxDependencyDepth: in.Depths.Max(),
		CycleCount:         len(in.Cycles),
		FilesByCategory:    g.CountByCategory(),
	}

	cycles := make([][]string, 0, len(in.Cycles))
	for _, c := range in.Cycles {
		cycles = append(cycles, []string(c))
	}

	unused := dead.Sorted()
	r := &Report{
		GeneratedAt: in.Now,
		Repository:  in.Repository,
		Fingerprint: in.Fingerprint,
		FileHashes:  in.FileHashes,
		Statistics:  stats,
		UnusedAnalysis: UnusedAnalysis{
			Unused:      unused,
			Used:        in.Reachable.Sorted(),
			EntryPoints: in.EntryPoints.Sorted(),
		},
		UnusedByCategory: ByBucket(unused),
		DependencyCycles: cycles,
		DepthAnalysis: DepthAnalysis{
			MaxDepth:          stats.MaxDependencyDepth,
			DepthDistribution: in.Depths.Distribution(),
		},
	}
	r.Recommendations = Recommend(stats, in.Thresholds)
	return r
}

func countPrefix(ids []string, prefix string) int {
	n := 0
	for _, id := range ids {
		if strings.HasPrefix(id, prefix) {
			n++
		}
	}
	return n
}

// ByBucket groups sorted files by directory bucket. Every bucket is present.
func ByBucket(files []string) map[string][]string {
	out := make(map[string][]string, len(Buckets)+1)
	for _, b := range Buckets {
		out[b.Name] = []string{}
	}
	out[OtherBucket] = []string{}

next:
	for _, f := range files {
		for _, b := range Buckets {
			if strings.HasPrefix(f, b.Prefix) {
				out[b.Name] = append(out[b.Name], f)
				continue next
			}
		}
		out[OtherBucket] = append(out[OtherBucket], f)
	}
	return out
}

// DependencyRatio is the mean number of distinct references per file.
func (s Statistics) DependencyRatio() float64 {
	if s.TotalFiles == 0 {
		return 0
	}
	return float64(s.TotalDependencies) / float64(s.TotalFiles)
}

// Recommend derives human-readable advice from the statistics.
func Recommend(s Statistics, th Thresholds) []string {
	recs := make([]string, 0)
	if s.UnusedFilesCount > 0 {
		recs = append(recs, fmt.Sprintf("Review %d unused files for potential removal", s.UnusedFilesCount))
	}
	if s.CycleCount > 0 {
		recs = append(recs, fmt.Sprintf("Fix %d dependency cycles detected", s.CycleCount))
	}
	if s.MaxDependencyDepth > th.MaxDepth {
		recs = append(recs, fmt.Sprintf("Consider flattening dependency tree (max depth: %d)", s.MaxDependencyDepth))
	}
	if s.LibFiles > th.LibFiles {
		recs = append(recs, fmt.Sprintf("Large lib/ directory (%d files) - consider modularization", s.LibFiles))
	}
	if ratio := s.DependencyRatio(); ratio > th.DependencyRatio {
		recs = append(recs, fmt.Sprintf("High dependency ratio (%.2f) - review coupling", ratio))
	}
	return recs
}

// Write stores the report as indented JSON.
func (r *Report) Write(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// Load reads a report written by Write. A missing file yields an error
// wrapping ErrReportNotFound.
func Load(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w at %s: run `nixdead analyze` first", ErrReportNotFound, path)
		}
		return nil, fmt.Errorf("failed to read report: %w", err)
	}

	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to decode report %s: %w", path, err)
	}
	return &r, nil
}
