package commands

import (
	"fmt"
	"io"
	"sort"

	"github.com/charmbracelet/lipgloss"

	"github.com/l3aro/nixdead/internal/healthcheck"
	"github.com/l3aro/nixdead/pkg/classify"
	"github.com/l3aro/nixdead/pkg/plan"
	"github.com/l3aro/nixdead/pkg/report"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))
	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Width(22)
	goodStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	badStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// previewCount is how many files of a phase the summary lists.
const previewCount = 3

func row(label string, value any) string {
	return labelStyle.Render(label) + fmt.Sprint(value)
}

func renderAnalysis(w io.Writer, rep *report.Report, reportPath string) {
	s := rep.Statistics
	lines := []string{
		titleStyle.Render("Dependency analysis"),
		row("Total files", s.TotalFiles),
		row("Entry points", s.EntryPointsCount),
		row("Used files", goodStyle.Render(fmt.Sprint(s.UsedFilesCount))),
		row("Unused files", countStyle(s.UnusedFilesCount).Render(fmt.Sprint(s.UnusedFilesCount))),
		row("Dependencies", s.TotalDependencies),
		row("Max depth", s.MaxDependencyDepth),
		row("Cycles", countStyle(s.CycleCount).Render(fmt.Sprint(s.CycleCount))),
	}

	if s.UnusedFilesCount > 0 {
		lines = append(lines, "", titleStyle.Render("Unused by directory"))
		names := make([]string, 0, len(rep.UnusedByCategory))
		for name, files := range rep.UnusedByCategory {
			if len(files) > 0 {
				names = append(names, name)
			}
		}
		sort.Strings(names)
		for _, name := range names {
			lines = append(lines, row(name, len(rep.UnusedByCategory[name])))
		}
	}

	if dist := rep.DepthAnalysis.DepthDistribution; len(dist) > 0 {
		lines = append(lines, "", titleStyle.Render("Depth distribution"))
		levels := make([]int, 0, len(dist))
		for d := range dist {
			levels = append(levels, d)
		}
		sort.Ints(levels)
		for _, d := range levels {
			lines = append(lines, row(fmt.Sprintf("depth %d", d), dist[d]))
		}
	}

	if len(rep.Recommendations) > 0 {
		lines = append(lines, "", titleStyle.Render("Recommendations"))
		for i, r := range rep.Recommendations {
			lines = append(lines, fmt.Sprintf("%d. %s", i+1, r))
		}
	}

	lines = append(lines, "", dimStyle.Render("Report written to "+reportPath))
	fmt.Fprintln(w, lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func countStyle(n int) lipgloss.Style {
	if n == 0 {
		return goodStyle
	}
	return warnStyle
}

var tierStyles = map[classify.Tier]lipgloss.Style{
	classify.SafeToRemove:           goodStyle,
	classify.ReviewRequired:         warnStyle,
	classify.PotentialFalsePositive: badStyle,
	classify.KeepForReference:       dimStyle,
}

func renderPlan(w io.Writer, p *plan.Plan, planPath, scriptPath string) {
	lines := []string{
		titleStyle.Render("Removal plan"),
		row("Total unused", p.TotalUnused),
	}
	for _, tier := range classify.Tiers {
		lines = append(lines, row(string(tier), tierStyles[tier].Render(fmt.Sprint(len(p.Categories[tier])))))
	}

	lines = append(lines, "", titleStyle.Render("Removal phases"))
	for _, ph := range p.RemovalPhases {
		lines = append(lines, fmt.Sprintf("Phase %d: %s", ph.Phase, ph.Description))
		lines = append(lines, "  "+row("Risk", ph.RiskLevel))
		lines = append(lines, "  "+row("Files", fmt.Sprintf("%d of %d", len(ph.Files), ph.TotalCandidates)))
		for i, f := range ph.Files {
			if i == previewCount {
				lines = append(lines, dimStyle.Render(fmt.Sprintf("    ... and %d more", len(ph.Files)-previewCount)))
				break
			}
			lines = append(lines, "    - "+f)
		}
	}

	lines = append(lines,
		"",
		titleStyle.Render("Next steps"),
		"1. Review plan: "+planPath,
		"2. Create backup: nixdead backup --phase 1",
		"3. Run removal: "+scriptPath,
		"4. Commit changes if the build still passes",
	)
	fmt.Fprintln(w, lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func statusStyle(status string) lipgloss.Style {
	switch status {
	case healthcheck.StatusOK:
		return goodStyle
	case healthcheck.StatusWarn:
		return warnStyle
	default:
		return badStyle
	}
}
