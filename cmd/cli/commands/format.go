package commands

import (
	"fmt"
	"strings"

	"github.com/jakechorley/shift-optimizer/pkg/core/intensity"
	"github.com/jakechorley/shift-optimizer/pkg/core/model"
	"github.com/jakechorley/shift-optimizer/pkg/core/optimizer"
	"github.com/jakechorley/shift-optimizer/pkg/core/shiftgrid"
	"github.com/jakechorley/shift-optimizer/pkg/db"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorDim    = "\033[2m"
)

const unassigned = "-"

func formatPlan(result shiftgrid.Result) string {
	var b strings.Builder
	if !result.IsFeasible {
		fmt.Fprintf(&b, "%s✗ %s%s\n", colorRed, result.Message, colorReset)
		return b.String()
	}

	fmt.Fprintf(&b, "%s✓ %s%s\n\n", colorGreen, result.Message, colorReset)
	fmt.Fprintf(&b, "Shifts:   %d\n", result.MinimumShiftsNeeded)
	fmt.Fprintf(&b, "Duration: %.2f h\n", result.ShiftDuration)
	fmt.Fprintf(&b, "Starts:   %s\n", strings.Join(result.ShiftStartTimes, ", "))
	return b.String()
}

func formatIntensities(result intensity.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-12s %s\n", "Intensity", "Shift length (h)")
	fmt.Fprintf(&b, "%s\n", strings.Repeat("-", 30))
	for _, i := range result.DistinguishedIntensities {
		fmt.Fprintf(&b, "%-12d %.2f\n", i, result.IntensityDurationMap[i])
	}
	return b.String()
}

// formatAssignments renders one row per post and one column per hour
func formatAssignments(posts []model.Post, hours []model.Hour, labels [][]string) string {
	postColWidth := 10
	for _, p := range posts {
		postColWidth = max(postColWidth, len(p.Value)+2)
	}
	hourColWidth := 8
	for _, row := range labels {
		for _, label := range row {
			hourColWidth = max(hourColWidth, len(label)+2)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%-*s", postColWidth, "")
	for _, h := range hours {
		fmt.Fprintf(&b, "%-*s", hourColWidth, h.Value)
	}
	b.WriteString("\n")
	b.WriteString(strings.Repeat("-", postColWidth+hourColWidth*len(hours)))
	b.WriteString("\n")

	for p, post := range posts {
		fmt.Fprintf(&b, "%-*s", postColWidth, post.Value)
		for h := range hours {
			label := ""
			if p < len(labels) && h < len(labels[p]) {
				label = labels[p][h]
			}
			if label == "" {
				fmt.Fprintf(&b, "%s%-*s%s", colorDim, hourColWidth, unassigned, colorReset)
				continue
			}
			fmt.Fprintf(&b, "%-*s", hourColWidth, label)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func formatOutcome(outcome optimizer.Outcome) string {
	var b strings.Builder
	color := statusColor(outcome.IsOptim, outcome.Status)
	fmt.Fprintf(&b, "\nStatus:    %s%s%s\n", color, outcome.Status, colorReset)
	if outcome.Backend != "" {
		fmt.Fprintf(&b, "Backend:   %s\n", outcome.Backend)
	}
	if outcome.SolverInvoked {
		fmt.Fprintf(&b, "Objective: %g\n", outcome.Objective)
		fmt.Fprintf(&b, "Duration:  %s\n", outcome.Duration)
	}
	for _, slot := range outcome.Uncoverable {
		fmt.Fprintf(&b, "%sNo one can cover slot %s%s\n", colorYellow, slot, colorReset)
	}
	for _, v := range outcome.Violations {
		fmt.Fprintf(&b, "%s%s at %d:%d: %s%s\n", colorYellow, v.RuleName, v.Post, v.Hour, v.Description, colorReset)
	}
	return b.String()
}

// statusColor is green for an optimal result, red for a solver failure and
// yellow for anything in between
func statusColor(isOptim bool, status string) string {
	switch {
	case isOptim:
		return colorGreen
	case status == optimizer.StatusStructurallyInfeasible, status == optimizer.StatusInvalidSolution:
		return colorYellow
	default:
		return colorRed
	}
}

func formatRuns(runs []db.Run) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-20s %-8s %-10s %-24s %-10s %s\n", "Created", "Backend", "Size", "Status", "Objective", "ID")
	b.WriteString(strings.Repeat("-", 100))
	b.WriteString("\n")
	for _, run := range runs {
		size := fmt.Sprintf("%dx%dx%d", run.WorkerCount, run.PostCount, run.HourCount)
		color := statusColor(run.IsOptim, run.Status)
		fmt.Fprintf(&b, "%-20s %-8s %-10s %s%-24s%s %-10g %s\n",
			run.CreatedAt.Format("2006-01-02 15:04:05"),
			run.Backend,
			size,
			color, run.Status, colorReset,
			run.Objective,
			run.ID)
	}
	return b.String()
}
