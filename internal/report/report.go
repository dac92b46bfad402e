// Package report renders project insights for the terminal.
package report

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/task-dashboard/internal/insight"
	"github.com/nhle/task-dashboard/internal/model"
	"github.com/nhle/task-dashboard/internal/theme"
)

// RenderProject formats a project's insights as a styled text report.
func RenderProject(project model.Project, in insight.ProjectInsights) string {
	header := theme.HeaderStyle.Render(project.Name)

	overview := []string{
		row("Status", string(project.Status)),
		row("Priority", theme.PriorityStyle(project.Priority).Render(string(project.Priority))),
		row("Tasks", fmt.Sprintf("%d", in.TotalTasks)),
		row("Completion", pct(in.CompletionRate)),
		row("Overdue", fmt.Sprintf("%s (%d)", pct(in.OverdueRate), in.OverdueCount)),
		row("Health", theme.HealthStyle(in.HealthScore).Render(
			fmt.Sprintf("%.0f/100", math.Round(in.HealthScore)))),
		row("Deadline", deadline(in.DaysUntilDeadline)),
		row("Days elapsed", fmt.Sprintf("%d", in.DaysElapsed)),
		row("Recent activity", fmt.Sprintf("%d", in.RecentActivityCount)),
		row("This week", weekly(in.Weekly)),
	}

	var statuses []string
	for _, s := range model.TaskStatuses {
		statuses = append(statuses, row(string(s),
			theme.StatusStyle(s).Render(fmt.Sprintf("%d", in.Distribution.Count(s)))))
	}

	var effort []string
	if in.Effort.EstimatedTasks > 0 || in.Effort.TrackedTasks > 0 {
		effort = append(effort,
			row("Estimated hours", fmt.Sprintf("%.1f (%d tasks)", in.Effort.EstimatedHours, in.Effort.EstimatedTasks)),
			row("Actual hours", fmt.Sprintf("%.1f (%d tasks)", in.Effort.ActualHours, in.Effort.TrackedTasks)),
		)
	}

	sections := []string{
		header,
		theme.PanelStyle.Render(strings.Join(overview, "\n")),
		theme.PanelStyle.Render(strings.Join(statuses, "\n")),
	}
	if len(effort) > 0 {
		sections = append(sections, theme.PanelStyle.Render(strings.Join(effort, "\n")))
	}
	if in.Weekly.Kind == insight.DeltaNoBaseline {
		sections = append(sections, theme.HelpStyle.Render("No tasks were completed last week, so there is no baseline."))
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...) + "\n"
}

func row(label, value string) string {
	return theme.LabelStyle.Render(label) + value
}

func pct(v float64) string {
	return fmt.Sprintf("%.0f%%", math.Round(v))
}

func deadline(days *int) string {
	switch {
	case days == nil:
		return "none"
	case *days < 0:
		return theme.HealthStyle(0).Render(fmt.Sprintf("passed %d days ago", -*days))
	case *days == 1:
		return "1 day left"
	default:
		return fmt.Sprintf("%d days left", *days)
	}
}

func weekly(d insight.ProductivityDelta) string {
	done := fmt.Sprintf("%d done (last week %d)", d.ThisWeek, d.LastWeek)
	var change string
	switch d.Kind {
	case insight.DeltaPositive:
		change = fmt.Sprintf(" +%.0f%%", math.Round(d.PercentMagnitude))
	case insight.DeltaNegative:
		change = fmt.Sprintf(" -%.0f%%", math.Round(d.PercentMagnitude))
	case insight.DeltaNeutral:
		change = " no change"
	}
	return done + theme.DeltaStyle(d.Kind).Render(change)
}
