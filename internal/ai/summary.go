package ai

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/nhle/task-dashboard/internal/insight"
	"github.com/nhle/task-dashboard/internal/model"
)

// maxOverdueTitles caps how many overdue task titles go into a prompt.
const maxOverdueTitles = 5

// ProjectSummary is the project context handed to the completion backend.
type ProjectSummary struct {
	Project  model.Project
	Insights insight.ProjectInsights
	Overdue  []string
}

// NewProjectSummary builds a summary from a project, its computed insights,
// and its tasks. Only overdue task titles are kept from tasks.
func NewProjectSummary(
	project model.Project,
	insights insight.ProjectInsights,
	tasks []model.Task,
	now time.Time,
) ProjectSummary {
	s := ProjectSummary{Project: project, Insights: insights}
	for _, t := range tasks {
		if len(s.Overdue) == maxOverdueTitles {
			break
		}
		if t.IsOverdue(now) {
			s.Overdue = append(s.Overdue, t.Title)
		}
	}
	return s
}

// String renders the summary as prompt text.
func (s ProjectSummary) String() string {
	var sb strings.Builder
	in := s.Insights

	fmt.Fprintf(&sb, "Project: %s (status %s, priority %s)\n",
		s.Project.Name, s.Project.Status, s.Project.Priority)
	if s.Project.Description != "" {
		fmt.Fprintf(&sb, "Description: %s\n", s.Project.Description)
	}
	fmt.Fprintf(&sb, "Tasks: %d total; todo=%d, in_progress=%d, in_review=%d, done=%d, cancelled=%d\n",
		in.TotalTasks, in.Distribution.Todo, in.Distribution.InProgress,
		in.Distribution.InReview, in.Distribution.Done, in.Distribution.Cancelled)
	fmt.Fprintf(&sb, "Completion rate: %.0f%%, overdue rate: %.0f%%, health score: %.0f/100\n",
		math.Round(in.CompletionRate), math.Round(in.OverdueRate), math.Round(in.HealthScore))
	if in.DaysUntilDeadline != nil {
		fmt.Fprintf(&sb, "Days until deadline: %d\n", *in.DaysUntilDeadline)
	}
	fmt.Fprintf(&sb, "Completed this week: %d, last week: %d\n",
		in.Weekly.ThisWeek, in.Weekly.LastWeek)
	if len(s.Overdue) > 0 {
		fmt.Fprintf(&sb, "Overdue tasks: %s\n", strings.Join(s.Overdue, "; "))
	}
	return sb.String()
}

// DashboardSummary renders a user's cross-project insights as prompt text.
func DashboardSummary(in insight.UserInsights) string {
	return fmt.Sprintf(
		"Across %d projects the user has %d tasks: %.0f%% complete, %.0f%% overdue, health %.0f/100.\n",
		len(in.ByProject), in.TotalTasks,
		math.Round(in.CompletionRate), math.Round(in.OverdueRate), math.Round(in.HealthScore),
	)
}
