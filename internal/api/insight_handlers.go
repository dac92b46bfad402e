package api

import (
	"context"
	"math"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/nhle/task-dashboard/internal/auth"
	"github.com/nhle/task-dashboard/internal/insight"
	"github.com/nhle/task-dashboard/internal/model"
	"github.com/nhle/task-dashboard/internal/store"
)

// weeklyView is the JSON shape of a week-over-week delta. PercentMagnitude
// is null when there is no baseline.
type weeklyView struct {
	Kind             insight.DeltaKind `json:"kind"`
	PercentMagnitude *int              `json:"percentMagnitude"`
	ThisWeek         int               `json:"thisWeek"`
	LastWeek         int               `json:"lastWeek"`
}

// insightsView is the JSON shape of project metrics. Rates are rounded to
// whole percentages here and nowhere else.
type insightsView struct {
	ProjectID           string                     `json:"projectId,omitempty"`
	TotalTasks          int                        `json:"totalTasks"`
	TaskDistribution    insight.StatusDistribution `json:"taskDistribution"`
	PriorityBreakdown   insight.PriorityBreakdown  `json:"priorityBreakdown"`
	CompletionRate      int                        `json:"completionRate"`
	OverdueCount        int                        `json:"overdueCount"`
	OverdueRate         int                        `json:"overdueRate"`
	HealthScore         int                        `json:"healthScore"`
	RecentActivityCount int                        `json:"recentActivityCount"`
	DaysUntilDeadline   *int                       `json:"daysUntilDeadline"`
	DaysElapsed         *int                       `json:"daysElapsed,omitempty"`
	WeeklyProductivity  weeklyView                 `json:"weeklyProductivity"`
	Effort              insight.EffortSummary      `json:"effort"`

	// ByProject is set on the dashboard only.
	ByProject map[string]insight.StatusDistribution `json:"byProject,omitempty"`
}

func round(v float64) int {
	return int(math.Round(v))
}

func presentWeekly(d insight.ProductivityDelta) weeklyView {
	v := weeklyView{Kind: d.Kind, ThisWeek: d.ThisWeek, LastWeek: d.LastWeek}
	if d.Kind != insight.DeltaNoBaseline {
		m := round(d.PercentMagnitude)
		v.PercentMagnitude = &m
	}
	return v
}

func presentProject(projectID string, in insight.ProjectInsights) insightsView {
	elapsed := in.DaysElapsed
	return insightsView{
		ProjectID:           projectID,
		TotalTasks:          in.TotalTasks,
		TaskDistribution:    in.Distribution,
		PriorityBreakdown:   in.Priorities,
		CompletionRate:      round(in.CompletionRate),
		OverdueCount:        in.OverdueCount,
		OverdueRate:         round(in.OverdueRate),
		HealthScore:         round(in.HealthScore),
		RecentActivityCount: in.RecentActivityCount,
		DaysUntilDeadline:   in.DaysUntilDeadline,
		DaysElapsed:         &elapsed,
		WeeklyProductivity:  presentWeekly(in.Weekly),
		Effort:              in.Effort,
	}
}

func presentUser(in insight.UserInsights) insightsView {
	return insightsView{
		TotalTasks:          in.TotalTasks,
		TaskDistribution:    in.Distribution,
		PriorityBreakdown:   in.Priorities,
		CompletionRate:      round(in.CompletionRate),
		OverdueCount:        in.OverdueCount,
		OverdueRate:         round(in.OverdueRate),
		HealthScore:         round(in.HealthScore),
		RecentActivityCount: in.RecentActivityCount,
		WeeklyProductivity:  presentWeekly(in.Weekly),
		Effort:              in.Effort,
		ByProject:           in.ByProject,
	}
}

// computeProjectInsights loads a project's snapshot and runs the aggregator.
func (s *Server) computeProjectInsights(
	ctx context.Context,
	project *model.Project,
) (insight.ProjectInsights, []model.Task, error) {
	tasks, err := s.store.GetTasks(ctx, store.TaskFilter{ProjectID: &project.ID})
	if err != nil {
		return insight.ProjectInsights{}, nil, err
	}
	recent, err := s.store.CountRecentActivities(ctx, project.ID, s.opts.RecentActivityLimit)
	if err != nil {
		return insight.ProjectInsights{}, nil, err
	}

	in, err := insight.ComputeProject(insight.Snapshot{
		Tasks:               tasks,
		RecentActivityCount: recent,
		ProjectCreatedAt:    project.CreatedAt,
		ProjectEndDate:      project.EndDate,
		Now:                 s.now(),
	})
	if err != nil {
		return insight.ProjectInsights{}, nil, err
	}
	return in, tasks, nil
}

// handleProjectInsights serves GET /api/projects/{projectID}/insights.
func (s *Server) handleProjectInsights(w http.ResponseWriter, r *http.Request) {
	project, _, err := s.projectAccess(r.Context(), mux.Vars(r)["projectID"])
	if err != nil {
		writeErrorFrom(w, s.logger, err)
		return
	}
	in, _, err := s.computeProjectInsights(r.Context(), project)
	if err != nil {
		writeErrorFrom(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, presentProject(project.ID, in))
}

// handleListActivities serves GET /api/projects/{projectID}/activities.
func (s *Server) handleListActivities(w http.ResponseWriter, r *http.Request) {
	project, _, err := s.projectAccess(r.Context(), mux.Vars(r)["projectID"])
	if err != nil {
		writeErrorFrom(w, s.logger, err)
		return
	}
	limit := s.opts.RecentActivityLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSONError(w, http.StatusBadRequest, APIError{
				Code:    "invalid_request",
				Message: "limit must be a positive integer",
			})
			return
		}
		limit = min(n, 100)
	}

	activities, err := s.store.GetRecentActivities(r.Context(), store.ActivityFilter{
		ProjectID: &project.ID,
		Limit:     limit,
	})
	if err != nil {
		writeErrorFrom(w, s.logger, err)
		return
	}
	if activities == nil {
		activities = []model.Activity{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"activities": activities})
}

// handleDashboard serves GET /api/dashboard: metrics across every project
// the caller belongs to, plus the latest activity.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	projects, err := s.store.GetProjectsForUser(ctx, auth.UserID(ctx))
	if err != nil {
		writeErrorFrom(w, s.logger, err)
		return
	}
	ids := make([]string, 0, len(projects))
	for _, p := range projects {
		ids = append(ids, p.ID)
	}

	tasks, err := s.store.GetTasks(ctx, store.TaskFilter{ProjectIDs: ids})
	if err != nil {
		writeErrorFrom(w, s.logger, err)
		return
	}
	activities, err := s.store.GetRecentActivities(ctx, store.ActivityFilter{
		ProjectIDs: ids,
		Limit:      s.opts.RecentActivityLimit,
	})
	if err != nil {
		writeErrorFrom(w, s.logger, err)
		return
	}
	if activities == nil {
		activities = []model.Activity{}
	}

	in, err := insight.ComputeUser(tasks, len(activities), s.now())
	if err != nil {
		writeErrorFrom(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"projectCount":     len(projects),
		"insights":         presentUser(in),
		"recentActivities": activities,
	})
}
