// Package insight derives dashboard metrics (status distribution, completion
// and overdue rates, health score, deadline countdown, week-over-week
// productivity) from a point-in-time snapshot of tasks. Every function is pure:
// the caller supplies the clock reading and the data, nothing is retained.
package insight

import (
	"math"
	"time"

	"github.com/nhle/task-dashboard/internal/model"
)

// Health score weights. Overdue work is penalized twice as heavily as
// completion is rewarded; each recent activity adds a fixed bonus.
const (
	overduePenalty = 2.0
	activityBonus  = 5.0
	minHealth      = 0.0
	maxHealth      = 100.0
)

const day = 24 * time.Hour

// Snapshot is the read-only input for one project's metrics.
type Snapshot struct {
	Tasks []model.Task

	// RecentActivityCount is the number of rows in the latest activity window
	// (bounded by the caller, typically the last 10 entries).
	RecentActivityCount int

	ProjectCreatedAt time.Time
	ProjectEndDate   *time.Time

	// Now is the clock reading all time-relative metrics are measured against.
	Now time.Time
}

// StatusDistribution counts tasks per status bucket.
type StatusDistribution struct {
	Todo       int `json:"todo"`
	InProgress int `json:"inProgress"`
	InReview   int `json:"inReview"`
	Done       int `json:"done"`
	Cancelled  int `json:"cancelled"`
}

// Total returns the sum of all buckets.
func (d StatusDistribution) Total() int {
	return d.Todo + d.InProgress + d.InReview + d.Done + d.Cancelled
}

// Count returns the bucket for a single status.
func (d StatusDistribution) Count(status model.TaskStatus) int {
	switch status {
	case model.TaskStatusTodo:
		return d.Todo
	case model.TaskStatusInProgress:
		return d.InProgress
	case model.TaskStatusInReview:
		return d.InReview
	case model.TaskStatusDone:
		return d.Done
	case model.TaskStatusCancelled:
		return d.Cancelled
	}
	return 0
}

// PriorityBreakdown counts tasks per priority.
type PriorityBreakdown map[model.Priority]int

// EffortSummary totals the optional hour estimates across a task set.
type EffortSummary struct {
	EstimatedHours float64 `json:"estimatedHours"`
	ActualHours    float64 `json:"actualHours"`
	EstimatedTasks int     `json:"estimatedTasks"`
	TrackedTasks   int     `json:"trackedTasks"`
}

// ProjectInsights is the full metric set for one project.
type ProjectInsights struct {
	TotalTasks          int
	Distribution        StatusDistribution
	Priorities          PriorityBreakdown
	CompletionRate      float64
	OverdueCount        int
	OverdueRate         float64
	HealthScore         float64
	RecentActivityCount int
	DaysUntilDeadline   *int
	DaysElapsed         int
	Weekly              ProductivityDelta
	Effort              EffortSummary
}

// UserInsights is the metric set across every task visible to one user.
type UserInsights struct {
	TotalTasks          int
	Distribution        StatusDistribution
	Priorities          PriorityBreakdown
	ByProject           map[string]StatusDistribution
	CompletionRate      float64
	OverdueCount        int
	OverdueRate         float64
	HealthScore         float64
	RecentActivityCount int
	Weekly              ProductivityDelta
	Effort              EffortSummary
}

// Distribution buckets tasks by status. An unknown status is reported rather
// than dropped so the bucket total always equals len(tasks).
func Distribution(tasks []model.Task) (StatusDistribution, error) {
	var d StatusDistribution
	for _, t := range tasks {
		switch t.Status {
		case model.TaskStatusTodo:
			d.Todo++
		case model.TaskStatusInProgress:
			d.InProgress++
		case model.TaskStatusInReview:
			d.InReview++
		case model.TaskStatusDone:
			d.Done++
		case model.TaskStatusCancelled:
			d.Cancelled++
		default:
			return StatusDistribution{}, &DataIntegrityError{
				TaskID: t.ID, Field: "status", Value: string(t.Status),
			}
		}
	}
	return d, nil
}

// Priorities counts tasks per priority, rejecting unknown values.
func Priorities(tasks []model.Task) (PriorityBreakdown, error) {
	b := make(PriorityBreakdown, len(model.Priorities))
	for _, p := range model.Priorities {
		b[p] = 0
	}
	for _, t := range tasks {
		if !t.Priority.Valid() {
			return nil, &DataIntegrityError{
				TaskID: t.ID, Field: "priority", Value: string(t.Priority),
			}
		}
		b[t.Priority]++
	}
	return b, nil
}

// CompletionRate is done/total as a percentage; 0 for an empty distribution.
func CompletionRate(d StatusDistribution) float64 {
	return percent(d.Done, d.Total())
}

// OverdueCount counts tasks with a due date before now that are not done.
// Tasks without a due date are never overdue.
func OverdueCount(tasks []model.Task, now time.Time) int {
	n := 0
	for _, t := range tasks {
		if t.IsOverdue(now) {
			n++
		}
	}
	return n
}

// OverdueRate is overdue/total as a percentage; 0 for an empty task list.
func OverdueRate(tasks []model.Task, now time.Time) float64 {
	return percent(OverdueCount(tasks, now), len(tasks))
}

// HealthScore combines completion, the overdue penalty, and the recent
// activity bonus, clamped to [0, 100].
func HealthScore(completionRate, overdueRate float64, recentActivity int) float64 {
	raw := completionRate - overduePenalty*overdueRate + activityBonus*float64(recentActivity)
	return math.Max(minHealth, math.Min(maxHealth, raw))
}

// DaysUntilDeadline returns the whole days (rounded up) from now to end. It is
// nil when there is no deadline and negative once the deadline has passed.
func DaysUntilDeadline(end *time.Time, now time.Time) *int {
	if end == nil {
		return nil
	}
	days := int(math.Ceil(daysBetween(now, *end)))
	return &days
}

// DaysElapsed returns the whole days between createdAt and now.
func DaysElapsed(createdAt, now time.Time) int {
	return int(math.Trunc(daysBetween(createdAt, now)))
}

// daysBetween returns the fractional days from a to b. It works from Unix
// seconds because time.Duration saturates after about 292 years.
func daysBetween(a, b time.Time) float64 {
	secs := float64(b.Unix()-a.Unix()) + float64(b.Nanosecond()-a.Nanosecond())/1e9
	return secs / day.Seconds()
}

// Effort sums estimated and actual hours over the tasks that carry them.
func Effort(tasks []model.Task) EffortSummary {
	var e EffortSummary
	for _, t := range tasks {
		if t.EstimatedHours != nil {
			e.EstimatedHours += *t.EstimatedHours
			e.EstimatedTasks++
		}
		if t.ActualHours != nil {
			e.ActualHours += *t.ActualHours
			e.TrackedTasks++
		}
	}
	return e
}

// Validate checks a task list against the fixed enumerations and numeric
// bounds, returning the first violation as a *DataIntegrityError.
func Validate(tasks []model.Task) error {
	for _, t := range tasks {
		if !t.Status.Valid() {
			return &DataIntegrityError{TaskID: t.ID, Field: "status", Value: string(t.Status)}
		}
		if !t.Priority.Valid() {
			return &DataIntegrityError{TaskID: t.ID, Field: "priority", Value: string(t.Priority)}
		}
		if t.EstimatedHours != nil && *t.EstimatedHours < 0 {
			return &DataIntegrityError{TaskID: t.ID, Field: "estimated_hours", Value: formatHours(*t.EstimatedHours)}
		}
		if t.ActualHours != nil && *t.ActualHours < 0 {
			return &DataIntegrityError{TaskID: t.ID, Field: "actual_hours", Value: formatHours(*t.ActualHours)}
		}
	}
	return nil
}

// validateClock checks the envelope fields shared by project and user metrics.
func validateClock(now time.Time, recentActivity int) error {
	if now.IsZero() {
		return &ConfigurationError{Field: "now", Reason: "is missing"}
	}
	if recentActivity < 0 {
		return &ConfigurationError{Field: "recentActivityCount", Reason: "is negative"}
	}
	return nil
}

// ComputeProject validates the snapshot and derives every project metric.
func ComputeProject(s Snapshot) (ProjectInsights, error) {
	if err := validateClock(s.Now, s.RecentActivityCount); err != nil {
		return ProjectInsights{}, err
	}
	if s.ProjectCreatedAt.IsZero() {
		return ProjectInsights{}, &ConfigurationError{Field: "projectCreatedAt", Reason: "is missing"}
	}
	if s.ProjectCreatedAt.After(s.Now) {
		return ProjectInsights{}, &ConfigurationError{Field: "projectCreatedAt", Reason: "is after now"}
	}
	if err := Validate(s.Tasks); err != nil {
		return ProjectInsights{}, err
	}

	dist, err := Distribution(s.Tasks)
	if err != nil {
		return ProjectInsights{}, err
	}
	prios, err := Priorities(s.Tasks)
	if err != nil {
		return ProjectInsights{}, err
	}

	completion := CompletionRate(dist)
	overdue := OverdueCount(s.Tasks, s.Now)
	overdueRate := percent(overdue, len(s.Tasks))
	thisWeek, lastWeek := CompletedInWindows(s.Tasks, s.Now)

	return ProjectInsights{
		TotalTasks:          len(s.Tasks),
		Distribution:        dist,
		Priorities:          prios,
		CompletionRate:      completion,
		OverdueCount:        overdue,
		OverdueRate:         overdueRate,
		HealthScore:         HealthScore(completion, overdueRate, s.RecentActivityCount),
		RecentActivityCount: s.RecentActivityCount,
		DaysUntilDeadline:   DaysUntilDeadline(s.ProjectEndDate, s.Now),
		DaysElapsed:         DaysElapsed(s.ProjectCreatedAt, s.Now),
		Weekly:              WeeklyDelta(thisWeek, lastWeek),
		Effort:              Effort(s.Tasks),
	}, nil
}

// ComputeUser derives the cross-project metrics for one user's task set.
// Per-project distributions are keyed by task.ProjectID.
func ComputeUser(tasks []model.Task, recentActivity int, now time.Time) (UserInsights, error) {
	if err := validateClock(now, recentActivity); err != nil {
		return UserInsights{}, err
	}
	if err := Validate(tasks); err != nil {
		return UserInsights{}, err
	}

	dist, err := Distribution(tasks)
	if err != nil {
		return UserInsights{}, err
	}
	prios, err := Priorities(tasks)
	if err != nil {
		return UserInsights{}, err
	}

	grouped := make(map[string][]model.Task)
	for _, t := range tasks {
		grouped[t.ProjectID] = append(grouped[t.ProjectID], t)
	}
	byProject := make(map[string]StatusDistribution, len(grouped))
	for projectID, group := range grouped {
		d, err := Distribution(group)
		if err != nil {
			return UserInsights{}, err
		}
		byProject[projectID] = d
	}

	completion := CompletionRate(dist)
	overdue := OverdueCount(tasks, now)
	overdueRate := percent(overdue, len(tasks))
	thisWeek, lastWeek := CompletedInWindows(tasks, now)

	return UserInsights{
		TotalTasks:          len(tasks),
		Distribution:        dist,
		Priorities:          prios,
		ByProject:           byProject,
		CompletionRate:      completion,
		OverdueCount:        overdue,
		OverdueRate:         overdueRate,
		HealthScore:         HealthScore(completion, overdueRate, recentActivity),
		RecentActivityCount: recentActivity,
		Weekly:              WeeklyDelta(thisWeek, lastWeek),
		Effort:              Effort(tasks),
	}, nil
}

// percent returns part/total*100, or 0 when total is 0.
func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}
