package insight

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/task-dashboard/internal/model"
)

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func ptrTime(t time.Time) *time.Time { return &t }
func ptrFloat(f float64) *float64    { return &f }

func task(id string, status model.TaskStatus) model.Task {
	return model.Task{
		ID:        id,
		ProjectID: "p1",
		Status:    status,
		Priority:  model.PriorityMedium,
		UpdatedAt: fixedNow.Add(-30 * day),
	}
}

func withDue(t model.Task, due time.Time) model.Task {
	t.DueDate = ptrTime(due)
	return t
}

func scenarioTasks() []model.Task {
	return []model.Task{
		task("t1", model.TaskStatusDone),
		task("t2", model.TaskStatusDone),
		withDue(task("t3", model.TaskStatusInProgress), fixedNow.Add(-day)),
		withDue(task("t4", model.TaskStatusTodo), fixedNow.Add(week)),
	}
}

func TestComputeProjectScenario(t *testing.T) {
	got, err := ComputeProject(Snapshot{
		Tasks:               scenarioTasks(),
		RecentActivityCount: 3,
		ProjectCreatedAt:    fixedNow.Add(-60 * day),
		Now:                 fixedNow,
	})
	require.NoError(t, err)

	assert.Equal(t, 4, got.TotalTasks)
	assert.InDelta(t, 50, got.CompletionRate, 1e-9)
	assert.InDelta(t, 25, got.OverdueRate, 1e-9)
	assert.InDelta(t, 15, got.HealthScore, 1e-9)
	assert.Equal(t, 1, got.OverdueCount)
	assert.Nil(t, got.DaysUntilDeadline)
	assert.Equal(t, 60, got.DaysElapsed)
	assert.Equal(t, StatusDistribution{Todo: 1, InProgress: 1, Done: 2}, got.Distribution)
	assert.Equal(t, 4, got.Priorities[model.PriorityMedium])
}

func TestComputeProjectEmpty(t *testing.T) {
	got, err := ComputeProject(Snapshot{
		ProjectCreatedAt: fixedNow.Add(-day),
		Now:              fixedNow,
	})
	require.NoError(t, err)

	assert.Zero(t, got.CompletionRate)
	assert.Zero(t, got.OverdueRate)
	assert.Zero(t, got.HealthScore)
	assert.Zero(t, got.Distribution.Total())
	assert.Equal(t, DeltaNoBaseline, got.Weekly.Kind)
}

func TestDistributionConservesTasks(t *testing.T) {
	statuses := model.TaskStatuses
	for n := 0; n < 25; n++ {
		tasks := make([]model.Task, 0, n)
		for i := 0; i < n; i++ {
			tasks = append(tasks, task(fmt.Sprintf("t%d", i), statuses[(i*7+n)%len(statuses)]))
		}
		d, err := Distribution(tasks)
		require.NoError(t, err)
		assert.Equal(t, n, d.Total(), "bucket total for %d tasks", n)
		for _, s := range statuses {
			assert.GreaterOrEqual(t, d.Count(s), 0)
		}
	}
}

func TestDistributionRejectsUnknownStatus(t *testing.T) {
	tasks := []model.Task{task("ok", model.TaskStatusTodo), task("bad", "blocked")}

	_, err := Distribution(tasks)
	require.Error(t, err)

	var integrity *DataIntegrityError
	require.ErrorAs(t, err, &integrity)
	assert.Equal(t, "bad", integrity.TaskID)
	assert.Equal(t, "status", integrity.Field)
	assert.Equal(t, "blocked", integrity.Value)
}

func TestValidateRejectsBadInput(t *testing.T) {
	badPriority := task("p", model.TaskStatusTodo)
	badPriority.Priority = "critical"

	negEstimate := task("e", model.TaskStatusTodo)
	negEstimate.EstimatedHours = ptrFloat(-1)

	negActual := task("a", model.TaskStatusTodo)
	negActual.ActualHours = ptrFloat(-0.5)

	tests := []struct {
		name  string
		task  model.Task
		field string
	}{
		{"priority", badPriority, "priority"},
		{"estimated hours", negEstimate, "estimated_hours"},
		{"actual hours", negActual, "actual_hours"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate([]model.Task{tt.task})
			var integrity *DataIntegrityError
			require.ErrorAs(t, err, &integrity)
			assert.Equal(t, tt.field, integrity.Field)
			assert.True(t, IsDataIntegrityError(fmt.Errorf("wrapped: %w", err)))
		})
	}
}

func TestComputeProjectConfigurationErrors(t *testing.T) {
	tests := []struct {
		name  string
		snap  Snapshot
		field string
	}{
		{"missing now", Snapshot{ProjectCreatedAt: fixedNow}, "now"},
		{"missing created", Snapshot{Now: fixedNow}, "projectCreatedAt"},
		{"created after now", Snapshot{Now: fixedNow, ProjectCreatedAt: fixedNow.Add(time.Hour)}, "projectCreatedAt"},
		{"negative activity", Snapshot{Now: fixedNow, ProjectCreatedAt: fixedNow, RecentActivityCount: -1}, "recentActivityCount"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ComputeProject(tt.snap)
			var cfgErr *ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
			assert.True(t, IsConfigurationError(err))
			assert.False(t, IsDataIntegrityError(err))
		})
	}
}

func TestHealthScoreClamped(t *testing.T) {
	for completion := 0.0; completion <= 100; completion += 12.5 {
		for overdue := 0.0; overdue <= 100; overdue += 12.5 {
			for activity := 0; activity <= 30; activity += 3 {
				score := HealthScore(completion, overdue, activity)
				assert.GreaterOrEqual(t, score, 0.0)
				assert.LessOrEqual(t, score, 100.0)
			}
		}
	}
	assert.Equal(t, 100.0, HealthScore(100, 0, 10))
	assert.Equal(t, 0.0, HealthScore(0, 100, 0))
}

func TestMarkingDoneIsMonotonic(t *testing.T) {
	tasks := []model.Task{
		withDue(task("t1", model.TaskStatusTodo), fixedNow.Add(-2*day)),
		withDue(task("t2", model.TaskStatusInProgress), fixedNow.Add(day)),
		task("t3", model.TaskStatusInReview),
		withDue(task("t4", model.TaskStatusCancelled), fixedNow.Add(-day)),
		task("t5", model.TaskStatusDone),
	}
	snap := Snapshot{
		Tasks:               tasks,
		RecentActivityCount: 2,
		ProjectCreatedAt:    fixedNow.Add(-10 * day),
		Now:                 fixedNow,
	}

	prev, err := ComputeProject(snap)
	require.NoError(t, err)

	for i := range tasks {
		if tasks[i].Status == model.TaskStatusDone {
			continue
		}
		tasks[i].Status = model.TaskStatusDone
		next, err := ComputeProject(snap)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, next.CompletionRate, prev.CompletionRate, "after marking %s done", tasks[i].ID)
		assert.GreaterOrEqual(t, next.HealthScore, prev.HealthScore, "after marking %s done", tasks[i].ID)
		prev = next
	}
}

func TestOverdueRequiresDueDate(t *testing.T) {
	var tasks []model.Task
	for _, s := range model.TaskStatuses {
		tasks = append(tasks, task(string(s), s))
	}
	assert.Zero(t, OverdueCount(tasks, fixedNow))
	assert.Zero(t, OverdueRate(tasks, fixedNow))
}

func TestOverdueCountsCancelledButNotDone(t *testing.T) {
	past := fixedNow.Add(-time.Minute)
	tasks := []model.Task{
		withDue(task("done", model.TaskStatusDone), past),
		withDue(task("cancelled", model.TaskStatusCancelled), past),
		withDue(task("future", model.TaskStatusTodo), fixedNow.Add(time.Minute)),
		withDue(task("exact", model.TaskStatusTodo), fixedNow),
	}
	assert.Equal(t, 1, OverdueCount(tasks, fixedNow))
	assert.InDelta(t, 25, OverdueRate(tasks, fixedNow), 1e-9)
}

func TestDaysUntilDeadline(t *testing.T) {
	assert.Nil(t, DaysUntilDeadline(nil, fixedNow))

	tests := []struct {
		name string
		end  time.Time
		want int
	}{
		{"exactly three days", fixedNow.Add(3 * day), 3},
		{"partial day rounds up", fixedNow.Add(36 * time.Hour), 2},
		{"same instant", fixedNow, 0},
		{"passed by a day and a half", fixedNow.Add(-36 * time.Hour), -1},
		{"passed by two days", fixedNow.Add(-2 * day), -2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DaysUntilDeadline(ptrTime(tt.end), fixedNow)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestDayCountsBeyondDurationRange(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	far := time.Date(2400, 1, 1, 0, 0, 0, 0, time.UTC)
	want := int(far.Unix()-now.Unix()) / 86400

	got := DaysUntilDeadline(&far, now)
	require.NotNil(t, got)
	assert.Equal(t, want, *got)
	assert.Greater(t, *got, 136000)

	assert.Equal(t, want, DaysElapsed(now, far))

	past := time.Date(1600, 1, 1, 0, 0, 0, 0, time.UTC)
	before := DaysUntilDeadline(&past, now)
	require.NotNil(t, before)
	assert.Equal(t, -int(now.Unix()-past.Unix())/86400, *before)
}

func TestDaysElapsedTruncates(t *testing.T) {
	assert.Equal(t, 0, DaysElapsed(fixedNow, fixedNow))
	assert.Equal(t, 1, DaysElapsed(fixedNow.Add(-36*time.Hour), fixedNow))
	assert.Equal(t, 2, DaysElapsed(fixedNow.Add(-2*day), fixedNow))
}

func TestEffortSumsOptionalHours(t *testing.T) {
	a := task("a", model.TaskStatusDone)
	a.EstimatedHours = ptrFloat(4)
	a.ActualHours = ptrFloat(5.5)
	b := task("b", model.TaskStatusTodo)
	b.EstimatedHours = ptrFloat(2)

	got := Effort([]model.Task{a, b, task("c", model.TaskStatusTodo)})
	assert.Equal(t, EffortSummary{EstimatedHours: 6, ActualHours: 5.5, EstimatedTasks: 2, TrackedTasks: 1}, got)
}

func TestComputeUserGroupsByProject(t *testing.T) {
	a := task("a", model.TaskStatusDone)
	b := task("b", model.TaskStatusTodo)
	c := task("c", model.TaskStatusDone)
	c.ProjectID = "p2"

	got, err := ComputeUser([]model.Task{a, b, c}, 1, fixedNow)
	require.NoError(t, err)

	assert.Equal(t, 3, got.TotalTasks)
	assert.Equal(t, StatusDistribution{Todo: 1, Done: 1}, got.ByProject["p1"])
	assert.Equal(t, StatusDistribution{Done: 1}, got.ByProject["p2"])
	assert.InDelta(t, 200.0/3.0, got.CompletionRate, 1e-9)
}

func TestComputeUserRejectsMissingClock(t *testing.T) {
	_, err := ComputeUser(nil, 0, time.Time{})
	assert.True(t, IsConfigurationError(err))
}
