package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/task-dashboard/internal/insight"
	"github.com/nhle/task-dashboard/internal/model"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// recordingCompleter captures requests and returns a fixed answer.
type recordingCompleter struct {
	reply string
	err   error
	last  CompletionRequest
}

func (r *recordingCompleter) Complete(_ context.Context, req CompletionRequest) (string, error) {
	r.last = req
	return r.reply, r.err
}

func TestConversationContextKeepsFirstMessage(t *testing.T) {
	c := NewConversationContext(3)
	for i := 0; i < 5; i++ {
		c.AddMessage(RoleUser, fmt.Sprintf("m%d", i))
	}
	msgs := c.GetMessages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "m0", msgs[0].Content)
	assert.Equal(t, "m3", msgs[1].Content)
	assert.Equal(t, "m4", msgs[2].Content)

	c.Reset()
	assert.Zero(t, c.Len())
}

func TestMockCompleterKeywords(t *testing.T) {
	m := MockCompleter{}
	ctx := context.Background()

	ask := func(msg string) string {
		out, err := m.Complete(ctx, CompletionRequest{
			Purpose:  PurposeChat,
			Messages: []Message{{Role: RoleUser, Content: msg}},
		})
		require.NoError(t, err)
		return out
	}

	assert.Contains(t, ask("What about OVERDUE work?"), "overdue tasks")
	assert.Contains(t, ask("how do I set priority"), "priority")
	assert.Contains(t, ask("will we hit the deadline"), "deadline")
	assert.Contains(t, ask("help"), "I can suggest")
	assert.Equal(t, mockDefaultReply, ask("hello there"))

	tasks, err := m.Complete(ctx, CompletionRequest{Purpose: PurposeTasks})
	require.NoError(t, err)
	parsed, err := ParseSuggestedTasks(tasks)
	require.NoError(t, err)
	assert.Len(t, parsed, 3)
}

func TestParseSuggestedTasks(t *testing.T) {
	text := "Sure! Here you go:\n" +
		`[{"title": " Write tests ", "priority": "URGENT", "status": "blocked", "estimated_hours": -2},` +
		`{"title": "", "priority": "low"},` +
		`{"title": "Ship", "priority": "p0", "status": "in_review", "estimated_hours": 1.5}]` +
		"\nLet me know if you need more."

	tasks, err := ParseSuggestedTasks(text)
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	assert.Equal(t, "Write tests", tasks[0].Title)
	assert.Equal(t, model.PriorityUrgent, tasks[0].Priority)
	assert.Equal(t, model.TaskStatusTodo, tasks[0].Status)
	assert.Nil(t, tasks[0].EstimatedHours)

	assert.Equal(t, model.PriorityMedium, tasks[1].Priority)
	assert.Equal(t, model.TaskStatusInReview, tasks[1].Status)
	require.NotNil(t, tasks[1].EstimatedHours)
	assert.InDelta(t, 1.5, *tasks[1].EstimatedHours, 1e-9)
}

func TestParseSuggestedTasksSkipsBracketsInProse(t *testing.T) {
	text := "Plan [draft] with [1] item and an empty [] list: " +
		`[{"title": "Kickoff", "priority": "high"}]` +
		" (see [notes])."

	tasks, err := ParseSuggestedTasks(text)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Kickoff", tasks[0].Title)
	assert.Equal(t, model.PriorityHigh, tasks[0].Priority)
}

func TestParseSuggestedTasksFailures(t *testing.T) {
	for name, text := range map[string]string{
		"no array":    "I cannot help with that.",
		"bad json":    "[{title: nope}]",
		"no titles":   `[{"title": "  "}]`,
		"reversed":    "] then [",
		"empty array": "[]",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseSuggestedTasks(text)
			assert.Error(t, err)
		})
	}
}

func TestGenerateTasksWrapsFailures(t *testing.T) {
	ctx := context.Background()
	project := model.Project{ID: "p1", Name: "Launch"}

	svc := NewService(&recordingCompleter{reply: "no json here"}, quietLogger())
	_, err := svc.GenerateTasks(ctx, project, "")
	assert.ErrorIs(t, err, ErrUnavailable)

	svc = NewService(&recordingCompleter{err: errors.New("boom")}, quietLogger())
	_, err = svc.GenerateTasks(ctx, project, "")
	assert.ErrorIs(t, err, ErrUnavailable)

	rec := &recordingCompleter{reply: `[{"title": "A"}]`}
	svc = NewService(rec, quietLogger())
	tasks, err := svc.GenerateTasks(ctx, project, "mobile app")
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
	assert.Equal(t, PurposeTasks, rec.last.Purpose)
	assert.Contains(t, rec.last.LastUserMessage(), "mobile app")
}

func TestChatTrimsHistory(t *testing.T) {
	rec := &recordingCompleter{reply: " answer "}
	svc := NewService(rec, quietLogger())

	var history []Message
	for i := 0; i < 30; i++ {
		role := RoleUser
		if i%2 == 1 {
			role = RoleAssistant
		}
		history = append(history, Message{Role: role, Content: fmt.Sprintf("h%d", i)})
	}
	history = append(history, Message{Role: "system", Content: "ignored"})

	out, err := svc.Chat(context.Background(), "what next?", history, "Project: X")
	require.NoError(t, err)
	assert.Equal(t, "answer", out)

	require.Len(t, rec.last.Messages, DefaultMaxMessages)
	assert.Equal(t, "h0", rec.last.Messages[0].Content)
	assert.Equal(t, "what next?", rec.last.LastUserMessage())
	assert.Contains(t, rec.last.System, "Project: X")

	_, err = svc.Chat(context.Background(), "  ", nil, "")
	assert.ErrorIs(t, err, ErrEmptyMessage)
}

func TestProjectSummaryString(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	days := 4
	tasks := []model.Task{
		{Title: "Late", Status: model.TaskStatusTodo, DueDate: &past},
		{Title: "Fine", Status: model.TaskStatusDone, DueDate: &past},
	}
	s := NewProjectSummary(
		model.Project{Name: "Launch", Status: model.ProjectStatusActive, Priority: model.PriorityHigh},
		insight.ProjectInsights{TotalTasks: 2, CompletionRate: 50, OverdueRate: 50, HealthScore: 0, DaysUntilDeadline: &days},
		tasks, now,
	)

	text := s.String()
	assert.Contains(t, text, "Project: Launch")
	assert.Contains(t, text, "Completion rate: 50%")
	assert.Contains(t, text, "Days until deadline: 4")
	assert.Contains(t, text, "Overdue tasks: Late\n")
}

func TestClientCallsMessagesAPI(t *testing.T) {
	var gotKey, gotVersion string
	var gotBody apiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		gotKey = r.Header.Get("x-api-key")
		gotVersion = r.Header.Get("anthropic-version")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"content":[{"type":"text","text":"Hello "},{"type":"text","text":"world"}]}`)
	}))
	defer srv.Close()

	c, err := NewClient(ClientConfig{APIKey: "k", BaseURL: srv.URL + "/"}, quietLogger())
	require.NoError(t, err)

	out, err := c.Complete(context.Background(), CompletionRequest{
		System:   "sys",
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello world", out)
	assert.Equal(t, "k", gotKey)
	assert.Equal(t, apiVersion, gotVersion)
	assert.Equal(t, defaultModel, gotBody.Model)
	assert.Equal(t, "sys", gotBody.System)
	require.Len(t, gotBody.Messages, 1)
	assert.Equal(t, "hi", gotBody.Messages[0].Content[0].Text)
}

func TestClientBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":{"type":"api_error","message":"overloaded"}}`)
	}))
	defer srv.Close()

	c, err := NewClient(ClientConfig{APIKey: "k", BaseURL: srv.URL, BreakerCooldown: time.Hour}, quietLogger())
	require.NoError(t, err)

	req := CompletionRequest{Messages: []Message{{Role: RoleUser, Content: "hi"}}}
	for i := 0; i < breakerTrips; i++ {
		_, err := c.Complete(context.Background(), req)
		require.ErrorIs(t, err, ErrUnavailable)
		assert.True(t, strings.Contains(err.Error(), "overloaded"))
	}

	_, err = c.Complete(context.Background(), req)
	require.ErrorIs(t, err, ErrUnavailable)
	assert.EqualValues(t, breakerTrips, calls.Load(), "open breaker short-circuits calls")
}

func TestClientCallerCancellationDoesNotTripBreaker(t *testing.T) {
	var slow atomic.Bool
	slow.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if slow.Load() {
			<-r.Context().Done()
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"content":[{"type":"text","text":"ok"}]}`)
	}))
	defer srv.Close()

	c, err := NewClient(ClientConfig{APIKey: "k", BaseURL: srv.URL, BreakerCooldown: time.Hour}, quietLogger())
	require.NoError(t, err)
	req := CompletionRequest{Messages: []Message{{Role: RoleUser, Content: "hi"}}}

	for i := 0; i < breakerTrips+1; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		_, err := c.Complete(ctx, req)
		cancel()
		require.ErrorIs(t, err, context.DeadlineExceeded)
		assert.NotErrorIs(t, err, ErrUnavailable)
	}

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Complete(cancelled, req)
	require.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrUnavailable)

	slow.Store(false)
	out, err := c.Complete(context.Background(), req)
	require.NoError(t, err, "breaker must stay closed after caller cancellations")
	assert.Equal(t, "ok", out)
}

func TestServicePassesThroughCallerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := NewService(MockCompleter{}, quietLogger())
	_, err := svc.Chat(ctx, "help", nil, "")
	require.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrUnavailable)
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(ClientConfig{}, quietLogger())
	assert.Error(t, err)
}
