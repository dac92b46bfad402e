package ai

import (
	"context"
	"strings"
)

// MockCompleter returns canned answers without calling any backend. Chat
// answers are chosen by keywords in the last user message.
type MockCompleter struct{}

var _ Completer = MockCompleter{}

// mockReplies are matched in order against the lower-cased user message.
var mockReplies = []struct {
	keyword string
	reply   string
}{
	{"overdue", "Start with the overdue tasks: pick the oldest one, confirm it is still " +
		"needed, and either finish it today or move its due date with the team's agreement."},
	{"priority", "Sort open work by priority and due date. Urgent and high priority tasks " +
		"that are close to their due date should be finished before starting anything new."},
	{"deadline", "Compare the remaining open tasks with the days left until the project " +
		"deadline. If the remaining estimate exceeds the time left, cut scope early."},
	{"help", "I can suggest tasks for a project, explain its health score, and help you " +
		"decide what to work on next. Ask about overdue tasks, priorities, or deadlines."},
}

const mockDefaultReply = "Keep tasks small and assigned, update their status as you go, " +
	"and review overdue work at the start of each week."

const mockInsights = "The project is progressing. Focus on closing tasks that are in " +
	"review, clear any overdue items first, and keep recording activity so the health " +
	"score reflects the team's pace."

const mockTasks = `Here are some tasks to get started:
[
  {"title": "Define scope and milestones", "description": "Agree on the deliverables and dates.", "priority": "high", "estimated_hours": 4},
  {"title": "Set up the project board", "description": "Create the initial backlog and assign owners.", "priority": "medium", "estimated_hours": 2},
  {"title": "Schedule a weekly review", "description": "Review progress and overdue tasks every week.", "priority": "low", "estimated_hours": 1}
]`

// Complete returns the canned answer for the request.
func (MockCompleter) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	switch req.Purpose {
	case PurposeTasks:
		return mockTasks, nil
	case PurposeInsights:
		return mockInsights, nil
	}

	msg := strings.ToLower(req.LastUserMessage())
	for _, r := range mockReplies {
		if strings.Contains(msg, r.keyword) {
			return r.reply, nil
		}
	}
	return mockDefaultReply, nil
}
