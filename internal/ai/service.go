package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/nhle/task-dashboard/internal/model"
)

// maxSuggestedTasks caps how many generated tasks are returned.
const maxSuggestedTasks = 10

// ErrEmptyMessage is returned when a chat message has no content.
var ErrEmptyMessage = errors.New("message must not be empty")

// SuggestedTask is a task proposed by the completion backend.
type SuggestedTask struct {
	Title          string           `json:"title"`
	Description    string           `json:"description"`
	Status         model.TaskStatus `json:"status"`
	Priority       model.Priority   `json:"priority"`
	EstimatedHours *float64         `json:"estimated_hours,omitempty"`
}

// Service builds prompts, calls a Completer, and post-processes answers.
type Service struct {
	completer   Completer
	logger      logrus.FieldLogger
	maxMessages int
}

// NewService creates a Service around a Completer.
func NewService(completer Completer, logger logrus.FieldLogger) *Service {
	return &Service{
		completer:   completer,
		logger:      logger,
		maxMessages: DefaultMaxMessages,
	}
}

// GenerateTasks asks for a list of tasks for the project. Statuses and
// priorities the backend invents are replaced with todo and medium.
func (s *Service) GenerateTasks(
	ctx context.Context,
	project model.Project,
	prompt string,
) ([]SuggestedTask, error) {
	var sb strings.Builder
	sb.WriteString("You are a project planning assistant. ")
	sb.WriteString("Reply with a JSON array of tasks and nothing else. ")
	sb.WriteString("Each task has \"title\", \"description\", \"priority\" ")
	sb.WriteString("(low, medium, high, urgent), optional \"status\" ")
	sb.WriteString("(todo, in_progress, in_review, done, cancelled), and optional ")
	sb.WriteString("\"estimated_hours\". Suggest at most ")
	fmt.Fprintf(&sb, "%d tasks.", maxSuggestedTasks)

	user := fmt.Sprintf("Project: %s\nDescription: %s\n", project.Name, project.Description)
	if p := strings.TrimSpace(prompt); p != "" {
		user += "Request: " + p + "\n"
	}

	text, err := s.complete(ctx, CompletionRequest{
		Purpose:  PurposeTasks,
		System:   sb.String(),
		Messages: []Message{{Role: RoleUser, Content: user}},
	})
	if err != nil {
		return nil, err
	}

	tasks, err := ParseSuggestedTasks(text)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"event":      "ai_parse_failed",
			"project_id": project.ID,
		}).WithError(err).Warn("could not parse generated tasks")
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return tasks, nil
}

// rawSuggestion is one task entry as the model writes it.
type rawSuggestion struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Status         string   `json:"status"`
	Priority       string   `json:"priority"`
	EstimatedHours *float64 `json:"estimated_hours"`
}

// ParseSuggestedTasks extracts the first non-empty JSON array of task
// objects from a completion that may be wrapped in prose, then normalizes
// each entry. Bracketed prose before the array is skipped.
func ParseSuggestedTasks(text string) ([]SuggestedTask, error) {
	var raw []rawSuggestion
	lastErr := errors.New("no JSON array in completion")
	for i := 0; i < len(text); i++ {
		if text[i] != '[' {
			continue
		}
		var candidate []rawSuggestion
		if err := json.NewDecoder(strings.NewReader(text[i:])).Decode(&candidate); err != nil {
			lastErr = fmt.Errorf("decoding suggested tasks: %w", err)
			continue
		}
		if len(candidate) > 0 {
			raw = candidate
			break
		}
	}
	if raw == nil {
		return nil, lastErr
	}

	tasks := make([]SuggestedTask, 0, len(raw))
	for _, r := range raw {
		title := strings.TrimSpace(r.Title)
		if title == "" {
			continue
		}
		status, err := model.ParseTaskStatus(r.Status)
		if err != nil {
			status = model.TaskStatusTodo
		}
		priority, err := model.ParsePriority(r.Priority)
		if err != nil {
			priority = model.PriorityMedium
		}
		hours := r.EstimatedHours
		if hours != nil && *hours < 0 {
			hours = nil
		}
		tasks = append(tasks, SuggestedTask{
			Title:          title,
			Description:    strings.TrimSpace(r.Description),
			Status:         status,
			Priority:       priority,
			EstimatedHours: hours,
		})
		if len(tasks) == maxSuggestedTasks {
			break
		}
	}
	if len(tasks) == 0 {
		return nil, fmt.Errorf("completion contained no usable tasks")
	}
	return tasks, nil
}

// Chat answers a message given prior history and an optional context
// summary. History is trimmed to the conversation window, keeping the
// first message.
func (s *Service) Chat(
	ctx context.Context,
	message string,
	history []Message,
	summary string,
) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", ErrEmptyMessage
	}

	conv := NewConversationContext(s.maxMessages)
	for _, m := range history {
		if !m.Role.Valid() || strings.TrimSpace(m.Content) == "" {
			continue
		}
		conv.AddMessage(m.Role, m.Content)
	}
	conv.AddMessage(RoleUser, message)

	var sb strings.Builder
	sb.WriteString("You are a project management assistant. ")
	sb.WriteString("Answer concisely and refer to concrete tasks when you can.")
	if summary != "" {
		sb.WriteString("\n\nCurrent data:\n")
		sb.WriteString(summary)
	}

	return s.complete(ctx, CompletionRequest{
		Purpose:  PurposeChat,
		System:   sb.String(),
		Messages: conv.GetMessages(),
	})
}

// ProjectInsights returns a short narrative about the project's health.
func (s *Service) ProjectInsights(ctx context.Context, summary ProjectSummary) (string, error) {
	return s.complete(ctx, CompletionRequest{
		Purpose: PurposeInsights,
		System: "You are a delivery lead reviewing a project. In a few sentences, " +
			"explain the project's health and the two most useful next actions.",
		Messages: []Message{{Role: RoleUser, Content: summary.String()}},
	})
}

// complete calls the backend and normalizes failures to ErrUnavailable.
func (s *Service) complete(ctx context.Context, req CompletionRequest) (string, error) {
	text, err := s.completer.Complete(ctx, req)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"event":   "ai_completion_failed",
			"purpose": req.Purpose,
		}).WithError(err).Warn("completion failed")
		if errors.Is(err, ErrUnavailable) || ctx.Err() != nil {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return strings.TrimSpace(text), nil
}
