// Package ai generates task suggestions, chat answers, and narrative
// project insights from a text completion backend.
package ai

import (
	"context"
	"errors"
)

// ErrUnavailable wraps every failure of the completion backend. Callers
// treat it as feature-local: other functionality keeps working.
var ErrUnavailable = errors.New("completion service unavailable")

// Purpose tells a Completer what the request is for. Real backends ignore
// it; the mock uses it to pick a canned answer.
type Purpose string

const (
	PurposeChat     Purpose = "chat"
	PurposeTasks    Purpose = "tasks"
	PurposeInsights Purpose = "insights"
)

// CompletionRequest is a single prompt sent to a Completer.
type CompletionRequest struct {
	Purpose   Purpose
	System    string
	Messages  []Message
	MaxTokens int
}

// LastUserMessage returns the content of the final user message, if any.
func (r CompletionRequest) LastUserMessage() string {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role == RoleUser {
			return r.Messages[i].Content
		}
	}
	return ""
}

// Completer turns a prompt into text.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}
