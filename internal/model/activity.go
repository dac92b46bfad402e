package model

import "time"

// ActivityType classifies an activity log entry.
type ActivityType string

const (
	ActivityProjectCreated    ActivityType = "project_created"
	ActivityProjectUpdated    ActivityType = "project_updated"
	ActivityProjectDeleted    ActivityType = "project_deleted"
	ActivityTaskCreated       ActivityType = "task_created"
	ActivityTaskUpdated       ActivityType = "task_updated"
	ActivityTaskStatusChanged ActivityType = "task_status_changed"
	ActivityTaskDeleted       ActivityType = "task_deleted"
	ActivityMemberAdded       ActivityType = "member_added"
	ActivityMemberRemoved     ActivityType = "member_removed"
	ActivityCommentAdded      ActivityType = "comment_added"
	ActivityCommentDeleted    ActivityType = "comment_deleted"
)

// Activity is an append-only record of a state change.
type Activity struct {
	ID          string       `json:"id" db:"id"`
	Type        ActivityType `json:"type" db:"type"`
	Description string       `json:"description" db:"description"`
	UserID      string       `json:"user_id" db:"user_id"`
	ProjectID   *string      `json:"project_id,omitempty" db:"project_id"`
	TaskID      *string      `json:"task_id,omitempty" db:"task_id"`
	CreatedAt   time.Time    `json:"created_at" db:"created_at"`
}
