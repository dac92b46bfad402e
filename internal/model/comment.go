package model

import "time"

// Comment is a discussion entry on a task.
type Comment struct {
	ID        string    `json:"id" db:"id"`
	TaskID    string    `json:"task_id" db:"task_id"`
	AuthorID  string    `json:"author_id" db:"author_id"`
	Body      string    `json:"body" db:"body"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	// AuthorName is optionally populated by join queries.
	AuthorName string `json:"author_name,omitempty" db:"author_name"`
}
