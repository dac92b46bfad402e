package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/task-dashboard/internal/model"
)

// CreateComment inserts a comment on a task.
func (s *SQLiteStore) CreateComment(
	ctx context.Context,
	comment model.Comment,
) (*model.Comment, error) {
	comment.Body = strings.TrimSpace(comment.Body)
	if comment.Body == "" {
		return nil, fmt.Errorf("%w: comment body must not be empty", ErrInvalid)
	}
	if comment.ID == "" {
		comment.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	comment.CreatedAt = now
	comment.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO comments (id, task_id, author_id, body, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		comment.ID, comment.TaskID, comment.AuthorID, comment.Body,
		comment.CreatedAt, comment.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating comment on task %s: %w", comment.TaskID, err)
	}
	return &comment, nil
}

const commentColumns = `
	SELECT c.id, c.task_id, c.author_id, c.body, c.created_at, c.updated_at,
		u.name AS author_name
	FROM comments c
	JOIN users u ON u.id = c.author_id`

// GetComments lists a task's comments, oldest first.
func (s *SQLiteStore) GetComments(ctx context.Context, taskID string) ([]model.Comment, error) {
	var comments []model.Comment
	err := s.db.SelectContext(ctx, &comments,
		commentColumns+" WHERE c.task_id = ? ORDER BY c.created_at, c.id", taskID)
	if err != nil {
		return nil, fmt.Errorf("querying comments for task %s: %w", taskID, err)
	}
	return comments, nil
}

// GetCommentByID retrieves a single comment by ID.
func (s *SQLiteStore) GetCommentByID(ctx context.Context, id string) (*model.Comment, error) {
	var comment model.Comment
	if err := s.db.GetContext(ctx, &comment, commentColumns+" WHERE c.id = ?", id); err != nil {
		return nil, notFound(err, "getting comment %s", id)
	}
	return &comment, nil
}

// DeleteComment removes a comment by ID.
func (s *SQLiteStore) DeleteComment(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM comments WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting comment %s: %w", id, err)
	}
	return requireAffected(result, "comment", id)
}
