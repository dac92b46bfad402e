package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/task-dashboard/internal/model"
)

// defaultActivityLimit caps activity queries without an explicit limit.
const defaultActivityLimit = 50

// RecordActivity appends an entry to the activity log.
func (s *SQLiteStore) RecordActivity(ctx context.Context, activity model.Activity) error {
	if activity.Type == "" {
		return fmt.Errorf("%w: activity type must not be empty", ErrInvalid)
	}
	if activity.ID == "" {
		activity.ID = uuid.New().String()
	}
	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO activities (id, type, description, user_id, project_id, task_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		activity.ID, activity.Type, activity.Description, activity.UserID,
		activity.ProjectID, activity.TaskID, activity.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("recording %s activity: %w", activity.Type, err)
	}
	return nil
}

// GetRecentActivities returns activity entries matching the filter,
// newest first.
func (s *SQLiteStore) GetRecentActivities(
	ctx context.Context,
	filter ActivityFilter,
) ([]model.Activity, error) {
	var conditions []string
	var args []any

	if filter.ProjectID != nil {
		conditions = append(conditions, "project_id = ?")
		args = append(args, *filter.ProjectID)
	}
	if filter.ProjectIDs != nil {
		if len(filter.ProjectIDs) == 0 {
			return nil, nil
		}
		placeholders, inArgs := inClause(filter.ProjectIDs)
		conditions = append(conditions, "project_id IN ("+placeholders+")")
		args = append(args, inArgs...)
	}
	if filter.UserID != nil {
		conditions = append(conditions, "user_id = ?")
		args = append(args, *filter.UserID)
	}

	query := "SELECT * FROM activities"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultActivityLimit
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	var activities []model.Activity
	if err := s.db.SelectContext(ctx, &activities, query, args...); err != nil {
		return nil, fmt.Errorf("querying activities: %w", err)
	}
	return activities, nil
}

// CountRecentActivities returns how many entries the project's recent
// activity window holds, at most limit.
func (s *SQLiteStore) CountRecentActivities(
	ctx context.Context,
	projectID string,
	limit int,
) (int, error) {
	if limit <= 0 {
		return 0, nil
	}
	var count int
	err := s.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM (
			SELECT 1 FROM activities WHERE project_id = ? LIMIT ?
		)`,
		projectID, limit,
	)
	if err != nil {
		return 0, fmt.Errorf("counting activities for project %s: %w", projectID, err)
	}
	return count, nil
}
