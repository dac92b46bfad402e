package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/task-dashboard/internal/model"
)

// normalizeTask validates title, enums, and hours and fills defaults.
func normalizeTask(task *model.Task) error {
	task.Title = strings.TrimSpace(task.Title)
	if task.Title == "" {
		return fmt.Errorf("%w: task title must not be empty", ErrInvalid)
	}
	if task.Status == "" {
		task.Status = model.TaskStatusTodo
	}
	if !task.Status.Valid() {
		return fmt.Errorf("%w: invalid task status %q", ErrInvalid, task.Status)
	}
	if task.Priority == "" {
		task.Priority = model.PriorityMedium
	}
	if !task.Priority.Valid() {
		return fmt.Errorf("%w: invalid task priority %q", ErrInvalid, task.Priority)
	}
	if task.EstimatedHours != nil && *task.EstimatedHours < 0 {
		return fmt.Errorf("%w: estimated hours must not be negative", ErrInvalid)
	}
	if task.ActualHours != nil && *task.ActualHours < 0 {
		return fmt.Errorf("%w: actual hours must not be negative", ErrInvalid)
	}
	if task.AssigneeID != nil && *task.AssigneeID == "" {
		task.AssigneeID = nil
	}
	return nil
}

// CreateTask inserts a new task. Generates a UUID if ID is empty.
func (s *SQLiteStore) CreateTask(ctx context.Context, task model.Task) (*model.Task, error) {
	if err := normalizeTask(&task); err != nil {
		return nil, err
	}
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (
			id, project_id, title, description, status, priority,
			due_date, estimated_hours, actual_hours, assignee_id, creator_id,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID, task.ProjectID, task.Title, task.Description, task.Status, task.Priority,
		utcPtr(task.DueDate), task.EstimatedHours, task.ActualHours, task.AssigneeID, task.CreatorID,
		task.CreatedAt, task.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating task: %w", err)
	}
	return &task, nil
}

// UpdateTask updates an existing task by ID. The project and creator
// never change.
func (s *SQLiteStore) UpdateTask(ctx context.Context, task model.Task) (*model.Task, error) {
	if err := normalizeTask(&task); err != nil {
		return nil, err
	}
	task.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET
			title = ?, description = ?, status = ?, priority = ?,
			due_date = ?, estimated_hours = ?, actual_hours = ?,
			assignee_id = ?, updated_at = ?
		WHERE id = ?`,
		task.Title, task.Description, task.Status, task.Priority,
		utcPtr(task.DueDate), task.EstimatedHours, task.ActualHours,
		task.AssigneeID, task.UpdatedAt,
		task.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("updating task %s: %w", task.ID, err)
	}
	if err := requireAffected(result, "task", task.ID); err != nil {
		return nil, err
	}
	return s.GetTaskByID(ctx, task.ID)
}

// DeleteTask removes a task by ID. Cascades to comments.
func (s *SQLiteStore) DeleteTask(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting task %s: %w", id, err)
	}
	return requireAffected(result, "task", id)
}

// GetTaskByID retrieves a single task by ID.
func (s *SQLiteStore) GetTaskByID(ctx context.Context, id string) (*model.Task, error) {
	var task model.Task
	if err := s.db.GetContext(ctx, &task, "SELECT * FROM tasks WHERE id = ?", id); err != nil {
		return nil, notFound(err, "getting task %s", id)
	}
	return &task, nil
}

// GetTasks retrieves tasks matching the filter.
func (s *SQLiteStore) GetTasks(ctx context.Context, filter TaskFilter) ([]model.Task, error) {
	query, args := buildTaskQuery("SELECT tasks.*", filter)

	var tasks []model.Task
	if err := s.db.SelectContext(ctx, &tasks, query, args...); err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	return tasks, nil
}

// taskSorts maps accepted sort keys to ORDER BY expressions.
var taskSorts = map[string]string{
	"created_at": "tasks.created_at",
	"updated_at": "tasks.updated_at",
	"due_date":   "tasks.due_date",
	"title":      "tasks.title",
	"status": `CASE tasks.status
		WHEN 'todo' THEN 0 WHEN 'in_progress' THEN 1 WHEN 'in_review' THEN 2
		WHEN 'done' THEN 3 ELSE 4 END`,
	"priority": `CASE tasks.priority
		WHEN 'low' THEN 0 WHEN 'medium' THEN 1 WHEN 'high' THEN 2 ELSE 3 END`,
}

// buildTaskQuery constructs a SQL query with WHERE, ORDER BY, and LIMIT
// clauses from the filter.
func buildTaskQuery(selectClause string, filter TaskFilter) (string, []any) {
	var conditions []string
	var args []any

	if filter.ProjectID != nil {
		conditions = append(conditions, "tasks.project_id = ?")
		args = append(args, *filter.ProjectID)
	}
	if filter.ProjectIDs != nil {
		if len(filter.ProjectIDs) == 0 {
			conditions = append(conditions, "0")
		} else {
			placeholders, inArgs := inClause(filter.ProjectIDs)
			conditions = append(conditions, "tasks.project_id IN ("+placeholders+")")
			args = append(args, inArgs...)
		}
	}
	if filter.AssigneeID != nil {
		conditions = append(conditions, "tasks.assignee_id = ?")
		args = append(args, *filter.AssigneeID)
	}
	if filter.Status != nil {
		conditions = append(conditions, "tasks.status = ?")
		args = append(args, *filter.Status)
	}
	if filter.Priority != nil {
		conditions = append(conditions, "tasks.priority = ?")
		args = append(args, *filter.Priority)
	}
	if filter.Query != nil && *filter.Query != "" {
		conditions = append(conditions,
			"(tasks.title LIKE ? OR tasks.description LIKE ?)")
		q := "%" + *filter.Query + "%"
		args = append(args, q, q)
	}

	if filter.DueBefore != nil {
		conditions = append(conditions, "tasks.due_date IS NOT NULL AND tasks.due_date < ?")
		args = append(args, filter.DueBefore.UTC())
	}

	query := selectClause + " FROM tasks"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	sortBy := "tasks.created_at"
	if col, ok := taskSorts[filter.SortBy]; ok {
		sortBy = col
	}
	dir := "ASC"
	if filter.SortDesc {
		dir = "DESC"
	}
	query += " ORDER BY " + sortBy + " " + dir + ", tasks.id"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	return query, args
}
