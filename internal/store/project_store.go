package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nhle/task-dashboard/internal/model"
)

// normalizeProject validates name/enums and fills defaults.
func normalizeProject(project *model.Project) error {
	project.Name = strings.TrimSpace(project.Name)
	if project.Name == "" {
		return fmt.Errorf("%w: project name must not be empty", ErrInvalid)
	}
	if project.Status == "" {
		project.Status = model.ProjectStatusPlanning
	}
	if !project.Status.Valid() {
		return fmt.Errorf("%w: invalid project status %q", ErrInvalid, project.Status)
	}
	if project.Priority == "" {
		project.Priority = model.PriorityMedium
	}
	if !project.Priority.Valid() {
		return fmt.Errorf("%w: invalid project priority %q", ErrInvalid, project.Priority)
	}
	if project.StartDate != nil && project.EndDate != nil && project.EndDate.Before(*project.StartDate) {
		return fmt.Errorf("%w: project end date must not be before start date", ErrInvalid)
	}
	return nil
}

// CreateProject inserts a new project and registers its owner as an admin
// member in the same transaction.
func (s *SQLiteStore) CreateProject(
	ctx context.Context,
	project model.Project,
) (*model.Project, error) {
	if err := normalizeProject(&project); err != nil {
		return nil, err
	}
	if project.OwnerID == "" {
		return nil, fmt.Errorf("%w: project owner must not be empty", ErrInvalid)
	}
	if project.ID == "" {
		project.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	project.CreatedAt = now
	project.UpdatedAt = now

	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO projects (
				id, name, description, status, priority,
				start_date, end_date, owner_id, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			project.ID, project.Name, project.Description, project.Status, project.Priority,
			utcPtr(project.StartDate), utcPtr(project.EndDate), project.OwnerID,
			project.CreatedAt, project.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("creating project: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO members (project_id, user_id, role, joined_at)
			VALUES (?, ?, ?, ?)`,
			project.ID, project.OwnerID, model.RoleAdmin, now,
		)
		if err != nil {
			return fmt.Errorf("adding owner to project %s: %w", project.ID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &project, nil
}

// UpdateProject updates an existing project's editable fields.
func (s *SQLiteStore) UpdateProject(
	ctx context.Context,
	project model.Project,
) (*model.Project, error) {
	if err := normalizeProject(&project); err != nil {
		return nil, err
	}
	project.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE projects SET
			name = ?, description = ?, status = ?, priority = ?,
			start_date = ?, end_date = ?, updated_at = ?
		WHERE id = ?`,
		project.Name, project.Description, project.Status, project.Priority,
		utcPtr(project.StartDate), utcPtr(project.EndDate), project.UpdatedAt,
		project.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("updating project %s: %w", project.ID, err)
	}
	if err := requireAffected(result, "project", project.ID); err != nil {
		return nil, err
	}
	return s.GetProjectByID(ctx, project.ID)
}

// DeleteProject removes a project. Tasks, members, and comments cascade;
// activity entries keep their rows with a NULL project reference.
func (s *SQLiteStore) DeleteProject(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting project %s: %w", id, err)
	}
	return requireAffected(result, "project", id)
}

// GetProjectByID retrieves a single project by ID.
func (s *SQLiteStore) GetProjectByID(
	ctx context.Context,
	id string,
) (*model.Project, error) {
	var project model.Project
	if err := s.db.GetContext(ctx, &project, "SELECT * FROM projects WHERE id = ?", id); err != nil {
		return nil, notFound(err, "getting project %s", id)
	}
	return &project, nil
}

// GetProjectsForUser returns every project the user owns or belongs to,
// newest first.
func (s *SQLiteStore) GetProjectsForUser(
	ctx context.Context,
	userID string,
) ([]model.Project, error) {
	var projects []model.Project
	err := s.db.SelectContext(ctx, &projects, `
		SELECT p.* FROM projects p
		WHERE p.owner_id = ?
			OR p.id IN (SELECT project_id FROM members WHERE user_id = ?)
		ORDER BY p.created_at DESC`,
		userID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying projects for user %s: %w", userID, err)
	}
	return projects, nil
}

// utcPtr normalizes an optional timestamp to UTC for storage.
func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
