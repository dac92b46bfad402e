package store

import (
	"context"
	"fmt"
	"time"

	"github.com/nhle/task-dashboard/internal/model"
)

// AddMember inserts a project membership.
func (s *SQLiteStore) AddMember(ctx context.Context, member model.Member) error {
	if member.Role == "" {
		member.Role = model.RoleMember
	}
	if !member.Role.Valid() {
		return fmt.Errorf("%w: invalid member role %q", ErrInvalid, member.Role)
	}
	member.JoinedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO members (project_id, user_id, role, joined_at)
		VALUES (?, ?, ?, ?)`,
		member.ProjectID, member.UserID, member.Role, member.JoinedAt,
	)
	if err != nil {
		return fmt.Errorf("adding member %s to project %s: %w",
			member.UserID, member.ProjectID, err)
	}
	return nil
}

// UpdateMemberRole changes a member's role within a project.
func (s *SQLiteStore) UpdateMemberRole(
	ctx context.Context,
	projectID string,
	userID string,
	role model.Role,
) error {
	if !role.Valid() {
		return fmt.Errorf("%w: invalid member role %q", ErrInvalid, role)
	}
	result, err := s.db.ExecContext(ctx,
		"UPDATE members SET role = ? WHERE project_id = ? AND user_id = ?",
		role, projectID, userID,
	)
	if err != nil {
		return fmt.Errorf("updating role of %s in project %s: %w", userID, projectID, err)
	}
	return requireAffected(result, "member", userID)
}

// RemoveMember deletes a project membership.
func (s *SQLiteStore) RemoveMember(ctx context.Context, projectID, userID string) error {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM members WHERE project_id = ? AND user_id = ?",
		projectID, userID,
	)
	if err != nil {
		return fmt.Errorf("removing %s from project %s: %w", userID, projectID, err)
	}
	return requireAffected(result, "member", userID)
}

// GetMembers lists a project's members with user names, oldest first.
func (s *SQLiteStore) GetMembers(ctx context.Context, projectID string) ([]model.Member, error) {
	var members []model.Member
	err := s.db.SelectContext(ctx, &members, `
		SELECT m.project_id, m.user_id, m.role, m.joined_at,
			u.name AS user_name, u.email AS user_email
		FROM members m
		JOIN users u ON u.id = m.user_id
		WHERE m.project_id = ?
		ORDER BY m.joined_at`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying members of project %s: %w", projectID, err)
	}
	return members, nil
}

// GetMembership returns the user's membership in a project.
func (s *SQLiteStore) GetMembership(
	ctx context.Context,
	projectID string,
	userID string,
) (*model.Member, error) {
	var member model.Member
	err := s.db.GetContext(ctx, &member, `
		SELECT project_id, user_id, role, joined_at
		FROM members WHERE project_id = ? AND user_id = ?`,
		projectID, userID,
	)
	if err != nil {
		return nil, notFound(err, "getting membership of %s in project %s", userID, projectID)
	}
	return &member, nil
}
