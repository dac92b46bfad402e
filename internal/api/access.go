package api

import (
	"context"
	"errors"
	"fmt"

	"github.com/nhle/task-dashboard/internal/auth"
	"github.com/nhle/task-dashboard/internal/model"
	"github.com/nhle/task-dashboard/internal/store"
)

// projectAccess loads a project and the caller's membership in it. A
// missing project is a 404; a non-member caller is a 403.
func (s *Server) projectAccess(
	ctx context.Context,
	projectID string,
) (*model.Project, *model.Member, error) {
	project, err := s.store.GetProjectByID(ctx, projectID)
	if err != nil {
		return nil, nil, err
	}
	member, err := s.store.GetMembership(ctx, projectID, auth.UserID(ctx))
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil, fmt.Errorf("%w: not a member of project %s", errForbidden, projectID)
	}
	if err != nil {
		return nil, nil, err
	}
	return project, member, nil
}

// taskAccess loads a task and the caller's membership in its project.
func (s *Server) taskAccess(
	ctx context.Context,
	taskID string,
) (*model.Task, *model.Member, error) {
	task, err := s.store.GetTaskByID(ctx, taskID)
	if err != nil {
		return nil, nil, err
	}
	_, member, err := s.projectAccess(ctx, task.ProjectID)
	if err != nil {
		return nil, nil, err
	}
	return task, member, nil
}

// canEditProject reports whether the member may update or delete the project.
func canEditProject(project *model.Project, member *model.Member) bool {
	return member.Role == model.RoleAdmin || project.OwnerID == member.UserID
}

// canDeleteTask reports whether the member may delete the task.
func canDeleteTask(task *model.Task, member *model.Member) bool {
	return member.Role.CanManage() || task.CreatorID == member.UserID
}

// requireAssignable checks that an assignee belongs to the project.
func (s *Server) requireAssignable(ctx context.Context, projectID string, assigneeID *string) error {
	if assigneeID == nil || *assigneeID == "" {
		return nil
	}
	_, err := s.store.GetMembership(ctx, projectID, *assigneeID)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: assignee %s is not a member of the project", errInvalidRequest, *assigneeID)
	}
	return err
}
