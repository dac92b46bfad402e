package store

import (
	"context"
	"errors"
	"time"

	"github.com/nhle/task-dashboard/internal/model"
)

// ErrNotFound is wrapped by every lookup that matches no row.
var ErrNotFound = errors.New("not found")

// ErrInvalid is wrapped by every rejected input.
var ErrInvalid = errors.New("invalid input")

// TaskFilter controls filtering, sorting, and pagination for task queries.
type TaskFilter struct {
	ProjectID  *string
	ProjectIDs []string // any of these projects (OR logic)
	AssigneeID *string
	Status     *model.TaskStatus
	Priority   *model.Priority
	Query      *string // search title + description
	DueBefore  *time.Time
	SortBy     string  // "created_at", "updated_at", "due_date", "priority", "status", "title"
	SortDesc   bool
	Limit      int
	Offset     int
}

// ActivityFilter selects recent activity entries, newest first.
type ActivityFilter struct {
	ProjectID  *string
	ProjectIDs []string
	UserID     *string
	Limit      int
}

// Store defines the persistence interface for users, projects, members,
// tasks, comments, and the activity log.
type Store interface {
	// === Users ===

	CreateUser(ctx context.Context, user model.User) (*model.User, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)

	// === Projects ===

	CreateProject(ctx context.Context, project model.Project) (*model.Project, error)
	UpdateProject(ctx context.Context, project model.Project) (*model.Project, error)
	DeleteProject(ctx context.Context, id string) error
	GetProjectByID(ctx context.Context, id string) (*model.Project, error)
	GetProjectsForUser(ctx context.Context, userID string) ([]model.Project, error)

	// === Members ===

	AddMember(ctx context.Context, member model.Member) error
	UpdateMemberRole(ctx context.Context, projectID, userID string, role model.Role) error
	RemoveMember(ctx context.Context, projectID, userID string) error
	GetMembers(ctx context.Context, projectID string) ([]model.Member, error)
	GetMembership(ctx context.Context, projectID, userID string) (*model.Member, error)

	// === Tasks ===

	CreateTask(ctx context.Context, task model.Task) (*model.Task, error)
	UpdateTask(ctx context.Context, task model.Task) (*model.Task, error)
	DeleteTask(ctx context.Context, id string) error
	GetTaskByID(ctx context.Context, id string) (*model.Task, error)
	GetTasks(ctx context.Context, filter TaskFilter) ([]model.Task, error)

	// === Comments ===

	CreateComment(ctx context.Context, comment model.Comment) (*model.Comment, error)
	GetComments(ctx context.Context, taskID string) ([]model.Comment, error)
	GetCommentByID(ctx context.Context, id string) (*model.Comment, error)
	DeleteComment(ctx context.Context, id string) error

	// === Activity log (append-only) ===

	RecordActivity(ctx context.Context, activity model.Activity) error
	GetRecentActivities(ctx context.Context, filter ActivityFilter) ([]model.Activity, error)
	CountRecentActivities(ctx context.Context, projectID string, limit int) (int, error)
}
