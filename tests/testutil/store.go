package testutil

import (
	"context"
	"testing"

	"github.com/nhle/task-dashboard/internal/model"
	"github.com/nhle/task-dashboard/internal/store"
)

// NewTestStore creates an in-memory SQLiteStore with all migrations applied.
// It automatically closes the store when the test completes.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}

// CreateUser inserts a user with a placeholder password hash.
func CreateUser(t *testing.T, s store.Store, email, name string) *model.User {
	t.Helper()

	u, err := s.CreateUser(context.Background(), model.User{
		Email:        email,
		Name:         name,
		PasswordHash: "x",
	})
	if err != nil {
		t.Fatalf("creating user %s: %v", email, err)
	}
	return u
}

// CreateProject inserts a project owned by ownerID.
func CreateProject(t *testing.T, s store.Store, ownerID, name string) *model.Project {
	t.Helper()

	p, err := s.CreateProject(context.Background(), model.Project{
		Name:    name,
		OwnerID: ownerID,
		Status:  model.ProjectStatusActive,
	})
	if err != nil {
		t.Fatalf("creating project %s: %v", name, err)
	}
	return p
}

// CreateTask inserts a task with the given status into a project.
func CreateTask(
	t *testing.T,
	s store.Store,
	projectID, creatorID, title string,
	status model.TaskStatus,
) *model.Task {
	t.Helper()

	task, err := s.CreateTask(context.Background(), model.Task{
		ProjectID: projectID,
		CreatorID: creatorID,
		Title:     title,
		Status:    status,
	})
	if err != nil {
		t.Fatalf("creating task %s: %v", title, err)
	}
	return task
}
