package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/nhle/task-dashboard/internal/auth"
	"github.com/nhle/task-dashboard/internal/model"
	"github.com/nhle/task-dashboard/internal/store"
)

// maxTaskPageSize caps the limit query parameter.
const maxTaskPageSize = 200

// nullableTime tells an absent JSON field apart from an explicit null.
type nullableTime struct {
	Set   bool
	Value *time.Time
}

func (n *nullableTime) UnmarshalJSON(data []byte) error {
	n.Set = true
	if string(data) == "null" {
		n.Value = nil
		return nil
	}
	var t time.Time
	if err := json.Unmarshal(data, &t); err != nil {
		return err
	}
	n.Value = &t
	return nil
}

// taskRequest is used for create and partial update. Nil fields are left
// unchanged on update; an empty assignee_id clears the assignee and a null
// due_date clears the due date.
type taskRequest struct {
	Title          *string      `json:"title"`
	Description    *string      `json:"description"`
	Status         *string      `json:"status"`
	Priority       *string      `json:"priority"`
	DueDate        nullableTime `json:"due_date"`
	EstimatedHours *float64     `json:"estimated_hours"`
	ActualHours    *float64     `json:"actual_hours"`
	AssigneeID     *string      `json:"assignee_id"`
}

// apply copies the request's set fields onto task.
func (req taskRequest) apply(task *model.Task) error {
	if req.Title != nil {
		task.Title = *req.Title
	}
	if req.Description != nil {
		task.Description = strings.TrimSpace(*req.Description)
	}
	if req.Status != nil {
		status, err := model.ParseTaskStatus(*req.Status)
		if err != nil {
			return fmt.Errorf("%w: %v", errInvalidRequest, err)
		}
		task.Status = status
	}
	if req.Priority != nil {
		priority, err := model.ParsePriority(*req.Priority)
		if err != nil {
			return fmt.Errorf("%w: %v", errInvalidRequest, err)
		}
		task.Priority = priority
	}
	if req.DueDate.Set {
		task.DueDate = req.DueDate.Value
	}
	if req.EstimatedHours != nil {
		task.EstimatedHours = req.EstimatedHours
	}
	if req.ActualHours != nil {
		task.ActualHours = req.ActualHours
	}
	if req.AssigneeID != nil {
		if *req.AssigneeID == "" {
			task.AssigneeID = nil
		} else {
			id := *req.AssigneeID
			task.AssigneeID = &id
		}
	}
	return nil
}

type commentRequest struct {
	Body string `json:"body"`
}

// taskFilterFromQuery builds a TaskFilter from list query parameters.
func taskFilterFromQuery(projectID string, q map[string][]string) (store.TaskFilter, error) {
	get := func(key string) string {
		if v := q[key]; len(v) > 0 {
			return strings.TrimSpace(v[0])
		}
		return ""
	}

	filter := store.TaskFilter{ProjectID: &projectID}
	if v := get("status"); v != "" {
		status, err := model.ParseTaskStatus(v)
		if err != nil {
			return filter, fmt.Errorf("%w: %v", errInvalidRequest, err)
		}
		filter.Status = &status
	}
	if v := get("priority"); v != "" {
		priority, err := model.ParsePriority(v)
		if err != nil {
			return filter, fmt.Errorf("%w: %v", errInvalidRequest, err)
		}
		filter.Priority = &priority
	}
	if v := get("assignee"); v != "" {
		filter.AssigneeID = &v
	}
	if v := get("q"); v != "" {
		filter.Query = &v
	}
	if v := get("due_before"); v != "" {
		due, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, fmt.Errorf("%w: due_before must be an RFC 3339 timestamp", errInvalidRequest)
		}
		filter.DueBefore = &due
	}
	filter.SortBy = get("sort")
	filter.SortDesc = strings.EqualFold(get("order"), "desc")

	for key, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		v := get(key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return filter, fmt.Errorf("%w: %s must be a non-negative integer", errInvalidRequest, key)
		}
		*dst = n
	}
	if filter.Limit > maxTaskPageSize {
		filter.Limit = maxTaskPageSize
	}
	return filter, nil
}

// handleListTasks serves GET /api/projects/{projectID}/tasks.
func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	project, _, err := s.projectAccess(r.Context(), mux.Vars(r)["projectID"])
	if err != nil {
		writeErrorFrom(w, s.logger, err)
		return
	}
	filter, err := taskFilterFromQuery(project.ID, r.URL.Query())
	if err != nil {
		writeErrorFrom(w, s.logger, err)
		return
	}
	tasks, err := s.store.GetTasks(r.Context(), filter)
	if err != nil {
		writeErrorFrom(w, s.logger, err)
		return
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
}

// handleCreateTask serves POST /api/projects/{projectID}/tasks.
func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	project, member, err := s.projectAccess(r.Context(), mux.Vars(r)["projectID"])
	if err != nil {
		writeErrorFrom(w, s.logger, err)
		return
	}

	var req taskRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeErrorFrom(w, s.logger, err)
		return
	}
	task := model.Task{ProjectID: project.ID, CreatorID: member.UserID}
	if err := req.apply(&task); err != nil {
		writeErrorFrom(w, s.logger, err)
		return
	}
	if err := s.requireAssignable(r.Context(), project.ID, task.AssigneeID); err != nil {
		writeErrorFrom(w, s.logger, err)
		return
	}

	created, err := s.store.CreateTask(r.Context(), task)
	if err != nil {
		writeErrorFrom(w, s.logger, err)
		return
	}
	s.recordActivity(r.Context(), model.Activity{
		Type:        model.ActivityTaskCreated,
		Description: fmt.Sprintf("created task %q", created.Title),
		UserID:      member.UserID,
		ProjectID:   &project.ID,
		TaskID:      &created.ID,
	})
	writeJSON(w, http.StatusCreated, created)
}

// handleGetTask serves GET /api/tasks/{taskID}.
func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	task, _, err := s.taskAccess(r.Context(), mux.Vars(r)["taskID"])
	if err != nil {
		writeErrorFrom(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// handleUpdateTask serves PUT /api/tasks/{taskID}.
func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	task, member, err := s.taskAccess(r.Context(), mux.Vars(r)["taskID"])
	if err != nil {
		writeErrorFrom(w, s.logger, err)
		return
	}

	var req taskRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeErrorFrom(w, s.logger, err)
		return
	}
	before := task.Status
	if err := req.apply(task); err != nil {
		writeErrorFrom(w, s.logger, err)
		return
	}
	if err := s.requireAssignable(r.Context(), task.ProjectID, task.AssigneeID); err != nil {
		writeErrorFrom(w, s.logger, err)
		return
	}

	updated, err := s.store.UpdateTask(r.Context(), *task)
	if err != nil {
		writeErrorFrom(w, s.logger, err)
		return
	}

	activity := model.Activity{
		Type:        model.ActivityTaskUpdated,
		Description: fmt.Sprintf("updated task %q", updated.Title),
		UserID:      member.UserID,
		ProjectID:   &updated.ProjectID,
		TaskID:      &updated.ID,
	}
	if updated.Status != before {
		activity.Type = model.ActivityTaskStatusChanged
		activity.Description = fmt.Sprintf("moved task %q from %s to %s", updated.Title, before, updated.Status)
	}
	s.recordActivity(r.Context(), activity)
	writeJSON(w, http.StatusOK, updated)
}

// handleDeleteTask serves DELETE /api/tasks/{taskID}.
func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	task, member, err := s.taskAccess(r.Context(), mux.Vars(r)["taskID"])
	if err != nil {
		writeErrorFrom(w, s.logger, err)
		return
	}
	if !canDeleteTask(task, member) {
		writeErrorFrom(w, s.logger, fmt.Errorf("%w: only the creator, admins, and managers can delete a task", errForbidden))
		return
	}
	if err := s.store.DeleteTask(r.Context(), task.ID); err != nil {
		writeErrorFrom(w, s.logger, err)
		return
	}
	s.recordActivity(r.Context(), model.Activity{
		Type:        model.ActivityTaskDeleted,
		Description: fmt.Sprintf("deleted task %q", task.Title),
		UserID:      member.UserID,
		ProjectID:   &task.ProjectID,
		TaskID:      &task.ID,
	})
	w.WriteHeader(http.StatusNoContent)
}

// handleListComments serves GET /api/tasks/{taskID}/comments.
func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request) {
	task, _, err := s.taskAccess(r.Context(), mux.Vars(r)["taskID"])
	if err != nil {
		writeErrorFrom(w, s.logger, err)
		return
	}
	comments, err := s.store.GetComments(r.Context(), task.ID)
	if err != nil {
		writeErrorFrom(w, s.logger, err)
		return
	}
	if comments == nil {
		comments = []model.Comment{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"comments": comments})
}

// handleCreateComment serves POST /api/tasks/{taskID}/comments.
func (s *Server) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	task, member, err := s.taskAccess(r.Context(), mux.Vars(r)["taskID"])
	if err != nil {
		writeErrorFrom(w, s.logger, err)
		return
	}

	var req commentRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeErrorFrom(w, s.logger, err)
		return
	}
	comment, err := s.store.CreateComment(r.Context(), model.Comment{
		TaskID:   task.ID,
		AuthorID: member.UserID,
		Body:     req.Body,
	})
	if err != nil {
		writeErrorFrom(w, s.logger, err)
		return
	}
	s.recordActivity(r.Context(), model.Activity{
		Type:        model.ActivityCommentAdded,
		Description: fmt.Sprintf("commented on task %q", task.Title),
		UserID:      member.UserID,
		ProjectID:   &task.ProjectID,
		TaskID:      &task.ID,
	})
	writeJSON(w, http.StatusCreated, comment)
}

// handleDeleteComment serves DELETE /api/comments/{commentID}.
func (s *Server) handleDeleteComment(w http.ResponseWriter, r *http.Request) {
	comment, err := s.store.GetCommentByID(r.Context(), mux.Vars(r)["commentID"])
	if err != nil {
		writeErrorFrom(w, s.logger, err)
		return
	}
	if comment.AuthorID != auth.UserID(r.Context()) {
		writeErrorFrom(w, s.logger, fmt.Errorf("%w: only the author can delete a comment", errForbidden))
		return
	}
	if err := s.store.DeleteComment(r.Context(), comment.ID); err != nil {
		writeErrorFrom(w, s.logger, err)
		return
	}
	activity := model.Activity{
		Type:        model.ActivityCommentDeleted,
		Description: "deleted a comment",
		UserID:      comment.AuthorID,
		TaskID:      &comment.TaskID,
	}
	if task, err := s.store.GetTaskByID(r.Context(), comment.TaskID); err == nil {
		activity.ProjectID = &task.ProjectID
	}
	s.recordActivity(r.Context(), activity)
	w.WriteHeader(http.StatusNoContent)
}
