package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/nhle/task-dashboard/internal/ai"
	"github.com/nhle/task-dashboard/internal/auth"
	"github.com/nhle/task-dashboard/internal/insight"
	"github.com/nhle/task-dashboard/internal/model"
	"github.com/nhle/task-dashboard/internal/store"
)

type generateTasksRequest struct {
	ProjectID string `json:"project_id"`
	Prompt    string `json:"prompt"`
	Create    bool   `json:"create"`
}

type chatRequest struct {
	Message   string       `json:"message"`
	History   []ai.Message `json:"history"`
	ProjectID string       `json:"project_id"`
}

// handleGenerateTasks serves POST /api/ai/generate-tasks. With create set,
// the suggestions are persisted as tasks in the project.
func (s *Server) handleGenerateTasks(w http.ResponseWriter, r *http.Request) {
	var req generateTasksRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeErrorFrom(w, s.logger, err)
		return
	}
	if strings.TrimSpace(req.ProjectID) == "" {
		writeErrorFrom(w, s.logger, fmt.Errorf("%w: project_id is required", errInvalidRequest))
		return
	}
	project, member, err := s.projectAccess(r.Context(), req.ProjectID)
	if err != nil {
		writeErrorFrom(w, s.logger, err)
		return
	}

	suggestions, err := s.ai.GenerateTasks(r.Context(), *project, req.Prompt)
	if err != nil {
		writeErrorFrom(w, s.logger, err)
		return
	}
	if !req.Create {
		writeJSON(w, http.StatusOK, map[string]any{"tasks": suggestions})
		return
	}

	created := make([]*model.Task, 0, len(suggestions))
	for _, sg := range suggestions {
		task, err := s.store.CreateTask(r.Context(), model.Task{
			ProjectID:      project.ID,
			CreatorID:      member.UserID,
			Title:          sg.Title,
			Description:    sg.Description,
			Status:         sg.Status,
			Priority:       sg.Priority,
			EstimatedHours: sg.EstimatedHours,
		})
		if err != nil {
			writeErrorFrom(w, s.logger, err)
			return
		}
		s.recordActivity(r.Context(), model.Activity{
			Type:        model.ActivityTaskCreated,
			Description: fmt.Sprintf("created suggested task %q", task.Title),
			UserID:      member.UserID,
			ProjectID:   &project.ID,
			TaskID:      &task.ID,
		})
		created = append(created, task)
	}
	writeJSON(w, http.StatusCreated, map[string]any{"tasks": created})
}

// handleChat serves POST /api/ai/chat. With a project_id the answer is
// grounded in that project's metrics, otherwise in the caller's dashboard.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeErrorFrom(w, s.logger, err)
		return
	}
	ctx := r.Context()

	var summary string
	if req.ProjectID != "" {
		project, _, err := s.projectAccess(ctx, req.ProjectID)
		if err != nil {
			writeErrorFrom(w, s.logger, err)
			return
		}
		in, tasks, err := s.computeProjectInsights(ctx, project)
		if err != nil {
			writeErrorFrom(w, s.logger, err)
			return
		}
		summary = ai.NewProjectSummary(*project, in, tasks, s.now()).String()
	} else {
		projects, err := s.store.GetProjectsForUser(ctx, auth.UserID(ctx))
		if err != nil {
			writeErrorFrom(w, s.logger, err)
			return
		}
		ids := make([]string, 0, len(projects))
		for _, p := range projects {
			ids = append(ids, p.ID)
		}
		tasks, err := s.store.GetTasks(ctx, store.TaskFilter{ProjectIDs: ids})
		if err != nil {
			writeErrorFrom(w, s.logger, err)
			return
		}
		in, err := insight.ComputeUser(tasks, 0, s.now())
		if err != nil {
			writeErrorFrom(w, s.logger, err)
			return
		}
		summary = ai.DashboardSummary(in)
	}

	answer, err := s.ai.Chat(ctx, req.Message, req.History, summary)
	if err != nil {
		writeErrorFrom(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reply": answer})
}

// handleAIInsights serves GET /api/projects/{projectID}/ai-insights.
func (s *Server) handleAIInsights(w http.ResponseWriter, r *http.Request) {
	project, _, err := s.projectAccess(r.Context(), mux.Vars(r)["projectID"])
	if err != nil {
		writeErrorFrom(w, s.logger, err)
		return
	}
	in, tasks, err := s.computeProjectInsights(r.Context(), project)
	if err != nil {
		writeErrorFrom(w, s.logger, err)
		return
	}
	text, err := s.ai.ProjectInsights(r.Context(), ai.NewProjectSummary(*project, in, tasks, s.now()))
	if err != nil {
		writeErrorFrom(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"insights": text,
		"metrics":  presentProject(project.ID, in),
	})
}
