package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/nhle/task-dashboard/internal/auth"
	"github.com/nhle/task-dashboard/internal/model"
)

// projectRequest is used for create and partial update. Nil fields are
// left unchanged on update.
type projectRequest struct {
	Name        *string    `json:"name"`
	Description *string    `json:"description"`
	Status      *string    `json:"status"`
	Priority    *string    `json:"priority"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
}

// apply copies the request's set fields onto project.
func (req projectRequest) apply(project *model.Project) error {
	if req.Name != nil {
		project.Name = *req.Name
	}
	if req.Description != nil {
		project.Description = strings.TrimSpace(*req.Description)
	}
	if req.Status != nil {
		status, err := model.ParseProjectStatus(*req.Status)
		if err != nil {
			return fmt.Errorf("%w: %v", errInvalidRequest, err)
		}
		project.Status = status
	}
	if req.Priority != nil {
		priority, err := model.ParsePriority(*req.Priority)
		if err != nil {
			return fmt.Errorf("%w: %v", errInvalidRequest, err)
		}
		project.Priority = priority
	}
	if req.StartDate != nil {
		project.StartDate = req.StartDate
	}
	if req.EndDate != nil {
		project.EndDate = req.EndDate
	}
	return nil
}

type memberRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

type roleRequest struct {
	Role string `json:"role"`
}

// handleListProjects serves GET /api/projects.
func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.store.GetProjectsForUser(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeErrorFrom(w, s.logger, err)
		return
	}
	if projects == nil {
		projects = []model.Project{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"projects": projects})
}

// handleCreateProject serves POST /api/projects.
func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req projectRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeErrorFrom(w, s.logger, err)
		return
	}

	userID := auth.UserID(r.Context())
	project := model.Project{OwnerID: userID}
	if err := req.apply(&project); err != nil {
		writeErrorFrom(w, s.logger, err)
		return
	}

	created, err := s.store.CreateProject(r.Context(), project)
	if err != nil {
		writeErrorFrom(w, s.logger, err)
		return
	}
	s.recordActivity(r.Context(), model.Activity{
		Type:        model.ActivityProjectCreated,
		Description: fmt.Sprintf("created project %q", created.Name),
		UserID:      userID,
		ProjectID:   &created.ID,
	})
	writeJSON(w, http.StatusCreated, created)
}

// handleGetProject serves GET /api/projects/{projectID}.
func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	project, member, err := s.projectAccess(r.Context(), mux.Vars(r)["projectID"])
	if err != nil {
		writeErrorFrom(w, s.logger, err)
		return
	}
	members, err := s.store.GetMembers(r.Context(), project.ID)
	if err != nil {
		writeErrorFrom(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"project": project,
		"role":    member.Role,
		"members": members,
	})
}

// handleUpdateProject serves PUT /api/projects/{projectID}.
func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	project, member, err := s.projectAccess(r.Context(), mux.Vars(r)["projectID"])
	if err != nil {
		writeErrorFrom(w, s.logger, err)
		return
	}
	if !canEditProject(project, member) {
		writeErrorFrom(w, s.logger, fmt.Errorf("%w: only the owner or an admin can edit the project", errForbidden))
		return
	}

	var req projectRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeErrorFrom(w, s.logger, err)
		return
	}
	if err := req.apply(project); err != nil {
		writeErrorFrom(w, s.logger, err)
		return
	}

	updated, err := s.store.UpdateProject(r.Context(), *project)
	if err != nil {
		writeErrorFrom(w, s.logger, err)
		return
	}
	s.recordActivity(r.Context(), model.Activity{
		Type:        model.ActivityProjectUpdated,
		Description: fmt.Sprintf("updated project %q", updated.Name),
		UserID:      member.UserID,
		ProjectID:   &updated.ID,
	})
	writeJSON(w, http.StatusOK, updated)
}

// handleDeleteProject serves DELETE /api/projects/{projectID}.
func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	project, member, err := s.projectAccess(r.Context(), mux.Vars(r)["projectID"])
	if err != nil {
		writeErrorFrom(w, s.logger, err)
		return
	}
	if !canEditProject(project, member) {
		writeErrorFrom(w, s.logger, fmt.Errorf("%w: only the owner or an admin can delete the project", errForbidden))
		return
	}
	if err := s.store.DeleteProject(r.Context(), project.ID); err != nil {
		writeErrorFrom(w, s.logger, err)
		return
	}
	// The project row is gone, so the entry keeps only the user reference.
	s.recordActivity(r.Context(), model.Activity{
		Type:        model.ActivityProjectDeleted,
		Description: fmt.Sprintf("deleted project %q", project.Name),
		UserID:      member.UserID,
	})
	w.WriteHeader(http.StatusNoContent)
}

// handleListMembers serves GET /api/projects/{projectID}/members.
func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	project, _, err := s.projectAccess(r.Context(), mux.Vars(r)["projectID"])
	if err != nil {
		writeErrorFrom(w, s.logger, err)
		return
	}
	members, err := s.store.GetMembers(r.Context(), project.ID)
	if err != nil {
		writeErrorFrom(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"members": members})
}

// handleAddMember serves POST /api/projects/{projectID}/members.
func (s *Server) handleAddMember(w http.ResponseWriter, r *http.Request) {
	project, member, err := s.projectAccess(r.Context(), mux.Vars(r)["projectID"])
	if err != nil {
		writeErrorFrom(w, s.logger, err)
		return
	}
	if !member.Role.CanManage() {
		writeErrorFrom(w, s.logger, fmt.Errorf("%w: only admins and managers can add members", errForbidden))
		return
	}

	var req memberRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeErrorFrom(w, s.logger, err)
		return
	}
	role := model.RoleMember
	if req.Role != "" {
		if role, err = model.ParseRole(req.Role); err != nil {
			writeErrorFrom(w, s.logger, fmt.Errorf("%w: %v", errInvalidRequest, err))
			return
		}
	}

	user, err := s.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		writeErrorFrom(w, s.logger, err)
		return
	}
	if _, err := s.store.GetMembership(r.Context(), project.ID, user.ID); err == nil {
		writeErrorFrom(w, s.logger, fmt.Errorf("%w: %s is already a member", errConflict, user.Email))
		return
	}

	if err := s.store.AddMember(r.Context(), model.Member{
		ProjectID: project.ID,
		UserID:    user.ID,
		Role:      role,
	}); err != nil {
		writeErrorFrom(w, s.logger, err)
		return
	}
	s.recordActivity(r.Context(), model.Activity{
		Type:        model.ActivityMemberAdded,
		Description: fmt.Sprintf("added %s as %s", user.Name, role),
		UserID:      member.UserID,
		ProjectID:   &project.ID,
	})

	added, err := s.store.GetMembership(r.Context(), project.ID, user.ID)
	if err != nil {
		writeErrorFrom(w, s.logger, err)
		return
	}
	added.UserName = user.Name
	added.UserEmail = user.Email
	writeJSON(w, http.StatusCreated, added)
}

// handleUpdateMember serves PUT /api/projects/{projectID}/members/{userID}.
func (s *Server) handleUpdateMember(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	project, member, err := s.projectAccess(r.Context(), vars["projectID"])
	if err != nil {
		writeErrorFrom(w, s.logger, err)
		return
	}
	if !member.Role.CanManage() {
		writeErrorFrom(w, s.logger, fmt.Errorf("%w: only admins and managers can change roles", errForbidden))
		return
	}
	targetID := vars["userID"]
	if targetID == project.OwnerID {
		writeErrorFrom(w, s.logger, fmt.Errorf("%w: the project owner's role cannot change", errInvalidRequest))
		return
	}

	var req roleRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeErrorFrom(w, s.logger, err)
		return
	}
	role, err := model.ParseRole(req.Role)
	if err != nil {
		writeErrorFrom(w, s.logger, fmt.Errorf("%w: %v", errInvalidRequest, err))
		return
	}
	if role == model.RoleAdmin && member.Role != model.RoleAdmin {
		writeErrorFrom(w, s.logger, fmt.Errorf("%w: only admins can grant the admin role", errForbidden))
		return
	}

	if err := s.store.UpdateMemberRole(r.Context(), project.ID, targetID, role); err != nil {
		writeErrorFrom(w, s.logger, err)
		return
	}
	s.recordActivity(r.Context(), model.Activity{
		Type:        model.ActivityProjectUpdated,
		Description: fmt.Sprintf("changed role of member %s to %s", targetID, role),
		UserID:      member.UserID,
		ProjectID:   &project.ID,
	})

	updated, err := s.store.GetMembership(r.Context(), project.ID, targetID)
	if err != nil {
		writeErrorFrom(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// handleRemoveMember serves DELETE /api/projects/{projectID}/members/{userID}.
// Members may always remove themselves.
func (s *Server) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	project, member, err := s.projectAccess(r.Context(), vars["projectID"])
	if err != nil {
		writeErrorFrom(w, s.logger, err)
		return
	}
	targetID := vars["userID"]
	if !member.Role.CanManage() && targetID != member.UserID {
		writeErrorFrom(w, s.logger, fmt.Errorf("%w: only admins and managers can remove members", errForbidden))
		return
	}
	if targetID == project.OwnerID {
		writeErrorFrom(w, s.logger, fmt.Errorf("%w: the project owner cannot be removed", errInvalidRequest))
		return
	}

	if err := s.store.RemoveMember(r.Context(), project.ID, targetID); err != nil {
		writeErrorFrom(w, s.logger, err)
		return
	}
	s.recordActivity(r.Context(), model.Activity{
		Type:        model.ActivityMemberRemoved,
		Description: fmt.Sprintf("removed member %s", targetID),
		UserID:      member.UserID,
		ProjectID:   &project.ID,
	})
	w.WriteHeader(http.StatusNoContent)
}
