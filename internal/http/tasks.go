package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/JithendraNara/mission-control/internal/log"
	"github.com/JithendraNara/mission-control/pkg/models"
	"github.com/JithendraNara/mission-control/pkg/query"
	"github.com/JithendraNara/mission-control/pkg/service"
	"github.com/JithendraNara/mission-control/pkg/storage"
)

type createTaskRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Owner       string          `json:"owner"`
	Priority    string          `json:"priority"`
	DueDate     string          `json:"dueDate"`
	Metadata    models.Metadata `json:"metadata"`
}

func (req *createTaskRequest) validate() map[string]string {
	details := map[string]string{}
	if req.Title == "" {
		details["title"] = "title is required"
	} else if len(req.Title) > 200 {
		details["title"] = "title must be at most 200 characters"
	}
	if len(req.Description) > 2000 {
		details["description"] = "description must be at most 2000 characters"
	}
	if !models.Role(req.Owner).Valid() {
		details["owner"] = "owner must be one of the known roles"
	}
	if req.Priority != "" && !models.TaskPriority(req.Priority).Valid() {
		details["priority"] = "priority must be one of low, normal, high, urgent"
	}
	if req.DueDate != "" {
		if _, err := time.Parse(time.RFC3339, req.DueDate); err != nil {
			details["dueDate"] = "dueDate must be an RFC 3339 timestamp"
		}
	}
	if len(details) == 0 {
		return nil
	}
	return details
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	reqID := requestID(r)
	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, reqID, "INVALID_INPUT", "Invalid JSON body", nil)
		return
	}
	if details := req.validate(); details != nil {
		sendError(w, http.StatusBadRequest, reqID, "INVALID_INPUT", "Validation failed", details)
		return
	}

	draft := models.Task{
		Title:       req.Title,
		Description: req.Description,
		Owner:       models.Role(req.Owner),
		Priority:    models.TaskPriority(req.Priority),
		Metadata:    req.Metadata,
	}
	if req.DueDate != "" {
		due, _ := time.Parse(time.RFC3339, req.DueDate)
		draft.DueDate = &due
	}

	task, err := s.tasks.Create(draft)
	if err != nil {
		log.GetLogger().Errorf("Failed to create task: %v", err)
		sendError(w, http.StatusInternalServerError, reqID, "INTERNAL_ERROR", "Failed to create task", nil)
		return
	}
	sendData(w, http.StatusCreated, reqID, task)
}

func listParams(r *http.Request) service.ListParams {
	q := r.URL.Query()
	return service.ListParams{
		Page:   q.Get("page"),
		Limit:  q.Get("limit"),
		Sort:   q.Get("sort"),
		Filter: q.Get("filter"),
	}
}

type taskPage struct {
	Tasks      []models.Task `json:"tasks"`
	Pagination Pagination    `json:"pagination"`
}

func (s *Server) sendTaskPage(w http.ResponseWriter, r *http.Request, tasks []models.Task, total int) {
	// Echo the bounded page/limit the parser actually applied, not the raw input.
	q := r.URL.Query()
	plan := query.Parse(q.Get("page"), q.Get("limit"), "", "")
	sendData(w, http.StatusOK, requestID(r), taskPage{
		Tasks: tasks,
		Pagination: Pagination{
			Page:  plan.Offset/plan.Limit + 1,
			Limit: plan.Limit,
			Total: total,
		},
	})
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, total, err := s.tasks.List(listParams(r))
	if err != nil {
		log.GetLogger().Errorf("Failed to list tasks: %v", err)
		sendError(w, http.StatusInternalServerError, requestID(r), "INTERNAL_ERROR", "Failed to fetch tasks", nil)
		return
	}
	s.sendTaskPage(w, r, tasks, total)
}

func (s *Server) handleListByOwner(w http.ResponseWriter, r *http.Request) {
	owner := mux.Vars(r)["owner"]
	tasks, total, err := s.tasks.FindByOwner(owner, listParams(r))
	if err != nil {
		log.GetLogger().Errorf("Failed to list tasks by owner: %v", err)
		sendError(w, http.StatusInternalServerError, requestID(r), "INTERNAL_ERROR", "Failed to fetch tasks", nil)
		return
	}
	s.sendTaskPage(w, r, tasks, total)
}

func (s *Server) handleListByStatus(w http.ResponseWriter, r *http.Request) {
	status := mux.Vars(r)["status"]
	tasks, total, err := s.tasks.FindByStatus(status, listParams(r))
	if err != nil {
		log.GetLogger().Errorf("Failed to list tasks by status: %v", err)
		sendError(w, http.StatusInternalServerError, requestID(r), "INTERNAL_ERROR", "Failed to fetch tasks", nil)
		return
	}
	s.sendTaskPage(w, r, tasks, total)
}

func (s *Server) handleListBlocked(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.tasks.FindBlocked()
	if err != nil {
		log.GetLogger().Errorf("Failed to list blocked tasks: %v", err)
		sendError(w, http.StatusInternalServerError, requestID(r), "INTERNAL_ERROR", "Failed to fetch blocked tasks", nil)
		return
	}
	sendData(w, http.StatusOK, requestID(r), map[string]interface{}{"tasks": tasks})
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	reqID := requestID(r)
	task, err := s.tasks.Get(mux.Vars(r)["id"])
	if errors.Is(err, storage.ErrNotFound) {
		sendError(w, http.StatusNotFound, reqID, "NOT_FOUND", "Task not found", nil)
		return
	}
	if err != nil {
		log.GetLogger().Errorf("Failed to fetch task: %v", err)
		sendError(w, http.StatusInternalServerError, reqID, "INTERNAL_ERROR", "Failed to fetch task", nil)
		return
	}
	sendData(w, http.StatusOK, reqID, task)
}

type updateTaskRequest struct {
	Title        *string          `json:"title"`
	Description  *string          `json:"description"`
	Owner        *string          `json:"owner"`
	Priority     *string          `json:"priority"`
	DueDate      json.RawMessage  `json:"dueDate"` // absent, null, or an RFC 3339 string
	ArtifactPath *string          `json:"artifactPath"`
	Metadata     *models.Metadata `json:"metadata"`
}

func (req *updateTaskRequest) fields() (map[string]interface{}, map[string]string) {
	details := map[string]string{}
	fields := map[string]interface{}{}

	if req.Title != nil {
		if *req.Title == "" {
			details["title"] = "title cannot be empty"
		} else if len(*req.Title) > 200 {
			details["title"] = "title must be at most 200 characters"
		} else {
			fields["title"] = *req.Title
		}
	}
	if req.Description != nil {
		if len(*req.Description) > 2000 {
			details["description"] = "description must be at most 2000 characters"
		} else {
			fields["description"] = *req.Description
		}
	}
	if req.Owner != nil {
		if !models.Role(*req.Owner).Valid() {
			details["owner"] = "owner must be one of the known roles"
		} else {
			fields["owner"] = models.Role(*req.Owner)
		}
	}
	if req.Priority != nil {
		if !models.TaskPriority(*req.Priority).Valid() {
			details["priority"] = "priority must be one of low, normal, high, urgent"
		} else {
			fields["priority"] = models.TaskPriority(*req.Priority)
		}
	}
	if len(req.DueDate) > 0 {
		if string(req.DueDate) == "null" {
			fields["due_date"] = nil
		} else {
			var raw string
			if err := json.Unmarshal(req.DueDate, &raw); err != nil {
				details["dueDate"] = "dueDate must be an RFC 3339 timestamp or null"
			} else if due, err := time.Parse(time.RFC3339, raw); err != nil {
				details["dueDate"] = "dueDate must be an RFC 3339 timestamp or null"
			} else {
				fields["due_date"] = due
			}
		}
	}
	if req.ArtifactPath != nil {
		fields["artifact_path"] = *req.ArtifactPath
	}
	if req.Metadata != nil {
		fields["metadata"] = *req.Metadata
	}

	if len(details) > 0 {
		return nil, details
	}
	return fields, nil
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	reqID := requestID(r)
	var req updateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, reqID, "INVALID_INPUT", "Invalid JSON body", nil)
		return
	}
	fields, details := req.fields()
	if details != nil {
		sendError(w, http.StatusBadRequest, reqID, "INVALID_INPUT", "Validation failed", details)
		return
	}

	task, err := s.tasks.Update(mux.Vars(r)["id"], fields)
	if errors.Is(err, storage.ErrNotFound) {
		sendError(w, http.StatusNotFound, reqID, "NOT_FOUND", "Task not found", nil)
		return
	}
	if err != nil {
		log.GetLogger().Errorf("Failed to update task: %v", err)
		sendError(w, http.StatusInternalServerError, reqID, "INTERNAL_ERROR", "Failed to update task", nil)
		return
	}
	sendData(w, http.StatusOK, reqID, task)
}

type updateStatusRequest struct {
	Status        string `json:"status"`
	BlockerReason string `json:"blockerReason"`
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	reqID := requestID(r)
	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, reqID, "INVALID_INPUT", "Invalid JSON body", nil)
		return
	}
	if !models.TaskStatus(req.Status).Valid() {
		sendError(w, http.StatusBadRequest, reqID, "INVALID_INPUT", "Validation failed",
			map[string]string{"status": "status must be one of todo, doing, review, done, blocked"})
		return
	}

	task, err := s.tasks.UpdateStatus(mux.Vars(r)["id"], models.TaskStatus(req.Status), req.BlockerReason)
	if errors.Is(err, storage.ErrNotFound) {
		sendError(w, http.StatusNotFound, reqID, "NOT_FOUND", "Task not found", nil)
		return
	}
	if err != nil {
		log.GetLogger().Errorf("Failed to update status: %v", err)
		sendError(w, http.StatusInternalServerError, reqID, "INTERNAL_ERROR", "Failed to update status", nil)
		return
	}
	sendData(w, http.StatusOK, reqID, task)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	reqID := requestID(r)
	deleted, err := s.tasks.Delete(mux.Vars(r)["id"])
	if err != nil {
		log.GetLogger().Errorf("Failed to delete task: %v", err)
		sendError(w, http.StatusInternalServerError, reqID, "INTERNAL_ERROR", "Failed to delete task", nil)
		return
	}
	if !deleted {
		sendError(w, http.StatusNotFound, reqID, "NOT_FOUND", "Task not found", nil)
		return
	}
	sendData(w, http.StatusOK, reqID, map[string]bool{"deleted": true})
}

func (s *Server) handleEnums(w http.ResponseWriter, r *http.Request) {
	sendData(w, http.StatusOK, requestID(r), map[string]interface{}{
		"statuses": s.tasks.ValidStatuses(),
		"roles":    s.tasks.ValidRoles(),
	})
}
