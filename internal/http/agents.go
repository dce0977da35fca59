package http

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/JithendraNara/mission-control/internal/log"
	"github.com/JithendraNara/mission-control/pkg/models"
	"github.com/JithendraNara/mission-control/pkg/storage"
)

type registerAgentRequest struct {
	Role         string   `json:"role"`
	Name         string   `json:"name"`
	Capabilities []string `json:"capabilities"`
	WebhookURL   string   `json:"webhookUrl"`
}

func (s *Server) handleRegisterAgent(w http.ResponseWriter, r *http.Request) {
	reqID := requestID(r)
	var req registerAgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, reqID, "INVALID_INPUT", "Invalid JSON body", nil)
		return
	}
	details := map[string]string{}
	if !models.Role(req.Role).Valid() {
		details["role"] = "role must be one of the known roles"
	}
	if req.Name == "" {
		details["name"] = "name is required"
	}
	if len(details) > 0 {
		sendError(w, http.StatusBadRequest, reqID, "INVALID_INPUT", "Validation failed", details)
		return
	}

	agent, err := s.agents.Register(models.Agent{
		Role:         models.Role(req.Role),
		Name:         req.Name,
		Capabilities: req.Capabilities,
		WebhookURL:   req.WebhookURL,
		IsActive:     true,
	})
	if err != nil {
		log.GetLogger().Errorf("Failed to register agent: %v", err)
		sendError(w, http.StatusInternalServerError, reqID, "INTERNAL_ERROR", "Failed to register agent", nil)
		return
	}
	sendData(w, http.StatusCreated, reqID, agent)
}

func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := s.agents.List()
	if err != nil {
		log.GetLogger().Errorf("Failed to list agents: %v", err)
		sendError(w, http.StatusInternalServerError, requestID(r), "INTERNAL_ERROR", "Failed to fetch agents", nil)
		return
	}
	sendData(w, http.StatusOK, requestID(r), map[string]interface{}{"agents": agents})
}

func (s *Server) handleAgentHeartbeat(w http.ResponseWriter, r *http.Request) {
	reqID := requestID(r)
	role := models.Role(mux.Vars(r)["role"])
	if !role.Valid() {
		sendError(w, http.StatusBadRequest, reqID, "INVALID_INPUT", "Validation failed",
			map[string]string{"role": "role must be one of the known roles"})
		return
	}
	err := s.agents.Heartbeat(role)
	if errors.Is(err, storage.ErrNotFound) {
		sendError(w, http.StatusNotFound, reqID, "NOT_FOUND", "Agent not found", nil)
		return
	}
	if err != nil {
		log.GetLogger().Errorf("Failed to record heartbeat: %v", err)
		sendError(w, http.StatusInternalServerError, reqID, "INTERNAL_ERROR", "Failed to record heartbeat", nil)
		return
	}
	sendData(w, http.StatusOK, reqID, map[string]bool{"ok": true})
}
