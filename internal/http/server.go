package http

import (
	"net/http"
	"os"
	"strings"
	"time"

	gorillahandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/JithendraNara/mission-control/internal/log"
	"github.com/JithendraNara/mission-control/pkg/service"
	"github.com/JithendraNara/mission-control/pkg/storage"
)

// Server is the HTTP transport over the task and agent services.
type Server struct {
	tasks  *service.TaskService
	agents *service.AgentService
	router *mux.Router
}

// NewServer wires the services into a router. The store behind the
// services is chosen by the caller, so tests substitute the in-memory one.
func NewServer(tasks *service.TaskService, agents *service.AgentService) *Server {
	s := &Server{
		tasks:  tasks,
		agents: agents,
		router: mux.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(requestIDMiddleware, loggingMiddleware)
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/tasks", s.handleCreateTask).Methods("POST")
	api.HandleFunc("/tasks", s.handleListTasks).Methods("GET")
	api.HandleFunc("/tasks/blocked/all", s.handleListBlocked).Methods("GET")
	api.HandleFunc("/tasks/meta/enums", s.handleEnums).Methods("GET")
	api.HandleFunc("/tasks/by-owner/{owner}", s.handleListByOwner).Methods("GET")
	api.HandleFunc("/tasks/by-status/{status}", s.handleListByStatus).Methods("GET")
	api.HandleFunc("/tasks/{id}", s.handleGetTask).Methods("GET")
	api.HandleFunc("/tasks/{id}", s.handleUpdateTask).Methods("PATCH")
	api.HandleFunc("/tasks/{id}", s.handleDeleteTask).Methods("DELETE")
	api.HandleFunc("/tasks/{id}/status", s.handleUpdateStatus).Methods("PATCH")

	api.HandleFunc("/agents", s.handleListAgents).Methods("GET")
	api.HandleFunc("/agents", s.handleRegisterAgent).Methods("POST")
	api.HandleFunc("/agents/{role}/heartbeat", s.handleAgentHeartbeat).Methods("POST")

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sendError(w, http.StatusNotFound, requestID(r), "NOT_FOUND",
			"Route "+r.Method+" "+r.URL.Path+" not found", nil)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	sendData(w, http.StatusOK, requestID(r), map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// StartServer runs the HTTP server on the given port with CORS applied.
func StartServer(port string, store storage.Store) error {
	logger := log.GetLogger()
	srv := NewServer(
		service.NewTaskService(store, logger),
		service.NewAgentService(store, logger),
	)

	allowedOrigins := []string{"*"}
	if env := os.Getenv("CORS_ALLOWED_ORIGINS"); env != "" {
		allowedOrigins = strings.Split(env, ",")
	}
	handler := gorillahandlers.CORS(
		gorillahandlers.AllowedHeaders([]string{"X-Requested-With", "Content-Type", "Authorization"}),
		gorillahandlers.AllowedMethods([]string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}),
		gorillahandlers.AllowedOrigins(allowedOrigins),
	)(srv)

	logger.Infof("Starting mission-control server on :%s", port)
	return http.ListenAndServe(":"+port, handler)
}
