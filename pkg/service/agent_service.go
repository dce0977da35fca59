package service

import (
	"github.com/pkg/errors"

	"github.com/JithendraNara/mission-control/pkg/models"
	"github.com/JithendraNara/mission-control/pkg/storage"
)

// AgentService manages the registered agents behind the fixed roles.
type AgentService struct {
	store  storage.Store
	logger Logger
}

func NewAgentService(store storage.Store, logger Logger) *AgentService {
	return &AgentService{
		store:  store,
		logger: logger,
	}
}

// Register adds an agent for a role. The role must be one of the fixed set
// and may only be registered once.
func (s *AgentService) Register(agent models.Agent) (saved models.Agent, err error) {
	if !agent.Role.Valid() {
		return models.Agent{}, errors.Errorf("invalid role %q", agent.Role)
	}
	if agent.Name == "" {
		return models.Agent{}, errors.New("agent name cannot be empty")
	}

	txStore, err := s.store.Begin()
	if err != nil {
		return models.Agent{}, err
	}
	defer func() {
		if err != nil {
			if rollbackErr := txStore.Rollback(); rollbackErr != nil {
				s.logger.Errorf("Failed to rollback after error: %v (original error: %v)", rollbackErr, err)
			}
			return
		}
		if commitErr := txStore.Commit(); commitErr != nil {
			s.logger.Errorf("Failed to commit: %v", commitErr)
			err = commitErr
		}
	}()

	saved, err = txStore.SaveAgent(agent)
	if err != nil {
		return models.Agent{}, err
	}
	s.logger.Infof("Registered agent '%s' for role '%s'", saved.Name, saved.Role)
	return saved, nil
}

// List returns all registered agents.
func (s *AgentService) List() ([]models.Agent, error) {
	return s.store.ListAgents()
}

// Heartbeat records that the agent behind a role is alive.
func (s *AgentService) Heartbeat(role models.Role) error {
	if !role.Valid() {
		return errors.Errorf("invalid role %q", role)
	}
	return s.store.TouchAgent(role)
}
