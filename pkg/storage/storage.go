package storage

import (
	"github.com/JithendraNara/mission-control/pkg/models"
	"github.com/JithendraNara/mission-control/pkg/query"
	"github.com/pkg/errors"
)

// ErrNotFound signals that no row matched the given identifier. Absence is
// a normal outcome; callers check it with errors.Is.
var ErrNotFound = errors.New("not found")

// Store defines the persistence port for mission-control. Begin returns a
// transactional view of the same store; multi-statement service operations
// run against that view and Commit or Rollback it.
type Store interface {
	Begin() (Store, error)
	Commit() error
	Rollback() error
	Close() error

	// Task operations
	SaveTask(t models.Task) (models.Task, error)
	GetTask(id string) (models.Task, error)
	QueryTasks(plan query.Plan) ([]models.Task, int, error)
	UpdateTask(id string, fields map[string]interface{}) (models.Task, error)
	DeleteTask(id string) (bool, error)

	// Agent operations
	SaveAgent(a models.Agent) (models.Agent, error)
	GetAgentByRole(role models.Role) (models.Agent, error)
	ListAgents() ([]models.Agent, error)
	TouchAgent(role models.Role) error
}
