package service

import (
	"time"

	"github.com/pkg/errors"

	"github.com/JithendraNara/mission-control/pkg/models"
	"github.com/JithendraNara/mission-control/pkg/query"
	"github.com/JithendraNara/mission-control/pkg/storage"
)

// Logger defines the logging interface for the services
type Logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// ListParams carries the raw, untrusted list inputs as received from the
// transport. The query parser is the only thing that interprets them.
type ListParams struct {
	Page   string
	Limit  string
	Sort   string
	Filter string
}

// TaskService owns the task business rules: creation defaults, the status
// transition side effects, and list orchestration through the query parser.
type TaskService struct {
	store  storage.Store
	logger Logger
}

func NewTaskService(store storage.Store, logger Logger) *TaskService {
	return &TaskService{
		store:  store,
		logger: logger,
	}
}

// Create validates a draft and persists it. Status defaults to todo and
// priority to normal unless the draft supplies valid values.
func (s *TaskService) Create(draft models.Task) (task models.Task, err error) {
	if draft.Title == "" {
		return models.Task{}, errors.New("task title cannot be empty")
	}
	if len(draft.Title) > 200 {
		return models.Task{}, errors.New("task title too long (max 200 characters)")
	}
	if len(draft.Description) > 2000 {
		return models.Task{}, errors.New("task description too long (max 2000 characters)")
	}
	if !draft.Owner.Valid() {
		return models.Task{}, errors.Errorf("invalid owner %q", draft.Owner)
	}
	if draft.Status == "" {
		draft.Status = models.StatusTodo
	}
	if !draft.Status.Valid() {
		return models.Task{}, errors.Errorf("invalid status %q", draft.Status)
	}
	if draft.Priority == "" {
		draft.Priority = models.PriorityNormal
	}
	if !draft.Priority.Valid() {
		return models.Task{}, errors.Errorf("invalid priority %q", draft.Priority)
	}

	txStore, err := s.store.Begin()
	if err != nil {
		return models.Task{}, err
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

	task, err = txStore.SaveTask(draft)
	if err != nil {
		return models.Task{}, err
	}
	s.logger.Infof("Created task '%s' with ID %s for owner '%s'", task.Title, task.ID, task.Owner)
	return task, nil
}

// Get fetches a task by ID. Absence surfaces as storage.ErrNotFound.
func (s *TaskService) Get(id string) (models.Task, error) {
	return s.store.GetTask(id)
}

// List parses the caller's query parameters into a bounded plan and runs it.
func (s *TaskService) List(params ListParams) ([]models.Task, int, error) {
	plan := query.Parse(params.Page, params.Limit, params.Filter, params.Sort)
	return s.runPlan(plan)
}

// FindByOwner lists tasks for one owner. The forced owner pair is appended
// after the caller's filter so it parses last and wins over a conflicting
// caller value.
func (s *TaskService) FindByOwner(owner string, params ListParams) ([]models.Task, int, error) {
	params.Filter = appendFilter(params.Filter, "owner", owner)
	return s.List(params)
}

// FindByStatus lists tasks in one status, forced the same way as FindByOwner.
func (s *TaskService) FindByStatus(status string, params ListParams) ([]models.Task, int, error) {
	params.Filter = appendFilter(params.Filter, "status", status)
	return s.List(params)
}

func appendFilter(filter, key, value string) string {
	pair := key + ":" + value
	if filter == "" {
		return pair
	}
	return filter + "," + pair
}

// FindBlocked returns every blocked task, most recently touched first,
// with no pagination.
func (s *TaskService) FindBlocked() ([]models.Task, error) {
	tasks, _, err := s.runPlan(query.Plan{
		Predicate: query.Predicate{Status: string(models.StatusBlocked)},
		Order:     query.Order{Field: query.SortUpdatedAt, Desc: true},
	})
	return tasks, err
}

// runPlan executes count and page fetch inside one transaction so both see
// the same snapshot.
func (s *TaskService) runPlan(plan query.Plan) (tasks []models.Task, total int, err error) {
	txStore, err := s.store.Begin()
	if err != nil {
		return nil, 0, err
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

	tasks, total, err = txStore.QueryTasks(plan)
	return tasks, total, err
}

// Update merges already-validated column values into a task. It applies no
// status side effects; transitions go through UpdateStatus.
func (s *TaskService) Update(id string, fields map[string]interface{}) (task models.Task, err error) {
	if len(fields) == 0 {
		return s.store.GetTask(id)
	}
	txStore, err := s.store.Begin()
	if err != nil {
		return models.Task{}, err
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

	task, err = txStore.UpdateTask(id, fields)
	return task, err
}

// UpdateStatus transitions a task to newStatus and applies the side effects
// for the destination. Every status is reachable from every other status;
// only the destination decides the extra fields:
//   - doing sets startedAt the first time only
//   - done stamps completedAt on every entry
//   - blocked records the supplied reason
//   - any non-blocked destination clears the reason
func (s *TaskService) UpdateStatus(id string, newStatus models.TaskStatus, blockerReason string) (task models.Task, err error) {
	if !newStatus.Valid() {
		return models.Task{}, errors.Errorf("invalid status %q", newStatus)
	}

	txStore, err := s.store.Begin()
	if err != nil {
		return models.Task{}, err
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

	// Read-then-write: "set startedAt if absent" needs the current row.
	// Two concurrent transitions on one id race last-writer-wins.
	current, err := txStore.GetTask(id)
	if err != nil {
		return models.Task{}, err
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status": newStatus,
	}
	switch newStatus {
	case models.StatusDoing:
		if current.StartedAt == nil {
			updates["started_at"] = now
		}
	case models.StatusDone:
		updates["completed_at"] = now
	case models.StatusBlocked:
		if blockerReason != "" {
			updates["blocker_reason"] = blockerReason
		}
	case models.StatusTodo, models.StatusReview:
		// No destination-specific fields.
	}
	if newStatus != models.StatusBlocked {
		updates["blocker_reason"] = ""
	}

	task, err = txStore.UpdateTask(id, updates)
	if err != nil {
		return models.Task{}, err
	}
	s.logger.Infof("Updated task %s to status '%s'", id, newStatus)
	return task, nil
}

// Assign sets or clears the specific agent working a task.
func (s *TaskService) Assign(id, assigneeID string) (models.Task, error) {
	return s.Update(id, map[string]interface{}{"assignee_id": assigneeID})
}

// Delete removes a task and reports whether a row was removed.
func (s *TaskService) Delete(id string) (bool, error) {
	deleted, err := s.store.DeleteTask(id)
	if err != nil {
		return false, err
	}
	if deleted {
		s.logger.Infof("Deleted task %s", id)
	}
	return deleted, nil
}

// ValidStatuses returns the closed status enumeration for clients.
func (s *TaskService) ValidStatuses() []models.TaskStatus {
	return models.TaskStatuses()
}

// ValidRoles returns the closed role enumeration for clients.
func (s *TaskService) ValidRoles() []models.Role {
	return models.Roles()
}
