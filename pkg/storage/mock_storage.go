package storage

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/JithendraNara/mission-control/pkg/models"
	"github.com/JithendraNara/mission-control/pkg/query"
)

// mockStore implements Store with in-memory storage. Begin returns the
// same instance; Commit and Rollback are no-ops, which is enough for
// service and HTTP tests that only care about row semantics.
type mockStore struct {
	mu     sync.Mutex
	tasks  []models.Task
	agents []models.Agent
}

// NewMockStore returns an empty in-memory Store.
func NewMockStore() Store {
	return &mockStore{}
}

func (m *mockStore) Begin() (Store, error) { return m, nil }
func (m *mockStore) Commit() error         { return nil }
func (m *mockStore) Rollback() error       { return nil }
func (m *mockStore) Close() error          { return nil }

func (m *mockStore) SaveTask(t models.Task) (models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	t.ID = uuid.NewString()
	if t.ProjectID == "" {
		t.ProjectID = models.UnassignedProjectID
	}
	if t.Metadata == nil {
		t.Metadata = models.Metadata{}
	}
	t.CreatedAt = now
	t.UpdatedAt = now
	m.tasks = append(m.tasks, t)
	return t, nil
}

func (m *mockStore) GetTask(id string) (models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tasks {
		if t.ID == id {
			return t, nil
		}
	}
	return models.Task{}, ErrNotFound
}

func (m *mockStore) QueryTasks(plan query.Plan) ([]models.Task, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	matched := []models.Task{}
	for _, t := range m.tasks {
		if plan.Predicate.Status != "" && string(t.Status) != plan.Predicate.Status {
			continue
		}
		if plan.Predicate.Owner != "" && string(t.Owner) != plan.Predicate.Owner {
			continue
		}
		if plan.Predicate.Priority != "" && string(t.Priority) != plan.Predicate.Priority {
			continue
		}
		matched = append(matched, t)
	}
	total := len(matched)

	sort.SliceStable(matched, func(i, j int) bool {
		var less bool
		switch plan.Order.Field {
		case query.SortUpdatedAt:
			less = matched[i].UpdatedAt.Before(matched[j].UpdatedAt)
		case query.SortPriority:
			// Matches the varchar column ordering in Postgres.
			less = strings.Compare(string(matched[i].Priority), string(matched[j].Priority)) < 0
		default:
			less = matched[i].CreatedAt.Before(matched[j].CreatedAt)
		}
		if plan.Order.Desc {
			return !less
		}
		return less
	})

	if plan.Offset >= len(matched) {
		return []models.Task{}, total, nil
	}
	matched = matched[plan.Offset:]
	if plan.Limit > 0 && len(matched) > plan.Limit {
		matched = matched[:plan.Limit]
	}
	out := make([]models.Task, len(matched))
	copy(out, matched)
	return out, total, nil
}

func (m *mockStore) UpdateTask(id string, fields map[string]interface{}) (models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, t := range m.tasks {
		if t.ID != id {
			continue
		}
		for k, v := range fields {
			switch k {
			case "project_id":
				t.ProjectID = v.(string)
			case "title":
				t.Title = v.(string)
			case "description":
				t.Description = v.(string)
			case "owner":
				t.Owner = v.(models.Role)
			case "assignee_id":
				t.AssigneeID = v.(string)
			case "status":
				t.Status = v.(models.TaskStatus)
			case "priority":
				t.Priority = v.(models.TaskPriority)
			case "due_date":
				t.DueDate = toTimePtr(v)
			case "started_at":
				t.StartedAt = toTimePtr(v)
			case "completed_at":
				t.CompletedAt = toTimePtr(v)
			case "artifact_path":
				t.ArtifactPath = v.(string)
			case "blocker_reason":
				t.BlockerReason = v.(string)
			case "metadata":
				t.Metadata = v.(models.Metadata)
			}
		}
		t.UpdatedAt = time.Now()
		m.tasks[i] = t
		return t, nil
	}
	return models.Task{}, ErrNotFound
}

func toTimePtr(v interface{}) *time.Time {
	switch tv := v.(type) {
	case nil:
		return nil
	case time.Time:
		return &tv
	case *time.Time:
		return tv
	}
	return nil
}

func (m *mockStore) DeleteTask(id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, t := range m.tasks {
		if t.ID == id {
			m.tasks = append(m.tasks[:i], m.tasks[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *mockStore) SaveAgent(a models.Agent) (models.Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.agents {
		if existing.Role == a.Role {
			return models.Agent{}, errors.New("agent role already registered")
		}
	}
	a.ID = uuid.NewString()
	a.CreatedAt = time.Now()
	m.agents = append(m.agents, a)
	return a, nil
}

func (m *mockStore) GetAgentByRole(role models.Role) (models.Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.agents {
		if a.Role == role {
			return a, nil
		}
	}
	return models.Agent{}, ErrNotFound
}

func (m *mockStore) ListAgents() ([]models.Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Agent, len(m.agents))
	copy(out, m.agents)
	return out, nil
}

func (m *mockStore) TouchAgent(role models.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, a := range m.agents {
		if a.Role == role {
			now := time.Now()
			m.agents[i].LastSeenAt = &now
			return nil
		}
	}
	return ErrNotFound
}
