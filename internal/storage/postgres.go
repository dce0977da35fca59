package storage

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/JithendraNara/mission-control/pkg/models"
	"github.com/JithendraNara/mission-control/pkg/query"
	"github.com/JithendraNara/mission-control/pkg/storage"
)

type DBInterface interface {
	Get(dest interface{}, query string, args ...interface{}) error
	Select(dest interface{}, query string, args ...interface{}) error
	QueryRowx(query string, args ...interface{}) *sqlx.Row
	Exec(query string, args ...interface{}) (sql.Result, error)
}

type PostgresStore struct {
	db DBInterface
}

func NewPostgresStore(connStr string) (*PostgresStore, error) {
	db, err := sqlx.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Begin() (storage.Store, error) {
	if db, ok := s.db.(*sqlx.DB); ok {
		tx, err := db.Beginx()
		if err != nil {
			return nil, err
		}
		return &PostgresStore{db: tx}, nil
	}
	return nil, fmt.Errorf("cannot begin transaction on unknown type")
}

func (s *PostgresStore) Commit() error {
	if tx, ok := s.db.(*sqlx.Tx); ok {
		return tx.Commit()
	}
	return fmt.Errorf("cannot commit: not a transaction")
}

func (s *PostgresStore) Rollback() error {
	if tx, ok := s.db.(*sqlx.Tx); ok {
		return tx.Rollback()
	}
	return fmt.Errorf("cannot rollback: not a transaction")
}

func (s *PostgresStore) Close() error {
	if db, ok := s.db.(*sqlx.DB); ok {
		return db.Close()
	}
	return nil // No-op for *sqlx.Tx
}

const taskColumns = `id, project_id, title, description, owner, assignee_id, status, priority,
	due_date, started_at, completed_at, artifact_path, blocker_reason, metadata, created_at, updated_at`

// SaveTask persists a new task with a fresh identifier.
func (s *PostgresStore) SaveTask(t models.Task) (models.Task, error) {
	t.ID = uuid.NewString()
	if t.ProjectID == "" {
		t.ProjectID = models.UnassignedProjectID
	}
	if t.Metadata == nil {
		t.Metadata = models.Metadata{}
	}
	var saved models.Task
	err := s.db.QueryRowx(`INSERT INTO tasks (id, project_id, title, description, owner, assignee_id, status, priority, due_date, artifact_path, blocker_reason, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING `+taskColumns,
		t.ID, t.ProjectID, t.Title, t.Description, t.Owner, t.AssigneeID, t.Status, t.Priority,
		t.DueDate, t.ArtifactPath, t.BlockerReason, t.Metadata).StructScan(&saved)
	if err != nil {
		return models.Task{}, errors.Wrap(err, "save task")
	}
	return saved, nil
}

// GetTask retrieves a task by ID.
func (s *PostgresStore) GetTask(id string) (models.Task, error) {
	var t models.Task
	err := s.db.Get(&t, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return models.Task{}, storage.ErrNotFound
	}
	if err != nil {
		return models.Task{}, errors.Wrapf(err, "get task %s", id)
	}
	return t, nil
}

// orderClause maps a parsed ordering onto a fixed column expression. Only
// plan fields known to the parser ever arrive here, so the switch is the
// whole injection surface.
func orderClause(o query.Order) string {
	col := "created_at"
	switch o.Field {
	case query.SortUpdatedAt:
		col = "updated_at"
	case query.SortPriority:
		col = "priority"
	}
	if o.Desc {
		return col + " DESC"
	}
	return col + " ASC"
}

// QueryTasks returns the page of tasks matching the plan plus the total
// count ignoring pagination. Both statements run on the same handle, so
// callers wanting one snapshot run this inside a transaction.
func (s *PostgresStore) QueryTasks(plan query.Plan) ([]models.Task, int, error) {
	var conds []string
	var args []interface{}
	addCond := func(col, val string) {
		if val == "" {
			return
		}
		args = append(args, val)
		conds = append(conds, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	addCond("status", plan.Predicate.Status)
	addCond("owner", plan.Predicate.Owner)
	addCond("priority", plan.Predicate.Priority)

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := s.db.Get(&total, "SELECT COUNT(*) FROM tasks"+where, args...); err != nil {
		return nil, 0, errors.Wrap(err, "count tasks")
	}

	// Limit <= 0 means unpaginated, used by the blocked-task listing.
	q := fmt.Sprintf("SELECT %s FROM tasks%s ORDER BY %s", taskColumns, where, orderClause(plan.Order))
	pageArgs := args
	if plan.Limit > 0 {
		q += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
		pageArgs = append(pageArgs, plan.Limit, plan.Offset)
	}
	tasks := []models.Task{}
	if err := s.db.Select(&tasks, q, pageArgs...); err != nil {
		return nil, 0, errors.Wrap(err, "query tasks")
	}
	return tasks, total, nil
}

// taskUpdateColumns whitelists the columns a partial update may touch.
var taskUpdateColumns = map[string]bool{
	"project_id":     true,
	"title":          true,
	"description":    true,
	"owner":          true,
	"assignee_id":    true,
	"status":         true,
	"priority":       true,
	"due_date":       true,
	"started_at":     true,
	"completed_at":   true,
	"artifact_path":  true,
	"blocker_reason": true,
	"metadata":       true,
}

// UpdateTask merges the given columns into an existing row and bumps
// updated_at. Unknown keys are rejected rather than silently dropped.
func (s *PostgresStore) UpdateTask(id string, fields map[string]interface{}) (models.Task, error) {
	set := []string{"updated_at = CURRENT_TIMESTAMP"}
	var args []interface{}
	for col, val := range fields {
		if !taskUpdateColumns[col] {
			return models.Task{}, errors.Errorf("update task: unknown column %q", col)
		}
		args = append(args, val)
		set = append(set, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	args = append(args, id)

	var t models.Task
	q := fmt.Sprintf("UPDATE tasks SET %s WHERE id = $%d RETURNING %s",
		strings.Join(set, ", "), len(args), taskColumns)
	err := s.db.QueryRowx(q, args...).StructScan(&t)
	if err == sql.ErrNoRows {
		return models.Task{}, storage.ErrNotFound
	}
	if err != nil {
		return models.Task{}, errors.Wrapf(err, "update task %s", id)
	}
	return t, nil
}

// DeleteTask removes a row and reports whether one was removed.
func (s *PostgresStore) DeleteTask(id string) (bool, error) {
	res, err := s.db.Exec(`DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return false, errors.Wrapf(err, "delete task %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "delete task rows affected")
	}
	return n > 0, nil
}

const agentColumns = `id, role, name, capabilities, webhook_url, is_active, last_seen_at, created_at`

// SaveAgent registers a new agent.
func (s *PostgresStore) SaveAgent(a models.Agent) (models.Agent, error) {
	a.ID = uuid.NewString()
	var saved models.Agent
	err := s.db.QueryRowx(`INSERT INTO agents (id, role, name, capabilities, webhook_url, is_active)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING `+agentColumns,
		a.ID, a.Role, a.Name, a.Capabilities, a.WebhookURL, a.IsActive).StructScan(&saved)
	if err != nil {
		return models.Agent{}, errors.Wrap(err, "save agent")
	}
	return saved, nil
}

// GetAgentByRole retrieves the agent registered for a role.
func (s *PostgresStore) GetAgentByRole(role models.Role) (models.Agent, error) {
	var a models.Agent
	err := s.db.Get(&a, `SELECT `+agentColumns+` FROM agents WHERE role = $1`, role)
	if err == sql.ErrNoRows {
		return models.Agent{}, storage.ErrNotFound
	}
	if err != nil {
		return models.Agent{}, errors.Wrapf(err, "get agent %s", role)
	}
	return a, nil
}

// ListAgents returns all registered agents ordered by role.
func (s *PostgresStore) ListAgents() ([]models.Agent, error) {
	agents := []models.Agent{}
	if err := s.db.Select(&agents, `SELECT `+agentColumns+` FROM agents ORDER BY role`); err != nil {
		return nil, errors.Wrap(err, "list agents")
	}
	return agents, nil
}

// TouchAgent records a heartbeat for a role.
func (s *PostgresStore) TouchAgent(role models.Role) error {
	res, err := s.db.Exec(`UPDATE agents SET last_seen_at = CURRENT_TIMESTAMP WHERE role = $1`, role)
	if err != nil {
		return errors.Wrapf(err, "touch agent %s", role)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}
