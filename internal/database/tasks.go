package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrInvalidPagination is returned by List for a page or page size below 1
var ErrInvalidPagination = errors.New("page and per_page must be positive")

// Task is a row of the task table
type Task struct {
	ID        int64
	Name      string
	CreatedAt time.Time
}

// TaskCreate holds the caller-supplied fields of a new task
type TaskCreate struct {
	Name string
}

// TaskUpdate holds the mutable fields of a task
type TaskUpdate struct {
	Name string
}

// TaskRepository translates task operations into queries on a borrowed session
type TaskRepository struct {
	q Querier
}

// NewTaskRepository creates a repository that runs its queries through q
func NewTaskRepository(q Querier) *TaskRepository {
	return &TaskRepository{q: q}
}

const taskColumns = "id, name, created_at"

func scanTask(row rowScanner) (*Task, error) {
	task := &Task{}
	var created timestamp
	if err := row.Scan(&task.ID, &task.Name, &created); err != nil {
		return nil, err
	}
	task.CreatedAt = created.Time
	return task, nil
}

// Get retrieves a task by ID. It returns nil, nil when no row matches.
func (r *TaskRepository) Get(ctx context.Context, id int64) (*Task, error) {
	task, err := scanTask(queryRow(ctx, r.q, `
		SELECT `+taskColumns+`
		FROM task WHERE id = ?
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task %d: %w", id, err)
	}
	return task, nil
}

// Create inserts a task and commits the session. The returned task carries
// the store-generated id and created_at.
func (r *TaskRepository) Create(ctx context.Context, create TaskCreate) (*Task, error) {
	task, err := scanTask(queryRow(ctx, r.q, `
		INSERT INTO task (name) VALUES (?)
		RETURNING `+taskColumns, create.Name))
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	if err := r.q.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	return task, nil
}

// List returns at most perPage tasks in ascending id order, skipping the
// first (page-1)*perPage rows.
func (r *TaskRepository) List(ctx context.Context, page, perPage int) ([]*Task, error) {
	if page < 1 || perPage < 1 {
		return nil, ErrInvalidPagination
	}
	offset := int64(page-1) * int64(perPage)

	rows, err := query(ctx, r.q, `
		SELECT `+taskColumns+`
		FROM task
		ORDER BY id ASC
		LIMIT ? OFFSET ?
	`, perPage, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]*Task, 0, perPage)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// Update changes a task's name. It returns nil, nil when no row matches.
// The change is committed by the owner of the session.
func (r *TaskRepository) Update(ctx context.Context, id int64, update TaskUpdate) (*Task, error) {
	task, err := scanTask(queryRow(ctx, r.q, `
		UPDATE task SET name = ?
		WHERE id = ?
		RETURNING `+taskColumns, update.Name, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update task %d: %w", id, err)
	}
	return task, nil
}

// Delete removes a task and reports whether a row existed
func (r *TaskRepository) Delete(ctx context.Context, id int64) (bool, error) {
	result, err := exec(ctx, r.q, `DELETE FROM task WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete task %d: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete task %d: %w", id, err)
	}
	return affected > 0, nil
}

// Count returns the number of stored tasks
func (r *TaskRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := queryRow(ctx, r.q, `SELECT COUNT(*) FROM task`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count tasks: %w", err)
	}
	return count, nil
}
