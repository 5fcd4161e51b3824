package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/yourusername/task-manager/internal/models"
	"github.com/yourusername/task-manager/internal/storage"
)

const taskColumns = `id, title, description, status, priority, assigned_to, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*models.Task, error) {
	task := &models.Task{}
	var status, priority string
	if err := row.Scan(&task.ID, &task.Title, &task.Description, &status, &priority,
		&task.AssignedTo, &task.CreatedAt, &task.UpdatedAt); err != nil {
		return nil, err
	}
	task.Status = models.Status(status)
	task.Priority = models.Priority(priority)
	return task, nil
}

func (s *Store) ListTasks(ctx context.Context, ownerID string) ([]models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE assigned_to = $1 ORDER BY created_at`

	rows, err := s.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	tasks := make([]models.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return tasks, nil
}

func (s *Store) GetTask(ctx context.Context, id string) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`

	task, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return task, nil
}

func (s *Store) CreateTask(ctx context.Context, task *models.Task) error {
	query :=
		`INSERT INTO tasks (` + taskColumns + `)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	now := s.now()
	task.CreatedAt = now
	task.UpdatedAt = now
	_, err := s.db.ExecContext(ctx, query,
		task.ID, task.Title, task.Description, string(task.Status), string(task.Priority),
		task.AssignedTo, task.CreatedAt, task.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrDuplicate
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// UpdateTask は NULL のパラメータを「変更なし」として扱います。
func (s *Store) UpdateTask(ctx context.Context, id string, patch models.TaskPatch) (*models.Task, error) {
	query :=
		`UPDATE tasks SET
		     title = COALESCE($2, title),
		     description = COALESCE($3, description),
		     status = COALESCE($4, status),
		     priority = COALESCE($5, priority),
		     updated_at = $6
		 WHERE id = $1
		 RETURNING ` + taskColumns

	var status, priority *string
	if patch.Status != nil {
		v := string(*patch.Status)
		status = &v
	}
	if patch.Priority != nil {
		v := string(*patch.Priority)
		priority = &v
	}

	task, err := scanTask(s.db.QueryRowContext(ctx, query, id,
		nullString(patch.Title), nullString(patch.Description),
		nullString(status), nullString(priority), s.now()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return task, nil
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}
