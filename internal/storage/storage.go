// Package storage はユーザーとタスクのレコードストアを抽象化します。
//
// 実装:
//   - memory: プロセス内ストア（開発・テスト用）
//   - postgres: database/sql + pgx、goose マイグレーション
//   - redis: JSON レコードを Redis に保存
package storage

import (
	"context"
	"errors"

	"github.com/yourusername/task-manager/internal/models"
)

var (
	// ErrNotFound はレコードが存在しない場合に返されます。
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate は一意制約に違反した場合に返されます。
	ErrDuplicate = errors.New("record already exists")
)

// UserStore はユーザーレコードを扱います。
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// TaskStore はタスクレコードを扱います。
type TaskStore interface {
	ListTasks(ctx context.Context, ownerID string) ([]models.Task, error)
	GetTask(ctx context.Context, id string) (*models.Task, error)
	CreateTask(ctx context.Context, task *models.Task) error
	UpdateTask(ctx context.Context, id string, patch models.TaskPatch) (*models.Task, error)
	DeleteTask(ctx context.Context, id string) error
}

// Store はアプリケーションが使うストア全体です。
// 実装は並行アクセスに対して安全でなければなりません。
type Store interface {
	UserStore
	TaskStore
	Ping(ctx context.Context) error
	Close() error
}
