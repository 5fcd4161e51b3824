// Package memory はプロセス内で完結する storage.Store 実装です。
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/yourusername/task-manager/internal/models"
	"github.com/yourusername/task-manager/internal/storage"
)

// Store はマップで保持するストアです。
type Store struct {
	mu         sync.RWMutex
	users      map[string]models.User
	emailIndex map[string]string
	tasks      map[string]models.Task
	now        func() time.Time
}

var _ storage.Store = (*Store)(nil)

// New は空のストアを作成します。
func New() *Store {
	return &Store{
		users:      make(map[string]models.User),
		emailIndex: make(map[string]string),
		tasks:      make(map[string]models.Task),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.emailIndex[user.Email]; ok {
		return storage.ErrDuplicate
	}
	if _, ok := s.users[user.ID]; ok {
		return storage.ErrDuplicate
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = s.now()
	}
	s.users[user.ID] = *user
	s.emailIndex[user.Email] = user.ID
	return nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.emailIndex[email]
	if !ok {
		return nil, storage.ErrNotFound
	}
	user := s.users[id]
	return &user, nil
}

func (s *Store) ListTasks(ctx context.Context, ownerID string) ([]models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tasks := make([]models.Task, 0)
	for _, t := range s.tasks {
		if t.AssignedTo == ownerID {
			tasks = append(tasks, t)
		}
	}
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
	return tasks, nil
}

func (s *Store) GetTask(ctx context.Context, id string) (*models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.tasks[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &task, nil
}

func (s *Store) CreateTask(ctx context.Context, task *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[task.ID]; ok {
		return storage.ErrDuplicate
	}
	now := s.now()
	task.CreatedAt = now
	task.UpdatedAt = now
	s.tasks[task.ID] = *task
	return nil
}

func (s *Store) UpdateTask(ctx context.Context, id string, patch models.TaskPatch) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	patch.Apply(&task)
	task.UpdatedAt = s.now()
	s.tasks[id] = task
	return &task, nil
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.tasks, id)
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return nil }

func (s *Store) Close() error { return nil }
