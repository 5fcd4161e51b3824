// Package redis はユーザーとタスクを JSON レコードとして Redis に保存する storage.Store 実装です。
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yourusername/task-manager/internal/models"
	"github.com/yourusername/task-manager/internal/storage"
)

const (
	userKeyPrefix      = "user:"
	userEmailKeyPrefix = "user:email:"
	taskKeyPrefix      = "task:"
	ownerTasksPrefix   = "tasks:owner:"

	maxTxRetries = 10
)

// Store はレコードを Redis に保存します。
type Store struct {
	rdb *redis.Client
	now func() time.Time
}

var _ storage.Store = (*Store)(nil)

// userRecord は PasswordHash を含めて保存するための内部表現です。
type userRecord struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Open は URL から接続し、疎通確認を行います。
func Open(ctx context.Context, url string) (*Store, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return New(rdb), nil
}

// New は Store を作成します。
func New(rdb *redis.Client) *Store {
	return &Store{
		rdb: rdb,
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.rdb.Close()
}

// CreateUser はメールアドレスのインデックスを SETNX で確保してからユーザーを保存します。
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = s.now()
	}
	ok, err := s.rdb.SetNX(ctx, userEmailKey(user.Email), user.ID, 0).Result()
	if err != nil {
		return err
	}
	if !ok {
		return storage.ErrDuplicate
	}

	payload, err := json.Marshal(userRecord{
		ID:           user.ID,
		Name:         user.Name,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		CreatedAt:    user.CreatedAt,
	})
	if err != nil {
		_ = s.rdb.Del(ctx, userEmailKey(user.Email)).Err()
		return err
	}
	if err := s.rdb.Set(ctx, userKey(user.ID), payload, 0).Err(); err != nil {
		_ = s.rdb.Del(ctx, userEmailKey(user.Email)).Err()
		return err
	}
	return nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	id, err := s.rdb.Get(ctx, userEmailKey(email)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	data, err := s.rdb.Get(ctx, userKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	var record userRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, err
	}
	return &models.User{
		ID:           record.ID,
		Name:         record.Name,
		Email:        record.Email,
		PasswordHash: record.PasswordHash,
		CreatedAt:    record.CreatedAt,
	}, nil
}

func (s *Store) ListTasks(ctx context.Context, ownerID string) ([]models.Task, error) {
	ids, err := s.rdb.SMembers(ctx, ownerTasksKey(ownerID)).Result()
	if err != nil {
		return nil, err
	}
	tasks := make([]models.Task, 0, len(ids))
	if len(ids) == 0 {
		return tasks, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = taskKey(id)
	}
	values, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	for _, v := range values {
		// 削除と競合した場合は nil が返る
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var task models.Task
		if err := json.Unmarshal([]byte(raw), &task); err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
	return tasks, nil
}

func (s *Store) GetTask(ctx context.Context, id string) (*models.Task, error) {
	return s.getTask(ctx, s.rdb, id)
}

func (s *Store) CreateTask(ctx context.Context, task *models.Task) error {
	now := s.now()
	task.CreatedAt = now
	task.UpdatedAt = now

	payload, err := json.Marshal(task)
	if err != nil {
		return err
	}
	ok, err := s.rdb.SetNX(ctx, taskKey(task.ID), payload, 0).Result()
	if err != nil {
		return err
	}
	if !ok {
		return storage.ErrDuplicate
	}
	return s.rdb.SAdd(ctx, ownerTasksKey(task.AssignedTo), task.ID).Err()
}

// UpdateTask は WATCH による楽観ロックで読み取り・更新を行います。
func (s *Store) UpdateTask(ctx context.Context, id string, patch models.TaskPatch) (*models.Task, error) {
	key := taskKey(id)
	var updated *models.Task
	err := s.withRetry(ctx, key, func(tx *redis.Tx) error {
		task, err := s.getTask(ctx, tx, id)
		if err != nil {
			return err
		}
		patch.Apply(task)
		task.UpdatedAt = s.now()
		payload, err := json.Marshal(task)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			return nil
		})
		if err == nil {
			updated = task
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	key := taskKey(id)
	return s.withRetry(ctx, key, func(tx *redis.Tx) error {
		task, err := s.getTask(ctx, tx, id)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.SRem(ctx, ownerTasksKey(task.AssignedTo), id)
			return nil
		})
		return err
	})
}

func (s *Store) withRetry(ctx context.Context, key string, fn func(tx *redis.Tx) error) error {
	for i := 0; i < maxTxRetries; i++ {
		err := s.rdb.Watch(ctx, fn, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("update %s: too much contention", key)
}

// getter は *redis.Client と *redis.Tx の共通部分です。
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *Store) getTask(ctx context.Context, c getter, id string) (*models.Task, error) {
	data, err := c.Get(ctx, taskKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	var task models.Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func userKey(id string) string          { return userKeyPrefix + id }
func userEmailKey(email string) string  { return userEmailKeyPrefix + email }
func taskKey(id string) string          { return taskKeyPrefix + id }
func ownerTasksKey(owner string) string { return ownerTasksPrefix + owner }
