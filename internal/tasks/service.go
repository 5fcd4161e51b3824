// Package tasks はログインユーザーのタスク CRUD を提供します。
//
// 一覧は所有者で絞り込みますが、ID 指定の取得・更新・削除は既定では所有者を照合しません。
// EnforceOwnership を有効にすると、他人のタスクは存在しないものとして扱います。
package tasks

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/yourusername/task-manager/internal/apierr"
	"github.com/yourusername/task-manager/internal/auth"
	"github.com/yourusername/task-manager/internal/models"
	"github.com/yourusername/task-manager/internal/storage"
)

const (
	msgTaskNotFound    = "Task not found"
	msgTitleRequired   = "Title is required"
	msgInvalidStatus   = "Invalid status"
	msgInvalidPriority = "Invalid priority"
)

var (
	allowedStatuses = map[models.Status]struct{}{
		models.StatusPending:    {},
		models.StatusInProgress: {},
		models.StatusDone:       {},
	}
	allowedPriorities = map[models.Priority]struct{}{
		models.PriorityLow:    {},
		models.PriorityMedium: {},
		models.PriorityHigh:   {},
	}
)

// ParseStatus は大文字小文字を区別せずにステータスを解釈し、正規形を返します。
func ParseStatus(v string) (models.Status, error) {
	status := models.Status(strings.ToUpper(strings.TrimSpace(v)))
	if _, ok := allowedStatuses[status]; !ok {
		return "", apierr.New(apierr.KindValidation, msgInvalidStatus)
	}
	return status, nil
}

// ParsePriority は大文字小文字を区別せずに優先度を解釈し、正規形を返します。
func ParsePriority(v string) (models.Priority, error) {
	priority := models.Priority(strings.ToUpper(strings.TrimSpace(v)))
	if _, ok := allowedPriorities[priority]; !ok {
		return "", apierr.New(apierr.KindValidation, msgInvalidPriority)
	}
	return priority, nil
}

// CreateInput はタスク作成時の入力です。
type CreateInput struct {
	Title       string
	Description string
	Status      string
	Priority    string
}

// UpdateInput は部分更新の入力です。nil のフィールドは変更しません。
// Status / Priority は空文字も未指定として扱います。
type UpdateInput struct {
	Title       *string
	Description *string
	Status      *string
	Priority    *string
}

// Options は Service の設定です。
type Options struct {
	EnforceOwnership bool
}

// Service はタスクのユースケースを実装します。
type Service struct {
	store            storage.TaskStore
	enforceOwnership bool
	newID            func() string
}

// NewService は Service を作成します。
func NewService(store storage.TaskStore, opts Options) *Service {
	return &Service{
		store:            store,
		enforceOwnership: opts.EnforceOwnership,
		newID:            uuid.NewString,
	}
}

// List は ownerID に割り当てられたタスクを返します。
func (s *Service) List(ctx context.Context, ownerID string) ([]models.Task, error) {
	return s.store.ListTasks(ctx, ownerID)
}

// Get は ID でタスクを取得します。
func (s *Service) Get(ctx context.Context, id string) (*models.Task, error) {
	return s.find(ctx, id)
}

// Create は ownerID を担当者とするタスクを作成します。
func (s *Service) Create(ctx context.Context, ownerID string, in CreateInput) (*models.Task, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, apierr.New(apierr.KindValidation, msgTitleRequired)
	}
	status, err := ParseStatus(in.Status)
	if err != nil {
		return nil, err
	}
	priority, err := ParsePriority(in.Priority)
	if err != nil {
		return nil, err
	}

	task := &models.Task{
		ID:          s.newID(),
		Title:       in.Title,
		Description: in.Description,
		Status:      status,
		Priority:    priority,
		AssignedTo:  ownerID,
	}
	if err := s.store.CreateTask(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// Update はタスクを部分更新します。
// 存在確認を先に行うため、存在しないタスクへの不正な値は 404 になります。
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*models.Task, error) {
	if _, err := s.find(ctx, id); err != nil {
		return nil, err
	}

	patch := models.TaskPatch{Title: in.Title, Description: in.Description}
	if in.Status != nil && *in.Status != "" {
		status, err := ParseStatus(*in.Status)
		if err != nil {
			return nil, err
		}
		patch.Status = &status
	}
	if in.Priority != nil && *in.Priority != "" {
		priority, err := ParsePriority(*in.Priority)
		if err != nil {
			return nil, err
		}
		patch.Priority = &priority
	}

	task, err := s.store.UpdateTask(ctx, id, patch)
	if errors.Is(err, storage.ErrNotFound) {
		// 確認後に別リクエストで削除された
		return nil, apierr.Wrap(apierr.KindNotFound, msgTaskNotFound, err)
	}
	return task, err
}

// Delete はタスクを削除します。
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.find(ctx, id); err != nil {
		return err
	}
	err := s.store.DeleteTask(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return apierr.Wrap(apierr.KindNotFound, msgTaskNotFound, err)
	}
	return err
}

func (s *Service) find(ctx context.Context, id string) (*models.Task, error) {
	task, err := s.store.GetTask(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apierr.Wrap(apierr.KindNotFound, msgTaskNotFound, err)
	}
	if err != nil {
		return nil, err
	}

	if s.enforceOwnership {
		if owner, ok := auth.UserIDFromContext(ctx); !ok || owner != task.AssignedTo {
			return nil, apierr.New(apierr.KindNotFound, msgTaskNotFound)
		}
	}
	return task, nil
}
