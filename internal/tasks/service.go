package tasks

import (
	"context"

	"github.com/saltyorg/taskd/internal/database"
)

// Repository is the store access the service needs
type Repository interface {
	Get(ctx context.Context, id int64) (*database.Task, error)
	Create(ctx context.Context, create database.TaskCreate) (*database.Task, error)
	List(ctx context.Context, page, perPage int) ([]*database.Task, error)
	Update(ctx context.Context, id int64, update database.TaskUpdate) (*database.Task, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

// Service orchestrates task operations over a repository
type Service struct {
	repo       Repository
	serializer Serializer
}

// NewService creates a service backed by repo
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// GetTask returns the task with id, or nil when it does not exist
func (s *Service) GetTask(ctx context.Context, id int64) (*TaskDTO, error) {
	task, err := s.repo.Get(ctx, id)
	if err != nil || task == nil {
		return nil, err
	}
	dto := s.serializer.Serialize(task)
	return &dto, nil
}

// CreateTask stores a new task and returns it with store-generated fields
func (s *Service) CreateTask(ctx context.Context, in TaskCreateDTO) (*TaskDTO, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	task, err := s.repo.Create(ctx, database.TaskCreate{Name: *in.Name})
	if err != nil {
		return nil, err
	}
	dto := s.serializer.Serialize(task)
	return &dto, nil
}

// ListTasks returns one page of tasks
func (s *Service) ListTasks(ctx context.Context, params ListParameters) ([]TaskDTO, error) {
	tasks, err := s.repo.List(ctx, params.Page, params.PerPage)
	if err != nil {
		return nil, err
	}
	return s.serializer.SerializeAll(tasks), nil
}

// UpdateTask renames a task. It returns nil when the task does not exist.
func (s *Service) UpdateTask(ctx context.Context, id int64, in TaskUpdateDTO) (*TaskDTO, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	task, err := s.repo.Update(ctx, id, database.TaskUpdate{Name: *in.Name})
	if err != nil || task == nil {
		return nil, err
	}
	dto := s.serializer.Serialize(task)
	return &dto, nil
}

// DeleteTask removes a task and reports whether it existed
func (s *Service) DeleteTask(ctx context.Context, id int64) (bool, error) {
	return s.repo.Delete(ctx, id)
}
