package storage

import (
	"sort"
	"sync"

	"github.com/ignatij/letterflow/pkg/models"
	"github.com/pkg/errors"
)

var ErrTaskNotFound = errors.New("task not found")

// MemoryStore implements Store with a mutex-guarded in-memory map. Task
// state does not survive a process restart.
type MemoryStore struct {
	mu    sync.RWMutex
	tasks map[string]models.Task
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tasks: make(map[string]models.Task),
	}
}

func (s *MemoryStore) SaveTask(t models.Task) error {
	if t.ID == "" {
		return errors.New("task ID cannot be empty")
	}
	s.mu.Lock()
	s.tasks[t.ID] = t
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) GetTask(id string) (models.Task, error) {
	s.mu.RLock()
	t, ok := s.tasks[id]
	s.mu.RUnlock()
	if !ok {
		return models.Task{}, errors.Wrap(ErrTaskNotFound, id)
	}
	return t, nil
}

// ListTasks returns all tasks ordered by creation time.
func (s *MemoryStore) ListTasks() ([]models.Task, error) {
	s.mu.RLock()
	tasks := make([]models.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		tasks = append(tasks, t)
	}
	s.mu.RUnlock()
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].ID < tasks[j].ID
		}
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
	return tasks, nil
}

func (s *MemoryStore) DeleteTask(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[id]; !ok {
		return errors.Wrap(ErrTaskNotFound, id)
	}
	delete(s.tasks, id)
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
