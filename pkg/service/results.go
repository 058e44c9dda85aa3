package service

import (
	"sync"

	"github.com/ignatij/letterflow/pkg/models"
)

// ResultStore is the shared mapping from a run identifier to its
// in-flight or completed outcome. Background workers write, the poll
// loop reads and clears. A single mutex guards the whole map; call
// volume is driven by human-triggered task runs, so contention is never
// a bottleneck.
type ResultStore struct {
	mu      sync.Mutex
	results map[string]models.RunResult
}

func NewResultStore() *ResultStore {
	return &ResultStore{
		results: make(map[string]models.RunResult),
	}
}

// Record stores the result for a run, overwriting any previous entry.
func (s *ResultStore) Record(runID string, r models.RunResult) {
	s.mu.Lock()
	s.results[runID] = r.Clone()
	s.mu.Unlock()
}

// Poll returns a copy of the result for a run without removing it.
func (s *ResultStore) Poll(runID string) (models.RunResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.results[runID]
	if !ok {
		return models.RunResult{}, false
	}
	return r.Clone(), true
}

// Clear removes the entry for a run, if present.
func (s *ResultStore) Clear(runID string) {
	s.mu.Lock()
	delete(s.results, runID)
	s.mu.Unlock()
}
