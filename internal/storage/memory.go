package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/copyleftdev/tourfit/internal/errors"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	runs        map[string]RunRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.runs = make(map[string]RunRecord)
	return nil
}

func (s *MemoryStore) SaveRun(_ context.Context, run RunRecord) error {
	if run.ID == "" {
		return errors.Wrap(errors.ErrInvalidInput, "run id is required").WithOperation("SaveRun").WithComponent("storage")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return errNotInitialized("SaveRun")
	}

	run.Tour = append([]int(nil), run.Tour...)
	s.runs[run.ID] = run
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, id string) (RunRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.initialized {
		return RunRecord{}, false, errNotInitialized("GetRun")
	}

	run, ok := s.runs[id]
	run.Tour = append([]int(nil), run.Tour...)
	return run, ok, nil
}

func (s *MemoryStore) ListRuns(_ context.Context, limit int) ([]RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.initialized {
		return nil, errNotInitialized("ListRuns")
	}

	runs := make([]RunRecord, 0, len(s.runs))
	for _, r := range s.runs {
		r.Tour = append([]int(nil), r.Tour...)
		runs = append(runs, r)
	}
	sort.Slice(runs, func(i, j int) bool {
		if runs[i].CreatedAt.Equal(runs[j].CreatedAt) {
			return runs[i].ID < runs[j].ID
		}
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

func errNotInitialized(op string) error {
	return errors.New("store is not initialized").WithOperation(op).WithComponent("storage")
}
