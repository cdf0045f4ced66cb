// file: internal/operations/state.go
// version: 2.0.0
// guid: a1b2c3d4-e5f6-7890-abcd-ef1234567890

package operations

import (
	"fmt"
	"sync"
	"time"
)

// Operation statuses.
const (
	StatusQueued    = "queued"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCanceled  = "canceled"
)

// Operation types.
const (
	TypeImportDirectory = "import_directory"
	TypeImportFiles     = "import_files"
	TypeInboxBatch      = "inbox_batch"
)

// historyLimit bounds how many finished operations are remembered.
const historyLimit = 100

// Operation is the observable state of a queued or finished operation.
type Operation struct {
	ID          string     `json:"id"`
	Type        string     `json:"type"`
	Priority    int        `json:"priority"`
	Status      string     `json:"status"`
	Current     int        `json:"current"`
	Total       int        `json:"total"`
	Message     string     `json:"message,omitempty"`
	Error       string     `json:"error,omitempty"`
	Summary     *Summary   `json:"summary,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Finished reports whether the operation reached a terminal status.
func (o Operation) Finished() bool {
	switch o.Status {
	case StatusCompleted, StatusFailed, StatusCanceled:
		return true
	}
	return false
}

// Summary counts per-file outcomes of an import operation.
type Summary struct {
	Imported   int `json:"imported"`
	Duplicates int `json:"duplicates"`
	Failed     int `json:"failed"`
}

// stateStore keeps operation records in memory. Finished operations are
// evicted oldest first once historyLimit is exceeded.
type stateStore struct {
	mu    sync.RWMutex
	ops   map[string]*Operation
	order []string
}

func newStateStore() *stateStore {
	return &stateStore{ops: make(map[string]*Operation)}
}

func (s *stateStore) add(op *Operation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops[op.ID] = op
	s.order = append(s.order, op.ID)
	s.evict()
}

// evict drops the oldest finished operations over the limit. Callers hold mu.
func (s *stateStore) evict() {
	excess := len(s.order) - historyLimit
	if excess <= 0 {
		return
	}
	kept := s.order[:0]
	for _, id := range s.order {
		if excess > 0 && s.ops[id].Finished() {
			delete(s.ops, id)
			excess--
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
}

func (s *stateStore) update(id string, fn func(op *Operation)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if op, ok := s.ops[id]; ok {
		fn(op)
	}
}

func (s *stateStore) get(id string) (*Operation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	op, ok := s.ops[id]
	if !ok {
		return nil, fmt.Errorf("operation %s: %w", id, ErrOperationNotFound)
	}
	cp := *op
	if op.Summary != nil {
		summary := *op.Summary
		cp.Summary = &summary
	}
	return &cp, nil
}

// list returns copies of every known operation, newest first.
func (s *stateStore) list() []Operation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Operation, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		out = append(out, *s.ops[s.order[i]])
	}
	return out
}
