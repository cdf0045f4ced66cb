// file: internal/operations/queue.go
// version: 2.1.0
// guid: 7d6e5f4a-3c2b-1a09-8f7e-6d5c4b3a2190

// Package operations runs long bulk imports on a small pool of workers and
// reports their progress through the realtime hub.
package operations

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog/log"

	"github.com/jdfalk/manga-organizer/internal/metrics"
	"github.com/jdfalk/manga-organizer/internal/realtime"
)

// Priority levels for operations
const (
	PriorityLow    = 0
	PriorityNormal = 1
	PriorityHigh   = 2
)

// pendingCapacity is the per-priority queue depth.
const pendingCapacity = 100

// ErrQueueFull is returned when no more operations can be queued.
var ErrQueueFull = errors.New("operation queue is full")

// ErrOperationNotFound is returned for unknown or already finished operations.
var ErrOperationNotFound = errors.New("operation not found")

// OperationFunc represents an operation that can be executed
type OperationFunc func(ctx context.Context, progress ProgressReporter) error

// ProgressReporter allows operations to report their progress
type ProgressReporter interface {
	UpdateProgress(current, total int, message string) error
	Log(level, message string, details *string) error
	IsCanceled() bool
}

// QueuedOperation represents an operation in the queue
type QueuedOperation struct {
	ID       string
	Type     string
	Priority int
	Func     OperationFunc
	Context  context.Context
	Cancel   context.CancelFunc
}

// OperationQueue manages async operations with priority handling
type OperationQueue struct {
	mu         sync.RWMutex
	operations map[string]*QueuedOperation
	pending    [PriorityHigh + 1]chan *QueuedOperation
	workers    int
	hub        *realtime.EventHub
	states     *stateStore
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	listeners  map[string][]ProgressListener
}

// ProgressListener receives progress updates
type ProgressListener func(operationID string, progress OperationProgress)

// OperationProgress represents the current state of an operation
type OperationProgress struct {
	Current int
	Total   int
	Message string
}

// NewOperationID returns a fresh, time-ordered operation id.
func NewOperationID() string {
	return ulid.Make().String()
}

// NewOperationQueue creates a new operation queue. hub may be nil.
func NewOperationQueue(hub *realtime.EventHub, workers int) *OperationQueue {
	if workers <= 0 {
		workers = 2 // Default to 2 workers
	}

	ctx, cancel := context.WithCancel(context.Background())

	q := &OperationQueue{
		operations: make(map[string]*QueuedOperation),
		workers:    workers,
		hub:        hub,
		states:     newStateStore(),
		ctx:        ctx,
		cancel:     cancel,
		listeners:  make(map[string][]ProgressListener),
	}
	for i := range q.pending {
		q.pending[i] = make(chan *QueuedOperation, pendingCapacity)
	}
	if hub != nil {
		hub.SetOperationLookup(q.statusEvent)
	}

	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}

	return q
}

func clampPriority(p int) int {
	return min(max(p, PriorityLow), PriorityHigh)
}

// Enqueue adds a new operation to the queue. An empty id gets a generated
// one; the id actually used is returned.
func (q *OperationQueue) Enqueue(id, opType string, priority int, fn OperationFunc) (string, error) {
	if fn == nil {
		return "", fmt.Errorf("operation func is nil")
	}
	if id == "" {
		id = NewOperationID()
	}
	priority = clampPriority(priority)

	q.mu.Lock()
	defer q.mu.Unlock()

	if _, exists := q.operations[id]; exists {
		return "", fmt.Errorf("operation %s already exists", id)
	}
	if q.ctx.Err() != nil {
		return "", fmt.Errorf("operation queue is shut down")
	}

	ctx, cancel := context.WithCancel(q.ctx)
	op := &QueuedOperation{
		ID:       id,
		Type:     opType,
		Priority: priority,
		Func:     fn,
		Context:  ctx,
		Cancel:   cancel,
	}

	q.operations[id] = op
	q.states.add(&Operation{
		ID:        id,
		Type:      opType,
		Priority:  priority,
		Status:    StatusQueued,
		Message:   "operation queued",
		CreatedAt: time.Now(),
	})

	select {
	case q.pending[priority] <- op:
	default:
		cancel()
		delete(q.operations, id)
		q.states.update(id, func(o *Operation) {
			o.Status = StatusFailed
			o.Error = ErrQueueFull.Error()
		})
		return "", ErrQueueFull
	}
	log.Info().Str("operation", id).Str("type", opType).Int("priority", priority).Msg("operation enqueued")
	return id, nil
}

// Cancel cancels an operation
func (q *OperationQueue) Cancel(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	op, exists := q.operations[id]
	if !exists {
		return fmt.Errorf("cancel %s: %w", id, ErrOperationNotFound)
	}

	op.Cancel()
	q.states.update(id, func(o *Operation) {
		o.Message = "operation canceled by user"
	})

	log.Info().Str("operation", id).Msg("operation canceled")
	return nil
}

// GetStatus returns the current status of an operation
func (q *OperationQueue) GetStatus(id string) (*Operation, error) {
	return q.states.get(id)
}

// List returns every known operation, newest first.
func (q *OperationQueue) List() []Operation {
	return q.states.list()
}

// AddListener adds a progress listener for an operation
func (q *OperationQueue) AddListener(operationID string, listener ProgressListener) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.listeners[operationID] = append(q.listeners[operationID], listener)
}

// RemoveListeners removes all listeners for an operation
func (q *OperationQueue) RemoveListeners(operationID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.listeners, operationID)
}

// notifyListeners sends progress updates to all listeners
func (q *OperationQueue) notifyListeners(operationID string, progress OperationProgress) {
	q.mu.RLock()
	listeners := q.listeners[operationID]
	q.mu.RUnlock()

	for _, listener := range listeners {
		go listener(operationID, progress)
	}
}

// next blocks until an operation is available, preferring higher
// priorities. It returns nil once the queue shuts down.
func (q *OperationQueue) next() *QueuedOperation {
	high, normal, low := q.pending[PriorityHigh], q.pending[PriorityNormal], q.pending[PriorityLow]
	select {
	case op := <-high:
		return op
	default:
	}
	select {
	case op := <-high:
		return op
	case op := <-normal:
		return op
	default:
	}
	select {
	case <-q.ctx.Done():
		return nil
	case op := <-high:
		return op
	case op := <-normal:
		return op
	case op := <-low:
		return op
	}
}

// worker processes operations from the queue
func (q *OperationQueue) worker(id int) {
	defer q.wg.Done()
	logger := log.With().Int("worker", id).Logger()
	logger.Debug().Msg("worker started")

	for {
		op := q.next()
		if op == nil {
			logger.Debug().Msg("worker stopped")
			return
		}
		q.run(op)
	}
}

func (q *OperationQueue) run(op *QueuedOperation) {
	logger := log.With().Str("operation", op.ID).Str("type", op.Type).Logger()
	defer q.finish(op)

	if op.Context.Err() != nil {
		metrics.IncOperationCanceled(op.Type)
		q.markCanceled(op, 0, 0)
		logger.Info().Msg("operation canceled before start")
		return
	}

	start := time.Now()
	metrics.IncOperationStarted(op.Type)
	q.states.update(op.ID, func(o *Operation) {
		o.Status = StatusRunning
		o.Message = "operation started"
		o.StartedAt = &start
	})
	q.sendStatus(op.ID, StatusRunning, nil)
	logger.Info().Msg("operation started")

	reporter := &operationProgressReporter{
		operationID: op.ID,
		ctx:         op.Context,
		queue:       q,
	}
	err := op.Func(op.Context, reporter)
	current, total := reporter.snapshot()

	switch {
	case reporter.IsCanceled() || errors.Is(err, context.Canceled):
		metrics.IncOperationCanceled(op.Type)
		q.markCanceled(op, current, total)
		logger.Info().Msg("operation was canceled")
	case err != nil:
		metrics.IncOperationFailed(op.Type)
		now := time.Now()
		q.states.update(op.ID, func(o *Operation) {
			o.Status = StatusFailed
			o.Error = err.Error()
			o.CompletedAt = &now
		})
		q.sendStatus(op.ID, StatusFailed, map[string]interface{}{"error": err.Error()})
		logger.Error().Err(err).Msg("operation failed")
	default:
		metrics.IncOperationCompleted(op.Type)
		now := time.Now()
		q.states.update(op.ID, func(o *Operation) {
			o.Status = StatusCompleted
			o.Current, o.Total = current, total
			o.Message = "operation completed"
			o.CompletedAt = &now
		})
		q.sendStatus(op.ID, StatusCompleted, map[string]interface{}{
			"current": current,
			"total":   total,
			"message": "operation completed",
		})
		logger.Info().Dur("elapsed", time.Since(start)).Msg("operation completed")
	}

	metrics.ObserveOperationDuration(op.Type, time.Since(start))
}

func (q *OperationQueue) markCanceled(op *QueuedOperation, current, total int) {
	now := time.Now()
	q.states.update(op.ID, func(o *Operation) {
		o.Status = StatusCanceled
		o.Current, o.Total = current, total
		o.CompletedAt = &now
	})
	q.sendStatus(op.ID, StatusCanceled, map[string]interface{}{"message": "operation canceled"})
}

func (q *OperationQueue) finish(op *QueuedOperation) {
	op.Cancel()
	q.mu.Lock()
	delete(q.operations, op.ID)
	delete(q.listeners, op.ID)
	q.mu.Unlock()
}

func (q *OperationQueue) sendStatus(id, status string, details map[string]interface{}) {
	if q.hub != nil {
		q.hub.SendOperationStatus(id, status, details)
	}
}

// statusEvent renders the stored state of id in the shape of an
// operation.status event.
func (q *OperationQueue) statusEvent(id string) (map[string]interface{}, bool) {
	op, err := q.states.get(id)
	if err != nil {
		return nil, false
	}
	details := map[string]interface{}{
		"type":    op.Type,
		"current": op.Current,
		"total":   op.Total,
	}
	if op.Message != "" {
		details["message"] = op.Message
	}
	if op.Error != "" {
		details["error"] = op.Error
	}
	if op.Summary != nil {
		details["summary"] = op.Summary
	}
	return map[string]interface{}{
		"operation_id": op.ID,
		"status":       op.Status,
		"details":      details,
		"replayed":     true,
	}, true
}

// SetSummary attaches per-file counts to an operation.
func (q *OperationQueue) SetSummary(id string, summary Summary) {
	q.states.update(id, func(o *Operation) {
		o.Summary = &summary
	})
}

// Shutdown gracefully shuts down the queue
func (q *OperationQueue) Shutdown(timeout time.Duration) error {
	log.Info().Msg("shutting down operation queue")

	q.mu.Lock()
	q.cancel()
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info().Msg("operation queue shut down gracefully")
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("shutdown timeout after %v", timeout)
	}
}

// operationProgressReporter implements ProgressReporter
type operationProgressReporter struct {
	operationID string
	ctx         context.Context
	queue       *OperationQueue

	mu      sync.Mutex
	current int
	total   int
}

func (r *operationProgressReporter) snapshot() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current, r.total
}

func (r *operationProgressReporter) UpdateProgress(current, total int, message string) error {
	r.mu.Lock()
	r.current = current
	r.total = total
	r.mu.Unlock()

	if r.queue.states != nil {
		r.queue.states.update(r.operationID, func(o *Operation) {
			o.Current, o.Total, o.Message = current, total, message
		})
	}

	r.queue.notifyListeners(r.operationID, OperationProgress{
		Current: current,
		Total:   total,
		Message: message,
	})

	if r.queue.hub != nil {
		r.queue.hub.SendOperationProgress(r.operationID, current, total, message)
	}
	return nil
}

func (r *operationProgressReporter) Log(level, message string, details *string) error {
	event := log.Info()
	switch level {
	case "debug":
		event = log.Debug()
	case "warn", "warning":
		event = log.Warn()
	case "error":
		event = log.Error()
	}
	if details != nil {
		event = event.Str("details", *details)
	}
	event.Str("operation", r.operationID).Msg(message)

	if r.queue.hub != nil {
		r.queue.hub.SendOperationLog(r.operationID, level, message, details)
	}
	return nil
}

// OperationID returns the id of the operation being reported on.
func (r *operationProgressReporter) OperationID() string {
	return r.operationID
}

// SetSummary attaches per-file counts to the operation.
func (r *operationProgressReporter) SetSummary(summary Summary) {
	if r.queue.states != nil {
		r.queue.SetSummary(r.operationID, summary)
	}
}

func (r *operationProgressReporter) IsCanceled() bool {
	return r.ctx != nil && r.ctx.Err() != nil
}

// Global queue instance
var GlobalQueue *OperationQueue

// InitializeQueue initializes the global operation queue
func InitializeQueue(hub *realtime.EventHub, workers int) {
	if GlobalQueue != nil {
		log.Warn().Msg("operation queue already initialized")
		return
	}
	GlobalQueue = NewOperationQueue(hub, workers)
	log.Info().Int("workers", workers).Msg("operation queue initialized")
}

// ActiveOperation represents lightweight info about an in-flight operation.
type ActiveOperation struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// ActiveOperations returns a snapshot of currently queued/running operations.
func (q *OperationQueue) ActiveOperations() []ActiveOperation {
	if q == nil {
		return []ActiveOperation{}
	}
	q.mu.RLock()
	defer q.mu.RUnlock()
	results := make([]ActiveOperation, 0, len(q.operations))
	for id, op := range q.operations {
		results = append(results, ActiveOperation{ID: id, Type: op.Type})
	}
	return results
}

// ShutdownQueue shuts down the global operation queue
func ShutdownQueue(timeout time.Duration) error {
	if GlobalQueue == nil {
		return nil
	}
	err := GlobalQueue.Shutdown(timeout)
	GlobalQueue = nil
	return err
}
