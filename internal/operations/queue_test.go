// file: internal/operations/queue_test.go
// version: 2.1.0
// guid: 4d5e6f7a-8b9c-0d1e-2f3a-4b5c6d7e8f9a

package operations

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdfalk/manga-organizer/internal/realtime"
)

// waitFinished polls until the operation reaches a terminal status.
func waitFinished(t *testing.T, q *OperationQueue, id string) *Operation {
	t.Helper()
	var op *Operation
	require.Eventually(t, func() bool {
		var err error
		op, err = q.GetStatus(id)
		return err == nil && op.Finished()
	}, 2*time.Second, 5*time.Millisecond)
	return op
}

func TestNewOperationQueue(t *testing.T) {
	tests := []struct {
		name    string
		workers int
		want    int
	}{
		{"specified workers", 4, 4},
		{"zero defaults to 2", 0, 2},
		{"negative defaults to 2", -1, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NewOperationQueue(nil, tt.workers)
			defer q.Shutdown(time.Second)
			assert.Equal(t, tt.want, q.workers)
		})
	}
}

func TestOperationQueue_Enqueue(t *testing.T) {
	q := NewOperationQueue(nil, 1)
	defer q.Shutdown(time.Second)

	block := make(chan struct{})
	fn := func(ctx context.Context, _ ProgressReporter) error {
		<-block
		return nil
	}

	id, err := q.Enqueue("op-1", "test", PriorityNormal, fn)
	require.NoError(t, err)
	assert.Equal(t, "op-1", id)

	_, err = q.Enqueue("op-1", "test", PriorityNormal, fn)
	assert.Error(t, err, "duplicate ids are rejected")

	generated, err := q.Enqueue("", "test", PriorityLow, fn)
	require.NoError(t, err)
	assert.Len(t, generated, 26)

	_, err = q.Enqueue("nil-func", "test", PriorityLow, nil)
	assert.Error(t, err)

	close(block)
	assert.Equal(t, StatusCompleted, waitFinished(t, q, "op-1").Status)
	assert.Equal(t, StatusCompleted, waitFinished(t, q, generated).Status)
}

func TestOperationQueue_WorkerExecution(t *testing.T) {
	hub := realtime.NewEventHub()
	client := realtime.NewClient("c")
	hub.RegisterClient(client)
	q := NewOperationQueue(hub, 2)
	defer q.Shutdown(time.Second)

	t.Run("completes with progress", func(t *testing.T) {
		_, err := q.Enqueue("progress-op", "test", PriorityNormal, func(ctx context.Context, progress ProgressReporter) error {
			_ = progress.UpdateProgress(1, 10, "step 1")
			_ = progress.UpdateProgress(10, 10, "done")
			return nil
		})
		require.NoError(t, err)

		op := waitFinished(t, q, "progress-op")
		assert.Equal(t, StatusCompleted, op.Status)
		assert.Equal(t, 10, op.Current)
		assert.Equal(t, 10, op.Total)
		assert.NotNil(t, op.StartedAt)
		assert.NotNil(t, op.CompletedAt)
	})

	t.Run("records errors", func(t *testing.T) {
		_, err := q.Enqueue("error-op", "test", PriorityNormal, func(context.Context, ProgressReporter) error {
			return errors.New("test error")
		})
		require.NoError(t, err)

		op := waitFinished(t, q, "error-op")
		assert.Equal(t, StatusFailed, op.Status)
		assert.Equal(t, "test error", op.Error)
	})

	t.Run("cancels running operations", func(t *testing.T) {
		started := make(chan struct{})
		_, err := q.Enqueue("cancel-op", "test", PriorityNormal, func(ctx context.Context, _ ProgressReporter) error {
			close(started)
			<-ctx.Done()
			return ctx.Err()
		})
		require.NoError(t, err)

		<-started
		require.NoError(t, q.Cancel("cancel-op"))
		assert.Equal(t, StatusCanceled, waitFinished(t, q, "cancel-op").Status)
		require.Eventually(t, func() bool { return q.Cancel("cancel-op") != nil }, time.Second, 5*time.Millisecond,
			"finished operations cannot be canceled")
	})

	seen := map[string]bool{}
	require.Eventually(t, func() bool {
		for len(client.Channel) > 0 {
			ev := <-client.Channel
			if ev.Type == realtime.EventOperationStatus {
				seen[ev.Data["status"].(string)] = true
			}
		}
		return seen[StatusCompleted] && seen[StatusFailed] && seen[StatusCanceled]
	}, time.Second, 5*time.Millisecond)
}

func TestOperationQueue_StatusEventForLateSubscribers(t *testing.T) {
	hub := realtime.NewEventHub()
	q := NewOperationQueue(hub, 1)
	defer q.Shutdown(time.Second)

	_, err := q.Enqueue("import-op", TypeImportDirectory, PriorityNormal, func(_ context.Context, progress ProgressReporter) error {
		_ = progress.UpdateProgress(2, 2, "imported 2 files")
		q.SetSummary("import-op", Summary{Imported: 2})
		return nil
	})
	require.NoError(t, err)
	waitFinished(t, q, "import-op")

	state, ok := q.statusEvent("import-op")
	require.True(t, ok)
	assert.Equal(t, "import-op", state["operation_id"])
	assert.Equal(t, StatusCompleted, state["status"])
	assert.Equal(t, true, state["replayed"])
	details, ok := state["details"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 2, details["current"])
	assert.Equal(t, 2, details["total"])
	require.IsType(t, &Summary{}, details["summary"])
	assert.Equal(t, 2, details["summary"].(*Summary).Imported)

	_, ok = q.statusEvent("missing")
	assert.False(t, ok)
}

func TestOperationQueue_CancelBeforeStart(t *testing.T) {
	q := NewOperationQueue(nil, 1)
	defer q.Shutdown(time.Second)

	block := make(chan struct{})
	_, err := q.Enqueue("blocker", "test", PriorityNormal, func(context.Context, ProgressReporter) error {
		<-block
		return nil
	})
	require.NoError(t, err)

	ran := false
	_, err = q.Enqueue("queued", "test", PriorityNormal, func(context.Context, ProgressReporter) error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, q.Cancel("queued"))
	close(block)

	assert.Equal(t, StatusCanceled, waitFinished(t, q, "queued").Status)
	assert.False(t, ran)
}

func TestOperationQueue_PriorityOrder(t *testing.T) {
	q := NewOperationQueue(nil, 1)
	defer q.Shutdown(time.Second)

	block := make(chan struct{})
	_, err := q.Enqueue("blocker", "test", PriorityHigh, func(context.Context, ProgressReporter) error {
		<-block
		return nil
	})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		op, err := q.GetStatus("blocker")
		return err == nil && op.Status == StatusRunning
	}, time.Second, 5*time.Millisecond)

	var mu sync.Mutex
	var order []string
	record := func(name string) OperationFunc {
		return func(context.Context, ProgressReporter) error {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil
		}
	}
	for _, e := range []struct {
		id       string
		priority int
	}{{"low", PriorityLow}, {"normal", PriorityNormal}, {"high", PriorityHigh}, {"clamped", 9}} {
		_, err := q.Enqueue(e.id, "test", e.priority, record(e.id))
		require.NoError(t, err)
	}
	close(block)

	waitFinished(t, q, "low")
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"high", "clamped", "normal", "low"}, order)
}

func TestOperationQueue_ConcurrentOperations(t *testing.T) {
	q := NewOperationQueue(nil, 4)
	defer q.Shutdown(2 * time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		_, err := q.Enqueue("", "test", PriorityNormal, func(context.Context, ProgressReporter) error {
			defer wg.Done()
			time.Sleep(5 * time.Millisecond)
			return nil
		})
		require.NoError(t, err)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("not all operations completed")
	}
	assert.Len(t, q.List(), 10)
}

func TestActiveOperations(t *testing.T) {
	var nilQueue *OperationQueue
	assert.Empty(t, nilQueue.ActiveOperations())

	q := NewOperationQueue(nil, 1)
	defer q.Shutdown(time.Second)

	block := make(chan struct{})
	_, err := q.Enqueue("active", TypeImportDirectory, PriorityNormal, func(context.Context, ProgressReporter) error {
		<-block
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []ActiveOperation{{ID: "active", Type: TypeImportDirectory}}, q.ActiveOperations())

	close(block)
	waitFinished(t, q, "active")
	require.Eventually(t, func() bool { return len(q.ActiveOperations()) == 0 }, time.Second, 5*time.Millisecond)
}

func TestOperationQueue_Shutdown(t *testing.T) {
	q := NewOperationQueue(nil, 2)
	require.NoError(t, q.Shutdown(time.Second))

	_, err := q.Enqueue("late", "test", PriorityNormal, func(context.Context, ProgressReporter) error { return nil })
	assert.Error(t, err)
}

func TestGlobalQueueFunctions(t *testing.T) {
	require.NoError(t, ShutdownQueue(time.Second))

	InitializeQueue(nil, 1)
	require.NotNil(t, GlobalQueue)
	first := GlobalQueue
	InitializeQueue(nil, 3)
	assert.Same(t, first, GlobalQueue, "second initialization is ignored")

	require.NoError(t, ShutdownQueue(time.Second))
	assert.Nil(t, GlobalQueue)
}

func TestStateStoreEviction(t *testing.T) {
	s := newStateStore()
	for i := 0; i < historyLimit+5; i++ {
		status := StatusCompleted
		if i == 0 {
			status = StatusRunning
		}
		s.add(&Operation{ID: NewOperationID(), Status: status})
	}
	ops := s.list()
	assert.Len(t, ops, historyLimit)
	assert.Equal(t, StatusRunning, ops[len(ops)-1].Status, "running operations are never evicted")
}
