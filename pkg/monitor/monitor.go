package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
)

// TaskState describes the lifecycle state of a supervised worker.
type TaskState string

const (
	TaskStateRunning   TaskState = "running"
	TaskStateCompleted TaskState = "completed"
	TaskStateFailed    TaskState = "failed"
	TaskStateCanceled  TaskState = "canceled"
	TaskStatePanicked  TaskState = "panicked"
)

// TaskStatus is the latest snapshot for a supervised worker.
type TaskStatus struct {
	Name      string    `json:"name"`
	State     TaskState `json:"state"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Error     string    `json:"error"`
	Panic     string    `json:"panic"`
}

// TaskFunc is the function executed under Monitor.Go.
type TaskFunc func(ctx context.Context) error

// Monitor supervises the background workers a swap session spawns (pollers,
// verifiers), tracking state and surfacing crashes. Stopping the monitor
// cancels every worker, so none can leak across swap ids.
type Monitor struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.RWMutex
	tasks map[string]*taskRecord
	wg    sync.WaitGroup

	seq uint64
}

func New() *Monitor {
	ctx, cancel := context.WithCancel(context.Background())
	return &Monitor{
		ctx:    ctx,
		cancel: cancel,
		tasks:  make(map[string]*taskRecord),
	}
}

// TaskHandle exposes limited control over a supervised worker.
type TaskHandle struct {
	Name   string
	cancel context.CancelFunc
	done   chan struct{}
	mon    *Monitor
}

// Stop cancels the worker context.
func (h TaskHandle) Stop() {
	if h.cancel != nil {
		h.cancel()
	}
}

// Done is closed when the worker exits.
func (h TaskHandle) Done() <-chan struct{} {
	return h.done
}

// Status reads the latest status for the worker.
func (h TaskHandle) Status() TaskStatus {
	return h.mon.taskStatus(h.Name)
}

// Go runs fn in its own goroutine with panic recovery. Starting a task with
// a name already in use replaces the record and cancels nothing; callers own
// the old handle.
func (m *Monitor) Go(name string, fn TaskFunc) TaskHandle {
	if name == "" {
		name = fmt.Sprintf("task-%d", atomic.AddUint64(&m.seq, 1))
	}
	taskCtx, cancel := context.WithCancel(m.ctx)
	record := newTaskRecord(name)
	m.mu.Lock()
	m.tasks[name] = record
	m.mu.Unlock()

	done := make(chan struct{})

	m.wg.Add(1)
	go func() {
		defer close(done)
		defer m.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				record.markPanicked(fmt.Sprint(r))
				log.Errorf("monitor: task %s panicked: %v", name, r)
			}
			cancel()
		}()

		if err := fn(taskCtx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				record.markCanceled(err)
			} else {
				record.markFailed(err)
				log.WithError(err).Errorf("monitor: task %s failed", name)
			}
			return
		}
		if taskCtx.Err() != nil {
			record.markCanceled(taskCtx.Err())
		} else {
			record.markCompleted()
		}
	}()

	return TaskHandle{
		Name:   name,
		cancel: cancel,
		done:   done,
		mon:    m,
	}
}

// Snapshot returns a point-in-time view of every worker.
func (m *Monitor) Snapshot() []TaskStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	statuses := make([]TaskStatus, 0, len(m.tasks))
	for _, task := range m.tasks {
		statuses = append(statuses, task.status())
	}
	return statuses
}

// Stop cancels all workers and waits for them to exit.
func (m *Monitor) Stop() {
	m.cancel()
	m.wg.Wait()
}

func (m *Monitor) taskStatus(name string) TaskStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if task, ok := m.tasks[name]; ok {
		return task.status()
	}
	return TaskStatus{Name: name}
}

type taskRecord struct {
	name     string
	start    time.Time
	end      time.Time
	state    TaskState
	errMsg   string
	panicMsg string
	mu       sync.RWMutex
}

func newTaskRecord(name string) *taskRecord {
	return &taskRecord{
		name:  name,
		start: time.Now(),
		state: TaskStateRunning,
	}
}

func (t *taskRecord) markFailed(err error) {
	t.mu.Lock()
	t.state = TaskStateFailed
	t.end = time.Now()
	t.errMsg = err.Error()
	t.mu.Unlock()
}

func (t *taskRecord) markCompleted() {
	t.mu.Lock()
	t.state = TaskStateCompleted
	t.end = time.Now()
	t.mu.Unlock()
}

func (t *taskRecord) markCanceled(err error) {
	t.mu.Lock()
	t.state = TaskStateCanceled
	t.end = time.Now()
	if err != nil {
		t.errMsg = err.Error()
	}
	t.mu.Unlock()
}

func (t *taskRecord) markPanicked(msg string) {
	t.mu.Lock()
	t.state = TaskStatePanicked
	t.end = time.Now()
	t.panicMsg = msg
	t.mu.Unlock()
}

func (t *taskRecord) status() TaskStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return TaskStatus{
		Name:      t.name,
		State:     t.state,
		StartTime: t.start,
		EndTime:   t.end,
		Error:     t.errMsg,
		Panic:     t.panicMsg,
	}
}
