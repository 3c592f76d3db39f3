package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func waitDone(t *testing.T, h TaskHandle) {
	t.Helper()
	select {
	case <-h.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("task %s did not finish", h.Name)
	}
}

func TestTaskCompletes(t *testing.T) {
	m := New()
	defer m.Stop()

	h := m.Go("ok", func(ctx context.Context) error {
		return nil
	})
	waitDone(t, h)

	require.Equal(t, TaskStateCompleted, h.Status().State)
	require.Empty(t, h.Status().Error)
}

func TestTaskFailureRecorded(t *testing.T) {
	m := New()
	defer m.Stop()

	h := m.Go("fail", func(ctx context.Context) error {
		return errors.New("boom")
	})
	waitDone(t, h)

	status := h.Status()
	require.Equal(t, TaskStateFailed, status.State)
	require.Equal(t, "boom", status.Error)
}

func TestTaskPanicRecovered(t *testing.T) {
	m := New()
	defer m.Stop()

	h := m.Go("panics", func(ctx context.Context) error {
		panic("oops")
	})
	waitDone(t, h)

	status := h.Status()
	require.Equal(t, TaskStatePanicked, status.State)
	require.Equal(t, "oops", status.Panic)
}

func TestStopCancelsRunningTask(t *testing.T) {
	m := New()

	h := m.Go("blocked", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	m.Stop()
	waitDone(t, h)

	require.Equal(t, TaskStateCanceled, h.Status().State)
}

func TestHandleStopCancelsOnlyItsTask(t *testing.T) {
	m := New()
	defer m.Stop()

	block := func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}
	first := m.Go("first", block)
	second := m.Go("second", block)

	first.Stop()
	waitDone(t, first)

	require.Equal(t, TaskStateCanceled, first.Status().State)
	require.Equal(t, TaskStateRunning, second.Status().State)
}

func TestSnapshot(t *testing.T) {
	m := New()
	defer m.Stop()

	h := m.Go("one", func(ctx context.Context) error { return nil })
	waitDone(t, h)

	snapshot := m.Snapshot()
	require.Len(t, snapshot, 1)
	require.Equal(t, "one", snapshot[0].Name)
}
