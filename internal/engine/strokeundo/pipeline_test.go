package strokeundo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/strokeundo/internal/engine/history"
	"github.com/dshills/strokeundo/internal/engine/stroke"
)

func newTestRunner(t *testing.T) *stroke.Runner {
	t.Helper()
	r, err := stroke.NewRunner()
	require.NoError(t, err)
	require.NoError(t, r.Start())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = r.Stop(ctx)
	})
	return r
}

func flushRunner(t *testing.T, r *stroke.Runner) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, r.Flush(ctx))
}

func TestPipelineRecordUndoRedo(t *testing.T) {
	r := newTestRunner(t)
	log := &journal{}
	store := history.NewSurrogateStore()
	adapter := NewPostExecutionUndoAdapter(store, r)

	id, err := r.StartStroke(NewUndoCommandStrategy("Brush", false, adapter))
	require.NoError(t, err)
	for _, name := range []string{"A", "B", "C"} {
		require.NoError(t, r.AddJob(id, NewCommandJob(newPaint(name, log), false)))
	}
	require.NoError(t, r.EndStroke(id))
	flushRunner(t, r)

	assert.Equal(t, []string{"redo A", "redo B", "redo C"}, log.list())
	require.Equal(t, 1, store.Stack().Count())
	assert.Equal(t, "Brush", store.PresentCommand().Text())

	store.UndoLastCommand()
	flushRunner(t, r)
	assert.Equal(t, []string{"redo A", "redo B", "redo C", "undo C", "undo B", "undo A"}, log.list())
	assert.Nil(t, store.PresentCommand())

	require.True(t, store.Redo())
	flushRunner(t, r)
	assert.Equal(t, []string{
		"redo A", "redo B", "redo C",
		"undo C", "undo B", "undo A",
		"redo A", "redo B", "redo C",
	}, log.list())

	// Replay strokes are not recorded again.
	assert.Equal(t, 1, store.Stack().Count())
}

func TestPipelineCancelledStrokeLeavesNoHistory(t *testing.T) {
	r := newTestRunner(t)
	log := &journal{}
	store := history.NewSurrogateStore()
	adapter := NewPostExecutionUndoAdapter(store, r)

	id, err := r.StartStroke(NewUndoCommandStrategy("Brush", false, adapter))
	require.NoError(t, err)
	require.NoError(t, r.AddJob(id, NewCommandJob(newPaint("A", log), false)))
	require.NoError(t, r.AddJob(id, NewCommandJob(newPaint("B", log), false)))
	flushRunner(t, r)

	require.NoError(t, r.CancelStroke(id))
	flushRunner(t, r)

	assert.Equal(t, []string{"redo A", "redo B", "undo B", "undo A"}, log.list())
	assert.Nil(t, store.PresentCommand())
	assert.Zero(t, store.Stack().Count())
}

func TestPipelineAdapterAddCommand(t *testing.T) {
	r := newTestRunner(t)
	log := &journal{}
	store := history.NewSurrogateStore()
	adapter := NewPostExecutionUndoAdapter(store, r)

	a := newPaint("A", log)
	a.Redo()
	adapter.AddCommand(a)
	flushRunner(t, r)
	assert.Equal(t, []string{"redo A"}, log.list())

	store.UndoLastCommand()
	store.UndoLastCommand()
	flushRunner(t, r)
	assert.Equal(t, []string{"redo A", "undo A"}, log.list())
}
