package history

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSurrogateStorePresentCommand(t *testing.T) {
	s := NewSurrogateStore()
	assert.Nil(t, s.PresentCommand())

	a := newAdd("a", 1, nil, nil)
	b := newAdd("b", 1, nil, nil)
	c := newAdd("c", 1, nil, nil)

	steps := []struct {
		do   func()
		want Command
	}{
		{func() { s.AddCommand(a) }, a},
		{func() { s.AddCommand(b) }, b},
		{func() { s.UndoLastCommand() }, a},
		{func() { s.UndoLastCommand() }, nil},
		{func() { s.UndoLastCommand() }, nil},
		{func() { s.Redo() }, a},
		{func() { s.AddCommand(c) }, c},
	}
	for i, step := range steps {
		step.do()
		if step.want == nil {
			assert.Nil(t, s.PresentCommand(), "step %d", i)
			continue
		}
		assert.Same(t, step.want, s.PresentCommand(), "step %d", i)
	}
}

func TestSurrogateStoreBranchDiscardsUndone(t *testing.T) {
	var log journal
	value := 0
	s := NewSurrogateStore()
	a := newAdd("A", 1, &value, &log)
	b := newAdd("B", 10, &value, &log)
	c := newAdd("C", 100, &value, &log)
	s.AddCommand(a)
	s.AddCommand(b)
	s.AddCommand(c)

	s.UndoLastCommand()
	s.UndoLastCommand()
	assert.Equal(t, 1, value)

	d := newAdd("D", 1000, &value, &log)
	s.AddCommand(d)
	assert.Same(t, d, s.PresentCommand())
	assert.False(t, s.CanRedo())

	log.reset()
	assert.False(t, s.Redo())
	s.RedoAll()
	assert.Empty(t, log.events, "B and C must be unreachable")
	assert.Equal(t, 1001, value)
}

func TestSurrogateStoreMacroRoundTrip(t *testing.T) {
	var log journal
	value := 0
	s := NewSurrogateStore()

	s.BeginMacro("group")
	for i, name := range []string{"a", "b", "c", "d"} {
		s.AddCommand(newAdd(name, i+1, &value, &log))
	}
	s.EndMacro()
	applied := value

	log.reset()
	s.UndoLastCommand()
	assert.Equal(t, []string{"undo:d", "undo:c", "undo:b", "undo:a"}, log.events)
	assert.Equal(t, 0, value)

	log.reset()
	require.True(t, s.Redo())
	assert.Equal(t, []string{"redo:a", "redo:b", "redo:c", "redo:d"}, log.events)
	assert.Equal(t, applied, value)
}

func TestSurrogateStoreUndoAllRedoAll(t *testing.T) {
	value := 0
	s := NewSurrogateStore()
	s.AddCommand(newMergeable("a", 1, 1, &value, nil))
	s.AddCommand(newMergeable("b", 1, 2, &value, nil))
	s.AddCommand(newAdd("c", 4, &value, nil))

	s.UndoAll()
	assert.Equal(t, 0, value)
	assert.False(t, s.CanUndo())

	s.RedoAll()
	assert.Equal(t, 7, value)
	assert.False(t, s.CanRedo())
}

func TestSurrogateStoreNotifications(t *testing.T) {
	var log journal
	s := NewSurrogateStore()
	l := &recordingListener{log: &log}
	s.SetCommandHistoryListener(l)
	s.SetCommandHistoryListener(l)
	s.SetCommandHistoryListener(nil)
	assert.Equal(t, 1, s.ListenerCount())

	s.AddCommand(newAdd("a", 1, nil, &log))
	s.UndoLastCommand()
	s.Redo()
	s.AddCommand(nil)

	assert.Equal(t, []string{
		"added:a", "redo:a",
		"undo:a", "executed:a",
		"redo:a", "executed:a",
	}, log.events)

	s.RemoveCommandHistoryListener(l)
	log.reset()
	s.UndoLastCommand()
	assert.Equal(t, []string{"undo:a"}, log.events)
}

func TestListenersOrderAndNil(t *testing.T) {
	var log journal
	var ls Listeners
	first := &recordingListener{log: &log, tag: "1:"}
	second := &recordingListener{log: &log, tag: "2:"}
	ls.SetCommandHistoryListener(first)
	ls.SetCommandHistoryListener(second)

	ls.NotifyCommandAdded(newAdd("x", 0, nil, nil))
	ls.NotifyCommandAdded(nil)
	ls.NotifyCommandExecuted(nil)

	assert.Equal(t, []string{"1:added:x", "2:added:x"}, log.events)
}

// selfRemovingListener unregisters itself on its first notification.
type selfRemovingListener struct {
	store *SurrogateStore
	calls int
}

func (l *selfRemovingListener) NotifyCommandAdded(Command) {
	l.calls++
	l.store.RemoveCommandHistoryListener(l)
}

func (l *selfRemovingListener) NotifyCommandExecuted(Command) {}

func TestListenerMayRemoveItself(t *testing.T) {
	s := NewSurrogateStore()
	l := &selfRemovingListener{store: s}
	s.SetCommandHistoryListener(l)

	s.AddCommand(newAdd("a", 1, nil, nil))
	s.AddCommand(newAdd("b", 1, nil, nil))
	assert.Equal(t, 1, l.calls)
	assert.Equal(t, 0, s.ListenerCount())
}

func TestSurrogateStoreWithStack(t *testing.T) {
	stack := NewStack(0)
	s := NewSurrogateStoreWithStack(stack)
	s.AddCommand(newAdd("a", 1, nil, nil))
	assert.Equal(t, 1, stack.Count())
	assert.Same(t, stack, s.Stack())

	assert.NotNil(t, NewSurrogateStoreWithStack(nil).Stack())
}

func TestSurrogateStorePurgeRedoState(t *testing.T) {
	s := NewSurrogateStore()
	s.AddCommand(newAdd("a", 1, nil, nil))
	s.AddCommand(newAdd("b", 1, nil, nil))
	s.UndoLastCommand()
	s.PurgeRedoState()
	assert.False(t, s.CanRedo())
	assert.Equal(t, 1, s.Stack().Count())

	s.BeginMacro("m")
	s.PurgeRedoState() // refused, logged
	s.UndoLastCommand()
	s.EndMacro()
	s.EndMacro() // unmatched, logged
	assert.Equal(t, 1, s.Stack().Count())
}

func TestDumbStore(t *testing.T) {
	var log journal
	value := 0
	s := NewDumbStore()
	s.SetCommandHistoryListener(&recordingListener{log: &log})

	s.BeginMacro("ignored")
	s.AddCommand(newAdd("a", 5, &value, &log))
	s.EndMacro()
	s.UndoLastCommand()
	s.PurgeRedoState()
	s.AddCommand(nil)

	assert.Equal(t, 5, value)
	assert.Nil(t, s.PresentCommand())
	assert.Equal(t, []string{"added:a", "redo:a", "executed:a"}, log.events)
}

func TestMacroScope(t *testing.T) {
	s := NewSurrogateStore()
	func() {
		scope := BeginMacroScope(s, "scoped")
		defer scope.End()
		s.AddCommand(newAdd("a", 1, nil, nil))
		s.AddCommand(newAdd("b", 1, nil, nil))
		scope.End()
	}()

	assert.Equal(t, 1, s.Stack().Count())
	assert.Equal(t, "scoped", s.PresentCommand().Text())
	assert.False(t, s.Stack().IsMacroOpen())
}

func TestTransaction(t *testing.T) {
	t.Run("commit", func(t *testing.T) {
		value := 0
		s := NewSurrogateStore()
		err := Transaction(s, "tx", func() error {
			s.AddCommand(newAdd("a", 1, &value, nil))
			s.AddCommand(newAdd("b", 2, &value, nil))
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, value)
		assert.Equal(t, "tx", s.PresentCommand().Text())
	})

	t.Run("rollback", func(t *testing.T) {
		value := 0
		s := NewSurrogateStore()
		before := newAdd("before", 100, &value, nil)
		s.AddCommand(before)

		boom := errors.New("boom")
		err := Transaction(s, "tx", func() error {
			s.AddCommand(newAdd("a", 1, &value, nil))
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 100, value)
		assert.Same(t, before, s.PresentCommand())
		assert.False(t, s.CanRedo())
	})

	t.Run("rollback of empty macro keeps history", func(t *testing.T) {
		value := 0
		s := NewSurrogateStore()
		s.AddCommand(newAdd("before", 100, &value, nil))

		err := Transaction(s, "tx", func() error { return errors.New("early") })
		assert.Error(t, err)
		assert.Equal(t, 100, value)
	})
}

func TestAddCommands(t *testing.T) {
	s := NewSurrogateStore()
	AddCommands(s, "none")
	assert.Equal(t, 0, s.Stack().Count())

	single := newAdd("single", 1, nil, nil)
	AddCommands(s, "one", single)
	assert.Same(t, single, s.PresentCommand())

	AddCommands(s, "many", newAdd("a", 1, nil, nil), newAdd("b", 1, nil, nil))
	assert.Equal(t, "many", s.PresentCommand().Text())
	assert.Equal(t, 2, s.Stack().Count())
}

func TestCheckpoints(t *testing.T) {
	value := 0
	s := NewSurrogateStore()
	start := s.CreateCheckpoint()
	s.AddCommand(newAdd("a", 1, &value, nil))
	cp := s.CreateCheckpoint()
	s.AddCommand(newAdd("b", 10, &value, nil))
	s.AddCommand(newAdd("c", 100, &value, nil))
	end := s.CreateCheckpoint()

	require.NoError(t, s.UndoToCheckpoint(cp))
	assert.Equal(t, 1, value)

	require.NoError(t, s.RedoToCheckpoint(end))
	assert.Equal(t, 111, value)

	require.NoError(t, s.UndoToCheckpoint(start))
	assert.Equal(t, 0, value)
	require.NoError(t, s.RedoToCheckpoint(end))

	s.BeginMacro("open")
	assert.ErrorIs(t, s.UndoToCheckpoint(cp), ErrMacroOpen)
}

func TestCheckpointsGoStale(t *testing.T) {
	t.Run("trimmed by the undo limit", func(t *testing.T) {
		value := 0
		s := NewSurrogateStoreWithStack(NewStack(2))
		start := s.CreateCheckpoint()
		s.AddCommand(newAdd("a", 1, &value, nil))
		cp := s.CreateCheckpoint()
		s.AddCommand(newAdd("b", 10, &value, nil))
		s.AddCommand(newAdd("c", 100, &value, nil))

		assert.ErrorIs(t, s.UndoToCheckpoint(start), ErrCheckpointGone)
		assert.Equal(t, 111, value)

		// a was trimmed, so the position after it is the oldest one left.
		require.NoError(t, s.UndoToCheckpoint(cp))
		assert.Equal(t, 1, value)
	})

	t.Run("discarded by a new branch", func(t *testing.T) {
		value := 0
		s := NewSurrogateStore()
		s.AddCommand(newAdd("a", 1, &value, nil))
		s.AddCommand(newAdd("b", 10, &value, nil))
		tip := s.CreateCheckpoint()

		require.True(t, s.Undo())
		s.AddCommand(newAdd("c", 100, &value, nil))

		assert.ErrorIs(t, s.RedoToCheckpoint(tip), ErrCheckpointGone)
		assert.ErrorIs(t, s.UndoToCheckpoint(tip), ErrCheckpointGone)
		assert.Equal(t, 101, value)
	})

	t.Run("merged into", func(t *testing.T) {
		value := 0
		s := NewSurrogateStore()
		s.AddCommand(newMergeable("a", 7, 1, &value, nil))
		cp := s.CreateCheckpoint()
		s.AddCommand(newMergeable("b", 7, 10, &value, nil))
		require.Equal(t, 1, s.Stack().Count())

		assert.ErrorIs(t, s.UndoToCheckpoint(cp), ErrCheckpointGone)
		assert.Equal(t, 11, value)
	})

	t.Run("cleared", func(t *testing.T) {
		s := NewSurrogateStore()
		start := s.CreateCheckpoint()
		s.AddCommand(newAdd("a", 1, nil, nil))
		s.Stack().Clear()

		assert.ErrorIs(t, s.UndoToCheckpoint(start), ErrCheckpointGone)
	})
}
