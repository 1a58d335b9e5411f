package history

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseRunsChildrenInOrder(t *testing.T) {
	var log journal
	parent := NewCommand("parent", nil)
	parent.AddChild(newAdd("a", 1, nil, &log))
	parent.AddChild(newAdd("b", 1, nil, &log))

	parent.Redo()
	parent.Undo()

	assert.Equal(t, []string{"redo:a", "redo:b", "undo:b", "undo:a"}, log.events)
	assert.Equal(t, 2, parent.ChildCount())
	assert.Nil(t, parent.Child(5))
}

func TestBaseAddChildSetsParent(t *testing.T) {
	parent := NewCommand("parent", nil)
	child := NewCommand("child", parent)

	assert.True(t, HasParent(child))
	assert.Equal(t, Command(parent), child.Parent())

	other := NewCommand("other", nil)
	other.AddChild(child)
	assert.Equal(t, 0, other.ChildCount(), "parented command must not be re-attached")
}

func TestCompositeCommandOrder(t *testing.T) {
	var log journal
	c := NewCompositeCommand("composite")
	c.AddCommand(newAdd("a", 1, nil, &log))
	c.AddCommand(nil)
	c.AddCommand(newAdd("b", 1, nil, &log))
	c.AddChild(newAdd("own", 1, nil, &log))

	c.Redo()
	c.Undo()

	assert.Equal(t, 2, c.Len())
	assert.Equal(t, []string{
		"redo:own", "redo:a", "redo:b",
		"undo:b", "undo:a", "undo:own",
	}, log.events)
}

func TestComposeCommands(t *testing.T) {
	t.Run("nil parent returns command", func(t *testing.T) {
		cmd := newAdd("a", 1, nil, nil)
		assert.Same(t, cmd, ComposeCommands(nil, cmd))
	})

	t.Run("plain parent is wrapped", func(t *testing.T) {
		parent := newAdd("first", 1, nil, nil)
		cmd := newAdd("second", 1, nil, nil)

		got := ComposeCommands(parent, cmd)
		composite, ok := got.(*CompositeCommand)
		require.True(t, ok, "got %T", got)
		assert.Equal(t, "first", composite.Text())
		assert.Equal(t, []Command{parent, cmd}, composite.Commands())
	})

	t.Run("composite parent is extended in place", func(t *testing.T) {
		first := ComposeCommands(newAdd("a", 1, nil, nil), newAdd("b", 1, nil, nil))
		second := ComposeCommands(first, newAdd("c", 1, nil, nil))

		assert.Same(t, first, second)
		assert.Equal(t, 3, second.(*CompositeCommand).Len())
	})

	t.Run("nil command becomes placeholder", func(t *testing.T) {
		got := ComposeCommands(nil, nil)
		require.NotNil(t, got)
		assert.Equal(t, failedCommandText, got.Text())
		got.Redo()
		got.Undo()
	})

	t.Run("parented command is not attached", func(t *testing.T) {
		owner := NewCommand("owner", nil)
		child := NewCommand("child", owner)
		parent := newAdd("p", 1, nil, nil)

		assert.Same(t, parent, ComposeCommands(parent, child))
	})

	t.Run("composed command cannot join a second composite", func(t *testing.T) {
		shared := newAdd("shared", 1, nil, nil)
		first := ComposeCommands(newAdd("a", 1, nil, nil), shared)
		composite := first.(*CompositeCommand)
		assert.Same(t, composite, shared.Parent())

		other := newAdd("b", 1, nil, nil)
		assert.Same(t, other, ComposeCommands(other, shared))
		assert.Same(t, composite, shared.Parent())
	})
}

func TestStatelessAndMergeChecks(t *testing.T) {
	marker := NewFlipFlopCommand("batch", false, nil, nil)
	assert.False(t, IsStateless(marker))
	marker.SetStateless(true)
	assert.True(t, IsStateless(marker))
	assert.False(t, IsStateless(newAdd("a", 1, nil, nil)))

	// mergeableAdd merges but cannot say so in advance.
	a := newMergeable("a", 3, 1, nil, nil)
	b := newMergeable("b", 3, 1, nil, nil)
	assert.False(t, CanMergeWith(a, b))
	assert.True(t, a.MergeWith(b))
}

func TestAggregatePopulatesOnce(t *testing.T) {
	value := 0
	calls := 0
	agg := NewAggregateCommand("aggregate", func(a *AggregateCommand) error {
		calls++
		a.AddCommand(newAdd("a", 1, &value, nil))
		a.AddCommand(newAdd("b", 10, &value, nil))
		return nil
	})

	agg.Undo() // undo before any redo is a no-op
	assert.Equal(t, 0, calls)

	agg.Redo()
	assert.Equal(t, 1, calls)
	assert.Equal(t, 11, value)

	for i := 0; i < 3; i++ {
		agg.Undo()
		assert.Equal(t, 0, value)
		agg.Redo()
		assert.Equal(t, 11, value)
	}
	assert.Equal(t, 1, calls)
	assert.Equal(t, 2, agg.Count())
	assert.True(t, agg.Populated())
}

func TestAggregateChildrenSeeEarlierEffects(t *testing.T) {
	value := 0
	agg := NewAggregateCommand("aggregate", func(a *AggregateCommand) error {
		a.AddCommand(newAdd("a", 5, &value, nil))
		// the second child depends on the state left by the first
		a.AddCommand(newAdd("double", value, &value, nil))
		return nil
	})

	agg.Redo()
	assert.Equal(t, 10, value)
	agg.Undo()
	assert.Equal(t, 0, value)
}

func TestAggregatePopulateFailure(t *testing.T) {
	tests := []struct {
		name     string
		populate PopulateFunc
	}{
		{"error", func(a *AggregateCommand) error {
			a.AddCommand(newAdd("a", 1, nil, nil))
			return errors.New("boom")
		}},
		{"panic", func(a *AggregateCommand) error {
			a.AddCommand(newAdd("a", 1, nil, nil))
			panic("boom")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value := 0
			agg := NewAggregateCommand("aggregate", func(a *AggregateCommand) error {
				a.AddCommand(newAdd("applied", 7, &value, nil))
				return tt.populate(a)
			})

			agg.Redo()
			assert.Equal(t, 0, value, "partial children must be reverted")
			assert.Equal(t, 0, agg.Count())

			agg.Undo()
			agg.Redo()
			assert.Equal(t, 0, value)
		})
	}
}

func TestLambdaCommand(t *testing.T) {
	value := 0
	calls := 0
	l := NewLambdaCommand("lambda", func() Command {
		calls++
		return newAdd("inner", 3, &value, nil)
	})

	l.Redo()
	assert.Equal(t, 3, value)
	assert.Nil(t, l.factory, "factory must be released after use")

	l.Undo()
	assert.Equal(t, 0, value)
	l.Redo()
	assert.Equal(t, 3, value)
	assert.Equal(t, 1, calls)
}

func TestLambdaCommandNilResult(t *testing.T) {
	l := NewLambdaCommand("lambda", func() Command { return nil })
	l.Redo()
	l.Undo()
	assert.Equal(t, 0, l.Count())
}

func TestSkipFirstRedoWrapper(t *testing.T) {
	var log journal
	child := newAdd("child", 1, nil, &log)
	w := NewSkipFirstRedoWrapper(child)

	assert.Equal(t, "child", w.Text())
	assert.True(t, w.SkipsNextRedo())

	w.Redo()
	assert.Empty(t, log.events, "first redo must be skipped")

	w.Undo()
	w.Redo()
	assert.Equal(t, []string{"undo:child", "redo:child"}, log.events)
}

func TestSkipFirstRedoUndoFirst(t *testing.T) {
	var log journal
	w := NewSkipFirstRedoBase("base",
		func() { log.add("redo") },
		func() { log.add("undo") })

	// undo is never skipped, even before the first redo
	w.Undo()
	w.Redo()
	w.Redo()
	assert.Equal(t, []string{"undo", "redo"}, log.events)
}

func TestSkipFirstRedoSetSkipOneRedo(t *testing.T) {
	var log journal
	w := NewSkipFirstRedoWrapper(newAdd("c", 1, nil, &log))
	w.SetSkipOneRedo(false)
	w.Redo()
	assert.Equal(t, []string{"redo:c"}, log.events)

	w.SetSkipOneRedo(true)
	w.Redo()
	assert.Equal(t, []string{"redo:c"}, log.events)
}

func TestSkipFirstRedoRunsOwnChildren(t *testing.T) {
	var log journal
	w := NewSkipFirstRedoBase("base", func() { log.add("impl-redo") }, func() { log.add("impl-undo") })
	w.AddChild(newAdd("child", 1, nil, &log))

	w.Redo()
	w.Redo()
	w.Undo()
	assert.Equal(t, []string{"impl-redo", "redo:child", "undo:child", "impl-undo"}, log.events)
}

func TestSkipFirstRedoWrapperNil(t *testing.T) {
	w := NewSkipFirstRedoWrapper(nil)
	assert.Equal(t, unnamedCommandText, w.Text())
	w.Redo()
	w.Redo()
	w.Undo()
}

func TestFlipFlopCommand(t *testing.T) {
	tests := []struct {
		name       string
		finalizing bool
		want       []string
	}{
		{"initializing", false, []string{"A:first", "B", "A"}},
		{"finalizing", true, []string{"B:first", "A", "B"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var log journal
			part := func(name string) FlipFlopPart {
				return func(c *FlipFlopCommand) {
					if c.IsFirstRedo() {
						log.add("%s:first", name)
						return
					}
					log.add("%s", name)
				}
			}
			c := NewFlipFlopCommand("flip", tt.finalizing, part("A"), part("B"))

			c.Redo()
			c.Undo()
			c.Redo()

			assert.Equal(t, tt.want, log.events)
			assert.False(t, c.IsFirstRedo())
		})
	}
}

func TestFlipFlopSetState(t *testing.T) {
	var log journal
	c := NewFlipFlopCommandWithState("flip", Initializing,
		func(*FlipFlopCommand) { log.add("A") }, nil)

	c.SetState(Finalizing)
	assert.Equal(t, Finalizing, c.State())
	assert.Equal(t, "finalizing", c.State().String())
	c.Redo() // part B is nil
	c.Undo()
	assert.Equal(t, []string{"A"}, log.events)
}

func TestRedoAndMergeIntoAccumulatingCommand(t *testing.T) {
	t.Run("mergeable", func(t *testing.T) {
		value := 0
		a := newMergeable("a", 1, 2, &value, nil)
		b := newMergeable("b", 1, 3, &value, nil)

		var acc Command
		acc = RedoAndMergeIntoAccumulatingCommand(a, acc)
		assert.Same(t, a, acc)
		acc = RedoAndMergeIntoAccumulatingCommand(b, acc)
		assert.Same(t, a, acc)

		assert.Equal(t, 5, value)
		assert.Equal(t, 1, a.merged)

		acc.Undo()
		assert.Equal(t, 0, value, "merged command must revert both edits")
	})

	t.Run("not mergeable", func(t *testing.T) {
		value := 0
		a := newAdd("a", 2, &value, nil)
		b := newAdd("b", 3, &value, nil)

		acc := RedoAndMergeIntoAccumulatingCommand(a, nil)
		acc = RedoAndMergeIntoAccumulatingCommand(b, acc)
		assert.Equal(t, 5, value)

		composite, ok := acc.(*CompositeCommand)
		require.True(t, ok, "got %T", acc)
		assert.Equal(t, []Command{a, b}, composite.Commands())

		acc.Undo()
		assert.Equal(t, 0, value)
	})

	t.Run("nil command keeps accumulator", func(t *testing.T) {
		a := newAdd("a", 1, nil, nil)
		assert.Same(t, a, RedoAndMergeIntoAccumulatingCommand(nil, a))
	})
}
