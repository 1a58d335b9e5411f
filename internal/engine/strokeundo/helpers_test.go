package strokeundo

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dshills/strokeundo/internal/engine/history"
	"github.com/dshills/strokeundo/internal/engine/stroke"
)

type journal struct {
	mu      sync.Mutex
	entries []string
}

func (j *journal) add(format string, args ...any) {
	j.mu.Lock()
	j.entries = append(j.entries, fmt.Sprintf(format, args...))
	j.mu.Unlock()
}

func (j *journal) list() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.entries...)
}

// paintCommand logs its execution. Commands with the same non-zero id merge.
type paintCommand struct {
	*history.Base
	name   string
	log    *journal
	id     int
	merged []string
	// refuse makes MergeWith fail even though CanMergeWith agreed.
	refuse bool
}

func newPaint(name string, log *journal) *paintCommand {
	return &paintCommand{Base: history.NewCommand(name, nil), name: name, log: log}
}

func (c *paintCommand) Redo() { c.log.add("redo %s", c.name) }
func (c *paintCommand) Undo() { c.log.add("undo %s", c.name) }
func (c *paintCommand) ID() int { return c.id }

func (c *paintCommand) CanMergeWith(other history.Command) bool {
	o, ok := other.(*paintCommand)
	return ok && c.id != history.NoMergeID && o.id == c.id
}

func (c *paintCommand) MergeWith(other history.Command) bool {
	if !c.CanMergeWith(other) || c.refuse {
		return false
	}
	o := other.(*paintCommand)
	c.merged = append(c.merged, o.name)
	return true
}

// markerCommand brackets work without changing state.
type markerCommand struct {
	*paintCommand
}

func newMarker(name string, log *journal) *markerCommand {
	return &markerCommand{paintCommand: newPaint(name, log)}
}

func (markerCommand) Stateless() bool { return true }

type submittedStroke struct {
	id        stroke.ID
	strategy  stroke.Strategy
	jobs      []CommandJob
	ended     bool
	cancelled bool
}

// fakeFacade records submissions without running them.
type fakeFacade struct {
	mu      sync.Mutex
	strokes []*submittedStroke
	failErr error
}

func (f *fakeFacade) StartStroke(strategy stroke.Strategy) (stroke.ID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return "", f.failErr
	}
	id := stroke.ID(fmt.Sprintf("stroke-%d", len(f.strokes)+1))
	f.strokes = append(f.strokes, &submittedStroke{id: id, strategy: strategy})
	return id, nil
}

func (f *fakeFacade) AddJob(id stroke.ID, data stroke.JobData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.find(id)
	if s == nil {
		return stroke.ErrUnknownStroke
	}
	s.jobs = append(s.jobs, data.(CommandJob))
	return nil
}

func (f *fakeFacade) EndStroke(id stroke.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.find(id)
	if s == nil {
		return stroke.ErrUnknownStroke
	}
	s.ended = true
	return nil
}

func (f *fakeFacade) CancelStroke(id stroke.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.find(id)
	if s == nil {
		return stroke.ErrUnknownStroke
	}
	s.cancelled = true
	return nil
}

func (f *fakeFacade) find(id stroke.ID) *submittedStroke {
	for _, s := range f.strokes {
		if s.id == id {
			return s
		}
	}
	return nil
}

func (f *fakeFacade) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.strokes)
}

func (f *fakeFacade) stroke(i int) *submittedStroke {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.strokes[i]
}

// run executes stroke i synchronously through its strategy.
func (f *fakeFacade) run(t *testing.T, i int) {
	t.Helper()
	s := f.stroke(i)
	ctx := context.Background()
	require.NoError(t, s.strategy.InitStroke(ctx))
	for _, job := range s.jobs {
		require.NoError(t, s.strategy.DoStrokeCallback(ctx, job))
	}
	require.NoError(t, s.strategy.FinishStroke(ctx))
}

// jobNames lists the jobs of s as "undo X" or "redo X".
func jobNames(s *submittedStroke) []string {
	out := make([]string, len(s.jobs))
	for i, job := range s.jobs {
		dir := "redo"
		if job.Undo {
			dir = "undo"
		}
		out[i] = dir + " " + job.Command.Text()
	}
	return out
}
