package strokeundo

import (
	"sync"

	"github.com/dshills/strokeundo/internal/engine/history"
	"github.com/dshills/strokeundo/internal/engine/stroke"
)

// PostExecutionUndoAdapter records work that strokes have already applied.
// Recorded commands are wrapped in saved commands bound to the strokes
// facade, so undoing them later goes through the stroke pipeline.
//
// Strategies call the adapter from the stroke worker. The adapter serializes
// its own store access; code that drives the store directly must flush the
// pipeline first.
type PostExecutionUndoAdapter struct {
	mu     sync.Mutex
	store  history.Store
	facade stroke.Facade
}

// NewPostExecutionUndoAdapter creates an adapter recording into store.
func NewPostExecutionUndoAdapter(store history.Store, facade stroke.Facade) *PostExecutionUndoAdapter {
	return &PostExecutionUndoAdapter{store: store, facade: facade}
}

// AddCommand records cmd as one history entry. cmd is not executed again.
// Nil commands are ignored.
func (a *PostExecutionUndoAdapter) AddCommand(cmd history.Command) {
	if cmd == nil {
		return
	}
	a.push(NewSavedCommand(cmd, a.facade))
}

// CreateMacro returns an empty macro bound to the adapter's facade. Fill it
// with SavedMacroCommand.AddCommand and record it with AddMacro.
func (a *PostExecutionUndoAdapter) CreateMacro(name string) *SavedMacroCommand {
	return NewSavedMacroCommand(name, a.facade)
}

// AddMacro records macro as one history entry.
func (a *PostExecutionUndoAdapter) AddMacro(macro *SavedMacroCommand) {
	if macro == nil {
		return
	}
	a.push(macro)
}

// UndoStore returns the store commands are recorded into.
func (a *PostExecutionUndoAdapter) UndoStore() history.Store {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.store
}

// SetUndoStore replaces the store commands are recorded into.
func (a *PostExecutionUndoAdapter) SetUndoStore(store history.Store) {
	a.mu.Lock()
	a.store = store
	a.mu.Unlock()
}

// StrokesFacade returns the facade saved commands replay through.
func (a *PostExecutionUndoAdapter) StrokesFacade() stroke.Facade { return a.facade }

// push adds cmd to the store. Pushing runs the saved command's first Redo,
// which is skipped.
func (a *PostExecutionUndoAdapter) push(cmd history.Command) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.store != nil {
		a.store.AddCommand(cmd)
	}
}
