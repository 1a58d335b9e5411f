// Package history provides the command model and undo stores.
//
// The history system uses the Command pattern to encapsulate reversible
// work. Key concepts:
//
// # Commands
//
// A Command has Redo, Undo, a display Text and an optional merge ID. Base
// implements the bookkeeping shared by all commands (text, merge id, parent
// and child commands) and can be embedded or used directly as a named
// container.
//
// Combinators change how or when child work runs:
//   - AggregateCommand: children are generated lazily on the first Redo
//   - LambdaCommand: an AggregateCommand fed by a one-shot factory
//   - SkipFirstRedo: the first Redo is a no-op because the work already ran
//   - FlipFlopCommand: asymmetric setup/teardown pairs
//   - CompositeCommand: ordered children, built with ComposeCommands
//
// # Stack and Stores
//
// Stack is an index-based undo stack. Push executes the command and discards
// any redo-able tail:
//
//	stack := NewStack(0) // unlimited
//	stack.Push(cmd)
//	stack.Undo()
//	stack.Redo()
//
// Store is the contract the rest of the application talks to. Two
// policies are provided: SurrogateStore records into a Stack (its own, or
// one handed in with NewSurrogateStoreWithStack), and DumbStore executes
// and discards commands.
//
// # Macros
//
// Commands added between BeginMacro and EndMacro become children of a
// single history entry:
//
//	store.BeginMacro("Fill")
//	store.AddCommand(a)
//	store.AddCommand(b)
//	store.EndMacro()
//
// Undoing the entry undoes b then a.
//
// Stores and stacks are not safe for concurrent use. All calls must come from
// the goroutine that owns the document.
package history
