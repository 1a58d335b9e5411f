package history

import "fmt"

// journal records the order in which test commands run.
type journal struct {
	events []string
}

func (j *journal) add(format string, args ...any) {
	j.events = append(j.events, fmt.Sprintf(format, args...))
}

func (j *journal) reset() { j.events = nil }

// addCommand adds delta to a shared value and journals every call.
type addCommand struct {
	Base
	name  string
	delta int
	value *int
	log   *journal
}

func newAdd(name string, delta int, value *int, log *journal) *addCommand {
	return &addCommand{Base: Base{text: name}, name: name, delta: delta, value: value, log: log}
}

func (c *addCommand) Redo() {
	if c.value != nil {
		*c.value += c.delta
	}
	if c.log != nil {
		c.log.add("redo:%s", c.name)
	}
	c.Base.Redo()
}

func (c *addCommand) Undo() {
	c.Base.Undo()
	if c.value != nil {
		*c.value -= c.delta
	}
	if c.log != nil {
		c.log.add("undo:%s", c.name)
	}
}

// mergeableAdd merges with other mergeableAdd commands sharing its id.
type mergeableAdd struct {
	addCommand
	merged int
}

func newMergeable(name string, id, delta int, value *int, log *journal) *mergeableAdd {
	c := &mergeableAdd{addCommand: *newAdd(name, delta, value, log)}
	c.SetID(id)
	return c
}

func (c *mergeableAdd) MergeWith(other Command) bool {
	o, ok := other.(*mergeableAdd)
	if !ok || o.ID() != c.ID() {
		return false
	}
	c.delta += o.delta
	c.merged++
	return true
}

// recordingListener journals store notifications.
type recordingListener struct {
	log *journal
	tag string
}

func (l *recordingListener) NotifyCommandAdded(cmd Command) {
	l.log.add("%sadded:%s", l.tag, cmd.Text())
}

func (l *recordingListener) NotifyCommandExecuted(cmd Command) {
	l.log.add("%sexecuted:%s", l.tag, cmd.Text())
}
