package canvas

import (
	"fmt"

	"github.com/dshills/strokeundo/internal/engine/history"
)

// DabMergeID is the merge id of dab commands. Consecutive dabs on the same
// layer with the same color coalesce into one command.
const DabMergeID = 1

// PaintCommand sets a list of cells on one layer to a color.
type PaintCommand struct {
	*history.Base

	canvas  *Canvas
	layer   string
	color   rune
	points  []Point
	prev    []rune
	mergeID int
}

// NewPaintCommand creates a command painting points with color.
func NewPaintCommand(c *Canvas, layerName string, color rune, points ...Point) (*PaintCommand, error) {
	if err := validate(c, layerName, points); err != nil {
		return nil, err
	}
	return &PaintCommand{
		Base:   history.NewCommand(fmt.Sprintf("Paint %q on %s", color, layerName), nil),
		canvas: c,
		layer:  layerName,
		color:  color,
		points: append([]Point(nil), points...),
	}, nil
}

// NewDabCommand creates a single-cell paint command that merges with the
// following dab of the same color on the same layer.
func NewDabCommand(c *Canvas, layerName string, color rune, p Point) (*PaintCommand, error) {
	cmd, err := NewPaintCommand(c, layerName, color, p)
	if err != nil {
		return nil, err
	}
	cmd.SetText(fmt.Sprintf("Dab %q on %s", color, layerName))
	cmd.mergeID = DabMergeID
	return cmd, nil
}

// NewClearCommand creates a command making every cell of a layer
// transparent.
func NewClearCommand(c *Canvas, layerName string) (*PaintCommand, error) {
	cmd, err := NewPaintCommand(c, layerName, Transparent, c.Bounds().Points()...)
	if err != nil {
		return nil, err
	}
	cmd.SetText("Clear " + layerName)
	return cmd, nil
}

// Redo paints the cells.
func (p *PaintCommand) Redo() {
	p.prev = p.canvas.swap(p.layer, p.points, func(int) rune { return p.color })
}

// Undo restores the cells painted by the last Redo.
func (p *PaintCommand) Undo() {
	if len(p.prev) != len(p.points) {
		return
	}
	p.canvas.restore(p.layer, p.points, p.prev)
}

// ID returns DabMergeID for dabs and history.NoMergeID otherwise.
func (p *PaintCommand) ID() int { return p.mergeID }

// CanMergeWith reports whether other is an applied dab with the same layer
// and color.
func (p *PaintCommand) CanMergeWith(other history.Command) bool {
	o, ok := other.(*PaintCommand)
	if !ok || o == p || p.mergeID == history.NoMergeID || o.mergeID != p.mergeID {
		return false
	}
	if o.canvas != p.canvas || o.layer != p.layer || o.color != p.color {
		return false
	}
	return len(o.prev) == len(o.points) && len(p.prev) == len(p.points)
}

// MergeWith absorbs an applied dab with the same layer and color.
func (p *PaintCommand) MergeWith(other history.Command) bool {
	if !p.CanMergeWith(other) {
		return false
	}
	o := other.(*PaintCommand)
	p.points = append(p.points, o.points...)
	p.prev = append(p.prev, o.prev...)
	return true
}

// Layer returns the layer the command paints on.
func (p *PaintCommand) Layer() string { return p.layer }

// Points returns the painted cells.
func (p *PaintCommand) Points() []Point { return append([]Point(nil), p.points...) }

// NewFillCommand creates a command filling r with color, one child per
// row.
func NewFillCommand(c *Canvas, layerName string, color rune, r Rect) (history.Command, error) {
	if r.Empty() {
		return nil, fmt.Errorf("fill %v: empty rectangle", r)
	}

	var fill history.Command
	for y := r.Min.Y; y < r.Max.Y; y++ {
		row := Rect{Min: Point{X: r.Min.X, Y: y}, Max: Point{X: r.Max.X, Y: y + 1}}
		cmd, err := NewPaintCommand(c, layerName, color, row.Points()...)
		if err != nil {
			return nil, err
		}
		fill = history.ComposeCommands(fill, cmd)
	}
	if comp, ok := fill.(*history.CompositeCommand); ok {
		comp.SetText(fmt.Sprintf("Fill %q on %s", color, layerName))
	}
	return fill, nil
}

// NewLineCommand creates a command drawing a line. The line is built the
// first time the command runs: every cell is applied as a dab and the dabs
// are coalesced into one command.
func NewLineCommand(c *Canvas, layerName string, color rune, from, to Point) (history.Command, error) {
	points := Line(from, to)
	if err := validate(c, layerName, points); err != nil {
		return nil, err
	}

	return history.NewLambdaCommand(fmt.Sprintf("Line %q on %s", color, layerName), func() history.Command {
		var acc history.Command
		for _, p := range points {
			dab, err := NewDabCommand(c, layerName, color, p)
			if err != nil {
				return nil
			}
			acc = history.RedoAndMergeIntoAccumulatingCommand(dab, acc)
		}
		// The accumulated dabs are already applied.
		return history.NewSkipFirstRedoWrapper(acc)
	}), nil
}

// NewBatchCommand returns a command that suspends change notifications
// when used as a stroke's init command (finalizing false) and resumes them
// when used as its finish command (finalizing true). Replaying the pair in
// either direction keeps batches balanced.
func NewBatchCommand(c *Canvas, finalizing bool) *history.FlipFlopCommand {
	cmd := history.NewFlipFlopCommand("Batch updates", finalizing,
		func(*history.FlipFlopCommand) { c.BeginBatch() },
		func(*history.FlipFlopCommand) { c.EndBatch() },
	)
	cmd.SetStateless(true)
	return cmd
}

// Points returns the cells of r in row-major order.
func (r Rect) Points() []Point {
	if r.Empty() {
		return nil
	}
	points := make([]Point, 0, (r.Max.X-r.Min.X)*(r.Max.Y-r.Min.Y))
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			points = append(points, Point{X: x, Y: y})
		}
	}
	return points
}

// Line returns the cells of the line from a to b, both included.
func Line(a, b Point) []Point {
	dx := abs(b.X - a.X)
	dy := -abs(b.Y - a.Y)
	sx, sy := 1, 1
	if a.X > b.X {
		sx = -1
	}
	if a.Y > b.Y {
		sy = -1
	}

	var points []Point
	err := dx + dy
	for p := a; ; {
		points = append(points, p)
		if p == b {
			return points
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			p.X += sx
		}
		if e2 <= dx {
			err += dx
			p.Y += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func validate(c *Canvas, layerName string, points []Point) error {
	if c == nil {
		return fmt.Errorf("nil canvas")
	}
	if !c.HasLayer(layerName) {
		return fmt.Errorf("%q: %w", layerName, ErrUnknownLayer)
	}
	for _, p := range points {
		if !c.Contains(p) {
			return fmt.Errorf("%s: %w", p, ErrOutOfBounds)
		}
	}
	return nil
}
