// Package canvas implements a small layered paint device.
//
// A canvas is a grid of cells per layer. Commands in this package change
// cells reversibly and are meant to be executed by stroke jobs and recorded
// in the undo history.
package canvas

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Transparent is the color of an unpainted cell.
const Transparent rune = 0

// blank is how a transparent cell is rendered.
const blank = '.'

// Common errors returned by canvas operations.
var (
	ErrUnknownLayer = errors.New("unknown layer")
	ErrLayerExists  = errors.New("layer already exists")
	ErrOutOfBounds  = errors.New("point out of bounds")
	ErrInvalidSize  = errors.New("invalid canvas size")
)

// Point is a cell position.
type Point struct {
	X, Y int
}

// String returns the point as "(x,y)".
func (p Point) String() string { return fmt.Sprintf("(%d,%d)", p.X, p.Y) }

// Rect is an inclusive-exclusive rectangle [Min, Max).
type Rect struct {
	Min, Max Point
}

// Empty reports whether r contains no cells.
func (r Rect) Empty() bool { return r.Min.X >= r.Max.X || r.Min.Y >= r.Max.Y }

// layer is a named cell grid.
type layer struct {
	name  string
	cells []rune
}

// ChangeFunc is called after the canvas changed outside of a batch, or when
// the outermost batch ends.
type ChangeFunc func(revision uint64)

// Canvas is a stack of equally sized layers. Layers are composited bottom
// to top; the topmost non-transparent cell wins. Canvas is safe for
// concurrent use.
type Canvas struct {
	mu       sync.RWMutex
	width    int
	height   int
	layers   []*layer
	revision uint64
	batch    int
	dirty    bool
	onChange []ChangeFunc
}

// New creates a canvas with the given layers, bottom first. Without layer
// names a single "background" layer is created.
func New(width, height int, layers ...string) (*Canvas, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	if len(layers) == 0 {
		layers = []string{"background"}
	}

	c := &Canvas{width: width, height: height}
	for _, name := range layers {
		if err := c.AddLayer(name); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Width returns the canvas width in cells.
func (c *Canvas) Width() int { return c.width }

// Height returns the canvas height in cells.
func (c *Canvas) Height() int { return c.height }

// Bounds returns the canvas rectangle.
func (c *Canvas) Bounds() Rect {
	return Rect{Max: Point{X: c.width, Y: c.height}}
}

// AddLayer adds a transparent layer on top.
func (c *Canvas) AddLayer(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if name == "" {
		return fmt.Errorf("add layer: empty name")
	}
	if c.findLocked(name) != nil {
		return fmt.Errorf("add layer %q: %w", name, ErrLayerExists)
	}
	c.layers = append(c.layers, &layer{name: name, cells: make([]rune, c.width*c.height)})
	return nil
}

// Layers returns the layer names, bottom first.
func (c *Canvas) Layers() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, len(c.layers))
	for i, l := range c.layers {
		names[i] = l.name
	}
	return names
}

// HasLayer reports whether a layer exists.
func (c *Canvas) HasLayer(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.findLocked(name) != nil
}

// Contains reports whether p lies on the canvas.
func (c *Canvas) Contains(p Point) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < c.width && p.Y < c.height
}

// At returns the color of a cell.
func (c *Canvas) At(layerName string, p Point) (rune, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	l := c.findLocked(layerName)
	if l == nil {
		return Transparent, fmt.Errorf("%q: %w", layerName, ErrUnknownLayer)
	}
	if !c.Contains(p) {
		return Transparent, fmt.Errorf("%s: %w", p, ErrOutOfBounds)
	}
	return l.cells[c.offset(p)], nil
}

// Revision returns a counter incremented by every change.
func (c *Canvas) Revision() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.revision
}

// OnChange registers fn to be called after changes.
func (c *Canvas) OnChange(fn ChangeFunc) {
	if fn == nil {
		return
	}
	c.mu.Lock()
	c.onChange = append(c.onChange, fn)
	c.mu.Unlock()
}

// BeginBatch suspends change notifications until the matching EndBatch.
// Batches nest.
func (c *Canvas) BeginBatch() {
	c.mu.Lock()
	c.batch++
	c.mu.Unlock()
}

// EndBatch ends a batch. Closing the outermost batch notifies once if
// anything changed inside it.
func (c *Canvas) EndBatch() {
	c.mu.Lock()
	if c.batch == 0 {
		c.mu.Unlock()
		return
	}
	c.batch--
	notify := c.batch == 0 && c.dirty
	if notify {
		c.dirty = false
	}
	c.mu.Unlock()

	if notify {
		c.notify()
	}
}

// InBatch reports whether a batch is open.
func (c *Canvas) InBatch() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.batch > 0
}

// Render composites all layers into rows of text. Transparent cells are
// drawn as '.'.
func (c *Canvas) Render() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var sb strings.Builder
	for y := 0; y < c.height; y++ {
		for x := 0; x < c.width; x++ {
			r := rune(blank)
			off := c.offset(Point{X: x, Y: y})
			for i := len(c.layers) - 1; i >= 0; i-- {
				if v := c.layers[i].cells[off]; v != Transparent {
					r = v
					break
				}
			}
			sb.WriteRune(r)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// RenderLayer renders a single layer.
func (c *Canvas) RenderLayer(layerName string) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	l := c.findLocked(layerName)
	if l == nil {
		return "", fmt.Errorf("%q: %w", layerName, ErrUnknownLayer)
	}

	var sb strings.Builder
	for y := 0; y < c.height; y++ {
		for x := 0; x < c.width; x++ {
			v := l.cells[c.offset(Point{X: x, Y: y})]
			if v == Transparent {
				v = blank
			}
			sb.WriteRune(v)
		}
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}

// swap stores colors at the given points and returns the previous colors.
// Points must have been validated.
func (c *Canvas) swap(layerName string, points []Point, colors func(i int) rune) []rune {
	c.mu.Lock()
	l := c.findLocked(layerName)
	if l == nil {
		c.mu.Unlock()
		return nil
	}

	prev := make([]rune, len(points))
	for i, p := range points {
		off := c.offset(p)
		prev[i] = l.cells[off]
		l.cells[off] = colors(i)
	}
	c.revision++
	notify := c.batch == 0
	if !notify {
		c.dirty = true
	}
	c.mu.Unlock()

	if notify {
		c.notify()
	}
	return prev
}

// restore writes colors back in reverse order so overlapping points end
// with their oldest value.
func (c *Canvas) restore(layerName string, points []Point, colors []rune) {
	c.mu.Lock()
	l := c.findLocked(layerName)
	if l == nil {
		c.mu.Unlock()
		return
	}
	for i := len(points) - 1; i >= 0; i-- {
		l.cells[c.offset(points[i])] = colors[i]
	}
	c.revision++
	notify := c.batch == 0
	if !notify {
		c.dirty = true
	}
	c.mu.Unlock()

	if notify {
		c.notify()
	}
}

func (c *Canvas) notify() {
	c.mu.RLock()
	rev := c.revision
	fns := make([]ChangeFunc, len(c.onChange))
	copy(fns, c.onChange)
	c.mu.RUnlock()

	for _, fn := range fns {
		fn(rev)
	}
}

func (c *Canvas) findLocked(name string) *layer {
	for _, l := range c.layers {
		if l.name == name {
			return l
		}
	}
	return nil
}

func (c *Canvas) offset(p Point) int { return p.Y*c.width + p.X }
