// Package scenario describes painting sessions as YAML files and plays
// them through the stroke pipeline and the undo history.
//
// A scenario looks like:
//
//	name: demo
//	canvas: {width: 8, height: 3, layers: [background, ink]}
//	steps:
//	  - stroke:
//	      name: Brush
//	      layer: ink
//	      jobs:
//	        - {op: line, from: [0, 0], to: [7, 0], color: "-"}
//	        - {op: dab, at: [3, 1], color: "*"}
//	  - undo: 1
//	  - redo: 1
package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"github.com/rivo/uniseg"
	"gopkg.in/yaml.v3"

	"github.com/dshills/strokeundo/internal/canvas"
	"github.com/dshills/strokeundo/internal/engine/history"
	"github.com/dshills/strokeundo/internal/engine/stroke"
)

// Job ops.
const (
	OpDab   = "dab"
	OpPaint = "paint"
	OpLine  = "line"
	OpFill  = "fill"
	OpClear = "clear"
)

// Scenario is a parsed scenario file.
type Scenario struct {
	Name   string     `yaml:"name"`
	Canvas CanvasSpec `yaml:"canvas"`
	Steps  []Step     `yaml:"steps"`
}

// CanvasSpec describes the canvas a scenario paints on.
type CanvasSpec struct {
	Width  int      `yaml:"width"`
	Height int      `yaml:"height"`
	Layers []string `yaml:"layers"`
}

// Step is one scenario action. Exactly one field must be set.
type Step struct {
	// Stroke runs a recorded stroke.
	Stroke *StrokeStep `yaml:"stroke,omitempty"`

	// Undo undoes that many history entries.
	Undo int `yaml:"undo,omitempty"`

	// Redo redoes that many history entries.
	Redo int `yaml:"redo,omitempty"`

	// Purge discards the redo-able tail.
	Purge bool `yaml:"purge,omitempty"`

	// Clean marks the current history position as clean.
	Clean bool `yaml:"clean,omitempty"`

	// Checkpoint records the history position under a label.
	Checkpoint string `yaml:"checkpoint,omitempty"`

	// Rewind undoes back to a recorded checkpoint.
	Rewind string `yaml:"rewind,omitempty"`

	// Forward redoes up to a recorded checkpoint.
	Forward string `yaml:"forward,omitempty"`
}

// StrokeStep is a stroke whose jobs are recorded as one history entry.
type StrokeStep struct {
	Name string `yaml:"name"`

	// Layer is the default layer of the jobs.
	Layer string `yaml:"layer"`

	// MergeID lets consecutive strokes with the same id and shape merge
	// into one history entry.
	MergeID int `yaml:"merge_id,omitempty"`

	// Cancel aborts the stroke after its jobs ran instead of ending it.
	Cancel bool `yaml:"cancel,omitempty"`

	Jobs []Job `yaml:"jobs"`
}

// Job is one paint operation.
type Job struct {
	Op     string  `yaml:"op"`
	Layer  string  `yaml:"layer,omitempty"`
	Color  string  `yaml:"color,omitempty"`
	At     []int   `yaml:"at,omitempty"`
	Points [][]int `yaml:"points,omitempty"`
	From   []int   `yaml:"from,omitempty"`
	To     []int   `yaml:"to,omitempty"`
	Rect   []int   `yaml:"rect,omitempty"`

	// Sequentiality is one of sequential, concurrent, barrier or
	// uniquely_concurrent. Empty means sequential.
	Sequentiality string `yaml:"sequentiality,omitempty"`

	// Exclusive marks the job exclusive.
	Exclusive bool `yaml:"exclusive,omitempty"`
}

// Parse parses and validates a scenario. Unknown keys are rejected.
func Parse(data []byte) (*Scenario, error) {
	return Load(bytes.NewReader(data))
}

// Load reads and validates a scenario from r.
func Load(r io.Reader) (*Scenario, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var sc Scenario
	if err := dec.Decode(&sc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty scenario")
		}
		return nil, fmt.Errorf("decode scenario: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// LoadFile reads and validates a scenario file.
func LoadFile(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sc, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sc, nil
}

// Validate checks the structure of the scenario. Coordinates are checked
// against the canvas when the commands are built.
func (sc *Scenario) Validate() error {
	if sc.Canvas.Width <= 0 || sc.Canvas.Height <= 0 {
		return fmt.Errorf("canvas: %w: size %dx%d", ErrInvalidStep, sc.Canvas.Width, sc.Canvas.Height)
	}
	for i, step := range sc.Steps {
		if err := step.validate(); err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
	}
	return nil
}

// NewCanvas creates the canvas described by the scenario.
func (sc *Scenario) NewCanvas() (*canvas.Canvas, error) {
	return canvas.New(sc.Canvas.Width, sc.Canvas.Height, sc.Canvas.Layers...)
}

func (s Step) validate() error {
	set := 0
	for _, ok := range []bool{
		s.Stroke != nil, s.Undo != 0, s.Redo != 0, s.Purge, s.Clean,
		s.Checkpoint != "", s.Rewind != "", s.Forward != "",
	} {
		if ok {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("%w: exactly one action per step, got %d", ErrInvalidStep, set)
	}
	if s.Undo < 0 || s.Redo < 0 {
		return fmt.Errorf("%w: negative count", ErrInvalidStep)
	}
	if s.Stroke != nil {
		return s.Stroke.validate()
	}
	return nil
}

func (s *StrokeStep) validate() error {
	if s.Name == "" {
		return fmt.Errorf("stroke: %w: missing name", ErrInvalidStep)
	}
	for i, job := range s.Jobs {
		if err := job.validate(s.Layer); err != nil {
			return fmt.Errorf("stroke %q job %d: %w", s.Name, i+1, err)
		}
	}
	return nil
}

func (j Job) validate(defaultLayer string) error {
	if j.layer(defaultLayer) == "" {
		return fmt.Errorf("%w: missing layer", ErrInvalidStep)
	}
	if _, err := parseSequentiality(j.Sequentiality); err != nil {
		return err
	}

	switch j.Op {
	case OpDab:
		return firstErr(j.needColor(), needPoint("at", j.At))
	case OpPaint:
		if len(j.Points) == 0 {
			return fmt.Errorf("%w: paint needs points", ErrInvalidStep)
		}
		for _, p := range j.Points {
			if err := needPoint("points", p); err != nil {
				return err
			}
		}
		return j.needColor()
	case OpLine:
		return firstErr(j.needColor(), needPoint("from", j.From), needPoint("to", j.To))
	case OpFill:
		if len(j.Rect) != 4 {
			return fmt.Errorf("%w: rect needs [x0, y0, x1, y1]", ErrInvalidStep)
		}
		return j.needColor()
	case OpClear:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownOp, j.Op)
	}
}

// Command builds the canvas command of the job.
func (j Job) Command(c *canvas.Canvas, defaultLayer string) (history.Command, error) {
	layer := j.layer(defaultLayer)
	color, _ := utf8.DecodeRuneInString(j.Color)

	switch j.Op {
	case OpDab:
		return canvas.NewDabCommand(c, layer, color, toPoint(j.At))
	case OpPaint:
		points := make([]canvas.Point, len(j.Points))
		for i, p := range j.Points {
			points[i] = toPoint(p)
		}
		return canvas.NewPaintCommand(c, layer, color, points...)
	case OpLine:
		return canvas.NewLineCommand(c, layer, color, toPoint(j.From), toPoint(j.To))
	case OpFill:
		r := canvas.Rect{
			Min: canvas.Point{X: j.Rect[0], Y: j.Rect[1]},
			Max: canvas.Point{X: j.Rect[2], Y: j.Rect[3]},
		}
		return canvas.NewFillCommand(c, layer, color, r)
	case OpClear:
		return canvas.NewClearCommand(c, layer)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownOp, j.Op)
	}
}

// Hints returns the scheduling hints of the job.
func (j Job) Hints() stroke.Hints {
	seq, _ := parseSequentiality(j.Sequentiality)
	excl := stroke.Normal
	if j.Exclusive {
		excl = stroke.Exclusive
	}
	return stroke.Hints{Seq: seq, Excl: excl}
}

func (j Job) layer(defaultLayer string) string {
	if j.Layer != "" {
		return j.Layer
	}
	return defaultLayer
}

func (j Job) needColor() error {
	if utf8.RuneCountInString(j.Color) != 1 {
		return fmt.Errorf("%w: color must be a single character, got %q", ErrInvalidStep, j.Color)
	}
	// Render prints one cell per column.
	if uniseg.StringWidth(j.Color) != 1 {
		return fmt.Errorf("%w: color %q is not one column wide", ErrInvalidStep, j.Color)
	}
	return nil
}

func needPoint(field string, p []int) error {
	if len(p) != 2 {
		return fmt.Errorf("%w: %s needs [x, y]", ErrInvalidStep, field)
	}
	return nil
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func toPoint(p []int) canvas.Point {
	return canvas.Point{X: p[0], Y: p[1]}
}

func parseSequentiality(s string) (stroke.Sequentiality, error) {
	switch s {
	case "", "sequential":
		return stroke.Sequential, nil
	case "concurrent":
		return stroke.Concurrent, nil
	case "barrier":
		return stroke.Barrier, nil
	case "uniquely_concurrent":
		return stroke.UniquelyConcurrent, nil
	default:
		return stroke.Sequential, fmt.Errorf("%w: unknown sequentiality %q", ErrInvalidStep, s)
	}
}
