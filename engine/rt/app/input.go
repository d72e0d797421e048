package app

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/vsRushy/AGP-Project2/engine/rt/core"
)

// Input collects window events between two updates.
type Input struct {
	Held        map[core.MoveDir]bool
	MouseDelta  mgl32.Vec2
	Scroll      float32
	Looking     bool // camera follows the mouse
	ToggleMode  bool
	ToggleDebug bool

	lastCursor mgl32.Vec2
	hasCursor  bool
}

func NewInput() *Input {
	return &Input{Held: make(map[core.MoveDir]bool)}
}

func (in *Input) SetKey(dir core.MoveDir, down bool) {
	in.Held[dir] = down
}

// CursorMoved accumulates the delta from the previous cursor position. Y
// grows downwards on screen, so it is flipped for pitch.
func (in *Input) CursorMoved(x, y float32) {
	p := mgl32.Vec2{x, y}
	if in.hasCursor && in.Looking {
		d := p.Sub(in.lastCursor)
		in.MouseDelta = in.MouseDelta.Add(mgl32.Vec2{d.X(), -d.Y()})
	}
	in.lastCursor = p
	in.hasCursor = true
}

func (in *Input) Scrolled(dy float32) {
	in.Scroll += dy
}

// Apply moves and turns the camera by everything gathered since the last
// Consume.
func (in *Input) Apply(cam *core.Camera) {
	for dir, down := range in.Held {
		if down {
			cam.Move(dir)
		}
	}
	if in.MouseDelta != (mgl32.Vec2{}) {
		cam.Rotate(in.MouseDelta.X(), in.MouseDelta.Y())
	}
	if in.Scroll != 0 {
		cam.Zoom(in.Scroll)
	}
}

// Consume clears the per-update deltas. Held keys stay held.
func (in *Input) Consume() {
	in.MouseDelta = mgl32.Vec2{}
	in.Scroll = 0
	in.ToggleMode = false
	in.ToggleDebug = false
}
