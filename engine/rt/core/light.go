package core

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/vsRushy/AGP-Project2/engine/rt/gpu"
)

type LightType uint32

const (
	LightDirectional LightType = LightType(gpu.LightDirectional)
	LightPoint       LightType = LightType(gpu.LightPoint)
)

func (t LightType) String() string {
	switch t {
	case LightDirectional:
		return "directional"
	case LightPoint:
		return "point"
	}
	return fmt.Sprintf("LightType(%d)", uint32(t))
}

func ParseLightType(s string) (LightType, error) {
	switch s {
	case "directional":
		return LightDirectional, nil
	case "point":
		return LightPoint, nil
	}
	return 0, fmt.Errorf("unknown light type %q", s)
}

type Light struct {
	Type      LightType
	Color     mgl32.Vec3
	Direction mgl32.Vec3
	Position  mgl32.Vec3
	Radius    float32
	Intensity float32
}

// Block converts the light to its uniform block layout.
func (l Light) Block() gpu.LightBlock {
	return gpu.LightBlock{
		Type:      uint32(l.Type),
		Color:     l.Color,
		Direction: l.Direction,
		Intensity: l.Intensity,
		Position:  l.Position,
		Radius:    l.Radius,
	}
}

// Volume is the model matrix of the light's sphere volume.
func (l Light) Volume() mgl32.Mat4 {
	return TransformAt(l.Position, l.Radius).World()
}

func LightBlocks(lights []Light) []gpu.LightBlock {
	out := make([]gpu.LightBlock, len(lights))
	for i, l := range lights {
		out[i] = l.Block()
	}
	return out
}
