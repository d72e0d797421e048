package gpu

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Light types as the shaders see them.
const (
	LightDirectional uint32 = 0
	LightPoint       uint32 = 1
)

// MaxLights is the array length the shaders declare for the global block.
const MaxLights = 16

// LightBlock is one element of the global block's light array.
type LightBlock struct {
	Type      uint32
	Color     mgl32.Vec3
	Direction mgl32.Vec3
	Intensity float32
	Position  mgl32.Vec3
	Radius    float32
}

type FieldKind int

const (
	FieldFloat FieldKind = iota
	FieldInt
	FieldUint
	FieldVec2
	FieldVec3
	FieldVec4
	FieldMat4
	FieldStructArray
)

// std140 base alignment and size of scalar and vector kinds.
func (k FieldKind) std140() (align, size int) {
	switch k {
	case FieldFloat, FieldInt, FieldUint:
		return 4, 4
	case FieldVec2:
		return 8, 8
	case FieldVec3:
		return 16, 12
	case FieldVec4:
		return 16, 16
	case FieldMat4:
		return 16, 64
	}
	return 16, 0
}

type Field struct {
	Name string
	Kind FieldKind
	// Elem and Count describe a FieldStructArray.
	Elem  *Schema
	Count int
}

// Schema is the ordered field list of a uniform block or struct.
type Schema struct {
	Name   string
	Fields []Field
}

// FieldOffset is the byte offset of a leaf field, named with its array path
// (e.g. "lights[1].color").
type FieldOffset struct {
	Name   string
	Kind   FieldKind
	Offset int
}

func alignUp(v, a int) int {
	if a <= 1 {
		return v
	}
	return (v + a - 1) / a * a
}

// Size is the number of bytes the block occupies, up to the end of its last
// field.
func (s *Schema) Size() int {
	_, end := s.layout("", 0)
	return end
}

// Stride is the size of the schema used as an array element: rounded up to 16.
func (s *Schema) Stride() int { return alignUp(s.Size(), 16) }

func (s *Schema) Offsets() []FieldOffset {
	out, _ := s.layout("", 0)
	return out
}

// Offset looks up one leaf field by its path.
func (s *Schema) Offset(name string) (int, bool) {
	for _, f := range s.Offsets() {
		if f.Name == name {
			return f.Offset, true
		}
	}
	return 0, false
}

func (s *Schema) layout(prefix string, base int) ([]FieldOffset, int) {
	var out []FieldOffset
	head := base
	for _, f := range s.Fields {
		if f.Kind == FieldStructArray {
			stride := f.Elem.Stride()
			head = alignUp(head, 16)
			for i := 0; i < f.Count; i++ {
				sub, _ := f.Elem.layout(fmt.Sprintf("%s%s[%d].", prefix, f.Name, i), head+i*stride)
				out = append(out, sub...)
			}
			head += f.Count * stride
			continue
		}
		align, size := f.Kind.std140()
		head = alignUp(head, align)
		out = append(out, FieldOffset{Name: prefix + f.Name, Kind: f.Kind, Offset: head})
		head += size
	}
	return out, head
}

var lightSchema = &Schema{
	Name: "Light",
	Fields: []Field{
		{Name: "type", Kind: FieldUint},
		{Name: "color", Kind: FieldVec3},
		{Name: "direction", Kind: FieldVec3},
		{Name: "intensity", Kind: FieldFloat},
		{Name: "position", Kind: FieldVec3},
		{Name: "radius", Kind: FieldFloat},
	},
}

// GlobalSchema is the per-frame block for n lights.
func GlobalSchema(n int) *Schema {
	return &Schema{
		Name: "GlobalParams",
		Fields: []Field{
			{Name: "cameraPosition", Kind: FieldVec3},
			{Name: "lightCount", Kind: FieldUint},
			{Name: "lights", Kind: FieldStructArray, Elem: lightSchema, Count: n},
		},
	}
}

var InstanceSchema = &Schema{
	Name: "LocalParams",
	Fields: []Field{
		{Name: "world", Kind: FieldMat4},
		{Name: "worldViewProjection", Kind: FieldMat4},
	},
}

// Encoder writes std140 fields sequentially, realigning before each one.
type Encoder struct {
	buf []byte
}

func (e *Encoder) Reset()        { e.buf = e.buf[:0] }
func (e *Encoder) Len() int      { return len(e.buf) }
func (e *Encoder) Bytes() []byte { return e.buf }

// Align pads with zeros up to a multiple of n.
func (e *Encoder) Align(n int) {
	for len(e.buf) < alignUp(len(e.buf), n) {
		e.buf = append(e.buf, 0)
	}
}

func (e *Encoder) Uint(v uint32) {
	e.Align(4)
	e.buf = binary.LittleEndian.AppendUint32(e.buf, v)
}

func (e *Encoder) Int(v int32) { e.Uint(uint32(v)) }

func (e *Encoder) Float(v float32) { e.Uint(math.Float32bits(v)) }

func (e *Encoder) floats(v []float32) {
	for _, f := range v {
		e.buf = binary.LittleEndian.AppendUint32(e.buf, math.Float32bits(f))
	}
}

func (e *Encoder) Vec2(v mgl32.Vec2) {
	e.Align(8)
	e.floats(v[:])
}

func (e *Encoder) Vec3(v mgl32.Vec3) {
	e.Align(16)
	e.floats(v[:])
}

func (e *Encoder) Vec4(v mgl32.Vec4) {
	e.Align(16)
	e.floats(v[:])
}

// Mat4 writes column-major, matching mgl32's storage.
func (e *Encoder) Mat4(m mgl32.Mat4) {
	e.Align(16)
	e.floats(m[:])
}

func (e *Encoder) Light(l LightBlock) {
	e.Align(16)
	e.Uint(l.Type)
	e.Vec3(l.Color)
	e.Vec3(l.Direction)
	e.Float(l.Intensity)
	e.Vec3(l.Position)
	e.Float(l.Radius)
}
