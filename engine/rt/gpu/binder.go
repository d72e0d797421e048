package gpu

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	agp "github.com/vsRushy/AGP-Project2"
)

// VertexBufferAttribute describes where one attribute lives inside a vertex.
type VertexBufferAttribute struct {
	Location       uint32
	ComponentCount int32
	Offset         int
}

type VertexBufferLayout struct {
	Attributes []VertexBufferAttribute
	Stride     int32
}

func (l VertexBufferLayout) Find(location uint32) (VertexBufferAttribute, bool) {
	for _, a := range l.Attributes {
		if a.Location == location {
			return a, true
		}
	}
	return VertexBufferAttribute{}, false
}

func (l VertexBufferLayout) Locations() []uint32 {
	locs := make([]uint32, 0, len(l.Attributes))
	for _, a := range l.Attributes {
		locs = append(locs, a.Location)
	}
	return locs
}

// VertexShaderAttribute is one input a linked program reads.
type VertexShaderAttribute struct {
	Location       uint32
	ComponentCount int32
}

type VertexShaderLayout struct {
	Attributes []VertexShaderAttribute
}

// NewVertexShaderLayout builds a layout from introspected attributes, ordered
// by location.
func NewVertexShaderLayout(attrs []AttributeInfo) VertexShaderLayout {
	out := make([]VertexShaderAttribute, 0, len(attrs))
	for _, a := range attrs {
		out = append(out, VertexShaderAttribute{Location: a.Location, ComponentCount: a.ComponentCount})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Location < out[j].Location })
	return VertexShaderLayout{Attributes: out}
}

// ProgramKey identifies one linked revision of a program. A reload that
// changes the inputs produces a new key, so bindings built for the old
// revision are never handed out for the new one.
type ProgramKey struct {
	ID       uuid.UUID
	Revision uint32
}

func (k ProgramKey) String() string { return fmt.Sprintf("%s@%d", k.ID, k.Revision) }

// ProgramInput is what the binder needs to know about a program.
type ProgramInput interface {
	Key() ProgramKey
	ProgramName() string
	InputLayout() VertexShaderLayout
}

// Binding is the vertex array that feeds one mesh part to one program revision.
type Binding struct {
	VertexArray Handle
	Key         ProgramKey
	Enabled     []uint32
}

// MeshPart is a byte range of a mesh's shared vertex and index buffers.
type MeshPart struct {
	Name         string
	VertexBuffer Handle
	IndexBuffer  Handle
	VertexOffset int
	IndexOffset  int
	IndexCount   int32
	IndexType    IndexType
	Layout       VertexBufferLayout

	bindings map[ProgramKey]*Binding
}

func (p *MeshPart) Binding(key ProgramKey) (*Binding, bool) {
	b, ok := p.bindings[key]
	return b, ok
}

func (p *MeshPart) BindingCount() int { return len(p.bindings) }

// Release deletes every binding built for this part. The shared buffers are
// owned by the mesh and are not touched.
func (p *MeshPart) Release(device Device) {
	for key, b := range p.bindings {
		device.DeleteVertexArray(b.VertexArray)
		delete(p.bindings, key)
	}
}

type MissingAttributeError struct {
	Program   string
	Part      string
	Location  uint32
	Available []uint32
}

func (e *MissingAttributeError) Error() string {
	return fmt.Sprintf("program %q reads attribute location %d but mesh part %q only provides %v",
		e.Program, e.Location, e.Part, e.Available)
}

// Binder builds and caches vertex arrays per (mesh part, program revision).
type Binder struct {
	device Device
	log    agp.Logger

	// Strict panics on a missing attribute instead of returning the error.
	Strict bool

	created int
}

func NewBinder(device Device, log agp.Logger) *Binder {
	return &Binder{device: device, log: agp.OrNop(log)}
}

// Created reports how many vertex arrays the binder has allocated.
func (b *Binder) Created() int { return b.created }

func (b *Binder) GetOrCreateBinding(part *MeshPart, program ProgramInput) (*Binding, error) {
	key := program.Key()
	if binding, ok := part.bindings[key]; ok {
		return binding, nil
	}

	// Resolve everything before touching the device so a failed match leaves
	// no half-built vertex array behind.
	inputs := program.InputLayout().Attributes
	resolved := make([]VertexBufferAttribute, 0, len(inputs))
	for _, in := range inputs {
		entry, ok := part.Layout.Find(in.Location)
		if !ok {
			err := &MissingAttributeError{
				Program:   program.ProgramName(),
				Part:      part.Name,
				Location:  in.Location,
				Available: part.Layout.Locations(),
			}
			if b.Strict {
				panic(err)
			}
			return nil, err
		}
		resolved = append(resolved, entry)
	}

	vao := b.device.CreateVertexArray()
	b.device.BindVertexArray(vao)
	b.device.BindBuffer(ArrayBuffer, part.VertexBuffer)
	b.device.BindBuffer(ElementArrayBuffer, part.IndexBuffer)

	enabled := make([]uint32, 0, len(resolved))
	for _, entry := range resolved {
		b.device.VertexAttribPointer(entry.Location, entry.ComponentCount, part.Layout.Stride, entry.Offset+part.VertexOffset)
		b.device.EnableVertexAttribArray(entry.Location)
		enabled = append(enabled, entry.Location)
	}
	b.device.BindVertexArray(NoHandle)

	binding := &Binding{VertexArray: vao, Key: key, Enabled: enabled}
	if part.bindings == nil {
		part.bindings = make(map[ProgramKey]*Binding)
	}
	part.bindings[key] = binding
	b.created++

	b.log.Debugf("binding: part %q + program %q (%s) -> vao %d, locations %v",
		part.Name, program.ProgramName(), key, vao, enabled)
	return binding, nil
}
