package gpu

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	agp "github.com/vsRushy/AGP-Project2"
)

// Uniform buffer binding points shared with the shaders.
const (
	GlobalBlockBinding   uint32 = 0
	InstanceBlockBinding uint32 = 1
)

var ErrNotMapped = errors.New("uniform arena: push outside BeginFrame/EndFrame")

// Block is a range of the arena written this frame.
type Block struct {
	Offset int
	Size   int
}

func (b Block) Empty() bool { return b.Size == 0 }

type CapacityError struct {
	Block    string
	Offset   int
	Size     int
	Capacity int
}

// Over is the number of bytes the push would have written past the end.
func (e *CapacityError) Over() int { return e.Offset + e.Size - e.Capacity }

func (e *CapacityError) Error() string {
	return fmt.Sprintf("uniform arena: %s block of %d bytes at offset %d exceeds capacity %d by %d bytes",
		e.Block, e.Size, e.Offset, e.Capacity, e.Over())
}

// UniformArena is a bump allocator over a single uniform buffer. The buffer is
// mapped between BeginFrame and EndFrame and all blocks are invalidated by the
// next BeginFrame. There is one buffer only, so mapping waits for the GPU to
// finish with the previous frame's contents.
type UniformArena struct {
	device    Device
	log       agp.Logger
	buffer    Handle
	capacity  int
	alignment int

	head   int
	mapped []byte
	enc    Encoder

	// per-frame stats
	blocks   int
	peakHead int
}

// NewUniformArena sizes the arena from the device limits.
func NewUniformArena(device Device, log agp.Logger) *UniformArena {
	limits := device.Limits()
	return NewUniformArenaSized(device, limits.MaxUniformBlockSize, limits.UniformOffsetAlignment, log)
}

func NewUniformArenaSized(device Device, capacity, alignment int, log agp.Logger) *UniformArena {
	if alignment <= 0 {
		alignment = 1
	}
	a := &UniformArena{
		device:    device,
		log:       agp.OrNop(log),
		capacity:  capacity,
		alignment: alignment,
	}
	a.buffer = device.CreateBuffer(UniformBuffer, capacity, nil, StreamDraw)
	a.log.Debugf("uniform arena: %d bytes, alignment %d, buffer %d", capacity, alignment, a.buffer)
	return a
}

func (a *UniformArena) Buffer() Handle  { return a.buffer }
func (a *UniformArena) Capacity() int   { return a.capacity }
func (a *UniformArena) Alignment() int  { return a.alignment }
func (a *UniformArena) Head() int       { return a.head }
func (a *UniformArena) Mapped() bool    { return a.mapped != nil }
func (a *UniformArena) BlockCount() int { return a.blocks }

func (a *UniformArena) BeginFrame() error {
	if a.mapped != nil {
		return errors.New("uniform arena: BeginFrame while already mapped")
	}
	data, err := a.device.MapBuffer(UniformBuffer, a.buffer, a.capacity)
	if err != nil {
		return fmt.Errorf("uniform arena: %w", err)
	}
	a.mapped = data
	a.head = 0
	a.blocks = 0
	return nil
}

// Push copies payload at the next multiple of align (the hardware alignment
// when align <= 0). Nothing is written if the payload does not fit.
func (a *UniformArena) Push(name string, payload []byte, align int) (Block, error) {
	if a.mapped == nil {
		return Block{}, ErrNotMapped
	}
	if align <= 0 {
		align = a.alignment
	}
	offset := alignUp(a.head, align)
	if offset+len(payload) > a.capacity {
		return Block{}, &CapacityError{Block: name, Offset: offset, Size: len(payload), Capacity: a.capacity}
	}
	copy(a.mapped[offset:], payload)
	a.head = offset + len(payload)
	a.blocks++
	if a.head > a.peakHead {
		a.peakHead = a.head
	}
	return Block{Offset: offset, Size: len(payload)}, nil
}

func (a *UniformArena) PushGlobalBlock(cameraPos mgl32.Vec3, lights []LightBlock) (Block, error) {
	a.enc.Reset()
	a.enc.Vec3(cameraPos)
	a.enc.Uint(uint32(len(lights)))
	for _, l := range lights {
		a.enc.Light(l)
	}
	return a.Push("global", a.enc.Bytes(), a.alignment)
}

func (a *UniformArena) PushInstanceBlock(world, viewProjection mgl32.Mat4) (Block, error) {
	a.enc.Reset()
	a.enc.Mat4(world)
	a.enc.Mat4(viewProjection.Mul4(world))
	return a.Push("instance", a.enc.Bytes(), a.alignment)
}

// EndFrame releases the mapping. Blocks stay valid for this frame's draws.
func (a *UniformArena) EndFrame() {
	if a.mapped == nil {
		return
	}
	a.device.UnmapBuffer(UniformBuffer, a.buffer)
	a.mapped = nil
}

func (a *UniformArena) BindRange(index uint32, b Block) {
	a.device.BindBufferRange(UniformBuffer, index, a.buffer, b.Offset, b.Size)
}

// PeakUsage is the highest head position reached since creation.
func (a *UniformArena) PeakUsage() int { return a.peakHead }

func (a *UniformArena) Release() {
	a.EndFrame()
	if a.buffer != NoHandle {
		a.device.DeleteBuffer(a.buffer)
		a.buffer = NoHandle
	}
}
