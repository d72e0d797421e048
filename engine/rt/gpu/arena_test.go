package gpu_test

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsRushy/AGP-Project2/engine/rt/gpu"
	"github.com/vsRushy/AGP-Project2/engine/rt/gpu/gputest"
)

func TestArena_InstanceOffsetsAreAligned(t *testing.T) {
	rec := gputest.NewRecorder()
	arena := gpu.NewUniformArena(rec, nil)
	require.Equal(t, 256, arena.Alignment())
	require.NoError(t, arena.BeginFrame())

	var offsets []int
	for i := 0; i < 3; i++ {
		b, err := arena.PushInstanceBlock(mgl32.Ident4(), mgl32.Ident4())
		require.NoError(t, err)
		assert.Equal(t, 128, b.Size)
		offsets = append(offsets, b.Offset)
	}
	arena.EndFrame()
	assert.Equal(t, []int{0, 256, 512}, offsets)
}

func TestArena_MixedPushesStayAligned(t *testing.T) {
	rec := gputest.NewRecorder()
	arena := gpu.NewUniformArena(rec, nil)
	require.NoError(t, arena.BeginFrame())
	defer arena.EndFrame()

	lights := []gpu.LightBlock{{Type: gpu.LightPoint}, {Type: gpu.LightDirectional}, {Type: gpu.LightPoint}}
	for i := 0; i < 10; i++ {
		g, err := arena.PushGlobalBlock(mgl32.Vec3{}, lights[:i%4])
		require.NoError(t, err)
		assert.Zero(t, g.Offset%256)
		b, err := arena.PushInstanceBlock(mgl32.Ident4(), mgl32.Ident4())
		require.NoError(t, err)
		assert.Zero(t, b.Offset%256)

		_, err = arena.Push("odd", make([]byte, 3), 0)
		require.NoError(t, err)
	}
}

func TestArena_CapacityEnforced(t *testing.T) {
	rec := gputest.NewRecorder()
	arena := gpu.NewUniformArenaSized(rec, 65536, 256, nil)
	require.NoError(t, arena.BeginFrame())

	payload := make([]byte, 128)
	for i := range payload {
		payload[i] = 0xAB
	}

	var failedAt int
	var capErr *gpu.CapacityError
	for i := 0; i < 600; i++ {
		_, err := arena.Push("instance", payload, 0)
		if err != nil {
			require.True(t, errors.As(err, &capErr))
			failedAt = i
			break
		}
	}
	arena.EndFrame()

	assert.Equal(t, 256, failedAt, "the 257th push is the first that does not fit")
	assert.Equal(t, 65536, capErr.Offset)
	assert.Equal(t, 128, capErr.Over())
	assert.Contains(t, capErr.Error(), "by 128 bytes")

	data := rec.BufferData(arena.Buffer())
	require.Len(t, data, 65536)
	assert.Equal(t, byte(0xAB), data[255*256+127], "last fitting block written")
	assert.Equal(t, byte(0), data[255*256+128], "padding after it untouched")
	assert.Equal(t, 255*256+128, arena.Head(), "head not advanced by the failed push")
}

func TestArena_PushOutsideFrame(t *testing.T) {
	rec := gputest.NewRecorder()
	arena := gpu.NewUniformArena(rec, nil)

	_, err := arena.PushInstanceBlock(mgl32.Ident4(), mgl32.Ident4())
	assert.ErrorIs(t, err, gpu.ErrNotMapped)

	require.NoError(t, arena.BeginFrame())
	assert.True(t, rec.Mapped(arena.Buffer()))
	arena.EndFrame()
	assert.False(t, rec.Mapped(arena.Buffer()))

	_, err = arena.PushGlobalBlock(mgl32.Vec3{}, nil)
	assert.ErrorIs(t, err, gpu.ErrNotMapped)
}

func TestArena_BeginFrameResetsHead(t *testing.T) {
	rec := gputest.NewRecorder()
	arena := gpu.NewUniformArena(rec, nil)

	require.NoError(t, arena.BeginFrame())
	_, err := arena.PushInstanceBlock(mgl32.Ident4(), mgl32.Ident4())
	require.NoError(t, err)
	arena.EndFrame()

	require.NoError(t, arena.BeginFrame())
	b, err := arena.PushInstanceBlock(mgl32.Ident4(), mgl32.Ident4())
	require.NoError(t, err)
	arena.EndFrame()
	assert.Equal(t, 0, b.Offset)
}

func TestArena_MapFailure(t *testing.T) {
	rec := gputest.NewRecorder()
	arena := gpu.NewUniformArena(rec, nil)
	rec.FailMap = true
	assert.Error(t, arena.BeginFrame())
	assert.False(t, arena.Mapped())
}

func readFloat(data []byte, off int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(data[off:]))
}

func readVec3(data []byte, off int) mgl32.Vec3 {
	return mgl32.Vec3{readFloat(data, off), readFloat(data, off+4), readFloat(data, off+8)}
}

func TestArena_GlobalBlockMatchesSchema(t *testing.T) {
	rec := gputest.NewRecorder()
	arena := gpu.NewUniformArena(rec, nil)
	require.NoError(t, arena.BeginFrame())

	// shift the block off zero so offsets are absolute
	_, err := arena.Push("pad", make([]byte, 8), 0)
	require.NoError(t, err)

	lights := []gpu.LightBlock{
		{Type: gpu.LightDirectional, Color: mgl32.Vec3{1, 0.5, 0.25}, Direction: mgl32.Vec3{0, -1, 0}, Intensity: 0.75},
		{Type: gpu.LightPoint, Color: mgl32.Vec3{0, 1, 0}, Position: mgl32.Vec3{3, 4, 5}, Radius: 6, Intensity: 2},
	}
	cam := mgl32.Vec3{7, 8, 9}
	block, err := arena.PushGlobalBlock(cam, lights)
	require.NoError(t, err)
	arena.EndFrame()

	schema := gpu.GlobalSchema(len(lights))
	assert.Equal(t, schema.Size(), block.Size)
	assert.Equal(t, 16+64*len(lights), block.Size)

	data := rec.BufferData(arena.Buffer())[block.Offset:]
	off := func(name string) int {
		o, ok := schema.Offset(name)
		require.True(t, ok, name)
		return o
	}

	assert.Equal(t, cam, readVec3(data, off("cameraPosition")))
	assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(data[off("lightCount"):]))
	for i, l := range lights {
		prefix := "lights[" + string(rune('0'+i)) + "]."
		assert.Equal(t, l.Type, binary.LittleEndian.Uint32(data[off(prefix+"type"):]))
		assert.Equal(t, l.Color, readVec3(data, off(prefix+"color")))
		assert.Equal(t, l.Direction, readVec3(data, off(prefix+"direction")))
		assert.Equal(t, l.Intensity, readFloat(data, off(prefix+"intensity")))
		assert.Equal(t, l.Position, readVec3(data, off(prefix+"position")))
		assert.Equal(t, l.Radius, readFloat(data, off(prefix+"radius")))
	}
}

func TestArena_InstanceBlockMatchesSchema(t *testing.T) {
	rec := gputest.NewRecorder()
	arena := gpu.NewUniformArena(rec, nil)
	require.NoError(t, arena.BeginFrame())

	world := mgl32.Translate3D(1, 2, 3)
	vp := mgl32.Perspective(mgl32.DegToRad(60), 1.5, 0.1, 100)
	block, err := arena.PushInstanceBlock(world, vp)
	require.NoError(t, err)
	arena.EndFrame()

	assert.Equal(t, gpu.InstanceSchema.Size(), block.Size)
	data := rec.BufferData(arena.Buffer())[block.Offset:]

	wOff, _ := gpu.InstanceSchema.Offset("world")
	wvpOff, _ := gpu.InstanceSchema.Offset("worldViewProjection")
	wvp := vp.Mul4(world)
	for i := 0; i < 16; i++ {
		assert.Equal(t, world[i], readFloat(data, wOff+4*i))
		assert.Equal(t, wvp[i], readFloat(data, wvpOff+4*i))
	}
}

func TestArena_BindRange(t *testing.T) {
	rec := gputest.NewRecorder()
	arena := gpu.NewUniformArena(rec, nil)
	arena.BindRange(gpu.InstanceBlockBinding, gpu.Block{Offset: 512, Size: 128})
	assert.Contains(t, rec.Ops, "BindBufferRange 1 offset=512 size=128")
}

func TestSchema_Std140Offsets(t *testing.T) {
	schema := gpu.GlobalSchema(2)
	want := map[string]int{
		"cameraPosition":      0,
		"lightCount":          12,
		"lights[0].type":      16,
		"lights[0].color":     32,
		"lights[0].direction": 48,
		"lights[0].intensity": 60,
		"lights[0].position":  64,
		"lights[0].radius":    76,
		"lights[1].type":      80,
	}
	for name, offset := range want {
		got, ok := schema.Offset(name)
		require.True(t, ok, name)
		assert.Equal(t, offset, got, name)
	}
	assert.Equal(t, 144, schema.Size())

	mixed := &gpu.Schema{Fields: []gpu.Field{
		{Name: "a", Kind: gpu.FieldFloat},
		{Name: "b", Kind: gpu.FieldVec2},
		{Name: "c", Kind: gpu.FieldVec4},
		{Name: "d", Kind: gpu.FieldInt},
		{Name: "e", Kind: gpu.FieldMat4},
	}}
	offsets := mixed.Offsets()
	got := make([]int, len(offsets))
	for i, o := range offsets {
		got[i] = o.Offset
	}
	assert.Equal(t, []int{0, 8, 16, 32, 48}, got)
	assert.Equal(t, 112, mixed.Size())
}
