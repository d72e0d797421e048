package gpu

import (
	"fmt"
	"strings"
	"unsafe"

	"github.com/go-gl/gl/v4.3-core/gl"
)

// GLDevice issues commands against the current OpenGL 4.3 core context.
// gl.Init must have succeeded on the calling thread before use.
type GLDevice struct {
	info   Info
	limits Limits

	program boundProgram
}

// boundProgram mirrors the GL program binding so repeated UseProgram calls
// for the same program are not sent to the driver.
type boundProgram uint32

// bind records h and reports whether the driver binding has to change.
func (b *boundProgram) bind(h uint32) bool {
	if uint32(*b) == h {
		return false
	}
	*b = boundProgram(h)
	return true
}

// forget drops the record when h is deleted, since GL may hand out the same
// name again.
func (b *boundProgram) forget(h uint32) {
	if uint32(*b) == h {
		*b = 0
	}
}

// nameBufferSize turns an ACTIVE_*_MAX_LENGTH query, which counts the
// terminating NUL, into a buffer length that always has room for it.
func nameBufferSize(maxLength int32) int {
	if maxLength < 1 {
		return 1
	}
	return int(maxLength)
}

func NewGLDevice() (*GLDevice, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("gl init: %w", err)
	}

	d := &GLDevice{}
	d.info = Info{
		Version:     gl.GoStr(gl.GetString(gl.VERSION)),
		Renderer:    gl.GoStr(gl.GetString(gl.RENDERER)),
		Vendor:      gl.GoStr(gl.GetString(gl.VENDOR)),
		GLSLVersion: gl.GoStr(gl.GetString(gl.SHADING_LANGUAGE_VERSION)),
	}

	var v int32
	gl.GetIntegerv(gl.MAX_UNIFORM_BLOCK_SIZE, &v)
	d.limits.MaxUniformBlockSize = int(v)
	gl.GetIntegerv(gl.UNIFORM_BUFFER_OFFSET_ALIGNMENT, &v)
	d.limits.UniformOffsetAlignment = int(v)
	gl.GetIntegerv(gl.MAX_COLOR_ATTACHMENTS, &v)
	d.limits.MaxColorAttachments = int(v)
	gl.GetIntegerv(gl.MAX_COMBINED_TEXTURE_IMAGE_UNITS, &v)
	d.limits.MaxCombinedTextureUnits = int(v)

	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	return d, nil
}

func (d *GLDevice) Info() Info     { return d.info }
func (d *GLDevice) Limits() Limits { return d.limits }

func glBufferTarget(t BufferTarget) uint32 {
	switch t {
	case ElementArrayBuffer:
		return gl.ELEMENT_ARRAY_BUFFER
	case UniformBuffer:
		return gl.UNIFORM_BUFFER
	}
	return gl.ARRAY_BUFFER
}

func glUsage(u BufferUsage) uint32 {
	switch u {
	case DynamicDraw:
		return gl.DYNAMIC_DRAW
	case StreamDraw:
		return gl.STREAM_DRAW
	}
	return gl.STATIC_DRAW
}

func (d *GLDevice) CreateBuffer(target BufferTarget, size int, data []byte, usage BufferUsage) Handle {
	var h uint32
	gl.GenBuffers(1, &h)
	t := glBufferTarget(target)
	gl.BindBuffer(t, h)
	var ptr unsafe.Pointer
	if len(data) > 0 {
		ptr = gl.Ptr(data)
	}
	gl.BufferData(t, size, ptr, glUsage(usage))
	gl.BindBuffer(t, 0)
	return Handle(h)
}

func (d *GLDevice) DeleteBuffer(h Handle) {
	name := uint32(h)
	gl.DeleteBuffers(1, &name)
}

func (d *GLDevice) BindBuffer(target BufferTarget, h Handle) {
	gl.BindBuffer(glBufferTarget(target), uint32(h))
}

func (d *GLDevice) MapBuffer(target BufferTarget, h Handle, size int) ([]byte, error) {
	t := glBufferTarget(target)
	gl.BindBuffer(t, uint32(h))
	ptr := gl.MapBufferRange(t, 0, size, gl.MAP_WRITE_BIT|gl.MAP_INVALIDATE_BUFFER_BIT)
	if ptr == nil {
		gl.BindBuffer(t, 0)
		return nil, fmt.Errorf("map buffer %d: driver returned no mapping", h)
	}
	return unsafe.Slice((*byte)(ptr), size), nil
}

func (d *GLDevice) UnmapBuffer(target BufferTarget, h Handle) {
	t := glBufferTarget(target)
	gl.BindBuffer(t, uint32(h))
	gl.UnmapBuffer(t)
	gl.BindBuffer(t, 0)
}

func (d *GLDevice) BindBufferRange(target BufferTarget, index uint32, h Handle, offset, size int) {
	gl.BindBufferRange(glBufferTarget(target), index, uint32(h), offset, size)
}

func (d *GLDevice) CreateVertexArray() Handle {
	var h uint32
	gl.GenVertexArrays(1, &h)
	return Handle(h)
}

func (d *GLDevice) DeleteVertexArray(h Handle) {
	name := uint32(h)
	gl.DeleteVertexArrays(1, &name)
}

func (d *GLDevice) BindVertexArray(h Handle) { gl.BindVertexArray(uint32(h)) }

func (d *GLDevice) VertexAttribPointer(location uint32, components int32, stride int32, offset int) {
	gl.VertexAttribPointer(location, components, gl.FLOAT, false, stride, gl.PtrOffset(offset))
}

func (d *GLDevice) EnableVertexAttribArray(location uint32) { gl.EnableVertexAttribArray(location) }

// glFormat returns internal format, pixel format and pixel type.
func glFormat(f TextureFormat) (int32, uint32, uint32) {
	switch f {
	case FormatRGB8:
		return gl.RGB8, gl.RGB, gl.UNSIGNED_BYTE
	case FormatRGBA16F:
		return gl.RGBA16F, gl.RGBA, gl.FLOAT
	case FormatDepth24:
		return gl.DEPTH_COMPONENT24, gl.DEPTH_COMPONENT, gl.FLOAT
	}
	return gl.RGBA8, gl.RGBA, gl.UNSIGNED_BYTE
}

func (d *GLDevice) CreateTexture2D(desc TextureDesc, pixels []byte) Handle {
	var h uint32
	gl.GenTextures(1, &h)
	gl.BindTexture(gl.TEXTURE_2D, h)

	internal, format, xtype := glFormat(desc.Format)
	var ptr unsafe.Pointer
	if len(pixels) > 0 {
		ptr = gl.Ptr(pixels)
	}
	gl.TexImage2D(gl.TEXTURE_2D, 0, internal, int32(desc.Width), int32(desc.Height), 0, format, xtype, ptr)

	minFilter, magFilter := int32(gl.LINEAR), int32(gl.LINEAR)
	switch desc.Filter {
	case FilterNearest:
		minFilter, magFilter = gl.NEAREST, gl.NEAREST
	case FilterLinearMipmap:
		minFilter = gl.LINEAR_MIPMAP_LINEAR
	}
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, minFilter)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, magFilter)

	wrap := int32(gl.CLAMP_TO_EDGE)
	if desc.Repeat {
		wrap = gl.REPEAT
	}
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, wrap)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, wrap)

	if desc.Mipmaps {
		gl.GenerateMipmap(gl.TEXTURE_2D)
	}
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return Handle(h)
}

func (d *GLDevice) CreateCubemap(size int, faces [6][]byte) Handle {
	var h uint32
	gl.GenTextures(1, &h)
	gl.BindTexture(gl.TEXTURE_CUBE_MAP, h)
	for i, face := range faces {
		var ptr unsafe.Pointer
		if len(face) > 0 {
			ptr = gl.Ptr(face)
		}
		gl.TexImage2D(gl.TEXTURE_CUBE_MAP_POSITIVE_X+uint32(i), 0, gl.RGBA8, int32(size), int32(size), 0, gl.RGBA, gl.UNSIGNED_BYTE, ptr)
	}
	gl.TexParameteri(gl.TEXTURE_CUBE_MAP, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_CUBE_MAP, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_CUBE_MAP, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_CUBE_MAP, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_CUBE_MAP, gl.TEXTURE_WRAP_R, gl.CLAMP_TO_EDGE)
	gl.BindTexture(gl.TEXTURE_CUBE_MAP, 0)
	return Handle(h)
}

func (d *GLDevice) DeleteTexture(h Handle) {
	name := uint32(h)
	gl.DeleteTextures(1, &name)
}

func (d *GLDevice) BindTexture(unit uint32, h Handle) {
	gl.ActiveTexture(gl.TEXTURE0 + unit)
	gl.BindTexture(gl.TEXTURE_2D, uint32(h))
}

func (d *GLDevice) BindCubemap(unit uint32, h Handle) {
	gl.ActiveTexture(gl.TEXTURE0 + unit)
	gl.BindTexture(gl.TEXTURE_CUBE_MAP, uint32(h))
}

func (d *GLDevice) CreateFramebuffer() Handle {
	var h uint32
	gl.GenFramebuffers(1, &h)
	return Handle(h)
}

func (d *GLDevice) DeleteFramebuffer(h Handle) {
	name := uint32(h)
	gl.DeleteFramebuffers(1, &name)
}

func glAttachment(p AttachmentPoint) uint32 {
	if p == DepthAttachment {
		return gl.DEPTH_ATTACHMENT
	}
	return gl.COLOR_ATTACHMENT0 + uint32(p-ColorAttachment0)
}

func (d *GLDevice) AttachTexture(fb Handle, point AttachmentPoint, tex Handle) {
	gl.BindFramebuffer(gl.FRAMEBUFFER, uint32(fb))
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, glAttachment(point), gl.TEXTURE_2D, uint32(tex), 0)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
}

func (d *GLDevice) SetDrawBuffers(fb Handle, n int) {
	gl.BindFramebuffer(gl.FRAMEBUFFER, uint32(fb))
	if n == 0 {
		gl.DrawBuffer(gl.NONE)
	} else {
		bufs := make([]uint32, n)
		for i := range bufs {
			bufs[i] = gl.COLOR_ATTACHMENT0 + uint32(i)
		}
		gl.DrawBuffers(int32(n), &bufs[0])
	}
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
}

func (d *GLDevice) CheckFramebufferStatus(fb Handle) FramebufferStatus {
	gl.BindFramebuffer(gl.FRAMEBUFFER, uint32(fb))
	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)

	switch status {
	case gl.FRAMEBUFFER_COMPLETE:
		return StatusComplete
	case gl.FRAMEBUFFER_UNDEFINED:
		return StatusUndefined
	case gl.FRAMEBUFFER_INCOMPLETE_ATTACHMENT:
		return StatusIncompleteAttachment
	case gl.FRAMEBUFFER_INCOMPLETE_MISSING_ATTACHMENT:
		return StatusMissingAttachment
	case gl.FRAMEBUFFER_INCOMPLETE_DRAW_BUFFER:
		return StatusIncompleteDrawBuffer
	case gl.FRAMEBUFFER_INCOMPLETE_READ_BUFFER:
		return StatusIncompleteReadBuffer
	case gl.FRAMEBUFFER_UNSUPPORTED:
		return StatusUnsupported
	case gl.FRAMEBUFFER_INCOMPLETE_MULTISAMPLE:
		return StatusIncompleteMultisample
	case gl.FRAMEBUFFER_INCOMPLETE_LAYER_TARGETS:
		return StatusIncompleteLayerTargets
	}
	return StatusUnknown
}

func (d *GLDevice) BindFramebuffer(fb Handle) { gl.BindFramebuffer(gl.FRAMEBUFFER, uint32(fb)) }

func (d *GLDevice) BlitFramebuffer(src, dst Handle, width, height int, color, depth bool) {
	var mask uint32
	if color {
		mask |= gl.COLOR_BUFFER_BIT
	}
	if depth {
		mask |= gl.DEPTH_BUFFER_BIT
	}
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, uint32(src))
	gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, uint32(dst))
	w, h := int32(width), int32(height)
	gl.BlitFramebuffer(0, 0, w, h, 0, 0, w, h, mask, gl.NEAREST)
	gl.BindFramebuffer(gl.FRAMEBUFFER, uint32(dst))
}

func compileStage(stage uint32, source string) (uint32, error) {
	shader := gl.CreateShader(stage)
	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(log))
		gl.DeleteShader(shader)
		return 0, &DriverLogError{Stage: stageName(stage), Log: strings.TrimRight(log, "\x00")}
	}
	return shader, nil
}

func stageName(stage uint32) string {
	if stage == gl.VERTEX_SHADER {
		return "vertex"
	}
	return "fragment"
}

// DriverLogError carries the compiler or linker log reported by the driver.
type DriverLogError struct {
	Stage string
	Log   string
}

func (e *DriverLogError) Error() string {
	return fmt.Sprintf("%s stage failed:\n%s", e.Stage, e.Log)
}

func (d *GLDevice) CreateProgram(name, vertexSrc, fragmentSrc string) (Handle, error) {
	vs, err := compileStage(gl.VERTEX_SHADER, vertexSrc)
	if err != nil {
		return NoHandle, err
	}
	fs, err := compileStage(gl.FRAGMENT_SHADER, fragmentSrc)
	if err != nil {
		gl.DeleteShader(vs)
		return NoHandle, err
	}

	program := gl.CreateProgram()
	gl.AttachShader(program, vs)
	gl.AttachShader(program, fs)
	gl.LinkProgram(program)

	gl.DetachShader(program, vs)
	gl.DetachShader(program, fs)
	gl.DeleteShader(vs)
	gl.DeleteShader(fs)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(log))
		gl.DeleteProgram(program)
		return NoHandle, &DriverLogError{Stage: "link", Log: strings.TrimRight(log, "\x00")}
	}
	return Handle(program), nil
}

func (d *GLDevice) DeleteProgram(h Handle) {
	d.program.forget(uint32(h))
	gl.DeleteProgram(uint32(h))
}

func componentCount(xtype uint32) int32 {
	switch xtype {
	case gl.FLOAT, gl.INT, gl.UNSIGNED_INT:
		return 1
	case gl.FLOAT_VEC2, gl.INT_VEC2, gl.UNSIGNED_INT_VEC2:
		return 2
	case gl.FLOAT_VEC3, gl.INT_VEC3, gl.UNSIGNED_INT_VEC3:
		return 3
	}
	return 4
}

func (d *GLDevice) ActiveAttributes(program Handle) []AttributeInfo {
	var count int32
	gl.GetProgramiv(uint32(program), gl.ACTIVE_ATTRIBUTES, &count)

	var maxLength int32
	gl.GetProgramiv(uint32(program), gl.ACTIVE_ATTRIBUTE_MAX_LENGTH, &maxLength)

	var attrs []AttributeInfo
	nameBuf := make([]uint8, nameBufferSize(maxLength))
	for i := int32(0); i < count; i++ {
		var length, size int32
		var xtype uint32
		gl.GetActiveAttrib(uint32(program), uint32(i), int32(len(nameBuf)), &length, &size, &xtype, &nameBuf[0])
		name := string(nameBuf[:length])

		loc := gl.GetAttribLocation(uint32(program), gl.Str(name+"\x00"))
		if loc < 0 {
			// built-ins such as gl_VertexID
			continue
		}
		attrs = append(attrs, AttributeInfo{Name: name, Location: uint32(loc), ComponentCount: componentCount(xtype)})
	}
	return attrs
}

func (d *GLDevice) UseProgram(h Handle) {
	if d.program.bind(uint32(h)) {
		gl.UseProgram(uint32(h))
	}
}

func (d *GLDevice) UniformLocation(program Handle, name string) int32 {
	return gl.GetUniformLocation(uint32(program), gl.Str(name+"\x00"))
}

func (d *GLDevice) SetUniformInt(location int32, v int32)     { gl.Uniform1i(location, v) }
func (d *GLDevice) SetUniformFloat(location int32, v float32) { gl.Uniform1f(location, v) }

func (d *GLDevice) SetUniformVec2(location int32, v [2]float32) {
	gl.Uniform2f(location, v[0], v[1])
}

func (d *GLDevice) SetUniformVec3(location int32, v [3]float32) {
	gl.Uniform3f(location, v[0], v[1], v[2])
}

func (d *GLDevice) SetUniformVec4(location int32, v [4]float32) {
	gl.Uniform4f(location, v[0], v[1], v[2], v[3])
}

func (d *GLDevice) SetUniformMat4(location int32, m [16]float32) {
	gl.UniformMatrix4fv(location, 1, false, &m[0])
}

func (d *GLDevice) Viewport(x, y, width, height int) {
	gl.Viewport(int32(x), int32(y), int32(width), int32(height))
}

func (d *GLDevice) ClearColor(r, g, b, a float32) { gl.ClearColor(r, g, b, a) }

func (d *GLDevice) Clear(color, depth bool) {
	var mask uint32
	if color {
		mask |= gl.COLOR_BUFFER_BIT
	}
	if depth {
		// depth writes must be on for the clear to land
		gl.DepthMask(true)
		mask |= gl.DEPTH_BUFFER_BIT
	}
	gl.Clear(mask)
}

func (d *GLDevice) SetBlend(mode BlendMode) {
	switch mode {
	case BlendNone:
		gl.Disable(gl.BLEND)
	case BlendAlpha:
		gl.Enable(gl.BLEND)
		gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	case BlendAdditive:
		gl.Enable(gl.BLEND)
		gl.BlendFunc(gl.ONE, gl.ONE)
	}
}

func (d *GLDevice) SetDepth(test, write bool, fn DepthFunc) {
	if test {
		gl.Enable(gl.DEPTH_TEST)
	} else {
		gl.Disable(gl.DEPTH_TEST)
	}
	gl.DepthMask(write)
	switch fn {
	case DepthLessEqual:
		gl.DepthFunc(gl.LEQUAL)
	case DepthAlways:
		gl.DepthFunc(gl.ALWAYS)
	default:
		gl.DepthFunc(gl.LESS)
	}
}

func (d *GLDevice) SetCull(mode CullMode) {
	switch mode {
	case CullNone:
		gl.Disable(gl.CULL_FACE)
	case CullBack:
		gl.Enable(gl.CULL_FACE)
		gl.CullFace(gl.BACK)
	case CullFront:
		gl.Enable(gl.CULL_FACE)
		gl.CullFace(gl.FRONT)
	}
}

func (d *GLDevice) SetClipDistance(index uint32, enabled bool) {
	if enabled {
		gl.Enable(gl.CLIP_DISTANCE0 + index)
	} else {
		gl.Disable(gl.CLIP_DISTANCE0 + index)
	}
}

func (d *GLDevice) DrawElements(count int32, indexType IndexType, offset int) {
	xtype := uint32(gl.UNSIGNED_INT)
	if indexType == IndexUint16 {
		xtype = gl.UNSIGNED_SHORT
	}
	gl.DrawElements(gl.TRIANGLES, count, xtype, gl.PtrOffset(offset))
}

func (d *GLDevice) PushDebugGroup(name string) {
	gl.PushDebugGroup(gl.DEBUG_SOURCE_APPLICATION, 1, -1, gl.Str(name+"\x00"))
}

func (d *GLDevice) PopDebugGroup() { gl.PopDebugGroup() }

var _ Device = (*GLDevice)(nil)
