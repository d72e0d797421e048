// Package gputest provides an in-memory gpu.Device that records every command
// so pass sequences and resource lifetimes can be checked without a GL
// context.
package gputest

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vsRushy/AGP-Project2/engine/rt/gpu"
)

// Range is a uniform buffer range bound to one binding point.
type Range struct {
	Buffer gpu.Handle
	Offset int
	Size   int
}

// Draw is one recorded DrawElements call with the state it was issued under.
type Draw struct {
	Framebuffer gpu.Handle
	Program     gpu.Handle
	ProgramName string
	VertexArray gpu.Handle
	Count       int32
	Offset      int
	Blend       gpu.BlendMode
	DepthWrite  bool
	DepthFunc   gpu.DepthFunc
	// Group is the debug group path, joined with "/".
	Group  string
	Ranges map[uint32]Range
}

type buffer struct {
	target gpu.BufferTarget
	data   []byte
	mapped bool
}

type attrib struct {
	components int32
	stride     int32
	offset     int
	enabled    bool
}

type vertexArray struct {
	vertexBuffer gpu.Handle
	indexBuffer  gpu.Handle
	attribs      map[uint32]*attrib
}

type texture struct {
	desc gpu.TextureDesc
	cube bool
}

type framebuffer struct {
	attachments map[gpu.AttachmentPoint]gpu.Handle
	drawBuffers int
}

type program struct {
	name     string
	attrs    []gpu.AttributeInfo
	uniforms map[string]int32
}

// CompileError is returned by CreateProgram for a source with an active #error.
type CompileError struct {
	Stage string
	Log   string
}

func (e *CompileError) Error() string { return fmt.Sprintf("%s stage failed:\n%s", e.Stage, e.Log) }

type Recorder struct {
	limits gpu.Limits

	// Unsupported formats make any framebuffer using them report
	// StatusUnsupported.
	Unsupported map[gpu.TextureFormat]bool
	// FailMap makes MapBuffer fail.
	FailMap bool

	next gpu.Handle

	buffers      map[gpu.Handle]*buffer
	vertexArrays map[gpu.Handle]*vertexArray
	textures     map[gpu.Handle]*texture
	framebuffers map[gpu.Handle]*framebuffer
	programs     map[gpu.Handle]*program

	boundBuffers     map[gpu.BufferTarget]gpu.Handle
	boundVertexArray gpu.Handle
	boundFramebuffer gpu.Handle
	boundProgram     gpu.Handle
	ranges           map[uint32]Range
	textureUnits     map[uint32]gpu.Handle
	uniformValues    map[gpu.Handle]map[int32]any

	blend      gpu.BlendMode
	depthTest  bool
	depthWrite bool
	depthFunc  gpu.DepthFunc
	clip       map[uint32]bool
	groups     []string

	Ops     []string
	Draws   []Draw
	Blits   []string
	Deleted int
}

func NewRecorder() *Recorder {
	return NewRecorderWithLimits(gpu.Limits{
		MaxUniformBlockSize:     65536,
		UniformOffsetAlignment:  256,
		MaxColorAttachments:     8,
		MaxCombinedTextureUnits: 32,
	})
}

func NewRecorderWithLimits(limits gpu.Limits) *Recorder {
	return &Recorder{
		limits:        limits,
		Unsupported:   map[gpu.TextureFormat]bool{},
		buffers:       map[gpu.Handle]*buffer{},
		vertexArrays:  map[gpu.Handle]*vertexArray{},
		textures:      map[gpu.Handle]*texture{},
		framebuffers:  map[gpu.Handle]*framebuffer{},
		programs:      map[gpu.Handle]*program{},
		boundBuffers:  map[gpu.BufferTarget]gpu.Handle{},
		ranges:        map[uint32]Range{},
		textureUnits:  map[uint32]gpu.Handle{},
		uniformValues: map[gpu.Handle]map[int32]any{},
		clip:          map[uint32]bool{},
		depthWrite:    true,
	}
}

func (r *Recorder) op(format string, args ...any) {
	r.Ops = append(r.Ops, fmt.Sprintf(format, args...))
}

func (r *Recorder) alloc() gpu.Handle {
	r.next++
	return r.next
}

func (r *Recorder) Info() gpu.Info {
	return gpu.Info{Version: "4.3 recorder", Renderer: "gputest", Vendor: "gputest", GLSLVersion: "4.30"}
}

func (r *Recorder) Limits() gpu.Limits { return r.limits }

// Reset clears the recorded command log but keeps every object alive.
func (r *Recorder) Reset() {
	r.Ops = nil
	r.Draws = nil
	r.Blits = nil
}

// LiveObjects counts objects created and not yet deleted.
func (r *Recorder) LiveObjects() int {
	return len(r.buffers) + len(r.vertexArrays) + len(r.textures) + len(r.framebuffers) + len(r.programs)
}

func (r *Recorder) LiveTextures() int     { return len(r.textures) }
func (r *Recorder) LiveFramebuffers() int { return len(r.framebuffers) }
func (r *Recorder) LivePrograms() int     { return len(r.programs) }
func (r *Recorder) LiveVertexArrays() int { return len(r.vertexArrays) }

func (r *Recorder) CreateBuffer(target gpu.BufferTarget, size int, data []byte, usage gpu.BufferUsage) gpu.Handle {
	h := r.alloc()
	b := &buffer{target: target, data: make([]byte, size)}
	copy(b.data, data)
	r.buffers[h] = b
	r.op("CreateBuffer %d size=%d", h, size)
	return h
}

func (r *Recorder) DeleteBuffer(h gpu.Handle) {
	delete(r.buffers, h)
	r.Deleted++
	r.op("DeleteBuffer %d", h)
}

func (r *Recorder) BindBuffer(target gpu.BufferTarget, h gpu.Handle) {
	r.boundBuffers[target] = h
	if vao, ok := r.vertexArrays[r.boundVertexArray]; ok {
		switch target {
		case gpu.ArrayBuffer:
			vao.vertexBuffer = h
		case gpu.ElementArrayBuffer:
			vao.indexBuffer = h
		}
	}
}

// BufferData returns the contents of a buffer.
func (r *Recorder) BufferData(h gpu.Handle) []byte {
	if b, ok := r.buffers[h]; ok {
		return b.data
	}
	return nil
}

func (r *Recorder) MapBuffer(target gpu.BufferTarget, h gpu.Handle, size int) ([]byte, error) {
	b, ok := r.buffers[h]
	switch {
	case !ok:
		return nil, fmt.Errorf("map: no buffer %d", h)
	case r.FailMap:
		return nil, fmt.Errorf("map: buffer %d: out of memory", h)
	case b.mapped:
		return nil, fmt.Errorf("map: buffer %d already mapped", h)
	case size > len(b.data):
		return nil, fmt.Errorf("map: %d bytes of a %d byte buffer", size, len(b.data))
	}
	b.mapped = true
	r.op("MapBuffer %d", h)
	// Capacity is clipped so an append cannot grow past the mapping.
	return b.data[:size:size], nil
}

func (r *Recorder) UnmapBuffer(target gpu.BufferTarget, h gpu.Handle) {
	if b, ok := r.buffers[h]; ok {
		b.mapped = false
	}
	r.op("UnmapBuffer %d", h)
}

// Mapped reports whether the buffer is currently mapped.
func (r *Recorder) Mapped(h gpu.Handle) bool {
	b, ok := r.buffers[h]
	return ok && b.mapped
}

func (r *Recorder) BindBufferRange(target gpu.BufferTarget, index uint32, h gpu.Handle, offset, size int) {
	r.ranges[index] = Range{Buffer: h, Offset: offset, Size: size}
	r.op("BindBufferRange %d offset=%d size=%d", index, offset, size)
}

func (r *Recorder) CreateVertexArray() gpu.Handle {
	h := r.alloc()
	r.vertexArrays[h] = &vertexArray{attribs: map[uint32]*attrib{}}
	r.op("CreateVertexArray %d", h)
	return h
}

func (r *Recorder) DeleteVertexArray(h gpu.Handle) {
	delete(r.vertexArrays, h)
	r.Deleted++
	r.op("DeleteVertexArray %d", h)
}

func (r *Recorder) BindVertexArray(h gpu.Handle) { r.boundVertexArray = h }

func (r *Recorder) VertexAttribPointer(location uint32, components int32, stride int32, offset int) {
	vao, ok := r.vertexArrays[r.boundVertexArray]
	if !ok {
		return
	}
	a := vao.attribs[location]
	if a == nil {
		a = &attrib{}
		vao.attribs[location] = a
	}
	a.components, a.stride, a.offset = components, stride, offset
}

func (r *Recorder) EnableVertexAttribArray(location uint32) {
	vao, ok := r.vertexArrays[r.boundVertexArray]
	if !ok {
		return
	}
	if a := vao.attribs[location]; a != nil {
		a.enabled = true
	}
}

// AttribState describes one attribute of a vertex array.
type AttribState struct {
	Location   uint32
	Components int32
	Stride     int32
	Offset     int
	Enabled    bool
}

// EnabledAttributes lists the enabled attributes of a vertex array by location.
func (r *Recorder) EnabledAttributes(vao gpu.Handle) []AttribState {
	v, ok := r.vertexArrays[vao]
	if !ok {
		return nil
	}
	var out []AttribState
	for loc, a := range v.attribs {
		if a.enabled {
			out = append(out, AttribState{Location: loc, Components: a.components, Stride: a.stride, Offset: a.offset, Enabled: true})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Location < out[j].Location })
	return out
}

// VertexArrayBuffers returns the vertex and index buffers captured by a vertex array.
func (r *Recorder) VertexArrayBuffers(vao gpu.Handle) (gpu.Handle, gpu.Handle) {
	if v, ok := r.vertexArrays[vao]; ok {
		return v.vertexBuffer, v.indexBuffer
	}
	return gpu.NoHandle, gpu.NoHandle
}

func (r *Recorder) CreateTexture2D(desc gpu.TextureDesc, pixels []byte) gpu.Handle {
	h := r.alloc()
	r.textures[h] = &texture{desc: desc}
	r.op("CreateTexture2D %d %dx%d %s", h, desc.Width, desc.Height, desc.Format)
	return h
}

func (r *Recorder) CreateCubemap(size int, faces [6][]byte) gpu.Handle {
	h := r.alloc()
	r.textures[h] = &texture{desc: gpu.TextureDesc{Width: size, Height: size, Format: gpu.FormatRGBA8}, cube: true}
	r.op("CreateCubemap %d %d", h, size)
	return h
}

// Texture returns the description of a live texture.
func (r *Recorder) Texture(h gpu.Handle) (gpu.TextureDesc, bool) {
	t, ok := r.textures[h]
	if !ok {
		return gpu.TextureDesc{}, false
	}
	return t.desc, true
}

func (r *Recorder) DeleteTexture(h gpu.Handle) {
	delete(r.textures, h)
	r.Deleted++
	r.op("DeleteTexture %d", h)
}

func (r *Recorder) BindTexture(unit uint32, h gpu.Handle) {
	r.textureUnits[unit] = h
	r.op("BindTexture unit=%d %d", unit, h)
}

func (r *Recorder) BindCubemap(unit uint32, h gpu.Handle) {
	r.textureUnits[unit] = h
	r.op("BindCubemap unit=%d %d", unit, h)
}

// TextureUnit returns the texture last bound to unit.
func (r *Recorder) TextureUnit(unit uint32) gpu.Handle { return r.textureUnits[unit] }

func (r *Recorder) CreateFramebuffer() gpu.Handle {
	h := r.alloc()
	r.framebuffers[h] = &framebuffer{attachments: map[gpu.AttachmentPoint]gpu.Handle{}}
	r.op("CreateFramebuffer %d", h)
	return h
}

func (r *Recorder) DeleteFramebuffer(h gpu.Handle) {
	delete(r.framebuffers, h)
	r.Deleted++
	r.op("DeleteFramebuffer %d", h)
}

func (r *Recorder) AttachTexture(fb gpu.Handle, point gpu.AttachmentPoint, tex gpu.Handle) {
	if f, ok := r.framebuffers[fb]; ok {
		f.attachments[point] = tex
	}
}

func (r *Recorder) SetDrawBuffers(fb gpu.Handle, n int) {
	if f, ok := r.framebuffers[fb]; ok {
		f.drawBuffers = n
	}
}

func (r *Recorder) CheckFramebufferStatus(fb gpu.Handle) gpu.FramebufferStatus {
	f, ok := r.framebuffers[fb]
	if !ok {
		return gpu.StatusUndefined
	}
	if len(f.attachments) == 0 {
		return gpu.StatusMissingAttachment
	}
	colors := 0
	for point, tex := range f.attachments {
		t, ok := r.textures[tex]
		if !ok || t.desc.Width <= 0 || t.desc.Height <= 0 {
			return gpu.StatusIncompleteAttachment
		}
		if point.IsColor() == t.desc.Format.IsDepth() {
			return gpu.StatusIncompleteAttachment
		}
		if r.Unsupported[t.desc.Format] {
			return gpu.StatusUnsupported
		}
		if point.IsColor() {
			colors++
		}
	}
	for i := 0; i < f.drawBuffers; i++ {
		if _, ok := f.attachments[gpu.ColorAttachment0+gpu.AttachmentPoint(i)]; !ok {
			return gpu.StatusIncompleteDrawBuffer
		}
	}
	return gpu.StatusComplete
}

func (r *Recorder) BindFramebuffer(fb gpu.Handle) {
	r.boundFramebuffer = fb
	r.op("BindFramebuffer %d", fb)
}

func (r *Recorder) BlitFramebuffer(src, dst gpu.Handle, width, height int, color, depth bool) {
	var what []string
	if color {
		what = append(what, "color")
	}
	if depth {
		what = append(what, "depth")
	}
	s := fmt.Sprintf("%d->%d %s", src, dst, strings.Join(what, "+"))
	r.Blits = append(r.Blits, s)
	r.boundFramebuffer = dst
	r.op("Blit %s", s)
}

func (r *Recorder) CreateProgram(name, vertexSrc, fragmentSrc string) (gpu.Handle, error) {
	vs := preprocess(vertexSrc)
	if len(vs.errors) > 0 {
		return gpu.NoHandle, &CompileError{Stage: "vertex", Log: strings.Join(vs.errors, "\n")}
	}
	fs := preprocess(fragmentSrc)
	if len(fs.errors) > 0 {
		return gpu.NoHandle, &CompileError{Stage: "fragment", Log: strings.Join(fs.errors, "\n")}
	}

	p := &program{name: name, uniforms: map[string]int32{}}
	for _, line := range vs.lines {
		if m := attribRe.FindStringSubmatch(line); m != nil {
			var loc uint32
			fmt.Sscanf(m[1], "%d", &loc)
			p.attrs = append(p.attrs, gpu.AttributeInfo{Name: m[3], Location: loc, ComponentCount: components(m[2])})
		}
	}
	for _, lines := range [][]string{vs.lines, fs.lines} {
		for _, line := range lines {
			if m := uniformRe.FindStringSubmatch(line); m != nil {
				if _, ok := p.uniforms[m[2]]; !ok {
					p.uniforms[m[2]] = int32(len(p.uniforms))
				}
			}
		}
	}

	h := r.alloc()
	r.programs[h] = p
	r.op("CreateProgram %d %s", h, name)
	return h, nil
}

func (r *Recorder) DeleteProgram(h gpu.Handle) {
	delete(r.programs, h)
	r.Deleted++
	r.op("DeleteProgram %d", h)
}

func (r *Recorder) ActiveAttributes(h gpu.Handle) []gpu.AttributeInfo {
	if p, ok := r.programs[h]; ok {
		return append([]gpu.AttributeInfo(nil), p.attrs...)
	}
	return nil
}

func (r *Recorder) UseProgram(h gpu.Handle) {
	r.boundProgram = h
	r.op("UseProgram %d", h)
}

func (r *Recorder) UniformLocation(h gpu.Handle, name string) int32 {
	if p, ok := r.programs[h]; ok {
		if loc, ok := p.uniforms[name]; ok {
			return loc
		}
	}
	return -1
}

func (r *Recorder) setUniform(location int32, v any) {
	if location < 0 {
		return
	}
	vals := r.uniformValues[r.boundProgram]
	if vals == nil {
		vals = map[int32]any{}
		r.uniformValues[r.boundProgram] = vals
	}
	vals[location] = v
}

// UniformValue returns the last value set for a named uniform of a program.
func (r *Recorder) UniformValue(h gpu.Handle, name string) (any, bool) {
	loc := r.UniformLocation(h, name)
	if loc < 0 {
		return nil, false
	}
	v, ok := r.uniformValues[h][loc]
	return v, ok
}

func (r *Recorder) SetUniformInt(location int32, v int32)        { r.setUniform(location, v) }
func (r *Recorder) SetUniformFloat(location int32, v float32)    { r.setUniform(location, v) }
func (r *Recorder) SetUniformVec2(location int32, v [2]float32)  { r.setUniform(location, v) }
func (r *Recorder) SetUniformVec3(location int32, v [3]float32)  { r.setUniform(location, v) }
func (r *Recorder) SetUniformVec4(location int32, v [4]float32)  { r.setUniform(location, v) }
func (r *Recorder) SetUniformMat4(location int32, m [16]float32) { r.setUniform(location, m) }

func (r *Recorder) Viewport(x, y, width, height int) {
	r.op("Viewport %d %d %d %d", x, y, width, height)
}

func (r *Recorder) ClearColor(cr, cg, cb, ca float32) {}

func (r *Recorder) Clear(color, depth bool) {
	r.op("Clear fb=%d color=%t depth=%t", r.boundFramebuffer, color, depth)
}

func (r *Recorder) SetBlend(mode gpu.BlendMode) { r.blend = mode }

func (r *Recorder) SetDepth(test, write bool, fn gpu.DepthFunc) {
	r.depthTest, r.depthWrite, r.depthFunc = test, write, fn
}

func (r *Recorder) SetCull(mode gpu.CullMode) {}

func (r *Recorder) SetClipDistance(index uint32, enabled bool) { r.clip[index] = enabled }

// ClipEnabled reports whether a clip distance is currently enabled.
func (r *Recorder) ClipEnabled(index uint32) bool { return r.clip[index] }

func (r *Recorder) DrawElements(count int32, indexType gpu.IndexType, offset int) {
	name := ""
	if p, ok := r.programs[r.boundProgram]; ok {
		name = p.name
	}
	ranges := make(map[uint32]Range, len(r.ranges))
	for k, v := range r.ranges {
		ranges[k] = v
	}
	r.Draws = append(r.Draws, Draw{
		Framebuffer: r.boundFramebuffer,
		Program:     r.boundProgram,
		ProgramName: name,
		VertexArray: r.boundVertexArray,
		Count:       count,
		Offset:      offset,
		Blend:       r.blend,
		DepthWrite:  r.depthWrite,
		DepthFunc:   r.depthFunc,
		Group:       strings.Join(r.groups, "/"),
		Ranges:      ranges,
	})
	r.op("Draw %s count=%d", name, count)
}

func (r *Recorder) PushDebugGroup(name string) {
	r.groups = append(r.groups, name)
	r.op("PushDebugGroup %s", name)
}

func (r *Recorder) PopDebugGroup() {
	if len(r.groups) > 0 {
		r.groups = r.groups[:len(r.groups)-1]
	}
	r.op("PopDebugGroup")
}

// GroupDepth is the number of debug groups currently open.
func (r *Recorder) GroupDepth() int { return len(r.groups) }

// DrawNames lists the program name of every recorded draw, in order.
func (r *Recorder) DrawNames() []string {
	out := make([]string, len(r.Draws))
	for i, d := range r.Draws {
		out[i] = d.ProgramName
	}
	return out
}

var _ gpu.Device = (*Recorder)(nil)
