package gpu

// Handle is a GPU object name as issued by the driver. Zero is never a valid
// object.
type Handle uint32

const NoHandle Handle = 0

type BufferTarget int

const (
	ArrayBuffer BufferTarget = iota
	ElementArrayBuffer
	UniformBuffer
)

type BufferUsage int

const (
	StaticDraw BufferUsage = iota
	DynamicDraw
	StreamDraw
)

type IndexType int

const (
	IndexUint16 IndexType = iota
	IndexUint32
)

func (t IndexType) Size() int {
	if t == IndexUint16 {
		return 2
	}
	return 4
}

type TextureFormat int

const (
	FormatRGBA8 TextureFormat = iota
	FormatRGB8
	FormatRGBA16F
	FormatDepth24
)

func (f TextureFormat) String() string {
	switch f {
	case FormatRGBA8:
		return "rgba8"
	case FormatRGB8:
		return "rgb8"
	case FormatRGBA16F:
		return "rgba16f"
	case FormatDepth24:
		return "depth24"
	}
	return "unknown"
}

func (f TextureFormat) IsDepth() bool { return f == FormatDepth24 }

type Filter int

const (
	FilterLinear Filter = iota
	FilterNearest
	FilterLinearMipmap
)

type TextureDesc struct {
	Width, Height int
	Format        TextureFormat
	Filter        Filter
	Repeat        bool
	Mipmaps       bool
}

// AttachmentPoint identifies a framebuffer attachment.
type AttachmentPoint int

const (
	ColorAttachment0 AttachmentPoint = iota
	ColorAttachment1
	ColorAttachment2
	ColorAttachment3
	DepthAttachment
)

func (p AttachmentPoint) String() string {
	switch p {
	case ColorAttachment0:
		return "color0"
	case ColorAttachment1:
		return "color1"
	case ColorAttachment2:
		return "color2"
	case ColorAttachment3:
		return "color3"
	case DepthAttachment:
		return "depth"
	}
	return "unknown"
}

func (p AttachmentPoint) IsColor() bool { return p >= ColorAttachment0 && p <= ColorAttachment3 }

// FramebufferStatus mirrors the driver completeness check, plus the
// dimension mismatch that is caught before the driver is asked.
type FramebufferStatus int

const (
	StatusComplete FramebufferStatus = iota
	StatusUndefined
	StatusIncompleteAttachment
	StatusMissingAttachment
	StatusIncompleteDrawBuffer
	StatusIncompleteReadBuffer
	StatusUnsupported
	StatusIncompleteMultisample
	StatusIncompleteLayerTargets
	StatusIncompleteDimensions
	StatusUnknown
)

func (s FramebufferStatus) String() string {
	switch s {
	case StatusComplete:
		return "complete"
	case StatusUndefined:
		return "undefined"
	case StatusIncompleteAttachment:
		return "incomplete attachment"
	case StatusMissingAttachment:
		return "missing attachment"
	case StatusIncompleteDrawBuffer:
		return "incomplete draw buffer"
	case StatusIncompleteReadBuffer:
		return "incomplete read buffer"
	case StatusUnsupported:
		return "unsupported format combination"
	case StatusIncompleteMultisample:
		return "multisample mismatch"
	case StatusIncompleteLayerTargets:
		return "layer target mismatch"
	case StatusIncompleteDimensions:
		return "attachment dimensions mismatch"
	}
	return "unknown status"
}

type BlendMode int

const (
	BlendNone BlendMode = iota
	BlendAlpha
	BlendAdditive
)

type DepthFunc int

const (
	DepthLess DepthFunc = iota
	DepthLessEqual
	DepthAlways
)

type CullMode int

const (
	CullNone CullMode = iota
	CullBack
	CullFront
)

// AttributeInfo is one active vertex input reported by a linked program.
type AttributeInfo struct {
	Name           string
	Location       uint32
	ComponentCount int32
}

// Limits are the hardware values the uniform arena is sized against.
type Limits struct {
	MaxUniformBlockSize     int
	UniformOffsetAlignment  int
	MaxColorAttachments     int
	MaxCombinedTextureUnits int
}

type Info struct {
	Version     string
	Renderer    string
	Vendor      string
	GLSLVersion string
}

// Device is the immediate-mode command surface the core issues work against.
// Commands take effect in call order on the calling thread.
type Device interface {
	Info() Info
	Limits() Limits

	CreateBuffer(target BufferTarget, size int, data []byte, usage BufferUsage) Handle
	DeleteBuffer(h Handle)
	BindBuffer(target BufferTarget, h Handle)
	// MapBuffer maps size bytes for writing. The slice is valid until UnmapBuffer.
	MapBuffer(target BufferTarget, h Handle, size int) ([]byte, error)
	UnmapBuffer(target BufferTarget, h Handle)
	BindBufferRange(target BufferTarget, index uint32, h Handle, offset, size int)

	CreateVertexArray() Handle
	DeleteVertexArray(h Handle)
	BindVertexArray(h Handle)
	VertexAttribPointer(location uint32, components int32, stride int32, offset int)
	EnableVertexAttribArray(location uint32)

	CreateTexture2D(desc TextureDesc, pixels []byte) Handle
	CreateCubemap(size int, faces [6][]byte) Handle
	DeleteTexture(h Handle)
	BindTexture(unit uint32, h Handle)
	BindCubemap(unit uint32, h Handle)

	CreateFramebuffer() Handle
	DeleteFramebuffer(h Handle)
	AttachTexture(fb Handle, point AttachmentPoint, tex Handle)
	// SetDrawBuffers enables color outputs 0..n-1 on fb.
	SetDrawBuffers(fb Handle, n int)
	CheckFramebufferStatus(fb Handle) FramebufferStatus
	BindFramebuffer(fb Handle)
	BlitFramebuffer(src, dst Handle, width, height int, color, depth bool)

	// CreateProgram compiles and links both stages. On failure the returned
	// error carries the driver log and no program object survives.
	CreateProgram(name, vertexSrc, fragmentSrc string) (Handle, error)
	DeleteProgram(h Handle)
	ActiveAttributes(program Handle) []AttributeInfo
	UseProgram(h Handle)
	UniformLocation(program Handle, name string) int32
	SetUniformInt(location int32, v int32)
	SetUniformFloat(location int32, v float32)
	SetUniformVec2(location int32, v [2]float32)
	SetUniformVec3(location int32, v [3]float32)
	SetUniformVec4(location int32, v [4]float32)
	SetUniformMat4(location int32, m [16]float32)

	Viewport(x, y, width, height int)
	ClearColor(r, g, b, a float32)
	Clear(color, depth bool)
	SetBlend(mode BlendMode)
	SetDepth(test, write bool, fn DepthFunc)
	SetCull(mode CullMode)
	SetClipDistance(index uint32, enabled bool)
	DrawElements(count int32, indexType IndexType, offset int)

	PushDebugGroup(name string)
	PopDebugGroup()
}
