package gpu

import (
	"fmt"

	agp "github.com/vsRushy/AGP-Project2"
)

// NoAttachment marks a completeness failure the driver did not pin to a point.
const NoAttachment AttachmentPoint = -1

// AttachmentSpec declares one image of a set. Zero Width and Height inherit the
// set size.
type AttachmentSpec struct {
	Point  AttachmentPoint
	Format TextureFormat
	Width  int
	Height int
}

type IncompleteError struct {
	Set        string
	Attachment AttachmentPoint
	Status     FramebufferStatus
}

func (e *IncompleteError) Error() string {
	if e.Attachment == NoAttachment {
		return fmt.Sprintf("render target %q incomplete: %s", e.Set, e.Status)
	}
	return fmt.Sprintf("render target %q incomplete at %s: %s", e.Set, e.Attachment, e.Status)
}

// RenderTargetSet is a framebuffer and the textures attached to it.
type RenderTargetSet struct {
	Name        string
	Framebuffer Handle
	Width       int
	Height      int

	attachments map[AttachmentPoint]Handle
	formats     map[AttachmentPoint]TextureFormat
	colorCount  int
}

func (s *RenderTargetSet) Attachment(p AttachmentPoint) Handle { return s.attachments[p] }

func (s *RenderTargetSet) Format(p AttachmentPoint) (TextureFormat, bool) {
	f, ok := s.formats[p]
	return f, ok
}

func (s *RenderTargetSet) ColorCount() int { return s.colorCount }

func (s *RenderTargetSet) HasDepth() bool {
	_, ok := s.attachments[DepthAttachment]
	return ok
}

func (s *RenderTargetSet) Release(device Device) {
	for p, tex := range s.attachments {
		device.DeleteTexture(tex)
		delete(s.attachments, p)
	}
	if s.Framebuffer != NoHandle {
		device.DeleteFramebuffer(s.Framebuffer)
		s.Framebuffer = NoHandle
	}
}

func validateSpecs(device Device, name string, specs []AttachmentSpec, width, height int) error {
	if len(specs) == 0 {
		return &IncompleteError{Set: name, Attachment: NoAttachment, Status: StatusMissingAttachment}
	}
	maxColor := device.Limits().MaxColorAttachments
	seen := make(map[AttachmentPoint]bool, len(specs))
	colors := 0
	for _, spec := range specs {
		if seen[spec.Point] {
			return &IncompleteError{Set: name, Attachment: spec.Point, Status: StatusMissingAttachment}
		}
		seen[spec.Point] = true

		w, h := spec.Width, spec.Height
		if w == 0 && h == 0 {
			w, h = width, height
		}
		if w <= 0 || h <= 0 {
			return &IncompleteError{Set: name, Attachment: spec.Point, Status: StatusIncompleteAttachment}
		}
		if w != width || h != height {
			return &IncompleteError{Set: name, Attachment: spec.Point, Status: StatusIncompleteDimensions}
		}
		if spec.Point.IsColor() == spec.Format.IsDepth() {
			return &IncompleteError{Set: name, Attachment: spec.Point, Status: StatusIncompleteAttachment}
		}
		if spec.Point.IsColor() {
			if maxColor > 0 && int(spec.Point-ColorAttachment0) >= maxColor {
				return &IncompleteError{Set: name, Attachment: spec.Point, Status: StatusUnsupported}
			}
			colors++
		}
	}
	// draw buffers are enabled as 0..n-1
	for i := 0; i < colors; i++ {
		p := ColorAttachment0 + AttachmentPoint(i)
		if !seen[p] {
			return &IncompleteError{Set: name, Attachment: p, Status: StatusIncompleteDrawBuffer}
		}
	}
	return nil
}

// CreateRenderTargetSet allocates every attachment and checks the framebuffer
// for completeness. On failure nothing it allocated survives.
func CreateRenderTargetSet(device Device, name string, specs []AttachmentSpec, width, height int) (*RenderTargetSet, error) {
	if err := validateSpecs(device, name, specs, width, height); err != nil {
		return nil, err
	}

	set := &RenderTargetSet{
		Name:        name,
		Width:       width,
		Height:      height,
		attachments: make(map[AttachmentPoint]Handle, len(specs)),
		formats:     make(map[AttachmentPoint]TextureFormat, len(specs)),
	}
	set.Framebuffer = device.CreateFramebuffer()

	for _, spec := range specs {
		tex := device.CreateTexture2D(TextureDesc{
			Width:  width,
			Height: height,
			Format: spec.Format,
			Filter: FilterNearest,
		}, nil)
		device.AttachTexture(set.Framebuffer, spec.Point, tex)
		set.attachments[spec.Point] = tex
		set.formats[spec.Point] = spec.Format
		if spec.Point.IsColor() {
			set.colorCount++
		}
	}
	device.SetDrawBuffers(set.Framebuffer, set.colorCount)

	if status := device.CheckFramebufferStatus(set.Framebuffer); status != StatusComplete {
		set.Release(device)
		return nil, &IncompleteError{Set: name, Attachment: NoAttachment, Status: status}
	}
	return set, nil
}

// Set names.
const (
	TargetForward    = "forward"
	TargetReflection = "water-reflection"
	TargetRefraction = "water-refraction"
	TargetGBuffer    = "gbuffer"
	TargetLighting   = "lighting"
)

// G-buffer attachment roles.
const (
	GBufferPosition = ColorAttachment0
	GBufferNormals  = ColorAttachment1
	GBufferDiffuse  = ColorAttachment2
)

func colorDepth(format TextureFormat) []AttachmentSpec {
	return []AttachmentSpec{
		{Point: ColorAttachment0, Format: format},
		{Point: DepthAttachment, Format: FormatDepth24},
	}
}

func targetSpecs() []struct {
	name  string
	specs []AttachmentSpec
} {
	return []struct {
		name  string
		specs []AttachmentSpec
	}{
		{TargetForward, colorDepth(FormatRGBA8)},
		{TargetReflection, colorDepth(FormatRGBA8)},
		{TargetRefraction, colorDepth(FormatRGBA8)},
		{TargetGBuffer, []AttachmentSpec{
			{Point: GBufferPosition, Format: FormatRGBA16F},
			{Point: GBufferNormals, Format: FormatRGBA16F},
			{Point: GBufferDiffuse, Format: FormatRGBA8},
			{Point: DepthAttachment, Format: FormatDepth24},
		}},
		{TargetLighting, colorDepth(FormatRGBA8)},
	}
}

// RenderTargets holds every offscreen set the passes use, all sized to the
// display.
type RenderTargets struct {
	device Device
	log    agp.Logger

	Forward    *RenderTargetSet
	Reflection *RenderTargetSet
	Refraction *RenderTargetSet
	GBuffer    *RenderTargetSet
	Lighting   *RenderTargetSet

	Width, Height int
}

func NewRenderTargets(device Device, width, height int, log agp.Logger) (*RenderTargets, error) {
	t := &RenderTargets{device: device, log: agp.OrNop(log)}
	if err := t.Resize(width, height); err != nil {
		return nil, err
	}
	return t, nil
}

// Resize recreates every set at the new size. If any set fails the previous
// sets are kept and the error is returned.
func (t *RenderTargets) Resize(width, height int) error {
	created := make(map[string]*RenderTargetSet, 5)
	for _, ts := range targetSpecs() {
		set, err := CreateRenderTargetSet(t.device, ts.name, ts.specs, width, height)
		if err != nil {
			for _, s := range created {
				s.Release(t.device)
			}
			return err
		}
		created[ts.name] = set
	}

	t.Release()
	t.Forward = created[TargetForward]
	t.Reflection = created[TargetReflection]
	t.Refraction = created[TargetRefraction]
	t.GBuffer = created[TargetGBuffer]
	t.Lighting = created[TargetLighting]
	t.Width, t.Height = width, height
	t.log.Infof("render targets: %dx%d", width, height)
	return nil
}

func (t *RenderTargets) Sets() []*RenderTargetSet {
	var out []*RenderTargetSet
	for _, s := range []*RenderTargetSet{t.Forward, t.Reflection, t.Refraction, t.GBuffer, t.Lighting} {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (t *RenderTargets) Lookup(name string) *RenderTargetSet {
	for _, s := range t.Sets() {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// Attachment returns a texture handle for display, or NoHandle.
func (t *RenderTargets) Attachment(set string, point AttachmentPoint) Handle {
	if s := t.Lookup(set); s != nil {
		return s.Attachment(point)
	}
	return NoHandle
}

func (t *RenderTargets) Release() {
	for _, s := range t.Sets() {
		s.Release(t.device)
	}
	t.Forward, t.Reflection, t.Refraction, t.GBuffer, t.Lighting = nil, nil, nil, nil, nil
}
