package passes

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	agp "github.com/vsRushy/AGP-Project2"
	"github.com/vsRushy/AGP-Project2/engine/rt/core"
	"github.com/vsRushy/AGP-Project2/engine/rt/gpu"
	"github.com/vsRushy/AGP-Project2/engine/rt/shaders"
)

// Pass names, used for debug groups and statistics.
const (
	PassFlat         = "Flat"
	PassReflection   = "Water Reflection"
	PassRefraction   = "Water Refraction"
	PassForward      = "Forward"
	PassWater        = "Water"
	PassGeometry     = "Geometry"
	PassLighting     = "Lighting"
	PassLightVolumes = "Light Volumes"
	PassPresent      = "Present"
)

// Frame is the per-frame input of the orchestrator. Global and the entity
// instance blocks must already be written to the arena.
type Frame struct {
	Camera *core.Camera
	Global gpu.Block

	Width, Height int
	ClearColor    mgl32.Vec4

	WaterHeight float32
	WaterSize   float32
	MoveFactor  float32

	// FlatTexture is sampled by the flat mode quad. NoHandle uses white.
	FlatTexture gpu.Handle
}

// Stats counts the draws issued per pass during the last Render.
type Stats struct {
	Draws   map[string]int
	Skipped int
	Failed  int
}

func (s Stats) Total() int {
	n := 0
	for _, d := range s.Draws {
		n += d
	}
	return n
}

type sequence interface {
	run(o *Orchestrator, f *Frame)
}

var sequences = map[Mode]sequence{
	FlatTextured: flatSequence{},
	ForwardLit:   forwardSequence{},
	DeferredLit:  deferredSequence{},
}

type Orchestrator struct {
	device   gpu.Device
	binder   *gpu.Binder
	programs *shaders.Registry
	targets  *gpu.RenderTargets
	arena    *gpu.UniformArena
	scene    *core.Scene
	log      agp.Logger

	// DebugGroups wraps every mode and pass in a debug marker group.
	DebugGroups bool
	// Present blits the final colour target to the default framebuffer.
	Present bool

	stats Stats
	errs  []error
}

func NewOrchestrator(device gpu.Device, binder *gpu.Binder, programs *shaders.Registry,
	targets *gpu.RenderTargets, arena *gpu.UniformArena, scene *core.Scene, log agp.Logger) *Orchestrator {
	return &Orchestrator{
		device:   device,
		binder:   binder,
		programs: programs,
		targets:  targets,
		arena:    arena,
		scene:    scene,
		log:      agp.OrNop(log),
		Present:  true,
	}
}

func (o *Orchestrator) Stats() Stats { return o.stats }

// Render runs the pass sequence of mode. A failing draw is skipped and the
// frame goes on; the failures are returned together.
func (o *Orchestrator) Render(mode Mode, f *Frame) error {
	seq, ok := sequences[mode]
	if !ok {
		return fmt.Errorf("render: unknown mode %v", mode)
	}
	if o.arena.Mapped() {
		return errors.New("render: uniform arena is still mapped")
	}
	if f.Camera == nil {
		return errors.New("render: frame has no camera")
	}
	if f.Global.Empty() {
		return errors.New("render: frame has no global uniform block")
	}

	o.stats = Stats{Draws: make(map[string]int)}
	o.errs = o.errs[:0]

	o.group(mode.String(), func() {
		seq.run(o, f)
	})

	if len(o.errs) == 0 {
		return nil
	}
	return fmt.Errorf("render %v: %w", mode, errors.Join(o.errs...))
}

func (o *Orchestrator) fail(err error) {
	o.stats.Failed++
	o.errs = append(o.errs, err)
	o.log.Warnf("%v", err)
}

func (o *Orchestrator) group(name string, fn func()) {
	if o.DebugGroups {
		o.device.PushDebugGroup(name)
		defer o.device.PopDebugGroup()
	}
	fn()
}

// use binds a program by name. Programs that never built are skipped.
func (o *Orchestrator) use(name string) *shaders.Program {
	p := o.programs.ByName(name)
	if p == nil || !p.Valid() {
		o.stats.Skipped++
		o.log.Debugf("program %s unavailable, pass skipped", name)
		return nil
	}
	o.device.UseProgram(p.Handle)
	return p
}

func (o *Orchestrator) bindTarget(set *gpu.RenderTargetSet, clear mgl32.Vec4) {
	o.device.BindFramebuffer(set.Framebuffer)
	o.device.Viewport(0, 0, set.Width, set.Height)
	o.device.ClearColor(clear[0], clear[1], clear[2], clear[3])
	o.device.Clear(true, set.HasDepth())
}

func (o *Orchestrator) setMat4(p *shaders.Program, name string, m mgl32.Mat4) {
	o.device.SetUniformMat4(p.Uniform(o.device, name), m)
}

func (o *Orchestrator) setVec3(p *shaders.Program, name string, v mgl32.Vec3) {
	o.device.SetUniformVec3(p.Uniform(o.device, name), v)
}

func (o *Orchestrator) setCamera(p *shaders.Program, cam *core.Camera) {
	o.setMat4(p, "uProjection", cam.GetProjectionMatrix())
	o.setMat4(p, "uView", cam.GetViewMatrix())
}

// drawPart binds the part's vertex array for p and issues its draw.
func (o *Orchestrator) drawPart(pass string, part *gpu.MeshPart, p *shaders.Program) {
	binding, err := o.binder.GetOrCreateBinding(part, p)
	if err != nil {
		o.fail(fmt.Errorf("%s: %w", pass, err))
		return
	}
	o.device.BindVertexArray(binding.VertexArray)
	o.device.DrawElements(part.IndexCount, part.IndexType, part.IndexOffset)
	o.device.BindVertexArray(gpu.NoHandle)
	o.stats.Draws[pass]++
}

// drawEntities draws every submesh of every entity with p, binding each
// entity's instance range first. With albedo set the submesh material's
// albedo texture goes to unit 0.
func (o *Orchestrator) drawEntities(pass string, p *shaders.Program, albedo bool) {
	s := o.scene
	for _, e := range s.Entities {
		if e.Block.Empty() {
			o.fail(fmt.Errorf("%s: entity %s has no instance block this frame", pass, e.Name))
			continue
		}
		if e.Model < 0 || e.Model >= len(s.Models) {
			o.fail(fmt.Errorf("%s: entity %s references model %d of %d", pass, e.Name, e.Model, len(s.Models)))
			continue
		}
		model := s.Models[e.Model]
		mesh := s.Meshes[model.Mesh]

		o.arena.BindRange(gpu.InstanceBlockBinding, e.Block)
		for i, part := range mesh.Parts {
			if albedo {
				o.device.BindTexture(0, s.AlbedoHandle(model.Materials[i]))
			}
			o.drawPart(pass, part, p)
		}
	}
}

func (o *Orchestrator) drawSkybox(pass string, cam *core.Camera) {
	p := o.use(shaders.Skybox)
	if p == nil || o.scene.Skybox == gpu.NoHandle {
		return
	}
	o.device.SetDepth(true, false, gpu.DepthLessEqual)
	o.device.SetCull(gpu.CullNone)
	o.setCamera(p, cam)
	o.device.BindCubemap(0, o.scene.Skybox)
	o.drawPart(pass, o.scene.Primitives.Cube, p)
	o.device.SetDepth(true, true, gpu.DepthLess)
	o.device.SetCull(gpu.CullBack)
}

func (o *Orchestrator) present(set *gpu.RenderTargetSet, f *Frame) {
	if !o.Present {
		return
	}
	o.group(PassPresent, func() {
		o.device.BlitFramebuffer(set.Framebuffer, gpu.NoHandle, f.Width, f.Height, true, false)
	})
}
