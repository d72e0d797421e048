package passes

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/vsRushy/AGP-Project2/engine/rt/core"
	"github.com/vsRushy/AGP-Project2/engine/rt/gpu"
	"github.com/vsRushy/AGP-Project2/engine/rt/shaders"
)

// forwardSequence renders the water reflection and refraction targets, then
// the lit scene and the water surface into the forward target.
type forwardSequence struct{}

func (forwardSequence) run(o *Orchestrator, f *Frame) {
	t := o.targets
	o.device.SetBlend(gpu.BlendNone)
	o.device.SetDepth(true, true, gpu.DepthLess)
	o.device.SetCull(gpu.CullBack)

	// Above the surface, seen from the mirrored camera.
	mirrored := f.Camera.Mirrored(f.WaterHeight)
	o.group(PassReflection, func() {
		o.bindTarget(t.Reflection, f.ClearColor)
		o.arena.BindRange(gpu.GlobalBlockBinding, f.Global)
		o.drawClipped(PassReflection, mirrored, mgl32.Vec4{0, 1, 0, -f.WaterHeight})
		o.drawSkybox(PassReflection, mirrored)
	})

	// Below the surface, seen from the camera itself.
	o.group(PassRefraction, func() {
		o.bindTarget(t.Refraction, f.ClearColor)
		o.arena.BindRange(gpu.GlobalBlockBinding, f.Global)
		o.drawClipped(PassRefraction, f.Camera, mgl32.Vec4{0, -1, 0, f.WaterHeight})
	})

	o.group(PassForward, func() {
		o.bindTarget(t.Forward, f.ClearColor)
		o.arena.BindRange(gpu.GlobalBlockBinding, f.Global)
		if p := o.use(shaders.ForwardShading); p != nil {
			o.drawEntities(PassForward, p, true)
		}
		o.drawSkybox(PassForward, f.Camera)
	})

	o.group(PassWater, func() {
		o.drawWater(f)
	})

	o.present(t.Forward, f)
}

func (o *Orchestrator) drawClipped(pass string, cam *core.Camera, plane mgl32.Vec4) {
	p := o.use(shaders.ClippingPlane)
	if p == nil {
		return
	}
	o.setCamera(p, cam)
	o.device.SetUniformVec4(p.Uniform(o.device, "uClippingPlane"), plane)
	o.device.SetClipDistance(0, true)
	o.drawEntities(pass, p, true)
	o.device.SetClipDistance(0, false)
}

func (o *Orchestrator) drawWater(f *Frame) {
	p := o.use(shaders.Water)
	if p == nil {
		return
	}
	s := o.scene
	size := f.WaterSize
	if size <= 0 {
		size = 1
	}
	model := core.TransformAt(mgl32.Vec3{0, f.WaterHeight, 0}, size).World()

	// The forward target is still bound from the forward pass.
	o.device.SetCull(gpu.CullNone)
	o.arena.BindRange(gpu.GlobalBlockBinding, f.Global)
	o.setCamera(p, f.Camera)
	o.setMat4(p, "uModel", model)
	o.device.SetUniformFloat(p.Uniform(o.device, "uMoveFactor"), f.MoveFactor)
	o.device.BindTexture(0, o.targets.Reflection.Attachment(gpu.ColorAttachment0))
	o.device.BindTexture(1, o.targets.Refraction.Attachment(gpu.ColorAttachment0))
	o.device.BindTexture(2, s.TextureHandle(s.DudvMap, s.Normal))
	o.drawPart(PassWater, s.Primitives.Water, p)
	o.device.SetCull(gpu.CullBack)
}
