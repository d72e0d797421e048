package passes

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/vsRushy/AGP-Project2/engine/rt/core"
	"github.com/vsRushy/AGP-Project2/engine/rt/gpu"
	"github.com/vsRushy/AGP-Project2/engine/rt/shaders"
)

// deferredSequence runs geometry, lighting and light volumes in that order;
// each stage reads the attachments the previous one wrote.
type deferredSequence struct{}

func (deferredSequence) run(o *Orchestrator, f *Frame) {
	t := o.targets

	o.group(PassGeometry, func() {
		o.bindTarget(t.GBuffer, mgl32.Vec4{})
		o.device.SetBlend(gpu.BlendNone)
		o.device.SetDepth(true, true, gpu.DepthLess)
		o.device.SetCull(gpu.CullBack)
		if p := o.use(shaders.DeferredGeometry); p != nil {
			o.arena.BindRange(gpu.GlobalBlockBinding, f.Global)
			o.drawEntities(PassGeometry, p, true)
		}
	})

	o.group(PassLighting, func() {
		o.bindTarget(t.Lighting, f.ClearColor)
		o.device.SetDepth(false, false, gpu.DepthLess)
		if p := o.use(shaders.DeferredLighting); p != nil {
			o.bindGBuffer()
			o.arena.BindRange(gpu.GlobalBlockBinding, f.Global)
			o.drawPart(PassLighting, o.scene.Primitives.Quad, p)
		}
		// Later overlay draws test against the scene depth.
		o.device.BlitFramebuffer(t.GBuffer.Framebuffer, t.Lighting.Framebuffer, t.Lighting.Width, t.Lighting.Height, false, true)
	})

	o.group(PassLightVolumes, func() {
		o.drawLightVolumes(f)
	})

	o.present(t.Lighting, f)
}

func (o *Orchestrator) bindGBuffer() {
	g := o.targets.GBuffer
	o.device.BindTexture(0, g.Attachment(gpu.GBufferPosition))
	o.device.BindTexture(1, g.Attachment(gpu.GBufferNormals))
	o.device.BindTexture(2, g.Attachment(gpu.GBufferDiffuse))
}

// drawLightVolumes accumulates every light additively: point lights as
// spheres scaled by their radius, then directional lights as full-screen
// quads.
func (o *Orchestrator) drawLightVolumes(f *Frame) {
	p := o.use(shaders.DeferredLightVolume)
	if p == nil {
		return
	}
	t := o.targets
	o.device.BindFramebuffer(t.Lighting.Framebuffer)
	o.device.Viewport(0, 0, t.Lighting.Width, t.Lighting.Height)
	o.device.SetBlend(gpu.BlendAdditive)
	o.device.SetDepth(false, false, gpu.DepthLess)
	o.bindGBuffer()
	o.setCamera(p, f.Camera)
	o.device.SetUniformVec2(p.Uniform(o.device, "uViewportSize"),
		[2]float32{float32(t.Lighting.Width), float32(t.Lighting.Height)})

	lights := o.scene.Lights
	// Front faces would vanish once the camera is inside a volume.
	o.device.SetCull(gpu.CullFront)
	for _, l := range lights {
		if l.Type == core.LightPoint {
			o.setLight(p, l)
			o.setMat4(p, "uModel", l.Volume())
			o.drawPart(PassLightVolumes, o.scene.Primitives.Sphere, p)
		}
	}
	o.device.SetCull(gpu.CullNone)
	for _, l := range lights {
		if l.Type == core.LightDirectional {
			o.setLight(p, l)
			o.setMat4(p, "uModel", mgl32.Ident4())
			o.drawPart(PassLightVolumes, o.scene.Primitives.Quad, p)
		}
	}

	o.device.SetCull(gpu.CullBack)
	o.device.SetBlend(gpu.BlendNone)
	o.device.SetDepth(true, true, gpu.DepthLess)
}

func (o *Orchestrator) setLight(p *shaders.Program, l core.Light) {
	o.device.SetUniformInt(p.Uniform(o.device, "uLightType"), int32(l.Type))
	o.setVec3(p, "uLightColor", l.Color)
	o.setVec3(p, "uLightDirection", l.Direction)
	o.setVec3(p, "uLightPosition", l.Position)
	o.device.SetUniformFloat(p.Uniform(o.device, "uLightRadius"), l.Radius)
	o.device.SetUniformFloat(p.Uniform(o.device, "uLightIntensity"), l.Intensity)
}
