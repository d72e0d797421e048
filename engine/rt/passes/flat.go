package passes

import (
	"github.com/vsRushy/AGP-Project2/engine/rt/gpu"
	"github.com/vsRushy/AGP-Project2/engine/rt/shaders"
)

// flatSequence draws one textured quad straight to the default framebuffer.
type flatSequence struct{}

func (flatSequence) run(o *Orchestrator, f *Frame) {
	o.group(PassFlat, func() {
		o.device.BindFramebuffer(gpu.NoHandle)
		o.device.Viewport(0, 0, f.Width, f.Height)
		o.device.ClearColor(f.ClearColor[0], f.ClearColor[1], f.ClearColor[2], f.ClearColor[3])
		o.device.Clear(true, true)
		o.device.SetDepth(false, false, gpu.DepthLess)
		o.device.SetBlend(gpu.BlendAlpha)

		p := o.use(shaders.TexturedGeometry)
		if p == nil {
			return
		}
		tex := f.FlatTexture
		if tex == gpu.NoHandle {
			tex = o.scene.TextureHandle(o.scene.White, o.scene.White)
		}
		o.device.BindTexture(0, tex)
		o.drawPart(PassFlat, o.scene.Primitives.Quad, p)

		o.device.SetBlend(gpu.BlendNone)
		o.device.SetDepth(true, true, gpu.DepthLess)
	})
}
