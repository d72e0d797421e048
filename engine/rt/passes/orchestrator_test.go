package passes

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsRushy/AGP-Project2/engine/rt/assets"
	"github.com/vsRushy/AGP-Project2/engine/rt/core"
	"github.com/vsRushy/AGP-Project2/engine/rt/gpu"
	"github.com/vsRushy/AGP-Project2/engine/rt/gpu/gputest"
	"github.com/vsRushy/AGP-Project2/engine/rt/shaders"
)

type noImages struct{}

func (noImages) LoadImage(string) (*assets.Image, error) { return nil, assets.ErrNotFound }

type fixture struct {
	rec     *gputest.Recorder
	scene   *core.Scene
	reg     *shaders.Registry
	targets *gpu.RenderTargets
	arena   *gpu.UniformArena
	orch    *Orchestrator
	cam     *core.Camera
	cube    int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	rec := gputest.NewRecorder()
	scene, err := core.NewScene(rec, nil)
	require.NoError(t, err)
	scene.LoadSkybox(noImages{}, [6]string{})
	scene.LoadDudvMap(noImages{}, "")

	reg := shaders.NewRegistry(rec, shaders.EmbeddedSource{}, nil)
	require.Empty(t, reg.LoadAll(shaders.EmbeddedPath, shaders.Variants))

	targets, err := gpu.NewRenderTargets(rec, 320, 240, nil)
	require.NoError(t, err)
	arena := gpu.NewUniformArena(rec, nil)

	cube, err := scene.AddModel(core.ModelData{Mesh: core.LitCubeData()})
	require.NoError(t, err)

	return &fixture{
		rec:     rec,
		scene:   scene,
		reg:     reg,
		targets: targets,
		arena:   arena,
		orch:    NewOrchestrator(rec, gpu.NewBinder(rec, nil), reg, targets, arena, scene, nil),
		cam:     core.NewCamera(mgl32.Vec3{0, 3, 8}, 60, 0.1, 100),
		cube:    cube,
	}
}

// frame fills the arena the way the app does before rendering.
func (fx *fixture) frame(t *testing.T) *Frame {
	t.Helper()
	require.NoError(t, fx.arena.BeginFrame())
	global, err := fx.arena.PushGlobalBlock(fx.cam.Position, core.LightBlocks(fx.scene.Lights))
	require.NoError(t, err)
	vp := fx.cam.GetViewProjection()
	for _, e := range fx.scene.Entities {
		e.Block, err = fx.arena.PushInstanceBlock(e.Transform.World(), vp)
		require.NoError(t, err)
	}
	fx.arena.EndFrame()
	fx.rec.Reset()
	return &Frame{Camera: fx.cam, Global: global, Width: 320, Height: 240, WaterSize: 20}
}

func TestRender_DeferredOrder(t *testing.T) {
	fx := newFixture(t)
	fx.scene.AddEntity("cube", core.NewTransform(), fx.cube)
	fx.scene.AddLight(core.Light{Type: core.LightDirectional, Color: mgl32.Vec3{1, 1, 1}, Direction: mgl32.Vec3{0, -1, 0}, Intensity: 1})
	fx.scene.AddLight(core.Light{Type: core.LightPoint, Color: mgl32.Vec3{1, 0, 0}, Position: mgl32.Vec3{0, 1, 0}, Radius: 5, Intensity: 1})

	require.NoError(t, fx.orch.Render(DeferredLit, fx.frame(t)))

	assert.Equal(t, []string{
		shaders.DeferredGeometry,
		shaders.DeferredLighting,
		shaders.DeferredLightVolume,
		shaders.DeferredLightVolume,
	}, fx.rec.DrawNames())

	d := fx.rec.Draws
	gbuf, lighting := fx.targets.GBuffer.Framebuffer, fx.targets.Lighting.Framebuffer
	assert.Equal(t, gbuf, d[0].Framebuffer)
	assert.Equal(t, lighting, d[1].Framebuffer)
	assert.Equal(t, lighting, d[2].Framebuffer)

	assert.Equal(t, fx.scene.Primitives.Sphere.IndexCount, d[2].Count, "point light first, as a sphere")
	assert.Equal(t, fx.scene.Primitives.Quad.IndexCount, d[3].Count, "directional light as a quad")
	assert.Equal(t, gpu.BlendAdditive, d[2].Blend)
	assert.Equal(t, gpu.BlendAdditive, d[3].Blend)

	assert.Equal(t, []string{
		fmt.Sprintf("%d->%d depth", gbuf, lighting),
		fmt.Sprintf("%d->0 color", lighting),
	}, fx.rec.Blits)

	// The depth blit sits between the lighting quad and the first volume.
	draws := 0
	for _, op := range fx.rec.Ops {
		if strings.HasPrefix(op, "Draw ") {
			draws++
		}
		if strings.HasPrefix(op, "Blit ") {
			assert.Equal(t, 2, draws)
			break
		}
	}

	stats := fx.orch.Stats()
	assert.Equal(t, 1, stats.Draws[PassGeometry])
	assert.Equal(t, 1, stats.Draws[PassLighting])
	assert.Equal(t, 2, stats.Draws[PassLightVolumes])
	assert.Equal(t, 4, stats.Total())
}

func TestRender_DeferredBindsGBufferAndRanges(t *testing.T) {
	fx := newFixture(t)
	e := fx.scene.AddEntity("cube", core.NewTransform(), fx.cube)
	f := fx.frame(t)

	require.NoError(t, fx.orch.Render(DeferredLit, f))

	geom := fx.rec.Draws[0]
	assert.Equal(t, f.Global.Offset, geom.Ranges[gpu.GlobalBlockBinding].Offset)
	assert.Equal(t, e.Block.Offset, geom.Ranges[gpu.InstanceBlockBinding].Offset)
	assert.Equal(t, e.Block.Size, geom.Ranges[gpu.InstanceBlockBinding].Size)

	g := fx.targets.GBuffer
	assert.Equal(t, g.Attachment(gpu.GBufferPosition), fx.rec.TextureUnit(0))
	assert.Equal(t, g.Attachment(gpu.GBufferNormals), fx.rec.TextureUnit(1))
	assert.Equal(t, g.Attachment(gpu.GBufferDiffuse), fx.rec.TextureUnit(2))
}

func TestRender_Forward(t *testing.T) {
	fx := newFixture(t)
	fx.scene.AddEntity("cube", core.NewTransform(), fx.cube)
	f := fx.frame(t)
	f.WaterHeight = 1

	require.NoError(t, fx.orch.Render(ForwardLit, f))

	assert.Equal(t, []string{
		shaders.ClippingPlane, shaders.Skybox, // reflection
		shaders.ClippingPlane, // refraction
		shaders.ForwardShading, shaders.Skybox,
		shaders.Water,
	}, fx.rec.DrawNames())

	d := fx.rec.Draws
	tg := fx.targets
	assert.Equal(t, tg.Reflection.Framebuffer, d[0].Framebuffer)
	assert.Equal(t, tg.Reflection.Framebuffer, d[1].Framebuffer)
	assert.Equal(t, tg.Refraction.Framebuffer, d[2].Framebuffer)
	for _, dr := range d[3:] {
		assert.Equal(t, tg.Forward.Framebuffer, dr.Framebuffer)
	}

	for _, sky := range []gputest.Draw{d[1], d[4]} {
		assert.False(t, sky.DepthWrite)
		assert.Equal(t, gpu.DepthLessEqual, sky.DepthFunc)
	}
	assert.True(t, d[3].DepthWrite)
	assert.False(t, fx.rec.ClipEnabled(0))

	water := fx.reg.ByName(shaders.Water)
	assert.Equal(t, tg.Reflection.Attachment(gpu.ColorAttachment0), fx.rec.TextureUnit(0))
	assert.Equal(t, tg.Refraction.Attachment(gpu.ColorAttachment0), fx.rec.TextureUnit(1))
	model, ok := fx.rec.UniformValue(water.Handle, "uModel")
	require.True(t, ok)
	assert.Equal(t, float32(1), model.([16]float32)[13], "water plane at its height")

	assert.Equal(t, []string{fmt.Sprintf("%d->0 color", tg.Forward.Framebuffer)}, fx.rec.Blits)
}

func TestRender_ForwardLastUniforms(t *testing.T) {
	fx := newFixture(t)
	fx.scene.AddEntity("cube", core.NewTransform(), fx.cube)
	f := fx.frame(t)
	f.WaterHeight = 1

	require.NoError(t, fx.orch.Render(ForwardLit, f))
	clip := fx.reg.ByName(shaders.ClippingPlane)
	plane, ok := fx.rec.UniformValue(clip.Handle, "uClippingPlane")
	require.True(t, ok)
	assert.Equal(t, [4]float32{0, -1, 0, 1}, plane, "refraction keeps what is below the surface")

	sky := fx.reg.ByName(shaders.Skybox)
	view, ok := fx.rec.UniformValue(sky.Handle, "uView")
	require.True(t, ok)
	assert.Equal(t, [16]float32(fx.cam.GetViewMatrix()), view, "forward skybox uses the real camera")
}

func TestRender_Flat(t *testing.T) {
	fx := newFixture(t)
	fx.scene.AddEntity("cube", core.NewTransform(), fx.cube)

	require.NoError(t, fx.orch.Render(FlatTextured, fx.frame(t)))

	require.Len(t, fx.rec.Draws, 1)
	d := fx.rec.Draws[0]
	assert.Equal(t, shaders.TexturedGeometry, d.ProgramName)
	assert.Equal(t, gpu.NoHandle, d.Framebuffer)
	assert.Equal(t, gpu.BlendAlpha, d.Blend)
	assert.Equal(t, int32(6), d.Count)
	assert.Equal(t, fx.scene.TextureHandle(fx.scene.White, fx.scene.White), fx.rec.TextureUnit(0))
	assert.Empty(t, fx.rec.Blits)
}

func TestRender_DebugGroups(t *testing.T) {
	fx := newFixture(t)
	fx.scene.AddEntity("cube", core.NewTransform(), fx.cube)
	fx.orch.DebugGroups = true

	require.NoError(t, fx.orch.Render(DeferredLit, fx.frame(t)))

	assert.Equal(t, "deferred/"+PassGeometry, fx.rec.Draws[0].Group)
	assert.Equal(t, "deferred/"+PassLighting, fx.rec.Draws[1].Group)
	assert.Equal(t, 0, fx.rec.GroupDepth())
	assert.Equal(t, "PushDebugGroup deferred", fx.rec.Ops[0])
}

func TestRender_MissingAttributeSkipsDraw(t *testing.T) {
	fx := newFixture(t)
	sphere, err := fx.scene.AddModel(core.ModelData{Mesh: core.SphereData(4, 8)})
	require.NoError(t, err)
	fx.scene.AddEntity("bare", core.NewTransform(), sphere)
	fx.scene.AddEntity("cube", core.NewTransform(), fx.cube)

	err = fx.orch.Render(ForwardLit, fx.frame(t))
	require.Error(t, err)

	var missing *gpu.MissingAttributeError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, uint32(core.LocNormal), missing.Location)
	assert.Contains(t, err.Error(), "location 1")

	forward := 0
	for _, name := range fx.rec.DrawNames() {
		if name == shaders.ForwardShading {
			forward++
		}
	}
	assert.Equal(t, 1, forward, "the cube still draws")
	assert.Equal(t, 3, fx.orch.Stats().Failed, "reflection, refraction and forward each fail once")
	assert.Contains(t, fx.rec.DrawNames(), shaders.Water)
}

func TestRender_EntityWithoutBlock(t *testing.T) {
	fx := newFixture(t)
	f := fx.frame(t)
	fx.scene.AddEntity("late", core.NewTransform(), fx.cube)

	err := fx.orch.Render(DeferredLit, f)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "late")
	assert.Equal(t, shaders.DeferredLighting, fx.rec.DrawNames()[0])
}

func TestRender_ReleasedProgramsAreSkipped(t *testing.T) {
	fx := newFixture(t)
	f := fx.frame(t)
	fx.reg.Release()

	require.NoError(t, fx.orch.Render(FlatTextured, f))
	assert.Empty(t, fx.rec.Draws)
	assert.Equal(t, 1, fx.orch.Stats().Skipped)
}

func TestRender_Preconditions(t *testing.T) {
	fx := newFixture(t)
	f := fx.frame(t)

	assert.Error(t, fx.orch.Render(Mode(7), f))

	require.NoError(t, fx.arena.BeginFrame())
	assert.ErrorContains(t, fx.orch.Render(DeferredLit, f), "mapped")
	fx.arena.EndFrame()

	assert.Error(t, fx.orch.Render(DeferredLit, &Frame{}))

	fx.rec.Reset()
	noGlobal := *f
	noGlobal.Global = gpu.Block{}
	assert.ErrorContains(t, fx.orch.Render(DeferredLit, &noGlobal), "global uniform block")
	assert.Empty(t, fx.rec.Draws)
}

func TestRender_NoPresent(t *testing.T) {
	fx := newFixture(t)
	fx.orch.Present = false

	require.NoError(t, fx.orch.Render(ForwardLit, fx.frame(t)))
	assert.Empty(t, fx.rec.Blits)
}

func TestParseMode(t *testing.T) {
	for _, m := range []Mode{FlatTextured, ForwardLit, DeferredLit} {
		got, err := ParseMode(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
	got, err := ParseMode("Deferred")
	require.NoError(t, err)
	assert.Equal(t, DeferredLit, got)

	_, err = ParseMode("raytraced")
	assert.Error(t, err)
	assert.Equal(t, "Mode(9)", Mode(9).String())
	assert.Equal(t, FlatTextured, DeferredLit.Next())
}
