package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	agp "github.com/vsRushy/AGP-Project2"
	"github.com/vsRushy/AGP-Project2/engine/rt/assets"
	"github.com/vsRushy/AGP-Project2/engine/rt/core"
	"github.com/vsRushy/AGP-Project2/engine/rt/gpu"
	"github.com/vsRushy/AGP-Project2/engine/rt/passes"
	"github.com/vsRushy/AGP-Project2/engine/rt/shaders"
)

// App is the render core: it owns every GPU resource and drives one frame at
// a time. It never touches the window; main feeds it input and sizes.
type App struct {
	Config agp.Config
	Log    agp.Logger
	Device gpu.Device

	Binder   *gpu.Binder
	Programs *shaders.Registry
	Targets  *gpu.RenderTargets
	Arena    *gpu.UniformArena
	Scene    *core.Scene
	Passes   *passes.Orchestrator
	Loader   *assets.Loader

	Camera   *core.Camera
	Input    *Input
	Profiler *Profiler
	Settings Settings

	Width, Height int
	FrameCount    int

	snapshot    Settings
	frame       passes.Frame
	moveFactor  float32
	flatTexture gpu.Handle

	// arenaErr is set when this frame's global block could not be written.
	arenaErr error
	// light count last warned about, 0 when within MaxLights
	cappedLights int
}

func NewApp(cfg agp.Config, device gpu.Device, log agp.Logger) *App {
	c := cfg.Camera
	cam := core.NewCamera(mgl32.Vec3(c.Position), c.Fov, c.Near, c.Far)
	if c.Speed > 0 {
		cam.Speed = c.Speed
	}
	if c.Sensitivity > 0 {
		cam.Sensitivity = c.Sensitivity
	}
	cam.SetAspectRatio(cfg.Window.Width, cfg.Window.Height)

	return &App{
		Config:   cfg,
		Log:      agp.OrNop(log),
		Device:   device,
		Camera:   cam,
		Input:    NewInput(),
		Profiler: NewProfiler(),
		Width:    cfg.Window.Width,
		Height:   cfg.Window.Height,
	}
}

func (a *App) shaderSource() (shaders.SourceProvider, string) {
	if a.Config.Shaders.Path != "" {
		return shaders.FileSource{}, a.Config.Shaders.Path
	}
	return shaders.EmbeddedSource{}, shaders.EmbeddedPath
}

func (a *App) Init() error {
	info := a.Device.Info()
	a.Log.Infof("GL %s, GLSL %s, %s (%s)", info.Version, info.GLSLVersion, info.Renderer, info.Vendor)
	limits := a.Device.Limits()
	a.Log.Debugf("limits: uniform block %d bytes, offset alignment %d, %d color attachments",
		limits.MaxUniformBlockSize, limits.UniformOffsetAlignment, limits.MaxColorAttachments)

	settings, err := SettingsFromConfig(a.Config)
	if err != nil {
		return err
	}
	a.Settings = settings

	a.Binder = gpu.NewBinder(a.Device, a.Log)
	a.Arena = gpu.NewUniformArena(a.Device, a.Log)

	a.Targets, err = gpu.NewRenderTargets(a.Device, a.Width, a.Height, a.Log)
	if err != nil {
		return fmt.Errorf("render targets: %w", err)
	}

	source, path := a.shaderSource()
	a.Programs = shaders.NewRegistry(a.Device, source, a.Log)
	if errs := a.Programs.LoadAll(path, shaders.Variants); len(errs) > 0 {
		// Broken programs are skipped by the passes and may come back
		// through hot reload.
		a.Log.Warnf("%d of %d shader programs failed to build", len(errs), len(shaders.Variants))
	}

	a.Scene, err = core.NewScene(a.Device, a.Log)
	if err != nil {
		return fmt.Errorf("scene: %w", err)
	}
	a.Loader = assets.NewLoader(a.Config.Assets.Dir, a.Log)
	a.Scene.LoadSkybox(a.Loader, a.Config.Assets.Skybox)
	a.Scene.LoadDudvMap(a.Loader, a.Config.Assets.DudvMap)
	if err := a.populate(); err != nil {
		return err
	}

	a.Passes = passes.NewOrchestrator(a.Device, a.Binder, a.Programs, a.Targets, a.Arena, a.Scene, a.Log)
	a.Log.Infof("render core ready: %s mode, %d programs, %d entities", a.Settings.Mode, len(a.Programs.Programs()), len(a.Scene.Entities))
	return nil
}

// populate builds the demo scene: a textured ground below the water line and
// a ring of cubes around the origin.
func (a *App) populate() error {
	s := a.Scene

	albedo := uint32(core.NoTexture)
	if a.Config.Assets.Texture != "" {
		albedo = s.LoadTexture2D(a.Loader, a.Config.Assets.Texture)
	}
	a.flatTexture = s.TextureHandle(albedo, s.White)

	ground := core.NewMaterial("ground", mgl32.Vec3{0.6, 0.6, 0.5})
	ground.AlbedoTexture = albedo
	groundModel, err := s.AddModel(core.ModelData{
		Mesh:          core.GroundData(20, 8),
		Materials:     []core.Material{ground},
		MaterialIndex: []int{0},
	})
	if err != nil {
		return err
	}
	s.AddEntity("ground", core.TransformAt(mgl32.Vec3{0, a.Settings.WaterHeight - 1, 0}, 1), groundModel)

	cube, err := s.AddModel(core.ModelData{Mesh: core.LitCubeData()})
	if err != nil {
		return err
	}
	const ring = 6
	for i := 0; i < ring; i++ {
		angle := 2 * math32.Pi * float32(i) / ring
		t := core.TransformAt(mgl32.Vec3{4 * math32.Cos(angle), a.Settings.WaterHeight + 0.5, 4 * math32.Sin(angle)}, 1)
		t.Rotation = mgl32.QuatRotate(angle, mgl32.Vec3{0, 1, 0})
		s.AddEntity(fmt.Sprintf("cube%d", i), t, cube)
	}
	return nil
}

// Update applies input and hot reload, then writes this frame's uniform
// blocks. Render must follow.
func (a *App) Update(dt time.Duration) error {
	a.Profiler.BeginScope("Update")
	defer a.Profiler.EndScope("Update")

	if a.Config.Shaders.HotReload {
		if n := a.Programs.PollAndReload(); n > 0 {
			a.Log.Infof("%d shader programs reloaded", n)
		}
	}

	a.Input.Apply(a.Camera)
	if a.Input.ToggleMode {
		a.Settings.Mode = a.Settings.Mode.Next()
		a.Log.Infof("render mode: %s", a.Settings.Mode)
	}
	if a.Input.ToggleDebug {
		a.Settings.DebugGroups = !a.Settings.DebugGroups
	}
	a.Input.Consume()

	a.snapshot = a.Settings.Snapshot()
	snap := &a.snapshot
	a.moveFactor = math32.Mod(a.moveFactor+snap.WaveSpeed*float32(dt.Seconds()), 1)

	lights := snap.Lights
	if len(lights) > gpu.MaxLights {
		if a.cappedLights != len(lights) {
			a.Log.Warnf("%d lights, only the first %d are shaded", len(lights), gpu.MaxLights)
			a.cappedLights = len(lights)
		}
		lights = lights[:gpu.MaxLights]
	} else {
		a.cappedLights = 0
	}
	a.Scene.Lights = lights

	return a.writeBlocks(snap)
}

// writeBlocks drops last frame's blocks before writing new ones, so a failed
// write never leaves stale offsets for Render to draw with.
func (a *App) writeBlocks(snap *Settings) error {
	a.frame = passes.Frame{}
	for _, e := range a.Scene.Entities {
		e.Block = gpu.Block{}
	}
	a.arenaErr = nil

	if err := a.Arena.BeginFrame(); err != nil {
		a.arenaErr = err
		return err
	}
	defer a.Arena.EndFrame()

	global, err := a.Arena.PushGlobalBlock(a.Camera.Position, core.LightBlocks(a.Scene.Lights))
	if err != nil {
		a.arenaErr = err
		return err
	}
	vp := a.Camera.GetViewProjection()
	var errs []error
	for _, e := range a.Scene.Entities {
		e.Block, err = a.Arena.PushInstanceBlock(e.Transform.World(), vp)
		if err != nil {
			// The entity is left without a block and skipped by the passes.
			errs = append(errs, fmt.Errorf("entity %s: %w", e.Name, err))
		}
	}

	a.frame = passes.Frame{
		Camera:      a.Camera,
		Global:      global,
		Width:       a.Width,
		Height:      a.Height,
		ClearColor:  snap.ClearColor,
		WaterHeight: snap.WaterHeight,
		WaterSize:   20,
		MoveFactor:  a.moveFactor,
		FlatTexture: a.flatTexture,
	}
	a.Profiler.SetCount("Arena Bytes", a.Arena.Head())
	a.Profiler.SetCount("Arena Blocks", a.Arena.BlockCount())
	return errors.Join(errs...)
}

func (a *App) Render() error {
	a.Profiler.BeginScope("Render")
	defer a.Profiler.EndScope("Render")

	if a.arenaErr != nil {
		a.Profiler.SetCount("Draws", 0)
		return fmt.Errorf("render: frame skipped, uniform arena write failed: %w", a.arenaErr)
	}

	a.Passes.DebugGroups = a.snapshot.DebugGroups
	err := a.Passes.Render(a.snapshot.Mode, &a.frame)

	stats := a.Passes.Stats()
	a.Profiler.SetCount("Draws", stats.Total())
	a.Profiler.SetCount("Failed Draws", stats.Failed)
	a.Profiler.SetCount("Bindings", a.Binder.Created())
	a.FrameCount++
	return err
}

// Resize recreates the render targets. A failed resize keeps the old ones.
func (a *App) Resize(w, h int) error {
	if w <= 0 || h <= 0 || (w == a.Width && h == a.Height) {
		return nil
	}
	if err := a.Targets.Resize(w, h); err != nil {
		return err
	}
	a.Width, a.Height = w, h
	a.Camera.SetAspectRatio(w, h)
	return nil
}

func (a *App) Release() {
	if a.Programs != nil {
		a.Programs.Release()
	}
	if a.Targets != nil {
		a.Targets.Release()
	}
	if a.Arena != nil {
		a.Arena.Release()
	}
	if a.Scene != nil {
		a.Scene.Release()
	}
}
