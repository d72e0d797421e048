package main

import (
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/go-gl/glfw/v3.3/glfw"

	agp "github.com/vsRushy/AGP-Project2"
	"github.com/vsRushy/AGP-Project2/engine/rt/app"
	"github.com/vsRushy/AGP-Project2/engine/rt/core"
	"github.com/vsRushy/AGP-Project2/engine/rt/gpu"
	"github.com/vsRushy/AGP-Project2/engine/rt/passes"
)

func init() {
	runtime.LockOSThread()
}

var moveKeys = map[glfw.Key]core.MoveDir{
	glfw.KeyW: core.MoveForward,
	glfw.KeyS: core.MoveBack,
	glfw.KeyA: core.MoveLeft,
	glfw.KeyD: core.MoveRight,
	glfw.KeyE: core.MoveUp,
	glfw.KeyQ: core.MoveDown,
}

// errorOnce logs a failure when it first appears, not on every frame it
// repeats.
type errorOnce struct {
	log  agp.Logger
	last string
}

func (e *errorOnce) report(err error) {
	if err == nil {
		e.last = ""
		return
	}
	if msg := err.Error(); msg != e.last {
		e.log.Errorf("%s", msg)
		e.last = msg
	}
}

func main() {
	configPath := flag.String("config", agp.DefaultConfigFilename, "YAML config file")
	debug := flag.Bool("debug", false, "Enable debug logging and periodic frame stats")
	mode := flag.String("mode", "", "Render mode override: flat, forward or deferred")
	flag.Parse()

	log := agp.NewDefaultLogger("agp", *debug)

	cfg, err := agp.LoadConfig(*configPath)
	if err != nil {
		log.Errorf("%v", err)
		os.Exit(1)
	}
	if *mode != "" {
		if _, err := passes.ParseMode(*mode); err != nil {
			log.Errorf("%v", err)
			os.Exit(2)
		}
		cfg.Render.Mode = *mode
	}
	cfg.Debug = cfg.Debug || *debug
	log.SetDebug(cfg.Debug)

	if err := glfw.Init(); err != nil {
		panic(err)
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 3)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	if cfg.Debug {
		glfw.WindowHint(glfw.OpenGLDebugContext, glfw.True)
	}
	window, err := glfw.CreateWindow(cfg.Window.Width, cfg.Window.Height, cfg.Window.Title, nil, nil)
	if err != nil {
		panic(err)
	}
	defer window.Destroy()
	window.MakeContextCurrent()
	if cfg.Window.VSync {
		glfw.SwapInterval(1)
	} else {
		glfw.SwapInterval(0)
	}

	device, err := gpu.NewGLDevice()
	if err != nil {
		panic(err)
	}

	// The framebuffer can be larger than the window on high-dpi screens.
	cfg.Window.Width, cfg.Window.Height = window.GetFramebufferSize()
	application := app.NewApp(cfg, device, log)
	if err := application.Init(); err != nil {
		log.Errorf("init: %v", err)
		os.Exit(1)
	}
	defer application.Release()

	window.SetFramebufferSizeCallback(func(w *glfw.Window, width, height int) {
		if err := application.Resize(width, height); err != nil {
			log.Errorf("resize to %dx%d: %v", width, height, err)
		}
	})

	window.SetCursorPosCallback(func(w *glfw.Window, xpos, ypos float64) {
		application.Input.CursorMoved(float32(xpos), float32(ypos))
	})

	window.SetScrollCallback(func(w *glfw.Window, xoff, yoff float64) {
		application.Input.Scrolled(float32(yoff))
	})

	window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if dir, ok := moveKeys[key]; ok && action != glfw.Repeat {
			application.Input.SetKey(dir, action == glfw.Press)
			return
		}
		if action != glfw.Press {
			return
		}
		switch key {
		case glfw.KeyTab:
			in := application.Input
			in.Looking = !in.Looking
			if in.Looking {
				w.SetInputMode(glfw.CursorMode, glfw.CursorDisabled)
			} else {
				w.SetInputMode(glfw.CursorMode, glfw.CursorNormal)
			}
		case glfw.KeyM:
			application.Input.ToggleMode = true
		case glfw.KeyG:
			application.Input.ToggleDebug = true
		case glfw.KeyEscape:
			w.SetShouldClose(true)
		}
	})

	updateErrs := &errorOnce{log: log}
	renderErrs := &errorOnce{log: log}
	last := time.Now()
	lastStats := last
	for !window.ShouldClose() {
		glfw.PollEvents()

		now := time.Now()
		dt := now.Sub(last)
		last = now

		updateErrs.report(application.Update(dt))
		renderErrs.report(application.Render())
		window.SwapBuffers()

		application.Profiler.Frame(dt)
		if cfg.Debug && now.Sub(lastStats) >= 5*time.Second {
			log.Debugf("\n%s", application.Profiler.StatsString())
			lastStats = now
		}
	}
}
