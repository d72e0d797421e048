package app

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/jinzhu/copier"

	agp "github.com/vsRushy/AGP-Project2"
	"github.com/vsRushy/AGP-Project2/engine/rt/core"
	"github.com/vsRushy/AGP-Project2/engine/rt/passes"
)

// Settings are the values a user can change while running. Update renders
// from a snapshot so edits never land half way through a frame.
type Settings struct {
	Mode        passes.Mode
	DebugGroups bool
	WaterHeight float32
	WaveSpeed   float32
	ClearColor  mgl32.Vec4
	Lights      []core.Light
}

func SettingsFromConfig(cfg agp.Config) (Settings, error) {
	mode, err := passes.ParseMode(cfg.Render.Mode)
	if err != nil {
		return Settings{}, err
	}
	s := Settings{
		Mode:        mode,
		DebugGroups: cfg.Render.DebugGroups,
		WaterHeight: cfg.Render.WaterHeight,
		WaveSpeed:   0.03,
		ClearColor:  mgl32.Vec4(cfg.Render.ClearColor),
	}
	for i, lc := range cfg.Lights {
		lt, err := core.ParseLightType(lc.Type)
		if err != nil {
			return Settings{}, fmt.Errorf("light %d: %w", i, err)
		}
		s.Lights = append(s.Lights, core.Light{
			Type:      lt,
			Color:     mgl32.Vec3(lc.Color),
			Direction: mgl32.Vec3(lc.Direction),
			Position:  mgl32.Vec3(lc.Position),
			Radius:    lc.Radius,
			Intensity: lc.Intensity,
		})
	}
	return s, nil
}

// Snapshot is a deep copy; the light slice is not shared.
func (s *Settings) Snapshot() Settings {
	var out Settings
	if err := copier.CopyWithOption(&out, s, copier.Option{DeepCopy: true}); err != nil {
		// copier only fails on mismatched kinds, which a same-type copy
		// cannot produce.
		panic(err)
	}
	return out
}
