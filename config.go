package agp

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

const DefaultConfigFilename = "agp.yml"

// maxConfigSize guards against pointing -config at something that is not a config file.
const maxConfigSize = 1024 * 1024

type Config struct {
	Window  WindowConfig  `yaml:"window"`
	Render  RenderConfig  `yaml:"render"`
	Shaders ShaderConfig  `yaml:"shaders"`
	Assets  AssetConfig   `yaml:"assets"`
	Camera  CameraConfig  `yaml:"camera"`
	Lights  []LightConfig `yaml:"lights"`
	Debug   bool          `yaml:"debug"`
}

type WindowConfig struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Title  string `yaml:"title"`
	VSync  bool   `yaml:"vsync"`
}

type RenderConfig struct {
	// Mode is one of "flat", "forward", "deferred".
	Mode        string     `yaml:"mode"`
	DebugGroups bool       `yaml:"debug_groups"`
	WaterHeight float32    `yaml:"water_height"`
	ClearColor  [4]float32 `yaml:"clear_color"`
}

type ShaderConfig struct {
	// Path of the shader file on disk. Empty means the embedded copy.
	Path      string `yaml:"path"`
	HotReload bool   `yaml:"hot_reload"`
}

type AssetConfig struct {
	Dir     string    `yaml:"dir"`
	Texture string    `yaml:"texture"`
	DudvMap string    `yaml:"dudv_map"`
	Skybox  [6]string `yaml:"skybox"`
}

type CameraConfig struct {
	Position    [3]float32 `yaml:"position"`
	Fov         float32    `yaml:"fov"`
	Near        float32    `yaml:"near"`
	Far         float32    `yaml:"far"`
	Speed       float32    `yaml:"speed"`
	Sensitivity float32    `yaml:"sensitivity"`
}

type LightConfig struct {
	// Type is "directional" or "point".
	Type      string     `yaml:"type"`
	Color     [3]float32 `yaml:"color"`
	Direction [3]float32 `yaml:"direction"`
	Position  [3]float32 `yaml:"position"`
	Radius    float32    `yaml:"radius"`
	Intensity float32    `yaml:"intensity"`
}

func DefaultConfig() Config {
	return Config{
		Window: WindowConfig{Width: 1280, Height: 720, Title: "AGP Engine", VSync: true},
		Render: RenderConfig{
			Mode:        "deferred",
			DebugGroups: true,
			WaterHeight: 0,
			ClearColor:  [4]float32{0.1, 0.1, 0.1, 1},
		},
		Shaders: ShaderConfig{HotReload: true},
		Camera: CameraConfig{
			Position:    [3]float32{0, 2, 8},
			Fov:         60,
			Near:        0.1,
			Far:         1000,
			Speed:       0.25,
			Sensitivity: 0.25,
		},
		Lights: []LightConfig{
			{Type: "directional", Color: [3]float32{1, 1, 1}, Direction: [3]float32{-0.3, -1, -0.2}, Intensity: 0.6},
			{Type: "point", Color: [3]float32{1, 0.5, 0.2}, Position: [3]float32{2, 1.5, 2}, Radius: 6, Intensity: 1},
		},
	}
}

// LoadConfig reads a YAML config over the defaults. A missing file is not an
// error: the defaults are returned.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: stat %s: %w", path, err)
	}
	if info.Size() > maxConfigSize {
		return cfg, fmt.Errorf("config: %s is %d bytes, larger than %d", path, info.Size(), maxConfigSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	return ParseConfig(data)
}

func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("config: window size %dx%d must be positive", c.Window.Width, c.Window.Height)
	}
	switch c.Render.Mode {
	case "flat", "forward", "deferred":
	default:
		return fmt.Errorf("config: unknown render mode %q", c.Render.Mode)
	}
	for i, l := range c.Lights {
		switch l.Type {
		case "directional", "point":
		default:
			return fmt.Errorf("config: light %d: unknown type %q", i, l.Type)
		}
		if l.Type == "point" && l.Radius <= 0 {
			return fmt.Errorf("config: light %d: point light needs a positive radius", i)
		}
	}
	return nil
}
