package agp

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig_OverridesDefaults(t *testing.T) {
	data := []byte(`
window:
  width: 800
  height: 600
render:
  mode: forward
  water_height: 1.5
lights:
  - type: point
    color: [1, 0, 0]
    position: [0, 2, 0]
    radius: 4
    intensity: 2
`)
	cfg, err := ParseConfig(data)
	require.NoError(t, err)

	assert.Equal(t, 800, cfg.Window.Width)
	assert.Equal(t, 600, cfg.Window.Height)
	assert.Equal(t, "AGP Engine", cfg.Window.Title, "unset fields keep their defaults")
	assert.Equal(t, "forward", cfg.Render.Mode)
	assert.Equal(t, float32(1.5), cfg.Render.WaterHeight)
	require.Len(t, cfg.Lights, 1)
	assert.Equal(t, float32(4), cfg.Lights[0].Radius)
}

func TestParseConfig_Rejects(t *testing.T) {
	cases := map[string]string{
		"mode":   "render:\n  mode: raytraced\n",
		"size":   "window:\n  width: 0\n",
		"light":  "lights:\n  - type: spot\n",
		"radius": "lights:\n  - type: point\n    radius: 0\n",
		"syntax": "window: [",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseConfig([]byte(data))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfig_ReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultConfigFilename)
	require.NoError(t, os.WriteFile(path, []byte("render:\n  mode: flat\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "flat", cfg.Render.Mode)
}

func TestDefaultLogger_Levels(t *testing.T) {
	var out, errOut bytes.Buffer
	l := NewLoggerTo(&out, &errOut, "core", false)

	l.Debugf("hidden %d", 1)
	l.Infof("shown %d", 2)
	l.Errorf("bad %s", "thing")

	assert.NotContains(t, out.String(), "hidden")
	assert.Contains(t, out.String(), "[core] INFO: shown 2")
	assert.Contains(t, errOut.String(), "[core] ERROR: bad thing")

	l.SetDebug(true)
	l.Debugf("now visible")
	assert.True(t, strings.Contains(out.String(), "DEBUG: now visible"))
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))
	l := NewDefaultLogger("x", false)
	assert.Same(t, l, OrNop(l))
}
