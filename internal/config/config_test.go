package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matview/internal/core"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "matview.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, Validate(cfg))
	assert.Equal(t, core.ColormapNone, cfg.Colormap())
	assert.Equal(t, 50*time.Millisecond, cfg.ProgressInterval())
	assert.Equal(t, logrus.InfoLevel, cfg.Level())
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
log_level: warn
viewer:
  default_colormap: parula
export:
  fourcc: XVID
  progress_interval_ms: 250
share:
  temp_dir: /tmp/matview
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, logrus.WarnLevel, cfg.Level())
	assert.Equal(t, core.ColormapParula, cfg.Colormap())
	assert.Equal(t, "XVID", cfg.Export.FourCC)
	assert.Equal(t, 250*time.Millisecond, cfg.ProgressInterval())
	assert.Equal(t, "/tmp/matview", cfg.Share.TempDir)
	// untouched keys keep defaults
	assert.Equal(t, 1200, cfg.Viewer.WindowWidth)
	assert.Equal(t, ".png", cfg.Share.Format)
}

func TestDebugForcesDebugLevel(t *testing.T) {
	cfg := Default()
	cfg.Debug = true
	assert.Equal(t, logrus.DebugLevel, cfg.Level())
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"colormap": "viewer:\n  default_colormap: sepia\n",
		"fourcc":   "export:\n  fourcc: MPEG4\n",
		"level":    "log_level: loud\n",
		"interval": "export:\n  progress_interval_ms: -1\n",
		"format":   "share:\n  format: .gif\n",
		"syntax":   "viewer: [\n",
	}
	for name, body := range cases {
		_, err := Load(writeConfig(t, body))
		assert.Error(t, err, name)
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
