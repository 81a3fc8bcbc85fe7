package main

import (
	"bytes"
	"context"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"matview/internal/algorithms"
	"matview/internal/config"
	"matview/internal/io"
)

func TestTransformsCommandListsRegistry(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"transforms"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "Filters:\n  gaussian - ")
	assert.Contains(t, out.String(), "Channels:\n  channel - ")
	assert.Contains(t, out.String(), "  colormap - ")
	assert.Contains(t, out.String(), "kernel_size (int, 3..21, default 5)")
	assert.Contains(t, out.String(), "none|autumn|bone|jet")
}

func TestLoadAppliesFlagOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "matview.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: warn\nexport:\n  fourcc: XVID\n"), 0o644))

	opts := &rootOptions{configPath: path, logLevel: "error"}
	cfg, logger, err := opts.load()
	require.NoError(t, err)
	assert.Equal(t, "XVID", cfg.Export.FourCC)
	assert.Equal(t, logrus.ErrorLevel, logger.GetLevel())

	opts.debug = true
	cfg, logger, err = opts.load()
	require.NoError(t, err)
	assert.True(t, cfg.Debug)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	_, isText := logger.Formatter.(*logrus.TextFormatter)
	assert.True(t, isText)
}

func TestLoadRejectsBadLevel(t *testing.T) {
	_, _, err := (&rootOptions{logLevel: "chatty"}).load()
	assert.Error(t, err)
}

func TestExportCommandRequiresFlags(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"export", "--in", "clip.avi"})
	assert.Error(t, cmd.Execute())
}

func TestExportCommandRejectsUnknownTransform(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"export", "--in", "clip.avi", "--out", "out.avi", "-t", "sharpen"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown transform")
}

// writeClip records solid gray frames, each brighter than the last.
func writeClip(t *testing.T, path string, frames int) {
	t.Helper()
	logger, _ := logtest.NewNullLogger()
	sink, err := io.CreateVideo(path, "MJPG", 10, image.Pt(32, 24), logger)
	require.NoError(t, err)
	for i := 0; i < frames; i++ {
		frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(float64(i*8), float64(i*8), float64(i*8), 0), 24, 32, gocv.MatTypeCV8UC3)
		require.NoError(t, sink.Write(frame))
		frame.Close()
	}
	require.NoError(t, sink.Close())
}

func TestRunExportThrottlesProgress(t *testing.T) {
	const frames = 30
	dir := t.TempDir()
	input := filepath.Join(dir, "clip.avi")
	output := filepath.Join(dir, "out.avi")
	writeClip(t, input, frames)

	cfg := config.Default()
	cfg.Export.ProgressIntervalMS = 200

	chain, err := algorithms.ParseChain([]string{"gaussian"})
	require.NoError(t, err)

	logger, hook := logtest.NewNullLogger()
	require.NoError(t, runExport(context.Background(), logger, cfg, input, output, chain))

	var progress []*logrus.Entry
	for _, entry := range hook.AllEntries() {
		if entry.Message == "EXPORT: Progress" {
			progress = append(progress, entry)
		}
	}
	require.NotEmpty(t, progress)
	assert.Less(t, len(progress), frames)

	last := progress[len(progress)-1]
	assert.Equal(t, frames, last.Data["frame"])
	assert.Equal(t, frames, last.Data["total"])
	assert.FileExists(t, output)
}
