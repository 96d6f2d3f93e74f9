package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metatensor-ml/metatensor/meta"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Nil(t, cfg.TrackMeta)
	assert.Nil(t, cfg.TrackTransforms)
	assert.Empty(t, cfg.LogLevel)
}

func TestLoadMalformedFile(t *testing.T) {
	path := writeConfig(t, "track_meta: [not a bool")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadAndApply(t *testing.T) {
	defer meta.SetTrackMeta(true)
	defer meta.SetTrackTransforms(true)

	path := writeConfig(t, "track_meta: false\ntrack_transforms: false\nlog_level: debug\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	require.NotNil(t, cfg.TrackMeta)
	assert.False(t, *cfg.TrackMeta)
	require.NotNil(t, cfg.TrackTransforms)
	assert.False(t, *cfg.TrackTransforms)
	assert.Equal(t, "debug", cfg.LogLevel)

	cfg.Apply()
	assert.False(t, meta.TrackMeta())
	assert.False(t, meta.TrackTransforms())
}

func TestApplyLeavesUnsetFieldsAlone(t *testing.T) {
	defer meta.SetTrackMeta(true)
	meta.SetTrackMeta(false)

	Config{}.Apply()
	assert.False(t, meta.TrackMeta())
}
