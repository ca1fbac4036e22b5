package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doismellburning/samoyed/internal/snaperr"
)

func TestLoadFileMissingPathReturnsDefaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFileEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := LoadFile("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFileParsesYAMLOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "client.yaml")
	contents := "host: snapserver.local\nport: 1705\nmdns: false\nbuffer_capacity_chunks: 50\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "snapserver.local", cfg.Host)
	assert.Equal(t, 1705, cfg.Port)
	assert.False(t, cfg.MDNS)
	assert.Equal(t, 50, cfg.BufferCapacityChunks)
	// Untouched fields keep their defaults.
	assert.Equal(t, Default().ClientName, cfg.ClientName)
}

func TestApplyOverridesNonZeroFlagsOnly(t *testing.T) {
	cfg := Default()
	host := "override.local"
	port := 0
	f := &Flags{Host: &host, Port: &port}

	cfg = Apply(cfg, f)
	assert.Equal(t, "override.local", cfg.Host)
	assert.False(t, cfg.MDNS) // setting Host disables mDNS
	assert.Equal(t, Default().Port, cfg.Port)
}

func TestApplyNilFlagsIsNoop(t *testing.T) {
	cfg := Default()
	assert.Equal(t, cfg, Apply(cfg, nil))
}

func TestValidateRejectsBufferCapacityOutOfRange(t *testing.T) {
	cfg := Default()
	cfg.BufferCapacityChunks = 0
	err := Validate(cfg)
	require.Error(t, err)
	assert.True(t, snaperr.Is(err, snaperr.ConfigRejected))

	cfg.BufferCapacityChunks = 1001
	err = Validate(cfg)
	require.Error(t, err)
	assert.True(t, snaperr.Is(err, snaperr.ConfigRejected))
}

func TestValidateRequiresHostAndPortWhenMDNSDisabled(t *testing.T) {
	cfg := Default()
	cfg.MDNS = false
	cfg.Host = ""

	err := Validate(cfg)
	require.Error(t, err)
	assert.True(t, snaperr.Is(err, snaperr.ConfigRejected))

	cfg.Host = "snapserver.local"
	cfg.Port = 70000
	err = Validate(cfg)
	require.Error(t, err)
	assert.True(t, snaperr.Is(err, snaperr.ConfigRejected))

	cfg.Port = 1704
	assert.NoError(t, Validate(cfg))
}

func TestValidateAllowsMissingHostWhenMDNSEnabled(t *testing.T) {
	cfg := Default()
	cfg.MDNS = true
	cfg.Host = ""
	assert.NoError(t, Validate(cfg))
}
