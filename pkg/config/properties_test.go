package config_test

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/downfa11-org/go-journal/pkg/config"
	"github.com/downfa11-org/go-journal/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestNormalizeDefaults(t *testing.T) {
	cfg := &config.Config{}
	cfg.Normalize()

	if cfg.Location != config.DefaultLocation {
		t.Errorf("Location default incorrect: %q", cfg.Location)
	}
	if cfg.GroupID != config.DefaultGroupID {
		t.Errorf("GroupID default incorrect: %q", cfg.GroupID)
	}
	if cfg.CloseTimeoutMS != config.DefaultCloseTimeoutMS {
		t.Errorf("CloseTimeoutMS default incorrect: %d", cfg.CloseTimeoutMS)
	}
	if cfg.EntryTimeFormat != config.DefaultEntryTimeFormat || cfg.FileTimeFormat != config.DefaultFileTimeFormat {
		t.Errorf("time formats default incorrect: %q %q", cfg.EntryTimeFormat, cfg.FileTimeFormat)
	}
	if cfg.RetryCount != config.DefaultRetryCount {
		t.Errorf("RetryCount default incorrect: %d", cfg.RetryCount)
	}
	if cfg.SweepPeriodMS != 0 {
		t.Errorf("SweepPeriodMS should stay disabled when unset, got %d", cfg.SweepPeriodMS)
	}
	if cfg.FileLock == nil || !*cfg.FileLock {
		t.Errorf("FileLock should default on")
	}
}

func TestNormalizeKeepsFileLockOptOut(t *testing.T) {
	off := false
	cfg := &config.Config{FileLock: &off}
	cfg.Normalize()
	assert.False(t, cfg.LockFiles())

	data := []byte("file_lock: false\n")
	fromYAML := &config.Config{}
	require.NoError(t, yaml.Unmarshal(data, fromYAML))
	fromYAML.Normalize()
	assert.False(t, fromYAML.LockFiles())
}

func TestNormalizeKeepsNegativeArchive(t *testing.T) {
	cfg := &config.Config{ArchiveAfterMS: -1, RepublishAfterMS: -5, SweepPeriodMS: -3}
	cfg.Normalize()

	assert.Equal(t, int64(-1), cfg.ArchiveAfterMS)
	assert.True(t, cfg.ArchiveAfter() < 0)
	assert.Equal(t, int64(0), cfg.RepublishAfterMS)
	assert.Equal(t, 0, cfg.SweepPeriodMS)
}

func TestValidate(t *testing.T) {
	cfg := &config.Config{Timezone: "Mars/Olympus"}
	cfg.Normalize()
	require.Error(t, cfg.Validate())

	cfg = &config.Config{Compression: "brotli"}
	cfg.Normalize()
	require.Error(t, cfg.Validate())

	for _, group := range []string{"a/b", `a\b`, ".", "..", "../x"} {
		cfg = &config.Config{GroupID: group}
		cfg.Normalize()
		require.Error(t, cfg.Validate(), "group %q", group)
	}
	require.Error(t, config.ValidateGroupID(""))
	require.NoError(t, config.ValidateGroupID("orders.v2"))

	cfg = &config.Config{Timezone: "Europe/Berlin", Compression: "lz4"}
	cfg.Normalize()
	require.NoError(t, cfg.Validate())
	loc, err := cfg.TimeLocation()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", loc.String())
}

func TestLoadConfigFrom_FileAndFlags(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "journal.yaml")
	yamlData := `
location: /var/lib/journal
group_id: orders
unique_id: node-a
sweep_period_ms: 2500
republish_after_ms: 30000
archive_after_ms: -1
log_level: debug
compression: snappy
`
	require.NoError(t, os.WriteFile(path, []byte(yamlData), 0o644))
	defer util.SetLevel(util.LogLevelInfo)

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg, err := config.LoadConfigFrom(fs, []string{"-config", path, "-unique-id", "node-b", "-port", "7000"})
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/journal", cfg.Location)
	assert.Equal(t, "orders", cfg.GroupID)
	assert.Equal(t, "node-b", cfg.UniqueID, "explicit flag overrides file")
	assert.Equal(t, 2500*time.Millisecond, cfg.SweepPeriod())
	assert.Equal(t, 30*time.Second, cfg.RepublishAfter())
	assert.Equal(t, int64(-1), cfg.ArchiveAfterMS)
	assert.Equal(t, util.LogLevelDebug, cfg.LogLevel)
	assert.Equal(t, "snappy", cfg.Compression)
	assert.True(t, cfg.LockFiles(), "file lock defaults on from flags")
	assert.Equal(t, 7000, cfg.ServerPort)
}

func TestLoadConfigFrom_JSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "journal.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"group.id":"billing","retry.count":7,"log_level":"warn"}`), 0o644))
	defer util.SetLevel(util.LogLevelInfo)

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg, err := config.LoadConfigFrom(fs, []string{"-config", path})
	require.NoError(t, err)

	assert.Equal(t, "billing", cfg.GroupID)
	assert.Equal(t, 7, cfg.RetryCount)
	assert.Equal(t, util.LogLevelWarn, cfg.LogLevel)
	assert.Equal(t, config.DefaultLocation, cfg.Location)
	assert.Equal(t, config.DefaultServerPort, cfg.ServerPort)
}
