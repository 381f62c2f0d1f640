package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/downfa11-org/go-journal/util"
	"gopkg.in/yaml.v3"
)

const (
	DefaultLocation          = "journal-data"
	DefaultGroupID           = "default-group"
	DefaultSweepPeriodMS     = 10000
	DefaultRepublishAfterMS  = 60000
	DefaultArchiveAfterMS    = 24 * 60 * 60 * 1000
	DefaultCloseTimeoutMS    = 5000
	DefaultEntryTimeFormat   = "20060102150405.000"
	DefaultFileTimeFormat    = "2006010215"
	DefaultTimezone          = "UTC"
	DefaultRetryCount        = 3
	DefaultDeliverableBuffer = 10000
	DefaultExporterPort      = 9100
	DefaultServerPort        = 9000
)

// Config represents the journal configuration accepted before a store is opened.
type Config struct {
	// Store identity
	Location string `yaml:"location" json:"location"`
	GroupID  string `yaml:"group_id" json:"group.id"`
	UniqueID string `yaml:"unique_id" json:"unique.id"`

	// Sweep engine
	SweepPeriodMS    int   `yaml:"sweep_period_ms" json:"sweep.period.ms"`
	RepublishAfterMS int64 `yaml:"republish_after_ms" json:"republish.after.ms"`
	ArchiveAfterMS   int64 `yaml:"archive_after_ms" json:"archive.after.ms"`
	CloseTimeoutMS   int   `yaml:"close_timeout_ms" json:"close.timeout.ms"`

	// Record and file naming
	EntryTimeFormat string `yaml:"entry_time_format" json:"entry.time.format"`
	FileTimeFormat  string `yaml:"file_time_format" json:"file.time.format"`
	Timezone        string `yaml:"timezone" json:"timezone"`
	Compression     string `yaml:"compression" json:"compression"`
	FileLock        *bool  `yaml:"file_lock" json:"file.lock"` // nil means on
	SyncWrites      bool   `yaml:"sync_writes" json:"sync.writes"`

	// Delivery
	RetryCount        int `yaml:"retry_count" json:"retry.count"`
	DeliverableBuffer int `yaml:"deliverable_buffer" json:"deliverable.buffer"`

	// Admin command port of journald (0=disabled)
	ServerPort int `yaml:"server_port" json:"server.port"`

	// Observability
	EnableExporter bool          `yaml:"enable_exporter" json:"enable.exporter"`
	ExporterPort   int           `yaml:"exporter_port" json:"exporter.port"`
	LogLevel       util.LogLevel `yaml:"log_level" json:"log_level"`
}

// LoadConfig parses command-line flags, overlays an optional YAML/JSON file and then
// re-applies any flag the user set explicitly.
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(flag.CommandLine, os.Args[1:])
}

func LoadConfigFrom(fs *flag.FlagSet, args []string) (*Config, error) {
	cfg := &Config{}

	configPath := fs.String("config", "", "Path to YAML/JSON config file")
	location := fs.String("location", DefaultLocation, "Root directory for journal files")
	groupID := fs.String("group-id", DefaultGroupID, "Logical queue shared by cooperating stores")
	uniqueID := fs.String("unique-id", "", "Identity of this store within the group (default: host-pid)")
	sweepPeriod := fs.String("sweep-period-ms", fmt.Sprint(DefaultSweepPeriodMS), "Sweep period in milliseconds (0=disabled)")
	republishAfter := fs.String("republish-after-ms", fmt.Sprint(DefaultRepublishAfterMS), "Age after which undeleted records are republished")
	archiveAfter := fs.String("archive-after-ms", fmt.Sprint(DefaultArchiveAfterMS), "Age after which archived files are purged (negative=never)")
	closeTimeout := fs.String("close-timeout-ms", fmt.Sprint(DefaultCloseTimeoutMS), "Time to wait for the sweep worker on close")
	entryFormat := fs.String("entry-time-format", DefaultEntryTimeFormat, "Go time layout for record timestamps")
	fileFormat := fs.String("file-time-format", DefaultFileTimeFormat, "Go time layout for journal file buckets")
	timezone := fs.String("timezone", DefaultTimezone, "Timezone for timestamps and file buckets")
	compression := fs.String("compression", "none", "Payload compression (none, gzip, snappy, lz4)")
	fileLock := fs.String("file-lock", "true", "Take advisory file locks on append and delete")
	syncWrites := fs.String("sync-writes", "false", "fsync after every append and delete")
	retryCount := fs.String("retry-count", fmt.Sprint(DefaultRetryCount), "Redelivery attempts before backout")
	deliverableBuffer := fs.String("deliverable-buffer", fmt.Sprint(DefaultDeliverableBuffer), "Capacity of the republished entry queue")
	serverPort := fs.String("port", fmt.Sprint(DefaultServerPort), "Admin command port (0=disabled)")
	exporter := fs.String("exporter", "false", "Enable Prometheus exporter")
	exporterPort := fs.String("exporter-port", fmt.Sprint(DefaultExporterPort), "Exporter port")
	logLevel := fs.String("log-level", "info", "Log Level (debug, info, warn, error)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" && *configPath == "" {
		*configPath = envPath
	}

	explicit := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	apply := func(onlyExplicit bool) {
		set := func(name string) bool { return !onlyExplicit || explicit[name] }
		if set("location") {
			cfg.Location = *location
		}
		if set("group-id") {
			cfg.GroupID = *groupID
		}
		if set("unique-id") {
			cfg.UniqueID = *uniqueID
		}
		if set("sweep-period-ms") {
			cfg.SweepPeriodMS = util.ParseInt(*sweepPeriod, DefaultSweepPeriodMS)
		}
		if set("republish-after-ms") {
			cfg.RepublishAfterMS = util.ParseInt64(*republishAfter, DefaultRepublishAfterMS)
		}
		if set("archive-after-ms") {
			cfg.ArchiveAfterMS = util.ParseInt64(*archiveAfter, DefaultArchiveAfterMS)
		}
		if set("close-timeout-ms") {
			cfg.CloseTimeoutMS = util.ParseInt(*closeTimeout, DefaultCloseTimeoutMS)
		}
		if set("entry-time-format") {
			cfg.EntryTimeFormat = *entryFormat
		}
		if set("file-time-format") {
			cfg.FileTimeFormat = *fileFormat
		}
		if set("timezone") {
			cfg.Timezone = *timezone
		}
		if set("compression") {
			cfg.Compression = *compression
		}
		if set("file-lock") {
			on := util.ParseBool(*fileLock, true)
			cfg.FileLock = &on
		}
		if set("sync-writes") {
			cfg.SyncWrites = util.ParseBool(*syncWrites, false)
		}
		if set("retry-count") {
			cfg.RetryCount = util.ParseInt(*retryCount, DefaultRetryCount)
		}
		if set("deliverable-buffer") {
			cfg.DeliverableBuffer = util.ParseInt(*deliverableBuffer, DefaultDeliverableBuffer)
		}
		if set("port") {
			cfg.ServerPort = util.ParseInt(*serverPort, DefaultServerPort)
		}
		if set("exporter") {
			cfg.EnableExporter = util.ParseBool(*exporter, false)
		}
		if set("exporter-port") {
			cfg.ExporterPort = util.ParseInt(*exporterPort, DefaultExporterPort)
		}
		if set("log-level") {
			cfg.LogLevel = util.ParseLogLevel(*logLevel)
		}
	}

	apply(false)

	if *configPath != "" {
		if err := cfg.loadFile(*configPath); err != nil {
			return nil, err
		}
	}

	apply(true)

	cfg.Normalize()
	util.SetLevel(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	if strings.HasSuffix(path, ".json") {
		if err := json.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		return nil
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func (cfg *Config) Normalize() {
	if strings.TrimSpace(cfg.Location) == "" {
		cfg.Location = DefaultLocation
	}
	if strings.TrimSpace(cfg.GroupID) == "" {
		cfg.GroupID = DefaultGroupID
	}
	cfg.UniqueID = strings.TrimSpace(cfg.UniqueID)

	if cfg.SweepPeriodMS < 0 {
		cfg.SweepPeriodMS = 0
	}
	if cfg.RepublishAfterMS < 0 {
		cfg.RepublishAfterMS = 0
	}
	if cfg.CloseTimeoutMS <= 0 {
		cfg.CloseTimeoutMS = DefaultCloseTimeoutMS
	}

	if cfg.EntryTimeFormat == "" {
		cfg.EntryTimeFormat = DefaultEntryTimeFormat
	}
	if cfg.FileTimeFormat == "" {
		cfg.FileTimeFormat = DefaultFileTimeFormat
	}
	if cfg.Timezone == "" {
		cfg.Timezone = DefaultTimezone
	}
	if cfg.Compression == "" {
		cfg.Compression = "none"
	}
	if cfg.FileLock == nil {
		on := true
		cfg.FileLock = &on
	}

	if cfg.ServerPort < 0 {
		cfg.ServerPort = 0
	}
	if cfg.RetryCount <= 0 {
		cfg.RetryCount = DefaultRetryCount
	}
	if cfg.DeliverableBuffer <= 0 {
		cfg.DeliverableBuffer = DefaultDeliverableBuffer
	}
	if cfg.ExporterPort <= 0 {
		cfg.ExporterPort = DefaultExporterPort
	}
}

func (cfg *Config) Validate() error {
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}
	if _, err := util.CompressionID(cfg.Compression); err != nil {
		return err
	}
	return ValidateGroupID(cfg.GroupID)
}

// ValidateGroupID accepts only a single plain directory name, so every store stays
// inside <location>/<group_id>.
func ValidateGroupID(id string) error {
	switch {
	case id == "", id == ".", id == "..":
		return fmt.Errorf("invalid group_id %q", id)
	case strings.ContainsAny(id, `/\`):
		return fmt.Errorf("group_id %q must not contain path separators", id)
	case filepath.Clean(id) != id || !filepath.IsLocal(id):
		return fmt.Errorf("group_id %q is not a local directory name", id)
	}
	return nil
}

// LockFiles reports whether advisory file locks are taken. Unset means on.
func (cfg *Config) LockFiles() bool {
	return cfg.FileLock == nil || *cfg.FileLock
}

func (cfg *Config) SweepPeriod() time.Duration {
	return time.Duration(cfg.SweepPeriodMS) * time.Millisecond
}

func (cfg *Config) RepublishAfter() time.Duration {
	return time.Duration(cfg.RepublishAfterMS) * time.Millisecond
}

// ArchiveAfter is negative when archive purging is disabled.
func (cfg *Config) ArchiveAfter() time.Duration {
	return time.Duration(cfg.ArchiveAfterMS) * time.Millisecond
}

func (cfg *Config) CloseTimeout() time.Duration {
	return time.Duration(cfg.CloseTimeoutMS) * time.Millisecond
}

// TimeLocation resolves Timezone; Validate has already rejected unknown names.
func (cfg *Config) TimeLocation() (*time.Location, error) {
	return time.LoadLocation(cfg.Timezone)
}
