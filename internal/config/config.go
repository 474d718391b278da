// Package config reads and writes the drone's TOML configuration.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Duration is a time.Duration that round-trips through TOML as a string
// like "5m" or "1h30m".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config represents the main configuration for the drone.
type Config struct {
	BaseDir string `toml:"base_dir"`
	LogDir  string `toml:"log_dir"`

	Steam      SteamConfig      `toml:"steam"`
	Downloader DownloaderConfig `toml:"downloader"`
	Backend    BackendConfig    `toml:"backend"`
	Blob       BlobConfig       `toml:"blob"`
	Database   DatabaseConfig   `toml:"database"`
	Scan       ScanConfig       `toml:"scan"`
}

// SteamConfig holds catalog access settings.
type SteamConfig struct {
	Key      string `toml:"key"`       // web API key
	AppID    string `toml:"app_id"`    // workshop app id
	PageSize int    `toml:"page_size"` // fixed listing page size
}

// DownloaderConfig holds depot downloader settings.
type DownloaderConfig struct {
	Binary   string `toml:"binary"`    // path to the depot downloader binary
	MountDir string `toml:"mount_dir"` // where per-item bundle dirs are created
}

// BackendConfig holds records API access settings.
type BackendConfig struct {
	URL string `toml:"url"`
	Key string `toml:"key"` // sent as x-api-key
}

// BlobConfig represents configuration for the blob store backend.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type BlobConfig struct {
	Type string `toml:"type"` // "s3", "filesystem", or "memory"

	// S3-specific fields (only used when Type == "s3")
	S3Bucket    string `toml:"s3_bucket,omitempty"`
	S3Region    string `toml:"s3_region,omitempty"`
	S3Endpoint  string `toml:"s3_endpoint,omitempty"` // for S3-compatible stores
	S3AccessKey string `toml:"s3_access_key,omitempty"`
	S3SecretKey string `toml:"s3_secret_key,omitempty"`

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSRoot string `toml:"fs_root,omitempty"`

	LevelsPrefix     string `toml:"levels_prefix"`
	ThumbnailsPrefix string `toml:"thumbnails_prefix"`

	// PublicBaseURL is the root under which uploaded objects are reachable;
	// the object key is appended to it to form the recorded URL.
	PublicBaseURL string `toml:"public_base_url"`

	// PlaceholderThumbnailURL is recorded for levels without a preview image.
	PlaceholderThumbnailURL string `toml:"placeholder_thumbnail_url"`
}

// DatabaseConfig represents configuration for the local state database
// (scan journal and request backlog).
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// ScanConfig holds operational tuning for scan runs.
type ScanConfig struct {
	MaxEmptyPages int      `toml:"max_empty_pages"` // bounded scans stop after this many false-positive pages
	ScanInterval  Duration `toml:"scan_interval"`   // daemon idle time between clean cycles
	RetryDelay    Duration `toml:"retry_delay"`     // initial daemon backoff, doubles per failure
}

// NewConfig creates a new Config with defaults rooted at baseDir.
func NewConfig(baseDir string) *Config {
	return &Config{
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Steam: SteamConfig{
			AppID:    "1440670",
			PageSize: 5,
		},
		Downloader: DownloaderConfig{
			Binary:   "depotdownloader",
			MountDir: filepath.Join(baseDir, "bundles"),
		},
		Blob: BlobConfig{
			Type:             "filesystem",
			FSRoot:           filepath.Join(baseDir, "blobs"),
			LevelsPrefix:     "levels",
			ThumbnailsPrefix: "thumbnails",
		},
		Database: DatabaseConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "db"),
		},
		Scan: ScanConfig{
			MaxEmptyPages: 10,
			ScanInterval:  Duration{time.Minute},
			RetryDelay:    Duration{5 * time.Minute},
		},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	// Check if config already exists
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
