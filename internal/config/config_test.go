package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestManager_ReadWrite_RoundTrip(t *testing.T) {
	original := &Config{
		BaseDir: "/home/user/.local/share/zeepdrone",
		LogDir:  "/home/user/.local/share/zeepdrone/log",
		Steam: SteamConfig{
			Key:      "steam-key",
			AppID:    "1440670",
			PageSize: 5,
		},
		Downloader: DownloaderConfig{
			Binary:   "/usr/local/bin/depotdownloader",
			MountDir: "/tmp/bundles",
		},
		Backend: BackendConfig{
			URL: "https://api.example.test",
			Key: "backend-key",
		},
		Blob: BlobConfig{
			Type:                    "s3",
			S3Bucket:                "zeep-levels",
			S3Region:                "eu-west-1",
			LevelsPrefix:            "levels",
			ThumbnailsPrefix:        "thumbnails",
			PublicBaseURL:           "https://cdn.example.test",
			PlaceholderThumbnailURL: "https://cdn.example.test/placeholder.jpg",
		},
		Database: DatabaseConfig{Type: "sqlite", DataDir: "/home/user/.local/share/zeepdrone/db"},
		Scan: ScanConfig{
			MaxEmptyPages: 10,
			ScanInterval:  Duration{time.Minute},
			RetryDelay:    Duration{5 * time.Minute},
		},
	}

	var buf bytes.Buffer
	m := &Manager{}

	if err := m.Write(&buf, original); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := m.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if got.BaseDir != original.BaseDir {
		t.Errorf("BaseDir = %q, want %q", got.BaseDir, original.BaseDir)
	}
	if got.Steam != original.Steam {
		t.Errorf("Steam = %+v, want %+v", got.Steam, original.Steam)
	}
	if got.Downloader != original.Downloader {
		t.Errorf("Downloader = %+v, want %+v", got.Downloader, original.Downloader)
	}
	if got.Backend != original.Backend {
		t.Errorf("Backend = %+v, want %+v", got.Backend, original.Backend)
	}
	if got.Blob != original.Blob {
		t.Errorf("Blob = %+v, want %+v", got.Blob, original.Blob)
	}
	if got.Database != original.Database {
		t.Errorf("Database = %+v, want %+v", got.Database, original.Database)
	}
	if got.Scan != original.Scan {
		t.Errorf("Scan = %+v, want %+v", got.Scan, original.Scan)
	}
}

func TestDurationText(t *testing.T) {
	var d Duration
	if err := d.UnmarshalText([]byte("1h30m")); err != nil {
		t.Fatalf("UnmarshalText() error = %v", err)
	}
	if d.Duration != 90*time.Minute {
		t.Errorf("Duration = %v, want 1h30m", d.Duration)
	}

	text, err := d.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText() error = %v", err)
	}
	if string(text) != "1h30m0s" {
		t.Errorf("MarshalText() = %q", text)
	}

	if err := d.UnmarshalText([]byte("not a duration")); err == nil {
		t.Error("UnmarshalText() should fail on garbage")
	}
}

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig("/data/zeepdrone")

	if cfg.LogDir != filepath.Join("/data/zeepdrone", "log") {
		t.Errorf("LogDir = %q", cfg.LogDir)
	}
	if cfg.Steam.AppID != "1440670" {
		t.Errorf("Steam.AppID = %q", cfg.Steam.AppID)
	}
	if cfg.Steam.PageSize != 5 {
		t.Errorf("Steam.PageSize = %d", cfg.Steam.PageSize)
	}
	if cfg.Scan.MaxEmptyPages != 10 {
		t.Errorf("Scan.MaxEmptyPages = %d", cfg.Scan.MaxEmptyPages)
	}
	if cfg.Scan.ScanInterval.Duration != time.Minute {
		t.Errorf("Scan.ScanInterval = %v", cfg.Scan.ScanInterval.Duration)
	}
	if cfg.Scan.RetryDelay.Duration != 5*time.Minute {
		t.Errorf("Scan.RetryDelay = %v", cfg.Scan.RetryDelay.Duration)
	}
	if cfg.Database.Type != "sqlite" {
		t.Errorf("Database.Type = %q", cfg.Database.Type)
	}
	if cfg.Blob.Type != "filesystem" {
		t.Errorf("Blob.Type = %q", cfg.Blob.Type)
	}
}

func TestInitRefusesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zeepdrone.toml")
	cfg := NewConfig(t.TempDir())

	if err := Init(path, cfg); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file was not written: %v", err)
	}

	if err := Init(path, cfg); err == nil {
		t.Error("Init() should refuse to overwrite an existing config")
	}

	got, err := ReadFromFile(path)
	if err != nil {
		t.Fatalf("ReadFromFile() error = %v", err)
	}
	if got.Steam.AppID != cfg.Steam.AppID {
		t.Errorf("Steam.AppID = %q, want %q", got.Steam.AppID, cfg.Steam.AppID)
	}
}
