package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestManager_ReadWrite_RoundTrip(t *testing.T) {
	original := &Config{
		BaseDir: "/home/user/.local/share/stash",
		LogDir:  "/home/user/.local/share/stash/log",
		Storage: StorageConfig{
			Type:       "s3",
			Bucket:     "photos",
			S3Bucket:   "company-files",
			S3Prefix:   "stash",
			S3Region:   "eu-central-1",
			StagingDir: "/tmp/stash-staging",
		},
		Upload: UploadConfig{
			AllowedMimetypes: []string{"image/jpeg", "application/pdf"},
			SniffMinBytes:    4100,
			ChunkSize:        32 * 1024,
		},
		URLs: URLConfig{
			Base:              "https://files.example.com",
			DefaultTTLSeconds: 900,
		},
		Keys: KeysConfig{
			Dir:         "/home/user/.local/share/stash/keys",
			SecretsName: "secrets",
			SigningName: "signing",
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
	if got.LogDir != original.LogDir {
		t.Errorf("LogDir = %q, want %q", got.LogDir, original.LogDir)
	}
	if got.Storage.Type != "s3" {
		t.Errorf("Storage.Type = %q, want %q", got.Storage.Type, "s3")
	}
	if got.Storage.Bucket != "photos" {
		t.Errorf("Storage.Bucket = %q, want %q", got.Storage.Bucket, "photos")
	}
	if got.Storage.S3Bucket != "company-files" {
		t.Errorf("Storage.S3Bucket = %q, want %q", got.Storage.S3Bucket, "company-files")
	}
	if got.Storage.StagingDir != "/tmp/stash-staging" {
		t.Errorf("Storage.StagingDir = %q, want %q", got.Storage.StagingDir, "/tmp/stash-staging")
	}
	if len(got.Upload.AllowedMimetypes) != 2 {
		t.Fatalf("len(Upload.AllowedMimetypes) = %d, want 2", len(got.Upload.AllowedMimetypes))
	}
	if got.Upload.AllowedMimetypes[0] != "image/jpeg" {
		t.Errorf("Upload.AllowedMimetypes[0] = %q, want %q", got.Upload.AllowedMimetypes[0], "image/jpeg")
	}
	if got.Upload.ChunkSize != 32*1024 {
		t.Errorf("Upload.ChunkSize = %d, want %d", got.Upload.ChunkSize, 32*1024)
	}
	if got.URLs.Base != "https://files.example.com" {
		t.Errorf("URLs.Base = %q, want %q", got.URLs.Base, "https://files.example.com")
	}
	if got.URLs.DefaultTTLSeconds != 900 {
		t.Errorf("URLs.DefaultTTLSeconds = %d, want %d", got.URLs.DefaultTTLSeconds, 900)
	}
	if got.Keys.SigningName != "signing" {
		t.Errorf("Keys.SigningName = %q, want %q", got.Keys.SigningName, "signing")
	}
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("/data/stash")

	if cfg.BaseDir != "/data/stash" {
		t.Errorf("BaseDir = %q, want %q", cfg.BaseDir, "/data/stash")
	}
	if cfg.LogDir != "/data/stash/log" {
		t.Errorf("LogDir = %q, want %q", cfg.LogDir, "/data/stash/log")
	}
	if cfg.Storage.Type != "local" {
		t.Errorf("Storage.Type = %q, want %q", cfg.Storage.Type, "local")
	}
	if cfg.Storage.Root != "/data/stash/files" {
		t.Errorf("Storage.Root = %q, want %q", cfg.Storage.Root, "/data/stash/files")
	}
	if cfg.Upload.SniffMinBytes != 4100 {
		t.Errorf("Upload.SniffMinBytes = %d, want %d", cfg.Upload.SniffMinBytes, 4100)
	}
	if cfg.Keys.Dir != "/data/stash/keys" {
		t.Errorf("Keys.Dir = %q, want %q", cfg.Keys.Dir, "/data/stash/keys")
	}
}

func TestInit(t *testing.T) {
	t.Run("creates config file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "stash.toml")
		cfg := NewConfig(dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		if _, err := os.Stat(path); err != nil {
			t.Fatalf("config file not created: %v", err)
		}
	})

	t.Run("fails if file already exists", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "stash.toml")
		cfg := NewConfig(dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("first Init() error = %v", err)
		}

		err := Init(path, cfg)
		if err == nil {
			t.Fatal("second Init() expected error")
		}
	})
}

func TestReadFromFile(t *testing.T) {
	t.Run("reads valid config", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "stash.toml")
		cfg := NewConfig(dir)
		cfg.Storage.Bucket = "read-test"

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		got, err := ReadFromFile(path)
		if err != nil {
			t.Fatalf("ReadFromFile() error = %v", err)
		}
		if got.Storage.Bucket != "read-test" {
			t.Errorf("Storage.Bucket = %q, want %q", got.Storage.Bucket, "read-test")
		}
	})

	t.Run("returns error for missing file", func(t *testing.T) {
		_, err := ReadFromFile("/nonexistent/path/stash.toml")
		if err == nil {
			t.Fatal("ReadFromFile() expected error for missing file")
		}
	})
}
