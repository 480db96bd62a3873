package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for stash.
type Config struct {
	BaseDir string        `toml:"base_dir"`
	LogDir  string        `toml:"log_dir"`
	Storage StorageConfig `toml:"storage"`
	Upload  UploadConfig  `toml:"upload"`
	URLs    URLConfig     `toml:"urls"`
	Keys    KeysConfig    `toml:"keys"`
}

// StorageConfig represents configuration for a storage provider.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type StorageConfig struct {
	Type   string `toml:"type"` // "local" or "s3"
	Bucket string `toml:"bucket"`

	// Local-specific fields (only used when Type == "local")
	Root string `toml:"root,omitempty"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket    string `toml:"s3_bucket,omitempty"`
	S3Prefix    string `toml:"s3_prefix,omitempty"`
	S3Region    string `toml:"s3_region,omitempty"`
	S3Endpoint  string `toml:"s3_endpoint,omitempty"`
	S3AccessKey string `toml:"s3_access_key,omitempty"`
	S3SecretKey string `toml:"s3_secret_key,omitempty"`
	S3PathStyle bool   `toml:"s3_path_style,omitempty"`
	StagingDir  string `toml:"staging_dir,omitempty"`
}

// UploadConfig holds the ingestion pipeline settings.
type UploadConfig struct {
	AllowedMimetypes []string `toml:"allowed_mimetypes"`
	SniffMinBytes    int      `toml:"sniff_min_bytes"`
	ChunkSize        int      `toml:"chunk_size"`
}

// URLConfig holds the signed URL settings.
type URLConfig struct {
	Base              string `toml:"base"`
	DefaultTTLSeconds int64  `toml:"default_ttl_seconds"`
}

// KeysConfig holds the key directory and the named key managers.
type KeysConfig struct {
	Dir         string `toml:"dir"`
	SecretsName string `toml:"secrets_name"`
	SigningName string `toml:"signing_name"`
}

// NewConfig creates a new Config with the provided base directory and default paths.
func NewConfig(baseDir string) *Config {
	return &Config{
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Storage: StorageConfig{
			Type:   "local",
			Bucket: "default",
			Root:   filepath.Join(baseDir, "files"),
		},
		Upload: UploadConfig{
			SniffMinBytes: 4100,
			ChunkSize:     64 * 1024,
		},
		URLs: URLConfig{
			Base:              "http://localhost:3000",
			DefaultTTLSeconds: 3600,
		},
		Keys: KeysConfig{
			Dir:         filepath.Join(baseDir, "keys"),
			SecretsName: "secrets",
			SigningName: "signing",
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
// This is an internal helper and should not be exported.
func writeToFile(path string, cfg *Config) error {
	// Ensure the directory exists
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
