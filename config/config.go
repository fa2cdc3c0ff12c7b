// Package config loads the optional chunkline TOML configuration file.
//
// Every setting has a command line flag as well. Values from the file fill in
// whatever the flags leave unset:
//
//	[embedding]
//	host = "https://api.openai.com/v1"
//	model = "text-embedding-3-small"
//	dimensions = 1536
//	delay = "100ms"
//
//	[pipeline]
//	namespace = "summa_theologiae"
//	workers = 4
//	sync = false
//	progress_interval = 50
//
//	[upload]
//	endpoint = "http://localhost:3001/upload-jsonl"
//	timeout = "60s"
//
//	[cache]
//	dir = ".chunkline-cache"
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// DefaultFileName is looked up in the working directory when no path is given.
const DefaultFileName = "chunkline.toml"

// ErrInvalidConfig indicates a configuration file that cannot be used.
var ErrInvalidConfig = errors.New("invalid configuration")

// File mirrors the TOML configuration file.
type File struct {
	Embedding Embedding `toml:"embedding"`
	Pipeline  Pipeline  `toml:"pipeline"`
	Upload    Upload    `toml:"upload"`
	Cache     Cache     `toml:"cache"`

	path string
}

// Embedding configures the embedding service.
type Embedding struct {
	Host       string `toml:"host"`
	Model      string `toml:"model"`
	APIKey     string `toml:"api_key"`
	Dimensions int    `toml:"dimensions"`
	Delay      string `toml:"delay"`
}

// Pipeline configures record processing.
type Pipeline struct {
	Namespace        string `toml:"namespace"`
	Workers          int    `toml:"workers"`
	Sync             bool   `toml:"sync"`
	ProgressInterval int    `toml:"progress_interval"`
}

// Upload configures the ingestion endpoint.
type Upload struct {
	Endpoint string `toml:"endpoint"`
	Timeout  string `toml:"timeout"`
}

// Cache configures the embedding cache.
type Cache struct {
	Dir string `toml:"dir"`
}

// Load reads and validates the file at path.
func Load(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfg := &File{path: path}
	dec := toml.NewDecoder(f).DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Discover loads path when set. Otherwise it loads DefaultFileName from the
// working directory if present, and returns an empty File if not.
func Discover(path string) (*File, error) {
	if path != "" {
		return Load(path)
	}
	cfg, err := Load(DefaultFileName)
	if errors.Is(err, os.ErrNotExist) {
		return &File{}, nil
	}
	return cfg, err
}

// Path returns the file the configuration was read from, if any.
func (f *File) Path() string {
	return f.path
}

// Validate checks values that the decoder cannot.
func (f *File) Validate() error {
	if _, err := f.EmbeddingDelay(); err != nil {
		return err
	}
	if _, err := f.UploadTimeout(); err != nil {
		return err
	}
	if f.Embedding.Dimensions < 0 {
		return fmt.Errorf("%w: embedding.dimensions cannot be negative", ErrInvalidConfig)
	}
	if f.Pipeline.Workers < 0 {
		return fmt.Errorf("%w: pipeline.workers cannot be negative", ErrInvalidConfig)
	}
	if f.Pipeline.ProgressInterval < 0 {
		return fmt.Errorf("%w: pipeline.progress_interval cannot be negative", ErrInvalidConfig)
	}
	return nil
}

// EmbeddingDelay parses embedding.delay. It returns zero when unset.
func (f *File) EmbeddingDelay() (time.Duration, error) {
	return parseDuration("embedding.delay", f.Embedding.Delay)
}

// UploadTimeout parses upload.timeout. It returns zero when unset.
func (f *File) UploadTimeout() (time.Duration, error) {
	return parseDuration("upload.timeout", f.Upload.Timeout)
}

func parseDuration(key, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%w: %s cannot be negative", ErrInvalidConfig, key)
	}
	return d, nil
}
