// Package config loads the seekr configuration file and applies
// environment overrides.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/kk-code-lab/seekr/internal/pathnorm"
	"github.com/kk-code-lab/seekr/internal/reconcile"
	"github.com/kk-code-lab/seekr/internal/tree"
)

// Backend kinds.
const (
	BackendHTTP  = "http"
	BackendLocal = "local"
)

var (
	// ErrInvalidThreshold reports a confidence threshold outside [0,1].
	ErrInvalidThreshold = errors.New("config: threshold outside [0,1]")
	// ErrInvalidBackend reports an unknown backend kind.
	ErrInvalidBackend = errors.New("config: unknown backend")
)

// Config is the persistent application configuration.
type Config struct {
	Backend    BackendConfig   `json:"backend"`
	Index      IndexConfig     `json:"index"`
	Embedding  EmbeddingConfig `json:"embedding"`
	Thresholds ThresholdConfig `json:"thresholds"`
	Results    ResultsConfig   `json:"results"`
	Paths      PathsConfig     `json:"paths"`
	UI         UIConfig        `json:"ui"`
	Log        LogConfig       `json:"log"`
}

// BackendConfig selects and configures the search collaborator.
type BackendConfig struct {
	Kind              string   `json:"kind"` // "http" or "local"
	URL               string   `json:"url,omitempty"`
	APIKey            string   `json:"api_key,omitempty"`
	Timeout           Duration `json:"timeout"`
	RequestsPerSecond float64  `json:"requests_per_second"`
}

// IndexConfig locates the local sqlite index.
type IndexConfig struct {
	Path    string `json:"path"`
	Workers int    `json:"workers"`
}

// EmbeddingConfig configures the image embedding endpoint.
type EmbeddingConfig struct {
	URL          string   `json:"url,omitempty"`
	APIKey       string   `json:"api_key,omitempty"`
	CacheDir     string   `json:"cache_dir"`
	MaxImageSide int      `json:"max_image_side"`
	Timeout      Duration `json:"timeout"`
}

// ThresholdConfig holds the per-mode confidence thresholds.
type ThresholdConfig struct {
	Image  float64 `json:"image"`
	Hybrid float64 `json:"hybrid"`
}

// ResultsConfig controls paging and list virtualization.
type ResultsConfig struct {
	PageSize int `json:"page_size"`
	Overscan int `json:"overscan"`
}

// PathsConfig configures path normalization and tree projection.
type PathsConfig struct {
	HostPattern     string            `json:"host_pattern"`
	StoragePrefixes []string          `json:"storage_prefixes"`
	ShareSegments   []string          `json:"share_segments"`
	Sidecars        []string          `json:"sidecars"`
	HostCategories  map[string]string `json:"host_categories"`
}

// UIConfig holds console preferences.
type UIConfig struct {
	Locale       string `json:"locale"`
	ShowSnippets bool   `json:"show_snippets"`
}

// LogConfig configures the log file.
type LogConfig struct {
	Path  string `json:"path"`
	Level string `json:"level"`
}

// Duration is a time.Duration that reads and writes as a string ("15s").
type Duration struct {
	time.Duration
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		var n float64
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("config: duration %s: %w", b, err)
		}
		d.Duration = time.Duration(n * float64(time.Second))
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("config: duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Backend: BackendConfig{
			Kind:              BackendHTTP,
			Timeout:           Duration{30 * time.Second},
			RequestsPerSecond: 5,
		},
		Index: IndexConfig{
			Path:    filepath.Join(dataDir(), "index.db"),
			Workers: 4,
		},
		Embedding: EmbeddingConfig{
			CacheDir:     filepath.Join(cacheDir(), "embeddings"),
			MaxImageSide: 512,
			Timeout:      Duration{60 * time.Second},
		},
		Thresholds: ThresholdConfig{
			Image:  reconcile.DefaultImageThreshold,
			Hybrid: reconcile.DefaultHybridThreshold,
		},
		Results: ResultsConfig{PageSize: 50, Overscan: 5},
		Paths: PathsConfig{
			HostPattern:     pathnorm.DefaultHostPattern,
			StoragePrefixes: append([]string(nil), pathnorm.DefaultStoragePrefixes...),
			ShareSegments:   append([]string(nil), pathnorm.DefaultShareSegments...),
			Sidecars:        append([]string(nil), tree.DefaultExclusions...),
			HostCategories:  copyMap(pathnorm.DefaultHostCategories),
		},
		UI:  UIConfig{Locale: "ja", ShowSnippets: true},
		Log: LogConfig{Path: filepath.Join(stateDir(), "seekr.log"), Level: "info"},
	}
}

// Path returns the default config file location.
func Path() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "seekr", "config.json")
}

// Load reads the config file at path (Path() when empty) over the defaults
// and applies environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = Path()
	}
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg.ApplyEnv(os.Getenv)
	return cfg, nil
}

// Save writes the config to path with restrictive permissions, since it may
// hold API keys.
func (c *Config) Save(path string) error {
	if path == "" {
		path = Path()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: create dir: %w", err)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// ApplyEnv overrides fields from SEEKR_* environment variables.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("SEEKR_API_URL"); v != "" {
		c.Backend.URL = v
	}
	if v := getenv("SEEKR_API_KEY"); v != "" {
		c.Backend.APIKey = v
	}
	if v := getenv("SEEKR_BACKEND"); v != "" {
		c.Backend.Kind = v
	}
	if v := getenv("SEEKR_EMBED_URL"); v != "" {
		c.Embedding.URL = v
	}
	if v := getenv("SEEKR_EMBED_KEY"); v != "" {
		c.Embedding.APIKey = v
	}
	if v := getenv("SEEKR_INDEX"); v != "" {
		c.Index.Path = v
	}
}

// Validate reports configuration values the application cannot run with.
func (c *Config) Validate() error {
	var errs []error
	for name, v := range map[string]float64{"image": c.Thresholds.Image, "hybrid": c.Thresholds.Hybrid} {
		if math.IsNaN(v) || v < 0 || v > 1 {
			errs = append(errs, fmt.Errorf("%w: %s=%v", ErrInvalidThreshold, name, v))
		}
	}
	switch c.Backend.Kind {
	case BackendHTTP, BackendLocal:
	default:
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidBackend, c.Backend.Kind))
	}
	if c.Results.PageSize <= 0 {
		errs = append(errs, fmt.Errorf("config: page size must be positive, got %d", c.Results.PageSize))
	}
	if c.Results.Overscan < 0 {
		errs = append(errs, fmt.Errorf("config: overscan must not be negative, got %d", c.Results.Overscan))
	}
	if c.Backend.RequestsPerSecond < 0 {
		errs = append(errs, errors.New("config: requests per second must not be negative"))
	}
	if c.Paths.HostPattern != "" {
		if _, err := regexp.Compile(c.Paths.HostPattern); err != nil {
			errs = append(errs, fmt.Errorf("config: host pattern: %w", err))
		}
	}
	return errors.Join(errs...)
}

// ReconcileThresholds converts the threshold section.
func (c *Config) ReconcileThresholds() reconcile.Thresholds {
	return reconcile.Thresholds{Image: c.Thresholds.Image, Hybrid: c.Thresholds.Hybrid}
}

// Normalizer builds the path normalizer described by the paths section.
func (c *Config) Normalizer() (*pathnorm.Normalizer, error) {
	return pathnorm.New(pathnorm.Options{
		HostPattern:     c.Paths.HostPattern,
		StoragePrefixes: c.Paths.StoragePrefixes,
		ShareSegments:   c.Paths.ShareSegments,
		HostCategories:  c.Paths.HostCategories,
	})
}

// Projector builds the tree projector described by the paths and ui sections.
func (c *Config) Projector(n *pathnorm.Normalizer) *tree.Projector {
	opts := []tree.Option{tree.WithNormalizer(n), tree.WithLocale(c.UI.Locale)}
	if c.Paths.Sidecars != nil {
		opts = append(opts, tree.WithExclusions(c.Paths.Sidecars))
	}
	return tree.NewProjector(opts...)
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func stateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "seekr")
	}
	return filepath.Join(cacheDir(), "state")
}

func dataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "seekr")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "seekr")
	}
	return filepath.Join(os.TempDir(), "seekr")
}

func cacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "seekr")
	}
	return filepath.Join(os.TempDir(), "seekr")
}
