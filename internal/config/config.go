package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes environment overrides, e.g. SONGREC_LASTFM_API_KEY.
const EnvPrefix = "SONGREC_"

// ErrUnknownDiversity is returned by Load for an unrecognized recommend.diversity.
var ErrUnknownDiversity = errors.New("unknown diversity policy")

// Diversity policies accepted in recommend.diversity.
const (
	DiversityFixedArtist = "fixed_artist"
	DiversityNone        = "none"
)

type Config struct {
	Snapshot  SnapshotConfig  `koanf:"snapshot"`
	Recommend RecommendConfig `koanf:"recommend"`
	Ingest    IngestConfig    `koanf:"ingest"`

	// Last.fm similarity enrichment (enabled when credentials are set)
	Lastfm LastfmConfig `koanf:"lastfm"`

	Log LogConfig `koanf:"log"`
}

// SnapshotConfig locates the corpus snapshot.
type SnapshotConfig struct {
	Path string `koanf:"path"` // empty means snapshot.DefaultPath()
}

// RecommendConfig holds scoring and randomness settings.
type RecommendConfig struct {
	Weights   []float64 `koanf:"weights"`   // key, mode, loudness, duration, tempo (default: 3,2,1,1,1)
	Seed      *uint64   `koanf:"seed"`      // fixed seed for reproducible picks (default: unseeded)
	Diversity string    `koanf:"diversity"` // "fixed_artist" or "none" (default: "fixed_artist")
}

// IngestConfig holds ETL settings.
type IngestConfig struct {
	Workers   int    `koanf:"workers"`   // parallel decoders (default: 4)
	Extension string `koanf:"extension"` // metadata file extension (default: ".json")
}

// LastfmConfig holds Last.fm enrichment configuration.
type LastfmConfig struct {
	APIKey         string  `koanf:"api_key"`
	APISecret      string  `koanf:"api_secret"`
	SimilarLimit   int     `koanf:"similar_limit"`   // similar artists per lookup (1-250, default: 50)
	MatchThreshold float64 `koanf:"match_threshold"` // fuzzy match threshold (0.0-1.0, default: 0.8)
	CacheTTLDays   int     `koanf:"cache_ttl_days"`  // cache TTL in days (default: 30)
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `koanf:"level"`  // zerolog level name (default: "warn")
	Format string `koanf:"format"` // "console" or "json" (default: "console")
}

// Load reads the config files, then an optional explicit file, then
// SONGREC_* environment variables. Later sources win.
func Load(explicitPath string) (*Config, error) {
	k := koanf.New(".")

	// Try config files in order of priority (last wins)
	configPaths := getConfigPaths()

	for _, path := range configPaths {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, fmt.Errorf("load %s: %w", path, err)
			}
		}
	}

	if explicitPath != "" {
		path := expandPath(explicitPath)
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	// Environment values are strings; weights come as "3,2,1,1,1".
	if raw, ok := k.Get("recommend.weights").(string); ok {
		weights, err := parseWeights(raw)
		if err != nil {
			return nil, err
		}
		if err := k.Set("recommend.weights", weights); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	switch cfg.Recommend.Diversity {
	case "", DiversityFixedArtist, DiversityNone:
	default:
		return nil, fmt.Errorf("recommend.diversity %q: %w (want %q or %q)",
			cfg.Recommend.Diversity, ErrUnknownDiversity, DiversityFixedArtist, DiversityNone)
	}

	if cfg.Snapshot.Path != "" {
		cfg.Snapshot.Path = expandPath(cfg.Snapshot.Path)
	}

	return cfg, nil
}

// envKey maps SONGREC_LASTFM_API_KEY to lastfm.api_key.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, rest, ok := strings.Cut(key, "_")
	if !ok || rest == "" {
		return ""
	}
	return section + "." + rest
}

func parseWeights(raw string) ([]float64, error) {
	parts := strings.Split(raw, ",")
	weights := make([]float64, 0, len(parts))
	for _, p := range parts {
		w, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("parse recommend.weights %q: %w", raw, err)
		}
		weights = append(weights, w)
	}
	return weights, nil
}

func getConfigPaths() []string {
	paths := []string{}

	// 1. ~/.config/songrec/config.toml
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "songrec", "config.toml"))
	}

	// 2. ./config.toml (pwd, highest priority)
	paths = append(paths, "config.toml")

	return paths
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// HasLastfmConfig returns true if Last.fm enrichment is configured.
func (c *Config) HasLastfmConfig() bool {
	return c.Lastfm.APIKey != "" && c.Lastfm.APISecret != ""
}

// GetRecommendConfig returns the recommend configuration with defaults applied.
func (c *Config) GetRecommendConfig() RecommendConfig {
	cfg := c.Recommend

	if len(cfg.Weights) == 0 {
		cfg.Weights = []float64{3, 2, 1, 1, 1}
	}
	switch cfg.Diversity {
	case DiversityFixedArtist, DiversityNone:
	default:
		cfg.Diversity = DiversityFixedArtist
	}

	return cfg
}

// GetIngestConfig returns the ingest configuration with defaults applied.
func (c *Config) GetIngestConfig() IngestConfig {
	cfg := c.Ingest

	if cfg.Workers <= 0 || cfg.Workers > 64 {
		cfg.Workers = 4
	}
	if cfg.Extension == "" {
		cfg.Extension = ".json"
	}
	if !strings.HasPrefix(cfg.Extension, ".") {
		cfg.Extension = "." + cfg.Extension
	}
	cfg.Extension = strings.ToLower(cfg.Extension)

	return cfg
}

// GetLastfmConfig returns the Last.fm configuration with defaults applied.
func (c *Config) GetLastfmConfig() LastfmConfig {
	cfg := c.Lastfm

	if cfg.SimilarLimit <= 0 || cfg.SimilarLimit > 250 {
		cfg.SimilarLimit = 50
	}
	if cfg.MatchThreshold <= 0 || cfg.MatchThreshold > 1 {
		cfg.MatchThreshold = 0.8
	}
	if cfg.CacheTTLDays <= 0 {
		cfg.CacheTTLDays = 30
	}

	return cfg
}

// GetLogConfig returns the logging configuration with defaults applied.
func (c *Config) GetLogConfig() LogConfig {
	cfg := c.Log

	if cfg.Level == "" {
		cfg.Level = "warn"
	}
	if cfg.Format != "json" {
		cfg.Format = "console"
	}

	return cfg
}
