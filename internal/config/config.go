// Package config loads cachegc configuration.
//
// Precedence, lowest first: built-in defaults, the YAML file, CACHEGC_*
// environment variables, command-line flags (applied by the caller).
// The merged result is checked against an embedded CUE schema. The
// retention window is the exception: an invalid value falls back to the
// default with a warning instead of failing.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/cachegc/internal/engine"
	"github.com/roach88/cachegc/internal/retention"
	"github.com/roach88/cachegc/internal/storepath"
)

//go:embed schema.cue
var schemaCUE string

// Environment variables consulted by Load.
const (
	EnvRetentionDays = "CACHEGC_RETENTION_DAYS"
	EnvMissingPolicy = "CACHEGC_MISSING_POLICY"
	EnvLogLevel      = "CACHEGC_LOG_LEVEL"
)

// Config is the merged configuration of one run.
type Config struct {
	RetentionDays int    `yaml:"retention_days" json:"retention_days"`
	MissingPolicy string `yaml:"missing_policy" json:"missing_policy"`
	StoreDir      string `yaml:"store_dir" json:"store_dir"`
	HashLength    int    `yaml:"hash_length" json:"hash_length"`
	LogLevel      string `yaml:"log_level" json:"log_level"`
	LogFormat     string `yaml:"log_format" json:"log_format"`
	ProgressEvery int    `yaml:"progress_every" json:"progress_every"`
	MetricsFile   string `yaml:"metrics_file" json:"metrics_file"`
	S3            S3     `yaml:"s3" json:"s3"`
}

// S3 configures s3:// inputs.
type S3 struct {
	Region    string `yaml:"region" json:"region"`
	Endpoint  string `yaml:"endpoint" json:"endpoint"`
	PathStyle bool   `yaml:"path_style" json:"path_style"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		RetentionDays: retention.DefaultDays,
		MissingPolicy: engine.MissingSkip.String(),
		StoreDir:      storepath.DefaultStoreDir,
		HashLength:    storepath.DefaultHashLen,
		LogLevel:      "info",
		LogFormat:     "text",
		ProgressEvery: engine.DefaultProgressEvery,
	}
}

// LoadOptions configures Load.
type LoadOptions struct {
	// Path is the YAML file to read. Empty means defaults only.
	Path string

	// LookupEnv reads environment variables. Default: os.LookupEnv.
	LookupEnv func(string) (string, bool)

	// Logger receives fallback warnings. Default: slog.Default().
	Logger *slog.Logger
}

// Load merges defaults, the file at opts.Path and the environment, then
// validates the result.
func Load(opts LoadOptions) (*Config, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	lookup := opts.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}

	cfg := Default()
	if opts.Path != "" {
		data, err := os.ReadFile(opts.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := decode(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", opts.Path, err)
		}
	}

	if v, ok := lookup(EnvRetentionDays); ok {
		cfg.RetentionDays = retention.ParseDays(v, log)
	}
	if v, ok := lookup(EnvMissingPolicy); ok {
		cfg.MissingPolicy = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvLogLevel); ok {
		cfg.LogLevel = strings.ToLower(strings.TrimSpace(v))
	}

	cfg.RetentionDays = retention.NormalizeDays(cfg.RetentionDays, log)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decode applies YAML onto cfg, rejecting unknown keys.
func decode(data []byte, cfg *Config) error {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate checks cfg against the embedded schema.
func (c *Config) Validate() error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("config schema: %w", err)
	}

	def := schema.LookupPath(cue.ParsePath("#Config"))
	v := def.Unify(ctx.Encode(c))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Canonicalizer returns the identifier rule for this configuration.
func (c *Config) Canonicalizer() storepath.Canonicalizer {
	return storepath.Canonicalizer{StoreDir: c.StoreDir, HashLen: c.HashLength}
}

// Policy returns the parsed missing-reference policy.
func (c *Config) Policy() (engine.MissingPolicy, error) {
	return engine.ParseMissingPolicy(c.MissingPolicy)
}

// Level returns the slog level for LogLevel.
func (c *Config) Level() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}
