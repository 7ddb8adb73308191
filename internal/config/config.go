// Package config loads project settings for tsderive.
//
// Settings come from tsderive.toml or tsderive.yaml, found by walking up from
// the start directory. A .env file next to the manifest and the process
// environment override file values. Command-line flags are applied by the
// caller on top of the result.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"tsderive/internal/driver"
	"tsderive/internal/expand"
	"tsderive/internal/macro"
	"tsderive/internal/trace"
)

// Manifest file names, in lookup priority order within one directory.
const (
	TOMLName = "tsderive.toml"
	YAMLName = "tsderive.yaml"
	EnvFile  = ".env"
)

// Environment overrides.
const (
	EnvMaxDiagnostics = "TSDERIVE_MAX_DIAGNOSTICS"
	EnvJobs           = "TSDERIVE_JOBS"
	EnvCacheDir       = "TSDERIVE_CACHE_DIR"
)

// Config is the resolved project configuration.
type Config struct {
	MaxDiagnostics int         `toml:"max_diagnostics" yaml:"max_diagnostics"`
	Module         string      `toml:"module" yaml:"module"`
	Version        uint32      `toml:"version" yaml:"version"`
	Jobs           int         `toml:"jobs" yaml:"jobs"`
	MacroTimeout   Duration    `toml:"macro_timeout" yaml:"macro_timeout"`
	EmitTypes      bool        `toml:"emit_types" yaml:"emit_types"`
	Cache          CacheConfig `toml:"cache" yaml:"cache"`
	Trace          TraceConfig `toml:"trace" yaml:"trace"`
}

type CacheConfig struct {
	Enabled bool   `toml:"enabled" yaml:"enabled"`
	Dir     string `toml:"dir" yaml:"dir"`
	Size    int    `toml:"size" yaml:"size"`
}

type TraceConfig struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"`
	Output string `toml:"output" yaml:"output"`
	// Mode is stream, ring or both. Ring events stay in memory and are
	// dumped to stderr when a run fails.
	Mode     string `toml:"mode" yaml:"mode"`
	RingSize int    `toml:"ring_size" yaml:"ring_size"`
}

// Manifest is a loaded configuration and where it came from. Path is empty
// when no manifest file was found.
type Manifest struct {
	Path   string
	Root   string
	Config Config
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		MaxDiagnostics: expand.DefaultMaxDiagnostics,
		Module:         macro.DefaultModule,
		Version:        macro.StableVersion,
		Cache: CacheConfig{
			Enabled: true,
			Size:    driver.DefaultCacheSize,
		},
		Trace: TraceConfig{Level: "off"},
	}
}

// PipelineOptions maps the configuration onto expansion options.
func (c Config) PipelineOptions() expand.Options {
	return expand.Options{
		MaxDiagnostics: c.MaxDiagnostics,
		Module:         c.Module,
		Version:        c.Version,
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.MaxDiagnostics < 0 {
		return fmt.Errorf("max_diagnostics must be >= 0, got %d", c.MaxDiagnostics)
	}
	if c.Jobs < 0 {
		return fmt.Errorf("jobs must be >= 0, got %d", c.Jobs)
	}
	if c.Cache.Size < 0 {
		return fmt.Errorf("cache.size must be >= 0, got %d", c.Cache.Size)
	}
	if c.MacroTimeout < 0 {
		return fmt.Errorf("macro_timeout must be >= 0, got %s", time.Duration(c.MacroTimeout))
	}
	if strings.TrimSpace(c.Module) == "" {
		return errors.New("module must not be empty")
	}
	if _, err := trace.ParseLevel(c.Trace.Level); err != nil {
		return fmt.Errorf("trace.level: %w", err)
	}
	if _, err := trace.ParseFormat(c.Trace.Format); err != nil {
		return fmt.Errorf("trace.format: %w", err)
	}
	if _, err := trace.ParseMode(c.Trace.Mode); err != nil {
		return fmt.Errorf("trace.mode: %w", err)
	}
	if c.Trace.RingSize < 0 {
		return fmt.Errorf("trace.ring_size must be >= 0, got %d", c.Trace.RingSize)
	}
	return nil
}

// Find walks up from startDir looking for a manifest. In each directory
// tsderive.toml wins over tsderive.yaml.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		for _, name := range []string{TOMLName, YAMLName} {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, true, nil
			} else if !errors.Is(err, os.ErrNotExist) {
				return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Load resolves the configuration for startDir. A missing manifest is not an
// error; defaults and environment overrides still apply, rooted at startDir.
func Load(startDir string) (*Manifest, error) {
	path, ok, err := Find(startDir)
	if err != nil {
		return nil, err
	}
	if ok {
		return LoadPath(path)
	}
	root, err := filepath.Abs(startDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	return finish(&Manifest{Root: root, Config: Default()})
}

// LoadPath loads an explicit manifest file.
func LoadPath(path string) (*Manifest, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %q: %w", path, err)
	}
	cfg, err := LoadFile(abs)
	if err != nil {
		return nil, err
	}
	return finish(&Manifest{Path: abs, Root: filepath.Dir(abs), Config: cfg})
}

// LoadFile decodes one manifest on top of Default. The format follows the
// file extension.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
		}
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("%s: failed to parse YAML: %w", path, err)
		}
	default:
		return Config{}, fmt.Errorf("%s: unsupported config format (want .toml or .yaml)", path)
	}
	return cfg, nil
}

func finish(m *Manifest) (*Manifest, error) {
	env, err := readDotEnv(filepath.Join(m.Root, EnvFile))
	if err != nil {
		return nil, err
	}
	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
			return v, true
		}
		v, ok := env[key]
		return v, ok
	}
	if err := m.Config.ApplyEnv(lookup); err != nil {
		return nil, err
	}
	if err := m.Config.Validate(); err != nil {
		if m.Path != "" {
			return nil, fmt.Errorf("%s: %w", m.Path, err)
		}
		return nil, err
	}
	return m, nil
}

// readDotEnv parses path without touching the process environment.
func readDotEnv(path string) (map[string]string, error) {
	env, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return env, nil
}

// ApplyEnv overrides fields from the TSDERIVE_* variables that lookup
// reports as set. Blank values are ignored.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookupTrimmed(lookup, EnvMaxDiagnostics); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMaxDiagnostics, err)
		}
		c.MaxDiagnostics = n
	}
	if v, ok := lookupTrimmed(lookup, EnvJobs); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvJobs, err)
		}
		c.Jobs = n
	}
	if v, ok := lookupTrimmed(lookup, EnvCacheDir); ok {
		c.Cache.Dir = v
	}
	return nil
}

func lookupTrimmed(lookup func(string) (string, bool), key string) (string, bool) {
	v, ok := lookup(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

// CacheDir resolves the on-disk cache directory. Relative directories are
// taken from the manifest root.
func (m *Manifest) CacheDir() (string, error) {
	dir := m.Config.Cache.Dir
	if dir == "" {
		return driver.DefaultCacheDir("tsderive")
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(m.Root, dir)
	}
	return dir, nil
}
