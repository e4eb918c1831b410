package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"github.com/pelletier/go-toml/v2"
)

const CONFIG_FILE = "latte.toml"

// Config is the build configuration, read from latte.toml next to the
// sources when present. Every field has a working default, so the file
// is optional.
type Config struct {
	CC       string `toml:"cc"`        // C compiler and linker driver
	OptLevel string `toml:"opt_level"` // passed to the runtime build and final link
	CacheDir string `toml:"cache_dir"` // overrides LATCACHE and the platform default
	EmitIR   bool   `toml:"emit_ir"`   // also write .ll next to the binary
}

func defaultConfig() *Config {
	return &Config{
		CC:       "clang",
		OptLevel: "-O2",
	}
}

// loadConfig reads latte.toml from dir. A missing file is not an error.
func loadConfig(dir string) (*Config, error) {
	cfg := defaultConfig()
	data, err := os.ReadFile(filepath.Join(dir, CONFIG_FILE))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read %s: %w", CONFIG_FILE, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", CONFIG_FILE, err)
	}
	if cfg.CC == "" {
		cfg.CC = "clang"
	}
	if cfg.OptLevel == "" {
		cfg.OptLevel = "-O2"
	}
	return cfg, nil
}

// cacheDir resolves the build cache location: latte.toml, then the
// LATCACHE environment variable, then the platform cache directory.
func (cfg *Config) cacheDir() string {
	if cfg.CacheDir != "" {
		return cfg.CacheDir
	}
	if env := os.Getenv("LATCACHE"); env != "" {
		return env
	}

	homeDir, _ := os.UserHomeDir()
	switch runtime.GOOS {
	case OS_WINDOWS:
		if localAppData := os.Getenv("LocalAppData"); localAppData != "" {
			return filepath.Join(localAppData, "latte")
		}
		return filepath.Join(homeDir, "AppData", "Local", "latte")
	case "darwin":
		return filepath.Join(homeDir, "Library", "Caches", "latte")
	default:
		if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
			return filepath.Join(xdg, "latte")
		}
		return filepath.Join(homeDir, ".cache", "latte")
	}
}
