package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// DefaultWorkers is the parallel download worker count used when
// neither the config file nor the flag sets one.
const DefaultWorkers = 5

var (
	// ErrReadFailed is returned when an existing config file cannot be
	// read.
	ErrReadFailed = zerr.New("failed to read config file")
	// ErrParseFailed is returned when the config file is not valid
	// YAML.
	ErrParseFailed = zerr.New("failed to parse config file")
)

// Config is the optional tool configuration file. Flags override every
// value set here.
type Config struct {
	Environment string `yaml:"environment"`
	MirrorRoot  string `yaml:"mirror_root"`
	CacheDir    string `yaml:"cache_dir"`
	Workers     int    `yaml:"workers"`
}

// DefaultPath returns the per-user config file location, for example
// ~/.config/msys2-pin/config.yaml on Linux.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", zerr.Wrap(err, "locating config directory")
	}
	return filepath.Join(dir, "msys2-pin", "config.yaml"), nil
}

// DefaultCacheDir returns the per-user cache location for catalog
// documents and downloaded artifacts.
func DefaultCacheDir() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", zerr.Wrap(err, "locating cache directory")
	}
	return filepath.Join(dir, "msys2-pin"), nil
}

// Load reads the config file at path. A missing file is not an error,
// it yields the zero config.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, nil
		}
		return Config{}, zerr.With(errors.Join(ErrReadFailed, err), "path", path)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		joined := errors.Join(ErrParseFailed, err)
		return Config{}, zerr.With(zerr.Wrap(joined, fmt.Sprintf("parsing %s", path)), "path", path)
	}
	return cfg, nil
}
