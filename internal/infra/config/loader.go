// Package config loads decree's TOML configuration, merging a global
// (cross-repo) file with the repo-local one.
package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/runoshun/decree/internal/domain"
)

// Loader implements domain.ConfigLoader over <runtime-dir>/config.toml,
// merged over a global config.toml under the user's XDG config home.
// Fields are ordered to minimize memory padding.
type Loader struct {
	runtimeDir    string
	globalConfDir string
}

var _ domain.ConfigLoader = (*Loader)(nil)

// New returns a Loader rooted at runtimeDir (a repo's ".decree" directory),
// using the OS-default global config directory.
func New(runtimeDir string) *Loader {
	return &Loader{runtimeDir: runtimeDir, globalConfDir: defaultGlobalConfigDir()}
}

// NewWithGlobalDir returns a Loader with an explicit global config
// directory, for tests that don't want to touch the real home directory.
func NewWithGlobalDir(runtimeDir, globalConfDir string) *Loader {
	return &Loader{runtimeDir: runtimeDir, globalConfDir: globalConfDir}
}

func defaultGlobalConfigDir() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return domain.GlobalRuntimeDir(configHome)
}

// Load returns the merged configuration: built-in defaults, overridden by
// the global config file, overridden by the repo-local one.
func (l *Loader) Load() (*domain.Config, error) {
	global, err := l.loadFile(filepath.Join(l.globalConfDir, domain.ConfigFileName))
	if err != nil {
		return nil, err
	}
	repo, err := l.loadFile(filepath.Join(l.runtimeDir, domain.ConfigFileName))
	if err != nil {
		return nil, err
	}

	cfg := domain.NewDefaultConfig()
	if global != nil {
		mergeConfig(cfg, global)
	}
	if repo != nil {
		mergeConfig(cfg, repo)
	}
	return cfg, nil
}

func (l *Loader) loadFile(path string) (*domain.Config, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path) //nolint:gosec // path is built from configured runtime/global dirs
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var cfg domain.Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// mergeConfig overlays override's non-zero fields onto base, in place.
func mergeConfig(base, override *domain.Config) {
	if override.AI.ModelPath != "" {
		base.AI.ModelPath = override.AI.ModelPath
	}
	if override.AI.NGPULayers != 0 {
		base.AI.NGPULayers = override.AI.NGPULayers
	}
	if override.Commands.Planning != "" {
		base.Commands.Planning = override.Commands.Planning
	}
	if override.Commands.PlanningContinue != "" {
		base.Commands.PlanningContinue = override.Commands.PlanningContinue
	}
	if override.Commands.Router != "" {
		base.Commands.Router = override.Commands.Router
	}
	if override.Log.Level != "" {
		base.Log.Level = override.Log.Level
	}
	if override.DefaultRoutine != "" {
		base.DefaultRoutine = override.DefaultRoutine
	}
	if override.MaxRetries != 0 {
		base.MaxRetries = override.MaxRetries
	}
	if override.MaxDepth != 0 {
		base.MaxDepth = override.MaxDepth
	}
	if override.NotebookRunner != "" {
		base.NotebookRunner = override.NotebookRunner
	}
	base.NotebookSupport = base.NotebookSupport || override.NotebookSupport
}
