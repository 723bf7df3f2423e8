package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// ErrNoConfigFile is returned by Watch when there is no project config file
// to watch.
var ErrNoConfigFile = errors.New("no config file found")

// Loader provides configuration loading capabilities.
type Loader interface {
	// Load loads configuration from files and environment variables.
	// Priority: defaults → user file → project file → environment (env wins)
	Load() (*Config, error)

	// Watch calls onChange with a freshly loaded configuration each time the
	// project config file changes. Watching lasts for the life of the process;
	// stop only silences the callback.
	Watch(onChange func(*Config, error)) (stop func(), err error)
}

type loader struct {
	rootDir    string
	configFile string
	userDir    string
}

// LoaderOption configures a Loader.
type LoaderOption func(*loader)

// WithConfigFile reads the project configuration from path instead of
// <root>/.commenttree/config.yml. A missing file is an error.
func WithConfigFile(path string) LoaderOption {
	return func(l *loader) {
		l.configFile = path
	}
}

// WithUserConfigDir overrides the user configuration directory
// (default ~/.commenttree). An empty dir disables the user layer.
func WithUserConfigDir(dir string) LoaderOption {
	return func(l *loader) {
		l.userDir = dir
	}
}

// NewLoader creates a new configuration loader for the given root directory.
func NewLoader(rootDir string, opts ...LoaderOption) Loader {
	l := &loader{rootDir: rootDir}
	if home, err := os.UserHomeDir(); err == nil {
		l.userDir = filepath.Join(home, DirName)
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load loads configuration with the following priority (highest to lowest):
// 1. Environment variables (COMMENTTREE_*)
// 2. Project config file (.commenttree/config.yml or .commenttree/config.yaml)
// 3. User config file (~/.commenttree/config.yml)
// 4. Default values
func (l *loader) Load() (*Config, error) {
	v := l.newViper()
	if err := l.readLayers(v); err != nil {
		return nil, err
	}
	return decode(v)
}

func (l *loader) Watch(onChange func(*Config, error)) (func(), error) {
	v := l.newViper()
	if err := l.readLayers(v); err != nil {
		return nil, err
	}
	if v.ConfigFileUsed() == "" {
		return nil, fmt.Errorf("%w in %s", ErrNoConfigFile, filepath.Join(l.rootDir, DirName))
	}

	var stopped atomic.Bool
	v.OnConfigChange(func(e fsnotify.Event) {
		if stopped.Load() {
			return
		}
		log.Printf("Config file changed: %s", e.Name)
		// Reload every layer; viper only re-reads the watched file.
		onChange(l.Load())
	})
	v.WatchConfig()

	return func() { stopped.Store(true) }, nil
}

func (l *loader) newViper() *viper.Viper {
	v := viper.New()

	// Enable environment variable overrides
	v.SetEnvPrefix("COMMENTTREE")
	v.AutomaticEnv()
	// Replace . with _ in env var names (e.g., COMMENTTREE_SCAN_MAX_FILES)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.BindEnv("commentExplorer.regex")
	v.BindEnv("commentExplorer.fileExtensions")
	v.BindEnv("commentExplorer.exclude")
	v.BindEnv("workspace.folders")
	v.BindEnv("scan.max_files")
	v.BindEnv("scan.workers")

	setDefaults(v)
	return v
}

// readLayers merges the user file, then the project file, over the defaults.
func (l *loader) readLayers(v *viper.Viper) error {
	if l.userDir != "" {
		user := viper.New()
		user.SetConfigName("config")
		user.SetConfigType("yaml")
		user.AddConfigPath(l.userDir)
		if err := user.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return fmt.Errorf("failed to read user config file: %w", err)
			}
		} else if err := v.MergeConfigMap(user.AllSettings()); err != nil {
			return fmt.Errorf("failed to merge user config file: %w", err)
		}
	}

	if l.configFile != "" {
		v.SetConfigFile(l.configFile)
		if err := v.MergeInConfig(); err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
		return nil
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(filepath.Join(l.rootDir, DirName))

	if err := v.MergeInConfig(); err != nil {
		// Config file not found is acceptable - we'll use defaults + env vars
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return nil
}

func decode(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	warnRegex(cfg.Comments.Regex)

	return cfg, nil
}

// setDefaults configures viper with default values.
func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("commentExplorer.regex", defaults.Comments.Regex)
	v.SetDefault("commentExplorer.fileExtensions", defaults.Comments.FileExtensions)
	v.SetDefault("commentExplorer.exclude", defaults.Comments.Exclude)

	v.SetDefault("workspace.folders", defaults.Workspace.Folders)

	v.SetDefault("scan.max_files", defaults.Scan.MaxFiles)
	v.SetDefault("scan.workers", defaults.Scan.Workers)
}
