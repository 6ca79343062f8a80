package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/doeshing/geogenie-go/assets"
	"github.com/doeshing/geogenie-go/internal/domain"
	"github.com/doeshing/geogenie-go/internal/pkg/filesystem"
	"github.com/doeshing/geogenie-go/internal/ports"
)

const envPrefix = "GEOGENIE"

// FileLoader loads YAML configuration from ~/.geogenie/config.yaml (overridable via GEOGENIE_CONFIG).
type FileLoader struct {
	overridePath string
}

// NewFileLoader builds a new loader.
func NewFileLoader(path string) *FileLoader {
	return &FileLoader{overridePath: path}
}

// Path returns the file Load reads.
func (l *FileLoader) Path() string {
	return l.resolvePath()
}

// Load implements ports.ConfigProvider. A missing file is created from the embedded default.
func (l *FileLoader) Load(context.Context) (domain.Config, error) {
	loadDotEnv()

	path := l.resolvePath()
	if err := ensureConfigDir(path); err != nil {
		return domain.Config{}, err
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err := os.WriteFile(path, assets.DefaultConfigYAML, domain.SecureFilePermissions); err != nil {
			return domain.Config{}, fmt.Errorf("write default config: %w", err)
		}
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return domain.Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg domain.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return domain.Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return hydrateDefaults(cfg, filepath.Dir(path)), nil
}

func (l *FileLoader) resolvePath() string {
	if l.overridePath != "" {
		return filesystem.ExpandPath(l.overridePath)
	}
	if custom := os.Getenv("GEOGENIE_CONFIG"); custom != "" {
		return filesystem.ExpandPath(custom)
	}
	return filepath.Join(filesystem.UserHomeDir(), ".geogenie", "config.yaml")
}

// loadDotEnv reads .env from the working directory without overriding the real environment.
func loadDotEnv() {
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load(".env")
	}
}

func ensureConfigDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), domain.DirectoryPermissions)
}

// hydrateDefaults resolves paths relative to the config directory.
func hydrateDefaults(cfg domain.Config, dir string) domain.Config {
	if cfg.ConfigFormatVersion == "" {
		cfg.ConfigFormatVersion = "1"
	}
	if cfg.Preferences.DefaultModel == "" && len(cfg.Models) > 0 {
		cfg.Preferences.DefaultModel = cfg.Models[0].Name
	}
	if os.Getenv("GEOGENIE_DEBUG") == "1" {
		cfg.Preferences.LogLevel = "debug"
	}
	if cfg.Workspace.ProjectFile == "" {
		cfg.Workspace.ProjectFile = "project.yaml"
	}
	cfg.Workspace.ProjectFile = filesystem.ResolveIn(dir, cfg.Workspace.ProjectFile)
	if cfg.Catalog.File != "" {
		cfg.Catalog.File = filesystem.ResolveIn(dir, cfg.Catalog.File)
	}
	if cfg.Credentials.Dir == "" {
		cfg.Credentials.Dir = dir
	}
	cfg.Credentials.Dir = filesystem.ResolveIn(dir, cfg.Credentials.Dir)
	if cfg.Execution.OutputDir == "" {
		cfg.Execution.OutputDir = filepath.Join(dir, "outputs")
	}
	cfg.Execution.OutputDir = filesystem.ResolveIn(dir, cfg.Execution.OutputDir)
	return cfg
}

var _ ports.ConfigProvider = (*FileLoader)(nil)
