// Package config loads flyover.yaml. The default document is embedded, and
// a file on disk only needs the keys it changes.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/teranos/flyover/scene"
)

const (
	EnvAddr   = "FLYOVER_ADDR"
	EnvConfig = "FLYOVER_CONFIG"

	// DefaultFile is looked for in the working directory when FLYOVER_CONFIG
	// is unset.
	DefaultFile = "flyover.yaml"
)

//go:embed flyover.yaml
var defaultYAML []byte

type ServerConfig struct {
	Addr        string   `yaml:"addr" toml:"addr"`
	CorsOrigins []string `yaml:"cors_origins" toml:"cors_origins"`
}

// FilmConfig sizes tracking shots and the preview clock.
type FilmConfig struct {
	Width     int    `yaml:"width" toml:"width"`
	Height    int    `yaml:"height" toml:"height"`
	FPS       int    `yaml:"fps" toml:"fps"`
	OutputDir string `yaml:"output_dir" toml:"output_dir"`
	ReportDir string `yaml:"report_dir" toml:"report_dir"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server" toml:"server"`
	Viewport scene.Viewport `yaml:"viewport" toml:"viewport"`
	Film     FilmConfig     `yaml:"film" toml:"film"`
}

// Default returns the embedded configuration.
func Default() Config {
	var cfg Config
	if err := yaml.Unmarshal(defaultYAML, &cfg); err != nil {
		panic(fmt.Sprintf("embedded flyover.yaml: %v", err))
	}
	return cfg
}

// Load reads path over the defaults and validates the result. An empty path
// means FLYOVER_CONFIG, then flyover.yaml if it exists, then the defaults
// alone. Files ending in .toml are read as TOML.
func Load(path string) (Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = os.Getenv(EnvConfig)
		explicit = path != ""
	}
	if path == "" {
		path = DefaultFile
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := decode(path, data, &cfg); err != nil {
			return Config{}, err
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}

	if addr := strings.TrimSpace(os.Getenv(EnvAddr)); addr != "" {
		cfg.Server.Addr = addr
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decode(path string, data []byte, out *Config) error {
	var err error
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		_, err = toml.Decode(string(data), out)
	} else {
		err = yaml.Unmarshal(data, out)
	}
	if err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

// LoadEnv loads .env files into the environment without overriding what is
// already set. Missing files are skipped; it returns the files it read.
func LoadEnv(files ...string) ([]string, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var loaded []string
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return loaded, fmt.Errorf("load %s: %w", f, err)
		}
		loaded = append(loaded, f)
	}
	return loaded, nil
}

func Validate(cfg Config) error {
	if err := ValidateServer(cfg.Server); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if cfg.Viewport.Width <= 0 || cfg.Viewport.Height <= 0 {
		return fmt.Errorf("viewport must be positive, got %gx%g", cfg.Viewport.Width, cfg.Viewport.Height)
	}
	if err := ValidateFilm(cfg.Film); err != nil {
		return fmt.Errorf("film: %w", err)
	}
	return nil
}

func ValidateServer(cfg ServerConfig) error {
	if strings.TrimSpace(cfg.Addr) == "" {
		return fmt.Errorf("addr is required")
	}
	return nil
}

func ValidateFilm(cfg FilmConfig) error {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return fmt.Errorf("frame size must be positive, got %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.FPS <= 0 || cfg.FPS > 240 {
		return fmt.Errorf("fps must be in 1..240, got %d", cfg.FPS)
	}
	if strings.TrimSpace(cfg.OutputDir) == "" {
		return fmt.Errorf("output_dir is required")
	}
	return nil
}
