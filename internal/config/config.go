package config

import (
	"context"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type contextKey string

const configKey contextKey = "config"

// Config holds all application configuration
type Config struct {
	// Dataset layout: one subdirectory per actor under each root
	CSVRoot   string `yaml:"csv_root"`
	VideoRoot string `yaml:"video_root"`

	// Actor index range, half-open: [ActorStart, ActorEnd)
	ActorStart int `yaml:"actor_start"`
	ActorEnd   int `yaml:"actor_end"`

	// SongMode skips actor 18, which has no song recordings in RAVDESS
	SongMode bool `yaml:"song_mode"`

	// Workers is the render pool size; 1 gives a deterministic serial run
	Workers int `yaml:"workers"`

	LogFile string `yaml:"log_file"`

	Render RenderConfig `yaml:"render"`

	FFmpeg FFmpegConfig `yaml:"ffmpeg"`

	Cleanup CleanupConfig `yaml:"cleanup"`
}

type RenderConfig struct {
	FPS float64 `yaml:"fps"`
	DPI int     `yaml:"dpi"`

	// MaxFailureRatio is the tolerated fraction of frames that may fail
	// to plot before the whole task is considered failed. 1.0 keeps a
	// task alive no matter how many frames are dropped.
	MaxFailureRatio float64 `yaml:"max_failure_ratio"`
}

type FFmpegConfig struct {
	BinaryPath string `yaml:"binary_path"`
	Threads    int    `yaml:"threads"`
	Preset     string `yaml:"preset"`
	CRF        int    `yaml:"crf"`
}

type CleanupConfig struct {
	Root       string `yaml:"root"`
	Pattern    string `yaml:"pattern"`
	ActorStart int    `yaml:"actor_start"`
	ActorEnd   int    `yaml:"actor_end"`
}

// Load reads configuration from file or returns defaults
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = findConfigFile()
	}

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes configuration to file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

func defaultConfig() *Config {
	return &Config{
		CSVRoot:    "./smoothed",
		VideoRoot:  "./video/ActionUnit",
		ActorStart: 1,
		ActorEnd:   25,
		SongMode:   false,
		Workers:    10,
		LogFile:    "auviz.log",
		Render: RenderConfig{
			FPS:             30,
			DPI:             100,
			MaxFailureRatio: 1.0,
		},
		FFmpeg: FFmpegConfig{
			BinaryPath: "ffmpeg",
			Threads:    0,
			Preset:     "medium",
			CRF:        23,
		},
		Cleanup: CleanupConfig{
			Root:       "./RAVDESS",
			Pattern:    "02-*.mp4",
			ActorStart: 1,
			ActorEnd:   25,
		},
	}
}

func findConfigFile() string {
	candidates := []string{
		"./config.yaml",
		"./config.yml",
		filepath.Join(os.Getenv("HOME"), ".auviz", "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// WithConfig stores config in context
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// FromContext retrieves config from context
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(configKey).(*Config); ok {
		return cfg
	}
	return defaultConfig()
}
