package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config stores runtime configuration for the planner.
type Config struct {
	Deepgram DeepgramConfig
	Audio    AudioConfig
	Rules    RulesConfig
	Session  SessionConfig
	Storage  StorageConfig
}

type DeepgramConfig struct {
	APIKey      string
	APIBaseURL  string
	Model       string
	Language    string
	SmartFormat bool
}

type AudioConfig struct {
	RecorderCommand string
	InputFormat     string
	InputDevice     string
	SampleRate      int
	Channels        int
}

type RulesConfig struct {
	Path           string
	IterationLimit int
}

type SessionConfig struct {
	CountdownTicks int
	TickInterval   time.Duration
	ChunkSize      int
}

type StorageConfig struct {
	DataDir string
}

// Load resolves configuration from environment variables and sensible defaults.
func Load() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, errors.New("could not determine home directory")
	}

	rulesPath := strings.TrimSpace(os.Getenv("WEEKPLAN_RULES_FILE"))
	if rulesPath == "" {
		rulesPath = filepath.Join(home, ".config", "weekplan", "dictation.rules")
	}

	cfg := Config{
		Deepgram: DeepgramConfig{
			APIKey:      strings.TrimSpace(os.Getenv("DEEPGRAM_API_KEY")),
			APIBaseURL:  envOrDefault("DEEPGRAM_API_BASE", "https://api.deepgram.com/v1"),
			Model:       envOrDefault("DEEPGRAM_MODEL", "nova-2"),
			Language:    strings.TrimSpace(os.Getenv("DEEPGRAM_LANGUAGE")),
			SmartFormat: envOrDefaultBool("DEEPGRAM_SMART_FORMAT", true),
		},
		Audio: AudioConfig{
			RecorderCommand: envOrDefault("WEEKPLAN_RECORDER_COMMAND", "ffmpeg"),
			InputFormat:     envOrDefault("WEEKPLAN_AUDIO_INPUT_FORMAT", "pulse"),
			InputDevice:     envOrDefault("WEEKPLAN_AUDIO_INPUT_DEVICE", "default"),
			SampleRate:      envOrDefaultInt("WEEKPLAN_SAMPLE_RATE", 16000),
			Channels:        envOrDefaultInt("WEEKPLAN_CHANNELS", 1),
		},
		Rules: RulesConfig{
			Path:           rulesPath,
			IterationLimit: envOrDefaultInt("WEEKPLAN_RULE_ITERATION_LIMIT", 30),
		},
		Session: SessionConfig{
			CountdownTicks: envOrDefaultInt("WEEKPLAN_COUNTDOWN_TICKS", 120),
			TickInterval:   time.Duration(envOrDefaultInt("WEEKPLAN_TICK_INTERVAL_MS", 1000)) * time.Millisecond,
			ChunkSize:      envOrDefaultInt("WEEKPLAN_AUDIO_CHUNK_SIZE", 4096),
		},
		Storage: StorageConfig{
			DataDir: envOrDefault("WEEKPLAN_DATA_DIR", filepath.Join(home, ".weekplan")),
		},
	}

	if cfg.Audio.SampleRate <= 0 {
		cfg.Audio.SampleRate = 16000
	}
	if cfg.Audio.Channels <= 0 {
		cfg.Audio.Channels = 1
	}
	if cfg.Rules.IterationLimit <= 0 {
		cfg.Rules.IterationLimit = 30
	}
	if cfg.Session.CountdownTicks <= 0 {
		cfg.Session.CountdownTicks = 120
	}
	if cfg.Session.TickInterval <= 0 {
		cfg.Session.TickInterval = time.Second
	}
	if cfg.Session.ChunkSize < 256 {
		cfg.Session.ChunkSize = 4096
	}

	return cfg, nil
}

func envOrDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrDefaultInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrDefaultBool(key string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
