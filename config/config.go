package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/XaviFdez/proyecto-emergencia/internal/domain"
	"github.com/XaviFdez/proyecto-emergencia/internal/wav"
)

type Config struct {
	Audio    AudioConfig    `yaml:"audio"`
	Storage  StorageConfig  `yaml:"storage"`
	HTTP     HTTPConfig     `yaml:"http"`
	Playback PlaybackConfig `yaml:"playback"`
	Pushover PushoverConfig `yaml:"pushover"`
	Log      LogConfig      `yaml:"log"`
}

type AudioConfig struct {
	Input           string        `yaml:"input"`
	Output          string        `yaml:"output"`
	SampleRate      int           `yaml:"sample_rate"`
	BitsPerSample   int           `yaml:"bits_per_sample"`
	Channels        int           `yaml:"channels"`
	FrameBytes      int           `yaml:"frame_bytes"`
	CaptureDuration time.Duration `yaml:"capture_duration"`
}

// Format returns the PCM format recordings are written in.
func (a AudioConfig) Format() wav.Format {
	return wav.Format{
		SampleRate:    a.SampleRate,
		BitsPerSample: a.BitsPerSample,
		Channels:      a.Channels,
	}
}

type StorageConfig struct {
	Dir         string `yaml:"dir"`
	DefaultClip string `yaml:"default_clip"`
}

type HTTPConfig struct {
	Addr       string        `yaml:"addr"`
	AuthToken  string        `yaml:"auth_token"`
	RateLimit  int           `yaml:"rate_limit"`
	RateWindow time.Duration `yaml:"rate_window"`
}

type PlaybackConfig struct {
	Tick         time.Duration `yaml:"tick"`
	ChunkSamples int           `yaml:"chunk_samples"`
}

type PushoverConfig struct {
	Token   string `yaml:"token"`
	UserKey string `yaml:"user_key"`
	Enabled bool   `yaml:"enabled"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a YAML config file. Environment variables in the file are
// expanded before parsing. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg := Default()
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func Default() *Config {
	var cfg Config
	cfg.setDefaults()
	return &cfg
}

func (c *Config) setDefaults() {
	if c.Audio.Input == "" {
		c.Audio.Input = "portaudio"
	}
	if c.Audio.Output == "" {
		c.Audio.Output = "portaudio"
	}
	if c.Audio.SampleRate == 0 {
		c.Audio.SampleRate = 16000
	}
	if c.Audio.BitsPerSample == 0 {
		c.Audio.BitsPerSample = 16
	}
	if c.Audio.Channels == 0 {
		c.Audio.Channels = 1
	}
	if c.Audio.FrameBytes == 0 {
		c.Audio.FrameBytes = 1024
	}
	if c.Audio.CaptureDuration == 0 {
		c.Audio.CaptureDuration = 10 * time.Second
	}
	if c.Storage.Dir == "" {
		c.Storage.Dir = "./recordings"
	}
	if c.Storage.DefaultClip == "" {
		c.Storage.DefaultClip = "audio.wav"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.HTTP.RateLimit == 0 {
		c.HTTP.RateLimit = 30
	}
	if c.HTTP.RateWindow == 0 {
		c.HTTP.RateWindow = time.Minute
	}
	if c.Playback.Tick == 0 {
		c.Playback.Tick = 5 * time.Millisecond
	}
	if c.Playback.ChunkSamples == 0 {
		c.Playback.ChunkSamples = 512
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

func (c *Config) Validate() error {
	var errs []error

	format := c.Audio.Format()
	if err := format.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("audio: %w", err))
	} else if c.Audio.FrameBytes <= 0 || c.Audio.FrameBytes%format.BlockAlign() != 0 {
		errs = append(errs, fmt.Errorf("audio.frame_bytes %d must be a positive multiple of %d", c.Audio.FrameBytes, format.BlockAlign()))
	}
	if c.Audio.CaptureDuration < 0 {
		errs = append(errs, fmt.Errorf("audio.capture_duration must not be negative"))
	}
	switch c.Audio.Input {
	case "portaudio", "silence":
	default:
		errs = append(errs, fmt.Errorf("audio.input %q: want portaudio or silence", c.Audio.Input))
	}
	switch c.Audio.Output {
	case "portaudio", "discard":
	default:
		errs = append(errs, fmt.Errorf("audio.output %q: want portaudio or discard", c.Audio.Output))
	}
	if err := domain.ValidateClipName(c.Storage.DefaultClip); err != nil {
		errs = append(errs, fmt.Errorf("storage.default_clip: %w", err))
	}
	if c.Playback.Tick <= 0 {
		errs = append(errs, fmt.Errorf("playback.tick must be positive"))
	}
	if c.Playback.ChunkSamples <= 0 {
		errs = append(errs, fmt.Errorf("playback.chunk_samples must be positive"))
	}
	if c.HTTP.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("http.rate_limit must not be negative"))
	}
	if c.Pushover.Enabled && (c.Pushover.Token == "" || c.Pushover.UserKey == "") {
		errs = append(errs, fmt.Errorf("pushover enabled without token and user_key"))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
