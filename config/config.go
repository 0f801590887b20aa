package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const (
	EnvConfigPath   = "MEDIAGRAB_CONFIG"
	projectFileName = "mediagrab.toml"
)

// Duration is a time.Duration written as "5m" or "90s" in TOML.
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

type Config struct {
	Port        int    `toml:"port"`
	DataDir     string `toml:"data_dir"`
	BehindProxy bool   `toml:"behind_proxy"`

	YtdlpBinary  string `toml:"ytdlp_binary"`
	FFmpegBinary string `toml:"ffmpeg_binary"`

	SweepInterval Duration `toml:"sweep_interval"`
	FileMaxAge    Duration `toml:"file_max_age"`
	JobRetention  Duration `toml:"job_retention"`
	KillGrace     Duration `toml:"kill_grace"`
	CancelWait    Duration `toml:"cancel_wait"`

	HistoryEnabled bool   `toml:"history_enabled"`
	APITokenHash   string `toml:"api_token_hash"`

	SubmitRate  float64 `toml:"submit_rate"`
	SubmitBurst int     `toml:"submit_burst"`

	DownloadNamePrefix string `toml:"download_name_prefix"`

	LogFormat string `toml:"log_format"`
	LogLevel  string `toml:"log_level"`
}

func Default() Config {
	return Config{
		Port:               18013,
		DataDir:            "./data",
		YtdlpBinary:        "yt-dlp",
		FFmpegBinary:       "ffmpeg",
		SweepInterval:      Duration(5 * time.Minute),
		FileMaxAge:         Duration(time.Hour),
		JobRetention:       0,
		KillGrace:          Duration(3 * time.Second),
		CancelWait:         Duration(10 * time.Second),
		HistoryEnabled:     true,
		SubmitRate:         1,
		SubmitBurst:        5,
		DownloadNamePrefix: "mediagrab",
		LogFormat:          "auto",
		LogLevel:           "info",
	}
}

// Load builds the configuration from defaults, an optional TOML file and
// the environment, in that order. It returns the file that was read, or ""
// when none was.
func Load(path string) (*Config, string, error) {
	cfg := Default()

	resolvedPath, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", err
	}

	if resolvedPath != "" {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", fmt.Errorf("open config: %w", err)
		}
		defer file.Close() //nolint:errcheck

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", fmt.Errorf("parse config %s: %w", resolvedPath, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, "", err
	}

	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}

	return &cfg, resolvedPath, nil
}

// resolveConfigPath picks the explicit path, then $MEDIAGRAB_CONFIG, then
// ./mediagrab.toml. An explicit file must exist; the project file is
// optional.
func resolveConfigPath(path string) (string, error) {
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("stat config: %w", err)
		}
		return path, nil
	}

	info, err := os.Stat(projectFileName)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("stat config: %w", err)
	}
	if info.IsDir() {
		return "", nil
	}
	return projectFileName, nil
}

func (c *Config) applyEnv() error {
	var err error
	if c.Port, err = getEnvInt("PORT", c.Port); err != nil {
		return err
	}
	c.DataDir = getEnv("DATA_DIR", c.DataDir)
	if c.BehindProxy, err = getEnvBool("BEHIND_PROXY", c.BehindProxy); err != nil {
		return err
	}
	c.YtdlpBinary = getEnv("YTDLP_BINARY", c.YtdlpBinary)
	c.FFmpegBinary = getEnv("FFMPEG_BINARY", c.FFmpegBinary)

	durations := []struct {
		key string
		dst *Duration
	}{
		{"SWEEP_INTERVAL", &c.SweepInterval},
		{"FILE_MAX_AGE", &c.FileMaxAge},
		{"JOB_RETENTION", &c.JobRetention},
		{"KILL_GRACE", &c.KillGrace},
		{"CANCEL_WAIT", &c.CancelWait},
	}
	for _, d := range durations {
		if *d.dst, err = getEnvDuration(d.key, *d.dst); err != nil {
			return err
		}
	}

	if c.HistoryEnabled, err = getEnvBool("HISTORY_ENABLED", c.HistoryEnabled); err != nil {
		return err
	}
	c.APITokenHash = getEnv("API_TOKEN_HASH", c.APITokenHash)
	if c.SubmitRate, err = getEnvFloat("SUBMIT_RATE", c.SubmitRate); err != nil {
		return err
	}
	if c.SubmitBurst, err = getEnvInt("SUBMIT_BURST", c.SubmitBurst); err != nil {
		return err
	}
	c.DownloadNamePrefix = getEnv("DOWNLOAD_NAME_PREFIX", c.DownloadNamePrefix)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	return nil
}

func (c *Config) normalize() {
	if dir := strings.TrimSpace(c.DataDir); dir != "" {
		c.DataDir = filepath.Clean(dir)
	} else {
		c.DataDir = ""
	}
	c.APITokenHash = strings.TrimSpace(c.APITokenHash)
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
}

func (c *Config) Validate() error {
	var problems []string
	if c.Port < 1 || c.Port > 65535 {
		problems = append(problems, fmt.Sprintf("port %d out of range", c.Port))
	}
	if c.DataDir == "" {
		problems = append(problems, "data_dir is required")
	}
	if c.YtdlpBinary == "" {
		problems = append(problems, "ytdlp_binary is required")
	}
	if c.FFmpegBinary == "" {
		problems = append(problems, "ffmpeg_binary is required")
	}
	if c.SweepInterval <= 0 {
		problems = append(problems, "sweep_interval must be positive")
	}
	if c.FileMaxAge <= 0 {
		problems = append(problems, "file_max_age must be positive")
	}
	if c.JobRetention < 0 {
		problems = append(problems, "job_retention must not be negative")
	}
	if c.KillGrace < 0 {
		problems = append(problems, "kill_grace must not be negative")
	}
	if c.CancelWait <= 0 {
		problems = append(problems, "cancel_wait must be positive")
	}
	if c.SubmitRate < 0 {
		problems = append(problems, "submit_rate must not be negative")
	}
	if c.SubmitBurst < 1 {
		problems = append(problems, "submit_burst must be at least 1")
	}
	switch c.LogFormat {
	case "auto", "json", "console":
	default:
		problems = append(problems, fmt.Sprintf("log_format %q must be auto, json or console", c.LogFormat))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func (c *Config) DownloadDir() string {
	return filepath.Join(c.DataDir, "downloads")
}

func (c *Config) LockPath() string {
	return filepath.Join(c.DataDir, "mediagrab.lock")
}

func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.DataDir, c.DownloadDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func getEnvDuration(key string, defaultValue Duration) (Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return Duration(d), nil
}
