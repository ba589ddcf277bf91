// Package config reads binary settings from flags, falling back to SNAKE_*
// environment variables and then to built-in defaults.
package config

import (
	"flag"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"
)

type Config struct {
	Seed          int64
	HighScorePath string
	ReplayDir     string
	Listen        string
	FPS           int
	LogFormat     string
	LogLevel      string
	LogPath       string
	ModelPath     string
	Autopilot     bool
	Games         int
	Workers       int
	MaxTicks      int
	FlushGames    int
}

func Default() Config {
	return Config{
		HighScorePath: "data/highscore.log",
		ReplayDir:     "data/replays",
		Listen:        ":8080",
		FPS:           60,
		LogFormat:     "text",
		LogLevel:      "info",
		Games:         100,
		Workers:       runtime.NumCPU(),
		MaxTicks:      10000,
		FlushGames:    50,
	}
}

// Register binds every setting to fs. Environment variables override the
// defaults; explicit flags override both.
func Register(fs *flag.FlagSet, cfg *Config) {
	d := Default()
	RegisterLog(fs, cfg)
	RegisterReplayDir(fs, cfg)
	fs.Int64Var(&cfg.Seed, "seed", getEnvInt64OrDefault("SNAKE_SEED", d.Seed), "Food RNG seed (0 = time based)")
	fs.StringVar(&cfg.HighScorePath, "highscore-path", getEnvOrDefault("SNAKE_HIGHSCORE_PATH", d.HighScorePath), "High score log file (empty = memory only)")
	fs.StringVar(&cfg.Listen, "listen", getEnvOrDefault("SNAKE_LISTEN", d.Listen), "HTTP listen address")
	fs.IntVar(&cfg.FPS, "fps", getEnvIntOrDefault("SNAKE_FPS", d.FPS), "Render frames per second")
	fs.StringVar(&cfg.ModelPath, "model-path", getEnvOrDefault("SNAKE_MODEL_PATH", d.ModelPath), "ONNX policy model for the autopilot (empty = greedy)")
	fs.BoolVar(&cfg.Autopilot, "autopilot", getEnvBoolOrDefault("SNAKE_AUTOPILOT", d.Autopilot), "Let the autopilot steer")
	fs.IntVar(&cfg.Games, "games", getEnvIntOrDefault("SNAKE_GAMES", d.Games), "Games to simulate (headless)")
	fs.IntVar(&cfg.Workers, "workers", getEnvIntOrDefault("SNAKE_WORKERS", d.Workers), "Parallel simulated games (headless)")
	fs.IntVar(&cfg.MaxTicks, "max-ticks", getEnvIntOrDefault("SNAKE_MAX_TICKS", d.MaxTicks), "Tick cap per simulated game (headless)")
	fs.IntVar(&cfg.FlushGames, "flush-games", getEnvIntOrDefault("SNAKE_FLUSH_GAMES", d.FlushGames), "Games buffered per replay parquet file")
}

// RegisterLog binds only the logging flags.
func RegisterLog(fs *flag.FlagSet, cfg *Config) {
	d := Default()
	fs.StringVar(&cfg.LogFormat, "log-format", getEnvOrDefault("SNAKE_LOG_FORMAT", d.LogFormat), "Log format: text, json or pretty")
	fs.StringVar(&cfg.LogLevel, "log-level", getEnvOrDefault("SNAKE_LOG_LEVEL", d.LogLevel), "Log level: debug, info, warn, error")
	fs.StringVar(&cfg.LogPath, "log-path", getEnvOrDefault("SNAKE_LOG_PATH", d.LogPath), "Log file (empty = stderr)")
}

func RegisterReplayDir(fs *flag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.ReplayDir, "replay-dir", getEnvOrDefault("SNAKE_REPLAY_DIR", Default().ReplayDir), "Directory for replay parquet files (empty = no recording)")
}

// Load parses args into a Config.
func Load(name string, args []string) (Config, error) {
	cfg := Default()
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	Register(fs, &cfg)
	if err := fs.Parse(args); err != nil {
		return Config{}, fmt.Errorf("flag parse: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.FPS <= 0 || c.FPS > 1000 {
		return fmt.Errorf("fps must be in 1..1000, got %d", c.FPS)
	}
	if c.Games < 0 {
		return fmt.Errorf("games must be >= 0, got %d", c.Games)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be > 0, got %d", c.Workers)
	}
	if c.MaxTicks <= 0 {
		return fmt.Errorf("max-ticks must be > 0, got %d", c.MaxTicks)
	}
	return nil
}

// Frame is the render period implied by FPS.
func (c Config) Frame() time.Duration {
	return time.Second / time.Duration(c.FPS)
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvInt64OrDefault(key string, defaultVal int64) int64 {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBoolOrDefault(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}
