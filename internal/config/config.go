package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/conorfennell/recall/internal/scheduler"
)

// EnvPrefix is the prefix of environment variables read into the config.
// RECALL_LOG_LEVEL maps to log.level, RECALL_REPOS_DIR to repos_dir.
const EnvPrefix = "RECALL_"

// Config is the runtime configuration.
type Config struct {
	DB        string           `koanf:"db" validate:"required"`
	ReposDir  string           `koanf:"repos_dir" validate:"required"`
	Addr      string           `koanf:"addr" validate:"required,hostname_port"`
	Log       Log              `koanf:"log"`
	Scheduler scheduler.Params `koanf:"scheduler"`
}

// Log configures the default slog logger.
type Log struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=text json"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		DB:        "recall.db",
		ReposDir:  "repos",
		Addr:      "localhost:8080",
		Log:       Log{Level: "info", Format: "text"},
		Scheduler: *scheduler.DefaultParams(),
	}
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"db":        "db",
	"repos-dir": "repos_dir",
	"addr":      "addr",
	"log-level": "log.level",
}

// Flags registers the configurable command-line flags on flags.
func Flags(flags *pflag.FlagSet) {
	d := Defaults()
	flags.String("config", "", "Path to a YAML config file")
	flags.String("db", d.DB, "Path to the SQLite database file")
	flags.String("repos-dir", d.ReposDir, "Directory where git deck sources are checked out")
	flags.String("addr", d.Addr, "Listen address for --serve")
	flags.String("log-level", d.Log.Level, "Log level: debug, info, warn or error")
}

// Load builds the configuration from defaults, the optional YAML file named
// by --config, RECALL_* environment variables and finally set flags.
func Load(flags *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")

	d := Defaults()
	defaults := map[string]any{
		"db":                            d.DB,
		"repos_dir":                     d.ReposDir,
		"addr":                          d.Addr,
		"log.level":                     d.Log.Level,
		"log.format":                    d.Log.Format,
		"scheduler.hard_interval":       d.Scheduler.HardInterval,
		"scheduler.first_good_interval": d.Scheduler.FirstGoodInterval,
		"scheduler.first_easy_interval": d.Scheduler.FirstEasyInterval,
		"scheduler.easy_bonus":          d.Scheduler.EasyBonus,
		"scheduler.hard_penalty":        d.Scheduler.HardPenalty,
		"scheduler.min_ease_factor":     d.Scheduler.MinEaseFactor,
	}
	for key, v := range defaults {
		if err := k.Set(key, v); err != nil {
			return Config{}, fmt.Errorf("setting default %s: %w", key, err)
		}
	}

	if path, _ := flags.GetString("config"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return Config{}, fmt.Errorf("config file %s does not exist", path)
			}
			return Config{}, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("loading environment: %w", err)
	}

	// Only flags the user actually set override lower layers.
	if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
		key, ok := flagKeys[f.Name]
		if !ok || !f.Changed {
			return "", nil
		}
		return key, posflag.FlagVal(flags, f)
	}), nil); err != nil {
		return Config{}, fmt.Errorf("loading flags: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// envKey maps RECALL_LOG_LEVEL to log.level. Top-level keys keep their
// underscores: RECALL_REPOS_DIR becomes repos_dir.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	for _, section := range []string{"log", "scheduler"} {
		if rest, ok := strings.CutPrefix(key, section+"_"); ok {
			return section + "." + rest
		}
	}
	return key
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks cfg for out-of-range values.
func Validate(cfg Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Logger builds a slog.Logger writing to stderr at the configured level.
func (l Log) Logger() *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
