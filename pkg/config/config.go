// Package config loads settings from skymesh.yaml, .env and SKYMESH_*
// environment variables, and initialises the global logger.
package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/zdunecki/skymesh/pkg/store"
)

// EnvPrefix prefixes every environment override, e.g. SKYMESH_SERVER_PORT.
const EnvPrefix = "SKYMESH"

// Config holds the full application configuration.
type Config struct {
	Store      store.Config     `yaml:"store" mapstructure:"store"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
	Wizard     WizardConfig     `yaml:"wizard" mapstructure:"wizard"`
	Transition TransitionConfig `yaml:"transition" mapstructure:"transition"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	SecureCookies  bool     `yaml:"secure_cookies" mapstructure:"secure_cookies"`
}

// LogConfig configures logging. File is only used by the terminal UI,
// which owns stdout and stderr while it runs.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
	File   string `yaml:"file" mapstructure:"file"`
}

type WizardConfig struct {
	AutoAdvanceDelay time.Duration `yaml:"auto_advance_delay" mapstructure:"auto_advance_delay"`
}

// TransitionConfig scales the analyzing screen's timings; 1 is real time.
type TransitionConfig struct {
	Speed float64 `yaml:"speed" mapstructure:"speed"`
}

// Load reads configuration from file, or from skymesh.yaml in the working
// directory when file is empty. A .env file in the working directory is
// applied first and never overrides variables already set.
func Load(file string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("skymesh")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("store.driver", store.DriverFile)
	v.SetDefault("store.dir", ".skymesh")
	v.SetDefault("store.sqlite_path", "skymesh.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.secure_cookies", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.file", "skymesh.log")
	v.SetDefault("wizard.auto_advance_delay", "200ms")
	v.SetDefault("transition.speed", 1.0)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	if cfg.Transition.Speed <= 0 {
		cfg.Transition.Speed = 1
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger. When toFile is set the
// logger writes to cfg.File instead of stderr.
func InitLogger(cfg LogConfig, toFile bool) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	if toFile && cfg.File != "" {
		zapCfg.OutputPaths = []string{cfg.File}
		zapCfg.ErrorOutputPaths = []string{cfg.File}
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
