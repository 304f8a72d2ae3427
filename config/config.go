package config

import (
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	ListenAddr        string `json:"listenAddr" mapstructure:"listenAddr"`
	MaxSessions       int    `json:"maxSessions" mapstructure:"maxSessions"`
	DatabaseURL       string `json:"databaseURL" mapstructure:"databaseURL"`
	SQLitePath        string `json:"sqlitePath" mapstructure:"sqlitePath"`
	AssetsDir         string `json:"assetsDir" mapstructure:"assetsDir"`
	LogLevel          string `json:"logLevel" mapstructure:"logLevel"`
	UndoLimit         int    `json:"undoLimit" mapstructure:"undoLimit"`
	RequestTimeoutSec int    `json:"requestTimeoutSec" mapstructure:"requestTimeoutSec"`
}

func DefaultConfig() Config {
	return Config{
		ListenAddr:        ":3000",
		MaxSessions:       5,
		DatabaseURL:       "",
		SQLitePath:        "data/plans.db",
		AssetsDir:         "",
		LogLevel:          "info",
		UndoLimit:         50,
		RequestTimeoutSec: 10,
	}
}

// RequestTimeout bounds storage and calculation calls made on behalf of a
// request.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSec) * time.Second
}

// env maps config keys to the environment variables that override them.
var env = map[string]string{
	"databaseURL": "DATABASE_URL",
	"listenAddr":  "LISTEN_ADDR",
	"logLevel":    "LOG_LEVEL",
}

func newViper() *viper.Viper {
	v := viper.New()
	d := DefaultConfig()
	v.SetDefault("listenAddr", d.ListenAddr)
	v.SetDefault("maxSessions", d.MaxSessions)
	v.SetDefault("databaseURL", d.DatabaseURL)
	v.SetDefault("sqlitePath", d.SQLitePath)
	v.SetDefault("assetsDir", d.AssetsDir)
	v.SetDefault("logLevel", d.LogLevel)
	v.SetDefault("undoLimit", d.UndoLimit)
	v.SetDefault("requestTimeoutSec", d.RequestTimeoutSec)
	for key, name := range env {
		_ = v.BindEnv(key, name)
	}
	return v
}

// Load reads a JSON config file at path. If the file is missing or invalid,
// it logs a warning and returns the defaults. Partial JSON is merged with
// defaults. DATABASE_URL, LISTEN_ADDR and LOG_LEVEL override the file.
func Load(path string) Config {
	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("json")

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("could not read config file, using defaults")
		v = newViper()
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("could not decode config, using defaults")
		return DefaultConfig()
	}
	return cfg
}
