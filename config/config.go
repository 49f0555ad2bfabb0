// Package config loads process settings from config/config.yaml, with
// LEDGER_* environment variables taking precedence.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const envPrefix = "LEDGER"

type Config struct {
	Server  ServerConfig
	Log     LogConfig
	LevelDB LevelDBConfig
	Ledger  LedgerConfig
}

type ServerConfig struct {
	Port int
}

type LogConfig struct {
	AppLogFile string
	Level      string
}

type LevelDBConfig struct {
	Path string
}

type LedgerConfig struct {
	Difficulty int
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.app_log_file", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("leveldb.path", "data/ledger")
	v.SetDefault("ledger.difficulty", 4)
}

// Load reads path if it is non-empty. A missing key falls back to its
// default; LEDGER_SERVER_PORT overrides server.port and so on.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{
		Server:  ServerConfig{Port: v.GetInt("server.port")},
		Log:     LogConfig{AppLogFile: v.GetString("log.app_log_file"), Level: v.GetString("log.level")},
		LevelDB: LevelDBConfig{Path: v.GetString("leveldb.path")},
		Ledger:  LedgerConfig{Difficulty: v.GetInt("ledger.difficulty")},
	}
	if cfg.Ledger.Difficulty < 0 {
		return nil, fmt.Errorf("ledger.difficulty must be >= 0, got %d", cfg.Ledger.Difficulty)
	}
	if cfg.Server.Port <= 0 {
		return nil, fmt.Errorf("server.port must be positive, got %d", cfg.Server.Port)
	}
	return cfg, nil
}
