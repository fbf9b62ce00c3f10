package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

type Config interface {
	EnvConfig
	APIConfig
	StorageConfig
	NotificationsConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	GetLogFormat() string
	GetDataFolder() string
	GetMetricsAddr() string
}

type APIConfig interface {
	GetBaseURL() string
	GetRefreshPath() string
	GetAuthFailureStatuses() []int
	GetRequestTimeout() time.Duration
	GetRefreshTimeout() time.Duration
	GetRefreshLockFile() string
}

type mainConfig struct {
	EnvVars
	API
	Storage
	Notifications
}

// New returns a configuration read from environment variables only.
func New() Config {
	return newMainConfig(&fileConfig{})
}

// Load returns a configuration read from the TOML file at path, with
// environment variables taking precedence over file values. A missing
// file is not an error.
func Load(path string) (Config, error) {
	fc := &fileConfig{}
	if path == "" {
		return newMainConfig(fc), nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return newMainConfig(fc), nil
	}
	if err != nil {
		return nil, fmt.Errorf("config.Load read %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, fc); err != nil {
		return nil, fmt.Errorf("config.Load parse %s: %w", path, err)
	}
	return newMainConfig(fc), nil
}

func newMainConfig(fc *fileConfig) mainConfig {
	return mainConfig{
		EnvVars:       EnvVars{file: fc},
		API:           API{file: fc},
		Storage:       Storage{file: fc},
		Notifications: Notifications{file: fc},
	}
}

// fileConfig mirrors the optional TOML file.
type fileConfig struct {
	App struct {
		Name        string `toml:"name"`
		Env         string `toml:"env"`
		LogLevel    string `toml:"log_level"`
		LogFormat   string `toml:"log_format"`
		DataFolder  string `toml:"data_folder"`
		MetricsAddr string `toml:"metrics_addr"`
	} `toml:"app"`
	API struct {
		BaseURL             string `toml:"base_url"`
		RefreshPath         string `toml:"refresh_path"`
		AuthFailureStatuses []int  `toml:"auth_failure_statuses"`
		RequestTimeout      string `toml:"request_timeout"`
		RefreshTimeout      string `toml:"refresh_timeout"`
		RefreshLockFile     string `toml:"refresh_lock_file"`
	} `toml:"api"`
	Storage struct {
		Backend       string `toml:"backend"`
		SQLitePath    string `toml:"sqlite_path"`
		RedisAddr     string `toml:"redis_addr"`
		RedisPassword string `toml:"redis_password"`
		RedisDB       int    `toml:"redis_db"`
		KeyPrefix     string `toml:"key_prefix"`
		SealKey       string `toml:"seal_key"`
	} `toml:"storage"`
	Notifications struct {
		DatabaseURL string `toml:"database_url"`
		Table       string `toml:"table"`
		Channel     string `toml:"channel"`
		PageSize    int    `toml:"page_size"`
	} `toml:"notifications"`
}
