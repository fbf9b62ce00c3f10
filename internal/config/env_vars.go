package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	appNameVar     = "APP_NAME"
	envVar         = "ENV"
	logLevelVar    = "LOG_LEVEL"
	logFormatVar   = "LOG_FORMAT"
	folderEnvVar   = "IMAGEN_DATA_FOLDER"
	metricsAddrVar = "IMAGEN_METRICS_ADDR"
)

type EnvVars struct {
	file *fileConfig
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetAppName() string {
	return lookup(appNameVar, e.file.App.Name, "Imagen Client")
}

func (e EnvVars) GetEnv() string {
	return lookup(envVar, e.file.App.Env, "DEV")
}

// GetLogLevel returns a zerolog level name (debug, info, warn, error).
func (e EnvVars) GetLogLevel() string {
	return strings.ToLower(lookup(logLevelVar, e.file.App.LogLevel, "info"))
}

// GetLogFormat is "console", "json" or "auto" (console when attached to a terminal).
func (e EnvVars) GetLogFormat() string {
	return strings.ToLower(lookup(logFormatVar, e.file.App.LogFormat, "auto"))
}

func (e EnvVars) GetDataFolder() string {
	return lookup(folderEnvVar, e.file.App.DataFolder, defaultDataFolder())
}

// GetMetricsAddr is empty when the metrics endpoint is disabled.
func (e EnvVars) GetMetricsAddr() string {
	return lookup(metricsAddrVar, e.file.App.MetricsAddr, "")
}

func defaultDataFolder() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "./data"
	}
	return filepath.Join(dir, "imagen")
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

// lookup resolves a value from the environment, then the config file, then the default.
func lookup(envVar, fileValue, defaultValue string) string {
	if fileValue != "" {
		defaultValue = fileValue
	}
	return GetEnv(envVar, defaultValue)
}

func lookupInt(envVar string, fileValue, defaultValue int) int {
	if fileValue != 0 {
		defaultValue = fileValue
	}
	v, err := strconv.Atoi(os.Getenv(envVar))
	if err != nil {
		return defaultValue
	}
	return v
}

func lookupDuration(envVar, fileValue string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(fileValue); err == nil && d > 0 {
		defaultValue = d
	}
	d, err := time.ParseDuration(os.Getenv(envVar))
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}
