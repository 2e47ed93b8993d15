package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// overrides are the environment variables that take precedence over the
// config file. Unset variables leave the file's values alone.
type overrides struct {
	LogLevel       string `env:"LOG_LEVEL"`
	LogJSON        *bool  `env:"LOG_JSON"`
	ServerAddr     string `env:"SERVER_ADDR"`
	SourceDSN      string `env:"SOURCE_DSN"`
	SourceDir      string `env:"SOURCE_DIR"`
	ExportDSN      string `env:"EXPORT_DSN"`
	MetricsBackend string `env:"METRICS_BACKEND"`
	PushgatewayURL string `env:"PUSHGATEWAY_URL"`
	DatadogAddr    string `env:"DATADOG_ADDR"`
}

// ApplyEnv overlays environment overrides on d. When APP_ENV is "local" the
// given .env files (default ".env") are loaded first; a missing file is fine.
func ApplyEnv(d *Dashboard, dotenv ...string) error {
	if os.Getenv("APP_ENV") == "local" {
		if err := godotenv.Load(dotenv...); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load .env: %w", err)
		}
	}
	var o overrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&d.Log.Level, o.LogLevel)
	if o.LogJSON != nil {
		d.Log.JSON = *o.LogJSON
	}
	set(&d.Server.Addr, o.ServerAddr)
	set(&d.Source.Storage.DSN, o.SourceDSN)
	set(&d.Source.Dir, o.SourceDir)
	set(&d.Export.DSN, o.ExportDSN)
	set(&d.Metrics.Backend, o.MetricsBackend)
	set(&d.Metrics.PushgatewayURL, o.PushgatewayURL)
	set(&d.Metrics.DatadogAddr, o.DatadogAddr)
	return nil
}
