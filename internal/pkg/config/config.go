package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Catalog sources.
const (
	CatalogPostgres = "postgres"
	CatalogFile     = "file"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Log       LogConfig       `mapstructure:"log"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Routing   RoutingConfig   `mapstructure:"routing"`
	Temporal  TemporalConfig  `mapstructure:"temporal"`
}

type ServerConfig struct {
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
	AllowOrigins string `mapstructure:"allow_origins"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

type TelemetryConfig struct {
	ServiceName  string `mapstructure:"service_name"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	Enabled      bool   `mapstructure:"enabled"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CatalogConfig selects where the address catalog lives.
type CatalogConfig struct {
	Source string `mapstructure:"source"` // postgres | file
	File   string `mapstructure:"file"`
}

// RoutingConfig tunes the ranker and sequencer.
type RoutingConfig struct {
	AverageSpeedKmh float64 `mapstructure:"average_speed_kmh"`
	MaxStops        int     `mapstructure:"max_stops"`
	DefaultStops    int     `mapstructure:"default_stops"`
	MaxPasses       int     `mapstructure:"max_passes"` // 0 = n² for n stops
	TimeBudgetMS    int     `mapstructure:"time_budget_ms"`
}

// TimeBudget returns the 2-opt wall-clock budget. Zero means unbounded.
func (r RoutingConfig) TimeBudget() time.Duration {
	return time.Duration(r.TimeBudgetMS) * time.Millisecond
}

type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()
	setDefaults(v, service)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: WAYPOINT_DATABASE_HOST → database.host
	v.SetEnvPrefix("WAYPOINT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, service string) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("server.allow_origins", "http://localhost:3000, http://localhost:5173")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "waypoint")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "waypoint")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.otlp_endpoint", "localhost:4317")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("catalog.source", CatalogPostgres)
	v.SetDefault("catalog.file", "addresses.yaml")
	v.SetDefault("routing.average_speed_kmh", 40.0)
	v.SetDefault("routing.max_stops", 20)
	v.SetDefault("routing.default_stops", 5)
	v.SetDefault("routing.max_passes", 0)
	v.SetDefault("routing.time_budget_ms", 250)
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "waypoint-route-plan")
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}

	switch c.Catalog.Source {
	case CatalogPostgres:
		if c.Database.Host == "" {
			errs = append(errs, "database.host is required")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
		}
		if c.Database.User == "" {
			errs = append(errs, "database.user is required")
		}
		if c.Database.DBName == "" {
			errs = append(errs, "database.dbname is required")
		}
	case CatalogFile:
		if c.Catalog.File == "" {
			errs = append(errs, "catalog.file is required when catalog.source is file")
		}
	default:
		errs = append(errs, fmt.Sprintf("catalog.source must be %q or %q, got %q", CatalogPostgres, CatalogFile, c.Catalog.Source))
	}

	if c.Routing.AverageSpeedKmh <= 0 {
		errs = append(errs, "routing.average_speed_kmh must be positive")
	}
	if c.Routing.MaxStops <= 0 {
		errs = append(errs, "routing.max_stops must be positive")
	}
	if c.Routing.DefaultStops <= 0 || c.Routing.DefaultStops > c.Routing.MaxStops {
		errs = append(errs, fmt.Sprintf("routing.default_stops must be 1-%d, got %d", c.Routing.MaxStops, c.Routing.DefaultStops))
	}
	if c.Routing.MaxPasses < 0 {
		errs = append(errs, "routing.max_passes must not be negative")
	}
	if c.Routing.TimeBudgetMS < 0 {
		errs = append(errs, "routing.time_budget_ms must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
