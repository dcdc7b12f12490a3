package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cwrk-planet/tempvoice/internal/postgres"
	"github.com/cwrk-planet/tempvoice/internal/redisx"
	"github.com/cwrk-planet/tempvoice/internal/service"
	"github.com/cwrk-planet/tempvoice/internal/sqlite"

	"gopkg.in/yaml.v3"
)

const DefaultPath = "./config/config.yaml"

type Discord struct {
	Token          string `yaml:"token"`
	RequestTimeout string `yaml:"requestTimeout"`
}

func (d Discord) Timeout() time.Duration {
	return parseDurationOr(10*time.Second, d.RequestTimeout)
}

type HTTP struct {
	Addr        string   `yaml:"addr"`
	JWTSecret   string   `yaml:"jwtSecret"`
	TokenTTL    string   `yaml:"tokenTTL"`
	CORSOrigins []string `yaml:"corsOrigins"`
}

func (h HTTP) TTL() time.Duration {
	return parseDurationOr(24*time.Hour, h.TokenTTL)
}

type GRPC struct {
	Addr string `yaml:"addr"`
}

type Logging struct {
	Env       string `yaml:"env"`       // dev|stage|prod
	Service   string `yaml:"service"`   // tempvoice
	Version   string `yaml:"version"`   // v0.1.0
	Backend   string `yaml:"backend"`   // std|zap
	Level     string `yaml:"level"`     // debug|info|warn|error
	AddSource bool   `yaml:"addSource"` // false|true
	Debug     bool   `yaml:"debug"`     // false|true
}

type SQLite struct {
	Path        string `yaml:"path"`
	BusyTimeout string `yaml:"busyTimeout"`
}

type Postgres struct {
	DSN               string `yaml:"dsn"`
	MaxConns          int32  `yaml:"maxConns"`
	MinConns          int32  `yaml:"minConns"`
	MaxConnLifetime   string `yaml:"maxConnLifetime"`
	MaxConnIdleTime   string `yaml:"maxConnIdleTime"`
	HealthCheckPeriod string `yaml:"healthCheckPeriod"`
	ApplicationName   string `yaml:"applicationName"`
}

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Store struct {
	Driver   string   `yaml:"driver"` // sqlite|postgres
	SQLite   SQLite   `yaml:"sqlite"`
	Postgres Postgres `yaml:"postgres"`
}

type Redis struct {
	Addr     string `yaml:"addr"` // пустой адрес отключает кеш
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
	TTL      string `yaml:"ttl"`
}

type Rooms struct {
	GraceInterval    string `yaml:"graceInterval"`
	NameFormat       string `yaml:"nameFormat"`
	OwnerPermissions bool   `yaml:"ownerPermissions"`
}

type Unique struct {
	NameFormat string `yaml:"nameFormat"`
}

type Reconcile struct {
	Interval    string `yaml:"interval"` // пусто или 0 отключает периодический sweep
	OnStartup   bool   `yaml:"onStartup"`
	Concurrency int    `yaml:"concurrency"`
}

type Config struct {
	Discord   Discord   `yaml:"discord"`
	HTTP      HTTP      `yaml:"http"`
	GRPC      GRPC      `yaml:"grpc"`
	Logging   Logging   `yaml:"logging"`
	Store     Store     `yaml:"store"`
	Redis     Redis     `yaml:"redis"`
	Rooms     Rooms     `yaml:"rooms"`
	Unique    Unique    `yaml:"unique"`
	Reconcile Reconcile `yaml:"reconcile"`
}

// ResolvePath picks the explicit path, then CONFIG_PATH, then DefaultPath.
func ResolvePath(path string) string {
	if strings.TrimSpace(path) != "" {
		return path
	}
	if env := os.Getenv("CONFIG_PATH"); env != "" {
		return env
	}
	return DefaultPath
}

// Load reads the YAML file. A missing file at the default location yields the defaults.
func Load(path string) (*Config, error) {
	explicit := strings.TrimSpace(path) != "" || os.Getenv("CONFIG_PATH") != ""
	path = ResolvePath(path)

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, err
	}

	cfg.setDefaults()
	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Logging.Service == "" {
		c.Logging.Service = "tempvoice"
	}
	if c.Logging.Version == "" {
		c.Logging.Version = "v0.1.0"
	}
	if c.Store.Driver == "" {
		c.Store.Driver = DriverSQLite
	}
	if c.Store.SQLite.Path == "" {
		c.Store.SQLite.Path = "tempvoice.db"
	}
	if c.Store.Postgres.ApplicationName == "" {
		c.Store.Postgres.ApplicationName = "tempvoice"
	}
	if c.Redis.Prefix == "" {
		c.Redis.Prefix = "tempvoice:"
	}
	if c.Reconcile.Concurrency <= 0 {
		c.Reconcile.Concurrency = 4
	}
}

// Validate checks what every command needs. Serving additionally needs a Discord token,
// see ValidateServe.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverSQLite:
	case DriverPostgres:
		if c.Store.Postgres.DSN == "" {
			return errors.New("store.postgres.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("store.driver must be sqlite or postgres, got %q", c.Store.Driver)
	}
	if d := c.Rooms.GraceInterval; d != "" {
		if v, err := time.ParseDuration(d); err != nil || v < 0 {
			return fmt.Errorf("rooms.graceInterval %q is not a non-negative duration", d)
		}
	}
	return nil
}

func (c *Config) ValidateServe() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(c.Discord.Token) == "" {
		return errors.New("discord.token is required")
	}
	if c.HTTP.Addr != "" && c.HTTP.JWTSecret == "" {
		return errors.New("http.jwtSecret is required when http.addr is set")
	}
	return nil
}

func (s Store) SQLiteConfig() sqlite.Config {
	return sqlite.Config{
		Path:        s.SQLite.Path,
		BusyTimeout: parseDurationOr(5*time.Second, s.SQLite.BusyTimeout),
	}
}

func (s Store) PostgresConfig() postgres.Config {
	p := s.Postgres
	return postgres.Config{
		DSN:               p.DSN,
		MaxConns:          p.MaxConns,
		MinConns:          p.MinConns,
		MaxConnLifetime:   parseDurationOr(0, p.MaxConnLifetime),
		MaxConnIdleTime:   parseDurationOr(0, p.MaxConnIdleTime),
		HealthCheckPeriod: parseDurationOr(0, p.HealthCheckPeriod),
		ApplicationName:   p.ApplicationName,
	}
}

func (r Redis) Enabled() bool { return strings.TrimSpace(r.Addr) != "" }

func (r Redis) ClientConfig() redisx.Config {
	return redisx.Config{Addr: r.Addr, Password: r.Password, DB: r.DB, Prefix: r.Prefix}
}

func (r Redis) CacheTTL() time.Duration {
	return parseDurationOr(30*time.Second, r.TTL)
}

func (r Rooms) LifecycleConfig() service.LifecycleConfig {
	grace := service.DefaultGraceInterval
	if r.GraceInterval != "" {
		if d, err := time.ParseDuration(r.GraceInterval); err == nil && d >= 0 {
			grace = d
		}
	}
	return service.LifecycleConfig{
		GraceInterval:    grace,
		NameFormat:       r.NameFormat,
		OwnerPermissions: r.OwnerPermissions,
	}
}

func (u Unique) ProvisionerConfig() service.ProvisionerConfig {
	return service.ProvisionerConfig{NameFormat: u.NameFormat}
}

func (r Reconcile) Every() time.Duration {
	return parseDurationOr(0, r.Interval)
}

// parseDurationOr returns def when s is empty, malformed or not positive.
func parseDurationOr(def time.Duration, s string) time.Duration {
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return def
}
