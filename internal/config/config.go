// Package config loads the seat inventory server configuration.
//
// Values are layered in this order, later layers winning:
//   - built-in defaults
//   - an optional YAML file named by --config or CONFIG_FILE
//   - environment variables
//   - command-line flags
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

const (
	ServiceName    = "seat-inventory"
	ServiceVersion = "0.1.0"
)

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

const (
	DefaultPort                 = "8080"
	DefaultMinDepartureLeadTime = 2*time.Hour + 5*time.Minute
	DefaultBookingCutoffWindow  = 2 * time.Hour
	DefaultIdentityHeader       = "X-Principal"
	DefaultReconcileSchedule    = "*/15 * * * *"
	DefaultShutdownTimeout      = 30 * time.Second
	DefaultRateLimitMaxCallers  = 10000
)

type Config struct {
	Port            string        `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// StoreBackend is one of memory, postgres or redis.
	StoreBackend string      `yaml:"store_backend"`
	DatabaseURL  string      `yaml:"database_url"`
	Redis        RedisConfig `yaml:"redis"`

	MinDepartureLeadTime time.Duration `yaml:"min_departure_lead_time"`
	BookingCutoffWindow  time.Duration `yaml:"booking_cutoff_window"`

	// IdentityHeader carries the authenticated caller principal.
	IdentityHeader string `yaml:"identity_header"`

	// RateLimitRPS of zero disables per-caller rate limiting.
	RateLimitRPS   float64 `yaml:"rate_limit_rps"`
	RateLimitBurst int     `yaml:"rate_limit_burst"`
	// RateLimitMaxCallers bounds the per-caller buckets held in memory.
	RateLimitMaxCallers int `yaml:"rate_limit_max_callers"`
	// RateLimitOverrides gives named principals their own budget.
	RateLimitOverrides map[string]RateLimitOverride `yaml:"rate_limit_overrides"`

	// TemporalHost left empty disables the reconciliation worker.
	TemporalHost      string `yaml:"temporal_host"`
	ReconcileSchedule string `yaml:"reconcile_schedule"`

	// OtelEndpoint left empty disables trace export.
	OtelEndpoint   string `yaml:"otel_endpoint"`
	OtelAuthHeader string `yaml:"otel_auth_header"`
	OtelInsecure   bool   `yaml:"otel_insecure"`

	LogLevel       string `yaml:"log_level"`
	LogDevelopment bool   `yaml:"log_development"`
}

type RateLimitOverride struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

func Default() *Config {
	return &Config{
		Port:                 DefaultPort,
		ShutdownTimeout:      DefaultShutdownTimeout,
		StoreBackend:         BackendMemory,
		Redis:                RedisConfig{Host: "localhost", Port: "6379"},
		MinDepartureLeadTime: DefaultMinDepartureLeadTime,
		BookingCutoffWindow:  DefaultBookingCutoffWindow,
		IdentityHeader:       DefaultIdentityHeader,
		RateLimitRPS:         10,
		RateLimitBurst:       20,
		RateLimitMaxCallers:  DefaultRateLimitMaxCallers,
		ReconcileSchedule:    DefaultReconcileSchedule,
		LogLevel:             "info",
	}
}

// Load builds the configuration from args (without the program name).
func Load(args []string) (*Config, error) {
	path, err := configPath(args)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.loadEnv(); err != nil {
		return nil, err
	}

	fs := pflag.NewFlagSet(ServiceName, pflag.ContinueOnError)
	cfg.bindFlags(fs)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// configPath looks for --config ahead of the full flag parse, since the file
// has to be applied before flags override it.
func configPath(args []string) (string, error) {
	fs := pflag.NewFlagSet(ServiceName, pflag.ContinueOnError)
	fs.ParseErrorsWhitelist.UnknownFlags = true
	fs.Usage = func() {}
	path := fs.String("config", "", "")
	if err := fs.Parse(args); err != nil && !errors.Is(err, pflag.ErrHelp) {
		return "", err
	}
	if *path != "" {
		return *path, nil
	}
	return os.Getenv("CONFIG_FILE"), nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) loadEnv() error {
	c.Port = getEnv("API_PORT", c.Port)
	c.StoreBackend = getEnv("STORE_BACKEND", c.StoreBackend)
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)
	c.Redis.Host = getEnv("REDIS_HOST", c.Redis.Host)
	c.Redis.Port = getEnv("REDIS_PORT", c.Redis.Port)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.IdentityHeader = getEnv("IDENTITY_HEADER", c.IdentityHeader)
	c.TemporalHost = getEnv("TEMPORAL_HOST", c.TemporalHost)
	c.ReconcileSchedule = getEnv("RECONCILE_SCHEDULE", c.ReconcileSchedule)
	c.OtelEndpoint = getEnv("OTEL_ENDPOINT", c.OtelEndpoint)
	c.OtelAuthHeader = getEnv("OTEL_AUTH_HEADER", c.OtelAuthHeader)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)

	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	var err error
	c.Redis.DB, err = getEnvInt("REDIS_DB", c.Redis.DB)
	collect(err)
	c.RateLimitBurst, err = getEnvInt("RATE_LIMIT_BURST", c.RateLimitBurst)
	collect(err)
	c.RateLimitRPS, err = getEnvFloat("RATE_LIMIT_RPS", c.RateLimitRPS)
	collect(err)
	c.RateLimitMaxCallers, err = getEnvInt("RATE_LIMIT_MAX_CALLERS", c.RateLimitMaxCallers)
	collect(err)
	c.MinDepartureLeadTime, err = getEnvDuration("MIN_DEPARTURE_LEAD_TIME", c.MinDepartureLeadTime)
	collect(err)
	c.BookingCutoffWindow, err = getEnvDuration("BOOKING_CUTOFF_WINDOW", c.BookingCutoffWindow)
	collect(err)
	c.ShutdownTimeout, err = getEnvDuration("SHUTDOWN_TIMEOUT", c.ShutdownTimeout)
	collect(err)
	c.LogDevelopment, err = getEnvBool("LOG_DEVELOPMENT", c.LogDevelopment)
	collect(err)
	c.OtelInsecure, err = getEnvBool("OTEL_INSECURE", c.OtelInsecure)
	collect(err)

	return errors.Join(errs...)
}

// bindFlags registers one flag per setting, defaulting to the value already
// loaded so that only flags given on the command line change it.
func (c *Config) bindFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to a YAML configuration file")
	fs.StringVar(&c.Port, "port", c.Port, "HTTP listen port")
	fs.DurationVar(&c.ShutdownTimeout, "shutdown-timeout", c.ShutdownTimeout, "graceful shutdown timeout")
	fs.StringVar(&c.StoreBackend, "store", c.StoreBackend, "inventory store backend: memory, postgres or redis")
	fs.StringVar(&c.DatabaseURL, "database-url", c.DatabaseURL, "PostgreSQL connection string")
	fs.StringVar(&c.Redis.Host, "redis-host", c.Redis.Host, "Redis host")
	fs.StringVar(&c.Redis.Port, "redis-port", c.Redis.Port, "Redis port")
	fs.StringVar(&c.Redis.Password, "redis-password", c.Redis.Password, "Redis password")
	fs.IntVar(&c.Redis.DB, "redis-db", c.Redis.DB, "Redis database number")
	fs.DurationVar(&c.MinDepartureLeadTime, "min-departure-lead-time", c.MinDepartureLeadTime, "minimum time between now and a new departure")
	fs.DurationVar(&c.BookingCutoffWindow, "booking-cutoff-window", c.BookingCutoffWindow, "bookings close this long before departure")
	fs.StringVar(&c.IdentityHeader, "identity-header", c.IdentityHeader, "request header carrying the caller principal")
	fs.Float64Var(&c.RateLimitRPS, "rate-limit-rps", c.RateLimitRPS, "requests per second per caller, 0 disables")
	fs.IntVar(&c.RateLimitBurst, "rate-limit-burst", c.RateLimitBurst, "request burst per caller")
	fs.IntVar(&c.RateLimitMaxCallers, "rate-limit-max-callers", c.RateLimitMaxCallers, "callers tracked by the rate limiter")
	fs.StringVar(&c.TemporalHost, "temporal-host", c.TemporalHost, "Temporal frontend address, empty disables reconciliation")
	fs.StringVar(&c.ReconcileSchedule, "reconcile-schedule", c.ReconcileSchedule, "cron schedule of the reconciliation workflow")
	fs.StringVar(&c.OtelEndpoint, "otel-endpoint", c.OtelEndpoint, "OTLP/HTTP endpoint, empty disables trace export")
	fs.StringVar(&c.OtelAuthHeader, "otel-auth-header", c.OtelAuthHeader, "Authorization header sent to the OTLP endpoint")
	fs.BoolVar(&c.OtelInsecure, "otel-insecure", c.OtelInsecure, "export traces over plain HTTP")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level")
	fs.BoolVar(&c.LogDevelopment, "log-development", c.LogDevelopment, "human-friendly development logging")
}

func (c *Config) Validate() error {
	var errs []error

	switch c.StoreBackend {
	case BackendMemory, BackendRedis:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("database url is required for the postgres backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store backend %q", c.StoreBackend))
	}

	if c.Port == "" {
		errs = append(errs, errors.New("port cannot be empty"))
	}
	if c.MinDepartureLeadTime <= 0 {
		errs = append(errs, errors.New("minimum departure lead time must be positive"))
	}
	if c.BookingCutoffWindow <= 0 {
		errs = append(errs, errors.New("booking cutoff window must be positive"))
	}
	if c.BookingCutoffWindow >= c.MinDepartureLeadTime {
		errs = append(errs, fmt.Errorf("booking cutoff window %s must be shorter than the minimum departure lead time %s",
			c.BookingCutoffWindow, c.MinDepartureLeadTime))
	}
	if c.IdentityHeader == "" {
		errs = append(errs, errors.New("identity header cannot be empty"))
	}
	if c.RateLimitRPS < 0 {
		errs = append(errs, errors.New("rate limit rps cannot be negative"))
	}
	if c.RateLimitRPS > 0 && c.RateLimitBurst < 1 {
		errs = append(errs, errors.New("rate limit burst must be at least 1"))
	}
	if c.RateLimitRPS > 0 && c.RateLimitMaxCallers < 1 {
		errs = append(errs, errors.New("rate limit max callers must be at least 1"))
	}
	for caller, o := range c.RateLimitOverrides {
		if o.RPS <= 0 || o.Burst < 1 {
			errs = append(errs, fmt.Errorf("rate limit override for %q needs a positive rps and a burst of at least 1", caller))
		}
	}
	if c.TemporalHost != "" && c.ReconcileSchedule == "" {
		errs = append(errs, errors.New("reconcile schedule is required when temporal is enabled"))
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
