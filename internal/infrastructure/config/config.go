package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Log       LogConfig
	Remote    RemoteConfig
	Pricing   PricingConfig
	Checkout  CheckoutConfig
	Redis     RedisConfig
	Auth      AuthConfig
	HTTP      HTTPConfig
	Telemetry TelemetryConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// RemoteConfig holds settings for the storefront backend and region directory
type RemoteConfig struct {
	BaseURL        string // storefront backend; empty makes every call fail with RemoteError
	RegionBaseURL  string
	Timeout        time.Duration
	MaxRetries     int
	RetryDelay     time.Duration
	MaxDelay       time.Duration
	RateLimitQPS   float64 // 0 disables client-side throttling
	RateLimitBurst int
	UserAgent      string
}

// PricingConfig holds the placeholder order adjustments
type PricingConfig struct {
	Discount decimal.Decimal
	Shipping decimal.Decimal
	Tax      decimal.Decimal
}

// CheckoutConfig holds checkout session settings
type CheckoutConfig struct {
	PreviewLimit   int
	HandoffTTL     time.Duration
	SessionIdleTTL time.Duration // sessions unused this long are evicted
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// AuthConfig holds bearer token settings
type AuthConfig struct {
	Secret string // empty: tokens are inspected without signature verification
	Issuer string
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	MaxBodySize      int64
	CORSAllowOrigins []string
	CORSAllowMethods []string
	CORSAllowHeaders []string
}

// TelemetryConfig holds OpenTelemetry tracing configuration
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string  // OTLP gRPC endpoint (host:port)
	SamplingRatio     float64 // 0.0 to 1.0
	ServiceName       string
	Insecure          bool
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with STOREFRONT_ prefix (e.g., STOREFRONT_REMOTE_BASE_URL)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("STOREFRONT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Zero is a meaningful adjustment, so these defaults go through viper
	// rather than applyDefaults.
	v.SetDefault("pricing.discount", "2")
	v.SetDefault("pricing.shipping", "2")
	v.SetDefault("pricing.tax", "0")

	pricing, err := loadPricing(v)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Remote: RemoteConfig{
			BaseURL:        v.GetString("remote.base_url"),
			RegionBaseURL:  v.GetString("remote.region_base_url"),
			Timeout:        v.GetDuration("remote.timeout"),
			MaxRetries:     v.GetInt("remote.max_retries"),
			RetryDelay:     v.GetDuration("remote.retry_delay"),
			MaxDelay:       v.GetDuration("remote.max_delay"),
			RateLimitQPS:   v.GetFloat64("remote.rate_limit_qps"),
			RateLimitBurst: v.GetInt("remote.rate_limit_burst"),
			UserAgent:      v.GetString("remote.user_agent"),
		},
		Pricing: pricing,
		Checkout: CheckoutConfig{
			PreviewLimit:   v.GetInt("checkout.preview_limit"),
			HandoffTTL:     v.GetDuration("checkout.handoff_ttl"),
			SessionIdleTTL: v.GetDuration("checkout.session_idle_ttl"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Auth: AuthConfig{
			Secret: v.GetString("auth.secret"),
			Issuer: v.GetString("auth.issuer"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			MaxBodySize:      v.GetInt64("http.max_body_size"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods: v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders: v.GetStringSlice("http.cors_allow_headers"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadPricing(v *viper.Viper) (PricingConfig, error) {
	var out PricingConfig
	for _, f := range []struct {
		key string
		dst *decimal.Decimal
	}{
		{"pricing.discount", &out.Discount},
		{"pricing.shipping", &out.Shipping},
		{"pricing.tax", &out.Tax},
	} {
		d, err := decimal.NewFromString(strings.TrimSpace(v.GetString(f.key)))
		if err != nil {
			return PricingConfig{}, fmt.Errorf("%s must be a decimal number: %w", f.key, err)
		}
		*f.dst = d
	}
	return out, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "storefront-checkout"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.Remote.RegionBaseURL == "" {
		cfg.Remote.RegionBaseURL = "https://provinces.open-api.vn/api"
	}
	if cfg.Remote.Timeout == 0 {
		cfg.Remote.Timeout = 10 * time.Second
	}
	if cfg.Remote.MaxRetries == 0 {
		cfg.Remote.MaxRetries = 2
	}
	if cfg.Remote.RetryDelay == 0 {
		cfg.Remote.RetryDelay = 200 * time.Millisecond
	}
	if cfg.Remote.MaxDelay == 0 {
		cfg.Remote.MaxDelay = 2 * time.Second
	}
	if cfg.Remote.RateLimitBurst == 0 {
		cfg.Remote.RateLimitBurst = 10
	}
	if cfg.Remote.UserAgent == "" {
		cfg.Remote.UserAgent = "storefront-checkout/1.0"
	}
	if cfg.Checkout.PreviewLimit == 0 {
		cfg.Checkout.PreviewLimit = 4
	}
	if cfg.Checkout.HandoffTTL == 0 {
		cfg.Checkout.HandoffTTL = 30 * time.Minute
	}
	if cfg.Checkout.SessionIdleTTL == 0 {
		cfg.Checkout.SessionIdleTTL = time.Hour
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20
	}
	// An empty origin list allows no cross-origin requests.
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID"}
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	// A missing base URL is reported per call, not here.
	if c.Remote.BaseURL != "" {
		if err := validateURL("remote.base_url", c.Remote.BaseURL); err != nil {
			return err
		}
	}
	if err := validateURL("remote.region_base_url", c.Remote.RegionBaseURL); err != nil {
		return err
	}
	if c.Remote.MaxRetries < 0 {
		return fmt.Errorf("remote.max_retries cannot be negative")
	}
	if c.Remote.RateLimitQPS < 0 {
		return fmt.Errorf("remote.rate_limit_qps cannot be negative")
	}
	if c.Pricing.Discount.IsNegative() || c.Pricing.Shipping.IsNegative() || c.Pricing.Tax.IsNegative() {
		return fmt.Errorf("pricing adjustments cannot be negative")
	}
	if c.Telemetry.SamplingRatio < 0 || c.Telemetry.SamplingRatio > 1 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0 and 1")
	}
	if c.Checkout.PreviewLimit < 0 {
		return fmt.Errorf("checkout.preview_limit cannot be negative")
	}

	if c.App.Env == "production" {
		if c.Auth.Secret == "" {
			return fmt.Errorf("auth.secret is required in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
	}
	return nil
}

func validateURL(key, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s must be an absolute URL, got %q", key, raw)
	}
	return nil
}
