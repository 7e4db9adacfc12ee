package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Log       LogConfig       `mapstructure:"log"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Pricing   PricingConfig   `mapstructure:"pricing"`
	Display   DisplayConfig   `mapstructure:"display"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name    string `mapstructure:"name" validate:"required"`
	Env     string `mapstructure:"env" validate:"required"`
	Version string `mapstructure:"version"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
	Output string `mapstructure:"output"` // stdout, stderr, or file path
}

// SchedulerConfig holds the promotion timer settings
type SchedulerConfig struct {
	DiscountEnabled           bool          `mapstructure:"discount_enabled"`
	DiscountInitialDelayMax   time.Duration `mapstructure:"discount_initial_delay_max" validate:"gte=0"`
	DiscountInterval          time.Duration `mapstructure:"discount_interval" validate:"gt=0"`
	DiscountDuration          time.Duration `mapstructure:"discount_duration" validate:"gt=0"`
	SuggestionEnabled         bool          `mapstructure:"suggestion_enabled"`
	SuggestionInitialDelayMax time.Duration `mapstructure:"suggestion_initial_delay_max" validate:"gte=0"`
	SuggestionInterval        time.Duration `mapstructure:"suggestion_interval" validate:"gt=0"`
	SuggestionDuration        time.Duration `mapstructure:"suggestion_duration" validate:"gt=0"`
	ExpiryCheckInterval       time.Duration `mapstructure:"expiry_check_interval" validate:"gt=0"`
	StopTimeout               time.Duration `mapstructure:"stop_timeout" validate:"gt=0"`
}

// PricingConfig holds promotional rates, in percent
type PricingConfig struct {
	Currency       string `mapstructure:"currency" validate:"oneof=KRW USD EUR JPY"`
	DiscountRate   int    `mapstructure:"discount_rate" validate:"gte=0,lte=100"`
	SuggestionRate int    `mapstructure:"suggestion_rate" validate:"gte=0,lte=100"`
	TuesdayRate    int    `mapstructure:"tuesday_rate" validate:"gte=0,lte=100"`
}

// DisplayConfig holds text rendering settings
type DisplayConfig struct {
	Locale string `mapstructure:"locale" validate:"required"`
}

// CatalogConfig holds the products the catalog is seeded with
type CatalogConfig struct {
	Products []ProductSeed `mapstructure:"products" validate:"required,min=1,dive"`
}

// ProductSeed is one catalog entry
type ProductSeed struct {
	ID    string  `mapstructure:"id" validate:"required,max=50"`
	Name  string  `mapstructure:"name" validate:"required,max=200"`
	Price float64 `mapstructure:"price" validate:"gte=0"`
	Stock int     `mapstructure:"stock" validate:"gte=0"`
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	MetricsEnabled    bool          `mapstructure:"metrics_enabled"`
	TracingEnabled    bool          `mapstructure:"tracing_enabled"`
	LogsEnabled       bool          `mapstructure:"logs_enabled"`
	CollectorEndpoint string        `mapstructure:"collector_endpoint"`
	ExportInterval    time.Duration `mapstructure:"export_interval" validate:"gte=0"`
	SamplingRatio     float64       `mapstructure:"sampling_ratio" validate:"gte=0,lte=1"`
	ServiceName       string        `mapstructure:"service_name"`
	Insecure          bool          `mapstructure:"insecure"`
}

// Enabled reports whether any signal is exported
func (t TelemetryConfig) Enabled() bool {
	return t.MetricsEnabled || t.TracingEnabled || t.LogsEnabled
}

// Load loads configuration from storefront.toml and environment variables.
// Priority (highest to lowest):
// 1. Environment variables with STOREFRONT_ prefix (e.g., STOREFRONT_PRICING_DISCOUNT_RATE)
// 2. storefront.toml in ., ./config or /etc/storefront
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("storefront")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/storefront")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return load(v)
}

// LoadFile loads configuration from an explicit file plus environment variables
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix("STOREFRONT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Booleans cannot be told apart from "unset" after reading, so they get
	// viper defaults instead of applyDefaults.
	v.SetDefault("scheduler.discount_enabled", true)
	v.SetDefault("scheduler.suggestion_enabled", true)
	v.SetDefault("telemetry.insecure", true)

	cfg := &Config{
		App: AppConfig{
			Name:    v.GetString("app.name"),
			Env:     v.GetString("app.env"),
			Version: v.GetString("app.version"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Scheduler: SchedulerConfig{
			DiscountEnabled:           v.GetBool("scheduler.discount_enabled"),
			DiscountInitialDelayMax:   v.GetDuration("scheduler.discount_initial_delay_max"),
			DiscountInterval:          v.GetDuration("scheduler.discount_interval"),
			DiscountDuration:          v.GetDuration("scheduler.discount_duration"),
			SuggestionEnabled:         v.GetBool("scheduler.suggestion_enabled"),
			SuggestionInitialDelayMax: v.GetDuration("scheduler.suggestion_initial_delay_max"),
			SuggestionInterval:        v.GetDuration("scheduler.suggestion_interval"),
			SuggestionDuration:        v.GetDuration("scheduler.suggestion_duration"),
			ExpiryCheckInterval:       v.GetDuration("scheduler.expiry_check_interval"),
			StopTimeout:               v.GetDuration("scheduler.stop_timeout"),
		},
		Pricing: PricingConfig{
			Currency:       v.GetString("pricing.currency"),
			DiscountRate:   v.GetInt("pricing.discount_rate"),
			SuggestionRate: v.GetInt("pricing.suggestion_rate"),
			TuesdayRate:    v.GetInt("pricing.tuesday_rate"),
		},
		Display: DisplayConfig{
			Locale: v.GetString("display.locale"),
		},
		Telemetry: TelemetryConfig{
			MetricsEnabled:    v.GetBool("telemetry.metrics_enabled"),
			TracingEnabled:    v.GetBool("telemetry.tracing_enabled"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			ExportInterval:    v.GetDuration("telemetry.export_interval"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
		},
	}

	if err := v.UnmarshalKey("catalog.products", &cfg.Catalog.Products); err != nil {
		return nil, fmt.Errorf("error decoding catalog.products: %w", err)
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills zero values. A zero rate means the default rate, so a
// promotion is turned off by disabling its process.
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "storefront-widget"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
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

	s := &cfg.Scheduler
	if s.DiscountInitialDelayMax == 0 {
		s.DiscountInitialDelayMax = 10 * time.Second
	}
	if s.DiscountInterval == 0 {
		s.DiscountInterval = 30 * time.Second
	}
	if s.DiscountDuration == 0 {
		s.DiscountDuration = 30 * time.Second
	}
	if s.SuggestionInitialDelayMax == 0 {
		s.SuggestionInitialDelayMax = 20 * time.Second
	}
	if s.SuggestionInterval == 0 {
		s.SuggestionInterval = 60 * time.Second
	}
	if s.SuggestionDuration == 0 {
		s.SuggestionDuration = 60 * time.Second
	}
	if s.ExpiryCheckInterval == 0 {
		s.ExpiryCheckInterval = time.Second
	}
	if s.StopTimeout == 0 {
		s.StopTimeout = 5 * time.Second
	}

	if cfg.Pricing.Currency == "" {
		cfg.Pricing.Currency = "KRW"
	}
	if cfg.Pricing.DiscountRate == 0 {
		cfg.Pricing.DiscountRate = 20
	}
	if cfg.Pricing.SuggestionRate == 0 {
		cfg.Pricing.SuggestionRate = 5
	}
	if cfg.Pricing.TuesdayRate == 0 {
		cfg.Pricing.TuesdayRate = 10
	}

	if cfg.Display.Locale == "" {
		cfg.Display.Locale = "ko-KR"
	}
	if len(cfg.Catalog.Products) == 0 {
		cfg.Catalog.Products = DefaultProducts()
	}

	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.ExportInterval == 0 {
		cfg.Telemetry.ExportInterval = 60 * time.Second
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
}

// DefaultProducts is the catalog used when none is configured
func DefaultProducts() []ProductSeed {
	return []ProductSeed{
		{ID: "p1", Name: "Keyboard", Price: 10000, Stock: 50},
		{ID: "p2", Name: "Mouse", Price: 20000, Stock: 30},
		{ID: "p3", Name: "Monitor arm", Price: 30000, Stock: 20},
		{ID: "p4", Name: "Laptop pouch", Price: 15000, Stock: 0},
		{ID: "p5", Name: "Lo-Fi speaker", Price: 25000, Stock: 10},
	}
}

func (c *Config) validate() error {
	if err := newValidator().Struct(c); err != nil {
		return formatValidationErrors(err)
	}

	s := c.Scheduler
	if s.DiscountEnabled && s.SuggestionEnabled && s.SuggestionInterval <= s.DiscountInterval {
		return fmt.Errorf("scheduler.suggestion_interval (%s) must exceed scheduler.discount_interval (%s)",
			s.SuggestionInterval, s.DiscountInterval)
	}

	seen := make(map[string]struct{}, len(c.Catalog.Products))
	for _, p := range c.Catalog.Products {
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("catalog.products: duplicate product id %q", p.ID)
		}
		seen[p.ID] = struct{}{}
	}

	if c.Telemetry.Enabled() && c.Telemetry.CollectorEndpoint == "" {
		return fmt.Errorf("telemetry.collector_endpoint is required when telemetry is enabled")
	}
	return nil
}

// newValidator reports fields by their config key rather than the Go name
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func formatValidationErrors(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	msgs := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		msgs = append(msgs, fmt.Sprintf("%s %s", configKey(e.Namespace()), validationMessage(e)))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

// configKey turns "Config.pricing.discount_rate" into "pricing.discount_rate"
func configKey(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func validationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of [" + e.Param() + "]"
	case "gt":
		return "must be greater than " + e.Param()
	case "gte":
		return "must be at least " + e.Param()
	case "lte":
		return "must be at most " + e.Param()
	case "min":
		return "must have at least " + e.Param() + " entries"
	case "max":
		return "must be at most " + e.Param() + " characters"
	default:
		return "failed " + e.Tag() + " validation"
	}
}
