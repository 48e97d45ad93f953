// Package config loads service configuration from an optional YAML file and MARKETPLACE_ env vars.
package config

import (
	"errors"
	"fmt"
	"strings"

	domain "github.com/Zhima-Mochi/artisanmart/internal/domain/order"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"golang.org/x/text/currency"
)

const EnvPrefix = "MARKETPLACE"

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

type Config struct {
	Service ServiceConfig `mapstructure:"service"`
	Storage StorageConfig `mapstructure:"storage"`
	Kafka   KafkaConfig   `mapstructure:"kafka"`
	Pricing PricingConfig `mapstructure:"pricing"`
	Payment PaymentConfig `mapstructure:"payment"`
	Seed    SeedConfig    `mapstructure:"seed"`
}

type ServiceConfig struct {
	Name     string `mapstructure:"name"`
	Env      string `mapstructure:"env"`
	HTTPAddr string `mapstructure:"http_addr"`
	LogLevel string `mapstructure:"log_level"`
}

type StorageConfig struct {
	Driver      string `mapstructure:"driver"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
}

type KafkaConfig struct {
	Brokers    []string `mapstructure:"brokers"`
	AuditTopic string   `mapstructure:"audit_topic"`
}

// PricingConfig keeps the tax rate as a string so it round-trips exactly into a decimal.
type PricingConfig struct {
	Currency              string `mapstructure:"currency"`
	FreeShippingThreshold int64  `mapstructure:"free_shipping_threshold"`
	ShippingFee           int64  `mapstructure:"shipping_fee"`
	TaxRate               string `mapstructure:"tax_rate"`
}

type PaymentConfig struct {
	COD      CODConfig      `mapstructure:"cod"`
	Razorpay RazorpayConfig `mapstructure:"razorpay"`
	Paytm    PaytmConfig    `mapstructure:"paytm"`
}

type CODConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type RazorpayConfig struct {
	KeyID         string `mapstructure:"key_id"`
	KeySecret     string `mapstructure:"key_secret"`
	WebhookSecret string `mapstructure:"webhook_secret"`
	BaseURL       string `mapstructure:"base_url"`
}

type PaytmConfig struct {
	MerchantID  string `mapstructure:"merchant_id"`
	MerchantKey string `mapstructure:"merchant_key"`
	BaseURL     string `mapstructure:"base_url"`
	Website     string `mapstructure:"website"`
}

type SeedConfig struct {
	Products []SeedProduct `mapstructure:"products"`
}

type SeedProduct struct {
	ID        string `mapstructure:"id"`
	SellerID  string `mapstructure:"seller_id"`
	Name      string `mapstructure:"name"`
	UnitPrice int64  `mapstructure:"unit_price"`
	ImageRef  string `mapstructure:"image_ref"`
	Stock     int    `mapstructure:"stock"`
	Active    bool   `mapstructure:"active"`
}

func Default() Config {
	pricing := domain.DefaultPricing()
	return Config{
		Service: ServiceConfig{
			Name:     "artisanmart",
			Env:      "dev",
			HTTPAddr: ":8080",
			LogLevel: "info",
		},
		Storage: StorageConfig{Driver: DriverMemory},
		Kafka:   KafkaConfig{AuditTopic: "order-audit"},
		Pricing: PricingConfig{
			Currency:              pricing.Currency,
			FreeShippingThreshold: pricing.FreeShippingThreshold,
			ShippingFee:           pricing.ShippingFee,
			TaxRate:               pricing.TaxRate.String(),
		},
		Payment: PaymentConfig{COD: CODConfig{Enabled: true}},
	}
}

// Load reads path when non-empty, then applies environment overrides on top of Default.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("v.Unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override keys absent from the file.
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("service.name", d.Service.Name)
	v.SetDefault("service.env", d.Service.Env)
	v.SetDefault("service.http_addr", d.Service.HTTPAddr)
	v.SetDefault("service.log_level", d.Service.LogLevel)

	v.SetDefault("storage.driver", d.Storage.Driver)
	v.SetDefault("storage.postgres_dsn", d.Storage.PostgresDSN)

	v.SetDefault("kafka.brokers", append([]string{}, d.Kafka.Brokers...))
	v.SetDefault("kafka.audit_topic", d.Kafka.AuditTopic)

	v.SetDefault("pricing.currency", d.Pricing.Currency)
	v.SetDefault("pricing.free_shipping_threshold", d.Pricing.FreeShippingThreshold)
	v.SetDefault("pricing.shipping_fee", d.Pricing.ShippingFee)
	v.SetDefault("pricing.tax_rate", d.Pricing.TaxRate)

	v.SetDefault("payment.cod.enabled", d.Payment.COD.Enabled)
	v.SetDefault("payment.razorpay.key_id", d.Payment.Razorpay.KeyID)
	v.SetDefault("payment.razorpay.key_secret", d.Payment.Razorpay.KeySecret)
	v.SetDefault("payment.razorpay.webhook_secret", d.Payment.Razorpay.WebhookSecret)
	v.SetDefault("payment.razorpay.base_url", d.Payment.Razorpay.BaseURL)
	v.SetDefault("payment.paytm.merchant_id", d.Payment.Paytm.MerchantID)
	v.SetDefault("payment.paytm.merchant_key", d.Payment.Paytm.MerchantKey)
	v.SetDefault("payment.paytm.base_url", d.Payment.Paytm.BaseURL)
	v.SetDefault("payment.paytm.website", d.Payment.Paytm.Website)
}

func (c Config) Validate() error {
	var errs []error

	switch c.Storage.Driver {
	case DriverMemory:
	case DriverPostgres:
		if strings.TrimSpace(c.Storage.PostgresDSN) == "" {
			errs = append(errs, errors.New("storage.postgres_dsn is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.driver %q is not supported", c.Storage.Driver))
	}

	if _, err := c.PricingRules(); err != nil {
		errs = append(errs, err)
	}

	if len(c.Kafka.Brokers) > 0 && strings.TrimSpace(c.Kafka.AuditTopic) == "" {
		errs = append(errs, errors.New("kafka.audit_topic is required when brokers are set"))
	}

	for i, p := range c.Seed.Products {
		if p.ID == "" || p.SellerID == "" {
			errs = append(errs, fmt.Errorf("seed.products[%d]: id and seller_id are required", i))
		}
	}

	return errors.Join(errs...)
}

// PricingRules converts the pricing section into checkout rules.
func (c Config) PricingRules() (domain.Pricing, error) {
	unit, err := currency.ParseISO(c.Pricing.Currency)
	if err != nil {
		return domain.Pricing{}, fmt.Errorf("pricing.currency %q: %w", c.Pricing.Currency, err)
	}
	rate, err := decimal.NewFromString(c.Pricing.TaxRate)
	if err != nil {
		return domain.Pricing{}, fmt.Errorf("pricing.tax_rate %q: %w", c.Pricing.TaxRate, err)
	}
	if rate.IsNegative() {
		return domain.Pricing{}, fmt.Errorf("pricing.tax_rate %q must not be negative", c.Pricing.TaxRate)
	}
	if c.Pricing.ShippingFee < 0 || c.Pricing.FreeShippingThreshold < 0 {
		return domain.Pricing{}, errors.New("pricing amounts must not be negative")
	}
	return domain.Pricing{
		Currency:              unit.String(),
		FreeShippingThreshold: c.Pricing.FreeShippingThreshold,
		ShippingFee:           c.Pricing.ShippingFee,
		TaxRate:               rate,
	}, nil
}

// KafkaEnabled reports whether audit entries should also go to Kafka.
func (c Config) KafkaEnabled() bool {
	return len(c.Kafka.Brokers) > 0
}
