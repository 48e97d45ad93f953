package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Zhima-Mochi/artisanmart/internal/infrastructure/config"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	def := config.Default()
	assert.Equal(t, def.Service, cfg.Service)
	assert.Equal(t, def.Storage, cfg.Storage)
	assert.Equal(t, def.Pricing, cfg.Pricing)
	assert.Equal(t, def.Payment, cfg.Payment)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.False(t, cfg.KafkaEnabled())

	pricing, err := cfg.PricingRules()
	require.NoError(t, err)
	assert.Equal(t, "INR", pricing.Currency)
	assert.Equal(t, int64(1000), pricing.FreeShippingThreshold)
	assert.Equal(t, int64(50), pricing.ShippingFee)
	assert.True(t, pricing.TaxRate.Equal(decimal.RequireFromString("0.05")))
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
service:
  http_addr: ":9090"
storage:
  driver: postgres
  postgres_dsn: postgres://localhost/market
pricing:
  tax_rate: "0.18"
seed:
  products:
    - id: p-1
      seller_id: s-1
      name: Clay pot
      unit_price: 100
      stock: 3
      active: true
`), 0o600))

	t.Setenv("MARKETPLACE_SERVICE_LOG_LEVEL", "debug")
	t.Setenv("MARKETPLACE_PAYMENT_RAZORPAY_KEY_ID", "rzp_test")
	t.Setenv("MARKETPLACE_KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Service.HTTPAddr)
	assert.Equal(t, "debug", cfg.Service.LogLevel)
	assert.Equal(t, config.DriverPostgres, cfg.Storage.Driver)
	assert.Equal(t, "rzp_test", cfg.Payment.Razorpay.KeyID)
	assert.True(t, cfg.Payment.COD.Enabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	require.Len(t, cfg.Seed.Products, 1)
	assert.Equal(t, 3, cfg.Seed.Products[0].Stock)

	pricing, err := cfg.PricingRules()
	require.NoError(t, err)
	assert.True(t, pricing.TaxRate.Equal(decimal.RequireFromString("0.18")))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{
			name:   "defaults: ok",
			mutate: func(*config.Config) {},
		},
		{
			name:    "unknown driver: fail",
			mutate:  func(c *config.Config) { c.Storage.Driver = "mongo" },
			wantErr: `storage.driver "mongo" is not supported`,
		},
		{
			name:    "postgres without dsn: fail",
			mutate:  func(c *config.Config) { c.Storage.Driver = config.DriverPostgres },
			wantErr: "storage.postgres_dsn is required",
		},
		{
			name:    "bad currency: fail",
			mutate:  func(c *config.Config) { c.Pricing.Currency = "RUPEES" },
			wantErr: "pricing.currency",
		},
		{
			name:    "bad tax rate: fail",
			mutate:  func(c *config.Config) { c.Pricing.TaxRate = "five percent" },
			wantErr: "pricing.tax_rate",
		},
		{
			name:    "brokers without topic: fail",
			mutate:  func(c *config.Config) { c.Kafka.Brokers = []string{"localhost:9092"}; c.Kafka.AuditTopic = "" },
			wantErr: "kafka.audit_topic",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
