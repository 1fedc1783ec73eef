package config

import (
	"github.com/kelseyhightower/envconfig"
)

// Config holds every runtime setting the API reads from the environment.
// Values are loaded once at startup; nothing else in the codebase touches
// os.Getenv directly.
type Config struct {
	Port        int    `envconfig:"PORT" default:"8080"`
	FrontendURL string `envconfig:"FRONTEND_URL" default:"http://localhost:5173"`

	DBDSN     string `envconfig:"DB_DSN" required:"true"`
	RedisAddr string `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`

	JWTSecret string `envconfig:"JWT_SECRET" required:"true"`

	Newebpay NewebpayConfig
}

// NewebpayConfig carries the merchant credentials and environment selector
// for the NewebPay MPG gateway. Environment variables are prefixed with
// NEWEBPAY_ (e.g. NEWEBPAY_MERCHANT_ID).
type NewebpayConfig struct {
	Environment string `envconfig:"NEWEBPAY_ENVIRONMENT" default:"test"`
	MerchantID  string `envconfig:"NEWEBPAY_MERCHANT_ID" required:"true"`
	HashKey     string `envconfig:"NEWEBPAY_HASH_KEY" required:"true"`
	HashIV      string `envconfig:"NEWEBPAY_HASH_IV" required:"true"`

	// NotifyURL is the publicly reachable callback the gateway POSTs to.
	// ReturnURL is where the payer's browser lands after the MPG page.
	NotifyURL string `envconfig:"NEWEBPAY_NOTIFY_URL" required:"true"`
	ReturnURL string `envconfig:"NEWEBPAY_RETURN_URL" required:"true"`
}

// Load parses the environment into a Config.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
