package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.opentelemetry.io/otel/attribute"
)

// Config holds all configuration for the service.
type Config struct {
	// Server
	Port     int    `envconfig:"PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Darb Assabil provider
	ProviderBaseURL string        `envconfig:"ASSABIL_BASE_URL" default:"https://v2.sabil.ly/api/darb/assabil"`
	BearerToken     string        `envconfig:"ASSABIL_BEARER_TOKEN"`
	AccessToken     string        `envconfig:"ASSABIL_ACCESS_TOKEN"`
	ServiceID       string        `envconfig:"ASSABIL_SERVICE_ID"`
	RequestTimeout  time.Duration `envconfig:"ASSABIL_REQUEST_TIMEOUT" default:"15s"`
	UseMock         bool          `envconfig:"ASSABIL_USE_MOCK" default:"false"`

	// Submission policy
	PaymentByReceiver     bool   `envconfig:"PAYMENT_DONE_BY_RECEIVER" default:"true"`
	IncludeProductPayment bool   `envconfig:"INCLUDE_PRODUCT_PAYMENT" default:"true"`
	ServedCountry         string `envconfig:"SERVED_COUNTRY" default:"LY"`
	CountryCode           string `envconfig:"SERVED_COUNTRY_CODE" default:"lby"`

	// Webhook
	WebhookSecret          string `envconfig:"WEBHOOK_SECRET"`
	WebhookSignatureHeader string `envconfig:"WEBHOOK_SIGNATURE_HEADER" default:"X-Payload-Signature"`

	// Telemetry
	OTELEnabled  bool   `envconfig:"OTEL_ENABLED" default:"false"`
	OTELEndpoint string `envconfig:"OTEL_ENDPOINT" default:"http://localhost:4318"`
	ServiceName  string `envconfig:"SERVICE_NAME" default:"assabil-sync"`
	Version      string `envconfig:"SERVICE_VERSION" default:"0.0.1"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &cfg, nil
}

// Attributes returns OpenTelemetry attributes for this configuration.
func (c *Config) Attributes() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("service.name", c.ServiceName),
		attribute.String("service.version", c.Version),
		attribute.String("assabil.base_url", c.ProviderBaseURL),
		attribute.String("sync.served_country", c.ServedCountry),
		attribute.Bool("assabil.use_mock", c.UseMock),
	}
}
