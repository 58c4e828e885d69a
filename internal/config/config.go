package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/yourorg/payment-gateways/internal/circuitbreaker"
	"github.com/yourorg/payment-gateways/internal/payment"
	"github.com/yourorg/payment-gateways/internal/policy"
)

// Config holds the settings of the demo host.
type Config struct {
	// Server
	Port        string
	Environment payment.Environment

	// Gateways
	GatewayTimeout  time.Duration
	DefaultCurrency string
	MockGateways    bool
	CaptureRules    []string

	// Stored plugin settings seeded at startup when non-empty
	HyperPayUserID         string
	HyperPayPassword       string
	HyperPayEntityID       string
	MercadoPagoAccessToken string
	MercadoPagoPublicKey   string
	GatewayCurrencies      string

	// Logging
	LogLevel string
	LogJSON  bool

	// Redis
	EnableRedis   bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// DynamoDB
	EnableDynamo   bool
	DynamoTable    string
	AWSRegion      string
	DynamoEndpoint string
	// Static credentials, mainly for DynamoDB Local
	DynamoAccessKeyID     string
	DynamoSecretAccessKey string

	// Request contracts; the built-in schemas are used when empty
	PaymentContractFile string
	InvoiceContractFile string

	// Tracing
	EnableTracing bool

	// Circuit breaker
	BreakerFailures    int
	BreakerOpenTimeout time.Duration
	BreakerHalfOpen    int
}

// New reads the configuration from the environment, falling back to defaults
// for unset or unparsable values.
func New() *Config {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: payment.ParseEnvironment(getEnv("PAYMENT_ENVIRONMENT", "sandbox")),

		GatewayTimeout:  getEnvAsDuration("GATEWAY_TIMEOUT", payment.DefaultTimeout),
		DefaultCurrency: strings.ToUpper(getEnv("DEFAULT_CURRENCY", "USD")),
		MockGateways:    getEnvAsBool("PAYMENT_GATEWAY_MOCK", false),
		CaptureRules:    splitRules(getEnv("CAPTURE_RULES", "")),

		HyperPayUserID:         getEnv("HYPERPAY_USER_ID", ""),
		HyperPayPassword:       getEnv("HYPERPAY_PASSWORD", ""),
		HyperPayEntityID:       getEnv("HYPERPAY_ENTITY_ID", ""),
		MercadoPagoAccessToken: getEnv("MERCADOPAGO_ACCESS_TOKEN", ""),
		MercadoPagoPublicKey:   getEnv("MERCADOPAGO_PUBLIC_KEY", ""),
		GatewayCurrencies:      getEnv("GATEWAY_CURRENCIES", ""),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogJSON:  getEnvAsBool("LOG_JSON", false),

		EnableRedis:   getEnvAsBool("ENABLE_REDIS", false),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		EnableDynamo:   getEnvAsBool("ENABLE_DYNAMO", false),
		DynamoTable:    getEnv("DYNAMO_EVENTS_TABLE", "payment_events"),
		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		DynamoEndpoint: getEnv("DYNAMO_ENDPOINT", ""),

		DynamoAccessKeyID:     getEnv("DYNAMO_ACCESS_KEY_ID", ""),
		DynamoSecretAccessKey: getEnv("DYNAMO_SECRET_ACCESS_KEY", ""),

		PaymentContractFile: getEnv("PAYMENT_CONTRACT_FILE", ""),
		InvoiceContractFile: getEnv("INVOICE_CONTRACT_FILE", ""),

		EnableTracing: getEnvAsBool("ENABLE_TRACING", false),

		BreakerFailures:    getEnvAsInt("BREAKER_FAILURES", int(circuitbreaker.DefaultSettings().FailureThreshold)),
		BreakerOpenTimeout: getEnvAsDuration("BREAKER_OPEN_TIMEOUT", circuitbreaker.DefaultSettings().OpenTimeout),
		BreakerHalfOpen:    getEnvAsInt("BREAKER_HALF_OPEN_REQUESTS", int(circuitbreaker.DefaultSettings().HalfOpenRequests)),
	}
}

// IsLive reports whether gateways talk to production endpoints.
func (c *Config) IsLive() bool {
	return c.Environment == payment.EnvironmentLive
}

// BreakerSettings converts the breaker knobs, replacing non-positive values
// with the defaults.
func (c *Config) BreakerSettings() circuitbreaker.Settings {
	s := circuitbreaker.DefaultSettings()
	if c.BreakerFailures > 0 {
		s.FailureThreshold = uint32(c.BreakerFailures)
	}
	if c.BreakerOpenTimeout > 0 {
		s.OpenTimeout = c.BreakerOpenTimeout
	}
	if c.BreakerHalfOpen > 0 {
		s.HalfOpenRequests = uint32(c.BreakerHalfOpen)
	}
	return s
}

// CapturePolicy compiles CaptureRules. No rules means the default policy.
func (c *Config) CapturePolicy() (*policy.CapturePolicy, error) {
	if len(c.CaptureRules) == 0 {
		return policy.Default(), nil
	}
	rules := make([]policy.Rule, 0, len(c.CaptureRules))
	for i, expr := range c.CaptureRules {
		rules = append(rules, policy.Rule{ID: fmt.Sprintf("env_%d", i+1), Expression: expr})
	}
	return policy.NewCapturePolicy(rules)
}

// splitRules reads ";" separated expressions; govaluate uses "," itself.
func splitRules(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ";") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(strings.TrimSpace(valueStr))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	switch strings.ToLower(strings.TrimSpace(valueStr)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// getEnvAsDuration accepts Go durations ("15s") or bare seconds ("15").
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := strings.TrimSpace(getEnv(key, ""))
	if valueStr == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(valueStr); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.Atoi(valueStr); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
