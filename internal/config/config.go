package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port        int
	MetricsPort int
	KeypairPath string
	GinMode     string
	LogLevel    string
	Environment string

	// BlockingWorkers bounds the ledger calls in flight at once
	BlockingWorkers int

	// NATSUrl is optional. Transfer events are not published when empty.
	NATSUrl string

	// OTLPEndpoint is optional. Spans are not exported when empty.
	OTLPEndpoint string

	TransferRateLimit float64
	TransferRateBurst int
	CORSOrigins       []string
}

// Load reads an optional .env file, then parses flags from args using the
// environment for defaults. Variables already set in the environment win
// over the .env file.
func Load(envFile string, args []string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	cfg := &Config{}
	var origins string

	flags := flag.NewFlagSet("sol-transfer", flag.ContinueOnError)
	flags.IntVar(&cfg.Port, "port", getEnvInt("PORT", 8080), "HTTP server port")
	flags.IntVar(&cfg.MetricsPort, "metrics-port", getEnvInt("METRICS_PORT", 9090), "Metrics server port")
	flags.StringVar(&cfg.KeypairPath, "keypair", getEnv("KEYPAIR_PATH", ""), "Path to the signer keypair JSON file")
	flags.StringVar(&cfg.GinMode, "gin-mode", getEnv("GIN_MODE", "release"), "Gin mode (debug/release)")
	flags.StringVar(&cfg.LogLevel, "log-level", getEnv("LOG_LEVEL", "info"), "Log level (debug/info/warn/error)")
	flags.StringVar(&cfg.Environment, "env", getEnv("ENVIRONMENT", "development"), "Deployment environment name")
	flags.IntVar(&cfg.BlockingWorkers, "blocking-workers", getEnvInt("BLOCKING_WORKERS", 64), "Maximum concurrent ledger calls")
	flags.StringVar(&cfg.NATSUrl, "nats-url", getEnv("NATS_URL", ""), "NATS server URL for transfer events")
	flags.StringVar(&cfg.OTLPEndpoint, "otlp-endpoint", getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""), "OTLP gRPC collector address")
	flags.Float64Var(&cfg.TransferRateLimit, "transfer-rate", getEnvFloat("TRANSFER_RATE_LIMIT", 5), "Transfers per second per client, 0 disables")
	flags.IntVar(&cfg.TransferRateBurst, "transfer-burst", getEnvInt("TRANSFER_RATE_BURST", 10), "Transfer burst per client")
	flags.StringVar(&origins, "cors-origins", getEnv("CORS_ALLOWED_ORIGINS", "*"), "Comma separated allowed CORS origins")

	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	cfg.CORSOrigins = splitList(origins)

	return cfg, nil
}

// Validate reports the first configuration problem that would stop the service
func (c *Config) Validate() error {
	if strings.TrimSpace(c.KeypairPath) == "" {
		return errors.New("KEYPAIR_PATH must be set")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.MetricsPort <= 0 || c.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port %d", c.MetricsPort)
	}
	if c.MetricsPort == c.Port {
		return fmt.Errorf("metrics port must differ from HTTP port %d", c.Port)
	}
	if c.BlockingWorkers <= 0 {
		return fmt.Errorf("BLOCKING_WORKERS must be positive, got %d", c.BlockingWorkers)
	}
	if c.TransferRateLimit < 0 || c.TransferRateBurst < 0 {
		return errors.New("transfer rate limit and burst must not be negative")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if v, err := strconv.Atoi(value); err == nil {
			return v
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if v, err := strconv.ParseFloat(value, 64); err == nil {
			return v
		}
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
