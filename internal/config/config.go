package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Config configures the queue server.
type Config struct {
	HTTPAddr          string
	ObsHTTPAddr       string
	ServiceName       string
	StoreBackend      string
	DatabaseURL       string
	RedisAddr         string
	KafkaBrokers      string
	KafkaTopic        string
	RateLimitRequests int
	RateLimitWindow   string
	RequestTimeout    time.Duration
	DeliverJWTSecret  string
	TracingEnabled    bool
	JaegerURL         string
}

// RelayConfig configures the receiver that drives the simulated display.
type RelayConfig struct {
	QueueURL        string
	ConsoleHTTPAddr string
	ServiceName     string
	PollInterval    time.Duration
	AutoDeliver     bool
	RelayToken      string
	HistoryBackend  string
	RedisAddr       string
	ScanDelay       time.Duration
	ConnectDelay    time.Duration
	SendDelay       time.Duration
	SendSuccessRate float64
	DeviceName      string
	KafkaBrokers    string
	KafkaTopic      string
	KafkaGroup      string
}

func Load() *Config {
	loadDotEnv()

	cfg := &Config{
		HTTPAddr:          fixPort(getEnv("HTTP_ADDR", ":8080")),
		ObsHTTPAddr:       fixPort(getEnv("OBS_HTTP_ADDR", ":8090")),
		ServiceName:       getEnv("SERVICE_NAME", "beach-queue"),
		StoreBackend:      getEnv("STORE_BACKEND", BackendMemory),
		KafkaBrokers:      getEnv("KAFKA_BROKERS", ""),
		KafkaTopic:        getEnv("KAFKA_TOPIC", "beach.messages"),
		RateLimitRequests: getEnvInt("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow:   getEnv("RATE_LIMIT_WINDOW", "1m"),
		RequestTimeout:    getEnvDuration("REQUEST_TIMEOUT", 15*time.Second),
		DeliverJWTSecret:  getEnv("DELIVER_JWT_SECRET", ""),
		TracingEnabled:    getEnvBool("TRACING_ENABLED", false),
		JaegerURL:         getEnv("JAEGER_URL", "http://localhost:14268/api/traces"),
	}

	switch cfg.StoreBackend {
	case BackendPostgres:
		cfg.DatabaseURL = mustEnv("DATABASE_URL")
	case BackendRedis:
		cfg.RedisAddr = mustEnv("REDIS_ADDR")
	case BackendMemory:
	default:
		log.Fatalf("unknown STORE_BACKEND: %s", cfg.StoreBackend)
	}

	return cfg
}

func LoadRelay() *RelayConfig {
	loadDotEnv()

	cfg := &RelayConfig{
		QueueURL:        strings.TrimRight(getEnv("QUEUE_URL", "http://localhost:8080"), "/"),
		ConsoleHTTPAddr: fixPort(getEnv("CONSOLE_HTTP_ADDR", ":8091")),
		ServiceName:     getEnv("SERVICE_NAME", "beach-relay"),
		PollInterval:    getEnvDuration("POLL_INTERVAL", 5*time.Second),
		AutoDeliver:     getEnvBool("AUTO_DELIVER", false),
		RelayToken:      getEnv("RELAY_TOKEN", ""),
		HistoryBackend:  getEnv("HISTORY_BACKEND", BackendMemory),
		ScanDelay:       getEnvDuration("SCAN_DELAY", 2*time.Second),
		ConnectDelay:    getEnvDuration("CONNECT_DELAY", time.Second),
		SendDelay:       getEnvDuration("SEND_DELAY", 500*time.Millisecond),
		SendSuccessRate: getEnvFloat("SEND_SUCCESS_RATE", 0.95),
		DeviceName:      getEnv("DEVICE_NAME", ""),
		KafkaBrokers:    getEnv("KAFKA_BROKERS", ""),
		KafkaTopic:      getEnv("KAFKA_TOPIC", "beach.messages"),
		KafkaGroup:      getEnv("KAFKA_GROUP", "beach-relay"),
	}

	if cfg.HistoryBackend == BackendRedis {
		cfg.RedisAddr = mustEnv("REDIS_ADDR")
	}

	return cfg
}

// loadDotEnv reads .env when present. Real environment variables win.
func loadDotEnv() {
	_ = godotenv.Load(getEnv("ENV_FILE", ".env"))
}

func fixPort(port string) string {
	if port != "" && !strings.Contains(port, ":") {
		return ":" + port
	}
	return port
}

func mustEnv(k string) string {
	v := os.Getenv(k)
	if v == "" {
		log.Fatalf("missing required env: %s", k)
	}
	return v
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v == "true"
}

func getEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvFloat(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return fallback
	}
	return v
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}
