package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("HTTP_ADDR", "9000")

	cfg := Load()
	assert.Equal(t, ":9000", cfg.HTTPAddr)
	assert.Equal(t, ":8090", cfg.ObsHTTPAddr)
	assert.Equal(t, BackendMemory, cfg.StoreBackend)
	assert.Equal(t, 60, cfg.RateLimitRequests)
	assert.Equal(t, 15*time.Second, cfg.RequestTimeout)
	assert.False(t, cfg.TracingEnabled)
}

func TestLoadRelay(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("QUEUE_URL", "http://queue:8080/")
	t.Setenv("POLL_INTERVAL", "250ms")
	t.Setenv("SEND_SUCCESS_RATE", "1")
	t.Setenv("AUTO_DELIVER", "true")
	t.Setenv("HISTORY_BACKEND", "")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("KAFKA_GROUP", "")

	cfg := LoadRelay()
	assert.Equal(t, "http://queue:8080", cfg.QueueURL)
	assert.Equal(t, 250*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, 1.0, cfg.SendSuccessRate)
	assert.True(t, cfg.AutoDeliver)
	assert.Equal(t, 2*time.Second, cfg.ScanDelay)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, "beach-relay", cfg.KafkaGroup)
}

func TestLoadRelay_ZeroSuccessRateIsKept(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("SEND_SUCCESS_RATE", "0")

	assert.Equal(t, 0.0, LoadRelay().SendSuccessRate)
}

func TestDotEnvDoesNotOverrideEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("SERVICE_NAME=from-file\nKAFKA_TOPIC=file-topic\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ENV_FILE", path)
	t.Setenv("SERVICE_NAME", "from-env")
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("KAFKA_TOPIC", "")
	os.Unsetenv("KAFKA_TOPIC")

	cfg := Load()
	assert.Equal(t, "from-env", cfg.ServiceName)
	assert.Equal(t, "file-topic", cfg.KafkaTopic)
}

func TestFixPort(t *testing.T) {
	assert.Equal(t, ":8080", fixPort("8080"))
	assert.Equal(t, "0.0.0.0:8080", fixPort("0.0.0.0:8080"))
	assert.Equal(t, "", fixPort(""))
}
