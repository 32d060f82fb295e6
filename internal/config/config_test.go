package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// unsetEnv removes key for the duration of the test. envconfig treats a set
// but empty variable as a value, so defaults only apply when it is absent.
func unsetEnv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	if err := os.Unsetenv(key); err != nil {
		t.Fatal(err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"STORE_BACKEND", "NOTIFY_TRANSPORT", "STORE_TIMEOUT", "APP_TIMEZONE", "NOTIFY_DRAIN_TIMEOUT"} {
		unsetEnv(t, k)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StoreBackend != StoreMemory {
		t.Fatalf("expected memory backend, got %s", cfg.StoreBackend)
	}
	if cfg.NotifyTransport != TransportLog {
		t.Fatalf("expected log transport, got %s", cfg.NotifyTransport)
	}
	if cfg.StoreTimeout != 3*time.Second {
		t.Fatalf("unexpected store timeout %s", cfg.StoreTimeout)
	}
	if cfg.NotifyDrain != 10*time.Second {
		t.Fatalf("unexpected drain timeout %s", cfg.NotifyDrain)
	}
	if cfg.Location().String() != "America/Detroit" && cfg.Location() != time.UTC {
		t.Fatalf("unexpected location %s", cfg.Location())
	}
}

func TestLoad_SQSRequiresQueueURL(t *testing.T) {
	t.Setenv("NOTIFY_TRANSPORT", "SQS")
	t.Setenv("NOTIFY_QUEUE_URL", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing queue url")
	}

	t.Setenv("NOTIFY_QUEUE_URL", "https://sqs.local/alerts")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.NotifyTransport != TransportSQS {
		t.Fatalf("transport should be lower-cased, got %s", cfg.NotifyTransport)
	}
}

func TestLoad_UnknownBackend(t *testing.T) {
	t.Setenv("STORE_BACKEND", "postgres")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestReadPackagesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "packages.json")
	if err := os.WriteFile(path, []byte(`{"x":{"label":"X","priceCents":1}}`), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg := &Config{PackagesFile: path}
	b, err := cfg.ReadPackagesFile()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(b) == 0 {
		t.Fatal("expected file contents")
	}

	empty := &Config{}
	if b, err := empty.ReadPackagesFile(); err != nil || b != nil {
		t.Fatalf("expected nil, nil when unset; got %v, %v", b, err)
	}
}

func TestLoad_RejectsNonPositiveIntervals(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
	}{
		{"metrics zero", map[string]string{"METRICS_ENABLED": "true", "METRICS_FLUSH_INTERVAL": "0s"}},
		{"metrics negative", map[string]string{"METRICS_ENABLED": "true", "METRICS_FLUSH_INTERVAL": "-5s"}},
		{"refill zero", map[string]string{"RATE_LIMIT_ENABLED": "true", "RATE_LIMIT_REFILL_EVERY": "0s"}},
		{"drain zero", map[string]string{"NOTIFY_DRAIN_TIMEOUT": "0s"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatal("expected error for non-positive interval")
			}
		})
	}
}

func TestLoad_IntervalsIgnoredWhenDisabled(t *testing.T) {
	unsetEnv(t, "STORE_BACKEND")
	unsetEnv(t, "NOTIFY_TRANSPORT")
	t.Setenv("METRICS_ENABLED", "false")
	t.Setenv("METRICS_FLUSH_INTERVAL", "0s")
	t.Setenv("RATE_LIMIT_ENABLED", "false")
	t.Setenv("RATE_LIMIT_REFILL_EVERY", "0s")
	if _, err := Load(); err != nil {
		t.Fatalf("disabled features must not be validated: %v", err)
	}
}
