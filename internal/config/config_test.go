package config

import (
	"strings"
	"testing"
	"time"
)

// setRequired sets the minimum environment for a loadable config.
func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("AUTH_SECRET", "test-secret")
	t.Setenv("STORE_URL", "postgres://localhost/serviapp")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, "0.0.0.0")
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 8080)
	}
	if cfg.Server.MaxUploadBytes != 5242880 {
		t.Errorf("Server.MaxUploadBytes = %d, want %d", cfg.Server.MaxUploadBytes, 5242880)
	}
	if cfg.Store.Driver != "postgres" {
		t.Errorf("Store.Driver = %q, want postgres", cfg.Store.Driver)
	}
	if cfg.Blob.Driver != "fs" {
		t.Errorf("Blob.Driver = %q, want fs", cfg.Blob.Driver)
	}
	if cfg.Auth.TokenTTL != 24*time.Hour {
		t.Errorf("Auth.TokenTTL = %v, want 24h", cfg.Auth.TokenTTL)
	}
	if cfg.Auth.IdleTimeout != 10*time.Minute {
		t.Errorf("Auth.IdleTimeout = %v, want 10m", cfg.Auth.IdleTimeout)
	}
	if cfg.Rate.RequestsPerMinute != 100 {
		t.Errorf("Rate.RequestsPerMinute = %d, want 100", cfg.Rate.RequestsPerMinute)
	}
}

func TestLoad_OverrideDefaults(t *testing.T) {
	setRequired(t)
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("AUTH_IDLE_TIMEOUT", "5m")
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("ADMIN_EMAILS", "chefe@example.com, suporte@example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Auth.IdleTimeout != 5*time.Minute {
		t.Errorf("Auth.IdleTimeout = %v, want 5m", cfg.Auth.IdleTimeout)
	}
	if cfg.Store.Driver != "sqlite" {
		t.Errorf("Store.Driver = %q, want sqlite", cfg.Store.Driver)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	want := []string{"chefe@example.com", "suporte@example.com"}
	if len(cfg.Auth.AdminEmails) != 2 || cfg.Auth.AdminEmails[0] != want[0] || cfg.Auth.AdminEmails[1] != want[1] {
		t.Errorf("Auth.AdminEmails = %v, want %v", cfg.Auth.AdminEmails, want)
	}
}

func TestLoad_AltEnvVar(t *testing.T) {
	t.Setenv("AUTH_SECRET", "test-secret")
	// DATABASE_URL works as the fallback for STORE_URL
	t.Setenv("DATABASE_URL", "postgres://localhost/alttest")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Store.URL != "postgres://localhost/alttest" {
		t.Errorf("Store.URL = %q, want the DATABASE_URL value", cfg.Store.URL)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")
	t.Setenv("STORE_URL", "postgres://localhost/serviapp")

	if _, err := Load(); err == nil {
		t.Error("Load() succeeded without AUTH_SECRET")
	}
}

func TestValidate_Failures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "SERVER_PORT"},
		{"postgres without url", func(c *Config) { c.Store.URL = "" }, "STORE_URL"},
		{"unknown store driver", func(c *Config) { c.Store.Driver = "oracle" }, "STORE_DRIVER"},
		{"s3 without bucket", func(c *Config) { c.Blob.Driver = "s3"; c.Blob.Bucket = "" }, "BLOB_S3_BUCKET"},
		{"unknown blob driver", func(c *Config) { c.Blob.Driver = "ftp" }, "BLOB_DRIVER"},
		{"negative idle timeout", func(c *Config) { c.Auth.IdleTimeout = -time.Second }, "AUTH_IDLE_TIMEOUT"},
		{"bad trusted proxy", func(c *Config) { c.Server.TrustedProxies = []string{"10.0.0.0/8", "nope"} }, "TRUSTED_PROXIES"},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "LOG_LEVEL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}

			tt.mutate(cfg)
			err = cfg.Validate()
			if err == nil {
				t.Fatal("Validate() passed")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestTrustedProxyNets(t *testing.T) {
	sc := ServerConfig{TrustedProxies: []string{"10.0.0.0/8", " 192.0.2.1 ", ""}}
	nets, err := sc.TrustedProxyNets()
	if err != nil {
		t.Fatalf("TrustedProxyNets() error = %v", err)
	}
	if len(nets) != 2 {
		t.Fatalf("len(nets) = %d, want 2", len(nets))
	}
	if got := nets[0].String(); got != "10.0.0.0/8" {
		t.Errorf("nets[0] = %q, want 10.0.0.0/8", got)
	}
	// A bare IP parses as a single-host network.
	if got := nets[1].String(); got != "192.0.2.1/32" {
		t.Errorf("nets[1] = %q, want 192.0.2.1/32", got)
	}

	sc.TrustedProxies = []string{"10.0.0.0/8", "my-proxy"}
	if _, err := sc.TrustedProxyNets(); err == nil {
		t.Error("TrustedProxyNets() accepted a hostname entry")
	}
}

func TestString_MasksSecrets(t *testing.T) {
	setRequired(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	s := cfg.String()
	if strings.Contains(s, "test-secret") {
		t.Error("String() leaks the auth secret")
	}
	if strings.Contains(s, "postgres://localhost/serviapp") {
		t.Error("String() leaks the store URL")
	}
}
