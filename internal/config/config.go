// Package config provides centralized configuration management for the
// application. It loads settings from environment variables with sensible
// defaults and validates everything on startup to fail fast on
// misconfiguration.
package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server  ServerConfig
	Store   StoreConfig
	Blob    BlobConfig
	Auth    AuthConfig
	Rate    RateLimitConfig
	Logging LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading a request (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing a response (default: 30s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"30s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout bounds graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout per request (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`

	// TrustedProxies is a comma-separated list of proxy CIDRs whose
	// X-Real-IP/X-Forwarded-For headers are honored.
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// MaxUploadBytes caps multipart request bodies, logo included (default: 5MB)
	MaxUploadBytes int64 `env:"SERVER_MAX_UPLOAD_BYTES" default:"5242880"`
}

// StoreConfig selects and configures the document store driver.
type StoreConfig struct {
	// Driver is one of: postgres, sqlite, memory (default: postgres)
	Driver string `env:"STORE_DRIVER" default:"postgres"`

	// URL is the PostgreSQL connection string (required for the postgres
	// driver). Supports both STORE_URL and DATABASE_URL for compatibility.
	URL string `env:"STORE_URL" envAlt:"DATABASE_URL"`

	// Path is the database file for the sqlite driver (default: serviapp.db)
	Path string `env:"STORE_SQLITE_PATH" default:"serviapp.db"`
}

// BlobConfig selects and configures logo blob storage.
type BlobConfig struct {
	// Driver is one of: s3, fs, memory (default: fs)
	Driver string `env:"BLOB_DRIVER" default:"fs"`

	// Bucket is the S3 bucket name (required for the s3 driver).
	Bucket string `env:"BLOB_S3_BUCKET"`

	// Region is the S3 region (default: us-east-1)
	Region string `env:"BLOB_S3_REGION" default:"us-east-1"`

	// Endpoint enables S3-compatible backends such as MinIO.
	Endpoint string `env:"BLOB_S3_ENDPOINT"`

	// PathStyle switches to path-style addressing (default: false)
	PathStyle bool `env:"BLOB_S3_PATH_STYLE" default:"false"`

	// AccessKeyID/SecretAccessKey override the default credentials chain.
	AccessKeyID     string `env:"BLOB_S3_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"BLOB_S3_SECRET_ACCESS_KEY"`

	// PublicBaseURL overrides the constructed public object URL prefix.
	PublicBaseURL string `env:"BLOB_PUBLIC_BASE_URL"`

	// Dir is the local directory for the fs driver (default: blobs)
	Dir string `env:"BLOB_FS_DIR" default:"blobs"`
}

// AuthConfig holds identity service settings.
type AuthConfig struct {
	// Secret signs session tokens (required).
	Secret string `env:"AUTH_SECRET" required:"true"`

	// TokenTTL bounds a session's absolute lifetime (default: 24h)
	TokenTTL time.Duration `env:"AUTH_TOKEN_TTL" default:"24h"`

	// IdleTimeout signs sessions out after inactivity (default: 10m, 0 disables)
	IdleTimeout time.Duration `env:"AUTH_IDLE_TIMEOUT" default:"10m"`

	// AdminEmails seed the stored admin role flag at sign-up.
	AdminEmails []string `env:"ADMIN_EMAILS"`
}

// RateLimitConfig holds per-IP rate limiting settings.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the per-IP limit (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// TrustedProxyNets parses TrustedProxies into networks. Entries may be CIDRs
// or bare IPs; a bare IP becomes a single-host network. The first bad entry
// fails the whole parse, so a typo cannot silently shrink the trusted set.
func (c *ServerConfig) TrustedProxyNets() ([]*net.IPNet, error) {
	var nets []*net.IPNet
	for _, entry := range c.TrustedProxies {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if _, network, err := net.ParseCIDR(entry); err == nil {
			nets = append(nets, network)
			continue
		}
		ip := net.ParseIP(entry)
		if ip == nil {
			return nil, fmt.Errorf("trusted proxy %q is neither a CIDR nor an IP", entry)
		}
		bits := 8 * net.IPv6len
		if ip.To4() != nil {
			bits = 8 * net.IPv4len
		}
		nets = append(nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
	}
	return nets, nil
}
