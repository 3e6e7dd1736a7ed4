// Package blob stores logo images and hands back publicly fetchable URLs.
// Drivers: s3 (production, S3 or MinIO), fs (local directory served by the
// web layer), memory (tests).
package blob

import (
	"context"
	"fmt"
	"io"
)

// Driver names accepted by Open.
const (
	DriverS3     = "s3"
	DriverFS     = "fs"
	DriverMemory = "memory"
)

// Store accepts a named byte blob and returns a publicly fetchable URL.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
}

// Config selects and configures a driver.
type Config struct {
	Driver string

	// S3 driver settings.
	Bucket          string
	Region          string
	Endpoint        string // optional, for MinIO-style deployments
	PathStyle       bool
	AccessKeyID     string // optional; default credentials chain otherwise
	SecretAccessKey string
	PublicBaseURL   string // optional override for constructed object URLs

	// FS driver settings.
	Dir     string // local directory for stored blobs
	BaseURL string // URL prefix the web layer serves Dir under
}

// Open constructs the configured driver.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case DriverS3:
		return NewS3(ctx, cfg)
	case DriverFS:
		return NewFS(cfg.Dir, cfg.BaseURL)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %q", cfg.Driver)
	}
}
