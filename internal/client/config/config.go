package config

import (
	"errors"
	"fmt"
	"time"
)

const (
	BackendSQLite = "sqlite"
	BackendS3     = "s3"
)

var ErrInvalidConfig = errors.New("invalid config")

type S3Config struct {
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
}

// Config holds runtime settings for the SnapKeeper client.
type Config struct {
	DBPath          string
	RemoteFolder    string
	SyncInterval    time.Duration
	ThumbnailHeight int
	// BackgroundDrain drains the intent queue on a separate worker
	// instead of inline after each reconcile pass.
	BackgroundDrain bool

	ContentBackend string
	S3             S3Config

	ImportDir     string
	HTTPAddr      string
	DriveEndpoint string

	LogFile  string
	LogLevel string

	CacheSize int
	CacheTTL  time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.DBPath = "snapkeeper.db"
	c.RemoteFolder = "Snapshot"
	c.SyncInterval = 60 * time.Second
	c.ThumbnailHeight = 300
	c.BackgroundDrain = false
	c.ContentBackend = BackendSQLite
	c.S3 = S3Config{Region: "us-east-1"}
	c.ImportDir = ""
	c.HTTPAddr = "127.0.0.1:8765"
	c.DriveEndpoint = ""
	c.LogFile = ""
	c.LogLevel = "info"
	c.CacheSize = 128
	c.CacheTTL = 10 * time.Minute
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// the config file (if given) and command-line flags. Later sources take
// precedence over earlier ones.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseFile(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.ContentBackend {
	case BackendSQLite:
	case BackendS3:
		if c.S3.Bucket == "" {
			return fmt.Errorf("%w: s3 backend needs a bucket", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown content backend %q", ErrInvalidConfig, c.ContentBackend)
	}
	if c.DBPath == "" {
		return fmt.Errorf("%w: db path is empty", ErrInvalidConfig)
	}
	if c.RemoteFolder == "" {
		return fmt.Errorf("%w: remote folder is empty", ErrInvalidConfig)
	}
	if c.SyncInterval <= 0 {
		return fmt.Errorf("%w: sync interval must be positive", ErrInvalidConfig)
	}
	if c.ThumbnailHeight <= 0 {
		return fmt.Errorf("%w: thumbnail height must be positive", ErrInvalidConfig)
	}
	return nil
}

// BridgeURL is the websocket address background processes send change
// events to, or "" when the status server is disabled.
func (c *Config) BridgeURL() string {
	if c.HTTPAddr == "" {
		return ""
	}
	return "ws://" + c.HTTPAddr + "/bridge"
}
