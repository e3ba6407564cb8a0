package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dmitrijs2005/snapkeeper/internal/flagx"
	"github.com/dmitrijs2005/snapkeeper/internal/timex"
)

type fileS3Config struct {
	Region    string `json:"region" yaml:"region"`
	Endpoint  string `json:"endpoint" yaml:"endpoint"`
	AccessKey string `json:"access_key" yaml:"access_key"`
	SecretKey string `json:"secret_key" yaml:"secret_key"`
	Bucket    string `json:"bucket" yaml:"bucket"`
	Prefix    string `json:"prefix" yaml:"prefix"`
}

// FileConfig is a DTO used exclusively for config file unmarshalling.
// Intervals are timex.Duration so they can be "60s" or nanoseconds.
type FileConfig struct {
	DBPath          string         `json:"db_path" yaml:"db_path"`
	RemoteFolder    string         `json:"remote_folder" yaml:"remote_folder"`
	SyncInterval    timex.Duration `json:"sync_interval" yaml:"sync_interval"`
	ThumbnailHeight int            `json:"thumbnail_height" yaml:"thumbnail_height"`
	BackgroundDrain bool           `json:"background_drain" yaml:"background_drain"`
	ContentBackend  string         `json:"content_backend" yaml:"content_backend"`
	S3              fileS3Config   `json:"s3" yaml:"s3"`
	ImportDir       string         `json:"import_dir" yaml:"import_dir"`
	HTTPAddr        string         `json:"http_addr" yaml:"http_addr"`
	DriveEndpoint   string         `json:"drive_endpoint" yaml:"drive_endpoint"`
	LogFile         string         `json:"log_file" yaml:"log_file"`
	LogLevel        string         `json:"log_level" yaml:"log_level"`
	CacheSize       int            `json:"cache_size" yaml:"cache_size"`
	CacheTTL        timex.Duration `json:"cache_ttl" yaml:"cache_ttl"`
}

func toFile(c *Config) FileConfig {
	return FileConfig{
		DBPath:          c.DBPath,
		RemoteFolder:    c.RemoteFolder,
		SyncInterval:    timex.Duration{Duration: c.SyncInterval},
		ThumbnailHeight: c.ThumbnailHeight,
		BackgroundDrain: c.BackgroundDrain,
		ContentBackend:  c.ContentBackend,
		S3:              fileS3Config(c.S3),
		ImportDir:       c.ImportDir,
		HTTPAddr:        c.HTTPAddr,
		DriveEndpoint:   c.DriveEndpoint,
		LogFile:         c.LogFile,
		LogLevel:        c.LogLevel,
		CacheSize:       c.CacheSize,
		CacheTTL:        timex.Duration{Duration: c.CacheTTL},
	}
}

func (f FileConfig) apply(c *Config) {
	c.DBPath = f.DBPath
	c.RemoteFolder = f.RemoteFolder
	c.SyncInterval = f.SyncInterval.Duration
	c.ThumbnailHeight = f.ThumbnailHeight
	c.BackgroundDrain = f.BackgroundDrain
	c.ContentBackend = f.ContentBackend
	c.S3 = S3Config(f.S3)
	c.ImportDir = f.ImportDir
	c.HTTPAddr = f.HTTPAddr
	c.DriveEndpoint = f.DriveEndpoint
	c.LogFile = f.LogFile
	c.LogLevel = f.LogLevel
	c.CacheSize = f.CacheSize
	c.CacheTTL = f.CacheTTL.Duration
}

// parseFile overlays cfg with the file named by -c / -config. The file is
// decoded on top of the current values, so absent keys keep them.
func parseFile(cfg *Config, args []string) error {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}

	fc := toFile(cfg)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fc)
	default:
		err = json.Unmarshal(data, &fc)
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}

	fc.apply(cfg)
	return nil
}
