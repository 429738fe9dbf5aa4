package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeThumbnails()
	c.normalizeCatalog()
	c.normalizeUploads()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("LIGHTBOX_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeThumbnails() {
	c.Thumbnails.Endpoint = strings.TrimSpace(c.Thumbnails.Endpoint)
	if c.Thumbnails.RequestTimeout <= 0 {
		c.Thumbnails.RequestTimeout = defaultThumbnailRequestTimeout
	}
}

func (c *Config) normalizeCatalog() {
	c.Catalog.Endpoint = strings.TrimSpace(c.Catalog.Endpoint)
	c.Catalog.APIKey = strings.TrimSpace(c.Catalog.APIKey)
	if c.Catalog.APIKey == "" {
		if value, ok := os.LookupEnv("LIGHTBOX_CATALOG_API_KEY"); ok {
			c.Catalog.APIKey = strings.TrimSpace(value)
		}
	}
	if c.Catalog.RequestTimeout <= 0 {
		c.Catalog.RequestTimeout = defaultCatalogRequestTimeout
	}
}

func (c *Config) normalizeUploads() {
	if c.Uploads.TransferTimeout <= 0 {
		c.Uploads.TransferTimeout = defaultUploadTransferTimeout
	}
	if c.Uploads.MaxBatchItems <= 0 {
		c.Uploads.MaxBatchItems = defaultUploadMaxBatchItems
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
