package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateEndpoint("thumbnails.endpoint", c.Thumbnails.Endpoint); err != nil {
		return err
	}
	if err := c.validateEndpoint("catalog.endpoint", c.Catalog.Endpoint); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.APIBind) == "" {
		return fmt.Errorf("paths.api_bind must not be empty")
	}
	return nil
}

func (c *Config) validateEndpoint(field, value string) error {
	if value == "" {
		// Endpoints are optional; features depending on them surface
		// their own errors when invoked unconfigured.
		return nil
	}
	parsed, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s: unsupported scheme %q", field, parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s: missing host", field)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
