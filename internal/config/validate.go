package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if cfg.Fetcher.Type != "http" && cfg.Fetcher.Type != "browser" {
		return fmt.Errorf("fetcher.type must be 'http' or 'browser', got %q", cfg.Fetcher.Type)
	}
	if cfg.Fetcher.RequestTimeout <= 0 {
		return fmt.Errorf("fetcher.request_timeout must be > 0")
	}
	if cfg.Fetcher.MaxBodySize <= 0 {
		return fmt.Errorf("fetcher.max_body_size must be > 0")
	}
	if cfg.Fetcher.MaxRedirects < 0 {
		return fmt.Errorf("fetcher.max_redirects must be >= 0")
	}

	if cfg.Fetcher.Type == "browser" {
		if cfg.Browser.WaitTimeout <= 0 {
			return fmt.Errorf("browser.wait_timeout must be > 0")
		}
		if cfg.Browser.Marker == "" {
			return fmt.Errorf("browser.marker is required for the browser fetcher")
		}
		if cfg.Browser.MarkerType != "css" && cfg.Browser.MarkerType != "xpath" {
			return fmt.Errorf("browser.marker_type must be 'css' or 'xpath', got %q", cfg.Browser.MarkerType)
		}
		if cfg.Browser.ViewportWidth <= 0 || cfg.Browser.ViewportHeight <= 0 {
			return fmt.Errorf("browser.viewport_width and browser.viewport_height must be > 0")
		}
	}

	if cfg.Extract.Container == "" {
		return fmt.Errorf("extract.container is required")
	}
	if cfg.Extract.ContainerType != "css" && cfg.Extract.ContainerType != "xpath" {
		return fmt.Errorf("extract.container_type must be 'css' or 'xpath', got %q", cfg.Extract.ContainerType)
	}
	if len(cfg.Extract.Fields) == 0 {
		return fmt.Errorf("extract.fields must declare at least one field")
	}
	seen := make(map[string]bool, len(cfg.Extract.Fields))
	for i, f := range cfg.Extract.Fields {
		if f.Name == "" {
			return fmt.Errorf("extract.fields[%d].name is required", i)
		}
		if f.Selector == "" {
			return fmt.Errorf("extract.fields[%d].selector is required", i)
		}
		if f.Type != "" && f.Type != "css" && f.Type != "xpath" {
			return fmt.Errorf("extract.fields[%d].type must be 'css' or 'xpath', got %q", i, f.Type)
		}
		if seen[f.Name] {
			return fmt.Errorf("extract.fields: duplicate field name %q", f.Name)
		}
		seen[f.Name] = true
	}

	switch cfg.Paginate.Strategy {
	case "templated":
		if !strings.Contains(cfg.Paginate.BaseURL, cfg.Paginate.Placeholder) {
			return fmt.Errorf("paginate.base_url must contain the placeholder %q", cfg.Paginate.Placeholder)
		}
	case "interactive":
		if cfg.Paginate.NextSelector == "" {
			return fmt.Errorf("paginate.next_selector is required for interactive pagination")
		}
		if cfg.Fetcher.Type != "browser" {
			return fmt.Errorf("paginate.strategy 'interactive' requires fetcher.type 'browser'")
		}
	default:
		return fmt.Errorf("paginate.strategy must be 'templated' or 'interactive', got %q", cfg.Paginate.Strategy)
	}
	if cfg.Paginate.MaxPages < 1 {
		return fmt.Errorf("paginate.max_pages must be >= 1, got %d", cfg.Paginate.MaxPages)
	}

	switch cfg.Sink.Type {
	case "csv":
		if cfg.Sink.Path == "" {
			return fmt.Errorf("sink.path is required for the csv sink")
		}
	case "mongo":
		if cfg.Sink.URI == "" || cfg.Sink.Database == "" || cfg.Sink.Collection == "" {
			return fmt.Errorf("sink.uri, sink.database and sink.collection are required for the mongo sink")
		}
		if cfg.Sink.CommandTimeout <= 0 {
			return fmt.Errorf("sink.command_timeout must be > 0")
		}
	default:
		return fmt.Errorf("sink.type %q is not supported (valid: csv, mongo)", cfg.Sink.Type)
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	return nil
}

// ValidateURL checks if a URL string is usable as a page address.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}
