package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for pagesift.
type Config struct {
	Fetcher  FetcherConfig  `mapstructure:"fetcher"  yaml:"fetcher"`
	Browser  BrowserConfig  `mapstructure:"browser"  yaml:"browser"`
	Extract  ExtractConfig  `mapstructure:"extract"  yaml:"extract"`
	Paginate PaginateConfig `mapstructure:"paginate" yaml:"paginate"`
	Sink     SinkConfig     `mapstructure:"sink"     yaml:"sink"`
	Logging  LoggingConfig  `mapstructure:"logging"  yaml:"logging"`
}

// FetcherConfig controls how pages are obtained.
type FetcherConfig struct {
	Type            string        `mapstructure:"type"              yaml:"type"` // http, browser
	RequestTimeout  time.Duration `mapstructure:"request_timeout"   yaml:"request_timeout"`
	FollowRedirects bool          `mapstructure:"follow_redirects"  yaml:"follow_redirects"`
	MaxRedirects    int           `mapstructure:"max_redirects"     yaml:"max_redirects"`
	MaxBodySize     int64         `mapstructure:"max_body_size"     yaml:"max_body_size"`
	TLSInsecure     bool          `mapstructure:"tls_insecure"      yaml:"tls_insecure"`
	IdleConnTimeout time.Duration `mapstructure:"idle_conn_timeout" yaml:"idle_conn_timeout"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"    yaml:"max_idle_conns"`
	UserAgents      []string      `mapstructure:"user_agents"       yaml:"user_agents"`
}

// BrowserConfig controls the headless browser session used by the
// dynamic fetcher and the interactive paginator.
type BrowserConfig struct {
	Headless           bool          `mapstructure:"headless"            yaml:"headless"`
	ViewportWidth      int           `mapstructure:"viewport_width"      yaml:"viewport_width"`
	ViewportHeight     int           `mapstructure:"viewport_height"     yaml:"viewport_height"`
	SuppressAutomation bool          `mapstructure:"suppress_automation" yaml:"suppress_automation"`
	WaitTimeout        time.Duration `mapstructure:"wait_timeout"        yaml:"wait_timeout"`
	Marker             string        `mapstructure:"marker"              yaml:"marker"`
	MarkerType         string        `mapstructure:"marker_type"         yaml:"marker_type"` // css, xpath
	ChromePath         string        `mapstructure:"chrome_path"         yaml:"chrome_path"`
}

// ExtractConfig defines the container and the field schema extracted
// from each page.
type ExtractConfig struct {
	Container     string      `mapstructure:"container"      yaml:"container"`
	ContainerType string      `mapstructure:"container_type" yaml:"container_type"` // css, xpath
	Fields        []FieldRule `mapstructure:"fields"         yaml:"fields"`
}

// FieldRule defines a single field locator within a container.
type FieldRule struct {
	Name      string `mapstructure:"name"      yaml:"name"`
	Selector  string `mapstructure:"selector"  yaml:"selector"`
	Type      string `mapstructure:"type"      yaml:"type"` // css, xpath
	Attribute string `mapstructure:"attribute" yaml:"attribute"`
}

// PaginateConfig controls the page sequence.
type PaginateConfig struct {
	Strategy     string `mapstructure:"strategy"      yaml:"strategy"` // templated, interactive
	BaseURL      string `mapstructure:"base_url"      yaml:"base_url"`
	Placeholder  string `mapstructure:"placeholder"   yaml:"placeholder"`
	MaxPages     int    `mapstructure:"max_pages"     yaml:"max_pages"`
	NextSelector string `mapstructure:"next_selector" yaml:"next_selector"`
}

// SinkConfig controls the output destination.
type SinkConfig struct {
	Type           string        `mapstructure:"type"            yaml:"type"` // csv, mongo
	Path           string        `mapstructure:"path"            yaml:"path"`
	URI            string        `mapstructure:"uri"             yaml:"uri"`
	Database       string        `mapstructure:"database"        yaml:"database"`
	Collection     string        `mapstructure:"collection"      yaml:"collection"`
	CommandTimeout time.Duration `mapstructure:"command_timeout" yaml:"command_timeout"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Fetcher: FetcherConfig{
			Type:            "http",
			RequestTimeout:  30 * time.Second,
			FollowRedirects: true,
			MaxRedirects:    10,
			MaxBodySize:     10 * 1024 * 1024, // 10MB
			IdleConnTimeout: 90 * time.Second,
			MaxIdleConns:    100,
			UserAgents: []string{
				"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
				"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			},
		},
		Browser: BrowserConfig{
			Headless:           true,
			ViewportWidth:      1920,
			ViewportHeight:     1080,
			SuppressAutomation: true,
			WaitTimeout:        20 * time.Second,
			MarkerType:         "css",
		},
		Extract: ExtractConfig{
			ContainerType: "css",
		},
		Paginate: PaginateConfig{
			Strategy:    "templated",
			Placeholder: "{page}",
			MaxPages:    1,
		},
		Sink: SinkConfig{
			Type:           "csv",
			Path:           "output.csv",
			CommandTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// SchemaFields returns the field names of the extraction schema in
// declaration order.
func (c *ExtractConfig) SchemaFields() []string {
	names := make([]string, len(c.Fields))
	for i, f := range c.Fields {
		names[i] = f.Name
	}
	return names
}
