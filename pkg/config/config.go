package config

import (
	"time"

	"github.com/gowgit/site-crawler/pkg/parse"
)

// Defaults for the crawl engine
const (
	DefaultRedirectLimit = 5
	DefaultTimeOut       = 5 * time.Second
	DefaultUserAgent     = "site-crawler/1.0"
	DefaultMaxDataSize   = 10 << 20 // 10MB
)

// DefaultSupportedExtensions are the link extensions followed during a site crawl; links without an extension are always followed
var DefaultSupportedExtensions = []string{"asp", "aspx", "cfm", "cgi", "htm", "html", "htmlx", "jsp", "php"}

// SiteConfig holds configuration specific to a single website crawl
type SiteConfig struct {
	StartURL      string   `yaml:"start_url"`
	AllowPaths    []string `yaml:"allow_paths,omitempty"`    // Globs relative to the site root, e.g. "blog/*"
	DisallowPaths []string `yaml:"disallow_paths,omitempty"` // Globs relative to the site root
}

// AppConfig holds the global application configuration
type AppConfig struct {
	UserAgent           string                `yaml:"user_agent"`
	RedirectLimit       *int                  `yaml:"redirect_limit,omitempty"` // nil = default, 0 = no redirects tolerated
	TimeOut             *time.Duration        `yaml:"time_out,omitempty"`       // Per request; nil = default, 0 = disabled
	Encode              *bool                 `yaml:"encode,omitempty"`         // UTF-8 coercion of fetched bodies; nil = true
	SupportedExtensions []string              `yaml:"supported_extensions,omitempty"`
	MaxRetries          int                   `yaml:"max_retries,omitempty"` // Transport retries per request; 0 = single attempt
	InitialRetryDelay   time.Duration         `yaml:"initial_retry_delay,omitempty"`
	MaxRetryDelay       time.Duration         `yaml:"max_retry_delay,omitempty"`
	NumWorkers          int                   `yaml:"num_workers"`         // Sites crawled concurrently
	SitesPerIteration   int                   `yaml:"sites_per_iteration"` // Uncrawled URLs pulled from storage per iteration
	MaxIterations       int                   `yaml:"max_iterations"`      // -1 = until no uncrawled URLs remain
	MaxDataSize         int64                 `yaml:"max_data_size"`       // Stop once storage holds this many bytes
	Storage             StorageConfig         `yaml:"storage"`
	HTTPClientSettings  HTTPClientConfig      `yaml:"http_client_settings,omitempty"`
	Sites               map[string]SiteConfig `yaml:"sites"`
}

// StorageConfig selects and configures the persistence backend
type StorageConfig struct {
	Driver     string        `yaml:"driver"`                // "badger", "sqlite" or "mongo"
	Path       string        `yaml:"path,omitempty"`        // Badger directory or SQLite file
	URI        string        `yaml:"uri,omitempty"`         // MongoDB connection string
	Database   string        `yaml:"database,omitempty"`    // MongoDB database name
	GCInterval time.Duration `yaml:"gc_interval,omitempty"` // Badger value log GC interval
}

// HTTPClientConfig holds settings for the shared HTTP client
// There is no overall client timeout: the crawl engine bounds each request with its own time_out
type HTTPClientConfig struct {
	MaxIdleConns          int           `yaml:"max_idle_conns,omitempty"`          // Max total idle connections
	MaxIdleConnsPerHost   int           `yaml:"max_idle_conns_per_host,omitempty"` // Max idle connections per host
	IdleConnTimeout       time.Duration `yaml:"idle_conn_timeout,omitempty"`       // Timeout for idle connections
	TLSHandshakeTimeout   time.Duration `yaml:"tls_handshake_timeout,omitempty"`   // Timeout for TLS handshake
	ExpectContinueTimeout time.Duration `yaml:"expect_continue_timeout,omitempty"` // Timeout for 100-continue
	ForceAttemptHTTP2     *bool         `yaml:"force_attempt_http2,omitempty"`     // Explicitly enable/disable HTTP/2 attempt (use pointer for tri-state: nil=default, true=force, false=disable)
	DialerTimeout         time.Duration `yaml:"dialer_timeout,omitempty"`          // Connection dial timeout
	DialerKeepAlive       time.Duration `yaml:"dialer_keep_alive,omitempty"`       // TCP keep-alive interval
	MaxBodyBytes          int64         `yaml:"max_body_bytes,omitempty"`          // Response bodies are truncated past this size
}

// GetEffectiveRedirectLimit determines the redirect limit, falling back to the default
func GetEffectiveRedirectLimit(appCfg AppConfig) int {
	if appCfg.RedirectLimit != nil {
		return *appCfg.RedirectLimit
	}
	return DefaultRedirectLimit
}

// GetEffectiveTimeOut determines the per request timeout; 0 means disabled
func GetEffectiveTimeOut(appCfg AppConfig) time.Duration {
	if appCfg.TimeOut != nil {
		return *appCfg.TimeOut
	}
	return DefaultTimeOut
}

// GetEffectiveEncode determines whether fetched bodies are coerced to UTF-8
func GetEffectiveEncode(appCfg AppConfig) bool {
	if appCfg.Encode != nil {
		return *appCfg.Encode
	}
	return true
}

// GetEffectiveSupportedExtensions returns the configured extension allow-list or the default one
func GetEffectiveSupportedExtensions(appCfg AppConfig) []string {
	if len(appCfg.SupportedExtensions) > 0 {
		return appCfg.SupportedExtensions
	}
	return DefaultSupportedExtensions
}

// StartURLs lists the start URL of every configured site, in no particular order
func (c AppConfig) StartURLs() []string {
	urls := make([]string, 0, len(c.Sites))
	for _, site := range c.Sites {
		if site.StartURL != "" {
			urls = append(urls, site.StartURL)
		}
	}
	return urls
}

// SiteFor finds the configured site whose start URL shares a host with rawURL
func (c AppConfig) SiteFor(rawURL string) (string, SiteConfig, bool) {
	host := parse.Host(rawURL)
	if host == "" {
		return "", SiteConfig{}, false
	}
	for name, site := range c.Sites {
		if parse.Host(site.StartURL) == host {
			return name, site, true
		}
	}
	return "", SiteConfig{}, false
}
