package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/gowgit/site-crawler/pkg/parse"
	"github.com/gowgit/site-crawler/pkg/utils"
)

// Validate checks AppConfig fields and applies sensible defaults.
// Returns collected warnings and any fatal error.
// Modifies receiver in place to apply defaults.
func (c *AppConfig) Validate() (warnings []string, err error) {
	// UserAgent
	if strings.TrimSpace(c.UserAgent) == "" {
		c.UserAgent = DefaultUserAgent
	}

	// RedirectLimit (nil keeps the default, 0 is meaningful)
	if c.RedirectLimit == nil {
		limit := DefaultRedirectLimit
		c.RedirectLimit = &limit
	} else if *c.RedirectLimit < 0 {
		warnings = append(warnings, fmt.Sprintf("redirect_limit cannot be negative, defaulting to %d", DefaultRedirectLimit))
		limit := DefaultRedirectLimit
		c.RedirectLimit = &limit
	}

	// TimeOut (0 disables)
	if c.TimeOut == nil {
		timeOut := DefaultTimeOut
		c.TimeOut = &timeOut
	} else if *c.TimeOut < 0 {
		warnings = append(warnings, "time_out cannot be negative, disabling timeout")
		var disabled time.Duration
		c.TimeOut = &disabled
	}

	// Encode
	if c.Encode == nil {
		encode := true
		c.Encode = &encode
	}

	// SupportedExtensions
	if len(c.SupportedExtensions) == 0 {
		c.SupportedExtensions = append([]string(nil), DefaultSupportedExtensions...)
	} else {
		exts := make([]string, 0, len(c.SupportedExtensions))
		for _, ext := range c.SupportedExtensions {
			ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
			if ext != "" {
				exts = append(exts, ext)
			}
		}
		if len(exts) == 0 {
			warnings = append(warnings, "supported_extensions has no usable entries, using the defaults")
			exts = append(exts, DefaultSupportedExtensions...)
		}
		c.SupportedExtensions = exts
	}

	// MaxRetries
	if c.MaxRetries < 0 {
		warnings = append(warnings, "max_retries cannot be negative, setting to 0")
		c.MaxRetries = 0
	}

	// Retry delays (only if retries enabled)
	if c.MaxRetries > 0 {
		if c.InitialRetryDelay <= 0 {
			c.InitialRetryDelay = 1 * time.Second
		}
		if c.MaxRetryDelay <= 0 {
			c.MaxRetryDelay = 30 * time.Second
		}
	}

	// InitialRetryDelay > MaxRetryDelay check
	if c.InitialRetryDelay > c.MaxRetryDelay && c.MaxRetryDelay > 0 {
		warnings = append(warnings, fmt.Sprintf(
			"initial_retry_delay (%v) > max_retry_delay (%v), using max_retry_delay for initial",
			c.InitialRetryDelay, c.MaxRetryDelay))
		c.InitialRetryDelay = c.MaxRetryDelay
	}

	// NumWorkers
	if c.NumWorkers <= 0 {
		warnings = append(warnings, "num_workers should be > 0, defaulting to 4")
		c.NumWorkers = 4
	}

	// SitesPerIteration
	if c.SitesPerIteration <= 0 {
		warnings = append(warnings, "sites_per_iteration should be > 0, defaulting to 10")
		c.SitesPerIteration = 10
	}

	// MaxIterations
	if c.MaxIterations == 0 {
		warnings = append(warnings, "max_iterations is 0, defaulting to 1 (use -1 for no limit)")
		c.MaxIterations = 1
	} else if c.MaxIterations < -1 {
		warnings = append(warnings, "max_iterations below -1, treating as no limit")
		c.MaxIterations = -1
	}

	// MaxDataSize
	if c.MaxDataSize <= 0 {
		warnings = append(warnings, fmt.Sprintf("max_data_size should be > 0, defaulting to %d bytes", DefaultMaxDataSize))
		c.MaxDataSize = DefaultMaxDataSize
	}

	// Storage
	storageWarnings, err := c.Storage.Validate()
	if err != nil {
		return warnings, err
	}
	warnings = append(warnings, storageWarnings...)

	// HTTPClientSettings defaults
	c.validateHTTPClientSettings()

	return warnings, nil
}

// validateHTTPClientSettings applies defaults to HTTP client settings.
func (c *AppConfig) validateHTTPClientSettings() {
	h := &c.HTTPClientSettings
	if h.MaxIdleConns <= 0 {
		h.MaxIdleConns = 100
	}
	if h.MaxIdleConnsPerHost <= 0 {
		h.MaxIdleConnsPerHost = 2
	}
	if h.IdleConnTimeout <= 0 {
		h.IdleConnTimeout = 90 * time.Second
	}
	if h.TLSHandshakeTimeout <= 0 {
		h.TLSHandshakeTimeout = 10 * time.Second
	}
	if h.ExpectContinueTimeout <= 0 {
		h.ExpectContinueTimeout = 1 * time.Second
	}
	if h.DialerTimeout <= 0 {
		h.DialerTimeout = 15 * time.Second
	}
	if h.DialerKeepAlive <= 0 {
		h.DialerKeepAlive = 30 * time.Second
	}
	if h.MaxBodyBytes <= 0 {
		h.MaxBodyBytes = 10 << 20
	}
}

// Validate checks StorageConfig fields and applies defaults.
func (c *StorageConfig) Validate() (warnings []string, err error) {
	c.Driver = strings.ToLower(strings.TrimSpace(c.Driver))
	switch c.Driver {
	case "":
		warnings = append(warnings, "storage.driver is empty, defaulting to 'badger'")
		c.Driver = "badger"
		fallthrough
	case "badger":
		if c.Path == "" {
			c.Path = "./crawler_state"
		}
		if c.GCInterval <= 0 {
			c.GCInterval = 5 * time.Minute
		}
	case "sqlite":
		if c.Path == "" {
			c.Path = "./crawler.db"
		}
	case "mongo":
		if c.URI == "" {
			return nil, fmt.Errorf("%w: storage driver 'mongo' needs uri", utils.ErrConfigValidation)
		}
		if c.Database == "" {
			c.Database = "crawler"
		}
	default:
		return nil, fmt.Errorf("%w: unknown storage driver '%s'", utils.ErrConfigValidation, c.Driver)
	}
	return warnings, nil
}

// Validate checks SiteConfig fields.
// Returns collected warnings and any fatal error.
// Modifies receiver in place (URL and pattern trimming).
func (c *SiteConfig) Validate() (warnings []string, err error) {
	// Required: StartURL
	c.StartURL = strings.TrimSpace(c.StartURL)
	if c.StartURL == "" {
		return nil, fmt.Errorf("%w: site has no start_url", utils.ErrConfigValidation)
	}
	if !parse.IsValid(c.StartURL) {
		return nil, fmt.Errorf("%w: start_url '%s' is not an absolute http(s) URL", utils.ErrConfigValidation, c.StartURL)
	}

	// Path globs: absent is fine, present must compile
	if c.AllowPaths != nil {
		if _, err := utils.CompileGlobPatterns(c.AllowPaths); err != nil {
			return nil, fmt.Errorf("%w: allow_paths: %w", utils.ErrConfigValidation, err)
		}
	}
	if c.DisallowPaths != nil {
		if _, err := utils.CompileGlobPatterns(c.DisallowPaths); err != nil {
			return nil, fmt.Errorf("%w: disallow_paths: %w", utils.ErrConfigValidation, err)
		}
	}
	if len(c.AllowPaths) > 0 && len(c.DisallowPaths) > 0 {
		warnings = append(warnings, "both allow_paths and disallow_paths set: allow is applied first, then disallow")
	}

	return warnings, nil
}
