package crawler

import (
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gowgit/site-crawler/pkg/config"
	"github.com/gowgit/site-crawler/pkg/document"
	"github.com/gowgit/site-crawler/pkg/fetch"
	"github.com/gowgit/site-crawler/pkg/models"
)

// DocumentFunc receives every Document produced by a crawl, including empty ones from failed fetches.
// A non-nil error stops the crawl and is returned to the caller unchanged.
type DocumentFunc func(doc *document.Document) error

// Crawler fetches URLs over HTTP(S), resolves their redirects and turns them into Documents.
// A Crawler is not safe for concurrent use; run one instance per goroutine.
type Crawler struct {
	RedirectLimit       int           // Redirects tolerated per fetch; 0 fails on the first redirect
	TimeOut             time.Duration // Per request (per redirect hop); 0 disables
	Encode              bool          // Coerce fetched bodies to UTF-8
	SupportedExtensions []string      // Link extensions followed by CrawlSite, lower case without the dot
	UserAgent           string

	fetcher      fetch.HTTPFetcher
	log          *logrus.Entry
	lastResponse *models.Response
}

// New creates a Crawler with default settings
func New(fetcher fetch.HTTPFetcher, log *logrus.Entry) *Crawler {
	exts := make([]string, len(config.DefaultSupportedExtensions))
	copy(exts, config.DefaultSupportedExtensions)
	return &Crawler{
		RedirectLimit:       config.DefaultRedirectLimit,
		TimeOut:             config.DefaultTimeOut,
		Encode:              true,
		SupportedExtensions: exts,
		UserAgent:           config.DefaultUserAgent,
		fetcher:             fetcher,
		log:                 log.WithField("component", "crawler"),
	}
}

// NewFromConfig creates a Crawler using the engine settings of appCfg
func NewFromConfig(appCfg config.AppConfig, fetcher fetch.HTTPFetcher, log *logrus.Entry) *Crawler {
	c := New(fetcher, log)
	c.RedirectLimit = config.GetEffectiveRedirectLimit(appCfg)
	c.TimeOut = config.GetEffectiveTimeOut(appCfg)
	c.Encode = config.GetEffectiveEncode(appCfg)
	c.SupportedExtensions = config.GetEffectiveSupportedExtensions(appCfg)
	if appCfg.UserAgent != "" {
		c.UserAgent = appCfg.UserAgent
	}
	return c
}

// LastResponse returns the Response of the most recent fetch, successful or not; nil before the first fetch
func (c *Crawler) LastResponse() *models.Response {
	return c.lastResponse
}

func (c *Crawler) supportsExtension(ext string) bool {
	ext = strings.ToLower(ext)
	for _, supported := range c.SupportedExtensions {
		if strings.ToLower(strings.TrimPrefix(supported, ".")) == ext {
			return true
		}
	}
	return false
}
