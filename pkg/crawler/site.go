package crawler

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/gowgit/site-crawler/pkg/document"
	"github.com/gowgit/site-crawler/pkg/models"
	"github.com/gowgit/site-crawler/pkg/parse"
	"github.com/gowgit/site-crawler/pkg/utils"
)

// SiteOptions narrows a site crawl to part of the site. Patterns are globs relative to the
// site root and must not start with "/", except "/" itself which means the index page.
type SiteOptions struct {
	AllowPaths    []string
	DisallowPaths []string
}

// CrawlURL fetches u under policy and builds a Document from the result. fn, if set, is called
// with the Document even when the fetch failed. The returned Document is nil when it is empty.
// u is updated in place with its crawl bookkeeping and any redirect target.
func (c *Crawler) CrawlURL(ctx context.Context, u *models.URL, policy RedirectPolicy, fn DocumentFunc) (*document.Document, error) {
	html, err := c.fetch(ctx, u, policy)
	if err != nil {
		return nil, err
	}

	doc := document.New(u, html, c.Encode)
	if fn != nil {
		if err := fn(doc); err != nil {
			return nil, err
		}
	}
	if doc.IsEmpty() {
		return nil, nil
	}
	return doc, nil
}

// CrawlURLs crawls each URL in turn and returns the last Document, which may be nil
func (c *Crawler) CrawlURLs(ctx context.Context, urls []*models.URL, policy RedirectPolicy, fn DocumentFunc) (*document.Document, error) {
	if len(urls) == 0 {
		return nil, utils.ErrNoURLs
	}

	var doc *document.Document
	for _, u := range urls {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var err error
		doc, err = c.CrawlURL(ctx, u, policy, fn)
		if err != nil {
			return nil, err
		}
	}
	return doc, nil
}

// CrawlSite crawls every HTML page reachable through internal links from u, breadth first.
// u may redirect anywhere; every other page may only redirect within u's resolved host.
// Each page is passed to fn once. It returns the unique external links found across the
// site, or nil if u itself could not be crawled.
func (c *Crawler) CrawlSite(ctx context.Context, u *models.URL, opts SiteOptions, fn DocumentFunc) ([]*models.URL, error) {
	filter, err := newPathFilter(opts.AllowPaths, opts.DisallowPaths)
	if err != nil {
		return nil, err
	}

	doc, err := c.CrawlURL(ctx, u, FollowAll, fn)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, nil
	}
	siteLog := c.log.WithField("site", u.Raw)

	crawled := map[string]struct{}{
		u.Raw:                            {},
		parse.ToggleTrailingSlash(u.Raw): {},
	}
	externals := newLinkSet()
	externals.add(models.Strings(doc.ExternalLinks())...)
	internals := newLinkSet()
	internals.add(c.internalLinks(doc, filter)...)

	if internals.len() == 0 {
		siteLog.Debug("No internal links to follow")
		return models.NewURLs(externals.list()...), nil
	}

	for {
		var pending []string
		for _, link := range internals.list() {
			if _, done := crawled[link]; !done {
				pending = append(pending, link)
			}
		}
		if len(pending) == 0 {
			break
		}
		siteLog.WithField("pending", len(pending)).Debug("Crawling internal links")

		for _, link := range pending {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			// An earlier link in this pass may have redirected here
			if _, done := crawled[link]; done {
				continue
			}
			page := models.NewURL(link)
			doc, err := c.CrawlURL(ctx, page, FollowWithinHost, fn)
			if err != nil {
				return nil, err
			}

			// Both forms, in case of a redirect
			crawled[link] = struct{}{}
			crawled[page.Raw] = struct{}{}
			if doc == nil {
				continue
			}

			internals.add(c.internalLinks(doc, filter)...)
			externals.add(models.Strings(doc.ExternalLinks())...)
		}
	}

	siteLog.WithFields(logrus.Fields{
		"crawled":   len(crawled),
		"externals": externals.len(),
	}).Debug("Site crawl finished")
	return models.NewURLs(externals.list()...), nil
}

// linkSet is an insertion ordered set of URL strings
type linkSet struct {
	order []string
	seen  map[string]struct{}
}

func newLinkSet() *linkSet {
	return &linkSet{seen: make(map[string]struct{})}
}

func (s *linkSet) add(links ...string) {
	for _, link := range links {
		if _, ok := s.seen[link]; ok {
			continue
		}
		s.seen[link] = struct{}{}
		s.order = append(s.order, link)
	}
}

func (s *linkSet) len() int {
	return len(s.order)
}

func (s *linkSet) list() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}
