package crawler

import (
	"fmt"

	"github.com/gobwas/glob"

	"github.com/gowgit/site-crawler/pkg/document"
	"github.com/gowgit/site-crawler/pkg/models"
	"github.com/gowgit/site-crawler/pkg/parse"
	"github.com/gowgit/site-crawler/pkg/utils"
)

// pathFilter holds compiled allow/disallow globs; a nil list means no filtering on that side
type pathFilter struct {
	allow    []glob.Glob
	disallow []glob.Glob
}

func newPathFilter(allowPaths, disallowPaths []string) (*pathFilter, error) {
	f := &pathFilter{}
	if allowPaths != nil {
		patterns, err := utils.CompileGlobPatterns(allowPaths)
		if err != nil {
			return nil, fmt.Errorf("allow paths: %w", err)
		}
		f.allow = patterns
	}
	if disallowPaths != nil {
		patterns, err := utils.CompileGlobPatterns(disallowPaths)
		if err != nil {
			return nil, fmt.Errorf("disallow paths: %w", err)
		}
		f.disallow = patterns
	}
	return f, nil
}

// apply keeps links matching an allow pattern, then drops links matching a disallow pattern
func (f *pathFilter) apply(links []string) []string {
	if f == nil || (f.allow == nil && f.disallow == nil) {
		return links
	}
	out := links[:0:0]
	for _, link := range links {
		p := linkPath(link)
		if f.allow != nil && !utils.MatchAnyGlob(f.allow, p) {
			continue
		}
		if f.disallow != nil && utils.MatchAnyGlob(f.disallow, p) {
			continue
		}
		out = append(out, link)
	}
	return out
}

// linkPath is the form links are matched in: "/" for the index page, otherwise the URL without
// its base and leading slash, e.g. "blog/post1"
func linkPath(link string) string {
	if parse.ToEndpoint(link) == "/" {
		return "/"
	}
	return parse.OmitBase(link)
}

// InternalLinks returns the absolute internal links of doc that CrawlSite would follow:
// fragments removed, duplicates dropped, only supported or missing extensions, then
// filtered by the optional allow and disallow globs (relative to the site root, e.g. "blog/*").
func (c *Crawler) InternalLinks(doc *document.Document, allowPaths, disallowPaths []string) ([]*models.URL, error) {
	filter, err := newPathFilter(allowPaths, disallowPaths)
	if err != nil {
		return nil, err
	}
	return models.NewURLs(c.internalLinks(doc, filter)...), nil
}

func (c *Crawler) internalLinks(doc *document.Document, filter *pathFilter) []string {
	if doc == nil {
		return nil
	}
	var links []string
	seen := make(map[string]struct{})
	for _, link := range doc.InternalAbsoluteLinks() {
		raw := parse.OmitFragment(link.Raw)
		if _, dup := seen[raw]; dup {
			continue
		}
		seen[raw] = struct{}{}
		if ext := parse.Extension(raw); ext != "" && !c.supportsExtension(ext) {
			continue
		}
		links = append(links, raw)
	}
	return filter.apply(links)
}
