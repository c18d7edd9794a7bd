package document

import (
	"net/url"
	"strings"

	"github.com/gowgit/site-crawler/pkg/models"
)

// InternalLinks returns the links pointing at the document's own host, in relative form.
// Relative hrefs are kept as written; absolute same-host hrefs are reduced to path, query and fragment.
func (d *Document) InternalLinks() []string {
	host := d.host()
	var out []string
	seen := make(map[string]struct{})
	for _, href := range d.Links {
		u, ok := crawlable(href)
		if !ok || !isInternal(u, host) {
			continue
		}
		rel := href
		if u.Host != "" {
			rel = u.RequestURI()
			if u.Fragment != "" {
				rel += "#" + u.EscapedFragment()
			}
		}
		if _, dup := seen[rel]; dup {
			continue
		}
		seen[rel] = struct{}{}
		out = append(out, rel)
	}
	return out
}

// InternalAbsoluteLinks returns the internal links resolved against BaseURL, fragments included
func (d *Document) InternalAbsoluteLinks() []*models.URL {
	base, err := d.BaseURL()
	if err != nil {
		return nil
	}
	host := d.host()
	var out []*models.URL
	seen := make(map[string]struct{})
	for _, href := range d.Links {
		u, ok := crawlable(href)
		if !ok || !isInternal(u, host) {
			continue
		}
		abs := base.ResolveReference(u).String()
		if _, dup := seen[abs]; dup {
			continue
		}
		seen[abs] = struct{}{}
		out = append(out, models.NewURL(abs))
	}
	return out
}

// ExternalLinks returns the absolute links pointing at other hosts, each without a trailing slash
func (d *Document) ExternalLinks() []*models.URL {
	host := d.host()
	scheme := "http"
	if du, err := url.Parse(d.URL.Raw); err == nil && du.Scheme != "" {
		scheme = du.Scheme
	}
	var out []*models.URL
	seen := make(map[string]struct{})
	for _, href := range d.Links {
		u, ok := crawlable(href)
		if !ok || isInternal(u, host) {
			continue
		}
		if u.Scheme == "" {
			u.Scheme = scheme // Protocol relative
		}
		ext := strings.TrimSuffix(u.String(), "/")
		if _, dup := seen[ext]; dup {
			continue
		}
		seen[ext] = struct{}{}
		out = append(out, models.NewURL(ext))
	}
	return out
}

func (d *Document) host() string {
	u, err := url.Parse(d.URL.Raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// crawlable parses href, rejecting schemes other than http(s) such as mailto: or javascript:,
// and absolute hrefs with no host
func crawlable(href string) (*url.URL, bool) {
	u, err := url.Parse(href)
	if err != nil {
		return nil, false
	}
	if u.Scheme != "" && u.Scheme != "http" && u.Scheme != "https" {
		return nil, false
	}
	if u.Scheme != "" && u.Host == "" {
		return nil, false
	}
	return u, true
}

func isInternal(u *url.URL, host string) bool {
	return u.Host == "" || strings.EqualFold(u.Hostname(), host)
}
