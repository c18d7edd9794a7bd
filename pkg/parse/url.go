package parse

import (
	"fmt"
	"net"
	"net/url"
	"path"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// Scope is a notion of "same site" used to compare two URLs, narrowest first
type Scope int

const (
	ScopeBase   Scope = iota // Same scheme, host and port
	ScopeHost                // Same hostname
	ScopeDomain              // Same registrable domain, any subdomain
	ScopeBrand               // Same registrable label, any subdomain or public suffix
)

// String implements fmt.Stringer
func (s Scope) String() string {
	switch s {
	case ScopeBase:
		return "base"
	case ScopeHost:
		return "host"
	case ScopeDomain:
		return "domain"
	case ScopeBrand:
		return "brand"
	}
	return fmt.Sprintf("scope(%d)", int(s))
}

// IsValid reports whether raw is a well formed absolute http(s) URL
func IsValid(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Hostname() != ""
}

// IsRelativeURL reports whether raw carries no host, e.g. "/about" or "?page=2"
func IsRelativeURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return u.Host == "" && u.Scheme == ""
}

// IsRelativeTo reports whether link belongs to base under the given scope.
// A link without a host is always relative.
func IsRelativeTo(scope Scope, link, base string) (bool, error) {
	if IsRelativeURL(link) {
		return true, nil
	}
	l, err := url.Parse(strings.TrimSpace(link))
	if err != nil {
		return false, fmt.Errorf("link %q: %w", link, err)
	}
	b, err := url.Parse(strings.TrimSpace(base))
	if err != nil {
		return false, fmt.Errorf("base %q: %w", base, err)
	}
	if b.Host == "" {
		return false, fmt.Errorf("base %q has no host", base)
	}

	switch scope {
	case ScopeBase:
		return baseOf(l) == baseOf(b), nil
	case ScopeHost:
		return strings.EqualFold(l.Hostname(), b.Hostname()), nil
	case ScopeDomain:
		return hostDomain(l.Hostname()) == hostDomain(b.Hostname()), nil
	case ScopeBrand:
		return hostBrand(l.Hostname()) == hostBrand(b.Hostname()), nil
	}
	return false, fmt.Errorf("unknown scope %d", int(scope))
}

// ToBase returns scheme://host[:port] of raw, or "" when raw has no host
func ToBase(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return ""
	}
	return baseOf(u)
}

// ToEndpoint returns the path of raw with a leading slash; an empty path is "/"
func ToEndpoint(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	p := u.EscapedPath()
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

// Extension returns the file extension of the last path segment without the dot, or ""
func Extension(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	if u.Path == "" || strings.HasSuffix(u.Path, "/") {
		return ""
	}
	seg := path.Base(u.Path)
	ext := path.Ext(seg)
	return strings.TrimPrefix(ext, ".")
}

// OmitFragment strips everything from the first '#'
func OmitFragment(raw string) string {
	if i := strings.IndexByte(raw, '#'); i >= 0 {
		return raw[:i]
	}
	return raw
}

// OmitBase returns raw relative to its base without the leading slash,
// e.g. "http://x.test/blog/post?id=1" becomes "blog/post?id=1"
func OmitBase(raw string) string {
	base := ToBase(raw)
	rel := strings.TrimSpace(raw)
	if base != "" && len(rel) >= len(base) && strings.EqualFold(rel[:len(base)], base) {
		rel = rel[len(base):]
	}
	return strings.TrimPrefix(rel, "/")
}

// Concat joins a base and a relative link with exactly one slash between them.
// Links starting with '?' or '#' are appended as is.
func Concat(base, link string) string {
	if link == "" {
		return base
	}
	if strings.HasPrefix(link, "?") || strings.HasPrefix(link, "#") {
		return base + link
	}
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(link, "/")
}

// ToggleTrailingSlash returns raw with its trailing slash removed, or added if absent
func ToggleTrailingSlash(raw string) string {
	if strings.HasSuffix(raw, "/") {
		return strings.TrimSuffix(raw, "/")
	}
	return raw + "/"
}

// Host returns the lowercase hostname of raw without port
func Host(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// Domain returns the registrable domain of raw, e.g. "example.co.uk" for "http://www.example.co.uk"
func Domain(raw string) string {
	return hostDomain(Host(raw))
}

// Brand returns the registrable label of raw, e.g. "example" for "http://www.example.co.uk"
func Brand(raw string) string {
	return hostBrand(Host(raw))
}

func baseOf(u *url.URL) string {
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host)
}

func hostDomain(host string) string {
	host = strings.ToLower(host)
	if host == "" || net.ParseIP(host) != nil {
		return host
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host // localhost, bare suffixes and the like
	}
	return domain
}

func hostBrand(host string) string {
	domain := hostDomain(host)
	if domain == "" || net.ParseIP(domain) != nil {
		return domain
	}
	suffix, _ := publicsuffix.PublicSuffix(domain)
	if suffix == "" || suffix == domain {
		return domain
	}
	return strings.TrimSuffix(domain, "."+suffix)
}
