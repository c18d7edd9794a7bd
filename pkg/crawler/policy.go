package crawler

import (
	"fmt"
	"strings"

	"github.com/gowgit/site-crawler/pkg/parse"
	"github.com/gowgit/site-crawler/pkg/utils"
)

// RedirectPolicy controls whether, and where to, redirects are followed during a fetch
type RedirectPolicy int

const (
	FollowNone         RedirectPolicy = iota // Any 3xx fails the fetch
	FollowAll                                // Follow anywhere
	FollowWithinBase                         // Only to the original URL's scheme://host[:port]
	FollowWithinHost                         // Only to the original URL's hostname
	FollowWithinDomain                       // Only within the original URL's registrable domain
	FollowWithinBrand                        // Only within the original URL's brand, e.g. example.com and example.co.uk
)

// ParseRedirectPolicy accepts "false", "true", "base", "host", "domain" or "brand"
func ParseRedirectPolicy(s string) (RedirectPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "false", "none":
		return FollowNone, nil
	case "true", "all":
		return FollowAll, nil
	case "base":
		return FollowWithinBase, nil
	case "host":
		return FollowWithinHost, nil
	case "domain":
		return FollowWithinDomain, nil
	case "brand":
		return FollowWithinBrand, nil
	}
	return FollowNone, fmt.Errorf("%w: %q (want false, true, base, host, domain or brand)", utils.ErrInvalidPolicy, s)
}

// String implements fmt.Stringer using the same names ParseRedirectPolicy accepts
func (p RedirectPolicy) String() string {
	switch p {
	case FollowNone:
		return "false"
	case FollowAll:
		return "true"
	}
	if scope, ok := p.scope(); ok {
		return scope.String()
	}
	return fmt.Sprintf("policy(%d)", int(p))
}

// follows reports whether any redirect may be followed
func (p RedirectPolicy) follows() bool {
	return p != FollowNone
}

// scope returns the scope redirect targets are checked against, if any
func (p RedirectPolicy) scope() (parse.Scope, bool) {
	switch p {
	case FollowWithinBase:
		return parse.ScopeBase, true
	case FollowWithinHost:
		return parse.ScopeHost, true
	case FollowWithinDomain:
		return parse.ScopeDomain, true
	case FollowWithinBrand:
		return parse.ScopeBrand, true
	}
	return 0, false
}
