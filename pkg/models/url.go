package models

import "time"

// URL is a crawl target together with its crawl bookkeeping.
// Crawl operations take a *URL and replace Raw in place when a redirect is followed,
// so the caller always observes the final resolved location.
type URL struct {
	Raw           string
	Crawled       bool
	DateCrawled   time.Time     // Zero until Crawled is set
	CrawlDuration time.Duration // Overwritten on every fetch attempt
}

// NewURL wraps a raw URL string in an uncrawled URL
func NewURL(raw string) *URL {
	return &URL{Raw: raw}
}

// NewURLs wraps each raw string, preserving order
func NewURLs(raws ...string) []*URL {
	urls := make([]*URL, 0, len(raws))
	for _, raw := range raws {
		urls = append(urls, NewURL(raw))
	}
	return urls
}

// String implements fmt.Stringer
func (u *URL) String() string {
	if u == nil {
		return ""
	}
	return u.Raw
}

// Replace swaps the underlying address, keeping the crawl state attached to the same value
func (u *URL) Replace(raw string) {
	u.Raw = raw
}

// SetCrawled updates the crawled flag. Marking a URL as crawled stamps DateCrawled with
// the current time (a recrawl re-stamps it); clearing the flag clears the date.
func (u *URL) SetCrawled(crawled bool) {
	u.Crawled = crawled
	if crawled {
		u.DateCrawled = time.Now().UTC()
	} else {
		u.DateCrawled = time.Time{}
	}
}

// Strings returns the raw form of each URL
func Strings(urls []*URL) []string {
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		out = append(out, u.Raw)
	}
	return out
}
