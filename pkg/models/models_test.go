package models

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestURL_SetCrawled(t *testing.T) {
	u := NewURL("http://x.test/")
	assert.False(t, u.Crawled)
	assert.True(t, u.DateCrawled.IsZero())

	u.SetCrawled(true)
	assert.True(t, u.Crawled)
	first := u.DateCrawled
	require.False(t, first.IsZero())

	// A recrawl re-stamps the date without touching anything else
	time.Sleep(time.Millisecond)
	u.CrawlDuration = 2 * time.Second
	u.SetCrawled(true)
	assert.True(t, u.DateCrawled.After(first))
	assert.Equal(t, 2*time.Second, u.CrawlDuration)

	u.SetCrawled(false)
	assert.False(t, u.Crawled)
	assert.True(t, u.DateCrawled.IsZero())
}

func TestURL_ReplaceKeepsIdentity(t *testing.T) {
	u := NewURL("http://x.test/")
	alias := u
	u.Replace("http://x.test/home")
	assert.Equal(t, "http://x.test/home", alias.String())

	var nilURL *URL
	assert.Equal(t, "", nilURL.String())
}

func TestURLs_Helpers(t *testing.T) {
	urls := NewURLs("http://a.test", "http://b.test")
	require.Len(t, urls, 2)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, Strings(urls))
}

func TestResponse_Predicates(t *testing.T) {
	r := NewResponse()
	assert.True(t, r.IsFailure())
	assert.False(t, r.IsSuccess())
	assert.False(t, r.IsRedirect())

	r.Status = http.StatusMovedPermanently
	assert.True(t, r.IsRedirect())
	assert.True(t, r.IsSuccess())

	r.Status = http.StatusNotFound
	assert.True(t, r.IsNotFound())
	assert.False(t, r.IsRedirect())
	assert.True(t, r.IsSuccess())

	r.Status = http.StatusOK
	assert.True(t, r.IsOK())
}

func TestResponse_TotalTimeAccumulates(t *testing.T) {
	r := NewResponse()
	r.AddTotalTime(100 * time.Millisecond)
	r.AddTotalTime(250 * time.Millisecond)
	r.AddTotalTime(-time.Second)
	assert.Equal(t, 350*time.Millisecond, r.TotalTime)
}

func TestResponse_Redirections(t *testing.T) {
	r := NewResponse()
	r.AddRedirection("http://x.test/", "http://x.test/a")
	r.AddRedirection("http://x.test/a", "http://x.test/b")

	assert.Equal(t, 2, r.RedirectCount())
	assert.Equal(t, []Redirection{
		{From: "http://x.test/", To: "http://x.test/a"},
		{From: "http://x.test/a", To: "http://x.test/b"},
	}, r.Redirections)
	assert.Equal(t, map[string]string{
		"http://x.test/":  "http://x.test/a",
		"http://x.test/a": "http://x.test/b",
	}, r.RedirectMap())
}

func TestResponse_BodyAndLocation(t *testing.T) {
	r := NewResponse()
	r.Body = []byte("<html></html>")
	assert.Equal(t, "", r.BodyOrEmpty(), "no status means no body")
	assert.Equal(t, 13, r.Size())

	r.Status = http.StatusOK
	assert.Equal(t, "<html></html>", r.BodyOrEmpty())

	r.Err = assert.AnError
	assert.Equal(t, "", r.BodyOrEmpty())

	r.Headers.Set("location", "/next")
	assert.Equal(t, "/next", r.Location())

	var bare Response
	assert.Equal(t, "", bare.Location())
}

func TestURLRecord_RoundTrip(t *testing.T) {
	u := NewURL("http://x.test/about")
	u.SetCrawled(true)
	u.CrawlDuration = 1500 * time.Millisecond

	rec := NewURLRecord(u)
	assert.Equal(t, "http://x.test/about", rec.URL)
	assert.True(t, rec.Crawled)
	assert.InDelta(t, 1.5, rec.CrawlDuration, 1e-9)
	assert.Equal(t, u.DateCrawled, rec.LastAttempt)

	back := rec.ToURL()
	assert.Equal(t, u.Raw, back.Raw)
	assert.Equal(t, u.Crawled, back.Crawled)
	assert.Equal(t, u.CrawlDuration, back.CrawlDuration)
}

func TestDocumentRecord_OmitEmpty(t *testing.T) {
	rec := DocumentRecord{URL: "http://x.test/", CrawledAt: time.Now().UTC()}

	data, err := json.Marshal(rec)
	require.NoError(t, err)

	raw := string(data)
	assert.Contains(t, raw, `"score":0`)
	assert.NotContains(t, raw, "html")
	assert.NotContains(t, raw, "keywords")
}
