package models

import "time"

// URLRecord stores a frontier URL and the outcome of its last crawl in the database
type URLRecord struct {
	URL           string     `json:"url" bson:"url"`
	Crawled       bool       `json:"crawled" bson:"crawled"`
	DateCrawled   time.Time  `json:"date_crawled,omitempty" bson:"date_crawled,omitempty"`
	CrawlDuration float64    `json:"crawl_duration" bson:"crawl_duration"` // Seconds
	Status        PageStatus `json:"status" bson:"status"`
	ErrorType     string     `json:"error_type,omitempty" bson:"error_type,omitempty"` // Error category (on failure)
	InsertedAt    time.Time  `json:"inserted_at" bson:"inserted_at"`
	LastAttempt   time.Time  `json:"last_attempt,omitempty" bson:"last_attempt,omitempty"`
}

// NewURLRecord builds a record from the crawl state carried by u
func NewURLRecord(u *URL) URLRecord {
	rec := URLRecord{
		URL:           u.Raw,
		Crawled:       u.Crawled,
		DateCrawled:   u.DateCrawled,
		CrawlDuration: u.CrawlDuration.Seconds(),
		Status:        PageStatusPending,
	}
	if u.Crawled {
		rec.LastAttempt = u.DateCrawled
	}
	return rec
}

// ToURL restores the crawl state held by the record
func (r URLRecord) ToURL() *URL {
	return &URL{
		Raw:           r.URL,
		Crawled:       r.Crawled,
		DateCrawled:   r.DateCrawled,
		CrawlDuration: time.Duration(r.CrawlDuration * float64(time.Second)),
	}
}

// DocumentRecord is the persisted form of a crawled page
type DocumentRecord struct {
	URL         string    `json:"url" bson:"url"`
	HTML        string    `json:"html,omitempty" bson:"html,omitempty"`
	Base        string    `json:"base,omitempty" bson:"base,omitempty"` // <base href> if present
	Title       string    `json:"title,omitempty" bson:"title,omitempty"`
	Author      string    `json:"author,omitempty" bson:"author,omitempty"`
	Keywords    []string  `json:"keywords,omitempty" bson:"keywords,omitempty"`
	Links       []string  `json:"links,omitempty" bson:"links,omitempty"`
	Text        []string  `json:"text,omitempty" bson:"text,omitempty"`
	Score       float64   `json:"score" bson:"score"`
	ContentHash string    `json:"content_hash,omitempty" bson:"content_hash,omitempty"` // SHA256 hex of HTML
	Size        int       `json:"size" bson:"size"`                                     // HTML bytes
	CrawledAt   time.Time `json:"crawled_at" bson:"crawled_at"`
}

// SiteResult summarises the crawl of one seed URL
type SiteResult struct {
	SiteURL     string
	FinalURL    string        // Seed after redirect resolution
	RunID       string        // Iteration the site was crawled in
	Pages       int           // Documents yielded, empty ones included
	DocsSaved   int           // Documents newly inserted
	Duplicates  int           // Documents that already existed
	External    int           // External URLs discovered
	ExternalNew int           // External URLs newly inserted
	Duration    time.Duration // Wall time of the site crawl
	Error       error
}
