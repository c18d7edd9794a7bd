package document

import (
	"fmt"
	"io"
	"net/url"
	"strings"
	"unicode/utf8"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"

	"github.com/gowgit/site-crawler/pkg/models"
	"github.com/gowgit/site-crawler/pkg/utils"
)

// textSelector lists the elements whose own text becomes a text snippet
const textSelector = "h1, h2, h3, h4, h5, h6, p, li, dt, dd, td, th, blockquote, pre, figcaption, caption, span, strong, em, small, b, i, a, label, summary, div"

// Document is the parsed result of one fetch. It is built once and not modified afterwards.
type Document struct {
	URL      *models.URL // Shared with the crawl that produced it
	HTML     string      // "" when the fetch failed
	Title    string
	Author   string
	Keywords []string
	Links    []string // Unique hrefs in document order
	Text     []string // Text snippets in document order
	Score    float64
	Base     string // <base href>, if any

	dom *goquery.Document // nil for empty documents
}

// New parses html fetched from u. When encode is set, a body that is not valid UTF-8 is decoded
// using the charset declared in the markup (falling back to windows-1252).
func New(u *models.URL, html string, encode bool) *Document {
	if u == nil {
		u = models.NewURL("")
	}
	if encode {
		html = toUTF8(html)
	}
	d := &Document{URL: u, HTML: html}
	if strings.TrimSpace(html) == "" {
		return d
	}

	dom, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return d // x/net/html is lenient; only reader failures end up here
	}
	d.dom = dom
	d.extract()
	return d
}

// FromRecord restores a Document from its persisted form. The stored fields are kept as is;
// the HTML, if present, is parsed so that link classification works.
func FromRecord(rec models.DocumentRecord) *Document {
	d := &Document{
		URL:      models.NewURL(rec.URL),
		HTML:     rec.HTML,
		Title:    rec.Title,
		Author:   rec.Author,
		Keywords: rec.Keywords,
		Links:    rec.Links,
		Text:     rec.Text,
		Score:    rec.Score,
		Base:     rec.Base,
	}
	if !rec.CrawledAt.IsZero() {
		d.URL.Crawled = true
		d.URL.DateCrawled = rec.CrawledAt
	}
	if strings.TrimSpace(rec.HTML) != "" {
		if dom, err := goquery.NewDocumentFromReader(strings.NewReader(rec.HTML)); err == nil {
			d.dom = dom
		}
	}
	return d
}

// IsEmpty reports that there is no HTML to work with. Empty documents are never crawl results.
func (d *Document) IsEmpty() bool {
	return d == nil || strings.TrimSpace(d.HTML) == ""
}

// Size is the HTML length in bytes
func (d *Document) Size() int {
	return len(d.HTML)
}

// BaseURL is the URL relative links resolve against: the <base href> (itself resolved against
// the document URL when relative) or the document URL.
func (d *Document) BaseURL() (*url.URL, error) {
	docURL, err := url.Parse(d.URL.Raw)
	if err != nil {
		return nil, fmt.Errorf("%w: document url %q: %w", utils.ErrInvalidURL, d.URL.Raw, err)
	}
	if d.Base == "" {
		return docURL, nil
	}
	base, err := url.Parse(d.Base)
	if err != nil {
		return docURL, nil // Malformed <base>, browsers ignore it too
	}
	return docURL.ResolveReference(base), nil
}

// Stats counts the extracted fields
func (d *Document) Stats() map[string]int {
	textBytes := 0
	for _, t := range d.Text {
		textBytes += len(t)
	}
	return map[string]int{
		"url":           len(d.URL.Raw),
		"html":          len(d.HTML),
		"title":         len(d.Title),
		"author":        len(d.Author),
		"keywords":      len(d.Keywords),
		"links":         len(d.Links),
		"text_snippets": len(d.Text),
		"text_bytes":    textBytes,
	}
}

// ToRecord converts the document to its persisted form
func (d *Document) ToRecord(includeHTML bool) models.DocumentRecord {
	rec := models.DocumentRecord{
		URL:         d.URL.Raw,
		Base:        d.Base,
		Title:       d.Title,
		Author:      d.Author,
		Keywords:    d.Keywords,
		Links:       d.Links,
		Text:        d.Text,
		Score:       d.Score,
		ContentHash: utils.ContentHash(d.HTML),
		Size:        d.Size(),
		CrawledAt:   d.URL.DateCrawled,
	}
	if includeHTML {
		rec.HTML = d.HTML
	}
	return rec
}

// Markdown renders the HTML as markdown, with relative links made absolute against the document's host
func (d *Document) Markdown() (string, error) {
	if d.IsEmpty() {
		return "", nil
	}
	converter := md.NewConverter(md.DomainFromURL(d.URL.Raw), true, nil)
	out, err := converter.ConvertString(d.HTML)
	if err != nil {
		return "", fmt.Errorf("%w: %w", utils.ErrMarkdownConversion, err)
	}
	return out, nil
}

func (d *Document) extract() {
	d.Title = collapseSpace(d.dom.Find("title").First().Text())
	d.Author = metaContent(d.dom, "author")
	if kw := metaContent(d.dom, "keywords"); kw != "" {
		for _, k := range strings.Split(kw, ",") {
			if k = strings.TrimSpace(k); k != "" {
				d.Keywords = append(d.Keywords, k)
			}
		}
	}
	if href, ok := d.dom.Find("base[href]").First().Attr("href"); ok {
		d.Base = strings.TrimSpace(href)
	}

	seen := make(map[string]struct{})
	d.dom.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if href == "" {
			return
		}
		if _, dup := seen[href]; dup {
			return
		}
		seen[href] = struct{}{}
		d.Links = append(d.Links, href)
	})

	d.dom.Find("body").Find(textSelector).Each(func(_ int, s *goquery.Selection) {
		// Only the element's own text nodes, so nested elements do not repeat their content
		var own strings.Builder
		s.Contents().Each(func(_ int, c *goquery.Selection) {
			if goquery.NodeName(c) == "#text" {
				own.WriteString(c.Text())
				own.WriteByte(' ')
			}
		})
		if text := collapseSpace(own.String()); text != "" {
			d.Text = append(d.Text, text)
		}
	})
}

func metaContent(dom *goquery.Document, name string) string {
	var content string
	dom.Find("meta[name]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.EqualFold(strings.TrimSpace(s.AttrOr("name", "")), name) {
			content = strings.TrimSpace(s.AttrOr("content", ""))
			return false
		}
		return true
	})
	return content
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func toUTF8(html string) string {
	if utf8.ValidString(html) {
		return html
	}
	r, err := charset.NewReader(strings.NewReader(html), "text/html")
	if err != nil {
		return strings.ToValidUTF8(html, "\uFFFD")
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		return strings.ToValidUTF8(html, "\uFFFD")
	}
	return string(decoded)
}
