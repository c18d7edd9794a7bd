package models

import (
	"net/http"
	"time"
)

// Redirection is one hop of a redirect chain
type Redirection struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Response describes one logical HTTP exchange, including every redirect hop taken to settle it.
// A single Response is shared by all hops of a fetch; per-hop values overwrite the previous hop's
// while TotalTime accumulates.
type Response struct {
	URL          string        // URL requested by the most recent hop
	Status       int           // 0 when no response could be obtained
	Headers      http.Header   // Case-insensitive header map
	Body         []byte        // Raw body of the most recent hop
	IPAddress    string        // Remote address that served the most recent hop
	TotalTime    time.Duration // Sum across all hops
	Redirections []Redirection // Hops followed, in order
	Err          error         // Why the fetch failed, nil on success
}

// NewResponse returns an empty Response ready to be enriched
func NewResponse() *Response {
	return &Response{Headers: make(http.Header)}
}

// AddTotalTime accumulates the elapsed time of one hop. Negative durations are ignored.
func (r *Response) AddTotalTime(d time.Duration) {
	if d > 0 {
		r.TotalTime += d
	}
}

// AddRedirection records a followed hop
func (r *Response) AddRedirection(from, to string) {
	r.Redirections = append(r.Redirections, Redirection{From: from, To: to})
}

// RedirectCount is the number of hops followed so far
func (r *Response) RedirectCount() int {
	return len(r.Redirections)
}

// RedirectMap returns the redirect chain keyed by source URL
func (r *Response) RedirectMap() map[string]string {
	m := make(map[string]string, len(r.Redirections))
	for _, hop := range r.Redirections {
		m[hop.From] = hop.To
	}
	return m
}

// IsRedirect reports a 3xx status
func (r *Response) IsRedirect() bool {
	return r.Status >= 300 && r.Status < 400
}

// IsFailure reports that no status could be obtained (transport error or timeout)
func (r *Response) IsFailure() bool {
	return r.Status == 0
}

// IsSuccess is the negation of IsFailure; any status, including 4xx/5xx, counts
func (r *Response) IsSuccess() bool {
	return !r.IsFailure()
}

// IsOK reports a 200 status
func (r *Response) IsOK() bool {
	return r.Status == http.StatusOK
}

// IsNotFound reports a 404 status
func (r *Response) IsNotFound() bool {
	return r.Status == http.StatusNotFound
}

// Size is the body length in bytes
func (r *Response) Size() int {
	return len(r.Body)
}

// BodyOrEmpty returns the body as a string, or "" when the fetch failed
func (r *Response) BodyOrEmpty() string {
	if r.Err != nil || r.IsFailure() {
		return ""
	}
	return string(r.Body)
}

// Location returns the Location header of the most recent hop
func (r *Response) Location() string {
	if r.Headers == nil {
		return ""
	}
	return r.Headers.Get("Location")
}
