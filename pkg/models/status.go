package models

// PageStatus represents the crawl status of a URL record in the database
type PageStatus string

const (
	PageStatusUnset    PageStatus = ""          // Zero value = unset/unknown
	PageStatusPending  PageStatus = "pending"   // URL stored but not crawled
	PageStatusSuccess  PageStatus = "success"   // URL crawled and produced a document
	PageStatusFailure  PageStatus = "failure"   // URL crawled but produced nothing
	PageStatusNotFound PageStatus = "not_found" // URL not in database
	PageStatusDBError  PageStatus = "db_error"  // Database error occurred
)

// String implements fmt.Stringer for logging
func (s PageStatus) String() string {
	if s == "" {
		return "unset"
	}
	return string(s)
}

// IsValid returns true if the status is a known operational value
func (s PageStatus) IsValid() bool {
	switch s {
	case PageStatusPending, PageStatusSuccess, PageStatusFailure:
		return true
	}
	return false
}

// StatusFor derives the record status of a crawled URL
func StatusFor(crawled, hasDocument bool) PageStatus {
	switch {
	case !crawled:
		return PageStatusPending
	case hasDocument:
		return PageStatusSuccess
	default:
		return PageStatusFailure
	}
}
