package crawler

import (
	"net/url"
	"strconv"
)

// remoteFilter is the board's undocumented search-constraint token for
// remote-only listings.
const remoteFilter = "0kf:attr(DSQF7);"

// resultsPerPage is what the board serves per listing page. Pagination
// offsets are multiples of 10 even though a page usually renders ~15 cards.
const resultsPerPage = 10

// searchURL builds the listing-page URL for a query at the given page index.
func searchURL(baseURL, query, location string, pageIndex int, remoteOnly bool) string {
	v := url.Values{}
	v.Set("q", query)
	v.Set("l", location)
	if remoteOnly {
		v.Set("sc", remoteFilter)
	}
	if pageIndex > 0 {
		v.Set("start", strconv.Itoa(pageIndex*resultsPerPage))
	}
	return baseURL + "/jobs?" + v.Encode()
}
