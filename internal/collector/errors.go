package collector

import (
	"errors"
	"fmt"
)

// ErrRateLimited means the upstream kept answering 429 past the retry budget.
var ErrRateLimited = errors.New("rate limited: retry budget exhausted")

// ErrNoData means every requested subreddit came back empty.
var ErrNoData = errors.New("no posts fetched: check subreddit names")

// HTTPError is a non-2xx, non-429 upstream response.
type HTTPError struct {
	Status int
	URL    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("upstream status %d: %s", e.Status, e.URL)
}

// NetworkError is a transport-level failure before any status was read.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("request to %s failed: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }
