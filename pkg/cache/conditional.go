package cache

import (
	"net/http"
)

// MatchesETag reports whether the request's If-None-Match header equals etag.
// The comparison is an exact string match: no weak-validator handling and no
// comma-separated lists.
func MatchesETag(r *http.Request, etag string) bool {
	if r == nil || etag == "" {
		return false
	}
	return r.Header.Get("If-None-Match") == etag
}

// AddConditionalHeaders sets If-None-Match on an outgoing request when an
// ETag from an earlier response is known.
func AddConditionalHeaders(req *http.Request, etag string) {
	if req == nil || etag == "" {
		return
	}
	req.Header.Set("If-None-Match", etag)
}
