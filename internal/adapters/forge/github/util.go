package github

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

func parseRateHeaders(h http.Header) (remaining int, reset time.Time, retryAfter int) {
	remaining = atoi(h.Get("X-RateLimit-Remaining"), -1)
	if rs := h.Get("X-RateLimit-Reset"); rs != "" {
		if sec := atoi(rs, 0); sec > 0 {
			reset = time.Unix(int64(sec), 0).UTC()
		}
	}
	retryAfter = atoi(h.Get("Retry-After"), 0)
	return
}

// computeWait decides how long the forge asked us to wait, zero when it did not say
func computeWait(remaining int, reset time.Time, retryAfter int, now time.Time) time.Duration {
	if retryAfter > 0 {
		return time.Duration(retryAfter) * time.Second
	}
	if remaining == 0 && !reset.IsZero() && reset.After(now) {
		return reset.Sub(now)
	}
	return 0
}

func atoi(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return i
}

// joinURL appends slash separated parts to base escaping each path segment
// Parts may themselves contain slashes (branch names like release/1.0, nested paths)
func joinURL(base string, parts ...string) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(base, "/"))
	for _, p := range parts {
		for seg := range strings.SplitSeq(strings.Trim(p, "/"), "/") {
			if seg == "" {
				continue
			}
			b.WriteByte('/')
			b.WriteString(url.PathEscape(seg))
		}
	}
	return b.String()
}
