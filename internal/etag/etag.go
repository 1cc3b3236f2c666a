// Package etag formats and parses the weak entity tags used as the
// optimistic-concurrency token on the order API: W/"<row_version>".
package etag

import (
	"errors"
	"strconv"
	"strings"
)

var ErrMalformed = errors.New("malformed weak etag")

// Format renders a row version as a weak entity tag, e.g. W/"3".
func Format(version int64) string {
	return `W/"` + strconv.FormatInt(version, 10) + `"`
}

// Parse extracts the integer version from a weak entity tag. Only the
// canonical form W/"<decimal digits>" is accepted, exactly as Format writes
// it: a sign or leading zeros would parse but never came from this service,
// so they are rejected before the aggregate is touched. A malformed tag is a
// client error distinct from a stale one.
func Parse(tag string) (int64, error) {
	tag = strings.TrimSpace(tag)
	if !strings.HasPrefix(tag, `W/"`) || !strings.HasSuffix(tag, `"`) || len(tag) < 5 {
		return 0, ErrMalformed
	}
	raw := tag[3 : len(tag)-1]
	for i := 0; i < len(raw); i++ {
		if raw[i] < '0' || raw[i] > '9' {
			return 0, ErrMalformed
		}
	}
	if len(raw) > 1 && raw[0] == '0' {
		return 0, ErrMalformed
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		// all digits but out of int64 range
		return 0, ErrMalformed
	}
	return v, nil
}
