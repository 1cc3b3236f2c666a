package util

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// New mints a ULID string. Used for order, outbox and audit row ids:
// lexicographic order follows creation time, which keeps the outbox
// FetchDue scan and the audit stream naturally chronological.
func New() string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
