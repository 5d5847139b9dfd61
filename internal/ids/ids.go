// Package ids generates ULID identifiers for all persisted rows. ULIDs sort
// by creation time, so primary key indexes stay append-friendly.
package ids

import (
	crand "crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

type lockedEntropy struct {
	mu  sync.Mutex
	src *ulid.MonotonicEntropy
}

func (e *lockedEntropy) make(t time.Time) ulid.ULID {
	e.mu.Lock()
	defer e.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), e.src)
}

var entropy = &lockedEntropy{src: ulid.Monotonic(crand.Reader, 0)}

// New returns a lexicographically sortable identifier used as the primary key
// for users, organizations, stores, sessions and audit events.
func New() string {
	return entropy.make(time.Now()).String()
}
