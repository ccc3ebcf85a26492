package query

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NextID returns a 50-character unique identifier that sorts by creation
// time: a zero-padded millisecond timestamp, a random UUID in hex and a
// constant suffix reserved for sharding.
func NextID() string {
	return nextIDAt(time.Now())
}

func nextIDAt(t time.Time) string {
	u := uuid.New()
	return fmt.Sprintf("%015d%x000", t.UnixMilli(), u[:])
}
