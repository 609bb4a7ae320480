package db

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NextID returns a new 50-character primary key: the current time in
// milliseconds (15 digits), 32 hex characters of a random UUID, and "000".
// Ids generated later sort after ids generated earlier.
func NextID() string {
	return NextIDAt(time.Now())
}

// NextIDAt is NextID for a given timestamp.
func NextIDAt(t time.Time) string {
	u := uuid.New()
	return fmt.Sprintf("%015d%s000", t.UnixMilli(), hex.EncodeToString(u[:]))
}
