package health

import (
	"context"
	"fmt"
	"time"
)

// Staleness fails once last is older than maxAge. A zero last is reported as
// still warming up and fails too.
func Staleness(last func() time.Time, maxAge time.Duration) CheckFunc {
	return func(ctx context.Context) (bool, string) {
		t := last()
		if t.IsZero() {
			return false, "no successful run yet"
		}
		age := time.Since(t).Round(time.Millisecond)
		if age > maxAge {
			return false, fmt.Sprintf("last success %s ago, limit %s", age, maxAge)
		}
		return true, fmt.Sprintf("last success %s ago", age)
	}
}

// Breaker fails while the circuit reported by state is open.
func Breaker(state func() fmt.Stringer) CheckFunc {
	return func(ctx context.Context) (bool, string) {
		s := state().String()
		return s != "open", "circuit " + s
	}
}
