// Per (template, recipient) re-send throttling. A template re-used for the
// same recipient inside the configured limit is blocked with a retry-after
// hint; absent prior usage the send is allowed.
package templatestore

import (
	"context"
	"time"
)

type Check struct {
	Allowed bool
	// minutes until the same template may be sent to the same recipient
	// again, rounded up; zero when allowed
	RetryAfterMinutes int
	LastSent          time.Time
}

type TemplateStore interface {
	Check(ctx context.Context, template, recipient string, now time.Time) (Check, error)
	RecordSend(ctx context.Context, template, recipient string, now time.Time) error
	// Prune drops entries old enough that they can no longer block a send.
	Prune(ctx context.Context, now time.Time) (int, error)
	Size() int
}
