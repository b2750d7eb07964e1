package port

import (
	"context"

	"github.com/rl1809/storefront/internal/core/domain"
)

// Notifier delivers user-facing notifications emitted by mutating
// operations. Implementations must not block or fail the operation.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification)
}
