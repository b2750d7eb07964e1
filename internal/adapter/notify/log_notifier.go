package notify

import (
	"context"
	"log"

	"github.com/rl1809/storefront/internal/core/domain"
)

// LogNotifier writes user-facing notifications to the server log. The web
// UI renders its own toasts from operation responses; this sink keeps an
// audit trail of what the user was shown.
type LogNotifier struct {
	sessionID string
}

func NewLogNotifier(sessionID string) *LogNotifier {
	return &LogNotifier{sessionID: sessionID}
}

func (n *LogNotifier) Notify(ctx context.Context, note domain.Notification) {
	log.Printf("notify session=%s %s: %s", n.sessionID, note.Kind, note.Message)
}
