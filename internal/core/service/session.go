package service

import (
	"context"

	"github.com/rl1809/storefront/internal/core/domain"
)

// SessionHandler consumes auth session events.
type SessionHandler interface {
	HandleSession(ctx context.Context, ev domain.SessionEvent)
}

// SessionDispatcher fans one session event out to every registered handler
// in registration order.
type SessionDispatcher struct {
	handlers []SessionHandler
}

func NewSessionDispatcher(handlers ...SessionHandler) *SessionDispatcher {
	return &SessionDispatcher{handlers: handlers}
}

func (d *SessionDispatcher) Dispatch(ctx context.Context, ev domain.SessionEvent) {
	for _, h := range d.handlers {
		h.HandleSession(ctx, ev)
	}
}
