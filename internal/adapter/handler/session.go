package handler

import (
	"context"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"github.com/rl1809/storefront/internal/core/service"
)

const sessionCookie = "storefront_session"

// EngineBundle is the per-browser-session wiring: one cart engine, one
// settings cache, and the dispatcher that feeds session events to both.
type EngineBundle struct {
	Cart     *service.CartService
	Settings *service.SettingsCache
	Sessions *service.SessionDispatcher
}

// BundleFactory builds a bundle for a new browser session id.
type BundleFactory func(ctx context.Context, sessionID string) (*EngineBundle, error)

// SessionRegistry maps browser session cookies to engine bundles, minting a
// session id on first contact.
//
// TODO: evict bundles for sessions idle past a deadline; today they live
// until shutdown.
type SessionRegistry struct {
	factory BundleFactory

	mu      sync.Mutex
	bundles map[string]*EngineBundle
}

func NewSessionRegistry(factory BundleFactory) *SessionRegistry {
	return &SessionRegistry{
		factory: factory,
		bundles: make(map[string]*EngineBundle),
	}
}

// Bundle returns the calling session's bundle, creating the session cookie
// and the bundle on first use.
func (r *SessionRegistry) Bundle(w http.ResponseWriter, req *http.Request) (*EngineBundle, error) {
	sessionID := ""
	if cookie, err := req.Cookie(sessionCookie); err == nil && cookie.Value != "" {
		sessionID = cookie.Value
	}
	if sessionID == "" {
		sessionID = uuid.New().String()
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookie,
			Value:    sessionID,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if bundle, ok := r.bundles[sessionID]; ok {
		return bundle, nil
	}
	bundle, err := r.factory(req.Context(), sessionID)
	if err != nil {
		return nil, err
	}
	r.bundles[sessionID] = bundle
	return bundle, nil
}

// Close releases every bundle's subscriptions.
func (r *SessionRegistry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, bundle := range r.bundles {
		bundle.Settings.Close()
	}
	r.bundles = make(map[string]*EngineBundle)
}
