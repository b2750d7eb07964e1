package service

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

// SettingsTable is the backend table the cache mirrors and the change-feed
// channel it subscribes to.
const SettingsTable = "site_settings"

// SettingsCache mirrors the site settings mapping in memory for synchronous
// reads. Content is privilege-aware: admins see every key, everyone else
// the public subset. Any change event on the settings table triggers a full
// refetch; a failed fetch logs and keeps the previous snapshot.
type SettingsCache struct {
	store port.SettingsStore
	privs port.PrivilegeResolver
	feed  port.ChangeFeed

	mu       sync.RWMutex
	settings map[string]string
	userID   string
	admin    bool
	release  func()
}

func NewSettingsCache(store port.SettingsStore, privs port.PrivilegeResolver, feed port.ChangeFeed) *SettingsCache {
	return &SettingsCache{
		store:    store,
		privs:    privs,
		feed:     feed,
		settings: make(map[string]string),
	}
}

// Start resolves the caller's privilege, loads the mapping, and subscribes
// to push invalidation. A failed initial fetch is logged, not fatal; the
// cache converges on the first change event or explicit Refresh.
func (c *SettingsCache) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.admin = c.resolvePrivilege(ctx)
	if err := c.refetchLocked(ctx); err != nil {
		log.Printf("settings: initial fetch: %v", err)
	}
	return c.subscribeLocked(ctx)
}

// Get reads one key from the in-memory snapshot without blocking on I/O.
func (c *SettingsCache) Get(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	value, ok := c.settings[key]
	return value, ok
}

// Snapshot returns a copy of the whole mapping.
func (c *SettingsCache) Snapshot() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snapshot := make(map[string]string, len(c.settings))
	for key, value := range c.settings {
		snapshot[key] = value
	}
	return snapshot
}

// Admin reports the privilege level the cache last resolved.
func (c *SettingsCache) Admin() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.admin
}

// UpdateSetting upserts one key remotely and, on success, applies the value
// to the in-memory mapping immediately so the caller sees its own write
// before the push round-trip lands. Never returns an error.
func (c *SettingsCache) UpdateSetting(ctx context.Context, key, value string) bool {
	if err := c.store.Upsert(ctx, key, value); err != nil {
		log.Printf("settings: upsert %s: %v", key, err)
		return false
	}

	c.mu.Lock()
	c.settings[key] = value
	c.mu.Unlock()

	ev := port.ChangeEvent{Table: SettingsTable, Action: "upsert", Key: key}
	if err := c.feed.Publish(ctx, SettingsTable, ev); err != nil {
		log.Printf("settings: publish change for %s: %v", key, err)
	}
	return true
}

// Refresh refetches the mapping at the current privilege level.
func (c *SettingsCache) Refresh(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refetchLocked(ctx)
}

// HandleSession re-resolves privilege on any session transition. When the
// privilege level changes the feed subscription is released and re-acquired
// before refetching, since the fetch itself differs by privilege.
func (c *SettingsCache) HandleSession(ctx context.Context, ev domain.SessionEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.userID = ev.UserID
	if ev.Kind == domain.SessionSignedOut {
		c.userID = ""
	}

	admin := c.resolvePrivilege(ctx)
	if admin != c.admin {
		c.admin = admin
		if c.release != nil {
			c.release()
			c.release = nil
		}
		if err := c.subscribeLocked(ctx); err != nil {
			log.Printf("settings: resubscribe: %v", err)
		}
	}

	if err := c.refetchLocked(ctx); err != nil {
		log.Printf("settings: refetch after session event: %v", err)
	}
}

// Close releases the feed subscription.
func (c *SettingsCache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.release != nil {
		c.release()
		c.release = nil
	}
}

func (c *SettingsCache) refetchLocked(ctx context.Context) error {
	settings, err := c.store.Fetch(ctx, c.admin)
	if err != nil {
		return fmt.Errorf("fetch settings: %w", err)
	}
	c.settings = settings
	return nil
}

func (c *SettingsCache) subscribeLocked(ctx context.Context) error {
	events, release, err := c.feed.Subscribe(ctx, SettingsTable)
	if err != nil {
		return fmt.Errorf("subscribe settings feed: %w", err)
	}
	c.release = release

	go func() {
		for range events {
			if err := c.Refresh(context.Background()); err != nil {
				log.Printf("settings: refetch after change event: %v", err)
			}
		}
	}()
	return nil
}

// resolvePrivilege fails open: any resolver error reads as non-admin.
func (c *SettingsCache) resolvePrivilege(ctx context.Context) bool {
	if c.userID == "" {
		return false
	}
	admin, err := c.privs.IsAdmin(ctx, c.userID)
	if err != nil {
		log.Printf("settings: resolve privilege for %s: %v", c.userID, err)
		return false
	}
	return admin
}
