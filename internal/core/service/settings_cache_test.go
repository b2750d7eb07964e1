package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

// Mock SettingsStore with an admin-only subset
type mockSettingsStore struct {
	mu         sync.Mutex
	public     map[string]string
	restricted map[string]string
	fetchErr   error
	upsertErr  error
	fetchCalls int
}

func newMockSettingsStore() *mockSettingsStore {
	return &mockSettingsStore{
		public:     map[string]string{"site_name": "Banat", "footer_text": "welcome"},
		restricted: map[string]string{"whatsapp_number": "+9715550100"},
	}
}

func (m *mockSettingsStore) Fetch(ctx context.Context, admin bool) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetchCalls++
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	settings := make(map[string]string)
	for key, value := range m.public {
		settings[key] = value
	}
	if admin {
		for key, value := range m.restricted {
			settings[key] = value
		}
	}
	return settings, nil
}

func (m *mockSettingsStore) Upsert(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.public[key] = value
	return nil
}

func (m *mockSettingsStore) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fetchCalls
}

// Mock PrivilegeResolver
type mockPrivs struct {
	admins map[string]bool
	err    error
}

func (m *mockPrivs) IsAdmin(ctx context.Context, userID string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	return m.admins[userID], nil
}

// Mock ChangeFeed tracking subscriptions and releases
type mockFeed struct {
	mu         sync.Mutex
	events     chan port.ChangeEvent
	subscribes int
	releases   int
	published  []port.ChangeEvent
}

func (m *mockFeed) Subscribe(ctx context.Context, table string) (<-chan port.ChangeEvent, func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribes++
	events := make(chan port.ChangeEvent)
	m.events = events
	return events, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.releases++
		close(events)
	}, nil
}

func (m *mockFeed) Publish(ctx context.Context, table string, ev port.ChangeEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, ev)
	return nil
}

func (m *mockFeed) push(ev port.ChangeEvent) {
	m.mu.Lock()
	events := m.events
	m.mu.Unlock()
	events <- ev
}

func (m *mockFeed) counts() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.subscribes, m.releases
}

type settingsFixture struct {
	cache *SettingsCache
	store *mockSettingsStore
	privs *mockPrivs
	feed  *mockFeed
}

func newSettingsFixture(t *testing.T) *settingsFixture {
	store := newMockSettingsStore()
	privs := &mockPrivs{admins: map[string]bool{"admin-1": true}}
	feed := &mockFeed{}
	cache := NewSettingsCache(store, privs, feed)
	if err := cache.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(cache.Close)
	return &settingsFixture{cache: cache, store: store, privs: privs, feed: feed}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestSettings_AnonymousSeesPublicSubsetOnly(t *testing.T) {
	f := newSettingsFixture(t)

	if value, ok := f.cache.Get("site_name"); !ok || value != "Banat" {
		t.Errorf("expected public key visible, got %q %v", value, ok)
	}
	if _, ok := f.cache.Get("whatsapp_number"); ok {
		t.Error("restricted key must not be visible to anonymous callers")
	}
}

func TestSettings_AdminSeesAllKeys(t *testing.T) {
	f := newSettingsFixture(t)

	f.cache.HandleSession(context.Background(), domain.SessionEvent{Kind: domain.SessionSignedIn, UserID: "admin-1"})

	if value, ok := f.cache.Get("whatsapp_number"); !ok || value != "+9715550100" {
		t.Errorf("expected restricted key visible to admin, got %q %v", value, ok)
	}
	if !f.cache.Admin() {
		t.Error("expected admin privilege")
	}
}

func TestSettings_NonAdminUserStaysPublic(t *testing.T) {
	f := newSettingsFixture(t)

	f.cache.HandleSession(context.Background(), domain.SessionEvent{Kind: domain.SessionSignedIn, UserID: "shopper-1"})

	if _, ok := f.cache.Get("whatsapp_number"); ok {
		t.Error("restricted key must not be visible to a non-admin user")
	}
}

func TestUpdateSetting_OptimisticWrite(t *testing.T) {
	f := newSettingsFixture(t)
	before := f.store.calls()

	if !f.cache.UpdateSetting(context.Background(), "footer_text", "new footer") {
		t.Fatal("expected UpdateSetting to succeed")
	}

	// The new value is visible synchronously, before any refetch.
	if value, _ := f.cache.Get("footer_text"); value != "new footer" {
		t.Errorf("expected optimistic value, got %q", value)
	}
	if f.store.calls() != before {
		t.Error("optimistic read must not wait on a refetch")
	}

	f.feed.mu.Lock()
	published := len(f.feed.published)
	f.feed.mu.Unlock()
	if published != 1 {
		t.Errorf("expected 1 published change event, got %d", published)
	}
}

func TestUpdateSetting_StoreErrorReturnsFalse(t *testing.T) {
	f := newSettingsFixture(t)
	f.store.upsertErr = errors.New("permission denied")

	if f.cache.UpdateSetting(context.Background(), "site_name", "Hacked") {
		t.Fatal("expected UpdateSetting to report failure")
	}
	if value, _ := f.cache.Get("site_name"); value != "Banat" {
		t.Errorf("failed write must not apply locally, got %q", value)
	}
}

func TestSettings_ChangeEventTriggersRefetch(t *testing.T) {
	f := newSettingsFixture(t)

	f.store.mu.Lock()
	f.store.public["site_name"] = "Banat 2"
	f.store.mu.Unlock()

	f.feed.push(port.ChangeEvent{Table: SettingsTable, Action: "update", Key: "site_name"})

	waitFor(t, func() bool {
		value, _ := f.cache.Get("site_name")
		return value == "Banat 2"
	})
}

func TestSettings_PrivilegeChangeResubscribes(t *testing.T) {
	f := newSettingsFixture(t)

	f.cache.HandleSession(context.Background(), domain.SessionEvent{Kind: domain.SessionSignedIn, UserID: "admin-1"})

	subscribes, releases := f.feed.counts()
	if subscribes != 2 || releases != 1 {
		t.Errorf("expected resubscribe (2 subscribes, 1 release), got %d/%d", subscribes, releases)
	}

	// Dropping back to anonymous releases the admin-scoped subscription.
	f.cache.HandleSession(context.Background(), domain.SessionEvent{Kind: domain.SessionSignedOut})

	subscribes, releases = f.feed.counts()
	if subscribes != 3 || releases != 2 {
		t.Errorf("expected second resubscribe, got %d/%d", subscribes, releases)
	}
	if _, ok := f.cache.Get("whatsapp_number"); ok {
		t.Error("restricted key must disappear after sign-out")
	}
}

func TestSettings_SameprivilegeTransitionKeepsSubscription(t *testing.T) {
	f := newSettingsFixture(t)

	f.cache.HandleSession(context.Background(), domain.SessionEvent{Kind: domain.SessionSignedIn, UserID: "shopper-1"})

	subscribes, releases := f.feed.counts()
	if subscribes != 1 || releases != 0 {
		t.Errorf("non-admin sign-in must keep the subscription, got %d/%d", subscribes, releases)
	}
}

func TestSettings_FailedRefreshKeepsSnapshot(t *testing.T) {
	f := newSettingsFixture(t)

	f.store.mu.Lock()
	f.store.fetchErr = errors.New("backend unavailable")
	f.store.mu.Unlock()

	if err := f.cache.Refresh(context.Background()); err == nil {
		t.Fatal("expected Refresh to report the fetch error")
	}
	if value, _ := f.cache.Get("site_name"); value != "Banat" {
		t.Errorf("failed fetch must keep the previous snapshot, got %q", value)
	}
}

func TestSettings_PrivilegeResolverErrorFailsOpen(t *testing.T) {
	f := newSettingsFixture(t)
	f.privs.err = errors.New("roles table unreachable")

	f.cache.HandleSession(context.Background(), domain.SessionEvent{Kind: domain.SessionSignedIn, UserID: "admin-1"})

	if f.cache.Admin() {
		t.Error("resolver errors must fail open to non-privileged")
	}
	if _, ok := f.cache.Get("site_name"); !ok {
		t.Error("public settings must still be readable")
	}
}

func TestSettings_SnapshotIsACopy(t *testing.T) {
	f := newSettingsFixture(t)

	snapshot := f.cache.Snapshot()
	snapshot["site_name"] = "tampered"

	if value, _ := f.cache.Get("site_name"); value != "Banat" {
		t.Error("mutating a snapshot must not affect the cache")
	}
}
