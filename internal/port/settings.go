package port

import "context"

// SettingsStore reads and writes the flat key->value settings mapping.
type SettingsStore interface {
	// Fetch returns the mapping visible at the given privilege level:
	// admins get every key, everyone else only the public subset.
	Fetch(ctx context.Context, admin bool) (map[string]string, error)

	// Upsert writes a single key: insert if absent, overwrite if present.
	Upsert(ctx context.Context, key, value string) error
}

// PrivilegeResolver reports whether a user holds the admin role.
type PrivilegeResolver interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
}

// ChangeEvent announces that a row in a table changed. The payload is
// advisory only; subscribers refetch rather than patch.
type ChangeEvent struct {
	Table  string `json:"table"`
	Action string `json:"action"`
	Key    string `json:"key,omitempty"`
}

// ChangeFeed is the push-invalidation channel keyed by table name.
type ChangeFeed interface {
	// Subscribe returns a stream of change events for the table plus a
	// release func. Releasing closes the stream.
	Subscribe(ctx context.Context, table string) (<-chan ChangeEvent, func(), error)

	Publish(ctx context.Context, table string, ev ChangeEvent) error
}
