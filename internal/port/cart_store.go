package port

import (
	"context"

	"github.com/rl1809/storefront/internal/core/domain"
)

// LocalCartStore persists the anonymous (guest) cart for one browser
// session. Implementations must treat missing or corrupt persisted data as
// an empty cart, never as an error.
type LocalCartStore interface {
	Read(ctx context.Context) ([]domain.CartLine, error)

	// Write replaces the whole guest cart.
	Write(ctx context.Context, lines []domain.CartLine) error

	Clear(ctx context.Context) error
}

// RemoteCartStore persists the cart of an authenticated user in the backend
// data service, keyed on (user_id, product_id).
type RemoteCartStore interface {
	// ListByUser returns the user's lines with the current product snapshot.
	ListByUser(ctx context.Context, userID string) ([]domain.CartLine, error)

	// Insert adds a line; a duplicate (user_id, product_id) collapses into a
	// quantity increment at the store, never a second row.
	Insert(ctx context.Context, userID, productID string, quantity int) error

	// Update overwrites a line's quantity unconditionally (last write wins).
	Update(ctx context.Context, userID, productID string, quantity int) error

	// Delete removes a line; deleting an absent line is not an error.
	Delete(ctx context.Context, userID, productID string) error

	DeleteAll(ctx context.Context, userID string) error
}

// ProductLookup reads a product's current display data by id. A missing
// product returns (nil, nil).
type ProductLookup interface {
	Get(ctx context.Context, productID string) (*domain.ProductSnapshot, error)
}
