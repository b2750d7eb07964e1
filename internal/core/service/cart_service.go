package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrUnauthenticated = errors.New("not authenticated")
)

// CartService is the single source of truth for the user's cart across the
// guest/authenticated transition. While the session is anonymous every
// operation dispatches to the local store; once a user id is known it
// dispatches to the remote store. The acting identity is re-read under the
// mutex at the top of every operation, so a sign-in completing between two
// operations switches dispatch immediately.
type CartService struct {
	local     port.LocalCartStore
	remote    port.RemoteCartStore
	products  port.ProductLookup
	notifier  port.Notifier
	opTimeout time.Duration

	mu     sync.Mutex
	userID string // empty while guest
	view   domain.CartView
}

func NewCartService(local port.LocalCartStore, remote port.RemoteCartStore, products port.ProductLookup, notifier port.Notifier, opTimeout time.Duration) *CartService {
	return &CartService{
		local:     local,
		remote:    remote,
		products:  products,
		notifier:  notifier,
		opTimeout: opTimeout,
	}
}

// View returns a copy of the last successfully derived cart projection.
func (s *CartService) View() domain.CartView {
	s.mu.Lock()
	defer s.mu.Unlock()

	view := s.view
	view.Items = make([]domain.CartLine, len(s.view.Items))
	copy(view.Items, s.view.Items)
	return view
}

// AddToCart inserts a new line with quantity 1, or increments the existing
// line for the product. An unresolvable product fails with
// ErrProductNotFound and mutates nothing.
func (s *CartService) AddToCart(ctx context.Context, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	if err := s.addLocked(ctx, productID); err != nil {
		s.notifier.Notify(ctx, domain.ErrorNotification("could not add product to cart"))
		return err
	}
	s.notifier.Notify(ctx, domain.SuccessNotification("product added to cart"))
	return nil
}

// RemoveFromCart deletes the product's line. Removing an absent line is not
// an error.
func (s *CartService) RemoveFromCart(ctx context.Context, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	if err := s.removeLocked(ctx, productID); err != nil {
		s.notifier.Notify(ctx, domain.ErrorNotification("could not remove product from cart"))
		return err
	}
	s.notifier.Notify(ctx, domain.SuccessNotification("product removed from cart"))
	return nil
}

// UpdateQuantity overwrites the line's quantity. A quantity <= 0 removes
// the line instead; zero or negative quantities are never stored.
func (s *CartService) UpdateQuantity(ctx context.Context, productID string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	if err := s.setQuantityLocked(ctx, productID, quantity); err != nil {
		s.notifier.Notify(ctx, domain.ErrorNotification("could not update quantity"))
		return err
	}
	return nil
}

// ClearCart deletes every line in the active store. The inactive store is
// never touched: clearing a remote cart leaves residual guest data alone,
// and vice versa.
func (s *CartService) ClearCart(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	if err := s.clearLocked(ctx); err != nil {
		s.notifier.Notify(ctx, domain.ErrorNotification("could not clear cart"))
		return err
	}
	s.notifier.Notify(ctx, domain.SuccessNotification("cart cleared"))
	return nil
}

// HandleSession reacts to auth session events. A transition into an
// authenticated state merges the guest cart into the remote cart; signing
// out switches back to the guest store without clearing it.
func (s *CartService) HandleSession(ctx context.Context, ev domain.SessionEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	switch ev.Kind {
	case domain.SessionInitial, domain.SessionSignedIn:
		signingIn := ev.UserID != "" && ev.UserID != s.userID
		s.userID = ev.UserID
		if signingIn {
			if err := s.mergeLocked(ctx); err != nil {
				log.Printf("cart: merge for user %s: %v", ev.UserID, err)
				s.notifier.Notify(ctx, domain.ErrorNotification("could not restore your cart"))
			}
		}
	case domain.SessionSignedOut:
		s.userID = ""
	}

	if err := s.refreshLocked(ctx); err != nil {
		log.Printf("cart: refresh after session event: %v", err)
	}
}

func (s *CartService) addLocked(ctx context.Context, productID string) error {
	snapshot, err := s.products.Get(ctx, productID)
	if err != nil {
		return fmt.Errorf("lookup product: %w", err)
	}
	if snapshot == nil {
		return ErrProductNotFound
	}

	lines, err := s.activeLines(ctx)
	if err != nil {
		return err
	}
	for _, line := range lines {
		if line.ProductID == productID {
			return s.setQuantityLocked(ctx, productID, line.Quantity+1)
		}
	}

	if s.userID == "" {
		line := domain.CartLine{ProductID: productID, Quantity: 1, Product: *snapshot}
		if err := s.local.Write(ctx, append(lines, line)); err != nil {
			return fmt.Errorf("write guest cart: %w", err)
		}
	} else {
		if err := s.remote.Insert(ctx, s.userID, productID, 1); err != nil {
			return fmt.Errorf("insert cart line: %w", err)
		}
	}
	return s.refreshLocked(ctx)
}

func (s *CartService) setQuantityLocked(ctx context.Context, productID string, quantity int) error {
	if quantity <= 0 {
		return s.removeLocked(ctx, productID)
	}

	if s.userID == "" {
		lines, err := s.local.Read(ctx)
		if err != nil {
			return fmt.Errorf("read guest cart: %w", err)
		}
		for i := range lines {
			if lines[i].ProductID == productID {
				lines[i].Quantity = quantity
				if err := s.local.Write(ctx, lines); err != nil {
					return fmt.Errorf("write guest cart: %w", err)
				}
				break
			}
		}
	} else {
		if err := s.remote.Update(ctx, s.userID, productID, quantity); err != nil {
			return fmt.Errorf("update cart line: %w", err)
		}
	}
	return s.refreshLocked(ctx)
}

func (s *CartService) removeLocked(ctx context.Context, productID string) error {
	if s.userID == "" {
		lines, err := s.local.Read(ctx)
		if err != nil {
			return fmt.Errorf("read guest cart: %w", err)
		}
		kept := lines[:0]
		for _, line := range lines {
			if line.ProductID != productID {
				kept = append(kept, line)
			}
		}
		if err := s.local.Write(ctx, kept); err != nil {
			return fmt.Errorf("write guest cart: %w", err)
		}
	} else {
		if err := s.remote.Delete(ctx, s.userID, productID); err != nil {
			return fmt.Errorf("delete cart line: %w", err)
		}
	}
	return s.refreshLocked(ctx)
}

func (s *CartService) clearLocked(ctx context.Context) error {
	if s.userID == "" {
		if err := s.local.Clear(ctx); err != nil {
			return fmt.Errorf("clear guest cart: %w", err)
		}
	} else {
		if err := s.remote.DeleteAll(ctx, s.userID); err != nil {
			return fmt.Errorf("clear remote cart: %w", err)
		}
	}
	return s.refreshLocked(ctx)
}

// mergeLocked folds the guest cart into the authenticated user's remote
// cart. Guest quantities are additive: a product present on both sides ends
// up with the sum. Each guest line is removed from the guest store only
// after it has been applied remotely, so a partial failure keeps the
// unapplied lines for the next sign-in and never re-applies applied ones.
func (s *CartService) mergeLocked(ctx context.Context) error {
	if s.userID == "" {
		return ErrUnauthenticated
	}

	guest, err := s.local.Read(ctx)
	if err != nil {
		return fmt.Errorf("read guest cart: %w", err)
	}
	if len(guest) == 0 {
		return nil
	}

	remote, err := s.remote.ListByUser(ctx, s.userID)
	if err != nil {
		return fmt.Errorf("list remote cart: %w", err)
	}
	quantities := make(map[string]int, len(remote))
	for _, line := range remote {
		quantities[line.ProductID] = line.Quantity
	}

	for i, line := range guest {
		if existing, ok := quantities[line.ProductID]; ok {
			err = s.remote.Update(ctx, s.userID, line.ProductID, existing+line.Quantity)
		} else {
			err = s.remote.Insert(ctx, s.userID, line.ProductID, line.Quantity)
		}
		if err != nil {
			return fmt.Errorf("apply guest line %s: %w", line.ProductID, err)
		}
		if werr := s.local.Write(ctx, guest[i+1:]); werr != nil {
			log.Printf("cart: drop merged guest line %s: %v", line.ProductID, werr)
		}
	}

	if err := s.local.Clear(ctx); err != nil {
		log.Printf("cart: clear guest cart after merge: %v", err)
	}
	return nil
}

// refreshLocked re-derives the view from the active store. On failure the
// last successfully derived view stays in place.
func (s *CartService) refreshLocked(ctx context.Context) error {
	lines, err := s.activeLines(ctx)
	if err != nil {
		return err
	}
	s.view = domain.DeriveView(lines)
	return nil
}

func (s *CartService) activeLines(ctx context.Context) ([]domain.CartLine, error) {
	if s.userID == "" {
		lines, err := s.local.Read(ctx)
		if err != nil {
			return nil, fmt.Errorf("read guest cart: %w", err)
		}
		return lines, nil
	}
	lines, err := s.remote.ListByUser(ctx, s.userID)
	if err != nil {
		return nil, fmt.Errorf("list remote cart: %w", err)
	}
	return lines, nil
}

func (s *CartService) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.opTimeout)
}
