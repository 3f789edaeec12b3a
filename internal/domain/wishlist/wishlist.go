// Package wishlist implements the shopper's wishlist with optimistic updates.
//
// Local changes always apply immediately. The matching server call is
// best-effort: failures are logged and never roll the local change back.
// Fetch is the reconciliation point that replaces local state with the
// server's.
package wishlist

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/studioform/storefront/internal/api"
	"github.com/studioform/storefront/internal/storage"
)

// Item is a wishlisted product.
type Item struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Image     string          `json:"image"`
	AddedAt   time.Time       `json:"added_at"`
}

type snapshot struct {
	Items []Item `json:"items"`
}

// Backend is the server-side wishlist API.
type Backend interface {
	GetWishlist(ctx context.Context) ([]api.WishlistEntry, error)
	AddToWishlist(ctx context.Context, productID string) error
	RemoveFromWishlist(ctx context.Context, productID string) error
}

// Authenticator reports whether server calls can be made.
type Authenticator interface {
	IsAuthenticated() bool
}

var _ Backend = (*api.Client)(nil)

// Store owns the local wishlist.
type Store struct {
	lg      *zap.Logger
	storage storage.Storage
	backend Backend
	auth    Authenticator
	now     func() time.Time

	mu    sync.Mutex
	items []Item
}

// NewStore returns a Store restored from s.
func NewStore(lg *zap.Logger, s storage.Storage, b Backend, auth Authenticator) *Store {
	st := &Store{
		lg:      lg,
		storage: s,
		backend: b,
		auth:    auth,
		now:     time.Now,
	}
	var saved snapshot
	if _, err := storage.LoadJSON(s, storage.KeyWishlist, &saved); err != nil {
		lg.Warn("Discarding unreadable wishlist", zap.Error(err))
	} else {
		st.items = dedupe(saved.Items)
	}
	return st
}

// Add puts item on the wishlist. Adding a product twice is a no-op.
func (s *Store) Add(ctx context.Context, item Item) {
	if item.AddedAt.IsZero() {
		item.AddedAt = s.now()
	}
	added := s.update(func(items []Item) ([]Item, bool) {
		if index(items, item.ProductID) >= 0 {
			return items, false
		}
		return append(items, item), true
	})
	if !added {
		return
	}
	s.remote(ctx, "add", item.ProductID, s.backend.AddToWishlist)
}

// Remove takes productID off the wishlist.
func (s *Store) Remove(ctx context.Context, productID string) {
	removed := s.update(func(items []Item) ([]Item, bool) {
		i := index(items, productID)
		if i < 0 {
			return items, false
		}
		return append(items[:i], items[i+1:]...), true
	})
	if !removed {
		return
	}
	s.remote(ctx, "remove", productID, s.backend.RemoveFromWishlist)
}

// Toggle adds item if absent and removes it otherwise. It reports whether the
// product is on the wishlist afterwards.
func (s *Store) Toggle(ctx context.Context, item Item) bool {
	if item.AddedAt.IsZero() {
		item.AddedAt = s.now()
	}
	var present bool
	s.update(func(items []Item) ([]Item, bool) {
		if i := index(items, item.ProductID); i >= 0 {
			return append(items[:i], items[i+1:]...), true
		}
		present = true
		return append(items, item), true
	})
	if present {
		s.remote(ctx, "add", item.ProductID, s.backend.AddToWishlist)
	} else {
		s.remote(ctx, "remove", item.ProductID, s.backend.RemoveFromWishlist)
	}
	return present
}

// Contains reports whether productID is on the wishlist.
func (s *Store) Contains(productID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return index(s.items, productID) >= 0
}

// Items returns a copy of the wishlist.
func (s *Store) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Item(nil), s.items...)
}

// Fetch replaces the local wishlist with the server's. Without a session, or
// when the server call fails, local state is kept.
func (s *Store) Fetch(ctx context.Context) {
	if !s.auth.IsAuthenticated() {
		return
	}
	entries, err := s.backend.GetWishlist(ctx)
	if err != nil {
		s.lg.Warn("Failed to fetch wishlist, keeping local state", zap.Error(err))
		return
	}
	items := make([]Item, 0, len(entries))
	for _, e := range entries {
		items = append(items, Item{
			ProductID: e.ProductID,
			Name:      e.Name,
			Price:     e.Price,
			Image:     e.Image,
			AddedAt:   e.AddedAt,
		})
	}
	s.update(func([]Item) ([]Item, bool) { return dedupe(items), true })
}

// Reset clears the local wishlist.
func (s *Store) Reset() {
	s.update(func([]Item) ([]Item, bool) { return nil, true })
}

func (s *Store) update(fn func([]Item) ([]Item, bool)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, changed := fn(append([]Item(nil), s.items...))
	if !changed {
		return false
	}
	s.items = next
	if err := storage.SaveJSON(s.storage, storage.KeyWishlist, snapshot{Items: next}); err != nil {
		s.lg.Error("Failed to persist wishlist", zap.Error(err))
	}
	return true
}

func (s *Store) remote(ctx context.Context, op, productID string, call func(context.Context, string) error) {
	if !s.auth.IsAuthenticated() {
		return
	}
	if err := call(ctx, productID); err != nil {
		s.lg.Warn("Wishlist sync failed",
			zap.String("op", op),
			zap.String("product_id", productID),
			zap.Error(err),
		)
	}
}

func index(items []Item, productID string) int {
	for i, it := range items {
		if it.ProductID == productID {
			return i
		}
	}
	return -1
}

func dedupe(items []Item) []Item {
	seen := make(map[string]struct{}, len(items))
	out := items[:0:0]
	for _, it := range items {
		if _, ok := seen[it.ProductID]; ok {
			continue
		}
		seen[it.ProductID] = struct{}{}
		out = append(out, it)
	}
	return out
}
