package cart

import (
	"context"
	"sync"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/studioform/storefront/internal/api"
	"github.com/studioform/storefront/internal/domain/session"
	"github.com/studioform/storefront/internal/storage"
)

// Backend is the server-side cart API.
type Backend interface {
	GetCart(ctx context.Context) (*api.ServerCart, error)
	AddToCart(ctx context.Context, productID string, quantity int) error
	ClearCart(ctx context.Context) error
}

// Authenticator reports whether server calls can be made.
type Authenticator interface {
	IsAuthenticated() bool
}

var (
	_ Backend       = (*api.Client)(nil)
	_ Authenticator = (*session.Store)(nil)
)

// Store owns the local cart. It is safe for concurrent use: each mutation
// reads and replaces the whole state under a lock.
type Store struct {
	lg      *zap.Logger
	storage storage.Storage
	backend Backend
	auth    Authenticator

	mu    sync.Mutex
	state Cart
}

// NewStore returns a Store restored from s.
func NewStore(lg *zap.Logger, s storage.Storage, b Backend, auth Authenticator) *Store {
	st := &Store{
		lg:      lg,
		storage: s,
		backend: b,
		auth:    auth,
	}
	var saved Cart
	ok, err := storage.LoadJSON(s, storage.KeyCart, &saved)
	switch {
	case err != nil:
		lg.Warn("Discarding unreadable cart", zap.Error(err))
	case ok:
		for i := range saved.Items {
			saved.Items[i].recompute()
		}
		saved.CalculateTotal()
		st.state = saved
	}
	return st
}

// mutate applies fn to the state and persists the result. fn reports whether
// anything changed.
func (s *Store) mutate(fn func(c *Cart) bool) Cart {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state.clone()
	if !fn(&next) {
		return s.state.clone()
	}
	next.CalculateTotal()
	s.state = next
	if err := storage.SaveJSON(s.storage, storage.KeyCart, next); err != nil {
		s.lg.Error("Failed to persist cart", zap.Error(err))
	}
	return next.clone()
}

// AddItem adds item to the cart. An existing line for the same product has
// its quantity increased instead. A non-positive quantity counts as one.
func (s *Store) AddItem(item Item) Cart {
	if item.Quantity <= 0 {
		item.Quantity = 1
	}
	return s.mutate(func(c *Cart) bool {
		if i := c.index(item.ProductID); i >= 0 {
			c.Items[i].Quantity += item.Quantity
			c.Items[i].recompute()
			return true
		}
		item.recompute()
		c.Items = append(c.Items, item)
		return true
	})
}

// RemoveItem drops the line for productID.
func (s *Store) RemoveItem(productID string) Cart {
	return s.mutate(func(c *Cart) bool {
		i := c.index(productID)
		if i < 0 {
			return false
		}
		c.Items = append(c.Items[:i], c.Items[i+1:]...)
		return true
	})
}

// UpdateQuantity sets the quantity of a line. A quantity of zero or less
// removes it. Unknown products are ignored.
func (s *Store) UpdateQuantity(productID string, quantity int) Cart {
	if quantity <= 0 {
		return s.RemoveItem(productID)
	}
	return s.mutate(func(c *Cart) bool {
		i := c.index(productID)
		if i < 0 {
			return false
		}
		c.Items[i].Quantity = quantity
		c.Items[i].recompute()
		return true
	})
}

// ClearCart empties the local cart and, with a session, the server cart.
// Server failures are logged only.
func (s *Store) ClearCart(ctx context.Context) {
	s.ResetLocal()
	if !s.auth.IsAuthenticated() {
		return
	}
	if err := s.backend.ClearCart(ctx); err != nil {
		s.lg.Warn("Failed to clear server cart", zap.Error(err))
	}
}

// ResetLocal empties the local cart without touching the server.
func (s *Store) ResetLocal() {
	s.mutate(func(c *Cart) bool {
		*c = Cart{}
		return true
	})
}

// Snapshot returns a copy of the cart.
func (s *Store) Snapshot() Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Item returns the line for productID.
func (s *Store) Item(productID string) (Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.state.index(productID); i >= 0 {
		return s.state.Items[i], true
	}
	return Item{}, false
}

// SyncToBackend replaces the server cart with the local one. The server cart
// is cleared first and every local line is then added one by one. The first
// failure stops the sync and is returned as *SyncError; lines added before
// it stay on the server.
func (s *Store) SyncToBackend(ctx context.Context) error {
	if !s.auth.IsAuthenticated() {
		return session.ErrNotAuthenticated
	}
	items := s.Snapshot().Items

	if err := s.backend.ClearCart(ctx); err != nil {
		return &SyncError{Total: len(items), Err: errors.Wrap(err, "clear server cart")}
	}
	for i, it := range items {
		if err := s.backend.AddToCart(ctx, it.ProductID, it.Quantity); err != nil {
			return &SyncError{
				Synced: i,
				Total:  len(items),
				Err:    errors.Wrapf(err, "add %s", it.ProductID),
			}
		}
	}
	s.lg.Info("Cart synced", zap.Int("items", len(items)))
	return nil
}

// FetchFromBackend replaces the local cart with the server cart.
func (s *Store) FetchFromBackend(ctx context.Context) (Cart, error) {
	if !s.auth.IsAuthenticated() {
		return Cart{}, session.ErrNotAuthenticated
	}
	sc, err := s.backend.GetCart(ctx)
	if err != nil {
		return Cart{}, errors.Wrap(err, "get server cart")
	}
	items := make([]Item, 0, len(sc.Items))
	for _, l := range sc.Items {
		items = append(items, Item{
			ProductID:  l.ProductID,
			Name:       l.Name,
			UnitPrice:  l.Price,
			Quantity:   l.Quantity,
			Image:      l.Image,
			StockLimit: l.Stock,
		})
	}
	return s.mutate(func(c *Cart) bool {
		c.Items = items
		for i := range c.Items {
			c.Items[i].recompute()
		}
		return true
	}), nil
}

// OrderItems converts the cart into order lines.
func (c Cart) OrderItems() []api.OrderItem {
	out := make([]api.OrderItem, 0, len(c.Items))
	for _, it := range c.Items {
		out = append(out, api.OrderItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			Price:     it.UnitPrice,
		})
	}
	return out
}

// ItemFromProduct builds a cart line for quantity units of p.
func ItemFromProduct(p api.Product, quantity int) Item {
	return Item{
		ProductID:  p.ID,
		Name:       p.Name,
		UnitPrice:  p.Price,
		Quantity:   quantity,
		Image:      p.Image(),
		StockLimit: p.Stock,
		Subtotal:   decimal.Zero,
	}
}
