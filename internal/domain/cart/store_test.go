package cart

import (
	"context"
	"encoding/json"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/studioform/storefront/internal/api"
	"github.com/studioform/storefront/internal/domain/session"
	"github.com/studioform/storefront/internal/storage"
)

// --- Mock implementations ---

// mockBackend models the server cart as product id -> quantity.
type mockBackend struct {
	mu       sync.Mutex
	lines    map[string]int
	order    []string
	calls    []string
	clearErr error
	addErr   map[string]error
	getErr   error
	products map[string]api.CartLine
}

func newMockBackend() *mockBackend {
	return &mockBackend{lines: map[string]int{}, addErr: map[string]error{}}
}

func (m *mockBackend) GetCart(context.Context) (*api.ServerCart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "get")
	if m.getErr != nil {
		return nil, m.getErr
	}
	sc := &api.ServerCart{}
	for _, id := range m.order {
		l := m.products[id]
		l.ProductID = id
		l.Quantity = m.lines[id]
		sc.Items = append(sc.Items, l)
	}
	return sc, nil
}

func (m *mockBackend) AddToCart(_ context.Context, productID string, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "add:"+productID)
	if err := m.addErr[productID]; err != nil {
		return err
	}
	if _, ok := m.lines[productID]; !ok {
		m.order = append(m.order, productID)
	}
	m.lines[productID] += quantity
	return nil
}

func (m *mockBackend) ClearCart(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "clear")
	if m.clearErr != nil {
		return m.clearErr
	}
	m.lines = map[string]int{}
	m.order = nil
	return nil
}

type staticAuth bool

func (a staticAuth) IsAuthenticated() bool { return bool(a) }

func price(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestStore(t *testing.T, b Backend, authed bool) *Store {
	t.Helper()
	return NewStore(zaptest.NewLogger(t), storage.NewMemoryStorage(), b, staticAuth(authed))
}

func assertTotals(t *testing.T, c Cart) {
	t.Helper()
	want := decimal.Zero
	n := 0
	for _, it := range c.Items {
		assert.True(t, it.Subtotal.Equal(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))),
			"subtotal of %s", it.ProductID)
		want = want.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
		n += it.Quantity
	}
	assert.True(t, c.TotalPrice.Equal(want), "total %s != %s", c.TotalPrice, want)
	assert.Equal(t, n, c.TotalItems)
}

func TestStore_TotalsHoldForRandomSequences(t *testing.T) {
	ids := []string{"p1", "p2", "p3", "p4"}
	prices := map[string]decimal.Decimal{
		"p1": price("500"),
		"p2": price("19.99"),
		"p3": price("0.10"),
		"p4": price("1249.50"),
	}
	rng := rand.New(rand.NewPCG(1, 2))
	s := newTestStore(t, newMockBackend(), false)

	for range 500 {
		id := ids[rng.IntN(len(ids))]
		switch rng.IntN(3) {
		case 0:
			s.AddItem(Item{ProductID: id, Name: id, UnitPrice: prices[id], Quantity: rng.IntN(4)})
		case 1:
			s.RemoveItem(id)
		case 2:
			s.UpdateQuantity(id, rng.IntN(6)-1)
		}
		c := s.Snapshot()
		assertTotals(t, c)
		seen := map[string]bool{}
		for _, it := range c.Items {
			require.False(t, seen[it.ProductID], "duplicate line %s", it.ProductID)
			require.Positive(t, it.Quantity)
			seen[it.ProductID] = true
		}
	}
}

func TestStore_AddSameProductTwiceMerges(t *testing.T) {
	s := newTestStore(t, newMockBackend(), false)

	s.AddItem(Item{ProductID: "p", UnitPrice: price("500"), Quantity: 1})
	c := s.AddItem(Item{ProductID: "p", UnitPrice: price("500"), Quantity: 2})

	require.Len(t, c.Items, 1)
	assert.Equal(t, 3, c.Items[0].Quantity)
	assert.True(t, c.Items[0].Subtotal.Equal(price("1500")))
	assert.True(t, c.TotalPrice.Equal(price("1500")))
	assert.Equal(t, 3, c.TotalItems)
}

func TestStore_AddNonPositiveQuantityCountsAsOne(t *testing.T) {
	s := newTestStore(t, newMockBackend(), false)

	c := s.AddItem(Item{ProductID: "p", UnitPrice: price("10"), Quantity: 0})
	assert.Equal(t, 1, c.Items[0].Quantity)
	c = s.AddItem(Item{ProductID: "p", UnitPrice: price("10"), Quantity: -5})
	assert.Equal(t, 2, c.Items[0].Quantity)
}

func TestStore_UpdateQuantityZeroEqualsRemove(t *testing.T) {
	seed := func(s *Store) {
		s.AddItem(Item{ProductID: "a", UnitPrice: price("1.5"), Quantity: 2})
		s.AddItem(Item{ProductID: "b", UnitPrice: price("3"), Quantity: 1})
	}
	viaUpdate := newTestStore(t, newMockBackend(), false)
	viaRemove := newTestStore(t, newMockBackend(), false)
	seed(viaUpdate)
	seed(viaRemove)

	got := viaUpdate.UpdateQuantity("a", 0)
	want := viaRemove.RemoveItem("a")
	assert.Equal(t, want.Items, got.Items)
	assert.True(t, want.TotalPrice.Equal(got.TotalPrice))
	assert.Equal(t, want.TotalItems, got.TotalItems)
}

func TestStore_UpdateQuantity(t *testing.T) {
	s := newTestStore(t, newMockBackend(), false)
	s.AddItem(Item{ProductID: "a", UnitPrice: price("2.25"), Quantity: 1})

	c := s.UpdateQuantity("a", 4)
	assert.True(t, c.Items[0].Subtotal.Equal(price("9")))

	c = s.UpdateQuantity("missing", 3)
	require.Len(t, c.Items, 1)
	assertTotals(t, c)
}

func TestStore_ClearCartIssuesServerDelete(t *testing.T) {
	b := newMockBackend()
	s := newTestStore(t, b, true)
	s.AddItem(Item{ProductID: "a", UnitPrice: price("1"), Quantity: 1})

	s.ClearCart(context.Background())

	c := s.Snapshot()
	assert.Empty(t, c.Items)
	assert.True(t, c.TotalPrice.IsZero())
	assert.Equal(t, []string{"clear"}, b.calls)
}

func TestStore_ClearCartServerFailureSwallowed(t *testing.T) {
	b := newMockBackend()
	b.clearErr = errors.New("down")
	s := newTestStore(t, b, true)
	s.AddItem(Item{ProductID: "a", UnitPrice: price("1"), Quantity: 1})

	s.ClearCart(context.Background())
	assert.Empty(t, s.Snapshot().Items)
}

func TestStore_ClearCartAnonymousSkipsServer(t *testing.T) {
	b := newMockBackend()
	s := newTestStore(t, b, false)
	s.AddItem(Item{ProductID: "a", UnitPrice: price("1"), Quantity: 1})

	s.ClearCart(context.Background())
	assert.Empty(t, s.Snapshot().Items)
	assert.Empty(t, b.calls)
}

func TestStore_SyncAfterLogin(t *testing.T) {
	b := newMockBackend()
	auth := staticAuth(false)
	s := NewStore(zaptest.NewLogger(t), storage.NewMemoryStorage(), b, &auth)

	// Two units of P added while logged out.
	s.AddItem(Item{ProductID: "P", Name: "Desk mat", UnitPrice: price("500"), Quantity: 1})
	s.AddItem(Item{ProductID: "P", Name: "Desk mat", UnitPrice: price("500"), Quantity: 1})
	assert.Empty(t, b.calls)

	auth = true
	require.NoError(t, s.SyncToBackend(context.Background()))

	assert.Equal(t, []string{"clear", "add:P"}, b.calls)
	assert.Equal(t, map[string]int{"P": 2}, b.lines)
}

func TestStore_SyncReplacesServerContents(t *testing.T) {
	b := newMockBackend()
	b.lines["stale"] = 5
	b.order = []string{"stale"}
	s := newTestStore(t, b, true)
	s.AddItem(Item{ProductID: "a", UnitPrice: price("1"), Quantity: 3})
	s.AddItem(Item{ProductID: "b", UnitPrice: price("1"), Quantity: 1})

	require.NoError(t, s.SyncToBackend(context.Background()))
	assert.Equal(t, map[string]int{"a": 3, "b": 1}, b.lines)
}

func TestStore_SyncPartialFailure(t *testing.T) {
	b := newMockBackend()
	b.addErr["b"] = &api.Error{Status: 400, Detail: "Insufficient stock"}
	s := newTestStore(t, b, true)
	for _, id := range []string{"a", "b", "c"} {
		s.AddItem(Item{ProductID: id, UnitPrice: price("1"), Quantity: 1})
	}

	err := s.SyncToBackend(context.Background())
	var syncErr *SyncError
	require.True(t, errors.As(err, &syncErr))
	assert.Equal(t, 1, syncErr.Synced)
	assert.Equal(t, 3, syncErr.Total)
	assert.True(t, api.IsStatus(err, 400))

	// The server keeps what was added before the failure.
	assert.Equal(t, map[string]int{"a": 1}, b.lines)
	// The local cart is untouched.
	assert.Len(t, s.Snapshot().Items, 3)
}

func TestStore_SyncClearFailure(t *testing.T) {
	b := newMockBackend()
	b.clearErr = errors.New("down")
	s := newTestStore(t, b, true)
	s.AddItem(Item{ProductID: "a", UnitPrice: price("1"), Quantity: 1})

	err := s.SyncToBackend(context.Background())
	var syncErr *SyncError
	require.True(t, errors.As(err, &syncErr))
	assert.Zero(t, syncErr.Synced)
	assert.Equal(t, []string{"clear"}, b.calls)
}

func TestStore_SyncRequiresSession(t *testing.T) {
	b := newMockBackend()
	s := newTestStore(t, b, false)

	err := s.SyncToBackend(context.Background())
	require.ErrorIs(t, err, session.ErrNotAuthenticated)
	assert.Empty(t, b.calls)
}

func TestStore_FetchFromBackend(t *testing.T) {
	b := newMockBackend()
	b.products = map[string]api.CartLine{
		"x": {Name: "Lamp", Price: price("19.99"), Stock: 4},
	}
	b.lines["x"] = 2
	b.order = []string{"x"}
	s := newTestStore(t, b, true)
	s.AddItem(Item{ProductID: "local", UnitPrice: price("1"), Quantity: 1})

	c, err := s.FetchFromBackend(context.Background())
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, "x", c.Items[0].ProductID)
	assert.Equal(t, 4, c.Items[0].StockLimit)
	assert.True(t, c.TotalPrice.Equal(price("39.98")))
}

func TestStore_FetchFailureKeepsLocal(t *testing.T) {
	b := newMockBackend()
	b.getErr = errors.New("down")
	s := newTestStore(t, b, true)
	s.AddItem(Item{ProductID: "local", UnitPrice: price("1"), Quantity: 1})

	_, err := s.FetchFromBackend(context.Background())
	require.Error(t, err)
	assert.Len(t, s.Snapshot().Items, 1)
}

func TestStore_PersistsAcrossRestarts(t *testing.T) {
	mem := storage.NewMemoryStorage()
	first := NewStore(zaptest.NewLogger(t), mem, newMockBackend(), staticAuth(false))
	first.AddItem(Item{ProductID: "a", Name: "Pen", UnitPrice: price("2.50"), Quantity: 2})

	second := NewStore(zaptest.NewLogger(t), mem, newMockBackend(), staticAuth(false))
	c := second.Snapshot()
	require.Len(t, c.Items, 1)
	assert.Equal(t, "Pen", c.Items[0].Name)
	assert.True(t, c.TotalPrice.Equal(price("5")))
}

func TestStore_SnapshotFieldNames(t *testing.T) {
	mem := storage.NewMemoryStorage()
	s := NewStore(zaptest.NewLogger(t), mem, newMockBackend(), staticAuth(false))
	s.AddItem(Item{ProductID: "a", Name: "Pen", UnitPrice: price("2.50"), Quantity: 2, StockLimit: 9})

	raw, err := mem.Get(storage.KeyCart)
	require.NoError(t, err)
	var snap struct {
		Items []map[string]json.RawMessage `json:"items"`
	}
	require.NoError(t, json.Unmarshal(raw, &snap))
	require.Len(t, snap.Items, 1)
	for _, key := range []string{"product_id", "name", "unit_price", "quantity", "image", "stock_limit", "subtotal"} {
		assert.Contains(t, snap.Items[0], key)
	}
	assert.JSONEq(t, `"2.5"`, string(snap.Items[0]["unit_price"]))
}

func TestStore_ConcurrentAddsDoNotLoseIncrements(t *testing.T) {
	s := newTestStore(t, newMockBackend(), false)

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.AddItem(Item{ProductID: "p", UnitPrice: price("1"), Quantity: 1})
		}()
	}
	wg.Wait()

	c := s.Snapshot()
	require.Len(t, c.Items, 1)
	assert.Equal(t, 50, c.Items[0].Quantity)
	assert.Equal(t, 50, c.TotalItems)
}

func TestCart_OrderItems(t *testing.T) {
	c := Cart{Items: []Item{{ProductID: "a", Name: "A", UnitPrice: price("3"), Quantity: 2}}}
	items := c.OrderItems()
	require.Len(t, items, 1)
	assert.Equal(t, "a", items[0].ProductID)
	assert.Equal(t, 2, items[0].Quantity)
}
