package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	trequire "github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	appkg "github.com/studioform/storefront/internal/app"
	"github.com/studioform/storefront/internal/storage"
)

// --- Mock implementations ---

type shopServer struct {
	mu     sync.Mutex
	cart   map[string]int
	orders []string
	views  int
}

func (s *shopServer) handler() http.Handler {
	mux := http.NewServeMux()
	writeJSON := func(w http.ResponseWriter, v any) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}
	authed := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer tok" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = io.WriteString(w, `{"detail":"Not authenticated"}`)
				return
			}
			next(w, r)
		}
	}

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]string{"status": "healthy"})
	})
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.PostForm.Get("password") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"detail":"Incorrect email or password"}`)
			return
		}
		writeJSON(w, map[string]any{
			"access_token": "tok",
			"user":         map[string]any{"id": "u1", "email": r.PostForm.Get("username"), "full_name": "Asha"},
		})
	})
	mux.HandleFunc("GET /products/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []map[string]any{{"id": "p1", "name": "Lamp " + r.URL.Query().Get("category"), "price": "49.90"}})
	})
	mux.HandleFunc("GET /products/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"id": r.PathValue("id"), "name": "Lamp", "price": "49.90", "stock": 3})
	})
	mux.HandleFunc("POST /products/{id}/view", func(w http.ResponseWriter, _ *http.Request) {
		s.mu.Lock()
		s.views++
		s.mu.Unlock()
		writeJSON(w, map[string]string{"message": "ok"})
	})
	mux.HandleFunc("GET /cart/", authed(func(w http.ResponseWriter, _ *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		items := []map[string]any{}
		for id, q := range s.cart {
			items = append(items, map[string]any{"product_id": id, "name": id, "price": "10", "quantity": q})
		}
		writeJSON(w, map[string]any{"items": items})
	}))
	mux.HandleFunc("DELETE /cart/clear", authed(func(w http.ResponseWriter, _ *http.Request) {
		s.mu.Lock()
		s.cart = map[string]int{}
		s.mu.Unlock()
		writeJSON(w, map[string]string{"message": "cleared"})
	}))
	mux.HandleFunc("POST /cart/add", authed(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ProductID string `json:"product_id"`
			Quantity  int    `json:"quantity"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		s.mu.Lock()
		s.cart[req.ProductID] += req.Quantity
		s.mu.Unlock()
		writeJSON(w, map[string]string{"message": "added"})
	}))
	mux.HandleFunc("GET /wishlist/", authed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, []any{})
	}))
	mux.HandleFunc("PUT /orders/{id}/cancel", authed(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.orders = append(s.orders, "cancel:"+r.PathValue("id"))
		s.mu.Unlock()
		writeJSON(w, map[string]string{"message": "cancelled"})
	}))
	return mux
}

type harness struct {
	t     *testing.T
	cfg   *appkg.Config
	store storage.Storage
	srv   *shopServer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	srv := &shopServer{cart: map[string]int{}}
	ts := httptest.NewServer(srv.handler())
	t.Cleanup(ts.Close)

	cfg := &appkg.Config{
		APIURL:   ts.URL,
		StateDir: t.TempDir(),
		HTTP:     appkg.HTTPConfig{Timeout: 5 * time.Second},
		Payment: appkg.PaymentConfig{
			VerifyTimeout:  5 * time.Second,
			VerifyAttempts: 1,
			WakeAttempts:   1,
			Currency:       "INR",
		},
	}
	return &harness{t: t, cfg: cfg, store: storage.NewMemoryStorage(), srv: srv}
}

// run executes one CLI invocation. State persists across calls through the
// shared storage, like separate processes sharing a state dir.
func (h *harness) run(args ...string) (stdout, stderr string, err error) {
	var out, errOut bytes.Buffer
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err = run(ctx, zaptest.NewLogger(h.t), args, env{
		in:   strings.NewReader(""),
		out:  &out,
		err:  &errOut,
		opts: appkg.Options{Storage: h.store},
		load: func(string) (*appkg.Config, error) { return h.cfg, nil },
	})
	return out.String(), errOut.String(), err
}

func TestRun_Usage(t *testing.T) {
	h := newHarness(t)

	_, stderr, err := h.run()
	trequire.ErrorIs(t, err, errUsage)
	assert.Contains(t, stderr, "Commands:")
	assert.Contains(t, stderr, "checkout")

	_, _, err = h.run("teleport")
	trequire.Error(t, err)
	assert.Contains(t, err.Error(), `unknown command "teleport"`)
}

func TestRun_MissingFlags(t *testing.T) {
	h := newHarness(t)

	_, _, err := h.run("login", "-email", "a@b.c")
	trequire.Error(t, err)
	assert.Contains(t, err.Error(), "missing -password")
}

func TestRun_LoginSyncsCart(t *testing.T) {
	h := newHarness(t)

	_, _, err := h.run("cart", "add", "-id", "p1", "-qty", "2")
	trequire.NoError(t, err)
	assert.Empty(t, h.srv.cart, "anonymous cart stays local")

	stdout, stderr, err := h.run("login", "-email", "a@b.c", "-password", "secret")
	trequire.NoError(t, err)
	assert.Contains(t, stdout, `"email": "a@b.c"`)
	assert.Contains(t, stderr, "Welcome back")

	h.srv.mu.Lock()
	assert.Equal(t, map[string]int{"p1": 2}, h.srv.cart)
	h.srv.mu.Unlock()

	stdout, _, err = h.run("cart", "show")
	trequire.NoError(t, err)
	var c struct {
		TotalItems int `json:"total_items"`
	}
	trequire.NoError(t, json.Unmarshal([]byte(stdout), &c))
	assert.Equal(t, 2, c.TotalItems)
}

func TestRun_LoginFailure(t *testing.T) {
	h := newHarness(t)

	_, stderr, err := h.run("login", "-email", "a@b.c", "-password", "wrong")
	trequire.Error(t, err)
	assert.Contains(t, stderr, "Login failed")
	assert.Contains(t, stderr, "Incorrect email or password")
}

func TestRun_Logout(t *testing.T) {
	h := newHarness(t)

	_, _, err := h.run("login", "-email", "a@b.c", "-password", "secret")
	trequire.NoError(t, err)
	_, _, err = h.run("cart", "add", "-id", "p1")
	trequire.NoError(t, err)

	_, _, err = h.run("logout")
	trequire.NoError(t, err)

	stdout, _, err := h.run("cart", "show")
	trequire.NoError(t, err)
	assert.Contains(t, stdout, `"total_items": 0`)

	_, stderr, err := h.run("orders", "cancel", "-id", "o1")
	trequire.Error(t, err, "no session after logout")
	assert.Contains(t, stderr, "Please log in")
}

func TestRun_Products(t *testing.T) {
	h := newHarness(t)

	stdout, _, err := h.run("products", "-category", "desk")
	trequire.NoError(t, err)
	assert.Contains(t, stdout, "Lamp desk")

	stdout, _, err = h.run("product", "-id", "p9")
	trequire.NoError(t, err)
	assert.Contains(t, stdout, `"id": "p9"`)
	assert.Equal(t, 1, h.srv.views)
}

func TestRun_OrdersCancel(t *testing.T) {
	h := newHarness(t)

	_, _, err := h.run("login", "-email", "a@b.c", "-password", "secret")
	trequire.NoError(t, err)
	_, stderr, err := h.run("orders", "cancel", "-id", "o1")
	trequire.NoError(t, err)
	assert.Contains(t, stderr, "Order cancelled")
	assert.Equal(t, []string{"cancel:o1"}, h.srv.orders)
}

func TestRun_AdminRequiresAdmin(t *testing.T) {
	h := newHarness(t)

	_, _, err := h.run("login", "-email", "a@b.c", "-password", "secret")
	trequire.NoError(t, err)
	_, _, err = h.run("admin", "users")
	trequire.ErrorIs(t, err, errAdminOnly)
}

func TestRun_Status(t *testing.T) {
	h := newHarness(t)

	stdout, _, err := h.run("status")
	trequire.NoError(t, err)
	assert.Contains(t, stdout, `"status": "ok"`)
}

func TestProductRoute(t *testing.T) {
	for _, tt := range []struct {
		args []string
		want string
	}{
		{args: []string{"-id", "p1"}, want: "/products/p1"},
		{args: []string{"-id=p2"}, want: "/products/p2"},
		{args: []string{"list", "--product", "p3"}, want: "/products/p3"},
		{args: nil, want: "/products"},
	} {
		assert.Equal(t, tt.want, productRoute(tt.args), "%v", tt.args)
	}
}

func TestOptionalBool(t *testing.T) {
	v, err := optionalBool("active", "")
	trequire.NoError(t, err)
	assert.Nil(t, v)

	v, err = optionalBool("active", "false")
	trequire.NoError(t, err)
	trequire.NotNil(t, v)
	assert.False(t, *v)

	_, err = optionalBool("active", "maybe")
	trequire.Error(t, err)
}
