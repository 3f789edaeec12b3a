package app

import (
	"context"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/studioform/storefront/internal/domain/cart"
	"github.com/studioform/storefront/internal/domain/wishlist"
)

// AddToCart adds quantity units of a catalog product to the cart. With a
// session the change is mirrored to the server cart on a best-effort basis.
func (a *App) AddToCart(ctx context.Context, productID string, quantity int) (cart.Cart, error) {
	p, err := a.API.GetProduct(ctx, productID)
	if err != nil {
		return cart.Cart{}, errors.Wrap(err, "get product")
	}
	c := a.Cart.AddItem(cart.ItemFromProduct(*p, quantity))
	if a.Session.IsAuthenticated() {
		if it, ok := a.Cart.Item(productID); ok {
			a.mirror("add", productID, a.API.AddToCart(ctx, productID, max(quantity, 1)), it.Quantity)
		}
	}
	return c, nil
}

// SetCartQuantity changes the quantity of a cart line; zero removes it.
func (a *App) SetCartQuantity(ctx context.Context, productID string, quantity int) cart.Cart {
	c := a.Cart.UpdateQuantity(productID, quantity)
	if a.Session.IsAuthenticated() {
		if quantity <= 0 {
			a.mirror("remove", productID, a.API.RemoveFromCart(ctx, productID), 0)
		} else {
			a.mirror("update", productID, a.API.UpdateCartItem(ctx, productID, quantity), quantity)
		}
	}
	return c
}

// RemoveFromCart drops a cart line.
func (a *App) RemoveFromCart(ctx context.Context, productID string) cart.Cart {
	c := a.Cart.RemoveItem(productID)
	if a.Session.IsAuthenticated() {
		a.mirror("remove", productID, a.API.RemoveFromCart(ctx, productID), 0)
	}
	return c
}

func (a *App) mirror(op, productID string, err error, quantity int) {
	if err == nil {
		return
	}
	a.lg.Warn("Server cart out of date",
		zap.String("op", op),
		zap.String("product_id", productID),
		zap.Int("quantity", quantity),
		zap.Error(err),
	)
}

// AddToWishlist puts a catalog product on the wishlist.
func (a *App) AddToWishlist(ctx context.Context, productID string) error {
	p, err := a.API.GetProduct(ctx, productID)
	if err != nil {
		return errors.Wrap(err, "get product")
	}
	a.Wishlist.Add(ctx, wishlist.Item{
		ProductID: p.ID,
		Name:      p.Name,
		Price:     p.Price,
		Image:     p.Image(),
	})
	return nil
}
