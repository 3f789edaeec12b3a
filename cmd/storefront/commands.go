package main

import (
	"context"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/studioform/storefront/internal/api"
	appkg "github.com/studioform/storefront/internal/app"
	"github.com/studioform/storefront/internal/domain/route"
	"github.com/studioform/storefront/internal/domain/session"
	"github.com/studioform/storefront/internal/notice"
	"github.com/studioform/storefront/internal/payment"
)

var commands map[string]command

func init() {
	commands = map[string]command{
		"login":         {usage: "-email <email> -password <password>", route: static(route.Login), run: cmdLogin},
		"register":      {usage: "-email -password -name [-phone]", route: static(route.Register), run: cmdRegister},
		"logout":        {usage: "clear the session, cart and wishlist", route: static(route.Home), run: cmdLogout},
		"whoami":        {usage: "show the current account", route: static(route.Profile), run: cmdWhoami},
		"products":      {usage: "[-category c] [-search q] [-skip n] [-limit n]", route: static(route.Products), run: cmdProducts},
		"product":       {usage: "-id <product>", route: productRoute, run: cmdProduct},
		"cart":          {usage: "show|add|rm|set|clear|sync|pull", route: static(route.Cart), run: cmdCart},
		"wishlist":      {usage: "show|add|rm|fetch", route: static(route.Wishlist), run: cmdWishlist},
		"coupon":        {usage: "-code <code> [-total amount]", route: static(route.Checkout), run: cmdCoupon},
		"checkout":      {usage: "-name -phone -line1 -city -state -postal [-coupon] [-method]", route: static(route.Checkout), run: cmdCheckout},
		"orders":        {usage: "list|show|cancel|pay", route: static(route.Orders), run: cmdOrders},
		"returns":       {usage: "list|create", route: static("/returns"), run: cmdReturns},
		"reviews":       {usage: "list|add|helpful", route: productRoute, run: cmdReviews},
		"notifications": {usage: "list|read", route: static("/notifications"), run: cmdNotifications},
		"subscribe":     {usage: "-email <email>", route: static(route.Home), run: cmdSubscribe},
		"contact":       {usage: "-name -email -message [-subject]", route: static("/contact"), run: cmdContact},
		"status":        {usage: "[-wake] probe the backend and gateway", route: static(route.Home), run: cmdStatus},
		"admin":         {usage: "users|user-set|orders|order-status|returns|return-status|newsletter", route: static("/admin"), run: cmdAdmin},
	}
}

// productRoute maps commands that take -id or -product to the product page.
func productRoute(args []string) string {
	for i, a := range args {
		name, value, ok := strings.Cut(strings.TrimLeft(a, "-"), "=")
		if name != "id" && name != "product" {
			continue
		}
		if !ok && i+1 < len(args) {
			value = args[i+1]
		}
		if value != "" {
			return route.Products + "/" + value
		}
	}
	return route.Products
}

func cmdLogin(ctx context.Context, c *cli, args []string) error {
	fs := newFlags("login", c.env)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := require(fs, map[string]string{"email": *email, "password": *password}); err != nil {
		return err
	}
	u, err := c.app.Login(ctx, *email, *password)
	if err != nil {
		return c.fail("Login failed", err)
	}
	c.notify(notice.Notice{Kind: notice.Success, Title: "Welcome back", Description: u.FullName})
	return c.printJSON(u)
}

func cmdRegister(ctx context.Context, c *cli, args []string) error {
	fs := newFlags("register", c.env)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	name := fs.String("name", "", "full name")
	phone := fs.String("phone", "", "phone number")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := require(fs, map[string]string{"email": *email, "password": *password, "name": *name}); err != nil {
		return err
	}
	u, err := c.app.Register(ctx, api.RegisterRequest{
		Email:    *email,
		Password: *password,
		FullName: *name,
		Phone:    *phone,
	})
	if err != nil {
		return c.fail("Registration failed", err)
	}
	c.notify(notice.Notice{Kind: notice.Success, Title: "Account created", Description: u.Email})
	return c.printJSON(u)
}

func cmdLogout(_ context.Context, c *cli, _ []string) error {
	c.app.Logout()
	c.notify(notice.Notice{Kind: notice.Info, Title: "Logged out"})
	return nil
}

func cmdWhoami(ctx context.Context, c *cli, _ []string) error {
	if !c.app.Session.IsAuthenticated() {
		return c.fail("Not logged in", session.ErrNotAuthenticated)
	}
	u, err := c.app.API.Me(ctx)
	if err != nil {
		return c.fail("Could not load profile", err)
	}
	return c.printJSON(u)
}

func cmdProducts(ctx context.Context, c *cli, args []string) error {
	fs := newFlags("products", c.env)
	var f api.ProductFilter
	fs.StringVar(&f.Category, "category", "", "category filter")
	fs.StringVar(&f.Search, "search", "", "search text")
	fs.IntVar(&f.Skip, "skip", 0, "results to skip")
	fs.IntVar(&f.Limit, "limit", 0, "maximum results")
	if err := fs.Parse(args); err != nil {
		return err
	}
	products, err := c.app.API.ListProducts(ctx, f)
	if err != nil {
		return c.fail("Could not load products", err)
	}
	return c.printJSON(products)
}

func cmdProduct(ctx context.Context, c *cli, args []string) error {
	fs := newFlags("product", c.env)
	id := fs.String("id", "", "product id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := require(fs, map[string]string{"id": *id}); err != nil {
		return err
	}
	p, err := c.app.API.GetProduct(ctx, *id)
	if err != nil {
		return c.fail("Could not load product", err)
	}
	if err := c.app.API.RecordView(ctx, *id); err != nil {
		zctx.From(ctx).Debug("View not recorded", zap.Error(err))
	}
	return c.printJSON(p)
}

func cmdCart(ctx context.Context, c *cli, args []string) error {
	sub, args := subcommand(args, "show")
	fs := newFlags("cart "+sub, c.env)
	id := fs.String("id", "", "product id")
	qty := fs.Int("qty", 1, "quantity")
	if err := fs.Parse(args); err != nil {
		return err
	}

	switch sub {
	case "show":
		return c.printJSON(c.app.Cart.Snapshot())
	case "add":
		if err := require(fs, map[string]string{"id": *id}); err != nil {
			return err
		}
		cart, err := c.app.AddToCart(ctx, *id, *qty)
		if err != nil {
			return c.fail("Could not add to cart", err)
		}
		c.notify(notice.Notice{Kind: notice.Success, Title: "Added to cart"})
		return c.printJSON(cart)
	case "rm":
		if err := require(fs, map[string]string{"id": *id}); err != nil {
			return err
		}
		return c.printJSON(c.app.RemoveFromCart(ctx, *id))
	case "set":
		if err := require(fs, map[string]string{"id": *id}); err != nil {
			return err
		}
		return c.printJSON(c.app.SetCartQuantity(ctx, *id, *qty))
	case "clear":
		c.app.Cart.ClearCart(ctx)
		c.notify(notice.Notice{Kind: notice.Info, Title: "Cart cleared"})
		return nil
	case "sync":
		if err := c.app.Cart.SyncToBackend(ctx); err != nil {
			return c.fail("Cart sync failed", err)
		}
		c.notify(notice.Notice{Kind: notice.Success, Title: "Cart synced"})
		return nil
	case "pull":
		cart, err := c.app.Cart.FetchFromBackend(ctx)
		if err != nil {
			return c.fail("Could not load cart", err)
		}
		return c.printJSON(cart)
	default:
		return errors.Errorf("unknown cart command %q", sub)
	}
}

func cmdWishlist(ctx context.Context, c *cli, args []string) error {
	sub, args := subcommand(args, "show")
	fs := newFlags("wishlist "+sub, c.env)
	id := fs.String("id", "", "product id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	switch sub {
	case "show":
		return c.printJSON(c.app.Wishlist.Items())
	case "add":
		if err := require(fs, map[string]string{"id": *id}); err != nil {
			return err
		}
		if err := c.app.AddToWishlist(ctx, *id); err != nil {
			return c.fail("Could not add to wishlist", err)
		}
		c.notify(notice.Notice{Kind: notice.Success, Title: "Added to wishlist"})
		return nil
	case "rm":
		if err := require(fs, map[string]string{"id": *id}); err != nil {
			return err
		}
		c.app.Wishlist.Remove(ctx, *id)
		return nil
	case "fetch":
		c.app.Wishlist.Fetch(ctx)
		return c.printJSON(c.app.Wishlist.Items())
	default:
		return errors.Errorf("unknown wishlist command %q", sub)
	}
}

func cmdCoupon(ctx context.Context, c *cli, args []string) error {
	fs := newFlags("coupon", c.env)
	code := fs.String("code", "", "coupon code")
	total := fs.String("total", "", "order subtotal (defaults to the cart total)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := require(fs, map[string]string{"code": *code}); err != nil {
		return err
	}
	subtotal := c.app.Cart.Snapshot().TotalPrice
	if *total != "" {
		v, err := decimal.NewFromString(*total)
		if err != nil {
			return errors.Wrap(err, "parse -total")
		}
		subtotal = v
	}
	v, err := c.app.API.ValidateCoupon(ctx, strings.ToUpper(*code), subtotal.InexactFloat64())
	if err != nil {
		return c.fail("Invalid coupon", err)
	}
	if !v.Valid {
		c.notify(notice.Notice{Kind: notice.Warning, Title: "Coupon not applied", Description: v.Message})
	}
	return c.printJSON(v)
}

func cmdCheckout(ctx context.Context, c *cli, args []string) error {
	fs := newFlags("checkout", c.env)
	var addr api.ShippingAddress
	fs.StringVar(&addr.FullName, "name", "", "recipient name")
	fs.StringVar(&addr.Phone, "phone", "", "recipient phone")
	fs.StringVar(&addr.Line1, "line1", "", "address line 1")
	fs.StringVar(&addr.Line2, "line2", "", "address line 2")
	fs.StringVar(&addr.City, "city", "", "city")
	fs.StringVar(&addr.State, "state", "", "state")
	fs.StringVar(&addr.PostalCode, "postal", "", "postal code")
	fs.StringVar(&addr.Country, "country", "India", "country")
	coupon := fs.String("coupon", "", "coupon code")
	method := fs.String("method", appkg.PaymentMethodOnline, "payment method")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := require(fs, map[string]string{
		"name":   addr.FullName,
		"phone":  addr.Phone,
		"line1":  addr.Line1,
		"city":   addr.City,
		"state":  addr.State,
		"postal": addr.PostalCode,
	}); err != nil {
		return err
	}

	res, err := c.app.Checkout(ctx, appkg.CheckoutRequest{
		Address:       addr,
		CouponCode:    strings.ToUpper(*coupon),
		PaymentMethod: *method,
	}, c.gateway())
	if err != nil {
		return c.fail("Checkout failed", err)
	}
	if err := c.printJSON(res.Order); err != nil {
		return err
	}
	if res.Payment != nil && !res.Payment.OK() {
		return errors.Errorf("payment %s", res.Payment.Reason)
	}
	return nil
}

func (c *cli) gateway() payment.Gateway {
	return payment.NewTerminalGateway(nil, c.app.Config().Payment.ScriptURL, c.env.in, c.env.err)
}

func cmdOrders(ctx context.Context, c *cli, args []string) error {
	sub, args := subcommand(args, "list")
	fs := newFlags("orders "+sub, c.env)
	id := fs.String("id", "", "order id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	switch sub {
	case "list":
		orders, err := c.app.API.ListOrders(ctx)
		if err != nil {
			return c.fail("Could not load orders", err)
		}
		return c.printJSON(orders)
	case "show":
		if err := require(fs, map[string]string{"id": *id}); err != nil {
			return err
		}
		o, err := c.app.API.GetOrder(ctx, *id)
		if err != nil {
			return c.fail("Could not load order", err)
		}
		return c.printJSON(o)
	case "cancel":
		if err := require(fs, map[string]string{"id": *id}); err != nil {
			return err
		}
		if err := c.app.API.CancelOrder(ctx, *id); err != nil {
			return c.fail("Could not cancel order", err)
		}
		c.notify(notice.Notice{Kind: notice.Success, Title: "Order cancelled"})
		return nil
	case "pay":
		if err := require(fs, map[string]string{"id": *id}); err != nil {
			return err
		}
		return payOrder(ctx, c, *id)
	default:
		return errors.Errorf("unknown orders command %q", sub)
	}
}

// payOrder retries payment for an existing unpaid order.
func payOrder(ctx context.Context, c *cli, id string) error {
	o, err := c.app.API.GetOrder(ctx, id)
	if err != nil {
		return c.fail("Could not load order", err)
	}
	flow, err := c.app.PaymentFlow(c.gateway())
	if err != nil {
		return err
	}
	res := flow.Run(ctx, payment.Checkout{
		OrderID:  o.ID,
		Amount:   o.Total,
		Currency: c.app.Config().Payment.Currency,
	})
	c.notify(res.Notice)
	if !res.OK() {
		return errors.Errorf("payment %s", res.Reason)
	}
	return nil
}

func cmdReturns(ctx context.Context, c *cli, args []string) error {
	sub, args := subcommand(args, "list")
	fs := newFlags("returns "+sub, c.env)
	order := fs.String("order", "", "order id")
	kind := fs.String("type", api.ReturnTypeReturn, "return or exchange")
	reason := fs.String("reason", "", "reason")
	details := fs.String("details", "", "details")
	product := fs.String("product", "", "product id")
	qty := fs.Int("qty", 1, "quantity")
	if err := fs.Parse(args); err != nil {
		return err
	}

	switch sub {
	case "list":
		rs, err := c.app.API.ListReturns(ctx)
		if err != nil {
			return c.fail("Could not load returns", err)
		}
		return c.printJSON(rs)
	case "create":
		if err := require(fs, map[string]string{"order": *order, "reason": *reason, "product": *product}); err != nil {
			return err
		}
		if *kind != api.ReturnTypeReturn && *kind != api.ReturnTypeExchange {
			return errors.Errorf("-type must be %q or %q", api.ReturnTypeReturn, api.ReturnTypeExchange)
		}
		r, err := c.app.API.CreateReturn(ctx, api.CreateReturnRequest{
			OrderID: *order,
			Type:    *kind,
			Reason:  *reason,
			Details: *details,
			Items:   []api.OrderItem{{ProductID: *product, Quantity: *qty}},
		})
		if err != nil {
			return c.fail("Could not request return", err)
		}
		c.notify(notice.Notice{Kind: notice.Success, Title: "Return requested"})
		return c.printJSON(r)
	default:
		return errors.Errorf("unknown returns command %q", sub)
	}
}

func cmdReviews(ctx context.Context, c *cli, args []string) error {
	sub, args := subcommand(args, "list")
	fs := newFlags("reviews "+sub, c.env)
	product := fs.String("product", "", "product id")
	id := fs.String("id", "", "review id")
	rating := fs.Int("rating", 5, "rating from 1 to 5")
	title := fs.String("title", "", "review title")
	comment := fs.String("comment", "", "review text")
	if err := fs.Parse(args); err != nil {
		return err
	}

	switch sub {
	case "list":
		if err := require(fs, map[string]string{"product": *product}); err != nil {
			return err
		}
		rs, err := c.app.API.ProductReviews(ctx, *product)
		if err != nil {
			return c.fail("Could not load reviews", err)
		}
		return c.printJSON(rs)
	case "add":
		if err := require(fs, map[string]string{"product": *product, "comment": *comment}); err != nil {
			return err
		}
		if *rating < 1 || *rating > 5 {
			return errors.New("-rating must be between 1 and 5")
		}
		r, err := c.app.API.CreateReview(ctx, api.CreateReviewRequest{
			ProductID: *product,
			Rating:    *rating,
			Title:     *title,
			Comment:   *comment,
		})
		if err != nil {
			return c.fail("Could not post review", err)
		}
		c.notify(notice.Notice{Kind: notice.Success, Title: "Review posted"})
		return c.printJSON(r)
	case "helpful":
		if err := require(fs, map[string]string{"id": *id}); err != nil {
			return err
		}
		if err := c.app.API.MarkReviewHelpful(ctx, *id); err != nil {
			return c.fail("Could not record vote", err)
		}
		c.notify(notice.Notice{Kind: notice.Success, Title: "Thanks for your feedback"})
		return nil
	default:
		return errors.Errorf("unknown reviews command %q", sub)
	}
}

func cmdNotifications(ctx context.Context, c *cli, args []string) error {
	sub, args := subcommand(args, "list")
	fs := newFlags("notifications "+sub, c.env)
	id := fs.String("id", "", "notification id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	switch sub {
	case "list":
		ns, err := c.app.API.ListNotifications(ctx)
		if err != nil {
			return c.fail("Could not load notifications", err)
		}
		return c.printJSON(ns)
	case "read":
		if err := require(fs, map[string]string{"id": *id}); err != nil {
			return err
		}
		if err := c.app.API.MarkNotificationRead(ctx, *id); err != nil {
			return c.fail("Could not update notification", err)
		}
		return nil
	default:
		return errors.Errorf("unknown notifications command %q", sub)
	}
}

func cmdSubscribe(ctx context.Context, c *cli, args []string) error {
	fs := newFlags("subscribe", c.env)
	email := fs.String("email", "", "email address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := require(fs, map[string]string{"email": *email}); err != nil {
		return err
	}
	ack, err := c.app.API.Subscribe(ctx, *email)
	if err != nil {
		return c.fail("Subscription failed", err)
	}
	c.notify(notice.Notice{Kind: notice.Success, Title: "Subscribed", Description: ack.Message})
	return nil
}

func cmdContact(ctx context.Context, c *cli, args []string) error {
	fs := newFlags("contact", c.env)
	var req api.ContactRequest
	fs.StringVar(&req.Name, "name", "", "your name")
	fs.StringVar(&req.Email, "email", "", "your email")
	fs.StringVar(&req.Subject, "subject", "", "subject")
	fs.StringVar(&req.Message, "message", "", "message")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := require(fs, map[string]string{"name": req.Name, "email": req.Email, "message": req.Message}); err != nil {
		return err
	}
	ack, err := c.app.API.Contact(ctx, req)
	if err != nil {
		return c.fail("Message not sent", err)
	}
	c.notify(notice.Notice{Kind: notice.Success, Title: "Message sent", Description: ack.Message})
	return nil
}

func cmdStatus(ctx context.Context, c *cli, args []string) error {
	fs := newFlags("status", c.env)
	wake := fs.Bool("wake", false, "wait for a sleeping backend to start")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *wake {
		if err := c.app.WakeBackend(ctx); err != nil {
			c.notify(notice.FromError("Backend unavailable", err))
		}
	}
	st := c.app.Status(ctx)
	if err := c.printJSON(st); err != nil {
		return err
	}
	if st.Status != "ok" {
		return errors.New("unhealthy")
	}
	return nil
}

func cmdAdmin(ctx context.Context, c *cli, args []string) error {
	if !c.app.Session.IsAdmin() {
		return c.fail("Admin access required", errAdminOnly)
	}
	sub, args := subcommand(args, "orders")
	fs := newFlags("admin "+sub, c.env)
	id := fs.String("id", "", "user, order or return id")
	status := fs.String("status", "", "new status")
	notes := fs.String("notes", "", "admin notes")
	active := fs.String("active", "", "set account active (true/false)")
	admin := fs.String("admin", "", "set admin flag (true/false)")
	subject := fs.String("subject", "", "newsletter subject")
	content := fs.String("content", "", "newsletter body")
	if err := fs.Parse(args); err != nil {
		return err
	}

	switch sub {
	case "users":
		users, err := c.app.API.AdminListUsers(ctx)
		if err != nil {
			return c.fail("Could not load users", err)
		}
		return c.printJSON(users)
	case "user-set":
		if err := require(fs, map[string]string{"id": *id}); err != nil {
			return err
		}
		var upd api.UserUpdate
		var err error
		if upd.IsActive, err = optionalBool("active", *active); err != nil {
			return err
		}
		if upd.IsAdmin, err = optionalBool("admin", *admin); err != nil {
			return err
		}
		u, err := c.app.API.AdminUpdateUser(ctx, *id, upd)
		if err != nil {
			return c.fail("Could not update user", err)
		}
		return c.printJSON(u)
	case "orders":
		orders, err := c.app.API.AdminListOrders(ctx)
		if err != nil {
			return c.fail("Could not load orders", err)
		}
		return c.printJSON(orders)
	case "order-status":
		if err := require(fs, map[string]string{"id": *id, "status": *status}); err != nil {
			return err
		}
		if err := c.app.API.AdminSetOrderStatus(ctx, *id, *status); err != nil {
			return c.fail("Could not update order", err)
		}
		c.notify(notice.Notice{Kind: notice.Success, Title: "Order updated", Description: *status})
		return nil
	case "returns":
		rs, err := c.app.API.AdminListReturns(ctx)
		if err != nil {
			return c.fail("Could not load returns", err)
		}
		return c.printJSON(rs)
	case "return-status":
		if err := require(fs, map[string]string{"id": *id, "status": *status}); err != nil {
			return err
		}
		if err := c.app.API.AdminUpdateReturn(ctx, *id, *status, *notes); err != nil {
			return c.fail("Could not update return", err)
		}
		c.notify(notice.Notice{Kind: notice.Success, Title: "Return updated", Description: *status})
		return nil
	case "newsletter":
		if err := require(fs, map[string]string{"subject": *subject, "content": *content}); err != nil {
			return err
		}
		ack, err := c.app.API.AdminSendNewsletter(ctx, api.NewsletterMessage{Subject: *subject, Content: *content})
		if err != nil {
			return c.fail("Newsletter not sent", err)
		}
		c.notify(notice.Notice{Kind: notice.Success, Title: "Newsletter sent", Description: ack.Message})
		return nil
	default:
		return errors.Errorf("unknown admin command %q", sub)
	}
}

func optionalBool(name, v string) (*bool, error) {
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, errors.Wrapf(err, "parse -%s", name)
	}
	return &b, nil
}
