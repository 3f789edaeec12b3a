package api

import (
	"time"

	"github.com/shopspring/decimal"
)

// User is an account as returned by the auth endpoints.
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone,omitempty"`
	IsAdmin  bool   `json:"is_admin"`
	IsActive bool   `json:"is_active"`
}

// LoginResponse is the body of POST /auth/login.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	User        User   `json:"user"`
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone,omitempty"`
}

// Product is a catalog entry.
type Product struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	OriginalPrice decimal.Decimal `json:"original_price,omitzero"`
	Category      string          `json:"category"`
	Images        []string        `json:"images"`
	Stock         int             `json:"stock"`
	Rating        float64         `json:"rating"`
	ReviewCount   int             `json:"review_count"`
	Views         int             `json:"views"`
}

// Image returns the primary image URL, or "".
func (p Product) Image() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// ProductFilter narrows GET /products/.
type ProductFilter struct {
	Category string
	Search   string
	Skip     int
	Limit    int
}

// CartLine is one item of the server-side cart.
type CartLine struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Image     string          `json:"image"`
	Stock     int             `json:"stock"`
}

// ServerCart is the body of GET /cart/.
type ServerCart struct {
	Items      []CartLine      `json:"items"`
	TotalPrice decimal.Decimal `json:"total_price"`
	TotalItems int             `json:"total_items"`
}

// WishlistEntry is one item of the server-side wishlist.
type WishlistEntry struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Image     string          `json:"image"`
	AddedAt   time.Time       `json:"added_at"`
}

// ShippingAddress is the delivery address of an order.
type ShippingAddress struct {
	FullName   string `json:"full_name"`
	Phone      string `json:"phone"`
	Line1      string `json:"address_line1"`
	Line2      string `json:"address_line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// OrderItem is one line of an order.
type OrderItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name,omitempty"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price,omitzero"`
}

// Order statuses reported by the backend.
const (
	OrderPending   = "pending"
	OrderConfirmed = "confirmed"
	OrderShipped   = "shipped"
	OrderDelivered = "delivered"
	OrderCancelled = "cancelled"
)

// Order is a placed order.
type Order struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id,omitempty"`
	Items           []OrderItem     `json:"items"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	Discount        decimal.Decimal `json:"discount"`
	ShippingCost    decimal.Decimal `json:"shipping_cost"`
	Total           decimal.Decimal `json:"total"`
	CouponCode      string          `json:"coupon_code,omitempty"`
	Status          string          `json:"status"`
	PaymentStatus   string          `json:"payment_status"`
	PaymentMethod   string          `json:"payment_method"`
	ShippingAddress ShippingAddress `json:"shipping_address"`
	CreatedAt       time.Time       `json:"created_at"`
}

// CreateOrderRequest is the body of POST /orders/.
type CreateOrderRequest struct {
	Items           []OrderItem     `json:"items"`
	ShippingAddress ShippingAddress `json:"shipping_address"`
	CouponCode      string          `json:"coupon_code,omitempty"`
	PaymentMethod   string          `json:"payment_method"`
}

// CouponValidation is the result of POST /coupons/validate.
type CouponValidation struct {
	Valid        bool            `json:"valid"`
	Code         string          `json:"code"`
	DiscountType string          `json:"discount_type"`
	Discount     decimal.Decimal `json:"discount"`
	Message      string          `json:"message"`
}

// PaymentOrder is the gateway order created by POST /payment/create-order.
type PaymentOrder struct {
	GatewayOrderID string          `json:"razorpay_order_id"`
	OrderID        string          `json:"order_id"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	KeyID          string          `json:"key_id"`
}

// CreatePaymentRequest is the body of POST /payment/create-order.
type CreatePaymentRequest struct {
	OrderID  string  `json:"order_id"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	Receipt  string  `json:"receipt,omitempty"`
}

// VerifyPaymentRequest is the body of POST /payment/verify-payment.
type VerifyPaymentRequest struct {
	GatewayOrderID   string `json:"razorpay_order_id"`
	GatewayPaymentID string `json:"razorpay_payment_id"`
	Signature        string `json:"razorpay_signature"`
	OrderID          string `json:"order_id"`
}

// VerifyPaymentResponse is the result of a verification call.
type VerifyPaymentResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	OrderID string `json:"order_id"`
}

// Review is a product review.
type Review struct {
	ID           string    `json:"id"`
	ProductID    string    `json:"product_id"`
	UserName     string    `json:"user_name"`
	Rating       int       `json:"rating"`
	Title        string    `json:"title"`
	Comment      string    `json:"comment"`
	HelpfulCount int       `json:"helpful_count"`
	Verified     bool      `json:"verified_purchase"`
	CreatedAt    time.Time `json:"created_at"`
}

// CreateReviewRequest is the body of POST /reviews/.
type CreateReviewRequest struct {
	ProductID string `json:"product_id"`
	Rating    int    `json:"rating"`
	Title     string `json:"title"`
	Comment   string `json:"comment"`
}

// Return types.
const (
	ReturnTypeReturn   = "return"
	ReturnTypeExchange = "exchange"
)

// Return is a return or exchange request.
type Return struct {
	ID         string      `json:"id"`
	OrderID    string      `json:"order_id"`
	Type       string      `json:"type"`
	Reason     string      `json:"reason"`
	Details    string      `json:"details,omitempty"`
	Status     string      `json:"status"`
	Items      []OrderItem `json:"items"`
	AdminNotes string      `json:"admin_notes,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
}

// CreateReturnRequest is the body of POST /returns/.
type CreateReturnRequest struct {
	OrderID string      `json:"order_id"`
	Type    string      `json:"type"`
	Reason  string      `json:"reason"`
	Details string      `json:"details,omitempty"`
	Items   []OrderItem `json:"items"`
}

// Notification is an in-app notification.
type Notification struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// ContactRequest is the body of POST /contact/submit.
type ContactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject,omitempty"`
	Message string `json:"message"`
}

// Ack is the generic {"message": "..."} response.
type Ack struct {
	Message string `json:"message"`
}

// UserUpdate is the body of PUT /admin/users/{id}.
type UserUpdate struct {
	IsActive *bool `json:"is_active,omitempty"`
	IsAdmin  *bool `json:"is_admin,omitempty"`
}

// NewsletterMessage is the body of POST /admin/newsletter/send.
type NewsletterMessage struct {
	Subject string `json:"subject"`
	Content string `json:"content"`
}
