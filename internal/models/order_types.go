package models

import (
	"database/sql"
	"time"
)

// Order statuses. pending -> paid|failed happens only through payment
// reconciliation; the rest are order-management transitions. Orders are
// never deleted, only status-transitioned.
const (
	OrderStatusPending   = "pending"
	OrderStatusPaid      = "paid"
	OrderStatusShipping  = "shipping"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
	OrderStatusFailed    = "failed"
)

// OrderItem is a line-item snapshot stored inside the order's items JSON.
// Prices are frozen at checkout time.
type OrderItem struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// ShippingInfo is the contact snapshot stored inside the order row.
type ShippingInfo struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Email   string `json:"email"`
}

// Order is the model for the 'orders' table.
type Order struct {
	ID            int64          `json:"id" db:"id"`
	OrderNumber   string         `json:"orderNumber" db:"order_number"`
	UserID        int64          `json:"userId" db:"user_id"`
	Items         []OrderItem    `json:"items" db:"items"` // JSON column
	ShippingInfo  ShippingInfo   `json:"shippingInfo" db:"shipping_info"`
	TotalAmount   float64        `json:"totalAmount" db:"total_amount"`
	Status        string         `json:"status" db:"status"`
	TradeNo       sql.NullString `json:"tradeNo,omitempty" db:"newebpay_trade_no"`
	PaymentMethod sql.NullString `json:"paymentMethod,omitempty" db:"payment_method"`
	CreatedAt     time.Time      `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time      `json:"updatedAt" db:"updated_at"`
}
