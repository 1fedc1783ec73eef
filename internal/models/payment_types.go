package models

import (
	"database/sql"
	"time"
)

// Payment statuses. pending -> success|failed, terminal either way.
// A failed payment is retried with a brand-new order/payment pair,
// never by resurrecting the old row.
const (
	PaymentStatusPending = "pending"
	PaymentStatusSuccess = "success"
	PaymentStatusFailed  = "failed"
)

// Payment is the model for the 'payments' table. Exactly one row per order.
type Payment struct {
	ID              int64          `json:"id" db:"id"`
	OrderID         int64          `json:"orderId" db:"order_id"`
	MerchantOrderNo string         `json:"merchantOrderNo" db:"merchant_order_no"`
	Amount          float64        `json:"amount" db:"amount"`
	Status          string         `json:"status" db:"status"`
	TradeNo         sql.NullString `json:"tradeNo,omitempty" db:"newebpay_trade_no"`
	PaymentType     sql.NullString `json:"paymentType,omitempty" db:"payment_type"`
	ResponseCode    sql.NullString `json:"responseCode,omitempty" db:"response_code"`
	ResponseMsg     sql.NullString `json:"responseMsg,omitempty" db:"response_msg"`
	AuthBank        sql.NullString `json:"authBank,omitempty" db:"auth_bank"`
	ResponseData    sql.NullString `json:"-" db:"response_data"` // raw decoded notify JSON
	CreatedAt       time.Time      `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time      `json:"updatedAt" db:"updated_at"`
}
