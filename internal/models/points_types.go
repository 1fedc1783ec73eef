package models

import "time"

// Points transaction types.
const (
	PointsTypeEarn   = "earn"
	PointsTypeRedeem = "redeem"
)

// PointsPerDollar controls loyalty earning: 1 point per NT$100 paid.
const PointsPerDollar = 100

// PointsTransaction is the model for the 'points_transactions' ledger.
// A member's balance is the sum of the points column (redeems are negative).
type PointsTransaction struct {
	ID          int64     `json:"id" db:"id"`
	UserID      int64     `json:"userId" db:"user_id"`
	Type        string    `json:"type" db:"type"` // earn | redeem
	Points      int       `json:"points" db:"points"`
	Description string    `json:"description" db:"description"`
	OrderID     *int64    `json:"orderId,omitempty" db:"order_id"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}

// EarnedPoints returns the loyalty points granted for a paid amount.
func EarnedPoints(amount float64) int {
	if amount <= 0 {
		return 0
	}
	return int(amount) / PointsPerDollar
}
