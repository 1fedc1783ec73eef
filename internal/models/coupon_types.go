package models

import (
	"time"
)

// Coupon discount types and statuses.
const (
	CouponTypePercentage = "percentage"
	CouponTypeFixed      = "fixed"

	CouponStatusActive   = "active"
	CouponStatusInactive = "inactive"
	CouponStatusExpired  = "expired"
)

// Coupon is the model for the 'coupons' table (the promotional rule).
type Coupon struct {
	ID            int64      `json:"id" db:"id"`
	Code          string     `json:"code" db:"code"`
	Title         string     `json:"title" db:"title"`
	Description   *string    `json:"description,omitempty" db:"description"`
	Type          string     `json:"type" db:"type"` // percentage | fixed
	DiscountValue float64    `json:"discountValue" db:"discount_value"`
	MinAmount     float64    `json:"minAmount" db:"min_amount"`
	MaxDiscount   *float64   `json:"maxDiscountAmount,omitempty" db:"max_discount_amount"`
	StartDate     *time.Time `json:"startDate,omitempty" db:"start_date"`
	EndDate       time.Time  `json:"endDate" db:"end_date"`
	IsSpecial     bool       `json:"isSpecial" db:"is_special"`
	Status        string     `json:"status" db:"status"`
	CreatedAt     time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time  `json:"updatedAt" db:"updated_at"`
}

// UserCoupon is a per-member claim of a coupon. A member holds at most one
// claim per coupon; a claim goes claimed -> used exactly once, never back.
type UserCoupon struct {
	ID        int64      `json:"id" db:"id"`
	UserID    int64      `json:"userId" db:"user_id"`
	CouponID  int64      `json:"couponId" db:"coupon_id"`
	IsUsed    bool       `json:"isUsed" db:"is_used"`
	UsedAt    *time.Time `json:"usedAt,omitempty" db:"used_at"`
	OrderID   *int64     `json:"orderId,omitempty" db:"order_id"`
	CreatedAt time.Time  `json:"createdAt" db:"created_at"`

	Coupon Coupon `json:"coupon" db:"-"`
}

// DiscountFor computes the discount this coupon grants on an order amount.
// Below the minimum amount the coupon grants nothing. Percentage coupons are
// capped by MaxDiscount when set, and no coupon ever discounts more than the
// amount itself.
func (c *Coupon) DiscountFor(amount float64) float64 {
	if amount < c.MinAmount {
		return 0
	}

	var discount float64
	if c.Type == CouponTypePercentage {
		discount = amount * (c.DiscountValue / 100)
	} else {
		discount = c.DiscountValue
	}

	if c.MaxDiscount != nil && discount > *c.MaxDiscount {
		discount = *c.MaxDiscount
	}

	if discount > amount {
		discount = amount
	}
	return discount
}
