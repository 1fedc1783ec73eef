package handlers

import (
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lumierebeauty/lumiere-golang/internal/models"
)

//
// --- Coupon Handlers ---
//

// GetMyCoupons is the handler for GET /v1/member/coupons
//
// Returns the member's claims split into 'available' and 'used'. Claims on
// coupons past their end date are reported but flagged so the UI can grey
// them out.
func (h *Handlers) GetMyCoupons(c *gin.Context) {
	userID_raw, _ := c.Get("userID")
	userID := userID_raw.(int64)

	query := `
		SELECT uc.id, uc.coupon_id, uc.is_used, uc.used_at, uc.order_id, uc.created_at,
		       cp.code, cp.title, cp.description, cp.type, cp.discount_value,
		       cp.min_amount, cp.max_discount_amount, cp.start_date, cp.end_date,
		       cp.is_special, cp.status
		FROM user_coupons uc
		JOIN coupons cp ON cp.id = uc.coupon_id
		WHERE uc.user_id = ?
		ORDER BY uc.created_at DESC`

	rows, err := h.DB.Query(query, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get coupons"})
		return
	}
	defer rows.Close()

	now := time.Now()
	available := []gin.H{}
	used := []gin.H{}

	for rows.Next() {
		var claim models.UserCoupon
		err := rows.Scan(&claim.ID, &claim.CouponID, &claim.IsUsed, &claim.UsedAt,
			&claim.OrderID, &claim.CreatedAt,
			&claim.Coupon.Code, &claim.Coupon.Title, &claim.Coupon.Description,
			&claim.Coupon.Type, &claim.Coupon.DiscountValue, &claim.Coupon.MinAmount,
			&claim.Coupon.MaxDiscount, &claim.Coupon.StartDate, &claim.Coupon.EndDate,
			&claim.Coupon.IsSpecial, &claim.Coupon.Status)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan coupon"})
			return
		}

		entry := gin.H{
			"id":      claim.ID,
			"coupon":  claim.Coupon,
			"usedAt":  claim.UsedAt,
			"orderId": claim.OrderID,
			"expired": now.After(claim.Coupon.EndDate),
		}
		if claim.IsUsed {
			used = append(used, entry)
		} else {
			available = append(available, entry)
		}
	}

	c.JSON(http.StatusOK, gin.H{"available": available, "used": used})
}

type ClaimCouponInput struct {
	Code string `json:"code" binding:"required"`
}

// ClaimCoupon is the handler for POST /v1/member/coupons/claim
func (h *Handlers) ClaimCoupon(c *gin.Context) {
	userID_raw, _ := c.Get("userID")
	userID := userID_raw.(int64)

	var input ClaimCouponInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	code := strings.ToUpper(strings.TrimSpace(input.Code))

	// 1. --- Find an active, in-window coupon by code ---
	var coupon models.Coupon
	err := h.DB.QueryRow(
		`SELECT id, code, title, type, discount_value, min_amount, end_date
		 FROM coupons
		 WHERE code = ? AND status = 'active'
		   AND (start_date IS NULL OR start_date <= NOW())
		   AND end_date > NOW()`, code).
		Scan(&coupon.ID, &coupon.Code, &coupon.Title, &coupon.Type,
			&coupon.DiscountValue, &coupon.MinAmount, &coupon.EndDate)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Coupon code is invalid or expired"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to find coupon"})
		return
	}

	// 2. --- Claim it (unique index on user_id+coupon_id stops doubles) ---
	result, err := h.DB.Exec(
		`INSERT INTO user_coupons (user_id, coupon_id, is_used, created_at)
		 VALUES (?, ?, 0, ?)`,
		userID, coupon.ID, time.Now())
	if err != nil {
		if strings.Contains(err.Error(), "Duplicate entry") {
			c.JSON(http.StatusConflict, gin.H{"error": "Coupon already claimed"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to claim coupon"})
		return
	}
	claimID, _ := result.LastInsertId()

	c.JSON(http.StatusCreated, gin.H{"id": claimID, "coupon": coupon})
}

type CreateCouponInput struct {
	Code          string   `json:"code" binding:"required"`
	Title         string   `json:"title" binding:"required"`
	Description   string   `json:"description"`
	Type          string   `json:"type" binding:"required,oneof=percentage fixed"`
	DiscountValue float64  `json:"discountValue" binding:"required,gt=0"`
	MinAmount     float64  `json:"minAmount"`
	MaxDiscount   *float64 `json:"maxDiscountAmount"`
	StartDate     *string  `json:"startDate"`
	EndDate       string   `json:"endDate" binding:"required"`
	IsSpecial     bool     `json:"isSpecial"`
}

// CreateCoupon is the handler for POST /v1/staff/coupons
func (h *Handlers) CreateCoupon(c *gin.Context) {
	var input CreateCouponInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	endDate, err := time.Parse(time.RFC3339, input.EndDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "endDate must be RFC3339"})
		return
	}
	var startDate interface{}
	if input.StartDate != nil {
		parsed, err := time.Parse(time.RFC3339, *input.StartDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "startDate must be RFC3339"})
			return
		}
		startDate = parsed
	}

	now := time.Now()
	result, err := h.DB.Exec(
		`INSERT INTO coupons (code, title, description, type, discount_value, min_amount,
		                      max_discount_amount, start_date, end_date, is_special, status,
		                      created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 'active', ?, ?)`,
		strings.ToUpper(strings.TrimSpace(input.Code)), input.Title,
		nullIfEmpty(input.Description), input.Type, input.DiscountValue,
		input.MinAmount, input.MaxDiscount, startDate, endDate, input.IsSpecial,
		now, now)
	if err != nil {
		if strings.Contains(err.Error(), "Duplicate entry") {
			c.JSON(http.StatusConflict, gin.H{"error": "Coupon code already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create coupon"})
		return
	}

	couponID, _ := result.LastInsertId()
	c.JSON(http.StatusCreated, gin.H{"id": couponID, "message": "Coupon created"})
}
