package handlers

import (
	"database/sql"
	"net/http"

	"github.com/gin-gonic/gin"
)

//
// --- Dashboard Handler ---
//

// GetDashboard is the handler for GET /v1/member/dashboard
//
// One round trip per card on the member home screen.
func (h *Handlers) GetDashboard(c *gin.Context) {
	userID_raw, _ := c.Get("userID")
	userID := userID_raw.(int64)

	// 1. --- Order Counts & Total Spent ---
	var totalOrders int
	var totalSpent sql.NullFloat64
	err := h.DB.QueryRow(
		`SELECT COUNT(*), SUM(CASE WHEN status IN ('paid', 'shipping', 'delivered') THEN total_amount ELSE 0 END)
		 FROM orders WHERE user_id = ?`, userID).
		Scan(&totalOrders, &totalSpent)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get order stats"})
		return
	}

	var pendingOrders int
	err = h.DB.QueryRow(
		`SELECT COUNT(*) FROM orders WHERE user_id = ? AND status = 'pending'`, userID).
		Scan(&pendingOrders)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get pending orders"})
		return
	}

	// 2. --- Points Balance ---
	var points sql.NullInt64
	err = h.DB.QueryRow(
		`SELECT SUM(points) FROM points_transactions WHERE user_id = ?`, userID).
		Scan(&points)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get points balance"})
		return
	}

	// 3. --- Usable Coupons ---
	var coupons int
	err = h.DB.QueryRow(
		`SELECT COUNT(*)
		 FROM user_coupons uc
		 JOIN coupons cp ON cp.id = uc.coupon_id
		 WHERE uc.user_id = ? AND uc.is_used = 0
		   AND cp.status = 'active' AND cp.end_date > NOW()`, userID).
		Scan(&coupons)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get coupon count"})
		return
	}

	// 4. --- Favorites ---
	var favorites int
	err = h.DB.QueryRow(
		`SELECT COUNT(*) FROM favorites WHERE user_id = ?`, userID).
		Scan(&favorites)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get favorites count"})
		return
	}

	// 5. --- Next Appointment ---
	var nextService, nextSlot sql.NullString
	var nextDate sql.NullTime
	err = h.DB.QueryRow(
		`SELECT service_name, appointment_date, time_slot
		 FROM appointments
		 WHERE user_id = ? AND status = 'booked' AND appointment_date >= CURDATE()
		 ORDER BY appointment_date ASC, time_slot ASC
		 LIMIT 1`, userID).
		Scan(&nextService, &nextDate, &nextSlot)
	if err != nil && err != sql.ErrNoRows {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get next appointment"})
		return
	}

	stats := gin.H{
		"totalOrders":      totalOrders,
		"pendingOrders":    pendingOrders,
		"totalSpent":       totalSpent.Float64,
		"pointsBalance":    points.Int64,
		"availableCoupons": coupons,
		"favorites":        favorites,
	}
	if nextService.Valid {
		stats["nextAppointment"] = gin.H{
			"serviceName": nextService.String,
			"date":        nextDate.Time,
			"timeSlot":    nextSlot.String,
		}
	}

	c.JSON(http.StatusOK, stats)
}
