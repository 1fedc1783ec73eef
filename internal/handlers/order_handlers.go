package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lumierebeauty/lumiere-golang/internal/models"
)

//
// --- Order Handlers (Member + Staff) ---
//

// validStatusTransitions for staff order management. Payment reconciliation
// owns pending -> paid|failed and is deliberately absent here.
var validStatusTransitions = map[string][]string{
	models.OrderStatusPaid:     {models.OrderStatusShipping, models.OrderStatusCancelled},
	models.OrderStatusShipping: {models.OrderStatusDelivered},
}

// GetMyOrders is the handler for GET /v1/member/orders
func (h *Handlers) GetMyOrders(c *gin.Context) {
	userID_raw, _ := c.Get("userID")
	userID := userID_raw.(int64)

	query := `
		SELECT id, order_number, items, shipping_info, total_amount, status,
		       newebpay_trade_no, payment_method, created_at, updated_at
		FROM orders
		WHERE user_id = ?
		ORDER BY created_at DESC`

	rows, err := h.DB.Query(query, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get orders"})
		return
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		order, err := scanOrder(rows, userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan order"})
			return
		}
		orders = append(orders, *order)
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// GetOrder is the handler for GET /v1/member/orders/:id
func (h *Handlers) GetOrder(c *gin.Context) {
	userID_raw, _ := c.Get("userID")
	userID := userID_raw.(int64)

	query := `
		SELECT id, order_number, items, shipping_info, total_amount, status,
		       newebpay_trade_no, payment_method, created_at, updated_at
		FROM orders
		WHERE id = ? AND user_id = ?`

	row := h.DB.QueryRow(query, c.Param("id"), userID)
	order, err := scanOrder(row, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get order"})
		return
	}

	c.JSON(http.StatusOK, order)
}

// CancelOrder is the handler for POST /v1/member/orders/:id/cancel
//
// Members can only cancel orders that never reached the gateway's terminal
// state. The conditional WHERE keeps a racing notify from being clobbered:
// if the notify lands first, zero rows match and the cancel is refused.
func (h *Handlers) CancelOrder(c *gin.Context) {
	userID_raw, _ := c.Get("userID")
	userID := userID_raw.(int64)

	result, err := h.DB.Exec(
		`UPDATE orders SET status = 'cancelled', updated_at = ?
		 WHERE id = ? AND user_id = ? AND status = 'pending'`,
		time.Now(), c.Param("id"), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to cancel order"})
		return
	}

	affected, err := result.RowsAffected()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to cancel order"})
		return
	}
	if affected == 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Order is not pending and cannot be cancelled"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Order cancelled"})
}

type UpdateOrderStatusInput struct {
	Status string `json:"status" binding:"required"`
}

// UpdateOrderStatus is the handler for PATCH /v1/staff/orders/:id/status
func (h *Handlers) UpdateOrderStatus(c *gin.Context) {
	// 1. --- Bind & Validate JSON ---
	var input UpdateOrderStatusInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// 2. --- Load the Current Status ---
	var currentStatus string
	err := h.DB.QueryRow(`SELECT status FROM orders WHERE id = ?`, c.Param("id")).Scan(&currentStatus)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get order"})
		return
	}

	// 3. --- Check the Transition ---
	allowed := false
	for _, next := range validStatusTransitions[currentStatus] {
		if next == input.Status {
			allowed = true
			break
		}
	}
	if !allowed {
		c.JSON(http.StatusConflict, gin.H{
			"error": "Cannot transition order from '" + currentStatus + "' to '" + input.Status + "'",
		})
		return
	}

	// 4. --- Apply, guarded by the status we just read ---
	result, err := h.DB.Exec(
		`UPDATE orders SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		input.Status, time.Now(), c.Param("id"), currentStatus)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update order"})
		return
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Order changed concurrently, try again"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Order status updated", "status": input.Status})
}

// rowScanner lets scanOrder work for both QueryRow and Query results.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner, userID int64) (*models.Order, error) {
	var order models.Order
	var itemsJSON, shippingJSON []byte

	err := row.Scan(&order.ID, &order.OrderNumber, &itemsJSON, &shippingJSON,
		&order.TotalAmount, &order.Status, &order.TradeNo, &order.PaymentMethod,
		&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return nil, err
	}
	order.UserID = userID

	if err := json.Unmarshal(itemsJSON, &order.Items); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(shippingJSON, &order.ShippingInfo); err != nil {
		return nil, err
	}
	return &order, nil
}
