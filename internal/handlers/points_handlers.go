package handlers

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lumierebeauty/lumiere-golang/internal/models"
)

//
// --- Loyalty Points Handlers ---
//
// The balance is never stored; it is always SUM(points) over the ledger.
// Earn rows are written by payment reconciliation, redeem rows here.
//

// GetMyPoints is the handler for GET /v1/member/points
func (h *Handlers) GetMyPoints(c *gin.Context) {
	userID_raw, _ := c.Get("userID")
	userID := userID_raw.(int64)

	var balance sql.NullInt64
	err := h.DB.QueryRow(
		`SELECT SUM(points) FROM points_transactions WHERE user_id = ?`, userID).
		Scan(&balance)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get points balance"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"balance": balance.Int64}) // 0 if NULL
}

// GetMyPointsHistory is the handler for GET /v1/member/points/history
func (h *Handlers) GetMyPointsHistory(c *gin.Context) {
	userID_raw, _ := c.Get("userID")
	userID := userID_raw.(int64)

	rows, err := h.DB.Query(
		`SELECT id, type, points, description, order_id, created_at
		 FROM points_transactions
		 WHERE user_id = ?
		 ORDER BY created_at DESC
		 LIMIT 100`, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get points history"})
		return
	}
	defer rows.Close()

	history := []models.PointsTransaction{}
	for rows.Next() {
		var txn models.PointsTransaction
		err := rows.Scan(&txn.ID, &txn.Type, &txn.Points, &txn.Description,
			&txn.OrderID, &txn.CreatedAt)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan points transaction"})
			return
		}
		txn.UserID = userID
		history = append(history, txn)
	}

	c.JSON(http.StatusOK, gin.H{"history": history})
}

type RedeemPointsInput struct {
	Points      int    `json:"points" binding:"required,gt=0"`
	Description string `json:"description" binding:"required"`
}

// RedeemPoints is the handler for POST /v1/member/points/redeem
func (h *Handlers) RedeemPoints(c *gin.Context) {
	userID_raw, _ := c.Get("userID")
	userID := userID_raw.(int64)

	var input RedeemPointsInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Balance check and debit in one serializable transaction so two
	// concurrent redeems cannot both pass the check.
	tx, err := h.DB.BeginTx(c, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
		return
	}
	defer tx.Rollback()

	var balance sql.NullInt64
	err = tx.QueryRow(
		`SELECT SUM(points) FROM points_transactions WHERE user_id = ?`, userID).
		Scan(&balance)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get points balance"})
		return
	}
	if balance.Int64 < int64(input.Points) {
		c.JSON(http.StatusConflict, gin.H{"error": "Not enough points", "balance": balance.Int64})
		return
	}

	_, err = tx.Exec(
		`INSERT INTO points_transactions (user_id, type, points, description, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		userID, models.PointsTypeRedeem, -input.Points, input.Description, time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to redeem points"})
		return
	}

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit transaction"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Points redeemed",
		"balance": balance.Int64 - int64(input.Points),
	})
}
