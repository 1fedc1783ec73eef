package handlers

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lumierebeauty/lumiere-golang/internal/models"
)

//
// --- Address Handlers ---
//

// GetMyAddresses is the handler for GET /v1/member/addresses
func (h *Handlers) GetMyAddresses(c *gin.Context) {
	userID_raw, _ := c.Get("userID")
	userID := userID_raw.(int64)

	rows, err := h.DB.Query(
		`SELECT id, name, phone, address_line_1, address_line_2, city, postal_code, is_default, created_at, updated_at
		 FROM addresses
		 WHERE user_id = ?
		 ORDER BY is_default DESC, created_at DESC`, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get addresses"})
		return
	}
	defer rows.Close()

	addresses := []models.Address{}
	for rows.Next() {
		var addr models.Address
		err := rows.Scan(&addr.ID, &addr.Name, &addr.Phone, &addr.AddressLine1,
			&addr.AddressLine2, &addr.City, &addr.PostalCode, &addr.IsDefault,
			&addr.CreatedAt, &addr.UpdatedAt)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan address"})
			return
		}
		addr.UserID = userID
		addresses = append(addresses, addr)
	}

	c.JSON(http.StatusOK, gin.H{"addresses": addresses})
}

type AddressInput struct {
	Name         string  `json:"name" binding:"required"`
	Phone        *string `json:"phone"`
	AddressLine1 string  `json:"addressLine1" binding:"required"`
	AddressLine2 *string `json:"addressLine2"`
	City         string  `json:"city" binding:"required"`
	PostalCode   string  `json:"postalCode"`
	IsDefault    bool    `json:"isDefault"`
}

// CreateAddress is the handler for POST /v1/member/addresses
func (h *Handlers) CreateAddress(c *gin.Context) {
	userID_raw, _ := c.Get("userID")
	userID := userID_raw.(int64)

	var input AddressInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tx, err := h.DB.BeginTx(c, nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
		return
	}
	defer tx.Rollback()

	// A member's first address is always the default.
	var count int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM addresses WHERE user_id = ?`, userID).Scan(&count); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count addresses"})
		return
	}
	isDefault := input.IsDefault || count == 0

	// At most one default per member: demote the old one inside the same tx.
	if isDefault && count > 0 {
		if _, err := tx.Exec(`UPDATE addresses SET is_default = 0 WHERE user_id = ?`, userID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update default address"})
			return
		}
	}

	now := time.Now()
	result, err := tx.Exec(
		`INSERT INTO addresses (user_id, name, phone, address_line_1, address_line_2, city, postal_code, is_default, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		userID, input.Name, input.Phone, input.AddressLine1, input.AddressLine2,
		input.City, input.PostalCode, isDefault, now, now)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create address"})
		return
	}
	addressID, _ := result.LastInsertId()

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit transaction"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": addressID, "isDefault": isDefault})
}

// UpdateAddress is the handler for PUT /v1/member/addresses/:id
func (h *Handlers) UpdateAddress(c *gin.Context) {
	userID_raw, _ := c.Get("userID")
	userID := userID_raw.(int64)

	var input AddressInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tx, err := h.DB.BeginTx(c, nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
		return
	}
	defer tx.Rollback()

	if input.IsDefault {
		if _, err := tx.Exec(`UPDATE addresses SET is_default = 0 WHERE user_id = ?`, userID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update default address"})
			return
		}
	}

	result, err := tx.Exec(
		`UPDATE addresses
		 SET name = ?, phone = ?, address_line_1 = ?, address_line_2 = ?, city = ?, postal_code = ?, is_default = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		input.Name, input.Phone, input.AddressLine1, input.AddressLine2, input.City,
		input.PostalCode, input.IsDefault, time.Now(), c.Param("id"), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update address"})
		return
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		// Distinguish "no such row" from "nothing changed".
		var exists int
		err := tx.QueryRow(`SELECT 1 FROM addresses WHERE id = ? AND user_id = ?`, c.Param("id"), userID).Scan(&exists)
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Address not found"})
			return
		}
	}

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit transaction"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Address updated"})
}

// DeleteAddress is the handler for DELETE /v1/member/addresses/:id
func (h *Handlers) DeleteAddress(c *gin.Context) {
	userID_raw, _ := c.Get("userID")
	userID := userID_raw.(int64)

	result, err := h.DB.Exec(
		`DELETE FROM addresses WHERE id = ? AND user_id = ?`, c.Param("id"), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete address"})
		return
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Address not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Address deleted"})
}

// SetDefaultAddress is the handler for POST /v1/member/addresses/:id/default
func (h *Handlers) SetDefaultAddress(c *gin.Context) {
	userID_raw, _ := c.Get("userID")
	userID := userID_raw.(int64)

	tx, err := h.DB.BeginTx(c, nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
		return
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`UPDATE addresses SET is_default = 0 WHERE user_id = ?`, userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update default address"})
		return
	}

	result, err := tx.Exec(
		`UPDATE addresses SET is_default = 1, updated_at = ? WHERE id = ? AND user_id = ?`,
		time.Now(), c.Param("id"), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to set default address"})
		return
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Address not found"})
		return
	}

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit transaction"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Default address updated"})
}
