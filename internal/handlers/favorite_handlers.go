package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/lumierebeauty/lumiere-golang/internal/models"
)

//
// --- Favorite Handlers ---
//

// GetMyFavorites is the handler for GET /v1/member/favorites
func (h *Handlers) GetMyFavorites(c *gin.Context) {
	userID_raw, _ := c.Get("userID")
	userID := userID_raw.(int64)

	rows, err := h.DB.Query(
		`SELECT id, item_id, name, price, created_at
		 FROM favorites
		 WHERE user_id = ?
		 ORDER BY created_at DESC`, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get favorites"})
		return
	}
	defer rows.Close()

	favorites := []models.Favorite{}
	for rows.Next() {
		var fav models.Favorite
		if err := rows.Scan(&fav.ID, &fav.ItemID, &fav.Name, &fav.Price, &fav.CreatedAt); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan favorite"})
			return
		}
		fav.UserID = userID
		favorites = append(favorites, fav)
	}

	c.JSON(http.StatusOK, gin.H{"favorites": favorites})
}

type AddFavoriteInput struct {
	ItemID string  `json:"itemId" binding:"required"`
	Name   string  `json:"name" binding:"required"`
	Price  float64 `json:"price" binding:"required,gt=0"`
}

// AddFavorite is the handler for POST /v1/member/favorites
//
// Favoriting is idempotent: re-adding an already-favorited item returns the
// existing row instead of erroring, so a double-tap in the UI is harmless.
func (h *Handlers) AddFavorite(c *gin.Context) {
	userID_raw, _ := c.Get("userID")
	userID := userID_raw.(int64)

	var input AddFavoriteInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.DB.Exec(
		`INSERT INTO favorites (user_id, item_id, name, price, created_at)
		 VALUES (?, ?, ?, ?, NOW())`,
		userID, input.ItemID, input.Name, input.Price)
	if err != nil {
		if strings.Contains(err.Error(), "Duplicate entry") {
			var existingID int64
			if qerr := h.DB.QueryRow(
				`SELECT id FROM favorites WHERE user_id = ? AND item_id = ?`,
				userID, input.ItemID).Scan(&existingID); qerr == nil {
				c.JSON(http.StatusOK, gin.H{"id": existingID, "message": "Already favorited"})
				return
			}
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add favorite"})
		return
	}

	favID, _ := result.LastInsertId()
	c.JSON(http.StatusCreated, gin.H{"id": favID})
}

// RemoveFavorite is the handler for DELETE /v1/member/favorites/:itemId
func (h *Handlers) RemoveFavorite(c *gin.Context) {
	userID_raw, _ := c.Get("userID")
	userID := userID_raw.(int64)

	result, err := h.DB.Exec(
		`DELETE FROM favorites WHERE user_id = ? AND item_id = ?`,
		userID, c.Param("itemId"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove favorite"})
		return
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Favorite not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Favorite removed"})
}
