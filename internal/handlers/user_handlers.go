package handlers

import (
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lumierebeauty/lumiere-golang/internal/auth"
	"github.com/lumierebeauty/lumiere-golang/internal/models"
)

//
// --- Auth & Profile Handlers ---
//

// oauthProviders is the allow-list for POST /v1/auth/oauth/:provider.
var oauthProviders = map[string]bool{
	"google":   true,
	"facebook": true,
	"line":     true,
}

type RegisterInput struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	DisplayName string `json:"displayName" binding:"required"`
}

// Register is the handler for POST /v1/auth/register
func (h *Handlers) Register(c *gin.Context) {
	// 1. --- Bind & Validate JSON ---
	var input RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	email := strings.ToLower(strings.TrimSpace(input.Email))

	// 2. --- Hash the Password ---
	var password models.Password
	if err := password.Set(input.Password); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}

	// 3. --- Insert User + Profile in one transaction ---
	tx, err := h.DB.BeginTx(c, nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
		return
	}
	defer tx.Rollback()

	now := time.Now()
	result, err := tx.Exec(
		`INSERT INTO users (role, status, email, password_hash, created_at, updated_at)
		 VALUES ('member', 'active', ?, ?, ?, ?)`,
		email, password.Hash, now, now)
	if err != nil {
		// MySQL duplicate-key on the unique email index.
		if strings.Contains(err.Error(), "Duplicate entry") {
			c.JSON(http.StatusConflict, gin.H{"error": "Email is already registered"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}
	userID, err := result.LastInsertId()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	_, err = tx.Exec(
		`INSERT INTO profiles (user_id, display_name, provider, created_at, updated_at)
		 VALUES (?, ?, 'email', ?, ?)`,
		userID, input.DisplayName, now, now)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create profile"})
		return
	}

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit transaction"})
		return
	}

	// 4. --- Issue the Token ---
	token, err := auth.GenerateToken(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"token": token,
		"user":  gin.H{"id": userID, "email": email, "displayName": input.DisplayName},
	})
}

type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login is the handler for POST /v1/auth/login
func (h *Handlers) Login(c *gin.Context) {
	// 1. --- Bind & Validate JSON ---
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	email := strings.ToLower(strings.TrimSpace(input.Email))

	// 2. --- Find the User ---
	var user models.User
	err := h.DB.QueryRow(
		`SELECT id, role, status, email, password_hash FROM users WHERE email = ?`, email).
		Scan(&user.ID, &user.Role, &user.Status, &user.Email, &user.PasswordHash)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to find user"})
		return
	}
	if user.Status != "active" {
		c.JSON(http.StatusForbidden, gin.H{"error": "Account is disabled"})
		return
	}

	// 3. --- Check the Password ---
	password := models.Password{Hash: user.PasswordHash}
	match, err := password.Matches(input.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check password"})
		return
	}
	if !match {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	// 4. --- Record the Login ---
	h.recordLogin(c, user.ID, "email")

	// 5. --- Issue the Token ---
	token, err := auth.GenerateToken(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  gin.H{"id": user.ID, "email": user.Email, "role": user.Role},
	})
}

type OAuthInput struct {
	Email       string `json:"email" binding:"required,email"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl"`
}

// OAuthLogin is the handler for POST /v1/auth/oauth/:provider
//
// One parameterized endpoint covers every provider on the allow-list. The
// frontend completes the provider's own flow and posts the verified identity
// here; we upsert the account and issue our own token.
func (h *Handlers) OAuthLogin(c *gin.Context) {
	// 1. --- Check the Provider ---
	provider := c.Param("provider")
	if !oauthProviders[provider] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported login provider"})
		return
	}

	// 2. --- Bind & Validate JSON ---
	var input OAuthInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	email := strings.ToLower(strings.TrimSpace(input.Email))

	// 3. --- Find or Create the User ---
	var userID int64
	err := h.DB.QueryRow(`SELECT id FROM users WHERE email = ?`, email).Scan(&userID)
	if err == sql.ErrNoRows {
		tx, txErr := h.DB.BeginTx(c, nil)
		if txErr != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
			return
		}
		defer tx.Rollback()

		now := time.Now()
		// OAuth accounts have no local password.
		result, insErr := tx.Exec(
			`INSERT INTO users (role, status, email, password_hash, created_at, updated_at)
			 VALUES ('member', 'active', ?, '', ?, ?)`,
			email, now, now)
		if insErr != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
			return
		}
		userID, insErr = result.LastInsertId()
		if insErr != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
			return
		}

		_, insErr = tx.Exec(
			`INSERT INTO profiles (user_id, display_name, avatar_url, provider, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			userID, nullIfEmpty(input.DisplayName), nullIfEmpty(input.AvatarURL), provider, now, now)
		if insErr != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create profile"})
			return
		}
		if insErr = tx.Commit(); insErr != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit transaction"})
			return
		}
	} else if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to find user"})
		return
	}

	// 4. --- Record the Login & Issue the Token ---
	h.recordLogin(c, userID, provider)

	token, err := auth.GenerateToken(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  gin.H{"id": userID, "email": email, "provider": provider},
	})
}

type ChangePasswordInput struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=8"`
}

// ChangePassword is the handler for PUT /v1/member/password
func (h *Handlers) ChangePassword(c *gin.Context) {
	userID_raw, _ := c.Get("userID")
	userID := userID_raw.(int64)

	var input ChangePasswordInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var currentHash string
	err := h.DB.QueryRow(`SELECT password_hash FROM users WHERE id = ?`, userID).Scan(&currentHash)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to find user"})
		return
	}
	if currentHash == "" {
		c.JSON(http.StatusConflict, gin.H{"error": "Account uses a social login and has no password"})
		return
	}

	password := models.Password{Hash: currentHash}
	match, err := password.Matches(input.CurrentPassword)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check password"})
		return
	}
	if !match {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Current password is incorrect"})
		return
	}

	var newPassword models.Password
	if err := newPassword.Set(input.NewPassword); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}

	_, err = h.DB.Exec(
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		newPassword.Hash, time.Now(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update password"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password updated"})
}

// GetProfile is the handler for GET /v1/member/profile
func (h *Handlers) GetProfile(c *gin.Context) {
	userID_raw, _ := c.Get("userID")
	userID := userID_raw.(int64)

	var user models.User
	var profile models.Profile
	err := h.DB.QueryRow(
		`SELECT u.id, u.email, u.role, u.created_at,
		        p.display_name, p.avatar_url, p.provider
		 FROM users u
		 JOIN profiles p ON p.user_id = u.id
		 WHERE u.id = ?`, userID).
		Scan(&user.ID, &user.Email, &user.Role, &user.CreatedAt,
			&profile.DisplayName, &profile.AvatarURL, &profile.Provider)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load profile"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":          user.ID,
		"email":       user.Email,
		"role":        user.Role,
		"displayName": profile.DisplayName,
		"avatarUrl":   profile.AvatarURL,
		"provider":    profile.Provider,
		"createdAt":   user.CreatedAt,
	})
}

type UpdateProfileInput struct {
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl"`
}

// UpdateProfile is the handler for PUT /v1/member/profile
func (h *Handlers) UpdateProfile(c *gin.Context) {
	userID_raw, _ := c.Get("userID")
	userID := userID_raw.(int64)

	var input UpdateProfileInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	_, err := h.DB.Exec(
		`UPDATE profiles
		 SET display_name = COALESCE(?, display_name),
		     avatar_url = COALESCE(?, avatar_url),
		     updated_at = ?
		 WHERE user_id = ?`,
		nullIfEmpty(input.DisplayName), nullIfEmpty(input.AvatarURL), time.Now(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Profile updated"})
}

// GetMyLoginLogs is the handler for GET /v1/member/login-logs
func (h *Handlers) GetMyLoginLogs(c *gin.Context) {
	userID_raw, _ := c.Get("userID")
	userID := userID_raw.(int64)

	rows, err := h.DB.Query(
		`SELECT id, ip_address, user_agent, provider, login_at
		 FROM login_logs
		 WHERE user_id = ?
		 ORDER BY login_at DESC
		 LIMIT 50`, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get login logs"})
		return
	}
	defer rows.Close()

	logs := []models.LoginLog{}
	for rows.Next() {
		var entry models.LoginLog
		if err := rows.Scan(&entry.ID, &entry.IPAddress, &entry.UserAgent, &entry.Provider, &entry.LoginAt); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan login log"})
			return
		}
		entry.UserID = userID
		logs = append(logs, entry)
	}

	c.JSON(http.StatusOK, gin.H{"logs": logs})
}

// recordLogin appends to login_logs. A failed insert must never block a
// login, so errors are only logged.
func (h *Handlers) recordLogin(c *gin.Context, userID int64, provider string) {
	_, err := h.DB.Exec(
		`INSERT INTO login_logs (user_id, ip_address, user_agent, provider, login_at)
		 VALUES (?, ?, ?, ?, ?)`,
		userID, c.ClientIP(), c.Request.UserAgent(), provider, time.Now())
	if err != nil {
		h.Log.WithError(err).Warn("failed to record login")
	}
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
