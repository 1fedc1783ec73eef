package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lumierebeauty/lumiere-golang/internal/models"
)

//
// --- Appointment Handlers ---
//

// timeSlots the salon accepts bookings for.
var timeSlots = map[string]bool{
	"10:00": true, "11:30": true, "13:00": true, "14:30": true,
	"16:00": true, "17:30": true, "19:00": true,
}

// GetMyAppointments is the handler for GET /v1/member/appointments
func (h *Handlers) GetMyAppointments(c *gin.Context) {
	userID_raw, _ := c.Get("userID")
	userID := userID_raw.(int64)

	rows, err := h.DB.Query(
		`SELECT id, service_name, appointment_date, time_slot, status, notes, created_at, updated_at
		 FROM appointments
		 WHERE user_id = ?
		 ORDER BY appointment_date DESC, time_slot DESC`, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get appointments"})
		return
	}
	defer rows.Close()

	appointments := []models.Appointment{}
	for rows.Next() {
		var appt models.Appointment
		err := rows.Scan(&appt.ID, &appt.ServiceName, &appt.Date, &appt.TimeSlot,
			&appt.Status, &appt.Notes, &appt.CreatedAt, &appt.UpdatedAt)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan appointment"})
			return
		}
		appt.UserID = userID
		appointments = append(appointments, appt)
	}

	c.JSON(http.StatusOK, gin.H{"appointments": appointments})
}

type BookAppointmentInput struct {
	ServiceName string `json:"serviceName" binding:"required"`
	Date        string `json:"date" binding:"required"` // YYYY-MM-DD
	TimeSlot    string `json:"timeSlot" binding:"required"`
	Notes       string `json:"notes"`
}

// BookAppointment is the handler for POST /v1/member/appointments
func (h *Handlers) BookAppointment(c *gin.Context) {
	userID_raw, _ := c.Get("userID")
	userID := userID_raw.(int64)

	var input BookAppointmentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	date, err := time.Parse("2006-01-02", input.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return
	}
	if date.Before(time.Now().Truncate(24 * time.Hour)) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot book a past date"})
		return
	}
	if !timeSlots[input.TimeSlot] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid time slot"})
		return
	}

	// Unique index on (appointment_date, time_slot): a duplicate insert means
	// the slot is taken. Cancelled rows get their slot suffixed so they stop
	// occupying the index.
	now := time.Now()
	result, err := h.DB.Exec(
		`INSERT INTO appointments (user_id, service_name, appointment_date, time_slot, status, notes, created_at, updated_at)
		 VALUES (?, ?, ?, ?, 'booked', ?, ?, ?)`,
		userID, input.ServiceName, date, input.TimeSlot, nullIfEmpty(input.Notes), now, now)
	if err != nil {
		if strings.Contains(err.Error(), "Duplicate entry") {
			c.JSON(http.StatusConflict, gin.H{"error": "Time slot is already booked"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to book appointment"})
		return
	}

	apptID, _ := result.LastInsertId()
	c.JSON(http.StatusCreated, gin.H{"id": apptID, "message": "Appointment booked"})
}

// CancelAppointment is the handler for POST /v1/member/appointments/:id/cancel
func (h *Handlers) CancelAppointment(c *gin.Context) {
	userID_raw, _ := c.Get("userID")
	userID := userID_raw.(int64)

	// Cancelling frees the slot by clearing time_slot out of the unique index.
	result, err := h.DB.Exec(
		`UPDATE appointments
		 SET status = 'cancelled', time_slot = CONCAT(time_slot, '#', id), updated_at = ?
		 WHERE id = ? AND user_id = ? AND status = 'booked'`,
		time.Now(), c.Param("id"), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to cancel appointment"})
		return
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Appointment is not booked and cannot be cancelled"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Appointment cancelled"})
}
