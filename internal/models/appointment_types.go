package models

import "time"

// Appointment statuses.
const (
	AppointmentStatusBooked    = "booked"
	AppointmentStatusCompleted = "completed"
	AppointmentStatusCancelled = "cancelled"
)

// Appointment is the model for the 'appointments' table.
type Appointment struct {
	ID          int64     `json:"id" db:"id"`
	UserID      int64     `json:"userId" db:"user_id"`
	ServiceName string    `json:"serviceName" db:"service_name"`
	Date        time.Time `json:"date" db:"appointment_date"`
	TimeSlot    string    `json:"timeSlot" db:"time_slot"`
	Status      string    `json:"status" db:"status"`
	Notes       *string   `json:"notes,omitempty" db:"notes"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

// Favorite is the model for the 'favorites' table. Like order items, the
// favorited product is a snapshot (id, name, price) rather than a foreign
// key into a catalog table.
type Favorite struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"userId" db:"user_id"`
	ItemID    string    `json:"itemId" db:"item_id"`
	Name      string    `json:"name" db:"name"`
	Price     float64   `json:"price" db:"price"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
