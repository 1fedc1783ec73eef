package handlers

import (
	"database/sql"

	"github.com/sirupsen/logrus"

	"github.com/lumierebeauty/lumiere-golang/internal/payments"
)

// Handlers struct holds all dependencies for our handlers.
type Handlers struct {
	DB       *sql.DB
	Payments *payments.Service
	Queue    *payments.RetryQueue
	Log      *logrus.Logger
}
