package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/lumierebeauty/lumiere-golang/internal/auth"
	"github.com/lumierebeauty/lumiere-golang/internal/config"
	"github.com/lumierebeauty/lumiere-golang/internal/database"
	"github.com/lumierebeauty/lumiere-golang/internal/handlers"
	"github.com/lumierebeauty/lumiere-golang/internal/newebpay"
	"github.com/lumierebeauty/lumiere-golang/internal/payments"
	"github.com/lumierebeauty/lumiere-golang/internal/routes"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	// 1. --- Load Configuration ---
	// .env is optional; in production everything comes from the environment.
	if err := godotenv.Load(); err != nil {
		log.Info("no .env file found, reading environment directly")
	}
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}
	auth.SetSecret(cfg.JWTSecret)

	// 2. --- Connect to MySQL & Migrate ---
	db, err := database.OpenDB(cfg.DBDSN)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	defer db.Close()
	log.Info("database connection pool established")

	if err := database.Migrate(db, "file://migrations"); err != nil {
		log.WithError(err).Fatal("failed to run migrations")
	}
	log.Info("database migrations applied")

	// 3. --- Connect to Redis ---
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.WithError(err).Fatal("failed to connect to redis")
	}
	defer rdb.Close()

	// 4. --- Wire the Payment Stack ---
	gateway := newebpay.NewClient(
		cfg.Newebpay.MerchantID,
		cfg.Newebpay.HashKey,
		cfg.Newebpay.HashIV,
		cfg.Newebpay.Environment,
		cfg.Newebpay.NotifyURL,
		cfg.Newebpay.ReturnURL,
	)
	store := &payments.MySQLStore{DB: db}
	paymentSvc := payments.NewService(store, gateway, log)
	retryQueue := payments.NewRetryQueue(rdb, log)

	h := &handlers.Handlers{
		DB:       db,
		Payments: paymentSvc,
		Queue:    retryQueue,
		Log:      log,
	}

	// 5. --- Background Workers ---
	go notifyRetryWorker(retryQueue, paymentSvc, log)
	go couponExpiryWorker(db, log)

	// 6. --- Start the Server ---
	router := routes.SetupRouter(h, cfg.FrontendURL)
	addr := fmt.Sprintf(":%d", cfg.Port)
	log.WithFields(logrus.Fields{
		"addr":        addr,
		"environment": cfg.Newebpay.Environment,
	}).Info("starting api server")

	if err := router.Run(addr); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}

// notifyRetryWorker periodically replays payment notifies whose persistence
// failed on the live request. The gateway will not re-send forever, so parked
// notifies are our safety net against losing a paid order.
func notifyRetryWorker(queue *payments.RetryQueue, svc *payments.Service, log *logrus.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
		queue.Drain(ctx, svc, 50)
		cancel()
	}
}

// couponExpiryWorker sweeps active coupons past their end date once an hour.
// Expiry is also enforced at read and checkout time; the sweep just keeps the
// status column honest for staff listings.
func couponExpiryWorker(db *sql.DB, log *logrus.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		result, err := db.Exec(
			`UPDATE coupons SET status = 'expired', updated_at = NOW()
			 WHERE status = 'active' AND end_date < NOW()`)
		if err != nil {
			log.WithError(err).Error("coupon expiry sweep failed")
			continue
		}
		if n, _ := result.RowsAffected(); n > 0 {
			log.WithField("expired", n).Info("coupons expired")
		}
	}
}
