package payments

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/lumierebeauty/lumiere-golang/internal/models"
)

// MySQLStore implements Store over the shared *sql.DB pool.
type MySQLStore struct {
	DB *sql.DB
}

// NewMySQLStore wraps the pool.
func NewMySQLStore(db *sql.DB) *MySQLStore {
	return &MySQLStore{DB: db}
}

func (s *MySQLStore) CreateOrderWithPayment(ctx context.Context, order *models.Order, payment *models.Payment, usedCouponID *int64) error {
	itemsJSON, err := json.Marshal(order.Items)
	if err != nil {
		return errors.Wrap(err, "marshal items")
	}
	shippingJSON, err := json.Marshal(order.ShippingInfo)
	if err != nil {
		return errors.Wrap(err, "marshal shipping info")
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO orders (order_number, user_id, items, shipping_info, total_amount, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		order.OrderNumber, order.UserID, itemsJSON, shippingJSON, order.TotalAmount, order.Status, order.CreatedAt, order.UpdatedAt)
	if err != nil {
		return errors.Wrap(err, "insert order")
	}
	order.ID, err = res.LastInsertId()
	if err != nil {
		return errors.Wrap(err, "order id")
	}

	res, err = tx.ExecContext(ctx, `
		INSERT INTO payments (order_id, merchant_order_no, amount, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		order.ID, payment.MerchantOrderNo, payment.Amount, payment.Status, payment.CreatedAt, payment.UpdatedAt)
	if err != nil {
		return errors.Wrap(err, "insert payment")
	}
	payment.ID, err = res.LastInsertId()
	if err != nil {
		return errors.Wrap(err, "payment id")
	}
	payment.OrderID = order.ID

	if usedCouponID != nil {
		// Conditional update: a claim transitions claimed -> used exactly
		// once. Losing the race here aborts the whole checkout.
		res, err := tx.ExecContext(ctx, `
			UPDATE user_coupons SET is_used = 1, used_at = ?, order_id = ?
			WHERE id = ? AND user_id = ? AND is_used = 0`,
			time.Now(), order.ID, *usedCouponID, order.UserID)
		if err != nil {
			return errors.Wrap(err, "mark coupon used")
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return errors.Wrap(err, "coupon rows affected")
		}
		if affected == 0 {
			return ErrCouponNotUsable
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "commit checkout")
	}
	return nil
}

func (s *MySQLStore) ApplyReconciliation(ctx context.Context, rec *Reconciliation) (ReconcileOutcome, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return "", errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	paymentStatus := models.PaymentStatusFailed
	orderStatus := models.OrderStatusFailed
	if rec.Succeeded {
		paymentStatus = models.PaymentStatusSuccess
		orderStatus = models.OrderStatusPaid
	}
	now := time.Now()

	// Payment first, with the idempotency guard: only a pending row may
	// transition. Concurrent notifies for the same order number serialize
	// on this row lock and exactly one takes effect.
	res, err := tx.ExecContext(ctx, `
		UPDATE payments
		SET status = ?, newebpay_trade_no = ?, payment_type = ?, response_code = ?,
		    response_msg = ?, auth_bank = ?, response_data = ?, updated_at = ?
		WHERE merchant_order_no = ? AND status = 'pending'`,
		paymentStatus, rec.TradeNo, rec.PaymentType, rec.RespondCode,
		rec.RespondMsg, rec.AuthBank, rec.RawResponse, now,
		rec.MerchantOrderNo)
	if err != nil {
		return "", errors.Wrap(err, "update payment")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return "", errors.Wrap(err, "payment rows affected")
	}

	if affected == 0 {
		// Either the order number is unknown or the row is already
		// terminal. Both are acknowledged no-ops.
		var existing string
		err := tx.QueryRowContext(ctx,
			"SELECT status FROM payments WHERE merchant_order_no = ?", rec.MerchantOrderNo).Scan(&existing)
		if err == sql.ErrNoRows {
			return OutcomeUnknown, nil
		}
		if err != nil {
			return "", errors.Wrap(err, "check payment status")
		}
		return OutcomeDuplicate, nil
	}

	var orderID, userID int64
	err = tx.QueryRowContext(ctx,
		"SELECT id, user_id FROM orders WHERE order_number = ?", rec.MerchantOrderNo).Scan(&orderID, &userID)
	if err != nil {
		return "", errors.Wrap(err, "load order for reconciliation")
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE orders SET status = ?, newebpay_trade_no = ?, payment_method = ?, updated_at = ?
		WHERE order_number = ? AND status = 'pending'`,
		orderStatus, rec.TradeNo, rec.PaymentType, now, rec.MerchantOrderNo)
	if err != nil {
		return "", errors.Wrap(err, "update order")
	}

	if rec.Succeeded && rec.PointsEarned > 0 {
		// Earned inside the same transaction as the status flip, so a
		// replayed notify can never double-credit.
		_, err = tx.ExecContext(ctx, `
			INSERT INTO points_transactions (user_id, type, points, description, order_id, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			userID, models.PointsTypeEarn, rec.PointsEarned,
			fmt.Sprintf("Points earned for order %s", rec.MerchantOrderNo), orderID, now)
		if err != nil {
			return "", errors.Wrap(err, "earn points")
		}
	}

	if err := tx.Commit(); err != nil {
		return "", errors.Wrap(err, "commit reconciliation")
	}
	return OutcomeApplied, nil
}

func (s *MySQLStore) GetOrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	var o models.Order
	var itemsJSON, shippingJSON []byte

	err := s.DB.QueryRowContext(ctx, `
		SELECT id, order_number, user_id, items, shipping_info, total_amount, status,
		       newebpay_trade_no, payment_method, created_at, updated_at
		FROM orders WHERE order_number = ?`, orderNumber).Scan(
		&o.ID, &o.OrderNumber, &o.UserID, &itemsJSON, &shippingJSON, &o.TotalAmount, &o.Status,
		&o.TradeNo, &o.PaymentMethod, &o.CreatedAt, &o.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "fetch order")
	}

	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return nil, errors.Wrap(err, "unmarshal items")
	}
	if err := json.Unmarshal(shippingJSON, &o.ShippingInfo); err != nil {
		return nil, errors.Wrap(err, "unmarshal shipping info")
	}
	return &o, nil
}

func (s *MySQLStore) GetUserCoupon(ctx context.Context, userID, userCouponID int64) (*models.UserCoupon, error) {
	var uc models.UserCoupon
	var usedAt sql.NullTime
	var orderID sql.NullInt64
	var c models.Coupon
	var description sql.NullString
	var maxDiscount sql.NullFloat64
	var startDate sql.NullTime

	err := s.DB.QueryRowContext(ctx, `
		SELECT uc.id, uc.user_id, uc.coupon_id, uc.is_used, uc.used_at, uc.order_id, uc.created_at,
		       c.id, c.code, c.title, c.description, c.type, c.discount_value, c.min_amount,
		       c.max_discount_amount, c.start_date, c.end_date, c.is_special, c.status
		FROM user_coupons uc
		JOIN coupons c ON uc.coupon_id = c.id
		WHERE uc.id = ? AND uc.user_id = ?`, userCouponID, userID).Scan(
		&uc.ID, &uc.UserID, &uc.CouponID, &uc.IsUsed, &usedAt, &orderID, &uc.CreatedAt,
		&c.ID, &c.Code, &c.Title, &description, &c.Type, &c.DiscountValue, &c.MinAmount,
		&maxDiscount, &startDate, &c.EndDate, &c.IsSpecial, &c.Status)
	if err == sql.ErrNoRows {
		return nil, ErrCouponNotUsable
	}
	if err != nil {
		return nil, errors.Wrap(err, "fetch user coupon")
	}

	if usedAt.Valid {
		uc.UsedAt = &usedAt.Time
	}
	if orderID.Valid {
		uc.OrderID = &orderID.Int64
	}
	if description.Valid {
		c.Description = &description.String
	}
	if maxDiscount.Valid {
		c.MaxDiscount = &maxDiscount.Float64
	}
	if startDate.Valid {
		c.StartDate = &startDate.Time
	}
	uc.Coupon = c
	return &uc, nil
}
