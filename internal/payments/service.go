package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/lumierebeauty/lumiere-golang/internal/models"
	"github.com/lumierebeauty/lumiere-golang/internal/newebpay"
)

// Sentinel errors surfaced to handlers.
var (
	ErrEmptyCart         = errors.New("checkout requires at least one item")
	ErrInvalidAmount     = errors.New("total amount must be positive")
	ErrMissingShipping   = errors.New("shipping contact is incomplete")
	ErrCouponNotUsable   = errors.New("coupon is not usable for this order")
	ErrMissingNotifyData = errors.New("notify is missing TradeInfo or TradeSha")
	ErrInvalidCheckValue = errors.New("notify check value does not verify")
	ErrMalformedPayload  = errors.New("notify payload cannot be decoded")

	// ErrOrderNotFound is returned by stores when no row matches.
	ErrOrderNotFound = errors.New("order not found")
)

// ReconcileOutcome reports what a reconcile attempt did.
type ReconcileOutcome string

const (
	// OutcomeApplied: the pending order/payment pair transitioned.
	OutcomeApplied ReconcileOutcome = "applied"
	// OutcomeDuplicate: the pair was already terminal; nothing changed.
	OutcomeDuplicate ReconcileOutcome = "duplicate"
	// OutcomeUnknown: no payment row matches the merchant order number.
	OutcomeUnknown ReconcileOutcome = "unknown"
)

// Reconciliation carries the verified, decoded result of one notify into
// the store. Both row updates are keyed by MerchantOrderNo: it is the only
// identifier the gateway echoes back.
type Reconciliation struct {
	MerchantOrderNo string
	Succeeded       bool
	TradeNo         string
	PaymentType     string
	RespondCode     string
	RespondMsg      string
	AuthBank        string
	RawResponse     string
	PointsEarned    int
}

// Store is the persistence surface the service needs. The MySQL
// implementation lives in store.go; tests substitute an in-memory fake.
type Store interface {
	// CreateOrderWithPayment inserts the order and its mirrored payment row
	// in one transaction, marking the coupon claim used (bound to the new
	// order) when usedCouponID is set. Fills in the new row IDs.
	CreateOrderWithPayment(ctx context.Context, order *models.Order, payment *models.Payment, usedCouponID *int64) error

	// ApplyReconciliation conditionally transitions the payment and order
	// rows matching rec.MerchantOrderNo out of 'pending', atomically, and
	// earns loyalty points on success. Rows already terminal are left
	// untouched and reported as OutcomeDuplicate.
	ApplyReconciliation(ctx context.Context, rec *Reconciliation) (ReconcileOutcome, error)

	// GetOrderByNumber returns the order with the given merchant order
	// number, or ErrOrderNotFound.
	GetOrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error)

	// GetUserCoupon returns a member's coupon claim with its coupon rule
	// joined in, or ErrCouponNotUsable when no such claim exists.
	GetUserCoupon(ctx context.Context, userID, userCouponID int64) (*models.UserCoupon, error)
}

// Service orchestrates checkout initiation, notify reconciliation and the
// payment-result projection. It is stateless; every method is safe for
// concurrent use.
type Service struct {
	store   Store
	gateway *newebpay.Client
	log     *logrus.Logger
}

// NewService wires the reconciliation service.
func NewService(store Store, gateway *newebpay.Client, log *logrus.Logger) *Service {
	return &Service{store: store, gateway: gateway, log: log}
}

// InitiateRequest is the checkout submission from the member UI.
type InitiateRequest struct {
	Items        []models.OrderItem `json:"items" binding:"required"`
	ShippingInfo models.ShippingInfo `json:"shippingInfo" binding:"required"`
	TotalAmount  float64            `json:"totalAmount" binding:"required"`
	UserCouponID *int64             `json:"userCouponId,omitempty"`
}

// InitiateResult is what the caller auto-submits as a POST form to PaymentURL.
type InitiateResult struct {
	Success      bool                      `json:"success"`
	OrderNumber  string                    `json:"orderNumber"`
	OrderID      int64                     `json:"orderId"`
	NewebpayData *newebpay.CheckoutPayload `json:"newebpayData"`
	PaymentURL   string                    `json:"paymentUrl"`
	Environment  string                    `json:"environment"`
	Discount     float64                   `json:"discount,omitempty"`
}

// Initiate creates the pending order/payment pair for an authenticated
// member and returns the signed gateway payload. No network call is made to
// the gateway here; the payer's browser performs the redirect. On any
// persistence error nothing is left half-created and the caller retries the
// whole checkout.
func (s *Service) Initiate(ctx context.Context, userID int64, req *InitiateRequest) (*InitiateResult, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyCart
	}
	if req.TotalAmount <= 0 {
		return nil, ErrInvalidAmount
	}
	if req.ShippingInfo.Name == "" || req.ShippingInfo.Email == "" {
		return nil, ErrMissingShipping
	}

	payable := req.TotalAmount
	var discount float64
	if req.UserCouponID != nil {
		claim, err := s.store.GetUserCoupon(ctx, userID, *req.UserCouponID)
		if err != nil {
			return nil, err
		}
		if !couponUsable(claim, req.TotalAmount, time.Now()) {
			return nil, ErrCouponNotUsable
		}
		discount = claim.Coupon.DiscountFor(req.TotalAmount)
		payable = req.TotalAmount - discount
		if payable <= 0 {
			return nil, ErrInvalidAmount
		}
	}

	orderNumber := GenerateOrderNumber()
	now := time.Now()

	order := &models.Order{
		OrderNumber:  orderNumber,
		UserID:       userID,
		Items:        req.Items,
		ShippingInfo: req.ShippingInfo,
		TotalAmount:  payable,
		Status:       models.OrderStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	payment := &models.Payment{
		MerchantOrderNo: orderNumber,
		Amount:          payable,
		Status:          models.PaymentStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.store.CreateOrderWithPayment(ctx, order, payment, req.UserCouponID); err != nil {
		return nil, errors.Wrap(err, "create order and payment")
	}

	payload := s.gateway.BuildCheckout(orderNumber, payable, req.Items, req.ShippingInfo.Email, now)

	s.log.WithFields(logrus.Fields{
		"orderNumber": orderNumber,
		"amount":      payable,
		"environment": s.gateway.Environment,
	}).Info("newebpay checkout created")

	return &InitiateResult{
		Success:      true,
		OrderNumber:  orderNumber,
		OrderID:      order.ID,
		NewebpayData: payload,
		PaymentURL:   s.gateway.PaymentURL(),
		Environment:  s.gateway.Environment,
		Discount:     discount,
	}, nil
}

// Notify is the gateway's asynchronous callback body, form-encoded or JSON.
type Notify struct {
	Status     string `form:"Status" json:"Status"`
	MerchantID string `form:"MerchantID" json:"MerchantID"`
	Version    string `form:"Version" json:"Version"`
	TradeInfo  string `form:"TradeInfo" json:"TradeInfo"`
	TradeSha   string `form:"TradeSha" json:"TradeSha"`

	// Attempts counts retry-queue redeliveries; zero for a fresh notify.
	Attempts int `form:"-" json:"attempts,omitempty"`
}

// Reconcile verifies, decodes and applies one notify. The caller (HTTP
// handler or retry worker) acknowledges the gateway regardless of the
// returned error; state is mutated only when verification and decoding both
// succeed and the matching rows are still pending.
func (s *Service) Reconcile(ctx context.Context, notify *Notify) (ReconcileOutcome, error) {
	if notify.TradeInfo == "" || notify.TradeSha == "" {
		notifyOutcomes.WithLabelValues("malformed").Inc()
		return "", ErrMissingNotifyData
	}

	if !s.gateway.Verify(notify.TradeInfo, notify.TradeSha) {
		notifyOutcomes.WithLabelValues("invalid_check_value").Inc()
		s.log.WithField("tradeSha", notify.TradeSha).Warn("newebpay notify rejected: check value mismatch")
		return "", ErrInvalidCheckValue
	}

	params, err := s.gateway.Decode(notify.TradeInfo)
	if err != nil {
		notifyOutcomes.WithLabelValues("malformed").Inc()
		return "", ErrMalformedPayload
	}
	result, err := newebpay.ParseNotifyResult(params)
	if err != nil {
		notifyOutcomes.WithLabelValues("malformed").Inc()
		return "", ErrMalformedPayload
	}

	raw, _ := json.Marshal(params)

	rec := &Reconciliation{
		MerchantOrderNo: result.MerchantOrderNo,
		Succeeded:       result.Approved(),
		TradeNo:         result.TradeNo,
		PaymentType:     result.PaymentType,
		RespondCode:     result.RespondCode,
		RespondMsg:      result.RespondMsg,
		AuthBank:        result.AuthBank,
		RawResponse:     string(raw),
	}
	if rec.Succeeded {
		rec.PointsEarned = models.EarnedPoints(result.Amt)
	}

	outcome, err := s.store.ApplyReconciliation(ctx, rec)
	if err != nil {
		notifyOutcomes.WithLabelValues("store_error").Inc()
		return "", errors.Wrap(err, "apply reconciliation")
	}

	switch outcome {
	case OutcomeApplied:
		if rec.Succeeded {
			notifyOutcomes.WithLabelValues("applied_paid").Inc()
		} else {
			notifyOutcomes.WithLabelValues("applied_failed").Inc()
		}
	case OutcomeDuplicate:
		notifyOutcomes.WithLabelValues("duplicate").Inc()
	case OutcomeUnknown:
		notifyOutcomes.WithLabelValues("unknown_order").Inc()
	}

	s.log.WithFields(logrus.Fields{
		"orderNumber": rec.MerchantOrderNo,
		"succeeded":   rec.Succeeded,
		"outcome":     string(outcome),
		"tradeNo":     rec.TradeNo,
	}).Info("newebpay notify processed")

	return outcome, nil
}

// ResultProjection is the display-ready payment result for the browser
// redirect page. Raw vendor fields stay internal.
type ResultProjection struct {
	Status       string              `json:"status"` // success | failed | pending
	OrderNumber  string              `json:"orderNumber"`
	Amount       float64             `json:"amount"`
	TradeNo      string              `json:"tradeNo,omitempty"`
	PaymentType  string              `json:"paymentType,omitempty"`
	Items        []models.OrderItem  `json:"items"`
	ShippingInfo models.ShippingInfo `json:"shippingInfo"`
}

// QueryResult is the read-only projection for a merchant order number.
// It never mutates anything.
func (s *Service) QueryResult(ctx context.Context, merchantOrderNo string) (*ResultProjection, error) {
	order, err := s.store.GetOrderByNumber(ctx, merchantOrderNo)
	if err != nil {
		return nil, err
	}

	status := "pending"
	switch order.Status {
	case models.OrderStatusPaid, models.OrderStatusShipping, models.OrderStatusDelivered:
		status = "success"
	case models.OrderStatusFailed, models.OrderStatusCancelled:
		status = "failed"
	}

	return &ResultProjection{
		Status:       status,
		OrderNumber:  order.OrderNumber,
		Amount:       order.TotalAmount,
		TradeNo:      order.TradeNo.String,
		PaymentType:  order.PaymentMethod.String,
		Items:        order.Items,
		ShippingInfo: order.ShippingInfo,
	}, nil
}

// GenerateOrderNumber builds a unique merchant order number:
// ORD + millisecond timestamp + 5 random chars.
func GenerateOrderNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:5]
	return fmt.Sprintf("ORD%d%s", time.Now().UnixMilli(), suffix)
}

func couponUsable(claim *models.UserCoupon, amount float64, now time.Time) bool {
	if claim.IsUsed {
		return false
	}
	c := claim.Coupon
	if c.Status != models.CouponStatusActive {
		return false
	}
	if c.StartDate != nil && now.Before(*c.StartDate) {
		return false
	}
	if now.After(c.EndDate) {
		return false
	}
	return amount >= c.MinAmount
}
