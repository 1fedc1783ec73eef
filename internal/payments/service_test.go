package payments

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumierebeauty/lumiere-golang/internal/models"
	"github.com/lumierebeauty/lumiere-golang/internal/newebpay"
)

const (
	testHashKey = "Fs5cX2TkDpYXU7zCLUSIHSHiyGLgWYhX"
	testHashIV  = "C6AMMICIDMj6kmDS"
)

// --- Fake store ---

type fakeStore struct {
	orders   map[string]*models.Order  // by order number
	payments map[string]*models.Payment // by merchant order number
	coupons  map[int64]*models.UserCoupon
	points   []models.PointsTransaction

	nextID    int64
	createErr error
	applyErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		orders:   make(map[string]*models.Order),
		payments: make(map[string]*models.Payment),
		coupons:  make(map[int64]*models.UserCoupon),
	}
}

func (f *fakeStore) CreateOrderWithPayment(_ context.Context, order *models.Order, payment *models.Payment, usedCouponID *int64) error {
	if f.createErr != nil {
		return f.createErr
	}
	if usedCouponID != nil {
		claim, ok := f.coupons[*usedCouponID]
		if !ok || claim.UserID != order.UserID || claim.IsUsed {
			return ErrCouponNotUsable
		}
		claim.IsUsed = true
	}
	f.nextID++
	order.ID = f.nextID
	f.nextID++
	payment.ID = f.nextID
	payment.OrderID = order.ID
	f.orders[order.OrderNumber] = order
	f.payments[payment.MerchantOrderNo] = payment
	return nil
}

func (f *fakeStore) ApplyReconciliation(_ context.Context, rec *Reconciliation) (ReconcileOutcome, error) {
	if f.applyErr != nil {
		return "", f.applyErr
	}
	payment, ok := f.payments[rec.MerchantOrderNo]
	if !ok {
		return OutcomeUnknown, nil
	}
	if payment.Status != models.PaymentStatusPending {
		return OutcomeDuplicate, nil
	}

	if rec.Succeeded {
		payment.Status = models.PaymentStatusSuccess
	} else {
		payment.Status = models.PaymentStatusFailed
	}
	payment.TradeNo.String, payment.TradeNo.Valid = rec.TradeNo, true
	payment.PaymentType.String, payment.PaymentType.Valid = rec.PaymentType, true
	payment.ResponseCode.String, payment.ResponseCode.Valid = rec.RespondCode, true
	payment.ResponseMsg.String, payment.ResponseMsg.Valid = rec.RespondMsg, true
	payment.ResponseData.String, payment.ResponseData.Valid = rec.RawResponse, true

	order := f.orders[rec.MerchantOrderNo]
	if order.Status == models.OrderStatusPending {
		if rec.Succeeded {
			order.Status = models.OrderStatusPaid
		} else {
			order.Status = models.OrderStatusFailed
		}
		order.TradeNo.String, order.TradeNo.Valid = rec.TradeNo, true
		order.PaymentMethod.String, order.PaymentMethod.Valid = rec.PaymentType, true
	}

	if rec.Succeeded && rec.PointsEarned > 0 {
		f.points = append(f.points, models.PointsTransaction{
			UserID: order.UserID,
			Type:   models.PointsTypeEarn,
			Points: rec.PointsEarned,
		})
	}
	return OutcomeApplied, nil
}

func (f *fakeStore) GetOrderByNumber(_ context.Context, orderNumber string) (*models.Order, error) {
	order, ok := f.orders[orderNumber]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func (f *fakeStore) GetUserCoupon(_ context.Context, userID, userCouponID int64) (*models.UserCoupon, error) {
	claim, ok := f.coupons[userCouponID]
	if !ok || claim.UserID != userID {
		return nil, ErrCouponNotUsable
	}
	return claim, nil
}

// --- Setup ---

func setupService(t *testing.T) (*Service, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	gateway := newebpay.NewClient("MS350766898", testHashKey, testHashIV, "test",
		"https://api.example.com/v1/payments/newebpay/notify",
		"https://example.com/payment-result")
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return NewService(store, gateway, log), store
}

func checkoutRequest() *InitiateRequest {
	return &InitiateRequest{
		Items: []models.OrderItem{
			{ID: "facial-rose", Name: "Rose Facial", Price: 1850, Quantity: 1},
			{ID: "massage-hs", Name: "Hot Stone Massage", Price: 500, Quantity: 2},
		},
		ShippingInfo: models.ShippingInfo{
			Name:    "Lin Mei",
			Phone:   "0912345678",
			Address: "No. 1, Sec. 1, Zhongxiao E. Rd., Taipei",
			Email:   "member@example.com",
		},
		TotalAmount: 2850,
	}
}

// signedNotify builds a verifiable notify for the given trade parameters.
func signedNotify(params map[string]string) *Notify {
	return &Notify{
		Status:    params["Status"],
		TradeInfo: newebpay.EncodeTradeInfo(params),
		TradeSha:  newebpay.ComputeCheckValue(params, testHashKey, testHashIV),
	}
}

func successParams(orderNumber string, amount string) map[string]string {
	return map[string]string{
		"Status":          "SUCCESS",
		"MerchantOrderNo": orderNumber,
		"Amt":             amount,
		"TradeNo":         "25090112345678901",
		"PaymentType":     "CREDIT",
		"RespondCode":     "00",
		"RespondMsg":      "approved",
		"PayTime":         "2025-09-01 12:00:00",
		"AuthBank":        "Taishin",
	}
}

// --- Initiate ---

func TestInitiate_CreatesPendingPair(t *testing.T) {
	svc, store := setupService(t)

	result, err := svc.Initiate(context.Background(), 7, checkoutRequest())
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.NotEmpty(t, result.OrderNumber)
	assert.Equal(t, "https://ccore.newebpay.com/MPG/mpg_gateway", result.PaymentURL)
	assert.Equal(t, "test", result.Environment)

	order := store.orders[result.OrderNumber]
	require.NotNil(t, order)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, int64(7), order.UserID)
	assert.Equal(t, float64(2850), order.TotalAmount)

	payment := store.payments[result.OrderNumber]
	require.NotNil(t, payment)
	assert.Equal(t, models.PaymentStatusPending, payment.Status)
	assert.Equal(t, order.ID, payment.OrderID)
	assert.Equal(t, order.TotalAmount, payment.Amount)

	// The shipped TradeSha must verify against its own TradeInfo.
	params, err := newebpay.DecodeTradeInfo(result.NewebpayData.TradeInfo)
	require.NoError(t, err)
	assert.Equal(t, result.OrderNumber, params["MerchantOrderNo"])
	assert.Equal(t, "2850", params["Amt"])
	assert.Equal(t,
		newebpay.ComputeCheckValue(params, testHashKey, testHashIV),
		result.NewebpayData.TradeSha)
}

func TestInitiate_Validation(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	empty := checkoutRequest()
	empty.Items = nil
	_, err := svc.Initiate(ctx, 7, empty)
	assert.ErrorIs(t, err, ErrEmptyCart)

	zero := checkoutRequest()
	zero.TotalAmount = 0
	_, err = svc.Initiate(ctx, 7, zero)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	noContact := checkoutRequest()
	noContact.ShippingInfo.Email = ""
	_, err = svc.Initiate(ctx, 7, noContact)
	assert.ErrorIs(t, err, ErrMissingShipping)
}

func TestInitiate_WithCoupon(t *testing.T) {
	svc, store := setupService(t)
	end := time.Now().Add(24 * time.Hour)
	store.coupons[42] = &models.UserCoupon{
		ID: 42, UserID: 7, CouponID: 1,
		Coupon: models.Coupon{
			ID: 1, Code: "WELCOME200", Type: models.CouponTypeFixed,
			DiscountValue: 200, MinAmount: 1000, EndDate: end,
			Status: models.CouponStatusActive,
		},
	}

	result, err := svc.Initiate(context.Background(), 7, func() *InitiateRequest {
		req := checkoutRequest()
		req.UserCouponID = int64Ptr(42)
		return req
	}())
	require.NoError(t, err)

	assert.Equal(t, float64(200), result.Discount)
	assert.Equal(t, float64(2650), store.orders[result.OrderNumber].TotalAmount)
	assert.Equal(t, float64(2650), store.payments[result.OrderNumber].Amount)
	assert.True(t, store.coupons[42].IsUsed)
}

func TestInitiate_UsedCouponRejected(t *testing.T) {
	svc, store := setupService(t)
	store.coupons[42] = &models.UserCoupon{
		ID: 42, UserID: 7, IsUsed: true,
		Coupon: models.Coupon{
			Type: models.CouponTypeFixed, DiscountValue: 200,
			EndDate: time.Now().Add(time.Hour), Status: models.CouponStatusActive,
		},
	}

	req := checkoutRequest()
	req.UserCouponID = int64Ptr(42)
	_, err := svc.Initiate(context.Background(), 7, req)
	assert.ErrorIs(t, err, ErrCouponNotUsable)
	assert.Empty(t, store.orders)
}

func TestInitiate_StoreErrorSurfaces(t *testing.T) {
	svc, store := setupService(t)
	store.createErr = assert.AnError

	_, err := svc.Initiate(context.Background(), 7, checkoutRequest())
	assert.Error(t, err)
}

// --- Reconcile ---

func initiated(t *testing.T, svc *Service, store *fakeStore) string {
	t.Helper()
	result, err := svc.Initiate(context.Background(), 7, checkoutRequest())
	require.NoError(t, err)
	return result.OrderNumber
}

func TestReconcile_Success(t *testing.T) {
	svc, store := setupService(t)
	orderNumber := initiated(t, svc, store)

	outcome, err := svc.Reconcile(context.Background(), signedNotify(successParams(orderNumber, "2850")))
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, outcome)

	order := store.orders[orderNumber]
	assert.Equal(t, models.OrderStatusPaid, order.Status)
	assert.Equal(t, "25090112345678901", order.TradeNo.String)
	assert.Equal(t, "CREDIT", order.PaymentMethod.String)

	payment := store.payments[orderNumber]
	assert.Equal(t, models.PaymentStatusSuccess, payment.Status)
	assert.Equal(t, "00", payment.ResponseCode.String)
	assert.Equal(t, "approved", payment.ResponseMsg.String)
	assert.NotEmpty(t, payment.ResponseData.String)

	// 2850 paid -> 28 loyalty points, once.
	require.Len(t, store.points, 1)
	assert.Equal(t, 28, store.points[0].Points)
	assert.Equal(t, int64(7), store.points[0].UserID)
}

func TestReconcile_FailedTrade(t *testing.T) {
	svc, store := setupService(t)
	orderNumber := initiated(t, svc, store)

	params := successParams(orderNumber, "2850")
	params["Status"] = "FAILED"
	params["RespondCode"] = "99"
	params["RespondMsg"] = "card declined"

	outcome, err := svc.Reconcile(context.Background(), signedNotify(params))
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, outcome)

	assert.Equal(t, models.OrderStatusFailed, store.orders[orderNumber].Status)
	assert.Equal(t, models.PaymentStatusFailed, store.payments[orderNumber].Status)
	assert.Empty(t, store.points)
}

func TestReconcile_SuccessStatusButDeclinedCode(t *testing.T) {
	svc, store := setupService(t)
	orderNumber := initiated(t, svc, store)

	params := successParams(orderNumber, "2850")
	params["RespondCode"] = "05"

	_, err := svc.Reconcile(context.Background(), signedNotify(params))
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusFailed, store.orders[orderNumber].Status)
}

func TestReconcile_DuplicateNotifyIsNoOp(t *testing.T) {
	svc, store := setupService(t)
	orderNumber := initiated(t, svc, store)
	notify := signedNotify(successParams(orderNumber, "2850"))
	ctx := context.Background()

	first, err := svc.Reconcile(ctx, notify)
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, first)

	second, err := svc.Reconcile(ctx, notify)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, second)

	assert.Equal(t, models.OrderStatusPaid, store.orders[orderNumber].Status)
	assert.Equal(t, models.PaymentStatusSuccess, store.payments[orderNumber].Status)
	assert.Len(t, store.points, 1, "duplicate notify must not double-credit points")
}

func TestReconcile_UnknownOrderNumber(t *testing.T) {
	svc, store := setupService(t)

	outcome, err := svc.Reconcile(context.Background(), signedNotify(successParams("ORD0NOSUCH", "100")))
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnknown, outcome)
	assert.Empty(t, store.orders)
	assert.Empty(t, store.points)
}

func TestReconcile_InvalidCheckValue(t *testing.T) {
	svc, store := setupService(t)
	orderNumber := initiated(t, svc, store)

	notify := signedNotify(successParams(orderNumber, "2850"))
	notify.TradeSha = "0000000000000000000000000000000000000000000000000000000000000000"

	_, err := svc.Reconcile(context.Background(), notify)
	assert.ErrorIs(t, err, ErrInvalidCheckValue)
	assert.Equal(t, models.OrderStatusPending, store.orders[orderNumber].Status)
	assert.Equal(t, models.PaymentStatusPending, store.payments[orderNumber].Status)
}

func TestReconcile_MissingFields(t *testing.T) {
	svc, _ := setupService(t)

	_, err := svc.Reconcile(context.Background(), &Notify{Status: "SUCCESS"})
	assert.ErrorIs(t, err, ErrMissingNotifyData)
}

func TestReconcile_StoreErrorPropagates(t *testing.T) {
	svc, store := setupService(t)
	orderNumber := initiated(t, svc, store)
	store.applyErr = assert.AnError

	_, err := svc.Reconcile(context.Background(), signedNotify(successParams(orderNumber, "2850")))
	assert.Error(t, err)
}

// --- QueryResult ---

func TestQueryResult_Projections(t *testing.T) {
	svc, store := setupService(t)
	orderNumber := initiated(t, svc, store)
	ctx := context.Background()

	result, err := svc.QueryResult(ctx, orderNumber)
	require.NoError(t, err)
	assert.Equal(t, "pending", result.Status)
	assert.Equal(t, float64(2850), result.Amount)
	assert.Len(t, result.Items, 2)

	store.orders[orderNumber].Status = models.OrderStatusPaid
	result, err = svc.QueryResult(ctx, orderNumber)
	require.NoError(t, err)
	assert.Equal(t, "success", result.Status)

	store.orders[orderNumber].Status = models.OrderStatusDelivered
	result, _ = svc.QueryResult(ctx, orderNumber)
	assert.Equal(t, "success", result.Status)

	store.orders[orderNumber].Status = models.OrderStatusFailed
	result, _ = svc.QueryResult(ctx, orderNumber)
	assert.Equal(t, "failed", result.Status)

	store.orders[orderNumber].Status = models.OrderStatusCancelled
	result, _ = svc.QueryResult(ctx, orderNumber)
	assert.Equal(t, "failed", result.Status)
}

func TestQueryResult_NotFound(t *testing.T) {
	svc, _ := setupService(t)
	_, err := svc.QueryResult(context.Background(), "ORD0NOSUCH")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestGenerateOrderNumber(t *testing.T) {
	first := GenerateOrderNumber()
	second := GenerateOrderNumber()

	assert.True(t, len(first) > 8)
	assert.Equal(t, "ORD", first[:3])
	assert.NotEqual(t, first, second)
}

func int64Ptr(v int64) *int64 { return &v }
