package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumierebeauty/lumiere-golang/internal/models"
	"github.com/lumierebeauty/lumiere-golang/internal/newebpay"
	"github.com/lumierebeauty/lumiere-golang/internal/payments"
)

const (
	testHashKey = "Fs5cX2TkDpYXU7zCLUSIHSHiyGLgWYhX"
	testHashIV  = "C6AMMICIDMj6kmDS"
)

// memStore is the minimal payments.Store for handler tests.
type memStore struct {
	orders   map[string]*models.Order
	payments map[string]*models.Payment
}

func newMemStore() *memStore {
	return &memStore{
		orders:   make(map[string]*models.Order),
		payments: make(map[string]*models.Payment),
	}
}

func (m *memStore) CreateOrderWithPayment(_ context.Context, order *models.Order, payment *models.Payment, _ *int64) error {
	order.ID = int64(len(m.orders) + 1)
	m.orders[order.OrderNumber] = order
	m.payments[payment.MerchantOrderNo] = payment
	return nil
}

func (m *memStore) ApplyReconciliation(_ context.Context, rec *payments.Reconciliation) (payments.ReconcileOutcome, error) {
	payment, ok := m.payments[rec.MerchantOrderNo]
	if !ok {
		return payments.OutcomeUnknown, nil
	}
	if payment.Status != models.PaymentStatusPending {
		return payments.OutcomeDuplicate, nil
	}
	order := m.orders[rec.MerchantOrderNo]
	if rec.Succeeded {
		payment.Status = models.PaymentStatusSuccess
		order.Status = models.OrderStatusPaid
	} else {
		payment.Status = models.PaymentStatusFailed
		order.Status = models.OrderStatusFailed
	}
	return payments.OutcomeApplied, nil
}

func (m *memStore) GetOrderByNumber(_ context.Context, orderNumber string) (*models.Order, error) {
	order, ok := m.orders[orderNumber]
	if !ok {
		return nil, payments.ErrOrderNotFound
	}
	return order, nil
}

func (m *memStore) GetUserCoupon(_ context.Context, _, _ int64) (*models.UserCoupon, error) {
	return nil, payments.ErrCouponNotUsable
}

func setupPaymentRouter(t *testing.T) (*gin.Engine, *memStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := newMemStore()
	gateway := newebpay.NewClient("MS350766898", testHashKey, testHashIV, "test",
		"https://api.example.com/v1/payments/newebpay/notify",
		"https://example.com/payment-result")
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	h := &Handlers{Payments: payments.NewService(store, gateway, log), Log: log}

	router := gin.New()
	router.POST("/v1/payments/newebpay/notify", h.NewebpayNotify)
	router.GET("/v1/payments/result", h.PaymentResult)
	return router, store
}

func pendingOrder(store *memStore, orderNumber string) {
	store.orders[orderNumber] = &models.Order{
		OrderNumber: orderNumber,
		UserID:      7,
		Items:       []models.OrderItem{{ID: "facial-rose", Name: "Rose Facial", Price: 2850, Quantity: 1}},
		TotalAmount: 2850,
		Status:      models.OrderStatusPending,
	}
	store.payments[orderNumber] = &models.Payment{
		MerchantOrderNo: orderNumber,
		Amount:          2850,
		Status:          models.PaymentStatusPending,
	}
}

func notifyForm(params map[string]string) url.Values {
	form := url.Values{}
	form.Set("Status", params["Status"])
	form.Set("MerchantID", "MS350766898")
	form.Set("Version", "2.0")
	form.Set("TradeInfo", newebpay.EncodeTradeInfo(params))
	form.Set("TradeSha", newebpay.ComputeCheckValue(params, testHashKey, testHashIV))
	return form
}

func postNotify(router *gin.Engine, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/payments/newebpay/notify",
		strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestNewebpayNotify_SuccessAcksAndApplies(t *testing.T) {
	router, store := setupPaymentRouter(t)
	pendingOrder(store, "ORD1756700000000AAAAA")

	w := postNotify(router, notifyForm(map[string]string{
		"Status":          "SUCCESS",
		"MerchantOrderNo": "ORD1756700000000AAAAA",
		"Amt":             "2850",
		"TradeNo":         "25090112345678901",
		"PaymentType":     "CREDIT",
		"RespondCode":     "00",
	}))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1|OK", w.Body.String())
	assert.Equal(t, models.OrderStatusPaid, store.orders["ORD1756700000000AAAAA"].Status)
	assert.Equal(t, models.PaymentStatusSuccess, store.payments["ORD1756700000000AAAAA"].Status)
}

func TestNewebpayNotify_ForgedCheckValueStillAcks(t *testing.T) {
	router, store := setupPaymentRouter(t)
	pendingOrder(store, "ORD1756700000000AAAAA")

	form := notifyForm(map[string]string{
		"Status":          "SUCCESS",
		"MerchantOrderNo": "ORD1756700000000AAAAA",
		"Amt":             "2850",
		"RespondCode":     "00",
	})
	form.Set("TradeSha", strings.Repeat("A", 64))

	w := postNotify(router, form)

	// Ack regardless, but nothing may change.
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1|OK", w.Body.String())
	assert.Equal(t, models.OrderStatusPending, store.orders["ORD1756700000000AAAAA"].Status)
	assert.Equal(t, models.PaymentStatusPending, store.payments["ORD1756700000000AAAAA"].Status)
}

func TestNewebpayNotify_EmptyBodyStillAcks(t *testing.T) {
	router, _ := setupPaymentRouter(t)

	w := postNotify(router, url.Values{})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1|OK", w.Body.String())
}

func TestNewebpayNotify_DuplicateStillAcks(t *testing.T) {
	router, store := setupPaymentRouter(t)
	pendingOrder(store, "ORD1756700000000AAAAA")

	form := notifyForm(map[string]string{
		"Status":          "SUCCESS",
		"MerchantOrderNo": "ORD1756700000000AAAAA",
		"Amt":             "2850",
		"RespondCode":     "00",
	})

	first := postNotify(router, form)
	second := postNotify(router, form)

	assert.Equal(t, "1|OK", first.Body.String())
	assert.Equal(t, "1|OK", second.Body.String())
	assert.Equal(t, models.OrderStatusPaid, store.orders["ORD1756700000000AAAAA"].Status)
}

func TestPaymentResult_Projection(t *testing.T) {
	router, store := setupPaymentRouter(t)
	pendingOrder(store, "ORD1756700000000AAAAA")
	store.orders["ORD1756700000000AAAAA"].Status = models.OrderStatusPaid

	req := httptest.NewRequest(http.MethodGet, "/v1/payments/result?orderNumber=ORD1756700000000AAAAA", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"success"`)
	assert.Contains(t, w.Body.String(), `"orderNumber":"ORD1756700000000AAAAA"`)
}

func TestPaymentResult_NotFound(t *testing.T) {
	router, _ := setupPaymentRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/payments/result?orderNumber=ORD0NOSUCH", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPaymentResult_MissingParam(t *testing.T) {
	router, _ := setupPaymentRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/payments/result", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
