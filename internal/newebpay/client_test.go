package newebpay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumierebeauty/lumiere-golang/internal/models"
)

func testClient(environment string) *Client {
	return NewClient(
		"MS350766898",
		testHashKey,
		testHashIV,
		environment,
		"https://api.example.com/v1/payments/newebpay/notify",
		"https://example.com/payment-result",
	)
}

func TestClient_PaymentURL(t *testing.T) {
	assert.Equal(t, "https://ccore.newebpay.com/MPG/mpg_gateway", testClient("test").PaymentURL())
	assert.Equal(t, "https://core.newebpay.com/MPG/mpg_gateway", testClient("production").PaymentURL())
}

func TestClient_BuildCheckout(t *testing.T) {
	client := testClient("test")
	now := time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)

	items := []models.OrderItem{
		{ID: "facial-rose", Name: "Rose Facial", Price: 1850, Quantity: 1},
		{ID: "massage-hs", Name: "Hot Stone Massage", Price: 500, Quantity: 2},
	}

	payload := client.BuildCheckout("ORD1700000000ABCDE", 2850, items, "member@example.com", now)

	assert.Equal(t, "MS350766898", payload.MerchantID)
	assert.Equal(t, "2.0", payload.Version)

	params, err := DecodeTradeInfo(payload.TradeInfo)
	require.NoError(t, err)

	assert.Equal(t, "ORD1700000000ABCDE", params["MerchantOrderNo"])
	assert.Equal(t, "2850", params["Amt"])
	assert.Equal(t, "Rose Facialx1,Hot Stone Massagex2", params["ItemDesc"])
	assert.Equal(t, "member@example.com", params["Email"])
	assert.Equal(t, "JSON", params["RespondType"])
	assert.Equal(t, "0", params["LoginType"])
	assert.Equal(t, client.NotifyURL, params["NotifyURL"])
	assert.Equal(t, client.ReturnURL, params["ReturnURL"])

	// Payment link expiry is stamped 15 minutes out.
	assert.Equal(t, "2025-09-01", params["ExpireDate"])
	assert.Equal(t, "12:15:00", params["ExpireTime"])
}

// The TradeSha recomputed independently from the decoded TradeInfo with the
// same keys must match the one shipped in the payload.
func TestClient_BuildCheckout_TradeShaRecomputable(t *testing.T) {
	client := testClient("test")

	items := []models.OrderItem{{ID: "spa-day", Name: "Spa Day", Price: 2850, Quantity: 1}}
	payload := client.BuildCheckout("ORD1700000000ABCDE", 2850, items, "member@example.com", time.Now())

	params, err := DecodeTradeInfo(payload.TradeInfo)
	require.NoError(t, err)

	assert.Equal(t, ComputeCheckValue(params, testHashKey, testHashIV), payload.TradeSha)
	assert.True(t, client.Verify(payload.TradeInfo, payload.TradeSha))
}

func TestClient_AmountRounding(t *testing.T) {
	client := testClient("test")
	payload := client.BuildCheckout("ORD1", 2849.6, nil, "m@example.com", time.Now())

	params, err := DecodeTradeInfo(payload.TradeInfo)
	require.NoError(t, err)
	assert.Equal(t, "2850", params["Amt"])
}
