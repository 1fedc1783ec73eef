package newebpay

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTradeInfo_RoundTrip(t *testing.T) {
	params := map[string]string{
		"MerchantOrderNo": "ORD1700000000ABCDE",
		"Amt":             "2850",
		"ItemDesc":        "Rose Facial x1,Hot Stone Massage x2",
		"Email":           "member@example.com",
	}

	decoded, err := DecodeTradeInfo(EncodeTradeInfo(params))
	require.NoError(t, err)
	assert.Equal(t, params, decoded)
}

func TestDecodeTradeInfo_ResultWrapper(t *testing.T) {
	// Real gateway notifies nest the trade fields under "Result".
	raw := `{"Status":"SUCCESS","Message":"pay ok","Result":{"MerchantOrderNo":"ORD123","Amt":2850,"TradeNo":"25090112345678901","RespondCode":"00","PaymentType":"CREDIT"}}`
	payload := base64.StdEncoding.EncodeToString([]byte(raw))

	decoded, err := DecodeTradeInfo(payload)
	require.NoError(t, err)

	assert.Equal(t, "SUCCESS", decoded["Status"])
	assert.Equal(t, "pay ok", decoded["Message"])
	assert.Equal(t, "ORD123", decoded["MerchantOrderNo"])
	assert.Equal(t, "2850", decoded["Amt"])
	assert.Equal(t, "25090112345678901", decoded["TradeNo"])
	assert.Equal(t, "00", decoded["RespondCode"])
}

func TestDecodeTradeInfo_NumbersKeepTextualForm(t *testing.T) {
	raw := `{"Amt":28.5,"TimeStamp":1700000000}`
	payload := base64.StdEncoding.EncodeToString([]byte(raw))

	decoded, err := DecodeTradeInfo(payload)
	require.NoError(t, err)
	assert.Equal(t, "28.5", decoded["Amt"])
	assert.Equal(t, "1700000000", decoded["TimeStamp"])
}

func TestDecodeTradeInfo_Malformed(t *testing.T) {
	cases := map[string]string{
		"not base64":        "%%%not-base64%%%",
		"not json":          base64.StdEncoding.EncodeToString([]byte("hello")),
		"json array":        base64.StdEncoding.EncodeToString([]byte(`[1,2,3]`)),
		"result not object": base64.StdEncoding.EncodeToString([]byte(`{"Result":"nope"}`)),
		"nested object":     base64.StdEncoding.EncodeToString([]byte(`{"Extra":{"a":1}}`)),
	}

	for name, payload := range cases {
		_, err := DecodeTradeInfo(payload)
		assert.Error(t, err, name)
	}
}

func TestParseNotifyResult(t *testing.T) {
	params := map[string]string{
		"Status":          "SUCCESS",
		"MerchantOrderNo": "ORD123",
		"Amt":             "2850",
		"TradeNo":         "25090112345678901",
		"PaymentType":     "CREDIT",
		"RespondCode":     "00",
		"RespondMsg":      "approved",
		"PayTime":         "2025-09-01 12:00:00",
		"AuthBank":        "Taishin",
	}

	result, err := ParseNotifyResult(params)
	require.NoError(t, err)

	assert.Equal(t, "ORD123", result.MerchantOrderNo)
	assert.Equal(t, float64(2850), result.Amt)
	assert.Equal(t, "25090112345678901", result.TradeNo)
	assert.Equal(t, "CREDIT", result.PaymentType)
	assert.Equal(t, "00", result.RespondCode)
	assert.Equal(t, "approved", result.RespondMsg)
	assert.Equal(t, "Taishin", result.AuthBank)
	assert.True(t, result.Approved())
}

func TestParseNotifyResult_MissingOrderNumber(t *testing.T) {
	_, err := ParseNotifyResult(map[string]string{"Amt": "100"})
	assert.Error(t, err)
}

func TestNotifyResult_Approved(t *testing.T) {
	tests := []struct {
		status      string
		respondCode string
		want        bool
	}{
		{"SUCCESS", "00", true},
		{"SUCCESS", "99", false},
		{"FAILED", "00", false},
		{"FAILED", "99", false},
		{"", "00", false},
	}

	for _, tt := range tests {
		r := &NotifyResult{Status: tt.status, RespondCode: tt.respondCode}
		assert.Equal(t, tt.want, r.Approved(), "status=%s code=%s", tt.status, tt.respondCode)
	}
}
