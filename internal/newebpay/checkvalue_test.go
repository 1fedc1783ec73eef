package newebpay

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testHashKey = "Fs5cX2TkDpYXU7zCLUSIHSHiyGLgWYhX"
	testHashIV  = "C6AMMICIDMj6kmDS"
)

func sampleParams() map[string]string {
	return map[string]string{
		"MerchantID":      "MS350766898",
		"MerchantOrderNo": "ORD1700000000ABCDE",
		"Amt":             "2850",
		"TimeStamp":       "1700000000",
		"Version":         "2.0",
	}
}

func TestComputeCheckValue_Shape(t *testing.T) {
	sum := ComputeCheckValue(sampleParams(), testHashKey, testHashIV)

	assert.Len(t, sum, 64)
	assert.Equal(t, strings.ToUpper(sum), sum)
	for _, r := range sum {
		assert.Contains(t, "0123456789ABCDEF", string(r))
	}
}

func TestComputeCheckValue_Deterministic(t *testing.T) {
	first := ComputeCheckValue(sampleParams(), testHashKey, testHashIV)
	second := ComputeCheckValue(sampleParams(), testHashKey, testHashIV)
	assert.Equal(t, first, second)
}

func TestComputeCheckValue_SensitiveToInputs(t *testing.T) {
	base := ComputeCheckValue(sampleParams(), testHashKey, testHashIV)

	changed := sampleParams()
	changed["Amt"] = "2851"
	assert.NotEqual(t, base, ComputeCheckValue(changed, testHashKey, testHashIV))

	assert.NotEqual(t, base, ComputeCheckValue(sampleParams(), "other-key", testHashIV))
	assert.NotEqual(t, base, ComputeCheckValue(sampleParams(), testHashKey, "other-iv"))
}

func TestVerifyCheckValue_RoundTrip(t *testing.T) {
	params := sampleParams()
	payload := EncodeTradeInfo(params)
	sum := ComputeCheckValue(params, testHashKey, testHashIV)

	assert.True(t, VerifyCheckValue(payload, sum, testHashKey, testHashIV))
}

func TestVerifyCheckValue_AcceptsLowercaseDigest(t *testing.T) {
	params := sampleParams()
	payload := EncodeTradeInfo(params)
	sum := ComputeCheckValue(params, testHashKey, testHashIV)

	assert.True(t, VerifyCheckValue(payload, strings.ToLower(sum), testHashKey, testHashIV))
}

func TestVerifyCheckValue_TamperedDigest(t *testing.T) {
	params := sampleParams()
	payload := EncodeTradeInfo(params)
	sum := ComputeCheckValue(params, testHashKey, testHashIV)

	// Flipping any single character of the digest must fail verification.
	for i := 0; i < len(sum); i++ {
		tampered := []byte(sum)
		if tampered[i] == 'A' {
			tampered[i] = 'B'
		} else {
			tampered[i] = 'A'
		}
		require.False(t, VerifyCheckValue(payload, string(tampered), testHashKey, testHashIV),
			"tampered digest at position %d verified", i)
	}
}

func TestVerifyCheckValue_TamperedPayload(t *testing.T) {
	params := sampleParams()
	sum := ComputeCheckValue(params, testHashKey, testHashIV)

	params["Amt"] = "1"
	tamperedPayload := EncodeTradeInfo(params)

	assert.False(t, VerifyCheckValue(tamperedPayload, sum, testHashKey, testHashIV))
}

func TestVerifyCheckValue_UndecodablePayload(t *testing.T) {
	sum := ComputeCheckValue(sampleParams(), testHashKey, testHashIV)
	assert.False(t, VerifyCheckValue("not-base64!!", sum, testHashKey, testHashIV))
}

func TestVerifyCheckValue_WrongKeys(t *testing.T) {
	params := sampleParams()
	payload := EncodeTradeInfo(params)
	sum := ComputeCheckValue(params, testHashKey, testHashIV)

	assert.False(t, VerifyCheckValue(payload, sum, "wrong-key", testHashIV))
	assert.False(t, VerifyCheckValue(payload, sum, testHashKey, "wrong-iv"))
}
