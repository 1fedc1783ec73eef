package newebpay

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/url"
	"strings"
)

// ComputeCheckValue derives the TradeSha for a parameter set. Parameters are
// canonicalized by sorting keys lexicographically and URL-encoding them as a
// query string, then wrapped with the merchant's HashKey and HashIV:
//
//	SHA-256("HashKey=<key>&k1=v1&k2=v2&HashIV=<iv>") -> uppercase hex
//
// The same canonical form is used on both the outbound checkout payload and
// inbound notify verification, so a payload always verifies against the
// check value computed from its own decoded parameters.
func ComputeCheckValue(params map[string]string, hashKey, hashIV string) string {
	values := url.Values{}
	for k, v := range params {
		values.Set(k, v)
	}
	// url.Values.Encode sorts by key, matching the gateway's canonical order.
	data := "HashKey=" + hashKey + "&" + values.Encode() + "&HashIV=" + hashIV

	sum := sha256.Sum256([]byte(data))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

// VerifyCheckValue reports whether checkValue authenticates the given opaque
// trade payload. The payload is decoded first; a payload that cannot be
// decoded can never verify. Comparison is constant-time.
func VerifyCheckValue(payload, checkValue, hashKey, hashIV string) bool {
	params, err := DecodeTradeInfo(payload)
	if err != nil {
		return false
	}

	want := ComputeCheckValue(params, hashKey, hashIV)
	got := strings.ToUpper(checkValue)
	return subtle.ConstantTimeCompare([]byte(want), []byte(got)) == 1
}
