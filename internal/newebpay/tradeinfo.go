package newebpay

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"strconv"

	"github.com/pkg/errors"
)

// The gateway's test-mode envelope is Base64 over a JSON object. The
// production MPG protocol specifies AES-CBC here instead; swapping the
// envelope touches only these two functions.

// EncodeTradeInfo serializes a parameter set into the opaque TradeInfo
// payload. Go's json.Marshal writes map keys in sorted order, so the
// encoding is deterministic for a given parameter set.
func EncodeTradeInfo(params map[string]string) string {
	raw, _ := json.Marshal(params)
	return base64.StdEncoding.EncodeToString(raw)
}

// DecodeTradeInfo reverses EncodeTradeInfo and flattens the result into a
// string map. Real gateway notifies nest the trade fields under a "Result"
// object next to top-level Status/Message; those inner fields are lifted
// into the same map. Numeric JSON values keep their exact textual form.
//
// Decoding failure means a malformed or tampered payload: callers must not
// trust, or persist, anything from it.
func DecodeTradeInfo(payload string) (map[string]string, error) {
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, errors.Wrap(err, "trade info is not valid base64")
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var obj map[string]interface{}
	if err := dec.Decode(&obj); err != nil {
		return nil, errors.Wrap(err, "trade info is not a JSON object")
	}

	params := make(map[string]string, len(obj))
	for k, v := range obj {
		if k == "Result" {
			inner, ok := v.(map[string]interface{})
			if !ok {
				return nil, errors.New("trade info Result is not an object")
			}
			for ik, iv := range inner {
				s, err := stringifyScalar(iv)
				if err != nil {
					return nil, errors.Wrapf(err, "trade info field %q", ik)
				}
				params[ik] = s
			}
			continue
		}
		s, err := stringifyScalar(v)
		if err != nil {
			return nil, errors.Wrapf(err, "trade info field %q", k)
		}
		params[k] = s
	}
	return params, nil
}

func stringifyScalar(v interface{}) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case json.Number:
		return t.String(), nil
	case bool:
		return strconv.FormatBool(t), nil
	case nil:
		return "", nil
	default:
		return "", errors.New("unsupported nested value")
	}
}

// NotifyResult is the structured view of a decoded notify payload.
type NotifyResult struct {
	Status          string
	Message         string
	MerchantOrderNo string
	Amt             float64
	TradeNo         string
	PaymentType     string
	RespondCode     string
	RespondMsg      string
	PayTime         string
	AuthBank        string
}

// ParseNotifyResult builds the typed view from decoded trade parameters.
func ParseNotifyResult(params map[string]string) (*NotifyResult, error) {
	if params["MerchantOrderNo"] == "" {
		return nil, errors.New("notify payload missing MerchantOrderNo")
	}

	amt, _ := strconv.ParseFloat(params["Amt"], 64)

	return &NotifyResult{
		Status:          params["Status"],
		Message:         params["Message"],
		MerchantOrderNo: params["MerchantOrderNo"],
		Amt:             amt,
		TradeNo:         params["TradeNo"],
		PaymentType:     params["PaymentType"],
		RespondCode:     params["RespondCode"],
		RespondMsg:      params["RespondMsg"],
		PayTime:         params["PayTime"],
		AuthBank:        params["AuthBank"],
	}, nil
}

// Approved reports whether the gateway considers the trade successful.
// Both the payload's own status and the bank response code must signal
// approval; the unauthenticated Status field on the outer form is ignored.
func (r *NotifyResult) Approved() bool {
	return r.Status == "SUCCESS" && r.RespondCode == "00"
}
