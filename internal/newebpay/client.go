package newebpay

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/lumierebeauty/lumiere-golang/internal/models"
)

// MPG protocol constants.
const (
	Version = "2.0"

	testGatewayURL       = "https://ccore.newebpay.com/MPG/mpg_gateway"
	productionGatewayURL = "https://core.newebpay.com/MPG/mpg_gateway"

	// How long a generated payment link stays valid. Advisory data carried
	// in the trade payload; the gateway enforces it, we do not.
	paymentExpiry = 15 * time.Minute
)

// Client holds the merchant credentials and builds the signed checkout
// payload posted (by the payer's browser) to the MPG gateway.
type Client struct {
	MerchantID  string
	HashKey     string
	HashIV      string
	Environment string // test | production
	NotifyURL   string
	ReturnURL   string
}

// NewClient builds a gateway client.
func NewClient(merchantID, hashKey, hashIV, environment, notifyURL, returnURL string) *Client {
	return &Client{
		MerchantID:  merchantID,
		HashKey:     hashKey,
		HashIV:      hashIV,
		Environment: environment,
		NotifyURL:   notifyURL,
		ReturnURL:   returnURL,
	}
}

// PaymentURL returns the MPG endpoint for the configured environment.
func (c *Client) PaymentURL() string {
	if c.Environment == "production" {
		return productionGatewayURL
	}
	return testGatewayURL
}

// CheckoutPayload is the form the browser auto-submits to the gateway.
type CheckoutPayload struct {
	MerchantID string `json:"MerchantID"`
	TradeInfo  string `json:"TradeInfo"`
	TradeSha   string `json:"TradeSha"`
	Version    string `json:"Version"`
}

// BuildCheckout assembles the signed trade payload for one order.
func (c *Client) BuildCheckout(orderNumber string, amount float64, items []models.OrderItem, email string, now time.Time) *CheckoutPayload {
	params := c.buildTradeParams(orderNumber, amount, items, email, now)

	return &CheckoutPayload{
		MerchantID: c.MerchantID,
		TradeInfo:  EncodeTradeInfo(params),
		TradeSha:   ComputeCheckValue(params, c.HashKey, c.HashIV),
		Version:    Version,
	}
}

// Verify checks an inbound notify payload against its check value.
func (c *Client) Verify(tradeInfo, tradeSha string) bool {
	return VerifyCheckValue(tradeInfo, tradeSha, c.HashKey, c.HashIV)
}

// Decode recovers the parameters of an inbound notify payload. It performs
// no authentication; callers must Verify first.
func (c *Client) Decode(tradeInfo string) (map[string]string, error) {
	return DecodeTradeInfo(tradeInfo)
}

func (c *Client) buildTradeParams(orderNumber string, amount float64, items []models.OrderItem, email string, now time.Time) map[string]string {
	descs := make([]string, 0, len(items))
	for _, item := range items {
		descs = append(descs, fmt.Sprintf("%sx%d", item.Name, item.Quantity))
	}

	comment := fmt.Sprintf("Order %s", orderNumber)
	if c.Environment != "production" {
		comment = fmt.Sprintf("Test order %s", orderNumber)
	}

	expiry := now.Add(paymentExpiry)

	return map[string]string{
		"MerchantID":      c.MerchantID,
		"RespondType":     "JSON",
		"TimeStamp":       strconv.FormatInt(now.Unix(), 10),
		"Version":         Version,
		"MerchantOrderNo": orderNumber,
		"Amt":             strconv.FormatInt(int64(math.Round(amount)), 10),
		"ItemDesc":        strings.Join(descs, ","),
		"Email":           email,
		"LoginType":       "0",
		"NotifyURL":       c.NotifyURL,
		"ReturnURL":       c.ReturnURL,
		"OrderComment":    comment,
		"ExpireDate":      expiry.Format("2006-01-02"),
		"ExpireTime":      expiry.Format("15:04:05"),
	}
}
