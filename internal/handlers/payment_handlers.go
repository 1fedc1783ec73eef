package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/lumierebeauty/lumiere-golang/internal/payments"
)

//
// --- Payment Handlers ---
//

// Checkout is the handler for POST /v1/member/checkout
func (h *Handlers) Checkout(c *gin.Context) {
	// 1. --- Get Member ID ---
	userID_raw, _ := c.Get("userID")
	userID := userID_raw.(int64)

	// 2. --- Bind & Validate JSON ---
	var input payments.InitiateRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// 3. --- Create the pending order/payment pair ---
	result, err := h.Payments.Initiate(c, userID, &input)
	if err != nil {
		switch errors.Cause(err) {
		case payments.ErrEmptyCart, payments.ErrInvalidAmount, payments.ErrMissingShipping:
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case payments.ErrCouponNotUsable:
			c.JSON(http.StatusConflict, gin.H{"error": "Coupon cannot be applied to this order"})
		default:
			h.Log.WithError(err).Error("checkout failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create order"})
		}
		return
	}

	// 4. --- Return the signed gateway payload ---
	// The browser auto-submits result.newebpayData as a form POST to paymentUrl.
	c.JSON(http.StatusOK, result)
}

// NewebpayNotify is the handler for POST /v1/payments/newebpay/notify
//
// This is the gateway's server-to-server callback. The contract is strict:
// respond with the literal body "1|OK" and HTTP 200 no matter what, or the
// gateway keeps re-sending the same notify. Reconciliation failures are
// handled on our side (retry queue), never by failing the ack.
func (h *Handlers) NewebpayNotify(c *gin.Context) {
	// 1. --- Bind the callback body (form-encoded, JSON tolerated) ---
	var notify payments.Notify
	if err := c.ShouldBind(&notify); err != nil {
		h.Log.WithError(err).Warn("newebpay notify: unreadable body")
		c.String(http.StatusOK, "1|OK")
		return
	}

	// 2. --- Verify, decode and apply ---
	_, err := h.Payments.Reconcile(c, &notify)
	if err != nil {
		switch errors.Cause(err) {
		case payments.ErrMissingNotifyData, payments.ErrInvalidCheckValue, payments.ErrMalformedPayload:
			// Forged or garbled. Retrying can never fix these; drop them.
			h.Log.WithError(err).Warn("newebpay notify rejected")
		default:
			// Persistence hiccup. The trade order is authentic, so park the
			// notify for the background worker instead of losing it.
			h.Log.WithError(err).Error("newebpay notify: reconcile failed, queueing for retry")
			if h.Queue != nil {
				if qerr := h.Queue.Enqueue(c, &notify); qerr != nil {
					h.Log.WithError(qerr).Error("newebpay notify: retry enqueue failed")
				}
			}
		}
	}

	// 3. --- Always acknowledge ---
	c.String(http.StatusOK, "1|OK")
}

// PaymentResult is the handler for GET /v1/payments/result?orderNumber=...
//
// The return-URL page polls this after the gateway redirects the payer back.
// It is a read-only projection; the notify is the source of truth.
func (h *Handlers) PaymentResult(c *gin.Context) {
	orderNumber := c.Query("orderNumber")
	if orderNumber == "" {
		// The gateway's return redirect carries the vendor's own param name.
		orderNumber = c.Query("MerchantOrderNo")
	}
	if orderNumber == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "orderNumber is required"})
		return
	}

	result, err := h.Payments.QueryResult(c, orderNumber)
	if err != nil {
		if errors.Cause(err) == payments.ErrOrderNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		h.Log.WithError(err).Error("payment result lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up payment result"})
		return
	}

	c.JSON(http.StatusOK, result)
}
