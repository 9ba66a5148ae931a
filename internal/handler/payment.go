package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront-checkout/internal/domain/gateway"
	"github.com/xenking/storefront-checkout/internal/domain/order"
)

// initiatePayment builds the signed gateway redirect URL for an order's
// pending payment. The client follows the URL to complete the payment on the
// gateway's site.
func (h *Handler) initiatePayment(c *gin.Context) {
	o, err := h.orders.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	if o.Payment == nil {
		h.writeError(c, order.ErrPaymentNotFound)
		return
	}
	if o.Payment.Status != order.PaymentPending {
		c.JSON(http.StatusConflict, gin.H{"error": "payment already settled"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"orderId":    o.ID,
		"paymentUrl": h.gateway.BuildRedirectURL(o, c.ClientIP(), nil),
	})
}

// paymentCallback handles the gateway's return call. Authentication is the
// callback's own signature; the route stays outside the API key group.
func (h *Handler) paymentCallback(c *gin.Context) {
	lg := zctx.From(c.Request.Context())

	outcome, err := h.gateway.HandleCallback(c.Request.Context(), c.Request.URL.Query())
	if err != nil {
		switch {
		case errors.Is(err, gateway.ErrInvalidSignature):
			lg.Warn("Rejected callback with bad signature", zap.String("ip", c.ClientIP()))
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
		case errors.Is(err, gateway.ErrMissingTxnRef):
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing transaction reference"})
		default:
			h.writeError(c, err)
		}
		return
	}

	lg.Info("Processed gateway callback",
		zap.String("order_id", outcome.OrderID),
		zap.String("payment_status", string(outcome.Payment.Status)),
		zap.Bool("duplicate", outcome.Duplicate))

	c.JSON(http.StatusOK, gin.H{
		"orderId":       outcome.OrderID,
		"paymentStatus": string(outcome.Payment.Status),
		"duplicate":     outcome.Duplicate,
	})
}
