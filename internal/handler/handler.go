// Package handler exposes the checkout operations over HTTP with gin.
package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xenking/storefront-checkout/internal/domain/gateway"
	"github.com/xenking/storefront-checkout/internal/domain/order"
)

// Handler wires the gin routes to the order workflow and payment gateway.
type Handler struct {
	orders  *order.Workflow
	gateway *gateway.Gateway
}

// New constructs a Handler with the required domain dependencies.
func New(orders *order.Workflow, gw *gateway.Gateway) *Handler {
	return &Handler{orders: orders, gateway: gw}
}

// Register mounts the API routes on the engine. The payment callback is
// deliberately outside the authenticated group: it is called by the gateway,
// authenticated by its signature instead.
func (h *Handler) Register(r *gin.Engine, security *Security) {
	r.GET("/api/payments/callback", h.paymentCallback)

	api := r.Group("/api", security.Authenticate())
	{
		orders := api.Group("/orders")
		orders.POST("", h.createOrder)
		orders.GET("", h.listOrders)
		orders.GET(":id", h.getOrder)
		orders.POST(":id/cancel", h.cancelOrder)
		orders.POST(":id/status", RequireAdmin(), h.transitionStatus)
		orders.POST(":id/delivery-failure", RequireAdmin(), h.markDeliveryFailed)
		orders.POST(":id/payment", h.initiatePayment)
	}
}
