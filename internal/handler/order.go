package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront-checkout/internal/domain/cart"
	"github.com/xenking/storefront-checkout/internal/domain/catalog"
	"github.com/xenking/storefront-checkout/internal/domain/coupon"
	"github.com/xenking/storefront-checkout/internal/domain/order"
	"github.com/xenking/storefront-checkout/internal/domain/shipping"
)

type createOrderReq struct {
	UserID             string   `json:"userId" binding:"required"`
	AddressID          string   `json:"addressId" binding:"required"`
	ShippingMethodID   string   `json:"shippingMethodId" binding:"required"`
	PaymentMethodID    string   `json:"paymentMethodId"`
	CouponCode         string   `json:"couponCode"`
	SelectedVariantIDs []string `json:"selectedVariantIds" binding:"required"`
}

func (h *Handler) createOrder(c *gin.Context) {
	var req createOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	o, err := h.orders.CreateOrder(c.Request.Context(), order.CreateOrderRequest{
		UserID:             req.UserID,
		AddressID:          req.AddressID,
		ShippingMethodID:   req.ShippingMethodID,
		PaymentMethodID:    req.PaymentMethodID,
		CouponCode:         req.CouponCode,
		SelectedVariantIDs: req.SelectedVariantIDs,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, orderResponse(o))
}

func (h *Handler) getOrder(c *gin.Context) {
	o, err := h.orders.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, orderResponse(o))
}

func (h *Handler) listOrders(c *gin.Context) {
	var query struct {
		UserID string `form:"userId"`
		Status string `form:"status"`
		Limit  int    `form:"limit"`
		Offset int    `form:"offset"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query"})
		return
	}

	list, err := h.orders.ListOrders(c.Request.Context(), order.ListFilter{
		UserID: query.UserID,
		Status: order.Status(query.Status),
		Limit:  query.Limit,
		Offset: query.Offset,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	out := make([]gin.H, len(list))
	for i := range list {
		out[i] = orderResponse(&list[i])
	}
	c.JSON(http.StatusOK, gin.H{"orders": out})
}

type cancelOrderReq struct {
	Reason string `json:"reason" binding:"required"`
}

func (h *Handler) cancelOrder(c *gin.Context) {
	var req cancelOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reason is required"})
		return
	}

	o, err := h.orders.CancelOrder(c.Request.Context(), c.Param("id"), req.Reason, ActorRole(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, orderResponse(o))
}

type transitionReq struct {
	Status string `json:"status" binding:"required"`
}

func (h *Handler) transitionStatus(c *gin.Context) {
	var req transitionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status is required"})
		return
	}

	o, err := h.orders.TransitionStatus(c.Request.Context(), c.Param("id"), order.Status(req.Status), ActorRole(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, orderResponse(o))
}

type deliveryFailureReq struct {
	Reason string `json:"reason" binding:"required"`
}

func (h *Handler) markDeliveryFailed(c *gin.Context) {
	var req deliveryFailureReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reason is required"})
		return
	}

	o, err := h.orders.MarkDeliveryFailed(c.Request.Context(), c.Param("id"), req.Reason, ActorRole(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, orderResponse(o))
}

// orderResponse shapes the aggregate for JSON. Decimals render as strings to
// keep the fixed 2-digit scale intact.
func orderResponse(o *order.Order) gin.H {
	items := make([]gin.H, len(o.Items))
	for i, it := range o.Items {
		items[i] = gin.H{
			"id":          it.ID,
			"variantId":   it.VariantID,
			"productName": it.ProductName,
			"sku":         it.SKU,
			"unitPrice":   it.UnitPrice.StringFixed(2),
			"quantity":    it.Quantity,
		}
	}

	resp := gin.H{
		"id":               o.ID,
		"userId":           o.UserID,
		"addressId":        o.AddressID,
		"shippingMethodId": o.ShippingMethodID,
		"items":            items,
		"subtotal":         o.Subtotal.StringFixed(2),
		"discount":         o.Discount.StringFixed(2),
		"shippingFee":      o.ShippingFee.StringFixed(2),
		"total":            o.Total.StringFixed(2),
		"couponCode":       o.CouponCode,
		"status":           string(o.Status),
		"canCancel":        o.CanCancel(),
		"createdAt":        o.CreatedAt,
		"updatedAt":        o.UpdatedAt,
	}
	if o.CancelReason != "" {
		resp["cancelReason"] = o.CancelReason
	}
	if o.RejectionReason != "" {
		resp["rejectionReason"] = o.RejectionReason
	}
	if o.Payment != nil {
		resp["payment"] = paymentResponse(o.Payment)
	}
	return resp
}

func paymentResponse(p *order.Payment) gin.H {
	history := make([]gin.H, len(p.History))
	for i, h := range p.History {
		history[i] = gin.H{
			"status":    string(h.Status),
			"note":      h.Note,
			"createdAt": h.CreatedAt,
		}
	}
	return gin.H{
		"id":              p.ID,
		"orderId":         p.OrderID,
		"methodId":        p.MethodID,
		"amount":          p.Amount.StringFixed(2),
		"transactionCode": p.TransactionCode,
		"status":          string(p.Status),
		"history":         history,
	}
}

// writeError maps domain errors to HTTP responses. Unknown errors are logged
// and returned as 500 without leaking details.
func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, order.ErrNotFound),
		errors.Is(err, order.ErrPaymentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

	case errors.Is(err, order.ErrEmptySelection),
		errors.Is(err, order.ErrInvalidQuantity):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	case errors.Is(err, coupon.ErrNotFound),
		errors.Is(err, coupon.ErrInactive),
		errors.Is(err, coupon.ErrExpired),
		errors.Is(err, coupon.ErrExhausted),
		errors.Is(err, coupon.ErrMinimumNotMet),
		errors.Is(err, cart.ErrItemNotFound),
		errors.Is(err, catalog.ErrVariantNotFound),
		errors.Is(err, shipping.ErrMethodNotFound),
		errors.Is(err, order.ErrInsufficientStock):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})

	case errors.Is(err, order.ErrIllegalTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})

	case errors.Is(err, order.ErrStorageUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage unavailable, retry later"})

	default:
		zctx.From(c.Request.Context()).Error("Unhandled error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
