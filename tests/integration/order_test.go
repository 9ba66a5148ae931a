//go:build integration

package integration

import (
	"net/http"
	"regexp"
	"testing"
)

var uuidPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

func checkoutRequest(variantIDs ...string) createOrderRequest {
	return createOrderRequest{
		UserID:             demoUser,
		AddressID:          "addr-1",
		ShippingMethodID:   "standard",
		SelectedVariantIDs: variantIDs,
	}
}

func placeOrder(t *testing.T, req createOrderRequest) orderResponse {
	t.Helper()

	resp := doPost(t, "/api/orders", req, customerKey)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	return decodeJSON[orderResponse](t, resp)
}

func TestCreateOrder_NoAuth(t *testing.T) {
	resp := doPost(t, "/api/orders", checkoutRequest("var-mug-black"), "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestCreateOrder_InvalidKey(t *testing.T) {
	resp := doPost(t, "/api/orders", checkoutRequest("var-mug-black"), "wrong-key")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestCreateOrder_EmptySelection(t *testing.T) {
	resp := doPost(t, "/api/orders", checkoutRequest(), customerKey)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestCreateOrder_VariantNotInCart(t *testing.T) {
	seedCart(t, map[string]int{"var-mug-black": 1})

	resp := doPost(t, "/api/orders", checkoutRequest("var-bottle"), customerKey)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
}

func TestCreateOrder_SingleItem(t *testing.T) {
	seedCart(t, map[string]int{"var-mug-black": 2})

	// 2 x 150000 = 300000; weight 0.9kg within the 1kg base allowance, so
	// shipping is the 30000 base fee.
	o := placeOrder(t, checkoutRequest("var-mug-black"))

	if !uuidPattern.MatchString(o.ID) {
		t.Errorf("order id %q is not a uuid", o.ID)
	}
	if o.Status != "PENDING" {
		t.Errorf("status: got %q, want PENDING", o.Status)
	}
	if o.Subtotal != "300000.00" {
		t.Errorf("subtotal: got %s, want 300000.00", o.Subtotal)
	}
	if o.ShippingFee != "30000.00" {
		t.Errorf("shipping: got %s, want 30000.00", o.ShippingFee)
	}
	if o.Total != "330000.00" {
		t.Errorf("total: got %s, want 330000.00", o.Total)
	}
	if o.Payment == nil || o.Payment.Status != "PENDING" {
		t.Fatalf("expected a PENDING payment, got %+v", o.Payment)
	}
	if o.Payment.Amount != o.Total {
		t.Errorf("payment amount %s != total %s", o.Payment.Amount, o.Total)
	}
}

func TestCreateOrder_SalePriceSnapshot(t *testing.T) {
	seedCart(t, map[string]int{"var-mug-white": 1})

	// var-mug-white lists at 150000 with a 129000 sale price.
	o := placeOrder(t, checkoutRequest("var-mug-white"))

	if len(o.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(o.Items))
	}
	if o.Items[0].UnitPrice != "129000.00" {
		t.Errorf("unit price: got %s, want 129000.00", o.Items[0].UnitPrice)
	}
}

func TestCreateOrder_PercentageCouponCapped(t *testing.T) {
	seedCart(t, map[string]int{"var-mug-black": 2, "var-tee-m": 2})

	// Subtotal 2x150000 + 2x250000 = 800000. WELCOME10 is 10% capped at
	// 50000, so the discount hits the cap.
	req := checkoutRequest("var-mug-black", "var-tee-m")
	req.CouponCode = "WELCOME10"
	o := placeOrder(t, req)

	if o.Discount != "50000.00" {
		t.Errorf("discount: got %s, want 50000.00", o.Discount)
	}
}

func TestCreateOrder_UnknownCoupon(t *testing.T) {
	seedCart(t, map[string]int{"var-mug-black": 1})

	req := checkoutRequest("var-mug-black")
	req.CouponCode = "NOSUCHCODE"
	resp := doPost(t, "/api/orders", req, customerKey)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
}

func TestCreateOrder_InsufficientStock(t *testing.T) {
	// var-bottle has 20 in stock.
	seedCart(t, map[string]int{"var-bottle": 50})

	resp := doPost(t, "/api/orders", checkoutRequest("var-bottle"), customerKey)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
}

func TestCancelOrder(t *testing.T) {
	seedCart(t, map[string]int{"var-mug-black": 1})
	o := placeOrder(t, checkoutRequest("var-mug-black"))

	resp := doPost(t, "/api/orders/"+o.ID+"/cancel",
		map[string]string{"reason": "changed my mind"}, customerKey)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	cancelled := decodeJSON[orderResponse](t, resp)
	if cancelled.Status != "CANCELLED" {
		t.Errorf("status: got %q, want CANCELLED", cancelled.Status)
	}
	if cancelled.CanCancel {
		t.Error("cancelled order should not be cancellable")
	}
}

func TestTransitionStatus_CustomerForbidden(t *testing.T) {
	seedCart(t, map[string]int{"var-mug-black": 1})
	o := placeOrder(t, checkoutRequest("var-mug-black"))

	resp := doPost(t, "/api/orders/"+o.ID+"/status",
		map[string]string{"status": "CONFIRMED"}, customerKey)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

func TestTransitionStatus_AdminSkipConflicts(t *testing.T) {
	seedCart(t, map[string]int{"var-mug-black": 1})
	o := placeOrder(t, checkoutRequest("var-mug-black"))

	// PENDING cannot jump straight to SHIPPING.
	resp := doPost(t, "/api/orders/"+o.ID+"/status",
		map[string]string{"status": "SHIPPING"}, adminKey)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}

func TestGetOrder_NotFound(t *testing.T) {
	resp := doGet(t, "/api/orders/does-not-exist", customerKey)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}
