//go:build integration

package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"testing"
)

// postOrder issues a checkout without the t-bound helpers so it can run from
// multiple goroutines; failures travel back over the error channel.
func postOrder(req createOrderRequest) (int, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return 0, err
	}

	httpReq, err := http.NewRequest(http.MethodPost, baseURL+"/api/orders", bytes.NewReader(data))
	if err != nil {
		return 0, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Api-Key", customerKey)

	resp, err := httpClient.Do(httpReq)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}

// raceOrders fires one checkout per request concurrently and tallies how
// many were created versus rejected with 422.
func raceOrders(t *testing.T, reqs []createOrderRequest) (created, rejected int) {
	t.Helper()

	codes := make(chan int, len(reqs))
	errs := make(chan error, len(reqs))

	var wg sync.WaitGroup
	for _, req := range reqs {
		wg.Add(1)
		go func(req createOrderRequest) {
			defer wg.Done()
			code, err := postOrder(req)
			if err != nil {
				errs <- err
				return
			}
			codes <- code
		}(req)
	}
	wg.Wait()
	close(codes)
	close(errs)

	for err := range errs {
		t.Fatalf("checkout: %v", err)
	}
	for code := range codes {
		switch code {
		case http.StatusCreated:
			created++
		case http.StatusUnprocessableEntity:
			rejected++
		default:
			t.Fatalf("unexpected status %d", code)
		}
	}
	return created, rejected
}

func TestCreateOrder_ConcurrentSingleUseCoupon(t *testing.T) {
	execSQL(t, `INSERT INTO coupons (code, discount_type, value, usage_limit, used_count, active)
		VALUES ('ONESHOT15', 'percentage', 15, 1, 0, true)
		ON CONFLICT (code) DO UPDATE SET usage_limit = 1, used_count = 0, active = true;`)

	users := []string{"user-race-a", "user-race-b"}
	reqs := make([]createOrderRequest, 0, len(users))
	for _, userID := range users {
		seedCartFor(t, userID, map[string]int{"var-mug-black": 1})
		reqs = append(reqs, createOrderRequest{
			UserID:             userID,
			AddressID:          "addr-1",
			ShippingMethodID:   "standard",
			CouponCode:         "ONESHOT15",
			SelectedVariantIDs: []string{"var-mug-black"},
		})
	}

	created, rejected := raceOrders(t, reqs)

	if created != 1 || rejected != 1 {
		t.Fatalf("got %d created / %d rejected, want exactly 1 / 1", created, rejected)
	}
	if got := querySQL(t, "SELECT used_count FROM coupons WHERE code = 'ONESHOT15'"); got != "1" {
		t.Errorf("used_count: got %s, want 1", got)
	}
}

func TestCreateOrder_ConcurrentStockDepletion(t *testing.T) {
	const buyers = 4

	// One unit fewer in stock than there are buyers.
	execSQL(t, fmt.Sprintf(`INSERT INTO variants (id, product_id, product_name, sku, list_price, weight_kg, stock)
		VALUES ('var-limited', 'prod-limited', 'Limited Poster', 'POSTER-LTD', 120000, 0.1, %d)
		ON CONFLICT (id) DO UPDATE SET stock = %d;`, buyers-1, buyers-1))

	reqs := make([]createOrderRequest, 0, buyers)
	for i := 0; i < buyers; i++ {
		userID := fmt.Sprintf("user-stock-%d", i)
		seedCartFor(t, userID, map[string]int{"var-limited": 1})
		reqs = append(reqs, createOrderRequest{
			UserID:             userID,
			AddressID:          "addr-1",
			ShippingMethodID:   "standard",
			SelectedVariantIDs: []string{"var-limited"},
		})
	}

	created, rejected := raceOrders(t, reqs)

	if created != buyers-1 || rejected != 1 {
		t.Fatalf("got %d created / %d rejected, want exactly %d / 1", created, rejected, buyers-1)
	}
	if got := querySQL(t, "SELECT stock FROM variants WHERE id = 'var-limited'"); got != "0" {
		t.Errorf("stock: got %s, want 0", got)
	}
}
