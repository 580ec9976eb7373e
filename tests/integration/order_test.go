//go:build integration

package integration

import (
	"net/http"
	"testing"
)

// The compose environment has no reachable payment gateway, so checkout is
// exercised up to the gateway call: the important property is that a gateway
// failure surfaces as 502 and leaves no order or stock change behind. The
// paid/failed transitions are covered by the unit suites.

func TestCheckout_NoAuth(t *testing.T) {
	resp := do(t, http.MethodPost, "/api/checkout", "", checkoutBody{
		Items: []checkoutItem{{ProductID: 1, Quantity: 1}},
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestCheckout_EmptyItems(t *testing.T) {
	token := seedToken(t)

	resp := do(t, http.MethodPost, "/api/checkout", token, checkoutBody{})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
}

func TestCheckout_UnknownProduct(t *testing.T) {
	token := seedToken(t)

	resp := do(t, http.MethodPost, "/api/checkout", token, checkoutBody{
		Items: []checkoutItem{{ProductID: 99999, Quantity: 1}},
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestCheckout_GatewayUnavailableRollsBack(t *testing.T) {
	token := seedToken(t)

	listResp := do(t, http.MethodGet, "/api/products", token, nil)
	products := decodeData[[]productResponse](t, listResp)
	listResp.Body.Close()
	if len(products) == 0 {
		t.Fatal("no products seeded")
	}
	target := products[0]

	resp := do(t, http.MethodPost, "/api/checkout", token, checkoutBody{
		Items: []checkoutItem{{ProductID: target.ID, Quantity: 1}},
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.StatusCode)
	}

	// Stock was not consumed and no order was left behind.
	getResp := do(t, http.MethodGet, "/api/products/"+itoa(target.ID), token, nil)
	after := decodeData[productResponse](t, getResp)
	getResp.Body.Close()
	if after.Stock != target.Stock {
		t.Errorf("stock changed: got %d, want %d", after.Stock, target.Stock)
	}

	ordersResp := do(t, http.MethodGet, "/api/orders", token, nil)
	orders := decodeData[[]map[string]any](t, ordersResp)
	ordersResp.Body.Close()
	if len(orders) != 0 {
		t.Errorf("expected no orders, got %d", len(orders))
	}
}

func TestCheckoutSummary(t *testing.T) {
	token := seedToken(t)

	listResp := do(t, http.MethodGet, "/api/products", token, nil)
	products := decodeData[[]productResponse](t, listResp)
	listResp.Body.Close()

	target := products[0]
	resp := do(t, http.MethodPost, "/api/checkout/summary", token, checkoutBody{
		Items: []checkoutItem{{ProductID: target.ID, Quantity: 2}},
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	sum := decodeData[summaryResponse](t, resp)
	if sum.TotalItems != 1 {
		t.Errorf("total_items: got %d, want 1", sum.TotalItems)
	}
	if sum.TotalQuantity != 2 {
		t.Errorf("total_quantity: got %d, want 2", sum.TotalQuantity)
	}
	want := target.Price * 2
	if sum.TotalPrice != want {
		t.Errorf("total_price: got %v, want %v", sum.TotalPrice, want)
	}
	if len(sum.Items) != 1 || !sum.Items[0].StockSufficient {
		t.Errorf("expected one stock-sufficient line, got %+v", sum.Items)
	}

	// Dry run: stock untouched.
	getResp := do(t, http.MethodGet, "/api/products/"+itoa(target.ID), token, nil)
	after := decodeData[productResponse](t, getResp)
	getResp.Body.Close()
	if after.Stock != target.Stock {
		t.Errorf("stock changed: got %d, want %d", after.Stock, target.Stock)
	}
}

func TestCheckoutSummary_ExcessiveQuantityFlagged(t *testing.T) {
	token := seedToken(t)

	listResp := do(t, http.MethodGet, "/api/products", token, nil)
	products := decodeData[[]productResponse](t, listResp)
	listResp.Body.Close()

	target := products[0]
	resp := do(t, http.MethodPost, "/api/checkout/summary", token, checkoutBody{
		Items: []checkoutItem{{ProductID: target.ID, Quantity: target.Stock + 1}},
	})
	defer resp.Body.Close()

	sum := decodeData[summaryResponse](t, resp)
	if len(sum.Items) != 1 {
		t.Fatalf("expected 1 line, got %d", len(sum.Items))
	}
	if sum.Items[0].StockSufficient {
		t.Error("expected stock_sufficient=false")
	}
	if sum.Items[0].StockAvailable != target.Stock {
		t.Errorf("stock_available: got %d, want %d", sum.Items[0].StockAvailable, target.Stock)
	}
}

func TestOrders_EmptyList(t *testing.T) {
	token := seedToken(t)

	resp := do(t, http.MethodGet, "/api/orders", token, nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestWebhook_UnknownOrder(t *testing.T) {
	resp := do(t, http.MethodPost, "/api/webhooks/midtrans", "", map[string]any{
		"order_id":           "1-1700000000",
		"status_code":        "200",
		"gross_amount":       "100.00",
		"transaction_status": "settlement",
		"signature_key":      "invalid",
	})
	defer resp.Body.Close()

	// The signature is checked before the order lookup.
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}
