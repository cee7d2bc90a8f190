package rest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/clinicshop/internal/service/cart"
	"github.com/vladislavdragonenkov/clinicshop/internal/service/catalog"
	"github.com/vladislavdragonenkov/clinicshop/internal/service/checkout"
	"github.com/vladislavdragonenkov/clinicshop/internal/service/notifier"
	"github.com/vladislavdragonenkov/clinicshop/internal/storage/memory"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()

	store := memory.NewStore()
	notifierSvc := notifier.NewService(
		memory.NewNotificationRepository(store),
		notifier.WithThreshold(5),
	)
	catalogSvc := catalog.NewService(
		memory.NewItemRepository(store),
		memory.NewInventoryLedger(store),
		catalog.WithStockObserver(notifierSvc),
	)
	cartSvc := cart.NewService(memory.NewCartRepository(store), memory.NewItemRepository(store))
	checkoutSvc := checkout.NewService(
		memory.NewCartRepository(store),
		memory.NewCheckoutRepository(store),
		memory.NewOrderRepository(store),
		checkout.WithStockObserver(notifierSvc),
	)

	return NewServer(catalogSvc, cartSvc, checkoutSvc, notifierSvc, nil).Handler()
}

func doJSON(t *testing.T, handler http.Handler, method, path string, headers map[string]string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

var (
	staffHeaders    = map[string]string{"X-User-ID": "staff-1", "X-User-Role": "Admin"}
	customerHeaders = map[string]string{"X-User-ID": "user-1", "X-User-Role": "Patient"}
)

func createItem(t *testing.T, handler http.Handler, name string, price int64, stock int32) string {
	t.Helper()

	rec := doJSON(t, handler, http.MethodPost, "/api/shop/items", staffHeaders, map[string]any{
		"name":       name,
		"priceMinor": price,
		"stockQty":   stock,
		"category":   "supplies",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.ID
}

func TestAPIItemManagementRequiresStaff(t *testing.T) {
	handler := newTestHandler(t)

	rec := doJSON(t, handler, http.MethodPost, "/api/shop/items", customerHeaders, map[string]any{"name": "Bandage"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, handler, http.MethodPost, "/api/shop/items", nil, map[string]any{"name": "Bandage"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPIItemLifecycle(t *testing.T) {
	handler := newTestHandler(t)
	itemID := createItem(t, handler, "Bandage", 1500, 10)

	rec := doJSON(t, handler, http.MethodGet, "/api/shop/items", customerHeaders, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var items []itemResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Len(t, items, 1)
	assert.Equal(t, "Bandage", items[0].Name)

	rec = doJSON(t, handler, http.MethodPost, "/api/shop/items/"+itemID+"/deactivate", staffHeaders, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// С витрины товар пропал, но по прямой ссылке staff его видит.
	rec = doJSON(t, handler, http.MethodGet, "/api/shop/items", customerHeaders, nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	assert.Empty(t, items)

	rec = doJSON(t, handler, http.MethodGet, "/api/shop/items/"+itemID, customerHeaders, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, handler, http.MethodGet, "/api/shop/items/"+itemID, staffHeaders, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, handler, http.MethodDelete, "/api/shop/items/"+itemID, staffHeaders, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, handler, http.MethodGet, "/api/shop/items/"+itemID, staffHeaders, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPIItemValidationErrors(t *testing.T) {
	handler := newTestHandler(t)

	rec := doJSON(t, handler, http.MethodPost, "/api/shop/items", staffHeaders, map[string]any{
		"priceMinor": -5,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPICartAndCheckoutFlow(t *testing.T) {
	handler := newTestHandler(t)
	itemID := createItem(t, handler, "Bandage", 1500, 10)

	rec := doJSON(t, handler, http.MethodPost, "/api/shop/cart", customerHeaders, map[string]any{
		"itemId": itemID,
		"qty":    2,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doJSON(t, handler, http.MethodGet, "/api/shop/cart", customerHeaders, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var cartResp cartResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cartResp))
	require.Len(t, cartResp.Lines, 1)
	assert.Equal(t, int64(3000), cartResp.TotalMinor)

	rec = doJSON(t, handler, http.MethodPost, "/api/shop/checkout", customerHeaders, map[string]any{
		"customerName": "J. Doe",
		"paymentToken": "tok-4242",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var orderResp orderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &orderResp))
	assert.Equal(t, "Completed", orderResp.Status)
	assert.Equal(t, int64(3000), orderResp.TotalMinor)
	assert.Equal(t, "2x Bandage", orderResp.Summary)

	rec = doJSON(t, handler, http.MethodGet, "/api/shop/orders", customerHeaders, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var orders []orderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &orders))
	require.Len(t, orders, 1)

	// Чужой заказ недоступен.
	otherUser := map[string]string{"X-User-ID": "user-2"}
	rec = doJSON(t, handler, http.MethodGet, "/api/shop/orders/"+orders[0].ID, otherUser, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPICheckoutEmptyCart(t *testing.T) {
	handler := newTestHandler(t)

	rec := doJSON(t, handler, http.MethodPost, "/api/shop/checkout", customerHeaders, map[string]any{
		"customerName": "J. Doe",
		"paymentToken": "tok-4242",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPICheckoutShortageDetails(t *testing.T) {
	handler := newTestHandler(t)
	itemID := createItem(t, handler, "Bandage", 1500, 2)

	rec := doJSON(t, handler, http.MethodPost, "/api/shop/cart", customerHeaders, map[string]any{
		"itemId": itemID,
		"qty":    2,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	// Остаток уходит в ноль руками staff до оформления.
	rec = doJSON(t, handler, http.MethodPost, "/api/shop/items/"+itemID+"/stock", staffHeaders, map[string]any{"delta": -2})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, handler, http.MethodPost, "/api/shop/checkout", customerHeaders, map[string]any{
		"customerName": "J. Doe",
		"paymentToken": "tok-4242",
	})
	require.Equal(t, http.StatusConflict, rec.Code)

	var errResp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	require.Len(t, errResp.Shortages, 1)
	assert.Equal(t, itemID, errResp.Shortages[0].ItemID)
	assert.Equal(t, int32(0), errResp.Shortages[0].Available)
}

func TestAPILowStockNotifications(t *testing.T) {
	handler := newTestHandler(t)
	itemID := createItem(t, handler, "Bandage", 1500, 7)

	rec := doJSON(t, handler, http.MethodPost, "/api/shop/cart", customerHeaders, map[string]any{
		"itemId": itemID,
		"qty":    3,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, handler, http.MethodPost, "/api/shop/checkout", customerHeaders, map[string]any{
		"customerName": "J. Doe",
		"paymentToken": "tok-4242",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	// Остаток 4 <= порога 5: появилось уведомление.
	rec = doJSON(t, handler, http.MethodGet, "/api/shop/notifications/low-stock", staffHeaders, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var notifications []notificationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &notifications))
	require.Len(t, notifications, 1)
	assert.Equal(t, int32(4), notifications[0].StockLevel)

	// Покупателю уведомления недоступны.
	rec = doJSON(t, handler, http.MethodGet, "/api/shop/notifications/low-stock", customerHeaders, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, handler, http.MethodPost, "/api/shop/notifications/low-stock/"+notifications[0].ID+"/read", staffHeaders, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, handler, http.MethodGet, "/api/shop/notifications/low-stock", staffHeaders, nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &notifications))
	assert.Empty(t, notifications)
}
