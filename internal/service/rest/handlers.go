package rest

import (
	"encoding/json"
	"net/http"

	"github.com/vladislavdragonenkov/clinicshop/internal/domain"
	"github.com/vladislavdragonenkov/clinicshop/internal/service/checkout"
)

type itemRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	PriceMinor  int64  `json:"priceMinor"`
	StockQty    int32  `json:"stockQty"`
	Category    string `json:"category"`
	ImageURL    string `json:"imageUrl"`
}

func (req itemRequest) patch() domain.ItemPatch {
	return domain.ItemPatch{
		Name:        req.Name,
		Description: req.Description,
		PriceMinor:  req.PriceMinor,
		StockQty:    req.StockQty,
		Category:    req.Category,
		ImageURL:    req.ImageURL,
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	ident := identityFrom(r)
	includeInactive := r.URL.Query().Get("includeInactive") == "true"

	items, err := s.catalog.List(ident, includeInactive)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := make([]itemResponse, 0, len(items))
	for _, item := range items {
		resp = append(resp, toItemResponse(item))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	item, err := s.catalog.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	// Покупателям снятый с продажи товар не показываем.
	if !item.Active && !identityFrom(r).IsStaff() {
		writeError(w, domain.ErrItemNotFound)
		return
	}
	writeJSON(w, http.StatusOK, toItemResponse(item))
}

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if !decodeBody(w, r, &req) {
		return
	}

	item, err := s.catalog.Create(r.Context(), req.patch())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toItemResponse(item))
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if !decodeBody(w, r, &req) {
		return
	}

	item, err := s.catalog.Update(r.Context(), r.PathValue("id"), req.patch())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toItemResponse(item))
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := s.catalog.HardDelete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeactivateItem(w http.ResponseWriter, r *http.Request) {
	item, err := s.catalog.Deactivate(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toItemResponse(item))
}

func (s *Server) handleReactivateItem(w http.ResponseWriter, r *http.Request) {
	item, err := s.catalog.Reactivate(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toItemResponse(item))
}

func (s *Server) handleAdjustStock(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Delta int32 `json:"delta"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	level, err := s.catalog.AdjustStock(r.Context(), r.PathValue("id"), req.Delta)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int32{"stockQty": level})
}

func (s *Server) handleGetCart(w http.ResponseWriter, r *http.Request) {
	view, err := s.cart.Get(identityFrom(r).UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(view.Entries, view.TotalMinor))
}

func (s *Server) handleAddToCart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ItemID string `json:"itemId"`
		Qty    int32  `json:"qty"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	entry, err := s.cart.AddItem(r.Context(), identityFrom(r).UserID, req.ItemID, req.Qty)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCartLineResponse(entry))
}

func (s *Server) handleSetCartQty(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Qty int32 `json:"qty"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	entry, err := s.cart.SetQuantity(r.Context(), identityFrom(r).UserID, r.PathValue("lineId"), req.Qty)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartLineResponse(entry))
}

func (s *Server) handleRemoveCartLine(w http.ResponseWriter, r *http.Request) {
	if err := s.cart.Remove(identityFrom(r).UserID, r.PathValue("lineId")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearCart(w http.ResponseWriter, r *http.Request) {
	if err := s.cart.Clear(identityFrom(r).UserID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CustomerName       string `json:"customerName"`
		PaymentToken       string `json:"paymentToken"`
		ExpectedTotalMinor int64  `json:"expectedTotalMinor"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	order, err := s.checkout.Checkout(r.Context(), identityFrom(r).UserID, checkout.Input{
		CustomerName:       req.CustomerName,
		PaymentToken:       req.PaymentToken,
		ExpectedTotalMinor: req.ExpectedTotalMinor,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderResponse(order))
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := s.checkout.ListOrders(identityFrom(r).UserID, 0)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for _, order := range orders {
		resp = append(resp, toOrderResponse(order))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := s.checkout.GetOrder(identityFrom(r).UserID, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

func (s *Server) handleListNotifications(w http.ResponseWriter, _ *http.Request) {
	notifications, err := s.notifier.ListUnread()
	if err != nil {
		writeError(w, err)
		return
	}

	resp := make([]notificationResponse, 0, len(notifications))
	for _, n := range notifications {
		resp = append(resp, toNotificationResponse(n))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	if err := s.notifier.MarkRead(r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMarkAllNotificationsRead(w http.ResponseWriter, _ *http.Request) {
	count, err := s.notifier.MarkAllRead()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"marked": count})
}
