package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/vladislavdragonenkov/clinicshop/internal/domain"
)

type errorResponse struct {
	Error     string             `json:"error"`
	Shortages []shortageResponse `json:"shortages,omitempty"`
}

type shortageResponse struct {
	ItemID    string `json:"itemId"`
	ItemName  string `json:"itemName,omitempty"`
	Requested int32  `json:"requested"`
	Available int32  `json:"available"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

func writeErrorStatus(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeError переводит доменную ошибку в HTTP-статус. Нехватка остатка
// дополнительно возвращает построчную детализацию.
func writeError(w http.ResponseWriter, err error) {
	var stockErr *domain.InsufficientStockError
	if errors.As(err, &stockErr) {
		resp := errorResponse{Error: stockErr.Error()}
		for _, s := range stockErr.Shortages {
			resp.Shortages = append(resp.Shortages, shortageResponse{
				ItemID:    s.ItemID,
				ItemName:  s.ItemName,
				Requested: s.Requested,
				Available: s.Available,
			})
		}
		writeJSON(w, http.StatusConflict, resp)
		return
	}

	switch {
	case domain.IsNotFound(err):
		writeErrorStatus(w, http.StatusNotFound, err.Error())
	case domain.IsConflict(err) || domain.IsInsufficientStock(err):
		writeErrorStatus(w, http.StatusConflict, err.Error())
	case domain.IsValidation(err) || errors.Is(err, domain.ErrEmptyCart):
		writeErrorStatus(w, http.StatusBadRequest, err.Error())
	default:
		writeErrorStatus(w, http.StatusInternalServerError, "internal error")
	}
}

type itemResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	PriceMinor  int64  `json:"priceMinor"`
	StockQty    int32  `json:"stockQty"`
	Category    string `json:"category,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty"`
	Active      bool   `json:"active"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

func toItemResponse(item domain.Item) itemResponse {
	return itemResponse{
		ID:          item.ID,
		Name:        item.Name,
		Description: item.Description,
		PriceMinor:  item.PriceMinor,
		StockQty:    item.StockQty,
		Category:    item.Category,
		ImageURL:    item.ImageURL,
		Active:      item.Active,
		CreatedAt:   item.CreatedAt.Format(time.RFC3339Nano),
		UpdatedAt:   item.UpdatedAt.Format(time.RFC3339Nano),
	}
}

type cartLineResponse struct {
	LineID        string `json:"lineId"`
	ItemID        string `json:"itemId"`
	Name          string `json:"name"`
	PriceMinor    int64  `json:"priceMinor"`
	Qty           int32  `json:"qty"`
	SubtotalMinor int64  `json:"subtotalMinor"`
	AddedAt       string `json:"addedAt"`
}

type cartResponse struct {
	Lines      []cartLineResponse `json:"lines"`
	TotalMinor int64              `json:"totalMinor"`
}

func toCartResponse(entries []domain.CartEntry, total int64) cartResponse {
	lines := make([]cartLineResponse, 0, len(entries))
	for _, entry := range entries {
		lines = append(lines, toCartLineResponse(entry))
	}
	return cartResponse{Lines: lines, TotalMinor: total}
}

func toCartLineResponse(entry domain.CartEntry) cartLineResponse {
	return cartLineResponse{
		LineID:        entry.Line.ID,
		ItemID:        entry.Item.ID,
		Name:          entry.Item.Name,
		PriceMinor:    entry.Item.PriceMinor,
		Qty:           entry.Line.Qty,
		SubtotalMinor: entry.Subtotal(),
		AddedAt:       entry.Line.AddedAt.Format(time.RFC3339Nano),
	}
}

type orderLineResponse struct {
	ItemID     string `json:"itemId"`
	ItemName   string `json:"itemName,omitempty"`
	Qty        int32  `json:"qty"`
	PriceMinor int64  `json:"priceMinor"`
}

type orderResponse struct {
	ID           string              `json:"id"`
	Status       string              `json:"status"`
	TotalMinor   int64               `json:"totalMinor"`
	CustomerName string              `json:"customerName"`
	Summary      string              `json:"summary"`
	Lines        []orderLineResponse `json:"lines"`
	CreatedAt    string              `json:"createdAt"`
}

func toOrderResponse(order domain.Order) orderResponse {
	lines := make([]orderLineResponse, 0, len(order.Lines))
	for _, line := range order.Lines {
		lines = append(lines, orderLineResponse{
			ItemID:     line.ItemID,
			ItemName:   line.ItemName,
			Qty:        line.Qty,
			PriceMinor: line.PriceMinor,
		})
	}
	return orderResponse{
		ID:           order.ID,
		Status:       string(order.Status),
		TotalMinor:   order.TotalMinor,
		CustomerName: order.CustomerName,
		Summary:      order.Summary(),
		Lines:        lines,
		CreatedAt:    order.CreatedAt.Format(time.RFC3339Nano),
	}
}

type notificationResponse struct {
	ID         string `json:"id"`
	ItemID     string `json:"itemId"`
	ItemName   string `json:"itemName,omitempty"`
	StockLevel int32  `json:"stockLevel"`
	CreatedAt  string `json:"createdAt"`
}

func toNotificationResponse(n domain.LowStockNotification) notificationResponse {
	return notificationResponse{
		ID:         n.ID,
		ItemID:     n.ItemID,
		ItemName:   n.ItemName,
		StockLevel: n.StockLevel,
		CreatedAt:  n.CreatedAt.Format(time.RFC3339Nano),
	}
}
