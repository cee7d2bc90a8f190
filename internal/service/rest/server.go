package rest

import (
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/clinicshop/internal/domain"
	"github.com/vladislavdragonenkov/clinicshop/internal/service/cart"
	"github.com/vladislavdragonenkov/clinicshop/internal/service/catalog"
	"github.com/vladislavdragonenkov/clinicshop/internal/service/checkout"
	"github.com/vladislavdragonenkov/clinicshop/internal/service/notifier"
)

const (
	headerUserID   = "X-User-ID"
	headerUserRole = "X-User-Role"
)

// Server — HTTP/JSON API магазина. Аутентификацию выполняет внешний
// слой; сюда личность приходит в заголовках X-User-ID и X-User-Role.
type Server struct {
	catalog  *catalog.Service
	cart     *cart.Service
	checkout *checkout.Service
	notifier *notifier.Service
	logger   *log.Entry
}

// NewServer создаёт HTTP API поверх сервисов магазина.
func NewServer(
	catalogSvc *catalog.Service,
	cartSvc *cart.Service,
	checkoutSvc *checkout.Service,
	notifierSvc *notifier.Service,
	logger *log.Entry,
) *Server {
	if logger == nil {
		logger = log.WithField("component", "rest-api")
	}
	return &Server{
		catalog:  catalogSvc,
		cart:     cartSvc,
		checkout: checkoutSvc,
		notifier: notifierSvc,
		logger:   logger,
	}
}

// Handler возвращает маршрутизатор API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/shop/items", s.handleListItems)
	mux.HandleFunc("POST /api/shop/items", s.staffOnly(s.handleCreateItem))
	mux.HandleFunc("GET /api/shop/items/{id}", s.handleGetItem)
	mux.HandleFunc("PUT /api/shop/items/{id}", s.staffOnly(s.handleUpdateItem))
	mux.HandleFunc("DELETE /api/shop/items/{id}", s.staffOnly(s.handleDeleteItem))
	mux.HandleFunc("POST /api/shop/items/{id}/deactivate", s.staffOnly(s.handleDeactivateItem))
	mux.HandleFunc("POST /api/shop/items/{id}/reactivate", s.staffOnly(s.handleReactivateItem))
	mux.HandleFunc("POST /api/shop/items/{id}/stock", s.staffOnly(s.handleAdjustStock))

	mux.HandleFunc("GET /api/shop/cart", s.userOnly(s.handleGetCart))
	mux.HandleFunc("POST /api/shop/cart", s.userOnly(s.handleAddToCart))
	mux.HandleFunc("PUT /api/shop/cart/{lineId}", s.userOnly(s.handleSetCartQty))
	mux.HandleFunc("DELETE /api/shop/cart/{lineId}", s.userOnly(s.handleRemoveCartLine))
	mux.HandleFunc("DELETE /api/shop/cart", s.userOnly(s.handleClearCart))

	mux.HandleFunc("POST /api/shop/checkout", s.userOnly(s.handleCheckout))
	mux.HandleFunc("GET /api/shop/orders", s.userOnly(s.handleListOrders))
	mux.HandleFunc("GET /api/shop/orders/{id}", s.userOnly(s.handleGetOrder))

	mux.HandleFunc("GET /api/shop/notifications/low-stock", s.staffOnly(s.handleListNotifications))
	mux.HandleFunc("POST /api/shop/notifications/low-stock/{id}/read", s.staffOnly(s.handleMarkNotificationRead))
	mux.HandleFunc("POST /api/shop/notifications/low-stock/read-all", s.staffOnly(s.handleMarkAllNotificationsRead))

	return s.logRequests(mux)
}

// identityFrom извлекает личность вызывающего из заголовков запроса.
func identityFrom(r *http.Request) domain.Identity {
	return domain.Identity{
		UserID: r.Header.Get(headerUserID),
		Role:   r.Header.Get(headerUserRole),
	}
}

// userOnly требует наличия идентификатора пользователя.
func (s *Server) userOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if identityFrom(r).UserID == "" {
			writeErrorStatus(w, http.StatusUnauthorized, "user identity is required")
			return
		}
		next(w, r)
	}
}

// staffOnly пускает только персонал клиники.
func (s *Server) staffOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident := identityFrom(r)
		if ident.UserID == "" {
			writeErrorStatus(w, http.StatusUnauthorized, "user identity is required")
			return
		}
		if !ident.IsStaff() {
			writeErrorStatus(w, http.StatusForbidden, "staff role is required")
			return
		}
		next(w, r)
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		next.ServeHTTP(w, r)
		s.logger.WithFields(log.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"duration_ms": time.Since(started).Milliseconds(),
		}).Debug("http request handled")
	})
}
