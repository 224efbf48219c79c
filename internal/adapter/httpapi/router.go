package httpapi

import (
	"net/http"
	"time"

	"github.com/clothingstore/catalog-service/internal/middleware"
	"github.com/clothingstore/catalog-service/internal/platform/logger"
	"github.com/clothingstore/catalog-service/internal/platform/metrics"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter assembles the chi router. Store and review reads are public;
// every mutation requires a verified bearer token.
func NewRouter(h *Handler, jwtSecret string, m *metrics.Manager, log *logger.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestLogging(log))
	r.Use(latency(m))

	r.Get("/health", h.health)

	r.Get("/stores", h.listStores)
	r.Get("/stores/{storeID}", h.getStore)
	r.Get("/stores/{storeID}/reviews", h.listReviews)

	r.Group(func(r chi.Router) {
		r.Use(middleware.JWTAuth(jwtSecret, log))

		r.Post("/stores", h.createStore)
		r.Patch("/stores/{storeID}", h.updateStore)
		r.Delete("/stores/{storeID}", h.deleteStore)
		r.Delete("/stores/{storeID}/branches/{branchID}", h.deleteBranch)

		r.Post("/stores/{storeID}/reviews/add", h.addReview)
		r.Patch("/stores/{storeID}/reviews/{reviewID}", h.editReview)
		r.Delete("/stores/{storeID}/reviews/{reviewID}", h.deleteReview)

		r.Post("/stores/{storeID}/reviews/{reviewID}/reply", h.addReply)
		r.Patch("/stores/{storeID}/reviews/{reviewID}/reply/{replyID}", h.editReply)
		r.Delete("/stores/{storeID}/reviews/{reviewID}/reply/{replyID}", h.deleteReply)
	})

	return r
}

// latency records per-route request duration using the matched chi pattern
// so path parameters do not explode the label set.
func latency(m *metrics.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)

			route := chi.RouteContext(r.Context()).RoutePattern()
			if route == "" {
				route = "unmatched"
			}
			m.RequestLatency.WithLabelValues(route).Observe(time.Since(start).Seconds())
		})
	}
}
