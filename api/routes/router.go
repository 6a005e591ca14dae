package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	cartcontrollers "github.com/angelmondragon/storefront-backend/api/controllers/cart"
	ordercontrollers "github.com/angelmondragon/storefront-backend/api/controllers/orders"
	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

// RedisStore is the slice of the redis client the HTTP layer depends on.
type RedisStore interface {
	redis.Pinger
	redis.IdempotencyStore
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisStore RedisStore,
	gatherer prometheus.Gatherer,
	httpMetrics *metrics.HTTPMetrics,
	cartService cart.Service,
	placer ordercontrollers.Placer,
	queries ordercontrollers.Queries,
	workflow ordercontrollers.Decider,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID(logg),
		middleware.Recoverer(logg),
		middleware.Logging(logg, httpMetrics),
		middleware.CORS(cfg.Service.CORSAllowedOrigins),
	)

	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	placePolicy := middleware.NewRateLimitPolicy("orders-place", cfg.Orders.PlaceRateLimit, cfg.Orders.PlaceRateLimitWindow)
	adminOnly := middleware.RequireRole(logg, enums.RoleAdmin)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisStore))
	})
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(redisStore, cfg.Idempotency, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartcontrollers.CartFetch(cartService, logg))
			r.Post("/", cartcontrollers.CartUpsertItem(cartService, logg))
			r.Put("/", cartcontrollers.CartReplace(cartService, logg))
			r.Delete("/item/{productId}", cartcontrollers.CartRemoveItem(cartService, logg))
			r.Patch("/item/{productId}", cartcontrollers.CartUpdateQuantity(cartService, logg))
			r.Delete("/clear", cartcontrollers.CartClear(cartService, logg))
			r.Post("/merge", cartcontrollers.CartMerge(cartService, logg))
		})
		r.Route("/orders", func(r chi.Router) {
			r.With(middleware.UserRateLimit(placePolicy, redisStore, logg)).Post("/place", ordercontrollers.Place(placer, logg))
			r.Get("/user/{userId}", ordercontrollers.ListForUser(queries, logg))
			r.Get("/{orderId}", ordercontrollers.Detail(queries, logg))
			r.With(adminOnly).Put("/{orderId}/status", ordercontrollers.UpdateStatus(workflow, logg))
		})
		r.Route("/requests", func(r chi.Router) {
			r.With(adminOnly).Get("/", ordercontrollers.ListRequests(queries, logg))
			r.Get("/user/{userId}", ordercontrollers.ListUserRequests(queries, logg))
			r.With(adminOnly).Put("/{id}/approve", ordercontrollers.Approve(workflow, logg))
			r.With(adminOnly).Put("/{id}/reject", ordercontrollers.Reject(workflow, logg))
			r.Put("/{id}/cancel", ordercontrollers.Cancel(workflow, logg))
		})
		r.Route("/admin", func(r chi.Router) {
			r.Use(adminOnly)
			r.Get("/orders", ordercontrollers.AdminList(queries, logg))
		})
	})
	return r
}
