package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type RouterConfig struct {
	Products      *ProductHandler
	References    *ReferenceHandler
	Carts         *CartHandler
	Discounts     *DiscountHandler
	Orders        *OrdersHandler
	Health        *HealthHandler
	Authenticator *Authenticator
	OrderLimiter  *RateLimiter

	// TrustProxy rewrites RemoteAddr from X-Forwarded-For or X-Real-IP.
	TrustProxy     bool
	UploadsDir     string
	MaxBodySize    int64
	RequestTimeout time.Duration
	Logger         *slog.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	if cfg.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(RequestLogger(cfg.Logger))
	r.Use(middleware.RequestSize(cfg.MaxBodySize))
	r.Use(middleware.Timeout(cfg.RequestTimeout))

	r.Method(http.MethodGet, "/health", cfg.Health)
	r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.UploadsDir))))

	r.Route("/api", func(r chi.Router) {
		r.Use(cfg.Authenticator.Authenticate)

		r.Route("/products", func(r chi.Router) {
			r.Get("/", cfg.Products.List)
			r.Get("/{id}", cfg.Products.Get)

			r.Group(func(r chi.Router) {
				r.Use(RequireAdmin)
				r.Post("/", cfg.Products.Create)
				r.Put("/{id}", cfg.Products.Update)
				r.Delete("/{id}", cfg.Products.Delete)
			})
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", cfg.References.ListCategories)
			r.Get("/{id}", cfg.References.GetCategory)

			r.Group(func(r chi.Router) {
				r.Use(RequireAdmin)
				r.Post("/", cfg.References.CreateCategory)
				r.Put("/{id}", cfg.References.UpdateCategory)
				r.Delete("/{id}", cfg.References.DeleteCategory)
			})
		})

		r.Route("/brands", func(r chi.Router) {
			r.Get("/", cfg.References.ListBrands)
			r.Get("/{id}", cfg.References.GetBrand)

			r.Group(func(r chi.Router) {
				r.Use(RequireAdmin)
				r.Post("/", cfg.References.CreateBrand)
				r.Put("/{id}", cfg.References.UpdateBrand)
				r.Delete("/{id}", cfg.References.DeleteBrand)
			})
		})

		r.Route("/reviews", func(r chi.Router) {
			r.Get("/", cfg.References.ListReviews)
			r.Get("/{id}", cfg.References.GetReview)
			r.With(RequireUser).Post("/", cfg.References.CreateReview)

			r.Group(func(r chi.Router) {
				r.Use(RequireAdmin)
				r.Put("/{id}", cfg.References.UpdateReview)
				r.Delete("/{id}", cfg.References.DeleteReview)
			})
		})

		r.With(RequireAdmin).Post("/discounts", cfg.Discounts.Apply)

		r.Route("/cart", func(r chi.Router) {
			r.Use(RequireUser)
			r.Get("/", cfg.Carts.GetCart)
			r.Post("/", cfg.Carts.AddItem)
			r.Delete("/", cfg.Carts.ClearCart)
			r.Put("/{productId}", cfg.Carts.UpdateQuantity)
			r.Delete("/{productId}", cfg.Carts.RemoveItem)
		})

		r.Route("/orders", func(r chi.Router) {
			r.With(cfg.OrderLimiter.Middleware).Post("/", cfg.Orders.PlaceOrder)

			r.Group(func(r chi.Router) {
				r.Use(RequireAdmin)
				r.Get("/", cfg.Orders.ListOrders)
				r.Get("/{id}", cfg.Orders.GetOrder)
				r.Put("/{id}", cfg.Orders.UpdateStatus)
			})
		})
	})

	return otelhttp.NewHandler(r, "storefront")
}
