package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/shopora-backend/api/controllers"
	authcontrollers "github.com/angelmondragon/shopora-backend/api/controllers/auth"
	cartcontrollers "github.com/angelmondragon/shopora-backend/api/controllers/cart"
	ordercontrollers "github.com/angelmondragon/shopora-backend/api/controllers/orders"
	"github.com/angelmondragon/shopora-backend/api/middleware"
	"github.com/angelmondragon/shopora-backend/internal/auth"
	"github.com/angelmondragon/shopora-backend/internal/cart"
	"github.com/angelmondragon/shopora-backend/internal/orders"
	products "github.com/angelmondragon/shopora-backend/internal/products"
	"github.com/angelmondragon/shopora-backend/internal/users"
	"github.com/angelmondragon/shopora-backend/pkg/auth/session"
	"github.com/angelmondragon/shopora-backend/pkg/config"
	"github.com/angelmondragon/shopora-backend/pkg/db"
	"github.com/angelmondragon/shopora-backend/pkg/logger"
	"github.com/angelmondragon/shopora-backend/pkg/pricing"
	"github.com/angelmondragon/shopora-backend/pkg/redis"
)

type sessionManager interface {
	session.AccessSessionChecker
	Rotate(context.Context, string, string) (string, string, error)
	Revoke(context.Context, string) error
}

// Services groups the domain services the HTTP layer dispatches to.
type Services struct {
	Auth     auth.Service
	Cart     cart.Service
	Products products.Service
	Orders   orders.Service
	Users    users.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	sessionManager sessionManager,
	policy pricing.Policy,
	metricsHandler http.Handler,
	svc Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS),
	)

	// Idempotency matches on the full route pattern, so it is only ever
	// attached inline where chi has finished routing.
	var (
		idempotency = middleware.Idempotency(nil, logg)
		rateStore   = middleware.NewRateLimitStore(nil)
		readiness   = map[string]controllers.Pinger{}
	)
	if dbP != nil {
		readiness["database"] = dbP
	}
	if redisClient != nil {
		idempotency = middleware.Idempotency(redisClient, logg)
		rateStore = middleware.NewRateLimitStore(redisClient)
		readiness["redis"] = redisClient
	}
	loginLimit := middleware.AuthRateLimit(middleware.LoginRateLimitPolicy(cfg.AuthRateLimit), rateStore, logg)
	registerLimit := middleware.AuthRateLimit(middleware.RegisterRateLimitPolicy(cfg.AuthRateLimit), rateStore, logg)
	authenticate := middleware.Auth(cfg.JWT, sessionManager, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})
	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}

	r.Get("/api/config", controllers.PublicConfig(cfg, policy))
	r.Get("/api/config/stripe", controllers.StripeConfig(cfg.Stripe, logg))

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(loginLimit).Post("/login", authcontrollers.AuthLogin(svc.Auth, logg))
		r.With(registerLimit, idempotency).Post("/register", authcontrollers.AuthRegister(svc.Auth, logg))
		r.Post("/logout", controllers.AuthLogout(sessionManager, cfg.JWT, logg))
		r.Post("/refresh", controllers.AuthRefresh(sessionManager, cfg.JWT, logg))
	})

	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", controllers.ProductList(svc.Products, logg))
		r.Get("/featured", controllers.ProductFeatured(svc.Products, logg))
		r.Get("/top", controllers.ProductTopRated(svc.Products, logg))
		r.Get("/categories", controllers.ProductCategories(svc.Products, logg))
		r.Get("/{id}", controllers.ProductDetail(svc.Products, logg))

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.With(idempotency).Post("/{id}/reviews", controllers.ProductReview(svc.Products, svc.Users, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin(logg))
				r.Post("/", controllers.AdminCreateProduct(svc.Products, logg))
				r.Put("/{id}", controllers.AdminUpdateProduct(svc.Products, logg))
				r.Delete("/{id}", controllers.AdminDeleteProduct(svc.Products, logg))
			})
		})
	})

	r.Route("/api/v1/cart", func(r chi.Router) {
		r.Post("/quote", cartcontrollers.CartQuote(svc.Cart, logg))

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Get("/", cartcontrollers.CartFetch(svc.Cart, logg))
			r.Post("/", cartcontrollers.CartAddItem(svc.Cart, logg))
			r.Delete("/", cartcontrollers.CartClear(svc.Cart, logg))
			r.With(idempotency).Post("/merge", cartcontrollers.CartMerge(svc.Cart, logg))
			r.Put("/{productId}", cartcontrollers.CartUpdateItem(svc.Cart, logg))
			r.Delete("/{productId}", cartcontrollers.CartRemoveItem(svc.Cart, logg))
		})
	})

	r.Route("/api/v1/orders", func(r chi.Router) {
		r.Use(authenticate)
		r.With(idempotency).Post("/", ordercontrollers.Create(svc.Orders, logg))
		r.Get("/mine", ordercontrollers.ListMine(svc.Orders, logg))
		r.Get("/{id}", ordercontrollers.Detail(svc.Orders, logg))
		r.With(idempotency).Put("/{id}/pay", ordercontrollers.Pay(svc.Orders, logg))
		r.With(idempotency).Put("/{id}/cancel", ordercontrollers.Cancel(svc.Orders, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin(logg))
			r.Get("/", ordercontrollers.AdminList(svc.Orders, logg))
			r.Put("/{id}/deliver", ordercontrollers.Deliver(svc.Orders, logg))
			r.Put("/{id}/status", ordercontrollers.UpdateStatus(svc.Orders, logg))
		})
	})

	r.Route("/api/v1/users", func(r chi.Router) {
		r.Use(authenticate)
		r.Get("/profile", controllers.ProfileGet(svc.Users, logg))
		r.Put("/profile", controllers.ProfileUpdate(svc.Users, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin(logg))
			r.Get("/", controllers.AdminListUsers(svc.Users, logg))
			r.Get("/{id}", controllers.AdminGetUser(svc.Users, logg))
			r.Put("/{id}", controllers.AdminUpdateUser(svc.Users, logg))
			r.Delete("/{id}", controllers.AdminDeleteUser(svc.Users, logg))
		})
	})

	return r
}
