package http

import (
	"net/http"

	"github.com/farmgate/farmgate-api/internal/application/auth"
	"github.com/farmgate/farmgate-api/internal/application/farmer"
	"github.com/farmgate/farmgate-api/internal/application/otp"
	"github.com/farmgate/farmgate-api/internal/application/session"
	"github.com/farmgate/farmgate-api/internal/config"
	"github.com/farmgate/farmgate-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/farmgate/farmgate-api/internal/infrastructure/jwt"
	"github.com/farmgate/farmgate-api/internal/infrastructure/notify"
	redisinfra "github.com/farmgate/farmgate-api/internal/infrastructure/redis"
	s3infra "github.com/farmgate/farmgate-api/internal/infrastructure/s3"
	"github.com/farmgate/farmgate-api/internal/transport/http/handler"
	appmiddleware "github.com/farmgate/farmgate-api/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	FarmerRepo     *dynamo.FarmerRepo
	ChallengeStore *redisinfra.ChallengeStore
	S3Store        *s3infra.Store
	Dispatcher     *notify.Dispatcher
	JWTProvider    *jwtinfra.Provider
}

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	otpMgr := otp.NewManager(otp.ManagerDeps{
		Store:           deps.ChallengeStore,
		Dispatcher:      deps.Dispatcher,
		GenerateCode:    otp.NewCodeGenerator(cfg.OTPDigits),
		TTL:             cfg.OTPTTL,
		DispatchTimeout: cfg.DispatchTimeout,
	})
	sessionSvc := session.NewService(deps.FarmerRepo, deps.JWTProvider)
	authSvc := auth.NewService(auth.ServiceDeps{
		Farmers:  deps.FarmerRepo,
		OTP:      otpMgr,
		Sessions: sessionSvc,
	})
	farmerSvc := farmer.NewService(farmer.ServiceDeps{
		Farmers: deps.FarmerRepo,
		Objects: deps.S3Store,
	})

	healthH := handler.NewHealthHandler()
	authH := handler.NewAuthHandler(handler.AuthHandlerDeps{
		Auth:       authSvc,
		Sessions:   sessionSvc,
		AccessTTL:  deps.JWTProvider.AccessTTL(),
		RefreshTTL: deps.JWTProvider.RefreshTTL(),
		Secure:     cfg.AppEnv != "development",
	})
	farmerH := handler.NewFarmerHandler(farmerSvc)
	sellerH := handler.NewSellerHandler(farmerSvc)

	authMw := appmiddleware.Auth(deps.JWTProvider)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)

		r.Post("/auth/register/request-otp", authH.RequestRegisterOTP)
		r.Post("/auth/register/verify", authH.VerifyRegister)
		r.Post("/auth/login/request-otp", authH.RequestLoginOTP)
		r.Post("/auth/login/verify", authH.VerifyLogin)
		r.Post("/auth/refresh", authH.Refresh)

		r.Get("/sellers", sellerH.List)
		r.Get("/sellers/{id}/products", sellerH.Products)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Post("/auth/logout", authH.Logout)

			r.Get("/farmers/me", farmerH.GetProfile)
			r.Patch("/farmers/me", farmerH.UpdateProfile)
			r.Patch("/farmers/me/marketplace", farmerH.UpdateMarketplace)

			r.Get("/farmers/me/products", farmerH.ListProducts)
			r.Post("/farmers/me/products", farmerH.AddProduct)
			r.Put("/farmers/me/products/{id}", farmerH.UpdateProduct)
			r.Delete("/farmers/me/products/{id}", farmerH.DeleteProduct)
			r.Post("/farmers/me/products/{id}/images", farmerH.UploadProductImage)
		})
	})

	return r
}
