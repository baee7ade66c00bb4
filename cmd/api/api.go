package main

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"camrent/docs" //this is required to generate swagger docs
	"camrent/internal/auth"
	"camrent/internal/cache"
	"camrent/internal/domain/accesscontrol"
	"camrent/internal/domain/bookings"
	"camrent/internal/domain/storage"
	"camrent/internal/mailer"
	"camrent/internal/notifications"
	"camrent/internal/payments"
	"camrent/internal/ratelimiter"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
)

type application struct {
	config        config
	store         *storage.Container
	cache         *cache.Client
	logger        *zap.SugaredLogger
	cld           *cloudinary.Cloudinary
	mailer        mailer.Client
	authenticator auth.Authenticator
	rateLimiter   *ratelimiter.FixedWindowRateLimiter
	payments      *payments.Manager
	refCoder      *bookings.ReferenceCoder
	push          notifications.PushSender
}

type config struct {
	addr          string
	db            dbConfig
	redis         redisConfig
	env           string
	apiURL        string
	mail          mailConfig
	frontendURL   string
	auth          authConfig
	mpesa         mpesaConfig
	referenceSalt string
	rateLimiter   ratelimiter.Config
}

type authConfig struct {
	basic basicConfig
	token tokenConfig
}

type tokenConfig struct {
	refreshSecret   string
	secret          string
	accessTokenExp  time.Duration
	refreshTokenExp time.Duration
	iss             string
}

type basicConfig struct {
	user string
	pass string
}

type mailConfig struct {
	exp       time.Duration
	fromEmail string
	mailtrap  mailTrapConfig
}

type mailTrapConfig struct {
	apiKey string
}

type dbConfig struct {
	addr        string
	maxConns    int
	maxIdleTime string
}

type redisConfig struct {
	addr     string
	password string
	db       int
}

type mpesaConfig struct {
	consumerKey    string
	consumerSecret string
	shortCode      string
	passkey        string
	callbackURL    string
	isProduction   bool
}

func (app *application) mount() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(app.RateLimiterMiddleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	// request context timeout so stuck handlers do not pile up
	r.Use(middleware.Timeout(60 * time.Second))

	r.Route("/v1", func(r chi.Router) {
		r.With(app.BasicAuthMiddleware()).Get("/health", app.healthCheckHandler)
		docsURL := fmt.Sprintf("%s/swagger/doc.json", app.config.addr)
		r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL(docsURL)))

		r.With(app.BasicAuthMiddleware()).Get("/debug/vars", expvar.Handler().ServeHTTP)

		// Public routes
		r.Route("/authentication", func(r chi.Router) {
			r.Post("/user", app.registerUserHandler)
			r.Post("/token", app.createTokenHandler)
			r.Post("/refresh", app.refreshTokenHandler)
		})
		r.Put("/users/activate/{token}", app.activateUserHandler)

		// Gateway callback, authenticated by provider ref matching, not JWT
		r.Post("/payments/mpesa/callback", app.mpesaCallbackHandler)

		// Public catalog
		r.Route("/inventory", func(r chi.Router) {
			r.Get("/", app.listInventoryHandler)
			r.Get("/{itemID}", app.getInventoryItemHandler)

			// staff manage the catalog
			r.Group(func(r chi.Router) {
				r.Use(app.AuthTokenMiddleware)
				r.With(app.RequireRole(accesscontrol.RoleStaff)).Post("/", app.createInventoryItemHandler)
				r.With(app.RequireRole(accesscontrol.RoleStaff)).Patch("/{itemID}", app.updateInventoryItemHandler)
				r.With(app.RequireRole(accesscontrol.RoleAdmin)).Delete("/{itemID}", app.deleteInventoryItemHandler)
				r.With(app.RequireRole(accesscontrol.RoleStaff)).Post("/{itemID}/photos", app.uploadItemPhotoHandler)
				r.With(app.RequireRole(accesscontrol.RoleStaff)).Delete("/{itemID}/photos", app.deleteItemPhotoHandler)
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(app.AuthTokenMiddleware)
			r.Post("/logout", app.logoutHandler)
			r.Post("/profile-picture", app.uploadProfilePictureHandler)
			r.Post("/push-token", app.registerPushTokenHandler)
			r.Delete("/push-token", app.removePushTokenHandler)
		})

		r.Route("/profile", func(r chi.Router) {
			r.Use(app.AuthTokenMiddleware)
			r.Post("/", app.createProfileHandler)
			r.Get("/", app.getOwnProfileHandler)
			r.Put("/", app.updateProfileHandler)
			r.Post("/id-photo", app.uploadIDPhotoHandler)
		})

		r.Route("/bookings", func(r chi.Router) {
			r.Use(app.AuthTokenMiddleware)
			r.Post("/quote", app.quoteBookingHandler)
			r.Post("/", app.createBookingHandler)
			r.Get("/", app.listMyBookingsHandler)
			r.Get("/{bookingID}", app.getBookingHandler)
			r.Post("/{bookingID}/cancel", app.cancelBookingHandler)
			r.Get("/{bookingID}/payments", app.listBookingPaymentsHandler)
			r.Post("/{bookingID}/payments/initiate", app.initiatePaymentHandler)
			r.Get("/{bookingID}/payments/{paymentID}/status", app.paymentStatusHandler)
		})

		// Back office
		r.Route("/staff", func(r chi.Router) {
			r.Use(app.AuthTokenMiddleware)
			r.Use(app.RequireRole(accesscontrol.RoleStaff))

			r.Get("/dashboard", app.dashboardHandler)
			r.Get("/reports/revenue", app.revenueReportHandler)
			r.Get("/reports/top-items", app.topItemsReportHandler)
			r.Get("/reports/low-stock", app.lowStockReportHandler)

			r.Get("/customers", app.listCustomersHandler)
			r.Put("/customers/{userID}/profile", app.staffUpsertProfileHandler)
			r.Get("/bookings", app.listStaffBookingsHandler)
			r.Post("/bookings/{bookingID}/confirm", app.confirmBookingHandler)
			r.Post("/bookings/{bookingID}/pickup", app.pickupBookingHandler)
			r.Post("/bookings/{bookingID}/return", app.returnBookingHandler)
			r.Post("/bookings/{bookingID}/cancel", app.staffCancelBookingHandler)
			r.Post("/bookings/{bookingID}/payments/cash", app.recordCashPaymentHandler)
		})

		// Role administration
		r.Route("/admin", func(r chi.Router) {
			r.Use(app.AuthTokenMiddleware)
			r.Use(app.RequireRole(accesscontrol.RoleAdmin))

			r.Post("/users", app.adminCreateUserHandler)
			r.Get("/roles", app.listRolesHandler)
			r.Get("/users/{userID}/roles", app.adminGetUserRolesHandler)
			r.With(app.RequireRole(accesscontrol.RoleSuperAdmin)).Post("/users/{userID}/roles", app.adminAssignUserRoleHandler)
			r.With(app.RequireRole(accesscontrol.RoleSuperAdmin)).Delete("/users/{userID}/roles/{role}", app.adminRemoveUserRoleHandler)
		})
	})
	return r
}

// healthCheckHandler godoc
//
//	@Summary		Healthcheck
//	@Description	Reports service status, environment and version
//	@Tags			ops
//	@Produce		json
//	@Success		200	{object}	map[string]string
//	@Router			/health [get]
func (app *application) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	data := map[string]string{
		"status":  "ok",
		"env":     app.config.env,
		"version": version,
	}
	if err := app.jsonResponse(w, http.StatusOK, data); err != nil {
		app.internalServerError(w, r, err)
	}
}

func (app *application) run(mux http.Handler) error {
	// Docs
	docs.SwaggerInfo.Version = version
	docs.SwaggerInfo.Host = app.config.apiURL
	docs.SwaggerInfo.BasePath = "/v1"

	srv := &http.Server{
		Addr:         app.config.addr,
		Handler:      mux,
		WriteTimeout: time.Second * 30,
		ReadTimeout:  time.Second * 10,
		IdleTimeout:  time.Minute,
	}

	// Implementing graceful shutdown
	shutdown := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)

		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		app.logger.Infow("signal caught", "signal", s.String())

		shutdown <- srv.Shutdown(ctx)
	}()

	app.logger.Infow("server has started", "addr", app.config.addr, "env", app.config.env)

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdown
	if err != nil {
		return err
	}

	app.logger.Infow("server has stopped", "addr", app.config.addr, "env", app.config.env)

	return nil
}
