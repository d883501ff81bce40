package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/madcarpet/dreamweaver/internal/authorization"
	"github.com/madcarpet/dreamweaver/internal/constants"
	"github.com/madcarpet/dreamweaver/internal/logger"
	"github.com/madcarpet/dreamweaver/internal/middlewares"
	"github.com/madcarpet/dreamweaver/internal/storage"
	"go.uber.org/zap"
)

type HTTPRouter struct {
	mux         *chi.Mux
	server      *http.Server
	storage     storage.Storage
	authorizer  authorization.Authorizer
	corsOrigins []string
}

func NewHTTPRouter(ra string, s storage.Storage, a authorization.Authorizer, corsOrigins []string) *HTTPRouter {
	r := chi.NewRouter()
	server := &http.Server{
		Addr:              ra,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return &HTTPRouter{mux: r, server: server, storage: s, authorizer: a, corsOrigins: corsOrigins}
}

func (r *HTTPRouter) RouterInit() {
	storage := r.storage
	authorizer := r.authorizer
	r.mux.Use(middleware.Logger)
	r.mux.Use(middleware.Recoverer)
	r.mux.Use(middleware.Compress(5))
	r.mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: r.corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", constants.AuthHeader, "Content-Type"},
		MaxAge:         300,
	}))

	r.mux.Get("/", RootGetHandler())
	r.mux.Post("/login", LoginPostHandler(authorizer))

	r.mux.Get("/packages", PackagesGetHandler(storage))
	r.mux.Get("/package/{id}", PackageGetHandler(storage))
	r.mux.Delete("/package/{id}", PackageDeleteHandler(storage))
	r.mux.Post("/addpackage", DocumentPostHandler(storage, constants.PackagesCollection))

	r.mux.Get("/reviews", ReviewsGetHandler(storage))

	r.mux.Post("/addorder", DocumentPostHandler(storage, constants.OrdersCollection))
	r.mux.Get("/orders", middlewares.Authorize(authorizer, OrdersGetHandler(storage)))

	// Set NotFound handler
	r.mux.NotFound(NotFoundHandler())
}

func (r *HTTPRouter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// StartRouter blocks until the server is stopped
func (r *HTTPRouter) StartRouter() error {
	logger.Log.Info("Http Router starting", zap.String("address", r.server.Addr))
	err := r.server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (r *HTTPRouter) StopRouter(ctx context.Context) error {
	logger.Log.Info("Http Router stopping")
	return r.server.Shutdown(ctx)
}
