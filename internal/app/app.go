package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/madcarpet/dreamweaver/internal/authorization/jwt"
	"github.com/madcarpet/dreamweaver/internal/config"
	"github.com/madcarpet/dreamweaver/internal/handlers"
	"github.com/madcarpet/dreamweaver/internal/logger"
	"github.com/madcarpet/dreamweaver/internal/storage"
	"github.com/madcarpet/dreamweaver/internal/storage/postgresql"
	"github.com/madcarpet/dreamweaver/internal/storage/sqlite"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	mu      sync.Mutex
	config  config.Config
	storage storage.Storage
	router  *handlers.HTTPRouter
}

// NewApp creates a new App instance with the given config
func NewApp(cfg config.Config) *App {
	return &App{config: cfg}
}

// NewStorage picks the storage implementation by database URI scheme
func NewStorage(uri string) (storage.Storage, error) {
	switch {
	case strings.HasPrefix(uri, "postgres://"), strings.HasPrefix(uri, "postgresql://"):
		return postgresql.NewPsqlStorage(uri), nil
	case strings.HasPrefix(uri, "sqlite://"):
		return sqlite.NewStore(uri), nil
	default:
		return nil, fmt.Errorf("unsupported database uri scheme: %q", uri)
	}
}

// Start App, blocks while the http server is running.
// logger.LoggerInit must be called before Start.
func (a *App) Start(ctx context.Context) error {
	logger.Log.Info("Starting application",
		zap.String("run_address", a.config.RunAddress),
		zap.String("log_level", a.config.LogLevel),
		zap.Int("token_timeout", a.config.TokenTimeout),
		zap.Strings("cors_origins", a.config.AllowedOrigins()),
	)

	s, err := NewStorage(a.config.DatabaseURI)
	if err != nil {
		return err
	}
	if err := s.InitStorage(ctx); err != nil {
		return err
	}

	authorizer := jwt.NewJwtTokenizer(a.config.TokenKey, a.config.TokenLifetime())
	router := handlers.NewHTTPRouter(a.config.RunAddress, s, authorizer, a.config.AllowedOrigins())
	router.RouterInit()

	a.mu.Lock()
	a.storage = s
	a.router = router
	a.mu.Unlock()
	return router.StartRouter()
}

func (a *App) Stop(cancel context.CancelFunc) {
	defer cancel()
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.router != nil {
		ctx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
		defer stop()
		if err := a.router.StopRouter(ctx); err != nil {
			logger.Log.Error("http router shutdown error", zap.Error(err))
		}
	}
	if a.storage != nil {
		if err := a.storage.DBClose(); err != nil {
			logger.Log.Error("storage close error", zap.Error(err))
		}
	}
	logger.Log.Debug("Syncing logger")
	logger.Log.Sync()
}
