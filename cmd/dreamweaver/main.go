package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/madcarpet/dreamweaver/internal/app"
	"github.com/madcarpet/dreamweaver/internal/config"
	"github.com/madcarpet/dreamweaver/internal/logger"
	"go.uber.org/zap"
)

func main() {
	// Channels for signals
	osSigCh := make(chan os.Signal, 1)
	signal.Notify(osSigCh, syscall.SIGINT, syscall.SIGTERM)
	errCh := make(chan error, 1)

	//Creating main ctx
	ctx, cancel := context.WithCancel(context.Background())

	// Config initialization, a missing token secret stops here
	appCfg, err := config.InitConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("application config initialisation failed err: %v", err)
	}

	// Logger is set up before any goroutine reads it
	logger.LoggerInit(appCfg.LogLevel)

	// App initialization
	app := app.NewApp(*appCfg)
	// App starting with configuration
	go func() {
		errCh <- app.Start(ctx)
	}()

	select {
	case sig := <-osSigCh:
		logger.Log.Info("Stopping application, os sig received", zap.String("signal", sig.String()))
		app.Stop(cancel)
	case err := <-errCh:
		if err != nil {
			logger.Log.Error("Application error", zap.Error(err))
		}
		app.Stop(cancel)
		if err != nil {
			os.Exit(1)
		}
	}
}
