package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/tour-marketplace/internal/app"
	"github.com/iliyamo/tour-marketplace/internal/config"
	"github.com/iliyamo/tour-marketplace/internal/handler"
	"github.com/iliyamo/tour-marketplace/internal/middleware"
	"github.com/iliyamo/tour-marketplace/internal/router"
)

func main() {
	_ = godotenv.Load() // a missing .env is fine outside development
	cfg := config.Load()
	log := cfg.NewLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("startup failed")
	}
	defer a.Close()
	if err := a.SeedAdmin(ctx); err != nil {
		log.WithError(err).Fatal("startup failed")
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())

	h := handler.New(a.Engine, handler.AuthConfig{
		JWTSecret:    cfg.JWTSecret,
		AccessTTLMin: cfg.AccessTTLMin,
		BcryptCost:   cfg.BcryptCost,
	}, log)
	deps := router.Deps{JWTSecret: cfg.JWTSecret}
	if a.Redis != nil {
		deps.Limiter = middleware.NewTokenBucket(config.LoadRateLimitConfig(), a.Redis, log)
	}
	router.Register(e, h, deps)

	go func() {
		addr := ":" + cfg.Port
		log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env, "store": cfg.StoreDriver}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown")
	}
	log.Info("stopped")
}
