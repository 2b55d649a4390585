package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"heirloom/middleware"
	"heirloom/pkg/app"
	"heirloom/pkg/config"
	"heirloom/pkg/logger"
	"heirloom/pkg/scheduler"
	"heirloom/routes"
)

const shutdownGrace = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := logger.Must(cfg.AppEnv)
	defer log.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.Fatal("startup failed", zap.Error(err))
	}
	defer a.Close()

	middleware.SetRateLimitConfig(cfg.RateLimitWindow(), cfg.RateLimitCapacity)

	var jobs *scheduler.Scheduler
	if cfg.CronEnabled {
		jobs = scheduler.New(log)
		if err := jobs.Register(a.Jobs()...); err != nil {
			log.Fatal("schedule jobs", zap.Error(err))
		}
		jobs.Start()
	}

	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.ErrorHandler(log, cfg.IsProduction))

	// CORS configuration
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	uploadsPath, uploadsDir := a.UploadsRoute()
	routes.RegisterRoutes(r, routes.Dependencies{
		Config:        cfg,
		Log:           log,
		Auth:          a.Auth,
		Conversations: a.Conversations,
		Analytics:     a.Analytics,
		Legacy:        a.Legacy,
		Knowledge:     a.Knowledge,
		Documents:     a.Documents,
		UploadsPath:   uploadsPath,
		UploadsDir:    uploadsDir,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr), zap.String("env", cfg.AppEnv), zap.String("model", a.Provider.Name()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown", zap.Error(err))
	}
	if jobs != nil {
		jobs.Stop()
	}
}
