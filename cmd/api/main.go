// Package main はAPIサーバーのエントリーポイントです。
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/task-manager/internal/auth"
	"github.com/yourusername/task-manager/internal/config"
	"github.com/yourusername/task-manager/internal/logging"
	"github.com/yourusername/task-manager/internal/storage"
	"github.com/yourusername/task-manager/internal/tasks"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// 設定の読み込み（JWT_SECRET が無い場合はここで終了）
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.IsProduction())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	// Ginのモードを設定
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router, err := newRouter(cfg, store, logger)
	if err != nil {
		log.Fatalf("Failed to build router: %v", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info(ctx, "starting API server", "addr", srv.Addr, "env", cfg.AppEnv, "store", cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(ctx, "server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "graceful shutdown failed", "error", err)
		return
	}
	logger.Info(shutdownCtx, "server stopped")
}

// newRouter はミドルウェアとルートを設定した gin.Engine を作成します。
func newRouter(cfg *config.Config, store storage.Store, logger logging.Logger) (*gin.Engine, error) {
	tokens, err := auth.NewTokenCodec(cfg.JWTSecret, auth.SessionTTL)
	if err != nil {
		return nil, err
	}

	// Ginルーターの初期化（デフォルトミドルウェア: Logger, Recovery）
	router := gin.Default()

	// 設定したプロキシ以外からの X-Forwarded-For は無視する（空なら RemoteAddr のみ）
	if err := router.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}

	// CORSミドルウェアの設定（Cookie を送るため credentials を許可）
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.AllowedOrigins()
	corsConfig.AllowCredentials = true
	corsConfig.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete}
	corsConfig.AllowHeaders = []string{"Content-Type", "Authorization"}
	router.Use(cors.New(corsConfig))

	authService := auth.NewService(store, auth.NewBcryptHasher(), tokens)
	authHandler := auth.NewHandler(authService, auth.HandlerOptions{
		Production: cfg.IsProduction(),
		Limiter:    auth.NewLoginLimiter(cfg.LoginMaxAttempts),
		Logger:     logger.With("component", "auth"),
	})
	taskService := tasks.NewService(store, tasks.Options{EnforceOwnership: cfg.EnforceTaskOwnership})
	taskHandler := tasks.NewHandler(taskService, logger.With("component", "tasks"))

	setupRoutes(router, store, tokens, authHandler, taskHandler)
	return router, nil
}

// setupRoutes は API グループと認証周りの配線を行います。
func setupRoutes(router *gin.Engine, store storage.Store, tokens *auth.TokenCodec, authHandler *auth.Handler, taskHandler *tasks.Handler) {
	// まずは誰でも叩けるエンドポイントを登録
	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "Task manager API is running")
	})
	router.GET("/health", handleHealth(store))

	requireLogin := auth.RequireLogin(tokens)

	api := router.Group("/api")
	{
		authRoutes := api.Group("/auth")
		{
			authRoutes.POST("/register", authHandler.Register)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/logout", requireLogin, authHandler.Logout)
		}

		taskHandler.Register(api.Group("/tasks", requireLogin))
	}
}

// handleHealth はヘルスチェックエンドポイントのハンドラーです。
func handleHealth(store storage.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := store.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unavailable",
				"service": "task-manager-api",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "task-manager-api",
			"version": "0.1.0",
		})
	}
}
