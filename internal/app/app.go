package app

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/commercekit/authsvc/internal/config"
	httpx "github.com/commercekit/authsvc/internal/http"
	"github.com/commercekit/authsvc/internal/http/handlers"
	"github.com/commercekit/authsvc/internal/http/middleware"
	"github.com/commercekit/authsvc/internal/infrastructure/auth"
	"github.com/commercekit/authsvc/internal/infrastructure/database"
	"github.com/commercekit/authsvc/internal/infrastructure/repositories"
	"github.com/commercekit/authsvc/internal/services"
)

// Run wires every component and serves until the process is signalled.
func Run(cfg *config.Config, logger *zap.Logger) error {
	gin.SetMode(cfg.GinMode)

	gdb, err := database.Open(cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	if err := database.AutoMigrate(gdb); err != nil {
		return err
	}

	cas, err := auth.NewCasbinService(gdb, cfg.CasbinModelPath)
	if err != nil {
		return err
	}

	rdb := database.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err := database.Ping(context.Background(), rdb); err != nil {
		return err
	}

	passwordSvc := auth.NewPasswordService(cfg.BcryptCost, logger)
	tokenSvc := auth.NewJWTService(
		cfg.AccessTokenSecret, cfg.RefreshTokenSecret,
		cfg.JWTIssuer, cfg.JWTAudience,
		cfg.AccessTokenTTL, cfg.RefreshTokenTTL,
	)

	userRepo := repositories.NewUserRepository(gdb)
	throttle := repositories.NewLoginThrottle(rdb, cfg.ThrottleWindow, cfg.ThrottleLimit)

	authSvc := services.NewAuthService(userRepo, passwordSvc, tokenSvc, throttle, logger, services.AuthConfig{
		LockoutThreshold: cfg.LockoutThreshold,
		LockoutDuration:  cfg.LockoutDuration,
		MaxRefreshTokens: cfg.MaxRefreshTokens,
		MaxAuditEntries:  cfg.MaxAuditEntries,
		ResetTokenTTL:    cfg.ResetTokenTTL,
		VerifyTokenTTL:   cfg.VerifyTokenTTL,
	})
	policySvc := services.NewPolicyService(cas.E)

	authH := handlers.NewAuthHandlers(authSvc, logger)
	userH := handlers.NewUserHandlers(authSvc, userRepo, logger)
	polH := handlers.NewPolicyHandlers(policySvc)

	authMW := middleware.AuthMiddleware(tokenSvc, userRepo)
	casbinMW := middleware.NewCasbinMW(services.WrapEnforcer(cas.E))

	r := httpx.BuildRouter(authH, userH, polH, authMW, casbinMW)

	seedPolicies(cas, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: cfg.RequestTimeout,
		ReadTimeout:       cfg.RequestTimeout,
		WriteTimeout:      cfg.RequestTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down", zap.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}

// seedPolicies installs the default role policy table on first boot. An
// already-populated table is left untouched.
func seedPolicies(cas *auth.CasbinService, logger *zap.Logger) {
	policies, err := cas.E.GetPolicy()
	if err != nil || len(policies) > 0 {
		return
	}
	cas.E.AddPolicy("role_admin", "/admin/*", "(GET|POST|PUT|PATCH|DELETE)")
	if err := cas.E.SavePolicy(); err != nil {
		logger.Warn("persisting seeded policies failed", zap.Error(err))
		return
	}
	logger.Info("seeded default role policies")
}
