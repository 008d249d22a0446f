package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"project-management-api/internal/auth"
	"project-management-api/internal/config"
	"project-management-api/internal/database"
	"project-management-api/internal/handlers"
	"project-management-api/internal/logger"
	"project-management-api/internal/middleware"
	"project-management-api/internal/realtime"
	"project-management-api/internal/routes"
	"project-management-api/internal/services"
	"project-management-api/internal/users"

	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	gin.SetMode(cfg.GinMode)
	auth.Configure(auth.Settings{
		Secret:   cfg.JWTSecret,
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      cfg.JWTTTL,
	})
	if cfg.JWTSecret == config.DevJWTSecret {
		log.Warn("JWT_SECRET is not set; tokens are signed with the development secret")
	}

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatal("failed to open database", zap.String("driver", cfg.DBDriver), zap.Error(err))
	}
	log.Info("database ready", zap.String("driver", cfg.DBDriver))

	hub := realtime.NewHub()
	dir := users.NewDirectory(db, cfg.UserCacheTTL)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go dir.RunJanitor(ctx, cfg.CachePurgeEvery, log.Named("users"))
	h := handlers.New(
		services.NewProjectService(db, log.Named("projects"), hub),
		services.NewTaskService(db, log.Named("tasks"), hub),
		dir,
		hub,
		log.Named("http"),
	)

	// Setup the routes (public and protected routes)
	ginRoutes := routes.SetupRoutes(h, middleware.JWTAuthMiddleware(dir), cfg.CORSOrigins, log.Named("access"))

	log.Info("server starting", zap.String("addr", cfg.Addr()), zap.Strings("cors_origins", cfg.CORSOrigins))
	if err := ginRoutes.Run(cfg.Addr()); err != nil {
		log.Fatal("failed to start server", zap.Error(err))
	}
}
