package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"famledger/internal/config"
	"famledger/internal/database"
	"famledger/internal/handlers"
	"famledger/internal/repository"
	"famledger/internal/security"
	"famledger/internal/service"
	"famledger/pkg/logging"
)

func main() {
	logging.Setup()

	cfg := config.Load()
	if cfg.JWTSecret == "" {
		slog.Error("JWT_SECRET must be set")
		os.Exit(1)
	}

	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		slog.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	slog.Info("database connection established", "type", cfg.DatabaseType)

	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Repositories
	userRepo := repository.NewUserRepository(db)
	familyRepo := repository.NewFamilyRepository(db)
	inviteRepo := repository.NewInviteRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	goalRepo := repository.NewGoalRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)

	if err := categoryRepo.SeedDefaults(); err != nil {
		slog.Warn("failed to seed default categories", "error", err)
	}

	// Services
	emailService, err := service.NewEmailService(cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName, cfg.AppBaseURL)
	if err != nil {
		slog.Error("failed to initialize email service", "error", err)
		os.Exit(1)
	}

	tokenIssuer := security.NewTokenIssuer(cfg.JWTSecret, cfg.AccessTokenTTL)
	authService := service.NewAuthService(userRepo, tokenIssuer, cfg.RefreshTokenTTL, emailService)
	familyService := service.NewFamilyService(familyRepo)
	inviteService := service.NewInviteService(inviteRepo, familyService, emailService)
	transactionService := service.NewTransactionService(transactionRepo, categoryRepo, familyService, settingsRepo)
	goalService := service.NewGoalService(goalRepo, familyService)
	statsService := service.NewStatsService(transactionRepo, goalRepo, familyService)

	googleOAuth := &oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{"openid", "email", "profile"},
	}

	// Handlers
	rateLimiter := security.NewRateLimiter(cfg.AuthRateLimit, cfg.AuthRateWindow)
	middleware := handlers.NewMiddleware(authService, rateLimiter)
	authHandler := handlers.NewAuthHandler(authService, googleOAuth, cfg.OAuthRedirectBaseURL)
	familyHandler := handlers.NewFamilyHandler(familyService)
	inviteHandler := handlers.NewInviteHandler(inviteService)
	transactionHandler := handlers.NewTransactionHandler(transactionService, categoryRepo)
	goalHandler := handlers.NewGoalHandler(goalService)
	statsHandler := handlers.NewStatsHandler(statsService)

	mux := buildRoutes(middleware, authHandler, familyHandler, inviteHandler, transactionHandler, goalHandler, statsHandler)

	handler := handlers.Logging(handlers.CORS(handlers.CacheHeaders(mux)))

	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go cleanupExpiredTokens(userRepo)

	go func() {
		slog.Info("server starting", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("server shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("shutdown failed", "error", err)
	}
}

func buildRoutes(
	middleware *handlers.Middleware,
	authHandler *handlers.AuthHandler,
	familyHandler *handlers.FamilyHandler,
	inviteHandler *handlers.InviteHandler,
	transactionHandler *handlers.TransactionHandler,
	goalHandler *handlers.GoalHandler,
	statsHandler *handlers.StatsHandler,
) *http.ServeMux {
	mux := http.NewServeMux()

	// Auth routes
	mux.HandleFunc("POST /auth/signup", middleware.RateLimit(authHandler.Signup))
	mux.HandleFunc("POST /auth/login", middleware.RateLimit(authHandler.Login))
	mux.HandleFunc("POST /auth/refresh", middleware.RateLimit(authHandler.Refresh))
	mux.HandleFunc("POST /auth/logout", authHandler.Logout)
	mux.HandleFunc("GET /auth/session", middleware.RequireAuth(authHandler.Session))
	mux.HandleFunc("GET /auth/google/start", authHandler.StartGoogleOAuth)
	mux.HandleFunc("GET /auth/google/callback", authHandler.GoogleOAuthCallback)

	// Family routes
	mux.HandleFunc("POST /family", middleware.RequireAuth(familyHandler.Create))
	mux.HandleFunc("GET /family", middleware.RequireAuth(familyHandler.List))
	mux.HandleFunc("GET /family/{id}", middleware.RequireAuth(familyHandler.Get))
	mux.HandleFunc("PUT /family/{id}", middleware.RequireAuth(familyHandler.Update))
	mux.HandleFunc("DELETE /family/{id}", middleware.RequireAuth(familyHandler.Delete))
	mux.HandleFunc("GET /family/{id}/members", middleware.RequireAuth(familyHandler.ListMembers))
	mux.HandleFunc("POST /family/{id}/leave", middleware.RequireAuth(familyHandler.Leave))
	mux.HandleFunc("POST /family/{id}/transfer-ownership", middleware.RequireAuth(familyHandler.TransferOwnership))
	mux.HandleFunc("DELETE /family/{familyId}/member/{userId}", middleware.RequireAuth(familyHandler.RemoveMember))
	mux.HandleFunc("PUT /family/{familyId}/member/{userId}/role", middleware.RequireAuth(familyHandler.UpdateMemberRole))
	mux.HandleFunc("GET /family/{familyId}/transactions", middleware.RequireAuth(transactionHandler.ListForFamily))

	// Invite routes
	mux.HandleFunc("POST /family/{familyId}/invites", middleware.RequireAuth(inviteHandler.Issue))
	mux.HandleFunc("GET /family/{familyId}/invites", middleware.RequireAuth(inviteHandler.ListForFamily))
	mux.HandleFunc("GET /invites", middleware.RequireAuth(inviteHandler.ListMine))
	mux.HandleFunc("POST /invites/{id}/accept", middleware.RequireAuth(inviteHandler.Accept))
	mux.HandleFunc("POST /invites/{id}/decline", middleware.RequireAuth(inviteHandler.Decline))
	mux.HandleFunc("DELETE /invites/{id}", middleware.RequireAuth(inviteHandler.Cancel))

	// Transaction routes
	mux.HandleFunc("POST /transactions", middleware.RequireAuth(transactionHandler.Create))
	mux.HandleFunc("GET /transactions", middleware.RequireAuth(transactionHandler.List))
	mux.HandleFunc("GET /transactions/{id}", middleware.RequireAuth(transactionHandler.Get))
	mux.HandleFunc("PUT /transactions/{id}", middleware.RequireAuth(transactionHandler.Update))
	mux.HandleFunc("DELETE /transactions/{id}", middleware.RequireAuth(transactionHandler.Delete))
	mux.HandleFunc("POST /transactions/{id}/split", middleware.RequireAuth(transactionHandler.Split))
	mux.HandleFunc("POST /transactions/{id}/autosave", middleware.RequireAuth(transactionHandler.AutoSave))
	mux.HandleFunc("GET /categories", middleware.RequireAuth(transactionHandler.ListCategories))

	// Goal routes
	mux.HandleFunc("POST /goals", middleware.RequireAuth(goalHandler.Create))
	mux.HandleFunc("GET /goals", middleware.RequireAuth(goalHandler.List))
	mux.HandleFunc("GET /goals/{id}", middleware.RequireAuth(goalHandler.Get))
	mux.HandleFunc("PUT /goals/{id}", middleware.RequireAuth(goalHandler.Update))
	mux.HandleFunc("PUT /goals/{id}/progress", middleware.RequireAuth(goalHandler.AddProgress))
	mux.HandleFunc("DELETE /goals/{id}", middleware.RequireAuth(goalHandler.Delete))

	// Dashboard
	mux.HandleFunc("GET /stats", middleware.RequireAuth(statsHandler.Get))

	return mux
}

// cleanupExpiredTokens periodically removes expired refresh tokens.
func cleanupExpiredTokens(userRepo *repository.UserRepository) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		if err := userRepo.DeleteExpiredRefreshTokens(); err != nil {
			slog.Warn("failed to clean up expired refresh tokens", "error", err)
		}
	}
}
