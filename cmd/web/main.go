package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/tech17x/fizzyadmin-sub000/internal/backend"
	"github.com/tech17x/fizzyadmin-sub000/internal/config"
	"github.com/tech17x/fizzyadmin-sub000/internal/middleware"
	"github.com/tech17x/fizzyadmin-sub000/internal/observability"
	"github.com/tech17x/fizzyadmin-sub000/internal/server"
	"github.com/tech17x/fizzyadmin-sub000/internal/services"
	"github.com/tech17x/fizzyadmin-sub000/internal/ui/templates"
)

const (
	renderTimeout = 10 * time.Second
	loadTimeout   = 30 * time.Second
	cacheMaxAge   = "public, max-age=300"
)

func handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
	defer cancel()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", cacheMaxAge)
	if err := templates.Dashboard().Render(ctx, w); err != nil {
		http.Error(w, "render error", http.StatusInternalServerError)
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"version", "1.0.0",
		"addr", cfg.Address(),
		"backend", cfg.Backend.BaseURL,
		"timezone", cfg.Report.Timezone,
	)

	loc, err := cfg.Location()
	if err != nil {
		logger.Error("invalid report timezone", "error", err)
		os.Exit(1)
	}

	client := backend.NewClient(cfg.Backend, logger)
	reports := services.NewReports(services.Aggregator{Location: loc}, client, logger)

	if cfg.Data.ReportsFile != "" {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		err := reports.LoadFromFile(ctx, cfg.Data.ReportsFile)
		cancel()
		if err != nil {
			logger.Error("failed to load reports file", "error", err)
			os.Exit(1)
		}
	}

	templateHandlers := &server.TemplateHandlers{
		Dashboard: handleDashboard,
	}

	srv := server.NewServer(reports, logger, templateHandlers)

	rateLimiter := middleware.NewRateLimiter(cfg.Security)

	middlewareChain := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Tracing(logger),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Security),
		middleware.TrustedProxy(cfg.Security),
		middleware.RateLimit(rateLimiter, logger),
		middleware.BodyLimit(cfg.Server.MaxBodyBytes),
		middleware.Session(cfg.Backend.SessionCookie),
	)

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      middlewareChain(srv),
		ReadTimeout:  cfg.Server.ReadTimeout.Std(),
		WriteTimeout: cfg.Server.WriteTimeout.Std(),
		IdleTimeout:  cfg.Server.IdleTimeout.Std(),
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg.Server)

	gracefulServer.RegisterShutdownHook(func(ctx context.Context) error {
		logger.Info("shutting down report service", "stats", reports.Stats())
		return nil
	})

	if err := gracefulServer.ListenAndServe(); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("application stopped gracefully")
}
