package main

import (
	"database/sql"
	"net/http"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"monobook/internal/adapters/agenttools"
	server "monobook/internal/adapters/http_server"
	mcpad "monobook/internal/adapters/mcp"
	"monobook/internal/adapters/observability"
	openaiad "monobook/internal/adapters/openai"
	"monobook/internal/adapters/ratelimit"
	redisad "monobook/internal/adapters/redis"
	"monobook/internal/adapters/semantic"
	"monobook/internal/app"
	"monobook/internal/domain"
	"monobook/internal/shared"
	mysqlrepo "monobook/internal/storage/mysql"
)

const version = "0.1.0"

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, "api", cfg.LogLevel)

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	// db
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	db.SetMaxOpenConns(20)
	db.SetConnMaxLifetime(5 * time.Minute)
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("database connection ok")

	// deps
	repo := mysqlrepo.New(db)
	rdb := redisad.NewClient(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	deps := app.Deps{
		Store:    repo,
		Currency: app.NewCurrencyService(repo, redisad.NewCache(rdb, "monobook:"), cfg.CacheTTL),
		Auditor:  app.NewAuditor(repo),
	}
	if cfg.OpenAIKey != "" {
		emb, err := openaiad.New(cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.EmbeddingModel, cfg.OpenAIRPS)
		if err != nil {
			log.Fatal().Err(err).Msg("embedder init failed")
		}
		deps.Semantic = semantic.New(repo, emb)
	}
	search := app.NewSearchService(deps)
	booking := app.NewBookingService(deps)

	var limiter domain.RateLimiter
	switch cfg.RateLimitBackend {
	case "redis":
		limiter = redisad.NewRateLimiter(rdb, "monobook:rl:", cfg.ChatRateLimit, cfg.ChatRateWindow)
	default:
		limiter = ratelimit.NewMemory(cfg.ChatRateLimit, cfg.ChatRateWindow)
	}

	// http
	var srvOpts []server.Option
	if cfg.TrustProxy {
		srvOpts = append(srvOpts, server.TrustProxyHeaders())
	}
	srv := server.New(srvOpts...)
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.Mount("/mcp", mcpad.Handler(mcpad.New(search, booking, version), cfg.MCPSecret))
	srv.MountHandlers(&server.Handlers{
		Search:  search,
		Booking: booking,
		Audit:   deps.Auditor,
		Tools:   agenttools.New(search, booking),
		Limiter: limiter,
	})

	log.Info().Str("addr", cfg.HTTPAddr).Str("rate_limit_backend", cfg.RateLimitBackend).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux(), ReadHeaderTimeout: 10 * time.Second}

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}
