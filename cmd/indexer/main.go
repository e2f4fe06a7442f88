package main

import (
	"context"
	"database/sql"
	"sync"
	"sync/atomic"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"monobook/internal/adapters/observability"
	openaiad "monobook/internal/adapters/openai"
	redisad "monobook/internal/adapters/redis"
	"monobook/internal/app"
	"monobook/internal/shared"
	mysqlrepo "monobook/internal/storage/mysql"
)

func main() {
	ctx := context.Background()
	cfg := shared.Load()

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, "indexer", cfg.LogLevel)

	log.Info().
		Str("model", cfg.EmbeddingModel).
		Int("workers", cfg.IndexWorkers).
		Msg("indexer starting")

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")

	repo := mysqlrepo.New(db)

	emb, err := openaiad.New(cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.EmbeddingModel, cfg.OpenAIRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize embedder")
	}
	rdb := redisad.NewClient(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	currency := app.NewCurrencyService(repo, redisad.NewCache(rdb, "monobook:"), cfg.CacheTTL)
	idx := app.NewIndexService(repo, repo, emb, currency, emb.Model(), cfg.IndexWorkers)

	props, err := repo.ListProperties(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("list properties failed")
	}

	sem := semaphore.NewWeighted(int64(max(cfg.IndexWorkers, 1)))
	var wg sync.WaitGroup
	var docs, failed atomic.Int64

	for _, p := range props {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Fatal().Err(err).Msg("semaphore acquire failed")
		}

		wg.Add(1)
		go func(propertyID string) {
			defer wg.Done()
			defer sem.Release(1)

			n, err := idx.IndexProperty(ctx, propertyID)
			if err != nil {
				failed.Add(1)
				log.Warn().Str("property_id", propertyID).Err(err).Msg("index failed")
				return
			}
			docs.Add(int64(n))
			log.Info().Str("property_id", propertyID).Int("documents", n).Msg("index ok")
		}(p.ID)
	}

	wg.Wait()
	log.Info().
		Int("properties", len(props)).
		Int64("documents", docs.Load()).
		Int64("failed", failed.Load()).
		Msg("indexing completed")
}
