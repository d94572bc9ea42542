// Package app wires the application components together: database pool,
// model client, knowledge store, and the answer pipeline.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvector "github.com/pgvector/pgvector-go/pgx"

	"github.com/ttsoftware/ragline/db"
	"github.com/ttsoftware/ragline/internal/config"
	"github.com/ttsoftware/ragline/internal/knowledge"
	"github.com/ttsoftware/ragline/internal/llm"
	"github.com/ttsoftware/ragline/internal/log"
	"github.com/ttsoftware/ragline/internal/rag"
)

// App is the application container.
type App struct {
	Config    *config.Config
	Logger    log.Logger
	Pool      *pgxpool.Pool
	Knowledge *knowledge.Store
	LLM       *llm.Client
	Pipeline  *rag.Pipeline
}

// Setup builds the full component graph: runs migrations, opens the
// connection pool, and constructs the model client, knowledge store, and
// pipeline. The caller owns the returned App and must Close it.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (*App, error) {
	pool, err := newPool(ctx, cfg)
	if err != nil {
		return nil, err
	}

	client, err := llm.New(llm.Config{
		APIKey:       cfg.OpenAIAPIKey,
		EmbedModel:   cfg.EmbedModel,
		ChatModel:    cfg.ChatModel,
		Temperature:  cfg.Temperature,
		SystemPrompt: cfg.SystemPrompt,
	}, logger)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating model client: %w", err)
	}

	store, err := knowledge.New(pool, knowledge.Config{
		Collection: cfg.Collection,
		Dimension:  cfg.Dimension,
		Metric:     knowledge.Metric(cfg.Metric),
	}, logger)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating knowledge store: %w", err)
	}

	pipeline, err := rag.New(client, store, client, cfg.TopK, logger)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating pipeline: %w", err)
	}

	return &App{
		Config:    cfg,
		Logger:    logger,
		Pool:      pool,
		Knowledge: store,
		LLM:       client,
		Pipeline:  pipeline,
	}, nil
}

// Close releases all resources.
func (a *App) Close() {
	if a.Pool != nil {
		a.Pool.Close()
		a.Logger.Info("database pool closed")
	}
}

// newPool runs migrations and opens a pgx connection pool with pgvector
// types registered on every connection.
func newPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvector.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}
