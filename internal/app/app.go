package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/ShivamJuyal24/AI-Chat-PDF/internal/config"
	"github.com/ShivamJuyal24/AI-Chat-PDF/internal/core"
	db "github.com/ShivamJuyal24/AI-Chat-PDF/internal/core/database"
	"github.com/ShivamJuyal24/AI-Chat-PDF/internal/core/llm"
	"github.com/ShivamJuyal24/AI-Chat-PDF/internal/queue"
	"github.com/ShivamJuyal24/AI-Chat-PDF/internal/storage"
)

// App wires the API process: persistence, file storage, the producer side of
// the job queue, and the HTTP server.
type App struct {
	DBClient core.DbClient
	Files    core.FileStore
	Redis    *redis.Client
	Queue    *queue.Queue
	Server   *Server
	closeFns []func() error
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{}

	dbClient, err := db.NewDatabaseClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	a.DBClient = dbClient
	a.closeFns = append(a.closeFns, dbClient.Close)
	slog.Info("database initialized and ready")

	files, err := NewFileStore(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Files = files

	rdb, err := queue.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("redis: %w", err)
	}
	a.Redis = rdb
	a.closeFns = append(a.closeFns, rdb.Close)
	a.Queue = queue.New(rdb, cfg.QueueName)

	embedder, err := llm.NewGeminiEmbedder(ctx, cfg.AIAPIKey, cfg.EmbedModel)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("embedder: %w", err)
	}
	a.closeFns = append(a.closeFns, embedder.Close)

	llmProvider, err := llm.NewGeminiLLM(ctx, cfg.AIAPIKey, cfg.GenModel)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("llm: %w", err)
	}
	a.closeFns = append(a.closeFns, llmProvider.Close)

	a.Server = NewServer(cfg, a.DBClient, a.Files, a.Queue, embedder, llmProvider)
	return a, nil
}

// NewFileStore selects the storage backend from config.
func NewFileStore(ctx context.Context, cfg *config.Config) (core.FileStore, error) {
	switch cfg.StorageBackend {
	case "s3":
		return storage.NewS3Store(ctx, cfg)
	case "local", "":
		return storage.NewLocalStore(cfg.UploadDir)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

func (a *App) Close() {
	for i := len(a.closeFns) - 1; i >= 0; i-- {
		_ = a.closeFns[i]()
	}
}
