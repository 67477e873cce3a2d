package worker

// migration_worker.go
// Drives a catalog migration to completion one page per job. After each page
// the cursor is checkpointed in Redis and, while the runner reports hasMore,
// the next page is enqueued. A crash resumes from the last checkpoint.

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/dto"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const CheckpointPrefix = "migration:cursor:"

// MigrationJob is the payload of QueueMigration.
type MigrationJob struct {
	Kind     string `json:"kind"`
	Cursor   string `json:"cursor"`
	PageSize int    `json:"pageSize"`
	DryRun   bool   `json:"dryRun"`
}

// PageRunner runs one page of a migration kind.
type PageRunner interface {
	RunPage(ctx context.Context, kind string, req dto.PageRequest) (dto.PageOutcome, error)
}

// MigrationEnqueuer schedules the next page.
type MigrationEnqueuer interface {
	EnqueueMigration(ctx context.Context, job MigrationJob) error
}

// CheckpointStore persists the last processed cursor per migration kind.
type CheckpointStore interface {
	Load(ctx context.Context, kind string) (string, error)
	Save(ctx context.Context, kind, cursor string) error
	Clear(ctx context.Context, kind string) error
}

// RedisCheckpoints stores cursors under migration:cursor:{kind}.
type RedisCheckpoints struct {
	rdb *redis.Client
}

func NewRedisCheckpoints(rdb *redis.Client) *RedisCheckpoints {
	return &RedisCheckpoints{rdb: rdb}
}

// Load returns "" when no run of kind is in progress.
func (c *RedisCheckpoints) Load(ctx context.Context, kind string) (string, error) {
	cursor, err := c.rdb.Get(ctx, CheckpointPrefix+kind).Result()
	if err == redis.Nil {
		return "", nil
	}
	return cursor, err
}

func (c *RedisCheckpoints) Save(ctx context.Context, kind, cursor string) error {
	return c.rdb.Set(ctx, CheckpointPrefix+kind, cursor, 0).Err()
}

func (c *RedisCheckpoints) Clear(ctx context.Context, kind string) error {
	return c.rdb.Del(ctx, CheckpointPrefix+kind).Err()
}

// MigrationWorker processes QueueMigration jobs.
type MigrationWorker struct {
	runner      PageRunner
	checkpoints CheckpointStore
	next        MigrationEnqueuer
}

func NewMigrationWorker(runner PageRunner, checkpoints CheckpointStore, next MigrationEnqueuer) *MigrationWorker {
	return &MigrationWorker{runner: runner, checkpoints: checkpoints, next: next}
}

// Process runs one page. Errors are returned so the pool retries the same
// cursor; dry runs never touch the checkpoint.
func (w *MigrationWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var job MigrationJob
	if err := json.Unmarshal(raw, &job); err != nil {
		return fmt.Errorf("migration_worker: invalid payload: %w", err)
	}

	out, err := w.runner.RunPage(ctx, job.Kind, dto.PageRequest{
		Cursor:   job.Cursor,
		PageSize: job.PageSize,
		DryRun:   job.DryRun,
	})
	if err != nil {
		return err
	}

	logger := log.With().Str("kind", job.Kind).Str("cursor", job.Cursor).Str("last_doc_id", out.LastDocID).Logger()
	if out.Errors > 0 {
		logger.Warn().Int("errors", out.Errors).Msg("migration_worker: página con registros inválidos")
	}

	if !out.HasMore {
		if !job.DryRun {
			if err := w.checkpoints.Clear(ctx, job.Kind); err != nil {
				logger.Warn().Err(err).Msg("migration_worker: no se pudo limpiar el checkpoint")
			}
		}
		logger.Info().Msg("migration_worker: migración completa")
		return nil
	}

	if !job.DryRun {
		if err := w.checkpoints.Save(ctx, job.Kind, out.LastDocID); err != nil {
			return err
		}
	}
	job.Cursor = out.LastDocID
	if err := w.next.EnqueueMigration(ctx, job); err != nil {
		return err
	}
	logger.Debug().Msg("migration_worker: siguiente página encolada")
	return nil
}
