package worker

// scheduler.go
// Periodic search-token backfill. Each tick starts a run from the first
// document unless a previous run still has a checkpoint.

import (
	"context"

	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/dto"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

type Scheduler struct {
	cron        *cron.Cron
	next        MigrationEnqueuer
	checkpoints CheckpointStore
	pageSize    int
}

// NewScheduler registers the backfill at spec (standard cron syntax or
// descriptors such as "@daily").
func NewScheduler(spec string, next MigrationEnqueuer, checkpoints CheckpointStore, pageSize int) (*Scheduler, error) {
	s := &Scheduler{cron: cron.New(), next: next, checkpoints: checkpoints, pageSize: pageSize}
	if _, err := s.cron.AddFunc(spec, func() { s.tick(context.Background()) }); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	log.Info().Msg("scheduler: started")
}

// Stop waits for a running tick to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Info().Msg("scheduler: stopped")
}

func (s *Scheduler) tick(ctx context.Context) {
	cursor, err := s.checkpoints.Load(ctx, dto.MigrationSearchTokens)
	if err != nil {
		log.Error().Err(err).Msg("scheduler: no se pudo leer el checkpoint")
		return
	}
	if cursor != "" {
		log.Debug().Str("cursor", cursor).Msg("scheduler: backfill en curso, se omite")
		return
	}
	job := MigrationJob{Kind: dto.MigrationSearchTokens, PageSize: s.pageSize}
	if err := s.next.EnqueueMigration(ctx, job); err != nil {
		log.Error().Err(err).Msg("scheduler: no se pudo encolar el backfill")
		return
	}
	log.Info().Msg("scheduler: backfill de tokens encolado")
}
