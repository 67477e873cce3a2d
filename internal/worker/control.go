package worker

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Control is the operator-facing side of the queues: start a background
// migration, read its checkpoint, replay dead letters.
type Control struct {
	dispatcher  *Dispatcher
	checkpoints CheckpointStore
	rdb         *redis.Client
}

func NewControl(rdb *redis.Client, dispatcher *Dispatcher, checkpoints CheckpointStore) *Control {
	return &Control{dispatcher: dispatcher, checkpoints: checkpoints, rdb: rdb}
}

func (c *Control) EnqueueMigration(ctx context.Context, job MigrationJob) error {
	return c.dispatcher.EnqueueMigration(ctx, job)
}

func (c *Control) Checkpoint(ctx context.Context, kind string) (string, error) {
	return c.checkpoints.Load(ctx, kind)
}

func (c *Control) ReplayDLQ(ctx context.Context, queue string, max int) (int, error) {
	return ReplayDLQ(ctx, c.rdb, queue, max)
}
