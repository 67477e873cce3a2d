//go:build integration

package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/dto"
	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/infra"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func startRedis(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()
	rdC, err := tcRedis.RunContainer(ctx,
		testcontainers.WithImage("redis:7-alpine"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdC.Terminate(ctx) })

	url, err := rdC.ConnectionString(ctx)
	require.NoError(t, err)
	rdb, err := infra.NewRedis(url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestPool_RetriesThenDeadLettersThenReplays(t *testing.T) {
	rdb := startRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	var healthy atomic.Bool
	pool := NewPool(rdb)
	pool.Handle(QueueEmail, func(_ context.Context, raw json.RawMessage) error {
		calls.Add(1)
		if healthy.Load() {
			return nil
		}
		return errors.New("smtp down")
	})
	pool.Start(ctx, 1)

	require.NoError(t, NewDispatcher(rdb).EnqueueEmail(ctx, dto.WelcomeEmailJob{ClientID: "HCL-0001", Email: "ana@example.com"}))

	require.Eventually(t, func() bool {
		n, err := DLQLength(ctx, rdb, QueueEmail)
		return err == nil && n == 1
	}, 20*time.Second, 50*time.Millisecond)
	assert.Equal(t, int32(MaxJobAttempts), calls.Load())

	raw, err := rdb.LIndex(ctx, DLQPrefix+QueueEmail, 0).Result()
	require.NoError(t, err)
	var entry DLQEntry
	require.NoError(t, json.Unmarshal([]byte(raw), &entry))
	assert.Equal(t, QueueEmail, entry.OriginalQueue)
	assert.Equal(t, "email", entry.JobType)
	assert.Equal(t, MaxJobAttempts, entry.Attempts)
	assert.Contains(t, entry.Reason, "smtp down")

	healthy.Store(true)
	moved, err := ReplayDLQ(ctx, rdb, QueueEmail, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, moved)
	require.Eventually(t, func() bool { return calls.Load() == MaxJobAttempts+1 }, 10*time.Second, 50*time.Millisecond)

	n, err := DLQLength(ctx, rdb, QueueEmail)
	require.NoError(t, err)
	assert.Zero(t, n)

	cancel()
	pool.Wait()
}

func TestPool_UnreadablePayloadGoesStraightToDLQ(t *testing.T) {
	rdb := startRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool := NewPool(rdb)
	pool.Handle(QueueMigration, func(context.Context, json.RawMessage) error { return nil })
	pool.Start(ctx, 1)

	require.NoError(t, rdb.LPush(ctx, QueueMigration, "{not json").Err())
	require.Eventually(t, func() bool {
		n, err := DLQLength(ctx, rdb, QueueMigration)
		return err == nil && n == 1
	}, 10*time.Second, 50*time.Millisecond)

	cancel()
	pool.Wait()
}

func TestRedisCheckpointsAndControl(t *testing.T) {
	rdb := startRedis(t)
	ctx := context.Background()
	cps := NewRedisCheckpoints(rdb)

	cursor, err := cps.Load(ctx, dto.MigrationProjection)
	require.NoError(t, err)
	assert.Empty(t, cursor)

	require.NoError(t, cps.Save(ctx, dto.MigrationProjection, "HA4A010__AM-M"))
	control := NewControl(rdb, NewDispatcher(rdb), cps)
	cursor, err = control.Checkpoint(ctx, dto.MigrationProjection)
	require.NoError(t, err)
	assert.Equal(t, "HA4A010__AM-M", cursor)

	require.NoError(t, cps.Clear(ctx, dto.MigrationProjection))
	cursor, err = cps.Load(ctx, dto.MigrationProjection)
	require.NoError(t, err)
	assert.Empty(t, cursor)

	require.NoError(t, control.EnqueueMigration(ctx, MigrationJob{Kind: dto.MigrationCanonical, PageSize: 20}))
	raw, err := rdb.RPop(ctx, QueueMigration).Result()
	require.NoError(t, err)
	var job Job
	require.NoError(t, json.Unmarshal([]byte(raw), &job))
	assert.Equal(t, "migration", job.Type)
	var payload MigrationJob
	require.NoError(t, json.Unmarshal(job.Payload, &payload))
	assert.Equal(t, dto.MigrationCanonical, payload.Kind)
	assert.Equal(t, 20, payload.PageSize)
}
