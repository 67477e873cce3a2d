package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueMigration = "jobs:migration"
	QueueEmail     = "jobs:email"

	// MaxJobAttempts is how many times a job runs before it lands in the DLQ.
	MaxJobAttempts = 3

	popTimeout = 5 * time.Second
)

var errNoRedis = errors.New("worker: redis no configurado")

// Job is the generic envelope for all async tasks.
type Job struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
	Attempt int             `json:"attempt"`
}

// Handler processes one job payload. A non-nil error schedules a retry.
type Handler func(ctx context.Context, payload json.RawMessage) error

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// EnqueueMigration pushes one migration page to Redis.
func (d *Dispatcher) EnqueueMigration(ctx context.Context, job MigrationJob) error {
	return d.enqueue(ctx, QueueMigration, "migration", job)
}

// EnqueueEmail pushes an email job to Redis.
func (d *Dispatcher) EnqueueEmail(ctx context.Context, payload interface{}) error {
	return d.enqueue(ctx, QueueEmail, "email", payload)
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return d.push(ctx, queue, Job{Type: jobType, Payload: data})
}

func (d *Dispatcher) push(ctx context.Context, queue string, job Job) error {
	if d == nil || d.rdb == nil {
		return errNoRedis
	}
	encoded, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, queue, encoded).Err()
}

// Pool runs handlers for the registered queues.
type Pool struct {
	rdb      *redis.Client
	mu       sync.RWMutex
	handlers map[string]Handler
	wg       sync.WaitGroup
}

func NewPool(rdb *redis.Client) *Pool {
	return &Pool{rdb: rdb, handlers: make(map[string]Handler)}
}

// Handle registers h for queue. Call before Start.
func (p *Pool) Handle(queue string, h Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers[queue] = h
}

func (p *Pool) queues() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, 0, len(p.handlers))
	for q := range p.handlers {
		out = append(out, q)
	}
	return out
}

// Start launches numWorkers goroutines consuming every registered queue.
// Each goroutine blocks on BRPOP, zero CPU when idle.
func (p *Pool) Start(ctx context.Context, numWorkers int) {
	queues := p.queues()
	if len(queues) == 0 {
		log.Warn().Msg("worker pool: sin colas registradas")
		return
	}
	for i := 0; i < numWorkers; i++ {
		p.wg.Add(1)
		go p.run(ctx, queues, i)
	}
	log.Info().Int("workers", numWorkers).Strs("queues", queues).Msg("worker pool started")
}

// Wait blocks until every worker has returned after ctx cancellation.
func (p *Pool) Wait() { p.wg.Wait() }

func (p *Pool) run(ctx context.Context, queues []string, id int) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
			// Blocking pop, waits up to 5s then loops to check ctx
			result, err := p.rdb.BRPop(ctx, popTimeout, queues...).Result()
			if err != nil {
				continue
			}
			if len(result) < 2 {
				continue
			}
			p.process(ctx, result[0], result[1])
		}
	}
}

func (p *Pool) process(ctx context.Context, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		SendToDLQ(ctx, p.rdb, queue, Job{Type: "unknown", Payload: json.RawMessage(`null`)}, "payload inválido: "+err.Error())
		return
	}

	p.mu.RLock()
	h, ok := p.handlers[queue]
	p.mu.RUnlock()
	if !ok {
		SendToDLQ(ctx, p.rdb, queue, job, "sin handler para la cola")
		return
	}

	job.Attempt++
	err := h(ctx, job.Payload)
	if err == nil {
		return
	}
	if job.Attempt >= MaxJobAttempts {
		SendToDLQ(ctx, p.rdb, queue, job, fmt.Sprintf("max attempts (%d) exceeded: %s", MaxJobAttempts, err))
		return
	}
	log.Warn().Err(err).Str("queue", queue).Str("type", job.Type).Int("attempt", job.Attempt).Msg("job failed, requeued")
	if pushErr := (&Dispatcher{rdb: p.rdb}).push(ctx, queue, job); pushErr != nil {
		log.Error().Err(pushErr).Str("queue", queue).Msg("requeue failed")
	}
}
