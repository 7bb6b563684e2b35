package broker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/archivio/curator/internal/metrics"
	"github.com/archivio/curator/internal/task"
	"github.com/redis/go-redis/v9"
)

// Key layout per queue:
//
//	curator:q:<name>         ready zset, scored by (10-priority)*2^40 + seq
//	curator:q:<name>:delayed delayed zset, scored by due unix millis
//	curator:q:<name>:proc    hash taskID -> descriptor JSON (claimed tasks)
//	curator:q:<name>:procdl  zset taskID -> visibility deadline unix millis
//	curator:q:<name>:seq     monotonic counter preserving FIFO within a priority
//
// The composite ready score keeps both components inside float64 mantissa
// precision: priority occupies bits above 2^40 and the sequence below.

// enqueueScript atomically checks the depth cap and adds the descriptor to
// the ready or delayed set.
var enqueueScript = redis.NewScript(`
local depth = redis.call('ZCARD', KEYS[1]) + redis.call('ZCARD', KEYS[2])
if depth >= tonumber(ARGV[2]) then
  return 0
end
if tonumber(ARGV[4]) > 0 then
  redis.call('ZADD', KEYS[2], ARGV[4], ARGV[1])
else
  local seq = redis.call('INCR', KEYS[3])
  local score = (10 - tonumber(ARGV[3])) * 1099511627776 + seq
  redis.call('ZADD', KEYS[1], score, ARGV[1])
end
return 1
`)

// dequeueScript promotes due delayed tasks, reclaims tasks whose
// visibility window expired, then pops the highest-priority ready task
// into the processing set.
var dequeueScript = redis.NewScript(`
local function readyScore(member)
  local d = cjson.decode(member)
  local seq = redis.call('INCR', KEYS[3])
  return (10 - (d.priority or 0)) * 1099511627776 + seq
end

local due = redis.call('ZRANGEBYSCORE', KEYS[2], '-inf', ARGV[1], 'LIMIT', 0, 100)
for _, m in ipairs(due) do
  redis.call('ZADD', KEYS[1], readyScore(m), m)
  redis.call('ZREM', KEYS[2], m)
end

local expired = redis.call('ZRANGEBYSCORE', KEYS[5], '-inf', ARGV[1], 'LIMIT', 0, 100)
for _, id in ipairs(expired) do
  local m = redis.call('HGET', KEYS[4], id)
  if m then
    redis.call('ZADD', KEYS[1], readyScore(m), m)
    redis.call('HDEL', KEYS[4], id)
  end
  redis.call('ZREM', KEYS[5], id)
end

local popped = redis.call('ZPOPMIN', KEYS[1], 1)
if #popped == 0 then
  return false
end
local m = popped[1]
local d = cjson.decode(m)
redis.call('HSET', KEYS[4], d.id, m)
redis.call('ZADD', KEYS[5], ARGV[2], d.id)
return m
`)

// RedisOptions configures the Redis broker.
type RedisOptions struct {
	// MaxDepth is the per-queue backpressure cap; zero uses DefaultMaxDepth.
	MaxDepth int64

	// Visibility is the late-acknowledgment window; zero uses DefaultVisibility.
	Visibility time.Duration

	// Metrics is an optional instrumentation sink.
	Metrics *metrics.Metrics
}

// RedisBroker implements Broker on Redis sorted sets.
type RedisBroker struct {
	client     *redis.Client
	maxDepth   int64
	visibility time.Duration
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// NewRedisBroker creates a broker on the given client.
func NewRedisBroker(client *redis.Client, opts RedisOptions, logger *slog.Logger) *RedisBroker {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if opts.Visibility <= 0 {
		opts.Visibility = DefaultVisibility
	}

	return &RedisBroker{
		client:     client,
		maxDepth:   opts.MaxDepth,
		visibility: opts.Visibility,
		metrics:    opts.Metrics,
		logger:     logger.With("component", "redis_broker"),
	}
}

func queueKeys(queue string) []string {
	base := "curator:q:" + queue
	return []string{base, base + ":delayed", base + ":seq", base + ":proc", base + ":procdl"}
}

// Enqueue pushes the descriptor, honoring its NotBefore delay and the
// depth cap.
func (b *RedisBroker) Enqueue(ctx context.Context, d *task.Descriptor) (string, error) {
	data, err := d.Marshal()
	if err != nil {
		return "", err
	}

	var due int64
	if !d.NotBefore.IsZero() {
		due = d.NotBefore.UnixMilli()
	}

	keys := queueKeys(d.Queue)
	res, err := enqueueScript.Run(ctx, b.client,
		[]string{keys[0], keys[1], keys[2]},
		string(data), b.maxDepth, d.Priority, due).Int()
	if err != nil {
		return "", fmt.Errorf("failed to enqueue task %s: %w", d.ID, err)
	}
	if res == 0 {
		return "", fmt.Errorf("queue %q at capacity %d: %w", d.Queue, b.maxDepth, ErrQueueFull)
	}

	b.logger.Debug("task enqueued",
		"task_id", d.ID,
		"task_type", d.Type,
		"queue", d.Queue,
		"priority", d.Priority,
		"delayed", due > 0)

	b.observeDepth(ctx, d.Queue)
	return d.ID, nil
}

// Dequeue claims the highest-priority due task from the queue.
func (b *RedisBroker) Dequeue(ctx context.Context, queue string) (*task.Descriptor, error) {
	keys := queueKeys(queue)
	now := time.Now()
	deadline := now.Add(b.visibility)

	res, err := dequeueScript.Run(ctx, b.client,
		[]string{keys[0], keys[1], keys[2], keys[3], keys[4]},
		now.UnixMilli(), deadline.UnixMilli()).Text()
	if errors.Is(err, redis.Nil) {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("failed to dequeue from %q: %w", queue, err)
	}

	d, err := task.Unmarshal([]byte(res))
	if err != nil {
		return nil, err
	}

	b.observeDepth(ctx, queue)
	return d, nil
}

// Ack removes a claimed task. Unknown IDs are ignored.
func (b *RedisBroker) Ack(ctx context.Context, queue, taskID string) error {
	keys := queueKeys(queue)

	pipe := b.client.TxPipeline()
	pipe.HDel(ctx, keys[3], taskID)
	pipe.ZRem(ctx, keys[4], taskID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to ack task %s: %w", taskID, err)
	}
	return nil
}

// Depth reports ready plus delayed tasks for the queue.
func (b *RedisBroker) Depth(ctx context.Context, queue string) (int64, error) {
	keys := queueKeys(queue)

	pipe := b.client.Pipeline()
	ready := pipe.ZCard(ctx, keys[0])
	delayed := pipe.ZCard(ctx, keys[1])
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to read depth of %q: %w", queue, err)
	}
	return ready.Val() + delayed.Val(), nil
}

// Close releases the underlying client.
func (b *RedisBroker) Close() error {
	return b.client.Close()
}

func (b *RedisBroker) observeDepth(ctx context.Context, queue string) {
	if b.metrics == nil {
		return
	}
	depth, err := b.Depth(ctx, queue)
	if err != nil {
		return
	}
	b.metrics.ObserveQueueDepth(queue, depth)
}

var _ Broker = (*RedisBroker)(nil)
