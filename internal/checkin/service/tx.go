package service

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	dErrors "eventdesk/pkg/domain-errors"
)

// numCheckInShards spreads attempts for different codes across locks so
// unrelated check-ins do not contend.
const numCheckInShards = 128

// DefaultTxTimeout bounds a transaction when the caller set no deadline.
const DefaultTxTimeout = 5 * time.Second

// shardedTx serializes attempts on the same registration code.
type shardedTx struct {
	shards  [numCheckInShards]sync.Mutex
	store   Store
	timeout time.Duration
}

// NewShardedTx wraps an in-memory store. A zero timeout uses DefaultTxTimeout.
func NewShardedTx(store Store, timeout time.Duration) StoreTx {
	return &shardedTx{store: store, timeout: timeout}
}

func (t *shardedTx) RunInTx(ctx context.Context, fn func(ctx context.Context, store Store) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = DefaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	shard := t.selectShard(ctx)
	t.shards[shard].Lock()
	defer t.shards[shard].Unlock()

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	return fn(ctx, t.store)
}

// selectShard picks a shard from the registration code in ctx, or shard 0.
func (t *shardedTx) selectShard(ctx context.Context) int {
	if key := shardKey(ctx); key != "" {
		return int(fnv1a(key) % numCheckInShards)
	}
	return 0
}

func fnv1a(s string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return h.Sum32()
}

type txShardKey struct{}

// WithShardKey tags ctx with the registration code an attempt locks on.
func WithShardKey(ctx context.Context, code string) context.Context {
	return context.WithValue(ctx, txShardKey{}, code)
}

func shardKey(ctx context.Context) string {
	key, _ := ctx.Value(txShardKey{}).(string)
	return key
}
