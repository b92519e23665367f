package session

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned by a Persister when no record exists for a key.
var ErrNotFound = errors.New("session: record not found")

// Persister stores opaque per-browser records.  A ttl of zero means the
// record does not expire.
//
// Incr and SaveFenced let concurrent requests of one browser agree on a
// counter: Incr bumps it, and SaveFenced writes a record only while the
// counter still holds the value the writer last saw.  Counters are stored
// as decimal strings, so Load reads them like any other record.
type Persister interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
	SaveFenced(ctx context.Context, key string, data []byte, ttl time.Duration, fenceKey string, fence int64) (bool, error)
}

// ReadCounter returns the counter at key, zero when it does not exist.
func ReadCounter(ctx context.Context, p Persister, key string) (int64, error) {
	raw, err := p.Load(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(string(raw), 10, 64)
}

// RedisPersister keeps records as plain Redis strings.
type RedisPersister struct {
	rdb *redis.Client
}

// NewRedisPersister wraps an existing client.
func NewRedisPersister(rdb *redis.Client) *RedisPersister { return &RedisPersister{rdb: rdb} }

func (p *RedisPersister) Load(ctx context.Context, key string) ([]byte, error) {
	b, err := p.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	return b, err
}

func (p *RedisPersister) Save(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return p.rdb.Set(ctx, key, data, ttl).Err()
}

func (p *RedisPersister) Delete(ctx context.Context, key string) error {
	return p.rdb.Del(ctx, key).Err()
}

func (p *RedisPersister) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	pipe := p.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	if ttl > 0 {
		pipe.PExpire(ctx, key, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// fencedSetScript sets KEYS[1] only when the counter at KEYS[2] (missing
// counts as 0) equals ARGV[3].
var fencedSetScript = redis.NewScript(`
local cur = tonumber(redis.call('GET', KEYS[2]) or '0')
if cur ~= tonumber(ARGV[3]) then
  return 0
end
local ttl = tonumber(ARGV[2])
if ttl > 0 then
  redis.call('SET', KEYS[1], ARGV[1], 'PX', ttl)
else
  redis.call('SET', KEYS[1], ARGV[1])
end
return 1
`)

func (p *RedisPersister) SaveFenced(ctx context.Context, key string, data []byte, ttl time.Duration, fenceKey string, fence int64) (bool, error) {
	n, err := fencedSetScript.Run(ctx, p.rdb, []string{key, fenceKey}, data, ttl.Milliseconds(), fence).Int64()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// MemoryPersister is an in-process Persister.  It backs the gateway when
// Redis is unavailable and is used throughout the tests.
type MemoryPersister struct {
	mu   sync.Mutex
	data map[string]memEntry
	now  func() time.Time
}

type memEntry struct {
	b   []byte
	exp time.Time
}

// NewMemoryPersister returns an empty store.
func NewMemoryPersister() *MemoryPersister {
	return &MemoryPersister{data: map[string]memEntry{}, now: time.Now}
}

func (p *MemoryPersister) Load(_ context.Context, key string) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	if !e.exp.IsZero() && !p.now().Before(e.exp) {
		delete(p.data, key)
		return nil, ErrNotFound
	}
	return append([]byte(nil), e.b...), nil
}

func (p *MemoryPersister) Save(_ context.Context, key string, data []byte, ttl time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.put(key, data, ttl)
	return nil
}

func (p *MemoryPersister) put(key string, data []byte, ttl time.Duration) {
	e := memEntry{b: append([]byte(nil), data...)}
	if ttl > 0 {
		e.exp = p.now().Add(ttl)
	}
	p.data[key] = e
}

// counter reads key as a decimal counter.  The caller holds p.mu.
func (p *MemoryPersister) counter(key string) (int64, error) {
	e, ok := p.data[key]
	if !ok || (!e.exp.IsZero() && !p.now().Before(e.exp)) {
		return 0, nil
	}
	return strconv.ParseInt(string(e.b), 10, 64)
}

func (p *MemoryPersister) Incr(_ context.Context, key string, ttl time.Duration) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n, err := p.counter(key)
	if err != nil {
		return 0, err
	}
	n++
	p.put(key, []byte(strconv.FormatInt(n, 10)), ttl)
	return n, nil
}

func (p *MemoryPersister) SaveFenced(_ context.Context, key string, data []byte, ttl time.Duration, fenceKey string, fence int64) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	cur, err := p.counter(fenceKey)
	if err != nil {
		return false, err
	}
	if cur != fence {
		return false, nil
	}
	p.put(key, data, ttl)
	return true, nil
}

func (p *MemoryPersister) Delete(_ context.Context, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.data, key)
	return nil
}
