package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	appfinance "github.com/erp/reconciliation/internal/application/finance"
	"github.com/erp/reconciliation/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	defaultLockPrefix    = "recon:lock:party:"
	defaultLockTTL       = 30 * time.Second
	defaultRetryInterval = 50 * time.Millisecond
)

// lockTimeout builds the LOCK_TIMEOUT error, or passes through a caller cancel
func lockTimeout(parent context.Context, partyID uuid.UUID) error {
	if err := parent.Err(); err != nil {
		return err
	}
	return shared.NewDomainError(shared.CodeLockTimeout,
		fmt.Sprintf("timed out waiting for the lock on party %s", partyID))
}

// withWait bounds ctx by the configured wait timeout
func withWait(ctx context.Context, wait time.Duration) (context.Context, context.CancelFunc) {
	if wait <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, wait)
}

// InMemoryPartyLocker serializes operations per party inside one process.
type InMemoryPartyLocker struct {
	mu          sync.Mutex
	locks       map[uuid.UUID]*partyMutex
	waitTimeout time.Duration
}

type partyMutex struct {
	slot chan struct{}
	refs int
}

// NewInMemoryPartyLocker creates an in-process locker. waitTimeout <= 0 waits
// as long as the caller's context allows.
func NewInMemoryPartyLocker(waitTimeout time.Duration) *InMemoryPartyLocker {
	return &InMemoryPartyLocker{
		locks:       make(map[uuid.UUID]*partyMutex),
		waitTimeout: waitTimeout,
	}
}

// Lock blocks until the party is free or the wait times out
func (l *InMemoryPartyLocker) Lock(ctx context.Context, partyID uuid.UUID) (appfinance.UnlockFunc, error) {
	m := l.acquireRef(partyID)

	waitCtx, cancel := withWait(ctx, l.waitTimeout)
	defer cancel()

	select {
	case m.slot <- struct{}{}:
	case <-waitCtx.Done():
		l.releaseRef(partyID)
		return nil, lockTimeout(ctx, partyID)
	}

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() {
			<-m.slot
			l.releaseRef(partyID)
		})
		return nil
	}, nil
}

func (l *InMemoryPartyLocker) acquireRef(partyID uuid.UUID) *partyMutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[partyID]
	if !ok {
		m = &partyMutex{slot: make(chan struct{}, 1)}
		l.locks[partyID] = m
	}
	m.refs++
	return m
}

func (l *InMemoryPartyLocker) releaseRef(partyID uuid.UUID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[partyID]
	if !ok {
		return
	}
	m.refs--
	if m.refs == 0 {
		delete(l.locks, partyID)
	}
}

// held returns the number of parties with a holder or waiter (for testing)
func (l *InMemoryPartyLocker) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

// releaseScript deletes the lock only if it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// ErrLockLost is returned on unlock when the lock expired and may have been
// taken by someone else before the holder released it.
var ErrLockLost = errors.New("party lock expired before release")

// RedisPartyLockerConfig tunes the distributed lock
type RedisPartyLockerConfig struct {
	KeyPrefix     string
	TTL           time.Duration
	RetryInterval time.Duration
	WaitTimeout   time.Duration
}

// RedisPartyLocker serializes operations per party across service instances.
// The lock is a key set with NX and a TTL holding a random token; release
// compares the token before deleting.
type RedisPartyLocker struct {
	client *redis.Client
	cfg    RedisPartyLockerConfig
}

// NewRedisPartyLocker creates a distributed locker on an existing client
func NewRedisPartyLocker(client *redis.Client, cfg RedisPartyLockerConfig) *RedisPartyLocker {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = defaultLockPrefix
	}
	if cfg.TTL <= 0 {
		cfg.TTL = defaultLockTTL
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = defaultRetryInterval
	}
	return &RedisPartyLocker{client: client, cfg: cfg}
}

// Lock retries SET NX until it succeeds or the wait times out
func (l *RedisPartyLocker) Lock(ctx context.Context, partyID uuid.UUID) (appfinance.UnlockFunc, error) {
	key := l.cfg.KeyPrefix + partyID.String()
	token := uuid.NewString()

	waitCtx, cancel := withWait(ctx, l.cfg.WaitTimeout)
	defer cancel()

	ticker := time.NewTicker(l.cfg.RetryInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(waitCtx, key, token, l.cfg.TTL).Result()
		if err != nil {
			if waitCtx.Err() != nil {
				return nil, lockTimeout(ctx, partyID)
			}
			return nil, fmt.Errorf("failed to acquire party lock: %w", err)
		}
		if ok {
			return l.unlockFunc(key, token), nil
		}
		select {
		case <-ticker.C:
		case <-waitCtx.Done():
			return nil, lockTimeout(ctx, partyID)
		}
	}
}

func (l *RedisPartyLocker) unlockFunc(key, token string) appfinance.UnlockFunc {
	return func(ctx context.Context) error {
		deleted, err := releaseScript.Run(ctx, l.client, []string{key}, token).Int64()
		if err != nil {
			return fmt.Errorf("failed to release party lock: %w", err)
		}
		if deleted == 0 {
			return ErrLockLost
		}
		return nil
	}
}

var (
	_ appfinance.PartyLocker = (*InMemoryPartyLocker)(nil)
	_ appfinance.PartyLocker = (*RedisPartyLocker)(nil)
)
