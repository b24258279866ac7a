package services

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"xandpulse/config"
	"xandpulse/models"
)

// CacheMode indicates which cache backend is active
type CacheMode string

const (
	CacheModeRedis    CacheMode = "redis"
	CacheModeInMemory CacheMode = "in-memory"
)

const (
	snapshotKeyPrefix = "snapshot:"
	nodesKeyPrefix    = "nodes:"
)

// CacheItem for in-memory fallback. Values are kept JSON-encoded so both
// backends decode the same way.
type CacheItem struct {
	Data      []byte
	ExpiresAt time.Time
}

// CacheService holds the latest fleet view per network: the newest snapshot
// and the newest probe results. Redis is used when reachable, an in-memory map
// otherwise.
type CacheService struct {
	cfg *config.Config
	ttl time.Duration

	// Redis
	redis       *redis.Client
	redisCtx    context.Context
	redisCancel context.CancelFunc
	mode        CacheMode
	modeMutex   sync.RWMutex

	// In-memory fallback
	inMemoryStore sync.Map

	stopChan chan struct{}
	stopOnce sync.Once
}

func NewCacheService(cfg *config.Config) *CacheService {
	ctx, cancel := context.WithCancel(context.Background())

	cs := &CacheService{
		cfg:         cfg,
		ttl:         cfg.CacheTTLDuration(),
		redisCtx:    ctx,
		redisCancel: cancel,
		stopChan:    make(chan struct{}),
		mode:        CacheModeInMemory, // Start in memory mode
	}

	// Try to connect to Redis if enabled
	if cfg.Redis.Enabled {
		cs.connectRedis()
	} else {
		log.Println("Redis disabled in config, using in-memory cache only")
	}

	return cs
}

func (cs *CacheService) connectRedis() {
	if cs.cfg.Redis.Address == "" {
		log.Println("Redis address not configured, using in-memory cache")
		return
	}

	options := &redis.Options{
		Addr:         cs.cfg.Redis.Address,
		Password:     cs.cfg.Redis.Password,
		DB:           cs.cfg.Redis.DB,
		DialTimeout:  10 * time.Second,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
		PoolTimeout:  10 * time.Second,
	}

	if cs.cfg.Redis.UseTLS {
		options.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
		log.Printf("TLS enabled for Redis connection")
	}

	cs.redis = redis.NewClient(options)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pong, err := cs.redis.Ping(ctx).Result()
	if err != nil {
		log.Printf("⚠️  Redis connection failed: %v", err)
		log.Printf("⚠️  Running in IN-MEMORY mode")
		cs.setMode(CacheModeInMemory)
		return
	}

	log.Printf("✓ Redis connected successfully (response: %s)", pong)
	cs.setMode(CacheModeRedis)
}

func (cs *CacheService) setMode(mode CacheMode) {
	cs.modeMutex.Lock()
	defer cs.modeMutex.Unlock()
	cs.mode = mode
}

func (cs *CacheService) getMode() CacheMode {
	cs.modeMutex.RLock()
	defer cs.modeMutex.RUnlock()
	return cs.mode
}

// StartHealthCheck watches Redis and switches modes when it goes away or comes back.
func (cs *CacheService) StartHealthCheck() {
	go cs.runHealthCheckLoop()
}

func (cs *CacheService) Stop() {
	cs.stopOnce.Do(func() {
		close(cs.stopChan)
		cs.redisCancel()

		if cs.redis != nil {
			cs.redis.Close()
		}
	})
}

func (cs *CacheService) runHealthCheckLoop() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cs.checkRedisHealth()
		case <-cs.stopChan:
			return
		}
	}
}

func (cs *CacheService) checkRedisHealth() {
	if !cs.cfg.Redis.Enabled || cs.redis == nil {
		return
	}

	mode := cs.getMode()
	ctx, cancel := context.WithTimeout(cs.redisCtx, 2*time.Second)
	defer cancel()

	_, err := cs.redis.Ping(ctx).Result()

	if mode == CacheModeRedis && err != nil {
		log.Printf("⚠️  Redis health check failed: %v", err)
		log.Printf("⚠️  Switching to IN-MEMORY mode")
		cs.setMode(CacheModeInMemory)
	} else if mode == CacheModeInMemory && err == nil {
		log.Printf("✓ Redis reconnected! Switching back to REDIS mode")
		cs.syncInMemoryToRedis()
		cs.setMode(CacheModeRedis)
	}
}

// syncInMemoryToRedis copies in-memory cache to Redis on reconnection
func (cs *CacheService) syncInMemoryToRedis() {
	synced := 0
	cs.inMemoryStore.Range(func(key, value interface{}) bool {
		item := value.(*CacheItem)
		if ttl := time.Until(item.ExpiresAt); ttl > 0 {
			if err := cs.setRedis(key.(string), item.Data, ttl); err == nil {
				synced++
			}
		}
		return true
	})

	log.Printf("Synced %d items to Redis", synced)
}

// ============================================
// Generic Set/Get with Redis + In-Memory
// ============================================

func (cs *CacheService) Set(key string, data interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}

	if cs.getMode() == CacheModeRedis {
		if err := cs.setRedis(key, raw, ttl); err != nil {
			log.Printf("Redis SET failed for '%s': %v (falling back to in-memory)", key, err)
			cs.setInMemory(key, raw, ttl)
		}
		return nil
	}

	cs.setInMemory(key, raw, ttl)
	return nil
}

// Get decodes the cached value into dest and reports whether it was found.
func (cs *CacheService) Get(key string, dest interface{}) bool {
	var raw []byte
	var found bool

	if cs.getMode() == CacheModeRedis {
		var err error
		raw, found, err = cs.getRedis(key)
		if err != nil {
			// On Redis error, check in-memory fallback
			raw, found = cs.getInMemory(key)
		}
	} else {
		raw, found = cs.getInMemory(key)
	}

	if !found {
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		log.Printf("Cache decode failed for '%s': %v", key, err)
		return false
	}
	return true
}

// ============================================
// Redis Operations
// ============================================

func (cs *CacheService) setRedis(key string, raw []byte, ttl time.Duration) error {
	if cs.redis == nil {
		return fmt.Errorf("redis client not initialized")
	}

	ctx, cancel := context.WithTimeout(cs.redisCtx, 2*time.Second)
	defer cancel()

	return cs.redis.Set(ctx, key, raw, ttl).Err()
}

func (cs *CacheService) getRedis(key string) ([]byte, bool, error) {
	if cs.redis == nil {
		return nil, false, fmt.Errorf("redis client not initialized")
	}

	ctx, cancel := context.WithTimeout(cs.redisCtx, 2*time.Second)
	defer cancel()

	raw, err := cs.redis.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return raw, true, nil
}

// ============================================
// In-Memory Operations (Fallback)
// ============================================

func (cs *CacheService) setInMemory(key string, raw []byte, ttl time.Duration) {
	cs.inMemoryStore.Store(key, &CacheItem{
		Data:      raw,
		ExpiresAt: time.Now().Add(ttl),
	})
}

func (cs *CacheService) getInMemory(key string) ([]byte, bool) {
	val, ok := cs.inMemoryStore.Load(key)
	if !ok {
		return nil, false
	}

	item := val.(*CacheItem)
	if time.Now().After(item.ExpiresAt) {
		return nil, false
	}
	return item.Data, true
}

// ============================================
// Typed Helper Methods
// ============================================

func (cs *CacheService) SetLatestSnapshot(snapshot *models.NetworkSnapshot) error {
	return cs.Set(snapshotKeyPrefix+snapshot.Network, snapshot, cs.ttl)
}

func (cs *CacheService) GetLatestSnapshot(network string) (*models.NetworkSnapshot, bool) {
	var snapshot models.NetworkSnapshot
	if !cs.Get(snapshotKeyPrefix+network, &snapshot) {
		return nil, false
	}
	return &snapshot, true
}

func (cs *CacheService) SetNetworkNodes(network string, results []models.ProbeResult) error {
	return cs.Set(nodesKeyPrefix+network, results, cs.ttl)
}

func (cs *CacheService) GetNetworkNodes(network string) ([]models.ProbeResult, bool) {
	var results []models.ProbeResult
	if !cs.Get(nodesKeyPrefix+network, &results) {
		return nil, false
	}
	return results, true
}

// ============================================
// Utility Methods
// ============================================

func (cs *CacheService) GetCacheMode() CacheMode {
	return cs.getMode()
}

func (cs *CacheService) ClearCache() error {
	if cs.getMode() == CacheModeRedis && cs.redis != nil {
		ctx, cancel := context.WithTimeout(cs.redisCtx, 5*time.Second)
		defer cancel()

		deleted := 0
		for _, pattern := range []string{snapshotKeyPrefix + "*", nodesKeyPrefix + "*"} {
			iter := cs.redis.Scan(ctx, 0, pattern, 0).Iterator()
			for iter.Next(ctx) {
				if err := cs.redis.Del(ctx, iter.Val()).Err(); err == nil {
					deleted++
				}
			}
			if err := iter.Err(); err != nil {
				return fmt.Errorf("redis scan %s: %w", pattern, err)
			}
		}
		log.Printf("Redis cache cleared (%d keys deleted)", deleted)
	}

	cs.inMemoryStore.Range(func(key, _ interface{}) bool {
		cs.inMemoryStore.Delete(key)
		return true
	})
	log.Println("In-memory cache cleared")

	return nil
}

func (cs *CacheService) GetCacheStats() map[string]interface{} {
	mode := cs.getMode()
	stats := map[string]interface{}{
		"mode":    string(mode),
		"enabled": cs.cfg.Redis.Enabled,
	}

	if mode == CacheModeRedis && cs.redis != nil {
		ctx, cancel := context.WithTimeout(cs.redisCtx, 2*time.Second)
		defer cancel()

		if dbSize, err := cs.redis.DBSize(ctx).Result(); err == nil {
			stats["redis_keys"] = dbSize
		}
	}

	inMemCount := 0
	cs.inMemoryStore.Range(func(_, _ interface{}) bool {
		inMemCount++
		return true
	})
	stats["in_memory_keys"] = inMemCount

	return stats
}
