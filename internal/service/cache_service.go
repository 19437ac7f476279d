package service

import (
	"context"
	"sync"
	"time"
)

// CacheService хранилище в памяти с TTL. Touch продлевает запись, что даёт скользящий срок жизни.
type CacheService struct {
	mu    sync.RWMutex
	cache map[string]*cacheEntry
	now   func() time.Time
}

type cacheEntry struct {
	data      interface{}
	ttl       time.Duration
	expiresAt time.Time
}

// NewCacheService создаёт кэш; фоновая очистка живёт, пока не отменён ctx.
func NewCacheService(ctx context.Context, cleanupInterval time.Duration) *CacheService {
	cs := &CacheService{
		cache: make(map[string]*cacheEntry),
		now:   time.Now,
	}
	if cleanupInterval > 0 {
		go cs.cleanup(ctx, cleanupInterval)
	}
	return cs
}

// Get возвращает значение, если срок записи не истёк.
func (cs *CacheService) Get(key string) (interface{}, bool) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	entry, exists := cs.cache[key]
	if !exists || cs.now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.data, true
}

func (cs *CacheService) Set(key string, value interface{}, ttl time.Duration) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	cs.cache[key] = &cacheEntry{
		data:      value,
		ttl:       ttl,
		expiresAt: cs.now().Add(ttl),
	}
}

// Touch сдвигает срок жизни живой записи на её исходный TTL.
func (cs *CacheService) Touch(key string) bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	entry, exists := cs.cache[key]
	if !exists || cs.now().After(entry.expiresAt) {
		return false
	}
	entry.expiresAt = cs.now().Add(entry.ttl)
	return true
}

func (cs *CacheService) Delete(key string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	delete(cs.cache, key)
}

// Len количество живых записей.
func (cs *CacheService) Len() int {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	n := 0
	now := cs.now()
	for _, entry := range cs.cache {
		if !now.After(entry.expiresAt) {
			n++
		}
	}
	return n
}

func (cs *CacheService) cleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cs.mu.Lock()
			now := cs.now()
			for key, entry := range cs.cache {
				if now.After(entry.expiresAt) {
					delete(cs.cache, key)
				}
			}
			cs.mu.Unlock()
		}
	}
}

// PresenceCacheKey ключ записи о присутствии пользователя.
func PresenceCacheKey(userID string) string {
	return "presence:" + userID
}
