package chat

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/escrow-backend/internal/metrics"
	"github.com/ignatzorin/escrow-backend/internal/service"
)

// Presence учёт присутствия в пределах процесса. Пока у пользователя открыто хотя бы одно соединение,
// он онлайн. Запись в кэше со скользящим TTL продлевается входящими событиями и pong транспорта.
type Presence struct {
	mu    sync.Mutex
	conns map[uuid.UUID]int
	cache *service.CacheService
	ttl   time.Duration
}

func NewPresence(cache *service.CacheService, ttl time.Duration) *Presence {
	return &Presence{
		conns: make(map[uuid.UUID]int),
		cache: cache,
		ttl:   ttl,
	}
}

// Connect регистрирует очередное соединение пользователя.
func (p *Presence) Connect(userID uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.conns[userID]++
	if p.conns[userID] == 1 {
		metrics.OnlineUsers.Inc()
	}
	p.cache.Set(service.PresenceCacheKey(userID.String()), true, p.ttl)
}

// Disconnect снимает соединение. Пользователь уходит в офлайн, когда закрыто последнее.
func (p *Presence) Disconnect(userID uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()

	n, ok := p.conns[userID]
	if !ok {
		return
	}
	if n > 1 {
		p.conns[userID] = n - 1
		return
	}
	delete(p.conns, userID)
	metrics.OnlineUsers.Dec()
	p.cache.Delete(service.PresenceCacheKey(userID.String()))
}

// Touch продлевает присутствие на любое входящее событие и на pong.
func (p *Presence) Touch(userID uuid.UUID) {
	key := service.PresenceCacheKey(userID.String())
	if p.cache.Touch(key) {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conns[userID] > 0 {
		p.cache.Set(key, true, p.ttl)
	}
}

func (p *Presence) IsOnline(userID uuid.UUID) bool {
	if _, ok := p.cache.Get(service.PresenceCacheKey(userID.String())); ok {
		return true
	}
	// простаивающее соединение без pong за TTL всё ещё открыто
	return p.Connections(userID) > 0
}

// Connections число открытых соединений пользователя на этом экземпляре.
func (p *Presence) Connections(userID uuid.UUID) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.conns[userID]
}
