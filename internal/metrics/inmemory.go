package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	Requests           uint64
	RequestDurationNs  int64
	RateLimited        map[string]uint64
	LoginsSucceeded    uint64
	LoginsFailed       uint64
	AuthCacheHits      uint64
	AuthCacheMisses    uint64
	Transactions       map[string]uint64
	Points             map[string]int64
	PromotionCacheHits uint64
	PromotionCacheMiss uint64
	PromotionsCreated  uint64
	PromotionsDeleted  uint64
	EventsCreated      uint64
	EventGuestsAdded   uint64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	requests           uint64
	requestDurationNs  int64
	loginsSucceeded    uint64
	loginsFailed       uint64
	authCacheHits      uint64
	authCacheMisses    uint64
	promotionCacheHits uint64
	promotionCacheMiss uint64
	promotionsCreated  uint64
	promotionsDeleted  uint64
	eventsCreated      uint64
	eventGuestsAdded   uint64

	mu           sync.Mutex
	rateLimited  map[string]uint64
	transactions map[string]uint64
	points       map[string]int64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		rateLimited:  make(map[string]uint64),
		transactions: make(map[string]uint64),
		points:       make(map[string]int64),
	}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := Snapshot{
		Requests:           atomic.LoadUint64(&m.requests),
		RequestDurationNs:  atomic.LoadInt64(&m.requestDurationNs),
		RateLimited:        make(map[string]uint64, len(m.rateLimited)),
		LoginsSucceeded:    atomic.LoadUint64(&m.loginsSucceeded),
		LoginsFailed:       atomic.LoadUint64(&m.loginsFailed),
		AuthCacheHits:      atomic.LoadUint64(&m.authCacheHits),
		AuthCacheMisses:    atomic.LoadUint64(&m.authCacheMisses),
		Transactions:       make(map[string]uint64, len(m.transactions)),
		Points:             make(map[string]int64, len(m.points)),
		PromotionCacheHits: atomic.LoadUint64(&m.promotionCacheHits),
		PromotionCacheMiss: atomic.LoadUint64(&m.promotionCacheMiss),
		PromotionsCreated:  atomic.LoadUint64(&m.promotionsCreated),
		PromotionsDeleted:  atomic.LoadUint64(&m.promotionsDeleted),
		EventsCreated:      atomic.LoadUint64(&m.eventsCreated),
		EventGuestsAdded:   atomic.LoadUint64(&m.eventGuestsAdded),
	}
	for k, v := range m.rateLimited {
		snap.RateLimited[k] = v
	}
	for k, v := range m.transactions {
		snap.Transactions[k] = v
	}
	for k, v := range m.points {
		snap.Points[k] = v
	}
	return snap
}

// ObserveRequest records one handled request.
func (m *InMemoryRecorder) ObserveRequest(method, route string, status int, duration time.Duration) {
	atomic.AddUint64(&m.requests, 1)
	atomic.AddInt64(&m.requestDurationNs, duration.Nanoseconds())
}

// IncRateLimited counts a rejected request.
func (m *InMemoryRecorder) IncRateLimited(scope string) {
	m.mu.Lock()
	m.rateLimited[scope]++
	m.mu.Unlock()
}

// IncLogin counts a login attempt.
func (m *InMemoryRecorder) IncLogin(result string) {
	if result == "success" {
		atomic.AddUint64(&m.loginsSucceeded, 1)
		return
	}
	atomic.AddUint64(&m.loginsFailed, 1)
}

// IncAuthCacheHit increments auth cache hit counter.
func (m *InMemoryRecorder) IncAuthCacheHit() {
	atomic.AddUint64(&m.authCacheHits, 1)
}

// IncAuthCacheMiss increments auth cache miss counter.
func (m *InMemoryRecorder) IncAuthCacheMiss() {
	atomic.AddUint64(&m.authCacheMisses, 1)
}

// IncTransaction counts a created transaction by type.
func (m *InMemoryRecorder) IncTransaction(txType string) {
	m.mu.Lock()
	m.transactions[txType]++
	m.mu.Unlock()
}

// AddPoints accumulates points moved by transaction type.
func (m *InMemoryRecorder) AddPoints(txType string, points int64) {
	m.mu.Lock()
	m.points[txType] += points
	m.mu.Unlock()
}

// IncPromotionCacheHit increments promotion cache hit counter.
func (m *InMemoryRecorder) IncPromotionCacheHit() {
	atomic.AddUint64(&m.promotionCacheHits, 1)
}

// IncPromotionCacheMiss increments promotion cache miss counter.
func (m *InMemoryRecorder) IncPromotionCacheMiss() {
	atomic.AddUint64(&m.promotionCacheMiss, 1)
}

// IncPromotionCreated increments promotion created counter.
func (m *InMemoryRecorder) IncPromotionCreated() {
	atomic.AddUint64(&m.promotionsCreated, 1)
}

// IncPromotionDeleted increments promotion deleted counter.
func (m *InMemoryRecorder) IncPromotionDeleted() {
	atomic.AddUint64(&m.promotionsDeleted, 1)
}

// IncEventCreated increments event created counter.
func (m *InMemoryRecorder) IncEventCreated() {
	atomic.AddUint64(&m.eventsCreated, 1)
}

// IncEventGuestAdded increments event guest counter.
func (m *InMemoryRecorder) IncEventGuestAdded() {
	atomic.AddUint64(&m.eventGuestsAdded, 1)
}
