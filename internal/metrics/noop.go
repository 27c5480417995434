package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// ObserveRequest is a no-op.
func (n *NoopRecorder) ObserveRequest(method, route string, status int, duration time.Duration) {}

// IncRateLimited is a no-op.
func (n *NoopRecorder) IncRateLimited(scope string) {}

// IncLogin is a no-op.
func (n *NoopRecorder) IncLogin(result string) {}

// IncAuthCacheHit is a no-op.
func (n *NoopRecorder) IncAuthCacheHit() {}

// IncAuthCacheMiss is a no-op.
func (n *NoopRecorder) IncAuthCacheMiss() {}

// IncTransaction is a no-op.
func (n *NoopRecorder) IncTransaction(txType string) {}

// AddPoints is a no-op.
func (n *NoopRecorder) AddPoints(txType string, points int64) {}

// IncPromotionCacheHit is a no-op.
func (n *NoopRecorder) IncPromotionCacheHit() {}

// IncPromotionCacheMiss is a no-op.
func (n *NoopRecorder) IncPromotionCacheMiss() {}

// IncPromotionCreated is a no-op.
func (n *NoopRecorder) IncPromotionCreated() {}

// IncPromotionDeleted is a no-op.
func (n *NoopRecorder) IncPromotionDeleted() {}

// IncEventCreated is a no-op.
func (n *NoopRecorder) IncEventCreated() {}

// IncEventGuestAdded is a no-op.
func (n *NoopRecorder) IncEventGuestAdded() {}
