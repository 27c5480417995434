// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus or keep them in memory.
type Recorder interface {
	// HTTP metrics
	ObserveRequest(method, route string, status int, duration time.Duration)
	IncRateLimited(scope string) // scope: "api" or "reset"

	// Auth metrics
	IncLogin(result string) // result: "success" or "failed"
	IncAuthCacheHit()
	IncAuthCacheMiss()

	// Points metrics
	IncTransaction(txType string)
	AddPoints(txType string, points int64)

	// Promotion and event metrics
	IncPromotionCacheHit()
	IncPromotionCacheMiss()
	IncPromotionCreated()
	IncPromotionDeleted()
	IncEventCreated()
	IncEventGuestAdded()
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
