package gatekit

import (
	"sync"
	"sync/atomic"
	"time"
)

// DecisionMetrics provides decision throughput and outcome statistics.
type DecisionMetrics struct {
	TotalChecks     int64         `json:"total_checks"`
	Allowed         int64         `json:"allowed"`
	Denied          int64         `json:"denied"`
	ExplicitDenies  int64         `json:"explicit_denies"`
	PolicyDenies    int64         `json:"policy_denies"`
	AverageDuration time.Duration `json:"average_duration"`
	MaxDuration     time.Duration `json:"max_duration"`
	MinDuration     time.Duration `json:"min_duration"`
	LastReset       time.Time     `json:"last_reset"`
}

// decisionMonitor holds the internal decision monitoring state
type decisionMonitor struct {
	totalCount     int64
	allowedCount   int64
	deniedCount    int64
	explicitDenies int64
	policyDenies   int64
	totalDuration  int64 // nanoseconds
	maxDuration    int64 // nanoseconds
	minDuration    int64 // nanoseconds
	lastReset      time.Time
	mu             sync.RWMutex
}

// newDecisionMonitor creates a new decision monitor
func newDecisionMonitor() *decisionMonitor {
	return &decisionMonitor{
		minDuration: int64(time.Hour), // Initialize to a large value
		lastReset:   time.Now(),
	}
}

// recordCheck records a completed decision with its duration and outcome
func (dm *decisionMonitor) recordCheck(duration time.Duration, result CheckResult, policyOutcome string) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	atomic.AddInt64(&dm.totalCount, 1)
	atomic.AddInt64(&dm.totalDuration, int64(duration))

	if result.Allowed {
		atomic.AddInt64(&dm.allowedCount, 1)
	} else {
		atomic.AddInt64(&dm.deniedCount, 1)
		if result.Denied {
			atomic.AddInt64(&dm.explicitDenies, 1)
		}
		if policyOutcome == PolicyOutcomeDenied {
			atomic.AddInt64(&dm.policyDenies, 1)
		}
	}

	// Update max duration
	durationNs := int64(duration)
	for {
		current := atomic.LoadInt64(&dm.maxDuration)
		if durationNs <= current || atomic.CompareAndSwapInt64(&dm.maxDuration, current, durationNs) {
			break
		}
	}

	// Update min duration
	for {
		current := atomic.LoadInt64(&dm.minDuration)
		if durationNs >= current || atomic.CompareAndSwapInt64(&dm.minDuration, current, durationNs) {
			break
		}
	}
}

// getMetrics returns the current decision metrics
func (dm *decisionMonitor) getMetrics() DecisionMetrics {
	dm.mu.RLock()
	defer dm.mu.RUnlock()

	total := atomic.LoadInt64(&dm.totalCount)
	totalDur := atomic.LoadInt64(&dm.totalDuration)

	var avgDuration time.Duration
	if total > 0 {
		avgDuration = time.Duration(totalDur / total)
	}

	return DecisionMetrics{
		TotalChecks:     total,
		Allowed:         atomic.LoadInt64(&dm.allowedCount),
		Denied:          atomic.LoadInt64(&dm.deniedCount),
		ExplicitDenies:  atomic.LoadInt64(&dm.explicitDenies),
		PolicyDenies:    atomic.LoadInt64(&dm.policyDenies),
		AverageDuration: avgDuration,
		MaxDuration:     time.Duration(atomic.LoadInt64(&dm.maxDuration)),
		MinDuration:     time.Duration(atomic.LoadInt64(&dm.minDuration)),
		LastReset:       dm.lastReset,
	}
}

// reset resets all metrics
func (dm *decisionMonitor) reset() {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	atomic.StoreInt64(&dm.totalCount, 0)
	atomic.StoreInt64(&dm.allowedCount, 0)
	atomic.StoreInt64(&dm.deniedCount, 0)
	atomic.StoreInt64(&dm.explicitDenies, 0)
	atomic.StoreInt64(&dm.policyDenies, 0)
	atomic.StoreInt64(&dm.totalDuration, 0)
	atomic.StoreInt64(&dm.maxDuration, 0)
	atomic.StoreInt64(&dm.minDuration, int64(time.Hour))
	dm.lastReset = time.Now()
}
