package cart

import (
	"fmt"
	"time"

	"github.com/ikkim/storefront/pkg/logger"
)

const DefaultRequestTimeout = 5 * time.Second

// ReconcilePolicy decides which server responses may replace the lines
type ReconcilePolicy int

const (
	// ReconcileLastResponse applies every successful response in arrival order
	ReconcileLastResponse ReconcilePolicy = iota
	// ReconcileLatestIssued drops responses to operations issued before the
	// operation whose response was last applied
	ReconcileLatestIssued
)

// FailurePolicy decides what happens to an optimistic change whose remote call failed
type FailurePolicy int

const (
	// KeepOptimistic leaves the guess in place until the next server response
	KeepOptimistic FailurePolicy = iota
	// RollbackOptimistic reverts the guess unless a server response has been
	// applied since the operation was issued
	RollbackOptimistic
)

func ParseReconcilePolicy(s string) (ReconcilePolicy, error) {
	switch s {
	case "", "last-response":
		return ReconcileLastResponse, nil
	case "latest-issued":
		return ReconcileLatestIssued, nil
	default:
		return 0, fmt.Errorf("unknown reconcile policy %q", s)
	}
}

func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch s {
	case "", "keep":
		return KeepOptimistic, nil
	case "rollback":
		return RollbackOptimistic, nil
	default:
		return 0, fmt.Errorf("unknown failure policy %q", s)
	}
}

type options struct {
	log              *logger.Logger
	requestTimeout   time.Duration
	reconcile        ReconcilePolicy
	failure          FailurePolicy
	cache            SnapshotCache
	cacheKey         string
	snapshotFallback bool
}

// Option configures a Store
type Option func(*options)

func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithRequestTimeout bounds every remote call; expiry counts as a failure
func WithRequestTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.requestTimeout = d
		}
	}
}

func WithReconcilePolicy(p ReconcilePolicy) Option {
	return func(o *options) { o.reconcile = p }
}

func WithFailurePolicy(p FailurePolicy) Option {
	return func(o *options) { o.failure = p }
}

// WithSnapshotCache saves every applied server response under key
func WithSnapshotCache(cache SnapshotCache, key string) Option {
	return func(o *options) {
		o.cache = cache
		o.cacheKey = key
	}
}

// WithSnapshotFallback loads the cached snapshot when hydration fails
func WithSnapshotFallback(enabled bool) Option {
	return func(o *options) { o.snapshotFallback = enabled }
}
