package awserr

import "sync"

// ThrottleRegistry tracks which service error codes should be classified
// as throttling for retry purposes. The base set covers the codes common
// across most JSON/query-protocol AWS services; individual service
// packages register additional codes at init time (spec §9 open
// question: "exact set of throttling error codes varies by service").
type ThrottleRegistry struct {
	mu    sync.RWMutex
	codes map[string]bool
}

func newThrottleRegistry() *ThrottleRegistry {
	r := &ThrottleRegistry{codes: make(map[string]bool)}
	for _, c := range []string{
		"Throttling",
		"ThrottlingException",
		"ThrottledException",
		"RequestThrottled",
		"RequestThrottledException",
		"TooManyRequestsException",
		"ProvisionedThroughputExceededException",
		"RequestLimitExceeded",
		"BandwidthLimitExceeded",
		"LimitExceededException",
		"SlowDown",
		"PriorRequestNotComplete",
		"TransactionInProgressException",
		"EC2ThrottledException",
	} {
		r.codes[c] = true
	}
	return r
}

// RegisterThrottleCode adds a service-specific error code to the set
// treated as throttling (retryable, subject to the retry policy's backoff).
func (r *ThrottleRegistry) RegisterThrottleCode(code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codes[code] = true
}

// IsThrottleCode reports whether code is registered as a throttling error.
func (r *ThrottleRegistry) IsThrottleCode(code string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.codes[code]
}

var defaultRegistry = newThrottleRegistry()

// RegisterThrottleCode registers code against the package-level default
// registry, consulted by ServiceError.IsRetryable.
func RegisterThrottleCode(code string) {
	defaultRegistry.RegisterThrottleCode(code)
}

// IsThrottleCode reports whether code is registered as throttling against
// the package-level default registry. Exported so the client can hand it
// to the retry middleware as its default throttle-code classifier.
func IsThrottleCode(code string) bool {
	return defaultRegistry.IsThrottleCode(code)
}
