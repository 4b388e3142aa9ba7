package resilience

import "time"

// FromBreakerSettings builds a BreakerConfig from config values, keeping
// defaults for zero values.
func FromBreakerSettings(failureThreshold, cooldownSecs int) BreakerConfig {
	cfg := DefaultBreakerConfig()
	if failureThreshold > 0 {
		cfg.FailureThreshold = failureThreshold
	}
	if cooldownSecs > 0 {
		cfg.Cooldown = time.Duration(cooldownSecs) * time.Second
	}
	return cfg
}

// FromRetrySettings builds a RetryConfig from config values, keeping
// defaults for zero values.
func FromRetrySettings(attempts, backoffMs int) RetryConfig {
	cfg := DefaultRetryConfig()
	if attempts > 0 {
		cfg.Attempts = attempts
	}
	if backoffMs > 0 {
		cfg.Backoff = time.Duration(backoffMs) * time.Millisecond
	}
	return cfg
}
