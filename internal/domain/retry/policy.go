// Package retry defines backoff policies for reconnecting transports.
package retry

import (
	"math"
	"math/rand"
	"time"
)

// Policy defines a backoff strategy.
type Policy struct {
	InitialDelay    time.Duration `json:"initial_delay"`
	MaxDelay        time.Duration `json:"max_delay"`
	BackoffStrategy BackoffType   `json:"backoff_strategy"`
	JitterFactor    float64       `json:"jitter_factor"` // 0.0-1.0
}

// BackoffType identifies the backoff strategy.
type BackoffType string

const (
	BackoffFixed       BackoffType = "fixed"       // Same delay each time
	BackoffLinear      BackoffType = "linear"      // Delay increases linearly
	BackoffExponential BackoffType = "exponential" // Delay doubles each time
)

// ReconnectPolicy returns an exponential policy bounded by initial and max.
func ReconnectPolicy(initial, max time.Duration, jitter float64) Policy {
	return Policy{
		InitialDelay:    initial,
		MaxDelay:        max,
		BackoffStrategy: BackoffExponential,
		JitterFactor:    jitter,
	}
}

// DefaultPolicy returns the default reconnect policy.
func DefaultPolicy() Policy {
	return ReconnectPolicy(1*time.Second, 30*time.Second, 0.25)
}

// CalculateDelay calculates the delay for a given attempt.
func (p *Policy) CalculateDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	var delay time.Duration

	switch p.BackoffStrategy {
	case BackoffFixed:
		delay = p.InitialDelay
	case BackoffLinear:
		delay = p.InitialDelay * time.Duration(attempt)
	case BackoffExponential:
		// Cap the exponent so large attempt counts cannot overflow.
		exp := math.Min(float64(attempt-1), 32)
		delay = time.Duration(float64(p.InitialDelay) * math.Pow(2, exp))
	default:
		delay = p.InitialDelay
	}

	if p.MaxDelay > 0 && (delay > p.MaxDelay || delay < 0) {
		delay = p.MaxDelay
	}

	if p.JitterFactor > 0 {
		jitter := float64(delay) * p.JitterFactor * (rand.Float64()*2 - 1) // -jitter to +jitter
		delay = time.Duration(float64(delay) + jitter)
		if delay < 0 {
			delay = 0
		}
	}

	return delay
}

// Backoff tracks consecutive failures against a Policy.
// It is not safe for concurrent use.
type Backoff struct {
	policy  Policy
	attempt int
}

// NewBackoff creates a Backoff for the given policy.
func NewBackoff(policy Policy) *Backoff {
	return &Backoff{policy: policy}
}

// Next records a failure and returns the delay before the next attempt.
func (b *Backoff) Next() time.Duration {
	b.attempt++
	return b.policy.CalculateDelay(b.attempt)
}

// Attempt returns the number of consecutive failures recorded.
func (b *Backoff) Attempt() int {
	return b.attempt
}

// Reset clears the failure count after a successful attempt.
func (b *Backoff) Reset() {
	b.attempt = 0
}
