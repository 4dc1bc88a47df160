package retry_test

import (
	"testing"
	"time"

	"github.com/playarena/chat-sync/internal/domain/retry"
)

func TestPolicy_CalculateDelay(t *testing.T) {
	tests := []struct {
		name        string
		policy      retry.Policy
		attempt     int
		expectedMin time.Duration
		expectedMax time.Duration
	}{
		{
			name:        "attempt zero has no delay",
			policy:      retry.ReconnectPolicy(100*time.Millisecond, time.Second, 0),
			attempt:     0,
			expectedMin: 0,
			expectedMax: 0,
		},
		{
			name: "fixed backoff",
			policy: retry.Policy{
				BackoffStrategy: retry.BackoffFixed,
				InitialDelay:    100 * time.Millisecond,
				MaxDelay:        time.Second,
			},
			attempt:     5,
			expectedMin: 100 * time.Millisecond,
			expectedMax: 100 * time.Millisecond,
		},
		{
			name: "linear backoff - attempt 3",
			policy: retry.Policy{
				BackoffStrategy: retry.BackoffLinear,
				InitialDelay:    100 * time.Millisecond,
				MaxDelay:        time.Second,
			},
			attempt:     3,
			expectedMin: 300 * time.Millisecond,
			expectedMax: 300 * time.Millisecond,
		},
		{
			name:        "exponential backoff - attempt 3",
			policy:      retry.ReconnectPolicy(100*time.Millisecond, 10*time.Second, 0),
			attempt:     3,
			expectedMin: 400 * time.Millisecond,
			expectedMax: 400 * time.Millisecond,
		},
		{
			name:        "respects max delay",
			policy:      retry.ReconnectPolicy(100*time.Millisecond, 200*time.Millisecond, 0),
			attempt:     10,
			expectedMin: 200 * time.Millisecond,
			expectedMax: 200 * time.Millisecond,
		},
		{
			name:        "huge attempt stays capped",
			policy:      retry.ReconnectPolicy(time.Second, 30*time.Second, 0),
			attempt:     10_000,
			expectedMin: 30 * time.Second,
			expectedMax: 30 * time.Second,
		},
		{
			name:        "jitter stays within factor",
			policy:      retry.ReconnectPolicy(time.Second, 30*time.Second, 0.25),
			attempt:     1,
			expectedMin: 750 * time.Millisecond,
			expectedMax: 1250 * time.Millisecond,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.policy.CalculateDelay(tt.attempt)
			if got < tt.expectedMin || got > tt.expectedMax {
				t.Errorf("Policy.CalculateDelay() = %v, want between %v and %v", got, tt.expectedMin, tt.expectedMax)
			}
		})
	}
}

func TestDefaultPolicy(t *testing.T) {
	policy := retry.DefaultPolicy()

	if policy.BackoffStrategy != retry.BackoffExponential {
		t.Errorf("DefaultPolicy().BackoffStrategy = %v, want BackoffExponential", policy.BackoffStrategy)
	}
	if policy.InitialDelay != 1*time.Second {
		t.Errorf("DefaultPolicy().InitialDelay = %v, want 1s", policy.InitialDelay)
	}
	if policy.MaxDelay != 30*time.Second {
		t.Errorf("DefaultPolicy().MaxDelay = %v, want 30s", policy.MaxDelay)
	}
}

func TestBackoff(t *testing.T) {
	b := retry.NewBackoff(retry.ReconnectPolicy(10*time.Millisecond, 100*time.Millisecond, 0))

	want := []time.Duration{10, 20, 40, 80, 100, 100}
	for i, w := range want {
		if got := b.Next(); got != w*time.Millisecond {
			t.Errorf("Next() #%d = %v, want %v", i+1, got, w*time.Millisecond)
		}
	}
	if b.Attempt() != len(want) {
		t.Errorf("Attempt() = %d, want %d", b.Attempt(), len(want))
	}

	b.Reset()
	if b.Attempt() != 0 {
		t.Errorf("Attempt() after Reset = %d, want 0", b.Attempt())
	}
	if got := b.Next(); got != 10*time.Millisecond {
		t.Errorf("Next() after Reset = %v, want 10ms", got)
	}
}
