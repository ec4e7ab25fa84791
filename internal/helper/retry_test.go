// SPDX-FileCopyrightText: 2026 The hopwatch authors
//
// SPDX-License-Identifier: Apache-2.0

package helper

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetry(t *testing.T) {
	errTest := errors.New("test error")

	tests := []struct {
		name      string
		failures  int
		rc        RetryConfig
		wantCalls int
		wantErr   bool
	}{
		{
			name:      "Succeeds on first call",
			failures:  0,
			rc:        RetryConfig{Count: 3, Delay: time.Millisecond},
			wantCalls: 1,
			wantErr:   false,
		},
		{
			name:      "Succeeds after two failures",
			failures:  2,
			rc:        RetryConfig{Count: 3, Delay: time.Millisecond},
			wantCalls: 3,
			wantErr:   false,
		},
		{
			name:      "Fails when retries are exhausted",
			failures:  5,
			rc:        RetryConfig{Count: 2, Delay: time.Millisecond},
			wantCalls: 3,
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			effector := func(ctx context.Context) error {
				calls++
				if calls <= tt.failures {
					return errTest
				}
				return nil
			}

			err := Retry(effector, tt.rc)(t.Context())
			if (err != nil) != tt.wantErr {
				t.Errorf("Retry() error = %v, wantErr %v", err, tt.wantErr)
			}
			if calls != tt.wantCalls {
				t.Errorf("Retry() calls = %d, want %d", calls, tt.wantCalls)
			}
		})
	}
}

func TestRetry_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	err := Retry(func(context.Context) error {
		return errors.New("always failing")
	}, RetryConfig{Count: 3, Delay: time.Minute})(ctx)

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Retry() error = %v, want %v", err, context.Canceled)
	}
}

func Test_getExpBackoff(t *testing.T) {
	tests := []struct {
		name      string
		delay     time.Duration
		iteration int
		want      time.Duration
	}{
		{name: "First iteration", delay: time.Second, iteration: 1, want: time.Second},
		{name: "Second iteration doubles", delay: time.Second, iteration: 2, want: 2 * time.Second},
		{name: "Fourth iteration", delay: time.Second, iteration: 4, want: 8 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := getExpBackoff(tt.delay, tt.iteration); got != tt.want {
				t.Errorf("getExpBackoff() = %v, want %v", got, tt.want)
			}
		})
	}
}
