package retry

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()

	if p.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", p.MaxAttempts)
	}
	if p.InitialBackoff != 1*time.Second {
		t.Errorf("InitialBackoff = %v, want 1s", p.InitialBackoff)
	}
	if p.MaxBackoff != 30*time.Second {
		t.Errorf("MaxBackoff = %v, want 30s", p.MaxBackoff)
	}
	if p.Unlimited() {
		t.Error("Unlimited() = true, want false")
	}
}

func TestForever(t *testing.T) {
	p := Forever(5 * time.Second)

	if !p.Unlimited() {
		t.Error("Unlimited() = false, want true")
	}
	if p.InitialBackoff != 5*time.Second || p.MaxBackoff != 5*time.Second {
		t.Errorf("backoff = %v..%v, want constant 5s", p.InitialBackoff, p.MaxBackoff)
	}
}

func fastPolicy(attempts int) Policy {
	return Policy{
		MaxAttempts:    attempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     time.Millisecond,
		Multiplier:     1,
	}
}

func TestDo(t *testing.T) {
	errTransient := errors.New("transient")
	errFatal := errors.New("fatal")

	tests := []struct {
		name         string
		policy       Policy
		failures     int
		permanent    bool
		wantErr      error
		wantAttempts int
	}{
		{
			name:         "succeeds first time",
			policy:       fastPolicy(3),
			failures:     0,
			wantAttempts: 1,
		},
		{
			name:         "succeeds after retries",
			policy:       fastPolicy(3),
			failures:     2,
			wantAttempts: 3,
		},
		{
			name:         "exhausts attempts",
			policy:       fastPolicy(3),
			failures:     10,
			wantErr:      ErrExhausted,
			wantAttempts: 3,
		},
		{
			name:         "unlimited keeps going",
			policy:       fastPolicy(0),
			failures:     7,
			wantAttempts: 8,
		},
		{
			name:         "permanent stops immediately",
			policy:       fastPolicy(0),
			failures:     10,
			permanent:    true,
			wantErr:      errFatal,
			wantAttempts: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attempts := 0
			err := Do(context.Background(), "test", tt.policy, func() error {
				attempts++
				if attempts <= tt.failures {
					if tt.permanent {
						return Permanent(errFatal)
					}
					return errTransient
				}
				return nil
			})

			if tt.wantErr == nil && err != nil {
				t.Fatalf("Do() error = %v, want nil", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("Do() error = %v, want %v", err, tt.wantErr)
			}
			if attempts != tt.wantAttempts {
				t.Errorf("attempts = %d, want %d", attempts, tt.wantAttempts)
			}
		})
	}
}

func TestDo_ExhaustedWrapsLastError(t *testing.T) {
	errLast := errors.New("still down")

	err := Do(context.Background(), "test", fastPolicy(2), func() error {
		return errLast
	})

	if !errors.Is(err, errLast) {
		t.Errorf("Do() error = %v, want it to wrap %v", err, errLast)
	}
}

func TestDo_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	err := Do(ctx, "test", Forever(50*time.Millisecond), func() error {
		attempts++
		if attempts == 2 {
			cancel()
		}
		return errors.New("unavailable")
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Do() error = %v, want context.Canceled", err)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestDo_ConstantInterval(t *testing.T) {
	interval := 20 * time.Millisecond
	attempts := 0
	start := time.Now()

	err := Do(context.Background(), "test", Forever(interval), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("not yet")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}

	if elapsed := time.Since(start); elapsed < 2*interval {
		t.Errorf("elapsed = %v, want at least %v", elapsed, 2*interval)
	}
}

func TestDo_LogsThroughContextLogger(t *testing.T) {
	var fallback bytes.Buffer
	saved := log.Logger
	log.Logger = zerolog.New(&fallback)
	t.Cleanup(func() { log.Logger = saved })

	tests := []struct {
		name       string
		attach     bool
		wantFields []string
	}{
		{
			name:       "caller logger",
			attach:     true,
			wantFields: []string{`"component":"ratelimit"`, `"client_id":"c1"`, `"operation":"test"`},
		},
		{
			name:       "no logger in context",
			wantFields: []string{`"component":"retry"`, `"operation":"test"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fallback.Reset()
			var own bytes.Buffer
			ctx := context.Background()
			out := &fallback
			if tt.attach {
				logger := zerolog.New(&own).With().Str("component", "ratelimit").Str("client_id", "c1").Logger()
				ctx = logger.WithContext(ctx)
				out = &own
			}

			attempts := 0
			err := Do(ctx, "test", fastPolicy(3), func() error {
				attempts++
				if attempts < 2 {
					return errors.New("transient")
				}
				return nil
			})
			if err != nil {
				t.Fatalf("Do() error = %v", err)
			}

			got := out.String()
			if !strings.Contains(got, "Retrying after backoff") {
				t.Fatalf("log output = %q, want a retry message", got)
			}
			for _, f := range tt.wantFields {
				if !strings.Contains(got, f) {
					t.Errorf("log output = %q, want field %s", got, f)
				}
			}
			if tt.attach && fallback.Len() != 0 {
				t.Errorf("global logger got %q, want nothing", fallback.String())
			}
		})
	}
}
