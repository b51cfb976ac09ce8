package timeouts

import (
	"context"
	"testing"
	"time"
)

func restoreDefaults(t *testing.T) {
	t.Cleanup(func() {
		mu.Lock()
		ping = DefaultPing
		short = DefaultShort
		medium = DefaultMedium
		long = DefaultLong
		mu.Unlock()
	})
}

func TestConfigureFromEnv_AppliesOverrides(t *testing.T) {
	restoreDefaults(t)
	t.Setenv("TRAILHUB_TIMEOUT_SHORT", "7s")
	t.Setenv("TRAILHUB_TIMEOUT_LONG", "90s")

	if n := ConfigureFromEnv(); n != 2 {
		t.Fatalf("ConfigureFromEnv = %d overrides, want 2", n)
	}
	if got := Short(); got != 7*time.Second {
		t.Fatalf("Short = %v, want 7s", got)
	}
	if got := Long(); got != 90*time.Second {
		t.Fatalf("Long = %v, want 90s", got)
	}
	if got := Medium(); got != DefaultMedium {
		t.Fatalf("Medium = %v, want default %v", got, DefaultMedium)
	}
}

func TestConfigureFromEnv_IgnoresInvalidValues(t *testing.T) {
	restoreDefaults(t)
	t.Setenv("TRAILHUB_TIMEOUT_PING", "not-a-duration")
	t.Setenv("TRAILHUB_TIMEOUT_MEDIUM", "-5s")

	if n := ConfigureFromEnv(); n != 0 {
		t.Fatalf("ConfigureFromEnv = %d overrides, want 0", n)
	}
	if got := Ping(); got != DefaultPing {
		t.Fatalf("Ping = %v, want default %v", got, DefaultPing)
	}
	if got := Medium(); got != DefaultMedium {
		t.Fatalf("Medium = %v, want default %v", got, DefaultMedium)
	}
}

func TestWithTimeout_CancelIsSafeAfterDeadline(t *testing.T) {
	ctx, cancel := WithTimeout(context.Background(), time.Millisecond, nil, "test op")
	<-ctx.Done()
	if ctx.Err() != context.DeadlineExceeded {
		t.Fatalf("ctx.Err = %v, want DeadlineExceeded", ctx.Err())
	}
	cancel()
}
