package timeouts

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestConfigureKeepsZeroFields(t *testing.T) {
	t.Cleanup(Reset)

	Configure(Config{Batch: 2 * time.Minute})

	if got := Batch(); got != 2*time.Minute {
		t.Errorf("Batch() = %v, want 2m", got)
	}
	if got := Short(); got != DefaultShort {
		t.Errorf("Short() = %v, want default %v", got, DefaultShort)
	}
}

func TestReset(t *testing.T) {
	Configure(Config{Ping: time.Minute, Long: time.Hour})
	Reset()
	if Current() != defaults() {
		t.Errorf("Current() = %+v after Reset, want defaults", Current())
	}
}

func TestWithTimeoutExpires(t *testing.T) {
	ctx, cancel := WithTimeout(context.Background(), time.Millisecond, zap.NewNop(), "test")
	defer cancel()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context did not expire")
	}
	if ctx.Err() != context.DeadlineExceeded {
		t.Errorf("ctx.Err() = %v, want DeadlineExceeded", ctx.Err())
	}
}
