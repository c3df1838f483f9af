package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/garyellow/picfinder-linebot-go/internal/metrics"
)

func TestNew(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		rps       float64
		wantBurst int
	}{
		{"whole rate", 50, 50},
		{"fractional rate rounds up", 2.5, 3},
		{"slow rate keeps burst of one", 0.1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			l := New("reply", tt.rps, nil)
			if l.Burst() != tt.wantBurst {
				t.Errorf("Burst() = %d, want %d", l.Burst(), tt.wantBurst)
			}
			if l.Limit() != tt.rps {
				t.Errorf("Limit() = %v, want %v", l.Limit(), tt.rps)
			}
		})
	}
}

func TestUnlimited(t *testing.T) {
	t.Parallel()
	l := New("reply", 0, nil)
	for i := range 1000 {
		if !l.Allow() {
			t.Fatalf("Allow() = false on attempt %d with limiting disabled", i+1)
		}
	}
}

func TestAllow_Exhausts(t *testing.T) {
	t.Parallel()
	l := New("reply", 2, nil)
	if !l.Allow() || !l.Allow() {
		t.Fatal("expected the initial burst to be available")
	}
	if l.Allow() {
		t.Error("Allow() = true after burst was spent")
	}
}

func TestWait(t *testing.T) {
	t.Parallel()
	m := metrics.New(prometheus.NewRegistry())
	l := New("reply", 100, m)

	if err := l.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if got := testutil.CollectAndCount(m.RateLimiterWaitDuration); got != 1 {
		t.Errorf("wait histogram series = %d, want 1", got)
	}
}

func TestWait_ContextCanceled(t *testing.T) {
	t.Parallel()
	l := New("reply", 0.01, nil)
	l.Allow()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := l.Wait(ctx)
	if err == nil {
		t.Fatal("Wait() error = nil, want error for an exhausted bucket")
	}
	if errors.Is(err, context.Canceled) {
		t.Errorf("Wait() error = %v, want deadline related error", err)
	}
}
