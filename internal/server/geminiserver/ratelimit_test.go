package geminiserver

import (
	"testing"
	"time"
)

func TestClientLimiter_Allow(t *testing.T) {
	l := newClientLimiter(1, 2)
	t0 := time.Unix(1_700_000_000, 0)

	for i := 0; i < 2; i++ {
		if _, ok := l.allow("10.0.0.1", t0); !ok {
			t.Fatalf("request %d within burst was limited", i+1)
		}
	}

	wait, ok := l.allow("10.0.0.1", t0)
	if ok {
		t.Fatal("third request should be limited")
	}
	if wait <= 0 || wait > time.Second {
		t.Errorf("wait = %v, want (0, 1s]", wait)
	}

	// Limited attempts do not consume tokens.
	if _, ok := l.allow("10.0.0.1", t0.Add(time.Second)); !ok {
		t.Error("request after refill should pass")
	}

	if _, ok := l.allow("10.0.0.2", t0); !ok {
		t.Error("other clients have their own bucket")
	}
}

func TestClientLimiter_Sweep(t *testing.T) {
	l := newClientLimiter(10, 10)
	t0 := time.Unix(1_700_000_000, 0)

	l.allow("idle", t0)
	l.allow("active", t0.Add(visitorIdleTTL))

	if n := l.sweep(t0.Add(visitorIdleTTL + time.Second)); n != 1 {
		t.Errorf("sweep() removed %d, want 1", n)
	}
	if !l.visitors.Has("active") || l.visitors.Has("idle") {
		t.Errorf("unexpected visitors after sweep: %v", l.visitors.Keys())
	}
}

func TestClientLimiter_MinimumBurst(t *testing.T) {
	l := newClientLimiter(1, 0)
	if _, ok := l.allow("x", time.Now()); !ok {
		t.Error("burst below 1 should be raised to 1")
	}
}
