package probe

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAwait_ReadyImmediately(t *testing.T) {
	calls := 0
	err := Await(context.Background(), Check{
		Name:        "instant",
		Probe:       func(context.Context) bool { calls++; return true },
		Interval:    time.Hour,
		MaxAttempts: 3,
	})
	if err != nil {
		t.Fatalf("expected ready, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected a single probe evaluation, got %d", calls)
	}
}

func TestAwait_ReadyAfterRetries(t *testing.T) {
	calls := 0
	err := Await(context.Background(), Check{
		Name:        "third-time",
		Probe:       func(context.Context) bool { calls++; return calls == 3 },
		Interval:    time.Millisecond,
		MaxAttempts: 5,
	})
	if err != nil {
		t.Fatalf("expected ready, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 evaluations, got %d", calls)
	}
}

func TestAwait_BoundedTimeout(t *testing.T) {
	const attempts = 5
	const interval = 20 * time.Millisecond

	start := time.Now()
	err := Await(context.Background(), Check{
		Name:        "never",
		Probe:       func(context.Context) bool { return false },
		Interval:    interval,
		MaxAttempts: attempts,
	})
	elapsed := time.Since(start)

	if !errors.Is(err, ErrTimedOut) {
		t.Fatalf("expected ErrTimedOut, got %v", err)
	}
	// N attempts with N-1 sleeps plus probe overhead.
	if elapsed > attempts*interval+time.Second {
		t.Errorf("await exceeded its wall-clock ceiling: %v", elapsed)
	}
}

func TestAwait_CancelledBetweenAttempts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := Await(ctx, Check{
		Name:        "cancelled",
		Probe:       func(context.Context) bool { return false },
		Interval:    time.Hour,
		MaxAttempts: 10,
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestAwait_RejectsNonPositiveAttempts(t *testing.T) {
	err := Await(context.Background(), Check{
		Name:        "bad",
		Probe:       func(context.Context) bool { return true },
		MaxAttempts: 0,
	})
	if err == nil {
		t.Fatal("expected error for zero attempts")
	}
}

func TestHTTPProbe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	if ok := HTTP(nil, srv.URL+"/api/tags", http.StatusOK)(context.Background()); !ok {
		t.Error("expected probe success on 200")
	}
	if ok := HTTP(nil, srv.URL+"/missing", http.StatusOK)(context.Background()); ok {
		t.Error("expected probe failure on 404")
	}
}

func TestTCPProbe(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.Listener.Addr().String()

	if ok := TCP(addr)(context.Background()); !ok {
		t.Error("expected probe success against live listener")
	}
	srv.Close()
	if ok := TCP(addr)(context.Background()); ok {
		t.Error("expected probe failure against closed listener")
	}
}
