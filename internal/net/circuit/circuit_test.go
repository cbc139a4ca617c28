package circuit

import (
	"context"
	"errors"
	"testing"
	"time"
)

func testConfig() Config {
	return Config{
		Name:             "test",
		FailureThreshold: 3,
		SuccessThreshold: 2,
		Timeout:          50 * time.Millisecond,
		RequestTimeout:   50 * time.Millisecond,
	}
}

func TestBreaker_ClosedState(t *testing.T) {
	b := NewBreaker(testConfig())

	if b.State() != StateClosed {
		t.Fatalf("breaker should start closed, got %s", b.State())
	}

	err := b.Call(context.Background(), func(ctx context.Context) error { return nil })
	if err != nil {
		t.Fatalf("successful call should not error: %v", err)
	}
	if b.State() != StateClosed {
		t.Fatalf("breaker should remain closed after success, got %s", b.State())
	}
}

func TestBreaker_OpenOnFailures(t *testing.T) {
	b := NewBreaker(testConfig())

	for i := 0; i < 3; i++ {
		err := b.Call(context.Background(), func(ctx context.Context) error {
			return errors.New("test failure")
		})
		if err == nil {
			t.Fatal("failed call should return error")
		}
	}

	if b.State() != StateOpen {
		t.Fatalf("breaker should be open after consecutive failures, got %s", b.State())
	}
}

func TestBreaker_RequestTimeout(t *testing.T) {
	b := NewBreaker(testConfig())

	err := b.Call(context.Background(), func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if !errors.Is(err, ErrRequestTimeout) {
		t.Fatalf("expected ErrRequestTimeout, got %v", err)
	}
}

func TestManager_PerProviderIsolation(t *testing.T) {
	m := NewManager(func(name string) Config {
		cfg := testConfig()
		cfg.Name = name
		return cfg
	})

	for i := 0; i < 3; i++ {
		_ = m.Call(context.Background(), "ssi", func(ctx context.Context) error {
			return errors.New("fail")
		})
	}
	if m.State("ssi") != StateOpen {
		t.Fatalf("expected ssi breaker open, got %s", m.State("ssi"))
	}
	if m.State("vnd") != StateClosed {
		t.Fatalf("unrelated provider should remain closed, got %s", m.State("vnd"))
	}
}
