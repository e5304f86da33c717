package dnscheck

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"
)

// scriptedLookup returns each result in sequence, then repeats the last one.
func scriptedLookup(
	results [][]string,
	errs []error,
) func(context.Context, string) ([]string, error) {
	i := 0
	return func(ctx context.Context, name string) ([]string, error) {
		idx := i
		if idx >= len(results) {
			idx = len(results) - 1
		}
		i++
		var err error
		if errs != nil && idx < len(errs) {
			err = errs[idx]
		}
		return results[idx], err
	}
}

func newTestChecker(
	maxAttempts int,
) *Checker {
	return &Checker{
		Resolver:     "192.0.2.1:53",
		InitialDelay: 0,
		PollInterval: time.Millisecond,
		MaxAttempts:  maxAttempts,
	}
}

func TestWaitForMatchFound(
	t *testing.T,
) {
	c := newTestChecker(5)
	c.LookupTXT = scriptedLookup([][]string{
		nil,
		nil,
		{"unrelated-verification-token", "expected-value"},
	}, nil)

	err := c.WaitForMatch(context.Background(), "www.example.com", "expected-value")
	if err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestWaitForMatchMismatchStops(
	t *testing.T,
) {
	lookups := 0
	c := newTestChecker(5)
	c.LookupTXT = func(ctx context.Context, name string) ([]string, error) {
		lookups++
		return []string{"some-other-value"}, nil
	}

	err := c.WaitForMatch(context.Background(), "www.example.com", "expected-value")
	if err == nil {
		t.Fatal("Expected mismatch error, got none")
	}
	if !strings.Contains(err.Error(), "does not match") {
		t.Errorf("Unexpected error: %v", err)
	}

	// A visible-but-wrong record must stop polling immediately.
	if lookups != 1 {
		t.Errorf("Expected exactly 1 lookup, got %d", lookups)
	}
}

func TestWaitForMatchBounded(
	t *testing.T,
) {
	lookups := 0
	c := newTestChecker(3)
	c.LookupTXT = func(ctx context.Context, name string) ([]string, error) {
		lookups++
		return nil, nil
	}

	err := c.WaitForMatch(context.Background(), "www.example.com", "expected-value")
	if err == nil {
		t.Fatal("Expected error after exhausting attempts, got none")
	}
	if !strings.Contains(err.Error(), "did not appear") {
		t.Errorf("Unexpected error: %v", err)
	}
	if lookups != 3 {
		t.Errorf("Expected 3 lookups, got %d", lookups)
	}
}

func TestWaitForMatchLookupError(
	t *testing.T,
) {
	c := newTestChecker(5)
	c.LookupTXT = scriptedLookup(
		[][]string{nil},
		[]error{fmt.Errorf("resolver unreachable")},
	)

	err := c.WaitForMatch(context.Background(), "www.example.com", "expected-value")
	if err == nil {
		t.Fatal("Expected lookup error, got none")
	}
}

func TestWaitForMatchCancelled(
	t *testing.T,
) {
	c := newTestChecker(1000)
	c.PollInterval = time.Hour
	c.LookupTXT = func(ctx context.Context, name string) ([]string, error) {
		return nil, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- c.WaitForMatch(ctx, "www.example.com", "expected-value")
	}()
	cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Error("Expected context error, got none")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("WaitForMatch did not return after cancellation")
	}
}
