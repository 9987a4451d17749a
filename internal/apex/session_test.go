package apex

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
)

func TestSessionCache_CachesPerHostUser(t *testing.T) {
	cache := NewSessionCache()
	var logins int32
	login := func(ctx context.Context) (string, error) {
		n := atomic.AddInt32(&logins, 1)
		return fmt.Sprintf("token-%d", n), nil
	}

	first, err := cache.Token(context.Background(), "reef.local", "admin", login)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	second, err := cache.Token(context.Background(), "reef.local", "admin", login)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if first != second {
		t.Fatalf("expected cached token, got %q then %q", first, second)
	}
	if atomic.LoadInt32(&logins) != 1 {
		t.Fatalf("expected 1 login, got %d", logins)
	}
}

func TestSessionCache_SeparateKeysPerHost(t *testing.T) {
	cache := NewSessionCache()
	var logins int32
	login := func(ctx context.Context) (string, error) {
		n := atomic.AddInt32(&logins, 1)
		return fmt.Sprintf("token-%d", n), nil
	}

	a, _ := cache.Token(context.Background(), "tank-a.local", "admin", login)
	b, _ := cache.Token(context.Background(), "tank-b.local", "admin", login)
	if a == b {
		t.Fatalf("hosts must not share sessions, both got %q", a)
	}
	if atomic.LoadInt32(&logins) != 2 {
		t.Fatalf("expected 2 logins, got %d", logins)
	}
}

func TestSessionCache_SingleFlightOnMiss(t *testing.T) {
	cache := NewSessionCache()
	var logins int32
	gate := make(chan struct{})
	login := func(ctx context.Context) (string, error) {
		atomic.AddInt32(&logins, 1)
		<-gate
		return "token", nil
	}

	const callers = 8
	var wg sync.WaitGroup
	results := make([]string, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			token, err := cache.Token(context.Background(), "reef.local", "admin", login)
			if err != nil {
				t.Errorf("token: %v", err)
			}
			results[i] = token
		}(i)
	}
	close(gate)
	wg.Wait()

	if got := atomic.LoadInt32(&logins); got != 1 {
		t.Fatalf("expected a single login across %d concurrent callers, got %d", callers, got)
	}
	for i, token := range results {
		if token != "token" {
			t.Fatalf("caller %d got %q", i, token)
		}
	}
}

func TestSessionCache_FailureNotCached(t *testing.T) {
	cache := NewSessionCache()
	var logins int32
	failing := func(ctx context.Context) (string, error) {
		atomic.AddInt32(&logins, 1)
		return "", errors.New("boom")
	}
	succeeding := func(ctx context.Context) (string, error) {
		atomic.AddInt32(&logins, 1)
		return "token", nil
	}

	if _, err := cache.Token(context.Background(), "reef.local", "admin", failing); err == nil {
		t.Fatal("expected login error")
	}
	token, err := cache.Token(context.Background(), "reef.local", "admin", succeeding)
	if err != nil {
		t.Fatalf("token after failure: %v", err)
	}
	if token != "token" {
		t.Fatalf("got %q", token)
	}
	if atomic.LoadInt32(&logins) != 2 {
		t.Fatalf("expected 2 login attempts, got %d", logins)
	}
}

func TestSessionCache_Invalidate(t *testing.T) {
	cache := NewSessionCache()
	calls := 0
	login := func(ctx context.Context) (string, error) {
		calls++
		return fmt.Sprintf("token-%d", calls), nil
	}

	first, _ := cache.Token(context.Background(), "reef.local", "admin", login)
	cache.Invalidate("reef.local", "admin")
	second, _ := cache.Token(context.Background(), "reef.local", "admin", login)
	if first == second {
		t.Fatalf("expected fresh token after invalidate, got %q twice", first)
	}
}
