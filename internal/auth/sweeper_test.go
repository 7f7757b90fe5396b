package auth

import (
	"context"
	"testing"
	"time"

	"github.com/iliyamo/auth-service/internal/token"
)

const (
	testAccessSecret  = "access-secret"
	testRefreshSecret = "refresh-secret"
)

func liveCodec() *token.Codec {
	return token.New(testAccessSecret, testRefreshSecret, 15*time.Minute, 7*24*time.Hour)
}

// mintAt returns a refresh token minted as if issued at the given time.
func mintAt(t *testing.T, issued time.Time, userID uint64) string {
	t.Helper()
	c := liveCodec().WithClock(func() time.Time { return issued })
	tok, _, err := c.MintRefresh(userID)
	if err != nil {
		t.Fatalf("mint refresh: %v", err)
	}
	return tok
}

func TestSweepUserRemovesExpiredKeepsValid(t *testing.T) {
	tokens := newMemTokenStore()
	ctx := context.Background()
	now := time.Now().UTC()

	expired := mintAt(t, now.Add(-30*24*time.Hour), 1)
	valid := mintAt(t, now, 1)
	garbage := "not-even-a-token"
	_ = tokens.Append(ctx, 1, expired, now.Add(-30*24*time.Hour))
	_ = tokens.Append(ctx, 1, valid, now)
	_ = tokens.Append(ctx, 1, garbage, now)

	sw := NewSweeper(tokens, liveCodec(), 30*24*time.Hour)
	removed, err := sw.SweepUser(ctx, 1)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 removals (expired + garbage), got %d", removed)
	}
	ok, _ := tokens.Contains(ctx, 1, valid)
	if !ok {
		t.Fatal("valid token must survive the sweep")
	}
}

func TestSweepUserIdempotent(t *testing.T) {
	tokens := newMemTokenStore()
	ctx := context.Background()
	now := time.Now().UTC()
	_ = tokens.Append(ctx, 1, mintAt(t, now.Add(-30*24*time.Hour), 1), now)
	_ = tokens.Append(ctx, 1, mintAt(t, now, 1), now)

	sw := NewSweeper(tokens, liveCodec(), 30*24*time.Hour)
	first, err := sw.SweepUser(ctx, 1)
	if err != nil {
		t.Fatalf("first sweep: %v", err)
	}
	if first != 1 {
		t.Fatalf("expected 1 removal on first sweep, got %d", first)
	}
	second, err := sw.SweepUser(ctx, 1)
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if second != 0 {
		t.Fatalf("second sweep with no intervening issuance must remove nothing, got %d", second)
	}
}

func TestSweepAllAggregates(t *testing.T) {
	tokens := newMemTokenStore()
	ctx := context.Background()
	now := time.Now().UTC()
	stale := now.Add(-30 * 24 * time.Hour)
	_ = tokens.Append(ctx, 1, mintAt(t, stale, 1), stale)
	_ = tokens.Append(ctx, 1, mintAt(t, now, 1), now)
	_ = tokens.Append(ctx, 2, mintAt(t, stale, 2), stale)
	_ = tokens.Append(ctx, 3, mintAt(t, now, 3), now)

	sw := NewSweeper(tokens, liveCodec(), 30*24*time.Hour)
	removed, err := sw.SweepAll(ctx)
	if err != nil {
		t.Fatalf("global sweep: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 removals across users, got %d", removed)
	}
	if n := tokens.count(3); n != 1 {
		t.Fatalf("untouched user lost records: %d", n)
	}
}

func TestSweepAgedIgnoresValidity(t *testing.T) {
	tokens := newMemTokenStore()
	ctx := context.Background()
	now := time.Now().UTC()

	// Minted with a long enough lifetime to still verify, but created
	// before the age threshold.
	longLived := token.New(testAccessSecret, testRefreshSecret, 15*time.Minute, 365*24*time.Hour).
		WithClock(func() time.Time { return now.Add(-40 * 24 * time.Hour) })
	oldButValid, _, err := longLived.MintRefresh(1)
	if err != nil {
		t.Fatalf("mint refresh: %v", err)
	}
	if _, err := liveCodec().VerifyRefresh(oldButValid); err != nil {
		t.Fatalf("precondition: token must still verify, got %v", err)
	}
	_ = tokens.Append(ctx, 1, oldButValid, now.Add(-40*24*time.Hour))
	young := mintAt(t, now, 1)
	_ = tokens.Append(ctx, 1, young, now)

	sw := NewSweeper(tokens, liveCodec(), 30*24*time.Hour)
	removed, err := sw.SweepAged(ctx)
	if err != nil {
		t.Fatalf("age sweep: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 aged removal, got %d", removed)
	}
	if ok, _ := tokens.Contains(ctx, 1, young); !ok {
		t.Fatal("young record must be preserved")
	}
	if ok, _ := tokens.Contains(ctx, 1, oldButValid); ok {
		t.Fatal("aged record must be removed despite verifying")
	}
}

func TestSchedulerRunsAndStops(t *testing.T) {
	tokens := newMemTokenStore()
	ctx := context.Background()
	now := time.Now().UTC()
	stale := now.Add(-30 * 24 * time.Hour)
	_ = tokens.Append(ctx, 1, mintAt(t, stale, 1), stale)

	sw := NewSweeper(tokens, liveCodec(), 30*24*time.Hour)
	sched := NewScheduler(sw, time.Hour, 10*time.Millisecond)
	sched.Start(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for tokens.count(1) != 0 {
		if time.Now().After(deadline) {
			t.Fatal("scheduler never swept the stale record")
		}
		time.Sleep(5 * time.Millisecond)
	}
	sched.Stop()
}

func TestSchedulerStopWithoutStart(t *testing.T) {
	sw := NewSweeper(newMemTokenStore(), liveCodec(), 30*24*time.Hour)
	sched := NewScheduler(sw, time.Hour, time.Hour)
	// Must return immediately rather than wait for a loop that never ran.
	sched.Stop()
	sched.Stop()
}

func TestDispatcherStopWithoutStart(t *testing.T) {
	sw := NewSweeper(newMemTokenStore(), liveCodec(), 30*24*time.Hour)
	d := NewDispatcher(sw, 4)
	d.Stop()
	d.Stop()
}

func TestDispatcherSweepsEnqueuedUser(t *testing.T) {
	tokens := newMemTokenStore()
	ctx := context.Background()
	now := time.Now().UTC()
	stale := now.Add(-30 * 24 * time.Hour)
	_ = tokens.Append(ctx, 1, mintAt(t, stale, 1), stale)

	sw := NewSweeper(tokens, liveCodec(), 30*24*time.Hour)
	d := NewDispatcher(sw, 4)
	d.Start(ctx)
	d.Enqueue(1)

	deadline := time.Now().Add(2 * time.Second)
	for tokens.count(1) != 0 {
		if time.Now().After(deadline) {
			t.Fatal("dispatcher never swept the enqueued user")
		}
		time.Sleep(5 * time.Millisecond)
	}
	d.Stop()

	// Enqueue after stop must not block even with a full queue.
	for i := 0; i < 100; i++ {
		d.Enqueue(1)
	}
}
