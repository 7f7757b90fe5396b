package auth

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/iliyamo/auth-service/internal/token"
)

// Sweeper discovers and discards refresh-token records that are no
// longer worth keeping: records whose token fails verification (natural
// expiry or corruption) and records older than a configured age
// threshold.  Sweeping is hygiene, not the security boundary; the
// membership check in Service.Refresh is what actually revokes tokens,
// so a skipped or failed sweep never loses correctness.
type Sweeper struct {
	tokens TokenStore
	codec  *token.Codec
	maxAge time.Duration
	now    func() time.Time
}

func NewSweeper(tokens TokenStore, codec *token.Codec, maxAge time.Duration) *Sweeper {
	return &Sweeper{
		tokens: tokens,
		codec:  codec,
		maxAge: maxAge,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the sweeper clock for tests.
func (sw *Sweeper) WithClock(now func() time.Time) *Sweeper {
	sw.now = now
	return sw
}

// SweepUser verifies every record in one user's list and deletes the
// invalid subset, returning the number removed.  Deletions target the
// specific row ids found invalid, so a login that appends a record while
// the sweep is running is never clobbered.  Running the sweep twice with
// no intervening issuance removes nothing on the second pass.
func (sw *Sweeper) SweepUser(ctx context.Context, userID uint64) (int, error) {
	records, err := sw.tokens.ListForUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	var invalid []uint64
	for _, rec := range records {
		if _, err := sw.codec.VerifyRefresh(rec.Token); err != nil {
			invalid = append(invalid, rec.ID)
		}
	}
	if len(invalid) == 0 {
		return 0, nil
	}
	return sw.tokens.RemoveByID(ctx, userID, invalid)
}

// SweepAll applies SweepUser to every user holding at least one record
// and returns the aggregate count.  A failure on one user is logged and
// does not stop the pass.
func (sw *Sweeper) SweepAll(ctx context.Context) (int, error) {
	users, err := sw.tokens.UsersWithTokens(ctx)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, uid := range users {
		n, err := sw.SweepUser(ctx, uid)
		if err != nil {
			log.Printf("sweeper: sweep failed for user=%d: %v", uid, err)
			continue
		}
		total += n
	}
	return total, nil
}

// SweepAged removes records older than the age threshold regardless of
// cryptographic validity.  This is the backstop against refresh
// lifetimes configured unexpectedly long.
func (sw *Sweeper) SweepAged(ctx context.Context) (int, error) {
	return sw.tokens.RemoveOlderThan(ctx, sw.now().Add(-sw.maxAge))
}

// Scheduler owns the recurring background sweep.  It is started once at
// process startup and stopped on shutdown; there is no package-level
// state.  The first run is delayed so startup traffic is not competing
// with a full table scan.
type Scheduler struct {
	sweeper      *Sweeper
	interval     time.Duration
	initialDelay time.Duration

	started  bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func NewScheduler(sweeper *Sweeper, interval, initialDelay time.Duration) *Scheduler {
	return &Scheduler{
		sweeper:      sweeper,
		interval:     interval,
		initialDelay: initialDelay,
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
}

// Start launches the sweep loop.  The loop exits when Stop is called or
// ctx is cancelled.  Overlapping runs cannot happen within one scheduler
// because runs execute serially on the loop goroutine; sweeps are
// idempotent anyway, so an externally triggered concurrent sweep is safe.
func (s *Scheduler) Start(ctx context.Context) {
	s.started = true
	go func() {
		defer close(s.done)

		select {
		case <-time.After(s.initialDelay):
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		}
		s.run(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.run(ctx)
			case <-s.stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop terminates the loop and waits for the current run to finish.
// Stop without a prior Start returns immediately.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	if !s.started {
		return
	}
	<-s.done
}

func (s *Scheduler) run(ctx context.Context) {
	swept, err := s.sweeper.SweepAll(ctx)
	if err != nil {
		log.Printf("sweeper: global sweep failed: %v", err)
	}
	aged, err := s.sweeper.SweepAged(ctx)
	if err != nil {
		log.Printf("sweeper: age sweep failed: %v", err)
	}
	if swept+aged > 0 {
		log.Printf("sweeper: removed %d invalid and %d aged refresh records", swept, aged)
	}
}

// Dispatcher funnels the per-request sweeps triggered by the access
// guard into a single background worker.  Dispatch never blocks the
// request path: when the queue is full the sweep is simply skipped, the
// next authenticated request will trigger another.
type Dispatcher struct {
	sweeper *Sweeper
	queue   chan uint64

	started  bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func NewDispatcher(sweeper *Sweeper, depth int) *Dispatcher {
	return &Dispatcher{
		sweeper: sweeper,
		queue:   make(chan uint64, depth),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start launches the worker goroutine.
func (d *Dispatcher) Start(ctx context.Context) {
	d.started = true
	go func() {
		defer close(d.done)
		for {
			select {
			case uid := <-d.queue:
				if _, err := d.sweeper.SweepUser(ctx, uid); err != nil {
					log.Printf("sweeper: request-triggered sweep failed for user=%d: %v", uid, err)
				}
			case <-d.stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop terminates the worker.  Stop without a prior Start returns
// immediately.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() { close(d.stop) })
	if !d.started {
		return
	}
	<-d.done
}

// Enqueue requests a sweep of one user's records.  It returns
// immediately; a full queue drops the request.
func (d *Dispatcher) Enqueue(userID uint64) {
	select {
	case d.queue <- userID:
	default:
	}
}
