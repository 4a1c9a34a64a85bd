package postgres

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"tradeflow/pkg/logger"
)

// LedgerChannel is notified by triggers on the record tables.
// The payload is the table name.
const LedgerChannel = "ledger_changed"

// ChangeHandler reacts to a burst of ledger changes. tables lists the
// distinct payloads received since the previous call.
type ChangeHandler func(ctx context.Context, tables []string)

// LedgerListener waits for NOTIFY events on LedgerChannel and invokes the
// handler once per quiet period, so a bulk import triggers one refresh.
type LedgerListener struct {
	pool    *pgxpool.Pool
	handler ChangeHandler
	quiet   time.Duration

	mu      sync.Mutex
	pending map[string]struct{}
	timer   *time.Timer
	running sync.WaitGroup
	// stopped is set by stop; later flushes and notifications are dropped.
	stopped bool
}

// NewLedgerListener creates a listener. quiet is the debounce window.
func NewLedgerListener(pool *Pool, quiet time.Duration, handler ChangeHandler) *LedgerListener {
	if quiet <= 0 {
		quiet = 5 * time.Second
	}
	l := &LedgerListener{handler: handler, quiet: quiet, pending: make(map[string]struct{})}
	if pool != nil {
		l.pool = pool.Pool
	}
	return l
}

// Run blocks until ctx is cancelled, reconnecting on errors.
func (l *LedgerListener) Run(ctx context.Context) error {
	defer l.stop()

	for {
		if ctx.Err() != nil {
			return nil
		}

		conn, err := l.pool.Acquire(ctx)
		if err != nil {
			logger.Error(ctx, "failed to acquire connection for LISTEN", "error", err)
			sleep(ctx, time.Second)
			continue
		}

		if _, err := conn.Exec(ctx, "LISTEN "+LedgerChannel); err != nil {
			logger.Error(ctx, "failed to LISTEN", "channel", LedgerChannel, "error", err)
			conn.Release()
			sleep(ctx, time.Second)
			continue
		}
		logger.Info(ctx, "listening for ledger changes", "channel", LedgerChannel)

		l.wait(ctx, conn)
		// The session still holds the LISTEN; don't return it to the pool.
		conn.Hijack().Close(context.Background())
	}
}

func (l *LedgerListener) wait(ctx context.Context, conn *pgxpool.Conn) {
	for {
		notification, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() == nil {
				logger.Warn(ctx, "ledger listener connection lost", "error", err)
			}
			return
		}
		logger.Debug(ctx, "received notification",
			"channel", notification.Channel,
			"payload", notification.Payload)
		l.Notify(ctx, notification.Payload)
	}
}

// Notify records a change and (re)arms the debounce timer.
func (l *LedgerListener) Notify(ctx context.Context, table string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped {
		return
	}

	l.pending[table] = struct{}{}
	if l.timer != nil {
		l.timer.Stop()
	}
	l.timer = time.AfterFunc(l.quiet, func() { l.flush(ctx) })
}

func (l *LedgerListener) flush(ctx context.Context) {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	tables := make([]string, 0, len(l.pending))
	for t := range l.pending {
		tables = append(tables, t)
	}
	l.pending = make(map[string]struct{})
	l.timer = nil
	l.running.Add(1)
	l.mu.Unlock()

	defer l.running.Done()
	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx, "ledger change handler panic recovered", "panic", r)
		}
	}()
	if len(tables) > 0 {
		l.handler(ctx, tables)
	}
}

// stop cancels a pending flush and waits for a running one. A timer that
// already fired but has not taken mu yet finds stopped set and returns.
func (l *LedgerListener) stop() {
	l.mu.Lock()
	l.stopped = true
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
	l.mu.Unlock()
	l.running.Wait()
}

func sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
