package service

import (
	"context"
	"log"
	"time"

	"presence-engine/internal/attendance/domain"
)

// DefaultSweepBatch bounds how many due pendings one pass loads at a time.
const DefaultSweepBatch = 100

// DuePendingLister lists active pendings of every company whose deadline passed.
type DuePendingLister interface {
	ListDuePendings(ctx context.Context, now time.Time, limit int) ([]*domain.Pending, error)
}

// Sweeper closes sessions whose countdown expired while no device was calling in.
// Heartbeats settle deadlines too; the sweeper only bounds how late that can happen.
type Sweeper struct {
	ledger *Ledger
	due    DuePendingLister
	batch  int
}

// NewSweeper returns a Sweeper. A non-positive batch uses DefaultSweepBatch.
func NewSweeper(l *Ledger, due DuePendingLister, batch int) *Sweeper {
	if batch <= 0 {
		batch = DefaultSweepBatch
	}
	return &Sweeper{ledger: l, due: due, batch: batch}
}

// RunOnce settles every pending due at the current server time and returns how many sessions
// it closed. Failures on single pendings are logged and skipped; the next pass retries them.
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	total := 0
	for {
		now := s.ledger.clock.Now()
		due, err := s.due.ListDuePendings(ctx, now, s.batch)
		if err != nil {
			return total, err
		}
		closedPage := 0
		for _, p := range due {
			if err := ctx.Err(); err != nil {
				return total + closedPage, err
			}
			closed, err := s.ledger.AutoCheckout(ctx, p)
			if err != nil {
				log.Printf("attendance: sweep pending %s session %s: %v", p.ID, p.SessionID, err)
				continue
			}
			if closed {
				closedPage++
			}
		}
		total += closedPage
		// Another page only when every row of a full page was closed; a row left behind would
		// otherwise be listed again forever.
		if len(due) < s.batch || closedPage < len(due) {
			return total, nil
		}
	}
}

// Run sweeps every interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if n, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
			log.Printf("attendance: sweep failed: %v", err)
		} else if n > 0 {
			log.Printf("attendance: sweep closed %d session(s)", n)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
