package trackers

import (
	"context"
	"log"
	"time"
)

// DefaultSweepInterval is how often the background sweeper evicts expired
// items when the host does not configure something else.
const DefaultSweepInterval = 120 * time.Second

// Sweep removes every item whose expiration has passed and returns the
// message IDs that were evicted. It takes the same lock as ingestion, so an
// in-flight ingestion and a concurrent expiry of the same item resolve in
// whichever order acquires the lock; the loser sees an untracked message.
func (s *TrackersService) Sweep(ctx context.Context, now time.Time) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed []string
	for messageID, item := range s.items {
		if item.IsExpired(now) {
			removed = append(removed, messageID)
		}
	}

	for _, messageID := range removed {
		log.Printf("📋 Sweeper evicting expired tracked item for message %s", messageID)
		delete(s.items, messageID)
	}

	if len(removed) > 0 {
		log.Printf("📋 Sweep removed %d expired tracked items (%d remaining)", len(removed), len(s.items))
	}
	return removed
}

// RunSweeper runs Sweep on a fixed interval until the context is cancelled.
// Intended to run on its own goroutine; a sweep that is already underway when
// shutdown begins finishes before this returns.
func (s *TrackersService) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	log.Printf("📋 Starting expiration sweeper with interval %s", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("📋 Expiration sweeper stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx, time.Now().UTC())
		}
	}
}
