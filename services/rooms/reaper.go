package rooms

import (
	"context"
	"log"
	"time"
)

// Reaper periodically tears down rooms whose expiry has passed. A failed
// sweep is logged and retried on the next interval; it is never fatal to the
// process.
type Reaper struct {
	service  *Service
	interval time.Duration
}

func NewReaper(service *Service, interval time.Duration) *Reaper {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &Reaper{service: service, interval: interval}
}

// Run sweeps until the context is cancelled. Call it on its own goroutine.
func (r *Reaper) Run(ctx context.Context) {
	log.Printf("[REAPER] Expiry reaper started, interval=%s", r.interval)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[REAPER] Expiry reaper stopped")
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep runs one reap pass.
func (r *Reaper) Sweep(ctx context.Context) {
	reaped, err := r.service.CleanupExpiredRooms(ctx)
	if err != nil {
		log.Printf("[REAPER-ERROR] Sweep failed, will retry next interval: %v", err)
		return
	}
	if reaped > 0 {
		log.Printf("[REAPER] Reaped %d expired room(s)", reaped)
	}
}
