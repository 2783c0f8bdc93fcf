package sweeper

import (
	"context"
	"log"
	"time"

	"enclave-chat/internal/observability"
	"enclave-chat/internal/repositories"
)

// Sweeper periodically hard-deletes message rows whose expiry passed more
// than lag ago. Readers already filter expired content on their own; this
// only keeps the table from accumulating dead rows, and the lag keeps
// recently expired records around for consistency checks.
type Sweeper struct {
	messages repositories.MessageRepository
	interval time.Duration
	lag      time.Duration
}

// New builds a sweeper over the message store.
func New(messages repositories.MessageRepository, interval, lag time.Duration) *Sweeper {
	return &Sweeper{messages: messages, interval: interval, lag: lag}
}

// Run sweeps on the interval until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	cutoff := time.Now().Add(-s.lag)
	purged, err := s.messages.PurgeExpiredBefore(ctx, cutoff)
	if err != nil {
		log.Printf("sweeper purge failed: %v", err)
		return
	}
	if purged > 0 {
		observability.AddExpiredPurged(purged)
		log.Printf("sweeper purged %d expired messages", purged)
	}
}
