package service

import (
	"context"
	"time"

	"card-auction-engine/internal/core/domain"
	"card-auction-engine/internal/core/ports"
	"card-auction-engine/pkg/logger"

	"github.com/rs/zerolog"
)

// sweepBatchSize bounds how many expired auctions one pass picks up.
// Leftovers are caught on the next tick.
const sweepBatchSize = 100

// Settler finalizes a single expired auction.
type Settler interface {
	SettleExpired(ctx context.Context, auction *domain.Auction) (*ports.SettlementResult, error)
}

// Sweeper periodically settles expired auctions. Multiple instances may run
// concurrently; the conditional status update inside SettleExpired makes a
// duplicate pick-up a no-op.
type Sweeper struct {
	auctionRepo ports.AuctionRepository
	settler     Settler
	clock       ports.Clock
	interval    time.Duration
	log         zerolog.Logger
}

// NewSweeper creates a Sweeper ticking at the given interval.
func NewSweeper(auctionRepo ports.AuctionRepository, settler Settler, clock ports.Clock, interval time.Duration, log zerolog.Logger) *Sweeper {
	return &Sweeper{
		auctionRepo: auctionRepo,
		settler:     settler,
		clock:       clock,
		interval:    interval,
		log:         logger.Component(log, "sweeper"),
	}
}

// Start begins the sweep loop and blocks until ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	s.log.Info().Dur("interval", s.interval).Msg("starting expiration sweeper")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("shutting down expiration sweeper")
			return
		case <-ticker.C:
			if err := s.SweepOnce(ctx); err != nil {
				s.log.Error().Err(err).Msg("sweep pass failed")
			}
		}
	}
}

// SweepOnce settles every expired auction it can see right now. Per-auction
// failures are logged and do not abort the pass.
func (s *Sweeper) SweepOnce(ctx context.Context) error {
	expired, err := s.auctionRepo.ListExpired(ctx, s.clock.Now().UTC(), sweepBatchSize)
	if err != nil {
		return err
	}
	if len(expired) == 0 {
		return nil
	}

	s.log.Debug().Int("expired_count", len(expired)).Msg("sweeping expired auctions")

	for i := range expired {
		auction := &expired[i]
		if _, err := s.settler.SettleExpired(ctx, auction); err != nil {
			s.log.Error().Err(err).
				Str("auction_id", auction.ID.String()).
				Msg("failed to settle expired auction")
			continue
		}
	}
	return nil
}
