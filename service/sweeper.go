package service

import (
	"context"
	"time"

	"luckybot/config"

	log "github.com/sirupsen/logrus"
)

// Sweeper drives the periodic background work: pulling the transfer feed
// into the deposit reconciler, expiring stale deposit orders and refunding
// expired packets. One pass runs at a time; a slow pass skips ticks instead
// of stacking.
type Sweeper struct {
	deposits   DepositService
	packets    PacketService
	source     TransferSource
	interval   time.Duration
	depositTTL time.Duration
	packetTTL  time.Duration
}

// NewSweeper creates a new sweeper
func NewSweeper(deposits DepositService, packets PacketService, source TransferSource, cfg *config.Config) *Sweeper {
	return &Sweeper{
		deposits:   deposits,
		packets:    packets,
		source:     source,
		interval:   cfg.SweepInterval,
		depositTTL: cfg.DepositExpiry,
		packetTTL:  cfg.PacketExpiry,
	}
}

// Start runs the sweep loop until the context is cancelled
func (s *Sweeper) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		log.WithField("interval", s.interval).Info("Sweeper started")
		s.runOnce(ctx)

		for {
			select {
			case <-ctx.Done():
				log.Info("Sweeper stopped")
				return
			case <-ticker.C:
				s.runOnce(ctx)
			}
		}
	}()
}

func (s *Sweeper) runOnce(ctx context.Context) {
	now := time.Now()

	if s.source != nil {
		transfers, err := s.source.Fetch(ctx)
		if err != nil {
			log.WithError(err).Warn("Failed to fetch transfer feed")
		} else if len(transfers) > 0 {
			if err := s.deposits.Reconcile(ctx, transfers); err != nil {
				log.WithError(err).Error("Failed to reconcile transfers")
			}
		}
	}

	if _, err := s.deposits.ExpireStale(ctx, now.Add(-s.depositTTL)); err != nil {
		log.WithError(err).Error("Failed to expire stale deposit orders")
	}

	if _, err := s.packets.RefundExpired(ctx, now.Add(-s.packetTTL)); err != nil {
		log.WithError(err).Error("Failed to refund expired packets")
	}
}
