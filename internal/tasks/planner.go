package tasks

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"lab_booking/internal/booking"
)

// SlotFinder lists slots that still have people on the waitlist.
type SlotFinder interface {
	SlotsWithActiveQueue(ctx context.Context, startedBefore *time.Time) ([]uint, error)
}

// Planner runs periodic waitlist maintenance. It never promotes anyone;
// promotion only happens when a seat is released.
type Planner struct {
	engine  *booking.Engine
	slots   SlotFinder
	now     func() time.Time
	timeout time.Duration
}

func NewPlanner(engine *booking.Engine, slots SlotFinder) *Planner {
	return &Planner{engine: engine, slots: slots, now: time.Now, timeout: time.Minute}
}

// ReconcileQueues recomputes ranks of every slot with an active waitlist and
// returns how many positions were repaired.
func (p *Planner) ReconcileQueues(ctx context.Context) int {
	ids, err := p.slots.SlotsWithActiveQueue(ctx, nil)
	if err != nil {
		log.Error().Err(err).Msg("reconcile: failed to list slots with waitlist")
		return 0
	}

	repaired := 0
	for _, id := range ids {
		n, err := p.engine.Recompute(ctx, id)
		if err != nil {
			log.Error().Err(err).Uint("slot_id", id).Msg("reconcile: recompute failed")
			continue
		}
		repaired += n
	}
	if repaired > 0 {
		log.Warn().Int("slots", len(ids)).Int("repaired", repaired).Msg("reconcile: waitlist positions repaired")
	}
	return repaired
}

// ExpireStartedQueues closes the waitlists of slots that have already started.
func (p *Planner) ExpireStartedQueues(ctx context.Context) int {
	now := p.now()
	ids, err := p.slots.SlotsWithActiveQueue(ctx, &now)
	if err != nil {
		log.Error().Err(err).Msg("expire: failed to list started slots")
		return 0
	}

	expired := 0
	for _, id := range ids {
		n, err := p.engine.ExpireQueue(ctx, id)
		if err != nil {
			log.Error().Err(err).Uint("slot_id", id).Msg("expire: failed to expire waitlist")
			continue
		}
		expired += n
	}
	if expired > 0 {
		log.Info().Int("slots", len(ids)).Int("entries", expired).Msg("expire: waitlists of started slots closed")
	}
	return expired
}

func (p *Planner) job(fn func(context.Context) int) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()
		fn(ctx)
	}
}

// InitScheduler registers the maintenance jobs and starts the cron scheduler.
func (p *Planner) InitScheduler() (*cron.Cron, error) {
	c := cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))

	if _, err := c.AddFunc("0 */5 * * * *", p.job(p.ReconcileQueues)); err != nil {
		return nil, err
	}
	if _, err := c.AddFunc("30 * * * * *", p.job(p.ExpireStartedQueues)); err != nil {
		return nil, err
	}

	c.Start()
	log.Info().Int("jobs", len(c.Entries())).Msg("cron scheduler started")
	return c, nil
}
