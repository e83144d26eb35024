// Package booking decides whether a slot request is granted, queued or
// rejected, and hands freed seats to the waitlist.
package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"lab_booking/internal/metrics"
	"lab_booking/internal/models"
	"lab_booking/internal/notify"
)

type Engine struct {
	store        Store
	emitter      notify.Emitter
	queueCeiling int
	now          func() time.Time
}

type Option func(*Engine)

func WithQueueCeiling(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.queueCeiling = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(store Store, emitter notify.Emitter, opts ...Option) *Engine {
	if emitter == nil {
		emitter = notify.Discard{}
	}
	e := &Engine{
		store:        store,
		emitter:      emitter,
		queueCeiling: DefaultQueueCeiling,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Admit grants a seat when the slot has capacity, otherwise queues the
// request behind the current waitlist. Precondition failures come back as a
// Rejected result, never as an error.
func (e *Engine) Admit(ctx context.Context, requesterID, slotID uint, purpose string) (Result, error) {
	started := time.Now()
	defer func() { metrics.AdmissionDuration.Observe(time.Since(started).Seconds()) }()

	var (
		res  Result
		slot models.Slot
	)
	err := e.store.InTx(ctx, func(tx Tx) error {
		res = Result{}
		s, err := tx.LockSlot(slotID)
		if err != nil {
			return storeErr("lock slot", err)
		}
		if s == nil {
			return ErrSlotNotFound
		}
		slot = *s
		if err := tx.LockRequester(requesterID); err != nil {
			return storeErr("lock requester", err)
		}

		overlap, err := tx.HasOverlappingAllocation(requesterID, slot)
		if err != nil {
			return storeErr("check overlap", err)
		}
		if overlap {
			res = rejected(OverlappingAllocation)
			return nil
		}

		existing, err := tx.FindActiveQueueEntry(requesterID, slotID)
		if err != nil {
			return storeErr("find queue entry", err)
		}
		if existing != nil {
			res = rejected(AlreadyQueued)
			return nil
		}

		active, err := tx.CountActiveAllocations(slotID)
		if err != nil {
			return storeErr("count allocations", err)
		}
		if active < slot.Capacity {
			a := &models.Allocation{
				RequesterID: requesterID,
				SlotID:      slotID,
				Status:      models.AllocationConfirmed,
				Purpose:     purpose,
			}
			if err := tx.CreateAllocation(a); err != nil {
				return storeErr("create allocation", err)
			}
			res = Result{Outcome: Granted, Allocation: a}
			return nil
		}

		queued, err := tx.CountActiveQueueEntries(slotID)
		if err != nil {
			return storeErr("count queue", err)
		}
		if queued >= e.queueCeiling {
			res = rejected(QueueFull)
			return nil
		}

		position := queued + 1
		entry := &models.QueueEntry{
			RequesterID: requesterID,
			SlotID:      slotID,
			Position:    &position,
			Status:      models.QueueActive,
		}
		if err := tx.CreateQueueEntry(entry); err != nil {
			return storeErr("create queue entry", err)
		}
		res = Result{Outcome: Queued, Entry: entry}
		return nil
	})
	if err != nil {
		logFailure(err, "admit", slotID).Uint("requester_id", requesterID).Msg("admission failed")
		return Result{}, err
	}

	metrics.AdmissionsTotal.WithLabelValues(res.Outcome.String(), res.Reason.String()).Inc()
	switch res.Outcome {
	case Granted:
		log.Debug().Uint("slot_id", slotID).Uint("requester_id", requesterID).Uint("allocation_id", res.Allocation.ID).Msg("seat granted")
		e.emitter.Emit(notify.NewIntent(notify.KindGranted, requesterID, slot))
	case Queued:
		log.Debug().Uint("slot_id", slotID).Uint("requester_id", requesterID).Int("position", res.Position()).Msg("request queued")
		e.emitter.Emit(notify.NewIntent(notify.KindQueued, requesterID, slot).WithPosition(res.Position()))
	case Rejected:
		log.Info().Uint("slot_id", slotID).Uint("requester_id", requesterID).Stringer("reason", res.Reason).Msg("admission rejected")
	}
	return res, nil
}

// Ledger reads the capacity picture of a slot without locking it.
func (e *Engine) Ledger(ctx context.Context, slotID uint) (Ledger, error) {
	var l Ledger
	err := e.store.InTx(ctx, func(tx Tx) error {
		s, err := tx.GetSlot(slotID)
		if err != nil {
			return storeErr("get slot", err)
		}
		if s == nil {
			return ErrSlotNotFound
		}
		active, err := tx.CountActiveAllocations(slotID)
		if err != nil {
			return storeErr("count allocations", err)
		}
		queue, err := tx.ActiveQueueEntries(slotID)
		if err != nil {
			return storeErr("list queue", err)
		}
		l = Ledger{Slot: *s, ActiveAllocations: active, Queue: queue}
		return nil
	})
	return l, err
}

func rejected(r Reason) Result {
	return Result{Outcome: Rejected, Reason: r}
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStore, err)
}

func (e *Engine) emitPositions(slot models.Slot, moved []models.QueueEntry) {
	for _, m := range moved {
		e.emitter.Emit(notify.NewIntent(notify.KindPositionChanged, m.RequesterID, slot).WithPosition(m.PositionValue()))
	}
}

func logFailure(err error, op string, slotID uint) *zerolog.Event {
	ev := log.Info()
	if errors.Is(err, ErrStore) {
		ev = log.Error()
	}
	return ev.Err(err).Str("op", op).Uint("slot_id", slotID)
}
