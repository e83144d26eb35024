package booking

import (
	"context"

	"github.com/rs/zerolog/log"

	"lab_booking/internal/metrics"
	"lab_booking/internal/models"
	"lab_booking/internal/notify"
)

const (
	promotionPromoted     = "promoted"
	promotionEmpty        = "empty"
	promotionCapacityRace = "capacity_race"
)

// OnAllocationReleased hands the seat freed by allocationID to the head of
// the slot's queue. At most one entry is promoted per call. When another
// grant already took the seat the queue is left as is and nil is returned;
// the next release retries.
func (e *Engine) OnAllocationReleased(ctx context.Context, allocationID uint) error {
	var (
		slot       models.Slot
		result     string
		promoted   *models.Allocation
		fulfilled  *models.QueueEntry
		superseded []models.QueueEntry
		moved      []models.QueueEntry
	)
	err := e.store.InTx(ctx, func(tx Tx) error {
		result, promoted, fulfilled, superseded, moved = "", nil, nil, nil, nil

		released, err := tx.GetAllocation(allocationID)
		if err != nil {
			return storeErr("get allocation", err)
		}
		if released == nil {
			return ErrAllocationNotFound
		}
		s, err := tx.LockSlot(released.SlotID)
		if err != nil {
			return storeErr("lock slot", err)
		}
		if s == nil {
			return ErrSlotNotFound
		}
		slot = *s

		for {
			head, err := tx.QueueHead(slot.ID)
			if err != nil {
				return storeErr("queue head", err)
			}
			if head == nil {
				result = promotionEmpty
				break
			}

			active, err := tx.CountActiveAllocations(slot.ID)
			if err != nil {
				return storeErr("count allocations", err)
			}
			if active >= slot.Capacity {
				result = promotionCapacityRace
				return nil
			}

			if err := tx.LockRequester(head.RequesterID); err != nil {
				return storeErr("lock requester", err)
			}
			overlap, err := tx.HasOverlappingAllocation(head.RequesterID, slot)
			if err != nil {
				return storeErr("check overlap", err)
			}
			if overlap {
				// Promoting would give the requester two overlapping seats.
				if err := e.retire(tx, head, models.QueueRemoved); err != nil {
					return err
				}
				superseded = append(superseded, *head)
				m, err := e.recompute(tx, slot.ID)
				if err != nil {
					return err
				}
				moved = mergeMoved(moved, m)
				continue
			}

			a := &models.Allocation{
				RequesterID: head.RequesterID,
				SlotID:      slot.ID,
				Status:      models.AllocationConfirmed,
			}
			if err := tx.CreateAllocation(a); err != nil {
				return storeErr("create allocation", err)
			}
			if err := e.retire(tx, head, models.QueueFulfilled); err != nil {
				return err
			}
			m, err := e.recompute(tx, slot.ID)
			if err != nil {
				return err
			}
			moved = mergeMoved(moved, m)
			promoted, fulfilled, result = a, head, promotionPromoted
			break
		}
		return nil
	})
	if err != nil {
		logFailure(err, "promote", slot.ID).Uint("allocation_id", allocationID).Msg("promotion failed")
		return err
	}

	metrics.PromotionsTotal.WithLabelValues(result).Inc()
	for _, s := range superseded {
		log.Info().Uint("slot_id", slot.ID).Uint("requester_id", s.RequesterID).Msg("queue head superseded by overlapping booking")
		e.emitter.Emit(notify.NewIntent(notify.KindSuperseded, s.RequesterID, slot))
	}
	switch result {
	case promotionPromoted:
		log.Info().
			Uint("slot_id", slot.ID).
			Uint("requester_id", promoted.RequesterID).
			Uint("allocation_id", promoted.ID).
			Uint("queue_entry_id", fulfilled.ID).
			Msg("queue head promoted")
		e.emitter.Emit(notify.NewIntent(notify.KindPromoted, promoted.RequesterID, slot))
	case promotionCapacityRace:
		log.Debug().Uint("slot_id", slot.ID).Uint("allocation_id", allocationID).Msg("freed seat already taken, promotion deferred")
	}
	e.emitPositions(slot, moved)
	return nil
}

// retire moves an active entry out of the queue. Its position is cleared and
// never reused.
func (e *Engine) retire(tx Tx, entry *models.QueueEntry, status models.QueueStatus) error {
	now := e.now()
	entry.Status = status
	entry.Position = nil
	entry.ExitedAt = &now
	if err := tx.SaveQueueEntry(entry); err != nil {
		return storeErr("save queue entry", err)
	}
	return nil
}
