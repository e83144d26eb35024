package booking

import (
	"context"

	"github.com/rs/zerolog/log"

	"lab_booking/internal/models"
	"lab_booking/internal/notify"
)

// Withdraw takes an entry out of its queue. Withdrawing an entry that is no
// longer active changes nothing and returns it as stored.
func (e *Engine) Withdraw(ctx context.Context, entryID uint, by Initiator) (*models.QueueEntry, error) {
	var (
		slot    models.Slot
		entry   *models.QueueEntry
		removed bool
		moved   []models.QueueEntry
	)
	err := e.store.InTx(ctx, func(tx Tx) error {
		removed, moved = false, nil

		found, err := tx.GetQueueEntry(entryID)
		if err != nil {
			return storeErr("get queue entry", err)
		}
		if found == nil {
			return ErrQueueEntryNotFound
		}
		if !by.mayActOn(found.RequesterID) {
			return ErrNotOwner
		}
		s, err := tx.LockSlot(found.SlotID)
		if err != nil {
			return storeErr("lock slot", err)
		}
		if s == nil {
			return ErrSlotNotFound
		}
		slot = *s

		// Re-read under the slot lock; a promotion may have fulfilled it.
		entry, err = tx.GetQueueEntry(entryID)
		if err != nil {
			return storeErr("get queue entry", err)
		}
		if entry == nil {
			return ErrQueueEntryNotFound
		}
		if entry.Status != models.QueueActive {
			return nil
		}
		if err := e.retire(tx, entry, models.QueueRemoved); err != nil {
			return err
		}
		removed = true
		moved, err = e.recompute(tx, slot.ID)
		return err
	})
	if err != nil {
		logFailure(err, "withdraw", slot.ID).Uint("queue_entry_id", entryID).Msg("withdraw failed")
		return nil, err
	}

	if removed {
		byAdmin := by.Admin && by.UserID != entry.RequesterID
		log.Info().Uint("slot_id", slot.ID).Uint("queue_entry_id", entryID).Bool("by_admin", byAdmin).Msg("queue entry withdrawn")
		intent := notify.NewIntent(notify.KindWithdrawn, entry.RequesterID, slot)
		intent.ByAdmin = byAdmin
		e.emitter.Emit(intent)
		e.emitPositions(slot, moved)
	}
	return entry, nil
}

// Cancel releases an allocation and then runs promotion for its slot.
// Cancelling an already cancelled allocation skips the status change but
// still runs promotion, so retrying after a failed promotion converges.
func (e *Engine) Cancel(ctx context.Context, allocationID uint, by Initiator) (*models.Allocation, error) {
	var (
		slot      models.Slot
		alloc     *models.Allocation
		cancelled bool
	)
	err := e.store.InTx(ctx, func(tx Tx) error {
		cancelled = false

		found, err := tx.GetAllocation(allocationID)
		if err != nil {
			return storeErr("get allocation", err)
		}
		if found == nil {
			return ErrAllocationNotFound
		}
		if !by.mayActOn(found.RequesterID) {
			return ErrNotOwner
		}
		s, err := tx.LockSlot(found.SlotID)
		if err != nil {
			return storeErr("lock slot", err)
		}
		if s == nil {
			return ErrSlotNotFound
		}
		slot = *s

		alloc, err = tx.GetAllocation(allocationID)
		if err != nil {
			return storeErr("get allocation", err)
		}
		if alloc == nil {
			return ErrAllocationNotFound
		}
		if !alloc.Status.Active() {
			return nil
		}
		now := e.now()
		alloc.Status = models.AllocationCancelled
		alloc.CancelledAt = &now
		if err := tx.SaveAllocation(alloc); err != nil {
			return storeErr("save allocation", err)
		}
		cancelled = true
		return nil
	})
	if err != nil {
		logFailure(err, "cancel", slot.ID).Uint("allocation_id", allocationID).Msg("cancel failed")
		return nil, err
	}

	if cancelled {
		byAdmin := by.Admin && by.UserID != alloc.RequesterID
		log.Info().Uint("slot_id", slot.ID).Uint("allocation_id", allocationID).Bool("by_admin", byAdmin).Msg("allocation cancelled")
		intent := notify.NewIntent(notify.KindCancelled, alloc.RequesterID, slot)
		intent.ByAdmin = byAdmin
		e.emitter.Emit(intent)
	}

	if err := e.OnAllocationReleased(ctx, allocationID); err != nil {
		return alloc, err
	}
	return alloc, nil
}

// ExpireQueue removes every active entry of a slot, used once the slot has
// started and waiting is pointless. Returns the number of entries removed.
func (e *Engine) ExpireQueue(ctx context.Context, slotID uint) (int, error) {
	var (
		slot    models.Slot
		expired []models.QueueEntry
	)
	err := e.store.InTx(ctx, func(tx Tx) error {
		expired = nil
		s, err := tx.LockSlot(slotID)
		if err != nil {
			return storeErr("lock slot", err)
		}
		if s == nil {
			return ErrSlotNotFound
		}
		slot = *s
		entries, err := tx.ActiveQueueEntries(slotID)
		if err != nil {
			return storeErr("list queue", err)
		}
		for i := range entries {
			if err := e.retire(tx, &entries[i], models.QueueRemoved); err != nil {
				return err
			}
			expired = append(expired, entries[i])
		}
		return nil
	})
	if err != nil {
		logFailure(err, "expire", slotID).Msg("queue expiry failed")
		return 0, err
	}
	for _, x := range expired {
		e.emitter.Emit(notify.NewIntent(notify.KindQueueExpired, x.RequesterID, slot))
	}
	if len(expired) > 0 {
		log.Info().Uint("slot_id", slotID).Int("expired", len(expired)).Msg("queue expired")
	}
	return len(expired), nil
}
