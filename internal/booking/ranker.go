package booking

import (
	"context"

	"github.com/rs/zerolog/log"

	"lab_booking/internal/metrics"
	"lab_booking/internal/models"
)

// Recompute renumbers the active queue of a slot to 1..N in creation order
// and returns how many entries moved. Running it twice writes nothing the
// second time.
func (e *Engine) Recompute(ctx context.Context, slotID uint) (int, error) {
	var (
		slot  models.Slot
		moved []models.QueueEntry
	)
	err := e.store.InTx(ctx, func(tx Tx) error {
		s, err := tx.LockSlot(slotID)
		if err != nil {
			return storeErr("lock slot", err)
		}
		if s == nil {
			return ErrSlotNotFound
		}
		slot = *s
		moved, err = e.recompute(tx, slotID)
		return err
	})
	if err != nil {
		logFailure(err, "recompute", slotID).Msg("queue recompute failed")
		return 0, err
	}
	if len(moved) > 0 {
		log.Info().Uint("slot_id", slotID).Int("moved", len(moved)).Msg("queue positions repaired")
	}
	e.emitPositions(slot, moved)
	return len(moved), nil
}

// recompute must run under the slot lock.
func (e *Engine) recompute(tx Tx, slotID uint) ([]models.QueueEntry, error) {
	entries, err := tx.ActiveQueueEntries(slotID)
	if err != nil {
		return nil, storeErr("list queue", err)
	}

	var moved []models.QueueEntry
	for i := range entries {
		want := i + 1
		if entries[i].Position != nil && *entries[i].Position == want {
			continue
		}
		if err := tx.SetQueuePosition(entries[i].ID, want); err != nil {
			return nil, storeErr("set position", err)
		}
		entries[i].Position = &want
		moved = append(moved, entries[i])
	}
	metrics.QueueRankWrites.Add(float64(len(moved)))
	return moved, nil
}

// mergeMoved keeps the latest position per entry.
func mergeMoved(acc, next []models.QueueEntry) []models.QueueEntry {
	for _, n := range next {
		replaced := false
		for i := range acc {
			if acc[i].ID == n.ID {
				acc[i] = n
				replaced = true
				break
			}
		}
		if !replaced {
			acc = append(acc, n)
		}
	}
	return acc
}
