package booking

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lab_booking/internal/models"
	"lab_booking/internal/notify"
)

type recorder struct {
	mu      sync.Mutex
	intents []notify.Intent
}

func (r *recorder) Emit(in notify.Intent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.intents = append(r.intents, in)
}

func (r *recorder) kinds(requesterID uint) []notify.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []notify.Kind
	for _, in := range r.intents {
		if in.RequesterID == requesterID {
			out = append(out, in.Kind)
		}
	}
	return out
}

func (r *recorder) last(kind notify.Kind) (notify.Intent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.intents) - 1; i >= 0; i-- {
		if r.intents[i].Kind == kind {
			return r.intents[i], true
		}
	}
	return notify.Intent{}, false
}

var baseTime = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T) (*Engine, *InMemoryStore, *recorder) {
	t.Helper()
	store := NewInMemoryStore()
	rec := &recorder{}
	return NewEngine(store, rec), store, rec
}

func addSlot(store *InMemoryStore, labID uint, startHour, endHour, capacity int) models.Slot {
	return store.AddSlot(models.Slot{
		LabID:     labID,
		Title:     "lab session",
		StartTime: baseTime.Add(time.Duration(startHour) * time.Hour),
		EndTime:   baseTime.Add(time.Duration(endHour) * time.Hour),
		Capacity:  capacity,
	})
}

func admit(t *testing.T, e *Engine, requesterID, slotID uint) Result {
	t.Helper()
	res, err := e.Admit(context.Background(), requesterID, slotID, "practice")
	require.NoError(t, err)
	return res
}

func activePositions(store *InMemoryStore, slotID uint) map[uint]int {
	out := make(map[uint]int)
	for _, e := range store.QueueEntries(slotID) {
		if e.Status == models.QueueActive {
			out[e.RequesterID] = e.PositionValue()
		}
	}
	return out
}

func assertDense(t *testing.T, store *InMemoryStore, slotID uint) {
	t.Helper()
	var positions []int
	for _, p := range activePositions(store, slotID) {
		positions = append(positions, p)
	}
	sort.Ints(positions)
	for i, p := range positions {
		assert.Equal(t, i+1, p, "queue positions must be dense")
	}
}

func activeAllocations(store *InMemoryStore, slotID uint) []models.Allocation {
	var out []models.Allocation
	for _, a := range store.Allocations(slotID) {
		if a.Status.Active() {
			out = append(out, a)
		}
	}
	return out
}

func TestAdmit_CancelPromotesQueuedRequester(t *testing.T) {
	e, store, rec := newTestEngine(t)
	slot := addSlot(store, 1, 0, 2, 1)

	first := admit(t, e, 1, slot.ID)
	require.Equal(t, Granted, first.Outcome)
	assert.Equal(t, models.AllocationConfirmed, first.Allocation.Status)

	second := admit(t, e, 2, slot.ID)
	require.Equal(t, Queued, second.Outcome)
	assert.Equal(t, 1, second.Position())

	_, err := e.Cancel(context.Background(), first.Allocation.ID, Initiator{UserID: 1})
	require.NoError(t, err)

	entries := store.QueueEntries(slot.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, models.QueueFulfilled, entries[0].Status)
	assert.Nil(t, entries[0].Position)
	assert.NotNil(t, entries[0].ExitedAt)

	active := activeAllocations(store, slot.ID)
	require.Len(t, active, 1)
	assert.Equal(t, uint(2), active[0].RequesterID)
	assert.Equal(t, models.AllocationConfirmed, active[0].Status)
	assert.Empty(t, activePositions(store, slot.ID))

	assert.Equal(t, []notify.Kind{notify.KindGranted, notify.KindCancelled}, rec.kinds(1))
	assert.Equal(t, []notify.Kind{notify.KindQueued, notify.KindPromoted}, rec.kinds(2))
}

func TestWithdraw_ShiftsQueueUp(t *testing.T) {
	e, store, rec := newTestEngine(t)
	slot := addSlot(store, 1, 0, 2, 2)

	assert.Equal(t, Granted, admit(t, e, 1, slot.ID).Outcome)
	assert.Equal(t, Granted, admit(t, e, 2, slot.ID).Outcome)
	third := admit(t, e, 3, slot.ID)
	fourth := admit(t, e, 4, slot.ID)
	require.Equal(t, 1, third.Position())
	require.Equal(t, 2, fourth.Position())

	withdrawn, err := e.Withdraw(context.Background(), third.Entry.ID, Initiator{UserID: 3})
	require.NoError(t, err)
	assert.Equal(t, models.QueueRemoved, withdrawn.Status)
	assert.Nil(t, withdrawn.Position)

	assert.Equal(t, map[uint]int{4: 1}, activePositions(store, slot.ID))

	moved, ok := rec.last(notify.KindPositionChanged)
	require.True(t, ok)
	assert.Equal(t, uint(4), moved.RequesterID)
	require.NotNil(t, moved.Position)
	assert.Equal(t, 1, *moved.Position)

	w, ok := rec.last(notify.KindWithdrawn)
	require.True(t, ok)
	assert.False(t, w.ByAdmin)
}

func TestAdmit_QueueFull(t *testing.T) {
	e, store, _ := newTestEngine(t)
	slot := addSlot(store, 1, 0, 2, 1)

	require.Equal(t, Granted, admit(t, e, 100, slot.ID).Outcome)
	for u := uint(1); u <= DefaultQueueCeiling; u++ {
		res := admit(t, e, u, slot.ID)
		require.Equal(t, Queued, res.Outcome)
		assert.Equal(t, int(u), res.Position())
	}

	res := admit(t, e, 6, slot.ID)
	assert.Equal(t, Rejected, res.Outcome)
	assert.Equal(t, QueueFull, res.Reason)
	assert.Len(t, activePositions(store, slot.ID), DefaultQueueCeiling)
}

func TestAdmit_QueueCeilingOption(t *testing.T) {
	store := NewInMemoryStore()
	e := NewEngine(store, nil, WithQueueCeiling(1))
	slot := addSlot(store, 1, 0, 2, 1)

	admit(t, e, 1, slot.ID)
	assert.Equal(t, Queued, admit(t, e, 2, slot.ID).Outcome)
	assert.Equal(t, QueueFull, admit(t, e, 3, slot.ID).Reason)
}

func TestAdmit_Overlap(t *testing.T) {
	e, store, _ := newTestEngine(t)
	morning := addSlot(store, 1, 0, 2, 5)
	overlapping := addSlot(store, 1, 1, 3, 5)
	adjacent := addSlot(store, 1, 2, 4, 5)
	otherLab := addSlot(store, 2, 0, 2, 5)

	require.Equal(t, Granted, admit(t, e, 1, morning.ID).Outcome)

	tests := []struct {
		name   string
		slotID uint
		want   Outcome
		reason Reason
	}{
		{name: "same slot again", slotID: morning.ID, want: Rejected, reason: OverlappingAllocation},
		{name: "intersecting slot", slotID: overlapping.ID, want: Rejected, reason: OverlappingAllocation},
		{name: "back to back slot", slotID: adjacent.ID, want: Granted},
		{name: "other lab same time", slotID: otherLab.ID, want: Granted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := admit(t, e, 1, tt.slotID)
			assert.Equal(t, tt.want, res.Outcome)
			assert.Equal(t, tt.reason, res.Reason)
		})
	}
}

func TestAdmit_CancelledAllocationDoesNotBlock(t *testing.T) {
	e, store, _ := newTestEngine(t)
	slot := addSlot(store, 1, 0, 2, 1)

	first := admit(t, e, 1, slot.ID)
	_, err := e.Cancel(context.Background(), first.Allocation.ID, Initiator{UserID: 1})
	require.NoError(t, err)

	assert.Equal(t, Granted, admit(t, e, 1, slot.ID).Outcome)
}

func TestAdmit_AlreadyQueued(t *testing.T) {
	e, store, _ := newTestEngine(t)
	slot := addSlot(store, 1, 0, 2, 1)

	admit(t, e, 1, slot.ID)
	require.Equal(t, Queued, admit(t, e, 2, slot.ID).Outcome)

	res := admit(t, e, 2, slot.ID)
	assert.Equal(t, Rejected, res.Outcome)
	assert.Equal(t, AlreadyQueued, res.Reason)
}

func TestAdmit_SlotNotFound(t *testing.T) {
	e, _, rec := newTestEngine(t)

	_, err := e.Admit(context.Background(), 1, 42, "")
	assert.ErrorIs(t, err, ErrSlotNotFound)
	assert.False(t, errors.Is(err, ErrStore))
	assert.Empty(t, rec.intents)
}

func TestRecompute_RepairsGapsOnce(t *testing.T) {
	e, store, _ := newTestEngine(t)
	slot := addSlot(store, 1, 0, 2, 1)
	admit(t, e, 1, slot.ID)
	for u := uint(2); u <= 4; u++ {
		admit(t, e, u, slot.ID)
	}

	// Punch holes the way a crashed writer would.
	err := store.InTx(context.Background(), func(tx Tx) error {
		entries, err := tx.ActiveQueueEntries(slot.ID)
		if err != nil {
			return err
		}
		for i, en := range entries {
			if err := tx.SetQueuePosition(en.ID, (i+1)*10); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	moved, err := e.Recompute(context.Background(), slot.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, moved)
	assert.Equal(t, map[uint]int{2: 1, 3: 2, 4: 3}, activePositions(store, slot.ID))

	moved, err = e.Recompute(context.Background(), slot.ID)
	require.NoError(t, err)
	assert.Zero(t, moved)
}

func TestRecompute_EmptyQueue(t *testing.T) {
	e, store, _ := newTestEngine(t)
	slot := addSlot(store, 1, 0, 2, 1)

	moved, err := e.Recompute(context.Background(), slot.ID)
	require.NoError(t, err)
	assert.Zero(t, moved)

	_, err = e.Recompute(context.Background(), 999)
	assert.ErrorIs(t, err, ErrSlotNotFound)
}

func TestPromotion_SeatTakenByConcurrentGrant(t *testing.T) {
	e, store, _ := newTestEngine(t)
	slot := addSlot(store, 1, 0, 2, 1)
	first := admit(t, e, 1, slot.ID)
	admit(t, e, 2, slot.ID)

	// Release the seat and let someone else take it before promotion runs.
	err := store.InTx(context.Background(), func(tx Tx) error {
		a, err := tx.GetAllocation(first.Allocation.ID)
		if err != nil {
			return err
		}
		a.Status = models.AllocationCancelled
		if err := tx.SaveAllocation(a); err != nil {
			return err
		}
		return tx.CreateAllocation(&models.Allocation{RequesterID: 3, SlotID: slot.ID, Status: models.AllocationConfirmed})
	})
	require.NoError(t, err)

	require.NoError(t, e.OnAllocationReleased(context.Background(), first.Allocation.ID))

	assert.Equal(t, map[uint]int{2: 1}, activePositions(store, slot.ID))
	require.Len(t, activeAllocations(store, slot.ID), 1)
	assert.Equal(t, uint(3), activeAllocations(store, slot.ID)[0].RequesterID)
}

func TestPromotion_EmptyQueueIsNoop(t *testing.T) {
	e, store, rec := newTestEngine(t)
	slot := addSlot(store, 1, 0, 2, 1)
	first := admit(t, e, 1, slot.ID)

	_, err := e.Cancel(context.Background(), first.Allocation.ID, Initiator{UserID: 1})
	require.NoError(t, err)

	assert.Empty(t, activeAllocations(store, slot.ID))
	_, promoted := rec.last(notify.KindPromoted)
	assert.False(t, promoted)
}

func TestPromotion_SkipsHeadWithOverlappingBooking(t *testing.T) {
	e, store, rec := newTestEngine(t)
	slot := addSlot(store, 1, 0, 2, 1)
	parallel := addSlot(store, 1, 1, 3, 1)

	holder := admit(t, e, 1, slot.ID)
	admit(t, e, 2, slot.ID)
	admit(t, e, 3, slot.ID)
	// Requester 2 books an overlapping slot while still waiting.
	require.Equal(t, Granted, admit(t, e, 2, parallel.ID).Outcome)

	_, err := e.Cancel(context.Background(), holder.Allocation.ID, Initiator{UserID: 1})
	require.NoError(t, err)

	active := activeAllocations(store, slot.ID)
	require.Len(t, active, 1)
	assert.Equal(t, uint(3), active[0].RequesterID)
	assert.Empty(t, activePositions(store, slot.ID))

	skipped, ok := rec.last(notify.KindSuperseded)
	require.True(t, ok)
	assert.Equal(t, uint(2), skipped.RequesterID)
}

func TestCancel_Rules(t *testing.T) {
	e, store, rec := newTestEngine(t)
	slot := addSlot(store, 1, 0, 2, 1)
	first := admit(t, e, 1, slot.ID)
	admit(t, e, 2, slot.ID)

	_, err := e.Cancel(context.Background(), first.Allocation.ID, Initiator{UserID: 2})
	assert.ErrorIs(t, err, ErrNotOwner)

	_, err = e.Cancel(context.Background(), 999, Initiator{UserID: 1})
	assert.ErrorIs(t, err, ErrAllocationNotFound)

	cancelled, err := e.Cancel(context.Background(), first.Allocation.ID, Initiator{UserID: 50, Admin: true})
	require.NoError(t, err)
	assert.Equal(t, models.AllocationCancelled, cancelled.Status)
	assert.NotNil(t, cancelled.CancelledAt)

	c, ok := rec.last(notify.KindCancelled)
	require.True(t, ok)
	assert.True(t, c.ByAdmin)

	// A second cancel changes nothing and promotes nobody else.
	_, err = e.Cancel(context.Background(), first.Allocation.ID, Initiator{UserID: 1})
	require.NoError(t, err)
	assert.Len(t, activeAllocations(store, slot.ID), 1)
	assert.Len(t, store.Allocations(slot.ID), 2)
}

func TestWithdraw_Rules(t *testing.T) {
	e, store, rec := newTestEngine(t)
	slot := addSlot(store, 1, 0, 2, 1)
	admit(t, e, 1, slot.ID)
	queued := admit(t, e, 2, slot.ID)

	_, err := e.Withdraw(context.Background(), queued.Entry.ID, Initiator{UserID: 3})
	assert.ErrorIs(t, err, ErrNotOwner)

	_, err = e.Withdraw(context.Background(), 999, Initiator{UserID: 2})
	assert.ErrorIs(t, err, ErrQueueEntryNotFound)

	_, err = e.Withdraw(context.Background(), queued.Entry.ID, Initiator{UserID: 9, Admin: true})
	require.NoError(t, err)
	w, ok := rec.last(notify.KindWithdrawn)
	require.True(t, ok)
	assert.True(t, w.ByAdmin)

	again, err := e.Withdraw(context.Background(), queued.Entry.ID, Initiator{UserID: 2})
	require.NoError(t, err)
	assert.Equal(t, models.QueueRemoved, again.Status)
	assert.Len(t, rec.kinds(2), 2, "second withdraw must not notify again")
}

func TestExpireQueue(t *testing.T) {
	e, store, rec := newTestEngine(t)
	slot := addSlot(store, 1, 0, 2, 1)
	admit(t, e, 1, slot.ID)
	admit(t, e, 2, slot.ID)
	admit(t, e, 3, slot.ID)

	n, err := e.ExpireQueue(context.Background(), slot.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Empty(t, activePositions(store, slot.ID))
	assert.Contains(t, rec.kinds(3), notify.KindQueueExpired)
}

func TestLedger(t *testing.T) {
	e, store, _ := newTestEngine(t)
	slot := addSlot(store, 1, 0, 2, 2)
	admit(t, e, 1, slot.ID)

	l, err := e.Ledger(context.Background(), slot.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, l.ActiveAllocations)
	assert.Equal(t, 1, l.FreeSeats())
	assert.Empty(t, l.Queue)

	admit(t, e, 2, slot.ID)
	admit(t, e, 3, slot.ID)
	l, err = e.Ledger(context.Background(), slot.ID)
	require.NoError(t, err)
	assert.Zero(t, l.FreeSeats())
	require.Len(t, l.Queue, 1)
	assert.Equal(t, uint(3), l.Queue[0].RequesterID)
}

func TestInMemoryStore_RollsBackFailedTx(t *testing.T) {
	store := NewInMemoryStore()
	slot := addSlot(store, 1, 0, 2, 1)
	boom := errors.New("boom")

	err := store.InTx(context.Background(), func(tx Tx) error {
		if err := tx.CreateAllocation(&models.Allocation{RequesterID: 1, SlotID: slot.ID, Status: models.AllocationConfirmed}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, store.Allocations(slot.ID))
}

func TestAdmit_ConcurrentNeverOversells(t *testing.T) {
	e, store, _ := newTestEngine(t)
	slot := addSlot(store, 1, 0, 2, 3)

	const requesters = 40
	results := make([]Result, requesters)
	var wg sync.WaitGroup
	for i := 0; i < requesters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := e.Admit(context.Background(), uint(i+1), slot.ID, "")
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}
	wg.Wait()

	counts := map[Outcome]int{}
	for _, r := range results {
		counts[r.Outcome]++
		if r.Outcome == Rejected {
			assert.Equal(t, QueueFull, r.Reason)
		}
	}
	assert.Equal(t, 3, counts[Granted])
	assert.Equal(t, DefaultQueueCeiling, counts[Queued])
	assert.Equal(t, requesters-3-DefaultQueueCeiling, counts[Rejected])
	assert.Len(t, activeAllocations(store, slot.ID), 3)
	assertDense(t, store, slot.ID)
}

func TestCancel_ConcurrentReleasesPromoteExactlyOnceEach(t *testing.T) {
	e, store, _ := newTestEngine(t)
	slot := addSlot(store, 1, 0, 2, 2)

	a := admit(t, e, 1, slot.ID)
	b := admit(t, e, 2, slot.ID)
	for u := uint(3); u <= 7; u++ {
		require.Equal(t, Queued, admit(t, e, u, slot.ID).Outcome)
	}

	var wg sync.WaitGroup
	for _, r := range []Result{a, b} {
		wg.Add(1)
		go func(r Result) {
			defer wg.Done()
			_, err := e.Cancel(context.Background(), r.Allocation.ID, Initiator{UserID: r.Allocation.RequesterID})
			assert.NoError(t, err)
		}(r)
	}
	wg.Wait()

	active := activeAllocations(store, slot.ID)
	require.Len(t, active, 2)
	holders := []uint{active[0].RequesterID, active[1].RequesterID}
	assert.ElementsMatch(t, []uint{3, 4}, holders)

	fulfilled := 0
	for _, en := range store.QueueEntries(slot.ID) {
		if en.Status == models.QueueFulfilled {
			fulfilled++
		}
	}
	assert.Equal(t, 2, fulfilled)
	assert.Equal(t, map[uint]int{5: 1, 6: 2, 7: 3}, activePositions(store, slot.ID))
}
