package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"lab_booking/internal/booking"
	"lab_booking/internal/config"
	"lab_booking/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := ConnectDatabase(config.Database{Driver: "sqlite", SQLitePath: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	return db
}

func createSlot(t *testing.T, store *BookingStore, labID uint, start time.Time, d time.Duration, capacity int) models.Slot {
	t.Helper()
	slot := models.Slot{LabID: labID, Title: "microscopy", StartTime: start, EndTime: start.Add(d), Capacity: capacity}
	require.NoError(t, store.CreateSlot(context.Background(), &slot))
	return slot
}

func TestBookingStore_AdmitQueueAndPromote(t *testing.T) {
	db := setupTestDB(t)
	store := NewBookingStore(db)
	engine := booking.NewEngine(store, nil)
	ctx := context.Background()
	start := time.Now().Add(24 * time.Hour).Truncate(time.Second)
	slot := createSlot(t, store, 1, start, 2*time.Hour, 1)

	first, err := engine.Admit(ctx, 1, slot.ID, "calibration")
	require.NoError(t, err)
	require.Equal(t, booking.Granted, first.Outcome)

	second, err := engine.Admit(ctx, 2, slot.ID, "")
	require.NoError(t, err)
	require.Equal(t, booking.Queued, second.Outcome)
	assert.Equal(t, 1, second.Position())

	third, err := engine.Admit(ctx, 3, slot.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 2, third.Position())

	again, err := engine.Admit(ctx, 1, slot.ID, "")
	require.NoError(t, err)
	assert.Equal(t, booking.OverlappingAllocation, again.Reason)

	dup, err := engine.Admit(ctx, 2, slot.ID, "")
	require.NoError(t, err)
	assert.Equal(t, booking.AlreadyQueued, dup.Reason)

	_, err = engine.Cancel(ctx, first.Allocation.ID, booking.Initiator{UserID: 1})
	require.NoError(t, err)

	var promoted models.QueueEntry
	require.NoError(t, db.First(&promoted, second.Entry.ID).Error)
	assert.Equal(t, models.QueueFulfilled, promoted.Status)
	assert.Nil(t, promoted.Position)

	var next models.QueueEntry
	require.NoError(t, db.First(&next, third.Entry.ID).Error)
	assert.Equal(t, 1, next.PositionValue())

	allocations, err := store.UserAllocations(ctx, 2)
	require.NoError(t, err)
	require.Len(t, allocations, 1)
	assert.Equal(t, slot.ID, allocations[0].Slot.ID)

	ledger, err := engine.Ledger(ctx, slot.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, ledger.ActiveAllocations)
	require.Len(t, ledger.Queue, 1)
	assert.Equal(t, uint(3), ledger.Queue[0].RequesterID)
}

func TestBookingStore_OverlapIsPerLabAndHalfOpen(t *testing.T) {
	db := setupTestDB(t)
	store := NewBookingStore(db)
	engine := booking.NewEngine(store, nil)
	ctx := context.Background()
	start := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

	morning := createSlot(t, store, 1, start, time.Hour, 3)
	noon := createSlot(t, store, 1, start.Add(time.Hour), time.Hour, 3)
	inside := createSlot(t, store, 1, start.Add(30*time.Minute), 15*time.Minute, 3)
	elsewhere := createSlot(t, store, 2, start, time.Hour, 3)

	res, err := engine.Admit(ctx, 7, morning.ID, "")
	require.NoError(t, err)
	require.Equal(t, booking.Granted, res.Outcome)

	res, err = engine.Admit(ctx, 7, noon.ID, "")
	require.NoError(t, err)
	assert.Equal(t, booking.Granted, res.Outcome)

	res, err = engine.Admit(ctx, 7, inside.ID, "")
	require.NoError(t, err)
	assert.Equal(t, booking.OverlappingAllocation, res.Reason)

	res, err = engine.Admit(ctx, 7, elsewhere.ID, "")
	require.NoError(t, err)
	assert.Equal(t, booking.Granted, res.Outcome)
}

func TestBookingStore_WithdrawAndRecompute(t *testing.T) {
	db := setupTestDB(t)
	store := NewBookingStore(db)
	engine := booking.NewEngine(store, nil)
	ctx := context.Background()
	slot := createSlot(t, store, 1, time.Now().Add(time.Hour), time.Hour, 2)

	for u := uint(1); u <= 2; u++ {
		_, err := engine.Admit(ctx, u, slot.ID, "")
		require.NoError(t, err)
	}
	u3, err := engine.Admit(ctx, 3, slot.ID, "")
	require.NoError(t, err)
	u4, err := engine.Admit(ctx, 4, slot.ID, "")
	require.NoError(t, err)

	_, err = engine.Withdraw(ctx, u3.Entry.ID, booking.Initiator{UserID: 3})
	require.NoError(t, err)

	var entry models.QueueEntry
	require.NoError(t, db.First(&entry, u4.Entry.ID).Error)
	assert.Equal(t, 1, entry.PositionValue())

	moved, err := engine.Recompute(ctx, slot.ID)
	require.NoError(t, err)
	assert.Zero(t, moved)

	ids, err := store.SlotsWithActiveQueue(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, []uint{slot.ID}, ids)

	past := time.Now()
	ids, err = store.SlotsWithActiveQueue(ctx, &past)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestBookingStore_QueueFull(t *testing.T) {
	db := setupTestDB(t)
	store := NewBookingStore(db)
	engine := booking.NewEngine(store, nil)
	ctx := context.Background()
	slot := createSlot(t, store, 1, time.Now().Add(time.Hour), time.Hour, 1)

	for u := uint(1); u <= 1+booking.DefaultQueueCeiling; u++ {
		_, err := engine.Admit(ctx, u, slot.ID, "")
		require.NoError(t, err)
	}
	res, err := engine.Admit(ctx, 99, slot.ID, "")
	require.NoError(t, err)
	assert.Equal(t, booking.QueueFull, res.Reason)

	var positions []int
	require.NoError(t, db.Model(&models.QueueEntry{}).
		Where("slot_id = ? AND status = ?", slot.ID, models.QueueActive).
		Order("position ASC").
		Pluck("position", &positions).Error)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, positions)
}

func TestBookingStore_MissingRecords(t *testing.T) {
	db := setupTestDB(t)
	engine := booking.NewEngine(NewBookingStore(db), nil)
	ctx := context.Background()

	_, err := engine.Admit(ctx, 1, 12345, "")
	assert.ErrorIs(t, err, booking.ErrSlotNotFound)

	_, err = engine.Cancel(ctx, 12345, booking.Initiator{UserID: 1})
	assert.ErrorIs(t, err, booking.ErrAllocationNotFound)

	_, err = engine.Withdraw(ctx, 12345, booking.Initiator{UserID: 1})
	assert.ErrorIs(t, err, booking.ErrQueueEntryNotFound)
}

func TestRequesterLockKey(t *testing.T) {
	assert.NotEqual(t, requesterLockKey(1), requesterLockKey(1+1<<31), "ids past int32 keep distinct locks")
	assert.NotEqual(t, requesterLockKey(7), requesterLockKey(8))
	assert.Equal(t, int64(requesterLockSpace), requesterLockKey(1<<31)>>48)
	assert.Equal(t, int64(1<<31), requesterLockKey(1<<31)&(1<<48-1))
}
