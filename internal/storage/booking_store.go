package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"lab_booking/internal/booking"
	"lab_booking/internal/models"
)

// requesterLockSpace occupies the top 16 bits of the single-key advisory
// lock taken per requester, so these locks never collide with other users
// of pg_advisory_xact_lock. The low 48 bits carry the requester id.
const requesterLockSpace = 7301

func requesterLockKey(requesterID uint) int64 {
	return int64(requesterLockSpace)<<48 | int64(uint64(requesterID)&(1<<48-1))
}

// BookingStore implements booking.Store on gorm. On postgres the slot row is
// locked with SELECT ... FOR UPDATE and requesters with a transaction scoped
// advisory lock.
type BookingStore struct {
	db *gorm.DB
}

func NewBookingStore(db *gorm.DB) *BookingStore {
	return &BookingStore{db: db}
}

// InTx runs fn in one transaction. Errors from fn are returned as is; failing
// to begin or commit is reported as booking.ErrStore.
func (s *BookingStore) InTx(ctx context.Context, fn func(tx booking.Tx) error) error {
	var fnErr error
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fnErr = fn(&gormTx{db: tx})
		return fnErr
	})
	if err != nil && fnErr == nil {
		return fmt.Errorf("transaction: %w: %w", booking.ErrStore, err)
	}
	return err
}

func (s *BookingStore) CreateSlot(ctx context.Context, slot *models.Slot) error {
	return s.db.WithContext(ctx).Create(slot).Error
}

// UpcomingSlots lists slots that have not started yet, optionally for one lab.
func (s *BookingStore) UpcomingSlots(ctx context.Context, from time.Time, labID uint) ([]models.Slot, error) {
	q := s.db.WithContext(ctx).Where("start_time > ?", from)
	if labID != 0 {
		q = q.Where("lab_id = ?", labID)
	}
	var slots []models.Slot
	err := q.Order("start_time ASC, id ASC").Find(&slots).Error
	return slots, err
}

// UserAllocations returns the requester's active allocations with their slots.
func (s *BookingStore) UserAllocations(ctx context.Context, userID uint) ([]models.Allocation, error) {
	var allocations []models.Allocation
	err := s.db.WithContext(ctx).
		Preload("Slot").
		Where("requester_id = ? AND status IN ?", userID, models.ActiveAllocationStatuses).
		Order("created_at ASC").
		Find(&allocations).Error
	return allocations, err
}

func (s *BookingStore) UserQueueEntries(ctx context.Context, userID uint) ([]models.QueueEntry, error) {
	var entries []models.QueueEntry
	err := s.db.WithContext(ctx).
		Where("requester_id = ? AND status = ?", userID, models.QueueActive).
		Order("created_at ASC").
		Find(&entries).Error
	return entries, err
}

func (s *BookingStore) SlotsByID(ctx context.Context, ids []uint) (map[uint]models.Slot, error) {
	out := make(map[uint]models.Slot, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var slots []models.Slot
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&slots).Error; err != nil {
		return nil, err
	}
	for _, sl := range slots {
		out[sl.ID] = sl
	}
	return out, nil
}

// Participants loads the users behind queue entries, keyed by user id.
func (s *BookingStore) Participants(ctx context.Context, entries []models.QueueEntry) (map[uint]models.User, error) {
	out := make(map[uint]models.User, len(entries))
	if len(entries) == 0 {
		return out, nil
	}
	ids := make([]uint, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.RequesterID)
	}
	var users []models.User
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

// SlotsWithActiveQueue lists slots that have at least one active queue entry.
// With startedBefore set, only slots starting at or before it are returned.
func (s *BookingStore) SlotsWithActiveQueue(ctx context.Context, startedBefore *time.Time) ([]uint, error) {
	q := s.db.WithContext(ctx).
		Model(&models.QueueEntry{}).
		Distinct("queue_entries.slot_id").
		Where("queue_entries.status = ?", models.QueueActive)
	if startedBefore != nil {
		q = q.Joins("JOIN slots ON slots.id = queue_entries.slot_id").
			Where("slots.start_time <= ?", *startedBefore)
	}
	var ids []uint
	err := q.Pluck("queue_entries.slot_id", &ids).Error
	return ids, err
}

type gormTx struct {
	db *gorm.DB
}

func (t *gormTx) LockSlot(slotID uint) (*models.Slot, error) {
	var slot models.Slot
	err := t.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&slot, slotID).Error
	return found(&slot, err)
}

func (t *gormTx) LockRequester(requesterID uint) error {
	if t.db.Dialector.Name() != "postgres" {
		return nil
	}
	return t.db.Exec("SELECT pg_advisory_xact_lock(?)", requesterLockKey(requesterID)).Error
}

func (t *gormTx) GetSlot(slotID uint) (*models.Slot, error) {
	var slot models.Slot
	err := t.db.First(&slot, slotID).Error
	return found(&slot, err)
}

func (t *gormTx) CountActiveAllocations(slotID uint) (int, error) {
	var n int64
	err := t.db.Model(&models.Allocation{}).
		Where("slot_id = ? AND status IN ?", slotID, models.ActiveAllocationStatuses).
		Count(&n).Error
	return int(n), err
}

func (t *gormTx) HasOverlappingAllocation(requesterID uint, slot models.Slot) (bool, error) {
	var n int64
	err := t.db.Model(&models.Allocation{}).
		Joins("JOIN slots ON slots.id = allocations.slot_id").
		Where("allocations.requester_id = ? AND allocations.status IN ?", requesterID, models.ActiveAllocationStatuses).
		Where("slots.lab_id = ? AND slots.start_time < ? AND slots.end_time > ?", slot.LabID, slot.EndTime, slot.StartTime).
		Count(&n).Error
	return n > 0, err
}

func (t *gormTx) GetAllocation(id uint) (*models.Allocation, error) {
	var a models.Allocation
	err := t.db.First(&a, id).Error
	return found(&a, err)
}

func (t *gormTx) CreateAllocation(a *models.Allocation) error {
	return t.db.Omit(clause.Associations).Create(a).Error
}

func (t *gormTx) SaveAllocation(a *models.Allocation) error {
	return t.db.Model(&models.Allocation{}).
		Where("id = ?", a.ID).
		Updates(map[string]interface{}{
			"status":       a.Status,
			"cancelled_at": a.CancelledAt,
			"updated_at":   time.Now(),
		}).Error
}

func (t *gormTx) GetQueueEntry(id uint) (*models.QueueEntry, error) {
	var e models.QueueEntry
	err := t.db.First(&e, id).Error
	return found(&e, err)
}

func (t *gormTx) FindActiveQueueEntry(requesterID, slotID uint) (*models.QueueEntry, error) {
	var e models.QueueEntry
	err := t.db.
		Where("requester_id = ? AND slot_id = ? AND status = ?", requesterID, slotID, models.QueueActive).
		First(&e).Error
	return found(&e, err)
}

func (t *gormTx) CountActiveQueueEntries(slotID uint) (int, error) {
	var n int64
	err := t.db.Model(&models.QueueEntry{}).
		Where("slot_id = ? AND status = ?", slotID, models.QueueActive).
		Count(&n).Error
	return int(n), err
}

func (t *gormTx) ActiveQueueEntries(slotID uint) ([]models.QueueEntry, error) {
	var entries []models.QueueEntry
	err := t.db.
		Where("slot_id = ? AND status = ?", slotID, models.QueueActive).
		Order("created_at ASC, id ASC").
		Find(&entries).Error
	return entries, err
}

func (t *gormTx) QueueHead(slotID uint) (*models.QueueEntry, error) {
	var e models.QueueEntry
	err := t.db.
		Where("slot_id = ? AND status = ? AND position = ?", slotID, models.QueueActive, 1).
		First(&e).Error
	return found(&e, err)
}

func (t *gormTx) CreateQueueEntry(e *models.QueueEntry) error {
	return t.db.Omit(clause.Associations).Create(e).Error
}

func (t *gormTx) SaveQueueEntry(e *models.QueueEntry) error {
	return t.db.Model(&models.QueueEntry{}).
		Where("id = ?", e.ID).
		Updates(map[string]interface{}{
			"status":     e.Status,
			"position":   e.Position,
			"exited_at":  e.ExitedAt,
			"updated_at": time.Now(),
		}).Error
}

func (t *gormTx) SetQueuePosition(id uint, position int) error {
	return t.db.Model(&models.QueueEntry{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"position":   position,
			"updated_at": time.Now(),
		}).Error
}

func found[T any](v *T, err error) (*T, error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}
