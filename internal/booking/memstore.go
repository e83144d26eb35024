package booking

import (
	"context"
	"sort"
	"sync"
	"time"

	"lab_booking/internal/models"
)

// InMemoryStore is an in-memory implementation of the Store interface.
// It is thread-safe: one mutex is held for the whole transaction, and a
// failed transaction restores the state it started from.
type InMemoryStore struct {
	mu          sync.Mutex
	slots       map[uint]models.Slot
	allocations map[uint]models.Allocation
	entries     map[uint]models.QueueEntry
	nextID      uint
	now         func() time.Time
}

// NewInMemoryStore creates a new thread-safe, in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		slots:       make(map[uint]models.Slot),
		allocations: make(map[uint]models.Allocation),
		entries:     make(map[uint]models.QueueEntry),
		now:         time.Now,
	}
}

// AddSlot registers a slot and returns it with its assigned id.
func (s *InMemoryStore) AddSlot(slot models.Slot) models.Slot {
	s.mu.Lock()
	defer s.mu.Unlock()

	if slot.ID == 0 {
		slot.ID = s.id()
	}
	s.slots[slot.ID] = slot
	return slot
}

// Allocations returns a snapshot of all allocations of a slot ordered by id.
func (s *InMemoryStore) Allocations(slotID uint) []models.Allocation {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Allocation
	for _, a := range s.allocations {
		if a.SlotID == slotID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// QueueEntries returns a snapshot of all queue entries of a slot ordered by id.
func (s *InMemoryStore) QueueEntries(slotID uint) []models.QueueEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.QueueEntry
	for _, e := range s.entries {
		if e.SlotID == slotID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *InMemoryStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	slots, allocations, entries, nextID := cloneMap(s.slots), cloneMap(s.allocations), cloneMap(s.entries), s.nextID
	if err := fn(&memTx{s: s}); err != nil {
		s.slots, s.allocations, s.entries, s.nextID = slots, allocations, entries, nextID
		return err
	}
	return nil
}

func (s *InMemoryStore) id() uint {
	s.nextID++
	return s.nextID
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// memTx runs with InMemoryStore.mu held, so the lock methods have nothing
// left to do.
type memTx struct {
	s *InMemoryStore
}

func (t *memTx) LockSlot(slotID uint) (*models.Slot, error) {
	return t.GetSlot(slotID)
}

func (t *memTx) LockRequester(uint) error { return nil }

func (t *memTx) GetSlot(slotID uint) (*models.Slot, error) {
	slot, ok := t.s.slots[slotID]
	if !ok {
		return nil, nil
	}
	return &slot, nil
}

func (t *memTx) CountActiveAllocations(slotID uint) (int, error) {
	n := 0
	for _, a := range t.s.allocations {
		if a.SlotID == slotID && a.Status.Active() {
			n++
		}
	}
	return n, nil
}

func (t *memTx) HasOverlappingAllocation(requesterID uint, slot models.Slot) (bool, error) {
	for _, a := range t.s.allocations {
		if a.RequesterID != requesterID || !a.Status.Active() {
			continue
		}
		if other, ok := t.s.slots[a.SlotID]; ok && other.Overlaps(slot) {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) GetAllocation(id uint) (*models.Allocation, error) {
	a, ok := t.s.allocations[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (t *memTx) CreateAllocation(a *models.Allocation) error {
	a.ID = t.s.id()
	a.CreatedAt = t.s.now()
	a.UpdatedAt = a.CreatedAt
	t.s.allocations[a.ID] = *a
	return nil
}

func (t *memTx) SaveAllocation(a *models.Allocation) error {
	a.UpdatedAt = t.s.now()
	t.s.allocations[a.ID] = *a
	return nil
}

func (t *memTx) GetQueueEntry(id uint) (*models.QueueEntry, error) {
	e, ok := t.s.entries[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (t *memTx) FindActiveQueueEntry(requesterID, slotID uint) (*models.QueueEntry, error) {
	for _, e := range t.s.entries {
		if e.RequesterID == requesterID && e.SlotID == slotID && e.Status == models.QueueActive {
			return &e, nil
		}
	}
	return nil, nil
}

func (t *memTx) CountActiveQueueEntries(slotID uint) (int, error) {
	n := 0
	for _, e := range t.s.entries {
		if e.SlotID == slotID && e.Status == models.QueueActive {
			n++
		}
	}
	return n, nil
}

func (t *memTx) ActiveQueueEntries(slotID uint) ([]models.QueueEntry, error) {
	var out []models.QueueEntry
	for _, e := range t.s.entries {
		if e.SlotID == slotID && e.Status == models.QueueActive {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (t *memTx) QueueHead(slotID uint) (*models.QueueEntry, error) {
	for _, e := range t.s.entries {
		if e.SlotID == slotID && e.Status == models.QueueActive && e.PositionValue() == 1 {
			return &e, nil
		}
	}
	return nil, nil
}

func (t *memTx) CreateQueueEntry(e *models.QueueEntry) error {
	e.ID = t.s.id()
	e.CreatedAt = t.s.now()
	e.UpdatedAt = e.CreatedAt
	t.s.entries[e.ID] = *e
	return nil
}

func (t *memTx) SaveQueueEntry(e *models.QueueEntry) error {
	e.UpdatedAt = t.s.now()
	t.s.entries[e.ID] = *e
	return nil
}

func (t *memTx) SetQueuePosition(id uint, position int) error {
	e, ok := t.s.entries[id]
	if !ok {
		return ErrQueueEntryNotFound
	}
	e.Position = &position
	e.UpdatedAt = t.s.now()
	t.s.entries[id] = e
	return nil
}
