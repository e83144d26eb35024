package booking

import (
	"context"

	"lab_booking/internal/models"
)

// Store is the persistence port of the engine. InTx runs fn inside one atomic
// unit of work: a non-nil error from fn rolls everything back.
type Store interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the set of reads and writes the engine performs inside a
// transaction. Lookups of single records return (nil, nil) when nothing
// matches; only infrastructure problems are returned as errors.
type Tx interface {
	// LockSlot loads the slot and serializes the caller against every other
	// transaction that locked the same slot.
	LockSlot(slotID uint) (*models.Slot, error)
	// LockRequester serializes checks that span several slots of one requester.
	// Always taken after LockSlot.
	LockRequester(requesterID uint) error
	GetSlot(slotID uint) (*models.Slot, error)

	CountActiveAllocations(slotID uint) (int, error)
	HasOverlappingAllocation(requesterID uint, slot models.Slot) (bool, error)
	GetAllocation(id uint) (*models.Allocation, error)
	CreateAllocation(a *models.Allocation) error
	SaveAllocation(a *models.Allocation) error

	GetQueueEntry(id uint) (*models.QueueEntry, error)
	FindActiveQueueEntry(requesterID, slotID uint) (*models.QueueEntry, error)
	CountActiveQueueEntries(slotID uint) (int, error)
	// ActiveQueueEntries returns active entries ordered by creation time,
	// ties broken by id.
	ActiveQueueEntries(slotID uint) ([]models.QueueEntry, error)
	// QueueHead returns the active entry at position 1.
	QueueHead(slotID uint) (*models.QueueEntry, error)
	CreateQueueEntry(e *models.QueueEntry) error
	SaveQueueEntry(e *models.QueueEntry) error
	SetQueuePosition(id uint, position int) error
}
