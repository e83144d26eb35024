package booking

import (
	"errors"

	"lab_booking/internal/models"
)

// DefaultQueueCeiling is the maximum number of active queue entries per slot.
const DefaultQueueCeiling = 5

var (
	ErrSlotNotFound       = errors.New("slot not found")
	ErrAllocationNotFound = errors.New("allocation not found")
	ErrQueueEntryNotFound = errors.New("queue entry not found")
	ErrNotOwner           = errors.New("initiator does not own the record")
	// ErrStore marks infrastructure failures (connectivity, lock timeouts).
	// Callers may retry the whole operation.
	ErrStore = errors.New("booking store failure")
)

type Outcome int

const (
	Granted Outcome = iota + 1
	Queued
	Rejected
)

func (o Outcome) String() string {
	switch o {
	case Granted:
		return "granted"
	case Queued:
		return "queued"
	case Rejected:
		return "rejected"
	}
	return "unknown"
}

// Reason explains a rejected admission.
type Reason int

const (
	NoReason Reason = iota
	OverlappingAllocation
	AlreadyQueued
	QueueFull
)

func (r Reason) String() string {
	switch r {
	case OverlappingAllocation:
		return "OVERLAPPING_ALLOCATION"
	case AlreadyQueued:
		return "ALREADY_QUEUED"
	case QueueFull:
		return "QUEUE_FULL"
	}
	return ""
}

// Result is the outcome of an admission. Allocation is set when Granted,
// Entry when Queued and Reason when Rejected.
type Result struct {
	Outcome    Outcome
	Allocation *models.Allocation
	Entry      *models.QueueEntry
	Reason     Reason
}

func (r Result) Position() int {
	if r.Entry == nil {
		return 0
	}
	return r.Entry.PositionValue()
}

// Initiator is the already authenticated caller of Cancel and Withdraw.
type Initiator struct {
	UserID uint
	Admin  bool
}

func (i Initiator) mayActOn(ownerID uint) bool {
	return i.Admin || i.UserID == ownerID
}

// Ledger is the capacity read model of a slot.
type Ledger struct {
	Slot              models.Slot
	ActiveAllocations int
	Queue             []models.QueueEntry
}

func (l Ledger) FreeSeats() int {
	if free := l.Slot.Capacity - l.ActiveAllocations; free > 0 {
		return free
	}
	return 0
}
