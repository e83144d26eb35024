package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	gorm.Model
	Name         string `gorm:"not null"`
	Surname      string `gorm:"not null"`
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	Role         string `gorm:"not null;default:user"`
}

// Slot is a bookable interval of a lab. Managed outside the booking engine,
// which only reads it.
type Slot struct {
	gorm.Model
	LabID     uint      `gorm:"index;not null"`
	Title     string    `gorm:"not null"`
	StartTime time.Time `gorm:"index;not null"`
	EndTime   time.Time `gorm:"not null"`
	Capacity  int       `gorm:"not null;check:capacity >= 1"`
}

// Overlaps reports whether both slots belong to the same lab and their
// half-open intervals intersect.
func (s Slot) Overlaps(other Slot) bool {
	return s.LabID == other.LabID && s.StartTime.Before(other.EndTime) && s.EndTime.After(other.StartTime)
}

type AllocationStatus string

const (
	AllocationPending   AllocationStatus = "pending"
	AllocationConfirmed AllocationStatus = "confirmed"
	AllocationCancelled AllocationStatus = "cancelled"
)

// ActiveAllocationStatuses are the statuses that hold a seat.
var ActiveAllocationStatuses = []AllocationStatus{AllocationPending, AllocationConfirmed}

func (s AllocationStatus) Active() bool {
	return s == AllocationPending || s == AllocationConfirmed
}

// Allocation is a granted booking of a slot. Rows are never deleted, a
// cancellation only moves the status.
type Allocation struct {
	ID          uint             `gorm:"primarykey"`
	RequesterID uint             `gorm:"index;not null"`
	SlotID      uint             `gorm:"index;not null"`
	Slot        Slot             `gorm:"foreignKey:SlotID"`
	Status      AllocationStatus `gorm:"type:varchar(16);index;not null"`
	Purpose     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CancelledAt *time.Time
}

type QueueStatus string

const (
	QueueActive    QueueStatus = "active"
	QueueFulfilled QueueStatus = "fulfilled"
	QueueRemoved   QueueStatus = "removed"
)

type QueueEntry struct {
	ID          uint `gorm:"primarykey"`
	RequesterID uint `gorm:"not null;uniqueIndex:idx_active_queue_entry,where:status = 'active'"`
	User        User `gorm:"foreignKey:RequesterID"`
	SlotID      uint `gorm:"index;not null;uniqueIndex:idx_active_queue_entry,where:status = 'active'"`
	// Position is the 1-based rank among active entries of the slot, nil once
	// the entry is fulfilled or removed.
	Position  *int        `gorm:"index"`
	Status    QueueStatus `gorm:"type:varchar(16);index;not null"`
	CreatedAt time.Time   `gorm:"index"`
	UpdatedAt time.Time
	ExitedAt  *time.Time // set when the entry leaves the queue for any reason
}

// PositionValue returns the position or 0 when unset.
func (e QueueEntry) PositionValue() int {
	if e.Position == nil {
		return 0
	}
	return *e.Position
}
