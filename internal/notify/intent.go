package notify

import (
	"time"

	"github.com/google/uuid"

	"lab_booking/internal/models"
)

type Kind string

const (
	KindGranted         Kind = "granted"
	KindQueued          Kind = "queued"
	KindPositionChanged Kind = "position_changed"
	KindPromoted        Kind = "promoted"
	KindWithdrawn       Kind = "withdrawn"
	KindCancelled       Kind = "cancelled"
	KindQueueExpired    Kind = "queue_expired"
	// KindSuperseded: the head of the queue could not be promoted because the
	// requester meanwhile got an overlapping booking.
	KindSuperseded Kind = "superseded"
)

type SlotContext struct {
	SlotID    uint      `json:"slot_id"`
	LabID     uint      `json:"lab_id"`
	Title     string    `json:"title"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

func SlotContextOf(s models.Slot) SlotContext {
	return SlotContext{
		SlotID:    s.ID,
		LabID:     s.LabID,
		Title:     s.Title,
		StartTime: s.StartTime,
		EndTime:   s.EndTime,
	}
}

// Intent says that a user must be told about a booking event. How it is
// delivered is up to the sinks.
type Intent struct {
	ID          string      `json:"id"`
	RequesterID uint        `json:"requester_id"`
	Kind        Kind        `json:"kind"`
	Slot        SlotContext `json:"slot"`
	Position    *int        `json:"position,omitempty"`
	ByAdmin     bool        `json:"by_admin,omitempty"`
	At          time.Time   `json:"at"`
}

func NewIntent(kind Kind, requesterID uint, slot models.Slot) Intent {
	return Intent{
		ID:          uuid.NewString(),
		RequesterID: requesterID,
		Kind:        kind,
		Slot:        SlotContextOf(slot),
		At:          time.Now().UTC(),
	}
}

func (i Intent) WithPosition(p int) Intent {
	i.Position = &p
	return i
}

// Emitter accepts intents without blocking the caller.
type Emitter interface {
	Emit(Intent)
}

// Discard drops every intent.
type Discard struct{}

func (Discard) Emit(Intent) {}
