package response

import "time"

// SuccessResponse is a plain acknowledgement.
type SuccessResponse struct {
	Message string `json:"message" example:"ok"`
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	// Machine readable error code
	// example: VALIDATION_ERROR
	Code string `json:"code"`

	// Human readable message
	// example: Invalid request body
	Message string `json:"message"`

	// Optional details
	// example: Key: 'CreateSlotRequest.Capacity' Error:Field validation for 'Capacity' failed on the 'min' tag
	Details string `json:"details,omitempty"`
}

type TokenResponse struct {
	// example: eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9...
	AccessToken string `json:"access_token"`
	// example: eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9...
	RefreshToken string `json:"refresh_token"`
}

type SlotResponse struct {
	ID        uint      `json:"id"`
	LabID     uint      `json:"lab_id"`
	Title     string    `json:"title"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Capacity  int       `json:"capacity"`
}

type AllocationResponse struct {
	ID          uint       `json:"id"`
	SlotID      uint       `json:"slot_id"`
	RequesterID uint       `json:"requester_id"`
	Status      string     `json:"status"`
	Purpose     string     `json:"purpose,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
}

type QueueEntryResponse struct {
	ID          uint       `json:"id"`
	SlotID      uint       `json:"slot_id"`
	RequesterID uint       `json:"requester_id"`
	Position    int        `json:"position,omitempty"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	ExitedAt    *time.Time `json:"exited_at,omitempty"`
}

// AdmissionResponse is returned by the booking endpoint. Exactly one of
// Allocation and Entry is set unless the request was rejected.
type AdmissionResponse struct {
	// example: queued
	Outcome    string              `json:"outcome"`
	Allocation *AllocationResponse `json:"allocation,omitempty"`
	Entry      *QueueEntryResponse `json:"queue_entry,omitempty"`
	// example: 2
	Position int `json:"position,omitempty"`
}

type Participant struct {
	UserID   uint   `json:"user_id"`
	Name     string `json:"name"`
	Surname  string `json:"surname"`
	Position int    `json:"position"`
}

// QueueStatusResponse is the ledger of a slot.
type QueueStatusResponse struct {
	Slot         SlotResponse  `json:"slot"`
	Booked       int           `json:"booked"`
	FreeSeats    int           `json:"free_seats"`
	Participants []Participant `json:"participants"`
}

type UserBookingItem struct {
	Slot       SlotResponse        `json:"slot"`
	Allocation *AllocationResponse `json:"allocation,omitempty"`
	Entry      *QueueEntryResponse `json:"queue_entry,omitempty"`
}
