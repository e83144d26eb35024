package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"lab_booking/internal/booking"
	"lab_booking/internal/response"
)

type BookRequest struct {
	Purpose string `json:"purpose" binding:"max=500"`
}

// BookSlot godoc
// @Summary		Book a slot
// @Description	Grants a seat when the slot has capacity, otherwise puts the user on the waitlist
// @Tags			bookings
// @Accept			json
// @Produce		json
// @Param			id		path		int				true	"Slot ID"
// @Param			body	body		BookRequest		false	"Booking purpose"
// @Security		BearerAuth
// @Success		201	{object}	response.AdmissionResponse	"Seat granted"
// @Success		200	{object}	response.AdmissionResponse	"Queued with position"
// @Failure		400	{object}	response.ErrorResponse	"INVALID_SLOT_ID, VALIDATION_ERROR"
// @Failure		404	{object}	response.ErrorResponse	"SLOT_NOT_FOUND"
// @Failure		409	{object}	response.ErrorResponse	"OVERLAPPING_ALLOCATION, ALREADY_QUEUED, QUEUE_FULL"
// @Failure		503	{object}	response.ErrorResponse	"STORE_UNAVAILABLE"
// @Router			/api/slots/{id}/bookings [post]
func (h *Handler) BookSlot(c *gin.Context) {
	slotID, ok := pathID(c, "INVALID_SLOT_ID", "Invalid slot id")
	if !ok {
		return
	}

	// The body is optional. Chunked requests report ContentLength -1, so an
	// empty body shows up as io.EOF from the decoder.
	var req BookRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, response.ErrorResponse{
				Code:    "VALIDATION_ERROR",
				Message: "Invalid request body",
				Details: err.Error(),
			})
			return
		}
	}

	res, err := h.engine.Admit(c.Request.Context(), initiator(c).UserID, slotID, req.Purpose)
	if err != nil {
		writeEngineError(c, err)
		return
	}

	switch res.Outcome {
	case booking.Granted:
		c.JSON(http.StatusCreated, response.AdmissionResponse{
			Outcome:    res.Outcome.String(),
			Allocation: allocationResponse(res.Allocation),
		})
	case booking.Queued:
		c.JSON(http.StatusOK, response.AdmissionResponse{
			Outcome:  res.Outcome.String(),
			Entry:    queueEntryResponse(res.Entry),
			Position: res.Position(),
		})
	default:
		c.JSON(http.StatusConflict, response.ErrorResponse{
			Code:    res.Reason.String(),
			Message: rejectionMessage(res.Reason),
		})
	}
}

func rejectionMessage(r booking.Reason) string {
	switch r {
	case booking.OverlappingAllocation:
		return "You already hold a booking that overlaps this slot"
	case booking.AlreadyQueued:
		return "You are already on the waitlist of this slot"
	case booking.QueueFull:
		return "The waitlist of this slot is full"
	}
	return "Booking rejected"
}

// CancelBooking godoc
// @Summary		Cancel a booking
// @Description	Cancels the booking and promotes the head of the waitlist into the freed seat. Admins may cancel any booking.
// @Tags			bookings
// @Produce		json
// @Param			id	path		int	true	"Booking ID"
// @Security		BearerAuth
// @Success		200	{object}	response.AllocationResponse
// @Failure		400	{object}	response.ErrorResponse	"INVALID_BOOKING_ID"
// @Failure		403	{object}	response.ErrorResponse	"NOT_OWNER"
// @Failure		404	{object}	response.ErrorResponse	"BOOKING_NOT_FOUND"
// @Failure		503	{object}	response.ErrorResponse	"STORE_UNAVAILABLE"
// @Router			/api/bookings/{id}/cancel [post]
func (h *Handler) CancelBooking(c *gin.Context) {
	id, ok := pathID(c, "INVALID_BOOKING_ID", "Invalid booking id")
	if !ok {
		return
	}
	a, err := h.engine.Cancel(c.Request.Context(), id, initiator(c))
	if err != nil {
		writeEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, allocationResponse(a))
}

// WithdrawEntry godoc
// @Summary		Leave the waitlist
// @Description	Removes the waitlist entry and moves everyone behind it up by one. Admins may remove any entry.
// @Tags			bookings
// @Produce		json
// @Param			id	path		int	true	"Waitlist entry ID"
// @Security		BearerAuth
// @Success		200	{object}	response.QueueEntryResponse
// @Failure		400	{object}	response.ErrorResponse	"INVALID_QUEUE_ENTRY_ID"
// @Failure		403	{object}	response.ErrorResponse	"NOT_OWNER"
// @Failure		404	{object}	response.ErrorResponse	"QUEUE_ENTRY_NOT_FOUND"
// @Failure		503	{object}	response.ErrorResponse	"STORE_UNAVAILABLE"
// @Router			/api/waitlist/{id}/withdraw [post]
func (h *Handler) WithdrawEntry(c *gin.Context) {
	id, ok := pathID(c, "INVALID_QUEUE_ENTRY_ID", "Invalid waitlist entry id")
	if !ok {
		return
	}
	e, err := h.engine.Withdraw(c.Request.Context(), id, initiator(c))
	if err != nil {
		writeEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, queueEntryResponse(e))
}
