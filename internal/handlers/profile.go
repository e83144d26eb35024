package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"lab_booking/internal/response"
)

// ProfileBookings godoc
// @Summary		My bookings
// @Description	Active bookings and waitlist entries of the current user
// @Tags			profile
// @Produce		json
// @Security		BearerAuth
// @Success		200	{array}		response.UserBookingItem
// @Failure		500	{object}	response.ErrorResponse	"DB_ERROR"
// @Router			/api/profile/bookings [get]
func (h *Handler) ProfileBookings(c *gin.Context) {
	ctx := c.Request.Context()
	userID := initiator(c).UserID

	allocations, err := h.store.UserAllocations(ctx, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Failed to load bookings",
			Details: err.Error(),
		})
		return
	}

	entries, err := h.store.UserQueueEntries(ctx, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Failed to load waitlist entries",
			Details: err.Error(),
		})
		return
	}

	slotIDs := make([]uint, 0, len(entries))
	for _, e := range entries {
		slotIDs = append(slotIDs, e.SlotID)
	}
	slots, err := h.store.SlotsByID(ctx, slotIDs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Failed to load slots",
			Details: err.Error(),
		})
		return
	}

	result := make([]response.UserBookingItem, 0, len(allocations)+len(entries))
	for i := range allocations {
		a := &allocations[i]
		result = append(result, response.UserBookingItem{
			Slot:       slotResponse(a.Slot),
			Allocation: allocationResponse(a),
		})
	}
	for i := range entries {
		e := &entries[i]
		slot, ok := slots[e.SlotID]
		if !ok {
			continue
		}
		result = append(result, response.UserBookingItem{
			Slot:  slotResponse(slot),
			Entry: queueEntryResponse(e),
		})
	}

	c.JSON(http.StatusOK, result)
}
