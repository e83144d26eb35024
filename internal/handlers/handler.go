package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"lab_booking/internal/auth"
	"lab_booking/internal/booking"
	"lab_booking/internal/models"
	"lab_booking/internal/response"
	"lab_booking/internal/storage"
)

// Handler serves the HTTP API. Redis is optional and only used as a cache.
type Handler struct {
	db     *gorm.DB
	store  *storage.BookingStore
	engine *booking.Engine
	tokens *auth.Tokens
	redis  *redis.Client
}

func New(db *gorm.DB, store *storage.BookingStore, engine *booking.Engine, tokens *auth.Tokens, rdb *redis.Client) *Handler {
	return &Handler{db: db, store: store, engine: engine, tokens: tokens, redis: rdb}
}

// Health godoc
// @Summary		Liveness and database check
// @Tags			system
// @Produce		json
// @Success		200	{object}	response.SuccessResponse
// @Failure		503	{object}	response.ErrorResponse	"DB_UNAVAILABLE"
// @Router			/healthz [get]
func (h *Handler) Health(c *gin.Context) {
	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, response.ErrorResponse{
			Code:    "DB_UNAVAILABLE",
			Message: "Database is not reachable",
			Details: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, response.SuccessResponse{Message: "ok"})
}

func initiator(c *gin.Context) booking.Initiator {
	return booking.Initiator{
		UserID: c.GetUint(auth.UserIDKey),
		Admin:  c.GetString(auth.RoleKey) == models.RoleAdmin,
	}
}

func pathID(c *gin.Context, code, message string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Code: code, Message: message})
		return 0, false
	}
	return uint(id), true
}

// writeEngineError maps booking errors to HTTP responses.
func writeEngineError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, booking.ErrSlotNotFound):
		c.JSON(http.StatusNotFound, response.ErrorResponse{Code: "SLOT_NOT_FOUND", Message: "Slot not found"})
	case errors.Is(err, booking.ErrAllocationNotFound):
		c.JSON(http.StatusNotFound, response.ErrorResponse{Code: "BOOKING_NOT_FOUND", Message: "Booking not found"})
	case errors.Is(err, booking.ErrQueueEntryNotFound):
		c.JSON(http.StatusNotFound, response.ErrorResponse{Code: "QUEUE_ENTRY_NOT_FOUND", Message: "Waitlist entry not found"})
	case errors.Is(err, booking.ErrNotOwner):
		c.JSON(http.StatusForbidden, response.ErrorResponse{Code: "NOT_OWNER", Message: "The record belongs to another user"})
	case errors.Is(err, booking.ErrStore):
		c.JSON(http.StatusServiceUnavailable, response.ErrorResponse{
			Code:    "STORE_UNAVAILABLE",
			Message: "Booking store is temporarily unavailable, retry the request",
		})
	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msg("unexpected booking error")
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Code: "INTERNAL_ERROR", Message: "Internal server error"})
	}
}

func slotResponse(s models.Slot) response.SlotResponse {
	return response.SlotResponse{
		ID:        s.ID,
		LabID:     s.LabID,
		Title:     s.Title,
		StartTime: s.StartTime,
		EndTime:   s.EndTime,
		Capacity:  s.Capacity,
	}
}

func allocationResponse(a *models.Allocation) *response.AllocationResponse {
	if a == nil {
		return nil
	}
	return &response.AllocationResponse{
		ID:          a.ID,
		SlotID:      a.SlotID,
		RequesterID: a.RequesterID,
		Status:      string(a.Status),
		Purpose:     a.Purpose,
		CreatedAt:   a.CreatedAt,
		CancelledAt: a.CancelledAt,
	}
}

func queueEntryResponse(e *models.QueueEntry) *response.QueueEntryResponse {
	if e == nil {
		return nil
	}
	return &response.QueueEntryResponse{
		ID:          e.ID,
		SlotID:      e.SlotID,
		RequesterID: e.RequesterID,
		Position:    e.PositionValue(),
		Status:      string(e.Status),
		CreatedAt:   e.CreatedAt,
		ExitedAt:    e.ExitedAt,
	}
}
