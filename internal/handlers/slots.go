package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"lab_booking/internal/models"
	"lab_booking/internal/response"
)

const slotsCacheTTL = 30 * time.Second

func slotsCacheKey(labID uint) string {
	return fmt.Sprintf("slots:upcoming:%d", labID)
}

type CreateSlotRequest struct {
	LabID     uint      `json:"lab_id" binding:"required"`
	Title     string    `json:"title" binding:"required"`
	StartTime time.Time `json:"start_time" binding:"required"`
	EndTime   time.Time `json:"end_time" binding:"required,gtfield=StartTime"`
	Capacity  int       `json:"capacity" binding:"required,min=1"`
}

// CreateSlot godoc
// @Summary		Create a slot
// @Description	Admin only. Creates a bookable lab slot.
// @Tags			admin
// @Accept			json
// @Produce		json
// @Param			slot	body		CreateSlotRequest	true	"Slot"
// @Security		BearerAuth
// @Success		201	{object}	response.SlotResponse
// @Failure		400	{object}	response.ErrorResponse	"VALIDATION_ERROR"
// @Failure		403	{object}	response.ErrorResponse	"FORBIDDEN"
// @Failure		500	{object}	response.ErrorResponse	"DB_ERROR"
// @Router			/api/admin/slots [post]
func (h *Handler) CreateSlot(c *gin.Context) {
	var req CreateSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Invalid slot",
			Details: err.Error(),
		})
		return
	}

	slot := models.Slot{
		LabID:     req.LabID,
		Title:     req.Title,
		StartTime: req.StartTime.UTC(),
		EndTime:   req.EndTime.UTC(),
		Capacity:  req.Capacity,
	}
	if err := h.store.CreateSlot(c.Request.Context(), &slot); err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Failed to create slot",
			Details: err.Error(),
		})
		return
	}
	h.invalidateSlots(c.Request.Context(), slot.LabID)

	log.Info().Uint("slot_id", slot.ID).Uint("lab_id", slot.LabID).Int("capacity", slot.Capacity).Msg("slot created")
	c.JSON(http.StatusCreated, slotResponse(slot))
}

// ListSlots godoc
// @Summary		Upcoming slots
// @Description	Lists slots that have not started yet. Cached in Redis for a short time.
// @Tags			slots
// @Produce		json
// @Param			lab_id	query		int	false	"Filter by lab"
// @Success		200		{array}		response.SlotResponse
// @Failure		400		{object}	response.ErrorResponse	"INVALID_LAB_ID"
// @Failure		500		{object}	response.ErrorResponse	"DB_ERROR"
// @Router			/api/slots [get]
func (h *Handler) ListSlots(c *gin.Context) {
	var labID uint
	if raw := c.Query("lab_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.ErrorResponse{Code: "INVALID_LAB_ID", Message: "Invalid lab id"})
			return
		}
		labID = uint(id)
	}

	ctx := c.Request.Context()
	cacheKey := slotsCacheKey(labID)
	if h.redis != nil {
		cached, err := h.redis.Get(ctx, cacheKey).Result()
		if err == nil && cached != "" {
			var items []response.SlotResponse
			if err := json.Unmarshal([]byte(cached), &items); err == nil {
				c.JSON(http.StatusOK, items)
				return
			}
		}
	}

	slots, err := h.store.UpcomingSlots(ctx, time.Now().UTC(), labID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Failed to load slots",
			Details: err.Error(),
		})
		return
	}
	items := make([]response.SlotResponse, 0, len(slots))
	for _, s := range slots {
		items = append(items, slotResponse(s))
	}

	if h.redis != nil {
		if data, err := json.Marshal(items); err == nil {
			if err := h.redis.Set(ctx, cacheKey, data, slotsCacheTTL).Err(); err != nil {
				log.Warn().Err(err).Str("key", cacheKey).Msg("failed to cache slots")
			}
		}
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) invalidateSlots(ctx context.Context, labID uint) {
	if h.redis == nil {
		return
	}
	if err := h.redis.Del(ctx, slotsCacheKey(0), slotsCacheKey(labID)).Err(); err != nil {
		log.Warn().Err(err).Uint("lab_id", labID).Msg("failed to invalidate slot cache")
	}
}

// QueueStatus godoc
// @Summary		Slot ledger
// @Description	Returns capacity usage and the waitlist of a slot in position order
// @Tags			slots
// @Produce		json
// @Param			id	path		int	true	"Slot ID"
// @Security		BearerAuth
// @Success		200	{object}	response.QueueStatusResponse
// @Failure		400	{object}	response.ErrorResponse	"INVALID_SLOT_ID"
// @Failure		404	{object}	response.ErrorResponse	"SLOT_NOT_FOUND"
// @Failure		500	{object}	response.ErrorResponse	"DB_ERROR"
// @Router			/api/slots/{id}/queue [get]
func (h *Handler) QueueStatus(c *gin.Context) {
	slotID, ok := pathID(c, "INVALID_SLOT_ID", "Invalid slot id")
	if !ok {
		return
	}

	ledger, err := h.engine.Ledger(c.Request.Context(), slotID)
	if err != nil {
		writeEngineError(c, err)
		return
	}

	users, err := h.store.Participants(c.Request.Context(), ledger.Queue)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Failed to load waitlist participants",
			Details: err.Error(),
		})
		return
	}

	participants := make([]response.Participant, 0, len(ledger.Queue))
	for _, entry := range ledger.Queue {
		u := users[entry.RequesterID]
		participants = append(participants, response.Participant{
			UserID:   entry.RequesterID,
			Name:     u.Name,
			Surname:  u.Surname,
			Position: entry.PositionValue(),
		})
	}

	c.JSON(http.StatusOK, response.QueueStatusResponse{
		Slot:         slotResponse(ledger.Slot),
		Booked:       ledger.ActiveAllocations,
		FreeSeats:    ledger.FreeSeats(),
		Participants: participants,
	})
}
