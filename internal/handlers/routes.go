package handlers

import (
	"github.com/gin-gonic/gin"

	"lab_booking/internal/auth"
	"lab_booking/internal/models"
	"lab_booking/internal/ws"
)

// Routes mounts the API. authMW authenticates the caller, limit throttles
// booking writes; both are injected so tests can swap them.
func (h *Handler) Routes(r *gin.Engine, authMW, limit gin.HandlerFunc, hub *ws.Hub) {
	r.GET("/healthz", h.Health)

	authGroup := r.Group("/auth")
	{
		authGroup.POST("/register", h.Register)
		authGroup.POST("/login", h.Login)
		authGroup.POST("/refresh", h.RefreshToken)
	}

	r.GET("/api/slots", h.ListSlots)
	r.GET("/api/slots/:id/ws", hub.SlotWebSocketHandler)

	api := r.Group("/api", authMW)
	{
		api.GET("/slots/:id/queue", h.QueueStatus)
		api.POST("/slots/:id/bookings", limit, h.BookSlot)
		api.POST("/bookings/:id/cancel", limit, h.CancelBooking)
		api.POST("/waitlist/:id/withdraw", limit, h.WithdrawEntry)
		api.GET("/profile/bookings", h.ProfileBookings)
	}

	admin := api.Group("/admin", auth.RequireRole(models.RoleAdmin))
	{
		admin.POST("/slots", h.CreateSlot)
	}
}
