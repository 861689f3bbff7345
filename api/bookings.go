package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/dparkr/dparkr/internal/domain"
	"github.com/dparkr/dparkr/internal/service/booking"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type BookingHandler struct {
	service booking.BookingUseCase
}

type createBookingRequest struct {
	UserID    string    `json:"user_id"`
	ParkingID uuid.UUID `json:"parking_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

type updateStatusRequest struct {
	Action string `json:"action" binding:"required"`
}

type bookingResponse struct {
	ID              string `json:"id"`
	UserID          string `json:"user_id"`
	ParkingID       string `json:"parking_id"`
	OwnerID         string `json:"owner_id,omitempty"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	TotalPriceCents int64  `json:"total_price_cents"`
	Status          string `json:"status"`
	CreatedAt       string `json:"created_at,omitempty"`
}

type availabilityResponse struct {
	Available             bool     `json:"available"`
	ConflictingBookingIDs []string `json:"conflicting_booking_ids"`
}

func NewBookingHandler(service booking.BookingUseCase) *BookingHandler {
	return &BookingHandler{service: service}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.POST("/bookings", h.create)
	router.PATCH("/bookings/:id", h.updateStatus)
	router.GET("/bookings", h.listMine)
	router.GET("/owner/bookings", h.listOwner)
	router.GET("/parkings/:id/availability", h.availability)
}

func (h *BookingHandler) create(c *gin.Context) {
	actorID, ok := actor(c)
	if !ok {
		return
	}
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidInput(c, "%s", err.Error())
		return
	}
	if req.UserID != "" && req.UserID != actorID {
		respondError(c, fmt.Errorf("%w: bookings are created for the caller only", domain.ErrNotAuthorized))
		return
	}

	created, err := h.service.CreateBooking(c.Request.Context(), booking.CreateBookingInput{
		UserID:    actorID,
		ParkingID: req.ParkingID,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toBookingResponse(created, ""))
}

func (h *BookingHandler) updateStatus(c *gin.Context) {
	actorID, ok := actor(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		invalidInput(c, "invalid booking id")
		return
	}
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidInput(c, "%s", err.Error())
		return
	}
	action, err := domain.ParseAction(req.Action)
	if err != nil {
		respondError(c, err)
		return
	}

	updated, err := h.service.UpdateStatus(c.Request.Context(), id, actorID, action)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(&updated.Booking, updated.OwnerID))
}

func (h *BookingHandler) listMine(c *gin.Context) {
	actorID, ok := actor(c)
	if !ok {
		return
	}
	bookings, err := h.service.ListUserBookings(c.Request.Context(), actorID)
	if err != nil {
		respondError(c, err)
		return
	}
	resp := make([]bookingResponse, 0, len(bookings))
	for i := range bookings {
		resp = append(resp, toBookingResponse(&bookings[i], ""))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *BookingHandler) listOwner(c *gin.Context) {
	actorID, ok := actor(c)
	if !ok {
		return
	}
	bookings, err := h.service.ListOwnerBookings(c.Request.Context(), actorID)
	if err != nil {
		respondError(c, err)
		return
	}
	resp := make([]bookingResponse, 0, len(bookings))
	for i := range bookings {
		resp = append(resp, toBookingResponse(&bookings[i].Booking, bookings[i].OwnerID))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *BookingHandler) availability(c *gin.Context) {
	parkingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		invalidInput(c, "invalid parking id")
		return
	}
	start, err := time.Parse(time.RFC3339, c.Query("start"))
	if err != nil {
		invalidInput(c, "start must be an RFC 3339 timestamp")
		return
	}
	end, err := time.Parse(time.RFC3339, c.Query("end"))
	if err != nil {
		invalidInput(c, "end must be an RFC 3339 timestamp")
		return
	}

	availability, err := h.service.CheckAvailability(c.Request.Context(), parkingID, start, end)
	if err != nil {
		respondError(c, err)
		return
	}
	ids := make([]string, 0, len(availability.ConflictingBookingIDs))
	for _, id := range availability.ConflictingBookingIDs {
		ids = append(ids, id.String())
	}
	c.JSON(http.StatusOK, availabilityResponse{Available: availability.Available, ConflictingBookingIDs: ids})
}

func toBookingResponse(b *domain.Booking, ownerID string) bookingResponse {
	resp := bookingResponse{
		ID:              b.ID.String(),
		UserID:          b.UserID,
		ParkingID:       b.ParkingID.String(),
		OwnerID:         ownerID,
		StartTime:       b.StartTime.UTC().Format(time.RFC3339),
		EndTime:         b.EndTime.UTC().Format(time.RFC3339),
		TotalPriceCents: b.TotalPriceCents,
		Status:          string(b.Status),
	}
	if !b.CreatedAt.IsZero() {
		resp.CreatedAt = b.CreatedAt.UTC().Format(time.RFC3339)
	}
	return resp
}
