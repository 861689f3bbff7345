package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dparkr/dparkr/internal/domain"
	"github.com/dparkr/dparkr/internal/service/parkings"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ParkingHandler struct {
	service parkings.ParkingUseCase
}

type parkingResponse struct {
	ID                string   `json:"id"`
	OwnerID           string   `json:"owner_id"`
	Title             string   `json:"title"`
	Description       string   `json:"description"`
	PricePerHourCents int64    `json:"price_per_hour_cents"`
	Latitude          float64  `json:"latitude"`
	Longitude         float64  `json:"longitude"`
	Address           string   `json:"address"`
	IsActive          bool     `json:"is_active"`
	CreatedAt         string   `json:"created_at,omitempty"`
	DistanceKm        *float64 `json:"distance_km,omitempty"`
}

func NewParkingHandler(service parkings.ParkingUseCase) *ParkingHandler {
	return &ParkingHandler{service: service}
}

func (h *ParkingHandler) Register(router *gin.RouterGroup) {
	router.GET("/parkings", h.listActive)
	router.GET("/parkings/nearest", h.nearest)

	router.GET("/owner/parkings", h.listOwned)
	router.POST("/owner/parkings", h.create)
	router.PUT("/owner/parkings/:id", h.update)
	router.DELETE("/owner/parkings/:id", h.delete)

	router.GET("/favorites", h.listFavorites)
	router.PUT("/favorites/:parkingId", h.addFavorite)
	router.DELETE("/favorites/:parkingId", h.removeFavorite)
}

func (h *ParkingHandler) listActive(c *gin.Context) {
	list, err := h.service.ListActive(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toParkingResponses(list))
}

func (h *ParkingHandler) nearest(c *gin.Context) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
	if errLat != nil || errLng != nil {
		invalidInput(c, "lat and lng are required numbers")
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			invalidInput(c, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	nearest, err := h.service.Nearest(c.Request.Context(), lat, lng, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	resp := make([]parkingResponse, 0, len(nearest))
	for i := range nearest {
		item := toParkingResponse(&nearest[i].ParkingSpace)
		distance := nearest[i].DistanceKm
		item.DistanceKm = &distance
		resp = append(resp, item)
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ParkingHandler) listOwned(c *gin.Context) {
	ownerID, ok := actor(c)
	if !ok {
		return
	}
	list, err := h.service.ListByOwner(c.Request.Context(), ownerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toParkingResponses(list))
}

func (h *ParkingHandler) create(c *gin.Context) {
	ownerID, ok := actor(c)
	if !ok {
		return
	}
	var input parkings.ParkingInput
	if err := c.ShouldBindJSON(&input); err != nil {
		invalidInput(c, "%s", err.Error())
		return
	}

	created, err := h.service.CreateParking(c.Request.Context(), ownerID, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toParkingResponse(created))
}

func (h *ParkingHandler) update(c *gin.Context) {
	ownerID, ok := actor(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		invalidInput(c, "invalid parking id")
		return
	}
	var input parkings.ParkingInput
	if err := c.ShouldBindJSON(&input); err != nil {
		invalidInput(c, "%s", err.Error())
		return
	}

	updated, err := h.service.UpdateParking(c.Request.Context(), ownerID, id, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toParkingResponse(updated))
}

func (h *ParkingHandler) delete(c *gin.Context) {
	ownerID, ok := actor(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		invalidInput(c, "invalid parking id")
		return
	}
	if err := h.service.DeleteParking(c.Request.Context(), ownerID, id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ParkingHandler) listFavorites(c *gin.Context) {
	userID, ok := actor(c)
	if !ok {
		return
	}
	list, err := h.service.ListFavorites(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toParkingResponses(list))
}

func (h *ParkingHandler) addFavorite(c *gin.Context) {
	userID, ok := actor(c)
	if !ok {
		return
	}
	parkingID, err := uuid.Parse(c.Param("parkingId"))
	if err != nil {
		invalidInput(c, "invalid parking id")
		return
	}
	if err := h.service.AddFavorite(c.Request.Context(), userID, parkingID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ParkingHandler) removeFavorite(c *gin.Context) {
	userID, ok := actor(c)
	if !ok {
		return
	}
	parkingID, err := uuid.Parse(c.Param("parkingId"))
	if err != nil {
		invalidInput(c, "invalid parking id")
		return
	}
	if err := h.service.RemoveFavorite(c.Request.Context(), userID, parkingID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func toParkingResponses(list []domain.ParkingSpace) []parkingResponse {
	resp := make([]parkingResponse, 0, len(list))
	for i := range list {
		resp = append(resp, toParkingResponse(&list[i]))
	}
	return resp
}

func toParkingResponse(p *domain.ParkingSpace) parkingResponse {
	resp := parkingResponse{
		ID:                p.ID.String(),
		OwnerID:           p.OwnerID,
		Title:             p.Title,
		Description:       p.Description,
		PricePerHourCents: p.PricePerHourCents,
		Latitude:          p.Latitude,
		Longitude:         p.Longitude,
		Address:           p.Address,
		IsActive:          p.IsActive,
	}
	if !p.CreatedAt.IsZero() {
		resp.CreatedAt = p.CreatedAt.UTC().Format(time.RFC3339)
	}
	return resp
}
