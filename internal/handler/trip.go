package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"louage/internal/domain"
	"louage/internal/middleware"
	"louage/internal/service"
)

// TripHandler handles HTTP requests for trips.
type TripHandler struct {
	tripService  *service.TripService
	bookings     *service.BookingService
	cancellation *service.CancellationWorkflow
}

// NewTripHandler creates a new TripHandler.
func NewTripHandler(
	tripService *service.TripService,
	bookings *service.BookingService,
	cancellation *service.CancellationWorkflow,
) *TripHandler {
	return &TripHandler{
		tripService:  tripService,
		bookings:     bookings,
		cancellation: cancellation,
	}
}

// CreateTripRequest is the HTTP request body for publishing a trip.
type CreateTripRequest struct {
	DriverID     string          `json:"driver_id" binding:"required"`
	Origin       string          `json:"origin" binding:"required"`
	Destination  string          `json:"destination" binding:"required"`
	DepartureAt  time.Time       `json:"departure_at"`
	TotalSeats   int             `json:"total_seats" binding:"required"`
	PricePerSeat decimal.Decimal `json:"price_per_seat"`
	PricePrivate decimal.Decimal `json:"price_private"`
	IsPrivate    bool            `json:"is_private"`
}

// TripResponse is the HTTP response for trip operations.
type TripResponse struct {
	ID             string `json:"id"`
	DriverID       string `json:"driver_id"`
	Origin         string `json:"origin"`
	Destination    string `json:"destination"`
	DepartureAt    string `json:"departure_at"`
	TotalSeats     int    `json:"total_seats"`
	AvailableSeats int    `json:"available_seats"`
	PricePerSeat   string `json:"price_per_seat"`
	PricePrivate   string `json:"price_private"`
	IsPrivate      bool   `json:"is_private"`
	Status         string `json:"status"`
	StartedAt      string `json:"started_at,omitempty"`
	CompletedAt    string `json:"completed_at,omitempty"`
	CancelledAt    string `json:"cancelled_at,omitempty"`
	DepartedOnTime *bool  `json:"departed_on_time,omitempty"`
}

// CancelTripResponse reports how many passengers were told about a cancellation.
// Error is set when some bookings are still open and the call should be retried.
type CancelTripResponse struct {
	TripID             string `json:"trip_id"`
	Status             string `json:"status"`
	PassengersNotified int    `json:"passengers_notified"`
	Error              string `json:"error,omitempty"`
}

// TripBookingsResponse lists a trip with its bookings.
type TripBookingsResponse struct {
	Trip     TripResponse      `json:"trip"`
	Bookings []BookingResponse `json:"bookings"`
}

// CreateTrip handles POST /v1/trips
func (h *TripHandler) CreateTrip(c *gin.Context) {
	var req CreateTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	if !authorizeUser(c, req.DriverID) {
		return
	}
	if role := middleware.Role(c); role != "" && role != string(domain.UserRoleDriver) {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "only drivers can publish trips"})
		return
	}

	trip, err := h.tripService.CreateTrip(c.Request.Context(), service.CreateTripRequest{
		DriverID:     req.DriverID,
		Origin:       req.Origin,
		Destination:  req.Destination,
		DepartureAt:  req.DepartureAt,
		TotalSeats:   req.TotalSeats,
		PricePerSeat: req.PricePerSeat,
		PricePrivate: req.PricePrivate,
		IsPrivate:    req.IsPrivate,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toTripResponse(trip))
}

// ListTrips handles GET /v1/trips
func (h *TripHandler) ListTrips(c *gin.Context) {
	trips, err := h.tripService.ListTrips(c.Request.Context(), c.Query("driver_id"))
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]TripResponse, 0, len(trips))
	for _, t := range trips {
		response = append(response, toTripResponse(t))
	}

	c.JSON(http.StatusOK, response)
}

// GetTrip handles GET /v1/trips/:id
func (h *TripHandler) GetTrip(c *gin.Context) {
	trip, err := h.tripService.GetTrip(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toTripResponse(trip))
}

// ListBookings handles GET /v1/trips/:id/bookings
func (h *TripHandler) ListBookings(c *gin.Context) {
	trip, bookings, err := h.bookings.ListTripBookings(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	response := TripBookingsResponse{
		Trip:     toTripResponse(trip),
		Bookings: make([]BookingResponse, 0, len(bookings)),
	}
	for _, b := range bookings {
		response.Bookings = append(response.Bookings, toBookingResponse(b))
	}

	respondJSON(c, http.StatusOK, response)
}

// StartTrip handles POST /v1/trips/:id/start
func (h *TripHandler) StartTrip(c *gin.Context) {
	trip, err := h.tripService.StartTrip(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toTripResponse(trip))
}

// CompleteTrip handles POST /v1/trips/:id/complete
func (h *TripHandler) CompleteTrip(c *gin.Context) {
	trip, err := h.tripService.CompleteTrip(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toTripResponse(trip))
}

// CancelTrip handles POST /v1/trips/:id/cancel
func (h *TripHandler) CancelTrip(c *gin.Context) {
	tripID := c.Param("id")

	sel, ok := bindReason(c)
	if !ok {
		return
	}

	notified, err := h.cancellation.CancelTrip(c.Request.Context(), tripID, sel)
	if errors.Is(err, service.ErrCancellationIncomplete) {
		c.JSON(mapErrorToHTTPStatus(err), CancelTripResponse{
			TripID:             tripID,
			Status:             string(domain.TripStatusCancelled),
			PassengersNotified: notified,
			Error:              err.Error(),
		})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, CancelTripResponse{
		TripID:             tripID,
		Status:             string(domain.TripStatusCancelled),
		PassengersNotified: notified,
	})
}

func toTripResponse(t *domain.Trip) TripResponse {
	resp := TripResponse{
		ID:             t.ID,
		DriverID:       t.DriverID,
		Origin:         t.Origin,
		Destination:    t.Destination,
		DepartureAt:    t.DepartureAt.Format(timeLayout),
		TotalSeats:     t.TotalSeats,
		AvailableSeats: t.AvailableSeats,
		PricePerSeat:   t.PricePerSeat.StringFixed(3),
		PricePrivate:   t.PricePrivate.StringFixed(3),
		IsPrivate:      t.IsPrivate,
		Status:         string(t.Status),
		DepartedOnTime: t.DepartedOnTime,
	}
	if !t.StartedAt.IsZero() {
		resp.StartedAt = t.StartedAt.Format(timeLayout)
	}
	if !t.CompletedAt.IsZero() {
		resp.CompletedAt = t.CompletedAt.Format(timeLayout)
	}
	if !t.CancelledAt.IsZero() {
		resp.CancelledAt = t.CancelledAt.Format(timeLayout)
	}
	return resp
}
