package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"louage/internal/domain"
	"louage/internal/service"
)

// PricingHandler serves price quotes without creating bookings.
type PricingHandler struct {
	trips *service.TripService
}

// NewPricingHandler creates a new PricingHandler.
func NewPricingHandler(trips *service.TripService) *PricingHandler {
	return &PricingHandler{trips: trips}
}

// QuoteRequest is the HTTP request body for a price quote. When TripID is
// set the trip's own price and privacy override the explicit fields.
type QuoteRequest struct {
	TripID         string          `json:"trip_id"`
	PricePerSeat   decimal.Decimal `json:"price_per_seat"`
	IsPrivate      bool            `json:"is_private"`
	PassengerCount int             `json:"passenger_count"`
	Luggage        domain.Luggage  `json:"luggage"`
}

// Quote handles POST /v1/pricing/quote
func (h *PricingHandler) Quote(c *gin.Context) {
	var req QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	price, private := req.PricePerSeat, req.IsPrivate
	if req.TripID != "" {
		trip, err := h.trips.GetTrip(c.Request.Context(), req.TripID)
		if err != nil {
			respondError(c, err)
			return
		}
		price, private = trip.SeatPrice(), trip.IsPrivate
	}

	breakdown, err := service.ComputePrice(price, req.PassengerCount, req.Luggage, private)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toPriceResponse(breakdown))
}
