package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"louage/internal/domain"
	"louage/internal/service"
)

// BookingHandler handles HTTP requests for booking requests.
type BookingHandler struct {
	bookings     *service.BookingService
	cancellation *service.CancellationWorkflow
	receipts     *service.ReceiptService
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(
	bookings *service.BookingService,
	cancellation *service.CancellationWorkflow,
	receipts *service.ReceiptService,
) *BookingHandler {
	return &BookingHandler{
		bookings:     bookings,
		cancellation: cancellation,
		receipts:     receipts,
	}
}

// SubmitBookingRequest is the HTTP request body for a booking request.
type SubmitBookingRequest struct {
	TripID         string         `json:"trip_id" binding:"required"`
	PassengerID    string         `json:"passenger_id" binding:"required"`
	PassengerName  string         `json:"passenger_name"`
	PassengerCount int            `json:"passenger_count"`
	Luggage        domain.Luggage `json:"luggage"`
	PaymentMethod  string         `json:"payment_method"`
}

// PriceResponse is the HTTP representation of a price breakdown.
type PriceResponse struct {
	Base            string `json:"base"`
	LuggageFee      string `json:"luggage_fee"`
	ServiceRate     string `json:"service_rate"`
	ServiceFeeBase  string `json:"service_fee_base"`
	ServiceFeeVAT   string `json:"service_fee_vat"`
	ServiceFeeTotal string `json:"service_fee_total"`
	Total           string `json:"total"`
}

// BookingResponse is the HTTP response for booking operations.
type BookingResponse struct {
	ID                 string         `json:"id"`
	TripID             string         `json:"trip_id"`
	PassengerID        string         `json:"passenger_id"`
	PassengerName      string         `json:"passenger_name,omitempty"`
	PassengerCount     int            `json:"passenger_count"`
	Luggage            domain.Luggage `json:"luggage"`
	Status             string         `json:"status"`
	PaymentMethod      string         `json:"payment_method"`
	Price              PriceResponse  `json:"price"`
	CancellationReason string         `json:"cancellation_reason,omitempty"`
	CreatedAt          string         `json:"created_at"`
	UpdatedAt          string         `json:"updated_at"`
}

// AcceptBookingResponse carries the accepted booking's trip after seats were taken.
type AcceptBookingResponse struct {
	BookingID      string `json:"booking_id"`
	Status         string `json:"status"`
	TripID         string `json:"trip_id"`
	AvailableSeats int    `json:"available_seats"`
}

// ReasonInput is the tagged form of a cancellation reason.
type ReasonInput struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

// CancelRequest is the HTTP request body for cancelling a booking or a trip.
// Either Reason or one of the flat fields may be used, not both.
type CancelRequest struct {
	Reason           *ReasonInput `json:"reason"`
	PredefinedReason string       `json:"predefined_reason"`
	CustomReason     string       `json:"custom_reason"`
}

// Submit handles POST /v1/bookings
func (h *BookingHandler) Submit(c *gin.Context) {
	var req SubmitBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	if !authorizeUser(c, req.PassengerID) {
		return
	}

	booking, err := h.bookings.SubmitBooking(c.Request.Context(), service.SubmitBookingRequest{
		TripID:        req.TripID,
		Passenger:     domain.Passenger{ID: req.PassengerID, Name: req.PassengerName},
		Seats:         req.PassengerCount,
		Luggage:       req.Luggage,
		PaymentMethod: domain.PaymentMethod(req.PaymentMethod),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toBookingResponse(booking))
}

// GetBooking handles GET /v1/bookings/:id
func (h *BookingHandler) GetBooking(c *gin.Context) {
	booking, err := h.bookings.GetBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toBookingResponse(booking))
}

// ListForPassenger handles GET /v1/passengers/:id/bookings
func (h *BookingHandler) ListForPassenger(c *gin.Context) {
	passengerID := c.Param("id")
	if !authorizeUser(c, passengerID) {
		return
	}

	bookings, err := h.bookings.ListPassengerBookings(c.Request.Context(), passengerID)
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]BookingResponse, 0, len(bookings))
	for _, b := range bookings {
		response = append(response, toBookingResponse(b))
	}

	c.JSON(http.StatusOK, response)
}

// Accept handles POST /v1/bookings/:id/accept
func (h *BookingHandler) Accept(c *gin.Context) {
	bookingID := c.Param("id")

	trip, err := h.bookings.AcceptBooking(c.Request.Context(), bookingID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, AcceptBookingResponse{
		BookingID:      bookingID,
		Status:         string(domain.BookingStatusAccepted),
		TripID:         trip.ID,
		AvailableSeats: trip.AvailableSeats,
	})
}

// Decline handles POST /v1/bookings/:id/decline
func (h *BookingHandler) Decline(c *gin.Context) {
	bookingID := c.Param("id")

	if err := h.bookings.DeclineBooking(c.Request.Context(), bookingID); err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{
		"booking_id": bookingID,
		"status":     domain.BookingStatusDeclined,
	})
}

// Cancel handles POST /v1/bookings/:id/cancel
func (h *BookingHandler) Cancel(c *gin.Context) {
	bookingID := c.Param("id")

	sel, ok := bindReason(c)
	if !ok {
		return
	}

	if err := h.cancellation.CancelBooking(c.Request.Context(), bookingID, sel); err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{
		"booking_id": bookingID,
		"status":     domain.BookingStatusCancelled,
	})
}

// Receipt handles GET /v1/bookings/:id/receipt
func (h *BookingHandler) Receipt(c *gin.Context) {
	bookingID := c.Param("id")

	if c.Query("format") == "json" {
		receipt, err := h.receipts.GenerateReceipt(c.Request.Context(), bookingID)
		if err != nil {
			respondError(c, err)
			return
		}
		respondJSON(c, http.StatusOK, receipt)
		return
	}

	pdf, err := h.receipts.RenderPDF(c.Request.Context(), bookingID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", "inline; filename=receipt-"+bookingID+".pdf")
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// bindReason reads a CancelRequest and converts it to a selection. A
// conflicting body becomes an invalid selection so the workflow rejects it.
func bindReason(c *gin.Context) (domain.ReasonSelection, bool) {
	var req CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return domain.ReasonSelection{}, false
	}

	sel := domain.ReasonSelection{
		Predefined: req.PredefinedReason,
		Custom:     req.CustomReason,
	}
	if req.Reason == nil {
		return sel, true
	}
	if sel.Predefined != "" || sel.Custom != "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: service.ErrInvalidReason.Error()})
		return domain.ReasonSelection{}, false
	}

	switch domain.ReasonKind(req.Reason.Kind) {
	case domain.ReasonKindPredefined:
		sel.Predefined = req.Reason.Value
	case domain.ReasonKindCustom:
		sel.Custom = req.Reason.Value
	default:
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: service.ErrInvalidReason.Error()})
		return domain.ReasonSelection{}, false
	}
	return sel, true
}

func toPriceResponse(p domain.PriceBreakdown) PriceResponse {
	return PriceResponse{
		Base:            p.Base.StringFixed(3),
		LuggageFee:      p.LuggageFee.StringFixed(3),
		ServiceRate:     p.ServiceRate.String(),
		ServiceFeeBase:  p.ServiceFeeBase.StringFixed(3),
		ServiceFeeVAT:   p.ServiceFeeVAT.StringFixed(3),
		ServiceFeeTotal: p.ServiceFeeTotal.StringFixed(3),
		Total:           p.Total.StringFixed(3),
	}
}

func toBookingResponse(b *domain.BookingRequest) BookingResponse {
	return BookingResponse{
		ID:                 b.ID,
		TripID:             b.TripID,
		PassengerID:        b.PassengerID,
		PassengerName:      b.PassengerName,
		PassengerCount:     b.PassengerCount,
		Luggage:            b.Luggage,
		Status:             string(b.Status),
		PaymentMethod:      string(b.PaymentMethod),
		Price:              toPriceResponse(b.Price),
		CancellationReason: b.CancellationReason,
		CreatedAt:          b.CreatedAt.Format(timeLayout),
		UpdatedAt:          b.UpdatedAt.Format(timeLayout),
	}
}
