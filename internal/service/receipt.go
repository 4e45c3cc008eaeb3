package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/phpdave11/gofpdf"

	"louage/internal/domain"
)

// ReceiptService builds booking receipts.
type ReceiptService struct {
	ledger *BookingLedger
	now    func() time.Time
}

// NewReceiptService creates a new ReceiptService.
func NewReceiptService(ledger *BookingLedger) *ReceiptService {
	return &ReceiptService{
		ledger: ledger,
		now:    time.Now,
	}
}

// GenerateReceipt assembles the receipt of a booking.
func (s *ReceiptService) GenerateReceipt(ctx context.Context, bookingID string) (*domain.Receipt, error) {
	booking, err := s.ledger.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	trip, err := s.ledger.GetTrip(ctx, booking.TripID)
	if err != nil {
		return nil, err
	}

	return &domain.Receipt{
		BookingID:     booking.ID,
		TripID:        trip.ID,
		PassengerName: booking.PassengerName,
		Origin:        trip.Origin,
		Destination:   trip.Destination,
		DepartureAt:   trip.DepartureAt,
		Seats:         booking.PassengerCount,
		Luggage:       booking.Luggage,
		Price:         booking.Price,
		PaymentMethod: booking.PaymentMethod,
		Status:        booking.Status,
		CancelReason:  booking.CancellationReason,
		IssuedAt:      s.now(),
	}, nil
}

// RenderPDF renders the receipt of a booking as an A5 PDF document.
func (s *ReceiptService) RenderPDF(ctx context.Context, bookingID string) ([]byte, error) {
	receipt, err := s.GenerateReceipt(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	pdf := gofpdf.New("P", "mm", "A5", "")
	pdf.SetTitle("Booking receipt", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, "LOUAGE BOOKING RECEIPT")
	pdf.Ln(12)

	// gofpdf core fonts are cp1252; the route arrow is written as "->".
	pdf.SetFont("Helvetica", "", 10)
	for _, line := range []string{
		"Booking    : " + receipt.BookingID,
		"Passenger  : " + safe(receipt.PassengerName, "-"),
		"Route      : " + receipt.Origin + " -> " + receipt.Destination,
		"Departure  : " + receipt.DepartureAt.Format("02/01/2006 15:04"),
		fmt.Sprintf("Seats      : %d", receipt.Seats),
		fmt.Sprintf("Luggage    : %d bag, %d small, %d medium, %d large",
			receipt.Luggage.Bag, receipt.Luggage.SmallCase, receipt.Luggage.MediumCase, receipt.Luggage.LargeCase),
		"Status     : " + string(receipt.Status),
	} {
		pdf.Cell(0, 6, line)
		pdf.Ln(6)
	}
	if receipt.CancelReason != "" {
		pdf.MultiCell(0, 6, "Cancelled  : "+receipt.CancelReason, "", "", false)
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.Cell(0, 7, "Price breakdown (TND)")
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 10)
	for _, row := range []struct {
		label string
		value string
	}{
		{"Seats", receipt.Price.Base.StringFixed(3)},
		{"Luggage", receipt.Price.LuggageFee.StringFixed(3)},
		{"Service fee (" + receipt.Price.ServiceRate.Shift(2).String() + "%)", receipt.Price.ServiceFeeBase.StringFixed(4)},
		{"VAT on service fee (19%)", receipt.Price.ServiceFeeVAT.StringFixed(4)},
	} {
		pdf.CellFormat(80, 6, row.label, "", 0, "L", false, 0, "")
		pdf.CellFormat(40, 6, row.value, "", 1, "R", false, 0, "")
	}

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(80, 8, "TOTAL", "T", 0, "L", false, 0, "")
	pdf.CellFormat(40, 8, receipt.Price.Total.StringFixed(3), "T", 1, "R", false, 0, "")

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "I", 9)
	pdf.Cell(0, 6, "Payment method: "+string(receipt.PaymentMethod)+" - issued "+receipt.IssuedAt.Format("02/01/2006 15:04"))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render receipt: %w", err)
	}
	return buf.Bytes(), nil
}

func safe(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
