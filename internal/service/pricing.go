package service

import (
	"github.com/shopspring/decimal"

	"louage/internal/domain"
)

// Fee schedule in TND. Amounts are exact decimals; only the final total is rounded.
var (
	bagFee  = decimal.RequireFromString("0.500") // bag and small case
	caseFee = decimal.RequireFromString("2.000") // medium and large case

	collectiveServiceRate = decimal.RequireFromString("0.09")
	privateServiceRate    = decimal.RequireFromString("0.15")
	serviceFeeVATRate     = decimal.RequireFromString("0.19")
)

// totalPlaces is the number of decimal places kept on the final total (millimes).
const totalPlaces = 3

// ComputePrice returns the price breakdown of a booking. It is pure and
// deterministic: the same inputs always yield the same decimals.
func ComputePrice(pricePerSeat decimal.Decimal, seats int, luggage domain.Luggage, isPrivate bool) (domain.PriceBreakdown, error) {
	if seats < 1 {
		return domain.PriceBreakdown{}, ErrInvalidSeatCount
	}
	if !luggage.Valid() {
		return domain.PriceBreakdown{}, ErrInvalidLuggage
	}
	if pricePerSeat.IsNegative() {
		return domain.PriceBreakdown{}, ErrInvalidPrice
	}

	base := pricePerSeat.Mul(decimal.NewFromInt(int64(seats)))

	// Each class is converted on its own so counts are never summed as ints.
	luggageFee := bagFee.Mul(decimal.NewFromInt(int64(luggage.Bag))).
		Add(bagFee.Mul(decimal.NewFromInt(int64(luggage.SmallCase)))).
		Add(caseFee.Mul(decimal.NewFromInt(int64(luggage.MediumCase)))).
		Add(caseFee.Mul(decimal.NewFromInt(int64(luggage.LargeCase))))

	rate := collectiveServiceRate
	if isPrivate {
		rate = privateServiceRate
	}

	feeBase := base.Mul(rate)
	feeVAT := feeBase.Mul(serviceFeeVATRate)
	feeTotal := feeBase.Add(feeVAT)

	// decimal.Round rounds half away from zero.
	total := base.Add(luggageFee).Add(feeTotal).Round(totalPlaces)

	return domain.PriceBreakdown{
		Base:            base,
		LuggageFee:      luggageFee,
		ServiceRate:     rate,
		ServiceFeeBase:  feeBase,
		ServiceFeeVAT:   feeVAT,
		ServiceFeeTotal: feeTotal,
		Total:           total,
	}, nil
}
