package bidding

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/procurehub/auctiond/internal/entity"
	"github.com/procurehub/auctiond/internal/service/currency"
	"github.com/procurehub/auctiond/pkg/errorbank"
)

var oneHundred = decimal.NewFromInt(100)

// BidRange is the legal interval computed at validation time, retained on the
// bid for audit.
type BidRange struct {
	Floor   decimal.Decimal `json:"floor"`
	Ceiling decimal.Decimal `json:"ceiling"`
}

// Validation carries the outcome of a successful price-limit check: the
// candidate normalized to the reference currency and the band it fell inside.
type Validation struct {
	ReferenceAmount decimal.Decimal
	Rate            decimal.Decimal
	Range           BidRange
}

// checkSettings rejects malformed increment configuration before any amount
// is evaluated.
func checkSettings(settings *entity.AuctionSettings) error {
	if settings == nil {
		return errorbank.Unprocessable("auction settings are not configured",
			errorbank.WithReason(errorbank.ReasonInvalidSettings))
	}
	if !settings.BidDirection.Valid() {
		return errorbank.Unprocessable(fmt.Sprintf("unknown bid direction: %s", settings.BidDirection),
			errorbank.WithReason(errorbank.ReasonInvalidSettings))
	}
	if settings.MinimumBidChange.Sign() < 0 || settings.MaximumBidChange.Sign() <= 0 {
		return errorbank.Unprocessable("minimum_bid_change and maximum_bid_change must be non-negative increment percentages",
			errorbank.WithReason(errorbank.ReasonInvalidSettings))
	}
	if settings.MinimumBidChange.GreaterThanOrEqual(settings.MaximumBidChange) {
		return errorbank.Unprocessable("minimum_bid_change must be less than maximum_bid_change",
			errorbank.WithReason(errorbank.ReasonInvalidSettings))
	}
	return nil
}

// referencePrice returns the lot's current price, the anchor for the bid
// band in both directions. The qualification price is a separate gate, not a
// band anchor.
func referencePrice(lot *entity.Lot) (decimal.Decimal, error) {
	if lot.CurrentPrice.Sign() <= 0 {
		return decimal.Zero, errorbank.Unprocessable("lot current price is not set",
			errorbank.WithReason(errorbank.ReasonMissingReferencePrice),
			errorbank.WithDetail("lotId", lot.ID))
	}
	return lot.CurrentPrice, nil
}

// bidBand computes the legal interval around the reference price. Reverse
// auctions are intentionally unbounded downward: any amount from zero up to
// the max increment above the reference is legal.
func bidBand(direction entity.Direction, ref decimal.Decimal, settings *entity.AuctionSettings) BidRange {
	minIncrement := ref.Mul(settings.MinimumBidChange).Div(oneHundred)
	maxIncrement := ref.Mul(settings.MaximumBidChange).Div(oneHundred)

	if direction == entity.DirectionReverse {
		return BidRange{Floor: decimal.Zero, Ceiling: ref.Add(maxIncrement)}
	}
	return BidRange{Floor: ref.Add(minIncrement), Ceiling: ref.Add(maxIncrement)}
}

// validatePriceLimits classifies a candidate bid against the configured
// increment band. All comparisons happen in the reference currency; the
// rejection message carries the band converted back into the submission
// currency so the supplier sees familiar numbers.
func (s *Service) validatePriceLimits(ctx context.Context, amount decimal.Decimal, code string, settings *entity.AuctionSettings, lot *entity.Lot) (*Validation, error) {
	if err := checkSettings(settings); err != nil {
		return nil, err
	}

	converted, err := s.converter.ToReference(ctx, amount, code)
	if err != nil {
		return nil, conversionError(err, code)
	}

	ref, err := referencePrice(lot)
	if err != nil {
		return nil, err
	}

	band := bidBand(settings.BidDirection, ref, settings)

	if converted.Amount.LessThan(band.Floor) || converted.Amount.GreaterThan(band.Ceiling) {
		return nil, s.outOfRangeError(ctx, amount, code, band)
	}

	return &Validation{
		ReferenceAmount: converted.Amount,
		Rate:            converted.Rate,
		Range:           band,
	}, nil
}

// outOfRangeError renders the legal band in the supplier's currency, falling
// back to the reference currency when that conversion itself fails.
func (s *Service) outOfRangeError(ctx context.Context, amount decimal.Decimal, code string, band BidRange) error {
	floor, ceiling := band.Floor, band.Ceiling
	rangeCurrency := s.converter.Reference()

	if f, err := s.converter.FromReference(ctx, band.Floor, code); err == nil {
		if c, err := s.converter.FromReference(ctx, band.Ceiling, code); err == nil {
			floor, ceiling = f.Amount, c.Amount
			rangeCurrency = code
		}
	}

	return errorbank.Unprocessable(
		fmt.Sprintf("bid amount should be in range between %s - %s %s (your bid: %s %s)",
			floor.StringFixed(2), ceiling.StringFixed(2), rangeCurrency, amount.String(), code),
		errorbank.WithReason(errorbank.ReasonOutOfRange),
		errorbank.WithDetail("floor", floor.StringFixed(2)),
		errorbank.WithDetail("ceiling", ceiling.StringFixed(2)),
		errorbank.WithDetail("currency", rangeCurrency),
	)
}

// checkQualification enforces the directional qualification gate: reverse
// bids must come in strictly below the qualification price, forward bids
// strictly above it, compared in the submission currency.
func (s *Service) checkQualification(ctx context.Context, amount decimal.Decimal, code string, direction entity.Direction, lot *entity.Lot) error {
	if lot.QualificationPrice.Sign() <= 0 {
		return errorbank.Unprocessable("lot qualification price is not set",
			errorbank.WithReason(errorbank.ReasonMissingReferencePrice),
			errorbank.WithDetail("lotId", lot.ID))
	}

	converted, err := s.converter.FromReference(ctx, lot.QualificationPrice, code)
	if err != nil {
		return conversionError(err, code)
	}

	switch direction {
	case entity.DirectionReverse:
		if !amount.LessThan(converted.Amount) {
			return errorbank.Unprocessable(
				fmt.Sprintf("bid amount must be less than the qualification price (%s %s) for reverse auctions",
					converted.Amount.StringFixed(2), code),
				errorbank.WithReason(errorbank.ReasonOutOfRange))
		}
	case entity.DirectionForward:
		if !amount.GreaterThan(converted.Amount) {
			return errorbank.Unprocessable(
				fmt.Sprintf("bid amount must be greater than the qualification price (%s %s) for forward auctions",
					converted.Amount.StringFixed(2), code),
				errorbank.WithReason(errorbank.ReasonOutOfRange))
		}
	}
	return nil
}

func conversionError(err error, code string) error {
	if errors.Is(err, currency.ErrRateNotFound) {
		return errorbank.Unprocessable(
			fmt.Sprintf("currency %s is not supported; no exchange rate configured", code),
			errorbank.WithReason(errorbank.ReasonConversionFailed),
			errorbank.WithCause(err))
	}
	return errorbank.Unavailable("currency lookup failed", errorbank.WithCause(err))
}
