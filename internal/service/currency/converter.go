package currency

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/fx"

	"github.com/procurehub/auctiond/internal/config"
	"github.com/procurehub/auctiond/internal/repository/rates"
)

// ErrRateNotFound indicates no exchange rate is configured for a currency.
// There is no fallback table: an unknown code is a reference-data gap that
// needs an administrative fix, not a silent default.
var ErrRateNotFound = errors.New("exchange rate not found")

// NormalizeCode canonicalizes a currency code for comparison and storage.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// RateSource looks up how many units of the coded currency equal one
// reference unit.
type RateSource interface {
	Rate(ctx context.Context, code string) (decimal.Decimal, error)
}

// Converted is the result of a conversion: the target amount plus the rate
// that produced it, retained for audit.
type Converted struct {
	Amount decimal.Decimal
	Rate   decimal.Decimal
}

// Converter translates amounts to and from the reference currency. All
// cross-currency comparisons in the bidding core go through the reference
// currency; there are no direct cross-rates.
type Converter struct {
	source    RateSource
	reference string
}

// Params defines dependencies for constructing Converter.
type Params struct {
	fx.In

	Rates  *rates.Repository
	Config config.Config
}

// NewConverter wires a Converter against the configured rate repository.
func NewConverter(p Params) *Converter {
	return New(p.Rates, p.Config.Auction.ReferenceCurrency)
}

// New builds a Converter from any rate source; used directly by tests.
func New(source RateSource, reference string) *Converter {
	return &Converter{source: source, reference: strings.ToUpper(reference)}
}

// Reference returns the reference currency code.
func (c *Converter) Reference() string {
	return c.reference
}

// ToReference converts an amount into the reference currency. Rates are
// "units per 1 reference unit", so conversion divides.
func (c *Converter) ToReference(ctx context.Context, amount decimal.Decimal, code string) (Converted, error) {
	code = NormalizeCode(code)
	if code == c.reference {
		return Converted{Amount: amount, Rate: decimal.NewFromInt(1)}, nil
	}

	rate, err := c.lookup(ctx, code)
	if err != nil {
		return Converted{}, err
	}
	return Converted{Amount: amount.Div(rate), Rate: rate}, nil
}

// FromReference converts a reference-currency amount into the target
// currency by multiplying with its rate.
func (c *Converter) FromReference(ctx context.Context, amount decimal.Decimal, code string) (Converted, error) {
	code = NormalizeCode(code)
	if code == c.reference {
		return Converted{Amount: amount, Rate: decimal.NewFromInt(1)}, nil
	}

	rate, err := c.lookup(ctx, code)
	if err != nil {
		return Converted{}, err
	}
	return Converted{Amount: amount.Mul(rate), Rate: rate}, nil
}

func (c *Converter) lookup(ctx context.Context, code string) (decimal.Decimal, error) {
	rate, err := c.source.Rate(ctx, code)
	if errors.Is(err, rates.ErrNotFound) {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrRateNotFound, code)
	}
	if err != nil {
		return decimal.Zero, err
	}
	if rate.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("%w: non-positive rate for %s", ErrRateNotFound, code)
	}
	return rate, nil
}
