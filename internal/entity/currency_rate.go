package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// CurrencyRate is one row of the authoritative rate table: units of the coded
// currency per 1 reference unit. Owned by the reference-data collaborator;
// read-only from the bidding core.
type CurrencyRate struct {
	bun.BaseModel `bun:"table:currency_rates"`

	Code      string          `bun:",pk"`
	Rate      decimal.Decimal `bun:"rate,type:numeric"`
	UpdatedAt time.Time       `bun:"updated_at,nullzero"`
}
