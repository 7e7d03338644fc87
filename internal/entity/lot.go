package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Lot is a biddable unit within an auction. Prices are stored in the
// reference currency and are immutable once bidding starts, except for
// administrative correction.
type Lot struct {
	bun.BaseModel `bun:"table:lots"`

	ID                 string          `bun:",pk"`
	AuctionID          string          `bun:"auction_id"`
	Name               string          `bun:"name"`
	Quantity           int             `bun:"quantity"`
	UnitOfMeasure      string          `bun:"unit_of_measure"`
	CurrentPrice       decimal.Decimal `bun:"current_price,type:numeric"`
	QualificationPrice decimal.Decimal `bun:"qualification_price,type:numeric"`
	CreatedAt          time.Time       `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
	UpdatedAt          time.Time       `bun:"updated_at,nullzero"`
}
