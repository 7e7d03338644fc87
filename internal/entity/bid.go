package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// BidStatus marks whether a bid still stands. Bids are never hard-deleted.
type BidStatus string

const (
	BidActive    BidStatus = "Active"
	BidWithdrawn BidStatus = "Withdrawn"
)

// Bid is a supplier's current standing offer for one (auction, lot) pair.
// Amount is normalized to the reference currency at acceptance time;
// OriginalAmount/Currency keep the supplier-facing values. At most one Active
// row exists per (auction, lot, supplier) triple; revisions update in place.
type Bid struct {
	bun.BaseModel `bun:"table:bids"`

	ID             string          `bun:",pk"`
	AuctionID      string          `bun:"auction_id"`
	LotID          string          `bun:"lot_id"`
	SupplierID     string          `bun:"supplier_id"`
	Amount         decimal.Decimal `bun:"amount,type:numeric"`
	OriginalAmount decimal.Decimal `bun:"original_amount,type:numeric"`
	Currency       string          `bun:"currency"`
	Fob            decimal.Decimal `bun:"fob,type:numeric"`
	Carton         decimal.Decimal `bun:"carton,type:numeric"`
	Tax            decimal.Decimal `bun:"tax,type:numeric"`
	Duty           decimal.Decimal `bun:"duty,type:numeric"`
	TotalCost      decimal.Decimal `bun:"total_cost,type:numeric"`
	FloorPrice     decimal.Decimal `bun:"floor_price,type:numeric"`
	CeilingPrice   decimal.Decimal `bun:"ceiling_price,type:numeric"`
	Status         BidStatus       `bun:"status"`
	CreatedAt      time.Time       `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
	UpdatedAt      time.Time       `bun:"updated_at,nullzero"`
}

// ComputeTotalCost derives the ranked cost from the reference-currency amount
// and the cost components: amount*carton + fob + tax + duty.
func ComputeTotalCost(amount, carton, fob, tax, duty decimal.Decimal) decimal.Decimal {
	return amount.Mul(carton).Add(fob).Add(tax).Add(duty)
}
