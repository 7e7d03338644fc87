package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// BidHistory is the append-only ledger mirroring every accepted bid write.
// Rows are write-once and kept for audit and dispute resolution.
type BidHistory struct {
	bun.BaseModel `bun:"table:bid_history"`

	ID             string          `bun:",pk"`
	AuctionID      string          `bun:"auction_id"`
	LotID          string          `bun:"lot_id"`
	SupplierID     string          `bun:"supplier_id"`
	SupplierName   string          `bun:"supplier_name"`
	Amount         decimal.Decimal `bun:"amount,type:numeric"`
	OriginalAmount decimal.Decimal `bun:"original_amount,type:numeric"`
	Currency       string          `bun:"currency"`
	Fob            decimal.Decimal `bun:"fob,type:numeric"`
	Carton         decimal.Decimal `bun:"carton,type:numeric"`
	Tax            decimal.Decimal `bun:"tax,type:numeric"`
	Duty           decimal.Decimal `bun:"duty,type:numeric"`
	TotalCost      decimal.Decimal `bun:"total_cost,type:numeric"`
	CreatedAt      time.Time       `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
}
