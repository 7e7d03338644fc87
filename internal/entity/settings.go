package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Direction tags which way bids compete: reverse auctions reward lower prices,
// forward auctions reward higher ones.
type Direction string

const (
	DirectionForward Direction = "forward"
	DirectionReverse Direction = "reverse"
)

// Valid reports whether the direction is one of the known tags.
func (d Direction) Valid() bool {
	return d == DirectionForward || d == DirectionReverse
}

// Improves reports whether candidate strictly beats incumbent in this direction.
func (d Direction) Improves(candidate, incumbent decimal.Decimal) bool {
	if d == DirectionReverse {
		return candidate.LessThan(incumbent)
	}
	return candidate.GreaterThan(incumbent)
}

// AuctionSettings carries the per-auction bid validation configuration.
// Mutable by the owner until the auction goes Active.
type AuctionSettings struct {
	bun.BaseModel `bun:"table:auction_settings"`

	ID               string          `bun:",pk"`
	AuctionID        string          `bun:"auction_id"`
	BidDirection     Direction       `bun:"bid_direction"`
	MinimumBidChange decimal.Decimal `bun:"minimum_bid_change,type:numeric"`
	MaximumBidChange decimal.Decimal `bun:"maximum_bid_change,type:numeric"`
	MinimumDuration  int             `bun:"minimum_duration"`
	TiedBidOption    string          `bun:"tied_bid_option"`
	CreatedAt        time.Time       `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
	UpdatedAt        time.Time       `bun:"updated_at,nullzero"`
}
