package bidding

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event kinds published to the auction event topic.
const (
	EventBidSubmitted = "bid.submitted"
	EventBidRevised   = "bid.revised"
	EventBidWithdrawn = "bid.withdrawn"
)

// Event is the audit record emitted for every accepted bid write. Keyed by
// auction id so one auction's events stay ordered on a single partition.
type Event struct {
	Kind       string          `json:"kind"`
	AuctionID  string          `json:"auctionId"`
	LotID      string          `json:"lotId"`
	BidID      string          `json:"bidId"`
	SupplierID string          `json:"supplierId"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	TotalCost  decimal.Decimal `json:"totalCost"`
	OccurredAt time.Time       `json:"occurredAt"`
}
