package ranking

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/procurehub/auctiond/internal/entity"
)

// Entry is one row of a live ranking snapshot. Ephemeral and derived: it is
// recomputed in full on every trigger, never persisted.
type Entry struct {
	SupplierID string          `json:"supplierId"`
	BidID      string          `json:"bidId"`
	LotID      string          `json:"lotId"`
	TotalCost  decimal.Decimal `json:"totalCost"`
	Rank       int             `json:"rank"`
	Currency   string          `json:"currency"`
}

// Rank orders active bids ascending by total cost and assigns 1-based ranks.
// Lower cost always ranks better regardless of auction direction; totalCost
// already encodes direction. The sort is stable over submission order, so on
// a tie the earlier submission keeps the better rank.
func Rank(bids []entity.Bid) []Entry {
	ordered := make([]entity.Bid, len(bids))
	copy(ordered, bids)

	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].TotalCost.LessThan(ordered[j].TotalCost)
	})

	entries := make([]Entry, len(ordered))
	for i, bid := range ordered {
		entries[i] = Entry{
			SupplierID: bid.SupplierID,
			BidID:      bid.ID,
			LotID:      bid.LotID,
			TotalCost:  bid.TotalCost,
			Rank:       i + 1,
			Currency:   bid.Currency,
		}
	}
	return entries
}

// ForSupplier filters a snapshot down to one supplier's entries, keeping the
// ranks computed against the full field.
func ForSupplier(entries []Entry, supplierID string) []Entry {
	filtered := make([]Entry, 0, 1)
	for _, e := range entries {
		if e.SupplierID == supplierID {
			filtered = append(filtered, e)
		}
	}
	return filtered
}
