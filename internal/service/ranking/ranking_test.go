package ranking

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procurehub/auctiond/internal/entity"
)

func bid(id, supplier string, totalCost int64) entity.Bid {
	return entity.Bid{
		ID:         id,
		SupplierID: supplier,
		TotalCost:  decimal.NewFromInt(totalCost),
		Currency:   "GBP",
		Status:     entity.BidActive,
	}
}

func TestRankOrdersByTotalCostAscending(t *testing.T) {
	entries := Rank([]entity.Bid{
		bid("b1", "s1", 300),
		bid("b2", "s2", 100),
		bid("b3", "s3", 200),
	})

	require.Len(t, entries, 3)
	assert.Equal(t, "s2", entries[0].SupplierID)
	assert.Equal(t, "s3", entries[1].SupplierID)
	assert.Equal(t, "s1", entries[2].SupplierID)

	for i, e := range entries {
		assert.Equal(t, i+1, e.Rank)
	}
}

func TestRankTiesKeepSubmissionOrder(t *testing.T) {
	// Input arrives oldest-first from the store; the stable sort must keep
	// the earlier submission ahead on equal cost.
	entries := Rank([]entity.Bid{
		bid("early", "s1", 100),
		bid("late", "s2", 100),
	})

	require.Len(t, entries, 2)
	assert.Equal(t, "early", entries[0].BidID)
	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, "late", entries[1].BidID)
	assert.Equal(t, 2, entries[1].Rank)
}

func TestRankIsDeterministic(t *testing.T) {
	bids := []entity.Bid{
		bid("b1", "s1", 500),
		bid("b2", "s2", 100),
		bid("b3", "s3", 100),
		bid("b4", "s4", 250),
	}

	first := Rank(bids)
	second := Rank(bids)
	assert.Equal(t, first, second)
}

func TestRankDoesNotMutateInput(t *testing.T) {
	bids := []entity.Bid{
		bid("b1", "s1", 300),
		bid("b2", "s2", 100),
	}

	Rank(bids)
	assert.Equal(t, "b1", bids[0].ID)
	assert.Equal(t, "b2", bids[1].ID)
}

func TestRankEmpty(t *testing.T) {
	assert.Empty(t, Rank(nil))
}

func TestForSupplier(t *testing.T) {
	entries := Rank([]entity.Bid{
		bid("b1", "s1", 300),
		bid("b2", "s2", 100),
	})

	mine := ForSupplier(entries, "s1")
	require.Len(t, mine, 1)
	assert.Equal(t, "b1", mine[0].BidID)
	assert.Equal(t, 2, mine[0].Rank, "rank is computed against the full field")

	assert.Empty(t, ForSupplier(entries, "s9"))
}
