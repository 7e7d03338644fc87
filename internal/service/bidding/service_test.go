package bidding

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procurehub/auctiond/internal/cache"
	"github.com/procurehub/auctiond/internal/config"
	"github.com/procurehub/auctiond/internal/entity"
	"github.com/procurehub/auctiond/internal/keyedlock"
	auctionrepo "github.com/procurehub/auctiond/internal/repository/auction"
	bidrepo "github.com/procurehub/auctiond/internal/repository/bidding"
	"github.com/procurehub/auctiond/internal/repository/rates"
	supplierrepo "github.com/procurehub/auctiond/internal/repository/supplier"
	"github.com/procurehub/auctiond/internal/service/currency"
	"github.com/procurehub/auctiond/internal/service/ranking"
	"github.com/procurehub/auctiond/pkg/errorbank"
)

type fakeRates map[string]string

func (f fakeRates) Rate(_ context.Context, code string) (decimal.Decimal, error) {
	raw, ok := f[code]
	if !ok {
		return decimal.Zero, rates.ErrNotFound
	}
	return decimal.RequireFromString(raw), nil
}

type fakeAuctions struct {
	mu         sync.Mutex
	auction    *entity.Auction
	settings   *entity.AuctionSettings
	lots       map[string]*entity.Lot
	endUpdates []time.Time
}

func (f *fakeAuctions) Get(_ context.Context, id string) (*entity.Auction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.auction == nil || f.auction.ID != id {
		return nil, auctionrepo.ErrNotFound
	}
	copied := *f.auction
	return &copied, nil
}

func (f *fakeAuctions) GetSettings(_ context.Context, auctionID string) (*entity.AuctionSettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.settings == nil || f.settings.AuctionID != auctionID {
		return nil, auctionrepo.ErrSettingsNotFound
	}
	copied := *f.settings
	return &copied, nil
}

func (f *fakeAuctions) GetLot(_ context.Context, lotID string) (*entity.Lot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lot, ok := f.lots[lotID]
	if !ok {
		return nil, auctionrepo.ErrLotNotFound
	}
	copied := *lot
	return &copied, nil
}

func (f *fakeAuctions) UpdateEndTime(_ context.Context, id string, endTime time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.auction.EndTime = endTime
	f.endUpdates = append(f.endUpdates, endTime)
	return nil
}

type fakeBids struct {
	mu      sync.Mutex
	byID    map[string]*entity.Bid
	history []entity.BidHistory
	seq     int
}

func newFakeBids() *fakeBids {
	return &fakeBids{byID: make(map[string]*entity.Bid)}
}

func (f *fakeBids) findActive(auctionID, lotID, supplierID string) *entity.Bid {
	for _, b := range f.byID {
		if b.AuctionID == auctionID && b.LotID == lotID && b.SupplierID == supplierID && b.Status == entity.BidActive {
			return b
		}
	}
	return nil
}

func (f *fakeBids) GetActive(_ context.Context, auctionID, lotID, supplierID string) (*entity.Bid, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b := f.findActive(auctionID, lotID, supplierID); b != nil {
		copied := *b
		return &copied, nil
	}
	return nil, bidrepo.ErrNotFound
}

func (f *fakeBids) GetByID(_ context.Context, id string) (*entity.Bid, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.byID[id]
	if !ok {
		return nil, bidrepo.ErrNotFound
	}
	copied := *b
	return &copied, nil
}

func (f *fakeBids) UpsertActive(_ context.Context, bid *entity.Bid) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing := f.findActive(bid.AuctionID, bid.LotID, bid.SupplierID); existing != nil {
		bid.ID = existing.ID
		bid.CreatedAt = existing.CreatedAt
	} else {
		f.seq++
		bid.ID = fmt.Sprintf("bid-%d", f.seq)
		bid.CreatedAt = time.Unix(0, int64(f.seq))
	}
	bid.Status = entity.BidActive
	bid.UpdatedAt = time.Now()
	copied := *bid
	f.byID[bid.ID] = &copied
	return nil
}

func (f *fakeBids) UpdateStatus(_ context.Context, id string, status entity.BidStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b, ok := f.byID[id]; ok {
		b.Status = status
	}
	return nil
}

func (f *fakeBids) ListActive(_ context.Context, auctionID string) ([]entity.Bid, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entity.Bid
	for _, b := range f.byID {
		if b.AuctionID == auctionID && b.Status == entity.BidActive {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeBids) AppendHistory(_ context.Context, entry *entity.BidHistory) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.history = append(f.history, *entry)
	return nil
}

func (f *fakeBids) ListHistory(_ context.Context, auctionID, supplierID string) ([]entity.BidHistory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entity.BidHistory
	for i := len(f.history) - 1; i >= 0; i-- {
		h := f.history[i]
		if h.AuctionID != auctionID {
			continue
		}
		if supplierID != "" && h.SupplierID != supplierID {
			continue
		}
		out = append(out, h)
	}
	return out, nil
}

type fakeSuppliers map[string]*entity.Supplier

func (f fakeSuppliers) GetByID(_ context.Context, id string) (*entity.Supplier, error) {
	s, ok := f[id]
	if !ok {
		return nil, supplierrepo.ErrNotFound
	}
	return s, nil
}

type captureBroadcast struct {
	mu    sync.Mutex
	calls [][]ranking.Entry
}

func (c *captureBroadcast) BroadcastRanking(_ string, entries []ranking.Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, entries)
}

func (c *captureBroadcast) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

type captureBus struct {
	mu     sync.Mutex
	events [][]byte
}

func (c *captureBus) Publish(_ context.Context, _ []byte, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, value)
	return nil
}

type memCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string][]byte)}
}

func (m *memCache) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.entries[key]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return v, nil
}

func (m *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = value
	return nil
}

func (m *memCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

type fixture struct {
	svc       *Service
	auctions  *fakeAuctions
	bids      *fakeBids
	broadcast *captureBroadcast
	bus       *captureBus
	cache     *memCache
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newFixture(t *testing.T, direction entity.Direction) *fixture {
	t.Helper()

	auctions := &fakeAuctions{
		auction: &entity.Auction{
			ID:                    "a1",
			Title:                 "Q3 packaging tender",
			Status:                entity.StatusActive,
			DefaultCurrency:       "GBP",
			EndTime:               time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC),
			InvitedSupplierEmails: []string{"s1@supplier.test", "s2@supplier.test"},
		},
		settings: &entity.AuctionSettings{
			ID:               "set-1",
			AuctionID:        "a1",
			BidDirection:     direction,
			MinimumBidChange: dec("2"),
			MaximumBidChange: dec("10"),
		},
		lots: map[string]*entity.Lot{
			"l1": {
				ID:                 "l1",
				AuctionID:          "a1",
				Name:               "corrugated cartons",
				CurrentPrice:       dec("1000"),
				QualificationPrice: dec("1200"),
			},
		},
	}

	fx := &fixture{
		auctions:  auctions,
		bids:      newFakeBids(),
		broadcast: &captureBroadcast{},
		bus:       &captureBus{},
		cache:     newMemCache(),
	}

	suppliers := fakeSuppliers{
		"s1": {ID: "s1", Name: "Acme Supply", Email: "s1@supplier.test"},
		"s2": {ID: "s2", Name: "Borealis Goods", Email: "s2@supplier.test"},
		"s3": {ID: "s3", Name: "Crashed Gate", Email: "s3@supplier.test"},
	}

	fx.svc = New(Deps{
		Auctions:  auctions,
		Bids:      fx.bids,
		Suppliers: suppliers,
		Converter: currency.New(fakeRates{"USD": "1.35", "EUR": "1.15"}, "GBP"),
		Locks:     keyedlock.New(),
		Broadcast: fx.broadcast,
		Cache:     fx.cache,
		Bus:       fx.bus,
		Config: config.Auction{
			ReferenceCurrency: "GBP",
			LockTimeout:       200 * time.Millisecond,
			OpTimeout:         2 * time.Second,
			RankingCacheTTL:   time.Minute,
		},
	})
	return fx
}

func submitInput(supplierID, amount string) SubmitInput {
	return SubmitInput{
		AuctionID:  "a1",
		LotID:      "l1",
		SupplierID: supplierID,
		Amount:     dec(amount),
		Currency:   "GBP",
		Carton:     dec("1"),
	}
}

func requireReason(t *testing.T, err error, reason errorbank.Reason) {
	t.Helper()
	var appErr *errorbank.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, reason, appErr.Reason())
}

func TestSubmitAcceptsBidWithinBand(t *testing.T) {
	fx := newFixture(t, entity.DirectionReverse)

	bid, err := fx.svc.Submit(context.Background(), submitInput("s1", "999"))
	require.NoError(t, err)

	assert.True(t, bid.Amount.Equal(dec("999")))
	assert.True(t, bid.OriginalAmount.Equal(dec("999")))
	assert.Equal(t, "GBP", bid.Currency)
	assert.True(t, bid.FloorPrice.Equal(dec("0")))
	assert.True(t, bid.CeilingPrice.Equal(dec("1100")))
	assert.True(t, bid.TotalCost.Equal(dec("999")), "carton 1, no components")

	assert.Len(t, fx.bids.history, 1)
	assert.Equal(t, "Acme Supply", fx.bids.history[0].SupplierName)
	assert.Equal(t, 1, fx.broadcast.count())
	assert.Len(t, fx.bus.events, 1)
}

func TestSubmitAcceptsCeilingBoundary(t *testing.T) {
	fx := newFixture(t, entity.DirectionReverse)

	_, err := fx.svc.Submit(context.Background(), submitInput("s1", "1100"))
	require.NoError(t, err)
}

func TestSubmitRejectsAboveCeiling(t *testing.T) {
	fx := newFixture(t, entity.DirectionReverse)

	_, err := fx.svc.Submit(context.Background(), submitInput("s1", "1101"))
	requireReason(t, err, errorbank.ReasonOutOfRange)

	active, listErr := fx.bids.ListActive(context.Background(), "a1")
	require.NoError(t, listErr)
	assert.Empty(t, active, "rejected bid must not persist")
	assert.Empty(t, fx.bids.history)
	assert.Zero(t, fx.broadcast.count(), "no broadcast on rejection")
}

func TestSubmitForwardBandIsClosedOnBothSides(t *testing.T) {
	fx := newFixture(t, entity.DirectionForward)
	// forward band: 1020..1100 around current price 1000; qualification gate
	// requires strictly above 1200, so widen the band via the lot instead.
	fx.auctions.lots["l1"].QualificationPrice = dec("1000")

	_, err := fx.svc.Submit(context.Background(), submitInput("s1", "1010"))
	requireReason(t, err, errorbank.ReasonOutOfRange)

	_, err = fx.svc.Submit(context.Background(), submitInput("s1", "1050"))
	require.NoError(t, err)
}

func TestSubmitEnforcesQualificationGate(t *testing.T) {
	fx := newFixture(t, entity.DirectionReverse)
	fx.auctions.lots["l1"].QualificationPrice = dec("1000")

	// Within the band (ceiling 1100) but not strictly below the
	// qualification price.
	_, err := fx.svc.Submit(context.Background(), submitInput("s1", "1000"))
	requireReason(t, err, errorbank.ReasonOutOfRange)

	_, err = fx.svc.Submit(context.Background(), submitInput("s1", "999"))
	require.NoError(t, err)
}

func TestSubmitNormalizesForeignCurrency(t *testing.T) {
	fx := newFixture(t, entity.DirectionReverse)

	in := submitInput("s1", "1350")
	in.Currency = "usd"
	bid, err := fx.svc.Submit(context.Background(), in)
	require.NoError(t, err)

	assert.True(t, bid.Amount.Equal(dec("1000")), "1350 USD at 1.35 is 1000 GBP, got %s", bid.Amount)
	assert.True(t, bid.OriginalAmount.Equal(dec("1350")))
	assert.Equal(t, "USD", bid.Currency)
}

func TestSubmitUnknownCurrencyHasNoFallback(t *testing.T) {
	fx := newFixture(t, entity.DirectionReverse)

	in := submitInput("s1", "999")
	in.Currency = "XXX"
	_, err := fx.svc.Submit(context.Background(), in)
	requireReason(t, err, errorbank.ReasonConversionFailed)
}

func TestSubmitRejectsUninvitedSupplier(t *testing.T) {
	fx := newFixture(t, entity.DirectionReverse)

	_, err := fx.svc.Submit(context.Background(), submitInput("s3", "999"))
	requireReason(t, err, errorbank.ReasonNotInvited)

	_, err = fx.svc.Submit(context.Background(), submitInput("ghost", "999"))
	requireReason(t, err, errorbank.ReasonNotInvited)
}

func TestSubmitRejectsClosedAuction(t *testing.T) {
	for _, status := range []entity.AuctionStatus{entity.StatusDraft, entity.StatusPaused, entity.StatusEnded} {
		t.Run(string(status), func(t *testing.T) {
			fx := newFixture(t, entity.DirectionReverse)
			fx.auctions.auction.Status = status

			_, err := fx.svc.Submit(context.Background(), submitInput("s1", "999"))
			requireReason(t, err, errorbank.ReasonAuctionNotActive)
		})
	}
}

func TestSubmitRejectsInvalidSettings(t *testing.T) {
	fx := newFixture(t, entity.DirectionReverse)
	fx.auctions.settings.MinimumBidChange = dec("10")
	fx.auctions.settings.MaximumBidChange = dec("10")

	_, err := fx.svc.Submit(context.Background(), submitInput("s1", "999"))
	requireReason(t, err, errorbank.ReasonInvalidSettings)
}

func TestSubmitMissingReferencePrice(t *testing.T) {
	fx := newFixture(t, entity.DirectionReverse)
	fx.auctions.lots["l1"].CurrentPrice = decimal.Zero

	_, err := fx.svc.Submit(context.Background(), submitInput("s1", "999"))
	requireReason(t, err, errorbank.ReasonMissingReferencePrice)
}

func TestRepeatSubmitUpsertsWithoutImprovementCheck(t *testing.T) {
	fx := newFixture(t, entity.DirectionReverse)
	ctx := context.Background()

	first, err := fx.svc.Submit(ctx, submitInput("s1", "900"))
	require.NoError(t, err)

	// A second submit may move the price either way; only Revise demands
	// improvement.
	second, err := fx.svc.Submit(ctx, submitInput("s1", "950"))
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "upsert keeps one active row")

	active, err := fx.bids.ListActive(ctx, "a1")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.True(t, active[0].Amount.Equal(dec("950")))
	assert.Len(t, fx.bids.history, 2, "each accepted write appends one ledger row")
}

func TestReviseRequiresStrictImprovement(t *testing.T) {
	fx := newFixture(t, entity.DirectionReverse)
	ctx := context.Background()

	bid, err := fx.svc.Submit(ctx, submitInput("s1", "900"))
	require.NoError(t, err)

	revise := ReviseInput{
		BidID:      bid.ID,
		SupplierID: "s1",
		Amount:     dec("950"),
		Currency:   "GBP",
		Carton:     dec("1"),
	}
	_, err = fx.svc.Revise(ctx, revise)
	requireReason(t, err, errorbank.ReasonNotImproved)

	revise.Amount = dec("900")
	_, err = fx.svc.Revise(ctx, revise)
	requireReason(t, err, errorbank.ReasonNotImproved)

	revise.Amount = dec("850")
	updated, err := fx.svc.Revise(ctx, revise)
	require.NoError(t, err)
	assert.True(t, updated.Amount.Equal(dec("850")))
	assert.Len(t, fx.bids.history, 2)
}

func TestReviseSequenceIsMonotonic(t *testing.T) {
	fx := newFixture(t, entity.DirectionReverse)
	ctx := context.Background()

	bid, err := fx.svc.Submit(ctx, submitInput("s1", "990"))
	require.NoError(t, err)

	prev := bid.Amount
	for _, amount := range []string{"960", "930", "905"} {
		updated, err := fx.svc.Revise(ctx, ReviseInput{
			BidID:      bid.ID,
			SupplierID: "s1",
			Amount:     dec(amount),
			Currency:   "GBP",
			Carton:     dec("1"),
		})
		require.NoError(t, err)
		assert.True(t, updated.Amount.LessThan(prev))
		prev = updated.Amount
	}
}

func TestReviseRejectsWrongOwner(t *testing.T) {
	fx := newFixture(t, entity.DirectionReverse)
	ctx := context.Background()

	bid, err := fx.svc.Submit(ctx, submitInput("s1", "900"))
	require.NoError(t, err)

	_, err = fx.svc.Revise(ctx, ReviseInput{
		BidID:      bid.ID,
		SupplierID: "s2",
		Amount:     dec("850"),
		Currency:   "GBP",
		Carton:     dec("1"),
	})
	var appErr *errorbank.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, errorbank.KindForbidden, appErr.Kind())
}

func TestWithdrawRetiresBid(t *testing.T) {
	fx := newFixture(t, entity.DirectionReverse)
	ctx := context.Background()

	bid, err := fx.svc.Submit(ctx, submitInput("s1", "900"))
	require.NoError(t, err)

	require.NoError(t, fx.svc.Withdraw(ctx, bid.ID, "s1"))

	stored, err := fx.bids.GetByID(ctx, bid.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.BidWithdrawn, stored.Status)

	active, err := fx.bids.ListActive(ctx, "a1")
	require.NoError(t, err)
	assert.Empty(t, active)
	assert.Len(t, fx.bids.history, 2, "withdrawal is mirrored into the ledger")

	// Withdrawing again fails: the bid is no longer active.
	err = fx.svc.Withdraw(ctx, bid.ID, "s1")
	var appErr *errorbank.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, errorbank.KindBadRequest, appErr.Kind())
}

func TestAutoExtensionOnLeadingRevision(t *testing.T) {
	fx := newFixture(t, entity.DirectionReverse)
	fx.auctions.auction.AutoExtension = true
	fx.auctions.auction.ExtensionMinutes = 5
	baseEnd := fx.auctions.auction.EndTime
	ctx := context.Background()

	leader, err := fx.svc.Submit(ctx, submitInput("s1", "900"))
	require.NoError(t, err)
	trailer, err := fx.svc.Submit(ctx, submitInput("s2", "950"))
	require.NoError(t, err)
	assert.Empty(t, fx.auctions.endUpdates, "submissions never extend")

	// s1 takes the strict lead: extend by exactly five minutes.
	_, err = fx.svc.Revise(ctx, ReviseInput{
		BidID: leader.ID, SupplierID: "s1",
		Amount: dec("850"), Currency: "GBP", Carton: dec("1"),
	})
	require.NoError(t, err)
	require.Len(t, fx.auctions.endUpdates, 1)
	assert.Equal(t, baseEnd.Add(5*time.Minute), fx.auctions.endUpdates[0])

	// s2 improves but stays behind 850: no extension.
	_, err = fx.svc.Revise(ctx, ReviseInput{
		BidID: trailer.ID, SupplierID: "s2",
		Amount: dec("940"), Currency: "GBP", Carton: dec("1"),
	})
	require.NoError(t, err)
	assert.Len(t, fx.auctions.endUpdates, 1, "non-leading revision leaves endTime unchanged")
}

func TestAutoExtensionDisabled(t *testing.T) {
	fx := newFixture(t, entity.DirectionReverse)
	ctx := context.Background()

	bid, err := fx.svc.Submit(ctx, submitInput("s1", "900"))
	require.NoError(t, err)

	_, err = fx.svc.Revise(ctx, ReviseInput{
		BidID: bid.ID, SupplierID: "s1",
		Amount: dec("850"), Currency: "GBP", Carton: dec("1"),
	})
	require.NoError(t, err)
	assert.Empty(t, fx.auctions.endUpdates)
}

func TestConcurrentSubmitsBothSucceed(t *testing.T) {
	fx := newFixture(t, entity.DirectionReverse)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	inputs := []SubmitInput{submitInput("s1", "900"), submitInput("s2", "950")}
	for i := range inputs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = fx.svc.Submit(ctx, inputs[i])
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	active, err := fx.bids.ListActive(ctx, "a1")
	require.NoError(t, err)
	assert.Len(t, active, 2)

	assert.Equal(t, 2, fx.broadcast.count(), "one broadcast per accepted write")
	fx.broadcast.mu.Lock()
	defer fx.broadcast.mu.Unlock()
	var sawFullField bool
	for _, call := range fx.broadcast.calls {
		if len(call) == 2 {
			sawFullField = true
		}
	}
	assert.True(t, sawFullField, "the later write broadcasts both bids")
}

func TestLockContentionIsRetryable(t *testing.T) {
	fx := newFixture(t, entity.DirectionReverse)

	release, err := fx.svc.locks.Acquire(context.Background(), lockKey("a1"))
	require.NoError(t, err)
	defer release()

	_, err = fx.svc.Submit(context.Background(), submitInput("s1", "900"))
	var appErr *errorbank.AppError
	require.ErrorAs(t, err, &appErr)
	assert.True(t, appErr.Retryable())
}

func TestRankingCacheAside(t *testing.T) {
	fx := newFixture(t, entity.DirectionReverse)
	ctx := context.Background()

	_, err := fx.svc.Submit(ctx, submitInput("s1", "950"))
	require.NoError(t, err)
	_, err = fx.svc.Submit(ctx, submitInput("s2", "900"))
	require.NoError(t, err)

	entries, err := fx.svc.Ranking(ctx, "a1", "")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "s2", entries[0].SupplierID)
	assert.Equal(t, 1, entries[0].Rank)

	_, ok := fx.cache.entries[rankingCacheKey("a1")]
	assert.True(t, ok, "accepted writes refresh the cached snapshot")

	mine, err := fx.svc.Ranking(ctx, "a1", "s1")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, 2, mine[0].Rank, "filtered view keeps full-field ranks")
}

func TestLotConstraints(t *testing.T) {
	fx := newFixture(t, entity.DirectionReverse)
	ctx := context.Background()

	got, err := fx.svc.LotConstraints(ctx, "a1", "l1", "")
	require.NoError(t, err)
	assert.Equal(t, entity.DirectionReverse, got.Direction)
	assert.Equal(t, "GBP", got.Currency)
	assert.True(t, got.Floor.Equal(dec("0")))
	assert.True(t, got.Ceiling.Equal(dec("1100")))
	assert.True(t, got.QualificationPrice.Equal(dec("1200")))

	inUSD, err := fx.svc.LotConstraints(ctx, "a1", "l1", "USD")
	require.NoError(t, err)
	assert.Equal(t, "USD", inUSD.Currency)
	assert.True(t, inUSD.Ceiling.Equal(dec("1485")), "1100 GBP at 1.35, got %s", inUSD.Ceiling)
}

func TestTotalCostIncludesComponents(t *testing.T) {
	fx := newFixture(t, entity.DirectionReverse)

	in := submitInput("s1", "900")
	in.Carton = dec("2")
	in.Fob = dec("50")
	in.Tax = dec("30")
	in.Duty = dec("20")
	bid, err := fx.svc.Submit(context.Background(), in)
	require.NoError(t, err)

	assert.True(t, bid.TotalCost.Equal(dec("1900")), "900*2+50+30+20, got %s", bid.TotalCost)
}

func TestSubmitValidatesInput(t *testing.T) {
	fx := newFixture(t, entity.DirectionReverse)
	ctx := context.Background()

	in := submitInput("s1", "900")
	in.Amount = dec("-1")
	_, err := fx.svc.Submit(ctx, in)
	var appErr *errorbank.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, errorbank.KindBadRequest, appErr.Kind())

	in = submitInput("s1", "900")
	in.Carton = decimal.Zero
	_, err = fx.svc.Submit(ctx, in)
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, errorbank.KindBadRequest, appErr.Kind())

	in = submitInput("s1", "900")
	in.Fob = dec("-5")
	_, err = fx.svc.Submit(ctx, in)
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, errorbank.KindBadRequest, appErr.Kind())
}

func TestHistoryListing(t *testing.T) {
	fx := newFixture(t, entity.DirectionReverse)
	ctx := context.Background()

	bid, err := fx.svc.Submit(ctx, submitInput("s1", "950"))
	require.NoError(t, err)
	_, err = fx.svc.Submit(ctx, submitInput("s2", "940"))
	require.NoError(t, err)
	_, err = fx.svc.Revise(ctx, ReviseInput{
		BidID: bid.ID, SupplierID: "s1",
		Amount: dec("900"), Currency: "GBP", Carton: dec("1"),
	})
	require.NoError(t, err)

	all, err := fx.svc.History(ctx, "a1", "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.True(t, all[0].Amount.Equal(dec("900")), "newest first")

	mine, err := fx.svc.History(ctx, "a1", "s2")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "s2", mine[0].SupplierID)
}
