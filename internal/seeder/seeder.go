package seeder

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/procurehub/auctiond/internal/database"
	"github.com/procurehub/auctiond/internal/entity"
)

// Seeder performs database seeding for local/dev setups.
type Seeder struct {
	db     *bun.DB
	logger *zap.Logger
}

// New constructs a Seeder backed by the primary database connection.
func New(conns *database.Connections, logger *zap.Logger) *Seeder {
	return &Seeder{db: conns.Writer, logger: logger}
}

// Rates seeds the exchange rate table. Rates are units per 1 GBP. These are
// seed defaults only; the rates table is the single authoritative source at
// runtime and unknown codes fail rather than falling back to these values.
func (s *Seeder) Rates(ctx context.Context) error {
	now := time.Now().UTC()
	samples := []entity.CurrencyRate{
		{Code: "GBP", Rate: decimal.RequireFromString("1"), UpdatedAt: now},
		{Code: "USD", Rate: decimal.RequireFromString("1.35"), UpdatedAt: now},
		{Code: "EUR", Rate: decimal.RequireFromString("1.15"), UpdatedAt: now},
		{Code: "CNY", Rate: decimal.RequireFromString("9.71"), UpdatedAt: now},
		{Code: "INR", Rate: decimal.RequireFromString("116.79"), UpdatedAt: now},
		{Code: "TRY", Rate: decimal.RequireFromString("54.72"), UpdatedAt: now},
		{Code: "VND", Rate: decimal.RequireFromString("35364.06"), UpdatedAt: now},
	}

	for _, sample := range samples {
		rate := sample
		_, err := s.db.NewInsert().Model(&rate).
			On("CONFLICT (code) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return err
		}
	}

	if s.logger != nil {
		s.logger.Info("seeded currency rates", zap.Int("count", len(samples)))
	}
	return nil
}

// Demo seeds a ready-to-publish reverse auction with two invited suppliers.
func (s *Seeder) Demo(ctx context.Context) error {
	now := time.Now().UTC()

	suppliers := []entity.Supplier{
		{ID: "supplier-acme", Name: "Acme Supply", Email: "bids@acme.test", CreatedAt: now},
		{ID: "supplier-borealis", Name: "Borealis Goods", Email: "tenders@borealis.test", CreatedAt: now},
	}
	for _, sample := range suppliers {
		supplier := sample
		if _, err := s.db.NewInsert().Model(&supplier).
			On("CONFLICT (id) DO NOTHING").
			Exec(ctx); err != nil {
			return err
		}
	}

	auction := entity.Auction{
		ID:               "demo-auction",
		Title:            "Demo packaging tender",
		Status:           entity.StatusDraft,
		DefaultCurrency:  "GBP",
		StartTime:        now.Add(time.Hour),
		EndTime:          now.Add(25 * time.Hour),
		AutoExtension:    true,
		ExtensionMinutes: 5,
		InvitedSupplierEmails: []string{
			"bids@acme.test",
			"tenders@borealis.test",
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.db.NewInsert().Model(&auction).
		On("CONFLICT (id) DO NOTHING").
		Exec(ctx); err != nil {
		return err
	}

	settings := entity.AuctionSettings{
		ID:               "demo-auction-settings",
		AuctionID:        auction.ID,
		BidDirection:     entity.DirectionReverse,
		MinimumBidChange: decimal.RequireFromString("2"),
		MaximumBidChange: decimal.RequireFromString("10"),
	}
	if _, err := s.db.NewInsert().Model(&settings).
		On("CONFLICT (id) DO NOTHING").
		Exec(ctx); err != nil {
		return err
	}

	lot := entity.Lot{
		ID:                 "demo-lot",
		AuctionID:          auction.ID,
		Name:               "Corrugated cartons, bulk",
		Quantity:           10000,
		UnitOfMeasure:      "carton",
		CurrentPrice:       decimal.RequireFromString("1000"),
		QualificationPrice: decimal.RequireFromString("1200"),
	}
	if _, err := s.db.NewInsert().Model(&lot).
		On("CONFLICT (id) DO NOTHING").
		Exec(ctx); err != nil {
		return err
	}

	if s.logger != nil {
		s.logger.Info("seeded demo auction", zap.String("auction_id", auction.ID))
	}
	return nil
}
