package bidding

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/procurehub/auctiond/internal/database"
	"github.com/procurehub/auctiond/internal/entity"
)

var repoTracer = otel.Tracer("github.com/procurehub/auctiond/repository/bidding")

// ErrNotFound is returned when no matching bid exists.
var ErrNotFound = errors.New("bid not found")

// Repository encapsulates the bid store: the single active row per
// (auction, lot, supplier) triple plus the append-only history ledger.
type Repository struct {
	writer *bun.DB
	reader *bun.DB
}

// NewRepository wires a repository backed by configured database connections.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{
		writer: conns.Writer,
		reader: conns.Reader,
	}
}

// GetActive returns the supplier's standing bid for an (auction, lot) pair.
func (r *Repository) GetActive(ctx context.Context, auctionID, lotID, supplierID string) (*entity.Bid, error) {
	ctx, span := repoTracer.Start(ctx, "BidRepository.GetActive", trace.WithAttributes(
		attribute.String("auction.id", auctionID),
		attribute.String("lot.id", lotID),
		attribute.String("supplier.id", supplierID),
	))
	defer span.End()

	bid := new(entity.Bid)
	err := r.reader.NewSelect().Model(bid).
		Where("auction_id = ?", auctionID).
		Where("lot_id = ?", lotID).
		Where("supplier_id = ?", supplierID).
		Where("status = ?", entity.BidActive).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return bid, nil
}

// GetByID fetches a bid regardless of status.
func (r *Repository) GetByID(ctx context.Context, id string) (*entity.Bid, error) {
	ctx, span := repoTracer.Start(ctx, "BidRepository.GetByID", trace.WithAttributes(attribute.String("bid.id", id)))
	defer span.End()

	bid := new(entity.Bid)
	err := r.reader.NewSelect().Model(bid).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return bid, nil
}

// UpsertActive writes the supplier's standing bid, updating in place when an
// active row already exists so the one-active-bid invariant holds. Callers
// hold the per-auction lock, so the select-then-write pair is race-free.
func (r *Repository) UpsertActive(ctx context.Context, bid *entity.Bid) error {
	if bid == nil {
		return errors.New("nil bid")
	}
	ctx, span := repoTracer.Start(ctx, "BidRepository.UpsertActive", trace.WithAttributes(
		attribute.String("auction.id", bid.AuctionID),
		attribute.String("supplier.id", bid.SupplierID),
	))
	defer span.End()

	existing := new(entity.Bid)
	err := r.writer.NewSelect().Model(existing).
		Where("auction_id = ?", bid.AuctionID).
		Where("lot_id = ?", bid.LotID).
		Where("supplier_id = ?", bid.SupplierID).
		Where("status = ?", entity.BidActive).
		Scan(ctx)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		if bid.ID == "" {
			bid.ID = uuid.NewString()
		}
		bid.Status = entity.BidActive
		bid.CreatedAt = time.Now().UTC()
		bid.UpdatedAt = bid.CreatedAt
		if _, err := r.writer.NewInsert().Model(bid).Exec(ctx); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "insert failed")
			return err
		}
		return nil
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return err
	}

	bid.ID = existing.ID
	bid.Status = entity.BidActive
	bid.CreatedAt = existing.CreatedAt
	bid.UpdatedAt = time.Now().UTC()
	if _, err := r.writer.NewUpdate().Model(bid).WherePK().Exec(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return err
	}
	return nil
}

// UpdateStatus flips a bid's status, used for withdrawal.
func (r *Repository) UpdateStatus(ctx context.Context, id string, status entity.BidStatus) error {
	ctx, span := repoTracer.Start(ctx, "BidRepository.UpdateStatus", trace.WithAttributes(attribute.String("bid.id", id)))
	defer span.End()

	_, err := r.writer.NewUpdate().
		Model((*entity.Bid)(nil)).
		Set("status = ?", status).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
	}
	return err
}

// ListActive returns every standing bid for an auction, oldest first so the
// ranking's stable sort preserves submission order on ties.
func (r *Repository) ListActive(ctx context.Context, auctionID string) ([]entity.Bid, error) {
	ctx, span := repoTracer.Start(ctx, "BidRepository.ListActive", trace.WithAttributes(attribute.String("auction.id", auctionID)))
	defer span.End()

	var bids []entity.Bid
	err := r.reader.NewSelect().Model(&bids).
		Where("auction_id = ?", auctionID).
		Where("status = ?", entity.BidActive).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return bids, nil
}

// AppendHistory writes one ledger row mirroring an accepted bid write.
func (r *Repository) AppendHistory(ctx context.Context, entry *entity.BidHistory) error {
	if entry == nil {
		return errors.New("nil history entry")
	}
	ctx, span := repoTracer.Start(ctx, "BidRepository.AppendHistory", trace.WithAttributes(
		attribute.String("auction.id", entry.AuctionID),
		attribute.String("supplier.id", entry.SupplierID),
	))
	defer span.End()

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	entry.CreatedAt = time.Now().UTC()

	if _, err := r.writer.NewInsert().Model(entry).Exec(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		return err
	}
	return nil
}

// ListHistory returns the supplier's ledger entries for an auction, newest
// first.
func (r *Repository) ListHistory(ctx context.Context, auctionID, supplierID string) ([]entity.BidHistory, error) {
	ctx, span := repoTracer.Start(ctx, "BidRepository.ListHistory", trace.WithAttributes(
		attribute.String("auction.id", auctionID),
		attribute.String("supplier.id", supplierID),
	))
	defer span.End()

	var entries []entity.BidHistory
	q := r.reader.NewSelect().Model(&entries).
		Where("auction_id = ?", auctionID).
		Order("created_at DESC").
		Limit(100)
	if supplierID != "" {
		q = q.Where("supplier_id = ?", supplierID)
	}
	if err := q.Scan(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return entries, nil
}
