package auction

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/procurehub/auctiond/internal/database"
	"github.com/procurehub/auctiond/internal/entity"
)

var repoTracer = otel.Tracer("github.com/procurehub/auctiond/repository/auction")

// Errors for missing aggregate parts.
var (
	ErrNotFound         = errors.New("auction not found")
	ErrSettingsNotFound = errors.New("auction settings not found")
	ErrLotNotFound      = errors.New("lot not found")
	ErrStaleStatus      = errors.New("auction status changed concurrently")
)

// Repository encapsulates read/write access for auctions, their settings,
// and their lots.
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

// Get fetches an auction by id.
func (r *Repository) Get(ctx context.Context, id string) (*entity.Auction, error) {
	ctx, span := repoTracer.Start(ctx, "AuctionRepository.Get", trace.WithAttributes(attribute.String("auction.id", id)))
	defer span.End()

	auction := new(entity.Auction)
	err := r.reader.NewSelect().Model(auction).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return auction, nil
}

// GetSettings fetches the validation settings attached to an auction.
func (r *Repository) GetSettings(ctx context.Context, auctionID string) (*entity.AuctionSettings, error) {
	ctx, span := repoTracer.Start(ctx, "AuctionRepository.GetSettings", trace.WithAttributes(attribute.String("auction.id", auctionID)))
	defer span.End()

	settings := new(entity.AuctionSettings)
	err := r.reader.NewSelect().Model(settings).Where("auction_id = ?", auctionID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrSettingsNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return settings, nil
}

// GetLot fetches a lot by id.
func (r *Repository) GetLot(ctx context.Context, lotID string) (*entity.Lot, error) {
	ctx, span := repoTracer.Start(ctx, "AuctionRepository.GetLot", trace.WithAttributes(attribute.String("lot.id", lotID)))
	defer span.End()

	lot := new(entity.Lot)
	err := r.reader.NewSelect().Model(lot).Where("id = ?", lotID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrLotNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return lot, nil
}

// UpdateStatus persists a lifecycle transition. The previous status guards the
// write so a concurrent transition surfaces as ErrStaleStatus instead of being
// silently overwritten.
func (r *Repository) UpdateStatus(ctx context.Context, id string, from, to entity.AuctionStatus) error {
	ctx, span := repoTracer.Start(ctx, "AuctionRepository.UpdateStatus", trace.WithAttributes(
		attribute.String("auction.id", id),
		attribute.String("auction.status", string(to)),
	))
	defer span.End()

	res, err := r.writer.NewUpdate().
		Model((*entity.Auction)(nil)).
		Set("status = ?", to).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Where("status = ?", from).
		Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return err
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		span.SetStatus(codes.Error, "stale status")
		return ErrStaleStatus
	}
	return nil
}

// UpdateEndTime moves the auction close time, used by auto-extension.
func (r *Repository) UpdateEndTime(ctx context.Context, id string, endTime time.Time) error {
	ctx, span := repoTracer.Start(ctx, "AuctionRepository.UpdateEndTime", trace.WithAttributes(attribute.String("auction.id", id)))
	defer span.End()

	_, err := r.writer.NewUpdate().
		Model((*entity.Auction)(nil)).
		Set("end_time = ?", endTime).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
	}
	return err
}

// ListStartDue returns published auctions whose bidding window has opened.
func (r *Repository) ListStartDue(ctx context.Context, now time.Time) ([]entity.Auction, error) {
	ctx, span := repoTracer.Start(ctx, "AuctionRepository.ListStartDue")
	defer span.End()

	var auctions []entity.Auction
	err := r.reader.NewSelect().Model(&auctions).
		Where("status = ?", entity.StatusPublished).
		Where("start_time <= ?", now).
		Where("end_time > ?", now).
		Scan(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return auctions, nil
}

// ListEndDue returns Active auctions whose close time has passed. Paused
// auctions are deliberately excluded: pause stops the clock.
func (r *Repository) ListEndDue(ctx context.Context, now time.Time) ([]entity.Auction, error) {
	ctx, span := repoTracer.Start(ctx, "AuctionRepository.ListEndDue")
	defer span.End()

	var auctions []entity.Auction
	err := r.reader.NewSelect().Model(&auctions).
		Where("status = ?", entity.StatusActive).
		Where("end_time <= ?", now).
		Scan(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return auctions, nil
}
