package rates

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/procurehub/auctiond/internal/cache"
	"github.com/procurehub/auctiond/internal/config"
	"github.com/procurehub/auctiond/internal/database"
	"github.com/procurehub/auctiond/internal/entity"
)

var repoTracer = otel.Tracer("github.com/procurehub/auctiond/repository/rates")

// ErrNotFound is returned when no rate is configured for a currency code.
var ErrNotFound = errors.New("currency rate not found")

// Repository reads the authoritative currency-rate table with a cache-aside
// layer in front of it. The table is read-only from the bidding core.
type Repository struct {
	reader   *bun.DB
	cache    cache.Store
	cacheTTL time.Duration
	logger   *zap.Logger
}

// Params defines dependencies for constructing Repository.
type Params struct {
	fx.In

	Connections *database.Connections
	Cache       cache.Store
	Config      config.Config
	Logger      *zap.Logger
}

// NewRepository wires a rate repository backed by the read connection.
func NewRepository(p Params) *Repository {
	return &Repository{
		reader:   p.Connections.Reader,
		cache:    p.Cache,
		cacheTTL: p.Config.Auction.RateCacheTTL,
		logger:   p.Logger,
	}
}

// Rate returns how many units of code equal one reference unit.
func (r *Repository) Rate(ctx context.Context, code string) (decimal.Decimal, error) {
	code = strings.ToUpper(strings.TrimSpace(code))

	ctx, span := repoTracer.Start(ctx, "RateRepository.Rate", trace.WithAttributes(attribute.String("currency.code", code)))
	defer span.End()

	if cached, err := r.cache.Get(ctx, cacheKey(code)); err == nil {
		if rate, parseErr := decimal.NewFromString(string(cached)); parseErr == nil {
			return rate, nil
		}
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		r.logger.Warn("rate cache read failed", zap.String("code", code), zap.Error(err))
	}

	row := new(entity.CurrencyRate)
	err := r.reader.NewSelect().Model(row).Where("code = ?", code).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return decimal.Zero, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return decimal.Zero, err
	}

	if err := r.cache.Set(ctx, cacheKey(code), []byte(row.Rate.String()), r.cacheTTL); err != nil {
		r.logger.Warn("rate cache write failed", zap.String("code", code), zap.Error(err))
	}

	return row.Rate, nil
}

func cacheKey(code string) string {
	return "rates:" + code
}
