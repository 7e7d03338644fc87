package supplier

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/procurehub/auctiond/internal/database"
	"github.com/procurehub/auctiond/internal/entity"
)

var repoTracer = otel.Tracer("github.com/procurehub/auctiond/repository/supplier")

// ErrNotFound is returned when a supplier identity is missing.
var ErrNotFound = errors.New("supplier not found")

// Repository resolves supplier identities for invitation checks.
type Repository struct {
	reader *bun.DB
}

// NewRepository wires a repository backed by the read connection.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{reader: conns.Reader}
}

// GetByID fetches a supplier by id.
func (r *Repository) GetByID(ctx context.Context, id string) (*entity.Supplier, error) {
	ctx, span := repoTracer.Start(ctx, "SupplierRepository.GetByID", trace.WithAttributes(attribute.String("supplier.id", id)))
	defer span.End()

	s := new(entity.Supplier)
	err := r.reader.NewSelect().Model(s).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return s, nil
}
