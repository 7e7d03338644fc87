package bidding

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/procurehub/auctiond/internal/dto"
	"github.com/procurehub/auctiond/internal/entity"
	"github.com/procurehub/auctiond/internal/presentation/http/response"
	service "github.com/procurehub/auctiond/internal/service/bidding"
	"github.com/procurehub/auctiond/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/procurehub/auctiond/transport/http/bidding")

// Handler exposes bid submission, revision and ranking endpoints over HTTP.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs a bidding Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with the provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	g := e.Group("/auctions/:id")
	g.POST("/bids", h.submit)
	g.PUT("/bids/:bidId", h.revise)
	g.DELETE("/bids/:bidId", h.withdraw)
	g.GET("/bids/history", h.history)
	g.GET("/ranking", h.ranking)
	g.GET("/lots/:lotId/constraints", h.constraints)
}

func (h *Handler) submit(c echo.Context) error {
	b := response.New(c)

	var payload dto.BidRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}
	if payload.Carton.IsZero() {
		payload.Carton = decimal.NewFromInt(1)
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "bids.submit", trace.WithAttributes(
		attribute.String("auction.id", c.Param("id")),
		attribute.String("supplier.id", payload.SupplierID),
	))
	defer span.End()

	bid, err := h.svc.Submit(ctx, service.SubmitInput{
		AuctionID:  c.Param("id"),
		LotID:      payload.LotID,
		SupplierID: payload.SupplierID,
		Amount:     payload.Amount,
		Currency:   payload.Currency,
		Fob:        payload.Fob,
		Carton:     payload.Carton,
		Tax:        payload.Tax,
		Duty:       payload.Duty,
	})
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithStatus(http.StatusCreated).WithData(toBidDTO(bid)).Build()
}

func (h *Handler) revise(c echo.Context) error {
	b := response.New(c)

	var payload dto.BidRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}
	if payload.Carton.IsZero() {
		payload.Carton = decimal.NewFromInt(1)
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "bids.revise", trace.WithAttributes(
		attribute.String("bid.id", c.Param("bidId")),
		attribute.String("supplier.id", payload.SupplierID),
	))
	defer span.End()

	bid, err := h.svc.Revise(ctx, service.ReviseInput{
		BidID:      c.Param("bidId"),
		SupplierID: payload.SupplierID,
		Amount:     payload.Amount,
		Currency:   payload.Currency,
		Fob:        payload.Fob,
		Carton:     payload.Carton,
		Tax:        payload.Tax,
		Duty:       payload.Duty,
	})
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(toBidDTO(bid)).Build()
}

func (h *Handler) withdraw(c echo.Context) error {
	b := response.New(c)

	supplierID := c.QueryParam("supplierId")

	ctx, span := httpTracer.Start(c.Request().Context(), "bids.withdraw", trace.WithAttributes(
		attribute.String("bid.id", c.Param("bidId")),
		attribute.String("supplier.id", supplierID),
	))
	defer span.End()

	if err := h.svc.Withdraw(ctx, c.Param("bidId"), supplierID); err != nil {
		return b.WithError(err).Build()
	}
	return b.WithStatus(http.StatusNoContent).Build()
}

func (h *Handler) ranking(c echo.Context) error {
	b := response.New(c)

	ctx, span := httpTracer.Start(c.Request().Context(), "bids.ranking", trace.WithAttributes(
		attribute.String("auction.id", c.Param("id")),
	))
	defer span.End()

	entries, err := h.svc.Ranking(ctx, c.Param("id"), c.QueryParam("supplierId"))
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(entries).Build()
}

func (h *Handler) constraints(c echo.Context) error {
	b := response.New(c)

	ctx, span := httpTracer.Start(c.Request().Context(), "bids.constraints", trace.WithAttributes(
		attribute.String("auction.id", c.Param("id")),
		attribute.String("lot.id", c.Param("lotId")),
	))
	defer span.End()

	constraints, err := h.svc.LotConstraints(ctx, c.Param("id"), c.Param("lotId"), c.QueryParam("currency"))
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(dto.ConstraintsResponse{
		Direction:          string(constraints.Direction),
		Currency:           constraints.Currency,
		Floor:              constraints.Floor,
		Ceiling:            constraints.Ceiling,
		QualificationPrice: constraints.QualificationPrice,
	}).Build()
}

func (h *Handler) history(c echo.Context) error {
	b := response.New(c)

	ctx, span := httpTracer.Start(c.Request().Context(), "bids.history", trace.WithAttributes(
		attribute.String("auction.id", c.Param("id")),
	))
	defer span.End()

	entries, err := h.svc.History(ctx, c.Param("id"), c.QueryParam("supplierId"))
	if err != nil {
		return b.WithError(err).Build()
	}

	out := make([]dto.BidHistoryResponse, len(entries))
	for i, e := range entries {
		out[i] = dto.BidHistoryResponse{
			ID:             e.ID,
			AuctionID:      e.AuctionID,
			LotID:          e.LotID,
			SupplierID:     e.SupplierID,
			SupplierName:   e.SupplierName,
			Amount:         e.Amount,
			OriginalAmount: e.OriginalAmount,
			Currency:       e.Currency,
			TotalCost:      e.TotalCost,
			CreatedAt:      e.CreatedAt,
		}
	}
	return b.WithData(out).Build()
}

func toBidDTO(bid *entity.Bid) dto.BidResponse {
	return dto.BidResponse{
		ID:             bid.ID,
		AuctionID:      bid.AuctionID,
		LotID:          bid.LotID,
		SupplierID:     bid.SupplierID,
		Amount:         bid.Amount,
		OriginalAmount: bid.OriginalAmount,
		Currency:       bid.Currency,
		TotalCost:      bid.TotalCost,
		FloorPrice:     bid.FloorPrice,
		CeilingPrice:   bid.CeilingPrice,
		Status:         string(bid.Status),
		CreatedAt:      bid.CreatedAt,
		UpdatedAt:      bid.UpdatedAt,
	}
}
