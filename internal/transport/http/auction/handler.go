package auction

import (
	"context"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/procurehub/auctiond/internal/dto"
	"github.com/procurehub/auctiond/internal/entity"
	"github.com/procurehub/auctiond/internal/presentation/http/response"
	service "github.com/procurehub/auctiond/internal/service/lifecycle"
)

var httpTracer = otel.Tracer("github.com/procurehub/auctiond/transport/http/auction")

// Handler exposes owner-facing auction lifecycle endpoints over HTTP.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs an auction Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with the provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	g := e.Group("/auctions/:id")
	g.GET("", h.get)
	g.POST("/publish", h.transition("publish", (*service.Service).Publish))
	g.POST("/pause", h.transition("pause", (*service.Service).Pause))
	g.POST("/resume", h.transition("resume", (*service.Service).Resume))
	g.POST("/end", h.transition("end", (*service.Service).End))
}

func (h *Handler) get(c echo.Context) error {
	b := response.New(c)

	ctx, span := httpTracer.Start(c.Request().Context(), "auctions.get", trace.WithAttributes(
		attribute.String("auction.id", c.Param("id")),
	))
	defer span.End()

	auction, err := h.svc.Get(ctx, c.Param("id"))
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(toDTO(auction)).Build()
}

func (h *Handler) transition(name string, op func(*service.Service, context.Context, string) error) echo.HandlerFunc {
	return func(c echo.Context) error {
		b := response.New(c)

		ctx, span := httpTracer.Start(c.Request().Context(), "auctions."+name, trace.WithAttributes(
			attribute.String("auction.id", c.Param("id")),
		))
		defer span.End()

		if err := op(h.svc, ctx, c.Param("id")); err != nil {
			return b.WithError(err).Build()
		}

		auction, err := h.svc.Get(ctx, c.Param("id"))
		if err != nil {
			return b.WithError(err).Build()
		}
		return b.WithData(toDTO(auction)).Build()
	}
}

func toDTO(auction *entity.Auction) dto.AuctionResponse {
	return dto.AuctionResponse{
		ID:               auction.ID,
		Title:            auction.Title,
		Status:           string(auction.Status),
		DefaultCurrency:  auction.DefaultCurrency,
		StartTime:        auction.StartTime,
		EndTime:          auction.EndTime,
		AutoExtension:    auction.AutoExtension,
		ExtensionMinutes: auction.ExtensionMinutes,
		CreatedAt:        auction.CreatedAt,
		UpdatedAt:        auction.UpdatedAt,
	}
}
