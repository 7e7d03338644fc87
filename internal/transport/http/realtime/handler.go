package realtime

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"

	"github.com/procurehub/auctiond/internal/presentation/http/response"
	"github.com/procurehub/auctiond/internal/realtime"
	"github.com/procurehub/auctiond/pkg/errorbank"
)

// Handler upgrades websocket connections into auction rooms.
type Handler struct {
	hub *realtime.Hub
}

// NewHandler constructs a realtime Handler.
func NewHandler(hub *realtime.Hub) *Handler {
	return &Handler{hub: hub}
}

// Register routes with the provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	e.GET("/ws/auctions/:id", h.join)
}

func (h *Handler) join(c echo.Context) error {
	auctionID := c.Param("id")
	if auctionID == "" {
		return response.New(c).WithError(errorbank.BadRequest("auction id is required")).Build()
	}
	return h.hub.Serve(c.Response(), c.Request(), auctionID, c.QueryParam("supplierId"))
}

// Module wires the websocket route.
var Module = fx.Options(
	fx.Provide(NewHandler),
	fx.Invoke(func(e *echo.Echo, h *Handler) {
		Register(e, h)
	}),
)
