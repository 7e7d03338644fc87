package http

import (
	"go.uber.org/fx"

	auctiontransport "github.com/procurehub/auctiond/internal/transport/http/auction"
	biddingtransport "github.com/procurehub/auctiond/internal/transport/http/bidding"
	realtimetransport "github.com/procurehub/auctiond/internal/transport/http/realtime"
)

// Module aggregates all HTTP transport handlers.
var Module = fx.Options(
	auctiontransport.Module,
	biddingtransport.Module,
	realtimetransport.Module,
)
