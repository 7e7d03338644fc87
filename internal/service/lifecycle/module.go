package lifecycle

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/procurehub/auctiond/internal/config"
	"github.com/procurehub/auctiond/internal/keyedlock"
	"github.com/procurehub/auctiond/internal/messaging"
	auctionrepo "github.com/procurehub/auctiond/internal/repository/auction"
)

// Module provides the lifecycle service to Fx.
var Module = fx.Provide(NewService)

// Params defines dependencies for constructing the Service.
type Params struct {
	fx.In

	Auctions *auctionrepo.Repository
	Locks    *keyedlock.Locks
	Bus      messaging.Client
	Logger   *zap.Logger
	Config   config.Config
}

// NewService wires the Service from the Fx graph. Broadcaster and timers are
// attached later to keep the graph acyclic.
func NewService(p Params) *Service {
	return New(Deps{
		Auctions: p.Auctions,
		Locks:    p.Locks,
		Bus:      p.Bus,
		Logger:   p.Logger,
		Config:   p.Config.Auction,
	})
}
