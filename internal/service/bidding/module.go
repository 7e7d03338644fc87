package bidding

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/procurehub/auctiond/internal/cache"
	"github.com/procurehub/auctiond/internal/config"
	"github.com/procurehub/auctiond/internal/keyedlock"
	"github.com/procurehub/auctiond/internal/messaging"
	auctionrepo "github.com/procurehub/auctiond/internal/repository/auction"
	bidrepo "github.com/procurehub/auctiond/internal/repository/bidding"
	supplierrepo "github.com/procurehub/auctiond/internal/repository/supplier"
	"github.com/procurehub/auctiond/internal/service/currency"
)

// Module provides the bidding service to Fx.
var Module = fx.Provide(NewService)

// Params defines dependencies for constructing the Service.
type Params struct {
	fx.In

	Auctions  *auctionrepo.Repository
	Bids      *bidrepo.Repository
	Suppliers *supplierrepo.Repository
	Converter *currency.Converter
	Locks     *keyedlock.Locks
	Cache     cache.Store
	Bus       messaging.Client
	Logger    *zap.Logger
	Config    config.Config
}

// NewService wires the Service from the Fx graph. The realtime broadcaster is
// attached later via SetBroadcaster to keep the graph acyclic.
func NewService(p Params) *Service {
	return New(Deps{
		Auctions:  p.Auctions,
		Bids:      p.Bids,
		Suppliers: p.Suppliers,
		Converter: p.Converter,
		Locks:     p.Locks,
		Cache:     p.Cache,
		Bus:       p.Bus,
		Logger:    p.Logger,
		Config:    p.Config.Auction,
	})
}
