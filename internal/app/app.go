package app

import (
	"go.uber.org/fx"

	"github.com/procurehub/auctiond/internal/cache"
	"github.com/procurehub/auctiond/internal/config"
	"github.com/procurehub/auctiond/internal/database"
	"github.com/procurehub/auctiond/internal/keyedlock"
	"github.com/procurehub/auctiond/internal/logger"
	"github.com/procurehub/auctiond/internal/messaging"
	"github.com/procurehub/auctiond/internal/observability"
	"github.com/procurehub/auctiond/internal/realtime"
	repositoryauction "github.com/procurehub/auctiond/internal/repository/auction"
	repositorybidding "github.com/procurehub/auctiond/internal/repository/bidding"
	repositoryrates "github.com/procurehub/auctiond/internal/repository/rates"
	repositorysupplier "github.com/procurehub/auctiond/internal/repository/supplier"
	"github.com/procurehub/auctiond/internal/scheduler"
	grpcserver "github.com/procurehub/auctiond/internal/server/grpc"
	httpserver "github.com/procurehub/auctiond/internal/server/http"
	servicebidding "github.com/procurehub/auctiond/internal/service/bidding"
	servicecurrency "github.com/procurehub/auctiond/internal/service/currency"
	servicelifecycle "github.com/procurehub/auctiond/internal/service/lifecycle"
	transporthttp "github.com/procurehub/auctiond/internal/transport/http"
	"github.com/procurehub/auctiond/internal/worker"
	workerbidding "github.com/procurehub/auctiond/internal/worker/bidding"
)

// Core provides the foundational modules shared across executables.
var Core = fx.Options(
	config.Module,
	cache.Module,
	database.Module,
	logger.Module,
	messaging.Module,
	observability.Module,
	keyedlock.Module,
	repositoryauction.Module,
	repositorybidding.Module,
	repositoryrates.Module,
	repositorysupplier.Module,
	servicecurrency.Module,
	servicebidding.Module,
	servicelifecycle.Module,
)

// HTTP wires the HTTP transport, websocket hub and lifecycle scheduler on
// top of the core modules.
var HTTP = fx.Options(
	Core,
	realtime.Module,
	httpserver.Module,
	grpcserver.Module,
	transporthttp.Module,
	fx.Provide(func(svc *servicelifecycle.Service) scheduler.Sweeper { return svc }),
	scheduler.Module,
	fx.Invoke(attachRealtime),
	fx.Invoke(attachTimers),
)

// Worker exposes background worker processing.
var Worker = fx.Options(
	Core,
	worker.Module,
	workerbidding.Module,
)

// Module is the default application wiring (HTTP only).
var Module = HTTP

// attachRealtime closes the loop between the hub and the services: the hub
// needs ranking snapshots for fresh joins, the services need the hub for
// room fan-out.
func attachRealtime(hub *realtime.Hub, bids *servicebidding.Service, lifecycle *servicelifecycle.Service) {
	hub.SetSnapshotProvider(bids)
	bids.SetBroadcaster(hub)
	lifecycle.SetBroadcaster(hub)
}

// attachTimers lets lifecycle transitions arm precise boundary wakeups on
// the scheduler that drives them.
func attachTimers(engine *scheduler.Engine, lifecycle *servicelifecycle.Service) {
	lifecycle.SetTimers(engine)
}
