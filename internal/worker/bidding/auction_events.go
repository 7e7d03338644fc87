package bidding

import (
	"context"
	"encoding/json"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/procurehub/auctiond/internal/config"
	"github.com/procurehub/auctiond/internal/messaging"
	"github.com/procurehub/auctiond/internal/worker"
)

var workerTracer = otel.Tracer("github.com/procurehub/auctiond/worker/bidding")

// Module registers the auction event audit handler.
var Module = fx.Module("worker_bidding",
	fx.Provide(
		fx.Annotate(
			NewAuctionEventHandler,
			fx.ResultTags(`group:"worker.handlers"`),
		),
	),
)

// auctionEvent is the superset envelope of bid and lifecycle events carried
// on the auction topic.
type auctionEvent struct {
	Kind       string    `json:"kind"`
	AuctionID  string    `json:"auctionId"`
	LotID      string    `json:"lotId"`
	BidID      string    `json:"bidId"`
	SupplierID string    `json:"supplierId"`
	Status     string    `json:"status"`
	OccurredAt time.Time `json:"occurredAt"`
}

// NewAuctionEventHandler sets up a worker handler that writes the audit log
// line for every event on the auction topic.
func NewAuctionEventHandler(logger *zap.Logger, cfg config.Config) worker.HandlerRegistration {
	handler := func(ctx context.Context, msg messaging.Message) error {
		ctx, span := workerTracer.Start(ctx, "worker.auctions.process", trace.WithAttributes(
			attribute.String("messaging.topic", msg.Topic),
		))
		defer span.End()

		var event auctionEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			logger.Error("failed to decode auction event", zap.Error(err))

			span.RecordError(err)
			span.SetStatus(codes.Error, "decode error")
			return err
		}
		span.SetAttributes(
			attribute.String("event.kind", event.Kind),
			attribute.String("auction.id", event.AuctionID),
		)
		logger.Info("auction event processed",
			zap.String("kind", event.Kind),
			zap.String("auction_id", event.AuctionID),
			zap.String("bid_id", event.BidID),
			zap.String("supplier_id", event.SupplierID),
			zap.String("status", event.Status),
			zap.Time("occurred_at", event.OccurredAt),
		)

		return nil
	}

	return worker.HandlerRegistration{
		Topic:   cfg.Messaging.Kafka.Topic,
		Handler: handler,
	}
}
