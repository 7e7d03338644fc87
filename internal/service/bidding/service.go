package bidding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/procurehub/auctiond/internal/cache"
	"github.com/procurehub/auctiond/internal/config"
	"github.com/procurehub/auctiond/internal/entity"
	"github.com/procurehub/auctiond/internal/keyedlock"
	auctionrepo "github.com/procurehub/auctiond/internal/repository/auction"
	bidrepo "github.com/procurehub/auctiond/internal/repository/bidding"
	supplierrepo "github.com/procurehub/auctiond/internal/repository/supplier"
	"github.com/procurehub/auctiond/internal/service/currency"
	"github.com/procurehub/auctiond/internal/service/ranking"
	"github.com/procurehub/auctiond/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/procurehub/auctiond/service/bidding")

// AuctionStore is the auction aggregate access the bidding core needs.
type AuctionStore interface {
	Get(ctx context.Context, id string) (*entity.Auction, error)
	GetSettings(ctx context.Context, auctionID string) (*entity.AuctionSettings, error)
	GetLot(ctx context.Context, lotID string) (*entity.Lot, error)
	UpdateEndTime(ctx context.Context, id string, endTime time.Time) error
}

// BidStore persists standing bids and the history ledger.
type BidStore interface {
	GetActive(ctx context.Context, auctionID, lotID, supplierID string) (*entity.Bid, error)
	GetByID(ctx context.Context, id string) (*entity.Bid, error)
	UpsertActive(ctx context.Context, bid *entity.Bid) error
	UpdateStatus(ctx context.Context, id string, status entity.BidStatus) error
	ListActive(ctx context.Context, auctionID string) ([]entity.Bid, error)
	AppendHistory(ctx context.Context, entry *entity.BidHistory) error
	ListHistory(ctx context.Context, auctionID, supplierID string) ([]entity.BidHistory, error)
}

// SupplierDirectory resolves supplier identities for invitation checks.
type SupplierDirectory interface {
	GetByID(ctx context.Context, id string) (*entity.Supplier, error)
}

// Broadcaster pushes ranking snapshots to connected auction rooms.
type Broadcaster interface {
	BroadcastRanking(auctionID string, entries []ranking.Entry)
}

// Publisher emits audit events onto the message bus.
type Publisher interface {
	Publish(ctx context.Context, key []byte, value []byte) error
}

// NopBroadcaster discards snapshots; used until the realtime hub is attached
// and by tests that do not care about fan-out.
type NopBroadcaster struct{}

func (NopBroadcaster) BroadcastRanking(string, []ranking.Entry) {}

// Service is the bidding core: it validates candidate bids, enforces the
// one-active-bid invariant under a per-auction lock, keeps the history ledger,
// and recomputes the live ranking on every accepted write.
type Service struct {
	auctions  AuctionStore
	bids      BidStore
	suppliers SupplierDirectory
	converter *currency.Converter
	locks     *keyedlock.Locks
	broadcast Broadcaster
	store     cache.Store
	bus       Publisher
	logger    *zap.Logger
	cfg       config.Auction
}

// Deps collects everything a Service needs; tests construct it with fakes.
type Deps struct {
	Auctions  AuctionStore
	Bids      BidStore
	Suppliers SupplierDirectory
	Converter *currency.Converter
	Locks     *keyedlock.Locks
	Broadcast Broadcaster
	Cache     cache.Store
	Bus       Publisher
	Logger    *zap.Logger
	Config    config.Auction
}

// New builds a Service from explicit dependencies.
func New(d Deps) *Service {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Broadcast == nil {
		d.Broadcast = NopBroadcaster{}
	}
	return &Service{
		auctions:  d.Auctions,
		bids:      d.Bids,
		suppliers: d.Suppliers,
		converter: d.Converter,
		locks:     d.Locks,
		broadcast: d.Broadcast,
		store:     d.Cache,
		bus:       d.Bus,
		logger:    d.Logger,
		cfg:       d.Config,
	}
}

// SetBroadcaster attaches the realtime hub after construction. The hub and
// the service reference each other, so the app wires this side explicitly.
func (s *Service) SetBroadcaster(b Broadcaster) {
	if b != nil {
		s.broadcast = b
	}
}

// SubmitInput is a candidate first bid.
type SubmitInput struct {
	AuctionID  string
	LotID      string
	SupplierID string
	Amount     decimal.Decimal
	Currency   string
	Fob        decimal.Decimal
	Carton     decimal.Decimal
	Tax        decimal.Decimal
	Duty       decimal.Decimal
}

func (in SubmitInput) validate() error {
	if in.AuctionID == "" || in.LotID == "" || in.SupplierID == "" {
		return errorbank.BadRequest("auctionId, lotId and supplierId are required")
	}
	return validateMoney(in.Amount, in.Currency, in.Carton, in.Fob, in.Tax, in.Duty)
}

// ReviseInput replaces a standing bid's price and cost components.
type ReviseInput struct {
	BidID      string
	SupplierID string
	Amount     decimal.Decimal
	Currency   string
	Fob        decimal.Decimal
	Carton     decimal.Decimal
	Tax        decimal.Decimal
	Duty       decimal.Decimal
}

func (in ReviseInput) validate() error {
	if in.BidID == "" || in.SupplierID == "" {
		return errorbank.BadRequest("bidId and supplierId are required")
	}
	return validateMoney(in.Amount, in.Currency, in.Carton, in.Fob, in.Tax, in.Duty)
}

func validateMoney(amount decimal.Decimal, code string, carton, fob, tax, duty decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return errorbank.BadRequest("bid amount must be positive")
	}
	if code == "" {
		return errorbank.BadRequest("currency is required")
	}
	if carton.Sign() <= 0 {
		return errorbank.BadRequest("carton count must be positive")
	}
	if fob.Sign() < 0 || tax.Sign() < 0 || duty.Sign() < 0 {
		return errorbank.BadRequest("cost components must not be negative")
	}
	return nil
}

// Submit places a supplier's first bid on a lot. Submitting again while a bid
// already stands replaces it in place without the improvement requirement;
// each accepted write appends exactly one history row.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*entity.Bid, error) {
	ctx, span := serviceTracer.Start(ctx, "BiddingService.Submit", trace.WithAttributes(
		attribute.String("auction.id", in.AuctionID),
		attribute.String("supplier.id", in.SupplierID),
	))
	defer span.End()

	if err := in.validate(); err != nil {
		return nil, err
	}

	var (
		bid     *entity.Bid
		entries []ranking.Entry
	)
	err := s.withAuctionLock(ctx, in.AuctionID, func(ctx context.Context) error {
		var err error
		bid, entries, err = s.submitLocked(ctx, in)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.afterWrite(ctx, EventBidSubmitted, bid, entries)
	return bid, nil
}

func (s *Service) submitLocked(ctx context.Context, in SubmitInput) (*entity.Bid, []ranking.Entry, error) {
	auction, supplier, err := s.admission(ctx, in.AuctionID, in.SupplierID)
	if err != nil {
		return nil, nil, err
	}

	settings, lot, err := s.loadLot(ctx, auction.ID, in.LotID)
	if err != nil {
		return nil, nil, err
	}

	validation, err := s.validateCandidate(ctx, in.Amount, in.Currency, settings, lot)
	if err != nil {
		return nil, nil, err
	}

	bid := s.buildBid(in, validation)
	if err := s.bids.UpsertActive(ctx, bid); err != nil {
		return nil, nil, errorbank.Unavailable("could not persist bid", errorbank.WithCause(err))
	}
	s.appendHistory(ctx, bid, supplier.Name)

	entries, err := s.refreshRanking(ctx, auction.ID)
	if err != nil {
		return nil, nil, err
	}
	return bid, entries, nil
}

// Revise replaces a standing bid. Unlike Submit, the new amount must strictly
// improve on the previous one in the auction's direction, compared in the new
// submission currency. A revision that takes the strict lead extends the
// close time on auto-extension auctions.
func (s *Service) Revise(ctx context.Context, in ReviseInput) (*entity.Bid, error) {
	ctx, span := serviceTracer.Start(ctx, "BiddingService.Revise", trace.WithAttributes(
		attribute.String("bid.id", in.BidID),
		attribute.String("supplier.id", in.SupplierID),
	))
	defer span.End()

	if err := in.validate(); err != nil {
		return nil, err
	}

	prev, err := s.loadOwnedBid(ctx, in.BidID, in.SupplierID)
	if err != nil {
		return nil, err
	}

	var (
		bid     *entity.Bid
		entries []ranking.Entry
	)
	err = s.withAuctionLock(ctx, prev.AuctionID, func(ctx context.Context) error {
		var err error
		bid, entries, err = s.reviseLocked(ctx, in)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.afterWrite(ctx, EventBidRevised, bid, entries)
	return bid, nil
}

func (s *Service) reviseLocked(ctx context.Context, in ReviseInput) (*entity.Bid, []ranking.Entry, error) {
	// Reload under the lock; the pre-lock read only located the auction.
	prev, err := s.loadOwnedBid(ctx, in.BidID, in.SupplierID)
	if err != nil {
		return nil, nil, err
	}

	auction, supplier, err := s.admission(ctx, prev.AuctionID, in.SupplierID)
	if err != nil {
		return nil, nil, err
	}

	settings, lot, err := s.loadLot(ctx, auction.ID, prev.LotID)
	if err != nil {
		return nil, nil, err
	}

	if err := s.checkImprovement(ctx, in.Amount, in.Currency, prev, settings.BidDirection); err != nil {
		return nil, nil, err
	}

	validation, err := s.validateCandidate(ctx, in.Amount, in.Currency, settings, lot)
	if err != nil {
		return nil, nil, err
	}

	bid := s.buildBid(SubmitInput{
		AuctionID:  prev.AuctionID,
		LotID:      prev.LotID,
		SupplierID: prev.SupplierID,
		Amount:     in.Amount,
		Currency:   in.Currency,
		Fob:        in.Fob,
		Carton:     in.Carton,
		Tax:        in.Tax,
		Duty:       in.Duty,
	}, validation)
	if err := s.bids.UpsertActive(ctx, bid); err != nil {
		return nil, nil, errorbank.Unavailable("could not persist bid", errorbank.WithCause(err))
	}
	s.appendHistory(ctx, bid, supplier.Name)

	active, err := s.bids.ListActive(ctx, auction.ID)
	if err != nil {
		return nil, nil, errorbank.Unavailable("could not load active bids", errorbank.WithCause(err))
	}

	s.maybeExtend(ctx, auction, bid, active, settings.BidDirection)

	entries := ranking.Rank(active)
	s.cacheRanking(ctx, auction.ID, entries)
	return bid, entries, nil
}

// Withdraw retires a standing bid while the auction is still open. The row is
// marked Withdrawn rather than deleted and the withdrawal is mirrored into
// the ledger.
func (s *Service) Withdraw(ctx context.Context, bidID, supplierID string) error {
	ctx, span := serviceTracer.Start(ctx, "BiddingService.Withdraw", trace.WithAttributes(
		attribute.String("bid.id", bidID),
		attribute.String("supplier.id", supplierID),
	))
	defer span.End()

	if bidID == "" || supplierID == "" {
		return errorbank.BadRequest("bidId and supplierId are required")
	}

	prev, err := s.loadOwnedBid(ctx, bidID, supplierID)
	if err != nil {
		return err
	}

	var (
		bid     *entity.Bid
		entries []ranking.Entry
	)
	err = s.withAuctionLock(ctx, prev.AuctionID, func(ctx context.Context) error {
		var err error
		bid, entries, err = s.withdrawLocked(ctx, bidID, supplierID)
		return err
	})
	if err != nil {
		return err
	}

	s.afterWrite(ctx, EventBidWithdrawn, bid, entries)
	return nil
}

func (s *Service) withdrawLocked(ctx context.Context, bidID, supplierID string) (*entity.Bid, []ranking.Entry, error) {
	bid, err := s.loadOwnedBid(ctx, bidID, supplierID)
	if err != nil {
		return nil, nil, err
	}

	auction, supplier, err := s.admission(ctx, bid.AuctionID, supplierID)
	if err != nil {
		return nil, nil, err
	}

	if err := s.bids.UpdateStatus(ctx, bid.ID, entity.BidWithdrawn); err != nil {
		return nil, nil, errorbank.Unavailable("could not withdraw bid", errorbank.WithCause(err))
	}
	bid.Status = entity.BidWithdrawn
	s.appendHistory(ctx, bid, supplier.Name)

	entries, err := s.refreshRanking(ctx, auction.ID)
	if err != nil {
		return nil, nil, err
	}
	return bid, entries, nil
}

// Ranking returns the live snapshot for an auction, cache-aside. When
// supplierID is set the snapshot is filtered to that supplier's entries with
// ranks still computed against the full field.
func (s *Service) Ranking(ctx context.Context, auctionID, supplierID string) ([]ranking.Entry, error) {
	ctx, span := serviceTracer.Start(ctx, "BiddingService.Ranking", trace.WithAttributes(attribute.String("auction.id", auctionID)))
	defer span.End()

	if auctionID == "" {
		return nil, errorbank.BadRequest("auctionId is required")
	}

	entries, ok := s.cachedRanking(ctx, auctionID)
	if !ok {
		var err error
		entries, err = s.refreshRanking(ctx, auctionID)
		if err != nil {
			return nil, err
		}
	}

	if supplierID != "" {
		return ranking.ForSupplier(entries, supplierID), nil
	}
	return entries, nil
}

// Constraints describes the legal band for a lot, rendered in the requested
// currency so suppliers can see their limits before bidding.
type Constraints struct {
	Direction          entity.Direction `json:"direction"`
	Currency           string           `json:"currency"`
	Floor              decimal.Decimal  `json:"floor"`
	Ceiling            decimal.Decimal  `json:"ceiling"`
	QualificationPrice decimal.Decimal  `json:"qualificationPrice"`
}

// LotConstraints computes the current bid band for a lot. An empty code
// defaults to the reference currency.
func (s *Service) LotConstraints(ctx context.Context, auctionID, lotID, code string) (*Constraints, error) {
	ctx, span := serviceTracer.Start(ctx, "BiddingService.LotConstraints", trace.WithAttributes(
		attribute.String("auction.id", auctionID),
		attribute.String("lot.id", lotID),
	))
	defer span.End()

	settings, lot, err := s.loadLot(ctx, auctionID, lotID)
	if err != nil {
		return nil, err
	}
	if err := checkSettings(settings); err != nil {
		return nil, err
	}

	ref, err := referencePrice(lot)
	if err != nil {
		return nil, err
	}
	band := bidBand(settings.BidDirection, ref, settings)

	if code == "" {
		code = s.converter.Reference()
	}
	floor, err := s.converter.FromReference(ctx, band.Floor, code)
	if err != nil {
		return nil, conversionError(err, code)
	}
	ceiling, err := s.converter.FromReference(ctx, band.Ceiling, code)
	if err != nil {
		return nil, conversionError(err, code)
	}
	qualification, err := s.converter.FromReference(ctx, lot.QualificationPrice, code)
	if err != nil {
		return nil, conversionError(err, code)
	}

	return &Constraints{
		Direction:          settings.BidDirection,
		Currency:           normalizeCode(code),
		Floor:              floor.Amount,
		Ceiling:            ceiling.Amount,
		QualificationPrice: qualification.Amount,
	}, nil
}

// History lists ledger entries for an auction, optionally scoped to one
// supplier, newest first.
func (s *Service) History(ctx context.Context, auctionID, supplierID string) ([]entity.BidHistory, error) {
	if auctionID == "" {
		return nil, errorbank.BadRequest("auctionId is required")
	}
	entries, err := s.bids.ListHistory(ctx, auctionID, supplierID)
	if err != nil {
		return nil, errorbank.Unavailable("could not load bid history", errorbank.WithCause(err))
	}
	return entries, nil
}

// withAuctionLock serializes the critical section per auction. Lock
// acquisition is bounded separately from the operation itself; both bounds
// surface as retryable errors.
func (s *Service) withAuctionLock(ctx context.Context, auctionID string, fn func(context.Context) error) error {
	lockCtx, cancel := context.WithTimeout(ctx, s.cfg.LockTimeout)
	release, err := s.locks.Acquire(lockCtx, lockKey(auctionID))
	cancel()
	if err != nil {
		if errors.Is(err, keyedlock.ErrTimeout) {
			return errorbank.Unavailable("auction is busy, retry shortly", errorbank.WithCause(err))
		}
		return err
	}
	defer release()

	opCtx, cancelOp := context.WithTimeout(ctx, s.cfg.OpTimeout)
	defer cancelOp()
	return fn(opCtx)
}

func lockKey(auctionID string) string {
	return "auction:" + auctionID
}

// admission runs the shared preconditions: the auction exists and accepts
// bids, and the supplier is on the invitation list.
func (s *Service) admission(ctx context.Context, auctionID, supplierID string) (*entity.Auction, *entity.Supplier, error) {
	auction, err := s.auctions.Get(ctx, auctionID)
	if err != nil {
		if errors.Is(err, auctionrepo.ErrNotFound) {
			return nil, nil, errorbank.NotFound("auction not found", errorbank.WithCause(err))
		}
		return nil, nil, errorbank.Unavailable("could not load auction", errorbank.WithCause(err))
	}

	supplier, err := s.suppliers.GetByID(ctx, supplierID)
	if err != nil {
		if errors.Is(err, supplierrepo.ErrNotFound) {
			return nil, nil, errorbank.Forbidden("supplier is not invited to this auction",
				errorbank.WithReason(errorbank.ReasonNotInvited), errorbank.WithCause(err))
		}
		return nil, nil, errorbank.Unavailable("could not load supplier", errorbank.WithCause(err))
	}
	if !auction.IsInvited(supplier.Email) {
		return nil, nil, errorbank.Forbidden("supplier is not invited to this auction",
			errorbank.WithReason(errorbank.ReasonNotInvited))
	}

	if !auction.Status.AcceptsBids() {
		return nil, nil, errorbank.BadRequest(
			fmt.Sprintf("auction is not open for bidding (status: %s)", auction.Status),
			errorbank.WithReason(errorbank.ReasonAuctionNotActive))
	}
	return auction, supplier, nil
}

func (s *Service) loadLot(ctx context.Context, auctionID, lotID string) (*entity.AuctionSettings, *entity.Lot, error) {
	settings, err := s.auctions.GetSettings(ctx, auctionID)
	if err != nil {
		if errors.Is(err, auctionrepo.ErrSettingsNotFound) {
			return nil, nil, errorbank.Unprocessable("auction settings are not configured",
				errorbank.WithReason(errorbank.ReasonInvalidSettings), errorbank.WithCause(err))
		}
		return nil, nil, errorbank.Unavailable("could not load auction settings", errorbank.WithCause(err))
	}

	lot, err := s.auctions.GetLot(ctx, lotID)
	if err != nil {
		if errors.Is(err, auctionrepo.ErrLotNotFound) {
			return nil, nil, errorbank.NotFound("lot not found", errorbank.WithCause(err))
		}
		return nil, nil, errorbank.Unavailable("could not load lot", errorbank.WithCause(err))
	}
	if lot.AuctionID != auctionID {
		return nil, nil, errorbank.BadRequest("lot does not belong to this auction")
	}
	return settings, lot, nil
}

func (s *Service) loadOwnedBid(ctx context.Context, bidID, supplierID string) (*entity.Bid, error) {
	bid, err := s.bids.GetByID(ctx, bidID)
	if err != nil {
		if errors.Is(err, bidrepo.ErrNotFound) {
			return nil, errorbank.NotFound("bid not found", errorbank.WithCause(err))
		}
		return nil, errorbank.Unavailable("could not load bid", errorbank.WithCause(err))
	}
	if bid.SupplierID != supplierID {
		return nil, errorbank.Forbidden("bid belongs to another supplier")
	}
	if bid.Status != entity.BidActive {
		return nil, errorbank.BadRequest("bid is no longer active")
	}
	return bid, nil
}

// validateCandidate runs the qualification gate and the increment band check.
func (s *Service) validateCandidate(ctx context.Context, amount decimal.Decimal, code string, settings *entity.AuctionSettings, lot *entity.Lot) (*Validation, error) {
	if err := checkSettings(settings); err != nil {
		return nil, err
	}
	if err := s.checkQualification(ctx, amount, code, settings.BidDirection, lot); err != nil {
		return nil, err
	}
	return s.validatePriceLimits(ctx, amount, code, settings, lot)
}

// checkImprovement compares the candidate against the previous bid in the
// candidate's own currency. The stored amount is already reference currency,
// so the conversion is the full two-hop path through the reference.
func (s *Service) checkImprovement(ctx context.Context, amount decimal.Decimal, code string, prev *entity.Bid, direction entity.Direction) error {
	prevConverted, err := s.converter.FromReference(ctx, prev.Amount, code)
	if err != nil {
		return conversionError(err, code)
	}
	if !direction.Improves(amount, prevConverted.Amount) {
		verb := "lower"
		if direction == entity.DirectionForward {
			verb = "higher"
		}
		return errorbank.Unprocessable(
			fmt.Sprintf("new bid must be %s than your previous bid (%s %s)",
				verb, prevConverted.Amount.StringFixed(2), code),
			errorbank.WithReason(errorbank.ReasonNotImproved))
	}
	return nil
}

func (s *Service) buildBid(in SubmitInput, v *Validation) *entity.Bid {
	return &entity.Bid{
		AuctionID:      in.AuctionID,
		LotID:          in.LotID,
		SupplierID:     in.SupplierID,
		Amount:         v.ReferenceAmount,
		OriginalAmount: in.Amount,
		Currency:       normalizeCode(in.Currency),
		Fob:            in.Fob,
		Carton:         in.Carton,
		Tax:            in.Tax,
		Duty:           in.Duty,
		TotalCost:      entity.ComputeTotalCost(v.ReferenceAmount, in.Carton, in.Fob, in.Tax, in.Duty),
		FloorPrice:     v.Range.Floor,
		CeilingPrice:   v.Range.Ceiling,
		Status:         entity.BidActive,
	}
}

// appendHistory mirrors an accepted write into the ledger. A ledger failure
// is logged rather than surfaced: the standing bid is already committed and
// the write must not look failed to the supplier.
func (s *Service) appendHistory(ctx context.Context, bid *entity.Bid, supplierName string) {
	entry := &entity.BidHistory{
		AuctionID:      bid.AuctionID,
		LotID:          bid.LotID,
		SupplierID:     bid.SupplierID,
		SupplierName:   supplierName,
		Amount:         bid.Amount,
		OriginalAmount: bid.OriginalAmount,
		Currency:       bid.Currency,
		Fob:            bid.Fob,
		Carton:         bid.Carton,
		Tax:            bid.Tax,
		Duty:           bid.Duty,
		TotalCost:      bid.TotalCost,
	}
	if err := s.bids.AppendHistory(ctx, entry); err != nil {
		s.logger.Error("bid history append failed",
			zap.String("auction_id", bid.AuctionID),
			zap.String("bid_id", bid.ID),
			zap.Error(err))
	}
}

// maybeExtend pushes the close time out when a revision takes the strict
// lead on an auto-extension auction. Compared in the reference currency,
// direction-aware; an extension failure never fails the revision.
func (s *Service) maybeExtend(ctx context.Context, auction *entity.Auction, bid *entity.Bid, active []entity.Bid, direction entity.Direction) {
	if !auction.AutoExtension || auction.ExtensionMinutes <= 0 || auction.EndTime.IsZero() {
		return
	}

	for _, other := range active {
		if other.ID == bid.ID {
			continue
		}
		if !direction.Improves(bid.Amount, other.Amount) {
			return
		}
	}

	newEnd := auction.EndTime.Add(time.Duration(auction.ExtensionMinutes) * time.Minute)
	if err := s.auctions.UpdateEndTime(ctx, auction.ID, newEnd); err != nil {
		s.logger.Error("auto-extension failed",
			zap.String("auction_id", auction.ID),
			zap.Time("new_end", newEnd),
			zap.Error(err))
		return
	}
	auction.EndTime = newEnd
	s.logger.Info("auction extended by leading revision",
		zap.String("auction_id", auction.ID),
		zap.String("bid_id", bid.ID),
		zap.Time("new_end", newEnd))
}

// refreshRanking recomputes the snapshot from the store and refreshes the
// cache copy used by fresh websocket joins.
func (s *Service) refreshRanking(ctx context.Context, auctionID string) ([]ranking.Entry, error) {
	active, err := s.bids.ListActive(ctx, auctionID)
	if err != nil {
		return nil, errorbank.Unavailable("could not load active bids", errorbank.WithCause(err))
	}
	entries := ranking.Rank(active)
	s.cacheRanking(ctx, auctionID, entries)
	return entries, nil
}

func rankingCacheKey(auctionID string) string {
	return "rankings:" + auctionID
}

func (s *Service) cacheRanking(ctx context.Context, auctionID string, entries []ranking.Entry) {
	if s.store == nil {
		return
	}
	payload, err := json.Marshal(entries)
	if err != nil {
		return
	}
	if err := s.store.Set(ctx, rankingCacheKey(auctionID), payload, s.cfg.RankingCacheTTL); err != nil {
		s.logger.Debug("ranking cache set failed", zap.String("auction_id", auctionID), zap.Error(err))
	}
}

func (s *Service) cachedRanking(ctx context.Context, auctionID string) ([]ranking.Entry, bool) {
	if s.store == nil {
		return nil, false
	}
	payload, err := s.store.Get(ctx, rankingCacheKey(auctionID))
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Debug("ranking cache get failed", zap.String("auction_id", auctionID), zap.Error(err))
		}
		return nil, false
	}
	var entries []ranking.Entry
	if err := json.Unmarshal(payload, &entries); err != nil {
		return nil, false
	}
	return entries, true
}

// afterWrite runs the post-commit fan-out: room broadcast and audit event.
// Both are best-effort; the write itself has already succeeded.
func (s *Service) afterWrite(ctx context.Context, kind string, bid *entity.Bid, entries []ranking.Entry) {
	s.broadcast.BroadcastRanking(bid.AuctionID, entries)
	s.publishEvent(ctx, kind, bid)
}

func (s *Service) publishEvent(ctx context.Context, kind string, bid *entity.Bid) {
	if s.bus == nil {
		return
	}
	event := Event{
		Kind:       kind,
		AuctionID:  bid.AuctionID,
		LotID:      bid.LotID,
		BidID:      bid.ID,
		SupplierID: bid.SupplierID,
		Amount:     bid.Amount,
		Currency:   bid.Currency,
		TotalCost:  bid.TotalCost,
		OccurredAt: time.Now().UTC(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	if err := s.bus.Publish(ctx, []byte(bid.AuctionID), payload); err != nil {
		s.logger.Error("event publish failed",
			zap.String("kind", kind),
			zap.String("auction_id", bid.AuctionID),
			zap.Error(err))
	}
}

func normalizeCode(code string) string {
	return currency.NormalizeCode(code)
}
