package service

import (
	"context"
	"fmt"
	"time"

	"card-auction-engine/config"
	"card-auction-engine/internal/core/domain"
	"card-auction-engine/internal/core/ports"
	"card-auction-engine/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// AuctionServiceImpl implements ports.AuctionService. Auction rows are
// mutated only through conditional updates (status + version guard); racing
// writers lose the swap and retry against fresh state rather than queue on
// a lock. Nothing here holds a database transaction across a call to the
// inventory service or the event publisher.
type AuctionServiceImpl struct {
	auctionRepo ports.AuctionRepository
	ledger      ports.Ledger
	inventory   ports.InventoryService
	publisher   ports.EventPublisher
	transactor  ports.DBTransactor
	clock       ports.Clock
	cfg         config.AuctionConfig
	log         zerolog.Logger
}

// NewAuctionService creates a new AuctionServiceImpl.
func NewAuctionService(
	auctionRepo ports.AuctionRepository,
	ledger ports.Ledger,
	inventory ports.InventoryService,
	publisher ports.EventPublisher,
	transactor ports.DBTransactor,
	clock ports.Clock,
	cfg config.AuctionConfig,
	log zerolog.Logger,
) *AuctionServiceImpl {
	return &AuctionServiceImpl{
		auctionRepo: auctionRepo,
		ledger:      ledger,
		inventory:   inventory,
		publisher:   publisher,
		transactor:  transactor,
		clock:       clock,
		cfg:         cfg,
		log:         log,
	}
}

// CreateAuction lists an item. The listing (+express/featured) fee is debited
// from the seller and the auction row inserted in one database transaction;
// the fee is not refunded if the seller later cancels.
func (s *AuctionServiceImpl) CreateAuction(ctx context.Context, req ports.CreateAuctionRequest) (*domain.Auction, error) {
	if req.StartingPrice < 1 {
		return nil, apperror.ErrInvalidPrice("Starting price must be at least 1")
	}
	if req.BuyoutPrice != nil && *req.BuyoutPrice <= req.StartingPrice {
		return nil, apperror.ErrInvalidPrice("Buyout price must exceed the starting price")
	}

	express := req.DurationClass == domain.DurationExpress
	duration := s.cfg.StandardDuration
	if express {
		duration = s.cfg.ExpressDuration
	}

	now := s.clock.Now().UTC()
	auction := &domain.Auction{
		ID:            uuid.New(),
		ItemID:        req.ItemID,
		SellerID:      req.SellerID,
		StartingPrice: req.StartingPrice,
		BuyoutPrice:   req.BuyoutPrice,
		Featured:      req.Featured,
		Express:       express,
		Status:        domain.AuctionStatusActive,
		StartTime:     now,
		CloseTime:     now.Add(duration),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	fees := domain.ComputeFees(req.StartingPrice, express, req.Featured)
	charge := fees.ListingCharge()

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if _, err := s.ledger.DebitTx(ctx, dbTx, req.SellerID, charge, domain.TransactionSpendListingFee, "AUCTION_LISTING:"+auction.ID.String()); err != nil {
		return nil, err
	}
	if err := s.auctionRepo.Create(ctx, dbTx, auction); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create auction: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("auction_id", auction.ID.String()).
		Str("seller_id", req.SellerID.String()).
		Int64("starting_price", req.StartingPrice).
		Int64("listing_charge", charge).
		Bool("express", express).
		Bool("featured", req.Featured).
		Msg("auction created")

	return auction, nil
}

// PlaceBid runs the bid algorithm: validate against a snapshot of the
// auction, then try to land the conditional update. A lost swap means
// another bid got in first; re-read and re-validate, up to the configured
// number of retries.
func (s *AuctionServiceImpl) PlaceBid(ctx context.Context, auctionID, bidderID uuid.UUID, amount int64) (*ports.BidResult, error) {
	for attempt := 0; attempt < s.cfg.BidRetries; attempt++ {
		auction, err := s.auctionRepo.GetByID(ctx, auctionID)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("get auction: %w", err))
		}
		if auction == nil {
			return nil, apperror.ErrAuctionNotFound()
		}

		now := s.clock.Now().UTC()
		if auction.Ended(now) {
			return nil, apperror.ErrAuctionEnded()
		}
		if bidderID == auction.SellerID {
			return nil, apperror.ErrSelfBidForbidden()
		}
		if auction.CurrentBidder != nil && *auction.CurrentBidder == bidderID {
			return nil, apperror.ErrAlreadyHighBidder()
		}

		minAcceptable := auction.MinAcceptableBid()
		if amount < minAcceptable {
			var currentHigh int64
			if auction.CurrentBid != nil {
				currentHigh = *auction.CurrentBid
			}
			return nil, apperror.ErrBidTooLow(currentHigh, minAcceptable)
		}

		// Solvency check, not a hold. Funds move only at settlement.
		balance, err := s.ledger.Balance(ctx, bidderID)
		if err != nil {
			return nil, err
		}
		if balance < amount {
			return nil, apperror.ErrInsufficientFunds(balance, amount)
		}

		newCloseTime := auction.CloseTime
		extended := false
		if auction.CloseTime.Sub(now) < s.cfg.AntiSnipeWindow {
			newCloseTime = now.Add(s.cfg.AntiSnipeWindow)
			extended = true
		}

		bid := &domain.Bid{
			ID:        uuid.New(),
			AuctionID: auctionID,
			BidderID:  bidderID,
			Amount:    amount,
			Snipe:     extended,
			CreatedAt: now,
		}

		applied, err := s.applyBid(ctx, auction, bid, newCloseTime)
		if err != nil {
			return nil, err
		}
		if !applied {
			// Lost the swap to a concurrent bid; re-read and re-validate.
			continue
		}

		updated := *auction
		updated.CurrentBid = &bid.Amount
		updated.CurrentBidder = &bid.BidderID
		updated.BidCount++
		updated.CloseTime = newCloseTime
		updated.Version++
		updated.UpdatedAt = now

		s.publisher.Publish(ctx, domain.Event{
			Type:      domain.EventBidAccepted,
			AuctionID: auctionID,
			Amount:    amount,
			BidderID:  &bidderID,
			CloseTime: newCloseTime,
			Timestamp: now,
		})
		if extended {
			s.publisher.Publish(ctx, domain.Event{
				Type:      domain.EventAuctionExtended,
				AuctionID: auctionID,
				CloseTime: newCloseTime,
				Timestamp: now,
			})
		}

		s.log.Info().
			Str("auction_id", auctionID.String()).
			Str("bidder_id", bidderID.String()).
			Int64("amount", amount).
			Bool("extended", extended).
			Int("attempt", attempt+1).
			Msg("bid accepted")

		return &ports.BidResult{Bid: *bid, Auction: updated, Extended: extended}, nil
	}

	return nil, apperror.ErrConcurrencyConflict()
}

func (s *AuctionServiceImpl) applyBid(ctx context.Context, auction *domain.Auction, bid *domain.Bid, newCloseTime time.Time) (bool, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return false, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	applied, err := s.auctionRepo.ApplyBid(ctx, dbTx, auction.ID, auction.Version, bid, newCloseTime)
	if err != nil {
		return false, apperror.InternalError(fmt.Errorf("apply bid: %w", err))
	}
	if !applied {
		return false, nil
	}
	if err := dbTx.Commit(ctx); err != nil {
		return false, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	return true, nil
}

// ExecuteBuyout settles the auction immediately at its buyout price: one
// database transaction finalizes the auction, records the winning bid, moves
// the price from buyer to seller and charges the seller the success fee.
// Item transfer and the completion event happen after commit. The current
// high bidder may buy out; the buyout supersedes their standing bid.
func (s *AuctionServiceImpl) ExecuteBuyout(ctx context.Context, auctionID, buyerID uuid.UUID) (*ports.SettlementResult, error) {
	auction, err := s.auctionRepo.GetByID(ctx, auctionID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get auction: %w", err))
	}
	if auction == nil {
		return nil, apperror.ErrAuctionNotFound()
	}

	now := s.clock.Now().UTC()
	if auction.Ended(now) {
		return nil, apperror.ErrAuctionEnded()
	}
	if buyerID == auction.SellerID {
		return nil, apperror.ErrSelfBidForbidden()
	}
	if auction.BuyoutPrice == nil {
		return nil, apperror.ErrNoBuyout()
	}

	price := *auction.BuyoutPrice
	successFee := domain.ComputeFees(price, false, false).Success

	winningBid := &domain.Bid{
		ID:        uuid.New(),
		AuctionID: auctionID,
		BidderID:  buyerID,
		Amount:    price,
		CreatedAt: now,
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	completed, err := s.auctionRepo.FinalizeBuyoutTx(ctx, dbTx, auctionID, auction.Version, winningBid)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("finalize buyout: %w", err))
	}
	if !completed {
		// Lost the swap: either a racing bid bumped the version or the
		// auction went terminal. Report accordingly.
		fresh, err := s.auctionRepo.GetByID(ctx, auctionID)
		if err == nil && fresh != nil && fresh.IsTerminal() {
			return nil, apperror.ErrAuctionEnded()
		}
		return nil, apperror.ErrConcurrencyConflict()
	}

	source := "AUCTION_BUYOUT:" + auctionID.String()
	if _, _, err := s.ledger.TransferTx(ctx, dbTx, buyerID, auction.SellerID, price,
		domain.TransactionSpendBuyout, domain.TransactionEarnSale, source); err != nil {
		return nil, err
	}
	if successFee > 0 {
		if _, err := s.ledger.DebitTx(ctx, dbTx, auction.SellerID, successFee,
			domain.TransactionSpendSuccessFee, "AUCTION_SUCCESS_FEE:"+auctionID.String()); err != nil {
			return nil, err
		}
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.afterSettlement(ctx, auction, buyerID, price, now)

	s.log.Info().
		Str("auction_id", auctionID.String()).
		Str("buyer_id", buyerID.String()).
		Int64("price", price).
		Int64("success_fee", successFee).
		Msg("buyout settled")

	settled := *auction
	settled.Status = domain.AuctionStatusCompleted
	settled.CurrentBid = &price
	settled.CurrentBidder = &buyerID
	settled.BidCount++
	settled.Version++
	settled.UpdatedAt = now

	return &ports.SettlementResult{
		Auction:    settled,
		Amount:     price,
		SuccessFee: successFee,
		WinnerID:   buyerID,
	}, nil
}

// CancelAuction withdraws a listing. Only the seller may cancel, and only
// while the auction has no bids. The listing fee is not refunded.
func (s *AuctionServiceImpl) CancelAuction(ctx context.Context, auctionID, requesterID uuid.UUID) error {
	auction, err := s.auctionRepo.GetByID(ctx, auctionID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("get auction: %w", err))
	}
	if auction == nil {
		return apperror.ErrAuctionNotFound()
	}
	if requesterID != auction.SellerID {
		return apperror.ErrForbidden()
	}
	if auction.IsTerminal() {
		return apperror.ErrAuctionEnded()
	}
	if !auction.Cancellable() {
		return apperror.ErrInvalidState("Auction already has bids and can no longer be cancelled")
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	cancelled, err := s.auctionRepo.FinalizeTx(ctx, dbTx, auctionID, auction.Version, domain.AuctionStatusCancelled)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("cancel auction: %w", err))
	}
	if !cancelled {
		// Lost the swap: a bid or a settlement landed after the read above.
		// Re-read so the caller gets the real reason instead of a stale one.
		fresh, ferr := s.auctionRepo.GetByID(ctx, auctionID)
		if ferr == nil && fresh != nil {
			if fresh.IsTerminal() {
				return apperror.ErrAuctionEnded()
			}
			if !fresh.Cancellable() {
				return apperror.ErrInvalidState("Auction already has bids and can no longer be cancelled")
			}
		}
		return apperror.ErrConcurrencyConflict()
	}
	if err := dbTx.Commit(ctx); err != nil {
		return apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	if err := s.inventory.Release(ctx, auction.ItemID, auction.SellerID); err != nil {
		s.log.Error().Err(err).
			Str("auction_id", auctionID.String()).
			Str("item_id", auction.ItemID.String()).
			Msg("item release failed, needs reconciliation")
	}

	s.log.Info().
		Str("auction_id", auctionID.String()).
		Str("seller_id", requesterID.String()).
		Msg("auction cancelled")
	return nil
}

// GetActiveAuctions returns the filtered marketplace view.
func (s *AuctionServiceImpl) GetActiveAuctions(ctx context.Context, params ports.AuctionListParams) ([]domain.Auction, int64, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 {
		params.PageSize = defaultPageSize
	}
	if params.PageSize > maxPageSize {
		params.PageSize = maxPageSize
	}

	auctions, total, err := s.auctionRepo.ListActive(ctx, params)
	if err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("list auctions: %w", err))
	}
	return auctions, total, nil
}

// GetAuctionByID returns one auction in any state.
func (s *AuctionServiceImpl) GetAuctionByID(ctx context.Context, id uuid.UUID) (*domain.Auction, error) {
	auction, err := s.auctionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get auction: %w", err))
	}
	if auction == nil {
		return nil, apperror.ErrAuctionNotFound()
	}
	return auction, nil
}

// GetBidHistory returns the accepted bids for an auction, highest first.
func (s *AuctionServiceImpl) GetBidHistory(ctx context.Context, auctionID uuid.UUID) ([]domain.Bid, error) {
	auction, err := s.auctionRepo.GetByID(ctx, auctionID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get auction: %w", err))
	}
	if auction == nil {
		return nil, apperror.ErrAuctionNotFound()
	}

	bids, err := s.auctionRepo.ListBids(ctx, auctionID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list bids: %w", err))
	}
	return bids, nil
}

// SettleExpired finalizes one expired auction. With a winner it moves the
// high bid from winner to seller and charges the success fee in the same
// transaction that flips the status; without one it just completes. Every
// finalize is version-guarded against the snapshot the decision was made on:
// a losing swap means either another sweeper won (no-op) or a late anti-snipe
// bid landed after the snapshot, in which case the fresh state is re-read and
// re-evaluated so the settlement always pays the true winner. A winner who
// can no longer cover the bid voids the sale: the auction still completes,
// no funds move, and the item returns to the seller.
func (s *AuctionServiceImpl) SettleExpired(ctx context.Context, auction *domain.Auction) (*ports.SettlementResult, error) {
	for attempt := 0; attempt < s.cfg.BidRetries; attempt++ {
		now := s.clock.Now().UTC()
		if auction.IsTerminal() || !auction.Ended(now) {
			// Terminal: another sweeper settled it. Not ended: a late bid
			// extended the close time and the auction is live again.
			return nil, nil
		}

		if auction.CurrentBidder == nil {
			settled, err := s.finalizeOnly(ctx, auction.ID, auction.Version)
			if err != nil {
				return nil, err
			}
			if !settled {
				auction, err = s.refreshAuction(ctx, auction.ID)
				if err != nil || auction == nil {
					return nil, err
				}
				continue
			}
			s.afterSettlement(ctx, auction, uuid.Nil, 0, now)
			s.log.Info().Str("auction_id", auction.ID.String()).Msg("expired auction completed with no bids")
			unsold := *auction
			unsold.Status = domain.AuctionStatusCompleted
			return &ports.SettlementResult{Auction: unsold}, nil
		}

		winnerID := *auction.CurrentBidder
		amount := *auction.CurrentBid
		successFee := domain.ComputeFees(amount, false, false).Success

		// The bid-time solvency check did not hold the funds; the winner may
		// have spent them since. Void the sale rather than block the sweep.
		balance, err := s.ledger.Balance(ctx, winnerID)
		if err != nil {
			return nil, err
		}
		if balance < amount {
			s.log.Warn().
				Str("auction_id", auction.ID.String()).
				Str("winner_id", winnerID.String()).
				Int64("amount", amount).
				Int64("balance", balance).
				Msg("winner insolvent at settlement, voiding sale")
			voided, err := s.finalizeOnly(ctx, auction.ID, auction.Version)
			if err != nil {
				return nil, err
			}
			if !voided {
				auction, err = s.refreshAuction(ctx, auction.ID)
				if err != nil || auction == nil {
					return nil, err
				}
				continue
			}
			s.afterSettlement(ctx, auction, uuid.Nil, 0, now)
			void := *auction
			void.Status = domain.AuctionStatusCompleted
			return &ports.SettlementResult{Auction: void}, nil
		}

		settled, err := s.settleWithWinner(ctx, auction, winnerID, amount, successFee)
		if err != nil {
			// Includes the narrow race where the winner spends between the
			// check above and the transfer; the transaction rolled back and
			// the next sweep pass will void the sale.
			return nil, err
		}
		if !settled {
			auction, err = s.refreshAuction(ctx, auction.ID)
			if err != nil || auction == nil {
				return nil, err
			}
			continue
		}

		s.afterSettlement(ctx, auction, winnerID, amount, now)

		s.log.Info().
			Str("auction_id", auction.ID.String()).
			Str("winner_id", winnerID.String()).
			Int64("amount", amount).
			Int64("success_fee", successFee).
			Msg("expired auction settled")

		settledAuction := *auction
		settledAuction.Status = domain.AuctionStatusCompleted
		return &ports.SettlementResult{
			Auction:    settledAuction,
			Amount:     amount,
			SuccessFee: successFee,
			WinnerID:   winnerID,
		}, nil
	}

	return nil, apperror.ErrConcurrencyConflict()
}

func (s *AuctionServiceImpl) refreshAuction(ctx context.Context, auctionID uuid.UUID) (*domain.Auction, error) {
	fresh, err := s.auctionRepo.GetByID(ctx, auctionID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get auction: %w", err))
	}
	return fresh, nil
}

func (s *AuctionServiceImpl) settleWithWinner(ctx context.Context, auction *domain.Auction, winnerID uuid.UUID, amount, successFee int64) (bool, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return false, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	completed, err := s.auctionRepo.FinalizeTx(ctx, dbTx, auction.ID, auction.Version, domain.AuctionStatusCompleted)
	if err != nil {
		return false, apperror.InternalError(fmt.Errorf("finalize auction: %w", err))
	}
	if !completed {
		return false, nil
	}

	source := "AUCTION_SALE:" + auction.ID.String()
	if _, _, err := s.ledger.TransferTx(ctx, dbTx, winnerID, auction.SellerID, amount,
		domain.TransactionSpendBid, domain.TransactionEarnSale, source); err != nil {
		return false, err
	}
	if successFee > 0 {
		if _, err := s.ledger.DebitTx(ctx, dbTx, auction.SellerID, successFee,
			domain.TransactionSpendSuccessFee, "AUCTION_SUCCESS_FEE:"+auction.ID.String()); err != nil {
			return false, err
		}
	}
	if err := dbTx.Commit(ctx); err != nil {
		return false, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	return true, nil
}

func (s *AuctionServiceImpl) finalizeOnly(ctx context.Context, auctionID uuid.UUID, expectedVersion int64) (bool, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return false, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	completed, err := s.auctionRepo.FinalizeTx(ctx, dbTx, auctionID, expectedVersion, domain.AuctionStatusCompleted)
	if err != nil {
		return false, apperror.InternalError(fmt.Errorf("finalize auction: %w", err))
	}
	if !completed {
		return false, nil
	}
	if err := dbTx.Commit(ctx); err != nil {
		return false, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	return true, nil
}

// afterSettlement runs the post-commit side effects: item movement and the
// completion event. Failures are logged, never propagated; the settlement
// already committed.
func (s *AuctionServiceImpl) afterSettlement(ctx context.Context, auction *domain.Auction, winnerID uuid.UUID, amount int64, now time.Time) {
	if winnerID != uuid.Nil {
		if err := s.inventory.TransferOwnership(ctx, auction.ItemID, auction.SellerID, winnerID); err != nil {
			s.log.Error().Err(err).
				Str("auction_id", auction.ID.String()).
				Str("item_id", auction.ItemID.String()).
				Str("winner_id", winnerID.String()).
				Msg("item transfer failed, needs reconciliation")
		}
	} else {
		if err := s.inventory.Release(ctx, auction.ItemID, auction.SellerID); err != nil {
			s.log.Error().Err(err).
				Str("auction_id", auction.ID.String()).
				Str("item_id", auction.ItemID.String()).
				Msg("item release failed, needs reconciliation")
		}
	}

	event := domain.Event{
		Type:      domain.EventAuctionCompleted,
		AuctionID: auction.ID,
		Amount:    amount,
		CloseTime: auction.CloseTime,
		Timestamp: now,
	}
	if winnerID != uuid.Nil {
		event.WinnerID = &winnerID
	}
	s.publisher.Publish(ctx, event)
}
