// internal/engine/settlement.go
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/prediction-pump/internal/events"
	"github.com/rovshanmuradov/prediction-pump/internal/market"
	"github.com/rovshanmuradov/prediction-pump/internal/oracle"
	"github.com/rovshanmuradov/prediction-pump/internal/settlement"
	"github.com/rovshanmuradov/prediction-pump/internal/storage"
	"github.com/rovshanmuradov/prediction-pump/internal/storage/models"
)

// Операции реестра оракулов

// AddOracleProvider регистрирует провайдера в реестре.
func (s *Service) AddOracleProvider(id string, typ oracle.ProviderType, reliability uint16) (oracle.Provider, error) {
	p, err := oracle.NewProvider(id, typ, reliability)
	if err != nil {
		return oracle.Provider{}, err
	}

	s.regMu.Lock()
	defer s.regMu.Unlock()
	if err := s.registry.Add(p); err != nil {
		return oracle.Provider{}, err
	}

	s.logger.Info("🔮 Oracle provider registered",
		zap.String("provider_id", p.ID),
		zap.String("type", string(p.Type)),
		zap.Uint16("reliability", p.Reliability))
	return p, nil
}

// ListOracleProviders возвращает активных провайдеров реестра.
func (s *Service) ListOracleProviders() []oracle.Provider {
	s.regMu.RLock()
	defer s.regMu.RUnlock()
	return s.registry.ActiveProviders()
}

// FallbackProvider подбирает самый надёжный активный провайдер на замену
// исключённому.
func (s *Service) FallbackProvider(excludedID string) (oracle.Provider, error) {
	s.regMu.RLock()
	defer s.regMu.RUnlock()
	return s.registry.Fallback(excludedID)
}

func (s *Service) providerByID(id string) (oracle.Provider, error) {
	s.regMu.RLock()
	defer s.regMu.RUnlock()
	for _, p := range s.registry.Providers {
		if p.ID == id {
			if !p.Active {
				return oracle.Provider{}, fmt.Errorf("%w: %s", ErrProviderInactive, id)
			}
			return p, nil
		}
	}
	return oracle.Provider{}, fmt.Errorf("%w: %s", ErrUnknownProvider, id)
}

// Показания оракулов

// SubmitOracleRequest — подача показания оракула по рынку.
type SubmitOracleRequest struct {
	MarketID   uuid.UUID      `json:"market_id"`
	ProviderID string         `json:"provider_id"`
	Outcome    market.Outcome `json:"outcome"`
	Confidence uint16         `json:"confidence"`
}

// SubmitOracleData принимает показание от зарегистрированного активного
// провайдера и сохраняет его с пломбой целостности.
func (s *Service) SubmitOracleData(ctx context.Context, req SubmitOracleRequest) (*oracle.Data, error) {
	if _, err := s.providerByID(req.ProviderID); err != nil {
		return nil, err
	}
	// Рынок должен существовать; показания по чужим ID не копим.
	if _, _, err := s.loadMarket(ctx, req.MarketID); err != nil {
		return nil, err
	}

	data, err := oracle.NewData(req.MarketID, req.ProviderID, req.Outcome, req.Confidence)
	if err != nil {
		return nil, err
	}
	if err := s.store.SaveOracleData(ctx, models.FromOracleData(data)); err != nil {
		return nil, fmt.Errorf("failed to save oracle data: %w", err)
	}

	s.logger.Info("📡 Oracle data submitted",
		zap.String("market_id", req.MarketID.String()),
		zap.String("provider_id", req.ProviderID),
		zap.String("outcome", req.Outcome.String()),
		zap.Uint16("confidence", req.Confidence))
	return data, nil
}

// Расчёт рынка

// SettleMarket финализирует рынок по показанию оракула. Пулом выплат
// становится текущий баланс хранилища рынка.
func (s *Service) SettleMarket(ctx context.Context, marketID, dataID uuid.UUID) (res *market.SettlementData, err error) {
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordSettlementOp("settle", err == nil)
		}
	}()

	unlock := s.lockMarket(marketID)
	defer unlock()

	m, vault, err := s.loadMarket(ctx, marketID)
	if err != nil {
		return nil, err
	}
	data, err := s.loadOracleData(ctx, dataID)
	if err != nil {
		return nil, err
	}

	res, err = settlement.Settle(m, data, vault, time.Now())
	if err != nil {
		return nil, err
	}
	if err = s.store.UpdateMarket(ctx, models.FromMarket(m, vault)); err != nil {
		return nil, fmt.Errorf("failed to persist settlement: %w", err)
	}

	s.logger.Info("🏁 Market settled",
		zap.String("market_id", m.ID.String()),
		zap.String("winning_outcome", res.WinningOutcome.String()),
		zap.Uint64("payout_pool", res.TotalPayout))

	s.publish(events.MarketSettledEvent{
		BaseEvent:      events.NewBase(events.MarketSettled),
		MarketID:       m.ID,
		WinningOutcome: uint8(res.WinningOutcome),
		TotalPayout:    res.TotalPayout,
	})
	s.invalidateMarketCache(ctx, m.ID)
	return res, nil
}

// ClaimRequest — требование выплаты держателем выигрышных токенов.
type ClaimRequest struct {
	MarketID   uuid.UUID `json:"market_id"`
	Claimer    string    `json:"claimer"`
	HolderMint string    `json:"holder_mint"`
	Balance    uint64    `json:"balance"`
}

// ClaimResult — исполненная выплата.
type ClaimResult struct {
	MarketID       uuid.UUID `json:"market_id"`
	Payout         uint64    `json:"payout"`
	Burned         uint64    `json:"burned"`
	RemainingVault uint64    `json:"remaining_vault"`
}

// ClaimPayout выплачивает долю пула держателю выигрышных токенов и
// сжигает его баланс.
func (s *Service) ClaimPayout(ctx context.Context, req ClaimRequest) (res *ClaimResult, err error) {
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordSettlementOp("claim", err == nil)
		}
	}()

	unlock := s.lockMarket(req.MarketID)
	defer unlock()

	m, vault, err := s.loadMarket(ctx, req.MarketID)
	if err != nil {
		return nil, err
	}

	payout, newVault, err := settlement.Claim(m, vault, req.HolderMint, req.Balance)
	if err != nil {
		return nil, err
	}
	if err = s.store.UpdateMarket(ctx, models.FromMarket(m, newVault)); err != nil {
		return nil, fmt.Errorf("failed to persist claim: %w", err)
	}

	s.logger.Info("💰 Payout claimed",
		zap.String("market_id", m.ID.String()),
		zap.String("claimer", req.Claimer),
		zap.Uint64("payout", payout),
		zap.Uint64("burned", req.Balance))

	s.publish(events.PayoutClaimedEvent{
		BaseEvent: events.NewBase(events.PayoutClaimed),
		MarketID:  m.ID,
		Claimer:   req.Claimer,
		Burned:    req.Balance,
		Payout:    payout,
	})
	return &ClaimResult{
		MarketID:       m.ID,
		Payout:         payout,
		Burned:         req.Balance,
		RemainingVault: newVault,
	}, nil
}

// Споры

// DisputeRequest — открытие спора по расчёту рынка.
type DisputeRequest struct {
	MarketID     uuid.UUID `json:"market_id"`
	OracleDataID uuid.UUID `json:"oracle_data_id"`
	Disputer     string    `json:"disputer"`
	Reason       string    `json:"reason"`
	Stake        uint64    `json:"stake"`
}

// OpenDispute открывает спор против показания, по которому рассчитан
// рынок, и помечает показание спорным.
func (s *Service) OpenDispute(ctx context.Context, req DisputeRequest) (d *settlement.Dispute, err error) {
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordSettlementOp("dispute_open", err == nil)
		}
	}()

	unlock := s.lockMarket(req.MarketID)
	defer unlock()

	m, _, err := s.loadMarket(ctx, req.MarketID)
	if err != nil {
		return nil, err
	}
	data, err := s.loadOracleData(ctx, req.OracleDataID)
	if err != nil {
		return nil, err
	}

	d, err = settlement.OpenDispute(m, data, req.Disputer, req.Reason, req.Stake, time.Now())
	if err != nil {
		return nil, err
	}
	if err = s.store.SaveDispute(ctx, models.FromDispute(d)); err != nil {
		return nil, fmt.Errorf("failed to save dispute: %w", err)
	}
	// Пометка disputed уже стоит на показании; фиксируем её.
	if err = s.store.UpdateOracleData(ctx, models.FromOracleData(data)); err != nil {
		return nil, fmt.Errorf("failed to flag oracle data: %w", err)
	}

	s.logger.Info("⚖️ Dispute opened",
		zap.String("market_id", m.ID.String()),
		zap.String("dispute_id", d.ID.String()),
		zap.String("disputer", req.Disputer),
		zap.Uint64("stake", req.Stake))

	s.publish(events.DisputeOpenedEvent{
		BaseEvent: events.NewBase(events.DisputeOpened),
		MarketID:  m.ID,
		DisputeID: d.ID,
		Disputer:  req.Disputer,
		Stake:     req.Stake,
	})
	return d, nil
}

// CastVote добавляет голос в открытый спор.
func (s *Service) CastVote(ctx context.Context, disputeID uuid.UUID, voter string, outcome market.Outcome, weight uint64) error {
	rec, err := s.store.GetDispute(ctx, disputeID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrDisputeNotFound, disputeID)
		}
		return fmt.Errorf("failed to load dispute: %w", err)
	}

	d := rec.ToDispute()
	if err := d.AddVote(voter, outcome, weight, time.Now()); err != nil {
		return err
	}
	if err := s.store.UpdateDispute(ctx, models.FromDispute(d)); err != nil {
		return fmt.Errorf("failed to persist vote: %w", err)
	}

	s.logger.Debug("🗳 Vote cast",
		zap.String("dispute_id", disputeID.String()),
		zap.String("voter", voter),
		zap.String("outcome", outcome.String()),
		zap.Uint64("weight", weight))
	return nil
}

// ResolveDispute закрывает спор после окна голосования: либо оставляет
// расчёт в силе, либо переписывает исход по воле голосов.
func (s *Service) ResolveDispute(ctx context.Context, disputeID uuid.UUID) (res *settlement.Resolution, err error) {
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordSettlementOp("dispute_resolve", err == nil)
		}
	}()

	rec, err := s.store.GetDispute(ctx, disputeID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrDisputeNotFound, disputeID)
		}
		return nil, fmt.Errorf("failed to load dispute: %w", err)
	}
	d := rec.ToDispute()

	unlock := s.lockMarket(d.MarketID)
	defer unlock()

	m, vault, err := s.loadMarket(ctx, d.MarketID)
	if err != nil {
		return nil, err
	}
	data, err := s.loadOracleData(ctx, d.OracleDataID)
	if err != nil {
		return nil, err
	}

	resolution, err := settlement.Resolve(d, m, data, time.Now())
	if err != nil {
		return nil, err
	}

	if err = s.store.UpdateDispute(ctx, models.FromDispute(d)); err != nil {
		return nil, fmt.Errorf("failed to persist resolution: %w", err)
	}
	if err = s.store.UpdateOracleData(ctx, models.FromOracleData(data)); err != nil {
		return nil, fmt.Errorf("failed to update oracle data: %w", err)
	}
	if err = s.store.UpdateMarket(ctx, models.FromMarket(m, vault)); err != nil {
		return nil, fmt.Errorf("failed to update market: %w", err)
	}

	s.logger.Info("⚖️ Dispute resolved",
		zap.String("dispute_id", d.ID.String()),
		zap.Bool("upheld", resolution.Upheld),
		zap.String("outcome", resolution.Outcome.String()),
		zap.Uint64("total_votes", resolution.TotalVotes))

	s.publish(events.DisputeResolvedEvent{
		BaseEvent: events.NewBase(events.DisputeResolved),
		MarketID:  m.ID,
		DisputeID: d.ID,
		Outcome:   uint8(resolution.Outcome),
		Upheld:    resolution.Upheld,
	})
	s.invalidateMarketCache(ctx, m.ID)
	return &resolution, nil
}

// GetDispute возвращает спор по ID.
func (s *Service) GetDispute(ctx context.Context, disputeID uuid.UUID) (*settlement.Dispute, error) {
	rec, err := s.store.GetDispute(ctx, disputeID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrDisputeNotFound, disputeID)
		}
		return nil, fmt.Errorf("failed to load dispute: %w", err)
	}
	return rec.ToDispute(), nil
}

// Вспомогательные методы

func (s *Service) loadOracleData(ctx context.Context, dataID uuid.UUID) (*oracle.Data, error) {
	rec, err := s.store.GetOracleData(ctx, dataID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrOracleDataNotFound, dataID)
		}
		return nil, fmt.Errorf("failed to load oracle data: %w", err)
	}
	return rec.ToOracleData(), nil
}

func (s *Service) invalidateMarketCache(ctx context.Context, marketID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, marketID); err != nil {
		s.logger.Warn("Cache invalidation failed",
			zap.String("market_id", marketID.String()),
			zap.Error(err))
	}
}
