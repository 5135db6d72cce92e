// internal/chain/accounts.go
package chain

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/prediction-pump/internal/curve"
)

const (
	// Длина дискриминатора Anchor перед полями аккаунта.
	discriminatorLength = 8

	// Программа чеканит ровно два исхода; всё сверх этого — мусор в данных.
	maxOutcomeMints = 16
)

var (
	ErrAccountNotFound  = errors.New("account not found")
	ErrBadDiscriminator = errors.New("account discriminator mismatch")
	ErrBadOutcomeCount  = errors.New("implausible outcome mint count")
)

// Дискриминаторы Anchor: первые 8 байт sha256("account:<Имя>").
var (
	marketDiscriminator     = accountDiscriminator("Market")
	oracleDataDiscriminator = accountDiscriminator("OracleData")
)

func accountDiscriminator(name string) []byte {
	sum := sha256.Sum256([]byte("account:" + name))
	return sum[:discriminatorLength]
}

// MarketAccount — рыночный аккаунт программы, развёрнутый из Borsh.
type MarketAccount struct {
	Creator        solana.PublicKey
	Description    string
	ResolutionDate time.Time
	OracleSource   solana.PublicKey
	OutcomeMints   []solana.PublicKey
	Params         curve.Params
	TotalVolume    uint64
	IsActive       bool
	IsSettled      bool
	WinningOutcome *uint8
	SettledAt      *time.Time
	Settlement     *SettlementAccount
}

// SettlementAccount — вложенный блок расчёта рынка.
type SettlementAccount struct {
	WinningOutcome  uint8
	TotalPayoutPool uint64
	SettledAt       time.Time
	OracleDataHash  [32]byte
}

// OracleDataAccount — аккаунт данных оракула.
type OracleDataAccount struct {
	Market         solana.PublicKey
	Provider       solana.PublicKey
	WinningOutcome uint8
	Confidence     uint16
	Timestamp      time.Time
	DataHash       [32]byte
	Disputed       bool
}

// DecodeMarketAccount разбирает данные рыночного аккаунта. Раскладка
// переменной длины: строка описания и вектор минтов несут u32-префиксы,
// поэтому идём курсором, а не фиксированными смещениями.
func DecodeMarketAccount(data []byte) (*MarketAccount, error) {
	r := newAccountReader(data)
	disc := r.take(discriminatorLength, "discriminator")
	if r.err == nil && !bytes.Equal(disc, marketDiscriminator) {
		return nil, ErrBadDiscriminator
	}

	acc := &MarketAccount{
		Creator:        r.readPubKey("creator"),
		Description:    r.readString("description"),
		ResolutionDate: r.readUnixTime("resolution_date"),
		OracleSource:   r.readPubKey("oracle_source"),
	}

	mintCount := r.readUint32("outcome_tokens length")
	if r.err == nil && mintCount > maxOutcomeMints {
		return nil, fmt.Errorf("%w: %d", ErrBadOutcomeCount, mintCount)
	}
	for i := uint32(0); i < mintCount && r.err == nil; i++ {
		acc.OutcomeMints = append(acc.OutcomeMints, r.readPubKey("outcome_tokens"))
	}

	// Запись кривой отдаётся как есть; валидация параметров — дело
	// вызывающего, чейн уже проверил их при создании рынка.
	paramsRaw := r.take(curve.ParamsLen, "bonding_curve_params")
	if r.err == nil {
		if err := acc.Params.UnmarshalBinary(paramsRaw); err != nil {
			return nil, err
		}
	}

	acc.TotalVolume = r.readUint64("total_volume")
	acc.IsActive = r.readBool("status.is_active")
	acc.IsSettled = r.readBool("status.is_settled")

	if r.readOption("status.winning_outcome") {
		outcome := r.readUint8("status.winning_outcome")
		acc.WinningOutcome = &outcome
	}
	if r.readOption("status.settlement_timestamp") {
		ts := r.readUnixTime("status.settlement_timestamp")
		acc.SettledAt = &ts
	}

	if r.readOption("settlement_data") {
		settlement := SettlementAccount{
			WinningOutcome:  r.readUint8("settlement_data.winning_outcome"),
			TotalPayoutPool: r.readUint64("settlement_data.total_payout_pool"),
			SettledAt:       r.readUnixTime("settlement_data.settlement_timestamp"),
		}
		copy(settlement.OracleDataHash[:], r.take(32, "settlement_data.oracle_data_hash"))
		acc.Settlement = &settlement
	}

	if r.err != nil {
		return nil, r.err
	}
	return acc, nil
}

// DecodeOracleDataAccount разбирает аккаунт данных оракула. Все поля
// фиксированной длины.
func DecodeOracleDataAccount(data []byte) (*OracleDataAccount, error) {
	r := newAccountReader(data)
	disc := r.take(discriminatorLength, "discriminator")
	if r.err == nil && !bytes.Equal(disc, oracleDataDiscriminator) {
		return nil, ErrBadDiscriminator
	}

	acc := &OracleDataAccount{
		Market:         r.readPubKey("market"),
		Provider:       r.readPubKey("oracle_provider"),
		WinningOutcome: r.readUint8("winning_outcome"),
		Confidence:     r.readUint16("confidence_score"),
		Timestamp:      r.readUnixTime("timestamp"),
	}
	copy(acc.DataHash[:], r.take(32, "data_hash"))
	acc.Disputed = r.readBool("is_disputed")

	if r.err != nil {
		return nil, r.err
	}
	return acc, nil
}

// FetchMarket загружает и декодирует рыночный аккаунт.
func (c *Client) FetchMarket(ctx context.Context, address solana.PublicKey) (*MarketAccount, error) {
	result, err := c.GetAccountInfo(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch market account: %w", err)
	}
	if result == nil || result.Value == nil {
		return nil, ErrAccountNotFound
	}
	return DecodeMarketAccount(result.Value.Data.GetBinary())
}

// FetchOracleData загружает и декодирует аккаунт данных оракула.
func (c *Client) FetchOracleData(ctx context.Context, address solana.PublicKey) (*OracleDataAccount, error) {
	result, err := c.GetAccountInfo(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch oracle data account: %w", err)
	}
	if result == nil || result.Value == nil {
		return nil, ErrAccountNotFound
	}
	return DecodeOracleDataAccount(result.Value.Data.GetBinary())
}
