// internal/api/response.go
package api

import (
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/rovshanmuradov/prediction-pump/internal/curve"
	"github.com/rovshanmuradov/prediction-pump/internal/engine"
	"github.com/rovshanmuradov/prediction-pump/internal/market"
	"github.com/rovshanmuradov/prediction-pump/internal/oracle"
	"github.com/rovshanmuradov/prediction-pump/internal/settlement"
	"github.com/rovshanmuradov/prediction-pump/internal/storage"
)

// lamportExp — экспонента для человекочитаемых сумм: все денежные
// величины движок хранит в лампортах.
const lamportExp = -9

// writeJSON сериализует v и пишет его с заданным статусом. Ошибка
// маршалинга превращается в голый 500, чтобы не отдать полуответ.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError шлёт ошибку в едином JSON-формате.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError переводит доменную ошибку в HTTP-статус и отдаёт её
// текст клиенту. Текст безопасен: доменные ошибки не содержат
// внутренних деталей.
func writeDomainError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}

// Группы доменных ошибок по HTTP-статусам. Всё, что не перечислено,
// считается внутренней ошибкой.
var (
	notFoundErrs = []error{
		engine.ErrMarketNotFound,
		engine.ErrOracleDataNotFound,
		engine.ErrDisputeNotFound,
		engine.ErrUnknownProvider,
		storage.ErrNotFound,
		market.ErrUnknownOutcome,
	}

	// Конфликт текущего состояния: запрос корректен, но рынок или спор
	// находятся не в той фазе.
	conflictErrs = []error{
		engine.ErrSlippageExceeded,
		engine.ErrProviderInactive,
		market.ErrMarketNotActive,
		market.ErrMarketAlreadyActive,
		market.ErrMarketSettled,
		market.ErrMarketNotSettled,
		market.ErrTradingClosed,
		settlement.ErrNotYetResolved,
		settlement.ErrDisputedData,
		settlement.ErrCorruptedData,
		settlement.ErrOracleMarketMismatch,
		settlement.ErrUnauthorizedOracle,
		settlement.ErrDisputeResolved,
		settlement.ErrVotingEnded,
		settlement.ErrVotingOpen,
		settlement.ErrAlreadyVoted,
		settlement.ErrTooManyVotes,
		settlement.ErrNoVotes,
		settlement.ErrNotWinningTokens,
		settlement.ErrNothingToRedeem,
		settlement.ErrNoWinningOutcome,
		settlement.ErrNoWinningSupply,
		settlement.ErrNoSettlementData,
		settlement.ErrNoPayout,
		settlement.ErrVaultUnderfunded,
		oracle.ErrAlreadyDisputed,
		oracle.ErrProviderExists,
		oracle.ErrTooManyProviders,
		oracle.ErrNoFallback,
	}

	// Запрос понятен, но данные не проходят доменную валидацию.
	unprocessableErrs = []error{
		curve.ErrInvalidPrice,
		curve.ErrInvalidMaxSupply,
		curve.ErrInvalidCurveParams,
		curve.ErrFeeTooHigh,
		curve.ErrMathOverflow,
		market.ErrDescriptionTooLong,
		market.ErrInvalidResolutionDate,
		market.ErrInsufficientOutcomes,
		market.ErrTooManyOutcomes,
		market.ErrInsufficientLiquidity,
		settlement.ErrInvalidWinningOutcome,
		settlement.ErrReasonTooLong,
		settlement.ErrInsufficientStake,
		settlement.ErrInvalidVoteWeight,
		oracle.ErrInvalidReliability,
		oracle.ErrInvalidConfidence,
		oracle.ErrUnknownProviderType,
	}
)

func statusFor(err error) int {
	for _, target := range notFoundErrs {
		if errors.Is(err, target) {
			return http.StatusNotFound
		}
	}
	for _, target := range conflictErrs {
		if errors.Is(err, target) {
			return http.StatusConflict
		}
	}
	for _, target := range unprocessableErrs {
		if errors.Is(err, target) {
			return http.StatusUnprocessableEntity
		}
	}
	return http.StatusInternalServerError
}

// decodeJSON разбирает тело запроса в v, отклоняя неизвестные поля:
// опечатка в имени поля не должна молча превращаться в нулевое значение.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// pathUUID достаёт UUID из path-параметра маршрута.
func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	return uuid.Parse(mux.Vars(r)[name])
}

// parseOutcome принимает и символьные ("yes"/"no"/"uphold"), и числовые
// значения стороны.
func parseOutcome(raw string) (market.Outcome, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "yes", "0":
		return market.OutcomeYes, nil
	case "no", "1":
		return market.OutcomeNo, nil
	case "uphold", "255":
		return market.OutcomeUphold, nil
	default:
		return 0, market.ErrUnknownOutcome
	}
}

// parseListOpts читает limit/offset из query string. По умолчанию 50,
// потолок 500.
func parseListOpts(r *http.Request) (limit, offset int) {
	q := r.URL.Query()

	limit = 50
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 500 {
		limit = 500
	}

	offset = 0
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}

// parseUint64 разбирает обязательный uint64 из query string.
func parseUint64(r *http.Request, name string) (uint64, error) {
	return strconv.ParseUint(r.URL.Query().Get(name), 10, 64)
}

// displaySOL переводит лампорты в строку в SOL без потери точности.
func displaySOL(lamports uint64) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(lamports), lamportExp).String()
}

// displayPrice переводит цену с фиксированной точкой кривой в десятичную
// строку: 1000 при масштабе 10000 — это "0.1".
func displayPrice(scaled uint64) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(scaled), 0).
		Div(decimal.NewFromInt(curve.Scale)).String()
}

// marketView — публичное представление рынка: сама запись плюс
// производные величины, которые клиенты иначе считали бы сами.
type marketView struct {
	Market *market.Market `json:"market"`

	Vault    uint64 `json:"vault"`
	VaultSOL string `json:"vault_sol"`

	YesPrice        uint64 `json:"yes_price"`
	NoPrice         uint64 `json:"no_price"`
	YesPriceDisplay string `json:"yes_price_display"`
	NoPriceDisplay  string `json:"no_price_display"`

	MarketCap uint64 `json:"market_cap"`
}

// newMarketView собирает представление. Ошибки кривой здесь невозможны:
// параметры прошли валидацию при создании рынка, а предложение не
// превышает MaxSupply по инварианту торговли.
func newMarketView(m *market.Market, vault uint64) marketView {
	v := marketView{
		Market:   m,
		Vault:    vault,
		VaultSOL: displaySOL(vault),
	}

	if yes, err := m.Params.PriceAt(m.Outcomes[market.OutcomeYes].Supply); err == nil {
		v.YesPrice = yes
		v.YesPriceDisplay = displayPrice(yes)
	}
	if no, err := m.Params.PriceAt(m.Outcomes[market.OutcomeNo].Supply); err == nil {
		v.NoPrice = no
		v.NoPriceDisplay = displayPrice(no)
	}

	capYes, errYes := m.Params.MarketCap(m.Outcomes[market.OutcomeYes].Supply)
	capNo, errNo := m.Params.MarketCap(m.Outcomes[market.OutcomeNo].Supply)
	if errYes == nil && errNo == nil {
		if total, err := curve.CheckedAdd(capYes, capNo); err == nil {
			v.MarketCap = total
		}
	}
	return v
}

// quoteView дополняет котировку человекочитаемыми суммами.
type quoteView struct {
	*engine.Quote
	ValueSOL         string `json:"value_sol"`
	SpotPriceDisplay string `json:"spot_price_display"`
}

func newQuoteView(q *engine.Quote) quoteView {
	return quoteView{
		Quote:            q,
		ValueSOL:         displaySOL(q.Value),
		SpotPriceDisplay: displayPrice(q.SpotPrice),
	}
}
