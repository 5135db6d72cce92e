// internal/engine/errors.go
package engine

import "errors"

var (
	// ErrMarketNotFound — рынок с таким ID не найден в хранилище.
	ErrMarketNotFound = errors.New("market not found")

	// ErrOracleDataNotFound — показание оракула не найдено.
	ErrOracleDataNotFound = errors.New("oracle data not found")

	// ErrDisputeNotFound — спор не найден.
	ErrDisputeNotFound = errors.New("dispute not found")

	// ErrSlippageExceeded — сделка вышла за лимит, заданный трейдером:
	// для покупки цена выше max_value, для продажи выплата ниже.
	ErrSlippageExceeded = errors.New("trade limit breached by slippage")

	// ErrUnknownProvider — провайдер не зарегистрирован в реестре.
	ErrUnknownProvider = errors.New("oracle provider not registered")

	// ErrProviderInactive — провайдер деактивирован и не может подавать
	// показания.
	ErrProviderInactive = errors.New("oracle provider inactive")
)
