// internal/license/license.go

// Package license держит проверку лицензионного ключа движка: полная
// валидация через Keygen.sh либо базовая офлайн-проверка, когда учётные
// данные Keygen не настроены.
package license

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
)

// minKeyLength — нижняя граница длины ключа для офлайн-режима.
const minKeyLength = 8

var (
	// ErrMissingKey — ключ не задан в конфигурации.
	ErrMissingKey = errors.New("license: key is required")
	// ErrKeyTooShort — ключ короче минимально допустимого.
	ErrKeyTooShort = errors.New("license: key is too short")
)

// Validator проверяет лицензионный ключ перед запуском движка.
type Validator interface {
	Validate(ctx context.Context, key string) error
}

var (
	_ Validator = (*BasicValidator)(nil)
	_ Validator = (*KeygenValidator)(nil)
)

// BasicValidator — офлайн-проверка формата ключа. Используется, когда
// Keygen не настроен: дистрибутив остаётся работоспособным без сети.
type BasicValidator struct {
	logger *zap.Logger
}

// NewBasicValidator создаёт офлайн-валидатор.
func NewBasicValidator(logger *zap.Logger) *BasicValidator {
	return &BasicValidator{logger: logger.Named("license")}
}

// Validate проверяет, что ключ задан и достаточно длинный.
func (v *BasicValidator) Validate(_ context.Context, key string) error {
	if key == "" {
		return ErrMissingKey
	}
	if len(key) < minKeyLength {
		return ErrKeyTooShort
	}
	v.logger.Info("✅ License validated (basic mode)", zap.String("key", maskKey(key)))
	return nil
}

// maskKey оставляет в логах только начало ключа.
func maskKey(key string) string {
	if len(key) <= minKeyLength {
		return strings.Repeat("*", len(key))
	}
	return key[:minKeyLength] + "..."
}
