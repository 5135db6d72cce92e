// internal/license/keygen.go
package license

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"net"
	"os"
	"runtime"

	"github.com/keygen-sh/keygen-go/v3"
	"go.uber.org/zap"
)

// KeygenValidator проверяет ключ через Keygen.sh с привязкой к машине.
// Неактивированный ключ активируется на месте: первый запуск на новой
// машине не должен требовать ручных действий.
type KeygenValidator struct {
	logger    *zap.Logger
	accountID string
	productID string
}

// NewKeygenValidator настраивает глобальное состояние клиента Keygen и
// возвращает валидатор.
func NewKeygenValidator(accountID, productToken, productID string, logger *zap.Logger) *KeygenValidator {
	keygen.Account = accountID
	keygen.Product = productID
	keygen.Token = productToken
	// Публичный ключ клиент подтянет сам.
	keygen.PublicKey = ""

	return &KeygenValidator{
		logger:    logger.Named("license"),
		accountID: accountID,
		productID: productID,
	}
}

// Validate проверяет ключ и при необходимости активирует его на текущей
// машине.
func (v *KeygenValidator) Validate(ctx context.Context, key string) error {
	if key == "" {
		return ErrMissingKey
	}
	v.logger.Info("🔑 Validating license with Keygen.sh", zap.String("key", maskKey(key)))

	fingerprint, err := v.fingerprint()
	if err != nil {
		return fmt.Errorf("license: machine fingerprint: %w", err)
	}

	keygen.LicenseKey = key

	lic, err := keygen.Validate(ctx, fingerprint)
	switch {
	case errors.Is(err, keygen.ErrLicenseNotActivated):
		v.logger.Info("License not activated, activating this machine")
		machine, activateErr := lic.Activate(ctx, fingerprint)
		if activateErr != nil {
			return fmt.Errorf("license: activation: %w", activateErr)
		}
		v.logger.Info("✅ License activated",
			zap.String("machine_id", machine.ID),
			zap.String("fingerprint", fingerprint))

	case errors.Is(err, keygen.ErrLicenseExpired):
		return fmt.Errorf("license: key expired")

	case err != nil:
		return fmt.Errorf("license: validation: %w", err)
	}

	if lic == nil {
		return fmt.Errorf("license: key not found")
	}

	v.logger.Info("✅ License validated with Keygen.sh", zap.String("license_id", lic.ID))
	return nil
}

// Heartbeat повторно валидирует ключ, поддерживая активацию машины.
func (v *KeygenValidator) Heartbeat(ctx context.Context, key string) error {
	fingerprint, err := v.fingerprint()
	if err != nil {
		return fmt.Errorf("license: machine fingerprint: %w", err)
	}

	keygen.LicenseKey = key
	if _, err := keygen.Validate(ctx, fingerprint); err != nil {
		return fmt.Errorf("license: heartbeat: %w", err)
	}

	v.logger.Debug("license heartbeat sent")
	return nil
}

// fingerprint собирает отпечаток машины из hostname, первого активного
// MAC-адреса и ОС. Loopback-интерфейсы не учитываются.
func (v *KeygenValidator) fingerprint() (string, error) {
	interfaces, err := net.Interfaces()
	if err != nil {
		return "", err
	}

	var mac string
	for _, iface := range interfaces {
		if iface.Flags&net.FlagUp != 0 && iface.Flags&net.FlagLoopback == 0 {
			mac = iface.HardwareAddr.String()
			break
		}
	}
	if mac == "" {
		return "", fmt.Errorf("no active network interface")
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	sum := sha256.Sum256([]byte(hostname + "-" + mac + "-" + runtime.GOOS))
	return fmt.Sprintf("%x", sum), nil
}
