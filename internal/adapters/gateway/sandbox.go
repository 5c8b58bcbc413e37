package gateway

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/SscSPs/finance_ledger/internal/apperrors"
	"github.com/SscSPs/finance_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/finance_ledger/internal/core/ports/services"
	"github.com/google/uuid"
)

// Sandbox amounts, in minor units modulo 100, that steer the outcome of an authorization.
// Any other amount succeeds.
const (
	SandboxDeclineCents       = 2 // e.g. 10.02
	SandboxMissingMethodCents = 3 // e.g. 10.03
)

const sandboxHandlePrefix = "sandbox_pi_"

// SandboxGateway is an in-process PaymentGateway for development. Outcomes are
// decided by the amount at authorization time and can be overridden per handle.
type SandboxGateway struct {
	mu       sync.RWMutex
	outcomes map[string]domain.PaymentOutcome
}

// NewSandboxGateway creates an empty sandbox gateway.
func NewSandboxGateway() *SandboxGateway {
	return &SandboxGateway{outcomes: make(map[string]domain.PaymentOutcome)}
}

var _ portssvc.PaymentGateway = (*SandboxGateway)(nil)

func (g *SandboxGateway) Authorize(ctx context.Context, amountMinor int64, currency string, metadata map[string]string) (*domain.PaymentAuthorization, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewGatewayError("authorize", err, true)
	}
	if amountMinor <= 0 {
		return nil, apperrors.NewGatewayError("authorize", fmt.Errorf("amount must be positive, got %d", amountMinor), false)
	}
	if len(currency) != 3 || strings.ToLower(currency) != currency {
		return nil, apperrors.NewGatewayError("authorize", fmt.Errorf("invalid currency '%s'", currency), false)
	}

	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	handle := sandboxHandlePrefix + id[:24]

	outcome := domain.PaymentOutcome{Status: domain.PaymentSucceeded, PaymentMethod: "pm_sandbox_visa"}
	switch amountMinor % 100 {
	case SandboxDeclineCents:
		outcome = domain.PaymentOutcome{Status: domain.PaymentFailed, PaymentMethod: "pm_sandbox_visa", Message: "card_declined"}
	case SandboxMissingMethodCents:
		outcome = domain.PaymentOutcome{Status: domain.PaymentPendingMethod, Message: "requires_payment_method"}
	}

	g.mu.Lock()
	g.outcomes[handle] = outcome
	g.mu.Unlock()

	return &domain.PaymentAuthorization{
		Handle:       handle,
		ClientSecret: handle + "_secret_" + id[24:],
	}, nil
}

func (g *SandboxGateway) QueryOutcome(ctx context.Context, handle string) (*domain.PaymentOutcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewGatewayError("query outcome", err, true)
	}
	g.mu.RLock()
	outcome, ok := g.outcomes[handle]
	g.mu.RUnlock()
	if !ok {
		return nil, apperrors.NewGatewayError("query outcome", fmt.Errorf("no such payment intent: '%s'", handle), false)
	}
	return &outcome, nil
}

// SetOutcome overrides what QueryOutcome reports for handle.
func (g *SandboxGateway) SetOutcome(handle string, outcome domain.PaymentOutcome) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.outcomes[handle] = outcome
}
