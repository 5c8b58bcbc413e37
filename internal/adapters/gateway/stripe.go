// Package gateway holds the PaymentGateway adapters: Stripe for real card
// payments and a deterministic sandbox for local runs.
package gateway

import (
	"context"
	"errors"
	"net/http"

	"github.com/SscSPs/finance_ledger/internal/apperrors"
	"github.com/SscSPs/finance_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/finance_ledger/internal/core/ports/services"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// StripeGateway authorizes payments as Stripe PaymentIntents and reads their status back.
type StripeGateway struct {
	api *client.API
}

// NewStripeGateway creates a Stripe-backed gateway. backends may be nil to use
// Stripe's default API endpoints.
func NewStripeGateway(secretKey string, backends *stripe.Backends) *StripeGateway {
	api := &client.API{}
	api.Init(secretKey, backends)
	return &StripeGateway{api: api}
}

var _ portssvc.PaymentGateway = (*StripeGateway)(nil)

// Authorize creates a PaymentIntent for amountMinor in the given lowercase currency.
func (g *StripeGateway) Authorize(ctx context.Context, amountMinor int64, currency string, metadata map[string]string) (*domain.PaymentAuthorization, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountMinor),
		Currency: stripe.String(currency),
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	intent, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return nil, classifyStripeError("authorize", err)
	}
	return &domain.PaymentAuthorization{
		Handle:       intent.ID,
		ClientSecret: intent.ClientSecret,
	}, nil
}

// QueryOutcome retrieves the PaymentIntent behind handle. Only "succeeded"
// counts as success; "requires_payment_method" is reported separately so the
// reason is visible, and every other status is a failure.
func (g *StripeGateway) QueryOutcome(ctx context.Context, handle string) (*domain.PaymentOutcome, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	intent, err := g.api.PaymentIntents.Get(handle, params)
	if err != nil {
		return nil, classifyStripeError("query outcome", err)
	}
	return outcomeFromIntent(intent), nil
}

func outcomeFromIntent(intent *stripe.PaymentIntent) *domain.PaymentOutcome {
	outcome := &domain.PaymentOutcome{}
	if intent.PaymentMethod != nil {
		outcome.PaymentMethod = intent.PaymentMethod.ID
	}

	switch intent.Status {
	case stripe.PaymentIntentStatusSucceeded:
		outcome.Status = domain.PaymentSucceeded
		return outcome
	case stripe.PaymentIntentStatusRequiresPaymentMethod:
		outcome.Status = domain.PaymentPendingMethod
	default:
		outcome.Status = domain.PaymentFailed
	}

	outcome.Message = string(intent.Status)
	if lastErr := intent.LastPaymentError; lastErr != nil {
		if lastErr.Code != "" {
			outcome.Message = string(lastErr.Code)
		} else if lastErr.Msg != "" {
			outcome.Message = lastErr.Msg
		}
	}
	return outcome
}

// classifyStripeError wraps err as a GatewayError. Stripe-side faults, rate
// limiting and anything that never produced an API response are transient.
func classifyStripeError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return apperrors.NewGatewayError(op, err, true)
	}
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		transient := stripeErr.HTTPStatusCode >= http.StatusInternalServerError ||
			stripeErr.HTTPStatusCode == http.StatusTooManyRequests ||
			stripeErr.Type == stripe.ErrorTypeAPI
		return apperrors.NewGatewayError(op, err, transient)
	}
	return apperrors.NewGatewayError(op, err, true)
}
