package gateway

import (
	"context"
	"strings"
	"testing"

	"github.com/SscSPs/finance_ledger/internal/apperrors"
	"github.com/SscSPs/finance_ledger/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSandboxGateway_Outcomes(t *testing.T) {
	tests := []struct {
		name        string
		amountMinor int64
		want        domain.PaymentOutcomeStatus
		wantMessage string
	}{
		{name: "ordinary amount succeeds", amountMinor: 4250, want: domain.PaymentSucceeded},
		{name: "decline amount fails", amountMinor: 1002, want: domain.PaymentFailed, wantMessage: "card_declined"},
		{name: "missing method amount", amountMinor: 1003, want: domain.PaymentPendingMethod, wantMessage: "requires_payment_method"},
	}

	gw := NewSandboxGateway()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth, err := gw.Authorize(context.Background(), tt.amountMinor, "usd", nil)
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(auth.Handle, sandboxHandlePrefix))
			assert.True(t, strings.HasPrefix(auth.ClientSecret, auth.Handle+"_secret_"))

			outcome, err := gw.QueryOutcome(context.Background(), auth.Handle)
			require.NoError(t, err)
			assert.Equal(t, tt.want, outcome.Status)
			assert.Equal(t, tt.wantMessage, outcome.Message)
		})
	}
}

func TestSandboxGateway_Rejections(t *testing.T) {
	gw := NewSandboxGateway()

	_, err := gw.Authorize(context.Background(), 0, "usd", nil)
	assert.True(t, apperrors.IsTerminal(err))

	_, err = gw.Authorize(context.Background(), 100, "USD", nil)
	assert.ErrorIs(t, err, apperrors.ErrGateway)

	_, err = gw.QueryOutcome(context.Background(), "sandbox_pi_unknown")
	assert.True(t, apperrors.IsTerminal(err))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = gw.QueryOutcome(ctx, "sandbox_pi_unknown")
	assert.True(t, apperrors.IsRetryable(err))
}

func TestSandboxGateway_SetOutcome(t *testing.T) {
	gw := NewSandboxGateway()
	auth, err := gw.Authorize(context.Background(), 500, "eur", nil)
	require.NoError(t, err)

	gw.SetOutcome(auth.Handle, domain.PaymentOutcome{Status: domain.PaymentFailed, Message: "expired_card"})

	outcome, err := gw.QueryOutcome(context.Background(), auth.Handle)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentFailed, outcome.Status)
	assert.Equal(t, "expired_card", outcome.Message)
}
