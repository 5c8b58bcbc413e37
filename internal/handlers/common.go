package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/SscSPs/finance_ledger/internal/apperrors"
	"github.com/SscSPs/finance_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/finance_ledger/internal/core/ports/services"
	"github.com/SscSPs/finance_ledger/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// statusForError maps the error taxonomy onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperrors.ErrDuplicate), errors.Is(err, apperrors.ErrInvalidStateTransition):
		return http.StatusConflict
	case errors.Is(err, apperrors.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity
	case errors.Is(err, apperrors.ErrGateway):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as JSON. Client errors carry the error text; server
// errors only carry fallback so internals are not leaked.
func respondError(c *gin.Context, err error, fallback string) {
	logger := middleware.GetLoggerFromContext(c)
	status := statusForError(err)
	if status >= http.StatusInternalServerError {
		logger.Error(fallback, slog.String("error", err.Error()), slog.Int("status", status))
		c.JSON(status, gin.H{"error": fallback})
		return
	}
	logger.Warn(fallback, slog.String("error", err.Error()), slog.Int("status", status))
	c.JSON(status, gin.H{"error": err.Error()})
}

// respondBindError reports a request that failed binding or validation.
func respondBindError(c *gin.Context, err error, what string) {
	logger := middleware.GetLoggerFromContext(c)
	logger.Warn("Failed to bind "+what, slog.String("error", err.Error()))
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + what + ": " + bindingErrorMessage(err)})
}

// bindingErrorMessage flattens validator errors into "field: rule" pairs.
func bindingErrorMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s failed on '%s=%s'", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s failed on '%s'", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}

// requireOwner returns the authenticated owner or writes 401.
func requireOwner(c *gin.Context) (string, bool) {
	ownerID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		middleware.GetLoggerFromContext(c).Error("Owner ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return "", false
	}
	return ownerID, true
}

// ownedAccount loads an account of ownerID, writing the error response when it
// is missing or belongs to someone else.
func ownedAccount(c *gin.Context, accounts portssvc.AccountReaderSvc, ownerID, accountID string) (*domain.Account, bool) {
	account, err := accounts.GetAccountByID(c.Request.Context(), ownerID, accountID)
	if err != nil {
		respondError(c, err, "Failed to retrieve account")
		return nil, false
	}
	return account, true
}

// ownedTransaction loads a transaction whose owning account belongs to ownerID.
func ownedTransaction(c *gin.Context, accounts portssvc.AccountReaderSvc, transactions portssvc.TransactionReaderSvc, ownerID, transactionID string) (*domain.Transaction, bool) {
	txn, err := transactions.GetTransactionByID(c.Request.Context(), transactionID)
	if err != nil {
		respondError(c, err, "Failed to retrieve transaction")
		return nil, false
	}
	if _, err := accounts.GetAccountByID(c.Request.Context(), ownerID, txn.AccountID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			err = fmt.Errorf("%w: transaction %s", apperrors.ErrNotFound, transactionID)
		}
		respondError(c, err, "Failed to retrieve transaction")
		return nil, false
	}
	return txn, true
}
