package dto

import (
	"time"

	"github.com/SscSPs/finance_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CreateTransactionRequest defines the data needed to record a credit or debit.
// AccountID comes from the path.
type CreateTransactionRequest struct {
	AccountID       string                 `json:"-"`
	TransactionType domain.TransactionType `json:"transactionType" binding:"required,oneof=credit debit"`
	Amount          decimal.Decimal        `json:"amount"`
	Description     string                 `json:"description" binding:"max=255"`
	CategoryID      *string                `json:"categoryID"` // Optional
	Metadata        map[string]string      `json:"metadata"`   // Optional
}

// TransferRequest moves money between two accounts of the same owner.
type TransferRequest struct {
	FromAccountID string          `json:"fromAccountID" binding:"required"`
	ToAccountID   string          `json:"toAccountID" binding:"required"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description" binding:"max=255"`
}

// ProcessPaymentRequest asks the payment gateway to authorize a card payment
// that is then debited from AccountID.
type ProcessPaymentRequest struct {
	AccountID     string          `json:"-"`
	OwnerID       string          `json:"-"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"paymentMethod" binding:"required"`
	Description   string          `json:"description" binding:"max=255"`
}

// ProcessPaymentResponse carries the pending transaction and the client-facing gateway secret.
type ProcessPaymentResponse struct {
	Transaction  TransactionResponse `json:"transaction"`
	ClientSecret string              `json:"clientSecret"`
}

// FailTransactionRequest records why a transaction was failed manually.
type FailTransactionRequest struct {
	Reason string `json:"reason" binding:"required,max=255"`
}

// TransactionResponse defines the data returned for a transaction.
type TransactionResponse struct {
	TransactionID     string                   `json:"transactionID"`
	ReferenceNumber   string                   `json:"referenceNumber"`
	AccountID         string                   `json:"accountID"`
	CounterAccountID  *string                  `json:"counterAccountID,omitempty"`
	TransactionType   domain.TransactionType   `json:"transactionType"`
	Amount            decimal.Decimal          `json:"amount"`
	Description       string                   `json:"description"`
	CategoryID        *string                  `json:"categoryID,omitempty"`
	Status            domain.TransactionStatus `json:"status"`
	ExternalPaymentID string                   `json:"externalPaymentID,omitempty"`
	PaymentMethod     string                   `json:"paymentMethod,omitempty"`
	TransactionDate   time.Time                `json:"transactionDate"`
	Metadata          map[string]string        `json:"metadata"`
	CreatedAt         time.Time                `json:"createdAt"`
	LastUpdatedAt     time.Time                `json:"lastUpdatedAt"`
}

// ToTransactionResponse converts a domain.Transaction to its DTO.
func ToTransactionResponse(txn *domain.Transaction) TransactionResponse {
	return TransactionResponse{
		TransactionID:     txn.TransactionID,
		ReferenceNumber:   txn.ReferenceNumber,
		AccountID:         txn.AccountID,
		CounterAccountID:  txn.CounterAccountID,
		TransactionType:   txn.TransactionType,
		Amount:            txn.Amount,
		Description:       txn.Description,
		CategoryID:        txn.CategoryID,
		Status:            txn.Status,
		ExternalPaymentID: txn.ExternalPaymentID,
		PaymentMethod:     txn.PaymentMethod,
		TransactionDate:   txn.TransactionDate,
		Metadata:          txn.Metadata,
		CreatedAt:         txn.CreatedAt,
		LastUpdatedAt:     txn.LastUpdatedAt,
	}
}

// ListTransactionsParams defines query parameters for listing an account's transactions.
type ListTransactionsParams struct {
	Status    domain.TransactionStatus `form:"status" binding:"omitempty,oneof=pending processing completed failed cancelled"`
	Type      domain.TransactionType   `form:"type" binding:"omitempty,oneof=credit debit transfer"`
	From      *time.Time               `form:"from" time_format:"2006-01-02"`
	To        *time.Time               `form:"to" time_format:"2006-01-02"`
	Limit     int                      `form:"limit,default=20" binding:"min=1,max=100"`
	NextToken string                   `form:"nextToken"`
}

// ListTransactionsResponse wraps a page of transactions.
type ListTransactionsResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
	NextToken    string                `json:"nextToken,omitempty"` // empty on the last page
}

// ToListTransactionsResponse converts a page of transactions to its DTO.
func ToListTransactionsResponse(txns []domain.Transaction, nextToken string) ListTransactionsResponse {
	res := make([]TransactionResponse, len(txns))
	for i, txn := range txns {
		res[i] = ToTransactionResponse(&txn)
	}
	return ListTransactionsResponse{Transactions: res, NextToken: nextToken}
}
