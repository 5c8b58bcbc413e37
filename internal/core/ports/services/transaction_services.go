package services

import (
	"context"

	"github.com/SscSPs/finance_ledger/internal/core/domain"
	"github.com/SscSPs/finance_ledger/internal/dto"
)

// TransactionReaderSvc defines read operations for transactions
type TransactionReaderSvc interface {
	GetTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error)
	GetTransactionByReference(ctx context.Context, referenceNumber string) (*domain.Transaction, error)
	// ListTransactions returns one page of an account's transactions, newest
	// first, and the token for the next page (empty when there is none).
	ListTransactions(ctx context.Context, accountID string, params dto.ListTransactionsParams) ([]domain.Transaction, string, error)
}

// TransactionWriterSvc orchestrates multi-step balance operations on top of the LedgerSvc.
type TransactionWriterSvc interface {
	// CreateTransaction records a pending credit or debit. Debits that the
	// account could not cover right now are rejected before anything is written.
	CreateTransaction(ctx context.Context, req dto.CreateTransactionRequest) (*domain.Transaction, error)

	// TransferFunds moves money between two accounts in one atomic unit and
	// returns the completed transfer transaction.
	TransferFunds(ctx context.Context, req dto.TransferRequest) (*domain.Transaction, error)

	// ProcessPayment authorizes a payment with the gateway, records a pending
	// debit and dispatches its reconciliation. It returns the pending
	// transaction and the client secret issued by the gateway.
	ProcessPayment(ctx context.Context, req dto.ProcessPaymentRequest) (*domain.Transaction, string, error)
}

// TransactionSvcFacade combines all transaction-related operations
type TransactionSvcFacade interface {
	TransactionReaderSvc
	TransactionWriterSvc
}
