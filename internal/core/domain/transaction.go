package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType determines the signed effect of a transaction on balances.
type TransactionType string

const (
	CreditTxn   TransactionType = "credit"
	DebitTxn    TransactionType = "debit"
	TransferTxn TransactionType = "transfer"
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	switch t {
	case CreditTxn, DebitTxn, TransferTxn:
		return true
	}
	return false
}

// TransactionStatus is a position in the transaction lifecycle.
type TransactionStatus string

const (
	StatusPending    TransactionStatus = "pending"
	StatusProcessing TransactionStatus = "processing"
	StatusCompleted  TransactionStatus = "completed"
	StatusFailed     TransactionStatus = "failed"
	StatusCancelled  TransactionStatus = "cancelled"
)

// allowedTransitions lists every legal status change. Terminal statuses have no entry.
var allowedTransitions = map[TransactionStatus][]TransactionStatus{
	StatusPending:    {StatusProcessing, StatusCompleted, StatusFailed, StatusCancelled},
	StatusProcessing: {StatusCompleted, StatusFailed, StatusCancelled},
}

// Valid reports whether s is a known status.
func (s TransactionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no transition out of s exists.
func (s TransactionStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// CanTransitionTo reports whether the lifecycle allows moving from s to next.
func (s TransactionStatus) CanTransitionTo(next TransactionStatus) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Well-known metadata keys.
const (
	MetaError           = "error"
	MetaPaymentIntentID = "payment_intent_id"
	MetaPaymentMethod   = "payment_method"
	MetaRecurringID     = "recurring_id"
)

// Transaction is a single balance-affecting entry on its owning account.
// Amount is always positive; the sign of the effect comes from TransactionType.
type Transaction struct {
	TransactionID     string            `json:"transactionID"`
	ReferenceNumber   string            `json:"referenceNumber"` // immutable once assigned
	AccountID         string            `json:"accountID"`
	CounterAccountID  *string           `json:"counterAccountID,omitempty"` // transfers only
	TransactionType   TransactionType   `json:"transactionType"`
	Amount            decimal.Decimal   `json:"amount"`
	Description       string            `json:"description"`
	CategoryID        *string           `json:"categoryID,omitempty"`
	Status            TransactionStatus `json:"status"`
	ExternalPaymentID string            `json:"externalPaymentID,omitempty"`
	PaymentMethod     string            `json:"paymentMethod,omitempty"`
	TransactionDate   time.Time         `json:"transactionDate"`
	Metadata          map[string]string `json:"metadata"`
	AuditFields
}

// NewTransaction builds a pending transaction with fresh identifiers.
func NewTransaction(accountID string, txnType TransactionType, amount decimal.Decimal, description string, categoryID *string, metadata map[string]string, now time.Time) Transaction {
	meta := make(map[string]string, len(metadata))
	for k, v := range metadata {
		meta[k] = v
	}
	txn := Transaction{
		TransactionID:   NewID(),
		ReferenceNumber: NewReferenceNumber(),
		AccountID:       accountID,
		TransactionType: txnType,
		Amount:          RoundAmount(amount),
		Description:     description,
		CategoryID:      categoryID,
		Status:          StatusPending,
		TransactionDate: now,
		Metadata:        meta,
	}
	txn.Touch(now)
	return txn
}

// Validate checks the invariants every persisted transaction must satisfy.
func (t *Transaction) Validate() error {
	if !t.Amount.IsPositive() {
		return fmt.Errorf("amount must be positive, got %s", t.Amount.String())
	}
	if !t.TransactionType.Valid() {
		return fmt.Errorf("unknown transaction type '%s'", t.TransactionType)
	}
	if !t.Status.Valid() {
		return fmt.Errorf("unknown transaction status '%s'", t.Status)
	}
	if t.TransactionType == TransferTxn {
		if t.CounterAccountID == nil || *t.CounterAccountID == "" {
			return fmt.Errorf("transfer requires a counter account")
		}
		if *t.CounterAccountID == t.AccountID {
			return fmt.Errorf("transfer counter account must differ from the owning account")
		}
	}
	return nil
}

// AccountIDs returns every account whose balance completing t would touch.
func (t *Transaction) AccountIDs() []string {
	ids := []string{t.AccountID}
	if t.CounterAccountID != nil && *t.CounterAccountID != "" {
		ids = append(ids, *t.CounterAccountID)
	}
	return ids
}

// SetMeta records a metadata value, allocating the map if needed.
func (t *Transaction) SetMeta(key, value string) {
	if t.Metadata == nil {
		t.Metadata = map[string]string{}
	}
	t.Metadata[key] = value
}

// TransactionFilter narrows transaction listings. Zero values are ignored.
type TransactionFilter struct {
	AccountID string
	Status    TransactionStatus
	Type      TransactionType
	From      *time.Time // inclusive
	To        *time.Time // inclusive
	Limit     int
	// Keyset cursor: rows strictly older than (BeforeDate, BeforeCreatedAt).
	BeforeDate      *time.Time
	BeforeCreatedAt *time.Time
}
