package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountType describes what kind of account holds the balance.
type AccountType string

const (
	Checking   AccountType = "checking"
	Savings    AccountType = "savings"
	Credit     AccountType = "credit"
	Investment AccountType = "investment"
)

// Valid reports whether t is a known account type.
func (t AccountType) Valid() bool {
	switch t {
	case Checking, Savings, Credit, Investment:
		return true
	}
	return false
}

// DefaultCurrency is used when an account is opened without a currency code.
const DefaultCurrency = "USD"

// Account represents a money-holding account owned by a single user.
// Balance is only ever changed by the ledger state machine.
type Account struct {
	AccountID     string          `json:"accountID"`
	OwnerID       string          `json:"ownerID"`
	Name          string          `json:"name"`
	AccountNumber string          `json:"accountNumber"` // unique per owner
	AccountType   AccountType     `json:"accountType"`
	Balance       decimal.Decimal `json:"balance"`
	CurrencyCode  string          `json:"currencyCode"`
	IsActive      bool            `json:"isActive"`
	AuditFields
}

// NewAccount builds an active account, generating the account number when none is supplied.
func NewAccount(ownerID, name string, accountType AccountType, accountNumber, currencyCode string, openingBalance decimal.Decimal, now time.Time) Account {
	if accountNumber == "" {
		accountNumber = NewAccountNumber()
	}
	if currencyCode == "" {
		currencyCode = DefaultCurrency
	}
	acc := Account{
		AccountID:     NewID(),
		OwnerID:       ownerID,
		Name:          name,
		AccountNumber: accountNumber,
		AccountType:   accountType,
		Balance:       RoundAmount(openingBalance),
		CurrencyCode:  currencyCode,
		IsActive:      true,
	}
	acc.Touch(now)
	return acc
}

// EnforcesSufficiency reports whether debits against this account are checked
// against its balance. Only checking accounts are; every other type is treated
// as always debitable (no credit-limit model exists).
func (a *Account) EnforcesSufficiency() bool {
	return a.AccountType == Checking
}

// CanDebit reports whether amount may be debited from the account's current balance.
func (a *Account) CanDebit(amount decimal.Decimal) bool {
	if !a.EnforcesSufficiency() {
		return true
	}
	return a.Balance.GreaterThanOrEqual(amount)
}

// RoundAmount normalises a monetary value to two fractional digits.
func RoundAmount(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
