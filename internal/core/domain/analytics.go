package domain

import "github.com/shopspring/decimal"

// UncategorizedLabel groups spending that carries no category.
const UncategorizedLabel = "Uncategorized"

// MonthlyTrend is the income and spending total of one calendar month.
type MonthlyTrend struct {
	Month    string          `json:"month"` // YYYY-MM
	Income   decimal.Decimal `json:"income"`
	Spending decimal.Decimal `json:"spending"`
}

// AccountReport is one account's section of a monthly report.
type AccountReport struct {
	AccountID          string                     `json:"accountID"`
	AccountName        string                     `json:"accountName"`
	Balance            decimal.Decimal            `json:"balance"`
	SpendingByCategory map[string]decimal.Decimal `json:"spendingByCategory"`
}

// MonthlyReport summarises every active account of an owner for one month.
type MonthlyReport struct {
	OwnerID  string          `json:"ownerID"`
	Period   string          `json:"period"` // YYYY-MM
	Accounts []AccountReport `json:"accounts"`
}

// PaymentAuthorization is what the gateway returns when it accepts a payment request.
type PaymentAuthorization struct {
	Handle       string `json:"handle"`
	ClientSecret string `json:"clientSecret"`
}

// PaymentOutcomeStatus is the gateway's view of an authorization.
type PaymentOutcomeStatus string

const (
	PaymentSucceeded     PaymentOutcomeStatus = "succeeded"
	PaymentFailed        PaymentOutcomeStatus = "failed"
	PaymentPendingMethod PaymentOutcomeStatus = "pending_method"
)

// PaymentOutcome is the result of querying a gateway handle.
type PaymentOutcome struct {
	Status        PaymentOutcomeStatus `json:"status"`
	PaymentMethod string               `json:"paymentMethod,omitempty"`
	Message       string               `json:"message,omitempty"`
}

// ReconciliationJob is the work item dispatched once per payment.
type ReconciliationJob struct {
	TransactionID string `json:"transactionID"`
	GatewayHandle string `json:"gatewayHandle"`
}
