package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Frequency is how often a recurring definition fires.
type Frequency string

const (
	Daily     Frequency = "daily"
	Weekly    Frequency = "weekly"
	Monthly   Frequency = "monthly"
	Quarterly Frequency = "quarterly"
	Yearly    Frequency = "yearly"
)

// Valid reports whether f is a known frequency.
func (f Frequency) Valid() bool {
	switch f {
	case Daily, Weekly, Monthly, Quarterly, Yearly:
		return true
	}
	return false
}

// Advance returns the next due time one frequency unit after t.
// Month arithmetic clamps to the last day of the target month, so Jan 31 advances to Feb 28/29
// rather than overflowing into March.
func (f Frequency) Advance(t time.Time) time.Time {
	switch f {
	case Daily:
		return t.AddDate(0, 0, 1)
	case Weekly:
		return t.AddDate(0, 0, 7)
	case Monthly:
		return addMonths(t, 1)
	case Quarterly:
		return addMonths(t, 3)
	case Yearly:
		return addMonths(t, 12)
	}
	return t
}

func addMonths(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	firstOfTarget := time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	lastDay := daysIn(firstOfTarget.Year(), firstOfTarget.Month(), t.Location())
	if day > lastDay {
		day = lastDay
	}
	hour, minute, sec := t.Clock()
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day, hour, minute, sec, t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}

// RecurringTransaction is a template that materializes one debit each time it falls due.
type RecurringTransaction struct {
	RecurringID string          `json:"recurringID"`
	AccountID   string          `json:"accountID"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	CategoryID  *string         `json:"categoryID,omitempty"`
	Frequency   Frequency       `json:"frequency"`
	NextDueAt   time.Time       `json:"nextDueAt"`
	IsActive    bool            `json:"isActive"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// IsDue reports whether the definition should fire at now.
func (r *RecurringTransaction) IsDue(now time.Time) bool {
	return r.IsActive && !r.NextDueAt.After(now)
}
