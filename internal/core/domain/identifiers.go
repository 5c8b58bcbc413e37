package domain

import (
	"strings"

	"github.com/google/uuid"
)

const (
	accountNumberPrefix   = "ACC"
	referenceNumberPrefix = "TXN"
	shortIDLength         = 8
)

// NewAccountNumber generates a customer-facing account number such as "ACC1A2B3C4D".
func NewAccountNumber() string {
	return accountNumberPrefix + shortHex()
}

// NewReferenceNumber generates a transaction reference number such as "TXN9F8E7D6C".
func NewReferenceNumber() string {
	return referenceNumberPrefix + shortHex()
}

// NewID generates a storage key.
func NewID() string {
	return uuid.NewString()
}

func shortHex() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(hex[:shortIDLength])
}
