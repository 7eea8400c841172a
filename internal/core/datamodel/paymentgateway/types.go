package paymentgateway

import (
	"encoding/json"
	"errors"
	"strings"
)

type TransferStatus string

const (
	TransferStatusSuccess    TransferStatus = "success"
	TransferStatusPending    TransferStatus = "pending"
	TransferStatusReceived   TransferStatus = "received"
	TransferStatusProcessing TransferStatus = "processing"
	TransferStatusQueued     TransferStatus = "queued"
	TransferStatusOTP        TransferStatus = "otp"
	TransferStatusFailed     TransferStatus = "failed"
	TransferStatusReversed   TransferStatus = "reversed"
	TransferStatusAbandoned  TransferStatus = "abandoned"
	TransferStatusRejected   TransferStatus = "rejected"
)

// Initiated reports whether the gateway accepted the transfer for settlement.
func (s TransferStatus) Initiated() bool {
	switch TransferStatus(strings.ToLower(string(s))) {
	case TransferStatusSuccess, TransferStatusPending, TransferStatusReceived,
		TransferStatusProcessing, TransferStatusQueued:
		return true
	}
	return false
}

// Final reports whether no further settlement change is expected.
func (s TransferStatus) Final() bool {
	switch TransferStatus(strings.ToLower(string(s))) {
	case TransferStatusSuccess, TransferStatusFailed, TransferStatusReversed,
		TransferStatusAbandoned, TransferStatusRejected:
		return true
	}
	return false
}

// SettlementFailed is the subset of final statuses where funds did not reach the recipient.
func (s TransferStatus) SettlementFailed() bool {
	switch TransferStatus(strings.ToLower(string(s))) {
	case TransferStatusFailed, TransferStatusReversed, TransferStatusAbandoned, TransferStatusRejected:
		return true
	}
	return false
}

// Envelope is the common wrapper of every gateway response body.
type Envelope struct {
	Status  *bool           `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type RecipientRequest struct {
	Type          string `json:"type"`
	Name          string `json:"name"`
	AccountNumber string `json:"account_number"`
	BankCode      string `json:"bank_code"`
	Currency      string `json:"currency"`
}

func (r *RecipientRequest) Validate() error {
	if r.Type == "" {
		return errors.New("type is required")
	}
	if r.Name == "" {
		return errors.New("name is required")
	}
	if r.AccountNumber == "" {
		return errors.New("account_number is required")
	}
	if r.BankCode == "" {
		return errors.New("bank_code is required")
	}
	if r.Currency == "" {
		return errors.New("currency is required")
	}
	return nil
}

type RecipientData struct {
	RecipientCode string `json:"recipient_code"`
	Active        bool   `json:"active"`
	Type          string `json:"type"`
	Name          string `json:"name"`
}

// TransferRequest amounts are in minor units.
type TransferRequest struct {
	Source    string `json:"source"`
	Amount    int64  `json:"amount"`
	Recipient string `json:"recipient"`
	Reason    string `json:"reason,omitempty"`
	Currency  string `json:"currency"`
	Reference string `json:"reference"`
}

func (r *TransferRequest) Validate() error {
	if r.Amount <= 0 {
		return errors.New("amount must be greater than 0")
	}
	if r.Recipient == "" {
		return errors.New("recipient is required")
	}
	if r.Currency == "" {
		return errors.New("currency is required")
	}
	if r.Reference == "" {
		return errors.New("reference is required")
	}
	return nil
}

type TransferData struct {
	ID           json.Number    `json:"id"`
	TransferCode string         `json:"transfer_code"`
	Reference    string         `json:"reference"`
	Status       TransferStatus `json:"status"`
	Amount       int64          `json:"amount"`
	Currency     string         `json:"currency"`
}

type TransferVerification struct {
	ID           json.Number    `json:"id"`
	TransferCode string         `json:"transfer_code"`
	Reference    string         `json:"reference"`
	Status       TransferStatus `json:"status"`
	Reason       string         `json:"reason"`
	Amount       int64          `json:"amount"`
}

// BalanceEntry amounts are in minor units.
type BalanceEntry struct {
	Currency string `json:"currency"`
	Balance  int64  `json:"balance"`
}
