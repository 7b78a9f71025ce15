package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the canonical calendar date format used in storage and on the wire.
const DateLayout = "2006-01-02"

// RawAmount holds an amount exactly as the extraction service emitted it.
// It accepts a JSON number or a JSON string so that non-numeric values reach
// the validator instead of failing the whole document decode.
type RawAmount string

func (a *RawAmount) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*a = ""
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return fmt.Errorf("raw amount: %w", err)
		}
		*a = RawAmount(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return fmt.Errorf("raw amount: %w", err)
	}
	*a = RawAmount(n.String())
	return nil
}

// RawCompanyCheque is one company-side record in the extraction schema. Untrusted.
type RawCompanyCheque struct {
	ChequeNumber string    `json:"cheque_number"`
	PayeeName    string    `json:"payee_name"`
	Amount       RawAmount `json:"amount"`
	IssueDate    string    `json:"issue_date"`
}

// RawBankCheque is one bank-side record in the extraction schema. Untrusted.
type RawBankCheque struct {
	ChequeNumber string    `json:"cheque_number"`
	Amount       RawAmount `json:"amount"`
	ClearingDate string    `json:"clearing_date"`
}

// CompanyChequeRecord is a validated cheque issued by the company.
type CompanyChequeRecord struct {
	ChequeNumber string          `json:"cheque_number"`
	PayeeName    string          `json:"payee_name"`
	Amount       decimal.Decimal `json:"amount"`
	IssueDate    time.Time       `json:"issue_date"`
}

// BankClearedRecord is a validated cheque the bank reports as cleared.
type BankClearedRecord struct {
	ChequeNumber string          `json:"cheque_number"`
	Amount       decimal.Decimal `json:"amount"`
	ClearingDate time.Time       `json:"clearing_date"`
}

// StoredCompanyCheque is a company cheque row as persisted for a session.
type StoredCompanyCheque struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
	CompanyChequeRecord
}

// StoredBankCheque is a bank cheque row as persisted for a session.
type StoredBankCheque struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
	BankClearedRecord
}
