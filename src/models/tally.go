package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CashedCheque is a company cheque matched to a bank clearing by cheque number.
// Amount is the company-side amount; BankAmount and Discrepancy keep the audit trail
// when the two sides disagree beyond tolerance.
type CashedCheque struct {
	CompanyChequeNumber string          `json:"company_cheque_number"`
	BankChequeNumber    string          `json:"bank_cheque_number"`
	PayeeName           string          `json:"payee_name"`
	Amount              decimal.Decimal `json:"amount"`
	BankAmount          decimal.Decimal `json:"bank_amount"`
	Discrepancy         decimal.Decimal `json:"discrepancy"`
	HasDiscrepancy      bool            `json:"has_discrepancy"`
	IssueDate           time.Time       `json:"issue_date"`
	ClearingDate        time.Time       `json:"clearing_date"`
	DaysOutstanding     int             `json:"days_outstanding"`
}

// UncashedCheque is a company cheque with no bank clearing.
type UncashedCheque struct {
	ChequeNumber    string          `json:"cheque_number"`
	PayeeName       string          `json:"payee_name"`
	Amount          decimal.Decimal `json:"amount"`
	IssueDate       time.Time       `json:"issue_date"`
	DaysOutstanding int             `json:"days_outstanding"`
}

// UnmatchedBankCheque is a bank clearing with no company record.
type UnmatchedBankCheque struct {
	ChequeNumber    string          `json:"cheque_number"`
	Amount          decimal.Decimal `json:"amount"`
	ClearingDate    time.Time       `json:"clearing_date"`
	PossibleMatches []string        `json:"possible_matches,omitempty"`
}

// TallyResult is the outcome of one reconciliation run.
type TallyResult struct {
	SessionID                 string                `json:"session_id"`
	TotalCashedCheques        int                   `json:"total_cashed_cheques"`
	TotalUncashedCheques      int                   `json:"total_uncashed_cheques"`
	TotalCashedAmount         decimal.Decimal       `json:"total_cashed_amount"`
	TotalUncashedAmount       decimal.Decimal       `json:"total_uncashed_amount"`
	TotalUnmatchedBankCheques int                   `json:"total_unmatched_bank_cheques"`
	TotalUnmatchedBankAmount  decimal.Decimal       `json:"total_unmatched_bank_amount"`
	DiscrepancyCount          int                   `json:"discrepancy_count"`
	CashedCheques             []CashedCheque        `json:"cashed_cheques"`
	UncashedCheques           []UncashedCheque      `json:"uncashed_cheques"`
	UnmatchedBankCheques      []UnmatchedBankCheque `json:"unmatched_bank_cheques"`
	CreatedAt                 time.Time             `json:"created_at"`
}
