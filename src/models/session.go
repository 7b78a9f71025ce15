package models

import "time"

// ReconciliationSession groups one company ledger and one bank statement for a user.
type ReconciliationSession struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"session_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SessionSummary is a session with the counts shown in session listings.
type SessionSummary struct {
	ReconciliationSession
	CompanyChequeCount int  `json:"company_cheque_count"`
	BankChequeCount    int  `json:"bank_cheque_count"`
	HasTally           bool `json:"has_tally"`
}

// Upload side values.
const (
	SideCompany = "company"
	SideBank    = "bank"
)

// Upload records one file processed into a session, with the raw text kept for audit.
type Upload struct {
	ID              int64     `json:"id"`
	SessionID       string    `json:"session_id"`
	Side            string    `json:"side"`
	Source          string    `json:"source"`
	Filename        string    `json:"filename"`
	Mode            string    `json:"mode"`
	RawText         string    `json:"-"`
	ExtractionNotes string    `json:"extraction_notes"`
	StoredCount     int       `json:"stored_count"`
	RejectedCount   int       `json:"rejected_count"`
	CreatedAt       time.Time `json:"created_at"`
}
