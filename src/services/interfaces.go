package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/chequetally/backend/src/models"
	"github.com/chequetally/backend/src/processors"
)

// Upload modes.
const (
	ModeAppend  = "append"
	ModeReplace = "replace"
)

// Define common service errors
var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrTallyNotFound    = errors.New("tally report not found; run the tally first")
	ErrInvalidInput     = errors.New("invalid input")
	ErrBatchRejected    = fmt.Errorf("%w: upload rejected", processors.ErrInvalidRecord)
	ErrNothingExtracted = fmt.Errorf("%w: no cheque records found in upload", processors.ErrExtraction)
)

// BatchRejectedError carries every per-record rejection of an upload refused as a whole.
type BatchRejectedError struct {
	Rejected []*processors.ExtractionError
}

func (e *BatchRejectedError) Error() string {
	parts := make([]string, 0, len(e.Rejected))
	for _, r := range e.Rejected {
		parts = append(parts, fmt.Sprintf("record %d %s: %s", r.Index, r.Field, r.Reason))
	}
	return fmt.Sprintf("%v: %d invalid record(s): %s", ErrBatchRejected, len(e.Rejected), strings.Join(parts, "; "))
}

func (e *BatchRejectedError) Unwrap() error { return ErrBatchRejected }

// UploadRequest is one file's text headed for one side of a session.
type UploadRequest struct {
	UserID    string
	SessionID string
	Source    string
	Filename  string
	Text      string
	Mode      string
}

// CompanyUploadResult describes what an upload stored and what it skipped.
type CompanyUploadResult struct {
	Status           string                        `json:"status"`
	UploadID         int64                         `json:"upload_id"`
	Mode             string                        `json:"mode"`
	ChequesExtracted int                           `json:"cheques_extracted"`
	Cheques          []models.StoredCompanyCheque  `json:"cheques"`
	Rejected         []*processors.ExtractionError `json:"rejected"`
	ExtractionNotes  string                        `json:"extraction_notes"`
}

type BankUploadResult struct {
	Status           string                        `json:"status"`
	UploadID         int64                         `json:"upload_id"`
	Mode             string                        `json:"mode"`
	ChequesExtracted int                           `json:"cheques_extracted"`
	Cheques          []models.StoredBankCheque     `json:"cheques"`
	Rejected         []*processors.ExtractionError `json:"rejected"`
	ExtractionNotes  string                        `json:"extraction_notes"`
}

// SessionDetail is a session with its stored records and upload history.
type SessionDetail struct {
	models.ReconciliationSession
	CompanyCheques []models.StoredCompanyCheque `json:"company_expenses"`
	BankCheques    []models.StoredBankCheque    `json:"bank_transactions"`
	Uploads        []models.Upload              `json:"uploads"`
}

// ReconciliationService owns sessions, their uploads and tally runs.
type ReconciliationService interface {
	CreateSession(ctx context.Context, userID, name string) (*models.ReconciliationSession, error)
	ListSessions(ctx context.Context, userID string) ([]models.SessionSummary, error)
	GetSessionDetail(ctx context.Context, userID, sessionID string) (*SessionDetail, error)
	DeleteSession(ctx context.Context, userID, sessionID string) error

	UploadCompanyCheques(ctx context.Context, req UploadRequest) (*CompanyUploadResult, error)
	UploadBankCheques(ctx context.Context, req UploadRequest) (*BankUploadResult, error)

	// RunTally reconciles the session's current records and stores the result.
	RunTally(ctx context.Context, userID, sessionID string) (*models.TallyResult, error)
	// GetTallyReport returns the latest stored tally.
	GetTallyReport(ctx context.Context, userID, sessionID string) (*models.TallyResult, error)

	InvalidateSessionCache(sessionID string)
}
