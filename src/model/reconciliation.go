package model

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/chequetally/backend/src/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrReconciliationSessionNotFound = errors.New("reconciliation session not found")
	ErrTallyResultNotFound           = errors.New("tally result not found")
)

// Querier is satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func CreateReconciliationSession(ctx context.Context, q Querier, userID, name string) (*models.ReconciliationSession, error) {
	now := time.Now().UTC()
	s := &models.ReconciliationSession{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := q.ExecContext(ctx,
		`INSERT INTO reconciliation_sessions (id, user_id, name, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		s.ID, s.UserID, s.Name, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// GetReconciliationSession returns the session only when it belongs to userID.
func GetReconciliationSession(ctx context.Context, q Querier, userID, sessionID string) (*models.ReconciliationSession, error) {
	var s models.ReconciliationSession
	err := q.QueryRowContext(ctx,
		`SELECT id, user_id, name, created_at, updated_at FROM reconciliation_sessions WHERE id = ? AND user_id = ?`,
		sessionID, userID).Scan(&s.ID, &s.UserID, &s.Name, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReconciliationSessionNotFound
		}
		return nil, err
	}
	return &s, nil
}

func ListReconciliationSessions(ctx context.Context, q Querier, userID string) ([]models.SessionSummary, error) {
	rows, err := q.QueryContext(ctx, `
	SELECT s.id, s.user_id, s.name, s.created_at, s.updated_at,
	       (SELECT COUNT(*) FROM company_cheques c WHERE c.session_id = s.id),
	       (SELECT COUNT(*) FROM bank_cheques b WHERE b.session_id = s.id),
	       EXISTS (SELECT 1 FROM tally_results t WHERE t.session_id = s.id)
	FROM reconciliation_sessions s
	WHERE s.user_id = ?
	ORDER BY s.created_at DESC, s.id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.SessionSummary{}
	for rows.Next() {
		var s models.SessionSummary
		if err := rows.Scan(&s.ID, &s.UserID, &s.Name, &s.CreatedAt, &s.UpdatedAt,
			&s.CompanyChequeCount, &s.BankChequeCount, &s.HasTally); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func TouchReconciliationSession(ctx context.Context, q Querier, sessionID string) error {
	_, err := q.ExecContext(ctx, `UPDATE reconciliation_sessions SET updated_at = ? WHERE id = ?`, time.Now().UTC(), sessionID)
	return err
}

// DeleteReconciliationSession removes a session and, by cascade, its uploads, cheques and tallies.
func DeleteReconciliationSession(ctx context.Context, q Querier, userID, sessionID string) error {
	res, err := q.ExecContext(ctx, `DELETE FROM reconciliation_sessions WHERE id = ? AND user_id = ?`, sessionID, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrReconciliationSessionNotFound
	}
	return nil
}

func InsertUpload(ctx context.Context, q Querier, u *models.Upload) error {
	u.CreatedAt = time.Now().UTC()
	res, err := q.ExecContext(ctx, `
	INSERT INTO uploads (session_id, side, source, filename, mode, raw_text, extraction_notes, stored_count, rejected_count, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.SessionID, u.Side, u.Source, u.Filename, u.Mode, u.RawText, u.ExtractionNotes, u.StoredCount, u.RejectedCount, u.CreatedAt)
	if err != nil {
		return err
	}
	u.ID, err = res.LastInsertId()
	return err
}

func ListUploads(ctx context.Context, q Querier, sessionID string) ([]models.Upload, error) {
	rows, err := q.QueryContext(ctx, `
	SELECT id, session_id, side, source, filename, mode, extraction_notes, stored_count, rejected_count, created_at
	FROM uploads WHERE session_id = ? ORDER BY id`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Upload{}
	for rows.Next() {
		var u models.Upload
		if err := rows.Scan(&u.ID, &u.SessionID, &u.Side, &u.Source, &u.Filename, &u.Mode,
			&u.ExtractionNotes, &u.StoredCount, &u.RejectedCount, &u.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func DeleteCompanyCheques(ctx context.Context, q Querier, sessionID string) error {
	_, err := q.ExecContext(ctx, `DELETE FROM company_cheques WHERE session_id = ?`, sessionID)
	return err
}

func DeleteBankCheques(ctx context.Context, q Querier, sessionID string) error {
	_, err := q.ExecContext(ctx, `DELETE FROM bank_cheques WHERE session_id = ?`, sessionID)
	return err
}

// InsertCompanyCheques stores records in order; row ids preserve upload order.
func InsertCompanyCheques(ctx context.Context, q Querier, sessionID string, uploadID int64, records []models.CompanyChequeRecord) ([]models.StoredCompanyCheque, error) {
	now := time.Now().UTC()
	out := make([]models.StoredCompanyCheque, 0, len(records))
	for _, r := range records {
		res, err := q.ExecContext(ctx, `
		INSERT INTO company_cheques (session_id, upload_id, cheque_number, payee_name, amount, issue_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
			sessionID, uploadID, r.ChequeNumber, r.PayeeName, r.Amount.String(), r.IssueDate.Format(models.DateLayout), now)
		if err != nil {
			return nil, fmt.Errorf("insert company cheque %s: %w", r.ChequeNumber, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		out = append(out, models.StoredCompanyCheque{ID: id, SessionID: sessionID, CreatedAt: now, CompanyChequeRecord: r})
	}
	return out, nil
}

func InsertBankCheques(ctx context.Context, q Querier, sessionID string, uploadID int64, records []models.BankClearedRecord) ([]models.StoredBankCheque, error) {
	now := time.Now().UTC()
	out := make([]models.StoredBankCheque, 0, len(records))
	for _, r := range records {
		res, err := q.ExecContext(ctx, `
		INSERT INTO bank_cheques (session_id, upload_id, cheque_number, amount, clearing_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
			sessionID, uploadID, r.ChequeNumber, r.Amount.String(), r.ClearingDate.Format(models.DateLayout), now)
		if err != nil {
			return nil, fmt.Errorf("insert bank cheque %s: %w", r.ChequeNumber, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		out = append(out, models.StoredBankCheque{ID: id, SessionID: sessionID, CreatedAt: now, BankClearedRecord: r})
	}
	return out, nil
}

func ListCompanyCheques(ctx context.Context, q Querier, sessionID string) ([]models.StoredCompanyCheque, error) {
	rows, err := q.QueryContext(ctx, `
	SELECT id, session_id, cheque_number, payee_name, amount, issue_date, created_at
	FROM company_cheques WHERE session_id = ? ORDER BY id`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.StoredCompanyCheque{}
	for rows.Next() {
		var c models.StoredCompanyCheque
		var amount, issued string
		if err := rows.Scan(&c.ID, &c.SessionID, &c.ChequeNumber, &c.PayeeName, &amount, &issued, &c.CreatedAt); err != nil {
			return nil, err
		}
		if c.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("company cheque %d: bad stored amount %q: %w", c.ID, amount, err)
		}
		if c.IssueDate, err = time.Parse(models.DateLayout, issued); err != nil {
			return nil, fmt.Errorf("company cheque %d: bad stored date %q: %w", c.ID, issued, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func ListBankCheques(ctx context.Context, q Querier, sessionID string) ([]models.StoredBankCheque, error) {
	rows, err := q.QueryContext(ctx, `
	SELECT id, session_id, cheque_number, amount, clearing_date, created_at
	FROM bank_cheques WHERE session_id = ? ORDER BY id`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.StoredBankCheque{}
	for rows.Next() {
		var b models.StoredBankCheque
		var amount, cleared string
		if err := rows.Scan(&b.ID, &b.SessionID, &b.ChequeNumber, &amount, &cleared, &b.CreatedAt); err != nil {
			return nil, err
		}
		if b.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("bank cheque %d: bad stored amount %q: %w", b.ID, amount, err)
		}
		if b.ClearingDate, err = time.Parse(models.DateLayout, cleared); err != nil {
			return nil, fmt.Errorf("bank cheque %d: bad stored date %q: %w", b.ID, cleared, err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// InsertTallyResult appends a run to the session's tally history. The latest row wins on read.
func InsertTallyResult(ctx context.Context, q Querier, r *models.TallyResult) error {
	cashed, err := json.Marshal(r.CashedCheques)
	if err != nil {
		return fmt.Errorf("marshal cashed cheques: %w", err)
	}
	uncashed, err := json.Marshal(r.UncashedCheques)
	if err != nil {
		return fmt.Errorf("marshal uncashed cheques: %w", err)
	}
	unmatched, err := json.Marshal(r.UnmatchedBankCheques)
	if err != nil {
		return fmt.Errorf("marshal unmatched bank cheques: %w", err)
	}
	_, err = q.ExecContext(ctx, `
	INSERT INTO tally_results (session_id, total_cashed_cheques, total_uncashed_cheques, total_cashed_amount,
	    total_uncashed_amount, total_unmatched_bank_cheques, total_unmatched_bank_amount, discrepancy_count,
	    cashed_cheques, uncashed_cheques, unmatched_bank_cheques, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.SessionID, r.TotalCashedCheques, r.TotalUncashedCheques, r.TotalCashedAmount.String(),
		r.TotalUncashedAmount.String(), r.TotalUnmatchedBankCheques, r.TotalUnmatchedBankAmount.String(), r.DiscrepancyCount,
		string(cashed), string(uncashed), string(unmatched), r.CreatedAt.UTC())
	return err
}

func GetLatestTallyResult(ctx context.Context, q Querier, sessionID string) (*models.TallyResult, error) {
	var r models.TallyResult
	var cashedAmt, uncashedAmt, unmatchedAmt, cashed, uncashed, unmatched string
	err := q.QueryRowContext(ctx, `
	SELECT session_id, total_cashed_cheques, total_uncashed_cheques, total_cashed_amount, total_uncashed_amount,
	       total_unmatched_bank_cheques, total_unmatched_bank_amount, discrepancy_count,
	       cashed_cheques, uncashed_cheques, unmatched_bank_cheques, created_at
	FROM tally_results WHERE session_id = ? ORDER BY id DESC LIMIT 1`, sessionID).Scan(
		&r.SessionID, &r.TotalCashedCheques, &r.TotalUncashedCheques, &cashedAmt, &uncashedAmt,
		&r.TotalUnmatchedBankCheques, &unmatchedAmt, &r.DiscrepancyCount,
		&cashed, &uncashed, &unmatched, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTallyResultNotFound
		}
		return nil, err
	}

	for _, f := range []struct {
		raw string
		dst *decimal.Decimal
	}{{cashedAmt, &r.TotalCashedAmount}, {uncashedAmt, &r.TotalUncashedAmount}, {unmatchedAmt, &r.TotalUnmatchedBankAmount}} {
		if *f.dst, err = decimal.NewFromString(f.raw); err != nil {
			return nil, fmt.Errorf("tally %s: bad stored total %q: %w", sessionID, f.raw, err)
		}
	}
	if err := json.Unmarshal([]byte(cashed), &r.CashedCheques); err != nil {
		return nil, fmt.Errorf("tally %s: decode cashed cheques: %w", sessionID, err)
	}
	if err := json.Unmarshal([]byte(uncashed), &r.UncashedCheques); err != nil {
		return nil, fmt.Errorf("tally %s: decode uncashed cheques: %w", sessionID, err)
	}
	if err := json.Unmarshal([]byte(unmatched), &r.UnmatchedBankCheques); err != nil {
		return nil, fmt.Errorf("tally %s: decode unmatched bank cheques: %w", sessionID, err)
	}
	r.CreatedAt = r.CreatedAt.UTC()
	return &r, nil
}

// CountTallyResults reports how many runs a session has stored.
func CountTallyResults(ctx context.Context, q Querier, sessionID string) (int, error) {
	var n int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM tally_results WHERE session_id = ?`, sessionID).Scan(&n)
	return n, err
}
