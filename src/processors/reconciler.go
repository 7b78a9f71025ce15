package processors

import (
	"fmt"
	"time"

	"github.com/agnivade/levenshtein"
	"github.com/chequetally/backend/src/models"
	"github.com/shopspring/decimal"
)

// DefaultTolerance is the smallest currency unit. Differences strictly below it count as agreement.
var DefaultTolerance = decimal.New(1, -2)

// ReconcileInput is one consistent snapshot of both record sets.
type ReconcileInput struct {
	SessionID string
	Company   []models.CompanyChequeRecord
	Bank      []models.BankClearedRecord
	// AsOf is the run date: it stamps CreatedAt and anchors days outstanding for uncashed cheques.
	AsOf time.Time
}

// Engine reconciles company cheques against bank clearings. It holds no mutable state
// and may be shared across goroutines.
type Engine struct {
	tolerance decimal.Decimal
}

type EngineOption func(*Engine)

// WithTolerance overrides the absolute amount tolerance. Negative values are ignored.
func WithTolerance(t decimal.Decimal) EngineOption {
	return func(e *Engine) {
		if !t.IsNegative() {
			e.tolerance = t
		}
	}
}

func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{tolerance: DefaultTolerance}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Tolerance returns the configured amount tolerance.
func (e *Engine) Tolerance() decimal.Decimal { return e.tolerance }

// Reconcile runs one full reconciliation. It either returns a complete result or an error,
// never a partial tally.
func (e *Engine) Reconcile(in ReconcileInput) (*models.TallyResult, error) {
	if len(in.Company) == 0 || len(in.Bank) == 0 {
		return nil, fmt.Errorf("%w: reconciliation needs both company and bank records (company=%d, bank=%d)",
			ErrMissingInput, len(in.Company), len(in.Bank))
	}

	company := make([]normalizedCompany, 0, len(in.Company))
	for i, r := range in.Company {
		n, err := normalizeCompany(r, i)
		if err != nil {
			return nil, &positionedError{side: "company", position: i, err: err}
		}
		company = append(company, n)
	}
	bank := make([]normalizedBank, 0, len(in.Bank))
	for i, r := range in.Bank {
		n, err := normalizeBank(r, i)
		if err != nil {
			return nil, &positionedError{side: "bank", position: i, err: err}
		}
		bank = append(bank, n)
	}

	idx := BuildIndex(company)
	result := &models.TallyResult{
		SessionID:                in.SessionID,
		CreatedAt:                in.AsOf.UTC(),
		TotalCashedAmount:        decimal.Zero,
		TotalUncashedAmount:      decimal.Zero,
		TotalUnmatchedBankAmount: decimal.Zero,
		CashedCheques:            []models.CashedCheque{},
		UncashedCheques:          []models.UncashedCheque{},
		UnmatchedBankCheques:     []models.UnmatchedBankCheque{},
	}

	var unmatched []normalizedBank
	for _, b := range bank {
		outcome := Match(b, idx)
		if !outcome.Matched {
			unmatched = append(unmatched, b)
			continue
		}
		cashed := e.classify(outcome.Company.record, b.record)
		if cashed.HasDiscrepancy {
			result.DiscrepancyCount++
		}
		result.CashedCheques = append(result.CashedCheques, cashed)
		result.TotalCashedAmount = result.TotalCashedAmount.Add(cashed.Amount)
	}

	remaining := idx.unconsumed()
	asOf := truncateDay(in.AsOf)
	for _, c := range remaining {
		days := daysBetween(c.record.IssueDate, asOf)
		if days < 0 {
			days = 0
		}
		result.UncashedCheques = append(result.UncashedCheques, models.UncashedCheque{
			ChequeNumber:    c.record.ChequeNumber,
			PayeeName:       c.record.PayeeName,
			Amount:          c.record.Amount,
			IssueDate:       c.record.IssueDate,
			DaysOutstanding: days,
		})
		result.TotalUncashedAmount = result.TotalUncashedAmount.Add(c.record.Amount)
	}

	// Hints are computed after matching so they only point at cheques left uncashed.
	for _, b := range unmatched {
		result.UnmatchedBankCheques = append(result.UnmatchedBankCheques, models.UnmatchedBankCheque{
			ChequeNumber:    b.record.ChequeNumber,
			Amount:          b.record.Amount,
			ClearingDate:    b.record.ClearingDate,
			PossibleMatches: possibleMatches(b.key, remaining),
		})
		result.TotalUnmatchedBankAmount = result.TotalUnmatchedBankAmount.Add(b.record.Amount)
	}

	result.TotalCashedCheques = len(result.CashedCheques)
	result.TotalUncashedCheques = len(result.UncashedCheques)
	result.TotalUnmatchedBankCheques = len(result.UnmatchedBankCheques)
	return result, nil
}

func (e *Engine) classify(c models.CompanyChequeRecord, b models.BankClearedRecord) models.CashedCheque {
	diff := b.Amount.Sub(c.Amount)
	return models.CashedCheque{
		CompanyChequeNumber: c.ChequeNumber,
		BankChequeNumber:    b.ChequeNumber,
		PayeeName:           c.PayeeName,
		Amount:              c.Amount,
		BankAmount:          b.Amount,
		Discrepancy:         diff,
		HasDiscrepancy:      diff.Abs().GreaterThanOrEqual(e.tolerance) && !diff.IsZero(),
		IssueDate:           c.IssueDate,
		ClearingDate:        b.ClearingDate,
		DaysOutstanding:     daysBetween(c.IssueDate, b.ClearingDate),
	}
}

// possibleMatches lists uncashed company identifiers one edit away from key. Exact keys
// never reach here: they would have matched.
func possibleMatches(key string, remaining []normalizedCompany) []string {
	var hints []string
	seen := make(map[string]bool)
	for _, c := range remaining {
		if seen[c.key] || c.key == key {
			continue
		}
		if levenshtein.ComputeDistance(key, c.key) <= 1 {
			hints = append(hints, c.record.ChequeNumber)
			seen[c.key] = true
		}
	}
	return hints
}
