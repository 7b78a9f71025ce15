package processors

import (
	"errors"
	"strings"

	"github.com/chequetally/backend/src/models"
	"github.com/chequetally/backend/src/security/validation"
)

// ValidateCompanyCheques checks extracted company records one by one. Valid records keep
// their order; every rejected record gets its own ExtractionError.
func ValidateCompanyCheques(raw []models.RawCompanyCheque) ([]models.CompanyChequeRecord, []*ExtractionError) {
	valid := make([]models.CompanyChequeRecord, 0, len(raw))
	var rejected []*ExtractionError

	for i, r := range raw {
		if err := validation.ValidateChequeNumber(r.ChequeNumber, "cheque_number"); err != nil {
			rejected = append(rejected, extractionErr(i, "cheque_number", err))
			continue
		}
		payee := validation.SanitizeText(validation.StripUnprintable(r.PayeeName))
		if err := validation.ValidateStringMaxLength(payee, validation.MaxPayeeNameLength, "payee_name"); err != nil {
			rejected = append(rejected, extractionErr(i, "payee_name", err))
			continue
		}
		amount, err := ParseAmount(string(r.Amount))
		if err != nil {
			rejected = append(rejected, extractionErr(i, "amount", err))
			continue
		}
		issued, err := ParseDate(r.IssueDate, "issue_date")
		if err != nil {
			rejected = append(rejected, extractionErr(i, "issue_date", err))
			continue
		}
		valid = append(valid, models.CompanyChequeRecord{
			ChequeNumber: strings.TrimSpace(r.ChequeNumber),
			PayeeName:    payee,
			Amount:       amount,
			IssueDate:    issued,
		})
	}
	return valid, rejected
}

// ValidateBankCheques is the bank-side twin of ValidateCompanyCheques.
func ValidateBankCheques(raw []models.RawBankCheque) ([]models.BankClearedRecord, []*ExtractionError) {
	valid := make([]models.BankClearedRecord, 0, len(raw))
	var rejected []*ExtractionError

	for i, r := range raw {
		if err := validation.ValidateChequeNumber(r.ChequeNumber, "cheque_number"); err != nil {
			rejected = append(rejected, extractionErr(i, "cheque_number", err))
			continue
		}
		amount, err := ParseAmount(string(r.Amount))
		if err != nil {
			rejected = append(rejected, extractionErr(i, "amount", err))
			continue
		}
		cleared, err := ParseDate(r.ClearingDate, "clearing_date")
		if err != nil {
			rejected = append(rejected, extractionErr(i, "clearing_date", err))
			continue
		}
		valid = append(valid, models.BankClearedRecord{
			ChequeNumber: strings.TrimSpace(r.ChequeNumber),
			Amount:       amount,
			ClearingDate: cleared,
		})
	}
	return valid, rejected
}

func extractionErr(index int, field string, err error) *ExtractionError {
	reason := err.Error()
	var recErr *RecordError
	if errors.As(err, &recErr) {
		reason = recErr.Reason
	} else if msg, ok := strings.CutPrefix(reason, validation.ErrValidationFailed.Error()+": "); ok {
		reason = msg
	}
	return &ExtractionError{Index: index, Field: field, Reason: reason}
}
