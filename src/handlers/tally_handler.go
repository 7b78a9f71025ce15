package handlers

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/chequetally/backend/src/logger"
	"github.com/chequetally/backend/src/models"
	"github.com/chequetally/backend/src/security/validation"
	"github.com/chequetally/backend/src/services"
	"github.com/chequetally/backend/src/utils"
	"github.com/go-chi/chi/v5"
)

type TallyHandler struct {
	service services.ReconciliationService
}

func NewTallyHandler(service services.ReconciliationService) *TallyHandler {
	return &TallyHandler{service: service}
}

type cashedChequeView struct {
	CompanyChequeNumber string      `json:"company_cheque_number"`
	BankChequeNumber    string      `json:"bank_cheque_number"`
	PayeeName           string      `json:"payee_name"`
	Amount              json.Number `json:"amount"`
	BankAmount          json.Number `json:"bank_amount"`
	Discrepancy         json.Number `json:"discrepancy"`
	HasDiscrepancy      bool        `json:"has_discrepancy"`
	IssueDate           string      `json:"issue_date"`
	ClearingDate        string      `json:"clearing_date"`
	DaysOutstanding     int         `json:"days_outstanding"`
}

type uncashedChequeView struct {
	ChequeNumber    string      `json:"cheque_number"`
	PayeeName       string      `json:"payee_name"`
	Amount          json.Number `json:"amount"`
	IssueDate       string      `json:"issue_date"`
	DaysOutstanding int         `json:"days_outstanding"`
}

type unmatchedBankChequeView struct {
	ChequeNumber    string      `json:"cheque_number"`
	Amount          json.Number `json:"amount"`
	ClearingDate    string      `json:"clearing_date"`
	PossibleMatches []string    `json:"possible_matches"`
}

// tallyReportView is the wire form of a tally: amounts as two-decimal numbers, dates as YYYY-MM-DD.
type tallyReportView struct {
	SessionID                 string                    `json:"session_id"`
	TotalCashedCheques        int                       `json:"total_cashed_cheques"`
	TotalUncashedCheques      int                       `json:"total_uncashed_cheques"`
	TotalCashedAmount         json.Number               `json:"total_cashed_amount"`
	TotalUncashedAmount       json.Number               `json:"total_uncashed_amount"`
	TotalUnmatchedBankCheques int                       `json:"total_unmatched_bank_cheques"`
	TotalUnmatchedBankAmount  json.Number               `json:"total_unmatched_bank_amount"`
	DiscrepancyCount          int                       `json:"discrepancy_count"`
	CashedCheques             []cashedChequeView        `json:"cashed_cheques"`
	UncashedCheques           []uncashedChequeView      `json:"uncashed_cheques"`
	UnmatchedBankCheques      []unmatchedBankChequeView `json:"unmatched_bank_cheques"`
	CreatedAt                 string                    `json:"created_at"`
}

func newTallyReportView(t *models.TallyResult) tallyReportView {
	v := tallyReportView{
		SessionID:                 t.SessionID,
		TotalCashedCheques:        t.TotalCashedCheques,
		TotalUncashedCheques:      t.TotalUncashedCheques,
		TotalCashedAmount:         utils.Amount(t.TotalCashedAmount),
		TotalUncashedAmount:       utils.Amount(t.TotalUncashedAmount),
		TotalUnmatchedBankCheques: t.TotalUnmatchedBankCheques,
		TotalUnmatchedBankAmount:  utils.Amount(t.TotalUnmatchedBankAmount),
		DiscrepancyCount:          t.DiscrepancyCount,
		CashedCheques:             make([]cashedChequeView, 0, len(t.CashedCheques)),
		UncashedCheques:           make([]uncashedChequeView, 0, len(t.UncashedCheques)),
		UnmatchedBankCheques:      make([]unmatchedBankChequeView, 0, len(t.UnmatchedBankCheques)),
		CreatedAt:                 t.CreatedAt.UTC().Format(time.RFC3339),
	}
	for _, c := range t.CashedCheques {
		v.CashedCheques = append(v.CashedCheques, cashedChequeView{
			CompanyChequeNumber: c.CompanyChequeNumber,
			BankChequeNumber:    c.BankChequeNumber,
			PayeeName:           c.PayeeName,
			Amount:              utils.Amount(c.Amount),
			BankAmount:          utils.Amount(c.BankAmount),
			Discrepancy:         utils.Amount(c.Discrepancy),
			HasDiscrepancy:      c.HasDiscrepancy,
			IssueDate:           c.IssueDate.Format(models.DateLayout),
			ClearingDate:        c.ClearingDate.Format(models.DateLayout),
			DaysOutstanding:     c.DaysOutstanding,
		})
	}
	for _, u := range t.UncashedCheques {
		v.UncashedCheques = append(v.UncashedCheques, uncashedChequeView{
			ChequeNumber:    u.ChequeNumber,
			PayeeName:       u.PayeeName,
			Amount:          utils.Amount(u.Amount),
			IssueDate:       u.IssueDate.Format(models.DateLayout),
			DaysOutstanding: u.DaysOutstanding,
		})
	}
	for _, b := range t.UnmatchedBankCheques {
		matches := b.PossibleMatches
		if matches == nil {
			matches = []string{}
		}
		v.UnmatchedBankCheques = append(v.UnmatchedBankCheques, unmatchedBankChequeView{
			ChequeNumber:    b.ChequeNumber,
			Amount:          utils.Amount(b.Amount),
			ClearingDate:    b.ClearingDate.Format(models.DateLayout),
			PossibleMatches: matches,
		})
	}
	return v
}

func (h *TallyHandler) HandleRunTally(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}
	result, err := h.service.RunTally(r.Context(), userID, chi.URLParam(r, "sessionID"))
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, http.StatusOK, newTallyReportView(result))
}

func (h *TallyHandler) HandleGetReport(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}
	result, err := h.service.GetTallyReport(r.Context(), userID, chi.URLParam(r, "sessionID"))
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	view := newTallyReportView(result)

	w.Header().Set("Cache-Control", "no-cache, private")
	etag, etagErr := utils.GenerateETag(view)
	if etagErr != nil {
		log.Error("Failed to generate ETag for tally report", "error", etagErr)
	} else {
		w.Header().Set("ETag", etag)
		for _, candidate := range strings.Split(r.Header.Get("If-None-Match"), ",") {
			if strings.TrimSpace(candidate) == etag {
				log.Debug("ETag match for tally report", "etag", etag)
				w.WriteHeader(http.StatusNotModified)
				return
			}
		}
	}
	utils.SendJSON(w, http.StatusOK, view)
}

// HandleExportReportCSV writes the latest tally as one CSV row per cheque, tagged by status.
func (h *TallyHandler) HandleExportReportCSV(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}
	sessionID := chi.URLParam(r, "sessionID")
	result, err := h.service.GetTallyReport(r.Context(), userID, sessionID)
	if err != nil {
		sendServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="tally-%s.csv"`, sessionID))
	cw := csv.NewWriter(w)
	safe := validation.SanitizeForFormulaInjection

	rows := [][]string{{"status", "cheque_number", "bank_cheque_number", "payee_name", "amount", "bank_amount", "discrepancy", "issue_date", "clearing_date", "days_outstanding", "possible_matches"}}
	for _, c := range result.CashedCheques {
		rows = append(rows, []string{"cashed", safe(c.CompanyChequeNumber), safe(c.BankChequeNumber), safe(c.PayeeName),
			c.Amount.StringFixed(2), c.BankAmount.StringFixed(2), c.Discrepancy.StringFixed(2),
			c.IssueDate.Format(models.DateLayout), c.ClearingDate.Format(models.DateLayout), strconv.Itoa(c.DaysOutstanding), ""})
	}
	for _, u := range result.UncashedCheques {
		rows = append(rows, []string{"uncashed", safe(u.ChequeNumber), "", safe(u.PayeeName),
			u.Amount.StringFixed(2), "", "", u.IssueDate.Format(models.DateLayout), "", strconv.Itoa(u.DaysOutstanding), ""})
	}
	for _, b := range result.UnmatchedBankCheques {
		rows = append(rows, []string{"unmatched_bank", "", safe(b.ChequeNumber), "",
			"", b.Amount.StringFixed(2), "", "", b.ClearingDate.Format(models.DateLayout), "", safe(strings.Join(b.PossibleMatches, " "))})
	}
	if err := cw.WriteAll(rows); err != nil {
		log.Error("Failed to write tally CSV", "error", err)
	}
}
