package delimited

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chequetally/backend/src/logger"
	"github.com/chequetally/backend/src/models"
	"github.com/chequetally/backend/src/parsers"
)

// Column aliases, matched after lower-casing and collapsing separators to single spaces.
var (
	chequeNumberAliases = []string{"cheque number", "cheque no", "chequeno", "cheque", "check number", "check no", "chq no", "instno", "inst no", "instrument no", "instrument number"}
	payeeAliases        = []string{"payee name", "payee", "beneficiary", "name", "party"}
	amountAliases       = []string{"amount", "cheque amount", "cleared amount", "debit", "withdrawal", "withdrawals"}
	issueDateAliases    = []string{"issue date", "issued", "issued on", "cheque date", "date"}
	clearingDateAliases = []string{"clearing date", "cleared on", "cleared date", "value date", "date"}
)

// Parser reads already-tabular exports (CSV, TSV or semicolon separated) with a header row.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

type table struct {
	header  map[string]int
	rows    [][]string
	skipped int
}

func (t *table) column(aliases []string) (int, bool) {
	for _, alias := range aliases {
		if idx, ok := t.header[alias]; ok {
			return idx, true
		}
	}
	return -1, false
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func (p *Parser) ExtractCompany(ctx context.Context, text string) (*parsers.CompanyExtraction, error) {
	t, err := readTable(text)
	if err != nil {
		return nil, err
	}
	idCol, ok := t.column(chequeNumberAliases)
	if !ok {
		return nil, fmt.Errorf("%w: no cheque number column in header", parsers.ErrExtractionMalformed)
	}
	amountCol, _ := t.column(amountAliases)
	payeeCol, _ := t.column(payeeAliases)
	dateCol, _ := t.column(issueDateAliases)

	out := &parsers.CompanyExtraction{Cheques: make([]models.RawCompanyCheque, 0, len(t.rows))}
	for _, row := range t.rows {
		// Ledger rows missing an identifier still go to validation, which rejects them.
		raw := models.RawCompanyCheque{
			ChequeNumber: cell(row, idCol),
			PayeeName:    cell(row, payeeCol),
			Amount:       models.RawAmount(cell(row, amountCol)),
			IssueDate:    cell(row, dateCol),
		}
		if raw.ChequeNumber == "" && raw.PayeeName == "" && raw.Amount == "" && raw.IssueDate == "" {
			t.skipped++
			continue
		}
		out.Cheques = append(out.Cheques, raw)
	}
	out.Notes = notes(len(out.Cheques), t.skipped, "blank row(s)")
	logger.FromContext(ctx).Debug("Delimited company extraction finished", "records", len(out.Cheques), "skipped", t.skipped)
	return out, nil
}

func (p *Parser) ExtractBank(ctx context.Context, text string) (*parsers.BankExtraction, error) {
	t, err := readTable(text)
	if err != nil {
		return nil, err
	}
	idCol, ok := t.column(chequeNumberAliases)
	if !ok {
		return nil, fmt.Errorf("%w: no cheque number column in header", parsers.ErrExtractionMalformed)
	}
	amountCol, _ := t.column(amountAliases)
	dateCol, _ := t.column(clearingDateAliases)

	out := &parsers.BankExtraction{Cheques: make([]models.RawBankCheque, 0, len(t.rows))}
	for _, row := range t.rows {
		// Statement rows without an instrument number are not cheque clearings.
		id := cell(row, idCol)
		if id == "" {
			t.skipped++
			continue
		}
		out.Cheques = append(out.Cheques, models.RawBankCheque{
			ChequeNumber: id,
			Amount:       models.RawAmount(cell(row, amountCol)),
			ClearingDate: cell(row, dateCol),
		})
	}
	out.Notes = notes(len(out.Cheques), t.skipped, "row(s) without a cheque number")
	logger.FromContext(ctx).Debug("Delimited bank extraction finished", "records", len(out.Cheques), "skipped", t.skipped)
	return out, nil
}

func notes(records, skipped int, skippedKind string) string {
	if skipped == 0 {
		return fmt.Sprintf("Read %d row(s).", records)
	}
	return fmt.Sprintf("Read %d row(s); skipped %d %s.", records, skipped, skippedKind)
}

func detectDelimiter(headerLine string) rune {
	best, bestCount := ',', strings.Count(headerLine, ",")
	for _, d := range []rune{'\t', ';', '|'} {
		if n := strings.Count(headerLine, string(d)); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(strings.Trim(h, "\ufeff")))
	h = strings.NewReplacer("_", " ", "-", " ", ".", " ", "#", " ").Replace(h)
	return strings.Join(strings.Fields(h), " ")
}

func readTable(text string) (*table, error) {
	text = strings.TrimLeft(text, "\r\n")
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty file", parsers.ErrExtractionMalformed)
	}
	firstLine, _, _ := strings.Cut(text, "\n")

	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = detectDelimiter(firstLine)
	reader.FieldsPerRecord = -1 // Allow variable number of fields per record
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read header: %v", parsers.ErrExtractionMalformed, err)
	}
	t := &table{header: make(map[string]int, len(header))}
	for i, h := range header {
		key := normalizeHeader(h)
		if _, dup := t.header[key]; !dup && key != "" {
			t.header[key] = i
		}
	}

	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", parsers.ErrExtractionMalformed, err)
		}
		if len(row) == 1 && strings.TrimSpace(row[0]) == "" {
			continue
		}
		t.rows = append(t.rows, row)
	}
	return t, nil
}
