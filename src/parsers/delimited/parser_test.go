package delimited

import (
	"context"
	"testing"

	"github.com/chequetally/backend/src/parsers"
	"github.com/chequetally/backend/src/processors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractCompanyCSV(t *testing.T) {
	text := "Cheque No,Payee Name,Amount,Issue Date\n" +
		"001,ABC Corp,\"50,000.00\",2026-02-01\n" +
		",,,\n" +
		"002,XYZ Ltd,25500.50,05/02/2026\n"

	out, err := NewParser().ExtractCompany(context.Background(), text)
	require.NoError(t, err)
	require.Len(t, out.Cheques, 2)
	assert.Equal(t, "001", out.Cheques[0].ChequeNumber)
	assert.Equal(t, "ABC Corp", out.Cheques[0].PayeeName)
	assert.Equal(t, "50,000.00", string(out.Cheques[0].Amount))
	assert.Equal(t, "05/02/2026", out.Cheques[1].IssueDate)
	assert.Equal(t, "Read 2 row(s); skipped 1 blank row(s).", out.Notes)
}

func TestExtractCompanyKeepsRowsWithoutChequeNumber(t *testing.T) {
	text := "Cheque No,Payee Name,Amount,Issue Date\n" +
		"001,ABC,100,2026-02-01\n" +
		",XYZ Ltd,25500.50,2026-02-05\n"

	out, err := NewParser().ExtractCompany(context.Background(), text)
	require.NoError(t, err)
	require.Len(t, out.Cheques, 2)
	assert.Empty(t, out.Cheques[1].ChequeNumber)
	assert.Equal(t, "XYZ Ltd", out.Cheques[1].PayeeName)
	assert.Equal(t, "Read 2 row(s).", out.Notes)

	valid, rejected := processors.ValidateCompanyCheques(out.Cheques)
	require.Len(t, valid, 1)
	require.Len(t, rejected, 1)
	assert.Equal(t, 1, rejected[0].Index)
	assert.Equal(t, "cheque_number", rejected[0].Field)
}

func TestExtractBankTSVWithInstNo(t *testing.T) {
	text := "Value Date\tNarration\tInstNo\tWithdrawal\n" +
		"2026-02-02\tCHQ PAID\t001\t50000\n" +
		"2026-02-03\tUPI transfer\t\t120\n" +
		"2026-02-04\tCHQ PAID\t002\t25500.50\n"

	out, err := NewParser().ExtractBank(context.Background(), text)
	require.NoError(t, err)
	require.Len(t, out.Cheques, 2)
	assert.Equal(t, "002", out.Cheques[1].ChequeNumber)
	assert.Equal(t, "25500.50", string(out.Cheques[1].Amount))
	assert.Equal(t, "2026-02-04", out.Cheques[1].ClearingDate)
}

func TestExtractRejectsUnknownHeader(t *testing.T) {
	_, err := NewParser().ExtractBank(context.Background(), "foo;bar\n1;2\n")
	assert.ErrorIs(t, err, parsers.ErrExtractionMalformed)

	_, err = NewParser().ExtractCompany(context.Background(), "\n\n")
	assert.ErrorIs(t, err, parsers.ErrExtractionMalformed)
}

func TestNormalizeHeader(t *testing.T) {
	assert.Equal(t, "cheque no", normalizeHeader(" Cheque_No. "))
	assert.Equal(t, "instno", normalizeHeader("InstNo"))
	assert.Equal(t, "issue date", normalizeHeader("\ufeffIssue-Date"))
}
