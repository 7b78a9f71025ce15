package processors

import (
	"errors"
	"testing"
	"time"

	"github.com/chequetally/backend/src/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeChequeNumber(t *testing.T) {
	assert.Equal(t, "001", NormalizeChequeNumber(" 001"))
	assert.Equal(t, "CHQ-7", NormalizeChequeNumber("chq-7 \t"))
	assert.Equal(t, "", NormalizeChequeNumber("   "))
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"50000", "50000", false},
		{"25500.50", "25500.5", false},
		{" 1,234.56 ", "1234.56", false},
		{"$1,000.00", "1000", false},
		{"Rs. 2,500", "2500", false},
		{"₹ 99.99", "99.99", false},
		{"0", "0", false},
		{"abc", "", true},
		{"", "", true},
		{"-5.00", "", true},
		{"12.3.4", "", true},
		{"0.005", "", true},
		{"10.125", "", true},
		{"10.500", "10.5", false},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseAmount(tc.in)
			if tc.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidRecord))
				var recErr *RecordError
				require.True(t, errors.As(err, &recErr))
				assert.Equal(t, "amount", recErr.Field)
				return
			}
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tc.want).Equal(got), "got %s", got)
		})
	}
}

func TestParseDate(t *testing.T) {
	want := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{"2026-02-01", "01-02-2026", "01/02/2026", "2026/02/01", " 2026-02-01 "} {
		got, err := ParseDate(in, "issue_date")
		require.NoError(t, err, in)
		assert.True(t, want.Equal(got), in)
	}

	for _, in := range []string{"", "yesterday", "2026-13-01", "Feb 1 2026"} {
		_, err := ParseDate(in, "clearing_date")
		require.Error(t, err, in)
		var recErr *RecordError
		require.True(t, errors.As(err, &recErr))
		assert.Equal(t, "clearing_date", recErr.Field)
	}
}

func TestNormalizeCompanyRejects(t *testing.T) {
	good := models.CompanyChequeRecord{ChequeNumber: "1", Amount: decimal.NewFromInt(1), IssueDate: time.Now()}

	_, err := normalizeCompany(good, 0)
	require.NoError(t, err)

	bad := good
	bad.ChequeNumber = "  "
	_, err = normalizeCompany(bad, 0)
	assert.ErrorIs(t, err, ErrInvalidRecord)

	bad = good
	bad.Amount = decimal.NewFromInt(-1)
	_, err = normalizeCompany(bad, 0)
	assert.ErrorIs(t, err, ErrInvalidRecord)

	bad = good
	bad.IssueDate = time.Time{}
	_, err = normalizeCompany(bad, 0)
	assert.ErrorIs(t, err, ErrInvalidRecord)

	bad = good
	bad.Amount = decimal.RequireFromString("0.005")
	_, err = normalizeCompany(bad, 0)
	var recErr *RecordError
	require.ErrorAs(t, err, &recErr)
	assert.Equal(t, "amount", recErr.Field)

	_, err = normalizeBank(models.BankClearedRecord{ChequeNumber: "1", Amount: decimal.RequireFromString("1.001"), ClearingDate: time.Now()}, 0)
	assert.ErrorIs(t, err, ErrInvalidRecord)
}

func TestDaysBetween(t *testing.T) {
	a := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	b := time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, 28, daysBetween(a, b))
	assert.Equal(t, -28, daysBetween(b, a))
	assert.Equal(t, 0, daysBetween(a, a))

	ancient := time.Date(1, 1, 2, 0, 0, 0, 0, time.UTC)
	cleared := time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 739647, daysBetween(ancient, cleared))
	assert.Equal(t, -739647, daysBetween(cleared, ancient))
}
