package validation

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateChequeNumber(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		wantErr bool
	}{
		{"plain", "001", false},
		{"padded", "  001 ", false},
		{"hash prefix", "#A-17", false},
		{"empty", "", true},
		{"blank", "   ", true},
		{"too long", strings.Repeat("9", MaxChequeNumberLength+1), true},
		{"control char", "00\x071", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateChequeNumber(tc.in, "cheque_number")
			if tc.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrValidationFailed))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestValidateEmailAndPassword(t *testing.T) {
	assert.NoError(t, ValidateEmail("ops@example.com"))
	assert.Error(t, ValidateEmail("ops@"))
	assert.Error(t, ValidateEmail(""))

	assert.NoError(t, ValidatePassword("longenough"))
	assert.Error(t, ValidatePassword("short"))
}

func TestSanitizeText(t *testing.T) {
	assert.Equal(t, "ABC Corp", SanitizeText("  <b>ABC</b> Corp "))
	assert.Equal(t, "Smith & Sons", SanitizeText("Smith & Sons"))
	assert.Equal(t, "", SanitizeText("<script>alert(1)</script>"))
}

func TestSanitizeForFormulaInjection(t *testing.T) {
	assert.Equal(t, "'=SUM(A1)", SanitizeForFormulaInjection("=SUM(A1)"))
	assert.Equal(t, "'@cmd", SanitizeForFormulaInjection("@cmd"))
	assert.Equal(t, "ABC Corp", SanitizeForFormulaInjection("ABC Corp"))
	assert.Equal(t, "", SanitizeForFormulaInjection(""))
}

func TestValidateFileExtension(t *testing.T) {
	assert.NoError(t, ValidateFileExtension("ledger.TXT"))
	assert.NoError(t, ValidateFileExtension("statement.csv"))
	assert.Error(t, ValidateFileExtension("statement.pdf"))
	assert.Error(t, ValidateFileExtension("noext"))
}

func TestValidateClientContentType(t *testing.T) {
	assert.NoError(t, ValidateClientContentType("text/plain; charset=utf-8"))
	assert.NoError(t, ValidateClientContentType("text/csv"))
	assert.Error(t, ValidateClientContentType("application/pdf"))
	assert.Error(t, ValidateClientContentType("image/png"))
}

func TestValidateFileContentByMagicBytes(t *testing.T) {
	_, err := ValidateFileContentByMagicBytes(bytes.NewReader([]byte("001, ABC Corp, 50000, 2026-02-01\n")))
	assert.NoError(t, err)

	_, err = ValidateFileContentByMagicBytes(bytes.NewReader([]byte{'a', 0, 'b'}))
	assert.Error(t, err)

	_, err = ValidateFileContentByMagicBytes(bytes.NewReader(nil))
	assert.Error(t, err)

	_, err = ValidateFileContentByMagicBytes(bytes.NewReader([]byte("%PDF-1.7\n")))
	assert.Error(t, err)
}

func TestDecodeText(t *testing.T) {
	got, err := DecodeText(append([]byte{0xEF, 0xBB, 0xBF}, []byte("Café")...))
	require.NoError(t, err)
	assert.Equal(t, "Café", got)

	// "Café" in ISO-8859-1
	got, err = DecodeText([]byte{'C', 'a', 'f', 0xE9})
	require.NoError(t, err)
	assert.Equal(t, "Café", got)
}
