package processors

import (
	"fmt"
	"testing"
	"time"

	"github.com/chequetally/backend/src/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var asOf = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func day(s string) time.Time {
	t, err := time.Parse(models.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func company(id, payee, amount, issued string) models.CompanyChequeRecord {
	return models.CompanyChequeRecord{ChequeNumber: id, PayeeName: payee, Amount: dec(amount), IssueDate: day(issued)}
}

func bank(id, amount, cleared string) models.BankClearedRecord {
	return models.BankClearedRecord{ChequeNumber: id, Amount: dec(amount), ClearingDate: day(cleared)}
}

func TestReconcileEndToEnd(t *testing.T) {
	engine := NewEngine()
	res, err := engine.Reconcile(ReconcileInput{
		SessionID: "s-1",
		Company: []models.CompanyChequeRecord{
			company("001", "ABC Corp", "50000", "2026-02-01"),
			company("002", "XYZ Ltd", "25500.50", "2026-02-05"),
		},
		Bank: []models.BankClearedRecord{
			bank("001", "50000", "2026-02-02"),
			bank("002", "25500.50", "2026-02-04"),
		},
		AsOf: asOf,
	})
	require.NoError(t, err)

	assert.Equal(t, "s-1", res.SessionID)
	assert.Equal(t, 2, res.TotalCashedCheques)
	assert.Equal(t, 0, res.TotalUncashedCheques)
	assert.True(t, dec("75500.50").Equal(res.TotalCashedAmount))
	assert.True(t, res.TotalUncashedAmount.IsZero())
	assert.Equal(t, 0, res.DiscrepancyCount)
	assert.Equal(t, asOf, res.CreatedAt)

	require.Len(t, res.CashedCheques, 2)
	assert.Equal(t, "001", res.CashedCheques[0].CompanyChequeNumber)
	assert.Equal(t, "ABC Corp", res.CashedCheques[0].PayeeName)
	assert.Equal(t, 1, res.CashedCheques[0].DaysOutstanding)
	// Cleared before issue: surfaced as is.
	assert.Equal(t, -1, res.CashedCheques[1].DaysOutstanding)
	assert.Empty(t, res.UncashedCheques)
	assert.Empty(t, res.UnmatchedBankCheques)
}

func TestReconcileDuplicatesConsumeEarliestIssued(t *testing.T) {
	res, err := NewEngine().Reconcile(ReconcileInput{
		Company: []models.CompanyChequeRecord{
			company("#001", "Late", "100", "2026-02-03"),
			company("#001", "Early", "100", "2026-02-01"),
		},
		Bank: []models.BankClearedRecord{bank("#001", "100", "2026-02-02")},
		AsOf: asOf,
	})
	require.NoError(t, err)

	require.Len(t, res.CashedCheques, 1)
	assert.Equal(t, "Early", res.CashedCheques[0].PayeeName)
	assert.Equal(t, day("2026-02-01"), res.CashedCheques[0].IssueDate)
	require.Len(t, res.UncashedCheques, 1)
	assert.Equal(t, "Late", res.UncashedCheques[0].PayeeName)
	assert.Equal(t, 26, res.UncashedCheques[0].DaysOutstanding)
}

func TestReconcileDuplicateTiesFollowUploadOrder(t *testing.T) {
	res, err := NewEngine().Reconcile(ReconcileInput{
		Company: []models.CompanyChequeRecord{
			company("7", "First", "10", "2026-02-01"),
			company("7", "Second", "10", "2026-02-01"),
		},
		Bank: []models.BankClearedRecord{
			bank("7", "10", "2026-02-02"),
			bank("7", "10", "2026-02-03"),
			bank("7", "10", "2026-02-04"),
		},
		AsOf: asOf,
	})
	require.NoError(t, err)

	require.Len(t, res.CashedCheques, 2)
	assert.Equal(t, "First", res.CashedCheques[0].PayeeName)
	assert.Equal(t, "Second", res.CashedCheques[1].PayeeName)
	// The third clearing finds every candidate consumed.
	require.Len(t, res.UnmatchedBankCheques, 1)
	assert.Equal(t, day("2026-02-04"), res.UnmatchedBankCheques[0].ClearingDate)
	assert.Empty(t, res.UncashedCheques)
}

func TestReconcileCaseAndWhitespaceInsensitive(t *testing.T) {
	res, err := NewEngine().Reconcile(ReconcileInput{
		Company: []models.CompanyChequeRecord{company(" 001", "A", "5", "2026-02-01"), company("abc", "B", "6", "2026-02-01")},
		Bank:    []models.BankClearedRecord{bank("001", "5", "2026-02-02"), bank(" ABC ", "6", "2026-02-02")},
		AsOf:    asOf,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.TotalCashedCheques)
	assert.Equal(t, " 001", res.CashedCheques[0].CompanyChequeNumber)
	assert.Equal(t, "001", res.CashedCheques[0].BankChequeNumber)
}

func TestReconcileToleranceBoundary(t *testing.T) {
	res, err := NewEngine().Reconcile(ReconcileInput{
		Company: []models.CompanyChequeRecord{
			company("1", "Exact", "50000.00", "2026-02-01"),
			company("2", "Off", "50000.00", "2026-02-01"),
		},
		Bank: []models.BankClearedRecord{
			bank("1", "50000.00", "2026-02-02"),
			bank("2", "50000.01", "2026-02-02"),
		},
		AsOf: asOf,
	})
	require.NoError(t, err)
	require.Len(t, res.CashedCheques, 2)

	exact := res.CashedCheques[0]
	assert.False(t, exact.HasDiscrepancy)
	assert.True(t, exact.Discrepancy.IsZero())

	off := res.CashedCheques[1]
	assert.True(t, off.HasDiscrepancy)
	assert.True(t, dec("0.01").Equal(off.Discrepancy))
	assert.True(t, dec("50000.01").Equal(off.BankAmount))
	assert.True(t, dec("50000.00").Equal(off.Amount))
	assert.Equal(t, 1, res.DiscrepancyCount)
	// Company amount is canonical for totals.
	assert.True(t, dec("100000").Equal(res.TotalCashedAmount))
}

func TestReconcileWithToleranceOption(t *testing.T) {
	engine := NewEngine(WithTolerance(dec("1")))
	assert.True(t, dec("1").Equal(engine.Tolerance()))

	res, err := engine.Reconcile(ReconcileInput{
		Company: []models.CompanyChequeRecord{company("1", "A", "100", "2026-02-01")},
		Bank:    []models.BankClearedRecord{bank("1", "100.50", "2026-02-02")},
		AsOf:    asOf,
	})
	require.NoError(t, err)
	assert.False(t, res.CashedCheques[0].HasDiscrepancy)

	assert.True(t, DefaultTolerance.Equal(NewEngine(WithTolerance(dec("-1"))).Tolerance()))
}

func TestReconcileUnmatchedBankSide(t *testing.T) {
	res, err := NewEngine().Reconcile(ReconcileInput{
		Company: []models.CompanyChequeRecord{
			company("001", "ABC Corp", "50000", "2026-02-01"),
			company("998", "Near Miss", "10", "2026-02-01"),
		},
		Bank: []models.BankClearedRecord{
			bank("001", "50000", "2026-02-02"),
			bank("999", "123.45", "2026-02-03"),
		},
		AsOf: asOf,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, res.TotalCashedCheques)
	assert.True(t, dec("50000").Equal(res.TotalCashedAmount))
	assert.Equal(t, 1, res.TotalUncashedCheques)
	assert.True(t, dec("10").Equal(res.TotalUncashedAmount))

	require.Len(t, res.UnmatchedBankCheques, 1)
	u := res.UnmatchedBankCheques[0]
	assert.Equal(t, "999", u.ChequeNumber)
	assert.Equal(t, []string{"998"}, u.PossibleMatches)
	assert.Equal(t, 1, res.TotalUnmatchedBankCheques)
	assert.True(t, dec("123.45").Equal(res.TotalUnmatchedBankAmount))
}

func TestReconcileMissingInput(t *testing.T) {
	engine := NewEngine()
	_, err := engine.Reconcile(ReconcileInput{Bank: []models.BankClearedRecord{bank("1", "1", "2026-02-01")}, AsOf: asOf})
	assert.ErrorIs(t, err, ErrMissingInput)

	_, err = engine.Reconcile(ReconcileInput{Company: []models.CompanyChequeRecord{company("1", "A", "1", "2026-02-01")}, AsOf: asOf})
	assert.ErrorIs(t, err, ErrMissingInput)

	_, err = engine.Reconcile(ReconcileInput{AsOf: asOf})
	assert.ErrorIs(t, err, ErrMissingInput)
}

func TestReconcileInvalidRecordFailsFast(t *testing.T) {
	res, err := NewEngine().Reconcile(ReconcileInput{
		Company: []models.CompanyChequeRecord{company("1", "A", "1", "2026-02-01")},
		Bank: []models.BankClearedRecord{
			bank("1", "1", "2026-02-02"),
			{ChequeNumber: "", Amount: dec("1"), ClearingDate: day("2026-02-02")},
		},
		AsOf: asOf,
	})
	assert.Nil(t, res)
	require.ErrorIs(t, err, ErrInvalidRecord)
	assert.Contains(t, err.Error(), "bank record 1")
}

func TestReconcileIdempotent(t *testing.T) {
	in := ReconcileInput{
		SessionID: "s",
		Company: []models.CompanyChequeRecord{
			company("1", "A", "10", "2026-02-01"),
			company("1", "B", "10", "2026-01-01"),
			company("2", "C", "20.25", "2026-02-01"),
		},
		Bank: []models.BankClearedRecord{bank("1", "10", "2026-02-02"), bank("3", "5", "2026-02-02")},
		AsOf: asOf,
	}
	engine := NewEngine()
	first, err := engine.Reconcile(in)
	require.NoError(t, err)
	second, err := engine.Reconcile(in)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestReconcilePartitionAndConservation(t *testing.T) {
	// Deterministic pseudo-random inputs with heavy duplication.
	for seed := 1; seed <= 25; seed++ {
		var comp []models.CompanyChequeRecord
		var bnk []models.BankClearedRecord
		x := seed
		next := func(n int) int {
			x = (x*1103515245 + 12345) % 2147483648
			return x % n
		}
		for i := 0; i < 3+next(12); i++ {
			issued := day("2026-01-01").AddDate(0, 0, next(40))
			comp = append(comp, models.CompanyChequeRecord{
				ChequeNumber: fmt.Sprintf("%03d", next(6)),
				PayeeName:    fmt.Sprintf("P%d", i),
				Amount:       decimal.NewFromInt(int64(next(1000))),
				IssueDate:    issued,
			})
		}
		for i := 0; i < 1+next(12); i++ {
			bnk = append(bnk, models.BankClearedRecord{
				ChequeNumber: fmt.Sprintf(" %03d", next(8)),
				Amount:       decimal.NewFromInt(int64(next(1000))),
				ClearingDate: day("2026-01-15").AddDate(0, 0, next(40)),
			})
		}

		res, err := NewEngine().Reconcile(ReconcileInput{Company: comp, Bank: bnk, AsOf: asOf})
		require.NoError(t, err)

		assert.Equal(t, len(comp), res.TotalCashedCheques+res.TotalUncashedCheques, "seed %d", seed)
		assert.Equal(t, len(bnk), res.TotalCashedCheques+res.TotalUnmatchedBankCheques, "seed %d", seed)

		sum := decimal.Zero
		for _, c := range res.CashedCheques {
			sum = sum.Add(c.Amount)
		}
		assert.True(t, sum.Equal(res.TotalCashedAmount), "seed %d", seed)

		sum = decimal.Zero
		for _, u := range res.UncashedCheques {
			sum = sum.Add(u.Amount)
			assert.GreaterOrEqual(t, u.DaysOutstanding, 0)
		}
		assert.True(t, sum.Equal(res.TotalUncashedAmount), "seed %d", seed)
	}
}

func TestReconcileRejectsSubUnitAmounts(t *testing.T) {
	_, err := NewEngine().Reconcile(ReconcileInput{
		Company: []models.CompanyChequeRecord{
			company("1", "Half cent", "0.005", "2026-02-01"),
			company("2", "Half cent", "0.005", "2026-02-01"),
		},
		Bank: []models.BankClearedRecord{
			bank("1", "0.01", "2026-02-02"),
			bank("2", "0.01", "2026-02-02"),
		},
		AsOf: asOf,
	})
	assert.ErrorIs(t, err, ErrInvalidRecord)
}
