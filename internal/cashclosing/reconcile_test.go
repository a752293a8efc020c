package cashclosing

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	require.Equal(t, OutcomePerfect, Classify(0))
	require.Equal(t, OutcomeShort, Classify(-1))
	require.Equal(t, OutcomeOver, Classify(1))
}

func TestReconcileBalancedShift(t *testing.T) {
	rec := Reconcile(Counts{ExpectedCash: 100000, ActualCash: 100000, ExpectedTransfer: 50000, ActualTransfer: 50000})
	require.Zero(t, rec.CashDifference)
	require.Zero(t, rec.TransferDifference)
	require.Equal(t, OutcomePerfect, rec.Outcome)
	require.False(t, rec.RequiresReason())
}

func TestReconcileShortShift(t *testing.T) {
	rec := Reconcile(Counts{ExpectedCash: 100000, ActualCash: 95000, ExpectedTransfer: 50000, ActualTransfer: 50000})
	require.EqualValues(t, -5000, rec.CashDifference)
	require.EqualValues(t, -5000, rec.CombinedDifference)
	require.Equal(t, OutcomeShort, rec.Outcome)
	require.True(t, rec.RequiresReason())
}

func TestReconcileOffsettingDifferences(t *testing.T) {
	rec := Reconcile(Counts{ExpectedCash: 100000, ActualCash: 97000, ExpectedTransfer: 50000, ActualTransfer: 53000})
	require.EqualValues(t, -3000, rec.CashDifference)
	require.EqualValues(t, 3000, rec.TransferDifference)
	require.Equal(t, OutcomePerfect, rec.Outcome)

	rec = Reconcile(Counts{ExpectedTransfer: 10000, ActualTransfer: 12500})
	require.Equal(t, OutcomeOver, rec.Outcome)
	require.EqualValues(t, 2500, rec.CombinedDifference)
}
