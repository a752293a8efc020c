package cashclosing

// Classify maps a combined difference to its outcome.
func Classify(difference int64) Outcome {
	switch {
	case difference < 0:
		return OutcomeShort
	case difference > 0:
		return OutcomeOver
	default:
		return OutcomePerfect
	}
}

// Reconcile derives the differences of a shift. Positive means more money
// was counted than expected.
func Reconcile(c Counts) Reconciliation {
	cash := c.ActualCash - c.ExpectedCash
	transfer := c.ActualTransfer - c.ExpectedTransfer
	combined := cash + transfer
	return Reconciliation{
		CashDifference:     cash,
		TransferDifference: transfer,
		CombinedDifference: combined,
		Outcome:            Classify(combined),
	}
}
