package status

// Verify checks the log invariants: every entry continues from the previous
// one, no entry is a self-transition, and the last entry matches the current
// status. Timestamps come from whichever clock wrote the entry and are not
// required to be monotonic.
func (t Tracker[S]) Verify() error {
	for i, tr := range t.history {
		if tr.PreviousStatus == tr.NewStatus {
			return &HistoryError{Index: i, Reason: "self transition"}
		}

		if i == 0 {
			continue
		}

		prev := t.history[i-1]
		if tr.PreviousStatus != prev.NewStatus {
			return &HistoryError{Index: i, Reason: "previous status does not match preceding entry"}
		}
	}

	if last, ok := t.Last(); ok && last.NewStatus != t.current {
		return &HistoryError{Index: len(t.history) - 1, Reason: "last entry does not match current status"}
	}

	return nil
}

// CheckAppendOnly verifies that next extends prev: every entry of prev is
// still present, unchanged and in place, and next is not shorter.
func CheckAppendOnly[S Value](prev, next Tracker[S]) error {
	if len(next.history) < len(prev.history) {
		return &HistoryError{Index: len(next.history), Reason: "history shrank"}
	}

	for i, tr := range prev.history {
		got := next.history[i]
		if !got.Timestamp.Equal(tr.Timestamp) ||
			got.PreviousStatus != tr.PreviousStatus ||
			got.NewStatus != tr.NewStatus {
			return &HistoryError{Index: i, Reason: "existing entry modified"}
		}
	}

	return next.Verify()
}
