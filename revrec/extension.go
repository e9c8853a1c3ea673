package revrec

// ApplyTermExtensions adjusts a schedule for term extensions, in
// caller-supplied order. Each extension takes the deferred-revenue balance
// as of the day before its grant date and re-amortizes it evenly over
// [grantDate, newServiceEnd], growing the schedule with zero-valued entries
// when the new end reaches past the current one.
func ApplyTermExtensions(s *Schedule, extensions []TermExtension) error {
	for _, ext := range extensions {
		before, err := s.EntryOn(ext.GrantDate.AddDays(-1))
		if err != nil {
			return err
		}

		s.ExtendThrough(ext.ServiceEnd)

		if err := AmortizeRemaining(s, before.EndingDeferredRevenue, ext.GrantDate, ext.ServiceEnd); err != nil {
			return err
		}
	}
	return nil
}
