package payroll

// =============================================================================
// PAY PERIOD - The 14-day span of worked time a payday compensates
// =============================================================================

// PayPeriod is an inclusive [Start, End] span of worked days.
//
// It is derived from a payday, never stored:
//   End   = payday - 6 days
//   Start = End - 13 days
// which makes every period exactly 14 days inclusive.
type PayPeriod struct {
	Start DayStamp
	End   DayStamp
}

// Contains reports whether the day falls within [Start, End].
func (p PayPeriod) Contains(d DayStamp) bool {
	return d.AfterOrEqual(p.Start) && d.BeforeOrEqual(p.End)
}

// Days returns the number of days in the period, inclusive.
func (p PayPeriod) Days() int {
	return DaysBetween(p.Start, p.End) + 1
}

// Next returns the period immediately following this one.
func (p PayPeriod) Next() PayPeriod {
	span := DaysBetween(p.Start, p.End)
	start := p.End.AddDays(1)
	return PayPeriod{Start: start, End: start.AddDays(span)}
}

// Previous returns the period immediately preceding this one.
func (p PayPeriod) Previous() PayPeriod {
	span := DaysBetween(p.Start, p.End)
	end := p.Start.AddDays(-1)
	return PayPeriod{Start: end.AddDays(-span), End: end}
}

func (p PayPeriod) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}
