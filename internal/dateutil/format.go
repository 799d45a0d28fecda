// Package dateutil formats note timestamps for display.
package dateutil

import "time"

const (
	DateLayout     = "01 02, 2006"
	TimeLayout     = "3:04 PM"
	DateTimeLayout = DateLayout + " " + TimeLayout
)

// FormatDate renders a unix-millisecond timestamp as "MM dd, yyyy" in local time.
func FormatDate(ms int64) string {
	return time.UnixMilli(ms).Format(DateLayout)
}

// FormatTime renders a unix-millisecond timestamp as "h:mm AM" in local time.
func FormatTime(ms int64) string {
	return time.UnixMilli(ms).Format(TimeLayout)
}

// FormatDateTime renders a unix-millisecond timestamp as "MM dd, yyyy h:mm AM" in local time.
func FormatDateTime(ms int64) string {
	return time.UnixMilli(ms).Format(DateTimeLayout)
}

// In returns formatters bound to loc instead of the local zone.
func In(loc *time.Location) Formatter {
	return Formatter{loc: loc}
}

// Formatter formats timestamps in a fixed location.
type Formatter struct {
	loc *time.Location
}

func (f Formatter) at(ms int64) time.Time {
	return time.UnixMilli(ms).In(f.loc)
}

// Date is FormatDate in f's location.
func (f Formatter) Date(ms int64) string { return f.at(ms).Format(DateLayout) }

// Time is FormatTime in f's location.
func (f Formatter) Time(ms int64) string { return f.at(ms).Format(TimeLayout) }

// DateTime is FormatDateTime in f's location.
func (f Formatter) DateTime(ms int64) string { return f.at(ms).Format(DateTimeLayout) }
