package types

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// isoDurationPattern matches ISO-8601 "P[n]Y[n]M[n]D[T[n]H[n]M[n]S]".
var isoDurationPattern = regexp.MustCompile(`^P(?:(\d+)Y)?(?:(\d+)M)?(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+(?:\.\d+)?)S)?)?$`)

type isoDurationParts struct {
	years, months, days             int
	hours, minutes                  int
	seconds                         float64
}

func parseISODuration(s string) (isoDurationParts, bool) {
	m := isoDurationPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return isoDurationParts{}, false
	}
	var p isoDurationParts
	if m[1] != "" {
		p.years, _ = strconv.Atoi(m[1])
	}
	if m[2] != "" {
		p.months, _ = strconv.Atoi(m[2])
	}
	if m[3] != "" {
		p.days, _ = strconv.Atoi(m[3])
	}
	if m[4] != "" {
		p.hours, _ = strconv.Atoi(m[4])
	}
	if m[5] != "" {
		p.minutes, _ = strconv.Atoi(m[5])
	}
	if m[6] != "" {
		p.seconds, _ = strconv.ParseFloat(m[6], 64)
	}
	return p, true
}

// PostgreSqlInterval is PostgreSQL's three-field interval
// representation: months, days, and microseconds.
type PostgreSqlInterval struct {
	Months       int
	Days         int
	Microseconds int64
}

// ParsePostgreSqlInterval parses an ISO-8601 duration, reading the M
// component directly into Months and hours/minutes/seconds into
// microseconds; a Y component is not carried into the result. Invalid
// input yields the zero interval, per spec.md §4.5.
func ParsePostgreSqlInterval(s string) PostgreSqlInterval {
	p, ok := parseISODuration(s)
	if !ok {
		return PostgreSqlInterval{}
	}
	micros := int64(p.hours)*3600_000000 + int64(p.minutes)*60_000000 + int64(p.seconds*1_000_000)
	return PostgreSqlInterval{
		Months:       p.months,
		Days:         p.days,
		Microseconds: micros,
	}
}

// ToISO renders the interval back to ISO-8601 form.
func (i PostgreSqlInterval) ToISO() string {
	var sb strings.Builder
	sb.WriteByte('P')
	if i.Months != 0 {
		fmt.Fprintf(&sb, "%dM", i.Months)
	}
	if i.Days != 0 {
		fmt.Fprintf(&sb, "%dD", i.Days)
	}
	if i.Microseconds != 0 {
		d := time.Duration(i.Microseconds) * time.Microsecond
		sb.WriteByte('T')
		writeClockComponents(&sb, d)
	}
	if sb.Len() == 1 {
		return "PT0S"
	}
	return sb.String()
}

// IntervalYearMonth is Oracle's year-month interval.
type IntervalYearMonth struct {
	Years  int
	Months int
}

// ParseIntervalYearMonth parses "P[n]Y[n]M". Invalid input yields the
// zero interval.
func ParseIntervalYearMonth(s string) IntervalYearMonth {
	p, ok := parseISODuration(s)
	if !ok {
		return IntervalYearMonth{}
	}
	return IntervalYearMonth{Years: p.years, Months: p.months}
}

func (i IntervalYearMonth) ToISO() string {
	if i.Years == 0 && i.Months == 0 {
		return "P0Y"
	}
	var sb strings.Builder
	sb.WriteByte('P')
	if i.Years != 0 {
		fmt.Fprintf(&sb, "%dY", i.Years)
	}
	if i.Months != 0 {
		fmt.Fprintf(&sb, "%dM", i.Months)
	}
	return sb.String()
}

// IntervalDaySecond is Oracle's day-second interval: whole days plus a
// sub-day duration.
type IntervalDaySecond struct {
	Days int
	Time time.Duration
}

// ParseIntervalDaySecond parses "P[n]DT[n]H[n]M[n]S". Invalid input
// yields the zero interval.
func ParseIntervalDaySecond(s string) IntervalDaySecond {
	p, ok := parseISODuration(s)
	if !ok {
		return IntervalDaySecond{}
	}
	d := time.Duration(p.hours)*time.Hour +
		time.Duration(p.minutes)*time.Minute +
		time.Duration(p.seconds*float64(time.Second))
	return IntervalDaySecond{Days: p.days, Time: d}
}

func (i IntervalDaySecond) ToISO() string {
	var sb strings.Builder
	sb.WriteByte('P')
	if i.Days != 0 {
		fmt.Fprintf(&sb, "%dD", i.Days)
	}
	if i.Time != 0 {
		sb.WriteByte('T')
		writeClockComponents(&sb, i.Time)
	}
	if sb.Len() == 1 {
		return "PT0S"
	}
	return sb.String()
}

func writeClockComponents(sb *strings.Builder, d time.Duration) {
	hours := int(d / time.Hour)
	d -= time.Duration(hours) * time.Hour
	minutes := int(d / time.Minute)
	d -= time.Duration(minutes) * time.Minute
	seconds := d.Seconds()

	if hours != 0 {
		fmt.Fprintf(sb, "%dH", hours)
	}
	if minutes != 0 {
		fmt.Fprintf(sb, "%dM", minutes)
	}
	if seconds != 0 {
		if seconds == float64(int64(seconds)) {
			fmt.Fprintf(sb, "%dS", int64(seconds))
		} else {
			fmt.Fprintf(sb, "%gS", seconds)
		}
	}
}
