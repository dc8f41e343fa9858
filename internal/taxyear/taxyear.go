// Package taxyear maps calendar dates onto UK tax years.
//
// A UK tax year runs from 6 April to 5 April and is identified by the
// calendar year it starts in.
package taxyear

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"divs/internal/core"
)

// AprilNext holds 1-5 April, the tail of the previous tax year.
const AprilNext = "April (next)"

// firstDay is the day of April a tax year starts on.
const firstDay = 6

// CalendarMonths is the 12-row layout used for calendar year reports.
var CalendarMonths = []string{
	"January", "February", "March", "April", "May", "June", "July",
	"August", "September", "October", "November", "December",
}

// TaxMonths is the 13-row layout used for tax year reports.
var TaxMonths = append(append(append([]string{}, CalendarMonths[3:]...), CalendarMonths[:3]...), AprilNext)

// Of returns the tax year the date falls in.
//
//	5.4.2013 -> 2012
//	6.4.2013 -> 2013
func Of(d core.Date) int {
	switch m := d.Month(); {
	case m < int(time.April):
		return d.Year() - 1
	case m > int(time.April):
		return d.Year()
	}
	if d.Day() >= firstDay {
		return d.Year()
	}
	return d.Year() - 1
}

// MonthName returns the calendar month name of d.
func MonthName(d core.Date) string {
	return CalendarMonths[d.Month()-1]
}

// MonthBucketOf returns the row of the tax year layout d belongs to.
func MonthBucketOf(d core.Date) string {
	if d.Month() == int(time.April) && d.Day() < firstDay {
		return AprilNext
	}
	return MonthName(d)
}

// Label renders a tax year as "2013-2014".
func Label(year int) string {
	return fmt.Sprintf("%d-%d", year, year+1)
}

// ParseLabel accepts either "2013-2014" or a bare starting year "2013".
func ParseLabel(s string) (int, error) {
	s = strings.TrimSpace(s)
	start, end, found := strings.Cut(s, "-")
	y, err := strconv.Atoi(start)
	if err != nil {
		return 0, &core.ValidationError{Field: "taxYear", Value: s, Err: err}
	}
	if found {
		e, err := strconv.Atoi(end)
		if err != nil || e != y+1 {
			return 0, &core.ValidationError{Field: "taxYear", Value: s, Err: fmt.Errorf("expected %s", Label(y))}
		}
	}
	return y, nil
}

// IsMonth reports whether name is a row of the given layout.
func IsMonth(layout []string, name string) bool {
	for _, m := range layout {
		if m == name {
			return true
		}
	}
	return false
}
