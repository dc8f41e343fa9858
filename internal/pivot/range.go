package pivot

import (
	"strconv"

	"divs/internal/taxyear"
)

// YearRange fills every calendar year between the first and last observed
// column. Non numeric labels are kept as observed.
func YearRange(observed []string) []string {
	return fillRange(observed, strconv.Itoa, func(s string) (int, error) {
		return strconv.Atoi(s)
	})
}

// TaxYearRange is YearRange for "2013-2014" style tax year labels.
func TaxYearRange(observed []string) []string {
	return fillRange(observed, taxyear.Label, taxyear.ParseLabel)
}

func fillRange(observed []string, format func(int) string, parse func(string) (int, error)) []string {
	if len(observed) < 2 {
		return observed
	}
	first, err := parse(observed[0])
	if err != nil {
		return observed
	}
	last, err := parse(observed[len(observed)-1])
	if err != nil || last < first {
		return observed
	}
	for _, c := range observed {
		if y, err := parse(c); err != nil || format(y) != c {
			return observed
		}
	}
	out := make([]string, 0, last-first+1)
	for y := first; y <= last; y++ {
		out = append(out, format(y))
	}
	return out
}
