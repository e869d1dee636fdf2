package booking

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Placeholder stands in for values that are missing or unparseable
const Placeholder = "—"

const isoDate = "2006-01-02"

var moneyPrinter = message.NewPrinter(language.MustParse("en-CA"))

// Pick returns the first non-empty value
func Pick(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Money formats an amount in cents as Canadian dollars, e.g. $1,234.56
func Money(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%s.%02d", sign, moneyPrinter.Sprintf("%d", cents/100), cents%100)
}

// ParseDate parses an ISO calendar date, tolerating a trailing time part
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if len(s) > len(isoDate) {
		s = s[:len(isoDate)]
	}
	t, err := time.Parse(isoDate, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// LongDate formats an ISO date as "March 1, 2025", or the placeholder
func LongDate(iso string) string {
	t, ok := ParseDate(iso)
	if !ok {
		return Placeholder
	}
	return t.Format("January 2, 2006")
}

// Plural returns "1 night", "3 nights"
func Plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
