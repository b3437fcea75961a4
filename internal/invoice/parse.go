package invoice

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"daleel/pkg/models"
)

var digitReplacer = strings.NewReplacer(
	"٠", "0", "١", "1", "٢", "2", "٣", "3", "٤", "4",
	"٥", "5", "٦", "6", "٧", "7", "٨", "8", "٩", "9",
	"٫", ".", "٬", ",",
)

// currencyMarks are stripped from amounts before parsing. Longer marks first.
var currencyMarks = []string{"ج.م.", "ج.م", "جنيه", "L.E.", "EGP", "E£", "LE", "£"}

// ParseAmount parses an amount as printed on an invoice. Both 1,234.50 and
// 1.234,50 are understood, as are Arabic-Indic digits and EGP marks.
func ParseAmount(s string) (decimal.Decimal, error) {
	cleaned := digitReplacer.Replace(strings.TrimSpace(s))
	for _, mark := range currencyMarks {
		cleaned = strings.ReplaceAll(cleaned, mark, "")
	}
	cleaned = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\u00a0', '\u202f', '\'':
			return -1
		}
		return r
	}, cleaned)

	lastDot := strings.LastIndex(cleaned, ".")
	lastComma := strings.LastIndex(cleaned, ",")
	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			// 1.234,50
			cleaned = strings.ReplaceAll(cleaned, ".", "")
			cleaned = strings.Replace(cleaned, ",", ".", 1)
		} else {
			// 1,234.50
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	case lastComma >= 0:
		parts := strings.Split(cleaned, ",")
		if len(parts) == 2 && len(parts[1]) <= 2 {
			cleaned = parts[0] + "." + parts[1]
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	case strings.Count(cleaned, ".") > 1:
		cleaned = strings.ReplaceAll(cleaned, ".", "")
	}

	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("unable to parse amount: %s (cleaned: %s)", s, cleaned)
	}
	return amount, nil
}

// Egyptian invoices print day first.
var dateFormats = []string{
	models.DateLayout,
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"02.01.2006",
	"2006/01/02",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"2 Jan 2006",
}

// ParseDate parses a date as printed on an invoice.
func ParseDate(s string) (time.Time, error) {
	cleaned := digitReplacer.Replace(strings.TrimSpace(s))
	if cleaned == "" {
		return time.Time{}, fmt.Errorf("empty date value")
	}
	for _, format := range dateFormats {
		if date, err := time.Parse(format, cleaned); err == nil {
			return date, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse date: %s", s)
}
