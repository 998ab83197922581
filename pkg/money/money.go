// Package money formats integer minor-unit amounts.
package money

import (
	"strconv"
	"strings"
)

var symbols = map[string]string{
	"ZAR": "R",
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
}

// Format renders cents as "R 6 800.00" style text for documents and
// email bodies.
func Format(cents int64, currency string) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	whole := strconv.FormatInt(cents/100, 10)
	frac := cents % 100

	var grouped strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			grouped.WriteByte(' ')
		}
		grouped.WriteRune(r)
	}

	symbol, ok := symbols[strings.ToUpper(currency)]
	if !ok {
		symbol = strings.ToUpper(currency)
	}
	fracText := strconv.FormatInt(frac, 10)
	if frac < 10 {
		fracText = "0" + fracText
	}
	return sign + symbol + " " + grouped.String() + "." + fracText
}
