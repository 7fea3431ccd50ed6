// Package dialect holds the QuestDB SQL dialect rules shared by the DDL and
// query compilers: identifier quoting, schema stripping, LIMIT rewriting and
// the server's function names.
package dialect

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// specialChars force an identifier to be quoted.
const specialChars = "()[]{}'\":;.!%&*$@~^-?/\\ \t\r\n"

// QuoteIdentifier wraps an identifier in double quotes.
// One leading and one trailing quote character (' or ") are stripped first,
// so already-quoted names are not double-quoted. Embedded double quotes are
// escaped by doubling. Returns "" for an empty identifier.
//
//	QuoteIdentifier("trades")   → `"trades"`
//	QuoteIdentifier("'trades'") → `"trades"`
func QuoteIdentifier(id string) string {
	if id == "" {
		return ""
	}
	first, last := 0, len(id)
	if isQuote(id[first]) {
		first++
	}
	if last > first && isQuote(id[last-1]) {
		last--
	}
	name := norm.NFC.String(id[first:last])
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// RequiresQuotes reports whether id contains a character that is only legal
// inside a quoted identifier.
func RequiresQuotes(id string) bool {
	return strings.ContainsAny(id, specialChars)
}

// FormatColumn quotes id only when RequiresQuotes says so.
func FormatColumn(id string) string {
	if RequiresQuotes(id) {
		return QuoteIdentifier(id)
	}
	return norm.NFC.String(id)
}

func isQuote(c byte) bool {
	return c == '\'' || c == '"'
}
