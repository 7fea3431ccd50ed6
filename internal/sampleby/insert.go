package sampleby

import (
	"regexp"
	"strings"
	"unicode"
)

// anchors are tried in order; the first keyword found wins.
var anchors = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bGROUP\s+BY\b`),
	regexp.MustCompile(`(?i)\bORDER\s+BY\b`),
	regexp.MustCompile(`(?i)\bLIMIT\b`),
}

// Insert splices fragment into stmt. See InsertAt.
func Insert(stmt, fragment string) string {
	return InsertAt(stmt, 0, fragment)
}

// InsertAt splices fragment into stmt, searching for anchor keywords only at
// or after byte offset from. A compiler passes the end of the outer FROM/WHERE
// region so that keywords inside a subquery are skipped.
//
// The fragment is placed before GROUP BY, else ORDER BY, else LIMIT, else
// appended (ahead of a trailing semicolon). An empty fragment returns stmt
// unchanged.
func InsertAt(stmt string, from int, fragment string) string {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return stmt
	}
	if strings.TrimSpace(stmt) == "" {
		return fragment
	}
	if from < 0 {
		from = 0
	}
	if from > len(stmt) {
		from = len(stmt)
	}

	for _, re := range anchors {
		loc := re.FindStringIndex(stmt[from:])
		if loc == nil {
			continue
		}
		idx := from + loc[0]
		head := stmt[:idx]
		if head != "" && !endsWithSpace(head) {
			head += " "
		}
		return head + fragment + " " + stmt[idx:]
	}

	body := strings.TrimRightFunc(stmt, unicode.IsSpace)
	terminated := strings.HasSuffix(body, ";")
	if terminated {
		body = strings.TrimRightFunc(strings.TrimSuffix(body, ";"), unicode.IsSpace)
	}
	out := body + " " + fragment
	if terminated {
		out += ";"
	}
	return out
}

func endsWithSpace(s string) bool {
	r := s[len(s)-1]
	return r == ' ' || r == '\n' || r == '\t' || r == '\r'
}
