package querydoc

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/qdbconnect/internal/queryir"
)

var (
	identPattern     = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	qualifiedPattern = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)\.([A-Za-z_][A-Za-z0-9_]*|\*)$`)
)

// ParseExpr turns the text of a document expression into a queryir.Expr.
//
//	*              → Star
//	t.*            → Star{Table: t}
//	price, t.price → Column
//	avg(price)     → Func, arguments parsed recursively
//	anything else  → Raw
//
// Parentheses must balance outside of single-quoted strings.
func ParseExpr(s string) (queryir.Expr, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty expression")
	}
	if err := checkParens(s); err != nil {
		return nil, err
	}

	if s == "*" {
		return queryir.Star{}, nil
	}
	if identPattern.MatchString(s) {
		return queryir.Column{Name: s}, nil
	}
	if m := qualifiedPattern.FindStringSubmatch(s); m != nil {
		if m[2] == "*" {
			return queryir.Star{Table: m[1]}, nil
		}
		return queryir.Column{Table: m[1], Name: m[2]}, nil
	}

	if open := strings.IndexByte(s, '('); open > 0 && identPattern.MatchString(s[:open]) {
		if closing := matchingParen(s, open); closing == len(s)-1 {
			args, err := splitArgs(s[open+1 : closing])
			if err != nil {
				return nil, err
			}
			fn := queryir.Func{Name: s[:open]}
			for _, a := range args {
				arg, err := ParseExpr(a)
				if err != nil {
					return nil, fmt.Errorf("%s: %w", fn.Name, err)
				}
				fn.Args = append(fn.Args, arg)
			}
			return fn, nil
		}
	}

	return queryir.Raw{SQL: s}, nil
}

func checkParens(s string) error {
	depth := 0
	inQuote := false
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '\'':
			inQuote = !inQuote
		case inQuote:
		case c == '(':
			depth++
		case c == ')':
			depth--
			if depth < 0 {
				return fmt.Errorf("unbalanced parentheses in %q", s)
			}
		}
	}
	if depth != 0 || inQuote {
		return fmt.Errorf("unbalanced parentheses in %q", s)
	}
	return nil
}

// matchingParen returns the index of the parenthesis closing s[open].
func matchingParen(s string, open int) int {
	depth := 0
	inQuote := false
	for i := open; i < len(s); i++ {
		switch c := s[i]; {
		case c == '\'':
			inQuote = !inQuote
		case inQuote:
		case c == '(':
			depth++
		case c == ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// splitArgs splits on commas at depth zero.
func splitArgs(s string) ([]string, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var (
		args    []string
		depth   int
		inQuote bool
		start   int
	)
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '\'':
			inQuote = !inQuote
		case inQuote:
		case c == '(':
			depth++
		case c == ')':
			depth--
		case c == ',' && depth == 0:
			args = append(args, s[start:i])
			start = i + 1
		}
	}
	args = append(args, s[start:])
	for i, a := range args {
		if strings.TrimSpace(a) == "" {
			return nil, fmt.Errorf("empty argument %d in %q", i+1, s)
		}
	}
	return args, nil
}
