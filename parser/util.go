package parser

import (
	"strings"
)

type segment struct {
	text   string
	offset int
}

// splitStatements splits a program on commas that are not nested inside
// (), [] or a quoted string. Each segment remembers its byte offset.
func splitStatements(src string) []segment {
	segs := []segment{}
	depth := 0
	start := 0
	for i := 0; i < len(src); i++ {
		switch c := src[i]; c {
		case '"', '\'':
			end := closingQuote(src, i)
			if end < 0 {
				i = len(src)
				continue
			}
			i = end
		case '(', '[':
			depth++
		case ')', ']':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				segs = append(segs, segment{text: src[start:i], offset: start})
				start = i + 1
			}
		}
	}
	segs = append(segs, segment{text: src[start:], offset: start})
	return segs
}

// findAssign returns the byte index of the top-level assignment '=' in a
// statement, or -1 for a bare expression.
func findAssign(stmt string) int {
	depth := 0
	for i := 0; i < len(stmt); i++ {
		switch c := stmt[i]; c {
		case '"', '\'':
			end := closingQuote(stmt, i)
			if end < 0 {
				return -1
			}
			i = end
		case '(', '[':
			depth++
		case ')', ']':
			if depth > 0 {
				depth--
			}
		case '=':
			if depth > 0 {
				continue
			}
			if i > 0 && strings.IndexByte("=!<>", stmt[i-1]) >= 0 {
				continue
			}
			if i+1 < len(stmt) && stmt[i+1] == '=' {
				i++
				continue
			}
			return i
		}
	}
	return -1
}

// closingQuote returns the index of the first quote matching the one
// opened at src[open], or -1. Backslashes have no meaning inside formula
// strings, so '\' is a one byte string.
func closingQuote(src string, open int) int {
	end := strings.IndexByte(src[open+1:], src[open])
	if end < 0 {
		return -1
	}
	return open + 1 + end
}

// escapedClosingQuote is closingQuote for editor display,
// where a quote preceded by an odd run of backslashes does not close the
// string.
func escapedClosingQuote(src string, open int) int {
	q := src[open]
	for i := open + 1; i < len(src); i++ {
		if src[i] != q {
			continue
		}
		n := 0
		for j := i - 1; j > open && src[j] == '\\'; j-- {
			n++
		}
		if n%2 == 0 {
			return i
		}
	}
	return -1
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	default:
		return false
	}
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentStart(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

func isIdent(s string) bool {
	if s == "" || !isIdentStart(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isIdentPart(s[i]) {
			return false
		}
	}
	return true
}
