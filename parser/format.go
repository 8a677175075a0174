package parser

import (
	"strconv"
	"strings"
)

const (
	minWrapWidth   = 20
	hiddenMinBytes = 1000
)

func isBreakChar(c byte) bool {
	return strings.IndexByte(",;{}+-*/&|^?:", c) >= 0
}

// Wrap breaks long lines for display. A line is split after the last break
// character found between 60% of maxChars and maxChars, or hard at maxChars
// when there is none.
func Wrap(code string, maxChars int) string {
	if maxChars < minWrapWidth {
		maxChars = minWrapWidth
	}
	lines := strings.Split(code, "\n")
	var b strings.Builder
	for li, line := range lines {
		if li > 0 {
			b.WriteByte('\n')
		}
		for len(line) > maxChars {
			split := -1
			for k := maxChars - 1; k >= maxChars*6/10; k-- {
				if isBreakChar(line[k]) {
					split = k
					break
				}
			}
			n := maxChars
			if split >= 0 {
				n = split + 1
			}
			b.WriteString(line[:n])
			b.WriteByte('\n')
			line = line[n:]
		}
		b.WriteString(line)
	}
	return b.String()
}

// Hidden maps placeholder keys to the string literals they replace.
type Hidden map[string]string

// HideLongStrings replaces string literals longer than 1000 bytes (quotes
// included) by @HIDDEN_DATA_n@ placeholders so sample data does not swamp an
// editor. Expand restores them.
func HideLongStrings(code string) (string, Hidden) {
	hidden := Hidden{}
	var b strings.Builder
	for i := 0; i < len(code); i++ {
		c := code[i]
		if c != '"' && c != '\'' {
			b.WriteByte(c)
			continue
		}
		end := escapedClosingQuote(code, i)
		if end < 0 {
			end = len(code) - 1
		}
		lit := code[i : end+1]
		if len(lit) > hiddenMinBytes {
			key := "@HIDDEN_DATA_" + strconv.Itoa(len(hidden)) + "@"
			hidden[key] = lit
			b.WriteString(key)
		} else {
			b.WriteString(lit)
		}
		i = end
	}
	return b.String(), hidden
}

func (h Hidden) Expand(code string) string {
	for key, lit := range h {
		code = strings.ReplaceAll(code, key, lit)
	}
	return code
}
