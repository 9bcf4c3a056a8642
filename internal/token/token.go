// Package token turns raw page text into normalized, searchable terms.
//
// Tokenize is a pure function: the same input always yields the same
// token sequence. Offsets are measured in code points of the original
// text so callers can slice the exact matched text back out of it.
package token

import "unicode"

// Token is one normalized term with its position in the source text.
// Start and End are rune offsets into the original string (End is
// exclusive).
type Token struct {
	Term  string
	Start int
	End   int
}

// Tokenize splits text into case-folded terms. A term is a maximal run
// of letters and digits; every other rune is a boundary. Zero-length
// tokens are never produced.
func Tokenize(text string) []Token {
	var out []Token
	var term []rune
	start := 0

	flush := func(end int) {
		if len(term) == 0 {
			return
		}
		out = append(out, Token{Term: string(term), Start: start, End: end})
		term = term[:0]
	}

	pos := 0
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if len(term) == 0 {
				start = pos
			}
			term = append(term, unicode.ToLower(r))
		} else {
			flush(pos)
		}
		pos++
	}
	flush(pos)

	return out
}

// Terms returns just the normalized terms of text, in order.
func Terms(text string) []string {
	toks := Tokenize(text)
	out := make([]string, len(toks))
	for i, t := range toks {
		out[i] = t.Term
	}
	return out
}
