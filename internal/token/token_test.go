package token

import (
	"reflect"
	"testing"
)

func TestTokenizeBasic(t *testing.T) {
	got := Tokenize("Hello, World!")
	want := []Token{
		{Term: "hello", Start: 0, End: 5},
		{Term: "world", Start: 7, End: 12},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize = %+v, want %+v", got, want)
	}
}

func TestTokenizeRuneOffsets(t *testing.T) {
	// Multi-byte runes must count as single code points.
	got := Tokenize("héllo wörld")
	want := []Token{
		{Term: "héllo", Start: 0, End: 5},
		{Term: "wörld", Start: 6, End: 11},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize = %+v, want %+v", got, want)
	}
	// Offsets slice the original text back out.
	runes := []rune("héllo wörld")
	if s := string(runes[got[1].Start:got[1].End]); s != "wörld" {
		t.Errorf("offset slice = %q, want %q", s, "wörld")
	}
}

func TestTokenizeDigitsAndPunctuation(t *testing.T) {
	got := Terms("page-42: x2,y (end)")
	want := []string{"page", "42", "x2", "y", "end"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Terms = %v, want %v", got, want)
	}
}

func TestTokenizeEmpty(t *testing.T) {
	if got := Tokenize(""); len(got) != 0 {
		t.Errorf("Tokenize(\"\") = %+v, want none", got)
	}
	if got := Tokenize(" \t\n.,;"); len(got) != 0 {
		t.Errorf("Tokenize(punct) = %+v, want none", got)
	}
}

func TestTokenizeDeterministic(t *testing.T) {
	const text = "The quick brown fox, the QUICK brown fox."
	a := Tokenize(text)
	b := Tokenize(text)
	if !reflect.DeepEqual(a, b) {
		t.Error("Tokenize is not deterministic")
	}
}

func TestTokenizeTrailingToken(t *testing.T) {
	got := Tokenize("end")
	want := []Token{{Term: "end", Start: 0, End: 3}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize = %+v, want %+v", got, want)
	}
}
