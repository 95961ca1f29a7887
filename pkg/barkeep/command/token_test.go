package command

import (
	"reflect"
	"testing"
)

func TestTokenize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  []Token
	}{
		{
			"plain words",
			"hello world",
			[]Token{{Word, "hello"}, {Word, "world"}},
		},
		{
			"flags and words",
			"--send hello world --llm chatgpt",
			[]Token{{Flag, "--send"}, {Word, "hello"}, {Word, "world"}, {Flag, "--llm"}, {Word, "chatgpt"}},
		},
		{
			"double quoted value",
			`--send "Hello world"`,
			[]Token{{Flag, "--send"}, {Value, "Hello world"}},
		},
		{
			"single quoted value",
			`--send 'Hello world'`,
			[]Token{{Flag, "--send"}, {Value, "Hello world"}},
		},
		{
			"mixed quote kinds stay literal",
			`-s 'He said "hi" to me'`,
			[]Token{{Flag, "-s"}, {Value, `He said "hi" to me`}},
		},
		{
			"escaped quote of same kind",
			`--send "He said \"hello\" to me"`,
			[]Token{{Flag, "--send"}, {Value, `He said "hello" to me`}},
		},
		{
			"escaped backslash",
			`--send "Path: C:\\Users"`,
			[]Token{{Flag, "--send"}, {Value, `Path: C:\Users`}},
		},
		{
			"empty quoted string preserved",
			`--send ""`,
			[]Token{{Flag, "--send"}, {Value, ""}},
		},
		{
			"negative number is not a flag",
			"-5 minutes",
			[]Token{{Word, "-5"}, {Word, "minutes"}},
		},
		{
			"lone dash is a word",
			"- x",
			[]Token{{Word, "-"}, {Word, "x"}},
		},
		{
			"quoted dash token is a value",
			`"-s"`,
			[]Token{{Value, "-s"}},
		},
		{
			"closing quote ends the token",
			`"ab"cd`,
			[]Token{{Value, "ab"}, {Word, "cd"}},
		},
		{
			"extra whitespace collapses",
			"  a   b  ",
			[]Token{{Word, "a"}, {Word, "b"}},
		},
		{
			"empty input",
			"",
			nil,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, errs := Tokenize(tt.input)
			if len(errs) != 0 {
				t.Fatalf("Tokenize(%q) errors = %v, want none", tt.input, errs)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokenize(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestTokenizeUnterminatedQuote(t *testing.T) {
	t.Parallel()

	got, errs := Tokenize(`--send "never closed`)
	if len(errs) != 1 || errs[0].Code != ErrUnterminatedQuote {
		t.Fatalf("errors = %v, want one ErrUnterminatedQuote", errs)
	}
	// Best-effort tokens are still produced.
	want := []Token{{Flag, "--send"}, {Value, "never closed"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("tokens = %v, want %v", got, want)
	}
}

// Quote round-trip: rendering a logical value and tokenizing it again must
// reproduce the value exactly, for any embedded quoting.
func TestQuoteRoundTrip(t *testing.T) {
	t.Parallel()

	values := []string{
		"plain",
		"two words",
		`embedded "double" quotes`,
		`embedded 'single' quotes`,
		`backslash \ inside`,
		`mixed "a" and 'b' and \`,
		"",
	}

	for _, v := range values {
		tokens, errs := Tokenize(Quote(v))
		if len(errs) != 0 {
			t.Errorf("Tokenize(Quote(%q)) errors = %v", v, errs)
			continue
		}
		if len(tokens) != 1 || tokens[0].Text != v {
			t.Errorf("round-trip of %q = %v", v, tokens)
		}
		if tokens[0].Kind != Value {
			t.Errorf("round-trip of %q lost its quoting", v)
		}
	}
}
