// Package command implements the chat command grammar: a quote/escape-aware
// tokenizer and a schema-driven flag binder. Commands arrive as free text
// ("$chat --llm gemini --send Hello there") and leave as a ParsedCommand with
// validated flag bindings, ready for the dispatcher.
package command

import (
	"strings"
	"unicode"
)

// TokenKind classifies a lexical token.
type TokenKind int

const (
	// Word is an unquoted run of non-whitespace characters.
	Word TokenKind = iota

	// Value is a token that was (at least partially) quoted. Quoted tokens
	// are never treated as flags, so "-v" inside quotes stays literal.
	Value

	// Flag is an unquoted token starting with "-" or "--" that looks like a
	// flag. Whether its name is actually recognized is the binder's job.
	Flag
)

// Token is one lexical unit of a command line. Order is significant.
type Token struct {
	Kind TokenKind
	Text string
}

// IsFlag reports whether the token is a flag token.
func (t Token) IsFlag() bool { return t.Kind == Flag }

// Tokenize splits raw command text into tokens. It never fails: malformed
// input (an unterminated quote) produces an ErrUnterminatedQuote entry in the
// returned error list plus best-effort tokens for everything read so far.
//
// Rules:
//   - Whitespace separates tokens except inside a quoted span.
//   - Both ' and " open a span, closed by an unescaped quote of the same
//     kind. The other quote kind is literal inside the span.
//   - A backslash escapes a quote character or a backslash inside a span.
//   - Closing a quote ends the token immediately, preserving empty strings.
func Tokenize(text string) ([]Token, []ParseError) {
	var (
		tokens   []Token
		errs     []ParseError
		current  strings.Builder
		started  bool // current token has content or was an empty quote
		quoted   bool // any part of the current token was quoted
		inQuotes bool
		quoteCh  byte
	)

	flush := func() {
		if !started && current.Len() == 0 {
			return
		}
		tokens = append(tokens, classify(current.String(), quoted))
		current.Reset()
		started = false
		quoted = false
	}

	for i := 0; i < len(text); i++ {
		ch := text[i]

		// Escapes only apply inside a quoted span: \" \' and \\ become
		// literal, everything else keeps the backslash.
		if ch == '\\' && inQuotes && i+1 < len(text) {
			next := text[i+1]
			if next == '"' || next == '\'' || next == '\\' {
				current.WriteByte(next)
				started = true
				i++
				continue
			}
		}

		if ch == '"' || ch == '\'' {
			switch {
			case !inQuotes:
				inQuotes = true
				quoteCh = ch
				quoted = true
				started = true
			case ch == quoteCh:
				inQuotes = false
				flush()
			default:
				// The other quote kind is literal content.
				current.WriteByte(ch)
			}
			continue
		}

		if unicode.IsSpace(rune(ch)) && !inQuotes {
			flush()
			continue
		}

		current.WriteByte(ch)
		started = true
	}

	if inQuotes {
		errs = append(errs, ParseError{
			Code:    ErrUnterminatedQuote,
			Message: "unterminated " + string(quoteCh) + " quote",
		})
	}
	flush()

	return tokens, errs
}

// classify decides the token kind. A quoted token is always a Value. An
// unquoted token starting with "-" is a Flag unless the next character is a
// digit, so negative numbers and time offsets stay plain words.
func classify(text string, quoted bool) Token {
	if quoted {
		return Token{Kind: Value, Text: text}
	}
	if len(text) > 1 && text[0] == '-' && !isDigit(text[1]) {
		return Token{Kind: Flag, Text: text}
	}
	return Token{Kind: Word, Text: text}
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// Quote renders a value so that tokenizing the result yields the value back
// as a single token, regardless of embedded spaces, quotes or backslashes.
func Quote(value string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(value); i++ {
		switch value[i] {
		case '"', '\\':
			b.WriteByte('\\')
		}
		b.WriteByte(value[i])
	}
	b.WriteByte('"')
	return b.String()
}
