package command

import "strings"

// ErrorCode identifies a class of parse or binding failure.
type ErrorCode string

const (
	// ErrUnterminatedQuote marks input whose last quoted span never closed.
	ErrUnterminatedQuote ErrorCode = "unterminated_quote"

	// ErrUnknownFlag marks a flag token that matched no schema entry.
	ErrUnknownFlag ErrorCode = "unknown_flag"

	// ErrMissingValue marks a ONE-arity flag that captured no value.
	ErrMissingValue ErrorCode = "missing_value"

	// ErrDanglingArgument marks bare words with no preceding flag to attach
	// to, in a command line that otherwise uses the flag grammar.
	ErrDanglingArgument ErrorCode = "dangling_argument"

	// ErrValidation marks a bound value that is semantically invalid:
	// unknown provider or model, out-of-range index, end before start.
	ErrValidation ErrorCode = "validation"
)

// ParseError is one accumulated parse or binding failure. Binding never
// aborts on the first error; the full list is surfaced to the user.
type ParseError struct {
	Code    ErrorCode
	Message string
}

func (e ParseError) Error() string { return e.Message }

// FormatErrors renders an error list as one bullet per error.
func FormatErrors(errs []ParseError) string {
	var b strings.Builder
	for i, e := range errs {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("• ")
		b.WriteString(e.Message)
	}
	return b.String()
}
