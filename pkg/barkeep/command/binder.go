package command

import "strings"

// Parsed is the result of binding a token stream against a Schema. When
// Errors is non-empty no binding is authoritative: callers must refuse to
// mutate any state and surface the full error list instead.
type Parsed struct {
	// Command is the schema name the input was bound against.
	Command string

	// values holds ONE-arity bindings in occurrence order, keyed by the
	// flag's canonical name.
	values map[string][]string

	// switches holds ZERO-arity bindings.
	switches map[string]bool

	// PositionalFallback is true when the input contained no flag tokens
	// and the legacy positional grammar was used instead.
	PositionalFallback bool

	// Errors accumulates every lexical and binding failure, in input order.
	Errors []ParseError
}

// Ok reports whether the command parsed cleanly.
func (p *Parsed) Ok() bool { return len(p.Errors) == 0 }

// Has reports whether a switch was set or a value flag bound.
func (p *Parsed) Has(name string) bool {
	if p.switches[name] {
		return true
	}
	return len(p.values[name]) > 0
}

// Value returns the first bound value for a ONE-arity flag.
func (p *Parsed) Value(name string) (string, bool) {
	vs := p.values[name]
	if len(vs) == 0 {
		return "", false
	}
	return vs[0], true
}

// Values returns all bound values for a repeatable flag, in occurrence order.
func (p *Parsed) Values(name string) []string {
	return p.values[name]
}

// Empty reports whether nothing at all was bound.
func (p *Parsed) Empty() bool {
	return len(p.values) == 0 && len(p.switches) == 0
}

func (p *Parsed) addError(code ErrorCode, msg string) {
	p.Errors = append(p.Errors, ParseError{Code: code, Message: msg})
}

func (p *Parsed) bindValue(name, value string, repeatable bool) {
	if p.values == nil {
		p.values = make(map[string][]string)
	}
	if !repeatable {
		p.values[name] = []string{value}
		return
	}
	p.values[name] = append(p.values[name], value)
}

func (p *Parsed) bindSwitch(name string) {
	if p.switches == nil {
		p.switches = make(map[string]bool)
	}
	p.switches[name] = true
}

// Parse tokenizes text and binds it against the schema. Text must already
// have the command prefix and name stripped.
//
// When the token stream holds at least one flag token the flag grammar
// applies: flags are resolved left to right, ONE-arity flags capture either
// the next quoted token or the run of unquoted tokens up to the next flag
// (capture-until-next-flag), ZERO-arity flags bind true. Unknown flags are
// recorded and the scan continues; bare words before the first flag are a
// DanglingArgument error.
//
// When no flag token is present the legacy positional grammar binds words in
// the schema's fixed order, the last slot greedily taking the rest.
func Parse(schema *Schema, text string) *Parsed {
	p := &Parsed{Command: schema.Name}

	tokens, lexErrs := Tokenize(text)
	p.Errors = append(p.Errors, lexErrs...)

	if !hasFlagToken(tokens) {
		bindPositional(schema, tokens, p)
		return p
	}

	i := 0
	for i < len(tokens) {
		tok := tokens[i]

		if !tok.IsFlag() {
			// Words before the first flag have nothing to attach to.
			p.addError(ErrDanglingArgument, "unexpected argument: "+tok.Text)
			i++
			continue
		}

		spec := schema.lookup(tok.Text)
		if spec == nil {
			p.addError(ErrUnknownFlag, "unknown flag: "+tok.Text)
			i++
			continue
		}

		if spec.Arity == Zero {
			p.bindSwitch(spec.Name)
			i++
			continue
		}

		value, consumed := captureValue(tokens, i+1)
		if consumed == 0 {
			p.addError(ErrMissingValue, "--"+spec.Name+" requires a value")
			i++
			continue
		}
		p.bindValue(spec.Name, value, spec.Repeatable)
		i += 1 + consumed
	}

	return p
}

// captureValue implements the capture-until-next-flag rule: starting at
// start, consume every non-flag token and join the texts with single spaces.
// Quoted tokens keep their content verbatim inside the join. Returns the
// value and the number of tokens consumed; consumed 0 means no value.
func captureValue(tokens []Token, start int) (string, int) {
	var parts []string
	i := start
	for i < len(tokens) && !tokens[i].IsFlag() {
		parts = append(parts, tokens[i].Text)
		i++
	}
	if len(parts) == 0 {
		return "", 0
	}
	return strings.Join(parts, " "), i - start
}

func hasFlagToken(tokens []Token) bool {
	for _, t := range tokens {
		if t.IsFlag() {
			return true
		}
	}
	return false
}

// bindPositional applies the legacy grammar: words fill the schema's
// positional slots in order, the final slot taking everything left.
func bindPositional(schema *Schema, tokens []Token, p *Parsed) {
	if len(tokens) == 0 {
		return
	}
	p.PositionalFallback = true

	if len(schema.Positional) == 0 {
		p.addError(ErrDanglingArgument, "this command takes flags only")
		return
	}

	words := make([]string, len(tokens))
	for i, t := range tokens {
		words[i] = t.Text
	}

	for slot, name := range schema.Positional {
		if slot >= len(words) {
			break
		}
		if slot == len(schema.Positional)-1 {
			p.bindValue(name, strings.Join(words[slot:], " "), false)
			break
		}
		p.bindValue(name, words[slot], false)
	}
}
