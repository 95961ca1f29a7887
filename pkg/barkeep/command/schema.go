package command

// Arity says how many values a flag consumes.
type Arity int

const (
	// Zero flags are switches: their presence binds true.
	Zero Arity = iota

	// One flags capture a value: either the next quoted token verbatim or
	// the run of unquoted tokens up to the next flag, joined with spaces.
	One
)

// FlagSpec defines one recognized flag of a command.
type FlagSpec struct {
	// Name is the canonical long name, matched as "--name".
	Name string

	// Short is the single-character short form, matched as "-x". Empty
	// means no short form.
	Short string

	// Aliases are extra long names ("--initialize" for "--init"). Each is
	// matched with a leading "--", or verbatim when it already starts
	// with "-" (for odd historical forms like "-st").
	Aliases []string

	// Arity is Zero (switch) or One (value-bearing).
	Arity Arity

	// Repeatable value flags append one binding per occurrence instead of
	// overwriting; used for clip --url/--start/--end/--skip.
	Repeatable bool
}

// Schema is the static definition of one command: its recognized flags and
// its legacy positional grammar. Schemas are defined once and never mutated.
type Schema struct {
	// Name is the command name without the prefix, e.g. "chat".
	Name string

	// Flags lists the recognized flags.
	Flags []FlagSpec

	// Positional names the flags bound by the legacy grammar, in fixed
	// argument order, used only when the input contains no flag tokens.
	// The last name is greedy: it receives all remaining words joined
	// with spaces. Empty means the command has no legacy form.
	Positional []string
}

// lookup resolves a flag token ("--send", "-s", "--initialize") against the
// schema. Returns nil when unrecognized.
func (s *Schema) lookup(token string) *FlagSpec {
	for i := range s.Flags {
		f := &s.Flags[i]
		if token == "--"+f.Name {
			return f
		}
		if f.Short != "" && token == "-"+f.Short {
			return f
		}
		for _, a := range f.Aliases {
			if a != "" && a[0] == '-' {
				if token == a {
					return f
				}
			} else if token == "--"+a {
				return f
			}
		}
	}
	return nil
}

// Command schemas. Flag sets and aliases mirror the chat-facing help text;
// the positional lists are the pre-flag grammar kept for backward
// compatibility.
var (
	// ChatSchema drives "$chat": provider/model/prompt selection, history
	// clear, listen mode and message send.
	ChatSchema = Schema{
		Name: "chat",
		Flags: []FlagSpec{
			{Name: "llm", Short: "l", Arity: One},
			{Name: "model", Short: "m", Arity: One},
			{Name: "prompt", Short: "p", Arity: One},
			{Name: "send", Short: "s", Arity: One},
			{Name: "models", Arity: Zero},
			{Name: "status", Aliases: []string{"-st"}, Arity: Zero},
			{Name: "clear", Short: "c", Arity: Zero},
			{Name: "listen", Arity: One},
		},
	}

	// MusicSchema drives "$music". The legacy grammar is a single action
	// word ("$music initialize").
	MusicSchema = Schema{
		Name: "music",
		Flags: []FlagSpec{
			{Name: "init", Short: "i", Aliases: []string{"initialize"}, Arity: Zero},
			{Name: "play", Short: "p", Arity: Zero},
			{Name: "pause", Arity: Zero},
			{Name: "stop", Short: "s", Arity: Zero},
			{Name: "next", Short: "n", Arity: Zero},
			{Name: "prev", Aliases: []string{"previous"}, Arity: Zero},
			{Name: "name", Arity: Zero},
			{Name: "youtube", Short: "y", Arity: One},
			{Name: "queue", Aliases: []string{"add-next"}, Arity: Zero},
		},
		Positional: []string{"action"},
	}

	// ClipSchema drives "$clip". URL/start/end/skip repeat, one triple per
	// requested clip.
	ClipSchema = Schema{
		Name: "clip",
		Flags: []FlagSpec{
			{Name: "url", Short: "u", Arity: One, Repeatable: true},
			{Name: "start", Short: "s", Arity: One, Repeatable: true},
			{Name: "end", Short: "e", Arity: One, Repeatable: true},
			{Name: "resolution", Short: "r", Arity: One},
			{Name: "fps", Arity: One},
			{Name: "bitrate", Short: "b", Arity: One},
			{Name: "format", Short: "f", Arity: One},
			{Name: "force", Arity: Zero},
			{Name: "confirm", Arity: Zero},
			{Name: "cancel", Arity: Zero},
			{Name: "clip", Arity: One},
			{Name: "skip", Arity: One, Repeatable: true},
		},
	}

	// WolframSchema drives "$wolfram". Legacy form treats the whole text
	// as the query.
	WolframSchema = Schema{
		Name: "wolfram",
		Flags: []FlagSpec{
			{Name: "query", Short: "q", Arity: One},
		},
		Positional: []string{"query"},
	}

	// GoogleSchema drives "$google". --query is kept as an alias so both
	// search commands accept the same spelling.
	GoogleSchema = Schema{
		Name: "google",
		Flags: []FlagSpec{
			{Name: "search", Short: "s", Aliases: []string{"query", "-q"}, Arity: One},
		},
		Positional: []string{"search"},
	}

	// DBSchema drives "$db" maintenance actions.
	DBSchema = Schema{
		Name: "db",
		Flags: []FlagSpec{
			{Name: "stats", Short: "s", Arity: Zero},
			{Name: "export", Short: "e", Arity: Zero},
			{Name: "import", Short: "i", Arity: Zero},
		},
	}

	// RemindSchema drives "$remind". Legacy form: "$remind 5 take a break".
	RemindSchema = Schema{
		Name: "remind",
		Flags: []FlagSpec{
			{Name: "time", Short: "t", Arity: One},
			{Name: "message", Short: "m", Arity: One},
		},
		Positional: []string{"time", "message"},
	}
)
