package provider

// Prompt is a named system prompt preset selectable with $chat -prompt.
type Prompt struct {
	Name string
	Text string
}

// Presets are the built-in system prompts. Index 0 is the default.
var Presets = []Prompt{
	{
		Name: "assistant",
		Text: "You are a helpful assistant in a group chat. Keep answers concise and conversational.",
	},
	{
		Name: "terse",
		Text: "Answer in as few words as possible. No preamble, no follow-up questions.",
	},
	{
		Name: "explainer",
		Text: "Explain the topic step by step, assuming no prior knowledge. Use plain language and short paragraphs.",
	},
	{
		Name: "coder",
		Text: "You are a programming assistant. Prefer code examples over prose. Point out bugs and edge cases directly.",
	},
	{
		Name: "translator",
		Text: "Translate the user's message to English if it is in another language, otherwise to the language they name. Output only the translation.",
	},
}

// PromptByIndex returns the preset at index, or false when out of range.
func PromptByIndex(i int) (Prompt, bool) {
	if i < 0 || i >= len(Presets) {
		return Prompt{}, false
	}
	return Presets[i], true
}

// ActivePrompt resolves the system prompt for a session: a custom prompt
// wins over the preset index; an out-of-range index falls back to the
// default preset.
func ActivePrompt(index int, custom string) string {
	if custom != "" {
		return custom
	}
	if p, ok := PromptByIndex(index); ok {
		return p.Text
	}
	return Presets[0].Text
}
