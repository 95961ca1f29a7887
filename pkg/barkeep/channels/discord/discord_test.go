package discord

import (
	"strings"
	"testing"
)

func TestSplitMessage(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		text string
		want int
	}{
		{"short", "hello", 1},
		{"exact", strings.Repeat("a", 2000), 1},
		{"two chunks", strings.Repeat("a", 2001), 2},
		{"long", strings.Repeat("a", 5500), 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			chunks := splitMessage(tc.text, 2000)
			if len(chunks) != tc.want {
				t.Fatalf("chunks = %d, want %d", len(chunks), tc.want)
			}
			var total int
			for _, c := range chunks {
				if len(c) > 2000 {
					t.Errorf("chunk of %d chars exceeds the limit", len(c))
				}
				total += len(c)
			}
			if total != len(tc.text) {
				t.Errorf("chunks lose content: %d != %d", total, len(tc.text))
			}
		})
	}
}

func TestSplitMessagePrefersNewline(t *testing.T) {
	t.Parallel()
	text := strings.Repeat("a", 1500) + "\n" + strings.Repeat("b", 1500)
	chunks := splitMessage(text, 2000)
	if len(chunks) != 2 {
		t.Fatalf("chunks = %d, want 2", len(chunks))
	}
	if !strings.HasSuffix(chunks[0], "\n") {
		t.Error("first chunk does not end at the newline")
	}
	if strings.Contains(chunks[1], "a") {
		t.Error("split did not happen at the newline boundary")
	}
}
