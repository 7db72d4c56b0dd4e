package sanitize

import "testing"

func TestText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain", input: "Go Meetup", want: "Go Meetup"},
		{name: "script", input: `Go <script>alert(1)</script>Meetup`, want: "Go Meetup"},
		{name: "tags", input: `<b>Rooftop</b> party`, want: "Rooftop party"},
		{name: "trim", input: "  Lagos  ", want: "Lagos"},
		{name: "ampersand", input: "Rock & Roll", want: "Rock & Roll"},
		{name: "apostrophe", input: "O'Neil's Pub", want: "O'Neil's Pub"},
		{name: "quotes", input: `The "Big" Night`, want: `The "Big" Night`},
		{name: "tags_and_ampersand", input: "<i>Rock</i> & Roll", want: "Rock & Roll"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Text(tt.input); got != tt.want {
				t.Fatalf("Text(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestHTML_KeepsFormattingDropsScripts(t *testing.T) {
	got := HTML(`<p>Bring <strong>snacks</strong></p><script>steal()</script>`)

	if got != "<p>Bring <strong>snacks</strong></p>" {
		t.Fatalf("unexpected sanitized html: %q", got)
	}
}

func TestHTML_PlainTextUnchanged(t *testing.T) {
	in := `Bring friends & family, it's "free"`

	if got := HTML(in); got != in {
		t.Fatalf("HTML(%q) = %q", in, got)
	}
}
