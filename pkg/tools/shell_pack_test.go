package tools_test

import (
	"testing"

	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/diagnostics"
)

func TestShell_Output(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"color", `[{"shell.color": {"text": "ok", "color": "green"}}]`, "\x1b[32mok\x1b[0m"},
		{"fg alias with background", `[{"shell.color": {"text": "x", "fg": "red", "bg": "white"}}]`, "\x1b[31m\x1b[47mx\x1b[0m"},
		{"color with bold", `[{"shell.color": {"text": "b", "color": "blue", "bold": true}}]`, "\x1b[34m\x1b[1mb\x1b[0m"},
		{"style list", `[{"shell.style": {"text": "u", "styles": ["underline", "italic"]}}]`, "\x1b[4m\x1b[3mu\x1b[0m"},
		{"write", `[{"shell.write": "a"}, {"shell.write": "b"}]`, "ab"},
		{"write_line", `[{"shell.write_line": "line"}]`, "line\n"},
		{"clear_line", `[{"shell.clear_line": null}]`, "\r\x1b[2K"},
		{"overwrite", `[{"shell.overwrite": "50%"}]`, "\r\x1b[2K50%"},
		{"text is evaluated", `[{"var.set": {"name": "n", "value": 3}}, {"shell.color": {"text": {"var": "n"}, "color": "cyan"}}]`, "\x1b[36m3\x1b[0m"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := mustRun(t, tt.src)
			if r.stdout != tt.want {
				t.Errorf("got %q, want %q", r.stdout, tt.want)
			}
		})
	}
}

func TestShell_Errors(t *testing.T) {
	tests := []string{
		`[{"shell.color": {"text": "x", "color": "mauve"}}]`,
		`[{"shell.color": {"color": "red"}}]`,
		`[{"shell.style": {"text": "x", "styles": ["sparkle"]}}]`,
		`[{"shell.color": "plain"}]`,
	}
	for _, src := range tests {
		t.Run(src, func(t *testing.T) {
			r := run(t, src, "")
			expectRuntimeError(t, r.err, diagnostics.EArgs)
		})
	}
}
