package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/diagnostics"
	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/evaluator"
	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/help"
	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/runtime"
)

const (
	replPrompt     = "njil> "
	replContinue   = "  ... "
	replHistoryRel = ".njil_history"
)

func cmdRepl(args []string) int {
	f, err := parseRunFlags(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr, "usage: njil repl [--implicit-paths] [--module-path <dir>] [--config <file>]")
		return 1
	}
	opts, _, cleanup, err := setup(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		return 1
	}
	defer cleanup()

	cwd, _ := os.Getwd()
	session, err := runtime.New(opts...).NewSession(context.Background(), cwd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		return 1
	}
	defer session.Close()

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	historyFile := filepath.Join(os.TempDir(), replHistoryRel)
	if hf, err := os.Open(historyFile); err == nil {
		line.ReadHistory(hf)
		hf.Close()
	}
	defer func() {
		if hf, err := os.Create(historyFile); err == nil {
			line.WriteHistory(hf)
			hf.Close()
		}
	}()

	out := os.Stdout
	fmt.Fprintf(out, "NeoJiLang %s\n", help.Version)
	fmt.Fprintln(out, "Enter a statement or an array of statements. :help for commands, :quit to leave.")

	var buf strings.Builder
	for {
		prompt := replPrompt
		if buf.Len() > 0 {
			prompt = replContinue
		}
		input, err := line.Prompt(prompt)
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				buf.Reset()
				fmt.Fprintln(out, "^C")
				continue
			}
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(out)
				return 0
			}
			fmt.Fprintf(os.Stderr, "error reading input: %v\n", err)
			return 1
		}

		trimmed := strings.TrimSpace(input)
		if buf.Len() == 0 && strings.HasPrefix(trimmed, ":") {
			if quit := replCommand(out, session, trimmed); quit {
				return 0
			}
			continue
		}
		if buf.Len() == 0 && trimmed == "" {
			continue
		}

		if buf.Len() > 0 {
			buf.WriteString("\n")
		}
		buf.WriteString(input)
		full := buf.String()
		if needsMoreInput(full) {
			continue
		}
		buf.Reset()
		line.AppendHistory(full)

		val, warnings, err := session.Eval(full)
		if len(warnings) > 0 {
			fmt.Fprintln(os.Stderr, diagnostics.FormatDiagnostics(warnings, true))
		}
		if err != nil {
			printReplError(err)
			continue
		}
		if val != nil && !evaluator.IsNull(val) {
			_ = printValue(out, val, false)
		}
	}
}

// replCommand handles a ":" command and reports whether the session ends.
func replCommand(out io.Writer, s *runtime.Session, cmd string) bool {
	switch cmd {
	case ":quit", ":q", ":exit":
		return true
	case ":vars":
		printBindings(out, s.Vars())
	case ":consts":
		printBindings(out, s.Consts())
	case ":help":
		fmt.Fprintln(out, ":vars    list variables")
		fmt.Fprintln(out, ":consts  list constants")
		fmt.Fprintln(out, ":quit    leave the session")
		fmt.Fprintln(out, `{"import": "!io"} or {"import": "lib.njim"} loads a pack or module`)
	default:
		fmt.Fprintf(out, "unknown command %s (try :help)\n", cmd)
	}
	return false
}

func printBindings(out io.Writer, kvs []evaluator.KeyValue) {
	if len(kvs) == 0 {
		fmt.Fprintln(out, "(none)")
		return
	}
	for _, kv := range kvs {
		fmt.Fprintf(out, "%s = %s\n", kv.Key, evaluator.ValueToJSONString(kv.Value))
	}
}

func printReplError(err error) {
	var diagErr *runtime.DiagnosticError
	if errors.As(err, &diagErr) {
		fmt.Fprintln(os.Stderr, diagnostics.FormatDiagnostics(diagErr.Diagnostics, true))
		return
	}
	var rtErr *evaluator.NJRuntimeError
	if errors.As(err, &rtErr) {
		fmt.Fprintln(os.Stderr, diagnostics.FormatDiagnostic(rtErr.Diagnostic(), true))
		return
	}
	fmt.Fprintln(os.Stderr, err)
}

// needsMoreInput reports whether input has unclosed brackets or an open
// string, so the REPL keeps reading lines.
func needsMoreInput(input string) bool {
	depth := 0
	inString := false
	escaped := false
	for _, r := range input {
		if inString {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			}
			continue
		}
		switch r {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
		}
	}
	return depth > 0 || inString
}
