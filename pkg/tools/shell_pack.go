package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/evaluator"
)

const (
	ansiReset     = "\x1b[0m"
	ansiClearLine = "\r\x1b[2K"
)

var fgColors = map[string]string{
	"black":   "\x1b[30m",
	"red":     "\x1b[31m",
	"green":   "\x1b[32m",
	"yellow":  "\x1b[33m",
	"blue":    "\x1b[34m",
	"magenta": "\x1b[35m",
	"cyan":    "\x1b[36m",
	"white":   "\x1b[37m",
	"default": "\x1b[39m",
}

var bgColors = map[string]string{
	"black":   "\x1b[40m",
	"red":     "\x1b[41m",
	"green":   "\x1b[42m",
	"yellow":  "\x1b[43m",
	"blue":    "\x1b[44m",
	"magenta": "\x1b[45m",
	"cyan":    "\x1b[46m",
	"white":   "\x1b[47m",
	"default": "\x1b[49m",
}

var styleCodes = map[string]string{
	"bold":      "\x1b[1m",
	"dim":       "\x1b[2m",
	"italic":    "\x1b[3m",
	"underline": "\x1b[4m",
	"blink":     "\x1b[5m",
	"reverse":   "\x1b[7m",
}

// ShellPack writes ANSI-styled text to the interpreter's stdout.
func ShellPack() *evaluator.Pack {
	return newPack("shell", "ANSI terminal output", []Def{
		{Name: "shell.color", Execute: shellColor},
		{Name: "shell.style", Execute: shellStyle},
		{Name: "shell.write", Execute: shellWriter("", "")},
		{Name: "shell.write_line", Execute: shellWriter("", "\n")},
		{Name: "shell.clear_line", Execute: shellClearLine},
		{Name: "shell.overwrite", Execute: shellWriter(ansiClearLine, "")},
	}, nil)
}

func shellText(ip *evaluator.Interpreter, instr string, rec evaluator.NJRecord) (string, error) {
	v, ok := rec.Get("text")
	if !ok {
		return "", argError(instr, "requires 'text'")
	}
	return ip.Display(v), nil
}

// stylePrefix collects style codes from a styles list and boolean flags.
func stylePrefix(instr string, rec evaluator.NJRecord) (string, error) {
	var b strings.Builder
	if v, ok := rec.Get("styles"); ok {
		list, ok := v.(evaluator.NJList)
		if !ok {
			return "", argError(instr, "'styles' must be an array")
		}
		for _, item := range list.Items {
			name := strings.ToLower(evaluator.ToString(item))
			code, ok := styleCodes[name]
			if !ok {
				return "", argError(instr, "unknown style '%s'", name)
			}
			b.WriteString(code)
		}
	}
	for _, name := range []string{"bold", "dim", "italic", "underline", "blink", "reverse"} {
		if optBool(rec, name) {
			b.WriteString(styleCodes[name])
		}
	}
	return b.String(), nil
}

func shellColor(_ context.Context, ip *evaluator.Interpreter, args evaluator.NJValue) (evaluator.NJValue, error) {
	rec, ok := args.(evaluator.NJRecord)
	if !ok {
		return nil, argError("shell.color", "expects {text, color, background?}")
	}
	text, err := shellText(ip, "shell.color", rec)
	if err != nil {
		return nil, err
	}
	var b strings.Builder
	if name := strings.ToLower(optString(rec, "color", optString(rec, "fg", ""))); name != "" {
		code, ok := fgColors[name]
		if !ok {
			return nil, argError("shell.color", "unknown color '%s'", name)
		}
		b.WriteString(code)
	}
	if name := strings.ToLower(optString(rec, "background", optString(rec, "bg", ""))); name != "" {
		code, ok := bgColors[name]
		if !ok {
			return nil, argError("shell.color", "unknown background '%s'", name)
		}
		b.WriteString(code)
	}
	styles, err := stylePrefix("shell.color", rec)
	if err != nil {
		return nil, err
	}
	b.WriteString(styles)
	fmt.Fprint(ip.Stdout(), b.String()+text+ansiReset)
	return evaluator.NewNull(), nil
}

func shellStyle(_ context.Context, ip *evaluator.Interpreter, args evaluator.NJValue) (evaluator.NJValue, error) {
	rec, ok := args.(evaluator.NJRecord)
	if !ok {
		return nil, argError("shell.style", "expects {text, styles}")
	}
	text, err := shellText(ip, "shell.style", rec)
	if err != nil {
		return nil, err
	}
	styles, err := stylePrefix("shell.style", rec)
	if err != nil {
		return nil, err
	}
	fmt.Fprint(ip.Stdout(), styles+text+ansiReset)
	return evaluator.NewNull(), nil
}

func shellWriter(prefix, suffix string) func(context.Context, *evaluator.Interpreter, evaluator.NJValue) (evaluator.NJValue, error) {
	return func(_ context.Context, ip *evaluator.Interpreter, args evaluator.NJValue) (evaluator.NJValue, error) {
		fmt.Fprint(ip.Stdout(), prefix+ip.Display(args)+suffix)
		return evaluator.NewNull(), nil
	}
}

func shellClearLine(_ context.Context, ip *evaluator.Interpreter, _ evaluator.NJValue) (evaluator.NJValue, error) {
	fmt.Fprint(ip.Stdout(), ansiClearLine)
	return evaluator.NewNull(), nil
}
