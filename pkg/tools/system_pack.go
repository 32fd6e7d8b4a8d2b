package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"time"

	"github.com/google/uuid"

	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/evaluator"
)

// SystemPack is the file system, process, environment and id pack.
func SystemPack() *evaluator.Pack {
	defs := append(fsDefs(),
		Def{Name: "system.process.exec", Aliases: []string{"process.exec"}, Execute: processExec},
		Def{Name: "system.process.pid", Aliases: []string{"process.pid"}, Execute: processPID},
		Def{Name: "system.env", Aliases: []string{"env"}, Execute: systemEnv},
		Def{Name: "system.uuid", Aliases: []string{"uuid"}, Execute: systemUUID},
	)
	return newPack("system", "file system, processes, environment and ids", defs, nil)
}

// processExec runs a shell command and reports its exit code and output.
// A non-zero exit is a result, not an error.
func processExec(ctx context.Context, _ *evaluator.Interpreter, args evaluator.NJValue) (evaluator.NJValue, error) {
	rec, err := argRecord("system.process.exec", args, "cmd")
	if err != nil {
		return nil, err
	}
	cmdStr, err := reqString("system.process.exec", rec, "cmd")
	if err != nil {
		return nil, err
	}

	timeout := evaluator.ClampDuration(optNumber(rec, "timeoutMs", 30000) * float64(time.Millisecond))
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.CommandContext(runCtx, "cmd", "/c", cmdStr)
	} else {
		cmd = exec.CommandContext(runCtx, "sh", "-c", cmdStr)
	}
	cmd.Dir = optString(rec, "cwd", "")
	cmd.Env = os.Environ()
	for k, v := range stringMap(rec, "env") {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err = cmd.Run()
	durationMs := time.Since(start).Milliseconds()

	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		switch {
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case errors.As(err, &exitErr):
			exitCode = exitErr.ExitCode()
		default:
			return nil, err
		}
	}
	return record(
		kv("exitCode", evaluator.NewNumber(float64(exitCode))),
		kv("stdout", evaluator.NewString(stdout.String())),
		kv("stderr", evaluator.NewString(stderr.String())),
		kv("durationMs", evaluator.NewNumber(float64(durationMs))),
	), nil
}

func processPID(context.Context, *evaluator.Interpreter, evaluator.NJValue) (evaluator.NJValue, error) {
	return evaluator.NewNumber(float64(os.Getpid())), nil
}

// systemEnv reads an environment variable: a name, or {name, default}.
// A missing variable without a default is null.
func systemEnv(_ context.Context, _ *evaluator.Interpreter, args evaluator.NJValue) (evaluator.NJValue, error) {
	rec, err := argRecord("system.env", args, "name")
	if err != nil {
		return nil, err
	}
	name, err := reqString("system.env", rec, "name")
	if err != nil {
		return nil, err
	}
	if v, ok := os.LookupEnv(name); ok {
		return evaluator.NewString(v), nil
	}
	if def, ok := rec.Get("default"); ok {
		return def, nil
	}
	return evaluator.NewNull(), nil
}

// systemUUID returns a random (v4) id, or a time-ordered one with {version: 7}.
func systemUUID(_ context.Context, _ *evaluator.Interpreter, args evaluator.NJValue) (evaluator.NJValue, error) {
	version := 4.0
	if rec, ok := args.(evaluator.NJRecord); ok {
		version = optNumber(rec, "version", 4)
	}
	switch version {
	case 4:
		return evaluator.NewString(uuid.NewString()), nil
	case 7:
		id, err := uuid.NewV7()
		if err != nil {
			return nil, err
		}
		return evaluator.NewString(id.String()), nil
	}
	return nil, argError("system.uuid", "unsupported version %v", version)
}
