package tools

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/diagnostics"
	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/evaluator"
)

func fsDefs() []Def {
	return []Def{
		{Name: "system.fs.exists", Aliases: []string{"fs.exists"}, Code: diagnostics.EIO, Execute: fsStat(func(fs.FileInfo) bool { return true })},
		{Name: "system.fs.isFile", Aliases: []string{"fs.isFile"}, Code: diagnostics.EIO, Execute: fsStat(func(i fs.FileInfo) bool { return i.Mode().IsRegular() })},
		{Name: "system.fs.isDir", Aliases: []string{"fs.isDir"}, Code: diagnostics.EIO, Execute: fsStat(func(i fs.FileInfo) bool { return i.IsDir() })},
		{Name: "system.fs.mkdir", Aliases: []string{"fs.mkdir"}, Code: diagnostics.EIO, Execute: fsMkdir},
		{Name: "system.fs.remove", Aliases: []string{"fs.remove"}, Code: diagnostics.EIO, Execute: fsRemove},
		{Name: "system.fs.copy", Aliases: []string{"fs.copy"}, Code: diagnostics.EIO, Execute: fsCopy},
		{Name: "system.fs.move", Aliases: []string{"fs.move"}, Code: diagnostics.EIO, Execute: fsMove},
		{Name: "system.fs.list", Aliases: []string{"fs.list"}, Code: diagnostics.EIO, Execute: fsList},
	}
}

func pathArg(instr string, args evaluator.NJValue) (evaluator.NJRecord, string, error) {
	rec, err := argRecord(instr, args, "path")
	if err != nil {
		return rec, "", err
	}
	path, err := reqString(instr, rec, "path")
	return rec, path, err
}

func fsStat(pred func(fs.FileInfo) bool) func(context.Context, *evaluator.Interpreter, evaluator.NJValue) (evaluator.NJValue, error) {
	return func(_ context.Context, _ *evaluator.Interpreter, args evaluator.NJValue) (evaluator.NJValue, error) {
		_, path, err := pathArg("system.fs", args)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(path)
		return evaluator.NewBool(err == nil && pred(info)), nil
	}
}

func fsMkdir(_ context.Context, _ *evaluator.Interpreter, args evaluator.NJValue) (evaluator.NJValue, error) {
	rec, path, err := pathArg("system.fs.mkdir", args)
	if err != nil {
		return nil, err
	}
	if optBool(rec, "recursive") {
		err = os.MkdirAll(path, 0o755)
	} else {
		err = os.Mkdir(path, 0o755)
	}
	if err != nil {
		return nil, err
	}
	return evaluator.NewBool(true), nil
}

func fsRemove(_ context.Context, _ *evaluator.Interpreter, args evaluator.NJValue) (evaluator.NJValue, error) {
	rec, path, err := pathArg("system.fs.remove", args)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() && optBool(rec, "recursive") {
		err = os.RemoveAll(path)
	} else {
		err = os.Remove(path)
	}
	if err != nil {
		return nil, err
	}
	return evaluator.NewBool(true), nil
}

func fromTo(instr string, args evaluator.NJValue) (evaluator.NJRecord, string, string, error) {
	rec, ok := args.(evaluator.NJRecord)
	if !ok {
		return rec, "", "", argError(instr, "expects {from, to}")
	}
	from, err := reqString(instr, rec, "from")
	if err != nil {
		return rec, "", "", err
	}
	to, err := reqString(instr, rec, "to")
	return rec, from, to, err
}

func fsCopy(_ context.Context, _ *evaluator.Interpreter, args evaluator.NJValue) (evaluator.NJValue, error) {
	rec, from, to, err := fromTo("system.fs.copy", args)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(from)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		if !optBool(rec, "recursive") {
			return nil, argError("system.fs.copy", "'%s' is a directory; set recursive to true", from)
		}
		err = copyDir(from, to)
	} else {
		err = copyFile(from, to, info.Mode())
	}
	if err != nil {
		return nil, err
	}
	return evaluator.NewBool(true), nil
}

func copyFile(from, to string, mode fs.FileMode) error {
	src, err := os.Open(from)
	if err != nil {
		return err
	}
	defer src.Close()
	dst, err := os.OpenFile(to, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode.Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("copying %s: %w", from, err)
	}
	return dst.Close()
}

func copyDir(from, to string) error {
	return filepath.WalkDir(from, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(from, p)
		if err != nil {
			return err
		}
		target := filepath.Join(to, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		return copyFile(p, target, info.Mode())
	})
}

func fsMove(_ context.Context, _ *evaluator.Interpreter, args evaluator.NJValue) (evaluator.NJValue, error) {
	_, from, to, err := fromTo("system.fs.move", args)
	if err != nil {
		return nil, err
	}
	if err := os.Rename(from, to); err != nil {
		return nil, err
	}
	return evaluator.NewBool(true), nil
}

func fsList(_ context.Context, _ *evaluator.Interpreter, args evaluator.NJValue) (evaluator.NJValue, error) {
	_, path, err := pathArg("system.fs.list", args)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}

	items := make([]evaluator.NJValue, len(entries))
	for i, entry := range entries {
		entryType := "other"
		if entry.IsDir() {
			entryType = "directory"
		} else if entry.Type().IsRegular() {
			entryType = "file"
		}
		items[i] = record(
			kv("name", evaluator.NewString(entry.Name())),
			kv("type", evaluator.NewString(entryType)),
		)
	}
	return evaluator.NewList(items), nil
}
