package tools

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"

	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/diagnostics"
	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/evaluator"
)

// IOPack is file and console I/O.
func IOPack() *evaluator.Pack {
	return newPack("io", "file and console input/output", []Def{
		{Name: "io.readFile", Code: diagnostics.EIO, Execute: ioReadFile},
		{Name: "io.writeFile", Code: diagnostics.EIO, Execute: ioWriteFile},
		{Name: "io.readLine", Code: diagnostics.EIO, Execute: ioReadLine},
		{Name: "io.input", Code: diagnostics.EIO, Execute: ioInput},
	}, nil)
}

func textEncoding(instr, name string) (encoding.Encoding, error) {
	switch strings.ToLower(name) {
	case "", "utf8", "utf-8":
		return unicode.UTF8, nil
	case "gbk", "gb2312", "cp936":
		return simplifiedchinese.GBK, nil
	case "gb18030":
		return simplifiedchinese.GB18030, nil
	}
	return nil, argError(instr, "unsupported encoding '%s'", name)
}

// compressionFor returns the requested codec, or one implied by the file
// extension when none is given.
func compressionFor(instr, name, path string) (string, error) {
	switch strings.ToLower(name) {
	case "":
		switch strings.ToLower(filepath.Ext(path)) {
		case ".gz":
			return "gzip", nil
		case ".zst":
			return "zstd", nil
		}
		return "none", nil
	case "none", "gzip", "zstd":
		return strings.ToLower(name), nil
	}
	return "", argError(instr, "unsupported compression '%s'", name)
}

func ioReadFile(_ context.Context, _ *evaluator.Interpreter, args evaluator.NJValue) (evaluator.NJValue, error) {
	rec, err := argRecord("io.readFile", args, "path")
	if err != nil {
		return nil, err
	}
	path, err := reqString("io.readFile", rec, "path")
	if err != nil {
		return nil, err
	}
	enc, err := textEncoding("io.readFile", optString(rec, "encoding", ""))
	if err != nil {
		return nil, err
	}
	comp, err := compressionFor("io.readFile", optString(rec, "compression", ""), path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	switch comp {
	case "gzip":
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("opening gzip stream: %w", err)
		}
		defer gz.Close()
		r = gz
	case "zstd":
		zr, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("opening zstd stream: %w", err)
		}
		defer zr.Close()
		r = zr
	}

	data, err := io.ReadAll(enc.NewDecoder().Reader(r))
	if err != nil {
		return nil, err
	}
	return evaluator.NewString(string(data)), nil
}

func ioWriteFile(_ context.Context, _ *evaluator.Interpreter, args evaluator.NJValue) (evaluator.NJValue, error) {
	rec, ok := args.(evaluator.NJRecord)
	if !ok {
		return nil, argError("io.writeFile", "expects {path, content}")
	}
	path, err := reqString("io.writeFile", rec, "path")
	if err != nil {
		return nil, err
	}
	contentVal, ok := rec.Get("content")
	if !ok {
		return nil, argError("io.writeFile", "requires 'content'")
	}
	content := evaluator.ToString(contentVal)
	if _, isStr := contentVal.(evaluator.NJString); !isStr {
		b, err := evaluator.ValueToJSONIndent(contentVal, "  ")
		if err != nil {
			return nil, fmt.Errorf("serializing content: %w", err)
		}
		content = string(b)
	}

	enc, err := textEncoding("io.writeFile", optString(rec, "encoding", ""))
	if err != nil {
		return nil, err
	}
	comp, err := compressionFor("io.writeFile", optString(rec, "compression", ""), path)
	if err != nil {
		return nil, err
	}
	encoded, err := enc.NewEncoder().Bytes([]byte(content))
	if err != nil {
		return nil, fmt.Errorf("encoding content: %w", err)
	}

	var payload bytes.Buffer
	switch comp {
	case "gzip":
		gz := gzip.NewWriter(&payload)
		if _, err := gz.Write(encoded); err != nil {
			return nil, err
		}
		if err := gz.Close(); err != nil {
			return nil, err
		}
	case "zstd":
		zw, err := zstd.NewWriter(&payload)
		if err != nil {
			return nil, err
		}
		if _, err := zw.Write(encoded); err != nil {
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
	default:
		payload.Write(encoded)
	}

	resolved, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return nil, fmt.Errorf("cannot create directory: %w", err)
	}
	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if optBool(rec, "append") {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	f, err := os.OpenFile(resolved, flags, 0o644)
	if err != nil {
		return nil, err
	}
	if _, err := f.Write(payload.Bytes()); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, err
	}

	hash := sha256.Sum256(payload.Bytes())
	return record(
		kv("path", evaluator.NewString(resolved)),
		kv("bytes", evaluator.NewNumber(float64(payload.Len()))),
		kv("sha256", evaluator.NewString(fmt.Sprintf("%x", hash))),
	), nil
}

func readLine(ip *evaluator.Interpreter) (evaluator.NJValue, error) {
	line, err := ip.Stdin().ReadString('\n')
	if err != nil && err != io.EOF {
		return nil, err
	}
	if err == io.EOF && line == "" {
		return evaluator.NewNull(), nil
	}
	return evaluator.NewString(strings.TrimRight(line, "\r\n")), nil
}

func ioReadLine(_ context.Context, ip *evaluator.Interpreter, _ evaluator.NJValue) (evaluator.NJValue, error) {
	return readLine(ip)
}

// ioInput writes an optional prompt, then reads a line.
func ioInput(_ context.Context, ip *evaluator.Interpreter, args evaluator.NJValue) (evaluator.NJValue, error) {
	prompt := ""
	switch a := args.(type) {
	case evaluator.NJRecord:
		prompt = optString(a, "prompt", "")
	case evaluator.NJNull:
	default:
		prompt = evaluator.ToString(a)
	}
	if prompt != "" {
		fmt.Fprint(ip.Stdout(), ip.Interpolate(prompt))
	}
	return readLine(ip)
}
