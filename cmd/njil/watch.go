package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/runtime"
)

const watchDebounce = 100 * time.Millisecond

// watchedExt lists the document extensions that trigger a re-run.
var watchedExt = map[string]bool{
	".json": true, ".njil": true, ".njis": true, ".njim": true, ".yaml": true, ".yml": true,
}

func cmdWatch(args []string) int {
	f, err := parseRunFlags(args)
	if err != nil || f.file == "" || f.file == "-" {
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
		fmt.Fprintln(os.Stderr, "usage: njil watch <file> [--pretty] [--implicit-paths] [--module-path <dir>]")
		return 1
	}
	opts, _, cleanup, err := setup(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		return 1
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rt := runtime.New(opts...)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		return 1
	}
	defer watcher.Close()

	for _, dir := range watchDirs(f.file, rt) {
		if err := watcher.Add(dir); err != nil {
			fmt.Fprintf(os.Stderr, "warning: cannot watch %s: %s\n", dir, err)
		}
	}

	runOnce := func() {
		rt.Loader().Reset()
		source, filename, code := readSource(f.file, f.pretty)
		if code != 0 {
			return
		}
		result, execErr := rt.Run(ctx, source, filename)
		code = report(result, execErr, f.pretty)
		fmt.Fprintf(os.Stderr, "[%s] exit %d, watching for changes\n", time.Now().Format(time.Kitchen), code)
	}
	runOnce()

	var timer *time.Timer
	fire := make(chan struct{}, 1)
	for {
		select {
		case <-ctx.Done():
			return 0
		case event, ok := <-watcher.Events:
			if !ok {
				return 0
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if !watchedExt[strings.ToLower(filepath.Ext(event.Name))] {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watchDebounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})
		case <-fire:
			runOnce()
		case err, ok := <-watcher.Errors:
			if !ok {
				return 0
			}
			fmt.Fprintf(os.Stderr, "watcher error: %s\n", err)
		}
	}
}

// watchDirs returns the document's directory and every existing module
// search directory.
func watchDirs(file string, rt *runtime.Runtime) []string {
	seen := map[string]bool{}
	var dirs []string
	add := func(dir string) {
		abs, err := filepath.Abs(dir)
		if err != nil || seen[abs] {
			return
		}
		if info, err := os.Stat(abs); err != nil || !info.IsDir() {
			return
		}
		seen[abs] = true
		dirs = append(dirs, abs)
	}
	add(filepath.Dir(file))
	loader := rt.Loader()
	for _, p := range loader.SearchPaths {
		if !filepath.IsAbs(p) {
			p = filepath.Join(loader.Root, p)
		}
		add(p)
	}
	return dirs
}
