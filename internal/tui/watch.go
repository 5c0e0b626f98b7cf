package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"

	"github.com/BenniProbst/ai-orchestrator-v2/internal/goal"
)

// WatchProgress sends a ProgressMsg for the file at path whenever it is
// written, plus one for its current content. The parent directory is
// watched so the file may appear later. It blocks until ctx is done.
func WatchProgress(ctx context.Context, path string, send func(tea.Msg)) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	load := func() {
		s, err := goal.LoadSnapshot(path)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				send(ErrMsg{Err: err})
			}
			return
		}
		send(ProgressMsg{Snapshot: s})
	}
	load()

	target := filepath.Clean(path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			// the tracker writes through rename, so Create is the usual signal
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				load()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			send(ErrMsg{Err: err})
		}
	}
}

// Watch runs the watch view for path until the user quits or ctx is done
func Watch(ctx context.Context, path string) error {
	p := tea.NewProgram(NewWatchModel(path), tea.WithContext(ctx))

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	errc := make(chan error, 1)
	go func() { errc <- WatchProgress(watchCtx, path, p.Send) }()

	_, err := p.Run()
	cancel()
	if werr := <-errc; werr != nil && err == nil {
		err = werr
	}
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
