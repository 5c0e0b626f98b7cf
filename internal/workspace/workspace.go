// Package workspace inspects the git working tree an agent operates on.
package workspace

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"
)

// ErrNotRepository is returned when dir is not inside a git working tree
var ErrNotRepository = errors.New("not a git repository")

func open(dir string) (*git.Repository, string, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, "", ErrNotRepository
		}
		return nil, "", fmt.Errorf("failed to open repository: %w", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		if errors.Is(err, git.ErrIsBareRepository) {
			return nil, "", ErrNotRepository
		}
		return nil, "", fmt.Errorf("failed to open worktree: %w", err)
	}
	return repo, wt.Filesystem.Root(), nil
}

// ChangedFiles lists modified, added and untracked files relative to dir,
// sorted. Deleted files and changes outside dir are left out.
func ChangedFiles(dir string) ([]string, error) {
	repo, root, err := open(dir)
	if err != nil {
		return nil, err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to open worktree: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return nil, fmt.Errorf("failed to read worktree status: %w", err)
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", dir, err)
	}
	if resolved, err := filepath.EvalSymlinks(absDir); err == nil {
		absDir = resolved
	}
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}

	files := []string{}
	for path, s := range status {
		if s.Worktree == git.Deleted || (s.Staging == git.Deleted && s.Worktree == git.Unmodified) {
			continue
		}
		if s.Worktree == git.Unmodified && s.Staging == git.Unmodified {
			continue
		}
		rel, err := filepath.Rel(absDir, filepath.Join(root, filepath.FromSlash(path)))
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		files = append(files, filepath.ToSlash(rel))
	}
	sort.Strings(files)
	return files, nil
}

// Branch returns the checked-out branch name, or "" on a detached HEAD
func Branch(dir string) (string, error) {
	repo, _, err := open(dir)
	if err != nil {
		return "", err
	}
	head, err := repo.Head()
	if err != nil {
		return "", nil
	}
	if head.Name().IsBranch() {
		return head.Name().Short(), nil
	}
	return "", nil
}
