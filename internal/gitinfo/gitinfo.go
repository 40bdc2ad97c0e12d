// Package gitinfo reads per-file history from the git repository that
// contains a source tree.
package gitinfo

import (
	"context"
	stderrors "errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

// ErrNotRepository indicates the source tree is not inside a git work tree.
var ErrNotRepository = stderrors.New("source tree is not inside a git repository")

// Info describes the most recent commit that touched a file.
type Info struct {
	LastModified time.Time
	Author       string
	Commit       string
}

// Lookup returns Info for every path in relPaths (slash-separated, relative
// to sourceRoot) that has been committed. Uncommitted files are absent from
// the result.
func Lookup(ctx context.Context, sourceRoot string, relPaths []string) (map[string]Info, error) {
	repo, err := git.PlainOpenWithOptions(sourceRoot, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if stderrors.Is(err, git.ErrRepositoryNotExists) {
			return nil, ErrNotRepository
		}
		return nil, fmt.Errorf("open repository: %w", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("open worktree: %w", err)
	}
	prefix, err := repoPrefix(wt.Filesystem.Root(), sourceRoot)
	if err != nil {
		return nil, err
	}

	wanted := make(map[string]string, len(relPaths))
	for _, rel := range relPaths {
		wanted[path.Join(prefix, rel)] = rel
	}
	out := make(map[string]Info, len(relPaths))

	head, err := repo.Head()
	if err != nil {
		if stderrors.Is(err, plumbing.ErrReferenceNotFound) {
			return out, nil
		}
		return nil, fmt.Errorf("resolve HEAD: %w", err)
	}
	iter, err := repo.Log(&git.LogOptions{From: head.Hash(), Order: git.LogOrderCommitterTime})
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	defer iter.Close()

	err = iter.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if len(out) == len(wanted) {
			return storer.ErrStop
		}
		names, err := changedFiles(c)
		if err != nil {
			return err
		}
		for _, name := range names {
			rel, ok := wanted[name]
			if !ok {
				continue
			}
			if _, seen := out[rel]; seen {
				continue
			}
			out[rel] = Info{LastModified: c.Author.When, Author: c.Author.Name, Commit: c.Hash.String()}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk history: %w", err)
	}
	return out, nil
}

// changedFiles lists the paths a commit added or modified relative to its
// first parent.
func changedFiles(c *object.Commit) ([]string, error) {
	tree, err := c.Tree()
	if err != nil {
		return nil, fmt.Errorf("commit %s tree: %w", c.Hash, err)
	}
	parentTree := &object.Tree{}
	if c.NumParents() > 0 {
		parent, err := c.Parent(0)
		if err != nil {
			return nil, fmt.Errorf("commit %s parent: %w", c.Hash, err)
		}
		if parentTree, err = parent.Tree(); err != nil {
			return nil, fmt.Errorf("commit %s parent tree: %w", c.Hash, err)
		}
	}
	changes, err := object.DiffTree(parentTree, tree)
	if err != nil {
		return nil, fmt.Errorf("commit %s diff: %w", c.Hash, err)
	}
	names := make([]string, 0, len(changes))
	for _, ch := range changes {
		if ch.To.Name != "" {
			names = append(names, ch.To.Name)
		}
	}
	return names, nil
}

// repoPrefix returns sourceRoot relative to the repository root, in slash form.
func repoPrefix(repoRoot, sourceRoot string) (string, error) {
	rootAbs, err := resolve(repoRoot)
	if err != nil {
		return "", err
	}
	srcAbs, err := resolve(sourceRoot)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(rootAbs, srcAbs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("source root %s is outside repository %s", sourceRoot, repoRoot)
	}
	if rel == "." {
		return "", nil
	}
	return filepath.ToSlash(rel), nil
}

func resolve(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", p, err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	return abs, nil
}
