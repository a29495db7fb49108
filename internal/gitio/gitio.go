// Package gitio provides Git repository I/O operations using go-git,
// plus a subprocess passthrough for the handful of operations that
// need the real git binary (index staging and status-filtered diffs).
package gitio

import (
	"bytes"
	"fmt"
	"io"
	"os/exec"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// ErrFileNotFound is returned by ShowFile when the path does not
// exist at the requested revision.
var ErrFileNotFound = object.ErrFileNotFound

// Remote is a configured git remote. URL is the remote's first
// configured URL.
type Remote struct {
	Name string
	URL  string
}

// Repository wraps a go-git repository rooted at a working tree.
type Repository struct {
	repo *git.Repository
	path string
}

// Open opens an existing Git repository.
func Open(repoPath string) (*Repository, error) {
	repo, err := git.PlainOpenWithOptions(repoPath, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("opening repository: %w", err)
	}
	return &Repository{repo: repo, path: repoPath}, nil
}

// Remotes returns the configured remotes sorted by name. go-git keeps
// remotes in a map, so name order stands in for config-file order to
// keep iteration deterministic.
func (r *Repository) Remotes() ([]Remote, error) {
	remotes, err := r.repo.Remotes()
	if err != nil {
		return nil, fmt.Errorf("listing remotes: %w", err)
	}

	out := make([]Remote, 0, len(remotes))
	for _, remote := range remotes {
		cfg := remote.Config()
		if len(cfg.URLs) == 0 {
			continue
		}
		out = append(out, Remote{Name: cfg.Name, URL: cfg.URLs[0]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Branches returns the names of the local branches.
func (r *Repository) Branches() ([]string, error) {
	iter, err := r.repo.Branches()
	if err != nil {
		return nil, fmt.Errorf("listing branches: %w", err)
	}

	var names []string
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		names = append(names, ref.Name().Short())
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("iterating branches: %w", err)
	}
	return names, nil
}

// RemoteRef resolves a remote-tracking reference like "origin/master"
// to its commit hash.
func (r *Repository) RemoteRef(name string) (string, error) {
	ref, err := r.repo.Reference(plumbing.ReferenceName("refs/remotes/"+name), true)
	if err != nil {
		return "", fmt.Errorf("resolving remote ref %q: %w", name, err)
	}
	return ref.Hash().String(), nil
}

// Head returns the hash of the current HEAD commit.
func (r *Repository) Head() (string, error) {
	head, err := r.repo.Head()
	if err != nil {
		return "", fmt.Errorf("resolving HEAD: %w", err)
	}
	return head.Hash().String(), nil
}

// MergeBase returns the best common ancestor of two commits.
func (r *Repository) MergeBase(a, b string) (string, error) {
	commitA, err := r.repo.CommitObject(plumbing.NewHash(a))
	if err != nil {
		return "", fmt.Errorf("getting commit %s: %w", a, err)
	}
	commitB, err := r.repo.CommitObject(plumbing.NewHash(b))
	if err != nil {
		return "", fmt.Errorf("getting commit %s: %w", b, err)
	}

	bases, err := commitA.MergeBase(commitB)
	if err != nil {
		return "", fmt.Errorf("computing merge base of %s and %s: %w", a, b, err)
	}
	if len(bases) == 0 {
		return "", fmt.Errorf("no common ancestor between %s and %s", a, b)
	}
	return bases[0].Hash.String(), nil
}

// Exec runs a git subcommand in the repository's working tree and
// returns its captured standard output with the trailing newline
// trimmed.
func (r *Repository) Exec(args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = r.path

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimRight(stdout.String(), "\n"), nil
}

// ShowFile returns the content of path as it existed at revision.
// Returns ErrFileNotFound when the path did not exist at that
// revision; any other failure is a plain error.
func (r *Repository) ShowFile(revision, path string) (string, error) {
	hash, err := r.repo.ResolveRevision(plumbing.Revision(revision))
	if err != nil {
		return "", fmt.Errorf("resolving revision %q: %w", revision, err)
	}

	commit, err := r.repo.CommitObject(*hash)
	if err != nil {
		return "", fmt.Errorf("getting commit %s: %w", hash, err)
	}

	tree, err := commit.Tree()
	if err != nil {
		return "", fmt.Errorf("getting tree for %s: %w", hash, err)
	}

	f, err := tree.File(path)
	if err != nil {
		if err == object.ErrFileNotFound {
			return "", fmt.Errorf("path %q at revision %q: %w", path, revision, ErrFileNotFound)
		}
		return "", fmt.Errorf("getting file %s at %s: %w", path, revision, err)
	}

	reader, err := f.Reader()
	if err != nil {
		return "", fmt.Errorf("opening file %s: %w", path, err)
	}
	defer reader.Close()

	content, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("reading file %s: %w", path, err)
	}
	return string(content), nil
}
