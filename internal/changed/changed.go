// Package changed resolves the baseline revision for the current
// build and the set of files changed since it. The baseline depends
// on where the process runs: locally it is the merge-base with the
// upstream mainline branch, in CI it comes from the Evergreen
// expansions describing the run.
package changed

import (
	"errors"
	"fmt"
	"strings"

	"buildtools/internal/expansions"
	"buildtools/internal/gitio"
	"buildtools/internal/logger"
)

// Error taxonomy. Callers discriminate with errors.Is.
var (
	// ErrConfiguration covers missing expansions files, uninferable
	// branch names, repositories without remotes, and missing
	// remote-tracking refs. Never retried.
	ErrConfiguration = errors.New("configuration error")

	// ErrInvariant means an upstream tooling contract was violated,
	// e.g. the resolved baseline came back empty.
	ErrInvariant = errors.New("invariant violation")

	// ErrVersionControl wraps any underlying git failure that is not
	// specifically matched as "path missing at revision".
	ErrVersionControl = errors.New("version control error")
)

// knownOrgs are the organization owners whose remotes are preferred
// when picking the upstream to diff against.
var knownOrgs = map[string]bool{
	"10gen":        true,
	"mongodb":      true,
	"evergreen-ci": true,
	"mongodb-ets":  true,
	"realm":        true,
	"mongodb-js":   true,
}

// remotePrefixes are the URL schemes of network remotes. Anything
// else (a local directory, typically) never matches by owner.
var remotePrefixes = []string{"http://", "https://", "ssh://", "git@"}

// Repo is the version-control collaborator. gitio.Repository is the
// real implementation; tests substitute fakes.
type Repo interface {
	Remotes() ([]gitio.Remote, error)
	Branches() ([]string, error)
	RemoteRef(name string) (string, error)
	Head() (string, error)
	MergeBase(a, b string) (string, error)
	Exec(args ...string) (string, error)
	ShowFile(revision, path string) (string, error)
}

type revisionKey struct {
	expansionsFile string
	branch         string
}

// Resolver computes diff baselines and changed-file lists. It owns
// the per-argument memoization the callers rely on: a baseline is
// computed once per (expansionsFile, branch) pair for the resolver's
// lifetime, and expansions files are parsed once per path.
type Resolver struct {
	repo       Repo
	expansions *expansions.Cache
	log        *logger.Logger
	revisions  map[revisionKey]string
}

// NewResolver creates a resolver on top of a repository collaborator.
func NewResolver(repo Repo, log *logger.Logger) *Resolver {
	return &Resolver{
		repo:       repo,
		expansions: expansions.NewCache(),
		log:        log,
		revisions:  make(map[revisionKey]string),
	}
}

// SelectRemote picks the remote to diff against: the first remote
// with a network URL owned by a known organization, falling back to
// the first remote when none matches.
func (r *Resolver) SelectRemote() (gitio.Remote, error) {
	remotes, err := r.repo.Remotes()
	if err != nil {
		return gitio.Remote{}, fmt.Errorf("%w: %w", ErrVersionControl, err)
	}
	if len(remotes) == 0 {
		return gitio.Remote{}, fmt.Errorf("%w: repository has no remotes", ErrConfiguration)
	}

	for _, remote := range remotes {
		url := remote.URL
		if !hasRemotePrefix(url) {
			// local repository pointing to a local dir
			continue
		}
		url = strings.TrimSuffix(url, ".git")

		// network remote urls end with owner/project
		parts := strings.Split(url, "/")
		if len(parts) < 2 {
			return gitio.Remote{}, fmt.Errorf("%w: unexpected git remote url: %s", ErrInvariant, remote.URL)
		}
		segment := parts[len(parts)-2]
		owner := segment[strings.LastIndex(segment, ":")+1:]

		if knownOrgs[owner] {
			r.log.Infof("Selected remote: %s", remote.URL)
			return remote, nil
		}
	}

	r.log.Infof("Could not find remote from any known org, falling back to the first remote found")
	return remotes[0], nil
}

func hasRemotePrefix(url string) bool {
	for _, prefix := range remotePrefixes {
		if strings.HasPrefix(url, prefix) {
			return true
		}
	}
	return false
}

// ResolveRemoteBranchRef returns the merge-base of the local HEAD and
// the tip of the selected remote's branch. An empty branch means
// "whichever of main or master exists locally".
func (r *Resolver) ResolveRemoteBranchRef(branch string) (string, error) {
	if branch == "" {
		branches, err := r.repo.Branches()
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrVersionControl, err)
		}
		for _, name := range branches {
			if name == "main" || name == "master" {
				branch = name
				break
			}
		}
		if branch == "" {
			return "", fmt.Errorf("%w: could not infer correct branch name", ErrConfiguration)
		}
	}

	remote, err := r.SelectRemote()
	if err != nil {
		return "", err
	}

	remoteHead, err := r.repo.RemoteRef(remote.Name + "/" + branch)
	if err != nil {
		return "", fmt.Errorf("%w: remote branch %s/%s: %w", ErrConfiguration, remote.Name, branch, err)
	}

	localHead, err := r.repo.Head()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrVersionControl, err)
	}

	base, err := r.repo.MergeBase(localHead, remoteHead)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrVersionControl, err)
	}
	return base, nil
}

// DiffRevision resolves the baseline revision for diffing, memoized
// per (expansionsFile, branch) pair.
//
// An empty expansionsFile means the process is not running in CI and
// the baseline is the merge-base with the upstream branch. In CI, a
// patch run uses the revision recorded in the expansions, and a
// waterfall run uses the parent of HEAD.
//
// Side effect: for CI patch runs the working tree's changes are
// staged (git add .) before the baseline is returned, so that
// uncommitted files show up in later diffs. This is part of the
// contract, not an implementation detail.
func (r *Resolver) DiffRevision(expansionsFile, branch string) (string, error) {
	key := revisionKey{expansionsFile: expansionsFile, branch: branch}
	if rev, ok := r.revisions[key]; ok {
		return rev, nil
	}

	var rev string
	if expansionsFile == "" {
		base, err := r.ResolveRemoteBranchRef(branch)
		if err != nil {
			return "", err
		}
		rev = base
	} else {
		exp, err := r.expansions.Load(expansionsFile)
		if err != nil {
			if errors.Is(err, expansions.ErrNotFound) {
				return "", fmt.Errorf("%w: %w", ErrConfiguration, err)
			}
			return "", err
		}

		if exp.IsPatch() {
			// Patches from the CLI have their changes uncommitted.
			// Stage everything so git diff can see them, including
			// files generated in CI before this point.
			if _, err := r.repo.Exec("add", "."); err != nil {
				return "", fmt.Errorf("%w: %w", ErrVersionControl, err)
			}
			rev = exp.Revision()
		} else {
			// Waterfall runs compare against the previous commit.
			parent, err := r.repo.Exec("rev-parse", "HEAD^1")
			if err != nil {
				return "", fmt.Errorf("%w: %w", ErrVersionControl, err)
			}
			rev = parent
		}
	}

	if rev == "" {
		return "", fmt.Errorf("%w: not able to obtain diff commit", ErrInvariant)
	}

	r.revisions[key] = rev
	return rev, nil
}

// ChangedFiles returns the repository-relative paths changed since
// the baseline, in git's output order. filter uses git's own
// diff-filter letters (uppercase includes a status, lowercase
// excludes it); empty means "d", everything except deleted files.
func (r *Resolver) ChangedFiles(expansionsFile, branch, filter string) ([]string, error) {
	if filter == "" {
		filter = "d"
	}

	rev, err := r.DiffRevision(expansionsFile, branch)
	if err != nil {
		return nil, err
	}

	output, err := r.repo.Exec("diff", "--name-only", "--diff-filter="+filter, rev)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrVersionControl, err)
	}

	var files []string
	for _, line := range strings.Split(output, "\n") {
		if line != "" {
			files = append(files, line)
		}
	}
	return files, nil
}

// NewFiles returns the files added, renamed, or copied since the
// baseline.
func (r *Resolver) NewFiles(expansionsFile, branch string) ([]string, error) {
	return r.ChangedFiles(expansionsFile, branch, "ARC")
}

// FileAtRevision returns the content of path as it existed at
// revision. found is false, with no error, when the path did not
// exist at that revision.
func (r *Resolver) FileAtRevision(path, revision string) (content string, found bool, err error) {
	content, err = r.repo.ShowFile(revision, path)
	if err != nil {
		if errors.Is(err, gitio.ErrFileNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%w: %w", ErrVersionControl, err)
	}
	return content, true, nil
}
