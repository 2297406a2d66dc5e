// Package source retrieves the deployable tree, either from an existing
// local path or by cloning a remote repository into a scoped temp directory.
package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var ErrFetch = errors.New("source: fetch failed")

const cloneTimeout = 60 * time.Second

// Fetcher yields a local tree root plus a cleanup hook. The orchestrator
// calls cleanup on every exit path.
type Fetcher interface {
	Fetch(ctx context.Context) (root string, cleanup func(), err error)
}

// LocalFetcher serves an existing directory; cleanup is a no-op because the
// tree is not ours to remove.
type LocalFetcher struct {
	Path string
}

func (f LocalFetcher) Fetch(context.Context) (string, func(), error) {
	info, err := os.Stat(f.Path)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %s: %v", ErrFetch, f.Path, err)
	}
	if !info.IsDir() {
		return "", nil, fmt.Errorf("%w: %s is not a directory", ErrFetch, f.Path)
	}
	return f.Path, func() {}, nil
}

// GitFetcher clones one branch of a remote repository into Dir.
type GitFetcher struct {
	URL    string
	Branch string
	Dir    string
	Log    zerolog.Logger
}

func (f GitFetcher) Fetch(ctx context.Context) (string, func(), error) {
	if strings.TrimSpace(f.URL) == "" {
		return "", nil, fmt.Errorf("%w: repository url required", ErrFetch)
	}
	dir := f.Dir
	if dir == "" {
		dir = "temp_fabric_repo"
	}

	// A stale clone from an aborted previous run would poison discovery.
	if err := os.RemoveAll(dir); err != nil {
		return "", nil, fmt.Errorf("%w: clean %s: %v", ErrFetch, dir, err)
	}

	cloneCtx, cancel := context.WithTimeout(ctx, cloneTimeout)
	defer cancel()

	args := []string{"clone", "--depth", "1"}
	if f.Branch != "" {
		args = append(args, "--branch", f.Branch)
	}
	args = append(args, f.URL, dir)

	f.Log.Info().Str("url", f.URL).Str("branch", f.Branch).Msg("cloning repository")
	cmd := exec.CommandContext(cloneCtx, "git", args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		_ = os.RemoveAll(dir)
		if cloneCtx.Err() != nil {
			return "", nil, fmt.Errorf("%w: clone timed out", ErrFetch)
		}
		return "", nil, fmt.Errorf("%w: git clone: %v: %s", ErrFetch, err, strings.TrimSpace(string(out)))
	}

	cleanup := func() {
		if err := os.RemoveAll(dir); err != nil {
			f.Log.Warn().Err(err).Str("dir", dir).Msg("cleanup failed")
		}
	}
	return dir, cleanup, nil
}
