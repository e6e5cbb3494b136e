package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fenilsonani/dircompress/internal/progress"
)

// WalkOptions controls traversal
type WalkOptions struct {
	// FollowSymlinks descends into symlinked directories. Each physical
	// directory is still visited at most once.
	FollowSymlinks bool
	Progress       *progress.ProgressReporter
}

// WalkResult holds everything reachable under a root
type WalkResult struct {
	Root    string
	Entries []Entry
	// Errors are subdirectories that could not be listed; the walk continues past them.
	Errors []error
}

// Files returns only the non-directory entries
func (r *WalkResult) Files() []Entry {
	files := make([]Entry, 0, len(r.Entries))
	for _, e := range r.Entries {
		if !e.IsDir {
			files = append(files, e)
		}
	}
	return files
}

type walker struct {
	ctx     context.Context
	opts    WalkOptions
	visited map[fileID]struct{}
	result  *WalkResult
	start   time.Time
}

// Walk enumerates every directory and regular file beneath root, depth-first.
// The root itself is not included. Symlinks to files and special files are
// never reported as files.
func Walk(ctx context.Context, root string, opts WalkOptions) (*WalkResult, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", root)
	}

	w := &walker{
		ctx:     ctx,
		opts:    opts,
		visited: make(map[fileID]struct{}),
		result:  &WalkResult{Root: root},
		start:   time.Now(),
	}
	w.markVisited(root, info)

	if err := w.visit(root); err != nil {
		return w.result, err
	}

	w.report(progress.PhaseComplete, "")
	return w.result, nil
}

func (w *walker) visit(dir string) error {
	if err := w.ctx.Err(); err != nil {
		return err
	}

	children, err := os.ReadDir(dir)
	if err != nil {
		w.result.Errors = append(w.result.Errors, fmt.Errorf("failed to read %s: %w", dir, err))
		return nil
	}

	for _, child := range children {
		path := filepath.Join(dir, child.Name())
		mode := child.Type()

		switch {
		case mode&fs.ModeSymlink != 0:
			if !w.opts.FollowSymlinks {
				continue
			}
			target, err := os.Stat(path)
			if err != nil || !target.IsDir() {
				// Broken links and links to files are left alone
				continue
			}
			if !w.markVisited(path, target) {
				continue
			}
			w.add(Entry{Path: path, IsDir: true})
			if err := w.visit(path); err != nil {
				return err
			}

		case mode.IsDir():
			info, err := child.Info()
			if err != nil {
				w.result.Errors = append(w.result.Errors, fmt.Errorf("failed to stat %s: %w", path, err))
				continue
			}
			if !w.markVisited(path, info) {
				continue
			}
			w.add(Entry{Path: path, IsDir: true})
			if err := w.visit(path); err != nil {
				return err
			}

		case mode.IsRegular():
			w.add(Entry{Path: path})
		}
	}

	return nil
}

func (w *walker) add(e Entry) {
	w.result.Entries = append(w.result.Entries, e)
	if len(w.result.Entries)%500 == 0 {
		w.report(progress.PhaseScanning, e.Path)
	}
}

// markVisited records a directory and reports whether it was new
func (w *walker) markVisited(path string, info os.FileInfo) bool {
	id := identify(path, info)
	if _, seen := w.visited[id]; seen {
		return false
	}
	w.visited[id] = struct{}{}
	return true
}

func (w *walker) report(phase progress.Phase, current string) {
	if w.opts.Progress == nil {
		return
	}
	w.opts.Progress.UpdateScanProgress(&progress.ScanProgress{
		Phase:       phase,
		CurrentPath: current,
		Entries:     len(w.result.Entries),
		StartTime:   w.start,
	})
}

func identifyByPath(path string) fileID {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		resolved = path
	}
	return fileID{Path: filepath.Clean(resolved)}
}
