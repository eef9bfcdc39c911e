// Package vcs reads commits, unified diffs and blobs from a git repository.
//
// A commit is always compared against its first parent. A root commit is
// compared against an empty tree, so every file it contains is an addition.
package vcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"

	git "gopkg.in/src-d/go-git.v4"
	"gopkg.in/src-d/go-git.v4/plumbing"
	fdiff "gopkg.in/src-d/go-git.v4/plumbing/format/diff"
	"gopkg.in/src-d/go-git.v4/plumbing/object"
	"gopkg.in/src-d/go-git.v4/utils/merkletrie"

	"github.com/sokinpui/patchsync/model"
)

// DefaultContextLines is the context width of a standard unified diff.
const DefaultContextLines = fdiff.DefaultContextLines

var (
	// ErrFileNotInCommit is returned by Blob when the commit's tree has no
	// file at the requested path.
	ErrFileNotInCommit = errors.New("file not present in commit")
	// ErrFileNotInDiff is returned when the commit does not change the path.
	ErrFileNotInDiff = errors.New("file not found in diff")
)

// Repository is a read-only view of a git repository.
type Repository struct {
	path string
	repo *git.Repository
}

// Open opens the repository containing path.
func Open(path string) (*Repository, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("unable to open repository located at %q: %w", path, err)
	}
	return &Repository{path: path, repo: repo}, nil
}

// Diff returns the unified diff of one file between commitID and its parent
// with contextLines lines of context. It is empty when the commit does not
// touch the file.
func (r *Repository) Diff(ctx context.Context, commitID, path string, contextLines int) ([]byte, error) {
	change, err := r.findChange(ctx, commitID, path)
	if errors.Is(err, ErrFileNotInDiff) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	patch, err := change.PatchContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to build patch for %s: %w", path, err)
	}

	var buf bytes.Buffer
	if err := fdiff.NewUnifiedEncoder(&buf, contextLines).Encode(patch); err != nil {
		return nil, fmt.Errorf("unable to encode patch for %s: %w", path, err)
	}
	return renumberHunks(buf.Bytes()), nil
}

var hunkHeader = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+\d+(?:,(\d+))? @@(.*)$`)

// renumberHunks recomputes the new-side start of every hunk header from the
// old-side start and the line delta of the preceding hunks, following the
// same convention as git diff. The encoder's new-side positions are off
// for hunks that begin with a deletion, and git apply --unidiff-zero
// anchors on them.
func renumberHunks(patch []byte) []byte {
	lines := bytes.SplitAfter(patch, []byte("\n"))
	delta := 0
	for i, line := range lines {
		body := bytes.TrimSuffix(line, []byte("\n"))
		m := hunkHeader.FindSubmatch(body)
		if m == nil {
			continue
		}
		oldStart, _ := strconv.Atoi(string(m[1]))
		oldCount := headerCount(m[2])
		newCount := headerCount(m[3])

		newStart := oldStart + delta
		switch {
		case oldCount == 0:
			newStart++
		case newCount == 0:
			newStart--
		}
		delta += newCount - oldCount

		header := fmt.Sprintf("@@ -%s +%s @@%s", hunkRange(oldStart, oldCount), hunkRange(newStart, newCount), m[4])
		if len(body) != len(line) {
			header += "\n"
		}
		lines[i] = []byte(header)
	}
	return bytes.Join(lines, nil)
}

func headerCount(b []byte) int {
	if len(b) == 0 {
		return 1
	}
	n, _ := strconv.Atoi(string(b))
	return n
}

func hunkRange(start, count int) string {
	if count == 1 {
		return strconv.Itoa(start)
	}
	return fmt.Sprintf("%d,%d", start, count)
}

// Blob returns the raw bytes of path as of commitID.
func (r *Repository) Blob(ctx context.Context, commitID, path string) ([]byte, error) {
	commit, err := r.commit(commitID)
	if err != nil {
		return nil, err
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("unable to read tree of %s: %w", commit.Hash, err)
	}

	file, err := tree.File(path)
	if errors.Is(err, object.ErrFileNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrFileNotInCommit, path)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to look up %s: %w", path, err)
	}
	return readFile(file)
}

// ChangedFiles lists every file changed by commitID.
func (r *Repository) ChangedFiles(ctx context.Context, commitID string) ([]model.ChangedFile, error) {
	changes, err := r.changes(ctx, commitID)
	if err != nil {
		return nil, err
	}

	files := make([]model.ChangedFile, 0, len(changes))
	// Deleted blobs by hash, so an insert of the same blob reads as a rename.
	deleted := make(map[plumbing.Hash][]int)
	for _, change := range changes {
		action, err := change.Action()
		if err != nil {
			return nil, fmt.Errorf("unable to classify change: %w", err)
		}
		if action == merkletrie.Delete {
			deleted[change.From.TreeEntry.Hash] = append(deleted[change.From.TreeEntry.Hash], len(files))
		}
		files = append(files, model.ChangedFile{
			Path:       changePath(change),
			ChangeType: changeType(action),
		})
	}

	renamed := make(map[int]bool)
	for i, change := range changes {
		if files[i].ChangeType != "A" {
			continue
		}
		candidates := deleted[change.To.TreeEntry.Hash]
		if len(candidates) == 0 {
			continue
		}
		renamed[candidates[0]] = true
		deleted[change.To.TreeEntry.Hash] = candidates[1:]
		files[i].ChangeType = "R"
	}

	out := files[:0]
	for i, file := range files {
		if !renamed[i] {
			out = append(out, file)
		}
	}
	return out, nil
}

// FileVersions returns the content of path before and after commitID.
// A side that does not exist (added or deleted file) is nil.
func (r *Repository) FileVersions(ctx context.Context, commitID, path string) (before, after []byte, err error) {
	change, err := r.findChange(ctx, commitID, path)
	if err != nil {
		return nil, nil, err
	}

	from, to, err := change.Files()
	if err != nil {
		return nil, nil, fmt.Errorf("unable to read versions of %s: %w", path, err)
	}
	if from != nil {
		if before, err = readFile(from); err != nil {
			return nil, nil, err
		}
	}
	if to != nil {
		if after, err = readFile(to); err != nil {
			return nil, nil, err
		}
	}
	return before, after, nil
}

func (r *Repository) commit(commitID string) (*object.Commit, error) {
	hash, err := r.repo.ResolveRevision(plumbing.Revision(commitID))
	if err != nil {
		return nil, fmt.Errorf("unable to resolve commit %q: %w", commitID, err)
	}
	commit, err := r.repo.CommitObject(*hash)
	if err != nil {
		return nil, fmt.Errorf("unable to load commit %s: %w", hash, err)
	}
	return commit, nil
}

// changes diffs commitID against its first parent, or against nothing for a
// root commit.
func (r *Repository) changes(ctx context.Context, commitID string) (object.Changes, error) {
	commit, err := r.commit(commitID)
	if err != nil {
		return nil, err
	}
	to, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("unable to read tree of %s: %w", commit.Hash, err)
	}

	var from *object.Tree
	if commit.NumParents() > 0 {
		parent, err := commit.Parent(0)
		if err != nil {
			return nil, fmt.Errorf("unable to load parent of %s: %w", commit.Hash, err)
		}
		if from, err = parent.Tree(); err != nil {
			return nil, fmt.Errorf("unable to read tree of %s: %w", parent.Hash, err)
		}
	}

	changes, err := object.DiffTreeContext(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("unable to diff %s: %w", commit.Hash, err)
	}
	return changes, nil
}

func (r *Repository) findChange(ctx context.Context, commitID, path string) (*object.Change, error) {
	changes, err := r.changes(ctx, commitID)
	if err != nil {
		return nil, err
	}
	for _, change := range changes {
		if changePath(change) == path {
			return change, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrFileNotInDiff, path)
}

func changePath(change *object.Change) string {
	if change.To.Name != "" {
		return change.To.Name
	}
	return change.From.Name
}

func changeType(action merkletrie.Action) string {
	switch action {
	case merkletrie.Insert:
		return "A"
	case merkletrie.Delete:
		return "D"
	default:
		return "M"
	}
}

func readFile(file *object.File) ([]byte, error) {
	rd, err := file.Reader()
	if err != nil {
		return nil, fmt.Errorf("unable to open blob %s: %w", file.Name, err)
	}
	defer rd.Close()

	data, err := io.ReadAll(rd)
	if err != nil {
		return nil, fmt.Errorf("unable to read blob %s: %w", file.Name, err)
	}
	return data, nil
}
