package model

// Status is the final outcome of a sync for one target root.
type Status string

const (
	StatusSuccess       Status = "success"
	StatusPartial       Status = "partial"
	StatusFailed        Status = "failed"
	StatusTargetMissing Status = "target-missing"
)

// Frozen reports whether a target with this status is excluded from further rounds.
func (s Status) Frozen() bool {
	return s == StatusSuccess || s == StatusPartial || s == StatusTargetMissing
}

// Strategy is one escalation step of the sync engine.
type Strategy string

const (
	StrategyStandardContext       Strategy = "standard-context"
	StrategyZeroContext           Strategy = "zero-context"
	StrategyZeroContextWithReject Strategy = "zero-context-with-reject"
	StrategyForceOverwrite        Strategy = "force-overwrite"
)

// ForcedOverwriteMessage annotates a target that was synced by writing the
// full post-change content.
const ForcedOverwriteMessage = "forced overwrite"

// SyncRequest describes a single sync operation.
type SyncRequest struct {
	RepoPath       string   `json:"repo_path"`
	CommitID       string   `json:"commit_id"`
	FilePath       string   `json:"file_path"`
	TargetRoots    []string `json:"target_roots"`
	ForceOverwrite bool     `json:"force_overwrite"`
}

// TargetResult is the final outcome for one target root.
type TargetResult struct {
	Target   string   `json:"target"`
	Status   Status   `json:"status"`
	Message  string   `json:"message,omitempty"`
	Strategy Strategy `json:"strategy,omitempty"`
	// Path is the file inside the target root that the sync addressed.
	Path string `json:"path,omitempty"`
	// Detail carries extra, non-contractual information such as line statistics.
	Detail string `json:"detail,omitempty"`
}

// SyncReport holds one result per target root, in the caller's order.
type SyncReport struct {
	Results []TargetResult `json:"results"`
}

// Touched returns the file paths that a sync wrote to.
func (r *SyncReport) Touched() []string {
	var paths []string
	for _, res := range r.Results {
		if (res.Status == StatusSuccess || res.Status == StatusPartial) && res.Path != "" {
			paths = append(paths, res.Path)
		}
	}
	return paths
}

// Counts tallies results by status.
func (r *SyncReport) Counts() map[Status]int {
	counts := make(map[Status]int, 4)
	for _, res := range r.Results {
		counts[res.Status]++
	}
	return counts
}

// ChangedFile is one file touched by a commit.
type ChangedFile struct {
	Path       string `json:"path"`
	ChangeType string `json:"change_type"`
}

// FileContent holds both sides of a file changed by a commit.
type FileContent struct {
	OldContent string `json:"old_content"`
	NewContent string `json:"new_content"`
	FilePath   string `json:"file_path"`
	Language   string `json:"language"`
}
