package workflow

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	prcerrors "thoreinstein.com/prc/pkg/errors"
	"thoreinstein.com/prc/pkg/pullrequest"
)

// Checkpoint stores the metadata of a run that has not finished submitting.
type Checkpoint struct {
	SessionID      string               `json:"session_id"`
	Source         string               `json:"source"`
	Metadata       pullrequest.Metadata `json:"metadata"`
	CompletedSteps []Step               `json:"completed_steps"`
	CurrentStep    Step                 `json:"current_step"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

const (
	// stateDir is the directory within the git directory where prc stores state.
	stateDir = "prc"
	// checkpointFile is the name of the checkpoint file.
	checkpointFile = "checkpoint.json"
	// checkpointMaxAge is how long a checkpoint is offered for reuse.
	checkpointMaxAge = 24 * time.Hour
)

// checkpointPath returns the full path to the checkpoint file.
func checkpointPath(gitDir string) string {
	return filepath.Join(gitDir, stateDir, checkpointFile)
}

// SaveCheckpoint writes checkpoint to <gitDir>/prc/checkpoint.json with
// owner-only permissions.
func SaveCheckpoint(gitDir string, checkpoint *Checkpoint) error {
	if gitDir == "" {
		return prcerrors.NewWorkflowError("save_checkpoint", "git directory is required")
	}

	if checkpoint == nil {
		return prcerrors.NewWorkflowError("save_checkpoint", "checkpoint is nil")
	}

	dir := filepath.Join(gitDir, stateDir)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return prcerrors.Wrapf(err, "failed to create %s directory", dir)
	}

	checkpoint.UpdatedAt = time.Now()
	if checkpoint.CreatedAt.IsZero() {
		checkpoint.CreatedAt = checkpoint.UpdatedAt
	}

	data, err := json.MarshalIndent(checkpoint, "", "  ")
	if err != nil {
		return prcerrors.Wrapf(err, "failed to marshal checkpoint")
	}

	if err := os.WriteFile(checkpointPath(gitDir), data, 0o600); err != nil {
		return prcerrors.Wrapf(err, "failed to write checkpoint")
	}

	return nil
}

// LoadCheckpoint loads the checkpoint. It returns nil, nil when none exists.
func LoadCheckpoint(gitDir string) (*Checkpoint, error) {
	if gitDir == "" {
		return nil, prcerrors.NewWorkflowError("load_checkpoint", "git directory is required")
	}

	data, err := os.ReadFile(checkpointPath(gitDir))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, prcerrors.Wrapf(err, "failed to read checkpoint")
	}

	var checkpoint Checkpoint
	if err := json.Unmarshal(data, &checkpoint); err != nil {
		return nil, prcerrors.Wrapf(err, "failed to parse checkpoint")
	}

	return &checkpoint, nil
}

// ClearCheckpoint removes the checkpoint file. A missing file is not an error.
func ClearCheckpoint(gitDir string) error {
	if gitDir == "" {
		return prcerrors.NewWorkflowError("clear_checkpoint", "git directory is required")
	}

	if err := os.Remove(checkpointPath(gitDir)); err != nil && !os.IsNotExist(err) {
		return prcerrors.Wrapf(err, "failed to remove checkpoint")
	}

	return nil
}

// HasCheckpoint checks if a checkpoint exists.
func HasCheckpoint(gitDir string) bool {
	if gitDir == "" {
		return false
	}
	_, err := os.Stat(checkpointPath(gitDir))
	return err == nil
}

// IsStale reports whether the checkpoint is older than maxAge.
func (c *Checkpoint) IsStale(maxAge time.Duration) bool {
	return time.Since(c.UpdatedAt) > maxAge
}
