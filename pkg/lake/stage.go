package lake

import (
	"fmt"
	"os"
	"path/filepath"
)

// Stage is a scratch directory holding one run's tables until they are
// published. Local outputs stage next to the destination so publication is
// a rename on the same filesystem.
type Stage struct {
	Root  string
	RunID string
}

// NewStage creates the staging directory. When outputRoot is empty the
// stage lives in the OS temp directory.
func NewStage(outputRoot, runID string) (*Stage, error) {
	if outputRoot == "" {
		root, err := os.MkdirTemp("", "lake-etl-"+runID+"-")
		if err != nil {
			return nil, fmt.Errorf("create staging dir: %w", err)
		}
		return &Stage{Root: root, RunID: runID}, nil
	}

	root := filepath.Join(outputRoot, ".staging-"+runID)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	return &Stage{Root: root, RunID: runID}, nil
}

// Dir returns the staging directory for a table path such as
// "song_data/song.parquet".
func (s *Stage) Dir(tablePath string) string {
	return filepath.Join(s.Root, filepath.FromSlash(tablePath))
}

func (s *Stage) Cleanup() error {
	return os.RemoveAll(s.Root)
}
