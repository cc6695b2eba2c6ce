package processor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/akibsystems/showgeki2-sub002/internal/models"
)

const (
	scriptFilename = "script.json"
	// outputFilename is the canonical name the rest of the pipeline expects.
	outputFilename = "output.mp4"
)

// Workspace is the job-exclusive temporary directory holding the serialized
// script and the rendered output before publication. The directory name is
// derived from the job id, so concurrent jobs never collide.
type Workspace struct {
	JobID string
	Dir   string
}

// Workspaces creates per-job workspaces under a common root.
type Workspaces struct {
	root string
}

func NewWorkspaces(root string) *Workspaces {
	if root == "" {
		root = filepath.Join(os.TempDir(), "showgeki2")
	}
	return &Workspaces{root: root}
}

// Prepare creates the job's directory. It starts empty even if a previous
// run with the same id crashed mid-way.
func (w *Workspaces) Prepare(jobID string) (*Workspace, error) {
	dir := filepath.Join(w.root, "jobs", jobID)
	if err := os.RemoveAll(dir); err != nil {
		return nil, fmt.Errorf("reset workspace: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	return &Workspace{JobID: jobID, Dir: dir}, nil
}

// WriteScript serializes the transformed script into the workspace and
// returns its path.
func (ws *Workspace) WriteScript(script *models.Script) (string, error) {
	raw, err := json.MarshalIndent(script, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal script: %w", err)
	}

	path := filepath.Join(ws.Dir, scriptFilename)
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return "", fmt.Errorf("write script: %w", err)
	}
	return path, nil
}

// LocateOutput finds the file the renderer produced. The engine may emit a
// language-suffixed name when captions are burned in; the first candidate
// that exists wins and is moved to the canonical path.
func (ws *Workspace) LocateOutput(script *models.Script) (string, error) {
	canonical := filepath.Join(ws.Dir, outputFilename)

	for _, name := range outputCandidates(script) {
		candidate := filepath.Join(ws.Dir, name)
		if _, err := os.Stat(candidate); err != nil {
			continue
		}
		if candidate != canonical {
			if err := os.Rename(candidate, canonical); err != nil {
				return "", fmt.Errorf("relocate output %s: %w", name, err)
			}
		}
		return canonical, nil
	}

	return "", fmt.Errorf("renderer produced no output file in %s", ws.Dir)
}

func outputCandidates(script *models.Script) []string {
	candidates := []string{outputFilename}
	if script.CaptionsEnabled() {
		candidates = append(candidates, fmt.Sprintf("output__%s.mp4", script.Captions.Lang))
	}
	return candidates
}
