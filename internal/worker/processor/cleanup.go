package processor

import (
	"os"

	"github.com/akibsystems/showgeki2-sub002/internal/pkg/logger"
)

// Cleanup removes job workspaces. It never fails the job: by the time it
// runs the terminal status is already decided, so problems are logged only.
type Cleanup struct {
	log *logger.Logger
}

func NewCleanup(log *logger.Logger) *Cleanup {
	if log == nil {
		log = logger.NewDefault()
	}
	return &Cleanup{log: log.WithComponent("cleanup")}
}

// Release removes the workspace directory recursively.
func (c *Cleanup) Release(ws *Workspace) {
	if ws == nil || ws.Dir == "" {
		return
	}
	if err := os.RemoveAll(ws.Dir); err != nil {
		c.log.WithJobID(ws.JobID).Warn("workspace cleanup failed",
			"dir", ws.Dir,
			"error", err.Error(),
		)
	}
}
