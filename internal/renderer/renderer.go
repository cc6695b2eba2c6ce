// Package renderer drives the external rendering engine as a subprocess.
package renderer

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/akibsystems/showgeki2-sub002/internal/pkg/errors"
)

// Request describes one render invocation.
type Request struct {
	// ScriptPath is the serialized script file inside the job workspace.
	ScriptPath string
	// OutputDir is where the engine writes the finished video.
	OutputDir string
	// Captions asks the engine to burn in subtitles. The output filename
	// may carry a language suffix when set.
	Captions bool
}

// Engine renders a serialized script into a video file.
type Engine interface {
	Render(ctx context.Context, req Request) error
}

// commandResult is an internal process execution response.
type commandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// commandRunner abstracts process execution for testability.
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) (commandResult, error)
}

// execRunner executes commands via os/exec.
type execRunner struct{}

func (r *execRunner) Run(ctx context.Context, name string, args ...string) (commandResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	stdout.Grow(1 << 20)
	stderr.Grow(1 << 20)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := commandResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: 0,
	}
	if err != nil {
		result.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		}
		return result, err
	}

	return result, nil
}

// Subprocess invokes the engine binary with a hard timeout. A non-zero exit
// or a timeout is fatal for the job; rendering is never blindly retried.
type Subprocess struct {
	bin     string
	timeout time.Duration
	runner  commandRunner
}

// NewSubprocess builds the production engine around the configured binary.
func NewSubprocess(bin string, timeout time.Duration) *Subprocess {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &Subprocess{
		bin:     bin,
		timeout: timeout,
		runner:  &execRunner{},
	}
}

func (s *Subprocess) Render(ctx context.Context, req Request) error {
	args := []string{"render", "--script", req.ScriptPath, "--out", req.OutputDir}
	if req.Captions {
		args = append(args, "--captions")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.runner.Run(ctx, s.bin, args...)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return errors.WrapWithCode(ctx.Err(), errors.CodeTimeout, "renderer.run",
				"render exceeded "+s.timeout.String())
		}
		return errors.WrapWithCode(err, errors.CodeRender, "renderer.run",
			fmt.Sprintf("renderer exited with code %d", res.ExitCode)).
			WithField("stderr", tail(res.Stderr, 2000))
	}
	return nil
}

func tail(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[len(s)-max:]
}
