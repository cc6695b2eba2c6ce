// Package probe reads duration and resolution back from rendered files.
package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"

	"github.com/akibsystems/showgeki2-sub002/internal/ports"
)

// FFprobe implements ports.MediaProber via the ffprobe binary.
type FFprobe struct {
	bin string
}

func New(bin string) *FFprobe {
	if bin == "" {
		bin = "ffprobe"
	}
	return &FFprobe{bin: bin}
}

type ffprobeOutput struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Probe shells out to ffprobe and parses its JSON report.
func (p *FFprobe) Probe(ctx context.Context, path string) (ports.MediaInfo, error) {
	cmd := exec.CommandContext(ctx, p.bin,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	if err := cmd.Run(); err != nil {
		return ports.MediaInfo{}, fmt.Errorf("ffprobe failed: %w", err)
	}

	return ParseReport(stdout.Bytes())
}

// ParseReport extracts width, height and duration from ffprobe JSON.
func ParseReport(raw []byte) (ports.MediaInfo, error) {
	var out ffprobeOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return ports.MediaInfo{}, fmt.Errorf("parse ffprobe output: %w", err)
	}

	info := ports.MediaInfo{}
	for _, s := range out.Streams {
		if s.CodecType == "video" && s.Width > 0 && s.Height > 0 {
			info.Width = s.Width
			info.Height = s.Height
			break
		}
	}

	if out.Format.Duration != "" {
		d, err := strconv.ParseFloat(out.Format.Duration, 64)
		if err != nil {
			return ports.MediaInfo{}, fmt.Errorf("parse duration %q: %w", out.Format.Duration, err)
		}
		info.DurationSeconds = d
	}

	if info.Width == 0 || info.Height == 0 || info.DurationSeconds == 0 {
		return ports.MediaInfo{}, fmt.Errorf("incomplete ffprobe report")
	}

	return info, nil
}
