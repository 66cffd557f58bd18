package service

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/hiverender/hiverender/internal/shared/logging"
	"github.com/hiverender/hiverender/internal/worker/core"
)

// execExecutor launches the render engine as a child process, passing
// the chunk through the environment contract the engine's device script
// reads: BLEND_FILE, RENDER_OUT, START, END, FORMAT.
type execExecutor struct {
	command string
	timeout time.Duration
	logger  logging.Logger
}

func NewExecExecutor(command string, timeout time.Duration, logger logging.Logger) core.RenderExecutor {
	return &execExecutor{
		command: command,
		timeout: timeout,
		logger:  logger,
	}
}

func (e *execExecutor) Render(ctx context.Context, spec core.RenderSpec) error {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, e.command)
	cmd.Env = append(os.Environ(),
		"BLEND_FILE="+spec.AssetPath,
		"RENDER_OUT="+spec.OutputDir,
		"START="+strconv.Itoa(spec.Start),
		"END="+strconv.Itoa(spec.End),
		"FORMAT="+string(spec.Format),
	)

	e.logger.Info("Render started",
		"command", e.command,
		"start", spec.Start,
		"end", spec.End,
		"format", string(spec.Format),
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("render command failed: %w: %s", err, string(output))
	}

	e.logger.Info("Render finished", "start", spec.Start, "end", spec.End)
	return nil
}
