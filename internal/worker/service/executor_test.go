package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	orchestrator "github.com/hiverender/hiverender/internal/orchestrator/core"
	workercore "github.com/hiverender/hiverender/internal/worker/core"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "render.sh")
	script := "#!/bin/sh\n" + body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func TestExecExecutorEnvContract(t *testing.T) {
	dir := t.TempDir()
	capture := filepath.Join(dir, "env.txt")

	script := writeScript(t, `printf '%s\n%s\n%s\n%s\n%s\n' "$BLEND_FILE" "$RENDER_OUT" "$START" "$END" "$FORMAT" > `+capture)
	executor := NewExecExecutor(script, 0, nopLogger{})

	spec := workercore.RenderSpec{
		AssetPath: "/work/job1/scene.blend",
		OutputDir: "/work/job1/render_out",
		Start:     5,
		End:       7,
		Format:    orchestrator.FormatPNG,
	}
	require.NoError(t, executor.Render(context.Background(), spec))

	data, err := os.ReadFile(capture)
	require.NoError(t, err)
	require.Equal(t, "/work/job1/scene.blend\n/work/job1/render_out\n5\n7\npng\n", string(data))
}

func TestExecExecutorFailureIncludesOutput(t *testing.T) {
	script := writeScript(t, `echo "device not found" >&2; exit 3`)
	executor := NewExecExecutor(script, 0, nopLogger{})

	err := executor.Render(context.Background(), workercore.RenderSpec{Start: 1, End: 1, Format: orchestrator.FormatPNG})
	require.Error(t, err)
	require.Contains(t, err.Error(), "render command failed")
	require.Contains(t, err.Error(), "device not found")
}

func TestExecExecutorTimeout(t *testing.T) {
	script := writeScript(t, `sleep 5`)
	executor := NewExecExecutor(script, 100*time.Millisecond, nopLogger{})

	start := time.Now()
	err := executor.Render(context.Background(), workercore.RenderSpec{Start: 1, End: 1, Format: orchestrator.FormatPNG})
	require.Error(t, err)
	require.Less(t, time.Since(start), 3*time.Second)
}

func TestExecExecutorMissingCommand(t *testing.T) {
	executor := NewExecExecutor(filepath.Join(t.TempDir(), "absent"), 0, nopLogger{})

	err := executor.Render(context.Background(), workercore.RenderSpec{Start: 1, End: 1, Format: orchestrator.FormatPNG})
	require.Error(t, err)
}
