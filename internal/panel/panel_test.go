package panel

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hiverender/hiverender/internal/orchestrator/core"
)

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func newTestModel() Model {
	return NewModel(Deps{
		OutputFormat: core.FormatPNG,
		PollInterval: time.Second,
		FrameStart:   1,
		FrameEnd:     10,
	})
}

func TestInstanceCountBounds(t *testing.T) {
	m := newTestModel()

	for i := 0; i < 10; i++ {
		next, _ := m.Update(keyMsg("up"))
		m = next.(Model)
	}
	if m.instanceCount != core.MaxInstanceCount {
		t.Errorf("Expected count capped at %d, got %d", core.MaxInstanceCount, m.instanceCount)
	}

	for i := 0; i < 10; i++ {
		next, _ := m.Update(keyMsg("down"))
		m = next.(Model)
	}
	if m.instanceCount != core.MinInstanceCount {
		t.Errorf("Expected count floored at %d, got %d", core.MinInstanceCount, m.instanceCount)
	}
}

func TestInstanceTypeCycling(t *testing.T) {
	m := newTestModel()

	next, _ := m.Update(keyMsg("left"))
	m = next.(Model)
	if m.typeIndex != len(instanceTypes)-1 {
		t.Errorf("Expected left from 0 to wrap to %d, got %d", len(instanceTypes)-1, m.typeIndex)
	}

	next, _ = m.Update(keyMsg("right"))
	m = next.(Model)
	if m.typeIndex != 0 {
		t.Errorf("Expected right to wrap back to 0, got %d", m.typeIndex)
	}
}

func TestSubmitDoneTransitions(t *testing.T) {
	m := newTestModel()

	job := &core.Job{ID: "abc123", State: core.JobStateRendering}
	next, cmd := m.Update(submitDoneMsg{result: &core.SubmitResult{Job: job}})
	m = next.(Model)

	if m.job == nil || m.job.ID != "abc123" {
		t.Fatalf("Expected submitted job recorded, got %+v", m.job)
	}
	if m.status != "RENDERING..." {
		t.Errorf("Expected RENDERING... status, got %q", m.status)
	}
	if !m.autoRefresh {
		t.Error("Expected auto refresh enabled after submit")
	}
	if cmd == nil {
		t.Error("Expected a scheduled poll tick after submit")
	}
}

func TestSubmitDoneWithUploadFailureWarns(t *testing.T) {
	m := newTestModel()

	result := &core.SubmitResult{
		Job:      &core.Job{ID: "abc123", State: core.JobStateRendering},
		AssetErr: errors.New("connection reset"),
	}
	next, _ := m.Update(submitDoneMsg{result: result})
	m = next.(Model)

	if m.errText == "" {
		t.Error("Expected a warning when an upload failed during submission")
	}
}

func TestSubmitRejected(t *testing.T) {
	m := newTestModel()

	next, _ := m.Update(submitDoneMsg{err: errors.New("frame range is inverted")})
	m = next.(Model)

	if m.job != nil {
		t.Error("Expected no job after a rejected submit")
	}
	if m.status != "submit rejected" {
		t.Errorf("Expected submit rejected status, got %q", m.status)
	}
	if !strings.Contains(m.errText, "inverted") {
		t.Errorf("Expected rejection reason surfaced, got %q", m.errText)
	}
}

func TestPollCompleteStopsAutoRefresh(t *testing.T) {
	m := newTestModel()
	m.job = &core.Job{ID: "abc123"}
	m.autoRefresh = true
	m.polling = true

	next, _ := m.Update(pollDoneMsg{complete: true, at: time.Now()})
	m = next.(Model)

	if m.status != "COMPLETE!" {
		t.Errorf("Expected COMPLETE! status, got %q", m.status)
	}
	if m.autoRefresh {
		t.Error("Expected auto refresh off once complete")
	}
	if m.polling {
		t.Error("Expected in-flight poll marker cleared")
	}
}

func TestTickSkipsWhilePollInFlight(t *testing.T) {
	m := newTestModel()
	m.job = &core.Job{ID: "abc123"}
	m.autoRefresh = true
	m.polling = true

	next, cmd := m.Update(tickMsg(time.Now()))
	m = next.(Model)

	if !m.polling {
		t.Error("Expected in-flight marker untouched by a skipped tick")
	}
	if cmd == nil {
		t.Error("Expected the tick to reschedule itself while refreshing")
	}
}

func TestViewShowsJobAndStatus(t *testing.T) {
	m := newTestModel()
	m.job = &core.Job{ID: "abc123"}
	m.status = "RENDERING..."

	view := m.View()
	if !strings.Contains(view, "abc123") {
		t.Error("Expected job id in view")
	}
	if !strings.Contains(view, "RENDERING...") {
		t.Error("Expected status in view")
	}
	if !strings.Contains(view, "[s] submit") {
		t.Error("Expected key hints in view")
	}
}
