package panel

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hiverender/hiverender/internal/orchestrator/core"
)

// Deps are the orchestrator pieces the panel drives. The panel is a thin
// control surface: every operation maps to one core call.
type Deps struct {
	Submitter *core.Submitter
	Poller    *core.Poller
	Collector *core.Collector

	AssetPath    string
	OutputFormat core.OutputFormat
	ResultDir    string
	PollInterval time.Duration

	FrameStart int
	FrameEnd   int
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("230"))
	statusStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	errorStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203"))
	panelStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

var instanceTypes = []core.InstanceType{
	core.InstanceXLarge,
	core.Instance2XLarge,
	core.Instance4XLarge,
	core.Instance8XLarge,
	core.Instance12XLarge,
	core.Instance16XLarge,
}

type submitDoneMsg struct {
	result *core.SubmitResult
	err    error
}

type pollDoneMsg struct {
	complete bool
	at       time.Time
}

type collectDoneMsg struct {
	result *core.CollectResult
	err    error
}

type tickMsg time.Time

// Model is the interactive render control panel: pick a fleet size and
// tier, submit, watch completion, pull frames down.
type Model struct {
	deps Deps

	instanceCount int
	typeIndex     int

	job         *core.Job
	autoRefresh bool
	polling     bool
	status      string
	lastCheck   time.Time
	errText     string
}

func NewModel(deps Deps) Model {
	return Model{
		deps:          deps,
		instanceCount: 1,
		status:        "idle",
	}
}

// Run starts the panel event loop and blocks until the user quits.
func Run(deps Deps) error {
	p := tea.NewProgram(NewModel(deps), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.updateKey(msg)

	case submitDoneMsg:
		if msg.err != nil {
			m.errText = msg.err.Error()
			m.status = "submit rejected"
			return m, nil
		}
		m.job = msg.result.Job
		m.errText = ""
		if msg.result.AssetErr != nil || msg.result.ManifestErr != nil {
			m.errText = "upload incomplete, workers may never pick this job up"
		}
		m.status = "RENDERING..."
		m.autoRefresh = true
		return m, m.scheduleTick()

	case tickMsg:
		if !m.autoRefresh || m.job == nil || m.polling {
			if m.autoRefresh {
				return m, m.scheduleTick()
			}
			return m, nil
		}
		m.polling = true
		return m, tea.Batch(m.pollCmd(), m.scheduleTick())

	case pollDoneMsg:
		m.polling = false
		m.lastCheck = msg.at
		if msg.complete {
			m.status = "COMPLETE!"
			m.autoRefresh = false
		} else {
			m.status = "RENDERING..."
		}
		return m, nil

	case collectDoneMsg:
		if msg.err != nil {
			m.errText = msg.err.Error()
			return m, nil
		}
		m.errText = ""
		m.status = fmt.Sprintf("collected %d frame(s) into %s", len(msg.result.Downloaded), msg.result.Dir)
		if msg.result.Failed > 0 {
			m.errText = fmt.Sprintf("%d download(s) failed", msg.result.Failed)
		}
		return m, nil
	}
	return m, nil
}

func (m Model) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "up", "+", "k":
		if m.instanceCount < core.MaxInstanceCount {
			m.instanceCount++
		}
	case "down", "-", "j":
		if m.instanceCount > core.MinInstanceCount {
			m.instanceCount--
		}
	case "left", "h":
		m.typeIndex = (m.typeIndex + len(instanceTypes) - 1) % len(instanceTypes)
	case "right", "l":
		m.typeIndex = (m.typeIndex + 1) % len(instanceTypes)
	case "s":
		return m, m.submitCmd()
	case "c":
		if m.job != nil {
			return m, m.collectCmd()
		}
	case "r":
		m.autoRefresh = !m.autoRefresh
		if m.autoRefresh && m.job != nil {
			return m, m.scheduleTick()
		}
	}
	return m, nil
}

func (m Model) submitCmd() tea.Cmd {
	params := core.SubmitParams{
		FrameStart:    m.deps.FrameStart,
		FrameEnd:      m.deps.FrameEnd,
		InstanceCount: m.instanceCount,
		InstanceType:  instanceTypes[m.typeIndex],
		OutputFormat:  m.deps.OutputFormat,
		AssetPath:     m.deps.AssetPath,
	}
	return func() tea.Msg {
		result, err := m.deps.Submitter.Submit(context.Background(), params)
		return submitDoneMsg{result: result, err: err}
	}
}

func (m Model) pollCmd() tea.Cmd {
	job := m.job
	return func() tea.Msg {
		complete, _ := m.deps.Poller.Poll(context.Background(), job)
		return pollDoneMsg{complete: complete, at: time.Now()}
	}
}

func (m Model) collectCmd() tea.Cmd {
	job := m.job
	dest := filepath.Join(m.deps.ResultDir, job.ID, "render_out")
	return func() tea.Msg {
		result, err := m.deps.Collector.Collect(context.Background(), job, dest)
		return collectDoneMsg{result: result, err: err}
	}
}

func (m Model) scheduleTick() tea.Cmd {
	return tea.Tick(m.deps.PollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) View() string {
	var body string

	body += titleStyle.Render("HiveRender") + "\n\n"
	body += labelStyle.Render("Instance Count  ") + valueStyle.Render(fmt.Sprintf("%d", m.instanceCount)) + "\n"
	body += labelStyle.Render("Instance Type   ") + valueStyle.Render(string(instanceTypes[m.typeIndex])) + "\n"
	body += labelStyle.Render("Frames          ") + valueStyle.Render(fmt.Sprintf("%d - %d", m.deps.FrameStart, m.deps.FrameEnd)) + "\n\n"

	if m.job != nil {
		body += labelStyle.Render("Job             ") + valueStyle.Render(m.job.ID) + "\n"
	}
	body += labelStyle.Render("Status          ") + statusStyle.Render(m.status) + "\n"

	refresh := "off"
	if m.autoRefresh {
		refresh = "on"
	}
	body += labelStyle.Render("Auto Refresh    ") + valueStyle.Render(refresh) + "\n"
	if !m.lastCheck.IsZero() {
		body += labelStyle.Render("Last Check      ") + valueStyle.Render(m.lastCheck.Format(time.RFC3339)) + "\n"
	}
	if m.errText != "" {
		body += "\n" + errorStyle.Render(m.errText) + "\n"
	}

	body += "\n" + labelStyle.Render("[s] submit  [c] collect  [r] auto-refresh  [↑/↓] count  [←/→] type  [q] quit")
	return panelStyle.Render(body) + "\n"
}
