package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"glaspolitics/internal/pipeline"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	stageStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	currentStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	docStyle     = lipgloss.NewStyle().Margin(1, 2)
)

// stageOrder drives the checklist rendering.
var stageOrder = []pipeline.Stage{
	pipeline.StageIngest,
	pipeline.StageDedup,
	pipeline.StageFilter,
	pipeline.StageScrape,
	pipeline.StageScore,
	pipeline.StageRank,
	pipeline.StageIllustrate,
	pipeline.StageSave,
	pipeline.StageSnapshot,
}

var stageLabels = map[pipeline.Stage]string{
	pipeline.StageIngest:     "Fetch feeds",
	pipeline.StageDedup:      "Skip known articles",
	pipeline.StageFilter:     "Relevance filter",
	pipeline.StageScrape:     "Extract content",
	pipeline.StageScore:      "AI scoring",
	pipeline.StageRank:       "Rank articles",
	pipeline.StageIllustrate: "Generate images",
	pipeline.StageSave:       "Save to database",
	pipeline.StageSnapshot:   "Write snapshot",
}

type progressMsg pipeline.Event

type doneMsg struct {
	result *pipeline.RunResult
	err    error
}

type model struct {
	events   chan tea.Msg
	status   map[pipeline.Stage]string
	current  pipeline.Stage
	result   *pipeline.RunResult
	err      error
	width    int
	quitting bool
	finished bool
}

func initialModel(events chan tea.Msg) model {
	return model{
		events: events,
		status: make(map[pipeline.Stage]string),
	}
}

func (m model) Init() tea.Cmd {
	return m.waitForEvent()
}

func (m model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		return <-m.events
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case progressMsg:
		m.current = msg.Stage
		m.status[msg.Stage] = msg.Message
		return m, m.waitForEvent()

	case doneMsg:
		m.finished = true
		m.result = msg.result
		m.err = msg.err
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "q", "enter", "esc":
			if m.finished {
				m.quitting = true
				return m, tea.Quit
			}
		}
	}

	return m, nil
}

func (m model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Glas Politics · Irish political news run"))
	b.WriteString("\n\n")

	for _, stage := range stageOrder {
		message, seen := m.status[stage]
		marker := "  "
		line := stageLabels[stage]
		switch {
		case seen && (stage != m.current || m.finished):
			marker = doneStyle.Render("✓ ")
			if message != "" {
				line += stageStyle.Render("  " + message)
			}
		case seen:
			marker = currentStyle.Render("▸ ")
			line = currentStyle.Render(line)
			if message != "" {
				line += stageStyle.Render("  " + message)
			}
		default:
			line = stageStyle.Render(line)
		}
		b.WriteString(fmt.Sprintf("%s%s\n", marker, line))
	}

	if m.finished {
		b.WriteString("\n")
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Run failed: %v", m.err)))
		} else if m.result != nil {
			stats := m.result.Stats
			b.WriteString(doneStyle.Render("Run complete"))
			b.WriteString(fmt.Sprintf("\n  %d found, %d new, %d relevant, %d scored, %d saved",
				stats.RSSArticlesFound, stats.NewArticles, stats.FilteredArticles,
				stats.ScoredArticles, stats.SavedToDatabase))
			if len(stats.Errors) > 0 {
				b.WriteString(errorStyle.Render(fmt.Sprintf("\n  %d errors recorded", len(stats.Errors))))
			}
			for i, article := range m.result.TopArticles {
				b.WriteString(fmt.Sprintf("\n  %d. [%.1f] %s", i+1, article.OverallScore, article.Title))
			}
			if m.result.SnapshotPath != "" {
				b.WriteString(stageStyle.Render("\n  Snapshot: " + m.result.SnapshotPath))
			}
		}
		b.WriteString(stageStyle.Render("\n\n[q] Quit"))
	} else {
		b.WriteString(stageStyle.Render("\n[ctrl+c] Abort"))
	}

	return docStyle.Render(b.String())
}

// Run executes the pipeline with a live progress display. It blocks until the
// run has finished and the user dismisses the screen.
func Run(ctx context.Context, p *pipeline.Pipeline) (*pipeline.RunResult, error) {
	events := make(chan tea.Msg, 64)
	p.Progress = func(e pipeline.Event) {
		events <- progressMsg(e)
	}

	go func() {
		result, err := p.Run(ctx)
		events <- doneMsg{result: result, err: err}
	}()

	final, err := tea.NewProgram(initialModel(events)).Run()
	if err != nil {
		return nil, fmt.Errorf("progress display failed: %w", err)
	}

	m := final.(model)
	if m.err != nil {
		return m.result, m.err
	}
	return m.result, nil
}
