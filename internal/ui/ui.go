package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/cardbox/internal/models"
	"github.com/desertthunder/cardbox/internal/queue"
)

// recentTrackLimit bounds the per-track icon feed shown under the current job.
const recentTrackLimit = 5

// Model represents the queue monitor state.
type Model struct {
	svc    *queue.Service
	events chan Msg
	unsubs []func()

	status   models.QueueStatus
	progress models.JobProgress
	tracks   []queue.TrackIconUpdatedEvent

	historyList list.Model
	width       int
	height      int
	help        help.Model
	keys        keyMap
	quitting    bool
}

// NewModel creates a queue monitor bound to the service's event bus.
func NewModel(svc *queue.Service) *Model {
	m := &Model{
		svc:    svc,
		events: make(chan Msg, 64),
		status: svc.GetStatus(),
		help:   help.New(),
		keys:   newKeyMap(),
	}

	delegate := list.NewDefaultDelegate()
	m.historyList = list.New(jobItems(svc.GetJobHistory()), delegate, 0, 0)
	m.historyList.Title = "History"
	m.historyList.SetShowHelp(false)

	bus := svc.Events()
	m.unsubs = append(m.unsubs,
		bus.OnQueueStatus(func(s models.QueueStatus) { m.send(queueStatusMsg(s)) }),
		bus.OnJobProgress(func(e queue.ProgressEvent) { m.send(jobProgressMsg(e)) }),
		bus.OnJobCompleted(func(j models.Job) { m.send(jobFinishedMsg(j)) }),
		bus.OnJobFailed(func(j models.Job) { m.send(jobFinishedMsg(j)) }),
		bus.OnTrackIconUpdated(func(e queue.TrackIconUpdatedEvent) { m.send(trackIconUpdatedMsg(e)) }),
	)
	return m
}

// send forwards a bus event into the Elm loop, dropping on a full channel so
// the queue worker never blocks on a slow terminal.
func (m *Model) send(msg Msg) {
	select {
	case m.events <- msg:
	default:
	}
}

// waitForEvent returns a command that delivers the next queue event.
func (m *Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		return <-m.events
	}
}

// Init starts listening for queue events.
func (m *Model) Init() tea.Cmd {
	return m.waitForEvent()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.historyList.SetSize(msg.Width-4, msg.Height-14)
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.quit):
			m.quitting = true
			for _, unsub := range m.unsubs {
				unsub()
			}
			return m, tea.Quit

		case key.Matches(msg, m.keys.cancel):
			if pending := m.svc.GetQueue(); len(pending) > 0 {
				m.svc.CancelJob(pending[0].ID)
			}
			return m, nil

		case key.Matches(msg, m.keys.clear):
			m.svc.ClearJobHistory()
			m.historyList.SetItems(nil)
			return m, nil
		}

		var cmd tea.Cmd
		m.historyList, cmd = m.historyList.Update(msg)
		return m, cmd

	case Msg:
		return m.handleQueueEvent(msg)
	}

	return m, nil
}

func (m *Model) handleQueueEvent(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgQueueStatus:
		m.status = msg.data.(models.QueueStatus)
		if !m.status.IsProcessing {
			m.progress = models.JobProgress{}
		}

	case MsgJobProgress:
		event := msg.data.(queue.ProgressEvent)
		m.progress = event.Progress

	case MsgJobFinished:
		m.historyList.SetItems(jobItems(m.svc.GetJobHistory()))
		m.tracks = nil

	case MsgTrackIconUpdated:
		event := msg.data.(queue.TrackIconUpdatedEvent)
		m.tracks = append(m.tracks, event)
		if len(m.tracks) > recentTrackLimit {
			m.tracks = m.tracks[len(m.tracks)-recentTrackLimit:]
		}
	}

	return m, m.waitForEvent()
}

// View renders the monitor: current job, pending queue, then history.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(styles.title.Render("Job Queue"))
	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	b.WriteString("\n")
	b.WriteString(m.renderCurrent())
	b.WriteString("\n")
	b.WriteString(m.historyList.View())
	b.WriteString("\n")
	b.WriteString(styles.help.Render(m.help.View(m.keys)))
	return b.String()
}

func (m *Model) renderStatus() string {
	if m.status.IsProcessing {
		return fmt.Sprintf("%s • %d queued", styles.ok.Render("processing"), m.status.QueueLength)
	}
	return fmt.Sprintf("idle • %d queued", m.status.QueueLength)
}

func (m *Model) renderCurrent() string {
	if m.status.CurrentJob == nil {
		return styles.help.Render("no job running")
	}

	var b strings.Builder
	job := m.status.CurrentJob
	fmt.Fprintf(&b, "%s (%s)\n", job.Title, job.Type)

	status := m.progress.Status
	if status == "" {
		status = job.Progress.Status
	}
	line := status
	if m.progress.Total > 0 {
		line = fmt.Sprintf("%s [%d/%d]", status, m.progress.Current, m.progress.Total)
	}
	if m.progress.Warning {
		line = styles.warn.Render(line)
	}
	b.WriteString(line)
	b.WriteString("\n")

	for _, track := range m.tracks {
		fmt.Fprintf(&b, "  %s %s → %s\n", styles.ok.Render("✓"), track.TrackKey, track.IconRef)
	}
	return b.String()
}
