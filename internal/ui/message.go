package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/cardbox/internal/models"
	"github.com/desertthunder/cardbox/internal/queue"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var _ tea.Msg = Msg{}

const (
	MsgQueueStatus MsgKind = iota
	MsgJobProgress
	MsgJobFinished
	MsgTrackIconUpdated
)

// queueStatusMsg is the constructor for [MsgQueueStatus]
func queueStatusMsg(status models.QueueStatus) Msg {
	return Msg{kind: MsgQueueStatus, data: status}
}

// jobProgressMsg is the constructor for [MsgJobProgress]
func jobProgressMsg(event queue.ProgressEvent) Msg {
	return Msg{kind: MsgJobProgress, data: event}
}

// jobFinishedMsg is the constructor for [MsgJobFinished]
func jobFinishedMsg(job models.Job) Msg {
	return Msg{kind: MsgJobFinished, data: job}
}

// trackIconUpdatedMsg is the constructor for [MsgTrackIconUpdated]
func trackIconUpdatedMsg(event queue.TrackIconUpdatedEvent) Msg {
	return Msg{kind: MsgTrackIconUpdated, data: event}
}
