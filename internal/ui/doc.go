// Package ui implements an interactive queue monitor using bubbletea's Elm
// architecture.
//
// The monitor renders three regions: a status line with the queue depth, the
// current job with its live progress and recent icon assignments, and the
// terminal history. Queue events arrive through a channel bridged from the
// queue's event bus, so every progress tick, icon assignment, and terminal
// transition repaints without polling.
//
// Keyboard navigation uses vim-style bindings (j/k, c to cancel the next
// queued job, x to clear history, q to quit) with contextual help via
// charmbracelet/bubbles/help.
package ui
