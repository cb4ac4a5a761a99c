package tui

import (
	"github.com/atotto/clipboard"

	"github.com/hylla/taskboard/internal/board"
)

// FieldConfig selects the optional card lines.
type FieldConfig struct {
	ShowDueDate       bool
	ShowCollaborators bool
	ShowDescription   bool
}

type Option func(*Model)

// ClipboardFunc copies text to the system clipboard.
type ClipboardFunc func(string) error

func DefaultFieldConfig() FieldConfig {
	return FieldConfig{
		ShowDueDate:       true,
		ShowCollaborators: true,
		ShowDescription:   false,
	}
}

func WithFieldConfig(cfg FieldConfig) Option {
	return func(m *Model) {
		m.fields = cfg
	}
}

// WithSessionConfig sets the board policies used when the session is built.
func WithSessionConfig(cfg board.SessionConfig) Option {
	return func(m *Model) {
		m.sessionCfg = cfg
	}
}

func WithClipboard(fn ClipboardFunc) Option {
	return func(m *Model) {
		if fn != nil {
			m.copyToClipboard = fn
		}
	}
}

// systemClipboard writes through atotto/clipboard.
func systemClipboard(text string) error {
	return clipboard.WriteAll(text)
}
