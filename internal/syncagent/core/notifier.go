package core

import (
	"context"
	"time"
)

// Icon is the severity shown next to a message box.
type Icon string

const (
	IconInfo    Icon = "info"
	IconWarning Icon = "warning"
	IconError   Icon = "error"
	IconCancel  Icon = "cancel"
)

// MessageBox is a modal notification.
type MessageBox struct {
	Title   string
	Message string
	Icon    Icon
}

// Progress is a dismissible progress indicator. Hide must be safe to call more than once.
type Progress interface {
	Hide()
}

// Notifier is the user-facing surface provided by the host.
type Notifier interface {
	// StatusMessage shows a transient message in a status area.
	StatusMessage(text string, d time.Duration)

	// QuickMessage shows a short-lived toast.
	QuickMessage(text string, d time.Duration)

	// ShowMessageBox shows a modal message.
	ShowMessageBox(box MessageBox)

	// ShowProgress opens a progress dialog that stays up until hidden.
	ShowProgress(title string, lines ...string) Progress

	// PromptToken asks the user for an authentication token. current is the
	// stored token, if any. An empty result with a nil error means the user
	// kept the current value.
	PromptToken(ctx context.Context, current string) (string, error)
}
