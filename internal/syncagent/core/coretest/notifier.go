// Package coretest provides in-memory collaborators for tests of the sync agent.
package coretest

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/synthsel/ss-sync/internal/syncagent/core"
)

// Notifier records every notification it receives.
type Notifier struct {
	mu       sync.Mutex
	statuses []string
	quick    []string
	boxes    []core.MessageBox
	progress []*Progress

	// Token and PromptErr are returned by PromptToken.
	Token     string
	PromptErr error
}

var _ core.Notifier = (*Notifier)(nil)

// Progress is a recorded progress dialog.
type Progress struct {
	Title  string
	Lines  []string
	hidden atomic.Int32
}

func (p *Progress) Hide() { p.hidden.Add(1) }

// Hidden reports whether Hide was called at least once.
func (p *Progress) Hidden() bool { return p.hidden.Load() > 0 }

func (n *Notifier) StatusMessage(text string, _ time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.statuses = append(n.statuses, text)
}

func (n *Notifier) QuickMessage(text string, _ time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.quick = append(n.quick, text)
}

func (n *Notifier) ShowMessageBox(box core.MessageBox) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.boxes = append(n.boxes, box)
}

func (n *Notifier) ShowProgress(title string, lines ...string) core.Progress {
	n.mu.Lock()
	defer n.mu.Unlock()
	p := &Progress{Title: title, Lines: lines}
	n.progress = append(n.progress, p)
	return p
}

func (n *Notifier) PromptToken(_ context.Context, _ string) (string, error) {
	return n.Token, n.PromptErr
}

func (n *Notifier) StatusMessages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.statuses...)
}

func (n *Notifier) QuickMessages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.quick...)
}

func (n *Notifier) MessageBoxes() []core.MessageBox {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]core.MessageBox(nil), n.boxes...)
}

// Titles returns the titles of all message boxes shown so far.
func (n *Notifier) Titles() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	titles := make([]string, 0, len(n.boxes))
	for _, b := range n.boxes {
		titles = append(titles, b.Title)
	}
	return titles
}

func (n *Notifier) ProgressDialogs() []*Progress {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]*Progress(nil), n.progress...)
}
