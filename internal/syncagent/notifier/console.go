// Package notifier renders sync agent notifications on a terminal.
package notifier

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/synthsel/ss-sync/internal/syncagent/core"
)

// Console writes notifications to a terminal and reads the token from it.
type Console struct {
	out io.Writer
	in  io.Reader

	mu     sync.Mutex
	colors map[core.Icon]*color.Color
	dim    *color.Color
	ok     *color.Color
}

var _ core.Notifier = (*Console)(nil)

// NewConsole creates a Console. Colors are disabled when noColor is set or
// out is not a terminal.
func NewConsole(out io.Writer, in io.Reader, noColor bool) *Console {
	if f, isFile := out.(*os.File); !isFile || !term.IsTerminal(int(f.Fd())) {
		noColor = true
	}

	c := &Console{
		out: out,
		in:  in,
		colors: map[core.Icon]*color.Color{
			core.IconInfo:    color.New(color.FgCyan, color.Bold),
			core.IconWarning: color.New(color.FgYellow, color.Bold),
			core.IconError:   color.New(color.FgRed, color.Bold),
			core.IconCancel:  color.New(color.FgRed, color.Bold),
		},
		dim: color.New(color.Faint),
		ok:  color.New(color.FgGreen),
	}
	if noColor {
		for _, col := range c.colors {
			col.DisableColor()
		}
		c.dim.DisableColor()
		c.ok.DisableColor()
	}
	return c
}

func (c *Console) StatusMessage(text string, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dim.Fprintf(c.out, "%s\n", text)
}

func (c *Console) QuickMessage(text string, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ok.Fprintf(c.out, "%s\n", text)
}

func (c *Console) ShowMessageBox(box core.MessageBox) {
	c.mu.Lock()
	defer c.mu.Unlock()

	col, ok := c.colors[box.Icon]
	if !ok {
		col = c.colors[core.IconInfo]
	}
	col.Fprintf(c.out, "%s\n", box.Title)
	for _, line := range strings.Split(box.Message, "\n") {
		if line == "" {
			fmt.Fprintln(c.out)
			continue
		}
		fmt.Fprintf(c.out, "  %s\n", line)
	}
}

func (c *Console) ShowProgress(title string, lines ...string) core.Progress {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.colors[core.IconInfo].Fprintf(c.out, "%s\n", title)
	for _, line := range lines {
		fmt.Fprintf(c.out, "  %s\n", line)
	}
	return progress{}
}

// progress has nothing to dismiss: the dialog text scrolls away with later output.
type progress struct{}

func (progress) Hide() {}

// PromptToken asks for the token. Input is masked when in is a terminal.
func (c *Console) PromptToken(ctx context.Context, current string) (string, error) {
	c.mu.Lock()
	if current != "" {
		fmt.Fprint(c.out, "Synthetic Selection token (leave empty to keep the stored one): ")
	} else {
		fmt.Fprint(c.out, "Synthetic Selection token (from the In-Game Settings Menu, F10): ")
	}
	c.mu.Unlock()

	type result struct {
		token string
		err   error
	}
	ch := make(chan result, 1)
	go func() {
		token, err := c.readLine()
		ch <- result{strings.TrimSpace(token), err}
	}()

	select {
	case r := <-ch:
		return r.token, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (c *Console) readLine() (string, error) {
	if f, ok := c.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(c.out)
		if err != nil {
			return "", fmt.Errorf("read token: %w", err)
		}
		return string(b), nil
	}

	line, err := bufio.NewReader(c.in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read token: %w", err)
	}
	return line, nil
}
