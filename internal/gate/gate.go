package gate

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/jimezsa/jobcrawl/internal/ui"
)

// Console reads operator confirmations, one line each, from a terminal.
// Several prompts may share one Console; they consume input in turn.
type Console struct {
	in    io.Reader
	ui    *ui.UI
	once  sync.Once
	lines chan error
}

func NewConsole(in io.Reader, u *ui.UI) *Console {
	return &Console{in: in, ui: u, lines: make(chan error)}
}

func (c *Console) start() {
	c.once.Do(func() {
		go func() {
			scanner := bufio.NewScanner(c.in)
			for scanner.Scan() {
				c.lines <- nil
			}
			err := scanner.Err()
			if err == nil {
				err = io.EOF
			}
			for {
				c.lines <- err
			}
		}()
	})
}

// Prompt returns a gate that prints notes and prompt, then blocks until the
// operator presses ENTER or ctx is done.
func (c *Console) Prompt(prompt string, notes ...string) *Prompt {
	return &Prompt{console: c, prompt: prompt, notes: notes}
}

type Prompt struct {
	console *Console
	prompt  string
	notes   []string
}

func (p *Prompt) Wait(ctx context.Context) error {
	c := p.console
	if c.ui != nil {
		for _, note := range p.notes {
			c.ui.Warnf("%s", note)
		}
		c.ui.Promptf("%s", p.prompt)
	}
	c.start()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-c.lines:
		if err != nil {
			return fmt.Errorf("operator input closed: %w", err)
		}
		return nil
	}
}

// Manual is the confirmation required before crawling starts: the operator
// solves any CAPTCHA or login and brings up the result list.
func Manual(c *Console) *Prompt {
	return c.Prompt("Press ENTER once job cards are visible → ",
		"=== MANUAL ACTION REQUIRED ===",
		"1. Solve the CAPTCHA if one is shown.",
		"2. Log in if the site asks for it.",
		"3. Make sure the search results with job cards are on screen.",
	)
}

// Linger keeps the browser open for inspection until the operator confirms.
func Linger(c *Console) *Prompt {
	return c.Prompt("Browser left open for inspection. Press ENTER to close it → ")
}
