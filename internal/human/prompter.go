// Package human provides the operator acknowledgment channel used when the
// automated flow needs someone to fix the live browser session by hand.
package human

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/mattn/go-isatty"
)

// ErrInputClosed is returned when the operator input stream ends before an
// acknowledgment was read.
var ErrInputClosed = errors.New("operator input closed")

// Prompter blocks until an operator acknowledges message or ctx is done.
// Acknowledgments are the only unbounded waits in a run, so cancellation
// is left entirely to the caller's context.
type Prompter interface {
	Acknowledge(ctx context.Context, message string) error
}

// PrompterFunc adapts a function to the Prompter interface.
type PrompterFunc func(ctx context.Context, message string) error

// Acknowledge calls f(ctx, message).
func (f PrompterFunc) Acknowledge(ctx context.Context, message string) error {
	return f(ctx, message)
}

// ConsolePrompter asks on out and waits for a line on in.
type ConsolePrompter struct {
	out io.Writer

	mu     sync.Mutex
	lines  chan lineResult
	start  sync.Once
	in     *bufio.Reader
	closed error
}

type lineResult struct {
	err error
}

// NewConsolePrompter creates a ConsolePrompter. A nil in or out falls back
// to os.Stdin / os.Stdout.
func NewConsolePrompter(in io.Reader, out io.Writer) *ConsolePrompter {
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}
	return &ConsolePrompter{
		out:   out,
		in:    bufio.NewReader(in),
		lines: make(chan lineResult),
	}
}

// Interactive reports whether stdin is attached to a terminal.
func Interactive() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// reader is started once and hands over one line per request, so a
// cancelled Acknowledge does not leave a second reader racing on input.
func (p *ConsolePrompter) reader() {
	for {
		_, err := p.in.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = ErrInputClosed
			}
			p.lines <- lineResult{err: err}
			return
		}
		p.lines <- lineResult{}
	}
}

// Acknowledge implements Prompter. Any line (usually just Enter) counts as
// acknowledgment.
func (p *ConsolePrompter) Acknowledge(ctx context.Context, message string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if p.closed != nil {
		return p.closed
	}
	p.start.Do(func() { go p.reader() })

	fmt.Fprintf(p.out, "\n>>> %s ", message)

	select {
	case res := <-p.lines:
		if res.err != nil {
			p.closed = res.err
		}
		return res.err
	case <-ctx.Done():
		fmt.Fprintln(p.out)
		return ctx.Err()
	}
}
