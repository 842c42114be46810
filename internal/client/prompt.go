package client

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Prompter asks confirmations and shows alerts on a terminal.
type Prompter struct {
	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer
	// Yes answers every confirmation without reading input.
	Yes bool
}

// NewPrompter creates a Prompter reading answers from in.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

// Confirm prints the question and reads a y/N answer. EOF or a read error
// counts as No.
func (p *Prompter) Confirm(ctx context.Context, title, message string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.Yes {
		return true
	}
	if ctx.Err() != nil {
		return false
	}
	fmt.Fprintf(p.out, "%s: %s [y/N] ", title, message)
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		fmt.Fprintln(p.out)
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

// Alert prints a titled message.
func (p *Prompter) Alert(title, message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "%s: %s\n", title, message)
}

// ReadLine prints prompt and returns the next input line without its
// newline. io.EOF is returned once input is exhausted.
func (p *Prompter) ReadLine(prompt string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprint(p.out, prompt)
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
