// Package prompt asks the operator for values on the terminal.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/term"
)

// Prompter reads answers from In and writes questions to Out.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
	fd  int // Terminal file descriptor of In, or -1
}

// New returns a Prompter. When in is a terminal, secrets are read without echo.
func New(in io.Reader, out io.Writer) *Prompter {
	fd := -1
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fd = int(f.Fd())
	}
	return &Prompter{in: bufio.NewReader(in), out: out, fd: fd}
}

// Interactive reports whether answers come from a terminal.
func (p *Prompter) Interactive() bool {
	return p.fd >= 0
}

// Line asks label and returns the trimmed answer.
func (p *Prompter) Line(label string) (string, error) {
	fmt.Fprint(p.out, label)
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("failed to read answer: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// Secret asks label and reads the answer without echo when possible.
func (p *Prompter) Secret(label string) (string, error) {
	if !p.Interactive() {
		return p.Line(label)
	}
	fmt.Fprint(p.out, label)
	b, err := term.ReadPassword(p.fd)
	fmt.Fprintln(p.out)
	if err != nil {
		return "", fmt.Errorf("failed to read secret: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

// NormalizeDir converts separators to the local style and drops a trailing
// separator, so "C:/hosts/" and "/srv/hosts\" both work.
func NormalizeDir(dir string) string {
	dir = strings.TrimSpace(dir)
	if filepath.Separator == '\\' {
		dir = strings.ReplaceAll(dir, "/", `\`)
	} else {
		dir = strings.ReplaceAll(dir, `\`, "/")
	}
	if len(dir) > 1 {
		dir = strings.TrimRight(dir, string(filepath.Separator))
		if dir == "" {
			dir = string(filepath.Separator)
		}
	}
	return dir
}
