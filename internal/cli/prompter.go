package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Prompter asks the operator for secrets.
type Prompter interface {
	Password(label string) (string, error)
}

// TermPrompter reads without echo when input is a terminal and falls back to
// line reads otherwise, such as when input is piped.
type TermPrompter struct {
	file  *os.File
	lines *bufio.Reader
	out   io.Writer
}

// NewTermPrompter prompts on out. lines is shared with the rest of the
// command so buffered input is not lost between prompts.
func NewTermPrompter(in io.Reader, lines *bufio.Reader, out io.Writer) *TermPrompter {
	f, _ := in.(*os.File)
	return &TermPrompter{file: f, lines: lines, out: out}
}

func (p *TermPrompter) Password(label string) (string, error) {
	fmt.Fprint(p.out, label)
	if p.file != nil && term.IsTerminal(int(p.file.Fd())) {
		b, err := term.ReadPassword(int(p.file.Fd()))
		fmt.Fprintln(p.out)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(b), nil
	}
	return readLine(p.lines)
}

// readLine returns the next line without its terminator. A final line without
// a newline is returned with a nil error.
func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
