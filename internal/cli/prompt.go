package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"
)

// prompter reads answers for interactive setup.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: bufio.NewReader(in), out: out}
}

// line prints label, reads one line and returns def when the answer is empty.
func (p *prompter) line(label, def string) string {
	if def != "" {
		fmt.Fprintf(p.out, "%s [%s]: ", label, def)
	} else {
		fmt.Fprintf(p.out, "%s: ", label)
	}
	input, _ := p.in.ReadString('\n')
	input = strings.TrimSpace(input)
	if input == "" {
		return def
	}
	return input
}

// required keeps asking until a non-empty answer is given or input ends.
func (p *prompter) required(label string) (string, error) {
	for {
		fmt.Fprintf(p.out, "%s (required): ", label)
		input, err := p.in.ReadString('\n')
		input = strings.TrimSpace(input)
		if input != "" {
			return input, nil
		}
		if err != nil {
			return "", fmt.Errorf("%s is required", strings.ToLower(label))
		}
		fmt.Fprintf(p.out, "  Error: %s is required\n", label)
	}
}

// positiveInt reads a positive integer, falling back to def on empty or invalid input.
func (p *prompter) positiveInt(label string, def int) int {
	input := p.line(label, strconv.Itoa(def))
	if v, err := strconv.Atoi(input); err == nil && v > 0 {
		return v
	}
	return def
}

// yes asks a y/N question.
func (p *prompter) yes(label string) bool {
	answer := strings.ToLower(p.line(label+" [y/N]", ""))
	return answer == "y" || answer == "yes"
}

// promptProxyPassword reads the proxy password without echo.
func promptProxyPassword(user string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("stdin is not a terminal, cannot prompt for proxy password")
	}
	fmt.Fprintf(os.Stderr, "Proxy password for %s: ", user)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read proxy password: %w", err)
	}
	return string(b), nil
}
