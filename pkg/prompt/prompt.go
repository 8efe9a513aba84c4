package prompt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/jeremyhahn/go-pki-tool/pkg/secret"
	"golang.org/x/term"
)

const (
	userPrompt = "pki-tool> $ "
)

// Prompter reads passwords and writes status messages. Passwords
// are read without echo when input is a terminal.
type Prompter struct {
	out          io.Writer
	reader       *bufio.Reader
	readPassword func() ([]byte, error)
}

// Returns a prompter bound to the process stdin and stdout
func NewTerminalPrompter() *Prompter {
	p := NewPrompter(os.Stdin, os.Stdout)
	fd := int(syscall.Stdin)
	if term.IsTerminal(fd) {
		p.readPassword = func() ([]byte, error) {
			return term.ReadPassword(fd)
		}
	}
	return p
}

// Returns a prompter that reads newline terminated responses
// from the provided reader
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	p := &Prompter{
		out:    out,
		reader: bufio.NewReader(in),
	}
	p.readPassword = p.readLine
	return p
}

func (p *Prompter) PrintBanner(version string) {
	color.New(color.FgGreen).Fprintf(p.out, "PKI Tool v%s\n\n", version)
}

func (p *Prompter) Success(format string, args ...any) {
	color.New(color.FgGreen).Fprintf(p.out, format+"\n", args...)
}

func (p *Prompter) Warning(format string, args ...any) {
	color.New(color.FgYellow).Fprintf(p.out, format+"\n", args...)
}

func (p *Prompter) Failure(format string, args ...any) {
	color.New(color.FgRed).Fprintf(p.out, format+"\n", args...)
}

// Prompts for a password
func (p *Prompter) Password(message string) ([]byte, error) {
	fmt.Fprintf(p.out, "%s: \n", message)
	fmt.Fprint(p.out, userPrompt)
	password, err := p.readPassword()
	if err != nil {
		return nil, err
	}
	fmt.Fprintln(p.out)
	return password, nil
}

// Prompts for a password twice. Returns the first entry and
// whether the confirmation matched it.
func (p *Prompter) ConfirmPassword(message string) ([]byte, bool, error) {
	password, err := p.Password(message)
	if err != nil {
		return nil, false, err
	}
	confirm, err := p.Password(fmt.Sprintf("Confirm %s", strings.ToLower(message)))
	if err != nil {
		return nil, false, err
	}
	confirmation := secret.NewClearPassword(confirm)
	defer confirmation.Clear()
	return password, secret.Equal(secret.NewClearPassword(password), confirmation), nil
}

func (p *Prompter) readLine() ([]byte, error) {
	line, err := p.reader.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return nil, err
	}
	return []byte(strings.TrimRight(line, "\r\n")), nil
}
