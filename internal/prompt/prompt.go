// Package prompt reads PINs from the terminal without echo.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// EnvPIN names the variable that supplies a PIN non-interactively.
const EnvPIN = "PINLOCK_PIN"

var ErrNoInput = errors.New("no PIN entered")

// Prompter asks for PINs on out and reads them from in. When in is a
// terminal echo is disabled; otherwise one line is read per PIN.
type Prompter struct {
	in  *os.File
	out io.Writer
	br  *bufio.Reader
}

func New(in *os.File, out io.Writer) *Prompter {
	return &Prompter{in: in, out: out}
}

// Stdio prompts on stderr so stdout stays clean for scripts.
func Stdio() *Prompter {
	return New(os.Stdin, os.Stderr)
}

// ReadPIN prints label and reads one PIN.
func (p *Prompter) ReadPIN(label string) (string, error) {
	fmt.Fprint(p.out, label)

	fd := int(p.in.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(p.out)
		if err != nil {
			return "", fmt.Errorf("failed to read PIN: %w", err)
		}
		return string(b), nil
	}

	if p.br == nil {
		p.br = bufio.NewReader(p.in)
	}
	line, err := p.br.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		if err == io.EOF {
			return "", ErrNoInput
		}
		return "", fmt.Errorf("failed to read PIN: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// ReadPINConfirm reads a new PIN and its confirmation. Comparing them is
// left to the caller.
func (p *Prompter) ReadPINConfirm() (pin, confirm string, err error) {
	pin, err = p.ReadPIN("Enter new PIN: ")
	if err != nil {
		return "", "", err
	}
	confirm, err = p.ReadPIN("Confirm PIN: ")
	if err != nil {
		return "", "", err
	}
	return pin, confirm, nil
}

// PINFromEnv returns the PIN from PINLOCK_PIN, if set.
func PINFromEnv() (string, bool) {
	pin := os.Getenv(EnvPIN)
	return pin, pin != ""
}
