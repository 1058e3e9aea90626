package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/fleximart/fleximart-etl/internal/etlerr"
)

// ErrNotTerminal is returned by TerminalPrompter when stdin is not an
// interactive terminal.
var ErrNotTerminal = errors.New("stdin is not a terminal")

// Prompter asks the user for a secret.
type Prompter interface {
	Password(prompt string) (string, error)
}

// TerminalPrompter reads a password from a terminal without echo.
type TerminalPrompter struct {
	In  *os.File
	Out io.Writer
}

// NewTerminalPrompter prompts on stderr and reads from stdin.
func NewTerminalPrompter() TerminalPrompter {
	return TerminalPrompter{In: os.Stdin, Out: os.Stderr}
}

func (p TerminalPrompter) Password(prompt string) (string, error) {
	fd := int(p.In.Fd())
	if !term.IsTerminal(fd) {
		return "", ErrNotTerminal
	}
	fmt.Fprint(p.Out, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(p.Out)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(b), "\r\n"), nil
}

// ResolveCredentials fills a missing destination password from p. Flags
// and the environment have already been applied, so the prompt is the
// last resort. It is a no-op when loading is disabled or the destination
// needs no password.
func (c *Config) ResolveCredentials(p Prompter) error {
	if !c.Load.Enabled || !c.Load.NeedsPassword() || c.Load.Password != "" {
		return nil
	}
	if p == nil {
		return etlerr.Config("no password for %s destination and no prompt available", c.Load.Driver)
	}

	pw, err := p.Password(fmt.Sprintf("Enter %s password for %s@%s: ", c.Load.Driver, c.Load.User, c.Load.Host))
	if err != nil {
		return etlerr.Config("no password for %s destination: %v", c.Load.Driver, err)
	}
	if pw == "" {
		return etlerr.Config("empty password for %s destination", c.Load.Driver)
	}
	c.Load.Password = pw
	return nil
}
