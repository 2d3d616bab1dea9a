package cli

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/fahmaliyi/nspm/vault"
	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"golang.org/x/term"
)

const commandHelp = "Commands: l=list, s SVC=show, a [SVC]=add, e SVC=edit, d SVC=delete, " +
	"g [LEN]=generate, c SVC=copy, w=save, q=quit"

var (
	errorText   = color.New(color.FgRed).SprintFunc()
	successText = color.New(color.FgGreen).SprintFunc()
	warnText    = color.New(color.FgYellow).SprintFunc()
)

// Config wires a Session to its terminal. Zero fields use the process
// stdin/stdout and the system clipboard. Without ReadSecret, passwords are
// read masked when In is a terminal and as plain lines of In otherwise.
type Config struct {
	In  io.Reader
	Out io.Writer

	// ReadSecret reads a password without echo.
	ReadSecret func(prompt string) ([]byte, error)

	// Clipboard writes text to the system clipboard.
	Clipboard func(text string) error

	// ClipboardClear is how long a copied password stays on the clipboard.
	// Zero keeps it until overwritten.
	ClipboardClear time.Duration

	Logger *zerolog.Logger
}

// Session is the line-oriented command loop over an open store.
type Session struct {
	store      *vault.Store
	in         *bufio.Reader
	tty        bool
	out        io.Writer
	readSecret func(string) ([]byte, error)
	clip       func(string) error
	clearAfter time.Duration
	log        zerolog.Logger

	// numbers from the last listing
	idMap map[int]string
	dirty bool
}

func NewSession(st *vault.Store, c Config) *Session {
	in := c.In
	if in == nil {
		in = os.Stdin
	}
	s := &Session{
		store:      st,
		in:         bufio.NewReader(in),
		tty:        in == io.Reader(os.Stdin) && term.IsTerminal(int(os.Stdin.Fd())),
		out:        os.Stdout,
		clip:       clipboard.WriteAll,
		clearAfter: c.ClipboardClear,
		log:        zerolog.Nop(),
	}
	s.readSecret = s.readPassword
	if c.Out != nil {
		s.out = c.Out
	}
	if c.ReadSecret != nil {
		s.readSecret = c.ReadSecret
	}
	if c.Clipboard != nil {
		s.clip = c.Clipboard
	}
	if c.Logger != nil {
		s.log = *c.Logger
	}
	return s
}

// Dirty reports whether the store has changes that were not saved.
func (s *Session) Dirty() bool { return s.dirty }

// Run reads commands until quit or end of input.
func (s *Session) Run() error {
	for {
		fmt.Fprintln(s.out)
		fmt.Fprintln(s.out, commandHelp)
		fmt.Fprint(s.out, "> ")

		line, err := s.in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		eof := errors.Is(err, io.EOF)
		parts := strings.Fields(line)
		if len(parts) == 0 {
			if eof {
				s.quit(false)
				return nil
			}
			continue
		}
		cmd, arg := parts[0], strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), parts[0]))

		switch cmd {
		case "l", "list":
			s.handleList()
		case "s", "show":
			s.withService(arg, s.handleShow)
		case "a", "add":
			s.handleAdd(arg)
			s.idMap = nil
		case "e", "edit":
			s.withService(arg, s.handleEdit)
		case "d", "delete", "remove":
			s.withService(arg, s.handleDelete)
			s.idMap = nil
		case "g", "generate":
			s.handleGenerate(arg)
			s.idMap = nil
		case "c", "copy":
			s.withService(arg, s.handleCopy)
		case "w", "save":
			s.handleSave()
		case "q", "quit", "exit":
			s.quit(true)
			return nil
		default:
			fmt.Fprintln(s.out, "Unknown command")
		}
		if eof {
			s.quit(false)
			return nil
		}
	}
}

// withService resolves arg as a number from the last listing or as a
// service name.
func (s *Session) withService(arg string, fn func(service string)) {
	if arg == "" {
		fmt.Fprintln(s.out, "Specify a service")
		return
	}
	if n, err := strconv.Atoi(arg); err == nil {
		if svc, ok := s.idMap[n]; ok {
			arg = svc
		}
	}
	fn(arg)
}

func (s *Session) prompt(label string) (string, error) {
	fmt.Fprint(s.out, label)
	line, err := s.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// readPassword reads masked from a terminal. Other input is shared with the
// command loop, so the password is the next buffered line.
func (s *Session) readPassword(prompt string) ([]byte, error) {
	if s.tty {
		return ReadPasswordMasked(prompt)
	}
	fmt.Fprint(s.out, prompt)
	line, err := s.in.ReadBytes('\n')
	if err != nil && !(errors.Is(err, io.EOF) && len(line) > 0) {
		vault.Zero(line)
		return nil, err
	}
	return bytes.TrimRight(line, "\r\n"), nil
}

// Confirm asks question and reports whether the answer is a yes-word.
func (s *Session) Confirm(question string) bool {
	answer, err := s.prompt(question)
	return err == nil && IsYes(answer)
}

func (s *Session) fail(err error) {
	fmt.Fprintln(s.out, errorText("Error:"), err)
}

// --- Individual command handlers ---

func (s *Session) handleList() {
	fmt.Fprintln(s.out, "Vault entries:")
	s.idMap = make(map[int]string)
	for i, svc := range s.store.Services() {
		num := i + 1
		s.idMap[num] = svc
		fmt.Fprintf(s.out, "%d) %s\n", num, svc)
	}
}

func (s *Session) handleShow(service string) {
	pw, err := s.store.Get(service)
	if err != nil {
		s.fail(err)
		return
	}
	fmt.Fprintf(s.out, "Service: %s\nPassword: %s\n", service, pw)
}

func (s *Session) handleEdit(service string) {
	if _, err := s.store.Get(service); err != nil {
		s.fail(err)
		return
	}
	pw, err := s.readSecret("New password: ")
	if err != nil {
		s.fail(err)
		return
	}
	secret := vault.NewSecret(pw)
	s.warnWeak(secret)
	if err := s.store.Edit(service, secret); err != nil {
		s.fail(err)
		return
	}
	s.dirty = true
	fmt.Fprintln(s.out, successText("Successfully edited "+service))
}

func (s *Session) handleDelete(service string) {
	if err := s.store.Remove(service); err != nil {
		s.fail(err)
		return
	}
	s.dirty = true
	fmt.Fprintln(s.out, successText("Successfully removed "+service))
}

func (s *Session) handleCopy(service string) {
	pw, err := s.store.Get(service)
	if err != nil {
		s.fail(err)
		return
	}
	if err := s.clip(pw); err != nil {
		s.fail(err)
		return
	}
	if s.clearAfter <= 0 {
		fmt.Fprintln(s.out, "Password copied to clipboard.")
		return
	}
	fmt.Fprintf(s.out, "Password copied to clipboard. Clearing in %s...\n", s.clearAfter)
	time.AfterFunc(s.clearAfter, func() {
		if err := s.clip(""); err != nil {
			s.log.Warn().Err(err).Msg("clear clipboard")
		}
	})
}

func (s *Session) handleSave() {
	fmt.Fprintln(s.out, "Saving...")
	if err := s.store.Save(); err != nil {
		s.fail(err)
		return
	}
	s.dirty = false
	fmt.Fprintln(s.out, successText("Saved"))
}

// quit offers to save unsaved changes. At end of input there is nobody to
// ask, so the changes are dropped with a warning.
func (s *Session) quit(ask bool) {
	if s.dirty && ask && s.Confirm("Save changes before quitting (y/n)? ") {
		s.handleSave()
	}
	if s.dirty {
		fmt.Fprintln(s.out, warnText("Unsaved changes discarded."))
		s.log.Warn().Msg("unsaved changes discarded")
	}
	fmt.Fprintln(s.out, "Exiting.")
}
