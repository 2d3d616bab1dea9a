package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/fahmaliyi/nspm/vault"
	"golang.org/x/term"
)

// ErrInterrupted is returned when the user presses Ctrl-C at a prompt.
var ErrInterrupted = errors.New("interrupted")

// ReadPassword prompts on stderr and reads a line from stdin without echo.
// When stdin is not a terminal the line is read as is.
func ReadPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return readLine(os.Stdin)
	}
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)

	return pw, err
}

// ReadPasswordMasked reads a password echoing one '*' per character.
// Backspace deletes, Esc clears the input, Ctrl-C aborts.
func ReadPasswordMasked(prompt string) ([]byte, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return ReadPassword(prompt)
	}
	fmt.Fprint(os.Stderr, prompt)
	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, err
	}
	defer term.Restore(fd, state)

	var input []byte
	for {
		var buf [1]byte
		if _, err := os.Stdin.Read(buf[:]); err != nil {
			vault.Zero(input)
			return nil, err
		}
		c := buf[0]

		switch c {
		case 3: // Ctrl-C
			vault.Zero(input)
			fmt.Fprint(os.Stderr, "\r\n")
			return nil, ErrInterrupted
		case 13, 10: // Enter
			fmt.Fprint(os.Stderr, "\r\n")
			return input, nil
		case 27: // Esc
			fmt.Fprint(os.Stderr, strings.Repeat("\b \b", utf8.RuneCount(input)))
			vault.Zero(input)
			input = input[:0]
		case 127, 8: // Backspace
			if len(input) > 0 {
				_, size := utf8.DecodeLastRune(input)
				vault.Zero(input[len(input)-size:])
				input = input[:len(input)-size]
				fmt.Fprint(os.Stderr, "\b \b")
			}
		default:
			input = append(input, c)
			// one mask per rune, not per continuation byte
			if c&0xC0 != 0x80 {
				fmt.Fprint(os.Stderr, "*")
			}
		}
	}
}

// readLine reads up to a newline one byte at a time, so nothing past the
// line is consumed from r.
func readLine(r io.Reader) ([]byte, error) {
	var out []byte
	var buf [1]byte
	for {
		n, err := r.Read(buf[:])
		if n == 1 {
			if buf[0] == '\n' {
				return bytes.TrimSuffix(out, []byte("\r")), nil
			}
			out = append(out, buf[0])
		}
		if err == io.EOF && len(out) > 0 {
			return out, nil
		}
		if err != nil {
			vault.Zero(out)
			return nil, err
		}
	}
}

var yesWords = map[string]struct{}{
	"y": {}, "yes": {}, "ye": {}, "es": {}, "s": {}, "se": {},
	"yahoo": {}, "save": {}, "just save": {}, "ok": {}, "k": {},
	"sure": {}, "fine": {}, "finally": {},
	"yes i want to save this password to be able to access it again later": {},
}

// IsYes reports whether answer is one of the accepted confirmations.
func IsYes(answer string) bool {
	_, ok := yesWords[strings.ToLower(strings.TrimSpace(answer))]
	return ok
}
