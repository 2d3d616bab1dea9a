package cli

import (
	"fmt"
	"strconv"

	"github.com/fahmaliyi/nspm/vault"
)

func (s *Session) handleAdd(service string) {
	if service == "" {
		var err error
		if service, err = s.prompt("Service: "); err != nil {
			s.fail(err)
			return
		}
	}
	if service == "" {
		fmt.Fprintln(s.out, "Service name is required")
		return
	}

	pw, err := s.readSecret("Password (empty to generate): ")
	if err != nil {
		s.fail(err)
		return
	}
	var secret *vault.Secret
	if len(pw) == 0 {
		if secret, err = vault.GeneratePassword(0); err != nil {
			s.fail(err)
			return
		}
		fmt.Fprintf(s.out, "Generated password: %s\n", secret.Bytes())
	} else {
		secret = vault.NewSecret(pw)
		s.warnWeak(secret)
	}

	if err := s.store.Add(service, secret); err != nil {
		s.fail(err)
		return
	}
	s.dirty = true
	fmt.Fprintln(s.out, successText("Added password for "+service))
}

// handleGenerate creates a random password and offers to store it. A
// missing or invalid length means the default.
func (s *Session) handleGenerate(arg string) {
	length, err := strconv.Atoi(arg)
	if err != nil || length < 0 {
		length = vault.DefaultPasswordLength
	}
	secret, err := vault.GeneratePassword(length)
	if err != nil {
		s.fail(err)
		return
	}
	fmt.Fprintf(s.out, "Generated password: %s\n", secret.Bytes())

	if !s.Confirm("Do you want to save this password (y/n)? ") {
		secret.Destroy()
		return
	}
	service, err := s.prompt("Service: ")
	if err != nil || service == "" {
		secret.Destroy()
		fmt.Fprintln(s.out, "Service name is required")
		return
	}
	if err := s.store.Add(service, secret); err != nil {
		s.fail(err)
		return
	}
	s.dirty = true
	fmt.Fprintln(s.out, successText("Saved "+service))
}

func (s *Session) warnWeak(pw *vault.Secret) {
	for _, w := range vault.CheckStrength(pw) {
		fmt.Fprintln(s.out, warnText("Warning: password has "+string(w)))
	}
}
