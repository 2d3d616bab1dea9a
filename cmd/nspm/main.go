package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/fahmaliyi/nspm/vault"
	"github.com/fatih/color"
)

const (
	exitGeneral  = 1
	exitAuth     = 2
	exitLayout   = 3
	exitNotFound = 4
)

func main() {
	if err := newApp().rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("Error: %v", err))
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, vault.ErrDecryptionFailure), errors.Is(err, vault.ErrMissingKey):
		return exitAuth
	case errors.Is(err, vault.ErrIncompatibleLayout), errors.Is(err, vault.ErrDecode),
		errors.Is(err, vault.ErrStaleTemp):
		return exitLayout
	case errors.Is(err, vault.ErrNotFound), errors.Is(err, fs.ErrNotExist):
		return exitNotFound
	default:
		return exitGeneral
	}
}
