package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fahmaliyi/nspm/cli"
	"github.com/fahmaliyi/nspm/vault"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var errMismatch = errors.New("master passwords do not match")

func (a *app) initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create a new, empty vault",
		Long: `Create a new vault directory and store a verifier for the master password.

The vault directory must not exist yet. Use --vault or vault_dir in the
config file to choose its location.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			path := a.cfg.VaultDir
			if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
				return err
			}

			master, err := a.newMaster(out)
			if err != nil {
				return err
			}
			defer master.Destroy()

			if err := vault.InitializeVault(path, master, a.options()); err != nil {
				return err
			}
			fmt.Fprintln(out, color.GreenString("Created vault at %s", path))
			return nil
		},
	}
}

func (a *app) newMaster(out io.Writer) (*vault.Secret, error) {
	first, err := a.secret("Master password: ")
	if err != nil {
		return nil, err
	}
	second, err := a.secret("Repeat master password: ")
	if err != nil {
		vault.Zero(first)
		return nil, err
	}
	same := bytes.Equal(first, second)
	vault.Zero(second)
	if !same {
		vault.Zero(first)
		return nil, errMismatch
	}

	master := vault.NewSecret(first)
	if master.Empty() {
		return nil, vault.ErrMissingKey
	}
	for _, w := range vault.CheckStrength(master) {
		fmt.Fprintln(out, color.YellowString("Warning: master password has %s", w))
	}
	return master, nil
}

func (a *app) openCmd() *cobra.Command {
	var useTUI bool
	cmd := &cobra.Command{
		Use:   "open",
		Short: "Unlock the vault and manage its passwords",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			path := a.cfg.VaultDir
			opts := a.options()
			restored, err := vault.RecoverVault(path, opts)
			if err != nil {
				return err
			}
			if restored {
				fmt.Fprintln(out, color.YellowString("Restored the vault from an interrupted save"))
			}
			if !vault.VerifyLayout(path, opts) {
				return fmt.Errorf("%w: %s is not a vault (run 'nspm init' first)", vault.ErrIncompatibleLayout, path)
			}

			master, err := a.authenticate(path, opts, out)
			if err != nil {
				return err
			}
			st, err := vault.Open(path, master, opts)
			if err != nil {
				return err
			}
			defer st.Close()
			a.log.Info().Str("vault", path).Int("records", st.Len()).Msg("vault opened")

			if useTUI {
				return cli.RunTUI(st, cli.TUIConfig{
					Clipboard:      a.clipboard,
					ClipboardClear: a.cfg.ClipboardClear,
				})
			}
			sess := cli.NewSession(st, cli.Config{
				In:             a.stdin,
				Out:            out,
				ReadSecret:     a.readSecret,
				Clipboard:      a.clipboard,
				ClipboardClear: a.cfg.ClipboardClear,
				Logger:         &a.log,
			})
			a.confirm = sess.Confirm
			return sess.Run()
		},
	}
	cmd.Flags().BoolVar(&useTUI, "tui", false, "Use the full-screen interface")
	return cmd
}

// authenticate asks for the master password up to MaxAttempts times.
func (a *app) authenticate(path string, opts *vault.Options, out io.Writer) (*vault.Secret, error) {
	for i := 0; i < a.cfg.MaxAttempts; i++ {
		pw, err := a.secret("Master password: ")
		if err != nil {
			return nil, err
		}
		master := vault.NewSecret(pw)
		ok, err := vault.Authenticate(path, master, opts)
		if err != nil && !errors.Is(err, vault.ErrMissingKey) {
			master.Destroy()
			return nil, err
		}
		if ok {
			return master, nil
		}
		master.Destroy()
		fmt.Fprintln(out, color.YellowString("Incorrect master password"))
	}
	return nil, fmt.Errorf("%w: %d incorrect password attempts", vault.ErrDecryptionFailure, a.cfg.MaxAttempts)
}

func (a *app) verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check that the vault directory has a loadable layout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.cfg.VaultDir
			if !vault.VerifyLayout(path, a.options()) {
				return fmt.Errorf("%w: %s", vault.ErrIncompatibleLayout, path)
			}
			fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("%s is a valid vault", path))
			return nil
		},
	}
}

func (a *app) generateCmd() *cobra.Command {
	var length int
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Print a random password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := vault.GeneratePassword(length)
			if err != nil {
				return err
			}
			defer pw.Destroy()
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", pw.Bytes())
			return nil
		},
	}
	cmd.Flags().IntVarP(&length, "length", "n", vault.DefaultPasswordLength, "Password length")
	return cmd
}

func (a *app) checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Report the weaknesses of a password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			b, err := a.secret("Password: ")
			if err != nil {
				return err
			}
			pw := vault.NewSecret(b)
			defer pw.Destroy()

			weak := vault.CheckStrength(pw)
			if len(weak) == 0 {
				fmt.Fprintln(out, color.GreenString("Password is strong"))
				return nil
			}
			for _, w := range weak {
				fmt.Fprintln(out, color.YellowString("Password has %s", w))
			}
			return nil
		},
	}
}
