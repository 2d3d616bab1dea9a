package main

import (
	"io"
	"os"
	"time"

	"github.com/fahmaliyi/nspm/cli"
	"github.com/fahmaliyi/nspm/internal/config"
	"github.com/fahmaliyi/nspm/vault"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// app carries the resolved configuration and the terminal hooks shared by
// every command.
type app struct {
	configPath string
	logLevel   string
	vaultDir   string

	cfg *config.Config
	log zerolog.Logger

	// readSecret overrides the masked terminal prompt when set.
	readSecret func(prompt string) ([]byte, error)
	clipboard  func(text string) error
	stdin      io.Reader

	// confirm answers the stale temporary directory question during a save.
	confirm func(question string) bool
}

func newApp() *app {
	return &app{
		log:   zerolog.Nop(),
		stdin: os.Stdin,
	}
}

func (a *app) secret(prompt string) ([]byte, error) {
	if a.readSecret != nil {
		return a.readSecret(prompt)
	}
	return cli.ReadPasswordMasked(prompt)
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "nspm",
		Short: "Local encrypted password manager",
		Long: `nspm keeps service passwords in an encrypted vault directory.

Every password is sealed with XChaCha20-Poly1305 under a key derived from
the master password and a per-record salt. Saves replace the vault
atomically, so an interrupted save never damages the previous copy.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Config file (default: $XDG_CONFIG_HOME/nspm/config.yaml)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	root.PersistentFlags().StringVarP(&a.vaultDir, "vault", "d", "", "Vault directory (default: ~/.nspm/vault)")

	root.AddCommand(a.initCmd(), a.openCmd(), a.verifyCmd(), a.generateCmd(), a.checkCmd())
	return root
}

func (a *app) setup() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if a.vaultDir != "" {
		cfg.VaultDir = a.vaultDir
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	lvl, err := cfg.Level()
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(lvl).With().Timestamp().Logger()
	return nil
}

func (a *app) options() *vault.Options {
	return &vault.Options{
		KDF:    a.cfg.KDFParams(),
		Logger: &a.log,
		Progress: vault.ProgressFunc(func(e vault.Event) {
			a.log.Debug().
				Str("step", e.Kind.String()).
				Str("service", e.Service).
				Int("index", e.Index).
				Int("total", e.Total).
				Msg("progress")
		}),
		ConfirmStale: func(path string) bool {
			if a.confirm == nil {
				a.log.Warn().Str("tmp", path).Msg("stale temporary directory left in place")
				return false
			}
			return a.confirm("A temporary directory from an interrupted save exists at " + path + ". Remove it (y/n)? ")
		},
	}
}
