package vault

import (
	"github.com/absfs/absfs"
	"github.com/rs/zerolog"
)

// Options configures a Store and the package-level vault functions. A nil
// *Options, or any zero field, falls back to the defaults.
type Options struct {
	// FS is the filesystem holding vaults. Defaults to OSFileSystem().
	FS absfs.FileSystem

	// KDF parameterizes record key derivation for new tokens.
	KDF KDFParams

	// Verifier parameterizes the master-secret verifier written by
	// CreateMaster.
	Verifier KDFParams

	Progress Progress

	// ConfirmStale is asked before a leftover temporary directory from an
	// interrupted save is removed. Nil means never remove.
	ConfirmStale func(path string) bool

	Logger *zerolog.Logger
}

type settings struct {
	fs           absfs.FileSystem
	kdf          KDFParams
	verifier     KDFParams
	progress     Progress
	confirmStale func(string) bool
	log          zerolog.Logger
}

func (o *Options) settings() settings {
	s := settings{
		fs:       OSFileSystem(),
		kdf:      DefaultKDFParams(),
		verifier: DefaultVerifierParams(),
		progress: noProgress{},
		log:      zerolog.Nop(),
	}
	if o == nil {
		return s
	}
	if o.FS != nil {
		s.fs = o.FS
	}
	if o.KDF != (KDFParams{}) {
		s.kdf = o.KDF
	}
	if o.Verifier != (KDFParams{}) {
		s.verifier = o.Verifier
	}
	if o.Progress != nil {
		s.progress = o.Progress
	}
	if o.Logger != nil {
		s.log = *o.Logger
	}
	s.confirmStale = o.ConfirmStale
	return s
}
