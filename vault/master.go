package vault

import (
	"crypto/subtle"
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/argon2"
)

// CreateMaster writes the verifier for master into the vault's master file.
// The verifier salt and Argon2id parameters are embedded in the file.
func CreateMaster(path string, master *Secret, opts *Options) error {
	return createMaster(opts.settings(), path, master)
}

func createMaster(s settings, dir string, master *Secret) error {
	v, err := newVerifier(master, s.verifier)
	if err != nil {
		return err
	}
	return writeFile(s.fs, filepath.Join(dir, MasterFile), []byte(v))
}

// Authenticate reports whether candidate matches the vault's stored
// verifier.
func Authenticate(path string, candidate *Secret, opts *Options) (bool, error) {
	return authenticate(opts.settings(), path, candidate)
}

func authenticate(s settings, dir string, candidate *Secret) (bool, error) {
	if candidate.Empty() {
		return false, ErrMissingKey
	}
	data, err := readFile(s.fs, filepath.Join(dir, MasterFile))
	if err != nil {
		return false, err
	}
	p, salt, want, err := parseVerifier(strings.TrimSpace(string(data)))
	if err != nil {
		return false, err
	}
	got, err := DeriveVerifier(candidate, salt, p)
	if err != nil {
		return false, err
	}
	defer zero(got)
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

func newVerifier(master *Secret, p KDFParams) (string, error) {
	salt, err := NewSalt()
	if err != nil {
		return "", err
	}
	hash, err := DeriveVerifier(master, salt, p)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.Memory, p.Time, p.Threads,
		encoding.EncodeToString(salt), encoding.EncodeToString(hash)), nil
}

// parseVerifier reads "$argon2id$v=19$m=..,t=..,p=..$salt$hash".
func parseVerifier(s string) (KDFParams, []byte, []byte, error) {
	var p KDFParams
	parts := strings.Split(s, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return p, nil, nil, fmt.Errorf("%w: master verifier", ErrDecode)
	}
	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return p, nil, nil, fmt.Errorf("%w: master verifier version", ErrDecode)
	}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Time, &p.Threads); err != nil {
		return p, nil, nil, fmt.Errorf("%w: master verifier parameters", ErrDecode)
	}
	if err := p.Validate(); err != nil {
		return p, nil, nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	salt, err := encoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return p, nil, nil, fmt.Errorf("%w: master verifier salt", ErrDecode)
	}
	hash, err := encoding.DecodeString(parts[5])
	if err != nil || len(hash) != VerifierLen {
		return p, nil, nil, fmt.Errorf("%w: master verifier hash", ErrDecode)
	}
	return p, salt, hash, nil
}
