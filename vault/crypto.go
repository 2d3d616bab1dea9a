package vault

import (
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

var (
	encoding  = base64.RawURLEncoding.Strict()
	recordKDF = []byte("nspm record key v1")
)

const headerLen = 1 + 4 + 4 + 1 + NonceLen

// Argon2id bounds accepted when reading parameters back from disk.
const (
	minTime    = 1
	maxTime    = 16
	maxMemory  = 1 << 20 // KiB
	maxThreads = 16
)

// KDFParams are the Argon2id cost parameters. Memory is in KiB.
type KDFParams struct {
	Time    uint32
	Memory  uint32
	Threads uint8
}

func DefaultKDFParams() KDFParams { return KDFParams{Time: 3, Memory: 256 * 1024, Threads: 1} }

// DefaultVerifierParams are deliberately distinct from DefaultKDFParams so a
// verifier hash is never the same computation as a record key.
func DefaultVerifierParams() KDFParams { return KDFParams{Time: 3, Memory: 64 * 1024, Threads: 2} }

func (p KDFParams) Validate() error {
	switch {
	case p.Time < minTime || p.Time > maxTime:
		return fmt.Errorf("kdf time %d outside [%d, %d]", p.Time, minTime, maxTime)
	case p.Threads < 1 || p.Threads > maxThreads:
		return fmt.Errorf("kdf threads %d outside [1, %d]", p.Threads, maxThreads)
	case p.Memory < 8*uint32(p.Threads) || p.Memory > maxMemory:
		return fmt.Errorf("kdf memory %d KiB outside [%d, %d]", p.Memory, 8*uint32(p.Threads), maxMemory)
	}
	return nil
}

func randBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, err
	}
	return b, nil
}

// NewSalt returns SaltLen fresh random bytes.
func NewSalt() ([]byte, error) {
	salt, err := randBytes(SaltLen)
	if err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	return salt, nil
}

func encodeSalt(salt []byte) string { return encoding.EncodeToString(salt) }

func decodeSalt(s string) ([]byte, error) {
	salt, err := encoding.DecodeString(s)
	if err != nil || len(salt) != SaltLen {
		return nil, ErrDecode
	}
	return salt, nil
}

// DeriveVerifier computes the comparison hash of secret. It is never used as
// key material.
func DeriveVerifier(secret *Secret, salt []byte, p KDFParams) ([]byte, error) {
	if secret.Empty() {
		return nil, ErrMissingKey
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return argon2.IDKey(secret.Bytes(), salt, p.Time, p.Memory, p.Threads, VerifierLen), nil
}

// DeriveKey stretches secret with Argon2id and expands the result with HKDF
// into a cipher key. The caller must Destroy the returned key.
func DeriveKey(secret *Secret, salt []byte, p KDFParams) (*Secret, error) {
	if secret.Empty() {
		return nil, ErrMissingKey
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	master := argon2.IDKey(secret.Bytes(), salt, p.Time, p.Memory, p.Threads, MasterKeyLen)
	defer zero(master)

	h := hkdf.New(sha256.New, master, salt, recordKDF)
	key := make([]byte, KeyLen)
	if _, err := io.ReadFull(h, key); err != nil {
		zero(key)
		return nil, err
	}
	return NewSecret(key), nil
}

type tokenHeader struct {
	Version byte
	Time    uint32
	Memory  uint32
	Threads uint8
	Nonce   []byte
}

func (h tokenHeader) params() KDFParams {
	return KDFParams{Time: h.Time, Memory: h.Memory, Threads: h.Threads}
}

func encodeHeader(h tokenHeader) ([]byte, error) {
	buf := &bytes.Buffer{}
	buf.Grow(headerLen)

	if err := buf.WriteByte(h.Version); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.BigEndian, h.Time); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.BigEndian, h.Memory); err != nil {
		return nil, err
	}
	if err := buf.WriteByte(h.Threads); err != nil {
		return nil, err
	}
	if len(h.Nonce) != NonceLen {
		return nil, fmt.Errorf("nonce must be %d bytes, got %d", NonceLen, len(h.Nonce))
	}
	if _, err := buf.Write(h.Nonce); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeHeader splits raw into its header and ciphertext. Every failure maps
// to ErrDecryptionFailure.
func decodeHeader(raw []byte) (tokenHeader, []byte, error) {
	var h tokenHeader
	if len(raw) < headerLen+chacha20poly1305.Overhead {
		return h, nil, ErrDecryptionFailure
	}
	h.Version = raw[0]
	if h.Version != TokenVersion {
		return h, nil, ErrDecryptionFailure
	}
	h.Time = binary.BigEndian.Uint32(raw[1:5])
	h.Memory = binary.BigEndian.Uint32(raw[5:9])
	h.Threads = raw[9]
	h.Nonce = raw[10:headerLen]
	if err := h.params().Validate(); err != nil {
		return h, nil, ErrDecryptionFailure
	}
	return h, raw[headerLen:], nil
}

// Encrypt derives a key from secret and salt and seals plaintext with
// XChaCha20-Poly1305. The token carries its own nonce, KDF parameters and
// tag; the header is authenticated as associated data.
func Encrypt(plaintext, secret *Secret, salt []byte, p KDFParams) (string, error) {
	key, err := DeriveKey(secret, salt, p)
	if err != nil {
		return "", err
	}
	defer key.Destroy()

	aead, err := chacha20poly1305.NewX(key.Bytes())
	if err != nil {
		return "", fmt.Errorf("create cipher: %w", err)
	}
	nonce, err := randBytes(NonceLen)
	if err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	hdr, err := encodeHeader(tokenHeader{
		Version: TokenVersion,
		Time:    p.Time,
		Memory:  p.Memory,
		Threads: p.Threads,
		Nonce:   nonce,
	})
	if err != nil {
		return "", err
	}
	ad := append([]byte(nil), hdr...)
	raw := aead.Seal(hdr, nonce, plaintext.Bytes(), ad)
	return encoding.EncodeToString(raw), nil
}

// Decrypt opens a token produced by Encrypt. A wrong secret and a corrupted
// token both yield ErrDecryptionFailure.
func Decrypt(token string, secret *Secret, salt []byte) (*Secret, error) {
	if secret.Empty() {
		return nil, ErrMissingKey
	}
	raw, err := encoding.DecodeString(token)
	if err != nil {
		return nil, ErrDecryptionFailure
	}
	h, ct, err := decodeHeader(raw)
	if err != nil {
		return nil, err
	}
	key, err := DeriveKey(secret, salt, h.params())
	if err != nil {
		return nil, ErrDecryptionFailure
	}
	defer key.Destroy()

	aead, err := chacha20poly1305.NewX(key.Bytes())
	if err != nil {
		return nil, ErrDecryptionFailure
	}
	pt, err := aead.Open(nil, h.Nonce, ct, raw[:headerLen])
	if err != nil {
		return nil, ErrDecryptionFailure
	}
	return NewSecret(pt), nil
}
