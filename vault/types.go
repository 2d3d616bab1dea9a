package vault

import "errors"

const (
	MasterKeyLen = 32
	KeyLen       = 32
	SaltLen      = 32
	NonceLen     = 24
	VerifierLen  = 64
	TokenVersion = 0x01
)

// On-disk layout names.
const (
	MasterFile  = "master_password"
	ServicesDir = "services"
	PasswordDir = "passwords"
	SaltsDir    = "salts"

	servicePrefix  = "service_"
	passwordPrefix = "password_"
	saltPrefix     = "salt_"
)

var (
	ErrDuplicateService   = errors.New("vault: service name is taken")
	ErrNotFound           = errors.New("vault: service not found")
	ErrAlreadyEncrypted   = errors.New("vault: record already encrypted")
	ErrAlreadyDecrypted   = errors.New("vault: record already decrypted")
	ErrStillEncrypted     = errors.New("vault: record is encrypted")
	ErrMissingKey         = errors.New("vault: master secret is empty")
	ErrDecryptionFailure  = errors.New("vault: decryption failed")
	ErrIncompatibleLayout = errors.New("vault: incompatible directory layout")
	ErrDecode             = errors.New("vault: malformed encoding")
	ErrStoreNotEmpty      = errors.New("vault: store is not empty")
	ErrStaleTemp          = errors.New("vault: stale temporary directory")
	ErrClosed             = errors.New("vault: store is closed")
)

// State is the encryption state of a Record.
type State uint8

const (
	Decrypted State = iota
	Encrypted
)

func (s State) String() string {
	switch s {
	case Decrypted:
		return "decrypted"
	case Encrypted:
		return "encrypted"
	default:
		return "unknown"
	}
}

// Listing is the display projection of a record returned by Store.List.
type Listing struct {
	Service  string
	Password string
}
