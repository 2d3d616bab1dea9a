package vault

// Record is one service/password pair. While Decrypted it holds the
// plaintext password; while Encrypted it holds only the token. The salt is
// generated once and never changes.
type Record struct {
	service  string
	password *Secret
	token    string
	salt     []byte
	state    State
}

// newRecord takes ownership of password.
func newRecord(service string, password *Secret) (*Record, error) {
	salt, err := NewSalt()
	if err != nil {
		return nil, err
	}
	return &Record{
		service:  service,
		password: password,
		salt:     salt,
		state:    Decrypted,
	}, nil
}

func newEncryptedRecord(service, token string, salt []byte) *Record {
	return &Record{
		service: service,
		token:   token,
		salt:    salt,
		state:   Encrypted,
	}
}

func (r *Record) Service() string { return r.service }
func (r *Record) State() State { return r.state }

// Token returns the ciphertext token; ok is false unless the record is
// Encrypted.
func (r *Record) Token() (token string, ok bool) {
	return r.token, r.state == Encrypted
}

// Encrypt replaces the plaintext with a token derived from master and the
// record salt. On failure the record is left Decrypted and unchanged.
func (r *Record) Encrypt(master *Secret, p KDFParams) error {
	if r.state == Encrypted {
		return ErrAlreadyEncrypted
	}
	token, err := Encrypt(r.password, master, r.salt, p)
	if err != nil {
		return err
	}
	r.password.Destroy()
	r.password = nil
	r.token = token
	r.state = Encrypted
	return nil
}

// Decrypt opens the token with master. On failure the record is left
// Encrypted and unchanged.
func (r *Record) Decrypt(master *Secret) error {
	if r.state == Decrypted {
		return ErrAlreadyDecrypted
	}
	if master.Empty() {
		return ErrMissingKey
	}
	pt, err := Decrypt(r.token, master, r.salt)
	if err != nil {
		return err
	}
	r.password = pt
	r.token = ""
	r.state = Decrypted
	return nil
}

// Edit replaces the plaintext password and takes ownership of newPassword.
// An Encrypted record refuses, since overwriting the token would lose the
// stored secret.
func (r *Record) Edit(newPassword *Secret) error {
	if r.state == Encrypted {
		return ErrStillEncrypted
	}
	r.password.Destroy()
	r.password = newPassword
	return nil
}

func (r *Record) display() string {
	if r.state == Encrypted {
		return r.token
	}
	return r.password.reveal()
}

func (r *Record) destroy() {
	r.password.Destroy()
	r.password = nil
	zero(r.salt)
}
