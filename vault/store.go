package vault

import "fmt"

// Store is an ordered collection of records unlocked by one master secret.
// Records are always resolved by service name; positions shift on Remove.
// A Store is not safe for concurrent use.
type Store struct {
	root    string
	master  *Secret
	records []*Record
	s       settings
	closed  bool
}

// NewStore returns an empty store for the vault at root. The store takes
// ownership of master and destroys it on Close.
func NewStore(root string, master *Secret, opts *Options) *Store {
	return &Store{
		root:   root,
		master: master,
		s:      opts.settings(),
	}
}

func (st *Store) Root() string { return st.root }

func (st *Store) Len() int { return len(st.records) }

// Add appends a new Decrypted record with a fresh salt. The store takes
// ownership of password, including on error.
func (st *Store) Add(service string, password *Secret) error {
	if st.closed {
		password.Destroy()
		return ErrClosed
	}
	if st.find(service) >= 0 {
		password.Destroy()
		return fmt.Errorf("%w: %q", ErrDuplicateService, service)
	}
	r, err := newRecord(service, password)
	if err != nil {
		password.Destroy()
		return err
	}
	st.records = append(st.records, r)
	st.s.log.Debug().Str("service", service).Int("records", len(st.records)).Msg("record added")
	return nil
}

// Edit replaces the password of service. The store takes ownership of
// password, including on error.
func (st *Store) Edit(service string, password *Secret) error {
	if st.closed {
		password.Destroy()
		return ErrClosed
	}
	i := st.find(service)
	if i < 0 {
		password.Destroy()
		return fmt.Errorf("%w: %q", ErrNotFound, service)
	}
	if err := st.records[i].Edit(password); err != nil {
		password.Destroy()
		return &RecordError{Op: "edit", Service: service, Index: i, Err: err}
	}
	st.s.log.Debug().Str("service", service).Msg("record edited")
	return nil
}

func (st *Store) Remove(service string) error {
	if st.closed {
		return ErrClosed
	}
	i := st.find(service)
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrNotFound, service)
	}
	st.records[i].destroy()
	st.records = append(st.records[:i], st.records[i+1:]...)
	st.s.log.Debug().Str("service", service).Int("records", len(st.records)).Msg("record removed")
	return nil
}

// Get returns the current password of service.
func (st *Store) Get(service string) (string, error) {
	i := st.find(service)
	if i < 0 {
		return "", fmt.Errorf("%w: %q", ErrNotFound, service)
	}
	return st.records[i].display(), nil
}

// List returns every (service, password) pair in store order. The password
// is whatever the record currently holds: plaintext when Decrypted.
func (st *Store) List() []Listing {
	out := make([]Listing, 0, len(st.records))
	for _, r := range st.records {
		out = append(out, Listing{Service: r.service, Password: r.display()})
	}
	return out
}

// Services returns the service names in store order.
func (st *Store) Services() []string {
	out := make([]string, 0, len(st.records))
	for _, r := range st.records {
		out = append(out, r.service)
	}
	return out
}

// Close wipes the master secret and every plaintext password.
func (st *Store) Close() {
	if st.closed {
		return
	}
	for _, r := range st.records {
		r.destroy()
	}
	st.records = nil
	st.master.Destroy()
	st.closed = true
}

func (st *Store) find(service string) int {
	for i, r := range st.records {
		if r.service == service {
			return i
		}
	}
	return -1
}

// encryptAll stops at the first failure and returns that record's error.
// Records before it are left Encrypted; restore puts them back.
func (st *Store) encryptAll() error {
	total := len(st.records)
	for i, r := range st.records {
		if err := r.Encrypt(st.master, st.s.kdf); err != nil {
			return &RecordError{Op: "encrypt", Service: r.service, Index: i, Err: err}
		}
		st.s.progress.OnProgress(Event{Kind: EventEncrypt, Service: r.service, Index: i, Total: total})
	}
	return nil
}

// decryptAll decrypts recs in order and stops at the first failure.
func (st *Store) decryptAll(recs []*Record) error {
	total := len(recs)
	for i, r := range recs {
		if err := r.Decrypt(st.master); err != nil {
			return &RecordError{Op: "decrypt", Service: r.service, Index: i, Err: err}
		}
		st.s.progress.OnProgress(Event{Kind: EventDecrypt, Service: r.service, Index: i, Total: total})
	}
	return nil
}

// restore decrypts every record left Encrypted by a save.
func (st *Store) restore() error {
	for i, r := range st.records {
		if r.state != Encrypted {
			continue
		}
		if err := r.Decrypt(st.master); err != nil {
			st.s.log.Error().Str("service", r.service).Err(err).Msg("restore after save failed")
			return &RecordError{Op: "decrypt", Service: r.service, Index: i, Err: err}
		}
	}
	return nil
}
