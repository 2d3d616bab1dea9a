// Package vault implements an encrypted, directory-based credential store.
//
// A vault is a directory holding a master-secret verifier and three parallel
// subdirectories of index-numbered files:
//
//	<vault>/
//	  master_password       argon2id verifier string
//	  services/service_<i>  service name
//	  passwords/password_<i> XChaCha20-Poly1305 token
//	  salts/salt_<i>        per-record salt, base64url
//
// Each record password is encrypted with a key derived by Argon2id and HKDF
// from the master secret and the record's own salt. Saves are written to a
// temporary sibling directory and swapped in with renames, so an interrupted
// save never damages the previous vault.
package vault

// Create initializes a new vault at path and returns an empty store for it.
// The store takes ownership of master.
func Create(path string, master *Secret, opts *Options) (*Store, error) {
	if err := InitializeVault(path, master, opts); err != nil {
		master.Destroy()
		return nil, err
	}
	return NewStore(path, master, opts), nil
}

// Open checks master against the vault at path and loads every record. The
// store takes ownership of master; on error master is destroyed.
func Open(path string, master *Secret, opts *Options) (*Store, error) {
	st := NewStore(path, master, opts)
	if err := st.Load(path); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

// Zero securely wipes a byte slice from memory.
func Zero(b []byte) {
	zero(b)
}
