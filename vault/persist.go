package vault

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/absfs/absfs"
	"github.com/google/uuid"
)

var subdirs = [...]string{ServicesDir, PasswordDir, SaltsDir}

// InitializeVault creates an empty vault at path with a verifier for master.
// path must not exist yet.
func InitializeVault(path string, master *Secret, opts *Options) error {
	s := opts.settings()
	if _, ok, err := exists(s.fs, path); err != nil {
		return err
	} else if ok {
		return newIOError("mkdir", path, fs.ErrExist)
	}
	if err := buildLayout(s, path, master, nil); err != nil {
		return err
	}
	s.log.Info().Str("vault", path).Msg("vault initialized")
	return nil
}

// VerifyLayout reports whether path holds a loadable vault: the master file,
// the three record directories, and equal entry counts across them.
func VerifyLayout(path string, opts *Options) bool {
	_, err := inspectLayout(opts.settings().fs, path)
	return err == nil
}

// inspectLayout returns the shared entry count of a valid vault.
func inspectLayout(fsys absfs.FileSystem, dir string) (int, error) {
	info, ok, err := exists(fsys, filepath.Join(dir, MasterFile))
	if err != nil {
		return 0, err
	}
	if !ok || info.IsDir() {
		return 0, fmt.Errorf("%w: %s missing", ErrIncompatibleLayout, MasterFile)
	}
	count := -1
	for _, sub := range subdirs {
		p := filepath.Join(dir, sub)
		info, ok, err := exists(fsys, p)
		if err != nil {
			return 0, err
		}
		if !ok || !info.IsDir() {
			return 0, fmt.Errorf("%w: %s missing", ErrIncompatibleLayout, sub)
		}
		names, err := readDirNames(fsys, p)
		if err != nil {
			return 0, err
		}
		if count >= 0 && len(names) != count {
			return 0, fmt.Errorf("%w: %s has %d entries, expected %d", ErrIncompatibleLayout, sub, len(names), count)
		}
		count = len(names)
	}
	return count, nil
}

// buildLayout creates dir, its subdirectories and the master file. The
// master file is copied from masterData when given, otherwise a new
// verifier is derived from master.
func buildLayout(s settings, dir string, master *Secret, masterData []byte) error {
	if err := s.fs.Mkdir(dir, dirPerm); err != nil {
		return newIOError("mkdir", dir, err)
	}
	for _, sub := range subdirs {
		p := filepath.Join(dir, sub)
		if err := s.fs.Mkdir(p, dirPerm); err != nil {
			return newIOError("mkdir", p, err)
		}
	}
	if masterData != nil {
		return writeFile(s.fs, filepath.Join(dir, MasterFile), masterData)
	}
	return createMaster(s, dir, master)
}

func recordPaths(dir string, i int) (service, password, salt string) {
	n := strconv.Itoa(i)
	return filepath.Join(dir, ServicesDir, servicePrefix+n),
		filepath.Join(dir, PasswordDir, passwordPrefix+n),
		filepath.Join(dir, SaltsDir, saltPrefix+n)
}

func tempPaths(dir, saveID string) (tmp, retired string) {
	parent, base := filepath.Split(dir)
	return filepath.Join(parent, "."+base+".tmp"),
		filepath.Join(parent, "."+base+".retired-"+saveID)
}

// Save encrypts every record and writes the vault into a temporary sibling
// directory, then swaps it with the live one. Until the swap the live vault
// is not touched. On return the records are Decrypted again.
func (st *Store) Save() (err error) {
	if st.closed {
		return ErrClosed
	}
	dir := filepath.Clean(st.root)
	saveID := uuid.New().String()
	tmp, retired := tempPaths(dir, saveID)
	log := st.s.log.With().Str("vault", dir).Str("save_id", saveID).Logger()

	if _, err := recoverRetired(st.s, dir); err != nil {
		return err
	}
	masterData, err := st.liveMaster(dir)
	if err != nil {
		return err
	}

	log.Debug().Int("records", len(st.records)).Msg("encrypting records")
	if err := st.encryptAll(); err != nil {
		if rerr := st.restore(); rerr != nil {
			log.Error().Err(rerr).Msg("rollback after encrypt failure")
		}
		return err
	}
	defer func() {
		if rerr := st.restore(); rerr != nil && err == nil {
			err = rerr
		}
	}()

	if err := st.prepareTemp(tmp); err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			if rerr := st.s.fs.RemoveAll(tmp); rerr != nil {
				log.Warn().Err(rerr).Str("tmp", tmp).Msg("remove temporary directory")
			}
		}
	}()

	if err := buildLayout(st.s, tmp, st.master, masterData); err != nil {
		return err
	}
	total := len(st.records)
	for i, r := range st.records {
		if err := writeRecord(st.s.fs, tmp, i, r); err != nil {
			return &RecordError{Op: "write", Service: r.service, Index: i, Err: err}
		}
		st.s.progress.OnProgress(Event{Kind: EventWrite, Service: r.service, Index: i, Total: total})
	}

	if err := st.swap(dir, tmp, retired); err != nil {
		return err
	}
	committed = true
	log.Debug().Msg("vault saved")
	return nil
}

// liveMaster returns the current master file so the new layout keeps the
// same verifier. A vault that has never been written yields nil.
// The store's master secret must match that verifier.
func (st *Store) liveMaster(dir string) ([]byte, error) {
	_, ok, err := exists(st.s.fs, filepath.Join(dir, MasterFile))
	if err != nil || !ok {
		return nil, err
	}
	match, err := authenticate(st.s, dir, st.master)
	if err != nil {
		return nil, err
	}
	if !match {
		return nil, fmt.Errorf("%w: master secret rejected", ErrDecryptionFailure)
	}
	return readFile(st.s.fs, filepath.Join(dir, MasterFile))
}

// RecoverVault restores the vault at path from the copy a save moves aside,
// when a crash between the two renames of the swap left no live vault. It
// reports whether a copy was restored. An existing vault is never touched.
func RecoverVault(path string, opts *Options) (bool, error) {
	return recoverRetired(opts.settings(), filepath.Clean(path))
}

func recoverRetired(s settings, dir string) (bool, error) {
	if _, ok, err := exists(s.fs, dir); err != nil || ok {
		return false, err
	}
	parent := filepath.Dir(dir)
	names, err := readDirNames(s.fs, parent)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	prefix := "." + filepath.Base(dir) + ".retired-"
	var best string
	var newest time.Time
	for _, name := range names {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		p := filepath.Join(parent, name)
		if _, err := inspectLayout(s.fs, p); err != nil {
			continue
		}
		info, ok, err := exists(s.fs, p)
		if err != nil || !ok {
			continue
		}
		if best == "" || info.ModTime().After(newest) {
			best, newest = p, info.ModTime()
		}
	}
	if best == "" {
		return false, nil
	}
	if err := s.fs.Rename(best, dir); err != nil {
		return false, newIOError("rename", best, err)
	}
	syncDir(s.fs, parent)
	s.log.Warn().Str("vault", dir).Str("retired", best).Msg("restored vault left by an interrupted save")
	return true, nil
}

func (st *Store) prepareTemp(tmp string) error {
	_, ok, err := exists(st.s.fs, tmp)
	if err != nil || !ok {
		return err
	}
	if st.s.confirmStale == nil || !st.s.confirmStale(tmp) {
		return fmt.Errorf("%w: %s", ErrStaleTemp, tmp)
	}
	st.s.log.Warn().Str("tmp", tmp).Msg("removing stale temporary directory")
	if err := st.s.fs.RemoveAll(tmp); err != nil {
		return newIOError("remove", tmp, err)
	}
	return nil
}

func writeRecord(fsys absfs.FileSystem, dir string, i int, r *Record) error {
	token, ok := r.Token()
	if !ok {
		panic("vault: writing a decrypted record")
	}
	servicePath, passwordPath, saltPath := recordPaths(dir, i)
	if err := writeFile(fsys, servicePath, []byte(r.service)); err != nil {
		return err
	}
	if err := writeFile(fsys, passwordPath, []byte(token)); err != nil {
		return err
	}
	return writeFile(fsys, saltPath, []byte(encodeSalt(r.salt)))
}

// swap moves the live vault aside, renames tmp into its place and removes
// the old copy. If the second rename fails the old copy is put back.
func (st *Store) swap(dir, tmp, retired string) error {
	fsys := st.s.fs
	_, live, err := exists(fsys, dir)
	if err != nil {
		return err
	}
	if live {
		if err := fsys.Rename(dir, retired); err != nil {
			return newIOError("rename", dir, err)
		}
	}
	if err := fsys.Rename(tmp, dir); err != nil {
		if live {
			if rerr := fsys.Rename(retired, dir); rerr != nil {
				st.s.log.Error().Err(rerr).Str("retired", retired).Msg("could not restore live vault")
			}
		}
		return newIOError("rename", tmp, err)
	}
	syncDir(fsys, filepath.Dir(dir))
	if live {
		if err := fsys.RemoveAll(retired); err != nil {
			st.s.log.Warn().Err(err).Str("retired", retired).Msg("remove previous vault copy")
		}
	}
	return nil
}

// Load reads the vault at path into the empty store. A vault left aside by
// an interrupted save is restored first. The master secret is checked
// against the verifier; then every record is read and decrypted. On any
// failure the store stays empty.
func (st *Store) Load(path string) error {
	if st.closed {
		return ErrClosed
	}
	if len(st.records) > 0 {
		return ErrStoreNotEmpty
	}
	dir := filepath.Clean(path)
	if _, err := recoverRetired(st.s, dir); err != nil {
		return err
	}
	n, err := inspectLayout(st.s.fs, dir)
	if err != nil {
		return err
	}
	ok, err := authenticate(st.s, dir, st.master)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: master secret rejected", ErrDecryptionFailure)
	}

	recs := make([]*Record, 0, n)
	discard := func() {
		for _, r := range recs {
			r.destroy()
		}
	}
	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		r, err := readRecord(st.s.fs, dir, i)
		if err != nil {
			discard()
			return &RecordError{Op: "read", Index: i, Err: err}
		}
		if _, dup := seen[r.service]; dup {
			discard()
			return &RecordError{Op: "read", Service: r.service, Index: i, Err: ErrDuplicateService}
		}
		seen[r.service] = struct{}{}
		recs = append(recs, r)
		st.s.progress.OnProgress(Event{Kind: EventRead, Service: r.service, Index: i, Total: n})
	}
	if err := st.decryptAll(recs); err != nil {
		discard()
		return err
	}
	st.records = recs
	st.root = dir
	st.s.log.Debug().Str("vault", dir).Int("records", n).Msg("vault loaded")
	return nil
}

func readRecord(fsys absfs.FileSystem, dir string, i int) (*Record, error) {
	servicePath, passwordPath, saltPath := recordPaths(dir, i)
	service, err := readFile(fsys, servicePath)
	if err != nil {
		return nil, err
	}
	token, err := readFile(fsys, passwordPath)
	if err != nil {
		return nil, err
	}
	rawSalt, err := readFile(fsys, saltPath)
	if err != nil {
		return nil, err
	}
	salt, err := decodeSalt(strings.TrimSpace(string(rawSalt)))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", saltPath, err)
	}
	return newEncryptedRecord(string(service), strings.TrimSpace(string(token)), salt), nil
}
