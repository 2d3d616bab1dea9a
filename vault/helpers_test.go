package vault

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/absfs/absfs"
	"github.com/stretchr/testify/require"
)

// cheap parameters keep Argon2id fast in tests
var testParams = KDFParams{Time: 1, Memory: 1024, Threads: 1}

var errInjected = errors.New("injected failure")

func testOptions(fsys absfs.FileSystem) *Options {
	return &Options{FS: fsys, KDF: testParams, Verifier: testParams}
}

// newVault initializes a vault under a fresh temp dir and returns its path.
func newVault(t *testing.T, secret string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vault")
	require.NoError(t, InitializeVault(path, NewSecretString(secret), testOptions(nil)))
	return path
}

func openStore(t *testing.T, path, secret string, opts *Options) *Store {
	t.Helper()
	if opts == nil {
		opts = testOptions(nil)
	}
	st := NewStore(path, NewSecretString(secret), opts)
	t.Cleanup(st.Close)
	return st
}

// snapshot maps every file under dir to its content.
func snapshot(t *testing.T, dir string) map[string]string {
	t.Helper()
	out := make(map[string]string)
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(dir, p)
		if d.IsDir() {
			out[rel+"/"] = ""
			return nil
		}
		b, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		out[rel] = string(b)
		return nil
	})
	require.NoError(t, err)
	return out
}

// faultFS injects failures into an otherwise working filesystem.
type faultFS struct {
	absfs.FileSystem
	failCreate func(name string) bool
	failRename func(oldpath, newpath string) bool
}

func (f *faultFS) OpenFile(name string, flag int, perm os.FileMode) (absfs.File, error) {
	if flag&os.O_CREATE != 0 && f.failCreate != nil && f.failCreate(name) {
		return nil, errInjected
	}
	return f.FileSystem.OpenFile(name, flag, perm)
}

func (f *faultFS) Rename(oldpath, newpath string) error {
	if f.failRename != nil && f.failRename(oldpath, newpath) {
		return errInjected
	}
	return f.FileSystem.Rename(oldpath, newpath)
}

func inTemp(name string) bool {
	return strings.Contains(name, ".vault.tmp")
}
