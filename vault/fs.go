package vault

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/absfs/absfs"
)

const (
	dirPerm  os.FileMode = 0700
	filePerm os.FileMode = 0600
)

// osFS is the absfs.FileSystem backed directly by the os package.
type osFS struct{}

var _ absfs.FileSystem = osFS{}

// OSFileSystem returns the filesystem used when Options.FS is unset.
func OSFileSystem() absfs.FileSystem { return osFS{} }

func (osFS) OpenFile(name string, flag int, perm os.FileMode) (absfs.File, error) {
	return os.OpenFile(name, flag, perm)
}

func (osFS) Mkdir(name string, perm os.FileMode) error { return os.Mkdir(name, perm) }
func (osFS) MkdirAll(name string, perm os.FileMode) error { return os.MkdirAll(name, perm) }
func (osFS) Remove(name string) error { return os.Remove(name) }
func (osFS) RemoveAll(path string) error { return os.RemoveAll(path) }
func (osFS) Rename(oldpath, newpath string) error { return os.Rename(oldpath, newpath) }
func (osFS) Stat(name string) (os.FileInfo, error) { return os.Stat(name) }
func (osFS) Chmod(name string, mode os.FileMode) error { return os.Chmod(name, mode) }
func (osFS) Chown(name string, uid, gid int) error { return os.Chown(name, uid, gid) }
func (osFS) Truncate(name string, size int64) error { return os.Truncate(name, size) }
func (osFS) Separator() uint8 { return os.PathSeparator }
func (osFS) ListSeparator() uint8 { return os.PathListSeparator }
func (osFS) Chdir(dir string) error { return os.Chdir(dir) }
func (osFS) Getwd() (string, error) { return os.Getwd() }
func (osFS) TempDir() string { return os.TempDir() }
func (osFS) Open(name string) (absfs.File, error) { return os.Open(name) }
func (osFS) Chtimes(name string, atime, mtime time.Time) error {
	return os.Chtimes(name, atime, mtime)
}

func (osFS) Create(name string) (absfs.File, error) {
	return os.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, filePerm)
}

// writeFile writes data and syncs it before closing.
func writeFile(fsys absfs.FileSystem, path string, data []byte) error {
	f, err := fsys.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, filePerm)
	if err != nil {
		return newIOError("create", path, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return newIOError("write", path, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return newIOError("sync", path, err)
	}
	if err := f.Close(); err != nil {
		return newIOError("close", path, err)
	}
	return nil
}

func readFile(fsys absfs.FileSystem, path string) ([]byte, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, newIOError("open", path, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, newIOError("read", path, err)
	}
	return data, nil
}

func readDirNames(fsys absfs.FileSystem, path string) ([]string, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, newIOError("open", path, err)
	}
	defer f.Close()
	names, err := f.Readdirnames(-1)
	if err != nil {
		return nil, newIOError("readdir", path, err)
	}
	return names, nil
}

// exists reports whether path exists. Errors other than "not exist" are
// returned.
func exists(fsys absfs.FileSystem, path string) (os.FileInfo, bool, error) {
	info, err := fsys.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, newIOError("stat", path, err)
	}
	return info, true, nil
}

// syncDir flushes directory entries after a rename; best effort.
func syncDir(fsys absfs.FileSystem, dir string) {
	f, err := fsys.Open(dir)
	if err != nil {
		return
	}
	_ = f.Sync()
	_ = f.Close()
}
