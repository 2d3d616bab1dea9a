package cli

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fahmaliyi/nspm/vault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cheap = vault.KDFParams{Time: 1, Memory: 1024, Threads: 1}

func testOptions() *vault.Options {
	return &vault.Options{KDF: cheap, Verifier: cheap}
}

type fakeClipboard struct {
	mu     sync.Mutex
	writes []string
}

func (f *fakeClipboard) write(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, text)
	return nil
}

func (f *fakeClipboard) all() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.writes...)
}

// secretQueue answers password prompts in order.
func secretQueue(t *testing.T, secrets ...string) func(string) ([]byte, error) {
	return func(string) ([]byte, error) {
		if len(secrets) == 0 {
			t.Fatal("unexpected password prompt")
		}
		s := secrets[0]
		secrets = secrets[1:]
		return []byte(s), nil
	}
}

type harness struct {
	store *vault.Store
	out   *bytes.Buffer
	clip  *fakeClipboard
	path  string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vault")
	st, err := vault.Create(path, vault.NewSecretString("pw1"), testOptions())
	require.NoError(t, err)
	t.Cleanup(st.Close)
	return &harness{store: st, out: &bytes.Buffer{}, clip: &fakeClipboard{}, path: path}
}

func (h *harness) run(t *testing.T, input string, secrets ...string) *Session {
	t.Helper()
	s := NewSession(h.store, Config{
		In:         strings.NewReader(input),
		Out:        h.out,
		ReadSecret: secretQueue(t, secrets...),
		Clipboard:  h.clip.write,
	})
	require.NoError(t, s.Run())
	return s
}

func TestSession_AddListShow(t *testing.T) {
	h := newHarness(t)
	s := h.run(t, "a github\nl\ns 1\nq\nn\n", "s3cr3t!")

	out := h.out.String()
	assert.Contains(t, out, "Added password for github")
	assert.Contains(t, out, "1) github")
	assert.Contains(t, out, "Password: s3cr3t!")
	assert.Contains(t, out, "Unsaved changes discarded.")
	assert.True(t, s.Dirty())
	assert.Equal(t, []string{"github"}, h.store.Services())
}

func TestSession_PipedPasswords(t *testing.T) {
	h := newHarness(t)
	s := NewSession(h.store, Config{
		In:        strings.NewReader("a github\ns3cr3t!\ne github\nn3w-pass\r\nq\nn\n"),
		Out:       h.out,
		Clipboard: h.clip.write,
	})
	require.NoError(t, s.Run())

	pw, err := h.store.Get("github")
	require.NoError(t, err)
	assert.Equal(t, "n3w-pass", pw)
	assert.Contains(t, h.out.String(), "Added password for github")
	assert.Contains(t, h.out.String(), "Successfully edited github")
}

func TestSession_AddPromptsForService(t *testing.T) {
	h := newHarness(t)
	h.run(t, "a\nmail\nq\nn\n", "hunter2")

	pw, err := h.store.Get("mail")
	require.NoError(t, err)
	assert.Equal(t, "hunter2", pw)
	assert.Contains(t, h.out.String(), "Warning: password has fewer than 14 characters")
}

func TestSession_AddEmptyPasswordGenerates(t *testing.T) {
	h := newHarness(t)
	h.run(t, "a bank\nq\nn\n", "")

	pw, err := h.store.Get("bank")
	require.NoError(t, err)
	assert.Len(t, pw, vault.DefaultPasswordLength)
	assert.Contains(t, h.out.String(), "Generated password: "+pw)
}

func TestSession_Errors(t *testing.T) {
	h := newHarness(t)
	h.run(t, "a github\na github\ne gitlab\nd gitlab\ns gitlab\ns\nfrobnicate\nq\nn\n", "one", "two")

	out := h.out.String()
	assert.Contains(t, out, vault.ErrDuplicateService.Error())
	assert.Equal(t, 3, strings.Count(out, vault.ErrNotFound.Error()))
	assert.Contains(t, out, "Specify a service")
	assert.Contains(t, out, "Unknown command")

	pw, err := h.store.Get("github")
	require.NoError(t, err)
	assert.Equal(t, "one", pw)
}

func TestSession_EditDelete(t *testing.T) {
	h := newHarness(t)
	h.run(t, "a github\na mail\ne github\nd mail\nq\nn\n", "old", "mailpw", "new")

	assert.Equal(t, []string{"github"}, h.store.Services())
	pw, err := h.store.Get("github")
	require.NoError(t, err)
	assert.Equal(t, "new", pw)
}

func TestSession_Generate(t *testing.T) {
	t.Run("saved", func(t *testing.T) {
		h := newHarness(t)
		h.run(t, "g 20\nsure\nmail\nq\nn\n")

		pw, err := h.store.Get("mail")
		require.NoError(t, err)
		assert.Len(t, pw, 20)
	})

	t.Run("declined", func(t *testing.T) {
		h := newHarness(t)
		s := h.run(t, "g\nnope\nq\n")

		assert.Equal(t, 0, h.store.Len())
		assert.False(t, s.Dirty())
		assert.NotContains(t, h.out.String(), "Save changes")
	})

	t.Run("invalid length uses default", func(t *testing.T) {
		h := newHarness(t)
		h.run(t, "g -3\ny\nweb\nq\nn\n")

		pw, err := h.store.Get("web")
		require.NoError(t, err)
		assert.Len(t, pw, vault.DefaultPasswordLength)
	})
}

func TestSession_Copy(t *testing.T) {
	h := newHarness(t)
	s := NewSession(h.store, Config{
		In:             strings.NewReader("a github\nc github\nq\nn\n"),
		Out:            h.out,
		ReadSecret:     secretQueue(t, "s3cr3t!"),
		Clipboard:      h.clip.write,
		ClipboardClear: 10 * time.Millisecond,
	})
	require.NoError(t, s.Run())

	assert.Contains(t, h.out.String(), "Clearing in 10ms")
	require.Eventually(t, func() bool { return len(h.clip.all()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"s3cr3t!", ""}, h.clip.all())
}

func TestSession_Save(t *testing.T) {
	h := newHarness(t)
	s := h.run(t, "a github\nw\nq\n", "s3cr3t!")

	assert.False(t, s.Dirty())
	assert.Contains(t, h.out.String(), "Saved")

	st, err := vault.Open(h.path, vault.NewSecretString("pw1"), testOptions())
	require.NoError(t, err)
	defer st.Close()
	assert.Equal(t, []vault.Listing{{Service: "github", Password: "s3cr3t!"}}, st.List())
}

func TestSession_QuitSaves(t *testing.T) {
	h := newHarness(t)
	h.run(t, "a github\nq\nyes\n", "s3cr3t!")

	st, err := vault.Open(h.path, vault.NewSecretString("pw1"), testOptions())
	require.NoError(t, err)
	defer st.Close()
	assert.Equal(t, []string{"github"}, st.Services())
}

func TestSession_EndOfInput(t *testing.T) {
	h := newHarness(t)
	h.run(t, "a github", "s3cr3t!")

	assert.Equal(t, []string{"github"}, h.store.Services())
	assert.Contains(t, h.out.String(), "Unsaved changes discarded.")
}

func TestSession_ReadSecretError(t *testing.T) {
	h := newHarness(t)
	s := NewSession(h.store, Config{
		In:  strings.NewReader("a github\nq\n"),
		Out: h.out,
		ReadSecret: func(string) ([]byte, error) {
			return nil, ErrInterrupted
		},
	})
	require.NoError(t, s.Run())

	assert.Equal(t, 0, h.store.Len())
	assert.Contains(t, h.out.String(), ErrInterrupted.Error())
}

func TestIsYes(t *testing.T) {
	for _, w := range []string{"y", "YES", " ok ", "just save", "finally", "s"} {
		assert.True(t, IsYes(w), w)
	}
	for _, w := range []string{"", "n", "no", "nope", "yess"} {
		assert.False(t, IsYes(w), w)
	}
}

func TestReadLine(t *testing.T) {
	r := strings.NewReader("first\r\nsecond")

	got, err := readLine(r)
	require.NoError(t, err)
	assert.Equal(t, "first", string(got))

	got, err = readLine(r)
	require.NoError(t, err)
	assert.Equal(t, "second", string(got))

	_, err = readLine(r)
	assert.ErrorIs(t, err, io.EOF)
}
