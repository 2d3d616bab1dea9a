package vault

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_AddListGet(t *testing.T) {
	st := openStore(t, t.TempDir(), "pw1", nil)

	require.NoError(t, st.Add("github", NewSecretString("s3cr3t!")))
	require.NoError(t, st.Add("mail", NewSecretString("hunter2")))

	assert.Equal(t, 2, st.Len())
	assert.Equal(t, []string{"github", "mail"}, st.Services())
	assert.Equal(t, []Listing{
		{Service: "github", Password: "s3cr3t!"},
		{Service: "mail", Password: "hunter2"},
	}, st.List())

	pw, err := st.Get("mail")
	require.NoError(t, err)
	assert.Equal(t, "hunter2", pw)
}

func TestStore_DuplicateService(t *testing.T) {
	st := openStore(t, t.TempDir(), "pw1", nil)
	require.NoError(t, st.Add("github", NewSecretString("one")))

	err := st.Add("github", NewSecretString("two"))
	assert.ErrorIs(t, err, ErrDuplicateService)
	assert.Equal(t, []Listing{{Service: "github", Password: "one"}}, st.List())
}

func TestStore_NotFound(t *testing.T) {
	st := openStore(t, t.TempDir(), "pw1", nil)
	require.NoError(t, st.Add("github", NewSecretString("one")))
	before := st.List()

	assert.ErrorIs(t, st.Edit("gitlab", NewSecretString("x")), ErrNotFound)
	assert.ErrorIs(t, st.Remove("gitlab"), ErrNotFound)
	_, err := st.Get("gitlab")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, before, st.List())
}

func TestStore_EditRemove(t *testing.T) {
	st := openStore(t, t.TempDir(), "pw1", nil)
	for _, svc := range []string{"a", "b", "c"} {
		require.NoError(t, st.Add(svc, NewSecretString(svc+"-pw")))
	}

	require.NoError(t, st.Edit("b", NewSecretString("changed")))
	require.NoError(t, st.Remove("a"))

	assert.Equal(t, []Listing{
		{Service: "b", Password: "changed"},
		{Service: "c", Password: "c-pw"},
	}, st.List())

	// a removed name can be reused
	require.NoError(t, st.Add("a", NewSecretString("again")))
	assert.Equal(t, []string{"b", "c", "a"}, st.Services())
}

func TestStore_EncryptAllFailFast(t *testing.T) {
	st := openStore(t, t.TempDir(), "pw1", nil)
	require.NoError(t, st.Add("a", NewSecretString("1")))
	require.NoError(t, st.Add("b", NewSecretString("2")))
	require.NoError(t, st.Add("c", NewSecretString("3")))

	// b is already encrypted, so the bulk pass must stop there
	require.NoError(t, st.records[1].Encrypt(st.master, testParams))

	err := st.encryptAll()
	require.ErrorIs(t, err, ErrAlreadyEncrypted)
	svc, ok := FailedService(err)
	assert.True(t, ok)
	assert.Equal(t, "b", svc)
	assert.Equal(t, Encrypted, st.records[0].State())
	assert.Equal(t, Decrypted, st.records[2].State())

	require.NoError(t, st.restore())
	for _, r := range st.records {
		assert.Equal(t, Decrypted, r.State())
	}
	assert.Equal(t, "1", st.List()[0].Password)
}

func TestStore_Close(t *testing.T) {
	st := NewStore(t.TempDir(), NewSecretString("pw1"), testOptions(nil))
	require.NoError(t, st.Add("github", NewSecretString("one")))

	st.Close()
	st.Close()

	assert.Equal(t, 0, st.Len())
	assert.ErrorIs(t, st.Add("x", NewSecretString("y")), ErrClosed)
	assert.ErrorIs(t, st.Remove("github"), ErrClosed)
	assert.ErrorIs(t, st.Save(), ErrClosed)
	assert.ErrorIs(t, st.Load(st.Root()), ErrClosed)
}
