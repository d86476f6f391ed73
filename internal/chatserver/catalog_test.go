package chatserver

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()
	require.NoError(t, c.Validate())
	assert.Equal(t, "alice renamed to bob", c.Renamed("alice", "bob"))
	assert.Equal(t, "Welcome alice", c.Welcome("alice"))
	assert.Equal(t, "alice left", c.Left("alice"))
}

func TestCatalog_Reason(t *testing.T) {
	c := DefaultCatalog()
	for _, err := range []error{
		ErrEmptyName, ErrNameTooLong, ErrDuplicateName,
		ErrEmptyTitle, ErrTitleTooLong, ErrPasswordTooLong,
		ErrAlreadyInRoom, ErrRoomNotFound, ErrWrongPassword,
	} {
		assert.NotEmpty(t, c.Reason(err), err.Error())
		assert.NotEqual(t, err.Error(), c.Reason(err), "taxonomy errors use catalog text")
	}
	wrapped := fmt.Errorf("ctx: %w", ErrWrongPassword)
	assert.Equal(t, c.Errors.WrongPassword, c.Reason(wrapped))
	assert.Equal(t, "boom", c.Reason(fmt.Errorf("boom")))
}

func TestLoadCatalogFromBytes_OverridesAndFallsBack(t *testing.T) {
	c, err := LoadCatalogFromBytes([]byte(`
errors:
  wrong_password: "密码错误"
notices:
  welcome: "欢迎 {name}"
`))
	require.NoError(t, err)
	assert.Equal(t, "密码错误", c.Errors.WrongPassword)
	assert.Equal(t, "欢迎 bob", c.Welcome("bob"))
	assert.Equal(t, DefaultCatalog().Errors.RoomNotFound, c.Errors.RoomNotFound)
	assert.Equal(t, DefaultCatalog().Notices.Left, c.Notices.Left)
}

func TestLoadCatalogFromBytes_RejectsEmptyEntry(t *testing.T) {
	_, err := LoadCatalogFromBytes([]byte(`notices: {left: ""}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notices.left")
}

func TestLoadCatalogFromBytes_RejectsBadYAML(t *testing.T) {
	_, err := LoadCatalogFromBytes([]byte("errors: [unterminated"))
	assert.Error(t, err)
}

func TestLoadCatalog(t *testing.T) {
	c, err := LoadCatalog("")
	require.NoError(t, err)
	assert.Equal(t, DefaultCatalog(), c)

	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("notices:\n  left: \"{name} is gone\"\n"), 0o644))
	c, err = LoadCatalog(path)
	require.NoError(t, err)
	assert.Equal(t, "bob is gone", c.Left("bob"))

	_, err = LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
