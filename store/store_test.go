package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "db", "session.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetSession("backend")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.PutSession(&Session{Key: "backend", RefreshToken: "r1", UserID: "u1"}))
	session, err := s.GetSession("backend")
	require.NoError(t, err)
	require.Equal(t, "r1", session.RefreshToken)
	require.Equal(t, "u1", session.UserID)
	require.NotZero(t, session.UpdateTimestamp)

	require.NoError(t, s.PutSession(&Session{Key: "backend", RefreshToken: "r2", UserID: "u1"}))
	session, err = s.GetSession("backend")
	require.NoError(t, err)
	require.Equal(t, "r2", session.RefreshToken)

	require.NoError(t, s.DeleteSession("backend"))
	require.NoError(t, s.DeleteSession("backend"))
	_, err = s.GetSession("backend")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSessionStorageIsScopedByKey(t *testing.T) {
	s := newTestStore(t)
	a := s.SessionStorage("https://a.auth.nhost.run/v1")
	b := s.SessionStorage("https://b.auth.nhost.run/v1")

	token, err := a.LoadRefreshToken()
	require.NoError(t, err)
	require.Empty(t, token)

	require.NoError(t, a.SaveRefreshToken("token-a", "user-a"))
	token, err = a.LoadRefreshToken()
	require.NoError(t, err)
	require.Equal(t, "token-a", token)

	token, err = b.LoadRefreshToken()
	require.NoError(t, err)
	require.Empty(t, token)

	require.NoError(t, a.ClearRefreshToken())
	token, err = a.LoadRefreshToken()
	require.NoError(t, err)
	require.Empty(t, token)
}
