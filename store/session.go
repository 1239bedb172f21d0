package store

import (
	"database/sql"
	"time"

	"github.com/pkg/errors"
)

// Session is the persisted part of an authenticated session.
type Session struct {
	// Key identifies the backend the session belongs to.
	Key             string
	RefreshToken    string
	UserID          string
	UpdateTimestamp int64
}

// GetSession returns the session stored under `key`.
func (s *Store) GetSession(key string) (*Session, error) {
	session := &Session{}
	err := s.db.QueryRow(`
		SELECT key, refresh_token, user_id, update_timestamp
		FROM sessions
		WHERE key = ?
	`, key).Scan(&session.Key, &session.RefreshToken, &session.UserID, &session.UpdateTimestamp)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "querying session")
	}
	return session, nil
}

// PutSession writes a session, replacing any previous one under the same key.
func (s *Store) PutSession(session *Session) error {
	if session == nil {
		return errors.New("session cannot be nil")
	}
	session.UpdateTimestamp = time.Now().UnixMicro()
	_, err := s.db.Exec(`
		REPLACE INTO sessions (key, refresh_token, user_id, update_timestamp)
		VALUES (?, ?, ?, ?)
	`, session.Key, session.RefreshToken, session.UserID, session.UpdateTimestamp)
	if err != nil {
		return errors.Wrap(err, "writing session to database")
	}
	return nil
}

// DeleteSession removes the session stored under `key`. Deleting a missing session is not an error.
func (s *Store) DeleteSession(key string) error {
	if _, err := s.db.Exec(`DELETE FROM sessions WHERE key = ?`, key); err != nil {
		return errors.Wrap(err, "deleting session from database")
	}
	return nil
}

// SessionStorage binds the session table to a single key.
type SessionStorage struct {
	store *Store
	key   string
}

// SessionStorage returns a storage for the session identified by `key`.
func (s *Store) SessionStorage(key string) *SessionStorage {
	return &SessionStorage{store: s, key: key}
}

// LoadRefreshToken returns the stored refresh token, or an empty string if there is none.
func (s *SessionStorage) LoadRefreshToken() (string, error) {
	session, err := s.store.GetSession(s.key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	return session.RefreshToken, nil
}

// SaveRefreshToken persists the refresh token of `userID`.
func (s *SessionStorage) SaveRefreshToken(refreshToken, userID string) error {
	return s.store.PutSession(&Session{Key: s.key, RefreshToken: refreshToken, UserID: userID})
}

// ClearRefreshToken forgets the stored session.
func (s *SessionStorage) ClearRefreshToken() error {
	return s.store.DeleteSession(s.key)
}
