package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/clarkhacks/PersonalGram/internal/models"
	"github.com/clarkhacks/PersonalGram/internal/storage"
	"golang.org/x/crypto/bcrypt"
)

const (
	credentialsKey   = "admin:credentials"
	sessionKeyPrefix = "session:"

	// SessionTTL is how long an issued session stays valid.
	SessionTTL = 24 * time.Hour

	tokenBytes = 32
)

// ErrAlreadyInitialized is returned when initializing the admin
// credential a second time. The stored credential is never overwritten.
var ErrAlreadyInitialized = errors.New("admin already initialized")

// Manager issues and validates admin sessions backed by the metadata
// store. Expired sessions are purged lazily on validation; there is no
// background sweep.
type Manager struct {
	kv  storage.KV
	now func() time.Time
}

// NewManager creates a session manager over the given store
func NewManager(kv storage.KV) *Manager {
	return &Manager{kv: kv, now: time.Now}
}

// InitializeAdmin creates the single admin credential. Refuses with
// ErrAlreadyInitialized if one exists, leaving it untouched.
func (m *Manager) InitializeAdmin(ctx context.Context, username, password string) error {
	_, ok, err := m.kv.Get(ctx, credentialsKey)
	if err != nil {
		return fmt.Errorf("failed to check for existing credentials: %w", err)
	}
	if ok {
		return ErrAlreadyInitialized
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	creds := models.AdminCredentials{
		Username:     username,
		PasswordHash: string(hash),
	}
	data, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}
	if err := m.kv.Put(ctx, credentialsKey, string(data)); err != nil {
		return fmt.Errorf("failed to store credentials: %w", err)
	}
	return nil
}

// Authenticate checks username and password against the stored
// credential. No credential or a mismatch is a negative result, not an
// error.
func (m *Manager) Authenticate(ctx context.Context, username, password string) (bool, error) {
	value, ok, err := m.kv.Get(ctx, credentialsKey)
	if err != nil {
		return false, fmt.Errorf("failed to load credentials: %w", err)
	}
	if !ok {
		return false, nil
	}

	var creds models.AdminCredentials
	if err := json.Unmarshal([]byte(value), &creds); err != nil {
		return false, fmt.Errorf("failed to unmarshal credentials: %w", err)
	}
	if creds.Username != username {
		return false, nil
	}
	return bcrypt.CompareHashAndPassword([]byte(creds.PasswordHash), []byte(password)) == nil, nil
}

// CreateSession issues a fresh unpredictable bearer token valid for
// SessionTTL.
func (m *Manager) CreateSession(ctx context.Context, username string) (string, error) {
	token, err := generateToken(tokenBytes)
	if err != nil {
		return "", err
	}

	session := models.Session{
		Username:  username,
		ExpiresAt: m.now().Add(SessionTTL),
	}
	data, err := json.Marshal(session)
	if err != nil {
		return "", fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := m.kv.Put(ctx, sessionKeyPrefix+token, string(data)); err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}
	return token, nil
}

// ValidateSession reports whether token maps to a live session and, if
// so, the identity behind it. An expired session is deleted on sight
// and reported as invalid.
func (m *Manager) ValidateSession(ctx context.Context, token string) (string, bool, error) {
	if token == "" {
		return "", false, nil
	}

	value, ok, err := m.kv.Get(ctx, sessionKeyPrefix+token)
	if err != nil {
		return "", false, fmt.Errorf("failed to load session: %w", err)
	}
	if !ok {
		return "", false, nil
	}

	var session models.Session
	if err := json.Unmarshal([]byte(value), &session); err != nil {
		return "", false, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	if !m.now().Before(session.ExpiresAt) {
		// lazy expiry
		if err := m.kv.Delete(ctx, sessionKeyPrefix+token); err != nil {
			return "", false, fmt.Errorf("failed to purge expired session: %w", err)
		}
		return "", false, nil
	}
	return session.Username, true, nil
}

// DeleteSession revokes a token unconditionally. Unknown tokens are a
// no-op.
func (m *Manager) DeleteSession(ctx context.Context, token string) error {
	return m.kv.Delete(ctx, sessionKeyPrefix+token)
}

func generateToken(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
