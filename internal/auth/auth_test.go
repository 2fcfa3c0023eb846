package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/clarkhacks/PersonalGram/internal/storage"
)

func testManager() *Manager {
	return NewManager(storage.NewMemoryKV())
}

func TestInitializeAdminRefusesSecondCall(t *testing.T) {
	m := testManager()
	ctx := context.Background()

	if err := m.InitializeAdmin(ctx, "admin", "first-secret"); err != nil {
		t.Fatalf("InitializeAdmin failed: %v", err)
	}

	err := m.InitializeAdmin(ctx, "intruder", "other-secret")
	if !errors.Is(err, ErrAlreadyInitialized) {
		t.Fatalf("second InitializeAdmin = %v, want ErrAlreadyInitialized", err)
	}

	// The stored credential must be untouched.
	ok, err := m.Authenticate(ctx, "admin", "first-secret")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if !ok {
		t.Error("original credential no longer authenticates")
	}
	ok, err = m.Authenticate(ctx, "intruder", "other-secret")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if ok {
		t.Error("refused credential authenticates")
	}
}

func TestAuthenticate(t *testing.T) {
	m := testManager()
	ctx := context.Background()

	// No credential yet.
	ok, err := m.Authenticate(ctx, "admin", "secret")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if ok {
		t.Error("authenticated against empty store")
	}

	if err := m.InitializeAdmin(ctx, "admin", "secret"); err != nil {
		t.Fatalf("InitializeAdmin failed: %v", err)
	}

	cases := []struct {
		name     string
		username string
		password string
		want     bool
	}{
		{"correct", "admin", "secret", true},
		{"wrong password", "admin", "wrong", false},
		{"wrong username", "someone", "secret", false},
	}
	for _, tc := range cases {
		ok, err := m.Authenticate(ctx, tc.username, tc.password)
		if err != nil {
			t.Fatalf("%s: Authenticate failed: %v", tc.name, err)
		}
		if ok != tc.want {
			t.Errorf("%s: Authenticate = %v, want %v", tc.name, ok, tc.want)
		}
	}
}

func TestSessionLifecycle(t *testing.T) {
	m := testManager()
	ctx := context.Background()

	token, err := m.CreateSession(ctx, "admin")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if token == "" {
		t.Fatal("empty session token")
	}

	username, ok, err := m.ValidateSession(ctx, token)
	if err != nil {
		t.Fatalf("ValidateSession failed: %v", err)
	}
	if !ok || username != "admin" {
		t.Fatalf("ValidateSession = (%q, %v), want (admin, true)", username, ok)
	}

	if err := m.DeleteSession(ctx, token); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}
	_, ok, err = m.ValidateSession(ctx, token)
	if err != nil {
		t.Fatalf("ValidateSession after delete failed: %v", err)
	}
	if ok {
		t.Error("session still valid after DeleteSession")
	}

	// Deleting again is a no-op.
	if err := m.DeleteSession(ctx, token); err != nil {
		t.Errorf("repeated DeleteSession failed: %v", err)
	}
}

func TestSessionExpiry(t *testing.T) {
	m := testManager()
	ctx := context.Background()

	issued := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return issued }

	token, err := m.CreateSession(ctx, "admin")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	// Just inside the window.
	m.now = func() time.Time { return issued.Add(SessionTTL - time.Minute) }
	_, ok, err := m.ValidateSession(ctx, token)
	if err != nil {
		t.Fatalf("ValidateSession failed: %v", err)
	}
	if !ok {
		t.Error("session invalid before expiry")
	}

	// At the boundary the session is already dead.
	m.now = func() time.Time { return issued.Add(SessionTTL) }
	_, ok, err = m.ValidateSession(ctx, token)
	if err != nil {
		t.Fatalf("ValidateSession failed: %v", err)
	}
	if ok {
		t.Error("session valid at expiry boundary")
	}

	// Lazy purge: the token is gone even if the clock moves back.
	m.now = func() time.Time { return issued }
	_, ok, err = m.ValidateSession(ctx, token)
	if err != nil {
		t.Fatalf("ValidateSession failed: %v", err)
	}
	if ok {
		t.Error("expired session was not purged")
	}
}

func TestValidateSessionUnknownToken(t *testing.T) {
	m := testManager()
	ctx := context.Background()

	for _, token := range []string{"", "not-a-token"} {
		_, ok, err := m.ValidateSession(ctx, token)
		if err != nil {
			t.Fatalf("ValidateSession(%q) failed: %v", token, err)
		}
		if ok {
			t.Errorf("ValidateSession(%q) = true, want false", token)
		}
	}
}

func TestSessionTokensAreUnique(t *testing.T) {
	m := testManager()
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		token, err := m.CreateSession(ctx, "admin")
		if err != nil {
			t.Fatalf("CreateSession failed: %v", err)
		}
		if seen[token] {
			t.Fatalf("duplicate token issued: %s", token)
		}
		seen[token] = true
	}
}
